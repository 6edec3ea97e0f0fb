package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
)

func sampleRecords() []domain.UnifiedRecord {
	score := 9.8
	exploited := true
	return []domain.UnifiedRecord{
		{
			Key:            "CVE-2021-44228",
			Description:    "Log4Shell",
			Severity:       "CRITICAL",
			AttackVector:   "NETWORK",
			ImpactScore:    &score,
			PatchAvailable: domain.TriTrue,
			Exploited:      &exploited,
			AffectedProducts: []string{
				"cpe:2.3:a:apache:log4j:2.14.1:*:*:*:*:*:*:*",
			},
			References: []domain.Reference{
				{URL: "https://logging.apache.org/log4j/2.x/security.html"},
			},
			Sources: []domain.SourceName{domain.SourceNVD, domain.SourceCISAKEV},
			Provenance: map[domain.Field]domain.SourceName{
				domain.FieldDescription: domain.SourceNVD,
			},
		},
		{
			// Sparse record: only a key and one source.
			Key:     "CVE-2020-0001",
			Sources: []domain.SourceName{domain.SourcePacketStorm},
		},
	}
}

func TestWriteJSONLReproducible(t *testing.T) {
	records := sampleRecords()

	var first, second bytes.Buffer
	if err := WriteJSONL(&first, records); err != nil {
		t.Fatal(err)
	}
	if err := WriteJSONL(&second, records); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Fatal("materializing the same snapshot twice produced different bytes")
	}
}

func TestWriteJSONLOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSONL(&buf, sampleRecords()); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var rec map[string]any
	for i, line := range lines {
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", i, err)
		}
	}

	// Order follows the input slice.
	if !strings.Contains(lines[0], "CVE-2021-44228") || !strings.Contains(lines[1], "CVE-2020-0001") {
		t.Error("output order does not follow input order")
	}
}

func TestWriteJSONLExplicitUnknowns(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSONL(&buf, sampleRecords()); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	var sparse struct {
		CVEID            string   `json:"cve_id"`
		Description      string   `json:"description"`
		Severity         string   `json:"severity"`
		PatchAvailable   string   `json:"patch_available"`
		Exploited        *bool    `json:"exploited"`
		AffectedProducts []string `json:"affected_products"`
		References       []any    `json:"references"`
		Exploits         []any    `json:"exploits"`
		GitHubPoCs       []any    `json:"github_pocs"`
		Sources          []string `json:"sources"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &sparse); err != nil {
		t.Fatal(err)
	}

	if sparse.Description != "unknown" || sparse.Severity != "unknown" {
		t.Errorf("absent scalars must be explicit \"unknown\": desc=%q sev=%q", sparse.Description, sparse.Severity)
	}
	if sparse.PatchAvailable != "unknown" {
		t.Errorf("absent patch state must be \"unknown\", got %q (never \"false\")", sparse.PatchAvailable)
	}
	if sparse.Exploited != nil {
		t.Error("unasserted exploited must stay null")
	}
	if sparse.AffectedProducts == nil {
		t.Error("affected_products must be an empty list, not null")
	}
	if sparse.References == nil {
		t.Error("references must be an empty list, not null")
	}
	if sparse.Exploits == nil {
		t.Error("exploits must be an empty list, not null")
	}
	if sparse.GitHubPoCs == nil {
		t.Error("github_pocs must be an empty list, not null")
	}

	// The original record is untouched by normalization.
	records := sampleRecords()
	buf.Reset()
	if err := WriteJSONL(&buf, records); err != nil {
		t.Fatal(err)
	}
	if records[1].Description != "" {
		t.Error("normalization mutated the input record")
	}
}

func TestWriteCSVProjection(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleRecords()); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "cve_id,") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "CVE-2021-44228") || !strings.Contains(lines[1], "9.8") {
		t.Errorf("row missing expected fields: %s", lines[1])
	}
	if !strings.Contains(lines[2], "unknown") {
		t.Errorf("sparse row must carry explicit unknowns: %s", lines[2])
	}
}

func TestWriteSummaryCSV(t *testing.T) {
	var buf bytes.Buffer
	pocRecords := sampleRecords()
	pocRecords[0].PoCs = []domain.PoCEntry{{URL: "https://github.com/x/poc"}}

	if err := WriteSummaryCSV(&buf, pocRecords); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if lines[0] != "CVE ID,Severity,Exploited,Patch Available,GitHub PoC?" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if lines[1] != "CVE-2021-44228,CRITICAL,true,true,yes" {
		t.Errorf("unexpected row: %s", lines[1])
	}
	if lines[2] != "CVE-2020-0001,unknown,unknown,unknown,no" {
		t.Errorf("unexpected sparse row: %s", lines[2])
	}
}
