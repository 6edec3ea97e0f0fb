package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
)

// unknownValue is what the materializer writes for a scalar no source ever
// asserted. Schema stays uniform across records: the field is present and
// explicitly unknown, never omitted.
const unknownValue = "unknown"

// WriteJSONL emits one self-contained JSON object per record, one per line,
// in the order given (the fusion store hands records out in insertion
// order). Output is byte-for-byte reproducible for the same input: scalar
// fields are always present, list fields are always present (possibly
// empty), and no record references another.
func WriteJSONL(w io.Writer, records []domain.UnifiedRecord) error {
	for i := range records {
		rec := normalizeForExport(records[i])
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record %s: %w", rec.Key, err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// WriteCSV emits the flat tabular projection of the dataset: one row per
// record, list fields joined with ";". The projection is derived from the
// same normalized records as the JSONL and carries no invariants of its own.
func WriteCSV(w io.Writer, records []domain.UnifiedRecord) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	headers := []string{
		"cve_id", "description", "severity", "attack_vector", "impact_score",
		"patch_available", "exploited", "mitigation", "date_added",
		"vendor_project", "product",
		"affected_products", "references", "exploits", "github_pocs",
		"sources", "has_exploit_poc", "high_unpatched", "critical_with_poc",
	}
	if err := writer.Write(headers); err != nil {
		return err
	}

	for i := range records {
		rec := normalizeForExport(records[i])

		impact := unknownValue
		if rec.ImpactScore != nil {
			impact = fmt.Sprintf("%.1f", *rec.ImpactScore)
		}

		refs := make([]string, 0, len(rec.References))
		for _, r := range rec.References {
			refs = append(refs, r.URL)
		}
		exploits := make([]string, 0, len(rec.Exploits))
		for _, e := range rec.Exploits {
			exploits = append(exploits, e.ID)
		}
		pocs := make([]string, 0, len(rec.PoCs))
		for _, p := range rec.PoCs {
			pocs = append(pocs, p.URL)
		}
		sources := make([]string, 0, len(rec.Sources))
		for _, s := range rec.Sources {
			sources = append(sources, string(s))
		}

		row := []string{
			rec.Key,
			rec.Description,
			rec.Severity,
			rec.AttackVector,
			impact,
			string(rec.PatchAvailable),
			exploitedString(rec.Exploited),
			rec.Mitigation,
			rec.DateAdded,
			rec.VendorProject,
			rec.Product,
			strings.Join(rec.AffectedProducts, ";"),
			strings.Join(refs, ";"),
			strings.Join(exploits, ";"),
			strings.Join(pocs, ";"),
			strings.Join(sources, ";"),
			fmt.Sprintf("%t", rec.HasExploitPoC),
			fmt.Sprintf("%t", rec.HighUnpatched),
			fmt.Sprintf("%t", rec.CriticalWithPoC),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

// WriteSummaryCSV emits the short triage summary: one row per record with
// the fields an analyst scans first.
func WriteSummaryCSV(w io.Writer, records []domain.UnifiedRecord) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"CVE ID", "Severity", "Exploited", "Patch Available", "GitHub PoC?"}); err != nil {
		return err
	}

	for i := range records {
		rec := normalizeForExport(records[i])
		hasPoC := "no"
		if len(rec.PoCs) > 0 {
			hasPoC = "yes"
		}
		row := []string{
			rec.Key,
			rec.Severity,
			exploitedString(rec.Exploited),
			string(rec.PatchAvailable),
			hasPoC,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

// normalizeForExport pads a record to the uniform output schema: empty
// scalars become explicit "unknown", nil lists become empty lists.
func normalizeForExport(rec domain.UnifiedRecord) domain.UnifiedRecord {
	out := rec.Clone()

	if out.Description == "" {
		out.Description = unknownValue
	}
	if out.Severity == "" {
		out.Severity = unknownValue
	}
	if out.AttackVector == "" {
		out.AttackVector = unknownValue
	}
	if out.Mitigation == "" {
		out.Mitigation = unknownValue
	}
	if out.DateAdded == "" {
		out.DateAdded = unknownValue
	}
	if out.VendorProject == "" {
		out.VendorProject = unknownValue
	}
	if out.Product == "" {
		out.Product = unknownValue
	}
	if out.PatchAvailable == "" {
		out.PatchAvailable = domain.TriUnknown
	}

	if out.AffectedProducts == nil {
		out.AffectedProducts = []string{}
	}
	if out.References == nil {
		out.References = []domain.Reference{}
	}
	if out.Exploits == nil {
		out.Exploits = []domain.ExploitEntry{}
	}
	if out.PoCs == nil {
		out.PoCs = []domain.PoCEntry{}
	}
	if out.Sources == nil {
		out.Sources = []domain.SourceName{}
	}
	if out.Provenance == nil {
		out.Provenance = map[domain.Field]domain.SourceName{}
	}

	return out
}

func exploitedString(v *bool) string {
	if v == nil {
		return unknownValue
	}
	return fmt.Sprintf("%t", *v)
}
