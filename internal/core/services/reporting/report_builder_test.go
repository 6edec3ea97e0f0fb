package reporting

import (
	"fmt"
	"testing"
	"time"

	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
)

func TestBuildAggregates(t *testing.T) {
	score1, score2 := 9.8, 7.5
	exploited := true

	records := []domain.UnifiedRecord{
		{Key: "CVE-2021-0001", Severity: "CRITICAL", ImpactScore: &score1, Exploited: &exploited, CriticalWithPoC: true,
			PoCs: []domain.PoCEntry{{URL: "https://github.com/x/poc"}}},
		{Key: "CVE-2021-0002", Severity: "HIGH", ImpactScore: &score2, HighUnpatched: true},
		{Key: "CVE-2021-0003", Severity: "medium"},
		{Key: "CVE-2021-0004"},
	}

	summary := &domain.RunSummary{
		RunID:      "run-1",
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
		Records:    4,
		Unresolved: 2,
		PerSource: map[domain.SourceName]domain.SourceStats{
			domain.SourceNVD: {Fetched: 4, Merged: 4},
		},
	}

	report := NewReportBuilder().Build(records, summary)

	if report.Metadata.ID != "run-1" {
		t.Errorf("report ID = %q, want run ID", report.Metadata.ID)
	}
	if report.Stats.Total != 4 || report.Stats.Critical != 1 || report.Stats.High != 1 ||
		report.Stats.Medium != 1 || report.Stats.Unknown != 1 {
		t.Errorf("unexpected severity stats: %+v", report.Stats)
	}
	if report.Exploited != 1 || report.HighUnpatched != 1 || report.CriticalWithPoC != 1 {
		t.Errorf("unexpected flag counts: exploited=%d high_unpatched=%d critical_with_poc=%d",
			report.Exploited, report.HighUnpatched, report.CriticalWithPoC)
	}
	if report.Unresolved != 2 {
		t.Errorf("unresolved = %d, want 2", report.Unresolved)
	}
	if report.PerSource["NVD"].Fetched != 4 {
		t.Errorf("per-source stats not carried over: %+v", report.PerSource)
	}
}

func TestBuildTopRisksOrdering(t *testing.T) {
	low, high := 7.0, 9.9

	records := []domain.UnifiedRecord{
		{Key: "CVE-2021-0001", Severity: "HIGH", ImpactScore: &high},
		{Key: "CVE-2021-0002", Severity: "CRITICAL", ImpactScore: &low},
		{Key: "CVE-2021-0003", Severity: "CRITICAL", ImpactScore: &high},
		{Key: "CVE-2021-0004"}, // unknown severity never ranks
	}

	report := NewReportBuilder().Build(records, nil)

	if len(report.TopRisks) != 3 {
		t.Fatalf("expected 3 ranked risks, got %d", len(report.TopRisks))
	}
	wantOrder := []string{"CVE-2021-0003", "CVE-2021-0002", "CVE-2021-0001"}
	for i, want := range wantOrder {
		if report.TopRisks[i].CVEID != want {
			t.Errorf("rank %d = %s, want %s", i+1, report.TopRisks[i].CVEID, want)
		}
		if report.TopRisks[i].Rank != i+1 {
			t.Errorf("rank field = %d, want %d", report.TopRisks[i].Rank, i+1)
		}
	}
}

func TestBuildTopRisksLimit(t *testing.T) {
	var records []domain.UnifiedRecord
	for i := 0; i < 25; i++ {
		records = append(records, domain.UnifiedRecord{
			Key:      fmt.Sprintf("CVE-2021-%04d", i+1000),
			Severity: "HIGH",
		})
	}

	report := NewReportBuilder().Build(records, nil)
	if len(report.TopRisks) != topRiskLimit {
		t.Errorf("top risks = %d, want %d", len(report.TopRisks), topRiskLimit)
	}
}
