package reporting

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
)

const topRiskLimit = 10

// ReportBuilder aggregates a fused dataset into a RunReport.
type ReportBuilder struct{}

func NewReportBuilder() *ReportBuilder {
	return &ReportBuilder{}
}

// Build computes the severity breakdown, triage-flag counts and top-risk
// ranking for a finished run. The records slice is the run's final snapshot;
// summary carries the per-source counters collected during ingestion.
func (b *ReportBuilder) Build(records []domain.UnifiedRecord, summary *domain.RunSummary) *domain.RunReport {
	report := &domain.RunReport{
		Metadata: domain.ReportMetadata{
			ID:          uuid.New().String(),
			Title:       "Vulnerability Fusion Report",
			GeneratedAt: time.Now(),
			GeneratedBy: "cvefuse",
		},
		PerSource: map[string]domain.SourceStats{},
	}

	if summary != nil {
		if summary.RunID != "" {
			report.Metadata.ID = summary.RunID
		}
		report.Unresolved = summary.Unresolved
		for name, stats := range summary.PerSource {
			report.PerSource[string(name)] = stats
		}
	}

	for i := range records {
		rec := &records[i]
		report.Stats.Total++
		switch strings.ToUpper(rec.Severity) {
		case "CRITICAL":
			report.Stats.Critical++
		case "HIGH":
			report.Stats.High++
		case "MEDIUM":
			report.Stats.Medium++
		case "LOW":
			report.Stats.Low++
		default:
			report.Stats.Unknown++
		}
		if rec.Exploited != nil && *rec.Exploited {
			report.Exploited++
		}
		if rec.HighUnpatched {
			report.HighUnpatched++
		}
		if rec.CriticalWithPoC {
			report.CriticalWithPoC++
		}
	}

	report.TopRisks = b.rankRisks(records)
	return report
}

// rankRisks orders records by severity bucket, then CVSS score, then the
// amount of exploit material, and keeps the head of the list.
func (b *ReportBuilder) rankRisks(records []domain.UnifiedRecord) []domain.RiskEntry {
	type candidate struct {
		rec   *domain.UnifiedRecord
		order int
		score float64
	}

	candidates := make([]candidate, 0, len(records))
	for i := range records {
		rec := &records[i]
		order := severityOrder(rec.Severity)
		if order == 0 {
			continue
		}
		score := 0.0
		if rec.ImpactScore != nil {
			score = *rec.ImpactScore
		}
		candidates = append(candidates, candidate{rec: rec, order: order, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].order != candidates[j].order {
			return candidates[i].order > candidates[j].order
		}
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		li := len(candidates[i].rec.Exploits) + len(candidates[i].rec.PoCs)
		lj := len(candidates[j].rec.Exploits) + len(candidates[j].rec.PoCs)
		return li > lj
	})

	if len(candidates) > topRiskLimit {
		candidates = candidates[:topRiskLimit]
	}

	risks := make([]domain.RiskEntry, 0, len(candidates))
	for i, c := range candidates {
		risks = append(risks, domain.RiskEntry{
			Rank:     i + 1,
			CVEID:    c.rec.Key,
			Severity: strings.ToUpper(c.rec.Severity),
			Score:    c.score,
			Sources:  len(c.rec.Sources),
			PoCs:     len(c.rec.Exploits) + len(c.rec.PoCs),
		})
	}
	return risks
}

func severityOrder(severity string) int {
	switch strings.ToUpper(severity) {
	case "CRITICAL":
		return 4
	case "HIGH":
		return 3
	case "MEDIUM":
		return 2
	case "LOW":
		return 1
	default:
		return 0
	}
}
