package domain

import "time"

// SeverityStats counts records per normalized severity bucket.
type SeverityStats struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Unknown  int `json:"unknown"`
}

// RiskEntry is one row of a run report's top-risk table.
type RiskEntry struct {
	Rank     int     `json:"rank"`
	CVEID    string  `json:"cve_id"`
	Severity string  `json:"severity"`
	Score    float64 `json:"score"`
	Sources  int     `json:"sources"`
	PoCs     int     `json:"pocs"`
}

// ReportMetadata identifies a generated run report.
type ReportMetadata struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generated_at"`
	GeneratedBy string    `json:"generated_by"`
}

// RunReport is the analyst-facing summary of a fusion run: dataset size,
// severity breakdown, triage-flag counts and the highest-risk records.
type RunReport struct {
	Metadata        ReportMetadata         `json:"metadata"`
	Stats           SeverityStats          `json:"stats"`
	Exploited       int                    `json:"exploited"`
	HighUnpatched   int                    `json:"high_unpatched"`
	CriticalWithPoC int                    `json:"critical_with_poc"`
	Unresolved      int                    `json:"unresolved"`
	PerSource       map[string]SourceStats `json:"per_source"`
	TopRisks        []RiskEntry            `json:"top_risks"`
}
