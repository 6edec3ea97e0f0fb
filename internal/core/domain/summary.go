package domain

import "time"

// SourceStats counts what happened to one feed's documents during a run,
// so coverage gaps are auditable rather than silent.
type SourceStats struct {
	Fetched  int    `json:"fetched"`
	Merged   int    `json:"merged"`
	Diverted int    `json:"diverted"`
	Error    string `json:"error,omitempty"` // set when the fetch failed entirely
}

// RunSummary describes one full pipeline run.
type RunSummary struct {
	RunID      string                     `json:"run_id"`
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at"`
	Records    int                        `json:"records"`
	Unresolved int                        `json:"unresolved"`
	PerSource  map[SourceName]SourceStats `json:"per_source"`
}
