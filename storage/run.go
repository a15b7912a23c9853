package storage

import "time"

// Run statuses.
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
	RunEmpty     = "empty"
)

// RunSummary is the ledger entry for one provider within one run.
type RunSummary struct {
	RunID                 string
	Provider              string
	Status                string
	Fetched               int
	Enriched              int
	Written               int
	NormalizationFailures int
	RecordsWithFailures   int
	WriteFailures         int
	Batches               int
	ModuleFailures        map[string]int
	Error                 string
	StartedAt             time.Time
	FinishedAt            time.Time
}

// Duration returns how long the provider ran.
func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
