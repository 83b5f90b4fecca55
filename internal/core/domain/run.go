package domain

import "time"

// RunPhase identifies which half of the pipeline a run executed.
type RunPhase string

const (
	PhaseCrawl   RunPhase = "crawl"
	PhaseProcess RunPhase = "process"
)

// RunStatus is the terminal state of a run.
type RunStatus string

const (
	RunCompleted   RunStatus = "completed"
	RunInterrupted RunStatus = "interrupted"
	RunFailed      RunStatus = "failed"
)

// Run is one entry in the run ledger.
type Run struct {
	ID         string
	Phase      RunPhase
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt time.Time
	Counts     map[string]int64
	Error      string
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// CountMap flattens ordered counts into a map.
func CountMap(counts []Count) map[string]int64 {
	m := make(map[string]int64, len(counts))
	for _, c := range counts {
		m[c.Name] = c.Value
	}
	return m
}
