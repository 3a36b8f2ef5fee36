package pipeline

import (
	"sync"

	"github.com/google/uuid"
)

// Status is the §7 run-outcome tri-state.
type Status string

const (
	StatusOK             Status = "OK"
	StatusOKWithWarnings Status = "OK with warnings"
	StatusFAIL           Status = "FAIL"
)

// EventCounts tracks matched/unmatched counts for one event kind (§7's
// counts matrix).
type EventCounts struct {
	Matched   int
	Unmatched int
}

// Report is the run orchestrator's final, user-visible summary.
type Report struct {
	RunID  string
	Status Status

	CMEs      EventCounts
	Dimmings  EventCounts
	Flares    EventCounts

	AcceptedSlices int
	RejectedSlices int
	// ImbalanceRatio is AcceptedSlices-with-label-1 over AcceptedSlices,
	// computed with gonum/floats over the per-step label tally.
	ImbalanceRatio float64

	Warnings []string
	Err      error

	mu sync.Mutex
}

// NewReport stamps a fresh report with a run UUID (§ pipeline run
// bookkeeping), so repeated invocations can be told apart in logs and in the
// printed report. The id is not written to any database table.
func NewReport() *Report {
	return &Report{RunID: uuid.NewString(), Status: StatusOK}
}

// Warn appends a warning and downgrades OK to OK-with-warnings; it never
// downgrades an existing FAIL. Safe to call concurrently from worker-pool
// goroutines.
func (r *Report) Warn(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, msg)
	if r.Status == StatusOK {
		r.Status = StatusOKWithWarnings
	}
}

// Fail marks the run FAIL, the only state a stage abort may set.
func (r *Report) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = StatusFAIL
	r.Err = err
}

// Finalize computes ImbalanceRatio as labelOnes over labelTotal (the
// label-1 count over the accepted-slice count) once every stage has run.
func (r *Report) Finalize(labelOnes, labelTotal int) {
	if labelTotal == 0 {
		r.ImbalanceRatio = 0
		return
	}
	r.ImbalanceRatio = ratio(float64(labelOnes), float64(labelTotal))
}
