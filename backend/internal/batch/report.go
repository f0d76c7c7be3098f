// Package batch records the per-item outcome of a sequential batch step.
package batch

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ItemFailure describes one item that was not committed
type ItemFailure struct {
	Ordinal int    `json:"ordinal"`
	ID      string `json:"id,omitempty"`
	Reason  string `json:"reason"`
}

// ItemWarning describes an item that was committed with defaults or partial data
type ItemWarning struct {
	Ordinal int    `json:"ordinal"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// Report is the result of one batch step. Methods are safe for concurrent use.
type Report struct {
	Step      string        `json:"step"`
	RunID     string        `json:"run_id"`
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Failures  []ItemFailure `json:"failures,omitempty"`
	Warnings  []ItemWarning `json:"warnings,omitempty"`

	mu sync.Mutex
}

// NewReport starts a report for step with a fresh run id
func NewReport(step string) *Report {
	return &Report{
		Step:  step,
		RunID: uuid.New().String(),
	}
}

// Succeed records a committed item
func (r *Report) Succeed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Attempted++
	r.Succeeded++
}

// Fail records an item that was skipped or only partly written
func (r *Report) Fail(ordinal int, id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Attempted++
	r.Failures = append(r.Failures, ItemFailure{Ordinal: ordinal, ID: id, Reason: err.Error()})
}

// Warn attaches a warning without changing the counts
func (r *Report) Warn(ordinal int, id, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, ItemWarning{Ordinal: ordinal, ID: id, Message: message})
}

// Failed returns the number of failed items
func (r *Report) Failed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Failures)
}

// Summary renders "step: succeeded/attempted succeeded"
func (r *Report) Summary() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("%s: %d/%d succeeded", r.Step, r.Succeeded, r.Attempted)
}

// Log writes the summary and every failure to log
func (r *Report) Log(log *zap.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.Failures {
		log.Warn("Item failed",
			zap.String("step", r.Step),
			zap.Int("ordinal", f.Ordinal),
			zap.String("id", f.ID),
			zap.String("reason", f.Reason),
		)
	}
	log.Info("Batch step complete",
		zap.String("step", r.Step),
		zap.String("run_id", r.RunID),
		zap.Int("succeeded", r.Succeeded),
		zap.Int("attempted", r.Attempted),
		zap.Int("warnings", len(r.Warnings)),
	)
}
