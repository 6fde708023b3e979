package models

import (
	"errors"
	"fmt"
)

// StepResult is the outcome of one reconciliation sub-step.
type StepResult struct {
	Step    string `json:"step"`
	Skipped bool   `json:"skipped,omitempty"`
	Err     error  `json:"-"`
}

// OK reports whether the step did not fail.
func (r StepResult) OK() bool {
	return r.Err == nil
}

// ReconciliationReport collects every step run for a payment event.
type ReconciliationReport struct {
	PaymentID string       `json:"payment_id"`
	Trigger   string       `json:"trigger"`
	Steps     []StepResult `json:"steps"`
}

// Add appends a step result.
func (r *ReconciliationReport) Add(step string, err error) {
	r.Steps = append(r.Steps, StepResult{Step: step, Err: err})
}

// Skip records a step that did not apply.
func (r *ReconciliationReport) Skip(step string) {
	r.Steps = append(r.Steps, StepResult{Step: step, Skipped: true})
}

// Failed returns the failed steps.
func (r *ReconciliationReport) Failed() []StepResult {
	var failed []StepResult
	for _, s := range r.Steps {
		if !s.OK() {
			failed = append(failed, s)
		}
	}
	return failed
}

// Err joins every step failure, or nil when all steps succeeded.
func (r *ReconciliationReport) Err() error {
	var errs []error
	for _, s := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", s.Step, s.Err))
	}
	return errors.Join(errs...)
}
