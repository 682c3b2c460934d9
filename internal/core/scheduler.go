package core

import (
	"fmt"
	"strings"
)

// Scheduler decides whether a step may start for a session
type Scheduler struct {
	// RequirePassingEvaluation blocks approval until the review passed.
	RequirePassingEvaluation bool
}

// NewScheduler creates a new scheduler
func NewScheduler(requirePassingEvaluation bool) *Scheduler {
	return &Scheduler{RequirePassingEvaluation: requirePassingEvaluation}
}

// Ready returns nil when step can run for s, or the reason it cannot.
func (sc *Scheduler) Ready(s *Session, step StepName) error {
	st := s.Step(step)
	if st == nil {
		return fmt.Errorf("%w: unknown step %q", ErrNotReady, step)
	}
	if st.Status == StatusRunning {
		return ErrBusy
	}

	switch step {
	case StepValidation:
		return nil
	case StepConversion:
		if s.Approval != nil {
			return ErrApproved
		}
		if strings.TrimSpace(s.File.Content) == "" || s.Validation == nil || !s.Validation.IsValid {
			return fmt.Errorf("%w: file must pass validation before conversion", ErrNotReady)
		}
		if c := s.Step(StepYAMLValidation); c.Status == StatusRunning {
			return ErrBusy
		}
		if c := s.Step(StepEvaluation); c.Status == StatusRunning {
			return ErrBusy
		}
		return nil
	case StepYAMLValidation, StepEvaluation:
		if !s.HasYAML() {
			return fmt.Errorf("%w: no converted YAML", ErrNotReady)
		}
		return nil
	case StepApproval:
		if s.Approval != nil {
			return ErrApproved
		}
		if !s.HasYAML() {
			return fmt.Errorf("%w: no converted YAML to approve", ErrNotReady)
		}
		// Approval signs the current YAML; nothing may still be checking it.
		for _, busy := range []StepName{StepConversion, StepYAMLValidation, StepEvaluation} {
			if s.Step(busy).Status == StatusRunning {
				return ErrBusy
			}
		}
		if sc.RequirePassingEvaluation && (s.Evaluation == nil || !s.Evaluation.Passed) {
			return fmt.Errorf("%w: evaluation has not passed", ErrNotReady)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown step %q", ErrNotReady, step)
}
