package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jenkins2ado/internal/evaluation"
	"jenkins2ado/internal/jenkins"
	"jenkins2ado/internal/ledger"
)

func readySession() *Session {
	return &Session{
		ID:         "s",
		File:       SourceFile{Name: "Jenkinsfile", Content: "pipeline {}"},
		Validation: &jenkins.ValidationResult{IsValid: true},
		Steps:      newSteps(),
	}
}

func TestSchedulerConversion(t *testing.T) {
	sc := NewScheduler(false)

	s := readySession()
	assert.NoError(t, sc.Ready(s, StepConversion))

	s.Validation = &jenkins.ValidationResult{IsValid: false}
	assert.ErrorIs(t, sc.Ready(s, StepConversion), ErrNotReady)

	s = readySession()
	s.File.Content = "  "
	assert.ErrorIs(t, sc.Ready(s, StepConversion), ErrNotReady)

	s = readySession()
	s.Step(StepConversion).Status = StatusRunning
	assert.ErrorIs(t, sc.Ready(s, StepConversion), ErrBusy)

	s = readySession()
	s.Step(StepEvaluation).Status = StatusRunning
	assert.ErrorIs(t, sc.Ready(s, StepConversion), ErrBusy)
}

func TestSchedulerNeedsYAML(t *testing.T) {
	sc := NewScheduler(false)
	s := readySession()

	for _, step := range []StepName{StepYAMLValidation, StepEvaluation, StepApproval} {
		assert.ErrorIs(t, sc.Ready(s, step), ErrNotReady, step)
	}

	s.ConvertedYAML = "Error: nope"
	assert.ErrorIs(t, sc.Ready(s, StepApproval), ErrNotReady)

	s.ConvertedYAML = "steps: []"
	for _, step := range []StepName{StepYAMLValidation, StepEvaluation, StepApproval} {
		assert.NoError(t, sc.Ready(s, step), step)
	}

	s.Approval = &ledger.Record{}
	assert.ErrorIs(t, sc.Ready(s, StepApproval), ErrApproved)
}

func TestSchedulerPassingEvaluation(t *testing.T) {
	sc := NewScheduler(true)
	s := readySession()
	s.ConvertedYAML = "steps: []"

	assert.ErrorIs(t, sc.Ready(s, StepApproval), ErrNotReady)
	s.Evaluation = &evaluation.Result{Passed: true}
	assert.NoError(t, sc.Ready(s, StepApproval))
}

func TestSchedulerUnknownStep(t *testing.T) {
	assert.ErrorIs(t, NewScheduler(false).Ready(readySession(), "deploy"), ErrNotReady)
}

func TestSchedulerApprovalWaitsForChecks(t *testing.T) {
	sc := NewScheduler(false)

	for _, running := range []StepName{StepConversion, StepYAMLValidation, StepEvaluation} {
		s := readySession()
		s.ConvertedYAML = "steps: []"
		s.Step(running).Status = StatusRunning
		assert.ErrorIs(t, sc.Ready(s, StepApproval), ErrBusy, running)
	}

	s := readySession()
	s.ConvertedYAML = "steps: []"
	s.Step(StepEvaluation).Status = StatusDone
	assert.NoError(t, sc.Ready(s, StepApproval))
}
