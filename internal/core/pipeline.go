package core

import "time"

// StepName identifies one agent step of the conversion workflow
type StepName string

const (
	StepValidation     StepName = "validation"
	StepConversion     StepName = "conversion"
	StepYAMLValidation StepName = "yaml-validation"
	StepEvaluation     StepName = "evaluation"
	StepApproval       StepName = "approval"
)

// StepStatus is the display state of a step
type StepStatus string

const (
	StatusPending StepStatus = "pending"
	StatusRunning StepStatus = "running"
	StatusDone    StepStatus = "done"
	StatusFailed  StepStatus = "failed"
	StatusSkipped StepStatus = "skipped"
)

// StepState is one row of the progress display
type StepState struct {
	Name       StepName   `json:"name"`
	Label      string     `json:"label"`
	Status     StepStatus `json:"status"`
	Message    string     `json:"message,omitempty"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Steps run in this order (validation -> conversion -> yaml-validation ->
// evaluation -> approval)
var workflow = []struct {
	name  StepName
	label string
}{
	{StepValidation, "Jenkins Validation Agent"},
	{StepConversion, "YAML Generation Agent"},
	{StepYAMLValidation, "YAML Validation Agent"},
	{StepEvaluation, "LLM Evaluation Agent"},
	{StepApproval, "Human Approval Gate"},
}

func newSteps() []StepState {
	steps := make([]StepState, len(workflow))
	for i, w := range workflow {
		steps[i] = StepState{Name: w.name, Label: w.label, Status: StatusPending}
	}
	return steps
}
