package core

import (
	"time"

	"jenkins2ado/internal/azure"
	"jenkins2ado/internal/evaluation"
	"jenkins2ado/internal/jenkins"
	"jenkins2ado/internal/ledger"
)

// SourceFile is the uploaded Jenkins definition
type SourceFile struct {
	Name    string `json:"name"`
	Size    int    `json:"size"`
	SHA256  string `json:"sha256"`
	Content string `json:"-"`
}

// Session carries one file through the workflow. Result pointers are
// replaced, never mutated, once set.
type Session struct {
	ID              string                    `json:"id"`
	CreatedAt       time.Time                 `json:"createdAt"`
	File            SourceFile                `json:"file"`
	Validation      *jenkins.ValidationResult `json:"validation,omitempty"`
	ConvertedYAML   string                    `json:"convertedYaml,omitempty"`
	ConversionError string                    `json:"conversionError,omitempty"`
	Lint            *azure.LintResult         `json:"yamlValidation,omitempty"`
	Evaluation      *evaluation.Result        `json:"evaluation,omitempty"`
	ApprovedYAML    string                    `json:"approvedYaml,omitempty"`
	Approval        *ledger.Record            `json:"approval,omitempty"`
	Steps           []StepState               `json:"steps"`
}

// Step returns the state row for name.
func (s *Session) Step(name StepName) *StepState {
	for i := range s.Steps {
		if s.Steps[i].Name == name {
			return &s.Steps[i]
		}
	}
	return nil
}

// HasYAML reports whether conversion produced usable YAML.
func (s *Session) HasYAML() bool {
	return s.ConvertedYAML != "" && s.ConversionError == "" && !azure.IsErrorText(s.ConvertedYAML)
}

// ReviewYAML is the text handed to evaluation and approval: the auto-fixed
// YAML when the linter changed it, otherwise the converted YAML.
func (s *Session) ReviewYAML() string {
	if s.Lint != nil && s.Lint.AutoFixed {
		return s.Lint.FixedYAML
	}
	return s.ConvertedYAML
}

func (s *Session) clone() Session {
	c := *s
	c.Steps = append([]StepState(nil), s.Steps...)
	return c
}
