package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"jenkins2ado/internal/azure"
	"jenkins2ado/internal/conversion"
	"jenkins2ado/internal/evaluation"
	"jenkins2ado/internal/jenkins"
	"jenkins2ado/internal/ledger"
	"jenkins2ado/internal/metrics"
	"jenkins2ado/pkg/utils"
)

const (
	PipelineFileName = "azure-pipeline.yml"
	ReportFileName   = "report.json"
	DefaultApprover  = "anonymous"
)

// Converter produces Azure YAML from a validated Jenkins file.
type Converter interface {
	Convert(ctx context.Context, content string, valid bool) (string, error)
}

// Evaluator reviews a conversion; nil means there was nothing to review.
type Evaluator interface {
	Evaluate(ctx context.Context, yaml, jenkins string) *evaluation.Result
}

// ArtifactStore persists approved output.
type ArtifactStore interface {
	Save(sessionID, name string, data []byte) (string, error)
}

// ApprovalLedger records approvals.
type ApprovalLedger interface {
	Append(a ledger.Approval) (*ledger.Record, error)
}

// Options wires the step implementations into a Runner. Evaluator,
// Artifacts and Ledger are optional.
type Options struct {
	Converter   Converter
	Evaluator   Evaluator
	Artifacts   ArtifactStore
	Ledger      ApprovalLedger
	Scheduler   *Scheduler
	StepTimeout time.Duration
	Logger      *zap.Logger
}

// Runner ties together validation, conversion, linting, evaluation and
// approval for sessions held in a Store.
type Runner struct {
	store     *Store
	scheduler *Scheduler
	executor  *Executor
	converter Converter
	evaluator Evaluator
	artifacts ArtifactStore
	ledger    ApprovalLedger
	logger    *zap.Logger
}

func NewRunner(store *Store, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = NewScheduler(false)
	}
	return &Runner{
		store:     store,
		scheduler: opts.Scheduler,
		executor:  NewExecutor(opts.StepTimeout),
		converter: opts.Converter,
		evaluator: opts.Evaluator,
		artifacts: opts.Artifacts,
		ledger:    opts.Ledger,
		logger:    opts.Logger,
	}
}

// Store returns the session store backing the runner.
func (r *Runner) Store() *Store { return r.store }

// Upload starts a session for a Jenkins file and validates it.
func (r *Runner) Upload(ctx context.Context, name string, content []byte) (Session, error) {
	if !jenkins.Supported(name) {
		return Session{}, ErrUnsupportedFile
	}

	s := Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		File: SourceFile{
			Name:    name,
			Size:    len(content),
			SHA256:  utils.HashBytes(content),
			Content: string(content),
		},
		Steps: newSteps(),
	}
	r.store.Put(s)
	metrics.SessionsCreated.Inc()
	r.logger.Info("session created",
		zap.String("session", s.ID),
		zap.String("file", name),
		zap.Int("size", len(content)))

	return r.Validate(ctx, s.ID)
}

// Validate runs the Jenkins file checks.
func (r *Runner) Validate(ctx context.Context, id string) (Session, error) {
	snap, started, err := r.begin(id, StepValidation, nil)
	if err != nil {
		return Session{}, err
	}

	var res jenkins.ValidationResult
	status, _ := r.executor.RunStep(ctx, StepValidation, func(context.Context) (StepStatus, error) {
		res = jenkins.Validate(snap.File.Name, snap.File.Content)
		if res.IsValid {
			return StatusDone, nil
		}
		return StatusFailed, nil
	})

	msg := fmt.Sprintf("%d errors, %d warnings", len(res.Errors), len(res.Warnings))
	err = r.finish(id, StepValidation, started, status, msg, func(s *Session) {
		s.Validation = &res
	})
	if err != nil {
		return Session{}, err
	}
	r.logger.Debug("validation complete", zap.String("session", id), zap.Bool("valid", res.IsValid))
	return r.store.Get(id)
}

// Convert asks the model for YAML, then lints and evaluates the answer.
// A failed model call is recorded on the session, not returned.
func (r *Runner) Convert(ctx context.Context, id string) (Session, error) {
	snap, started, err := r.begin(id, StepConversion, func(s *Session) {
		s.ConvertedYAML = ""
		s.ConversionError = ""
		s.Lint = nil
		s.Evaluation = nil
		for _, n := range []StepName{StepYAMLValidation, StepEvaluation} {
			*s.Step(n) = StepState{Name: n, Label: s.Step(n).Label, Status: StatusPending}
		}
	})
	if err != nil {
		return Session{}, err
	}

	var out string
	status, convErr := r.executor.RunStep(ctx, StepConversion, func(ctx context.Context) (StepStatus, error) {
		var err error
		out, err = r.converter.Convert(ctx, snap.File.Content, snap.Validation != nil && snap.Validation.IsValid)
		return StatusDone, err
	})

	if convErr != nil {
		text := conversion.ErrorText(convErr)
		err = r.finish(id, StepConversion, started, status, convErr.Error(), func(s *Session) {
			s.ConversionError = text
			s.Step(StepYAMLValidation).Status = StatusSkipped
			s.Step(StepEvaluation).Status = StatusSkipped
		})
		if err != nil {
			return Session{}, err
		}
		return r.store.Get(id)
	}

	err = r.finish(id, StepConversion, started, status, fmt.Sprintf("%d bytes", len(out)), func(s *Session) {
		s.ConvertedYAML = out
	})
	if err != nil {
		return Session{}, err
	}

	if _, err := r.LintYAML(ctx, id); err != nil {
		return Session{}, err
	}
	return r.Evaluate(ctx, id)
}

// LintYAML runs the Azure YAML checks and auto-fixes on the converted text.
func (r *Runner) LintYAML(ctx context.Context, id string) (Session, error) {
	snap, started, err := r.begin(id, StepYAMLValidation, nil)
	if err != nil {
		return Session{}, err
	}

	var res *azure.LintResult
	status, _ := r.executor.RunStep(ctx, StepYAMLValidation, func(context.Context) (StepStatus, error) {
		res = azure.Lint(snap.ConvertedYAML)
		switch {
		case res == nil:
			return StatusSkipped, nil
		case res.IsValid:
			return StatusDone, nil
		default:
			return StatusFailed, nil
		}
	})

	msg := ""
	if res != nil {
		msg = fmt.Sprintf("%d errors, %d warnings", len(res.Errors), len(res.Warnings))
		if res.AutoFixed {
			msg += ", auto-fixed"
		}
	}
	err = r.finish(id, StepYAMLValidation, started, status, msg, func(s *Session) {
		s.Lint = res
	})
	if err != nil {
		return Session{}, err
	}
	return r.store.Get(id)
}

// Evaluate asks the model to grade the reviewed YAML against the source.
func (r *Runner) Evaluate(ctx context.Context, id string) (Session, error) {
	if r.evaluator == nil {
		err := r.store.Update(id, func(s *Session) error {
			st := s.Step(StepEvaluation)
			st.Status = StatusSkipped
			st.Message = "evaluation disabled"
			return nil
		})
		if err != nil {
			return Session{}, err
		}
		return r.store.Get(id)
	}

	snap, started, err := r.begin(id, StepEvaluation, nil)
	if err != nil {
		return Session{}, err
	}

	var res *evaluation.Result
	status, _ := r.executor.RunStep(ctx, StepEvaluation, func(ctx context.Context) (StepStatus, error) {
		res = r.evaluator.Evaluate(ctx, snap.ReviewYAML(), snap.File.Content)
		switch {
		case res == nil:
			return StatusSkipped, nil
		case res.Passed:
			return StatusDone, nil
		default:
			return StatusFailed, nil
		}
	})

	msg := ""
	if res != nil {
		verdict := "Needs Review"
		if res.Passed {
			verdict = "Passed"
		}
		msg = fmt.Sprintf("Score: %d/10, %s", res.OverallScore, verdict)
	}
	err = r.finish(id, StepEvaluation, started, status, msg, func(s *Session) {
		s.Evaluation = res
	})
	if err != nil {
		return Session{}, err
	}
	return r.store.Get(id)
}

// Approve stores the reviewed YAML, records the approval and returns the
// updated session. The approved text is Session.ApprovedYAML.
func (r *Runner) Approve(ctx context.Context, id, approver string) (Session, error) {
	if approver == "" {
		approver = DefaultApprover
	}
	snap, started, err := r.begin(id, StepApproval, nil)
	if err != nil {
		return Session{}, err
	}

	yaml := snap.ReviewYAML()
	var rec *ledger.Record
	status, apprErr := r.executor.RunStep(ctx, StepApproval, func(context.Context) (StepStatus, error) {
		var err error
		rec, err = r.record(snap, yaml, approver)
		return StatusDone, err
	})

	if apprErr != nil {
		r.logger.Error("approval failed", zap.String("session", id), zap.Error(apprErr))
		if err := r.finish(id, StepApproval, started, status, apprErr.Error(), nil); err != nil {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("approve session %s: %w", id, apprErr)
	}

	err = r.finish(id, StepApproval, started, status, "Pipeline approved", func(s *Session) {
		s.ApprovedYAML = yaml
		s.Approval = rec
	})
	if err != nil {
		return Session{}, err
	}
	metrics.Approvals.Inc()
	r.logger.Info("pipeline approved",
		zap.String("session", id),
		zap.String("approver", approver),
		zap.String("yaml_hash", utils.ShortHash(rec.YAMLHash)))
	return r.store.Get(id)
}

// Download returns the approved YAML of a session.
func (r *Runner) Download(id string) (string, error) {
	s, err := r.store.Get(id)
	if err != nil {
		return "", err
	}
	if s.Approval == nil {
		return "", fmt.Errorf("%w: session has not been approved", ErrNotReady)
	}
	return s.ApprovedYAML, nil
}

// record writes the artifacts and appends the ledger entry. Without a
// ledger the returned record is unsigned and unchained.
func (r *Runner) record(s Session, yaml, approver string) (*ledger.Record, error) {
	a := ledger.Approval{
		SessionID:  s.ID,
		SourceName: s.File.Name,
		SourceHash: s.File.SHA256,
		YAMLHash:   utils.HashString(yaml),
		Approver:   approver,
	}

	if r.artifacts != nil {
		path, err := r.artifacts.Save(s.ID, PipelineFileName, []byte(yaml))
		if err != nil {
			return nil, err
		}
		a.ArtifactPath = path

		report, err := json.MarshalIndent(newReport(s, approver), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode report: %w", err)
		}
		if _, err := r.artifacts.Save(s.ID, ReportFileName, report); err != nil {
			return nil, err
		}
	}

	if r.ledger == nil {
		return ledger.NewRecord(0, a, "")
	}
	return r.ledger.Append(a)
}

// begin admits step through the scheduler, marks it running and returns a
// snapshot of the session to work from.
func (r *Runner) begin(id string, step StepName, reset func(*Session)) (Session, time.Time, error) {
	var snap Session
	now := time.Now().UTC()
	err := r.store.Update(id, func(s *Session) error {
		if err := r.scheduler.Ready(s, step); err != nil {
			return err
		}
		if reset != nil {
			reset(s)
		}
		st := s.Step(step)
		st.Status = StatusRunning
		st.Message = ""
		st.StartedAt = &now
		st.FinishedAt = nil
		snap = s.clone()
		return nil
	})
	return snap, now, err
}

func (r *Runner) finish(id string, step StepName, started time.Time, status StepStatus, msg string, apply func(*Session)) error {
	return r.store.Update(id, func(s *Session) error {
		if apply != nil {
			apply(s)
		}
		now := time.Now().UTC()
		st := s.Step(step)
		st.Status = status
		st.Message = msg
		st.StartedAt = &started
		st.FinishedAt = &now
		return nil
	})
}

type report struct {
	SessionID      string                    `json:"sessionId"`
	Source         SourceFile                `json:"source"`
	Approver       string                    `json:"approver"`
	ApprovedAt     time.Time                 `json:"approvedAt"`
	Validation     *jenkins.ValidationResult `json:"validation,omitempty"`
	YAMLValidation *azure.LintResult         `json:"yamlValidation,omitempty"`
	Evaluation     *evaluation.Result        `json:"evaluation,omitempty"`
}

func newReport(s Session, approver string) report {
	return report{
		SessionID:      s.ID,
		Source:         s.File,
		Approver:       approver,
		ApprovedAt:     time.Now().UTC(),
		Validation:     s.Validation,
		YAMLValidation: s.Lint,
		Evaluation:     s.Evaluation,
	}
}
