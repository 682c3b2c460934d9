package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jenkins2ado/internal/conversion"
	"jenkins2ado/internal/evaluation"
	"jenkins2ado/internal/ledger"
	"jenkins2ado/internal/llm/llmtest"
	"jenkins2ado/internal/security"
	"jenkins2ado/internal/storage"
)

const jenkinsfile = `pipeline {
    agent any
    stages {
        stage('Build') {
            steps {
                checkout scm
                sh 'mvn -B verify'
            }
        }
    }
}`

const convertedYAML = "trigger:\n- main\n\npool:\n  vmImage: 'ubuntu-latest'\n\nsteps:\n- task: Maven@4\n"

const passingReview = "QUALITY_SCORE: 9\nCOMPLETENESS: 8\nBEST_PRACTICES: 8\nISSUES: none\nSUMMARY: good"

// fakeLLM answers conversion prompts with yaml and evaluation prompts with review.
func fakeLLM(yaml, review string) *llmtest.Fake {
	return &llmtest.Fake{Reply: func(prompt string) (string, error) {
		if strings.HasPrefix(prompt, "Convert this Jenkins pipeline") {
			return yaml, nil
		}
		return review, nil
	}}
}

type fixture struct {
	runner    *Runner
	ledger    *ledger.Ledger
	artifacts *storage.ArtifactStorage
}

func newFixture(t *testing.T, client *llmtest.Fake, sched *Scheduler) *fixture {
	t.Helper()
	keys, err := security.GenerateKeyPair()
	require.NoError(t, err)
	dir := t.TempDir()
	l, err := ledger.Open(filepath.Join(dir, "ledger.jsonl"), keys)
	require.NoError(t, err)
	arts := storage.NewArtifactStorage(filepath.Join(dir, "artifacts"))

	r := NewRunner(NewStore(), Options{
		Converter: conversion.NewConverter(client, nil),
		Evaluator: evaluation.NewEvaluator(client, nil),
		Artifacts: arts,
		Ledger:    l,
		Scheduler: sched,
	})
	return &fixture{runner: r, ledger: l, artifacts: arts}
}

func statuses(s Session) map[StepName]StepStatus {
	out := map[StepName]StepStatus{}
	for _, st := range s.Steps {
		out[st.Name] = st.Status
	}
	return out
}

func TestUploadValidates(t *testing.T) {
	f := newFixture(t, fakeLLM(convertedYAML, passingReview), nil)

	s, err := f.runner.Upload(context.Background(), "Jenkinsfile", []byte(jenkinsfile))
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, len(jenkinsfile), s.File.Size)
	require.NotNil(t, s.Validation)
	assert.True(t, s.Validation.IsValid)
	assert.Equal(t, StatusDone, statuses(s)[StepValidation])
	assert.Equal(t, StatusPending, statuses(s)[StepConversion])
	assert.Equal(t, "Jenkins Validation Agent", s.Steps[0].Label)
}

func TestUploadRejectsUnsupportedFile(t *testing.T) {
	f := newFixture(t, fakeLLM(convertedYAML, passingReview), nil)

	_, err := f.runner.Upload(context.Background(), "pipeline.yml", []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestFullWorkflow(t *testing.T) {
	client := fakeLLM(convertedYAML, passingReview)
	f := newFixture(t, client, nil)
	ctx := context.Background()

	s, err := f.runner.Upload(ctx, "Jenkinsfile", []byte(jenkinsfile))
	require.NoError(t, err)

	s, err = f.runner.Convert(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, convertedYAML, s.ConvertedYAML)
	require.NotNil(t, s.Lint)
	assert.True(t, s.Lint.IsValid)
	require.NotNil(t, s.Evaluation)
	assert.Equal(t, 8, s.Evaluation.OverallScore)
	assert.True(t, s.Evaluation.Passed)
	assert.Equal(t, StatusDone, statuses(s)[StepYAMLValidation])
	assert.Equal(t, StatusDone, statuses(s)[StepEvaluation])
	assert.Len(t, client.Prompts(), 2)

	s, err = f.runner.Approve(ctx, s.ID, "release-team")
	require.NoError(t, err)
	require.NotNil(t, s.Approval)
	assert.Equal(t, convertedYAML, s.ApprovedYAML)
	assert.Equal(t, "release-team", s.Approval.Approver)
	assert.Equal(t, StatusDone, statuses(s)[StepApproval])

	data, err := os.ReadFile(s.Approval.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, convertedYAML, string(data))
	_, err = f.artifacts.Load(s.ID, ReportFileName)
	assert.NoError(t, err)

	assert.Len(t, f.ledger.Records(), 1)
	assert.NoError(t, f.ledger.Verify())

	yaml, err := f.runner.Download(s.ID)
	require.NoError(t, err)
	assert.Equal(t, convertedYAML, yaml)

	_, err = f.runner.Approve(ctx, s.ID, "again")
	assert.ErrorIs(t, err, ErrApproved)
	_, err = f.runner.Convert(ctx, s.ID)
	assert.ErrorIs(t, err, ErrApproved)
}

func TestApproveUsesAutoFixedYAML(t *testing.T) {
	f := newFixture(t, fakeLLM("steps:\n- script: echo hi\n", passingReview), nil)
	ctx := context.Background()

	s, err := f.runner.Upload(ctx, "Jenkinsfile", []byte(jenkinsfile))
	require.NoError(t, err)
	s, err = f.runner.Convert(ctx, s.ID)
	require.NoError(t, err)
	require.True(t, s.Lint.AutoFixed)

	s, err = f.runner.Approve(ctx, s.ID, "")
	require.NoError(t, err)
	assert.Equal(t, s.Lint.FixedYAML, s.ApprovedYAML)
	assert.True(t, strings.HasPrefix(s.ApprovedYAML, "trigger:\n- main\n"))
	assert.Equal(t, DefaultApprover, s.Approval.Approver)
}

func TestConvertRefusedForInvalidFile(t *testing.T) {
	client := fakeLLM(convertedYAML, passingReview)
	f := newFixture(t, client, nil)
	ctx := context.Background()

	s, err := f.runner.Upload(ctx, "Jenkinsfile", []byte("node { sh 'make' }"))
	require.NoError(t, err)
	assert.False(t, s.Validation.IsValid)
	assert.Equal(t, StatusFailed, statuses(s)[StepValidation])

	_, err = f.runner.Convert(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Empty(t, client.Prompts())
}

func TestConversionFailureIsRecorded(t *testing.T) {
	f := newFixture(t, llmtest.Failing(errors.New("API Error: 500 - Internal Server Error")), nil)
	ctx := context.Background()

	s, err := f.runner.Upload(ctx, "Jenkinsfile", []byte(jenkinsfile))
	require.NoError(t, err)

	s, err = f.runner.Convert(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, s.ConvertedYAML)
	assert.Equal(t, "Conversion Error: API Error: 500 - Internal Server Error\n\nPlease verify your API configuration and network connection.", s.ConversionError)
	assert.Equal(t, StatusFailed, statuses(s)[StepConversion])
	assert.Equal(t, StatusSkipped, statuses(s)[StepYAMLValidation])
	assert.Equal(t, StatusSkipped, statuses(s)[StepEvaluation])
	assert.Nil(t, s.Evaluation)

	_, err = f.runner.Approve(ctx, s.ID, "x")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestRequirePassingEvaluation(t *testing.T) {
	failing := "QUALITY_SCORE: 3\nCOMPLETENESS: 4\nBEST_PRACTICES: 2\nSUMMARY: poor"
	f := newFixture(t, fakeLLM(convertedYAML, failing), NewScheduler(true))
	ctx := context.Background()

	s, err := f.runner.Upload(ctx, "Jenkinsfile", []byte(jenkinsfile))
	require.NoError(t, err)
	s, err = f.runner.Convert(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, s.Evaluation.Passed)
	assert.Equal(t, StatusFailed, statuses(s)[StepEvaluation])
	assert.Equal(t, "Score: 3/10, Needs Review", s.Step(StepEvaluation).Message)

	_, err = f.runner.Approve(ctx, s.ID, "x")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestReconvertResetsDownstream(t *testing.T) {
	calls := 0
	client := &llmtest.Fake{Reply: func(prompt string) (string, error) {
		if strings.HasPrefix(prompt, "Convert this Jenkins pipeline") {
			calls++
			if calls == 1 {
				return "", errors.New("timeout")
			}
			return convertedYAML, nil
		}
		return passingReview, nil
	}}
	f := newFixture(t, client, nil)
	ctx := context.Background()

	s, err := f.runner.Upload(ctx, "Jenkinsfile", []byte(jenkinsfile))
	require.NoError(t, err)
	s, err = f.runner.Convert(ctx, s.ID)
	require.NoError(t, err)
	require.NotEmpty(t, s.ConversionError)

	s, err = f.runner.Convert(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, s.ConversionError)
	assert.Equal(t, convertedYAML, s.ConvertedYAML)
	assert.Equal(t, StatusDone, statuses(s)[StepEvaluation])
}

func TestEvaluationDisabled(t *testing.T) {
	client := fakeLLM(convertedYAML, passingReview)
	r := NewRunner(NewStore(), Options{Converter: conversion.NewConverter(client, nil)})
	ctx := context.Background()

	s, err := r.Upload(ctx, "Jenkinsfile", []byte(jenkinsfile))
	require.NoError(t, err)
	s, err = r.Convert(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, statuses(s)[StepEvaluation])

	s, err = r.Approve(ctx, s.ID, "cli")
	require.NoError(t, err)
	assert.Empty(t, s.Approval.Signature)
	assert.Equal(t, convertedYAML, s.ApprovedYAML)
}

func TestDownloadBeforeApproval(t *testing.T) {
	f := newFixture(t, fakeLLM(convertedYAML, passingReview), nil)

	s, err := f.runner.Upload(context.Background(), "Jenkinsfile", []byte(jenkinsfile))
	require.NoError(t, err)

	_, err = f.runner.Download(s.ID)
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = f.runner.Download("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
