package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jenkins2ado/internal/conversion"
	"jenkins2ado/internal/core"
	"jenkins2ado/internal/evaluation"
	"jenkins2ado/internal/ledger"
	"jenkins2ado/internal/llm/llmtest"
	"jenkins2ado/internal/security"
	"jenkins2ado/internal/storage"
)

const jenkinsfile = `pipeline {
    agent any
    stages {
        stage('Test') {
            steps {
                git 'https://example.com/repo.git'
                sh 'go test ./...'
            }
        }
    }
}`

const pipelineYAML = "trigger:\n- main\n\npool:\n  vmImage: 'ubuntu-latest'\n\nsteps:\n- script: go test ./...\n"

func newTestServer(t *testing.T, reply func(string) (string, error)) (*Server, *ledger.Ledger) {
	t.Helper()
	keys, err := security.GenerateKeyPair()
	require.NoError(t, err)
	dir := t.TempDir()
	l, err := ledger.Open(filepath.Join(dir, "ledger.jsonl"), keys)
	require.NoError(t, err)

	client := &llmtest.Fake{Reply: reply}
	runner := core.NewRunner(core.NewStore(), core.Options{
		Converter: conversion.NewConverter(client, nil),
		Evaluator: evaluation.NewEvaluator(client, nil),
		Artifacts: storage.NewArtifactStorage(filepath.Join(dir, "artifacts")),
		Ledger:    l,
	})
	return New(runner, l, 4096, nil), l
}

func workingLLM(prompt string) (string, error) {
	if strings.HasPrefix(prompt, "Convert this Jenkins pipeline") {
		return "```yaml\n" + pipelineYAML + "```", nil
	}
	return "QUALITY_SCORE: 8\nCOMPLETENESS: 8\nBEST_PRACTICES: 7\nSUMMARY: solid", nil
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func upload(t *testing.T, h http.Handler) core.Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/sessions?filename=Jenkinsfile", strings.NewReader(jenkinsfile))
	rec := do(t, h, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[core.Session](t, rec)
}

func TestWorkflowOverHTTP(t *testing.T) {
	srv, l := newTestServer(t, workingLLM)
	sess := upload(t, srv)
	assert.True(t, sess.Validation.IsValid)

	rec := do(t, srv, httptest.NewRequest(http.MethodPost, "/sessions/"+sess.ID+"/convert", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	converted := decode[core.Session](t, rec)
	assert.Equal(t, pipelineYAML, converted.ConvertedYAML)
	require.NotNil(t, converted.Evaluation)
	assert.True(t, converted.Evaluation.Passed)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/sessions/"+sess.ID+"/download", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sess.ID+"/approve", nil)
	req.Header.Set(ApproverHeader, "ops")
	rec = do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, pipelineYAML, rec.Body.String())
	assert.Equal(t, `attachment; filename="azure-pipeline.yml"`, rec.Header().Get("Content-Disposition"))
	assert.NotEmpty(t, rec.Header().Get("X-Approval-Hash"))

	rec = do(t, srv, httptest.NewRequest(http.MethodPost, "/sessions/"+sess.ID+"/approve", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/sessions/"+sess.ID+"/download", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pipelineYAML, rec.Body.String())

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/ledger/verify", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	records := l.Records()
	require.Len(t, records, 1)
	assert.Equal(t, map[string]any{"valid": true, "records": float64(1), "lastHash": records[0].Hash}, decode[map[string]any](t, rec))
	assert.Equal(t, "ops", records[0].Approver)
}

func TestMultipartUpload(t *testing.T) {
	srv, _ := newTestServer(t, workingLLM)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "build.groovy")
	require.NoError(t, err)
	_, err = fw.Write([]byte(jenkinsfile))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/sessions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := do(t, srv, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "build.groovy", decode[core.Session](t, rec).File.Name)
}

func TestUploadErrors(t *testing.T) {
	srv, _ := newTestServer(t, workingLLM)

	rec := do(t, srv, httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(jenkinsfile)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, httptest.NewRequest(http.MethodPost, "/sessions?filename=notes.txt", strings.NewReader("x")))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	big := strings.Repeat("a", 5000)
	rec = do(t, srv, httptest.NewRequest(http.MethodPost, "/sessions?filename=Jenkinsfile", strings.NewReader(big)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestSessionNotFound(t *testing.T) {
	srv, _ := newTestServer(t, workingLLM)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/sessions/missing", nil),
		httptest.NewRequest(http.MethodPost, "/sessions/missing/convert", nil),
		httptest.NewRequest(http.MethodDelete, "/sessions/missing", nil),
	} {
		rec := do(t, srv, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, req.URL.Path)
		assert.Contains(t, decode[map[string]string](t, rec)["error"], "not found")
	}
}

func TestConversionErrorIsReported(t *testing.T) {
	srv, _ := newTestServer(t, func(string) (string, error) {
		return "", errors.New("API Error: 401 - Unauthorized")
	})
	sess := upload(t, srv)

	rec := do(t, srv, httptest.NewRequest(http.MethodPost, "/sessions/"+sess.ID+"/convert", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[core.Session](t, rec)
	assert.True(t, strings.HasPrefix(got.ConversionError, "Conversion Error: API Error: 401"))

	rec = do(t, srv, httptest.NewRequest(http.MethodPost, "/sessions/"+sess.ID+"/approve", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListAndDeleteSessions(t *testing.T) {
	srv, _ := newTestServer(t, workingLLM)
	sess := upload(t, srv)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.Session](t, rec), 1)

	rec = do(t, srv, httptest.NewRequest(http.MethodDelete, "/sessions/"+sess.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/sessions/"+sess.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLintEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, workingLLM)

	rec := do(t, srv, httptest.NewRequest(http.MethodPost, "/lint", strings.NewReader("steps:\n- script: echo hi\n")))
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[map[string]any](t, rec)
	assert.Equal(t, true, res["isValid"])
	assert.Equal(t, true, res["autoFixed"])

	rec = do(t, srv, httptest.NewRequest(http.MethodPost, "/lint", strings.NewReader("")))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestValidateEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, workingLLM)

	rec := do(t, srv, httptest.NewRequest(http.MethodPost, "/validate?filename=config.xml", strings.NewReader("<html></html>")))
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[map[string]any](t, rec)
	assert.Equal(t, false, res["isValid"])

	rec = do(t, srv, httptest.NewRequest(http.MethodPost, "/validate?filename=README.md", strings.NewReader("x")))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, workingLLM)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	upload(t, srv)
	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "j2ado_sessions_created_total")
}

func TestRequestIDIsPropagated(t *testing.T) {
	srv, _ := newTestServer(t, workingLLM)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := do(t, srv, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestLedgerDisabled(t *testing.T) {
	runner := core.NewRunner(core.NewStore(), core.Options{})
	srv := New(runner, nil, 0, nil)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/ledger/verify", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
