// Package server exposes the conversion workflow over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"jenkins2ado/internal/azure"
	"jenkins2ado/internal/core"
	"jenkins2ado/internal/jenkins"
	"jenkins2ado/internal/ledger"
)

// ApproverHeader names the person approving a pipeline.
const ApproverHeader = "X-Approver"

// DefaultMaxUpload caps request bodies when no limit is configured.
const DefaultMaxUpload = 1 << 20

// Ledger is the read side of the approval ledger.
type Ledger interface {
	Verify() error
	Records() []ledger.Record
	LastHash() string
}

// Server holds the HTTP handlers. Ledger may be nil.
type Server struct {
	runner    *core.Runner
	ledger    Ledger
	logger    *zap.Logger
	maxUpload int64
	router    chi.Router
}

func New(runner *core.Runner, l Ledger, maxUpload int64, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	s := &Server{runner: runner, ledger: l, logger: logger, maxUpload: maxUpload}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog(s.logger))
	r.Use(Recover(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleUpload)
		r.Get("/", s.handleListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/convert", s.handleConvert)
			r.Post("/approve", s.handleApprove)
			r.Get("/download", s.handleDownload)
		})
	})

	r.Post("/lint", s.handleLint)
	r.Post("/validate", s.handleValidate)

	r.Get("/ledger", s.handleLedger)
	r.Get("/ledger/verify", s.handleVerifyLedger)
	return r
}

//=============================== sessions ===============================//

// POST /sessions -> multipart "file" field, or a raw body named by ?filename=
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	name, data, err := readUpload(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	sess, err := s.runner.Upload(r.Context(), name, data)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func readUpload(r *http.Request) (string, []byte, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "multipart/form-data" {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			return "", nil, badRequest(fmt.Errorf("missing form file: %w", err))
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		return hdr.Filename, data, err
	}

	name := r.URL.Query().Get("filename")
	if name == "" {
		return "", nil, badRequest(errors.New("filename query parameter is required"))
	}
	data, err := io.ReadAll(r.Body)
	return name, data, err
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Store().List())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.runner.Store().Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.runner.Store().Delete(chi.URLParam(r, "id")); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /sessions/{id}/convert -> conversion, YAML validation and evaluation
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	sess, err := s.runner.Convert(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// POST /sessions/{id}/approve -> records the approval and returns the YAML
func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	sess, err := s.runner.Approve(r.Context(), chi.URLParam(r, "id"), r.Header.Get(ApproverHeader))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.Header().Set("X-Approval-Hash", sess.Approval.Hash)
	writeYAML(w, sess.ApprovedYAML)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	yaml, err := s.runner.Download(chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeYAML(w, yaml)
}

//=============================== stateless checks ===============================//

// POST /lint -> Azure YAML checks on the raw body
func (s *Server) handleLint(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	res := azure.Lint(string(data))
	if res == nil {
		writeError(w, http.StatusUnprocessableEntity, "no YAML to validate")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /validate?filename= -> Jenkins file checks on the raw body
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("filename")
	if !jenkins.Supported(name) {
		s.writeErr(w, r, core.ErrUnsupportedFile)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jenkins.Validate(name, string(data)))
}

//=============================== ledger ===============================//

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusNotFound, "ledger disabled")
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.Records())
}

// GET /ledger/verify -> re-check hashes, links and signatures
func (s *Server) handleVerifyLedger(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusNotFound, "ledger disabled")
		return
	}
	n := len(s.ledger.Records())
	if err := s.ledger.Verify(); err != nil {
		s.logger.Warn("ledger verification failed", zap.Error(err))
		writeJSON(w, http.StatusConflict, map[string]any{"valid": false, "records": n, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "records": n, "lastHash": s.ledger.LastHash()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

//=============================== responses ===============================//

type requestError struct{ err error }

func (e requestError) Error() string { return e.err.Error() }
func (e requestError) Unwrap() error { return e.err }

func badRequest(err error) error { return requestError{err} }

// statusFor maps workflow errors onto HTTP status codes.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	var bad requestError
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrBusy), errors.Is(err, core.ErrApproved):
		return http.StatusConflict
	case errors.Is(err, core.ErrNotReady):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrUnsupportedFile):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &bad):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeYAML(w http.ResponseWriter, yaml string) {
	w.Header().Set("Content-Type", "text/yaml; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", core.PipelineFileName))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, yaml)
}
