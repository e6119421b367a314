// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/motionplay/internal/adapters/http/idempotency"
	service "github.com/okian/motionplay/internal/app"
	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/internal/domain/motion"
	"github.com/okian/motionplay/internal/engine/camera"
	"github.com/okian/motionplay/internal/engine/session"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SessionDependencies
	RecordingDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	sessionsHandler   *SessionsHandler
	recordingsHandler *RecordingsHandler
	keys              idempotency.Keys
	uploads           UploadLimits
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithIdempotencyKeys replaces the in-memory request key set used for
// Idempotency-Key headers on creating routes.
func WithIdempotencyKeys(k idempotency.Keys) ServerOption {
	return func(s *Server) {
		if k != nil {
			s.keys = k
		}
	}
}

// WithUploadLimits bounds recorded-clip uploads. Zero fields keep the defaults.
func WithUploadLimits(l UploadLimits) ServerOption {
	return func(s *Server) { s.uploads = l }
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		sessionsHandler: NewSessionsHandler(deps),
		keys:            idempotency.NewMemory(),
		uploads:         DefaultUploadLimits(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.recordingsHandler = NewRecordingsHandler(deps, s.uploads)
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r *mux.Router) {
	r.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	r.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)

	r.HandleFunc("/sessions", MetricsMiddleware(idempotency.Middleware(s.keys, s.sessionsHandler.HandleCreate), "sessions_create")).Methods(http.MethodPost)
	r.HandleFunc("/sessions", MetricsMiddleware(s.sessionsHandler.HandleList, "sessions_list")).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleGet, "sessions_get")).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleClose, "sessions_close")).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/initialize", MetricsMiddleware(s.sessionsHandler.HandleInitialize, "sessions_initialize")).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/start", MetricsMiddleware(s.sessionsHandler.HandleStart, "sessions_start")).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/cancel", MetricsMiddleware(s.sessionsHandler.HandleCancel, "sessions_cancel")).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/tap", MetricsMiddleware(s.sessionsHandler.HandleTap, "sessions_tap")).Methods(http.MethodPost)

	r.HandleFunc("/recordings/grade", MetricsMiddleware(idempotency.Middleware(s.keys, s.recordingsHandler.HandleGrade), "recordings_grade")).Methods(http.MethodPost)
}

// View mirrors the session shape returned by session endpoints.
type View = service.View

// Graded mirrors the shape returned by the grading endpoint.
type Graded = service.Graded

type tapRequest = model.Point

type tapResponse struct {
	Hit bool `json:"hit"`
}

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retriable bool   `json:"retriable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates upstream errors to a status and error code.
// Camera acquisition failures are the only retriable kind.
func writeServiceError(w http.ResponseWriter, err error) {
	resp := errorResponse{Message: err.Error()}
	var status int
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		status, resp.Code = http.StatusNotFound, "not_found"
	case errors.Is(err, camera.ErrAcquisition):
		status, resp.Code, resp.Retriable = http.StatusServiceUnavailable, "camera_unavailable", true
	case errors.Is(err, service.ErrNotStarted):
		status, resp.Code = http.StatusServiceUnavailable, "not_started"
	case errors.Is(err, service.ErrTooManySessions):
		status, resp.Code = http.StatusTooManyRequests, "too_many_sessions"
	case errors.Is(err, session.ErrInvalidState), errors.Is(err, session.ErrClosed):
		status, resp.Code = http.StatusConflict, "invalid_state"
	case errors.Is(err, session.ErrInvalidChallenge),
		errors.Is(err, session.ErrUnknownKind),
		errors.Is(err, session.ErrNotInteractive),
		errors.Is(err, ErrBadRequest):
		status, resp.Code = http.StatusBadRequest, "bad_request"
	case errors.Is(err, motion.ErrClipTooShort), errors.Is(err, motion.ErrNilFrame):
		status, resp.Code = http.StatusUnprocessableEntity, "bad_clip"
	default:
		status, resp.Code = http.StatusInternalServerError, "internal"
	}
	writeJSON(w, status, resp)
}
