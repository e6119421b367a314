package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/okian/motionplay/internal/domain/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// SessionDependencies defines the session operations the handlers need.
type SessionDependencies interface {
	CreateSession(ctx context.Context, ch model.Challenge) (View, error)
	InitializeSession(ctx context.Context, id string) (View, error)
	StartSession(ctx context.Context, id string) (View, error)
	CancelSession(ctx context.Context, id string) (View, error)
	CloseSession(ctx context.Context, id string) error
	Tap(ctx context.Context, id string, p model.Point) (bool, error)
	Session(ctx context.Context, id string) (View, error)
	Sessions(ctx context.Context, limit int) ([]model.SessionRecord, error)
}

// SessionsHandler handles session requests.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// HandleCreate handles POST /sessions.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var ch model.Challenge
	if err := json.NewDecoder(r.Body).Decode(&ch); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if ch.Kind == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing exercise_kind", ErrBadRequest))
		return
	}
	v, err := h.deps.CreateSession(r.Context(), ch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+v.ID)
	writeJSON(w, http.StatusCreated, v)
}

// HandleList handles GET /sessions?limit=N.
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid limit", ErrBadRequest))
			return
		}
		limit = min(n, maxListLimit)
	}
	recs, err := h.deps.Sessions(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// HandleGet handles GET /sessions/{id}.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	v, err := h.deps.Session(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleClose handles DELETE /sessions/{id}.
func (h *SessionsHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.CloseSession(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleInitialize handles POST /sessions/{id}/initialize.
func (h *SessionsHandler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.deps.InitializeSession)
}

// HandleStart handles POST /sessions/{id}/start.
func (h *SessionsHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.deps.StartSession)
}

// HandleCancel handles POST /sessions/{id}/cancel.
func (h *SessionsHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.deps.CancelSession)
}

func (h *SessionsHandler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (View, error)) {
	v, err := op(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleTap handles POST /sessions/{id}/tap. Coordinates are in render space.
func (h *SessionsHandler) HandleTap(w http.ResponseWriter, r *http.Request) {
	var req tapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	hit, err := h.deps.Tap(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tapResponse{Hit: hit})
}
