package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"datawatch/services/watch-service/internal/ledger"
	"datawatch/services/watch-service/internal/presentation"
	"datawatch/services/watch-service/internal/refresh"
)

type Sessions interface {
	Create(active bool) refresh.SessionInfo
	Toggle(id string) (refresh.SessionInfo, error)
	Get(id string) (refresh.SessionInfo, error)
	Events(id string, since uint64) ([]presentation.Event, error)
	Delete(id string) error
	List() []refresh.SessionInfo
}

type AlertLister interface {
	List(ctx context.Context) ([]ledger.AlertRecord, error)
}

type Handler struct {
	Sessions Sessions
	Alerts   AlertLister
	Timeout  time.Duration
}

type createSessionRequest struct {
	Active bool `json:"active"`
}

type eventsResponse struct {
	Session string               `json:"session"`
	Events  []presentation.Event `json:"events"`
}

func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.handleListSessions)
		r.Post("/", h.handleCreateSession)
		r.Get("/{sessionId}", h.handleGetSession)
		r.Post("/{sessionId}/toggle", h.handleToggleSession)
		r.Get("/{sessionId}/events", h.handleSessionEvents)
		r.Delete("/{sessionId}", h.handleDeleteSession)
	})
	r.Get("/alerts", h.handleListAlerts)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Sessions.List())
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusCreated, h.Sessions.Create(req.Active))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.Sessions.Get(chi.URLParam(r, "sessionId"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) handleToggleSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.Sessions.Toggle(chi.URLParam(r, "sessionId"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	var since uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be a non-negative integer")
			return
		}
		since = parsed
	}
	events, err := h.Sessions.Events(id, since)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{Session: id, Events: events})
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Delete(chi.URLParam(r, "sessionId")); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	if h.Alerts == nil {
		writeJSON(w, http.StatusOK, []ledger.AlertRecord{})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
	defer cancel()
	alerts, err := h.Alerts.List(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (h *Handler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return 5 * time.Second
	}
	return h.Timeout
}
