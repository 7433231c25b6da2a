package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Wyydra/yacall/internal/adapter/driven/telephony"
	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/Wyydra/yacall/internal/core/service"
	"github.com/Wyydra/yacall/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Calls is the part of the call manager the control API drives.
type Calls interface {
	StartCall(ctx context.Context, peer domain.UserID, kind domain.MediaKind) (domain.CallID, error)
	Answer(ctx context.Context) error
	Reject(ctx context.Context) error
	End(ctx context.Context) error
	SetMuted(ctx context.Context, muted bool) error
	SetVideoEnabled(ctx context.Context, on bool) error
	SetHeld(ctx context.Context, held bool) error
	SetSpeaker(ctx context.Context, on bool) error
	SwitchCamera(ctx context.Context) error
	Current(ctx context.Context) (domain.CallView, error)
	Stats(ctx context.Context) (domain.MediaStats, error)
}

type Handler struct {
	Calls     Calls
	Hub       *Hub
	Telephony *telephony.Bridge
	Metrics   *metrics.Metrics
	Connected func() bool
}

func NewHandler(calls Calls, hub *Hub, bridge *telephony.Bridge, m *metrics.Metrics, connected func() bool) *Handler {
	return &Handler{
		Calls:     calls,
		Hub:       hub,
		Telephony: bridge,
		Metrics:   m,
		Connected: connected,
	}
}

func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Handle("/metrics", h.Metrics.Handler())

	r.Get("/ws/ui", h.ServeUI)
	r.Get("/ws/telephony", h.ServeTelephony)

	r.Route("/call", func(r chi.Router) {
		r.Get("/", h.current)
		r.Get("/stats", h.stats)
		r.Post("/start", h.start)
		r.Post("/answer", h.command(h.Calls.Answer))
		r.Post("/reject", h.command(h.Calls.Reject))
		r.Post("/end", h.command(h.Calls.End))
		r.Post("/switch-camera", h.command(h.Calls.SwitchCamera))
		r.Post("/mute", h.toggle("muted", h.Calls.SetMuted))
		r.Post("/video", h.toggle("enabled", h.Calls.SetVideoEnabled))
		r.Post("/hold", h.toggle("held", h.Calls.SetHeld))
		r.Post("/speaker", h.toggle("on", h.Calls.SetSpeaker))
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("HTTP request")
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	connected := h.Connected != nil && h.Connected()
	status := http.StatusOK
	if !connected {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]bool{"signaling": connected})
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	view, err := h.Calls.Current(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Calls.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type startRequest struct {
	PeerID string `json:"peerId"`
	Kind   string `json:"kind"`
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	id, err := h.Calls.StartCall(r.Context(), domain.UserID(req.PeerID), domain.MediaKind(req.Kind))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"callId": id.String()})
}

func (h *Handler) command(fn func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// toggle decodes {"<field>": bool} and applies it.
func (h *Handler) toggle(field string, fn func(context.Context, bool) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]bool
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
			return
		}
		v, ok := body[field]
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: field + " is required"})
			return
		}
		if err := fn(r.Context(), v); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidPeer), errors.Is(err, domain.ErrUnknownMediaKind):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoActiveCall):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCallInProgress), errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTransportDisconnected), errors.Is(err, service.ErrStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Call command failed")
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}
