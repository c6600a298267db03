package httpx

import (
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-ecom-chatbot/internal/analytics"
	"github.com/ariefcatur/go-ecom-chatbot/internal/auth"
)

type eventReq struct {
	EventType string         `json:"event_type"`
	EventData map[string]any `json:"event_data"`
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id"`
}

func (s *Server) analyticsRoutes(r chi.Router) {
	r.With(s.Auth.Optional).Post("/event", s.trackEvent)
	r.Group(func(r chi.Router) {
		r.Use(s.Auth.Required)
		r.Get("/dashboard", s.dashboard)
		r.Get("/reports/sales", s.salesReport)
		r.Get("/reports/chat", s.chatReport)
	})
}

func (s *Server) trackEvent(w http.ResponseWriter, r *http.Request) {
	var req eventReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.EventType == "" {
		writeError(w, http.StatusBadRequest, "Event type is required")
		return
	}
	e := &analytics.Event{
		EventType: req.EventType,
		EventData: req.EventData,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		IPAddress: remoteIP(r),
		UserAgent: r.UserAgent(),
	}
	if uid := auth.UserID(r.Context()); uid != "" {
		e.UserID = uid
	}
	if err := s.Tracker.Track(r.Context(), e); err != nil {
		if errors.Is(err, analytics.ErrMissingType) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.Log.Error("failed to track event", "event_type", e.EventType, "error", err)
		writeError(w, http.StatusServiceUnavailable, "Failed to track event")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"success":  true,
		"message":  "Event tracked successfully",
		"event_id": e.ID,
	})
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) dashboard(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, analytics.SampleDashboard())
}

func (s *Server) salesReport(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, analytics.SampleSales(r.URL.Query().Get("period")))
}

func (s *Server) chatReport(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, analytics.SampleChat())
}
