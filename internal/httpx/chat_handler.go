package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-ecom-chatbot/internal/auth"
	"github.com/ariefcatur/go-ecom-chatbot/internal/chat"
	"github.com/ariefcatur/go-ecom-chatbot/internal/wire"
)

const maxMessageLen = 4000

type sessionReq struct {
	Metadata wire.Doc `json:"metadata"`
}

type messageReq struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (s *Server) chatRoutes(r chi.Router) {
	r.Use(s.Auth.Optional)
	r.Post("/session", s.createSession)
	r.Post("/message", s.sendMessage)
	r.Get("/history/{session_id}", s.history)
}

func (s *Server) newSession(r *http.Request, meta wire.Doc) (*chat.Session, error) {
	var uid *string
	if id := auth.UserID(r.Context()); id != "" {
		uid = &id
	}
	sess := chat.NewSession(uid)
	if meta != nil {
		sess.Metadata = meta
	}
	if err := s.Chat.SaveSession(r.Context(), sess); err != nil {
		return nil, err
	}
	s.Log.Info("created chat session", "session_id", sess.ID)
	return sess, nil
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req sessionReq
	if err := decode(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := s.newSession(r, req.Metadata)
	if err != nil {
		s.writeFault(w, r, "create chat session", err)
		return
	}
	writeData(w, http.StatusCreated, sess.ToMap())
}

// visibleSession hides sessions owned by another user behind 404.
// Anonymous sessions are reachable by anyone holding the id.
func (s *Server) visibleSession(w http.ResponseWriter, r *http.Request, id string) *chat.Session {
	sess, err := s.Chat.FindSession(r.Context(), id)
	if err != nil {
		s.writeFault(w, r, "find chat session", err)
		return nil
	}
	if sess == nil || (sess.UserID != nil && *sess.UserID != auth.UserID(r.Context())) {
		writeError(w, http.StatusNotFound, "Chat session not found")
		return nil
	}
	return sess
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	text := strings.TrimSpace(req.Message)
	if text == "" {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}
	if len(text) > maxMessageLen {
		writeError(w, http.StatusBadRequest, "Message is too long")
		return
	}

	var sess *chat.Session
	if req.SessionID == "" {
		var err error
		if sess, err = s.newSession(r, nil); err != nil {
			s.writeFault(w, r, "create chat session", err)
			return
		}
	} else if sess = s.visibleSession(w, r, req.SessionID); sess == nil {
		return
	}

	in, out, err := s.Chat.Converse(r.Context(), sess, text, s.Assistant)
	if errors.Is(err, chat.ErrSessionClosed) {
		writeError(w, http.StatusConflict, "Chat session has ended")
		return
	}
	if err != nil {
		s.writeFault(w, r, "send message", err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"session_id":   sess.ID,
		"message_id":   out.ID,
		"content":      out.Content,
		"type":         string(out.SenderType),
		"timestamp":    wire.FormatTime(out.CreatedAt),
		"suggestions":  out.Metadata["suggestions"],
		"user_message": in.ToMap(),
	})
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", chat.DefaultMessageLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess := s.visibleSession(w, r, chi.URLParam(r, "session_id"))
	if sess == nil {
		return
	}
	msgs, err := s.Chat.FindBySessionID(r.Context(), sess.ID, limit)
	if err != nil {
		s.writeFault(w, r, "chat history", err)
		return
	}
	out := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ToMap())
	}
	writeData(w, http.StatusOK, map[string]any{"session_id": sess.ID, "messages": out})
}
