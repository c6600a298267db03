package chat

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-ecom-chatbot/internal/logger"
	"github.com/ariefcatur/go-ecom-chatbot/internal/metrics"
	"github.com/ariefcatur/go-ecom-chatbot/internal/postgres"
	"github.com/ariefcatur/go-ecom-chatbot/internal/wire"
)

var ErrSessionClosed = errors.New("chat session is not active")

const (
	DefaultSessionLimit = 10
	DefaultMessageLimit = 100
	DefaultRecent       = 10
	MaxLimit            = 500
)

type Repo struct {
	DB  *postgres.Provider
	Log *logger.Logger
}

func NewRepo(db *postgres.Provider, log *logger.Logger) *Repo {
	if log == nil {
		log = logger.Nop()
	}
	return &Repo{DB: db, Log: log}
}

const sessionColumns = `session_id, user_id, status, created_at, updated_at, metadata`

const messageColumns = `message_id, session_id, sender_type, content, created_at, metadata`

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	if err := row.Scan(&s.ID, &s.UserID, &s.Status, &s.CreatedAt, &s.UpdatedAt, &s.Metadata); err != nil {
		return nil, err
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	if s.Metadata == nil {
		s.Metadata = wire.Doc{}
	}
	return &s, nil
}

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	if err := row.Scan(&m.ID, &m.SessionID, &m.SenderType, &m.Content, &m.CreatedAt, &m.Metadata); err != nil {
		return nil, err
	}
	m.CreatedAt = m.CreatedAt.UTC()
	if m.Metadata == nil {
		m.Metadata = wire.Doc{}
	}
	return &m, nil
}

func clamp(n, def int) int {
	if n <= 0 {
		return def
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

func (r *Repo) SaveSession(ctx context.Context, s *Session) error {
	err := r.DB.WithTx(ctx, func(q postgres.Querier) error {
		return saveSession(ctx, q, s)
	})
	metrics.StoreOp("chat_session", "save", err)
	if err != nil {
		r.Log.Error("failed to save chat session", "session_id", s.ID, "op", "save", "error", err)
		return err
	}
	r.Log.Debug("chat session saved", "session_id", s.ID)
	return nil
}

func saveSession(ctx context.Context, q postgres.Querier, s *Session) error {
	now := wire.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}
	if s.Status == "" {
		s.Status = StatusActive
	}
	if s.Metadata == nil {
		s.Metadata = wire.Doc{}
	}
	err := q.QueryRow(ctx, `
		INSERT INTO chat_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO UPDATE SET
			user_id = EXCLUDED.user_id, status = EXCLUDED.status,
			metadata = EXCLUDED.metadata, updated_at = $7
		RETURNING created_at, updated_at`,
		s.ID, s.UserID, s.Status, s.CreatedAt, s.UpdatedAt, s.Metadata, now,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return postgres.Classify("save chat session", err)
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return nil
}

// FindSession returns nil, nil when no session has that id.
func (r *Repo) FindSession(ctx context.Context, id string) (*Session, error) {
	var s *Session
	err := r.DB.Read(ctx, func(q postgres.Querier) error {
		var err error
		s, err = scanSession(q.QueryRow(ctx, `SELECT `+sessionColumns+` FROM chat_sessions WHERE session_id = $1`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			s = nil
			return nil
		}
		return postgres.Classify("chat session find_by_id", err)
	})
	metrics.StoreOp("chat_session", "find_by_id", err)
	if err != nil {
		r.Log.Error("failed to find chat session", "session_id", id, "op", "find_by_id", "error", err)
		return nil, err
	}
	return s, nil
}

// FindSessionsByUserID lists a user's sessions, most recently active first.
func (r *Repo) FindSessionsByUserID(ctx context.Context, userID string, limit int) ([]*Session, error) {
	limit = clamp(limit, DefaultSessionLimit)
	out := []*Session{}
	err := r.DB.Read(ctx, func(q postgres.Querier) error {
		rows, err := q.Query(ctx, `
			SELECT `+sessionColumns+` FROM chat_sessions
			WHERE user_id = $1
			ORDER BY updated_at DESC, session_id
			LIMIT $2`, userID, limit)
		if err != nil {
			return postgres.Classify("chat session find_by_user_id", err)
		}
		defer rows.Close()
		for rows.Next() {
			s, err := scanSession(rows)
			if err != nil {
				return postgres.Classify("chat session find_by_user_id", err)
			}
			out = append(out, s)
		}
		return postgres.Classify("chat session find_by_user_id", rows.Err())
	})
	metrics.StoreOp("chat_session", "find_by_user_id", err)
	if err != nil {
		r.Log.Error("failed to list chat sessions", "user_id", userID, "op", "find_by_user_id", "error", err)
		return []*Session{}, err
	}
	return out, nil
}

func (r *Repo) End(ctx context.Context, s *Session) error {
	prev := s.Status
	s.Status = StatusEnded
	if err := r.SaveSession(ctx, s); err != nil {
		s.Status = prev
		return err
	}
	return nil
}

// Append inserts m. There is no update path; storing the same id twice is a
// conflict fault.
func (r *Repo) Append(ctx context.Context, m *Message) error {
	err := r.DB.WithTx(ctx, func(q postgres.Querier) error {
		return insertMessage(ctx, q, m)
	})
	metrics.StoreOp("chat_message", "append", err)
	if err != nil {
		r.Log.Error("failed to store chat message", "message_id", m.ID, "session_id", m.SessionID, "op", "append", "error", err)
		return err
	}
	return nil
}

func insertMessage(ctx context.Context, q postgres.Querier, m *Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = wire.Now()
	}
	if m.Metadata == nil {
		m.Metadata = wire.Doc{}
	}
	if _, err := q.Exec(ctx, `
		INSERT INTO chat_messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.SessionID, m.SenderType, m.Content, m.CreatedAt, m.Metadata); err != nil {
		return postgres.Classify("append chat message", err)
	}
	return nil
}

// FindBySessionID returns up to limit messages, oldest first.
func (r *Repo) FindBySessionID(ctx context.Context, sessionID string, limit int) ([]*Message, error) {
	return r.messages(ctx, "find_by_session_id", `
		SELECT `+messageColumns+` FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at, message_id
		LIMIT $2`, sessionID, clamp(limit, DefaultMessageLimit), false)
}

// Recent returns the newest count messages in chronological order.
func (r *Repo) Recent(ctx context.Context, sessionID string, count int) ([]*Message, error) {
	return r.messages(ctx, "recent", `
		SELECT `+messageColumns+` FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at DESC, message_id DESC
		LIMIT $2`, sessionID, clamp(count, DefaultRecent), true)
}

func (r *Repo) messages(ctx context.Context, op, sql, sessionID string, limit int, reverse bool) ([]*Message, error) {
	out := []*Message{}
	err := r.DB.Read(ctx, func(q postgres.Querier) error {
		rows, err := q.Query(ctx, sql, sessionID, limit)
		if err != nil {
			return postgres.Classify("chat message "+op, err)
		}
		defer rows.Close()
		for rows.Next() {
			m, err := scanMessage(rows)
			if err != nil {
				return postgres.Classify("chat message "+op, err)
			}
			out = append(out, m)
		}
		return postgres.Classify("chat message "+op, rows.Err())
	})
	metrics.StoreOp("chat_message", op, err)
	if err != nil {
		r.Log.Error("failed to list chat messages", "session_id", sessionID, "op", op, "error", err)
		return []*Message{}, err
	}
	if reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

// Converse stores a user message and the assistant's reply together and
// bumps the session's updated_at. Inactive sessions get ErrSessionClosed.
func (r *Repo) Converse(ctx context.Context, s *Session, text string, a Assistant) (*Message, *Message, error) {
	if !s.Active() {
		return nil, nil, ErrSessionClosed
	}
	history, err := r.Recent(ctx, s.ID, DefaultRecent)
	if err != nil {
		return nil, nil, err
	}
	content, suggestions, err := a.Reply(ctx, history, text)
	if err != nil {
		r.Log.Error("assistant failed", "session_id", s.ID, "error", err)
		return nil, nil, err
	}

	in := NewMessage(s.ID, SenderUser, text)
	out := NewMessage(s.ID, SenderBot, content)
	out.Metadata["suggestions"] = suggestions
	if !out.CreatedAt.After(in.CreatedAt) {
		out.CreatedAt = in.CreatedAt.Add(time.Microsecond)
	}

	err = r.DB.WithTx(ctx, func(q postgres.Querier) error {
		var status Status
		err := q.QueryRow(ctx, `SELECT status FROM chat_sessions WHERE session_id = $1 FOR UPDATE`, s.ID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) || (err == nil && status != StatusActive) {
			return ErrSessionClosed
		}
		if err != nil {
			return postgres.Classify("converse", err)
		}
		if err := insertMessage(ctx, q, in); err != nil {
			return err
		}
		if err := insertMessage(ctx, q, out); err != nil {
			return err
		}
		return postgres.Classify("converse", q.QueryRow(ctx,
			`UPDATE chat_sessions SET updated_at = $2 WHERE session_id = $1 RETURNING updated_at`,
			s.ID, out.CreatedAt).Scan(&s.UpdatedAt))
	})
	metrics.StoreOp("chat_message", "converse", err)
	if err != nil {
		r.Log.Warn("conversation turn not stored", "session_id", s.ID, "op", "converse", "error", err)
		return nil, nil, err
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	r.Log.Info("processed message", "session_id", s.ID, "message_id", in.ID)
	return in, out, nil
}
