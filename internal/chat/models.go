package chat

import (
	"time"

	"github.com/ariefcatur/go-ecom-chatbot/internal/wire"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusEnded    Status = "ended"
	StatusArchived Status = "archived"
)

type Sender string

const (
	SenderUser   Sender = "user"
	SenderBot    Sender = "bot"
	SenderSystem Sender = "system"
)

// Session groups the messages of one conversation. UserID is nil for
// anonymous visitors.
type Session struct {
	ID        string
	UserID    *string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
	Metadata  wire.Doc
}

// Message is immutable once stored.
type Message struct {
	ID         string
	SessionID  string
	SenderType Sender
	Content    string
	CreatedAt  time.Time
	Metadata   wire.Doc
}

func NewSession(userID *string) *Session {
	now := wire.Now()
	return &Session{
		ID:        wire.NewID(),
		UserID:    userID,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  wire.Doc{},
	}
}

func NewMessage(sessionID string, sender Sender, content string) *Message {
	return &Message{
		ID:         wire.NewID(),
		SessionID:  sessionID,
		SenderType: sender,
		Content:    content,
		CreatedAt:  wire.Now(),
		Metadata:   wire.Doc{},
	}
}

func (s *Session) Active() bool { return s.Status == StatusActive }

func (s *Session) ToMap() map[string]any {
	var uid any
	if s.UserID != nil {
		uid = *s.UserID
	}
	return map[string]any{
		"session_id": s.ID,
		"user_id":    uid,
		"status":     string(s.Status),
		"created_at": wire.FormatTime(s.CreatedAt),
		"updated_at": wire.FormatTime(s.UpdatedAt),
		"metadata":   s.Metadata,
	}
}

func SessionFromMap(m map[string]any) (*Session, error) {
	f := wire.Read(m)
	s := &Session{
		ID:        f.String("session_id"),
		UserID:    f.OptString("user_id"),
		Status:    Status(f.String("status")),
		CreatedAt: f.Time("created_at"),
		UpdatedAt: f.Time("updated_at"),
		Metadata:  f.Doc("metadata"),
	}
	if err := f.Err(); err != nil {
		return nil, err
	}
	if s.ID == "" {
		s.ID = wire.NewID()
	}
	if s.Status == "" {
		s.Status = StatusActive
	}
	now := wire.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}
	return s, nil
}

func (m *Message) ToMap() map[string]any {
	return map[string]any{
		"message_id":  m.ID,
		"session_id":  m.SessionID,
		"sender_type": string(m.SenderType),
		"content":     m.Content,
		"created_at":  wire.FormatTime(m.CreatedAt),
		"metadata":    m.Metadata,
	}
}

func MessageFromMap(d map[string]any) (*Message, error) {
	f := wire.Read(d)
	m := &Message{
		ID:         f.String("message_id"),
		SessionID:  f.String("session_id"),
		SenderType: Sender(f.String("sender_type")),
		Content:    f.String("content"),
		CreatedAt:  f.Time("created_at"),
		Metadata:   f.Doc("metadata"),
	}
	if err := f.Err(); err != nil {
		return nil, err
	}
	if m.ID == "" {
		m.ID = wire.NewID()
	}
	if m.SenderType == "" {
		m.SenderType = SenderUser
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = wire.Now()
	}
	return m, nil
}
