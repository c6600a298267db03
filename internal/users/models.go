package users

import (
	"strings"
	"time"

	"github.com/ariefcatur/go-ecom-chatbot/internal/wire"
)

type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Preferences  wire.Doc
}

// New returns an active user with a fresh id and timestamps.
func New(email, username, passwordHash string) *User {
	now := wire.Now()
	return &User{
		ID:           wire.NewID(),
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
		Preferences:  wire.Doc{},
	}
}

// NormalizeEmail is the stored form of an email address: trimmed and
// lowercased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type MapOptions struct {
	IncludeSensitive bool
}

func (u *User) ToMap(opts MapOptions) map[string]any {
	var phone any
	if u.Phone != nil {
		phone = *u.Phone
	}
	m := map[string]any{
		"user_id":     u.ID,
		"email":       u.Email,
		"username":    u.Username,
		"first_name":  u.FirstName,
		"last_name":   u.LastName,
		"phone":       phone,
		"is_active":   u.IsActive,
		"created_at":  wire.FormatTime(u.CreatedAt),
		"updated_at":  wire.FormatTime(u.UpdatedAt),
		"preferences": u.Preferences,
	}
	if opts.IncludeSensitive {
		m["password_hash"] = u.PasswordHash
	}
	return m
}

// FromMap is the inverse of ToMap. Missing ids and timestamps are filled
// the same way New fills them.
func FromMap(m map[string]any) (*User, error) {
	f := wire.Read(m)
	u := &User{
		ID:           f.String("user_id"),
		Email:        f.String("email"),
		Username:     f.String("username"),
		PasswordHash: f.String("password_hash"),
		FirstName:    f.String("first_name"),
		LastName:     f.String("last_name"),
		Phone:        f.OptString("phone"),
		IsActive:     f.Bool("is_active", true),
		CreatedAt:    f.Time("created_at"),
		UpdatedAt:    f.Time("updated_at"),
		Preferences:  f.Doc("preferences"),
	}
	if err := f.Err(); err != nil {
		return nil, err
	}
	if u.ID == "" {
		u.ID = wire.NewID()
	}
	now := wire.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}
	return u, nil
}
