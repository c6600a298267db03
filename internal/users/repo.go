package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-ecom-chatbot/internal/logger"
	"github.com/ariefcatur/go-ecom-chatbot/internal/metrics"
	"github.com/ariefcatur/go-ecom-chatbot/internal/postgres"
	"github.com/ariefcatur/go-ecom-chatbot/internal/wire"
)

var ErrDuplicate = errors.New("user with this email or username already exists")

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

const columns = `user_id, email, username, password_hash, first_name, last_name,
	phone, is_active, created_at, updated_at, preferences`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Phone, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.Preferences); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	if u.Preferences == nil {
		u.Preferences = wire.Doc{}
	}
	return &u, nil
}

// Save inserts u or, when the id exists, updates every mutable column and
// refreshes updated_at. created_at is never overwritten.
func (r *Repo) Save(ctx context.Context, u *User) error {
	err := r.DB.WithTx(ctx, func(q postgres.Querier) error {
		return save(ctx, q, u)
	})
	metrics.StoreOp("user", "save", err)
	if err != nil {
		r.Log.Error("failed to save user", "user_id", u.ID, "op", "save", "error", err)
		return err
	}
	r.Log.Debug("user saved", "user_id", u.ID)
	return nil
}

func save(ctx context.Context, q postgres.Querier, u *User) error {
	now := wire.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}
	if u.Preferences == nil {
		u.Preferences = wire.Doc{}
	}
	err := q.QueryRow(ctx, `
		INSERT INTO users (`+columns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email, username = EXCLUDED.username,
			password_hash = EXCLUDED.password_hash,
			first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
			phone = EXCLUDED.phone, is_active = EXCLUDED.is_active,
			preferences = EXCLUDED.preferences, updated_at = $12
		RETURNING created_at, updated_at`,
		u.ID, u.Email, u.Username, u.PasswordHash, u.FirstName, u.LastName,
		u.Phone, u.IsActive, u.CreatedAt, u.UpdatedAt, u.Preferences, now,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return postgres.Classify("save user", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return nil
}

// FindByID returns nil, nil when no user has that id.
func (r *Repo) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, "find_by_id", "user_id", id)
}

func (r *Repo) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, "find_by_email", "email", email)
}

func (r *Repo) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, "find_by_username", "username", username)
}

// findOne is only called with column names from this file.
func (r *Repo) findOne(ctx context.Context, op, column, value string) (*User, error) {
	var u *User
	err := r.DB.Read(ctx, func(q postgres.Querier) error {
		var err error
		u, err = scanUser(q.QueryRow(ctx, `SELECT `+columns+` FROM users WHERE `+column+` = $1`, value))
		if errors.Is(err, pgx.ErrNoRows) {
			u = nil
			return nil
		}
		return postgres.Classify("user "+op, err)
	})
	metrics.StoreOp("user", op, err)
	if err != nil {
		r.Log.Error("failed to find user", "op", op, "lookup", column, "error", err)
		return nil, err
	}
	return u, nil
}

// Authenticate tries the identifier as an email first, then as a username.
// Emails match case-insensitively. Unknown users, wrong passwords and
// inactive users all yield nil, nil.
func (r *Repo) Authenticate(ctx context.Context, identifier, password string) (*User, error) {
	identifier = strings.TrimSpace(identifier)
	u, err := r.FindByEmail(ctx, NormalizeEmail(identifier))
	if err != nil {
		return nil, err
	}
	if u == nil {
		if u, err = r.FindByUsername(ctx, identifier); err != nil {
			return nil, err
		}
	}
	if u == nil || !u.IsActive || !u.VerifyPassword(password) {
		return nil, nil
	}
	return u, nil
}

// Register normalizes the email and saves a new user, rejecting a taken
// email or username.
func (r *Repo) Register(ctx context.Context, u *User) error {
	u.Email = NormalizeEmail(u.Email)
	existing, err := r.FindByEmail(ctx, u.Email)
	if err != nil {
		return err
	}
	if existing == nil {
		if existing, err = r.FindByUsername(ctx, u.Username); err != nil {
			return err
		}
	}
	if existing != nil {
		return ErrDuplicate
	}
	// A concurrent registration can still win between the lookups and
	// the insert; the unique indexes catch it.
	if err := r.Save(ctx, u); err != nil {
		if postgres.IsKind(err, postgres.KindConflict) {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return err
	}
	return nil
}

// Deactivate is the soft delete.
func (r *Repo) Deactivate(ctx context.Context, u *User) error {
	prev := u.IsActive
	u.IsActive = false
	if err := r.Save(ctx, u); err != nil {
		u.IsActive = prev
		return err
	}
	return nil
}
