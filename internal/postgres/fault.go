package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind tags a store fault so callers can pick a response without parsing
// driver errors.
type Kind int

const (
	KindInternal Kind = iota
	KindUnavailable
	KindConflict
	KindReference
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindConflict:
		return "conflict"
	case KindReference:
		return "reference"
	case KindInvalid:
		return "invalid"
	default:
		return "internal"
	}
}

type Fault struct {
	Kind Kind
	Op   string
	Err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Op, f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// Classify wraps err in a Fault. Errors that already carry a Fault are
// returned unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return err
	}
	return &Fault{Kind: kindOf(err), Op: op, Err: err}
}

func kindOf(err error) Kind {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return KindConflict
		case pgErr.Code == "23503":
			return KindReference
		case pgErr.Code == "23502", pgErr.Code == "23514", strings.HasPrefix(pgErr.Code, "22"):
			return KindInvalid
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "57P"):
			return KindUnavailable
		default:
			return KindInternal
		}
	}
	var connectErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindUnavailable
	case errors.As(err, &connectErr), errors.As(err, &netErr):
		return KindUnavailable
	case pgconn.Timeout(err):
		return KindUnavailable
	}
	return KindInternal
}

// KindOf reports the fault kind carried by err, KindInternal otherwise.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindInternal
}

func IsKind(err error, k Kind) bool {
	var f *Fault
	return errors.As(err, &f) && f.Kind == k
}
