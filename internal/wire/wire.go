// Package wire holds the helpers shared by every entity for moving between
// Go values and the JSON-shaped maps handed to HTTP handlers.
package wire

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Doc is a free-form structured document stored as JSONB.
type Doc = map[string]any

// NewID returns a random 128-bit identifier in canonical form.
func NewID() string { return uuid.NewString() }

// ValidID reports whether s is a canonical identifier.
func ValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// Now is the entity clock, truncated to the store's microsecond precision.
var Now = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

func FormatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTime accepts RFC 3339 and offset-less ISO timestamps (read as UTC).
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// FormatMoney renders cents as a decimal amount.
func FormatMoney(cents int64) float64 {
	return float64(cents) / 100
}

// maxMoney bounds amounts so that amount*100 stays exact in a float64.
const maxMoney = 1 << 53 / 100

// ParseMoney converts a decimal amount to cents, rounding half away from zero.
// Non-finite and out-of-range amounts are rejected.
func ParseMoney(v any) (int64, error) {
	switch x := v.(type) {
	case float64:
		return toCents(x)
	case float32:
		return toCents(float64(x))
	case int:
		return toCents(float64(x))
	case int64:
		if x > maxMoney || x < -maxMoney {
			return 0, fmt.Errorf("amount %d out of range", x)
		}
		return x * 100, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q", x)
		}
		return toCents(f)
	default:
		return 0, fmt.Errorf("invalid amount %v", v)
	}
}

func toCents(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > maxMoney {
		return 0, fmt.Errorf("amount %v out of range", f)
	}
	return int64(math.Round(f * 100)), nil
}
