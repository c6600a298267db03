package wire

import (
	"fmt"
	"time"
)

// Fields reads typed values out of a decoded map. The first error sticks;
// callers check Err once after reading everything.
type Fields struct {
	m   map[string]any
	err error
}

func Read(m map[string]any) *Fields { return &Fields{m: m} }

func (f *Fields) Err() error { return f.err }

func (f *Fields) fail(key string, v any, want string) {
	if f.err == nil {
		f.err = fmt.Errorf("field %q: expected %s, got %T", key, want, v)
	}
}

func (f *Fields) String(key string) string {
	v, ok := f.m[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		f.fail(key, v, "string")
	}
	return s
}

func (f *Fields) OptString(key string) *string {
	v, ok := f.m[key]
	if !ok || v == nil {
		return nil
	}
	s := f.String(key)
	return &s
}

func (f *Fields) Bool(key string, def bool) bool {
	v, ok := f.m[key]
	if !ok || v == nil {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		f.fail(key, v, "bool")
		return def
	}
	return b
}

func (f *Fields) Int(key string, def int) int {
	v, ok := f.m[key]
	if !ok || v == nil {
		return def
	}
	switch x := v.(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	case float64:
		if x != float64(int(x)) {
			f.fail(key, v, "integer")
			return def
		}
		return int(x)
	default:
		f.fail(key, v, "integer")
		return def
	}
}

// Money returns cents and whether the key carried a value.
func (f *Fields) Money(key string) (int64, bool) {
	v, ok := f.m[key]
	if !ok || v == nil {
		return 0, false
	}
	c, err := ParseMoney(v)
	if err != nil {
		f.fail(key, v, "amount")
		return 0, false
	}
	return c, true
}

func (f *Fields) Time(key string) time.Time {
	v, ok := f.m[key]
	if !ok || v == nil {
		return time.Time{}
	}
	switch x := v.(type) {
	case time.Time:
		return x.UTC()
	case string:
		if x == "" {
			return time.Time{}
		}
		t, err := ParseTime(x)
		if err != nil && f.err == nil {
			f.err = fmt.Errorf("field %q: %w", key, err)
		}
		return t
	default:
		f.fail(key, v, "timestamp")
		return time.Time{}
	}
}

func (f *Fields) Doc(key string) Doc {
	v, ok := f.m[key]
	if !ok || v == nil {
		return Doc{}
	}
	d, ok := v.(map[string]any)
	if !ok {
		f.fail(key, v, "object")
		return Doc{}
	}
	return d
}

func (f *Fields) Strings(key string) []string {
	v, ok := f.m[key]
	if !ok || v == nil {
		return []string{}
	}
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				f.fail(key, e, "string list")
				return []string{}
			}
			out = append(out, s)
		}
		return out
	default:
		f.fail(key, v, "string list")
		return []string{}
	}
}
