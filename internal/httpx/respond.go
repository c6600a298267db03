package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-ecom-chatbot/internal/postgres"
)

const maxBody = 1 << 20

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeFault answers a store error with the status its kind maps to. The
// underlying error stays in the log.
func (s *Server) writeFault(w http.ResponseWriter, r *http.Request, op string, err error) {
	code, msg := faultStatus(err)
	s.Log.Error("request failed", "op", op, "path", r.URL.Path, "status", code, "error", err)
	writeError(w, code, msg)
}

func faultStatus(err error) (int, string) {
	switch postgres.KindOf(err) {
	case postgres.KindUnavailable:
		return http.StatusServiceUnavailable, "service temporarily unavailable"
	case postgres.KindConflict:
		return http.StatusConflict, "conflicting update"
	case postgres.KindReference, postgres.KindInvalid:
		return http.StatusBadRequest, "invalid request"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

var errEmptyBody = errors.New("request body is required")

func decode(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v)
	if errors.Is(err, io.EOF) {
		return errEmptyBody
	}
	if err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
