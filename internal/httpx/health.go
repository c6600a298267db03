package httpx

import (
	"context"
	"net/http"
	"sort"
	"time"
)

const version = "1.0.0"

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.Checks))
	for name := range s.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status, code := "healthy", http.StatusOK
	results := map[string]string{}
	for _, name := range names {
		if err := s.Checks[name](ctx); err != nil {
			s.Log.Warn("health check failed", "check", name, "error", err)
			results[name] = "unavailable"
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	writeJSON(w, code, map[string]any{
		"status":  status,
		"service": s.Service,
		"version": version,
		"checks":  results,
	})
}
