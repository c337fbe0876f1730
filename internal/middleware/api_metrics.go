package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"taller-backend/internal/monitoring"
)

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// APIMetrics records request count and latency per method/route into the
// prometheus collectors. Path variables are collapsed so the label set stays
// bounded.
func APIMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shouldSkip(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := collapsePath(r.URL.Path)
		monitoring.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		monitoring.HTTPDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func shouldSkip(path string) bool {
	return path == "/health" || path == "/metrics" ||
		strings.HasPrefix(path, "/media/") ||
		path == "/favicon.ico"
}

// collapsePath replaces id/index segments with placeholders:
// /api/drafts/3f2c.../fotos/1 -> /api/drafts/{id}/fotos/{index}.
func collapsePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if i == 0 || seg == "" {
			continue
		}
		prev := segments[i-1]
		switch prev {
		case "drafts", "equipos":
			if seg != "refresh" {
				segments[i] = "{id}"
			}
		case "fotos":
			if seg != "captura" {
				segments[i] = "{index}"
			}
		}
	}
	return strings.Join(segments, "/")
}
