// Package httpmw provides small HTTP middleware shared by cruxctl's server
// commands: request-id propagation and access logging.
package httpmw

import (
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

// requestIDHeader is the header checked for an inbound id and set on the
// response so a caller can correlate retries with a specific attempt.
const requestIDHeader = "X-Request-Id"

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// WithAccessLog wraps next with request-id propagation and a per-request
// access log line at the given logger's info level.
func WithAccessLog(log logr.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		log.Info("http request",
			"requestId", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start).String(),
		)
	})
}
