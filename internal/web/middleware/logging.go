// Package middleware provides HTTP middleware for the console's API server.
package middleware

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/formconsole/internal/logging"
)

// Logger logs one line per request with method, path, status, duration_ms,
// ip and user_agent. The acting admin's uid is added when known.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(ww, r)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		}
		if ww.actor != "" {
			attrs = append(attrs, "admin_uid", ww.actor)
		}

		logger := logging.FromContext(r.Context())
		switch {
		case ww.status >= 500:
			logger.Error("request", attrs...)
		case ww.status >= 400:
			logger.Warn("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}
	})
}

// statusRecorder captures the response status. Downstream middleware that
// identifies the admin records the uid on it so the request line carries it.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	actor       string
}

func (w *statusRecorder) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
