package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/JonMunkholm/formconsole/internal/core"
)

var errRateLimited = errors.New("rate limit exceeded")

// RateLimit allows requests per window for each client address. It keys on
// RemoteAddr, so it belongs after TrustedRealIP. Requests over the limit get
// a 429 with the standard JSON error body.
func RateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(window.Seconds()))

	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			msg := core.MapError(errRateLimited)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", retryAfter)
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": msg.Message, "message": msg.Message, "action": msg.Action, "code": msg.Code,
			})
		}),
	)
}
