package middleware

import "net/http"

const apiCSP = "default-src 'none'; frame-ancestors 'none'"

// SecurityHeaders sets hardening headers on every response. The CSP header
// is only sent when enableCSP is set.
func SecurityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Cache-Control", "no-store")
			if enableCSP {
				h.Set("Content-Security-Policy", apiCSP)
			}
			next.ServeHTTP(w, r)
		})
	}
}
