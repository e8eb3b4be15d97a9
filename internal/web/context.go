package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/formconsole/internal/core"
	"github.com/JonMunkholm/formconsole/internal/web/middleware"
)

// requestContext returns the request context carrying the client address and
// user agent for activity metadata.
func requestContext(r *http.Request) context.Context {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return core.ContextWithClient(r.Context(), ip, r.UserAgent())
}

func actor(r *http.Request) core.Actor {
	return middleware.ActorFromContext(r.Context())
}
