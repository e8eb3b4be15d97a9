package core

import "context"

type contextKey string

const (
	ctxKeyIPAddress contextKey = "activity_ip"
	ctxKeyUserAgent contextKey = "activity_ua"
)

// ContextWithClient records the caller's address and user agent for
// activity metadata.
func ContextWithClient(ctx context.Context, ip, userAgent string) context.Context {
	if ip != "" {
		ctx = context.WithValue(ctx, ctxKeyIPAddress, ip)
	}
	if userAgent != "" {
		ctx = context.WithValue(ctx, ctxKeyUserAgent, userAgent)
	}
	return ctx
}

// ClientFromContext returns the values stored by ContextWithClient.
func ClientFromContext(ctx context.Context) (ip, userAgent string) {
	ip, _ = ctx.Value(ctxKeyIPAddress).(string)
	userAgent, _ = ctx.Value(ctxKeyUserAgent).(string)
	return ip, userAgent
}
