package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/JonMunkholm/formconsole/internal/config"
	"github.com/JonMunkholm/formconsole/internal/core"
)

type actorKey struct{}

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid token")
)

// AdminClaims are the claims an admin token carries. The subject is the
// admin's uid.
type AdminClaims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AdminIdentity verifies the HS256 bearer token on each request and stores
// the acting admin in the request context. With auth not required, requests
// without a token proceed as an anonymous admin; a token that is present
// must still be valid.
func AdminIdentity(cfg config.AuthConfig) func(http.Handler) http.Handler {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}
	parser := jwt.NewParser(opts...)
	key := []byte(cfg.JWTSecret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				if !cfg.Required {
					next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), core.Actor{})))
					return
				}
				slog.Warn("auth: missing bearer token", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				writeAuthError(w, errMissingToken)
				return
			}

			claims := &AdminClaims{}
			_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
				return key, nil
			})
			if err == nil && claims.Subject == "" {
				err = errors.New("token has no subject")
			}
			if err != nil {
				slog.Warn("auth: rejected token", "path", r.URL.Path, "remote_addr", r.RemoteAddr, "error", err)
				writeAuthError(w, fmt.Errorf("%w: %v", errInvalidToken, err))
				return
			}

			actor := core.Actor{UID: claims.Subject, Name: claims.Name, Email: claims.Email}
			recordActor(w, actor.UID)
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// SignAdminToken issues a token AdminIdentity accepts.
func SignAdminToken(secret string, claims AdminClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// WithActor stores the acting admin in ctx.
func WithActor(ctx context.Context, a core.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext returns the acting admin stored by AdminIdentity.
func ActorFromContext(ctx context.Context) core.Actor {
	a, _ := ctx.Value(actorKey{}).(core.Actor)
	return a
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func writeAuthError(w http.ResponseWriter, err error) {
	msg := core.MapError(err)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="formconsole"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   msg.Message,
		"message": msg.Message,
		"action":  msg.Action,
		"code":    msg.Code,
	})
}

// recordActor hands uid to the enclosing Logger, if one wraps w.
func recordActor(w http.ResponseWriter, uid string) {
	for w != nil {
		if rec, ok := w.(*statusRecorder); ok {
			rec.actor = uid
			return
		}
		u, ok := w.(interface{ Unwrap() http.ResponseWriter })
		if !ok {
			return
		}
		w = u.Unwrap()
	}
}
