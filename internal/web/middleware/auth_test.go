package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/JonMunkholm/formconsole/internal/config"
	"github.com/JonMunkholm/formconsole/internal/core"
)

const testSecret = "test-secret"

func TestAdminIdentity(t *testing.T) {
	valid := signToken(t, testSecret, AdminClaims{
		Name:             "Dana",
		Email:            "dana@example.test",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "admin1", Issuer: "console"},
	})
	expired := signToken(t, testSecret, AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin1",
			Issuer:    "console",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	noSubject := signToken(t, testSecret, AdminClaims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "console"}})
	wrongKey := signToken(t, "other", AdminClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "admin1", Issuer: "console"}})
	wrongIssuer := signToken(t, testSecret, AdminClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "admin1", Issuer: "elsewhere"}})

	tests := []struct {
		name       string
		required   bool
		header     string
		wantStatus int
		wantActor  core.Actor
	}{
		{"valid token", true, "Bearer " + valid, http.StatusOK, core.Actor{UID: "admin1", Name: "Dana", Email: "dana@example.test"}},
		{"lowercase scheme", true, "bearer " + valid, http.StatusOK, core.Actor{UID: "admin1", Name: "Dana", Email: "dana@example.test"}},
		{"missing token", true, "", http.StatusUnauthorized, core.Actor{}},
		{"basic auth", true, "Basic abc", http.StatusUnauthorized, core.Actor{}},
		{"expired", true, "Bearer " + expired, http.StatusUnauthorized, core.Actor{}},
		{"no subject", true, "Bearer " + noSubject, http.StatusUnauthorized, core.Actor{}},
		{"wrong key", true, "Bearer " + wrongKey, http.StatusUnauthorized, core.Actor{}},
		{"wrong issuer", true, "Bearer " + wrongIssuer, http.StatusUnauthorized, core.Actor{}},
		{"optional without token", false, "", http.StatusOK, core.Actor{}},
		{"optional with bad token", false, "Bearer " + wrongKey, http.StatusUnauthorized, core.Actor{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got core.Actor
			h := AdminIdentity(config.AuthConfig{Required: tt.required, JWTSecret: testSecret, JWTIssuer: "console"})(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					got = ActorFromContext(r.Context())
				}))

			req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
			if got != tt.wantActor {
				t.Errorf("actor = %+v, want %+v", got, tt.wantActor)
			}
		})
	}
}

func TestAdminIdentity_LoggerSeesActor(t *testing.T) {
	token := signToken(t, testSecret, AdminClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "admin1"}})

	var rec *statusRecorder
	capture := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec = &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
		})
	}
	h := capture(AdminIdentity(config.AuthConfig{Required: true, JWTSecret: testSecret})(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if rec.actor != "admin1" {
		t.Errorf("recorded actor = %q, want admin1", rec.actor)
	}
}

func signToken(t *testing.T, secret string, claims AdminClaims) string {
	t.Helper()
	tok, err := SignAdminToken(secret, claims)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}
