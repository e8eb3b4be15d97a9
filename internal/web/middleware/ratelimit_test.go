package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimit(t *testing.T) {
	h := RateLimit(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do("192.0.2.1:1234"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, rec.Code)
		}
	}

	rec := do("192.0.2.1:5678")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["code"] != "RATE001" {
		t.Errorf("code = %q, want RATE001", body["code"])
	}

	if rec := do("198.51.100.7:1234"); rec.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", rec.Code)
	}
}

func TestRateLimit_AfterTrustedRealIP(t *testing.T) {
	h := TrustedRealIP([]string{"10.0.0.0/8"})(
		RateLimit(1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})),
	)

	do := func(client string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:443"
		req.Header.Set("X-Real-IP", client)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do("203.0.113.5"); code != http.StatusOK {
		t.Fatalf("first client status = %d", code)
	}
	if code := do("203.0.113.6"); code != http.StatusOK {
		t.Errorf("second client behind proxy status = %d, want its own budget", code)
	}
	if code := do("203.0.113.5"); code != http.StatusTooManyRequests {
		t.Errorf("repeat client status = %d, want 429", code)
	}
}
