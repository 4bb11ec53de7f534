package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"

	"deskrag/internal/config"
	"deskrag/pkg/logger_i"
)

func TestIsValidBearerToken(t *testing.T) {
	log := logger_i.NewLogger("middleware-test")
	config.AuthToken = "secret-token"
	config.NoAuthBypass = false
	t.Cleanup(func() {
		config.AuthToken = ""
		config.NoAuthBypass = false
	})

	tests := []struct {
		name   string
		header string
		bypass bool
		want   bool
	}{
		{"valid token", "Bearer secret-token", false, true},
		{"wrong token", "Bearer nope", false, false},
		{"missing header", "", false, false},
		{"no bearer prefix", "secret-token", false, false},
		{"bypass enabled", "", true, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			config.NoAuthBypass = tc.bypass
			if got := IsValidBearerToken(tc.header, log); got != tc.want {
				t.Errorf("IsValidBearerToken(%q) = %v, want %v", tc.header, got, tc.want)
			}
		})
	}
}

func TestIPRateLimiter_Burst(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 2)

	if !limiter.GetLimiter("10.0.0.1").Allow() || !limiter.GetLimiter("10.0.0.1").Allow() {
		t.Fatal("burst requests should pass")
	}
	if limiter.GetLimiter("10.0.0.1").Allow() {
		t.Error("third immediate request should be limited")
	}
	// a different ip gets its own bucket
	if !limiter.GetLimiter("10.0.0.2").Allow() {
		t.Error("fresh ip should not be limited")
	}
}

func TestWrap_InjectsTraceAndAuth(t *testing.T) {
	config.NoAuthBypass = true
	t.Cleanup(func() { config.NoAuthBypass = false })

	var sawTrace string
	handler := Wrap(func(w http.ResponseWriter, r *http.Request) {
		sawTrace, _ = r.Context().Value(config.TRACE_ID_KEY).(string)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-Id", "trace-123")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if sawTrace != "trace-123" {
		t.Errorf("trace = %q, want trace-123", sawTrace)
	}
}

func TestWrap_RejectsBadToken(t *testing.T) {
	config.AuthToken = "secret-token"
	config.NoAuthBypass = false
	t.Cleanup(func() { config.AuthToken = "" })

	handler := Wrap(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without auth")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
