package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fdg312/meal-planner/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serveFrom(h http.Handler, remoteAddr, xff string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/meals/all", nil)
	req.RemoteAddr = remoteAddr
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimitSecondRequestReturns429(t *testing.T) {
	handler := RateLimitMiddleware(&config.Config{RateLimitRPS: 1, RateLimitBurst: 1}, okHandler())

	if rr := serveFrom(handler, "1.2.3.4:12345", ""); rr.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rr.Code)
	}

	rr := serveFrom(handler, "1.2.3.4:12345", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "1" {
		t.Errorf("expected Retry-After: 1")
	}

	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["code"] != "rate_limited" || body["message"] == "" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestRateLimitDisabledWhenZero(t *testing.T) {
	calls := 0
	handler := RateLimitMiddleware(&config.Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	for i := 0; i < 10; i++ {
		if rr := serveFrom(handler, "1.2.3.4:12345", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
	}
	if calls != 10 {
		t.Errorf("expected 10 calls, got %d", calls)
	}
}

func TestRateLimitKeysByClient(t *testing.T) {
	handler := RateLimitMiddleware(&config.Config{RateLimitRPS: 1, RateLimitBurst: 1}, okHandler())

	if rr := serveFrom(handler, "1.2.3.4:1", ""); rr.Code != http.StatusOK {
		t.Fatalf("IP1: expected 200, got %d", rr.Code)
	}
	if rr := serveFrom(handler, "5.6.7.8:1", ""); rr.Code != http.StatusOK {
		t.Fatalf("IP2: expected 200, got %d", rr.Code)
	}

	// Same proxy, different forwarded clients.
	if rr := serveFrom(handler, "10.0.0.1:1", "9.9.9.9, 10.0.0.1"); rr.Code != http.StatusOK {
		t.Fatalf("forwarded client: expected 200, got %d", rr.Code)
	}
	if rr := serveFrom(handler, "10.0.0.1:2", "9.9.9.9"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("same forwarded client: expected 429, got %d", rr.Code)
	}
}

func TestExtractIP(t *testing.T) {
	tests := []struct {
		remote, xff, want string
	}{
		{"1.2.3.4:80", "", "1.2.3.4"},
		{"1.2.3.4:80", "7.7.7.7", "7.7.7.7"},
		{"1.2.3.4:80", " 7.7.7.7 , 8.8.8.8", "7.7.7.7"},
		{"1.2.3.4:80", ",8.8.8.8", "1.2.3.4"},
		{"bogus", "", "bogus"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		if tt.xff != "" {
			req.Header.Set("X-Forwarded-For", tt.xff)
		}
		if got := extractIP(req); got != tt.want {
			t.Errorf("extractIP(%q, %q) = %q, want %q", tt.remote, tt.xff, got, tt.want)
		}
	}
}
