package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fdg312/meal-planner/internal/auth"
	"github.com/fdg312/meal-planner/internal/config"
	"github.com/fdg312/meal-planner/internal/meal"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:           "local",
		Port:          8080,
		JWTSecret:     "test-secret",
		JWTIssuer:     "meal-planner-test",
		JWTTTLMinutes: 60,
	}
}

func TestHealthz(t *testing.T) {
	srv := New(testConfig())
	defer srv.Close()

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status=ok, got %s", resp["status"])
	}
}

func TestHealthzMethodNotAllowed(t *testing.T) {
	srv := New(testConfig())
	defer srv.Close()

	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/healthz", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestMealsRequireTokenWhenAuthRequired(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRequired = true
	srv := New(cfg)
	defer srv.Close()
	h := srv.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/meals/all", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/auth/dev", strings.NewReader(`{"user_id":"asha"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("dev auth: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var token auth.DevAuthResponse
	if err := json.NewDecoder(w.Body).Decode(&token); err != nil {
		t.Fatal(err)
	}

	body := `{"meal_name":"Paneer Tikka","meal_type":"lunch","meal_date":"2026-02-15","meal_id":"local-3","calories":0,"isVeg":true}`
	req := httptest.NewRequest(http.MethodPost, "/meals", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/meals/date/2026-02-15", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var rows []meal.Row
	if err := json.NewDecoder(w.Body).Decode(&rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].MealName != "Paneer Tikka" || !rows[0].IsVeg {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestMealsOpenWithoutAuth(t *testing.T) {
	srv := New(testConfig())
	defer srv.Close()

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/meals/all", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("expected empty list, got %s", got)
	}
}
