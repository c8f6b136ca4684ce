package plannedmeals

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fdg312/meal-planner/internal/analytics"
	"github.com/fdg312/meal-planner/internal/backend"
	"github.com/fdg312/meal-planner/internal/meal"
	"github.com/fdg312/meal-planner/internal/storage/memory"
	"github.com/fdg312/meal-planner/internal/userctx"
)

func newTestMux() *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(NewService(memory.New(), nil)).Register(mux)
	return mux
}

func doJSON(t *testing.T, mux http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func paneer() MealRequest {
	return MealRequest{MealName: "Paneer Butter Masala", MealType: "lunch", MealDate: "2026-02-20", MealID: "local-3", Calories: 250, IsVeg: true}
}

func TestHandleCreate_Success(t *testing.T) {
	mux := newTestMux()

	w := doJSON(t, mux, http.MethodPost, "/meals", paneer())
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var row meal.Row
	if err := json.NewDecoder(w.Body).Decode(&row); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if row.ID == "" || row.MealName != "Paneer Butter Masala" || row.Calories != 250 || !row.IsVeg {
		t.Errorf("unexpected row %+v", row)
	}

	w = doJSON(t, mux, http.MethodGet, "/meals/date/2026-02-20", nil)
	var rows []meal.Row
	json.NewDecoder(w.Body).Decode(&rows)
	if len(rows) != 1 || rows[0].ID != row.ID {
		t.Errorf("expected the created row for its date, got %+v", rows)
	}
}

func TestHandleCreate_Validation(t *testing.T) {
	mux := newTestMux()

	tests := []struct {
		name   string
		mutate func(*MealRequest)
	}{
		{"empty name", func(r *MealRequest) { r.MealName = "  " }},
		{"long name", func(r *MealRequest) { r.MealName = strings.Repeat("a", 201) }},
		{"bad type", func(r *MealRequest) { r.MealType = "brunch" }},
		{"bad date", func(r *MealRequest) { r.MealDate = "20-02-2026" }},
		{"negative calories", func(r *MealRequest) { r.Calories = -1 }},
		{"too many calories", func(r *MealRequest) { r.Calories = 10001 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := paneer()
			tt.mutate(&req)
			w := doJSON(t, mux, http.MethodPost, "/meals", req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", w.Code)
			}
			var resp ErrorResponse
			json.NewDecoder(w.Body).Decode(&resp)
			if resp.Code != "invalid_request" || resp.Message == "" {
				t.Errorf("unexpected error body %+v", resp)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/meals", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", w.Code)
	}
}

func TestHandleCreate_DuplicateSlot(t *testing.T) {
	mux := newTestMux()
	doJSON(t, mux, http.MethodPost, "/meals", paneer())

	dup := paneer()
	dup.MealName = "Idli"
	w := doJSON(t, mux, http.MethodPost, "/meals", dup)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", w.Code)
	}
	var resp ErrorResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Code != "slot_taken" {
		t.Errorf("expected slot_taken, got %q", resp.Code)
	}
}

func TestHandleUpdateAndDelete(t *testing.T) {
	mux := newTestMux()
	w := doJSON(t, mux, http.MethodPost, "/meals", paneer())
	var created meal.Row
	json.NewDecoder(w.Body).Decode(&created)

	upd := paneer()
	upd.MealName = "Idli"
	upd.Calories = 120
	w = doJSON(t, mux, http.MethodPut, "/meals/"+created.ID, upd)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated meal.Row
	json.NewDecoder(w.Body).Decode(&updated)
	if updated.ID != created.ID || updated.MealName != "Idli" || updated.Calories != 120 {
		t.Errorf("unexpected update %+v", updated)
	}

	if w := doJSON(t, mux, http.MethodPut, "/meals/missing", upd); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 updating unknown id, got %d", w.Code)
	}

	w = doJSON(t, mux, http.MethodDelete, "/meals/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if w := doJSON(t, mux, http.MethodDelete, "/meals/"+created.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", w.Code)
	}
}

func TestOwnersAreIsolated(t *testing.T) {
	mux := newTestMux()
	doJSON(t, mux, http.MethodPost, "/meals", paneer())

	req := httptest.NewRequest(http.MethodGet, "/meals/all", nil)
	req = req.WithContext(userctx.WithUserID(req.Context(), "someone-else"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	var rows []meal.Row
	json.NewDecoder(w.Body).Decode(&rows)
	if len(rows) != 0 {
		t.Fatalf("another owner saw %d rows", len(rows))
	}
}

func TestHandleInsightsAndReport(t *testing.T) {
	mux := newTestMux()
	doJSON(t, mux, http.MethodPost, "/meals", paneer())
	fish := MealRequest{MealName: "Fish Curry", MealType: "dinner", MealDate: "2026-02-20", Calories: 300}
	doJSON(t, mux, http.MethodPost, "/meals", fish)

	w := doJSON(t, mux, http.MethodGet, "/meals/insights", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var s analytics.Summary
	if err := json.NewDecoder(w.Body).Decode(&s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.TotalMeals != 2 || s.TotalCaloriesAllTime != 550 || s.VegPercentage != 50 {
		t.Errorf("unexpected summary %+v", s)
	}

	w = doJSON(t, mux, http.MethodGet, "/meals/report?format=csv", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "text/csv" {
		t.Fatalf("unexpected csv response %d %q", w.Code, w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), "Fish Curry") {
		t.Errorf("csv report misses history: %s", w.Body.String())
	}

	w = doJSON(t, mux, http.MethodGet, "/meals/report", nil)
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Body.String(), "%PDF") {
		t.Fatalf("expected default pdf report, got %d", w.Code)
	}

	if w := doJSON(t, mux, http.MethodGet, "/meals/report?format=xml", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown format, got %d", w.Code)
	}
}

// The planner's REST client and these handlers agree on the wire format.
func TestBackendClientRoundTrip(t *testing.T) {
	srv := httptest.NewServer(newTestMux())
	defer srv.Close()

	c := backend.NewClient(srv.URL)
	ctx := context.Background()

	created, err := c.Create(ctx, meal.ToPayload(meal.Meal{
		Name: "Idli", MealTime: meal.Breakfast, Date: "2026-02-21", DietCategory: meal.Veg, Calories: 120, CatalogID: "local-1",
	}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rows, err := c.MealsForDate(ctx, "2026-02-21")
	if err != nil || len(rows) != 1 {
		t.Fatalf("MealsForDate: %v %+v", err, rows)
	}
	got := meal.FromRow(rows[0])
	if got.ID != created.ID || got.MealTime != meal.Breakfast || got.DietCategory != meal.Veg || got.CatalogID != "local-1" {
		t.Errorf("unexpected normalized meal %+v", got)
	}

	_, err = c.Create(ctx, meal.Payload{MealName: "Dup", MealType: "breakfast", MealDate: "2026-02-21"})
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict || apiErr.Message == "" {
		t.Fatalf("expected APIError 409 with message, got %v", err)
	}

	if err := c.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := c.Delete(ctx, created.ID); !backend.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
