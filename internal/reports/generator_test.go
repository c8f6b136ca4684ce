package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/fdg312/meal-planner/internal/analytics"
	"github.com/fdg312/meal-planner/internal/blob"
	"github.com/fdg312/meal-planner/internal/meal"
)

func sampleMeals() []meal.Meal {
	return []meal.Meal{
		{ID: "2", Name: "Fish Curry", MealTime: meal.Dinner, DietCategory: meal.NonVeg, Calories: 300, Date: "2026-02-14"},
		{ID: "1", Name: "Idli", MealTime: meal.Breakfast, DietCategory: meal.Veg, Calories: 120, Date: "2026-02-14", CatalogID: "local-1"},
		{ID: "3", Name: "Crème Brûlée", MealTime: meal.Snack, DietCategory: meal.Veg, Calories: 200, Date: "2026-02-13"},
	}
}

func TestGenerateCSV(t *testing.T) {
	g := NewGenerator()
	data, err := g.Generate(FormatCSV, analytics.Summary{}, sampleMeals())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected header + 3 meals + total, got %d records", len(records))
	}
	if records[0][0] != "date" || records[0][2] != "meal_name" {
		t.Errorf("unexpected header %v", records[0])
	}
	// Ordered by date, then slot.
	wantOrder := []string{"Crème Brûlée", "Idli", "Fish Curry"}
	for i, name := range wantOrder {
		if records[i+1][2] != name {
			t.Errorf("row %d: expected %q, got %q", i+1, name, records[i+1][2])
		}
	}
	if records[2][5] != "local-1" || records[2][4] != "Veg" {
		t.Errorf("unexpected Idli row %v", records[2])
	}
	last := records[4]
	if last[0] != "TOTAL" || last[3] != "620" {
		t.Errorf("unexpected total row %v", last)
	}
}

func TestGeneratePDF(t *testing.T) {
	g := NewGenerator()
	meals := sampleMeals()
	now := time.Date(2026, 2, 15, 12, 0, 0, 0, time.Local)

	data, err := g.Generate(FormatPDF, analytics.Aggregate(meals, now), meals)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a PDF: %q", data[:min(len(data), 16)])
	}
}

func TestGenerateUnknownFormat(t *testing.T) {
	_, err := NewGenerator().Generate("xlsx", analytics.Summary{}, nil)
	if !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", FormatPDF, false},
		{"pdf", FormatPDF, false},
		{"csv", FormatCSV, false},
		{"PDF", "", true},
		{"docx", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestExportStoresReport(t *testing.T) {
	store, err := blob.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	svc := NewService(store, "reports", 900)
	svc.now = func() time.Time { return time.Date(2026, 2, 15, 12, 0, 0, 0, time.Local) }

	ctx := context.Background()
	report, err := svc.Export(ctx, FormatCSV, sampleMeals())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	keyPattern := regexp.MustCompile(`^reports/insights-2026-02-15-[0-9a-f-]{36}\.csv$`)
	if !keyPattern.MatchString(report.Key) {
		t.Fatalf("unexpected key %q", report.Key)
	}
	if !strings.HasPrefix(report.DownloadURL, "file://") {
		t.Errorf("expected file URL, got %q", report.DownloadURL)
	}

	stored, err := store.GetObject(ctx, report.Key)
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	if int64(len(stored)) != report.SizeBytes || !strings.HasPrefix(string(stored), "date,") {
		t.Fatalf("stored report mismatch (size %d vs %d)", len(stored), report.SizeBytes)
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := NewService(nil, "", 0)
	if _, err := svc.Export(context.Background(), "txt", nil); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
}
