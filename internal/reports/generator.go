package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"slices"
	"strconv"

	"github.com/fdg312/meal-planner/internal/analytics"
	"github.com/fdg312/meal-planner/internal/meal"
	"github.com/jung-kurt/gofpdf"
)

// recentRows is how many of the latest meals the PDF table shows.
const recentRows = 30

// Generator renders an analytics summary and the meal history as PDF or CSV.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders the report in format.
func (g *Generator) Generate(format string, summary analytics.Summary, meals []meal.Meal) ([]byte, error) {
	ordered := orderMeals(meals)
	switch format {
	case FormatPDF:
		return g.generatePDF(summary, ordered)
	case FormatCSV:
		return g.generateCSV(ordered)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, format)
	}
}

// generateCSV writes one row per planned meal and a closing total row.
func (g *Generator) generateCSV(meals []meal.Meal) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"date", "meal_type", "meal_name", "calories", "diet_category", "catalog_id"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	total := 0
	for _, m := range meals {
		total += m.Calories
		row := []string{
			m.Date,
			string(m.MealTime),
			m.Name,
			strconv.Itoa(m.Calories),
			string(m.DietCategory),
			m.CatalogID,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	if err := w.Write([]string{"TOTAL", "", "", strconv.Itoa(total), "", ""}); err != nil {
		return nil, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) generatePDF(s analytics.Summary, meals []meal.Meal) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	const font = "Helvetica"

	pdf.AddPage()
	pdf.SetFont(font, "B", 16)
	pdf.Cell(0, 10, "Meal Insights")
	pdf.Ln(8)

	pdf.SetFont(font, "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Window: %s - %s", s.WindowStart, s.WindowEnd))
	pdf.Ln(10)

	pdf.SetFont(font, "B", 13)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)

	pdf.SetFont(font, "", 10)
	lines := []string{
		fmt.Sprintf("Total meals: %d", s.TotalMeals),
		fmt.Sprintf("Total calories (all time): %d", s.TotalCaloriesAllTime),
		fmt.Sprintf("Calories, last %d days: %d", analytics.WindowDays, s.TotalCalories7Days),
		fmt.Sprintf("Average per day: %d", s.AvgPerDay7Days),
		fmt.Sprintf("Days planned: %d of %d", s.DaysPlanned7Days, analytics.WindowDays),
		fmt.Sprintf("Most eaten: %s (%d times)", s.MostEatenMealName, s.MaxEatenTimes),
		fmt.Sprintf("Veg / Non-Veg: %d / %d (%d%% veg)", s.VegCount, s.NonVegCount, s.VegPercentage),
	}
	for _, t := range meal.MealTimes {
		lines = append(lines, fmt.Sprintf("%s calories: %d", t.Title(), s.SlotCalories[t]))
	}
	for _, l := range lines {
		pdf.Cell(0, 6, tr(l))
		pdf.Ln(5)
	}
	pdf.Ln(7)

	pdf.SetFont(font, "B", 13)
	pdf.Cell(0, 8, "Recent meals")
	pdf.Ln(8)
	drawMealsTable(pdf, tr, font, meals)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func drawMealsTable(pdf *gofpdf.Fpdf, tr func(string) string, font string, meals []meal.Meal) {
	if len(meals) > recentRows {
		meals = meals[len(meals)-recentRows:]
	}

	pdf.SetFont(font, "B", 9)
	pdf.CellFormat(25, 6, "Date", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Slot", "1", 0, "C", false, 0, "")
	pdf.CellFormat(80, 6, "Dish", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "kcal", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Diet", "1", 1, "C", false, 0, "")

	pdf.SetFont(font, "", 9)
	for _, m := range meals {
		pdf.CellFormat(25, 6, m.Date, "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, m.MealTime.Title(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(80, 6, tr(m.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, strconv.Itoa(m.Calories), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, string(m.DietCategory), "1", 1, "C", false, 0, "")
	}
}

// orderMeals sorts by date, then slot display order.
func orderMeals(meals []meal.Meal) []meal.Meal {
	out := slices.Clone(meals)
	rank := func(t meal.MealTime) int {
		if i := slices.Index(meal.MealTimes, t); i >= 0 {
			return i
		}
		return len(meal.MealTimes)
	}
	slices.SortStableFunc(out, func(a, b meal.Meal) int {
		if a.Date != b.Date {
			if a.Date < b.Date {
				return -1
			}
			return 1
		}
		return rank(a.MealTime) - rank(b.MealTime)
	})
	return out
}
