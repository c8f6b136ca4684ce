// Package analytics derives summary statistics from the planned-meal history.
package analytics

import (
	"math"
	"time"

	"github.com/fdg312/meal-planner/internal/meal"
)

// NothingYet is reported as the most eaten meal for an empty history.
const NothingYet = "Nothing yet"

// WindowDays is the length of the trailing window, today inclusive.
const WindowDays = 7

type Summary struct {
	TotalMeals           int                   `json:"totalMeals"`
	TotalCaloriesAllTime int                   `json:"totalCaloriesAllTime"`
	TotalCalories7Days   int                   `json:"totalCalories7Days"`
	AvgPerDay7Days       int                   `json:"avgPerDay7Days"`
	DaysPlanned7Days     int                   `json:"daysPlanned7Days"`
	SlotCalories         map[meal.MealTime]int `json:"slotCalories"`
	MostEatenMealName    string                `json:"mostEatenMealName"`
	MaxEatenTimes        int                   `json:"maxEatenTimes"`
	VegCount             int                   `json:"vegCount"`
	NonVegCount          int                   `json:"nonVegCount"`
	VegPercentage        int                   `json:"vegPercentage"`
	WindowStart          string                `json:"windowStart"`
	WindowEnd            string                `json:"windowEnd"`
}

func (s Summary) Empty() bool { return s.TotalMeals == 0 }

// Aggregate computes the summary in one pass over meals. The trailing
// window covers the local calendar days today-6 through today.
func Aggregate(meals []meal.Meal, now time.Time) Summary {
	today := meal.Midnight(now)
	s := Summary{
		SlotCalories:      make(map[meal.MealTime]int, len(meal.MealTimes)),
		MostEatenMealName: NothingYet,
		WindowStart:       meal.DateKey(today.AddDate(0, 0, -(WindowDays - 1))),
		WindowEnd:         meal.DateKey(today),
	}
	for _, t := range meal.MealTimes {
		s.SlotCalories[t] = 0
	}

	counts := make(map[string]int)
	days := make(map[string]bool)

	for _, m := range meals {
		s.TotalMeals++
		s.TotalCaloriesAllTime += m.Calories

		if date := meal.DateOnly(m.Date); meal.ValidDate(date) && date >= s.WindowStart && date <= s.WindowEnd {
			s.TotalCalories7Days += m.Calories
			days[date] = true
		}

		if m.MealTime.Valid() {
			s.SlotCalories[m.MealTime] += m.Calories
		}

		if m.Name != "" {
			counts[m.Name]++
			// Strictly greater: the first name to reach a count keeps the lead.
			if counts[m.Name] > s.MaxEatenTimes {
				s.MaxEatenTimes = counts[m.Name]
				s.MostEatenMealName = m.Name
			}
		}

		if m.DietCategory.IsVeg() {
			s.VegCount++
		} else {
			s.NonVegCount++
		}
	}

	s.DaysPlanned7Days = len(days)
	s.AvgPerDay7Days = roundDiv(s.TotalCalories7Days, WindowDays)
	if s.TotalMeals > 0 {
		s.VegPercentage = int(math.Round(float64(s.VegCount) / float64(s.TotalMeals) * 100))
	}
	return s
}

// FromRows normalizes backend rows and aggregates them.
func FromRows(rows []meal.Row, now time.Time) Summary {
	return Aggregate(meal.FromRows(rows), now)
}

func roundDiv(n, d int) int {
	return int(math.Round(float64(n) / float64(d)))
}
