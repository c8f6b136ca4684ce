// Package calendar builds the month grid the planner renders.
package calendar

import (
	"fmt"
	"time"

	"github.com/fdg312/meal-planner/internal/meal"
)

// Weekdays are the column headers; weeks start on Sunday.
var Weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

type Cell struct {
	Day      int
	Date     string
	IsToday  bool
	IsPast   bool
	HasMeals bool
	Calories int
	Slots    []meal.MealTime
}

type Month struct {
	Year         int
	Month        time.Month
	Title        string
	Leading      int // blank cells before the 1st
	Cells        []Cell
	PrevDisabled bool
}

// Build lays out year/month relative to now using the planned days.
func Build(year int, month time.Month, now time.Time, plans map[string]meal.DayPlan) Month {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	today := meal.DateKey(now)

	m := Month{
		Year:         first.Year(),
		Month:        first.Month(),
		Title:        fmt.Sprintf("%s %d", first.Month(), first.Year()),
		Leading:      int(first.Weekday()),
		PrevDisabled: !After(first.Year(), first.Month(), now),
	}
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		key := meal.DateKey(d)
		plan := plans[key]
		m.Cells = append(m.Cells, Cell{
			Day:      d.Day(),
			Date:     key,
			IsToday:  key == today,
			IsPast:   key < today,
			HasMeals: len(plan) > 0,
			Calories: plan.TotalCalories(),
			Slots:    plan.Filled(),
		})
	}
	return m
}

// Weeks splits the grid into rows of seven; blanks are nil.
func (m Month) Weeks() [][]*Cell {
	total := m.Leading + len(m.Cells)
	rows := (total + 6) / 7
	out := make([][]*Cell, rows)
	for r := range out {
		out[r] = make([]*Cell, 7)
	}
	for i := range m.Cells {
		pos := m.Leading + i
		out[pos/7][pos%7] = &m.Cells[i]
	}
	return out
}

// Cell returns the cell for a date key in this month.
func (m Month) Cell(date string) (Cell, bool) {
	for _, c := range m.Cells {
		if c.Date == date {
			return c, true
		}
	}
	return Cell{}, false
}

// Shift moves year/month by delta months.
func Shift(year int, month time.Month, delta int) (int, time.Month) {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.Local).AddDate(0, delta, 0)
	return t.Year(), t.Month()
}

// After reports whether year/month is later than now's month.
func After(year int, month time.Month, now time.Time) bool {
	now = now.Local()
	if year != now.Year() {
		return year > now.Year()
	}
	return month > now.Month()
}
