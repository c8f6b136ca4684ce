// Package meal holds the canonical meal shape shared by every planner
// component and the conversions from external representations into it.
package meal

import (
	"fmt"
	"strings"
)

// MealTime is the slot a meal fills within a day.
type MealTime string

const (
	Breakfast MealTime = "breakfast"
	Lunch     MealTime = "lunch"
	Snack     MealTime = "snack"
	Dinner    MealTime = "dinner"
)

// MealTimes lists the slots in display order.
var MealTimes = []MealTime{Breakfast, Lunch, Snack, Dinner}

func (t MealTime) Valid() bool {
	switch t {
	case Breakfast, Lunch, Snack, Dinner:
		return true
	}
	return false
}

// Title is the capitalised label used in popups.
func (t MealTime) Title() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

// ParseMealTime accepts slot names case-insensitively, including the
// legacy "morning"/"afternoon" aliases.
func ParseMealTime(s string) (MealTime, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "morning":
		return Breakfast, nil
	case "afternoon":
		return Lunch, nil
	default:
		t := MealTime(v)
		if !t.Valid() {
			return "", fmt.Errorf("unknown meal time %q", s)
		}
		return t, nil
	}
}

// DietCategory is the Veg/Non-Veg label. The zero value means the
// classification has not been resolved.
type DietCategory string

const (
	DietUnknown DietCategory = ""
	Veg         DietCategory = "Veg"
	NonVeg      DietCategory = "Non-Veg"
)

func DietFromFlag(isVeg bool) DietCategory {
	if isVeg {
		return Veg
	}
	return NonVeg
}

func (d DietCategory) IsVeg() bool { return d == Veg }

func (d DietCategory) Known() bool { return d == Veg || d == NonVeg }

func ParseDiet(s string) (DietCategory, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.NewReplacer("-", "", " ", "", "_", "").Replace(v)
	switch v {
	case "veg", "vegetarian":
		return Veg, nil
	case "nonveg", "nonvegetarian":
		return NonVeg, nil
	}
	return DietUnknown, fmt.Errorf("unknown diet category %q", s)
}

// Meal is the canonical in-memory meal. A meal coming from the catalog has
// empty MealTime and Date until the selection flow slots it.
type Meal struct {
	ID           string       `json:"id"`
	CatalogID    string       `json:"catalogId"`
	Name         string       `json:"name"`
	Image        string       `json:"image"`
	MealTime     MealTime     `json:"mealTime"`
	DietCategory DietCategory `json:"dietCategory"`
	Calories     int          `json:"calories"`
	Date         string       `json:"date"`

	// Detail fields, only present when resolved from the catalog.
	Area           string   `json:"area"`
	Classification string   `json:"classification"`
	Ingredients    []string `json:"ingredients"`
	Instructions   string   `json:"instructions"`
}

// IsSlotted reports whether the meal has been assigned a date and slot.
func (m Meal) IsSlotted() bool {
	return m.MealTime.Valid() && m.Date != ""
}

func (m Meal) IsPersisted() bool { return m.ID != "" }

// Slotted returns a copy assigned to date and slot.
func (m Meal) Slotted(date string, slot MealTime) Meal {
	c := m.Clone()
	c.Date = date
	c.MealTime = slot
	return c
}

func (m Meal) Clone() Meal {
	c := m
	if m.Ingredients != nil {
		c.Ingredients = append([]string(nil), m.Ingredients...)
	}
	return c
}

// HasDetails reports whether any detail field is populated.
func (m Meal) HasDetails() bool {
	return m.Image != "" || m.Area != "" || m.Classification != "" ||
		len(m.Ingredients) > 0 || m.Instructions != ""
}

// AddsDetailTo reports whether m carries a detail field that local lacks.
func (m Meal) AddsDetailTo(local Meal) bool {
	return (m.Image != "" && local.Image == "") ||
		(m.Area != "" && local.Area == "") ||
		(m.Classification != "" && local.Classification == "") ||
		(len(m.Ingredients) > 0 && len(local.Ingredients) == 0) ||
		(m.Instructions != "" && local.Instructions == "")
}

// WithDetailsFrom fills m's empty detail fields from src.
func (m Meal) WithDetailsFrom(src Meal) Meal {
	c := m.Clone()
	if c.Image == "" {
		c.Image = src.Image
	}
	if c.Area == "" {
		c.Area = src.Area
	}
	if c.Classification == "" {
		c.Classification = src.Classification
	}
	if len(c.Ingredients) == 0 && len(src.Ingredients) > 0 {
		c.Ingredients = append([]string(nil), src.Ingredients...)
	}
	if c.Instructions == "" {
		c.Instructions = src.Instructions
	}
	return c
}

// DayPlan maps each filled slot of one date to its meal.
type DayPlan map[MealTime]Meal

func (p DayPlan) Clone() DayPlan {
	c := make(DayPlan, len(p))
	for k, v := range p {
		c[k] = v.Clone()
	}
	return c
}

func (p DayPlan) IsEmpty() bool { return len(p) == 0 }

// Filled returns the filled slots in display order.
func (p DayPlan) Filled() []MealTime {
	out := make([]MealTime, 0, len(p))
	for _, t := range MealTimes {
		if _, ok := p[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

func (p DayPlan) TotalCalories() int {
	total := 0
	for _, m := range p {
		total += m.Calories
	}
	return total
}
