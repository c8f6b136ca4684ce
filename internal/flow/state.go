// Package flow is the guided selection sequence that takes a date click to
// a persisted meal. Exactly one State variant is active at a time.
package flow

import "github.com/fdg312/meal-planner/internal/meal"

type Step int

const (
	StepIdle Step = iota
	StepTimeSelect
	StepTypeSelect
	StepBrowseList
	StepDetails
	StepCommitting
	StepDaySummary
	StepViewingMeal
)

func (s Step) String() string {
	switch s {
	case StepIdle:
		return "idle"
	case StepTimeSelect:
		return "time_select"
	case StepTypeSelect:
		return "type_select"
	case StepBrowseList:
		return "browse_list"
	case StepDetails:
		return "details"
	case StepCommitting:
		return "committing"
	case StepDaySummary:
		return "day_summary"
	case StepViewingMeal:
		return "viewing_meal"
	}
	return "unknown"
}

// State is implemented only by the variants below.
type State interface {
	Step() Step
	state()
}

type Idle struct{}

// TimeSelect asks which slot of Date to fill.
type TimeSelect struct {
	Date string
}

// TypeSelect asks for the diet filter.
type TypeSelect struct {
	Date string
	Slot meal.MealTime
}

// BrowseList shows candidate dishes for the slot.
type BrowseList struct {
	Date   string
	Slot   meal.MealTime
	Diet   meal.DietCategory
	Search string
}

// Details previews one candidate before it is confirmed.
type Details struct {
	List BrowseList
	Dish meal.Meal
}

// Committing waits for the backend to confirm Dish.
type Committing struct {
	List BrowseList
	Dish meal.Meal
}

// DaySummary is the popup listing a planned day.
type DaySummary struct {
	Date string
}

// ViewingMeal shows a planned meal outside the selection sequence.
type ViewingMeal struct {
	Meal meal.Meal
}

func (Idle) Step() Step        { return StepIdle }
func (TimeSelect) Step() Step  { return StepTimeSelect }
func (TypeSelect) Step() Step  { return StepTypeSelect }
func (BrowseList) Step() Step  { return StepBrowseList }
func (Details) Step() Step     { return StepDetails }
func (Committing) Step() Step  { return StepCommitting }
func (DaySummary) Step() Step  { return StepDaySummary }
func (ViewingMeal) Step() Step { return StepViewingMeal }

func (Idle) state()        {}
func (TimeSelect) state()  {}
func (TypeSelect) state()  {}
func (BrowseList) state()  {}
func (Details) state()     {}
func (Committing) state()  {}
func (DaySummary) state()  {}
func (ViewingMeal) state() {}

// Target returns the date and slot the state refers to, if any.
func Target(s State) (date string, slot meal.MealTime) {
	switch v := s.(type) {
	case TimeSelect:
		return v.Date, ""
	case TypeSelect:
		return v.Date, v.Slot
	case BrowseList:
		return v.Date, v.Slot
	case Details:
		return v.List.Date, v.List.Slot
	case Committing:
		return v.List.Date, v.List.Slot
	case DaySummary:
		return v.Date, ""
	case ViewingMeal:
		return v.Meal.Date, v.Meal.MealTime
	}
	return "", ""
}
