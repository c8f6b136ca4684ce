package flow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fdg312/meal-planner/internal/meal"
)

var ErrInvalidTransition = errors.New("invalid flow transition")

// Machine holds the current State. It performs no I/O; guards that need the
// store or the clock belong to the caller.
type Machine struct {
	state State
}

func NewMachine() *Machine {
	return &Machine{state: Idle{}}
}

func (m *Machine) State() State { return m.state }

func (m *Machine) Step() Step { return m.state.Step() }

func invalid(event string, from State) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, event, from.Step())
}

// Start begins the sequence for date.
func (m *Machine) Start(date string) error {
	if _, ok := m.state.(Idle); !ok {
		return invalid("start", m.state)
	}
	if !meal.ValidDate(date) {
		return fmt.Errorf("%w: invalid date %q", ErrInvalidTransition, date)
	}
	m.state = TimeSelect{Date: date}
	return nil
}

func (m *Machine) ChooseSlot(slot meal.MealTime) error {
	s, ok := m.state.(TimeSelect)
	if !ok || !slot.Valid() {
		return invalid("choose slot", m.state)
	}
	m.state = TypeSelect{Date: s.Date, Slot: slot}
	return nil
}

func (m *Machine) ChooseDiet(diet meal.DietCategory) error {
	s, ok := m.state.(TypeSelect)
	if !ok || !diet.Known() {
		return invalid("choose diet", m.state)
	}
	m.state = BrowseList{Date: s.Date, Slot: s.Slot, Diet: diet}
	return nil
}

func (m *Machine) SetSearch(text string) error {
	s, ok := m.state.(BrowseList)
	if !ok {
		return invalid("search", m.state)
	}
	s.Search = strings.TrimSpace(text)
	m.state = s
	return nil
}

func (m *Machine) ShowDish(dish meal.Meal) error {
	s, ok := m.state.(BrowseList)
	if !ok {
		return invalid("show dish", m.state)
	}
	m.state = Details{List: s, Dish: dish.Clone()}
	return nil
}

func (m *Machine) BackToList() error {
	s, ok := m.state.(Details)
	if !ok {
		return invalid("back", m.state)
	}
	m.state = s.List
	return nil
}

// BeginCommit moves to Committing from the list or from a dish preview.
func (m *Machine) BeginCommit(dish meal.Meal) (Committing, error) {
	var list BrowseList
	switch s := m.state.(type) {
	case BrowseList:
		list = s
	case Details:
		list = s.List
	default:
		return Committing{}, invalid("commit", m.state)
	}
	c := Committing{List: list, Dish: dish.Clone()}
	m.state = c
	return c, nil
}

func (m *Machine) CommitSucceeded() error {
	if _, ok := m.state.(Committing); !ok {
		return invalid("commit succeeded", m.state)
	}
	m.state = Idle{}
	return nil
}

// CommitFailed returns to the list so the user can retry.
func (m *Machine) CommitFailed() error {
	s, ok := m.state.(Committing)
	if !ok {
		return invalid("commit failed", m.state)
	}
	m.state = s.List
	return nil
}

// Cancel drops every transient field and returns to Idle.
func (m *Machine) Cancel() {
	m.state = Idle{}
}

func (m *Machine) OpenSummary(date string) error {
	switch m.state.(type) {
	case Idle, DaySummary:
	default:
		return invalid("open summary", m.state)
	}
	m.state = DaySummary{Date: date}
	return nil
}

// ViewMeal opens a planned meal. An open day summary is closed first.
func (m *Machine) ViewMeal(planned meal.Meal) error {
	switch m.state.(type) {
	case Idle, DaySummary, ViewingMeal:
	default:
		return invalid("view meal", m.state)
	}
	m.state = ViewingMeal{Meal: planned.Clone()}
	return nil
}

// ChangeFromSummary jumps from the day summary straight to the diet choice
// for slot.
func (m *Machine) ChangeFromSummary(slot meal.MealTime) error {
	s, ok := m.state.(DaySummary)
	if !ok || !slot.Valid() {
		return invalid("change from summary", m.state)
	}
	m.state = TypeSelect{Date: s.Date, Slot: slot}
	return nil
}
