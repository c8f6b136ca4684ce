// Package planstore keeps the confirmed meal plan per date and keeps it in
// sync with the planned-meals backend.
package planstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fdg312/meal-planner/internal/meal"
)

var (
	ErrInvalidDate = errors.New("invalid date")
	ErrInvalidSlot = errors.New("invalid meal slot")
	ErrEmptySlot   = errors.New("slot has no planned meal")
	ErrMissingID   = errors.New("backend confirmed meal without an id")
)

// Remote is the subset of the backend the store needs.
type Remote interface {
	MealsForDate(ctx context.Context, date string) ([]meal.Row, error)
	Create(ctx context.Context, p meal.Payload) (meal.Row, error)
	Update(ctx context.Context, id string, p meal.Payload) (meal.Row, error)
	Delete(ctx context.Context, id string) error
}

// Store maps date keys to day plans. Only slotted meals are stored.
type Store struct {
	mu     sync.RWMutex
	days   map[string]meal.DayPlan
	loaded map[string]bool
	remote Remote
	logger *zap.Logger
}

func New(remote Remote, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		days:   make(map[string]meal.DayPlan),
		loaded: make(map[string]bool),
		remote: remote,
		logger: logger,
	}
}

// Day returns a copy of the plan for date (nil when nothing is planned).
func (s *Store) Day(date string) meal.DayPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.days[date]
	if !ok {
		return nil
	}
	return p.Clone()
}

// Get returns the meal planned for (date, slot).
func (s *Store) Get(date string, slot meal.MealTime) (meal.Meal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.days[date][slot]
	if !ok {
		return meal.Meal{}, false
	}
	return m.Clone(), true
}

func (s *Store) HasMeals(date string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.days[date]) > 0
}

// Snapshot returns a deep copy of every non-empty day.
func (s *Store) Snapshot() map[string]meal.DayPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]meal.DayPlan, len(s.days))
	for date, p := range s.days {
		if len(p) > 0 {
			out[date] = p.Clone()
		}
	}
	return out
}

// Dates lists the dates that have at least one meal, sorted.
func (s *Store) Dates() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.days))
	for date, p := range s.days {
		if len(p) > 0 {
			out = append(out, date)
		}
	}
	sort.Strings(out)
	return out
}

// Load fetches the given dates, one request per date, and merges them.
func (s *Store) Load(ctx context.Context, dates []string) error {
	return s.LoadIf(ctx, dates, nil)
}

// LoadIf is Load with a staleness guard: each date's result is merged only
// if current (when non-nil) still returns true when the result arrives.
// Failed dates leave the store untouched and are reported together.
func (s *Store) LoadIf(ctx context.Context, dates []string, current func() bool) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, date := range dates {
		if !meal.ValidDate(date) {
			mu.Lock()
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidDate, date))
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			rows, err := s.remote.MealsForDate(ctx, date)
			if err != nil {
				s.logger.Warn("load planned meals failed", zap.String("date", date), zap.Error(err))
				mu.Lock()
				errs = append(errs, fmt.Errorf("load %s: %w", date, err))
				mu.Unlock()
				return nil
			}
			if current != nil && !current() {
				s.logger.Debug("discarding stale load", zap.String("date", date))
				return nil
			}
			s.merge(date, meal.FromRows(rows))
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// merge applies one date's fetched meals. An incoming meal replaces the
// local one only if it carries a detail field the local one lacks.
func (s *Store) merge(date string, incoming []meal.Meal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded[date] = true
	plan := s.days[date]
	for _, m := range incoming {
		if m.Date != date || !m.MealTime.Valid() {
			s.logger.Debug("skipping unslottable row", zap.String("date", date), zap.String("id", m.ID))
			continue
		}
		local, exists := plan[m.MealTime]
		if exists && !m.AddsDetailTo(local) {
			continue
		}
		if plan == nil {
			plan = make(meal.DayPlan)
			s.days[date] = plan
		}
		if exists {
			m = m.WithDetailsFrom(local)
		}
		plan[m.MealTime] = m
	}
}

// CommitSelection persists dish into (date, slot) and, only after the
// backend confirms, stores the confirmed meal. An existing record for the
// slot is updated, otherwise a new one is created. dietType overrides the
// dish's own category when known.
func (s *Store) CommitSelection(ctx context.Context, date string, slot meal.MealTime, dish meal.Meal, dietType meal.DietCategory) (meal.Meal, error) {
	if !meal.ValidDate(date) {
		return meal.Meal{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	if !slot.Valid() {
		return meal.Meal{}, fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}

	candidate := dish.Slotted(date, slot)
	candidate.ID = ""
	if dietType.Known() {
		candidate.DietCategory = dietType
	}

	existingID, err := s.existingID(ctx, date, slot)
	if err != nil {
		return meal.Meal{}, err
	}

	payload := meal.ToPayload(candidate)
	var row meal.Row
	if existingID != "" {
		row, err = s.remote.Update(ctx, existingID, payload)
	} else {
		row, err = s.remote.Create(ctx, payload)
	}
	if err != nil {
		return meal.Meal{}, fmt.Errorf("save meal: %w", err)
	}
	if row.ID == "" {
		return meal.Meal{}, fmt.Errorf("save meal: %w", ErrMissingID)
	}

	confirmed := meal.FromRow(row)
	if confirmed.Date != date || confirmed.MealTime != slot {
		// Trust the slot we asked for; the backend may echo a timestamp or alias.
		confirmed.Date, confirmed.MealTime = date, slot
	}
	confirmed = confirmed.WithDetailsFrom(candidate)

	s.mu.Lock()
	plan := s.days[date]
	if plan == nil {
		plan = make(meal.DayPlan)
		s.days[date] = plan
	}
	plan[slot] = confirmed
	s.mu.Unlock()

	s.logger.Info("meal committed",
		zap.String("date", date),
		zap.String("slot", string(slot)),
		zap.String("id", confirmed.ID),
		zap.Bool("update", existingID != ""))
	return confirmed.Clone(), nil
}

// existingID finds the backend id for (date, slot). Dates never loaded are
// fetched first so an existing server row is updated, not duplicated.
func (s *Store) existingID(ctx context.Context, date string, slot meal.MealTime) (string, error) {
	s.mu.RLock()
	m, ok := s.days[date][slot]
	loaded := s.loaded[date]
	s.mu.RUnlock()
	if ok && m.ID != "" {
		return m.ID, nil
	}
	if loaded {
		return "", nil
	}

	rows, err := s.remote.MealsForDate(ctx, date)
	if err != nil {
		return "", fmt.Errorf("check existing meal: %w", err)
	}
	for _, r := range rows {
		if existing := meal.FromRow(r); existing.MealTime == slot && existing.Date == date && existing.ID != "" {
			return existing.ID, nil
		}
	}
	return "", nil
}

// Annotate attaches catalog details to the stored meal if it is still the
// same record. It reports whether anything changed.
func (s *Store) Annotate(date string, slot meal.MealTime, detailed meal.Meal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	local, ok := s.days[date][slot]
	if !ok || local.ID != detailed.ID || !detailed.AddsDetailTo(local) {
		return false
	}
	s.days[date][slot] = local.WithDetailsFrom(detailed)
	return true
}

// Remove deletes the meal in (date, slot) on the backend, then locally.
func (s *Store) Remove(ctx context.Context, date string, slot meal.MealTime) error {
	m, ok := s.Get(date, slot)
	if !ok || m.ID == "" {
		return fmt.Errorf("%w: %s %s", ErrEmptySlot, date, slot)
	}
	if err := s.remote.Delete(ctx, m.ID); err != nil {
		return fmt.Errorf("delete meal: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.days[date][slot]; ok && cur.ID == m.ID {
		delete(s.days[date], slot)
		if len(s.days[date]) == 0 {
			delete(s.days, date)
		}
	}
	return nil
}
