// Package planner is the top-level controller. It owns the plan store and
// the selection flow; views read from it and report user intent to it.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fdg312/meal-planner/internal/analytics"
	"github.com/fdg312/meal-planner/internal/calendar"
	"github.com/fdg312/meal-planner/internal/catalog"
	"github.com/fdg312/meal-planner/internal/flow"
	"github.com/fdg312/meal-planner/internal/meal"
	"github.com/fdg312/meal-planner/internal/planstore"
)

const (
	WarnPastDate       = "You cannot add meals for past dates!"
	WarnAlreadyPlanned = "Meal(s) already planned. Click the icon 🍽 to update or plan other slots."
	WarnSaveFailed     = "Failed to save meal, is the backend running?"
	WarnDishesFailed   = "Could not load dishes, is the catalog reachable?"
	WarnRemoveFailed   = "Failed to remove meal, is the backend running?"
)

var ErrCommitInFlight = errors.New("a save for this slot is already in progress")

// Warning is a user-facing notice. Guards raise warnings, never errors.
type Warning struct {
	Message string
	At      time.Time
}

// History provides the full planned-meal history.
type History interface {
	AllMeals(ctx context.Context) ([]meal.Row, error)
}

type Options struct {
	Store   *planstore.Store
	Dishes  catalog.Source
	History History
	Logger  *zap.Logger
	Now     func() time.Time
}

type slotKey struct {
	date string
	slot meal.MealTime
}

type Controller struct {
	mu sync.Mutex

	store   *planstore.Store
	machine *flow.Machine
	dishes  catalog.Source
	history History
	logger  *zap.Logger
	now     func() time.Time

	year  int
	month time.Month

	// monthGen invalidates month preloads, viewGen invalidates anything
	// started for the modal that was open at the time.
	monthGen uint64
	viewGen  uint64

	candidates []meal.Meal
	warning    *Warning
	inFlight   map[slotKey]bool
}

func New(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	now := opts.Now()
	return &Controller{
		store:    opts.Store,
		machine:  flow.NewMachine(),
		dishes:   opts.Dishes,
		history:  opts.History,
		logger:   opts.Logger,
		now:      opts.Now,
		year:     now.Year(),
		month:    now.Month(),
		inFlight: make(map[slotKey]bool),
	}
}

// State returns the active flow variant.
func (c *Controller) State() flow.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.State()
}

// Warning returns the pending notice, if any.
func (c *Controller) Warning() (Warning, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.warning == nil {
		return Warning{}, false
	}
	return *c.warning, true
}

func (c *Controller) DismissWarning() {
	c.mu.Lock()
	c.warning = nil
	c.mu.Unlock()
}

// warnLocked records a warning; c.mu must be held.
func (c *Controller) warnLocked(msg string) {
	c.warning = &Warning{Message: msg, At: c.now()}
	c.logger.Info("warning raised", zap.String("message", msg))
}

// Store exposes the plan store for read-only use by views.
func (c *Controller) Store() *planstore.Store { return c.store }

// ---- calendar ----

// Month builds the visible month grid.
func (c *Controller) Month() calendar.Month {
	c.mu.Lock()
	year, month := c.year, c.month
	c.mu.Unlock()
	return calendar.Build(year, month, c.now(), c.store.Snapshot())
}

// NextMonth moves the calendar forward and invalidates pending preloads.
func (c *Controller) NextMonth() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.year, c.month = calendar.Shift(c.year, c.month, 1)
	c.monthGen++
}

// PrevMonth moves back unless the visible month is the current one.
func (c *Controller) PrevMonth() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !calendar.After(c.year, c.month, c.now()) {
		return false
	}
	c.year, c.month = calendar.Shift(c.year, c.month, -1)
	c.monthGen++
	return true
}

// PreloadMonth loads every date of the visible month. Results that arrive
// after the user navigated elsewhere are discarded.
func (c *Controller) PreloadMonth(ctx context.Context) error {
	c.mu.Lock()
	gen := c.monthGen
	dates := meal.MonthDates(c.year, c.month)
	c.mu.Unlock()

	return c.store.LoadIf(ctx, dates, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.monthGen == gen
	})
}

// HandleDateClick starts the flow for date. Past dates and dates that
// already have meals raise a warning instead; the flow stays as it is.
func (c *Controller) HandleDateClick(date string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, idle := c.machine.State().(flow.Idle); !idle {
		return false
	}
	if meal.IsPast(date, c.now()) {
		c.warnLocked(WarnPastDate)
		return false
	}
	if c.store.HasMeals(date) {
		c.warnLocked(WarnAlreadyPlanned)
		return false
	}
	if err := c.machine.Start(date); err != nil {
		c.logger.Debug("date click ignored", zap.String("date", date), zap.Error(err))
		return false
	}
	c.viewGen++
	c.candidates = nil
	return true
}

// ---- selection sequence ----

func (c *Controller) ChooseSlot(slot meal.MealTime) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.ChooseSlot(slot)
}

// ChooseDiet enters the browse list; call RefreshCandidates to fill it.
func (c *Controller) ChooseDiet(diet meal.DietCategory) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.machine.ChooseDiet(diet); err != nil {
		return err
	}
	c.viewGen++
	c.candidates = nil
	return nil
}

// SetSearch changes the list filter text.
func (c *Controller) SetSearch(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.SetSearch(text)
}

// RefreshCandidates queries the dish sources for the current list.
func (c *Controller) RefreshCandidates(ctx context.Context) error {
	c.mu.Lock()
	list, ok := c.machine.State().(flow.BrowseList)
	gen := c.viewGen
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: refresh outside the browse list", flow.ErrInvalidTransition)
	}
	if c.dishes == nil {
		return nil
	}

	dishes, err := c.dishes.Search(ctx, list.Search, list.Diet)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.viewGen != gen {
		return nil
	}
	if err != nil {
		c.warnLocked(WarnDishesFailed)
		return err
	}
	c.candidates = mergeCandidates(c.candidates, dishes)
	return nil
}

// BrowseOrigin adds the dishes of one origin to the list.
func (c *Controller) BrowseOrigin(ctx context.Context, area string) error {
	b, ok := c.dishes.(catalog.Browser)
	if !ok {
		return errors.New("dish source cannot browse by origin")
	}
	c.mu.Lock()
	_, inList := c.machine.State().(flow.BrowseList)
	gen := c.viewGen
	c.mu.Unlock()
	if !inList {
		return fmt.Errorf("%w: browse outside the browse list", flow.ErrInvalidTransition)
	}

	dishes, err := b.Browse(ctx, area)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.viewGen != gen {
		return nil
	}
	if err != nil {
		c.warnLocked(WarnDishesFailed)
		return err
	}
	c.candidates = mergeCandidates(c.candidates, dishes)
	return nil
}

// Candidates returns the dishes matching the list's diet and search text.
func (c *Controller) Candidates() []meal.Meal {
	c.mu.Lock()
	defer c.mu.Unlock()

	var list flow.BrowseList
	switch s := c.machine.State().(type) {
	case flow.BrowseList:
		list = s
	case flow.Details:
		list = s.List
	case flow.Committing:
		list = s.List
	default:
		return nil
	}

	term := strings.ToLower(list.Search)
	out := make([]meal.Meal, 0, len(c.candidates))
	for _, d := range c.candidates {
		if d.DietCategory != list.Diet {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(d.Name), term) {
			continue
		}
		out = append(out, d.Clone())
	}
	return out
}

func (c *Controller) ShowDish(dish meal.Meal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.ShowDish(dish)
}

func (c *Controller) BackToList() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.BackToList()
}

// SelectDish commits dish into the slot being filled. The flow returns to
// Idle once the backend confirms; on failure it goes back to the list with
// a warning. A second save for the same slot while one is pending fails
// with ErrCommitInFlight.
func (c *Controller) SelectDish(ctx context.Context, dish meal.Meal) (meal.Meal, error) {
	c.mu.Lock()
	date, slot := flow.Target(c.machine.State())
	key := slotKey{date, slot}
	if c.inFlight[key] {
		c.mu.Unlock()
		return meal.Meal{}, ErrCommitInFlight
	}
	pending, err := c.machine.BeginCommit(dish)
	if err != nil {
		c.mu.Unlock()
		return meal.Meal{}, err
	}
	c.inFlight[key] = true
	c.viewGen++
	gen := c.viewGen
	c.mu.Unlock()

	confirmed, err := c.store.CommitSelection(ctx, date, slot, pending.Dish, pending.List.Diet)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, key)
	current := c.viewGen == gen

	if err != nil {
		c.logger.Warn("commit selection failed",
			zap.String("date", date), zap.String("slot", string(slot)), zap.Error(err))
		if current {
			_ = c.machine.CommitFailed()
			c.warnLocked(WarnSaveFailed)
		}
		return meal.Meal{}, err
	}
	if current {
		_ = c.machine.CommitSucceeded()
		c.viewGen++
		c.candidates = nil
	}
	return confirmed, nil
}

// Cancel closes whatever modal is open and discards its pending results.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.machine.Cancel()
	c.viewGen++
	c.candidates = nil
}

// ---- day summary and details ----

type SlotLine struct {
	Slot meal.MealTime
	Meal *meal.Meal
}

type DaySummaryView struct {
	Date          string
	Slots         []SlotLine
	TotalCalories int
	IsPast        bool
}

// OpenDaySummary shows the popup for a planned day.
func (c *Controller) OpenDaySummary(date string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.machine.OpenSummary(date); err != nil {
		return err
	}
	c.viewGen++
	return nil
}

// DaySummary lists every slot of date with its meal, if any.
func (c *Controller) DaySummary(date string) DaySummaryView {
	plan := c.store.Day(date)
	v := DaySummaryView{Date: date, TotalCalories: plan.TotalCalories(), IsPast: meal.IsPast(date, c.now())}
	for _, t := range meal.MealTimes {
		line := SlotLine{Slot: t}
		if m, ok := plan[t]; ok {
			line.Meal = &m
		}
		v.Slots = append(v.Slots, line)
	}
	return v
}

// ChangeFromSummary starts filling slot of the summarised date, skipping
// the slot question.
func (c *Controller) ChangeFromSummary(slot meal.MealTime) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.machine.State().(flow.DaySummary)
	if !ok {
		return fmt.Errorf("%w: no day summary open", flow.ErrInvalidTransition)
	}
	if meal.IsPast(s.Date, c.now()) {
		c.warnLocked(WarnPastDate)
		return nil
	}
	if err := c.machine.ChangeFromSummary(slot); err != nil {
		return err
	}
	c.viewGen++
	c.candidates = nil
	return nil
}

// ViewDetails opens a planned meal, closing an open day summary.
func (c *Controller) ViewDetails(m meal.Meal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.machine.ViewMeal(m); err != nil {
		return err
	}
	c.viewGen++
	return nil
}

// EnrichDetails fetches catalog details for the meal being viewed and
// records them in the store. Nothing is applied if the view changed.
func (c *Controller) EnrichDetails(ctx context.Context) error {
	d, ok := c.dishes.(catalog.Detailer)
	if !ok {
		return nil
	}
	c.mu.Lock()
	v, viewing := c.machine.State().(flow.ViewingMeal)
	gen := c.viewGen
	c.mu.Unlock()
	if !viewing || v.Meal.CatalogID == "" {
		return nil
	}
	if len(v.Meal.Ingredients) > 0 && v.Meal.Instructions != "" && v.Meal.Image != "" {
		return nil
	}

	entry, found, err := d.Detail(ctx, v.Meal.CatalogID)
	if err != nil || !found {
		return err
	}
	enriched := v.Meal.WithDetailsFrom(meal.FromCatalog(entry))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.viewGen != gen {
		return nil
	}
	_ = c.machine.ViewMeal(enriched)
	if enriched.IsSlotted() {
		c.store.Annotate(enriched.Date, enriched.MealTime, enriched)
	}
	return nil
}

// RemoveMeal deletes the meal in (date, slot).
func (c *Controller) RemoveMeal(ctx context.Context, date string, slot meal.MealTime) error {
	key := slotKey{date, slot}
	c.mu.Lock()
	if c.inFlight[key] {
		c.mu.Unlock()
		return ErrCommitInFlight
	}
	c.inFlight[key] = true
	c.mu.Unlock()

	err := c.store.Remove(ctx, date, slot)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, key)
	if err != nil && !errors.Is(err, planstore.ErrEmptySlot) {
		c.warnLocked(WarnRemoveFailed)
	}
	return err
}

// ---- analytics ----

// Meals returns the full normalized history from the backend.
func (c *Controller) Meals(ctx context.Context) ([]meal.Meal, error) {
	if c.history == nil {
		return nil, errors.New("no history source configured")
	}
	rows, err := c.history.AllMeals(ctx)
	if err != nil {
		return nil, err
	}
	return meal.FromRows(rows), nil
}

// Insights aggregates the full history.
func (c *Controller) Insights(ctx context.Context) (analytics.Summary, error) {
	meals, err := c.Meals(ctx)
	if err != nil {
		return analytics.Summary{}, err
	}
	return analytics.Aggregate(meals, c.now()), nil
}

// mergeCandidates appends dishes not yet listed, keyed by catalog id or name.
func mergeCandidates(existing, incoming []meal.Meal) []meal.Meal {
	seen := make(map[string]bool, len(existing)+len(incoming))
	key := func(m meal.Meal) string {
		if m.CatalogID != "" {
			return "id:" + m.CatalogID
		}
		return "name:" + strings.ToLower(m.Name)
	}
	out := make([]meal.Meal, 0, len(existing)+len(incoming))
	for _, m := range existing {
		seen[key(m)] = true
		out = append(out, m)
	}
	for _, m := range incoming {
		if k := key(m); !seen[k] {
			seen[k] = true
			out = append(out, m)
		}
	}
	return out
}
