package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fdg312/meal-planner/internal/catalog"
	"github.com/fdg312/meal-planner/internal/flow"
	"github.com/fdg312/meal-planner/internal/meal"
	"github.com/fdg312/meal-planner/internal/planstore"
)

type fakeBackend struct {
	mu        sync.Mutex
	rows      map[string]meal.Row
	nextID    int
	saveErr   error
	saveGate  chan struct{}
	saveEnter chan struct{}
	loadGate  chan struct{}
	loadEnter chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{rows: make(map[string]meal.Row)}
}

func (f *fakeBackend) MealsForDate(ctx context.Context, date string) ([]meal.Row, error) {
	if f.loadEnter != nil {
		select {
		case f.loadEnter <- struct{}{}:
		default:
		}
	}
	if f.loadGate != nil {
		<-f.loadGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []meal.Row
	for _, r := range f.rows {
		if r.MealDate == date {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeBackend) AllMeals(ctx context.Context) ([]meal.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]meal.Row, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeBackend) save(id string, p meal.Payload) (meal.Row, error) {
	if f.saveEnter != nil {
		f.saveEnter <- struct{}{}
	}
	if f.saveGate != nil {
		<-f.saveGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return meal.Row{}, f.saveErr
	}
	if id == "" {
		f.nextID++
		id = fmt.Sprintf("srv-%d", f.nextID)
	}
	row := meal.Row{ID: id, Payload: p}
	f.rows[id] = row
	return row, nil
}

func (f *fakeBackend) Create(ctx context.Context, p meal.Payload) (meal.Row, error) {
	return f.save("", p)
}

func (f *fakeBackend) Update(ctx context.Context, id string, p meal.Payload) (meal.Row, error) {
	return f.save(id, p)
}

func (f *fakeBackend) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

func (f *fakeBackend) seed(id string, p meal.Payload) {
	f.mu.Lock()
	f.rows[id] = meal.Row{ID: id, Payload: p}
	f.mu.Unlock()
}

// detailSource wraps the local menu and serves extra details for one id.
type detailSource struct {
	*catalog.LocalMenu
	gate chan struct{}
}

func (d detailSource) Detail(ctx context.Context, id string) (meal.CatalogEntry, bool, error) {
	if d.gate != nil {
		<-d.gate
	}
	e, ok, err := d.LocalMenu.Detail(ctx, id)
	if ok {
		e.Instructions = "Simmer paneer in the gravy."
		e.Image = "https://img/" + id + ".jpg"
	}
	return e, ok, err
}

type failingDishes struct{}

func (failingDishes) Search(context.Context, string, meal.DietCategory) ([]meal.Meal, error) {
	return nil, errors.New("catalog down")
}

var fixedNow = time.Date(2026, 2, 15, 9, 0, 0, 0, time.Local)

func newController(t *testing.T, backend *fakeBackend, dishes catalog.Source) *Controller {
	t.Helper()
	if dishes == nil {
		dishes = catalog.DefaultMenu()
	}
	return New(Options{
		Store:   planstore.New(backend, nil),
		Dishes:  dishes,
		History: backend,
		Now:     func() time.Time { return fixedNow },
	})
}

func findDish(t *testing.T, c *Controller, name string) meal.Meal {
	t.Helper()
	for _, d := range c.Candidates() {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("dish %q not among candidates %v", name, c.Candidates())
	return meal.Meal{}
}

func TestPlanPaneerForLunch(t *testing.T) {
	backend := newFakeBackend()
	c := newController(t, backend, nil)
	ctx := context.Background()

	if !c.HandleDateClick("2026-02-20") {
		t.Fatal("expected flow to start for a future empty date")
	}
	if err := c.ChooseSlot(meal.Lunch); err != nil {
		t.Fatalf("ChooseSlot: %v", err)
	}

	// Another date clicked mid-flow is ignored.
	if c.HandleDateClick("2026-02-22") {
		t.Fatal("date click started a second flow")
	}
	if st, ok := c.State().(flow.TypeSelect); !ok || st.Date != "2026-02-20" || st.Slot != meal.Lunch {
		t.Fatalf("flow changed by mid-flow click: %#v", c.State())
	}
	if w, ok := c.Warning(); ok {
		t.Fatalf("unexpected warning %q", w.Message)
	}

	if err := c.ChooseDiet(meal.Veg); err != nil {
		t.Fatalf("ChooseDiet: %v", err)
	}
	if err := c.RefreshCandidates(ctx); err != nil {
		t.Fatalf("RefreshCandidates: %v", err)
	}
	dish := findDish(t, c, "Paneer Butter Masala")

	if _, err := c.SelectDish(ctx, dish); err != nil {
		t.Fatalf("SelectDish: %v", err)
	}

	got, ok := c.Store().Get("2026-02-20", meal.Lunch)
	if !ok || got.Calories != 250 || got.DietCategory != meal.Veg {
		t.Fatalf("unexpected stored meal %+v", got)
	}
	if got.ID == "" {
		t.Fatal("stored meal must carry the server identity")
	}
	if _, idle := c.State().(flow.Idle); !idle {
		t.Fatalf("expected Idle after commit, got %T", c.State())
	}
	if w, ok := c.Warning(); ok {
		t.Fatalf("unexpected warning %q", w.Message)
	}
}

func TestPastDateNeverStartsFlow(t *testing.T) {
	c := newController(t, newFakeBackend(), nil)

	for _, d := range []string{"2026-02-14", "2026-01-31", "2025-12-25"} {
		if c.HandleDateClick(d) {
			t.Fatalf("flow started for past date %s", d)
		}
		if _, idle := c.State().(flow.Idle); !idle {
			t.Fatalf("flow left Idle for past date %s", d)
		}
		w, ok := c.Warning()
		if !ok || w.Message != WarnPastDate {
			t.Fatalf("expected past-date warning, got %+v", w)
		}
		c.DismissWarning()
	}

	if !c.HandleDateClick("2026-02-15") {
		t.Fatal("today is not a past date")
	}
}

func TestPlannedDateRaisesWarning(t *testing.T) {
	backend := newFakeBackend()
	backend.seed("srv-1", meal.Payload{MealName: "Idli", MealType: "lunch", MealDate: "2026-02-20", Calories: 120, IsVeg: true})
	c := newController(t, backend, nil)
	if err := c.PreloadMonth(context.Background()); err != nil {
		t.Fatalf("PreloadMonth: %v", err)
	}

	if c.HandleDateClick("2026-02-20") {
		t.Fatal("flow must not start for a planned date")
	}
	if _, ok := c.State().(flow.TimeSelect); ok {
		t.Fatal("flow entered TimeSelect")
	}
	w, ok := c.Warning()
	if !ok || w.Message != WarnAlreadyPlanned {
		t.Fatalf("expected already-planned warning, got %+v", w)
	}
}

func TestCommitFailureReturnsToList(t *testing.T) {
	backend := newFakeBackend()
	backend.saveErr = errors.New("connection refused")
	c := newController(t, backend, nil)
	ctx := context.Background()

	c.HandleDateClick("2026-02-20")
	_ = c.ChooseSlot(meal.Dinner)
	_ = c.ChooseDiet(meal.NonVeg)
	_ = c.RefreshCandidates(ctx)
	dish := findDish(t, c, "Fish Curry")

	if _, err := c.SelectDish(ctx, dish); err == nil {
		t.Fatal("expected commit error")
	}
	s, ok := c.State().(flow.BrowseList)
	if !ok || s.Slot != meal.Dinner || s.Diet != meal.NonVeg {
		t.Fatalf("expected BrowseList for retry, got %#v", c.State())
	}
	if w, _ := c.Warning(); w.Message != WarnSaveFailed {
		t.Fatalf("expected save-failed warning, got %q", w.Message)
	}
	if c.Store().HasMeals("2026-02-20") {
		t.Fatal("store changed after failed commit")
	}

	backend.mu.Lock()
	backend.saveErr = nil
	backend.mu.Unlock()
	if _, err := c.SelectDish(ctx, dish); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !c.Store().HasMeals("2026-02-20") {
		t.Fatal("retry did not store the meal")
	}
}

func TestSecondCommitForSameSlotIsRejected(t *testing.T) {
	backend := newFakeBackend()
	backend.saveGate = make(chan struct{})
	backend.saveEnter = make(chan struct{}, 1)
	c := newController(t, backend, nil)
	ctx := context.Background()

	startList := func() {
		if !c.HandleDateClick("2026-02-20") {
			t.Fatal("flow did not start")
		}
		_ = c.ChooseSlot(meal.Lunch)
		_ = c.ChooseDiet(meal.Veg)
		_ = c.RefreshCandidates(ctx)
	}
	startList()
	idli := findDish(t, c, "Idli")

	done := make(chan error, 1)
	go func() {
		_, err := c.SelectDish(ctx, idli)
		done <- err
	}()
	<-backend.saveEnter

	if _, ok := c.State().(flow.Committing); !ok {
		t.Fatalf("expected Committing while the save is pending, got %T", c.State())
	}
	if c.Store().HasMeals("2026-02-20") {
		t.Fatal("store updated before confirmation")
	}

	// The user cancels and immediately tries the same slot again.
	c.Cancel()
	startList()
	if _, err := c.SelectDish(ctx, findDish(t, c, "Paneer Butter Masala")); !errors.Is(err, ErrCommitInFlight) {
		t.Fatalf("expected ErrCommitInFlight, got %v", err)
	}

	close(backend.saveGate)
	if err := <-done; err != nil {
		t.Fatalf("first commit: %v", err)
	}
	got, _ := c.Store().Get("2026-02-20", meal.Lunch)
	if got.Name != "Idli" {
		t.Fatalf("expected the first commit to win, got %q", got.Name)
	}
	// The stale completion must not drive the newer flow.
	if _, ok := c.State().(flow.BrowseList); !ok {
		t.Fatalf("expected the new flow to stay in BrowseList, got %T", c.State())
	}
}

func TestMonthNavigationDiscardsStalePreload(t *testing.T) {
	backend := newFakeBackend()
	backend.seed("srv-1", meal.Payload{MealName: "Idli", MealType: "breakfast", MealDate: "2026-02-20", IsVeg: true})
	backend.loadGate = make(chan struct{})
	backend.loadEnter = make(chan struct{}, 1)
	c := newController(t, backend, nil)

	done := make(chan error, 1)
	go func() { done <- c.PreloadMonth(context.Background()) }()
	<-backend.loadEnter

	c.NextMonth()
	close(backend.loadGate)
	if err := <-done; err != nil {
		t.Fatalf("PreloadMonth: %v", err)
	}
	if c.Store().HasMeals("2026-02-20") {
		t.Fatal("preload for the previous month was applied after navigation")
	}

	if !c.PrevMonth() {
		t.Fatal("expected to navigate back to the current month")
	}
	if c.PrevMonth() {
		t.Fatal("navigating before the current month must be disabled")
	}
	if err := c.PreloadMonth(context.Background()); err != nil {
		t.Fatalf("PreloadMonth: %v", err)
	}
	cell, ok := c.Month().Cell("2026-02-20")
	if !ok || !cell.HasMeals {
		t.Fatalf("expected 2026-02-20 to show meals, got %+v", cell)
	}
}

func TestCandidatesFilterBySearchAndDiet(t *testing.T) {
	c := newController(t, newFakeBackend(), nil)
	ctx := context.Background()

	c.HandleDateClick("2026-02-16")
	_ = c.ChooseSlot(meal.Dinner)
	_ = c.ChooseDiet(meal.NonVeg)
	_ = c.RefreshCandidates(ctx)

	if got := c.Candidates(); len(got) != 2 {
		t.Fatalf("expected 2 non-veg candidates, got %d", len(got))
	}
	_ = c.SetSearch("CURRY")
	got := c.Candidates()
	if len(got) != 1 || got[0].Name != "Fish Curry" {
		t.Fatalf("unexpected filtered candidates %v", got)
	}
	// A second refresh does not duplicate entries.
	_ = c.RefreshCandidates(ctx)
	if n := len(c.Candidates()); n != 1 {
		t.Fatalf("expected refresh to keep one match, got %d", n)
	}

	c.Cancel()
	if c.Candidates() != nil {
		t.Fatal("candidates leaked past cancel")
	}
}

func TestDishSourceFailureWarns(t *testing.T) {
	c := newController(t, newFakeBackend(), failingDishes{})
	c.HandleDateClick("2026-02-16")
	_ = c.ChooseSlot(meal.Snack)
	_ = c.ChooseDiet(meal.Veg)

	if err := c.RefreshCandidates(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if w, _ := c.Warning(); w.Message != WarnDishesFailed {
		t.Fatalf("expected dishes warning, got %q", w.Message)
	}
	if _, ok := c.State().(flow.BrowseList); !ok {
		t.Fatal("a dish source failure must keep the list open")
	}
}

func TestSummaryChangeAndDetails(t *testing.T) {
	backend := newFakeBackend()
	gate := make(chan struct{})
	c := newController(t, backend, detailSource{LocalMenu: catalog.DefaultMenu(), gate: gate})
	ctx := context.Background()
	close(gate)

	backend.seed("srv-7", meal.Payload{MealName: "Paneer Butter Masala", MealType: "lunch", MealDate: "2026-02-20", MealID: "local-3", Calories: 250, IsVeg: true})
	if err := c.PreloadMonth(ctx); err != nil {
		t.Fatalf("PreloadMonth: %v", err)
	}

	if err := c.OpenDaySummary("2026-02-20"); err != nil {
		t.Fatalf("OpenDaySummary: %v", err)
	}
	view := c.DaySummary("2026-02-20")
	if view.TotalCalories != 250 || len(view.Slots) != 4 || view.Slots[1].Meal == nil || view.Slots[0].Meal != nil {
		t.Fatalf("unexpected summary %+v", view)
	}

	if err := c.ViewDetails(*view.Slots[1].Meal); err != nil {
		t.Fatalf("ViewDetails: %v", err)
	}
	if _, ok := c.State().(flow.ViewingMeal); !ok {
		t.Fatalf("expected ViewingMeal to replace the summary, got %T", c.State())
	}
	if err := c.EnrichDetails(ctx); err != nil {
		t.Fatalf("EnrichDetails: %v", err)
	}
	v := c.State().(flow.ViewingMeal)
	if v.Meal.Instructions == "" || v.Meal.Image == "" {
		t.Fatalf("expected enriched meal, got %+v", v.Meal)
	}
	stored, _ := c.Store().Get("2026-02-20", meal.Lunch)
	if stored.Instructions == "" {
		t.Fatal("enrichment not recorded in the store")
	}

	c.Cancel()
	_ = c.OpenDaySummary("2026-02-20")
	if err := c.ChangeFromSummary(meal.Dinner); err != nil {
		t.Fatalf("ChangeFromSummary: %v", err)
	}
	ts, ok := c.State().(flow.TypeSelect)
	if !ok || ts.Date != "2026-02-20" || ts.Slot != meal.Dinner {
		t.Fatalf("expected TypeSelect preset to dinner, got %#v", c.State())
	}

	c.Cancel()
	_ = c.OpenDaySummary("2026-02-10")
	_ = c.ChangeFromSummary(meal.Dinner)
	if _, ok := c.State().(flow.DaySummary); !ok {
		t.Fatal("changing a past day must not start the flow")
	}
	if w, _ := c.Warning(); w.Message != WarnPastDate {
		t.Fatalf("expected past-date warning, got %q", w.Message)
	}
}

func TestEnrichDetailsDiscardedAfterClose(t *testing.T) {
	backend := newFakeBackend()
	gate := make(chan struct{})
	c := newController(t, backend, detailSource{LocalMenu: catalog.DefaultMenu(), gate: gate})

	planned := meal.Meal{ID: "srv-1", CatalogID: "local-3", Name: "Paneer Butter Masala", Date: "2026-02-20", MealTime: meal.Lunch}
	if err := c.ViewDetails(planned); err != nil {
		t.Fatalf("ViewDetails: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- c.EnrichDetails(context.Background()) }()

	c.Cancel()
	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("EnrichDetails: %v", err)
	}
	if _, idle := c.State().(flow.Idle); !idle {
		t.Fatalf("stale enrichment reopened a modal: %T", c.State())
	}
}

func TestInsightsAndRemove(t *testing.T) {
	backend := newFakeBackend()
	backend.seed("a", meal.Payload{MealName: "Idli", MealType: "breakfast", MealDate: "2026-02-14", Calories: 120, IsVeg: true})
	backend.seed("b", meal.Payload{MealName: "Chicken Rice", MealType: "dinner", MealDate: "2026-02-15", Calories: 350})
	c := newController(t, backend, nil)
	ctx := context.Background()

	s, err := c.Insights(ctx)
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	if s.TotalMeals != 2 || s.TotalCalories7Days != 470 || s.DaysPlanned7Days != 2 || s.VegPercentage != 50 {
		t.Fatalf("unexpected insights %+v", s)
	}

	if err := c.PreloadMonth(ctx); err != nil {
		t.Fatalf("PreloadMonth: %v", err)
	}
	if err := c.RemoveMeal(ctx, "2026-02-15", meal.Dinner); err != nil {
		t.Fatalf("RemoveMeal: %v", err)
	}
	if c.Store().HasMeals("2026-02-15") {
		t.Fatal("meal still planned after removal")
	}
	if err := c.RemoveMeal(ctx, "2026-02-15", meal.Dinner); !errors.Is(err, planstore.ErrEmptySlot) {
		t.Fatalf("expected ErrEmptySlot, got %v", err)
	}
	if _, ok := c.Warning(); ok {
		t.Fatal("removing an empty slot should not warn")
	}
}
