// Package tui is the terminal front end of the planner: a month calendar
// with the selection flow, day summaries and insights drawn as popups.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fdg312/meal-planner/internal/analytics"
	"github.com/fdg312/meal-planner/internal/calendar"
	"github.com/fdg312/meal-planner/internal/flow"
	"github.com/fdg312/meal-planner/internal/meal"
	"github.com/fdg312/meal-planner/internal/planner"
	"github.com/fdg312/meal-planner/internal/reports"
)

// Exporter stores an insights report and returns where it went.
type Exporter interface {
	Export(ctx context.Context, format string, meals []meal.Meal) (*reports.Report, error)
}

type (
	monthLoadedMsg struct{ err error }
	candidatesMsg  struct{ err error }
	committedMsg   struct {
		meal meal.Meal
		err  error
	}
	detailsMsg  struct{ err error }
	removedMsg  struct{ err error }
	insightsMsg struct {
		summary analytics.Summary
		err     error
	}
	exportedMsg struct {
		report *reports.Report
		err    error
	}
)

// dishItem implements list.Item for a candidate dish.
type dishItem struct {
	dish meal.Meal
}

func (d dishItem) Title() string { return d.dish.Name }

func (d dishItem) Description() string {
	parts := []string{string(d.dish.DietCategory)}
	if d.dish.Area != "" {
		parts = append(parts, d.dish.Area)
	}
	if d.dish.Calories > 0 {
		parts = append(parts, fmt.Sprintf("%d kcal", d.dish.Calories))
	}
	return strings.Join(parts, " · ")
}

func (d dishItem) FilterValue() string { return d.dish.Name }

// Model is the Bubble Tea model. All plan state lives in the controller;
// the model only keeps cursor positions and what is currently shown.
type Model struct {
	ctx      context.Context
	ctrl     *planner.Controller
	exporter Exporter
	now      func() time.Time

	cursor  string // selected date
	slotIdx int    // selected line in the day summary

	dishes    list.Model
	search    textinput.Model
	searching bool

	insights     *analytics.Summary
	showInsights bool

	status string
	width  int
	height int
}

// New builds the model with the cursor on today.
func New(ctx context.Context, ctrl *planner.Controller, exporter Exporter, now func() time.Time) Model {
	if now == nil {
		now = time.Now
	}

	dishes := list.New(nil, list.NewDefaultDelegate(), 60, 14)
	dishes.Title = "Dishes"
	dishes.SetShowHelp(false)
	dishes.SetFilteringEnabled(false)

	search := textinput.New()
	search.Placeholder = "search dishes"
	search.Prompt = "/ "
	search.CharLimit = 64

	return Model{
		ctx:      ctx,
		ctrl:     ctrl,
		exporter: exporter,
		now:      now,
		cursor:   meal.DateKey(now()),
		dishes:   dishes,
		search:   search,
	}
}

func (m Model) Init() tea.Cmd {
	return m.preloadCmd()
}

// ---- commands ----

func (m Model) preloadCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return monthLoadedMsg{err: ctrl.PreloadMonth(ctx)}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return candidatesMsg{err: ctrl.RefreshCandidates(ctx)}
	}
}

func (m Model) browseCmd(area string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return candidatesMsg{err: ctrl.BrowseOrigin(ctx, area)}
	}
}

func (m Model) commitCmd(dish meal.Meal) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		saved, err := ctrl.SelectDish(ctx, dish)
		return committedMsg{meal: saved, err: err}
	}
}

func (m Model) enrichCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return detailsMsg{err: ctrl.EnrichDetails(ctx)}
	}
}

func (m Model) removeCmd(date string, slot meal.MealTime) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return removedMsg{err: ctrl.RemoveMeal(ctx, date, slot)}
	}
}

func (m Model) insightsCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		s, err := ctrl.Insights(ctx)
		return insightsMsg{summary: s, err: err}
	}
}

func (m Model) exportCmd(format string) tea.Cmd {
	if m.exporter == nil {
		return nil
	}
	ctrl, ctx, exporter := m.ctrl, m.ctx, m.exporter
	return func() tea.Msg {
		meals, err := ctrl.Meals(ctx)
		if err != nil {
			return exportedMsg{err: err}
		}
		r, err := exporter.Export(ctx, format, meals)
		return exportedMsg{report: r, err: err}
	}
}

// ---- update ----

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.dishes.SetSize(min(msg.Width, 80), max(msg.Height-12, 6))
		return m, nil

	case monthLoadedMsg:
		if msg.err != nil {
			m.status = "Some days could not be loaded: " + msg.err.Error()
		}
		return m, nil

	case candidatesMsg:
		cmd := m.syncDishes()
		return m, cmd

	case committedMsg:
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		switch {
		case errors.Is(msg.err, planner.ErrCommitInFlight):
			m.status = "Still saving that slot"
		case msg.err != nil:
			m.status = ""
		default:
			m.status = fmt.Sprintf("Planned %s for %s on %s", msg.meal.Name, msg.meal.MealTime, msg.meal.Date)
		}
		cmd := m.syncDishes()
		return m, cmd

	case detailsMsg, removedMsg:
		return m, nil

	case insightsMsg:
		if msg.err != nil {
			m.status = "Could not load insights: " + msg.err.Error()
			return m, nil
		}
		m.insights = &msg.summary
		m.showInsights = true
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.status = "Export failed: " + msg.err.Error()
		} else {
			m.status = "Report saved: " + msg.report.DownloadURL
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if _, ok := m.ctrl.Warning(); ok {
			m.ctrl.DismissWarning()
			return m, nil
		}
		if m.showInsights {
			return m.updateInsights(msg)
		}

		switch s := m.ctrl.State().(type) {
		case flow.Idle:
			return m.updateCalendar(msg)
		case flow.TimeSelect:
			return m.updateTimeSelect(msg)
		case flow.TypeSelect:
			return m.updateTypeSelect(msg)
		case flow.BrowseList:
			return m.updateBrowse(msg)
		case flow.Details:
			return m.updateDetails(msg, s)
		case flow.Committing:
			if msg.String() == "esc" {
				m.ctrl.Cancel()
			}
			return m, nil
		case flow.DaySummary:
			return m.updateSummary(msg, s)
		case flow.ViewingMeal:
			if msg.String() == "esc" || msg.String() == "q" {
				m.ctrl.Cancel()
			}
			return m, nil
		}
	}
	return m, nil
}

func (m Model) updateCalendar(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "left", "h":
		return m.moveCursor(-1)
	case "right", "l":
		return m.moveCursor(1)
	case "up", "k":
		return m.moveCursor(-7)
	case "down", "j":
		return m.moveCursor(7)
	case "n", "]":
		m.ctrl.NextMonth()
		m.cursor = firstOfMonth(m.ctrl.Month())
		return m, m.preloadCmd()
	case "p", "[":
		if m.ctrl.PrevMonth() {
			m.cursor = firstOfMonth(m.ctrl.Month())
			return m, m.preloadCmd()
		}
		return m, nil
	case "enter", " ":
		m.status = ""
		m.ctrl.HandleDateClick(m.cursor)
		return m, nil
	case "s":
		if m.ctrl.Store().HasMeals(m.cursor) {
			if err := m.ctrl.OpenDaySummary(m.cursor); err == nil {
				m.slotIdx = 0
			}
		}
		return m, nil
	case "i":
		return m, m.insightsCmd()
	}
	return m, nil
}

// moveCursor shifts the selected date, following it into the adjacent
// month. The cursor never moves before the current month.
func (m Model) moveCursor(days int) (tea.Model, tea.Cmd) {
	next, err := meal.AddDays(m.cursor, days)
	if err != nil {
		return m, nil
	}
	month := m.ctrl.Month()
	t, _ := meal.ParseDate(next)
	switch {
	case t.Year() == month.Year && t.Month() == month.Month:
		m.cursor = next
		return m, nil
	case next > m.cursor:
		m.ctrl.NextMonth()
	default:
		if !m.ctrl.PrevMonth() {
			return m, nil
		}
	}
	m.cursor = next
	return m, m.preloadCmd()
}

func (m Model) updateTimeSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "esc" {
		m.ctrl.Cancel()
		return m, nil
	}
	if slot, ok := slotForKey(key); ok {
		_ = m.ctrl.ChooseSlot(slot)
	}
	return m, nil
}

func (m Model) updateTypeSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var diet meal.DietCategory
	switch msg.String() {
	case "esc":
		m.ctrl.Cancel()
		return m, nil
	case "v", "1":
		diet = meal.Veg
	case "n", "2":
		diet = meal.NonVeg
	default:
		return m, nil
	}
	if err := m.ctrl.ChooseDiet(diet); err != nil {
		return m, nil
	}
	m.search.SetValue("")
	sync := m.syncDishes()
	return m, tea.Batch(sync, m.refreshCmd())
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.String() {
		case "enter":
			m.searching = false
			m.search.Blur()
			return m, m.refreshCmd()
		case "esc":
			m.searching = false
			m.search.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		_ = m.ctrl.SetSearch(m.search.Value())
		sync := m.syncDishes()
		return m, tea.Batch(cmd, sync)
	}

	switch msg.String() {
	case "esc":
		m.ctrl.Cancel()
		m.search.SetValue("")
		cmd := m.syncDishes()
		return m, cmd
	case "/":
		m.searching = true
		cmd := m.search.Focus()
		return m, cmd
	case "o":
		if area := strings.TrimSpace(m.search.Value()); area != "" {
			return m, m.browseCmd(area)
		}
		return m, nil
	case "enter":
		if item, ok := m.dishes.SelectedItem().(dishItem); ok {
			_ = m.ctrl.ShowDish(item.dish)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.dishes, cmd = m.dishes.Update(msg)
	return m, cmd
}

func (m Model) updateDetails(msg tea.KeyMsg, s flow.Details) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.ctrl.Cancel()
		cmd := m.syncDishes()
		return m, cmd
	case "backspace", "b":
		_ = m.ctrl.BackToList()
		return m, nil
	case "enter", "a":
		m.status = "Saving " + s.Dish.Name + "..."
		return m, m.commitCmd(s.Dish)
	}
	return m, nil
}

func (m Model) updateSummary(msg tea.KeyMsg, s flow.DaySummary) (tea.Model, tea.Cmd) {
	slot := meal.MealTimes[m.slotIdx]
	switch msg.String() {
	case "esc", "q":
		m.ctrl.Cancel()
	case "up", "k":
		m.slotIdx = (m.slotIdx + len(meal.MealTimes) - 1) % len(meal.MealTimes)
	case "down", "j":
		m.slotIdx = (m.slotIdx + 1) % len(meal.MealTimes)
	case "enter":
		if planned, ok := m.ctrl.Store().Get(s.Date, slot); ok {
			if err := m.ctrl.ViewDetails(planned); err == nil {
				return m, m.enrichCmd()
			}
		}
	case "c":
		_ = m.ctrl.ChangeFromSummary(slot)
	case "x":
		if _, ok := m.ctrl.Store().Get(s.Date, slot); ok {
			return m, m.removeCmd(s.Date, slot)
		}
	}
	return m, nil
}

func (m Model) updateInsights(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "i":
		m.showInsights = false
	case "c":
		m.status = "Exporting CSV..."
		return m, m.exportCmd(reports.FormatCSV)
	case "p":
		m.status = "Exporting PDF..."
		return m, m.exportCmd(reports.FormatPDF)
	}
	return m, nil
}

// syncDishes mirrors the controller's filtered candidates into the list.
func (m *Model) syncDishes() tea.Cmd {
	candidates := m.ctrl.Candidates()
	items := make([]list.Item, len(candidates))
	for i, d := range candidates {
		items[i] = dishItem{dish: d}
	}
	return m.dishes.SetItems(items)
}

func slotForKey(key string) (meal.MealTime, bool) {
	switch key {
	case "1", "b":
		return meal.Breakfast, true
	case "2", "l":
		return meal.Lunch, true
	case "3", "s":
		return meal.Snack, true
	case "4", "d":
		return meal.Dinner, true
	}
	return "", false
}

func firstOfMonth(month calendar.Month) string {
	if len(month.Cells) == 0 {
		return ""
	}
	return month.Cells[0].Date
}
