package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fdg312/meal-planner/internal/analytics"
	"github.com/fdg312/meal-planner/internal/calendar"
	"github.com/fdg312/meal-planner/internal/flow"
	"github.com/fdg312/meal-planner/internal/meal"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Bold(true)
	pastStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	plannedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	todayStyle    = lipgloss.NewStyle().Underline(true)
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("63")).Foreground(lipgloss.Color("0"))
	warningStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("203")).Padding(0, 2)
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1, 2)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle     = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244"))
)

const cellWidth = 7

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderCalendar(m.ctrl.Month()))
	b.WriteString("\n")

	if popup, help := m.renderPopup(); popup != "" {
		b.WriteString(panelStyle.Render(popup))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render(help))
	} else {
		b.WriteString(helpStyle.Render("←↑↓→ move · enter plan · s summary · n/p month · i insights · q quit"))
	}

	if w, ok := m.ctrl.Warning(); ok {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render(w.Message + "\n\n(press any key)"))
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(m.status))
	}
	return b.String()
}

func (m Model) renderCalendar(month calendar.Month) string {
	var b strings.Builder
	nav := "‹ " + month.Title + " ›"
	if month.PrevDisabled {
		nav = "  " + month.Title + " ›"
	}
	b.WriteString(titleStyle.Render(nav))
	b.WriteString("\n")

	for _, wd := range calendar.Weekdays {
		b.WriteString(headerStyle.Render(pad(wd)))
	}
	b.WriteString("\n")

	for _, week := range month.Weeks() {
		for _, c := range week {
			if c == nil {
				b.WriteString(pad(""))
				continue
			}
			b.WriteString(m.renderCell(*c))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderCell(c calendar.Cell) string {
	label := fmt.Sprintf("%2d", c.Day)
	if c.HasMeals {
		label += " 🍽"
	}
	text := pad(label)

	style := lipgloss.NewStyle()
	switch {
	case c.IsPast:
		style = pastStyle
	case c.HasMeals:
		style = plannedStyle
	}
	if c.IsToday {
		style = style.Inherit(todayStyle)
	}
	if c.Date == m.cursor {
		style = selectedStyle
	}
	return style.Render(text)
}

// renderPopup draws whatever the flow or the insights toggle has open,
// with its key help.
func (m Model) renderPopup() (string, string) {
	if m.showInsights && m.insights != nil {
		return renderInsights(*m.insights), "c export CSV · p export PDF · esc close"
	}

	switch s := m.ctrl.State().(type) {
	case flow.TimeSelect:
		var b strings.Builder
		fmt.Fprintf(&b, "Plan a meal for %s\n\n", s.Date)
		for i, t := range meal.MealTimes {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, t.Title())
		}
		return b.String(), "1-4 choose slot · esc cancel"

	case flow.TypeSelect:
		return fmt.Sprintf("%s on %s\n\n[v] Veg\n[n] Non-Veg", s.Slot.Title(), s.Date), "v/n choose · esc cancel"

	case flow.BrowseList:
		header := fmt.Sprintf("%s dishes for %s on %s", s.Diet, s.Slot.Title(), s.Date)
		body := header + "\n" + m.search.View() + "\n" + m.dishes.View()
		return body, "/ search · o browse origin · enter details · esc cancel"

	case flow.Details:
		return renderMeal(s.Dish), "enter add to plan · b back · esc cancel"

	case flow.Committing:
		return "Saving " + s.Dish.Name + "...", "esc cancel"

	case flow.DaySummary:
		return m.renderSummary(s.Date), "↑↓ slot · enter view · c change · x remove · esc close"

	case flow.ViewingMeal:
		return renderMeal(s.Meal), "esc close"
	}
	return "", ""
}

func (m Model) renderSummary(date string) string {
	v := m.ctrl.DaySummary(date)
	var b strings.Builder
	fmt.Fprintf(&b, "Meals on %s\n\n", v.Date)
	for i, line := range v.Slots {
		name := "-"
		if line.Meal != nil {
			name = fmt.Sprintf("%s (%d kcal)", line.Meal.Name, line.Meal.Calories)
		}
		row := fmt.Sprintf("%-10s %s", line.Slot.Title(), name)
		if i == m.slotIdx {
			row = selectedStyle.Render(row)
		}
		b.WriteString(row + "\n")
	}
	fmt.Fprintf(&b, "\nTotal: %d kcal", v.TotalCalories)
	if v.IsPast {
		b.WriteString("  (past)")
	}
	return b.String()
}

func renderMeal(d meal.Meal) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(d.Name))
	b.WriteString("\n")
	meta := []string{string(d.DietCategory)}
	if d.Area != "" {
		meta = append(meta, d.Area)
	}
	if d.Calories > 0 {
		meta = append(meta, fmt.Sprintf("%d kcal", d.Calories))
	}
	b.WriteString(strings.Join(meta, " · "))
	if d.Image != "" {
		b.WriteString("\n" + d.Image)
	}
	if len(d.Ingredients) > 0 {
		b.WriteString("\n\nIngredients:\n")
		for _, ing := range d.Ingredients {
			b.WriteString("  • " + ing + "\n")
		}
	}
	if d.Instructions != "" {
		b.WriteString("\n" + d.Instructions)
	}
	return b.String()
}

func renderInsights(s analytics.Summary) string {
	if s.Empty() {
		return "Meal Insights\n\nNo meals planned yet."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Meal Insights"))
	fmt.Fprintf(&b, "\n\nMeals planned:       %d", s.TotalMeals)
	fmt.Fprintf(&b, "\nCalories (all time):  %d", s.TotalCaloriesAllTime)
	fmt.Fprintf(&b, "\nLast 7 days:          %d kcal, %d days planned, %d kcal/day", s.TotalCalories7Days, s.DaysPlanned7Days, s.AvgPerDay7Days)
	fmt.Fprintf(&b, "\nMost eaten:           %s (%dx)", s.MostEatenMealName, s.MaxEatenTimes)
	fmt.Fprintf(&b, "\nVeg / Non-Veg:        %d / %d (%d%% veg)", s.VegCount, s.NonVegCount, s.VegPercentage)
	b.WriteString("\n\nBy slot:")
	for _, t := range meal.MealTimes {
		fmt.Fprintf(&b, "\n  %-10s %d kcal", t.Title(), s.SlotCalories[t])
	}
	return b.String()
}

func pad(s string) string {
	return lipgloss.NewStyle().Width(cellWidth).Render(s)
}
