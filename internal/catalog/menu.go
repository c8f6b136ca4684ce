package catalog

import (
	"context"
	"strings"

	"github.com/fdg312/meal-planner/internal/meal"
)

// LocalMenu is the built-in dish list; unlike the remote catalog it knows
// calorie values.
type LocalMenu struct {
	entries []meal.CatalogEntry
}

// DefaultMenu returns the dishes shipped with the planner.
func DefaultMenu() *LocalMenu {
	return NewLocalMenu([]meal.CatalogEntry{
		{ID: "local-1", Name: "Idli", Classification: "Vegetarian", Area: "Indian", Calories: 120},
		{ID: "local-2", Name: "Chicken Rice", Classification: "Chicken", Area: "Indian", Calories: 350},
		{ID: "local-3", Name: "Paneer Butter Masala", Classification: "Vegetarian", Area: "Indian", Calories: 250},
		{ID: "local-4", Name: "Fish Curry", Classification: "Fish", Area: "Indian", Calories: 300},
	})
}

func NewLocalMenu(entries []meal.CatalogEntry) *LocalMenu {
	return &LocalMenu{entries: append([]meal.CatalogEntry(nil), entries...)}
}

// Search filters the menu by case-insensitive name substring and diet.
func (m *LocalMenu) Search(_ context.Context, term string, diet meal.DietCategory) ([]meal.Meal, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]meal.Meal, 0, len(m.entries))
	for _, e := range m.entries {
		dish := meal.FromCatalog(e)
		if diet.Known() && dish.DietCategory != diet {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(dish.Name), term) {
			continue
		}
		out = append(out, dish)
	}
	return out, nil
}

func (m *LocalMenu) Detail(_ context.Context, id string) (meal.CatalogEntry, bool, error) {
	for _, e := range m.entries {
		if e.ID == id {
			return e, true, nil
		}
	}
	return meal.CatalogEntry{}, false, nil
}
