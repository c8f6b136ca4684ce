package plannedmeals

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fdg312/meal-planner/internal/meal"
	"github.com/fdg312/meal-planner/internal/storage"
)

var ErrValidation = errors.New("validation failed")

// MealRequest is the body of POST /meals and PUT /meals/{id}.
type MealRequest meal.Payload

// Validate normalizes the request in place and checks its fields.
func (r *MealRequest) Validate() error {
	r.MealName = strings.TrimSpace(r.MealName)
	r.MealType = strings.ToLower(strings.TrimSpace(r.MealType))
	r.MealDate = meal.DateOnly(strings.TrimSpace(r.MealDate))
	r.MealID = strings.TrimSpace(r.MealID)

	if n := utf8.RuneCountInString(r.MealName); n < 1 || n > 200 {
		return fmt.Errorf("%w: meal_name must be between 1 and 200 characters", ErrValidation)
	}
	if !meal.MealTime(r.MealType).Valid() {
		return fmt.Errorf("%w: meal_type must be one of breakfast, lunch, snack, dinner", ErrValidation)
	}
	if !meal.ValidDate(r.MealDate) {
		return fmt.Errorf("%w: meal_date must be YYYY-MM-DD", ErrValidation)
	}
	if r.Calories < 0 || r.Calories > 10000 {
		return fmt.Errorf("%w: calories must be 0-10000", ErrValidation)
	}
	return nil
}

func (r MealRequest) toUpsert() storage.PlannedMealUpsert {
	return storage.PlannedMealUpsert{
		MealName: r.MealName,
		MealType: r.MealType,
		MealDate: r.MealDate,
		MealID:   r.MealID,
		Calories: r.Calories,
		IsVeg:    r.IsVeg,
	}
}

// toRow renders a stored record in the wire shape the planner consumes.
func toRow(m storage.PlannedMeal) meal.Row {
	return meal.Row{
		ID: m.ID,
		Payload: meal.Payload{
			MealName: m.MealName,
			MealType: m.MealType,
			MealDate: m.MealDate,
			MealID:   m.MealID,
			Calories: m.Calories,
			IsVeg:    m.IsVeg,
		},
	}
}

func toRows(meals []storage.PlannedMeal) []meal.Row {
	rows := make([]meal.Row, len(meals))
	for i, m := range meals {
		rows[i] = toRow(m)
	}
	return rows
}

// DeleteResponse acknowledges DELETE /meals/{id}.
type DeleteResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}
