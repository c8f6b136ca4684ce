package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("planned meal not found")
	ErrSlotTaken = errors.New("slot already planned")
)

// PlannedMeal: строка planned_meals
type PlannedMeal struct {
	ID          string
	OwnerUserID string
	MealName    string
	MealType    string // breakfast|lunch|snack|dinner
	MealDate    string // YYYY-MM-DD
	MealID      string // catalog id, may be empty
	Calories    int
	IsVeg       bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PlannedMealUpsert: поля, которые клиент может записать
type PlannedMealUpsert struct {
	MealName string
	MealType string
	MealDate string
	MealID   string
	Calories int
	IsVeg    bool
}

// PlannedMealsStorage: интерфейс для работы с запланированными блюдами.
// (owner, meal_date, meal_type) уникальны: Create и Update возвращают
// ErrSlotTaken при конфликте.
type PlannedMealsStorage interface {
	// ListByDate возвращает блюда за день
	ListByDate(ctx context.Context, ownerUserID, date string) ([]PlannedMeal, error)

	// ListAll возвращает всю историю, отсортированную по дате
	ListAll(ctx context.Context, ownerUserID string) ([]PlannedMeal, error)

	Get(ctx context.Context, ownerUserID, id string) (PlannedMeal, error)

	Create(ctx context.Context, ownerUserID string, in PlannedMealUpsert) (PlannedMeal, error)

	Update(ctx context.Context, ownerUserID, id string, in PlannedMealUpsert) (PlannedMeal, error)

	// Delete возвращает ErrNotFound, если строки нет
	Delete(ctx context.Context, ownerUserID, id string) error

	// Close закрывает соединение (для Postgres)
	Close() error
}
