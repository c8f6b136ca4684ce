package plannedmeals

import (
	"context"
	"fmt"
	"time"

	"github.com/fdg312/meal-planner/internal/analytics"
	"github.com/fdg312/meal-planner/internal/meal"
	"github.com/fdg312/meal-planner/internal/reports"
	"github.com/fdg312/meal-planner/internal/storage"
)

// Service handles planned meals business logic.
type Service struct {
	storage storage.PlannedMealsStorage
	reports *reports.Service
	now     func() time.Time
}

// NewService creates a new planned meals service. reportsSvc may be nil;
// reports are then rendered without being stored.
func NewService(storage storage.PlannedMealsStorage, reportsSvc *reports.Service) *Service {
	if reportsSvc == nil {
		reportsSvc = reports.NewService(nil, "", 0)
	}
	return &Service{storage: storage, reports: reportsSvc, now: time.Now}
}

func (s *Service) ListByDate(ctx context.Context, ownerUserID, date string) ([]meal.Row, error) {
	date = meal.DateOnly(date)
	if !meal.ValidDate(date) {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	meals, err := s.storage.ListByDate(ctx, ownerUserID, date)
	if err != nil {
		return nil, err
	}
	return toRows(meals), nil
}

func (s *Service) ListAll(ctx context.Context, ownerUserID string) ([]meal.Row, error) {
	meals, err := s.storage.ListAll(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	return toRows(meals), nil
}

func (s *Service) Create(ctx context.Context, ownerUserID string, req MealRequest) (meal.Row, error) {
	if err := req.Validate(); err != nil {
		return meal.Row{}, err
	}
	m, err := s.storage.Create(ctx, ownerUserID, req.toUpsert())
	if err != nil {
		return meal.Row{}, err
	}
	return toRow(m), nil
}

func (s *Service) Update(ctx context.Context, ownerUserID, id string, req MealRequest) (meal.Row, error) {
	if err := req.Validate(); err != nil {
		return meal.Row{}, err
	}
	m, err := s.storage.Update(ctx, ownerUserID, id, req.toUpsert())
	if err != nil {
		return meal.Row{}, err
	}
	return toRow(m), nil
}

func (s *Service) Delete(ctx context.Context, ownerUserID, id string) error {
	return s.storage.Delete(ctx, ownerUserID, id)
}

// Insights aggregates the owner's full history.
func (s *Service) Insights(ctx context.Context, ownerUserID string) (analytics.Summary, error) {
	rows, err := s.ListAll(ctx, ownerUserID)
	if err != nil {
		return analytics.Summary{}, err
	}
	return analytics.FromRows(rows, s.now()), nil
}

// Report renders the owner's history as pdf or csv.
func (s *Service) Report(ctx context.Context, ownerUserID, format string) ([]byte, string, error) {
	format, err := reports.ParseFormat(format)
	if err != nil {
		return nil, "", err
	}
	rows, err := s.ListAll(ctx, ownerUserID)
	if err != nil {
		return nil, "", err
	}
	data, err := s.reports.Render(format, meal.FromRows(rows))
	if err != nil {
		return nil, "", err
	}
	return data, reports.ContentType(format), nil
}
