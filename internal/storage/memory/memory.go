package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/meal-planner/internal/storage"
	"github.com/google/uuid"
)

// MemoryStorage: in-memory реализация PlannedMealsStorage
type MemoryStorage struct {
	mu    sync.RWMutex
	meals map[string]storage.PlannedMeal // key: id
	now   func() time.Time
}

// New создаёт пустой MemoryStorage
func New() *MemoryStorage {
	return &MemoryStorage{
		meals: make(map[string]storage.PlannedMeal),
		now:   time.Now,
	}
}

func (s *MemoryStorage) ListByDate(ctx context.Context, ownerUserID, date string) ([]storage.PlannedMeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []storage.PlannedMeal{}
	for _, m := range s.meals {
		if m.OwnerUserID == ownerUserID && m.MealDate == date {
			out = append(out, m)
		}
	}
	sortMeals(out)
	return out, nil
}

func (s *MemoryStorage) ListAll(ctx context.Context, ownerUserID string) ([]storage.PlannedMeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []storage.PlannedMeal{}
	for _, m := range s.meals {
		if m.OwnerUserID == ownerUserID {
			out = append(out, m)
		}
	}
	sortMeals(out)
	return out, nil
}

func (s *MemoryStorage) Get(ctx context.Context, ownerUserID, id string) (storage.PlannedMeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.meals[id]
	if !ok || m.OwnerUserID != ownerUserID {
		return storage.PlannedMeal{}, storage.ErrNotFound
	}
	return m, nil
}

func (s *MemoryStorage) Create(ctx context.Context, ownerUserID string, in storage.PlannedMealUpsert) (storage.PlannedMeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slotTakenLocked(ownerUserID, in.MealDate, in.MealType, "") {
		return storage.PlannedMeal{}, storage.ErrSlotTaken
	}

	now := s.now().UTC()
	m := storage.PlannedMeal{
		ID:          uuid.New().String(),
		OwnerUserID: ownerUserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	apply(&m, in)
	s.meals[m.ID] = m
	return m, nil
}

func (s *MemoryStorage) Update(ctx context.Context, ownerUserID, id string, in storage.PlannedMealUpsert) (storage.PlannedMeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.meals[id]
	if !ok || m.OwnerUserID != ownerUserID {
		return storage.PlannedMeal{}, storage.ErrNotFound
	}
	if s.slotTakenLocked(ownerUserID, in.MealDate, in.MealType, id) {
		return storage.PlannedMeal{}, storage.ErrSlotTaken
	}

	apply(&m, in)
	m.UpdatedAt = s.now().UTC()
	s.meals[id] = m
	return m, nil
}

func (s *MemoryStorage) Delete(ctx context.Context, ownerUserID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.meals[id]
	if !ok || m.OwnerUserID != ownerUserID {
		return storage.ErrNotFound
	}
	delete(s.meals, id)
	return nil
}

// Close: no-op для in-memory
func (s *MemoryStorage) Close() error {
	return nil
}

func (s *MemoryStorage) slotTakenLocked(ownerUserID, date, mealType, exceptID string) bool {
	for id, m := range s.meals {
		if id != exceptID && m.OwnerUserID == ownerUserID && m.MealDate == date && m.MealType == mealType {
			return true
		}
	}
	return false
}

func apply(m *storage.PlannedMeal, in storage.PlannedMealUpsert) {
	m.MealName = in.MealName
	m.MealType = in.MealType
	m.MealDate = in.MealDate
	m.MealID = in.MealID
	m.Calories = in.Calories
	m.IsVeg = in.IsVeg
}

// sortMeals orders by date, then creation time
func sortMeals(meals []storage.PlannedMeal) {
	sort.Slice(meals, func(i, j int) bool {
		if meals[i].MealDate != meals[j].MealDate {
			return meals[i].MealDate < meals[j].MealDate
		}
		return meals[i].CreatedAt.Before(meals[j].CreatedAt)
	})
}
