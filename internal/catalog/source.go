package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fdg312/meal-planner/internal/meal"
)

// Source yields dish candidates for the browse list.
type Source interface {
	Search(ctx context.Context, term string, diet meal.DietCategory) ([]meal.Meal, error)
}

// Detailer resolves the full entry behind a catalog id.
type Detailer interface {
	Detail(ctx context.Context, id string) (meal.CatalogEntry, bool, error)
}

// Browser lists dishes by origin.
type Browser interface {
	Browse(ctx context.Context, area string) ([]meal.Meal, error)
}

// Multi merges several sources. A failing source is logged and skipped;
// Search only fails when every source fails.
type Multi struct {
	sources []Source
	logger  *zap.Logger
}

func NewMulti(logger *zap.Logger, sources ...Source) *Multi {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Multi{sources: sources, logger: logger}
}

func (m *Multi) Search(ctx context.Context, term string, diet meal.DietCategory) ([]meal.Meal, error) {
	var (
		out  []meal.Meal
		errs []error
	)
	for i, s := range m.sources {
		dishes, err := s.Search(ctx, term, diet)
		if err != nil {
			m.logger.Warn("dish source failed", zap.Int("source", i), zap.String("term", term), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		out = append(out, dishes...)
	}
	if len(errs) > 0 && len(errs) == len(m.sources) {
		return nil, fmt.Errorf("all dish sources failed: %w", errors.Join(errs...))
	}
	return out, nil
}

func (m *Multi) Detail(ctx context.Context, id string) (meal.CatalogEntry, bool, error) {
	var lastErr error
	for _, s := range m.sources {
		d, ok := s.(Detailer)
		if !ok {
			continue
		}
		e, found, err := d.Detail(ctx, id)
		if err != nil {
			lastErr = err
			continue
		}
		if found {
			return e, true, nil
		}
	}
	return meal.CatalogEntry{}, false, lastErr
}

func (m *Multi) Browse(ctx context.Context, area string) ([]meal.Meal, error) {
	for _, s := range m.sources {
		if b, ok := s.(Browser); ok {
			return b.Browse(ctx, area)
		}
	}
	return nil, errors.New("no source supports browsing by origin")
}
