package reports

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/fdg312/meal-planner/internal/analytics"
	"github.com/fdg312/meal-planner/internal/blob"
	"github.com/fdg312/meal-planner/internal/meal"
	"github.com/google/uuid"
)

// Service renders reports and stores them in blob storage.
type Service struct {
	generator  *Generator
	blobStore  blob.Store
	prefix     string
	presignTTL int
	now        func() time.Time
}

// NewService creates a reports service writing under prefix.
func NewService(blobStore blob.Store, prefix string, presignTTL int) *Service {
	if prefix == "" {
		prefix = "reports"
	}
	return &Service{
		generator:  NewGenerator(),
		blobStore:  blobStore,
		prefix:     prefix,
		presignTTL: presignTTL,
		now:        time.Now,
	}
}

// Render returns the report bytes without storing them.
func (s *Service) Render(format string, meals []meal.Meal) ([]byte, error) {
	format, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return s.generator.Generate(format, analytics.Aggregate(meals, s.now()), meals)
}

// Export renders the history and saves it as
// <prefix>/insights-<date>-<uuid>.<ext>.
func (s *Service) Export(ctx context.Context, format string, meals []meal.Meal) (*Report, error) {
	format, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	if s.blobStore == nil {
		return nil, fmt.Errorf("report storage not configured")
	}

	now := s.now()
	data, err := s.generator.Generate(format, analytics.Aggregate(meals, now), meals)
	if err != nil {
		return nil, err
	}

	key := path.Join(s.prefix, fmt.Sprintf("insights-%s-%s.%s", meal.DateKey(now), uuid.NewString(), format))
	size, err := s.blobStore.PutObject(ctx, key, data, ContentType(format))
	if err != nil {
		return nil, fmt.Errorf("failed to upload report: %w", err)
	}

	report := &Report{Key: key, Format: format, SizeBytes: size, CreatedAt: now.UTC()}
	if url, err := s.blobStore.PresignGet(ctx, key, s.presignTTL); err == nil {
		report.DownloadURL = url
	}
	return report, nil
}
