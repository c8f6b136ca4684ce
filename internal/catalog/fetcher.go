package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fdg312/meal-planner/internal/meal"
)

// Remote is the third-party recipe catalog.
type Remote interface {
	Search(ctx context.Context, name string) ([]meal.CatalogEntry, error)
	Lookup(ctx context.Context, id string) (meal.CatalogEntry, bool, error)
	FilterByArea(ctx context.Context, area string) ([]meal.CatalogEntry, error)
}

// Fetcher resolves catalog dishes through the cache, falling back to the
// remote catalog in rate-limited batches.
type Fetcher struct {
	remote     Remote
	cache      *Cache
	batchSize  int
	batchDelay time.Duration
	logger     *zap.Logger

	wait func(ctx context.Context, d time.Duration) error
}

func NewFetcher(remote Remote, cache *Cache, batchSize int, batchDelay time.Duration, logger *zap.Logger) *Fetcher {
	if batchSize <= 0 {
		batchSize = 1
	}
	if cache == nil {
		cache = NewCache(nil, "")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		remote:     remote,
		cache:      cache,
		batchSize:  batchSize,
		batchDelay: batchDelay,
		logger:     logger,
		wait:       sleepCtx,
	}
}

// Resolution is the outcome of a batched detail pass.
type Resolution struct {
	Entries    map[string]meal.CatalogEntry
	Unresolved []string
}

// Resolve returns details for ids. Cached ids are answered locally; the
// rest are looked up batchSize at a time with batchDelay between batches.
// Ids that fail are reported as unresolved and not retried.
func (f *Fetcher) Resolve(ctx context.Context, ids []string) (Resolution, error) {
	res := Resolution{Entries: make(map[string]meal.CatalogEntry, len(ids))}

	pending := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if e, ok := f.cache.Get(id); ok {
			res.Entries[id] = e
			continue
		}
		pending = append(pending, id)
	}

	var mu sync.Mutex
	failed := make(map[string]bool)
	for start := 0; start < len(pending); start += f.batchSize {
		if start > 0 {
			if err := f.wait(ctx, f.batchDelay); err != nil {
				return res, err
			}
		}
		end := min(start+f.batchSize, len(pending))

		var g errgroup.Group
		g.SetLimit(f.batchSize)
		for _, id := range pending[start:end] {
			g.Go(func() error {
				e, ok, err := f.remote.Lookup(ctx, id)
				mu.Lock()
				defer mu.Unlock()
				if err != nil || !ok || e.Classification == "" {
					if err != nil {
						f.logger.Warn("catalog lookup failed", zap.String("catalog_id", id), zap.Error(err))
					}
					failed[id] = true
					return nil
				}
				f.cache.Put(e)
				res.Entries[id] = e
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}

	for _, id := range pending {
		if failed[id] {
			res.Unresolved = append(res.Unresolved, id)
		}
	}
	if len(res.Unresolved) > 0 {
		f.logger.Info("catalog entries left unresolved", zap.Strings("catalog_ids", res.Unresolved))
	}
	f.flush(ctx)
	return res, nil
}

// Search returns unslotted meals matching term, narrowed to diet when it
// is known.
func (f *Fetcher) Search(ctx context.Context, term string, diet meal.DietCategory) ([]meal.Meal, error) {
	entries, err := f.remote.Search(ctx, strings.TrimSpace(term))
	if err != nil {
		return nil, err
	}
	out := make([]meal.Meal, 0, len(entries))
	for _, e := range entries {
		f.cache.Put(e)
		m := meal.FromCatalog(e)
		if diet.Known() && m.DietCategory != diet {
			continue
		}
		out = append(out, m)
	}
	f.flush(ctx)
	return out, nil
}

// Browse lists the dishes of one origin with their classification resolved.
// Dishes that could not be resolved keep DietUnknown.
func (f *Fetcher) Browse(ctx context.Context, area string) ([]meal.Meal, error) {
	entries, err := f.remote.FilterByArea(ctx, area)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	res, err := f.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]meal.Meal, 0, len(entries))
	for _, e := range entries {
		if full, ok := res.Entries[e.ID]; ok {
			if full.Area == "" {
				full.Area = area
			}
			out = append(out, meal.FromCatalog(full))
			continue
		}
		m := meal.FromCatalog(e)
		m.DietCategory = meal.DietUnknown
		m.Area = area
		out = append(out, m)
	}
	return out, nil
}

// Detail returns the full entry for one catalog id, preferring a cached
// entry that already has ingredients or instructions.
func (f *Fetcher) Detail(ctx context.Context, id string) (meal.CatalogEntry, bool, error) {
	if e, ok := f.cache.Get(id); ok && (len(e.Ingredients) > 0 || e.Instructions != "") {
		return e, true, nil
	}
	e, ok, err := f.remote.Lookup(ctx, id)
	if err != nil || !ok {
		return meal.CatalogEntry{}, false, err
	}
	f.cache.Put(e)
	f.flush(ctx)
	return e, true, nil
}

func (f *Fetcher) flush(ctx context.Context) {
	if err := f.cache.Flush(ctx); err != nil {
		f.logger.Warn("catalog cache flush failed", zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
