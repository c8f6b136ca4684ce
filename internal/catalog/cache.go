package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/fdg312/meal-planner/internal/blob"
	"github.com/fdg312/meal-planner/internal/meal"
)

// Cache remembers resolved catalog entries across sessions. It is
// persisted as one JSON array under a single blob key.
type Cache struct {
	mu      sync.RWMutex
	store   blob.Store
	key     string
	entries map[string]meal.CatalogEntry
	dirty   bool
}

// NewCache creates a cache persisted to store under key. A nil store keeps
// the cache in memory only.
func NewCache(store blob.Store, key string) *Cache {
	return &Cache{
		store:   store,
		key:     key,
		entries: make(map[string]meal.CatalogEntry),
	}
}

// Load replaces the in-memory entries with the persisted array. A missing
// object leaves the cache empty.
func (c *Cache) Load(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	data, err := c.store.GetObject(ctx, c.key)
	if errors.Is(err, blob.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read catalog cache: %w", err)
	}

	var list []meal.CatalogEntry
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("corrupt catalog cache: %w", err)
	}

	entries := make(map[string]meal.CatalogEntry, len(list))
	for _, e := range list {
		if e.ID != "" {
			entries[e.ID] = e
		}
	}

	c.mu.Lock()
	c.entries = entries
	c.dirty = false
	c.mu.Unlock()
	return nil
}

// Get returns the entry for id if it has a resolved classification.
func (c *Cache) Get(id string) (meal.CatalogEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok || e.Classification == "" {
		return meal.CatalogEntry{}, false
	}
	return e, true
}

// Put stores a resolved entry. Entries without classification are ignored,
// and a known entry is never replaced by one with fewer details.
func (c *Cache) Put(e meal.CatalogEntry) {
	if e.ID == "" || e.Classification == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[e.ID]; ok && detailScore(old) > detailScore(e) {
		return
	}
	c.entries[e.ID] = e
	c.dirty = true
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Flush persists the cache if it changed since the last Load or Flush.
func (c *Cache) Flush(ctx context.Context) error {
	c.mu.Lock()
	if !c.dirty || c.store == nil {
		c.mu.Unlock()
		return nil
	}
	list := make([]meal.CatalogEntry, 0, len(c.entries))
	for _, e := range c.entries {
		list = append(list, e)
	}
	c.dirty = false
	c.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode catalog cache: %w", err)
	}
	if _, err := c.store.PutObject(ctx, c.key, data, "application/json"); err != nil {
		c.mu.Lock()
		c.dirty = true
		c.mu.Unlock()
		return fmt.Errorf("failed to write catalog cache: %w", err)
	}
	return nil
}

func detailScore(e meal.CatalogEntry) int {
	score := 0
	if e.Image != "" {
		score++
	}
	if e.Area != "" {
		score++
	}
	if e.Instructions != "" {
		score++
	}
	if len(e.Ingredients) > 0 {
		score++
	}
	return score
}
