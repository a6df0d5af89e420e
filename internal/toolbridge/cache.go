package toolbridge

import (
	"context"
	"log"
	"sync"
	"time"
)

// cacheTTL is the tool-catalog staleness window.
const cacheTTL = 300 * time.Second

// catalogSnapshot is the atomic unit readers see: either the pre-refresh or
// post-refresh snapshot, never a partially rebuilt one. Single writer,
// many readers, atomic snapshot.
type catalogSnapshot struct {
	infos     []AvailableToolInfo
	adapters  map[string]ToolDescriptor // tool name -> descriptor
	fetchedAt time.Time
}

// cache holds the current catalogSnapshot. refreshMu serializes rebuilds
// (the single writer); snapMu guards the pointer swap so readers always see
// a complete snapshot, never a partially rebuilt one.
type cache struct {
	refreshMu sync.Mutex
	snapMu    sync.RWMutex
	snap      *catalogSnapshot
	refresh   func(ctx context.Context) (*catalogSnapshot, error)
}

func newCache(refresh func(ctx context.Context) (*catalogSnapshot, error)) *cache {
	return &cache{refresh: refresh}
}

func (c *cache) load() *catalogSnapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snap
}

func (c *cache) store(s *catalogSnapshot) {
	c.snapMu.Lock()
	c.snap = s
	c.snapMu.Unlock()
}

// get returns the current snapshot, refreshing first if it is absent, the
// TTL has elapsed, or forceRefresh is set.
func (c *cache) get(ctx context.Context, forceRefresh bool) (*catalogSnapshot, error) {
	existing := c.load()
	if !forceRefresh && existing != nil && time.Since(existing.fetchedAt) < cacheTTL {
		return existing, nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Re-check: another goroutine may have refreshed while we waited for the lock.
	existing = c.load()
	if !forceRefresh && existing != nil && time.Since(existing.fetchedAt) < cacheTTL {
		return existing, nil
	}

	fresh, err := c.refresh(ctx)
	if err != nil {
		if existing != nil {
			log.Printf("[toolbridge] refresh failed, serving stale catalog (%d tools): %v", len(existing.infos), err)
			return existing, nil
		}
		return nil, err
	}
	c.store(fresh)
	return fresh, nil
}
