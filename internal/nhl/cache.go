package nhl

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// Tier selects which TTL applies to a cached resource.
type Tier uint8

const (
	// TierStatic covers slow-moving resources (schedules, rosters, standings).
	TierStatic Tier = iota
	// TierLive covers per-poll resources (landing, play-by-play, boxscore, shifts).
	TierLive
)

type cacheEntry struct {
	val     any
	expires time.Time
}

// Cache is a two-tier TTL key-value store for API snapshots.
// Safe for concurrent readers plus point invalidation.
type Cache struct {
	mu        sync.RWMutex
	entries   map[string]cacheEntry
	staticTTL time.Duration
	liveTTL   time.Duration

	now func() time.Time // test hook
}

func NewCache(staticTTL, liveTTL time.Duration) *Cache {
	if staticTTL <= 0 {
		staticTTL = time.Hour
	}
	if liveTTL <= 0 {
		liveTTL = 2 * time.Second
	}
	return &Cache{
		entries:   map[string]cacheEntry{},
		staticTTL: staticTTL,
		liveTTL:   liveTTL,
		now:       time.Now,
	}
}

func (c *Cache) ttl(tier Tier) time.Duration {
	if tier == TierLive {
		return c.liveTTL
	}
	return c.staticTTL
}

func (c *Cache) Get(key string) (any, bool) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || now.After(e.expires) {
		return nil, false
	}
	return e.val, true
}

func (c *Cache) Put(key string, tier Tier, val any) {
	exp := c.now().Add(c.ttl(tier))
	c.mu.Lock()
	c.entries[key] = cacheEntry{val: val, expires: exp}
	// Opportunistic prune so the map doesn't grow with dead live-tier keys.
	if len(c.entries) > 256 {
		now := c.now()
		for k, e := range c.entries {
			if now.After(e.expires) {
				delete(c.entries, k)
			}
		}
	}
	c.mu.Unlock()
}

// Invalidate removes one key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateGame removes all live-tier entries for a game id so the next
// fetch observes a fresh snapshot.
func (c *Cache) InvalidateGame(gameID int64) {
	suffix := ":" + strconv.FormatInt(gameID, 10)
	c.mu.Lock()
	for k := range c.entries {
		if strings.HasSuffix(k, suffix) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}
