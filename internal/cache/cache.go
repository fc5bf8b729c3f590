package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/HartBrook/promptforge/internal/errors"
	"github.com/HartBrook/promptforge/internal/prompt"
)

// DefaultCapacity bounds the memory tier.
const DefaultCapacity = 1024

// Stats summarizes the memory tier.
type Stats struct {
	Entries int     `json:"entries"`
	Hits    int     `json:"hits"`
	AvgHits float64 `json:"avg_hits"`
}

// Cache is a two-tier prompt cache. The memory tier always receives writes
// first and is the source of truth for the process; the durable tier is
// best effort.
type Cache struct {
	mu      sync.Mutex
	mem     *lru.Cache[string, *Entry]
	backend Backend
	logger  *zap.Logger
	now     func() time.Time

	capacity int
}

// Option configures a Cache.
type Option func(*Cache)

// WithCapacity sets the memory tier size. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithBackend sets the durable tier.
func WithBackend(b Backend) Option {
	return func(c *Cache) {
		c.backend = b
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Cache.
func New(opts ...Option) (*Cache, error) {
	c := &Cache{
		logger:   zap.NewNop(),
		now:      time.Now,
		capacity: DefaultCapacity,
	}
	for _, opt := range opts {
		opt(c)
	}

	mem, err := lru.New[string, *Entry](c.capacity)
	if err != nil {
		return nil, errors.CacheBackend("init", err)
	}
	c.mem = mem
	return c, nil
}

// Get returns a copy of the cached prompt for req. A hit bumps the entry's
// hit count and last access time. A memory miss consults the durable tier
// and promotes what it finds.
func (c *Cache) Get(ctx context.Context, req prompt.Request) (*prompt.PromptObject, bool) {
	key := Key(req)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.mem.Get(key)
	if !ok {
		e, ok = c.load(ctx, key)
		if !ok {
			return nil, false
		}
	}

	e.Hits++
	e.LastAccess = c.now()
	c.store(ctx, e)

	return e.Prompt.Clone(), true
}

// Put stores a copy of obj under req. Replacing an entry keeps its creation
// time and hit count.
func (c *Cache) Put(ctx context.Context, req prompt.Request, obj *prompt.PromptObject) {
	if obj == nil {
		return
	}
	key := Key(req)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e := &Entry{Key: key, Prompt: obj.Clone(), CreatedAt: now, LastAccess: now}
	if prev, ok := c.mem.Peek(key); ok {
		e.CreatedAt = prev.CreatedAt
		e.Hits = prev.Hits
	}

	c.mem.Add(key, e)
	c.store(ctx, e)
}

// Invalidate removes the entry for req from both tiers and reports whether
// anything was removed.
func (c *Cache) Invalidate(ctx context.Context, req prompt.Request) bool {
	key := Key(req)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := false
	if c.backend != nil {
		ok, err := c.backend.DeleteCached(ctx, key)
		if err != nil {
			c.logger.Warn("durable cache delete failed", zap.String("key", key), zap.Error(err))
		}
		removed = ok
	}

	if c.mem.Remove(key) {
		removed = true
	}
	return removed
}

// Stats reports entry and hit counts of the memory tier.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s Stats
	for _, key := range c.mem.Keys() {
		if e, ok := c.mem.Peek(key); ok {
			s.Entries++
			s.Hits += e.Hits
		}
	}
	if s.Entries > 0 {
		s.AvgHits = float64(s.Hits) / float64(s.Entries)
	}
	return s
}

// Entries lists durable entries, or memory entries without a durable tier.
func (c *Cache) Entries(ctx context.Context) ([]*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.backend != nil {
		return c.backend.List(ctx)
	}

	keys := c.mem.Keys()
	entries := make([]*Entry, 0, len(keys))
	for _, key := range keys {
		if e, ok := c.mem.Peek(key); ok {
			entries = append(entries, e.clone())
		}
	}
	return entries, nil
}

// Clear empties both tiers and returns the larger of the two removal counts.
func (c *Cache) Clear(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := c.mem.Len()
	c.mem.Purge()

	if c.backend != nil {
		n, err := c.backend.Clear(ctx)
		if err != nil {
			c.logger.Warn("durable cache clear failed", zap.Error(err))
		}
		count = max(count, n)
	}
	return count
}

// Close releases the durable tier.
func (c *Cache) Close() error {
	if c.backend == nil {
		return nil
	}
	return c.backend.Close()
}

// load reads key from the durable tier into memory. Callers hold mu.
func (c *Cache) load(ctx context.Context, key string) (*Entry, bool) {
	if c.backend == nil {
		return nil, false
	}
	e, ok, err := c.backend.GetCached(ctx, key)
	if err != nil {
		c.logger.Warn("durable cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	c.mem.Add(key, e)
	return e, true
}

// store writes e to the durable tier, logging failures. Callers hold mu.
func (c *Cache) store(ctx context.Context, e *Entry) {
	if c.backend == nil {
		return
	}
	if err := c.backend.PutCached(ctx, e); err != nil {
		c.logger.Warn("durable cache write failed", zap.String("key", e.Key), zap.Error(err))
	}
}
