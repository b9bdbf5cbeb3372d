package fingerprint

import (
	"context"
	"log/slog"
	"sync"

	"dupecull/internal/identity"
)

// Cache is the two-level read-through fingerprint cache: an unbounded
// in-memory layer in front of the durable SQLite store.
//
// A durable-store failure flips the cache into memory-only mode for the rest
// of the run; the condition is logged once, not per operation.
type Cache struct {
	mu        sync.RWMutex
	mem       map[string]Record   // uri -> record
	baseIndex map[string][]string // base uri -> uris, insertion order
	pending   []Record            // records awaiting durable merge

	store    *Store // nil means memory-only
	persist  bool   // false in worker processes
	degraded bool   // durable layer failed this run

	logger *slog.Logger
}

// CacheOption configures cache construction.
type CacheOption func(*Cache)

// WithoutPersistence disables direct durable writes. Worker processes use this
// so all SQLite writes funnel through the coordinator.
func WithoutPersistence() CacheOption {
	return func(c *Cache) {
		c.persist = false
	}
}

// NewCache builds a cache in front of store. The store may be nil for
// memory-only operation.
func NewCache(store *Store, logger *slog.Logger, opts ...CacheOption) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	cache := &Cache{
		mem:       make(map[string]Record),
		baseIndex: make(map[string][]string),
		store:     store,
		persist:   store != nil,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

// Preload copies every durable record into the memory layer so workers can
// share the read side without touching SQLite.
func (c *Cache) Preload(ctx context.Context) (int, error) {
	if c.store == nil {
		return 0, nil
	}
	records, err := c.store.All(ctx)
	if err != nil {
		c.markDegraded("preload", err)
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range records {
		c.insertLocked(rec)
	}
	return len(records), nil
}

// Get returns the record for the exact identifier, consulting memory first and
// the durable store on miss. Durable hits populate the memory layer.
func (c *Cache) Get(ctx context.Context, id identity.Identifier) (Record, bool) {
	c.mu.RLock()
	rec, ok := c.mem[string(id)]
	c.mu.RUnlock()
	if ok {
		return rec, true
	}

	if c.store == nil || c.isDegraded() {
		return Record{}, false
	}
	rec, ok, err := c.store.Get(ctx, id)
	if err != nil {
		c.markDegraded("get", err)
		return Record{}, false
	}
	if !ok {
		return Record{}, false
	}
	c.mu.Lock()
	c.insertLocked(rec)
	c.mu.Unlock()
	return rec, true
}

// SmartQuery resolves an identifier tolerating format changes: exact memory
// match, then format-insensitive memory match, then the durable store's smart
// lookup. See Store.SmartQuery for the match ordering.
func (c *Cache) SmartQuery(ctx context.Context, id identity.Identifier, candidateFormats []string) (Record, bool) {
	if rec, ok := c.memGet(string(id)); ok {
		return rec, true
	}

	baseURI := identity.StripFormat(id)
	if rec, ok := c.memBaseLookup(baseURI, candidateFormats); ok {
		return rec, true
	}

	if c.store == nil || c.isDegraded() {
		return Record{}, false
	}
	rec, ok, err := c.store.SmartQuery(ctx, id, candidateFormats)
	if err != nil {
		c.markDegraded("smart query", err)
		return Record{}, false
	}
	if !ok {
		return Record{}, false
	}
	c.mu.Lock()
	c.insertLocked(rec)
	c.mu.Unlock()
	return rec, true
}

// Put stores a record in the memory layer and, when persistence is enabled,
// writes through to SQLite. Records written while persistence is disabled or
// degraded accumulate as pending work for the coordinator.
func (c *Cache) Put(ctx context.Context, rec Record) {
	c.mu.Lock()
	c.insertLocked(rec)
	writeThrough := c.persist && c.store != nil && !c.degraded
	if !writeThrough {
		c.pending = append(c.pending, rec)
	}
	c.mu.Unlock()

	if !writeThrough {
		return
	}
	if err := c.store.Put(ctx, rec); err != nil {
		c.markDegraded("put", err)
		c.mu.Lock()
		c.pending = append(c.pending, rec)
		c.mu.Unlock()
	}
}

// Pending returns records awaiting a durable merge and clears the queue.
func (c *Cache) Pending() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.pending
	c.pending = nil
	return out
}

// Len reports the memory layer size.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.mem)
}

// Degraded reports whether the durable layer failed during this run.
func (c *Cache) Degraded() bool {
	return c.isDegraded()
}

func (c *Cache) memGet(uri string) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.mem[uri]
	return rec, ok
}

// memBaseLookup picks the most recently calculated memory record sharing the
// format-insensitive key and an allowed format.
func (c *Cache) memBaseLookup(baseURI string, candidateFormats []string) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var best Record
	found := false
	for _, uri := range c.baseIndex[baseURI] {
		rec, ok := c.mem[uri]
		if !ok || !formatAllowed(rec.Format, candidateFormats) {
			continue
		}
		if !found || rec.CalculatedAt.After(best.CalculatedAt) {
			best = rec
			found = true
		}
	}
	return best, found
}

func (c *Cache) insertLocked(rec Record) {
	if _, exists := c.mem[rec.URI]; !exists {
		base := rec.BaseURI
		if base == "" {
			base = identity.StripFormat(identity.Identifier(rec.URI))
		}
		c.baseIndex[base] = append(c.baseIndex[base], rec.URI)
	}
	c.mem[rec.URI] = rec
}

func (c *Cache) isDegraded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.degraded
}

func (c *Cache) markDegraded(op string, err error) {
	c.mu.Lock()
	already := c.degraded
	c.degraded = true
	c.mu.Unlock()
	if !already {
		c.logger.Error("fingerprint store degraded to memory-only for this run",
			"operation", op, "error", err)
	}
}
