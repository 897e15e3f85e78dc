package ai

import (
	"context"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/spigell/music-dna/internal/persona"
)

const (
	defaultCacheSize = 64
	defaultCacheTTL  = 24 * time.Hour
)

type cacheEntry struct {
	insights *Insights
	storedAt time.Time
}

// CachedProvider memoises insights per persona id. Concurrent misses for the
// same persona share one upstream call.
type CachedProvider struct {
	delegate Provider
	cache    *lru.Cache[int, cacheEntry]
	group    singleflight.Group
	ttl      time.Duration
	now      func() time.Time
}

// NewCached wraps delegate with an LRU cache. Zero size or ttl use defaults.
func NewCached(delegate Provider, size int, ttl time.Duration) (*CachedProvider, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	cache, err := lru.New[int, cacheEntry](size)
	if err != nil {
		return nil, err
	}

	return &CachedProvider{
		delegate: delegate,
		cache:    cache,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

func (c *CachedProvider) Insights(ctx context.Context, p persona.Persona) (*Insights, error) {
	if in, ok := c.lookup(p.ID); ok {
		return in, nil
	}

	v, err, _ := c.group.Do(strconv.Itoa(p.ID), func() (any, error) {
		if in, ok := c.lookup(p.ID); ok {
			return in, nil
		}
		in, err := c.delegate.Insights(ctx, p)
		if err != nil {
			return nil, err
		}
		c.cache.Add(p.ID, cacheEntry{insights: in, storedAt: c.now()})
		return in, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Insights), nil
}

func (c *CachedProvider) lookup(id int) (*Insights, bool) {
	entry, ok := c.cache.Get(id)
	if !ok || c.now().Sub(entry.storedAt) >= c.ttl {
		return nil, false
	}
	return entry.insights, true
}

// Len reports the number of cached personas.
func (c *CachedProvider) Len() int {
	return c.cache.Len()
}
