// Package citycache provides a concurrency-safe, lazy-loading map from
// (source, city_slug) to a portal-specific city code (spec.md §4.2: "the
// portal's local city code [...] if unknown they may probe the portal's
// search endpoint once, cache the result"). The shape is lifted wholesale
// from the teacher's internal/tenant host->Tenant cache: a sync.Map keyed
// lookup, singleflight-coalesced loads so concurrent adapters probing the
// same unknown city only hit the portal once, and a background evictor
// that trims idle entries.
//
// Portal city codes are effectively static, so the idle TTL defaults to
// 24h; the evictor mostly exists to bound memory as cities churn across a
// long-running process, and the singleflight group is what actually
// matters under concurrent adapter fan-out.
package citycache

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yanizio/flatradar/internal/metrics"
)

// --------------------------------------------------------------------
// Tunables
// --------------------------------------------------------------------

const (
	DefaultIdleTTL       = 24 * time.Hour
	DefaultMaxEntries    = 5000
	DefaultEvictInterval = 15 * time.Minute
)

// ErrNotFound is returned by a Probe function when the portal has no code
// for the requested city.
var ErrNotFound = errors.New("citycache: city not found")

// Probe resolves a portal-specific code for (source, citySlug), typically
// by querying the portal's search endpoint once. Implemented by each
// adapter in internal/adapter.
type Probe func(ctx context.Context, source, citySlug string) (string, error)

type key struct {
	source string
	city   string
}

type entry struct {
	code     string
	lastSeen int64 // UnixNano
}

// Cache is the lazy-loading (source, city) -> portal code map.
type Cache struct {
	log         *log.Logger
	sfg         singleflight.Group
	m           sync.Map // key -> *entry
	evictTicker *time.Ticker
	idleTTL     time.Duration
	maxEntries  int
	stopCh      chan struct{}
}

// New builds a Cache and starts its background evictor.
func New(idleTTL time.Duration, maxEntries int, lg *log.Logger) *Cache {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	c := &Cache{
		log:        lg,
		idleTTL:    idleTTL,
		maxEntries: maxEntries,
		stopCh:     make(chan struct{}),
	}
	c.evictTicker = time.NewTicker(DefaultEvictInterval)
	go c.evictLoop()
	return c
}

// Stop halts the background evictor. Safe to call once.
func (c *Cache) Stop() {
	c.evictTicker.Stop()
	close(c.stopCh)
}

// Get resolves the portal code for (source, citySlug), probing and caching
// on first use. The singleflight call coalesces concurrent probes for the
// same key so a burst of adapter goroutines never hits the portal twice.
func (c *Cache) Get(ctx context.Context, source, citySlug string, probe Probe) (string, error) {
	k := key{source: source, city: citySlug}

	if v, ok := c.m.Load(k); ok {
		ent := v.(*entry)
		atomic.StoreInt64(&ent.lastSeen, time.Now().UnixNano())
		return ent.code, nil
	}

	sfKey := source + "|" + citySlug
	v, err, _ := c.sfg.Do(sfKey, func() (interface{}, error) {
		if v, ok := c.m.Load(k); ok {
			ent := v.(*entry)
			atomic.StoreInt64(&ent.lastSeen, time.Now().UnixNano())
			return ent.code, nil
		}

		code, err := probe(ctx, source, citySlug)
		if err != nil {
			metrics.CityCacheLoadErrorsTotal.Inc()
			return "", err
		}

		ent := &entry{code: code, lastSeen: time.Now().UnixNano()}
		c.m.Store(k, ent)
		metrics.CityCacheLoadTotal.Inc()
		metrics.CityCacheEntries.Inc()
		if c.log != nil {
			c.log.Printf("citycache: %s/%s -> %s", source, citySlug, code)
		}
		return code, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Cache) evictLoop() {
	for {
		select {
		case <-c.stopCh:
			return
		case <-c.evictTicker.C:
			c.evictOnce()
		}
	}
}

func (c *Cache) evictOnce() {
	now := time.Now().UnixNano()
	var count int

	c.m.Range(func(k, v any) bool {
		count++
		ent := v.(*entry)
		idle := time.Duration(now-atomic.LoadInt64(&ent.lastSeen)) * time.Nanosecond
		if idle > c.idleTTL {
			c.m.Delete(k)
			metrics.CityCacheEvictTotal.Inc()
			metrics.CityCacheEntries.Dec()
			if c.log != nil {
				c.log.Printf("citycache: evicted %v after %v idle", k, idle.Truncate(time.Second))
			}
		}
		return true
	})

	if c.maxEntries > 0 && count > c.maxEntries {
		type kv struct {
			k  key
			at int64
		}
		var all []kv
		c.m.Range(func(k, v any) bool {
			all = append(all, kv{k: k.(key), at: v.(*entry).lastSeen})
			return true
		})
		sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })
		for i := 0; i < count-c.maxEntries; i++ {
			c.m.Delete(all[i].k)
			metrics.CityCacheEvictTotal.Inc()
			metrics.CityCacheEntries.Dec()
		}
	}
}
