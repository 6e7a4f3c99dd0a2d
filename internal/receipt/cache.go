package receipt

import (
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
)

// ResultCache keeps recent receipts keyed by upload content so repeated
// uploads of the same photo skip recognition. Identical concurrent uploads
// share one recognition. Failures are never cached.
type ResultCache struct {
	cache *ttlcache.Cache[uint64, *Receipt]
	group singleflight.Group
}

// NewResultCache creates a cache whose entries expire after ttl.
// A capacity of 0 means unbounded.
func NewResultCache(ttl time.Duration, capacity uint64) *ResultCache {
	opts := []ttlcache.Option[uint64, *Receipt]{
		ttlcache.WithTTL[uint64, *Receipt](ttl),
		// Entries expire relative to when they were computed
		ttlcache.WithDisableTouchOnHit[uint64, *Receipt](),
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[uint64, *Receipt](capacity))
	}
	return &ResultCache{cache: ttlcache.New(opts...)}
}

// Start runs expiration cleanup until Stop is called. It blocks.
func (c *ResultCache) Start() {
	c.cache.Start()
}

// Stop stops expiration cleanup
func (c *ResultCache) Stop() {
	c.cache.Stop()
}

// Len returns the number of cached receipts
func (c *ResultCache) Len() int {
	return c.cache.Len()
}

// cacheKey hashes the upload bytes together with their declared type
func cacheKey(data []byte, contentType string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(contentType)
	_, _ = h.WriteString("|")
	_, _ = h.Write(data)
	return h.Sum64()
}

// get returns the cached receipt for key or computes it with fn
func (c *ResultCache) get(key uint64, fn func() (*Receipt, error)) (*Receipt, error) {
	if item := c.cache.Get(key); item != nil {
		cacheLookups.WithLabelValues("hit").Inc()
		return item.Value(), nil
	}

	v, err, shared := c.group.Do(strconv.FormatUint(key, 16), func() (any, error) {
		if item := c.cache.Get(key); item != nil {
			return item.Value(), nil
		}
		cacheLookups.WithLabelValues("miss").Inc()
		receipt, err := fn()
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, receipt, ttlcache.DefaultTTL)
		return receipt, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		cacheLookups.WithLabelValues("shared").Inc()
	}
	return v.(*Receipt), nil
}
