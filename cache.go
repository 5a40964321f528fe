package adns

import (
	"expvar"
	"strings"
	"time"
)

// defaultNegativeTTL is applied to negative (NXDOMAIN/NoData) entries when
// the codec surfaced no SOA minimum, per the spec's open question on
// negative-TTL handling.
const defaultNegativeTTL = 15 * time.Second

// CacheBackend is the storage seam behind ResourceCache. This is the seam
// spec.md leaves unnamed but requires implicitly by describing two
// independent storage concerns (entry-count cap with earliest-expiry
// eviction, and read-mostly concurrency) that this module implements
// twice: once in memory, once backed by Redis.
type CacheBackend interface {
	Get(name string, rtype RecordType) ([]Record, bool)
	Put(name string, rtype RecordType, records []Record, ttl time.Duration)
	Remove(name string, rtype RecordType)
	Size() int
	Close() error
}

// CacheMetrics exposes operational counters for a ResourceCache, in the
// teacher's expvar-backed metrics style.
type CacheMetrics struct {
	hit  *expvar.Int
	miss *expvar.Int
	puts *expvar.Int
}

func newCacheMetrics(id string) *CacheMetrics {
	return &CacheMetrics{
		hit:  getVarInt("cache", id, "hit"),
		miss: getVarInt("cache", id, "miss"),
		puts: getVarInt("cache", id, "put"),
	}
}

// ResourceCache is a TTL-indexed store of prior answers keyed by
// (name, type). It owns name normalization, minimum-TTL computation, and
// the negative-cache convention; storage itself is delegated to a
// CacheBackend.
type ResourceCache struct {
	backend     CacheBackend
	negativeTTL time.Duration
	metrics     *CacheMetrics
}

// NewResourceCache wraps backend with the spec's cache semantics.
// negativeTTL of zero uses defaultNegativeTTL.
func NewResourceCache(id string, backend CacheBackend, negativeTTL time.Duration) *ResourceCache {
	if negativeTTL <= 0 {
		negativeTTL = defaultNegativeTTL
	}
	return &ResourceCache{
		backend:     backend,
		negativeTTL: negativeTTL,
		metrics:     newCacheMetrics(id),
	}
}

// GetRecords returns the stored records for (name, type), or a cache miss.
// A hit with no records (ok is true, the slice is empty or nil) is a
// negative entry.
func (c *ResourceCache) GetRecords(name string, rtype RecordType) ([]Record, bool) {
	records, ok := c.backend.Get(strings.ToLower(name), rtype)
	if ok {
		c.metrics.hit.Add(1)
	} else {
		c.metrics.miss.Add(1)
	}
	return records, ok
}

// GetRecord returns the first stored record for (name, type), or a miss.
func (c *ResourceCache) GetRecord(name string, rtype RecordType) (Record, bool) {
	records, ok := c.GetRecords(name, rtype)
	if !ok || len(records) == 0 {
		return Record{}, false
	}
	return records[0], true
}

// Put stores records for (name, type) with an expiry computed from the
// minimum TTL across records. A zero minimum TTL means "never cached", per
// the spec; an empty slice is stored as a negative entry using negativeTTL
// (or negativeTTLOverride, when the codec surfaced an SOA minimum).
func (c *ResourceCache) Put(name string, rtype RecordType, records []Record, negativeTTLOverride uint32) {
	name = strings.ToLower(name)
	if len(records) == 0 {
		ttl := c.negativeTTL
		if negativeTTLOverride > 0 {
			ttl = time.Duration(negativeTTLOverride) * time.Second
		}
		c.backend.Put(name, rtype, nil, ttl)
		c.metrics.puts.Add(1)
		return
	}

	minTTL := records[0].TTL
	for _, r := range records[1:] {
		if r.TTL < minTTL {
			minTTL = r.TTL
		}
	}
	if minTTL == 0 {
		return
	}
	c.backend.Put(name, rtype, records, time.Duration(minTTL)*time.Second)
	c.metrics.puts.Add(1)
}

// Size returns the number of entries currently stored.
func (c *ResourceCache) Size() int {
	return c.backend.Size()
}

// Close releases resources held by the underlying backend.
func (c *ResourceCache) Close() error {
	return c.backend.Close()
}
