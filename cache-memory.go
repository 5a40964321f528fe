package adns

import (
	"os"
	"sync"
	"time"
)

// MemoryBackendOptions configures a memory-backed CacheBackend.
type MemoryBackendOptions struct {
	// Capacity is the total entry-count cap, default unlimited.
	Capacity int

	// GCPeriod is how often expired entries are swept regardless of
	// access, default one minute.
	GCPeriod time.Duration

	// Filename, if set, loads the cache from disk on startup and persists
	// it on Close.
	Filename string
}

// memoryBackend is the default, in-process CacheBackend: an LRU guarded by
// a single exclusive mutex. Reads do not run in parallel with each other or
// with writes; Get takes the same lock as Put because it also moves the
// entry to the front of the recency list.
type memoryBackend struct {
	lru *lruCache
	mu  sync.Mutex
	opt MemoryBackendOptions

	stopGC chan struct{}
}

var _ CacheBackend = (*memoryBackend)(nil)

// NewMemoryBackend returns a CacheBackend that stores entries in process
// memory.
func NewMemoryBackend(opt MemoryBackendOptions) *memoryBackend {
	if opt.GCPeriod <= 0 {
		opt.GCPeriod = time.Minute
	}
	b := &memoryBackend{
		lru:    newLRUCache(opt.Capacity),
		opt:    opt,
		stopGC: make(chan struct{}),
	}
	if opt.Filename != "" {
		_ = b.loadFromFile(opt.Filename)
	}
	go b.startGC(opt.GCPeriod)
	return b
}

func (b *memoryBackend) Get(name string, rtype RecordType) ([]Record, bool) {
	key := lruKey{Name: name, RType: rtype}

	b.mu.Lock()
	item := b.lru.get(key)
	var records []Record
	var expiry time.Time
	found := item != nil
	if found {
		records = append([]Record(nil), item.Records...)
		expiry = item.Expiry
	}
	b.mu.Unlock()

	if !found {
		return nil, false
	}
	if time.Now().After(expiry) {
		b.Remove(name, rtype)
		return nil, false
	}
	return records, true
}

func (b *memoryBackend) Put(name string, rtype RecordType, records []Record, ttl time.Duration) {
	key := lruKey{Name: name, RType: rtype}
	expiry := time.Now().Add(ttl)

	b.mu.Lock()
	b.lru.add(key, append([]Record(nil), records...), expiry)
	b.mu.Unlock()
}

func (b *memoryBackend) Remove(name string, rtype RecordType) {
	key := lruKey{Name: name, RType: rtype}
	b.mu.Lock()
	b.lru.delete(key)
	b.mu.Unlock()
}

func (b *memoryBackend) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lru.size()
}

func (b *memoryBackend) Close() error {
	close(b.stopGC)
	if b.opt.Filename != "" {
		return b.writeToFile(b.opt.Filename)
	}
	return nil
}

// startGC evicts every item whose expiry has already passed, independent
// of access, so long-idle stale entries don't linger in memory forever.
func (b *memoryBackend) startGC(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-b.stopGC:
			return
		case now := <-ticker.C:
			b.mu.Lock()
			b.lru.deleteFunc(func(item *cacheItem) bool {
				return now.After(item.Expiry)
			})
			b.mu.Unlock()
		}
	}
}

func (b *memoryBackend) writeToFile(filename string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, err := os.Create(filename)
	if err != nil {
		Log.WithError(err).Warn("failed to create cache file")
		return err
	}
	defer f.Close()
	if err := b.lru.serialize(f); err != nil {
		Log.WithError(err).Warn("failed to persist cache to disk")
		return err
	}
	return nil
}

func (b *memoryBackend) loadFromFile(filename string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return b.lru.deserialize(f)
}
