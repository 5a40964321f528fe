package adns

import (
	"encoding/json"
	"io"
	"time"
)

// lruKey identifies a cached entry by the normalized name and record type,
// per the spec's CacheEntry key.
type lruKey struct {
	Name  string
	RType RecordType
}

type cacheItem struct {
	Key        lruKey
	Records    []Record
	Expiry     time.Time
	prev, next *cacheItem
}

// lruCache is a doubly-linked-list LRU keyed by (name, type), capped by
// entry count with earliest-expiry-first eviction beyond capacity, per the
// spec's ResourceCache sizing rule.
type lruCache struct {
	maxItems   int
	items      map[lruKey]*cacheItem
	head, tail *cacheItem
}

func newLRUCache(capacity int) *lruCache {
	head := new(cacheItem)
	tail := new(cacheItem)
	head.next = tail
	tail.prev = head
	return &lruCache{
		maxItems: capacity,
		items:    make(map[lruKey]*cacheItem),
		head:     head,
		tail:     tail,
	}
}

func (c *lruCache) add(key lruKey, records []Record, expiry time.Time) {
	item := c.touch(key)
	if item != nil {
		item.Records = records
		item.Expiry = expiry
		return
	}
	item = &cacheItem{
		Key:     key,
		Records: records,
		Expiry:  expiry,
		next:    c.head.next,
		prev:    c.head,
	}
	c.head.next.prev = item
	c.head.next = item
	c.items[key] = item
	c.resize()
}

// touch loads a cache item and moves it to the top of the list (most
// recently used).
func (c *lruCache) touch(key lruKey) *cacheItem {
	item := c.items[key]
	if item == nil {
		return nil
	}
	item.prev.next = item.next
	item.next.prev = item.prev
	item.next = c.head.next
	item.prev = c.head
	c.head.next.prev = item
	c.head.next = item
	return item
}

func (c *lruCache) delete(key lruKey) {
	item := c.items[key]
	if item == nil {
		return
	}
	item.prev.next = item.next
	item.next.prev = item.prev
	delete(c.items, key)
}

func (c *lruCache) get(key lruKey) *cacheItem {
	return c.touch(key)
}

// resize shrinks the cache down to maxItems, evicting the entries with the
// earliest Expiry first, per the spec's cap-eviction rule. The linked list
// still tracks recency (touch moves an item to the head) for serialize's
// least-recently-used-first ordering, which deserialize replays through
// add to restore the same recency order, but recency plays no part in
// which entries survive a resize.
func (c *lruCache) resize() {
	if c.maxItems <= 0 {
		return
	}
	for len(c.items) > c.maxItems {
		var oldest *cacheItem
		for _, item := range c.items {
			if oldest == nil || item.Expiry.Before(oldest.Expiry) {
				oldest = item
			}
		}
		if oldest == nil {
			break
		}
		oldest.prev.next = oldest.next
		oldest.next.prev = oldest.prev
		delete(c.items, oldest.Key)
	}
}

func (c *lruCache) reset() {
	head := new(cacheItem)
	tail := new(cacheItem)
	head.next = tail
	tail.prev = head
	c.head = head
	c.tail = tail
	c.items = make(map[lruKey]*cacheItem)
}

// deleteFunc iterates the cached items and deletes any for which f returns
// true, used by the backend's garbage-collection sweep.
func (c *lruCache) deleteFunc(f func(*cacheItem) bool) {
	item := c.head.next
	for item != c.tail {
		next := item.next
		if f(item) {
			item.prev.next = item.next
			item.next.prev = item.prev
			delete(c.items, item.Key)
		}
		item = next
	}
}

func (c *lruCache) size() int {
	return len(c.items)
}

func (c *lruCache) serialize(w io.Writer) error {
	enc := json.NewEncoder(w)
	for item := c.tail.prev; item != c.head; item = item.prev {
		if err := enc.Encode(item); err != nil {
			return err
		}
	}
	return nil
}

func (c *lruCache) deserialize(r io.Reader) error {
	dec := json.NewDecoder(r)
	for dec.More() {
		item := new(cacheItem)
		if err := dec.Decode(item); err != nil {
			return err
		}
		if item.Key.Name == "" {
			continue
		}
		c.add(item.Key, item.Records, item.Expiry)
	}
	return nil
}
