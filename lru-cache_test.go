package adns

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLRUAddGet(t *testing.T) {
	c := newLRUCache(5)

	type item struct {
		key     lruKey
		records []Record
	}
	var items []item

	for i := 0; i < 10; i++ {
		key := lruKey{Name: fmt.Sprintf("test%d.com.", i), RType: TypeA}
		records := []Record{{Name: key.Name, Type: TypeA, TTL: uint32(i)}}
		items = append(items, item{key: key, records: records})
		c.add(key, records, time.Now().Add(time.Minute))
	}

	// Only the last 5 inserted should remain; earlier ones are evicted.
	for i, it := range items {
		got := c.get(it.key)
		if i < 5 {
			require.Nil(t, got)
			continue
		}
		require.NotNil(t, got)
		require.Equal(t, it.records, got.Records)
	}
	require.Equal(t, 5, c.size())
}

func TestLRUEvictsEarliestExpiryRegardlessOfRecency(t *testing.T) {
	c := newLRUCache(2)
	now := time.Now()
	a := lruKey{Name: "a.", RType: TypeA}
	b := lruKey{Name: "b.", RType: TypeA}

	// b expires before a, even though it's added first and touched most
	// recently just before the cap is exceeded.
	c.add(b, nil, now.Add(time.Second))
	c.add(a, nil, now.Add(time.Hour))
	c.get(b)

	c.add(lruKey{Name: "c.", RType: TypeA}, nil, now.Add(time.Hour))

	require.Nil(t, c.get(b))
	require.NotNil(t, c.get(a))
}

func TestLRUDeleteFunc(t *testing.T) {
	c := newLRUCache(0)
	now := time.Now()
	c.add(lruKey{Name: "expired.", RType: TypeA}, nil, now.Add(-time.Second))
	c.add(lruKey{Name: "fresh.", RType: TypeA}, nil, now.Add(time.Minute))

	c.deleteFunc(func(item *cacheItem) bool {
		return now.After(item.Expiry)
	})

	require.Equal(t, 1, c.size())
	require.NotNil(t, c.get(lruKey{Name: "fresh.", RType: TypeA}))
}

func TestLRUSerializeDeserialize(t *testing.T) {
	c := newLRUCache(0)
	key := lruKey{Name: "test.com.", RType: TypeA}
	records := []Record{{Name: "test.com.", Type: TypeA, TTL: 300, IP: []byte{1, 2, 3, 4}}}
	c.add(key, records, time.Now().Add(time.Hour))

	var buf bytes.Buffer
	require.NoError(t, c.serialize(&buf))

	restored := newLRUCache(0)
	require.NoError(t, restored.deserialize(&buf))

	got := restored.get(key)
	require.NotNil(t, got)
	require.Equal(t, records, got.Records)
}
