package adns

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedisBackendKey(t *testing.T) {
	b := NewRedisBackend(RedisBackendOptions{KeyPrefix: "adns:"})
	require.Equal(t, "adns:example.com.:A", b.key("example.com.", TypeA))
	require.Equal(t, "adns:example.com.:AAAA", b.key("EXAMPLE.com.", TypeAAAA))
}

// TestRedisRecordCodecRoundTrip exercises the same JSON encoding the
// backend uses to serialize values, without requiring a live Redis server.
func TestRedisRecordCodecRoundTrip(t *testing.T) {
	records := []Record{
		{Name: "example.com.", Type: TypeA, TTL: 300, IP: []byte{93, 184, 216, 34}},
		{Name: "example.com.", Type: TypeA, TTL: 300, IP: []byte{93, 184, 216, 35}},
	}

	raw, err := json.Marshal(records)
	require.NoError(t, err)

	var decoded []Record
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, records, decoded)
}
