package adns

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testConfigTOML = `
[resolver]
query-timeout = "2s"
negative-ttl = "15s"
max-failures = 3

[[servers]]
address = "8.8.8.8:53"

[[servers]]
address = "1.1.1.1:53"

[cache]
backend = "memory"
capacity = 10000
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "adns.toml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigTOML), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeTestConfig(t)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "2s", cfg.Resolver.QueryTimeout)
	require.Len(t, cfg.Servers, 2)
	require.Equal(t, "8.8.8.8:53", cfg.Servers[0].Address)
	require.Equal(t, "memory", cfg.Cache.Backend)
}

func TestNewFromConfigBuildsResolver(t *testing.T) {
	path := writeTestConfig(t)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	r, err := NewFromConfig(cfg)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, 2, r.pool.Len())
	addr, ok := r.pool.Primary()
	require.True(t, ok)
	require.Equal(t, "8.8.8.8:53", addr.String())
}
