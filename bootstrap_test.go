package adns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeNameserverSource struct {
	servers []string
	err     error
}

func (f fakeNameserverSource) Nameservers() ([]string, error) {
	return f.servers, f.err
}

func TestBootstrapFallsBackToWellKnownServers(t *testing.T) {
	// 192.0.2.0/24 is TEST-NET-1 (RFC 5737): guaranteed non-routable, so
	// canary validation against it always fails.
	r, err := Bootstrap(BootstrapOptions{
		Source:     fakeNameserverSource{servers: []string{"192.0.2.1:53"}},
		CanaryName: "example.com.",
		Options:    Options{QueryTimeout: 20 * time.Millisecond},
	})
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, len(WellKnownServers), r.pool.Len())
}

func TestBootstrapPropagatesSourceError(t *testing.T) {
	_, err := Bootstrap(BootstrapOptions{
		Source: fakeNameserverSource{err: errSendFailed},
	})
	require.Error(t, err)
}
