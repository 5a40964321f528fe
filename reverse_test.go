package adns

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReverseNameIPv4(t *testing.T) {
	name, err := reverseName([]byte{93, 184, 216, 34})
	require.NoError(t, err)
	require.Equal(t, "34.216.184.93.in-addr.arpa.", name)
}

func TestReverseNameIPv6(t *testing.T) {
	ip := []byte{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x01}
	name, err := reverseName(ip)
	require.NoError(t, err)
	require.Regexp(t, `\.ip6\.arpa\.$`, name)
}

func TestReverseNameRejectsBadLength(t *testing.T) {
	_, err := reverseName([]byte{1, 2, 3})
	require.Error(t, err)
	require.IsType(t, InvalidArgumentError{}, err)
}
