package adns

import (
	"net"

	"github.com/miekg/dns"
)

// reverseName builds the in-addr.arpa (IPv4) or nibble-reversed ip6.arpa
// (IPv6) query name for ip, per the spec's reverse-lookup construction.
func reverseName(ip []byte) (string, error) {
	var addr net.IP
	switch len(ip) {
	case net.IPv4len, net.IPv6len:
		addr = net.IP(ip)
	default:
		return "", InvalidArgumentError{Reason: "reverse lookup requires a 4 or 16 byte IP address"}
	}

	name, err := dns.ReverseAddr(addr.String())
	if err != nil {
		return "", InvalidArgumentError{Reason: "invalid address for reverse lookup: " + err.Error()}
	}
	return name, nil
}
