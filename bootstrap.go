package adns

import (
	"github.com/miekg/dns"
)

// defaultCanaryName is the canary used by Bootstrap when the caller
// doesn't supply one.
const defaultCanaryName = "google.com."

// NameserverSource is the pluggable collaborator the spec calls out for OS
// resolver-configuration discovery: it returns a list of nameserver
// strings (dotted IPv4 or colon/dot IPv6, with or without a port).
type NameserverSource interface {
	Nameservers() ([]string, error)
}

// resolvConfSource reads nameservers from the system resolver
// configuration file via miekg/dns, the out-of-scope collaborator
// spec.md leaves external to the core.
type resolvConfSource struct {
	path string
}

// DefaultNameserverSource reads /etc/resolv.conf.
var DefaultNameserverSource NameserverSource = resolvConfSource{path: "/etc/resolv.conf"}

func (s resolvConfSource) Nameservers() ([]string, error) {
	cfg, err := dns.ClientConfigFromFile(s.path)
	if err != nil {
		return nil, TransportError{Cause: err}
	}
	return cfg.Servers, nil
}

// BootstrapOptions configures Bootstrap.
type BootstrapOptions struct {
	// Source discovers OS-supplied nameserver strings, default
	// DefaultNameserverSource.
	Source NameserverSource

	// CanaryName is the name validated against each discovered server,
	// default "google.com.".
	CanaryName string

	// Options seeds the Resolver's other settings (timeouts, cache,
	// codec); its Servers field is ignored: the pool holds
	// WellKnownServers followed by the discovered servers that pass
	// validation.
	Options Options
}

// Bootstrap discovers OS-supplied nameservers via opt.Source, validates
// each against opt.CanaryName with the core timeout, and returns a
// Resolver whose pool holds WellKnownServers (New's default seed) followed
// by the discovered servers that answered successfully. This
// mirrors the spec's bootstrap design note: validation drives the same
// async dispatcher machinery, never a bespoke blocking path, and runs on
// the caller's goroutine rather than inside any socket's read loop.
func Bootstrap(opt BootstrapOptions) (*Resolver, error) {
	source := opt.Source
	if source == nil {
		source = DefaultNameserverSource
	}
	canary := opt.CanaryName
	if canary == "" {
		canary = defaultCanaryName
	}

	candidates, err := source.Nameservers()
	if err != nil {
		return nil, err
	}

	base := opt.Options
	base.Servers = nil
	r := New(base)

	timeout := base.QueryTimeout
	if timeout <= 0 {
		timeout = RequestTimeout
	}

	for _, s := range candidates {
		addr, err := ParseServerAddress(s)
		if err != nil {
			Log.WithError(err).WithField("server", s).Warn("skipping unparsable OS nameserver")
			continue
		}
		r.pool.Add(addr)
		if !r.pool.Validate(addr, canary, timeout) {
			Log.WithField("server", s).Debug("bootstrap canary validation failed, dropping server")
			r.pool.Remove(addr)
		}
	}

	if r.pool.Len() == 0 {
		for _, s := range WellKnownServers {
			addr, _ := ParseServerAddress(s)
			r.pool.Add(addr)
		}
	}

	return r, nil
}
