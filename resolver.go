package adns

import (
	"context"
	"time"
)

// RequestTimeout is the default per-query deadline, applied whenever a
// caller does not specify one.
const RequestTimeout = 2000 * time.Millisecond

// Options configures a Resolver.
type Options struct {
	// Servers seeds the ServerPool, in "host[:port]" form. Defaults to
	// WellKnownServers when empty.
	Servers []string

	// QueryTimeout is the per-query deadline, default RequestTimeout.
	QueryTimeout time.Duration

	// NegativeTTL bounds how long a negative (NXDOMAIN/NoData) result is
	// cached, default 15s.
	NegativeTTL time.Duration

	// CacheCapacity caps the number of entries in the default in-memory
	// cache backend. Ignored if Cache is set.
	CacheCapacity int

	// Cache overrides the default in-memory cache backend, e.g. with a
	// Redis-backed one.
	Cache CacheBackend

	// Codec overrides the default miekg/dns-backed wire codec.
	Codec Codec

	// MaxFailovers bounds how many servers a single lookup will try
	// before surfacing the last error, default Servers count.
	MaxFailovers int

	// MaxConsecutiveFailures is the ServerPool health-policy threshold from
	// spec.md §4.C: after this many consecutive timeouts or transport
	// errors on one server, its socket is automatically retired. A value
	// <= 0 uses defaultMaxConsecutiveFailures. Distinct from MaxFailovers,
	// which bounds a single lookup's failover attempts rather than a
	// server's long-lived health state.
	MaxConsecutiveFailures int
}

// Resolver is the library's facade: it translates lookup requests into
// dispatcher calls, consults and fills the cache, selects a server, and
// implements failover across the ServerPool. It holds non-owning
// references to its ServerPool, QueryDispatcher, and ResourceCache, per
// the spec's ownership model.
type Resolver struct {
	pool       *ServerPool
	dispatcher *QueryDispatcher
	cache      *ResourceCache
	timeout    time.Duration
	maxRetries int
}

// New builds a Resolver from opt, ready to use: its ServerPool is seeded
// (WellKnownServers if opt.Servers is empty) but sockets are opened
// lazily on first use, matching the spec's "lazy socket creation" rule.
func New(opt Options) *Resolver {
	if opt.QueryTimeout <= 0 {
		opt.QueryTimeout = RequestTimeout
	}
	codec := opt.Codec
	if codec == nil {
		codec = MsgCodec{}
	}
	dispatcher := NewQueryDispatcher(codec, opt.QueryTimeout)
	pool := NewServerPool(dispatcher, opt.MaxConsecutiveFailures)

	servers := opt.Servers
	if len(servers) == 0 {
		servers = WellKnownServers
	}
	for _, s := range servers {
		addr, err := ParseServerAddress(s)
		if err != nil {
			Log.WithError(err).WithField("server", s).Warn("skipping invalid server address")
			continue
		}
		pool.Add(addr)
	}

	backend := opt.Cache
	if backend == nil {
		backend = NewMemoryBackend(MemoryBackendOptions{Capacity: opt.CacheCapacity})
	}
	cache := NewResourceCache("resolver", backend, opt.NegativeTTL)

	maxRetries := opt.MaxFailovers
	if maxRetries <= 0 {
		maxRetries = pool.Len()
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}

	return &Resolver{
		pool:       pool,
		dispatcher: dispatcher,
		cache:      cache,
		timeout:    opt.QueryTimeout,
		maxRetries: maxRetries,
	}
}

// DefaultResolver is a ready-to-use instance seeded with WellKnownServers,
// offered for convenience per the spec's design note that a default
// instance may exist but the core must never require one.
var DefaultResolver = New(Options{})

// AddServer appends a server to the pool.
func (r *Resolver) AddServer(addr string) error {
	a, err := ParseServerAddress(addr)
	if err != nil {
		return err
	}
	r.pool.Add(a)
	return nil
}

// RemoveServer drops a server from the pool, closing its socket if open.
func (r *Resolver) RemoveServer(addr string) error {
	a, err := ParseServerAddress(addr)
	if err != nil {
		return err
	}
	r.pool.Remove(a)
	return nil
}

// GetServer returns the server at index i.
func (r *Resolver) GetServer(i int) (ServerAddress, bool) {
	return r.pool.Get(i)
}

// Close retires every pooled socket and closes the cache backend.
func (r *Resolver) Close() error {
	for i := 0; ; i++ {
		addr, ok := r.pool.Get(i)
		if !ok {
			break
		}
		r.pool.Retire(addr)
	}
	return r.cache.Close()
}

// Lookup resolves name to a single A or AAAA record, first wins.
func (r *Resolver) Lookup(ctx context.Context, name string) (Record, error) {
	records, err := r.Resolve(ctx, name, TypeA, TypeAAAA)
	if err != nil {
		return Record{}, err
	}
	if len(records) == 0 {
		return Record{}, EmptyResultError{Name: name}
	}
	return records[0], nil
}

// Resolve4 resolves name to its A records.
func (r *Resolver) Resolve4(ctx context.Context, name string) ([]Record, error) {
	return r.Resolve(ctx, name, TypeA)
}

// Resolve6 resolves name to its AAAA records.
func (r *Resolver) Resolve6(ctx context.Context, name string) ([]Record, error) {
	return r.Resolve(ctx, name, TypeAAAA)
}

// ResolveMx resolves name to its MX records.
func (r *Resolver) ResolveMx(ctx context.Context, name string) ([]Record, error) {
	return r.Resolve(ctx, name, TypeMX)
}

// ResolveSrv resolves name to its SRV records.
func (r *Resolver) ResolveSrv(ctx context.Context, name string) ([]Record, error) {
	return r.Resolve(ctx, name, TypeSRV)
}

// ResolveTxt resolves name to its TXT records.
func (r *Resolver) ResolveTxt(ctx context.Context, name string) ([]Record, error) {
	return r.Resolve(ctx, name, TypeTXT)
}

// ResolveCname resolves name to its CNAME records.
func (r *Resolver) ResolveCname(ctx context.Context, name string) ([]Record, error) {
	return r.Resolve(ctx, name, TypeCNAME)
}

// ResolveNs resolves name to its NS records.
func (r *Resolver) ResolveNs(ctx context.Context, name string) ([]Record, error) {
	return r.Resolve(ctx, name, TypeNS)
}

// ResolveSingle is like Resolve but returns only the first record, failing
// with EmptyResultError if none were found.
func (r *Resolver) ResolveSingle(ctx context.Context, name string, types ...RecordType) (Record, error) {
	records, err := r.Resolve(ctx, name, types...)
	if err != nil {
		return Record{}, err
	}
	if len(records) == 0 {
		return Record{}, EmptyResultError{Name: name}
	}
	return records[0], nil
}

// Reverse resolves ip to its PTR names, constructing the in-addr.arpa or
// ip6.arpa query name per the spec's reverse-lookup rule.
func (r *Resolver) Reverse(ctx context.Context, ip []byte) ([]Record, error) {
	name, err := reverseName(ip)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, name, TypePTR)
}

// Resolve looks up name for every type in types, racing them against each
// other (first non-empty answer wins), with cache probing and failover
// across the ServerPool.
func (r *Resolver) Resolve(ctx context.Context, name string, types ...RecordType) ([]Record, error) {
	normalized, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		return nil, InvalidArgumentError{Reason: "no record types requested"}
	}

	for _, t := range types {
		if records, hit := r.cache.GetRecords(normalized, t); hit {
			return records, nil
		}
	}

	return r.resolveViaFailover(ctx, normalized, types)
}

func (r *Resolver) resolveViaFailover(ctx context.Context, name string, types []RecordType) ([]Record, error) {
	attempts := r.maxRetries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	start := 0
	for i := 0; i < attempts; i++ {
		addr, ok := r.pool.Get((start + i) % max(r.pool.Len(), 1))
		if !ok {
			if lastErr == nil {
				lastErr = InvalidArgumentError{Reason: "no servers configured"}
			}
			break
		}

		records, err := r.resolveOnServer(ctx, addr, name, types)
		if err == nil {
			r.pool.recordSuccess(addr)
			return records, nil
		}
		lastErr = err

		var nameErr NameErrorResult
		if asNameError(err, &nameErr) {
			return nil, nil
		}

		if isFailoverError(err) {
			r.pool.recordFailure(addr, err)
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (r *Resolver) resolveOnServer(ctx context.Context, addr ServerAddress, name string, types []RecordType) ([]Record, error) {
	socket, err := r.pool.SocketFor(addr)
	if err != nil {
		return nil, TransportError{Cause: err}
	}

	r.pool.recordQuery(addr)
	fut := r.dispatcher.SubmitMulti(socket, addr, name, types, r.timeout)
	go func() {
		<-ctx.Done()
		fut.Cancel()
	}()

	records, err := fut.Wait(ctx)
	if err != nil {
		var nameErr NameErrorResult
		if asNameError(err, &nameErr) {
			r.cache.Put(name, types[0], nil, fut.NegativeTTL())
		}
		return nil, err
	}

	matched := types[0]
	if len(records) > 0 {
		matched = records[0].Type
	}
	r.cache.Put(name, matched, records, fut.NegativeTTL())
	return records, nil
}

func asNameError(err error, out *NameErrorResult) bool {
	ne, ok := err.(NameErrorResult)
	if ok {
		*out = ne
	}
	return ok
}

func isFailoverError(err error) bool {
	switch err.(type) {
	case TimeoutError, TransportError, ServerError, ServerRetiredError:
		return true
	default:
		return false
	}
}
