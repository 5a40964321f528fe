package adns

import (
	"context"
	"expvar"
	"sync"
	"time"
)

// defaultMaxConsecutiveFailures is the health policy threshold from the
// spec: after this many consecutive timeouts or transport errors, a
// server's socket is automatically retired.
const defaultMaxConsecutiveFailures = 3

// WellKnownServers seeds a ServerPool with well-known public resolvers,
// used when no OS-supplied or explicitly configured servers are available.
var WellKnownServers = []string{
	"8.8.8.8:53",
	"8.8.4.4:53",
	"208.67.222.222:53",
	"208.67.220.220:53",
}

// poolEntry is the ServerPool's bookkeeping for one upstream address: at
// most one entry per address, the socket (once present) stays open until
// explicitly retired.
type poolEntry struct {
	addr ServerAddress

	mu                  sync.Mutex
	socket              DatagramSocket
	lastUsed            time.Time
	inFlight            int
	consecutiveFailures int
}

// poolMetrics exposes per-server operational counters for a ServerPool,
// keyed by server address within each expvar.Map, matching the teacher's
// vars.go + CacheMetrics pattern.
type poolMetrics struct {
	sent            *expvar.Map
	timeouts        *expvar.Map
	transportErrors *expvar.Map
}

func newPoolMetrics(id string) *poolMetrics {
	return &poolMetrics{
		sent:            getVarMap("serverpool", id, "sent"),
		timeouts:        getVarMap("serverpool", id, "timeouts"),
		transportErrors: getVarMap("serverpool", id, "transport_errors"),
	}
}

// ServerPool maintains the ordered list of upstream resolver addresses and
// their sockets, lazily creating, health-checking, and retiring them.
type ServerPool struct {
	dispatcher  *QueryDispatcher
	maxFailures int
	metrics     *poolMetrics

	mu      sync.RWMutex
	order   []ServerAddress
	entries map[string]*poolEntry
}

// NewServerPool returns an empty pool. dispatcher is used both to wire new
// sockets' receive handlers and to drive the synchronous Validate call.
// maxFailures is the consecutive-failure health-policy threshold; a value
// <= 0 uses defaultMaxConsecutiveFailures.
func NewServerPool(dispatcher *QueryDispatcher, maxFailures int) *ServerPool {
	if maxFailures <= 0 {
		maxFailures = defaultMaxConsecutiveFailures
	}
	return &ServerPool{
		dispatcher:  dispatcher,
		maxFailures: maxFailures,
		metrics:     newPoolMetrics("default"),
		entries:     make(map[string]*poolEntry),
	}
}

// Add appends address to the ordered list if it isn't already present.
func (p *ServerPool) Add(addr ServerAddress) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := addr.String()
	if _, exists := p.entries[key]; exists {
		return false
	}
	p.entries[key] = &poolEntry{addr: addr}
	p.order = append(p.order, addr)
	return true
}

// Remove drops address from the pool, closing its socket if open.
func (p *ServerPool) Remove(addr ServerAddress) bool {
	p.mu.Lock()
	key := addr.String()
	entry, exists := p.entries[key]
	if !exists {
		p.mu.Unlock()
		return false
	}
	delete(p.entries, key)
	for i, a := range p.order {
		if a.Equal(addr) {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	p.mu.Unlock()

	entry.mu.Lock()
	socket := entry.socket
	entry.socket = nil
	entry.mu.Unlock()
	if socket != nil {
		p.dispatcher.RetireSocket(socket, addr)
		_ = socket.Close()
	}
	return true
}

// Get returns the address at index, or false if out of range.
func (p *ServerPool) Get(index int) (ServerAddress, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if index < 0 || index >= len(p.order) {
		return ServerAddress{}, false
	}
	return p.order[index], true
}

// Len reports the number of configured servers.
func (p *ServerPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.order)
}

// Primary returns the first entry in the ordered list.
func (p *ServerPool) Primary() (ServerAddress, bool) {
	return p.Get(0)
}

func (p *ServerPool) entryFor(addr ServerAddress) *poolEntry {
	p.mu.RLock()
	e, ok := p.entries[addr.String()]
	p.mu.RUnlock()
	if ok {
		return e
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[addr.String()]; ok {
		return e
	}
	e = &poolEntry{addr: addr}
	p.entries[addr.String()] = e
	p.order = append(p.order, addr)
	return e
}

// SocketFor returns the existing socket for addr, opening a new UDP socket
// bound to an ephemeral local port if absent. Concurrent calls for the
// same address observe the same socket: creation is serialized per entry
// with a double-checked read-then-lock-then-read.
func (p *ServerPool) SocketFor(addr ServerAddress) (DatagramSocket, error) {
	entry := p.entryFor(addr)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.socket != nil {
		entry.lastUsed = time.Now()
		return entry.socket, nil
	}

	socket, err := dialUDPSocket(addr.udpAddr())
	if err != nil {
		return nil, err
	}
	socket.OnReceive(func(b []byte) { p.dispatcher.OnReceive(socket, b) })
	entry.socket = socket
	entry.lastUsed = time.Now()
	return socket, nil
}

// Retire closes the socket for addr, cancels every pending entry bound to
// it with ServerRetiredError, and drops it from the socket map. The
// address stays in the ordered list unless Remove is also called.
func (p *ServerPool) Retire(addr ServerAddress) {
	entry := p.entryFor(addr)
	entry.mu.Lock()
	socket := entry.socket
	entry.socket = nil
	entry.consecutiveFailures = 0
	entry.mu.Unlock()
	if socket == nil {
		return
	}
	p.dispatcher.RetireSocket(socket, addr)
	_ = socket.Close()
}

// recordQuery counts one query sent to addr, for operational visibility.
func (p *ServerPool) recordQuery(addr ServerAddress) {
	p.metrics.sent.Add(addr.String(), 1)
}

// recordFailure buckets err into the timeout/transport-error counters,
// increments addr's consecutive-failure count, and retires the socket once
// the health policy threshold is reached. Errors other than timeouts and
// transport errors are ignored.
func (p *ServerPool) recordFailure(addr ServerAddress, err error) {
	switch err.(type) {
	case TimeoutError:
		p.metrics.timeouts.Add(addr.String(), 1)
	case TransportError:
		p.metrics.transportErrors.Add(addr.String(), 1)
	default:
		return
	}

	entry := p.entryFor(addr)
	entry.mu.Lock()
	entry.consecutiveFailures++
	retire := entry.consecutiveFailures >= p.maxFailures
	entry.mu.Unlock()
	if retire {
		p.Retire(addr)
	}
}

// recordSuccess clears addr's consecutive-failure count.
func (p *ServerPool) recordSuccess(addr ServerAddress) {
	entry := p.entryFor(addr)
	entry.mu.Lock()
	entry.consecutiveFailures = 0
	entry.mu.Unlock()
}

// Validate issues a synchronous canary lookup against addr and reports
// whether a valid response arrived within timeout. It blocks its caller on
// an internal Future but is itself driven through the same asynchronous
// dispatcher machinery used everywhere else — never a bespoke blocking
// code path, per the spec's bootstrap design note.
func (p *ServerPool) Validate(addr ServerAddress, canaryName string, timeout time.Duration) bool {
	socket, err := p.SocketFor(addr)
	if err != nil {
		return false
	}
	name, err := normalizeName(canaryName)
	if err != nil {
		return false
	}
	fut := p.dispatcher.Submit(socket, addr, name, TypeA, timeout)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_, err = fut.Wait(ctx)
	return err == nil
}
