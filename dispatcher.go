package adns

import (
	"context"
	"expvar"
	"sync"
	"time"
)

// dispatcherMetrics exposes operational counters for a QueryDispatcher, in
// the teacher's expvar-backed metrics style: a pending-entry gauge and an
// id-collision counter, namespaced like CacheMetrics.
type dispatcherMetrics struct {
	pending     *expvar.Int
	idCollision *expvar.Int
}

func newDispatcherMetrics(id string) *dispatcherMetrics {
	return &dispatcherMetrics{
		pending:     getVarInt("dispatcher", id, "pending"),
		idCollision: getVarInt("dispatcher", id, "id_collision"),
	}
}

// QueryDispatcher owns the pending-query table and matches incoming
// datagrams back to the request that sent them by DNS transaction id. It
// is the "query lifecycle core" the spec calls out as the hard part of
// this library.
type QueryDispatcher struct {
	codec   Codec
	ids     *idAllocator
	timeout time.Duration
	metrics *dispatcherMetrics

	mu     sync.Mutex
	tables map[DatagramSocket]*socketTable
}

// NewQueryDispatcher returns a dispatcher using codec to encode/decode
// wire messages and timeout as the default per-query deadline (applied
// whenever Submit is called with a zero deadline).
func NewQueryDispatcher(codec Codec, timeout time.Duration) *QueryDispatcher {
	if timeout <= 0 {
		timeout = RequestTimeout
	}
	return &QueryDispatcher{
		codec:   codec,
		ids:     newIDAllocator(),
		timeout: timeout,
		metrics: newDispatcherMetrics("default"),
		tables:  make(map[DatagramSocket]*socketTable),
	}
}

// removeEntry drops id from table and updates the pending-entry gauge. Every
// removal of a registered entry must go through this instead of calling
// table.remove directly.
func (d *QueryDispatcher) removeEntry(table *socketTable, id uint16) {
	table.remove(id)
	d.metrics.pending.Add(-1)
}

func (d *QueryDispatcher) tableFor(socket DatagramSocket) *socketTable {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tables[socket]
	if !ok {
		t = newSocketTable()
		d.tables[socket] = t
	}
	return t
}

// Submit allocates an id, registers a pending entry, sends the encoded
// query on socket, arms a deadline, and returns a Future that completes
// once a matching response arrives, the deadline expires, or the send
// fails. A zero deadline uses the dispatcher's default timeout.
func (d *QueryDispatcher) Submit(socket DatagramSocket, server ServerAddress, name string, rtype RecordType, deadline time.Duration) *Future {
	fut := newFuture()
	table := d.tableFor(socket)

	id, entry, err := d.register(table, server, rtype, name, fut)
	if err != nil {
		fut.complete(nil, err)
		return fut
	}
	fut.addCancelFunc(func() {
		if entry.finish() {
			d.removeEntry(table, entry.id)
		}
	})

	encoded, err := d.codec.Encode(Query{ID: id, Name: name, Type: rtype})
	if err != nil {
		if entry.finish() {
			d.removeEntry(table, id)
		}
		fut.complete(nil, err)
		return fut
	}
	if err := socket.Send(encoded); err != nil {
		if entry.finish() {
			d.removeEntry(table, id)
		}
		fut.complete(nil, err)
		return fut
	}
	d.arm(table, entry, deadline)
	return fut
}

// register allocates an id and inserts a pending entry, retrying once on
// an id collision before giving up with IdCollisionError.
func (d *QueryDispatcher) register(table *socketTable, server ServerAddress, rtype RecordType, name string, fut *Future) (uint16, *pendingEntry, error) {
	var lastID uint16
	for attempt := 0; attempt < 2; attempt++ {
		id := d.ids.allocate()
		lastID = id
		entry := &pendingEntry{id: id, name: name, rtype: rtype, server: server, fut: fut}
		if table.insert(entry) {
			d.metrics.pending.Add(1)
			return id, entry, nil
		}
		d.metrics.idCollision.Add(1)
	}
	return 0, nil, IdCollisionError{ID: lastID}
}

func (d *QueryDispatcher) arm(table *socketTable, entry *pendingEntry, deadline time.Duration) {
	if deadline <= 0 {
		deadline = d.timeout
	}
	timer := time.AfterFunc(deadline, func() {
		if !entry.finish() {
			return
		}
		d.removeEntry(table, entry.id)
		entry.fut.complete(nil, TimeoutError{Name: entry.name, RType: entry.rtype})
	})
	entry.mu.Lock()
	entry.timer = timer
	entry.mu.Unlock()
}

// OnReceive decodes a datagram from socket and matches it to a pending
// entry. Malformed packets and replies with no matching entry (late or
// spurious) are dropped silently.
func (d *QueryDispatcher) OnReceive(socket DatagramSocket, b []byte) {
	resp, err := d.codec.Decode(b)
	if err != nil {
		Log.WithError(err).Debug("dropping malformed dns response")
		return
	}

	table := d.tableFor(socket)
	entry, ok := table.get(resp.ID)
	if !ok {
		return
	}
	if !entry.finish() {
		return
	}
	d.removeEntry(table, resp.ID)

	switch resp.Rcode {
	case RcodeNXDomain:
		entry.fut.setNegativeTTL(resp.NegativeTTL)
		entry.fut.complete(nil, NameErrorResult{Name: entry.name})
	case RcodeNoError:
		records := filterByType(resp.Answers, entry.rtype)
		if len(records) == 0 {
			entry.fut.setNegativeTTL(resp.NegativeTTL)
		}
		entry.fut.complete(records, nil)
	default:
		entry.fut.complete(nil, ServerError{Rcode: resp.Rcode})
	}
}

// RetireSocket tears down the pending table for socket, failing every
// entry bound to it with ServerRetiredError. It does not close the socket
// itself; that is the ServerPool's responsibility.
func (d *QueryDispatcher) RetireSocket(socket DatagramSocket, server ServerAddress) {
	d.mu.Lock()
	table, ok := d.tables[socket]
	delete(d.tables, socket)
	d.mu.Unlock()
	if !ok {
		return
	}
	drained := table.drainAll()
	for _, entry := range drained {
		if entry.finish() {
			d.metrics.pending.Add(-1)
			entry.fut.complete(nil, ServerRetiredError{Server: server})
		}
	}
}

func filterByType(records []Record, rtype RecordType) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Type == rtype {
			out = append(out, r)
		}
	}
	return out
}

// SubmitMulti registers one pending entry per type in types but shares a
// single Future across all of them, completing on the first query whose
// response yields a non-empty answer set matching its type. The remaining
// entries are then cancelled. A NameErrorResult is authoritative and wins
// over a still-pending sibling only once every sibling has settled (it
// does not itself cancel siblings, since an NXDOMAIN for one type says
// nothing about another). The shared Future only produces a TimeoutError
// once every sibling has timed out.
func (d *QueryDispatcher) SubmitMulti(socket DatagramSocket, server ServerAddress, name string, types []RecordType, deadline time.Duration) *Future {
	shared := newFuture()
	if len(types) == 0 {
		shared.complete(nil, InvalidArgumentError{Reason: "no record types requested"})
		return shared
	}

	children := make([]*Future, len(types))
	for i, rtype := range types {
		children[i] = d.Submit(socket, server, name, rtype, deadline)
	}
	shared.addCancelFunc(func() {
		for _, c := range children {
			c.Cancel()
		}
	})

	go raceChildren(shared, children)
	return shared
}

func raceChildren(shared *Future, children []*Future) {
	var (
		mu          sync.Mutex
		remaining   = len(children)
		nameErr     error
		nameErrTTL  uint32
		timeoutErr  error
		otherErr    error
		negativeTTL uint32
		sawNegative bool
	)

	settleIfDone := func() {
		if remaining > 0 {
			return
		}
		switch {
		case nameErr != nil:
			shared.setNegativeTTL(nameErrTTL)
			shared.complete(nil, nameErr)
		case timeoutErr != nil && otherErr == nil && !sawNegative:
			shared.complete(nil, timeoutErr)
		case otherErr != nil:
			shared.complete(nil, otherErr)
		default:
			if sawNegative {
				shared.setNegativeTTL(negativeTTL)
			}
			shared.complete(nil, nil)
		}
	}

	for _, child := range children {
		child := child
		go func() {
			records, err := child.Wait(context.Background())

			if err == nil && len(records) > 0 {
				shared.complete(records, nil)
				for _, c := range children {
					if c != child {
						c.Cancel()
					}
				}
				return
			}

			mu.Lock()
			defer mu.Unlock()
			remaining--
			switch err.(type) {
			case NameErrorResult:
				nameErr = err
				nameErrTTL = child.NegativeTTL()
			case TimeoutError:
				timeoutErr = err
			default:
				if err != nil {
					otherErr = err
				} else {
					// NOERROR with no matching answer (NoData): the
					// child may still carry an SOA minimum to cache.
					sawNegative = true
					negativeTTL = child.NegativeTTL()
				}
			}
			settleIfDone()
		}()
	}
}
