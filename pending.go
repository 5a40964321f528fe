package adns

import (
	"sync"
	"time"
)

// pendingEntry tracks one outgoing query awaiting a response. It is
// uniquely identified within a socket by id and moves through the terminal
// states described in the spec's PendingEntry state machine: completed,
// timed out, failed, cancelled, or retired — all idempotent, a late
// transition after any of them is a no-op.
type pendingEntry struct {
	id     uint16
	name   string
	rtype  RecordType
	server ServerAddress
	fut    *Future

	mu    sync.Mutex
	timer *time.Timer
	done  bool
}

// finish marks the entry terminal and stops its deadline timer. It returns
// false if some other transition already claimed the entry.
func (p *pendingEntry) finish() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return false
	}
	p.done = true
	if p.timer != nil {
		p.timer.Stop()
	}
	return true
}

// socketTable is the pending-entry table for a single socket, keyed by
// transaction id. Splitting the dispatcher's global table into one per
// socket gives the "fine-grained lock keyed by socket" discipline the
// concurrency model calls for, without needing a composite (socket, id)
// map key.
type socketTable struct {
	mu      sync.Mutex
	entries map[uint16]*pendingEntry
}

func newSocketTable() *socketTable {
	return &socketTable{entries: make(map[uint16]*pendingEntry)}
}

// insert adds e if its id isn't already occupied. It reports whether the
// insert succeeded; the caller re-allocates and retries once on failure.
func (t *socketTable) insert(e *pendingEntry) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.entries[e.id]; exists {
		return false
	}
	t.entries[e.id] = e
	return true
}

func (t *socketTable) remove(id uint16) {
	t.mu.Lock()
	delete(t.entries, id)
	t.mu.Unlock()
}

func (t *socketTable) get(id uint16) (*pendingEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	return e, ok
}

// drainAll removes and returns every entry, used when a socket is retired.
func (t *socketTable) drainAll() []*pendingEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	all := make([]*pendingEntry, 0, len(t.entries))
	for _, e := range t.entries {
		all = append(all, e)
	}
	t.entries = make(map[uint16]*pendingEntry)
	return all
}
