package adns

import (
	"errors"
	"io"
	"sync"
)

var errSendFailed = errors.New("send failed")

func init() {
	// Silence the logger while running tests
	Log.SetOutput(io.Discard)
}

// TestSocket is a configurable DatagramSocket used for testing. It counts
// the number of datagrams sent, can be set to fail every send with a
// TransportError, and
// SendFunc, if set, lets a test synthesize a reply by calling deliver.
type TestSocket struct {
	SendFunc func(b []byte, deliver func([]byte))

	mu        sync.Mutex
	handler   ReceiveHandler
	hitCount  int
	shouldFail bool
	closed    bool
}

var _ DatagramSocket = &TestSocket{}

func (s *TestSocket) Send(b []byte) error {
	s.mu.Lock()
	s.hitCount++
	fail := s.shouldFail
	fn := s.SendFunc
	s.mu.Unlock()

	if fail {
		return TransportError{Cause: errSendFailed}
	}
	if fn != nil {
		fn(b, s.deliver)
	}
	return nil
}

func (s *TestSocket) deliver(b []byte) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h != nil {
		h(b)
	}
}

func (s *TestSocket) OnReceive(h ReceiveHandler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

func (s *TestSocket) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *TestSocket) HitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hitCount
}

func (s *TestSocket) SetFail(f bool) {
	s.mu.Lock()
	s.shouldFail = f
	s.mu.Unlock()
}
