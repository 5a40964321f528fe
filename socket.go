package adns

import (
	"net"
	"sync"
)

// ReceiveHandler is invoked by a DatagramSocket's read loop for every
// datagram it receives. Implementations must not block for long; the
// QueryDispatcher hands off to user-visible completions via a channel so
// a slow consumer never stalls the socket reader.
type ReceiveHandler func(b []byte)

// DatagramSocket is the transport abstraction the core assumes: bind,
// send, recv, non-blocking with readiness notifications delivered through
// a registered ReceiveHandler.
type DatagramSocket interface {
	Send(b []byte) error
	OnReceive(h ReceiveHandler)
	Close() error
}

// minSocketBufferBytes is the minimum send/receive buffer size requested
// on every opened socket, per the wire-behavior section of the spec.
const minSocketBufferBytes = 1 << 20 // 1 MiB

// udpSocket is the default DatagramSocket, backed by a connected
// *net.UDPConn. A dedicated read-loop goroutine blocks on Read and
// forwards each datagram to the registered handler, mirroring the
// teacher's Pipeline.start() reader goroutine.
type udpSocket struct {
	conn *net.UDPConn

	mu      sync.RWMutex
	handler ReceiveHandler

	closeOnce sync.Once
	closed    chan struct{}
}

var _ DatagramSocket = (*udpSocket)(nil)

// dialUDPSocket opens a UDP socket "connected" to addr and starts its read
// loop. The connection has no local bind; the kernel assigns an ephemeral
// port, matching the spec's socket_for contract.
func dialUDPSocket(addr *net.UDPAddr) (*udpSocket, error) {
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, TransportError{Cause: err}
	}
	_ = conn.SetReadBuffer(minSocketBufferBytes)
	_ = conn.SetWriteBuffer(minSocketBufferBytes)

	s := &udpSocket{
		conn:   conn,
		closed: make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func (s *udpSocket) Send(b []byte) error {
	if _, err := s.conn.Write(b); err != nil {
		return TransportError{Cause: err}
	}
	return nil
}

func (s *udpSocket) OnReceive(h ReceiveHandler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

func (s *udpSocket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.conn.Close()
	})
	return err
}

func (s *udpSocket) readLoop() {
	buf := make([]byte, 65535)
	for {
		n, err := s.conn.Read(buf)
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
			}
			Log.WithField("addr", s.conn.RemoteAddr()).WithError(err).Debug("udp read failed")
			continue
		}
		s.mu.RLock()
		h := s.handler
		s.mu.RUnlock()
		if h != nil {
			b := make([]byte, n)
			copy(b, buf[:n])
			h(b)
		}
	}
}
