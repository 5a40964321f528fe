package adns

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
)

func wireDispatcher(d *QueryDispatcher, socket *TestSocket) {
	socket.OnReceive(func(b []byte) { d.OnReceive(socket, b) })
}

func packAnswer(t *testing.T, id uint16, name string, ip string) []byte {
	t.Helper()
	m := new(dns.Msg)
	m.Id = id
	m.Rcode = dns.RcodeSuccess
	m.Answer = []dns.RR{&dns.A{
		Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
		A:   net.ParseIP(ip),
	}}
	b, err := m.Pack()
	require.NoError(t, err)
	return b
}

func TestDispatcherSubmitSuccess(t *testing.T) {
	d := NewQueryDispatcher(MsgCodec{}, time.Second)
	socket := &TestSocket{}
	wireDispatcher(d, socket)

	socket.SendFunc = func(sent []byte, deliver func([]byte)) {
		var m dns.Msg
		require.NoError(t, m.Unpack(sent))
		deliver(packAnswer(t, m.Id, m.Question[0].Name, "93.184.216.34"))
	}

	fut := d.Submit(socket, ServerAddress{}, "example.com.", TypeA, 0)
	records, err := fut.Wait(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, TypeA, records[0].Type)
}

func TestDispatcherSubmitTimeout(t *testing.T) {
	d := NewQueryDispatcher(MsgCodec{}, 10*time.Millisecond)
	socket := &TestSocket{}
	wireDispatcher(d, socket)
	// No SendFunc: the query is "sent" but nothing ever replies.

	fut := d.Submit(socket, ServerAddress{}, "example.com.", TypeA, 0)
	_, err := fut.Wait(context.Background())
	require.IsType(t, TimeoutError{}, err)
}

func TestDispatcherOnReceiveDropsUnmatchedID(t *testing.T) {
	d := NewQueryDispatcher(MsgCodec{}, time.Second)
	socket := &TestSocket{}
	wireDispatcher(d, socket)

	// A reply for an id nobody submitted must not panic and is simply
	// dropped.
	d.OnReceive(socket, packAnswer(t, 4242, "ghost.example.", "1.2.3.4"))
}

func TestDispatcherNXDomain(t *testing.T) {
	d := NewQueryDispatcher(MsgCodec{}, time.Second)
	socket := &TestSocket{}
	wireDispatcher(d, socket)

	socket.SendFunc = func(sent []byte, deliver func([]byte)) {
		var m dns.Msg
		require.NoError(t, m.Unpack(sent))
		reply := new(dns.Msg)
		reply.Id = m.Id
		reply.Rcode = dns.RcodeNameError
		b, err := reply.Pack()
		require.NoError(t, err)
		deliver(b)
	}

	fut := d.Submit(socket, ServerAddress{}, "nope.example.", TypeA, 0)
	_, err := fut.Wait(context.Background())
	require.IsType(t, NameErrorResult{}, err)
}

func TestDispatcherSubmitMultiFirstNonEmptyWins(t *testing.T) {
	d := NewQueryDispatcher(MsgCodec{}, time.Second)
	socket := &TestSocket{}
	wireDispatcher(d, socket)

	socket.SendFunc = func(sent []byte, deliver func([]byte)) {
		var m dns.Msg
		require.NoError(t, m.Unpack(sent))
		switch m.Question[0].Qtype {
		case dns.TypeAAAA:
			// NoData: answer immediately with an empty, successful reply.
			reply := new(dns.Msg)
			reply.Id = m.Id
			reply.Rcode = dns.RcodeSuccess
			b, err := reply.Pack()
			require.NoError(t, err)
			deliver(b)
		case dns.TypeA:
			deliver(packAnswer(t, m.Id, m.Question[0].Name, "93.184.216.34"))
		}
	}

	fut := d.SubmitMulti(socket, ServerAddress{}, "example.com.", []RecordType{TypeA, TypeAAAA}, time.Second)
	records, err := fut.Wait(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, TypeA, records[0].Type)
}

func TestDispatcherIdCollisionRetriedOnce(t *testing.T) {
	d := NewQueryDispatcher(MsgCodec{}, time.Second)
	socket := &TestSocket{}
	wireDispatcher(d, socket)

	// Pin the allocator so the first allocation collides with an entry
	// we insert ourselves, forcing the dispatcher's retry path.
	table := d.tableFor(socket)
	collidingID := d.ids.allocate() + 1
	d.ids = &idAllocator{next: collidingID - 1}
	require.True(t, table.insert(&pendingEntry{id: collidingID, fut: newFuture()}))

	socket.SendFunc = func(sent []byte, deliver func([]byte)) {
		var m dns.Msg
		require.NoError(t, m.Unpack(sent))
		deliver(packAnswer(t, m.Id, m.Question[0].Name, "93.184.216.34"))
	}

	fut := d.Submit(socket, ServerAddress{}, "example.com.", TypeA, 0)
	records, err := fut.Wait(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 1, socket.HitCount())
}
