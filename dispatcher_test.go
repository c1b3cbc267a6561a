package dispatch

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoStreamHandler writes back whatever it reads, one Read/Write pair at a
// time — the same shape the gaio test suite's echo server exercises.
type echoStreamHandler struct{}

func (echoStreamHandler) OnReadReady(s *Stream) Action {
	buf := make([]byte, 4096)
	n, err := s.Read(buf)
	if err != nil {
		return Dispose()
	}
	if n == 0 {
		return Continue()
	}
	for written := 0; written < n; {
		m, err := s.Write(buf[written:n])
		if err != nil {
			return Dispose()
		}
		written += m
	}
	return Continue()
}

func (echoStreamHandler) OnWriteReady(*Stream) Action { return Continue() }
func (echoStreamHandler) OnError(error) Action        { return Dispose() }

type echoListenerHandler struct{}

func (echoListenerHandler) OnAccept(net.Addr) (StreamHandler, Action) {
	return echoStreamHandler{}, Continue()
}
func (echoListenerHandler) OnError(error) Action { return Continue() }

func TestDispatcherEchoRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	d, err := New(256)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	id, err := d.RegisterListener(ln, echoListenerHandler{}).Wait(ctx)
	require.NoError(t, err)
	assert.NotZero(t, id)

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	const msg = "hello dispatcher"
	_, err = conn.Write([]byte(msg))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, len(msg))
	_, err = readFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, msg, string(buf))
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func TestDispatcherStopRejectsFurtherRegistration(t *testing.T) {
	d, err := New(64)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = d.Stop().Wait(ctx)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, err = d.RegisterListener(ln, echoListenerHandler{}).Wait(ctx)
	assert.ErrorIs(t, err, ErrDispatcherClosed)
}

// acceptPeer dials ln and returns both ends of the resulting connection:
// the client side (to hand to RegisterStream) and the accepted server side
// (kept open so the client side doesn't immediately see EOF).
func acceptPeer(t *testing.T, ctx context.Context, ln net.Listener) (client, server net.Conn) {
	t.Helper()
	acceptedCh := make(chan net.Conn, 1)
	acceptErrCh := make(chan error, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			acceptErrCh <- err
			return
		}
		acceptedCh <- c
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)

	select {
	case server = <-acceptedCh:
		return conn, server
	case err := <-acceptErrCh:
		t.Fatalf("accept failed: %v", err)
	case <-ctx.Done():
		t.Fatal("never accepted")
	}
	return nil, nil
}

// TestDispatcherRegisterStreamsYieldDistinctIDs covers spec.md §8's
// dispatcher invariant that N registered sockets receive N distinct ids.
func TestDispatcherRegisterStreamsYieldDistinctIDs(t *testing.T) {
	const n = 8

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	d, err := New(64)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ids := make(map[SocketID]struct{}, n)
	for i := 0; i < n; i++ {
		client, server := acceptPeer(t, ctx, ln)
		defer client.Close()
		defer server.Close()

		id, err := d.RegisterStream(client, echoStreamHandler{}).Wait(ctx)
		require.NoError(t, err)
		assert.NotZero(t, id)

		_, dup := ids[id]
		assert.Falsef(t, dup, "id %d reused", id)
		ids[id] = struct{}{}
	}
	assert.Len(t, ids, n)
}

// disposeAfterAcceptListenerHandler disposes the listener itself right
// after accepting its first connection, rejecting the connection rather
// than registering it as a stream.
type disposeAfterAcceptListenerHandler struct {
	accepted chan struct{}
}

func (h disposeAfterAcceptListenerHandler) OnAccept(net.Addr) (StreamHandler, Action) {
	close(h.accepted)
	return nil, Dispose()
}
func (disposeAfterAcceptListenerHandler) OnError(error) Action { return Continue() }

// TestDispatcherDisposeEmptiesIDSet covers spec.md §8's dispatcher
// invariant that the live id set is empty once every registered socket has
// been disposed.
func TestDispatcherDisposeEmptiesIDSet(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	d, err := New(64)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	accepted := make(chan struct{})
	_, err = d.RegisterListener(ln, disposeAfterAcceptListenerHandler{accepted: accepted}).Wait(ctx)
	require.NoError(t, err)

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-accepted:
	case <-ctx.Done():
		t.Fatal("listener never accepted a connection")
	}

	idsCh := make(chan []SocketID, 1)
	require.Eventually(t, func() bool {
		d.loop.submit(func(l *loop) { idsCh <- l.registry.ids() })
		select {
		case ids := <-idsCh:
			return len(ids) == 0
		case <-ctx.Done():
			return false
		}
	}, 2*time.Second, 10*time.Millisecond, "registry never emptied after listener dispose")
}

// writeOnceThenReadOnlyHandler exercises spec.md §8's invariant that once a
// callback returns ChangeInterest with Writable cleared, no further
// OnWriteReady calls arrive until interest is widened again.
type writeOnceThenReadOnlyHandler struct {
	writeReadyCalls *int32
}

func (writeOnceThenReadOnlyHandler) OnReadReady(*Stream) Action { return Continue() }

func (h writeOnceThenReadOnlyHandler) OnWriteReady(*Stream) Action {
	atomic.AddInt32(h.writeReadyCalls, 1)
	return ChangeInterest(Readable)
}

func (writeOnceThenReadOnlyHandler) OnError(error) Action { return Dispose() }

func TestDispatcherChangeInterestStopsWriteReadyCallbacks(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	d, err := New(64)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, server := acceptPeer(t, ctx, ln)
	defer client.Close()
	defer server.Close()

	var calls int32
	_, err = d.RegisterStream(client, writeOnceThenReadOnlyHandler{writeReadyCalls: &calls}).Wait(ctx)
	require.NoError(t, err)

	// A freshly-connected TCP socket's send buffer stays writable
	// continuously, so a poller that kept honoring Writable interest here
	// would redeliver OnWriteReady many times over this window.
	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
