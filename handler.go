package dispatch

import "net"

// Action is the value a handler callback returns to tell the loop what to
// do with the socket next.
type Action struct {
	kind     actionKind
	interest InterestMask
}

type actionKind int

const (
	actionContinue actionKind = iota
	actionChangeInterest
	actionDispose
)

// Continue leaves the socket's current interest mask unchanged.
func Continue() Action { return Action{kind: actionContinue} }

// ChangeInterest replaces the socket's interest mask. mask must select at
// least one of Readable or Writable.
func ChangeInterest(mask InterestMask) Action {
	return Action{kind: actionChangeInterest, interest: mask}
}

// Dispose closes the socket's file descriptor, unregisters it from the
// poller, and removes it from the registry. No further callbacks fire for
// this socket after Dispose is applied.
func Dispose() Action { return Action{kind: actionDispose} }

// StreamHandler receives readiness callbacks for a registered stream
// socket. Implementations must not block — the loop goroutine services
// every other registered socket while a callback is running.
type StreamHandler interface {
	// OnReadReady is called when the stream has data available to read, or
	// has reached EOF.
	OnReadReady(s *Stream) Action
	// OnWriteReady is called when the stream is ready to accept more
	// written data, or (for a connection still completing a non-blocking
	// connect) when the connect attempt has resolved.
	OnWriteReady(s *Stream) Action
	// OnError is called when the poller reports an error condition on the
	// socket (e.g. ECONNRESET) or when pendingError surfaces a failed
	// connect. The returned Action is applied to the socket like any other
	// callback's: Continue keeps it registered, Dispose closes it.
	OnError(err error) Action
}

// ListenerHandler receives readiness callbacks for a registered listener
// socket.
type ListenerHandler interface {
	// OnAccept is called once per pending connection on the listener's
	// accept queue, with the new connection's remote address. It returns
	// the StreamHandler to drive subsequent reads and writes for the new
	// connection (the loop registers it with Readable|Writable interest
	// immediately), or a nil handler to reject and close the connection
	// without registering it. The returned Action applies to the listener
	// itself, not the new connection.
	OnAccept(peerAddr net.Addr) (StreamHandler, Action)
	// OnError is called when accept() fails in a way that is not EAGAIN
	// (e.g. EMFILE), or when the poller reports an error condition with a
	// pending SO_ERROR on the listener. The returned Action is applied to
	// the listener: Continue keeps it registered, Dispose closes it.
	OnError(err error) Action
}
