package dispatch

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Dispatcher and its supporting components.
var (
	// ErrDispatcherClosed is returned by registration methods once Stop has
	// been requested; no new sockets are accepted after this point.
	ErrDispatcherClosed = errors.New("dispatch: dispatcher closed")

	// ErrTooManySockets is returned when the live socket count would exceed
	// the configured maximum (see WithMaxSocketID).
	ErrTooManySockets = errors.New("dispatch: too many sockets registered")

	// ErrUnknownSocket names a socket id that is not present in the
	// registry. No function in this package returns it.
	ErrUnknownSocket = errors.New("dispatch: unknown socket id")

	// ErrInvalidInterest is the Cause of the DisposeError logged when a
	// handler returns ChangeInterest with a mask that selects neither
	// Readable nor Writable; the socket is disposed.
	ErrInvalidInterest = errors.New("dispatch: interest mask must select at least one of Readable or Writable")
)

// DisposeError wraps the error that caused a socket to be force-disposed,
// such as a failed ModifyFD call after a handler requested ChangeInterest.
type DisposeError struct {
	ID    SocketID
	Cause error
}

func (e *DisposeError) Error() string {
	return fmt.Sprintf("dispatch: socket %d disposed: %v", e.ID, e.Cause)
}

func (e *DisposeError) Unwrap() error {
	return e.Cause
}

// ioError wraps a raw syscall-level error with the operation name and fd.
// The original error stays in the chain, so errors.Is/errors.As still see
// the underlying errno.
func ioError(op string, fd int, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("dispatch: %s fd=%d: %w", op, fd, err)
}
