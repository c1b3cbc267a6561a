//go:build linux || darwin

package dispatch

import (
	"errors"

	"golang.org/x/sys/unix"
)

// closeFD closes a file descriptor.
func closeFD(fd int) error {
	return unix.Close(fd)
}

// readFD reads from a file descriptor.
func readFD(fd int, buf []byte) (int, error) {
	return unix.Read(fd, buf)
}

// writeFD writes to a file descriptor.
func writeFD(fd int, buf []byte) (int, error) {
	return unix.Write(fd, buf)
}

// dupFD duplicates fd, setting close-on-exec on the duplicate, and leaves
// the original untouched. Used to take exclusive ownership of a socket
// handed to us as a *net.TCPConn/*net.TCPListener: we dup the fd, the
// caller's net.Conn/net.Listener is then closed (which does not affect the
// duplicate), and every subsequent syscall runs against the duplicate only,
// so the dispatcher's own epoll/kqueue instance never races Go's runtime
// netpoller over the same descriptor. Grounded on the dup-then-release
// pattern used for adopting externally-owned connections into a private
// poller instance.
func dupFD(fd int) (int, error) {
	nfd, err := unix.Dup(fd)
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(nfd)
	if err := unix.SetNonblock(nfd, true); err != nil {
		_ = unix.Close(nfd)
		return -1, err
	}
	return nfd, nil
}

// pendingError reads and clears SO_ERROR on fd, surfacing any asynchronous
// connect/accept failure that only becomes visible once the descriptor is
// signalled as writable or readable.
func pendingError(fd int) error {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if errno != 0 {
		return unix.Errno(errno)
	}
	return nil
}

// isAgain reports whether err is the non-blocking "try again" condition,
// i.e. not a real failure.
func isAgain(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}
