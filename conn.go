package dispatch

import (
	"errors"
	"io"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// errNotTCP is returned when RegisterListener/RegisterStream is given a
// net.Listener/net.Conn whose underlying descriptor cannot be extracted,
// e.g. an in-memory net.Pipe conn.
var errNotTCP = errors.New("dispatch: socket does not expose a raw file descriptor")

// rawFD extracts and duplicates the underlying file descriptor of a
// *net.TCPConn/*net.TCPListener (or anything satisfying the same
// SyscallConn-based interface), following the gaio dupconn pattern: dup the
// descriptor, hand the duplicate to our own poller, and leave the caller's
// original net.Conn/net.Listener to be closed immediately afterward so the
// Go runtime netpoller releases its own registration without affecting the
// duplicate we now exclusively own.
func rawFD(sc interface {
	SyscallConn() (rawConnT, error)
}) (int, error) {
	rc, err := sc.SyscallConn()
	if err != nil {
		return -1, err
	}
	var fd int
	var controlErr error
	err = rc.Control(func(ufd uintptr) {
		fd, controlErr = dupFD(int(ufd))
	})
	if err != nil {
		return -1, err
	}
	if controlErr != nil {
		return -1, controlErr
	}
	return fd, nil
}

// rawConnT is an alias of syscall.RawConn, so that the SyscallConn methods
// of *net.TCPConn and *net.TCPListener match the interfaces that use it.
type rawConnT = syscall.RawConn

// Stream is the handle a StreamHandler (or ListenerHandler.OnAccept) uses
// to read from and write to a registered connection. It owns a duplicated,
// non-blocking file descriptor driven exclusively by the Dispatcher's own
// poller.
type Stream struct {
	id         SocketID
	fd         int
	localAddr  net.Addr
	remoteAddr net.Addr
}

// ID returns the SocketID this stream was registered under.
func (s *Stream) ID() SocketID { return s.id }

// LocalAddr returns the local address captured at registration time.
func (s *Stream) LocalAddr() net.Addr { return s.localAddr }

// RemoteAddr returns the remote address captured at registration/accept
// time.
func (s *Stream) RemoteAddr() net.Addr { return s.remoteAddr }

// Read performs a single non-blocking read into buf. A zero-length result
// with a nil error means no data was available (EAGAIN); callers should
// return Continue and wait for the next OnReadReady callback. A
// zero-length result with io.EOF means the peer has closed its end.
func (s *Stream) Read(buf []byte) (int, error) {
	n, err := readFD(s.fd, buf)
	if err != nil {
		if isAgain(err) {
			return 0, nil
		}
		return 0, ioError("read", s.fd, err)
	}
	if n == 0 && len(buf) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write performs a single non-blocking write of buf. A zero-length result
// with a nil error means the socket's send buffer is full; callers should
// return ChangeInterest(Writable) and retry from OnWriteReady.
func (s *Stream) Write(buf []byte) (int, error) {
	n, err := writeFD(s.fd, buf)
	if err != nil {
		if isAgain(err) {
			return 0, nil
		}
		return 0, ioError("write", s.fd, err)
	}
	return n, nil
}

// sockaddrToAddr converts a raw unix.Sockaddr, as returned by accept(), into
// a net.Addr.
func sockaddrToAddr(sa unix.Sockaddr) net.Addr {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: append([]byte(nil), sa.Addr[:]...), Port: sa.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: append([]byte(nil), sa.Addr[:]...), Port: sa.Port}
	default:
		return nil
	}
}

