//go:build linux

package dispatch

import "golang.org/x/sys/unix"

// acceptFD accepts a single pending connection on a listening fd, returning
// an already non-blocking, close-on-exec connection fd and its peer
// address, in one syscall via accept4.
func acceptFD(fd int) (int, unix.Sockaddr, error) {
	return unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
}
