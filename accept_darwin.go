//go:build darwin

package dispatch

import "golang.org/x/sys/unix"

// acceptFD accepts a single pending connection on a listening fd. Darwin
// has no accept4, so non-blocking and close-on-exec are set as separate
// follow-up syscalls.
func acceptFD(fd int) (int, unix.Sockaddr, error) {
	nfd, sa, err := unix.Accept(fd)
	if err != nil {
		return -1, nil, err
	}
	unix.CloseOnExec(nfd)
	if err := unix.SetNonblock(nfd, true); err != nil {
		_ = unix.Close(nfd)
		return -1, nil, err
	}
	return nfd, sa, nil
}
