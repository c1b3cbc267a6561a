//go:build darwin

package dispatch

import (
	"syscall"
)

// createWakeFd creates a self-pipe for wake-up notifications: Darwin has no
// eventfd equivalent, so the loop's wake source is a non-blocking pipe the
// loop reads from and every other goroutine writes a single byte to.
func createWakeFd() (readFD, writeFD int, err error) {
	var fds [2]int
	if err := syscall.Pipe(fds[:]); err != nil {
		return -1, -1, err
	}
	cleanup := func() {
		_ = syscall.Close(fds[0])
		_ = syscall.Close(fds[1])
	}
	syscall.CloseOnExec(fds[0])
	syscall.CloseOnExec(fds[1])
	if err := syscall.SetNonblock(fds[0], true); err != nil {
		cleanup()
		return -1, -1, err
	}
	if err := syscall.SetNonblock(fds[1], true); err != nil {
		cleanup()
		return -1, -1, err
	}
	return fds[0], fds[1], nil
}

// closeWakeFd closes both pipe ends.
func closeWakeFd(wakeFD, wakeWriteFD int) error {
	if wakeFD >= 0 {
		_ = syscall.Close(wakeFD)
	}
	if wakeWriteFD >= 0 && wakeWriteFD != wakeFD {
		_ = syscall.Close(wakeWriteFD)
	}
	return nil
}

// drainWakeFd drains every pending wake-up byte from fd.
func drainWakeFd(fd int) {
	var buf [64]byte
	for {
		if _, err := syscall.Read(fd, buf[:]); err != nil {
			return
		}
	}
}

// submitWakeup writes a single wake-up byte to fd.
func submitWakeup(fd int) error {
	_, err := syscall.Write(fd, []byte{1})
	if err == syscall.EAGAIN {
		// Pipe buffer already has an unread byte: a wake-up is already
		// pending.
		return nil
	}
	return err
}
