//go:build linux

package dispatch

import (
	"golang.org/x/sys/unix"
)

// createWakeFd creates an eventfd for wake-up notifications. The read and
// write end are the same fd on Linux.
func createWakeFd() (readFD, writeFD int, err error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	return fd, fd, err
}

// closeWakeFd closes the wake eventfd.
func closeWakeFd(wakeFD, wakeWriteFD int) error {
	if wakeFD >= 0 {
		_ = unix.Close(wakeFD)
	}
	return nil
}

// drainWakeFd drains every pending wake-up on fd, so a burst of concurrent
// submit calls only costs the loop a single extra PollIO iteration.
func drainWakeFd(fd int) {
	var buf [8]byte
	for {
		if _, err := unix.Read(fd, buf[:]); err != nil {
			return
		}
	}
}

// submitWakeup writes a single wake-up notification to fd.
func submitWakeup(fd int) error {
	var buf [8]byte
	buf[0] = 1
	_, err := unix.Write(fd, buf[:])
	if err == unix.EAGAIN {
		// eventfd counter already non-zero: a wake-up is already pending,
		// which is all the loop needs to notice the task queue.
		return nil
	}
	return err
}
