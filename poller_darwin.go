//go:build darwin

package dispatch

import (
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

const (
	// fdTableInit is the initial capacity of the dynamically-grown fd table.
	fdTableInit = 1024
	// maxFDLimit caps fd values we will track; well beyond any realistic
	// ulimit -n.
	maxFDLimit = 100000000
)

var (
	errFDOutOfRange        = errors.New("dispatch: fd out of range")
	errFDAlreadyRegistered = errors.New("dispatch: fd already registered")
	errFDNotRegistered     = errors.New("dispatch: fd not registered")
	errPollerClosed        = errors.New("dispatch: poller closed")
)

// InterestMask selects which readiness conditions a socket is registered
// for.
type InterestMask uint32

const (
	// Readable indicates the file descriptor is ready for reading, or, for
	// a listener, has a pending connection to accept.
	Readable InterestMask = 1 << iota
	// Writable indicates the file descriptor is ready for writing, or that
	// a previously-initiated non-blocking connect has completed.
	Writable
	// errorEvent is folded in by the poller itself when EV_ERROR/EV_EOF
	// fires; callers never register for it directly.
	errorEvent
)

type fdInfo struct {
	callback func(InterestMask)
	events   InterestMask
	active   bool
}

// defaultEventBufSize is used when Init is called with a non-positive size.
const defaultEventBufSize = 256

// fastPoller manages readiness registration using kqueue, with a fd table
// that grows dynamically rather than a fixed-size array, since Darwin file
// descriptor numbers are not bounded as tightly in practice.
type fastPoller struct {
	kq       int32
	eventBuf []unix.Kevent_t
	fds      []fdInfo
	fdMu     sync.RWMutex
	closed   atomic.Bool
}

// Init creates the kqueue instance and sizes the readiness-event scratch
// buffer PollIO reuses on every call to eventBufferSize entries (the size
// passed to New / WithEventBufferSize), falling back to
// defaultEventBufSize if it is non-positive.
func (p *fastPoller) Init(eventBufferSize int) error {
	if p.closed.Load() {
		return errPollerClosed
	}
	if eventBufferSize <= 0 {
		eventBufferSize = defaultEventBufSize
	}
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	unix.CloseOnExec(kq)
	p.kq = int32(kq)
	p.fds = make([]fdInfo, fdTableInit)
	p.eventBuf = make([]unix.Kevent_t, eventBufferSize)
	return nil
}

func (p *fastPoller) Close() error {
	p.closed.Store(true)
	if p.kq > 0 {
		return unix.Close(int(p.kq))
	}
	return nil
}

func (p *fastPoller) RegisterFD(fd int, events InterestMask, cb func(InterestMask)) error {
	if p.closed.Load() {
		return errPollerClosed
	}
	if fd < 0 || fd >= maxFDLimit {
		return errFDOutOfRange
	}

	p.fdMu.Lock()
	if fd >= len(p.fds) {
		newSize := fd*2 + 1
		if newSize > maxFDLimit {
			newSize = maxFDLimit + 1
		}
		newFds := make([]fdInfo, newSize)
		copy(newFds, p.fds)
		p.fds = newFds
	}
	if p.fds[fd].active {
		p.fdMu.Unlock()
		return errFDAlreadyRegistered
	}
	p.fds[fd] = fdInfo{callback: cb, events: events, active: true}
	p.fdMu.Unlock()

	kevents := eventsToKevents(fd, events, unix.EV_ADD|unix.EV_ENABLE)
	if len(kevents) > 0 {
		if _, err := unix.Kevent(int(p.kq), kevents, nil, nil); err != nil {
			p.fdMu.Lock()
			p.fds[fd] = fdInfo{}
			p.fdMu.Unlock()
			return err
		}
	}
	return nil
}

func (p *fastPoller) UnregisterFD(fd int) error {
	if fd < 0 {
		return errFDOutOfRange
	}
	p.fdMu.Lock()
	if fd >= len(p.fds) || !p.fds[fd].active {
		p.fdMu.Unlock()
		return errFDNotRegistered
	}
	events := p.fds[fd].events
	p.fds[fd] = fdInfo{}
	p.fdMu.Unlock()

	kevents := eventsToKevents(fd, events, unix.EV_DELETE)
	if len(kevents) > 0 {
		_, _ = unix.Kevent(int(p.kq), kevents, nil, nil)
	}
	return nil
}

func (p *fastPoller) ModifyFD(fd int, events InterestMask) error {
	if fd < 0 {
		return errFDOutOfRange
	}
	p.fdMu.Lock()
	if fd >= len(p.fds) || !p.fds[fd].active {
		p.fdMu.Unlock()
		return errFDNotRegistered
	}
	oldEvents := p.fds[fd].events
	p.fds[fd].events = events
	p.fdMu.Unlock()

	if oldEvents&^events != 0 {
		del := eventsToKevents(fd, oldEvents&^events, unix.EV_DELETE)
		if len(del) > 0 {
			_, _ = unix.Kevent(int(p.kq), del, nil, nil)
		}
	}
	if events&^oldEvents != 0 {
		add := eventsToKevents(fd, events&^oldEvents, unix.EV_ADD|unix.EV_ENABLE)
		if len(add) > 0 {
			if _, err := unix.Kevent(int(p.kq), add, nil, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *fastPoller) PollIO(timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, errPollerClosed
	}

	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{Sec: int64(timeoutMs / 1000), Nsec: int64((timeoutMs % 1000) * 1000000)}
	}

	n, err := unix.Kevent(int(p.kq), nil, p.eventBuf, ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	p.dispatchEvents(n)
	return n, nil
}

func (p *fastPoller) dispatchEvents(n int) {
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Ident)
		if fd < 0 {
			continue
		}
		p.fdMu.RLock()
		var info fdInfo
		if fd < len(p.fds) {
			info = p.fds[fd]
		}
		p.fdMu.RUnlock()

		if info.active && info.callback != nil {
			info.callback(keventToEvents(&p.eventBuf[i]))
		}
	}
}

func eventsToKevents(fd int, events InterestMask, flags uint16) []unix.Kevent_t {
	var kevents []unix.Kevent_t
	if events&Readable != 0 {
		kevents = append(kevents, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if events&Writable != 0 {
		kevents = append(kevents, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return kevents
}

func keventToEvents(kev *unix.Kevent_t) InterestMask {
	var events InterestMask
	switch kev.Filter {
	case unix.EVFILT_READ:
		events |= Readable
	case unix.EVFILT_WRITE:
		events |= Writable
	}
	if kev.Flags&(unix.EV_ERROR|unix.EV_EOF) != 0 {
		events |= errorEvent
	}
	return events
}
