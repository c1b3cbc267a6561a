package dispatch

// loop is the single-threaded I/O reactor. Every field here is only ever
// touched from the loop goroutine except tasks, wakeWriteFD, and state,
// which are safe for concurrent use by design.
type loop struct {
	poller   fastPoller
	registry *socketRegistry
	ids      *socketIDAllocator
	tasks    *taskQueue
	logger   Logger

	wakeReadFD  int
	wakeWriteFD int

	state   *FastState
	stopped chan struct{}
}

func newLoop(opts *dispatcherOptions) (*loop, error) {
	l := &loop{
		registry: newSocketRegistry(),
		ids:      newSocketIDAllocator(opts.maxSocket),
		tasks:    &taskQueue{},
		logger:   opts.logger,
		state:    NewFastState(),
		stopped:  make(chan struct{}),
	}

	if err := l.poller.Init(opts.eventBufSz); err != nil {
		return nil, err
	}

	readFD, writeFD, err := createWakeFd()
	if err != nil {
		_ = l.poller.Close()
		return nil, err
	}
	l.wakeReadFD = readFD
	l.wakeWriteFD = writeFD

	if err := l.poller.RegisterFD(readFD, Readable, l.onWake); err != nil {
		_ = l.poller.Close()
		_ = closeWakeFd(readFD, writeFD)
		return nil, err
	}

	return l, nil
}

func (l *loop) onWake(InterestMask) {
	drainWakeFd(l.wakeReadFD)
}

// wake pokes the wake source so a blocked PollIO call returns promptly and
// drains the task queue.
func (l *loop) wake() {
	_ = submitWakeup(l.wakeWriteFD)
}

// submit enqueues t and wakes the loop. Safe from any goroutine.
func (l *loop) submit(t task) {
	l.tasks.push(t)
	l.wake()
}

// run is the loop goroutine's entry point; it returns once teardown is
// complete.
func (l *loop) run() {
	defer close(l.stopped)
	l.state.TryTransition(StateAwake, StateRunning)

	for l.state.Load() == StateRunning {
		if _, err := l.poller.PollIO(-1); err != nil {
			l.logger.Log(LogLevelError, "poll failed", wakeSocketID, err)
			break
		}
		l.runTasks()
	}

	l.teardown()
}

func (l *loop) runTasks() {
	for _, t := range l.tasks.drain() {
		t(l)
	}
}

// teardown disposes every remaining socket and releases the poller and
// wake source. Runs once, on the loop goroutine, after the run loop exits.
func (l *loop) teardown() {
	// A poll failure exits the run loop while still Running.
	l.state.TryTransition(StateRunning, StateClosing)
	for _, id := range l.registry.ids() {
		l.disposeSocket(id, nil)
	}
	_ = l.poller.UnregisterFD(l.wakeReadFD)
	_ = l.poller.Close()
	_ = closeWakeFd(l.wakeReadFD, l.wakeWriteFD)
	l.state.TryTransition(StateClosing, StateClosed)
}

// requestStop transitions the loop out of Running. The loop goroutine
// notices on its next iteration check and tears down.
func (l *loop) requestStop() {
	l.state.TryTransition(StateRunning, StateClosing)
	l.state.TryTransition(StateAwake, StateClosing)
	l.wake()
}

// disposeSocket unregisters id's fd from the poller, closes it, and removes
// it from the registry. If cause is non-nil, it is logged.
func (l *loop) disposeSocket(id SocketID, cause error) {
	e, ok := l.registry.get(id)
	if !ok {
		return
	}
	_ = l.poller.UnregisterFD(e.fd)
	_ = closeFD(e.fd)
	l.registry.remove(id)
	l.ids.release(id)
	if cause != nil {
		l.logger.Log(LogLevelWarn, "socket disposed", id, cause)
	} else {
		l.logger.Log(LogLevelDebug, "socket disposed", id, nil)
	}
}

// applyAction applies the result of a handler callback to e, returning
// true if the socket was disposed (callers must stop touching e after
// that).
func (l *loop) applyAction(e *socketEntry, act Action, cause error) bool {
	switch act.kind {
	case actionDispose:
		l.disposeSocket(e.id, cause)
		return true
	case actionChangeInterest:
		if act.interest&(Readable|Writable) == 0 {
			l.disposeSocket(e.id, &DisposeError{ID: e.id, Cause: ErrInvalidInterest})
			return true
		}
		if err := l.poller.ModifyFD(e.fd, act.interest); err != nil {
			l.disposeSocket(e.id, &DisposeError{ID: e.id, Cause: err})
			return true
		}
		e.interest = act.interest
		return false
	default:
		return false
	}
}

// dispatchStream is the poller callback registered for a stream socket. It
// applies read, then write, then error handling, in that order, stopping
// early the moment the socket is disposed — a coalesced readable-plus-error
// event (e.g. a peer sending a final chunk then resetting the connection)
// must still deliver that chunk to OnReadReady before OnError runs.
func (l *loop) dispatchStream(e *socketEntry, events InterestMask) {
	if events&Readable != 0 && e.interest&Readable != 0 {
		s := &Stream{id: e.id, fd: e.fd, localAddr: e.localAddr, remoteAddr: e.remoteAddr}
		if l.applyAction(e, e.stream.OnReadReady(s), nil) {
			return
		}
	}
	if events&Writable != 0 && e.interest&Writable != 0 {
		s := &Stream{id: e.id, fd: e.fd, localAddr: e.localAddr, remoteAddr: e.remoteAddr}
		if l.applyAction(e, e.stream.OnWriteReady(s), nil) {
			return
		}
	}
	if events&errorEvent != 0 {
		cause := pendingError(e.fd)
		if cause == nil {
			// No pending error to report: treat as Continue per spec.md
			// §4.E.1 rather than invoking OnError with a synthesized cause.
			return
		}
		l.applyAction(e, e.stream.OnError(cause), cause)
	}
}

// dispatchListener is the poller callback registered for a listener
// socket. It accepts every connection currently pending, handing each to
// the handler's OnAccept, until accept() returns EAGAIN.
func (l *loop) dispatchListener(e *socketEntry, events InterestMask) {
	if events&errorEvent != 0 {
		cause := pendingError(e.fd)
		if cause == nil {
			// No pending error to report: treat as Continue, matching the
			// same stream-side rule in dispatchStream.
			return
		}
		l.applyAction(e, e.listener.OnError(cause), cause)
		return
	}

	for {
		nfd, sa, err := acceptFD(e.fd)
		if err != nil {
			if isAgain(err) {
				return
			}
			l.applyAction(e, e.listener.OnError(err), err)
			return
		}

		peerAddr := sockaddrToAddr(sa)
		handler, listenerAct := e.listener.OnAccept(peerAddr)
		if handler == nil {
			_ = closeFD(nfd)
		} else if id, allocErr := l.ids.allocate(); allocErr != nil {
			_ = closeFD(nfd)
			l.logger.Log(LogLevelWarn, "accepted connection dropped", wakeSocketID, allocErr)
		} else {
			child := &socketEntry{id: id, kind: kindStream, fd: nfd, interest: Readable | Writable, remoteAddr: peerAddr, stream: handler}
			if regErr := l.poller.RegisterFD(nfd, Readable|Writable, func(ev InterestMask) {
				l.dispatchStream(child, ev)
			}); regErr != nil {
				_ = closeFD(nfd)
				l.ids.release(id)
			} else {
				l.registry.add(child)
				l.logger.Log(LogLevelDebug, "accepted connection", id, nil)
			}
		}

		if l.applyAction(e, listenerAct, nil) {
			return
		}
	}
}
