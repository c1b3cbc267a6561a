// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package dispatch

import "net"

// Dispatcher is a single-threaded socket multiplexer: one goroutine polls
// every registered listener and stream for readiness and invokes the
// handler supplied at registration time. See the package doc for the full
// execution model.
type Dispatcher struct {
	loop *loop
}

// New starts a Dispatcher's loop goroutine and returns once it is ready to
// accept registrations. eventBufferSize is a hint for the poller's
// readiness-event scratch buffer; 0 selects a sensible default.
func New(eventBufferSize int, opts ...Option) (*Dispatcher, error) {
	cfg, err := resolveOptions(eventBufferSize, opts)
	if err != nil {
		return nil, err
	}

	l, err := newLoop(cfg)
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{loop: l}
	go l.run()
	return d, nil
}

// syscallConner is satisfied by *net.TCPConn, *net.TCPListener, and
// anything else exposing its raw file descriptor the standard way.
type syscallConner interface {
	SyscallConn() (rawConnT, error)
}

// RegisterListener adopts ln into the dispatcher: ln's file descriptor is
// duplicated, ln itself is closed, and all further accept handling runs on
// the dispatcher's loop goroutine via h. The returned Future resolves with
// the listener's SocketID once registration completes on the loop, or an
// error if ln cannot be adopted (e.g. it does not expose a raw fd) or the
// dispatcher has already been stopped.
func (d *Dispatcher) RegisterListener(ln net.Listener, h ListenerHandler) *Future[SocketID] {
	fut := newFuture[SocketID]()

	sc, ok := ln.(syscallConner)
	if !ok {
		fut.resolve(0, errNotTCP)
		return fut
	}
	fd, err := rawFD(sc)
	if err != nil {
		fut.resolve(0, err)
		return fut
	}
	localAddr := ln.Addr()
	_ = ln.Close()

	if !d.loop.state.CanAcceptWork() {
		_ = closeFD(fd)
		fut.resolve(0, ErrDispatcherClosed)
		return fut
	}

	d.loop.submit(func(l *loop) {
		if !l.state.CanAcceptWork() {
			_ = closeFD(fd)
			fut.resolve(0, ErrDispatcherClosed)
			return
		}
		id, err := l.ids.allocate()
		if err != nil {
			_ = closeFD(fd)
			fut.resolve(0, err)
			return
		}
		e := &socketEntry{id: id, kind: kindListener, fd: fd, interest: Readable, localAddr: localAddr, listener: h}
		if err := l.poller.RegisterFD(fd, Readable, func(ev InterestMask) {
			l.dispatchListener(e, ev)
		}); err != nil {
			_ = closeFD(fd)
			l.ids.release(id)
			fut.resolve(0, err)
			return
		}
		l.registry.add(e)
		l.logger.Log(LogLevelInfo, "listener registered", id, nil)
		fut.resolve(id, nil)
	})

	return fut
}

// RegisterStream adopts conn into the dispatcher the same way
// RegisterListener adopts a listener: conn's file descriptor is
// duplicated, conn itself is closed, and h drives all further reads and
// writes on the loop goroutine. Initial interest is Readable|Writable; use
// ChangeInterest from a callback to narrow it once writes stop blocking.
func (d *Dispatcher) RegisterStream(conn net.Conn, h StreamHandler) *Future[SocketID] {
	fut := newFuture[SocketID]()

	sc, ok := conn.(syscallConner)
	if !ok {
		fut.resolve(0, errNotTCP)
		return fut
	}
	fd, err := rawFD(sc)
	if err != nil {
		fut.resolve(0, err)
		return fut
	}
	localAddr, remoteAddr := conn.LocalAddr(), conn.RemoteAddr()
	_ = conn.Close()

	if !d.loop.state.CanAcceptWork() {
		_ = closeFD(fd)
		fut.resolve(0, ErrDispatcherClosed)
		return fut
	}

	d.loop.submit(func(l *loop) {
		if !l.state.CanAcceptWork() {
			_ = closeFD(fd)
			fut.resolve(0, ErrDispatcherClosed)
			return
		}
		id, err := l.ids.allocate()
		if err != nil {
			_ = closeFD(fd)
			fut.resolve(0, err)
			return
		}
		e := &socketEntry{id: id, kind: kindStream, fd: fd, interest: Readable | Writable, localAddr: localAddr, remoteAddr: remoteAddr, stream: h}
		if err := l.poller.RegisterFD(fd, Readable|Writable, func(ev InterestMask) {
			l.dispatchStream(e, ev)
		}); err != nil {
			_ = closeFD(fd)
			l.ids.release(id)
			fut.resolve(0, err)
			return
		}
		l.registry.add(e)
		l.logger.Log(LogLevelInfo, "stream registered", id, nil)
		fut.resolve(id, nil)
	})

	return fut
}

// Stop requests teardown: the loop goroutine stops accepting new
// registrations and, on its next iteration, disposes every remaining
// socket and exits. The returned Future resolves with SocketID 0 once
// teardown has been requested — it does not wait for the loop goroutine to
// actually exit; use Close for that.
func (d *Dispatcher) Stop() *Future[SocketID] {
	fut := newFuture[SocketID]()
	d.loop.requestStop()
	fut.resolve(0, nil)
	return fut
}

// Close requests teardown and blocks until the loop goroutine has fully
// exited, for io.Closer-style defer ergonomics.
func (d *Dispatcher) Close() error {
	d.loop.requestStop()
	<-d.loop.stopped
	return nil
}
