// Package dispatch provides a single-threaded, readiness-polling socket
// multiplexer: one goroutine owns an epoll (Linux) or kqueue (Darwin)
// instance and drives per-socket callbacks as their file descriptors become
// readable, writable, or error.
//
// # Architecture
//
// A [Dispatcher] owns exactly one loop goroutine. Listeners and streams are
// registered from any goroutine via [Dispatcher.RegisterListener] and
// [Dispatcher.RegisterStream]; registration is queued onto the loop through
// a mutex-protected task channel and acknowledged through a [Future].
// Once registered, all I/O for that socket — accept, read, write, interest
// changes, disposal — happens exclusively on the loop goroutine by calling
// back into the handler supplied at registration time.
//
// # Platform Support
//
//   - Linux: epoll, woken via eventfd
//   - Darwin: kqueue, woken via a self-pipe
//
// # Thread Safety
//
// [Dispatcher.RegisterListener], [Dispatcher.RegisterStream], and
// [Dispatcher.Stop] are safe to call from any goroutine. Handler callbacks
// (OnAccept, OnReadReady, OnWriteReady, OnError) always run on the loop
// goroutine and must not block.
//
// # Execution Model
//
// Each iteration of the loop:
//  1. blocks in the poller's wait call until a registered fd is ready or the
//     wake source fires;
//  2. dispatches ready sockets in read, then write, then error order;
//  3. applies the [Action] returned by each callback (Continue,
//     ChangeInterest, or Dispose);
//  4. drains the task queue (new registrations, Stop requests).
//
// # Error Types
//
// Sentinel errors cover structural conditions ([ErrTooManySockets],
// [ErrDispatcherClosed], ...) and structured types carry a payload (e.g.
// [DisposeError] carries the socket id and cause). All satisfy the
// standard [error] interface and support [errors.Is]/[errors.As].
package dispatch
