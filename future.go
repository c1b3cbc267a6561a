package dispatch

import "context"

// Future is the external-registration completion handle: the Go-idiomatic
// analogue of the original dispatcher's (Option<R>, Option<Waker>)
// completion slot. A buffered channel of capacity 1 already gives a
// non-blocking check (select/default), a blocking wait, and a
// context-cancellable wait for free, so unlike the original there is no
// separate Waker to thread through.
type Future[R any] struct {
	ch chan futureResult[R]
}

type futureResult[R any] struct {
	val R
	err error
}

func newFuture[R any]() *Future[R] {
	return &Future[R]{ch: make(chan futureResult[R], 1)}
}

// resolve completes the future. Calls after the first are ignored while the
// first result is still buffered. A registration Future is resolved either
// by the loop goroutine or, when registration fails before it is queued, by
// the calling goroutine; Stop's Future is resolved by the calling goroutine.
func (f *Future[R]) resolve(val R, err error) {
	select {
	case f.ch <- futureResult[R]{val: val, err: err}:
	default:
	}
}

// Wait blocks until the future resolves or ctx is done, whichever comes
// first.
func (f *Future[R]) Wait(ctx context.Context) (R, error) {
	select {
	case r := <-f.ch:
		return r.val, r.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// TryGet returns the result without blocking if the future has already
// resolved.
func (f *Future[R]) TryGet() (R, error, bool) {
	select {
	case r := <-f.ch:
		f.ch <- r // put it back so a later Wait/TryGet still observes it
		return r.val, r.err, true
	default:
		var zero R
		return zero, nil, false
	}
}
