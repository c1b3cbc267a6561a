package dispatch

// SocketID identifies a socket registered with a Dispatcher. 0 is reserved
// for the loop's own wake source and is never handed out to a registered
// listener or stream.
type SocketID uint32

// wakeSocketID is the reserved id for the loop's internal wake source,
// mirroring the original dispatcher's reservation of token 0 for its Waker.
const wakeSocketID SocketID = 0

// socketIDAllocator hands out SocketID values starting at 1, recycling ids
// as sockets are disposed, and refusing to grow past max — the Go
// realization of the original SocketMap's cursor-plus-reuse allocation
// scheme, with the reservation of id 0 baked in as a starting cursor rather
// than a special case checked on every allocation.
type socketIDAllocator struct {
	next SocketID
	free []SocketID
	live map[SocketID]struct{}
	max  SocketID
}

func newSocketIDAllocator(max SocketID) *socketIDAllocator {
	return &socketIDAllocator{
		next: wakeSocketID + 1,
		live: make(map[SocketID]struct{}),
		max:  max,
	}
}

// allocate returns a fresh SocketID, reusing a released one when available,
// or ErrTooManySockets once the live set has reached max.
func (a *socketIDAllocator) allocate() (SocketID, error) {
	if SocketID(len(a.live)) >= a.max {
		return 0, ErrTooManySockets
	}

	var id SocketID
	if n := len(a.free); n > 0 {
		id = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		id = a.next
		a.next++
	}

	a.live[id] = struct{}{}
	return id, nil
}

// release returns id to the free list for reuse. Releasing an id not
// currently live is a no-op.
func (a *socketIDAllocator) release(id SocketID) {
	if _, ok := a.live[id]; !ok {
		return
	}
	delete(a.live, id)
	a.free = append(a.free, id)
}

// len reports the number of currently-live socket ids.
func (a *socketIDAllocator) len() int {
	return len(a.live)
}
