package rsocket

import "sync/atomic"

// streamIDAllocator hands out stream ids for one side of a connection.
// Per spec.md §3, requester-initiated stream ids are odd on the client and
// even on the server; this allocator locks to one parity for its lifetime
// and never hands out zero (the connection-scope id).
//
// Grounded on the teacher's muxer.go NewConn(): atomic-load, compute next,
// CompareAndSwap, retry on contention. Generalized from "increment by 1,
// bounded by MaxConnID, never reused" to "increment by 2 (parity-locked),
// and on wraparound skip any id a liveness check reports still in use" —
// spec.md §4.3 requires ids be reusable once a stream terminates, which the
// teacher's one-shot id space does not need.
type streamIDAllocator struct {
	role Role
	last int32 // atomic; last id handed out, 0 before first allocation
	live func(StreamID) bool
}

// newStreamIDAllocator creates an allocator for role. live reports whether
// a stream id is currently occupied in the registry; it is consulted for
// every allocation after the first.
func newStreamIDAllocator(role Role, live func(StreamID) bool) *streamIDAllocator {
	return &streamIDAllocator{role: role, live: live}
}

func (a *streamIDAllocator) startID() int32 {
	if a.role == RoleServer {
		return int32(serverStreamIDStart)
	}
	return int32(clientStreamIDStart)
}

// space is the number of distinct ids of one parity between start and
// MaxStreamID inclusive; used to bound the wraparound scan below.
func (a *streamIDAllocator) space() int32 {
	return (int32(MaxStreamID)-a.startID())/2 + 1
}

func (a *streamIDAllocator) advance(id int32) int32 {
	next := id + 2
	if next > int32(MaxStreamID) || next <= 0 {
		return a.startID()
	}
	return next
}

// next returns the next unused stream id for this allocator's parity, or
// false if every id of this parity is currently live. On first call it
// hands out startID() directly; after that it skips ids that live reports
// as occupied, scanning at most one full lap before giving up.
func (a *streamIDAllocator) next() (StreamID, bool) {
	for {
		last := atomic.LoadInt32(&a.last)
		candidate := a.startID()
		if last != 0 {
			candidate = a.advance(last)
		}
		if last != 0 && a.live != nil {
			attempts := a.space()
			for attempts > 0 && a.live(StreamID(candidate)) {
				candidate = a.advance(candidate)
				attempts--
			}
			if attempts == 0 {
				return 0, false
			}
		}
		if atomic.CompareAndSwapInt32(&a.last, last, candidate) {
			return StreamID(candidate), true
		}
	}
}
