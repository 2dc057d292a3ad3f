package rsocket

import (
	"context"
	"sync/atomic"
)

// credit.go implements the per-stream credit/backpressure engine (C6):
// one counter per direction per stream. The outbound counter is fed by
// received REQUEST_N frames and the head frame's initialRequestN and is
// drained one unit per PAYLOAD sent; the inbound counter only accumulates
// the REQUEST_N grants this side sends and is not drained by received
// payloads (spec.md §4.5 "Credit rules").
//
// Grounded on the teacher's conn.go sendWindow/ackCh pair: an atomic
// counter drained by the writer and replenished by a channel-backed wakeup
// the writer blocks on when exhausted. Generalized from "ack one frame at
// a time over a buffered channel" to "grant an arbitrary N at once via a
// saturating atomic add", since REQUEST_N carries a batch size rather than
// one ack per frame.
const maxRequestN = uint32(0x7fffffff)

type creditCounter struct {
	available int64 // atomic
	notify    chan struct{}
}

func newCreditCounter(initial uint32) *creditCounter {
	c := &creditCounter{notify: make(chan struct{}, 1)}
	if initial > 0 {
		atomic.StoreInt64(&c.available, int64(initial))
	}
	return c
}

func (c *creditCounter) wake() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// grant adds n to the available credit, saturating at maxRequestN so a
// long run of REQUEST_N frames cannot overflow the counter.
func (c *creditCounter) grant(n uint32) {
	if n == 0 {
		return
	}
	for {
		cur := atomic.LoadInt64(&c.available)
		next := cur + int64(n)
		if next > int64(maxRequestN) {
			next = int64(maxRequestN)
		}
		if atomic.CompareAndSwapInt64(&c.available, cur, next) {
			break
		}
	}
	c.wake()
}

// tryConsume consumes up to n units without blocking and reports how many
// it actually took (0 if none were available).
func (c *creditCounter) tryConsume(n uint32) uint32 {
	for {
		cur := atomic.LoadInt64(&c.available)
		if cur <= 0 {
			return 0
		}
		take := int64(n)
		if take > cur {
			take = cur
		}
		if atomic.CompareAndSwapInt64(&c.available, cur, cur-take) {
			return uint32(take)
		}
	}
}

func (c *creditCounter) outstanding() uint32 {
	v := atomic.LoadInt64(&c.available)
	if v < 0 {
		return 0
	}
	return uint32(v)
}

// acquire blocks until at least one unit of credit is available and
// consumes it, or returns an error if ctx is done or done fires first.
func (c *creditCounter) acquire(ctx context.Context, done <-chan struct{}) error {
	for {
		if c.tryConsume(1) == 1 {
			return nil
		}
		select {
		case <-c.notify:
		case <-done:
			return connectionClosedError{}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// streamCredit bundles the two independent credit counters a stream needs:
// outbound gates how many payloads this side may still emit, inbound
// tracks how much this side has granted its peer via REQUEST_N, for
// bookkeeping only; nothing in the package sends REQUEST_N automatically.
type streamCredit struct {
	outbound *creditCounter
	inbound  *creditCounter
}

func newStreamCredit(initialOutbound uint32) *streamCredit {
	return &streamCredit{
		outbound: newCreditCounter(initialOutbound),
		inbound:  newCreditCounter(0),
	}
}
