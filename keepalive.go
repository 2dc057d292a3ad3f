package rsocket

import (
	"sync"
	"sync/atomic"
	"time"
)

// keepalive.go implements the keep-alive driver (C8): a periodic KEEPALIVE
// with the Respond flag set, a last-received deadline tracker that declares
// the connection dead past maxLifetime, and an immediate echo reply to any
// inbound KEEPALIVE that itself requests one (spec.md §4.8).
//
// Grounded on the teacher's muxer.go Ping()/muxerControlPingHandler/
// muxerControlPongHandler: atomic lastPingSent/lastPongRcvd timestamps, an
// echo handler that flips ping to pong and writes it straight back, and
// latency computed as the gap between the two. Generalized from an
// on-demand Ping() call to a self-driving ticker loop with a liveness
// deadline, since RSocket's KEEPALIVE (unlike RAP's Ping) is the
// connection's only liveness signal.
type keepaliveDriver struct {
	interval    time.Duration
	maxLifetime time.Duration
	send        func(*KeepAliveFrame) error
	onTimeout   func()

	lastSentNanos int64 // atomic
	lastRecvNanos int64 // atomic
	latencyNanos  int64 // atomic

	stopCh   chan struct{}
	stopOnce sync.Once
}

func newKeepaliveDriver(interval, maxLifetime time.Duration, send func(*KeepAliveFrame) error, onTimeout func()) *keepaliveDriver {
	return &keepaliveDriver{
		interval:      interval,
		maxLifetime:   maxLifetime,
		send:          send,
		onTimeout:     onTimeout,
		lastRecvNanos: time.Now().UnixNano(),
		stopCh:        make(chan struct{}),
	}
}

func (k *keepaliveDriver) start() {
	go k.run()
}

func (k *keepaliveDriver) run() {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			last := atomic.LoadInt64(&k.lastRecvNanos)
			if time.Since(time.Unix(0, last)) > k.maxLifetime {
				k.onTimeout()
				return
			}
			k.sendPing()
		case <-k.stopCh:
			return
		}
	}
}

func (k *keepaliveDriver) sendPing() {
	now := time.Now().UnixNano()
	atomic.StoreInt64(&k.lastSentNanos, now)
	_ = k.send(&KeepAliveFrame{Respond: true})
}

// onKeepAlive feeds an inbound KEEPALIVE into the driver: it always
// refreshes the liveness deadline, then either records round-trip latency
// (if this is a reply to our own ping) or echoes one straight back (if the
// peer set Respond).
func (k *keepaliveDriver) onKeepAlive(f *KeepAliveFrame) error {
	now := time.Now().UnixNano()
	atomic.StoreInt64(&k.lastRecvNanos, now)

	if !f.Respond {
		sent := atomic.LoadInt64(&k.lastSentNanos)
		if sent > 0 && sent <= now {
			atomic.StoreInt64(&k.latencyNanos, now-sent)
		}
		return nil
	}
	return k.send(&KeepAliveFrame{Respond: false, LastReceivedPosition: f.LastReceivedPosition, Data: f.Data})
}

func (k *keepaliveDriver) latency() time.Duration {
	return time.Duration(atomic.LoadInt64(&k.latencyNanos))
}

func (k *keepaliveDriver) stop() {
	k.stopOnce.Do(func() { close(k.stopCh) })
}
