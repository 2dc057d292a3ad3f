package rsocket

import (
	"sync"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu     sync.Mutex
	frames []*KeepAliveFrame
}

func (r *recordingSender) send(f *KeepAliveFrame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func TestKeepaliveDriverSendsPeriodicPings(t *testing.T) {
	defer leaktest.Check(t)()

	sender := &recordingSender{}
	k := newKeepaliveDriver(10*time.Millisecond, time.Second, sender.send, func() { t.Fatal("must not time out") })
	k.start()
	defer k.stop()

	require.Eventually(t, func() bool { return sender.count() >= 2 }, time.Second, 5*time.Millisecond)
	for _, f := range sender.frames {
		assert.True(t, f.Respond, "self-driven pings must request a reply")
	}
}

func TestKeepaliveDriverFiresTimeoutPastMaxLifetime(t *testing.T) {
	defer leaktest.Check(t)()

	done := make(chan struct{})
	sender := &recordingSender{}
	k := newKeepaliveDriver(5*time.Millisecond, 15*time.Millisecond, sender.send, func() { close(done) })
	k.start()
	defer k.stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("onTimeout was never called")
	}
}

func TestKeepaliveDriverEchoesRespondRequest(t *testing.T) {
	defer leaktest.Check(t)()

	sender := &recordingSender{}
	k := newKeepaliveDriver(time.Hour, time.Hour, sender.send, func() { t.Fatal("must not time out") })

	require.NoError(t, k.onKeepAlive(&KeepAliveFrame{Respond: true, LastReceivedPosition: 7, Data: []byte("ping")}))
	require.Equal(t, 1, sender.count())
	echoed := sender.frames[0]
	assert.False(t, echoed.Respond)
	assert.Equal(t, uint64(7), echoed.LastReceivedPosition)
}

func TestKeepaliveDriverComputesLatencyOnReply(t *testing.T) {
	sender := &recordingSender{}
	k := newKeepaliveDriver(time.Hour, time.Hour, sender.send, func() { t.Fatal("must not time out") })

	k.sendPing()
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, k.onKeepAlive(&KeepAliveFrame{Respond: false}))
	assert.Greater(t, k.latency(), time.Duration(0))
}

func TestKeepaliveDriverStopIsIdempotent(t *testing.T) {
	defer leaktest.Check(t)()

	k := newKeepaliveDriver(time.Hour, time.Hour, func(*KeepAliveFrame) error { return nil }, func() {})
	k.start()
	k.stop()
	k.stop()
}
