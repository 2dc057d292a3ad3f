package rsocket

import (
	"context"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreditCounterGrantAndConsume(t *testing.T) {
	c := newCreditCounter(0)
	assert.Equal(t, uint32(0), c.tryConsume(1))

	c.grant(3)
	assert.Equal(t, uint32(3), c.outstanding())
	assert.Equal(t, uint32(2), c.tryConsume(2))
	assert.Equal(t, uint32(1), c.outstanding())
	assert.Equal(t, uint32(1), c.tryConsume(5), "tryConsume caps at what's available")
	assert.Equal(t, uint32(0), c.tryConsume(1))
}

func TestCreditCounterGrantSaturates(t *testing.T) {
	c := newCreditCounter(0)
	c.grant(maxRequestN)
	c.grant(maxRequestN)
	assert.Equal(t, maxRequestN, c.outstanding(), "grant must saturate rather than overflow")
}

func TestCreditCounterNewWithInitial(t *testing.T) {
	c := newCreditCounter(5)
	assert.Equal(t, uint32(5), c.outstanding())
}

func TestCreditCounterAcquireBlocksUntilGranted(t *testing.T) {
	defer leaktest.Check(t)()

	c := newCreditCounter(0)
	done := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.acquire(context.Background(), done)
	}()

	select {
	case err := <-errCh:
		t.Fatalf("acquire returned early with no credit granted: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	c.grant(1)
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("acquire did not unblock after grant")
	}
	close(done)
}

func TestCreditCounterAcquireReturnsOnDone(t *testing.T) {
	defer leaktest.Check(t)()

	c := newCreditCounter(0)
	done := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.acquire(context.Background(), done)
	}()
	close(done)

	select {
	case err := <-errCh:
		assert.Equal(t, connectionClosedError{}, err)
	case <-time.After(time.Second):
		t.Fatal("acquire did not return after done closed")
	}
}

func TestCreditCounterAcquireReturnsOnContextCancel(t *testing.T) {
	defer leaktest.Check(t)()

	c := newCreditCounter(0)
	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.acquire(ctx, done)
	}()
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("acquire did not return after context cancel")
	}
	close(done)
}

func TestStreamCreditStartsWithZeroInbound(t *testing.T) {
	sc := newStreamCredit(10)
	assert.Equal(t, uint32(10), sc.outbound.outstanding())
	assert.Equal(t, uint32(0), sc.inbound.outstanding(), "inbound always starts empty regardless of initialOutbound")
}

func TestStreamCreditOutboundAndInboundAreIndependent(t *testing.T) {
	sc := newStreamCredit(2)
	sc.inbound.grant(7)
	assert.Equal(t, uint32(2), sc.outbound.outstanding())
	assert.Equal(t, uint32(7), sc.inbound.outstanding())
}
