package rsocket

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamIDAllocatorParity(t *testing.T) {
	client := newStreamIDAllocator(RoleClient, nil)
	id, ok := client.next()
	require.True(t, ok)
	assert.Equal(t, StreamID(1), id)
	id, ok = client.next()
	require.True(t, ok)
	assert.Equal(t, StreamID(3), id)

	server := newStreamIDAllocator(RoleServer, nil)
	id, ok = server.next()
	require.True(t, ok)
	assert.Equal(t, StreamID(2), id)
	id, ok = server.next()
	require.True(t, ok)
	assert.Equal(t, StreamID(4), id)
}

func TestStreamIDAllocatorSkipsLiveOnReuse(t *testing.T) {
	live := map[StreamID]bool{3: true}
	a := newStreamIDAllocator(RoleClient, func(id StreamID) bool { return live[id] })
	id, ok := a.next()
	require.True(t, ok)
	assert.Equal(t, StreamID(1), id)

	id, ok = a.next()
	require.True(t, ok)
	assert.Equal(t, StreamID(5), id, "id 3 is live and must be skipped")
}

func TestStreamIDAllocatorWrapsAround(t *testing.T) {
	a := newStreamIDAllocator(RoleClient, func(StreamID) bool { return false })
	atomic.StoreInt32(&a.last, int32(MaxStreamID)-2)
	id, ok := a.next()
	require.True(t, ok)
	assert.Equal(t, StreamID(MaxStreamID), id)

	id, ok = a.next()
	require.True(t, ok)
	assert.Equal(t, StreamID(1), id, "must wrap back to the parity's start id")
}

func TestStreamIDAllocatorExhaustionReturnsFalse(t *testing.T) {
	a := newStreamIDAllocator(RoleClient, func(StreamID) bool { return true })
	atomic.StoreInt32(&a.last, int32(1))
	_, ok := a.next()
	assert.False(t, ok, "every id of this parity is reported live")
}
