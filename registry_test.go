package rsocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamRegistryPutGetDelete(t *testing.T) {
	r := newStreamRegistry()
	s1 := &stream{id: 1}
	r.put(1, s1)

	got, ok := r.get(1)
	require.True(t, ok)
	assert.Same(t, s1, got)

	assert.True(t, r.contains(1))
	assert.True(t, r.delete(1))
	assert.False(t, r.contains(1))
	assert.False(t, r.delete(1), "deleting an absent id reports false")
}

func TestStreamRegistryGrowsAcrossManyEntries(t *testing.T) {
	r := newStreamRegistry()
	const n = 5000
	for i := StreamID(1); i <= n; i += 2 {
		r.put(i, &stream{id: i})
	}
	assert.Equal(t, n/2, r.count())
	for i := StreamID(1); i <= n; i += 2 {
		got, ok := r.get(i)
		require.True(t, ok, "id %d must still be found after growth", i)
		assert.Equal(t, i, got.id)
	}
}

func TestStreamRegistryProbeChainSurvivesDeletes(t *testing.T) {
	r := newStreamRegistry()
	shard := r.shards[0]

	// Force several ids into the same shard directly, bypassing the hash
	// spread, to exercise Algorithm R's probe-chain compaction on delete.
	ids := []StreamID{101, 201, 301, 401, 501}
	for _, id := range ids {
		shard.put(id, &stream{id: id})
	}
	require.True(t, shard.delete(ids[1]))
	for _, id := range ids {
		if id == ids[1] {
			continue
		}
		_, ok := shard.get(id)
		assert.True(t, ok, "id %d lookup must survive compaction of a deleted neighbor", id)
	}
}

func TestStreamRegistryEach(t *testing.T) {
	r := newStreamRegistry()
	want := map[StreamID]bool{1: true, 2: true, 3: true}
	for id := range want {
		r.put(id, &stream{id: id})
	}
	seen := map[StreamID]bool{}
	r.each(func(id StreamID, s *stream) { seen[id] = true })
	assert.Equal(t, want, seen)
}
