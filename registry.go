package rsocket

import "sync"

// registry.go implements the concurrent stream registry (C4): a sharded,
// open-addressed hash map from StreamID to *stream, using linear probing
// and Knuth's Algorithm R (TAOCP vol. 3, §6.4, Algorithm R) to compact a
// shard's probe chain on delete.
//
// Grounded on spec.md §4.4/§9, which calls out the teacher's
// connLookup []*Conn flat-array-plus-channel-free-list design (muxer.go)
// as the one-shot-id-space source design to generalize: RSocket streams
// span the full 31-bit id space and are reused after termination, so a
// flat array sized to the id space is not viable and the registry must
// instead resize and rehash like a normal hash table.

const registryShardCount = 16

type registryEntry struct {
	key    StreamID
	used   bool
	value  *stream
}

type registryShard struct {
	mu    sync.Mutex
	slots []registryEntry
	count int
}

const registryMinCapacity = 16

func newRegistryShard() *registryShard {
	return &registryShard{slots: make([]registryEntry, registryMinCapacity)}
}

func streamIDHash(id StreamID) uint32 {
	// Knuth multiplicative hash.
	return uint32(id) * 2654435761
}

func (s *registryShard) probeStart(id StreamID, capacity int) int {
	return int(streamIDHash(id)) & (capacity - 1)
}

func (s *registryShard) loadFactorExceeded() bool {
	return s.count*4 >= len(s.slots)*3
}

func (s *registryShard) grow() {
	old := s.slots
	s.slots = make([]registryEntry, len(old)*2)
	s.count = 0
	for _, e := range old {
		if e.used {
			s.insertLocked(e.key, e.value)
		}
	}
}

func (s *registryShard) insertLocked(id StreamID, v *stream) {
	capacity := len(s.slots)
	i := s.probeStart(id, capacity)
	for {
		if !s.slots[i].used {
			s.slots[i] = registryEntry{key: id, used: true, value: v}
			s.count++
			return
		}
		if s.slots[i].key == id {
			s.slots[i].value = v
			return
		}
		i = (i + 1) % capacity
	}
}

func (s *registryShard) put(id StreamID, v *stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadFactorExceeded() {
		s.grow()
	}
	s.insertLocked(id, v)
}

func (s *registryShard) get(id StreamID) (*stream, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	capacity := len(s.slots)
	i := s.probeStart(id, capacity)
	for n := 0; n < capacity; n++ {
		e := &s.slots[i]
		if !e.used {
			return nil, false
		}
		if e.key == id {
			return e.value, true
		}
		i = (i + 1) % capacity
	}
	return nil, false
}

// delete removes id from the shard, then applies Algorithm R to slide any
// slot whose probe sequence passes through the vacated index back into it,
// so later lookups for those keys still terminate at the first empty slot
// they encounter.
func (s *registryShard) delete(id StreamID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	capacity := len(s.slots)
	i := s.probeStart(id, capacity)
	found := -1
	for n := 0; n < capacity; n++ {
		e := &s.slots[i]
		if !e.used {
			return false
		}
		if e.key == id {
			found = i
			break
		}
		i = (i + 1) % capacity
	}
	if found < 0 {
		return false
	}
	s.algorithmRCompact(found, capacity)
	s.count--
	return true
}

func (s *registryShard) algorithmRCompact(gap, capacity int) {
	i := gap
	j := gap
	for {
		j = (j + 1) % capacity
		if !s.slots[j].used {
			break
		}
		r := s.probeStart(s.slots[j].key, capacity)
		if i <= j {
			if i < r && r <= j {
				continue
			}
		} else {
			if r <= j || r > i {
				continue
			}
		}
		s.slots[i] = s.slots[j]
		i = j
	}
	s.slots[i] = registryEntry{}
}

// streamRegistry is the full registry: registryShardCount independent
// shards, each guarded by its own mutex, selected by the low bits of the
// stream id's hash so unrelated streams rarely contend.
type streamRegistry struct {
	shards [registryShardCount]*registryShard
}

func newStreamRegistry() *streamRegistry {
	r := &streamRegistry{}
	for i := range r.shards {
		r.shards[i] = newRegistryShard()
	}
	return r
}

func (r *streamRegistry) shardFor(id StreamID) *registryShard {
	return r.shards[streamIDHash(id)%registryShardCount]
}

func (r *streamRegistry) put(id StreamID, v *stream) {
	r.shardFor(id).put(id, v)
}

func (r *streamRegistry) get(id StreamID) (*stream, bool) {
	return r.shardFor(id).get(id)
}

func (r *streamRegistry) delete(id StreamID) bool {
	return r.shardFor(id).delete(id)
}

func (r *streamRegistry) contains(id StreamID) bool {
	_, ok := r.get(id)
	return ok
}

// count returns the total number of live streams across all shards. It
// locks each shard in turn and is intended for diagnostics, not hot paths.
func (r *streamRegistry) count() int {
	total := 0
	for _, s := range r.shards {
		s.mu.Lock()
		total += s.count
		s.mu.Unlock()
	}
	return total
}

// each calls fn for every live entry in the registry. fn must not call
// back into the registry for the same shard it is currently being invoked
// under; each shard is locked for the duration of its own iteration.
func (r *streamRegistry) each(fn func(StreamID, *stream)) {
	for _, s := range r.shards {
		s.mu.Lock()
		for _, e := range s.slots {
			if e.used {
				fn(e.key, e.value)
			}
		}
		s.mu.Unlock()
	}
}
