package rsocket

// fragment.go implements the Fragmenter/Reassembler (C2): splitting an
// oversize payload into a head frame plus Payload-frame continuations at a
// configured MTU, and rejoining a follows-chain on receipt.
//
// Grounded on the teacher's conn.write()/conn.writeFrom() pattern of
// filling a frame buffer up to its available capacity and flushing once
// full; generalized from "flush when the fixed-size buffer is full" to
// "flush when the configured MTU is reached", and from a single data
// stream to the metadata-then-data pair every RSocket payload carries.

// payloadChunk is one fragment's worth of a larger Payload.
type payloadChunk struct {
	metadata    []byte
	hasMetadata bool
	data        []byte
	isLast      bool
}

// splitPayload partitions p into an ordered sequence of chunks, each of
// which fits within mtu once headerOverhead (the frame header plus any
// fixed fields specific to that fragment's position) is accounted for. A
// mtu of 0 disables fragmentation: splitPayload returns a single chunk
// regardless of size.
func splitPayload(p Payload, mtu, firstHeaderOverhead, contHeaderOverhead int) ([]payloadChunk, error) {
	if mtu <= 0 {
		return []payloadChunk{{metadata: p.Metadata, hasMetadata: p.HasMetadata, data: p.Data, isLast: true}}, nil
	}

	metadata := p.Metadata
	data := p.Data
	hasMetadata := p.HasMetadata

	var chunks []payloadChunk
	first := true
	for {
		overhead := contHeaderOverhead
		if first {
			overhead = firstHeaderOverhead
		}
		budget := mtu - overhead
		willCarryMetadata := hasMetadata && (first || len(metadata) > 0)
		if willCarryMetadata {
			budget -= MetadataLengthSize
		}
		if budget <= 0 {
			return nil, newProtocolError(0, "fragmentationMtu %d too small for frame overhead", mtu)
		}

		metaChunkLen := 0
		if willCarryMetadata {
			metaChunkLen = len(metadata)
			if metaChunkLen > budget {
				metaChunkLen = budget
			}
		}
		remaining := budget - metaChunkLen
		dataChunkLen := len(data)
		if dataChunkLen > remaining {
			dataChunkLen = remaining
		}

		chunkMetadata := metadata[:metaChunkLen]
		metadata = metadata[metaChunkLen:]
		chunkData := data[:dataChunkLen]
		data = data[dataChunkLen:]

		isLast := len(metadata) == 0 && len(data) == 0
		chunks = append(chunks, payloadChunk{
			metadata:    chunkMetadata,
			hasMetadata: willCarryMetadata,
			data:        chunkData,
			isLast:      isLast,
		})

		if isLast {
			break
		}
		first = false
	}
	return chunks, nil
}

// reassembler accumulates a follows-chain of fragments keyed by streamId
// into one logical Payload, per spec.md §4.2. kind records the interaction
// the chain belongs to; absorb does not check it against the fragments it
// receives.
type reassembler struct {
	kind        InteractionKind
	metadata    []byte
	data        []byte
	hasMetadata bool
	ceiling     int // 0 means unbounded
}

func newReassembler(kind InteractionKind, ceiling int) *reassembler {
	return &reassembler{kind: kind, ceiling: ceiling}
}

// absorb appends one fragment's metadata and data, in arrival order, as
// spec.md §4.2 requires.
func (r *reassembler) absorb(p Payload) error {
	if p.HasMetadata {
		r.hasMetadata = true
		r.metadata = append(r.metadata, p.Metadata...)
	}
	r.data = append(r.data, p.Data...)
	if r.ceiling > 0 && len(r.metadata)+len(r.data) > r.ceiling {
		return newProtocolError(0, "reassembly buffer exceeded ceiling of %d bytes", r.ceiling)
	}
	return nil
}

func (r *reassembler) result() Payload {
	return Payload{Data: r.data, Metadata: r.metadata, HasMetadata: r.hasMetadata}
}
