package rsocket

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPayloadNoFragmentation(t *testing.T) {
	p := NewPayload([]byte("hello world"), []byte("meta"))
	chunks, err := splitPayload(p, 0, FrameHeaderSize, FrameHeaderSize)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].isLast)
	assert.Equal(t, p.Data, chunks[0].data)
}

func TestSplitPayloadFragmentsAndReassembles(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 500)
	metadata := bytes.Repeat([]byte("m"), 50)
	p := NewPayload(data, metadata)

	chunks, err := splitPayload(p, 64, FrameHeaderSize+4, FrameHeaderSize)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks[:len(chunks)-1] {
		assert.False(t, c.isLast)
	}
	assert.True(t, chunks[len(chunks)-1].isLast)

	r := newReassembler(KindRequestResponse, 0)
	for _, c := range chunks {
		require.NoError(t, r.absorb(Payload{Data: c.data, Metadata: c.metadata, HasMetadata: c.hasMetadata}))
	}
	got := r.result()
	assert.Equal(t, data, got.Data)
	assert.Equal(t, metadata, got.Metadata)
	assert.True(t, got.HasMetadata)
}

func TestSplitPayloadRejectsMtuSmallerThanOverhead(t *testing.T) {
	p := NewPayloadData([]byte("x"))
	_, err := splitPayload(p, 2, FrameHeaderSize, FrameHeaderSize)
	assert.Error(t, err)
}

func TestReassemblerEnforcesCeiling(t *testing.T) {
	r := newReassembler(KindRequestStream, 4)
	require.NoError(t, r.absorb(NewPayloadData([]byte("ab"))))
	err := r.absorb(NewPayloadData([]byte("abc")))
	assert.Error(t, err)
}

func TestReassemblerNoMetadataStaysUnset(t *testing.T) {
	r := newReassembler(KindFireAndForget, 0)
	require.NoError(t, r.absorb(NewPayloadData([]byte("a"))))
	require.NoError(t, r.absorb(NewPayloadData([]byte("b"))))
	got := r.result()
	assert.False(t, got.HasMetadata)
	assert.Equal(t, []byte("ab"), got.Data)
}
