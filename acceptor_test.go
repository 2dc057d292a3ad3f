package rsocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	nexts    []Payload
	complete bool
	errCode  ErrorCode
	errData  []byte
}

func (s *recordingSink) Success(p Payload)                { s.nexts = append(s.nexts, p) }
func (s *recordingSink) Next(p Payload)                    { s.nexts = append(s.nexts, p) }
func (s *recordingSink) Complete()                         { s.complete = true }
func (s *recordingSink) Error(code ErrorCode, data []byte) { s.errCode = code; s.errData = data }

func TestHandlerConfigRejectsUnsetRequestResponse(t *testing.T) {
	r := HandlerConfig{}.Build()
	sink := &recordingSink{}
	r.RequestResponse(NewPayloadData([]byte("x")), sink)
	assert.Equal(t, ErrorCodeRejected, sink.errCode)
}

func TestHandlerConfigRejectsUnsetRequestStream(t *testing.T) {
	r := HandlerConfig{}.Build()
	sink := &recordingSink{}
	r.RequestStream(NewPayloadData([]byte("x")), 1, sink)
	assert.Equal(t, ErrorCodeRejected, sink.errCode)
}

func TestHandlerConfigRejectsUnsetRequestChannel(t *testing.T) {
	r := HandlerConfig{}.Build()
	sink := &recordingSink{}
	r.RequestChannel(NewPayloadData([]byte("x")), 1, nil, sink)
	assert.Equal(t, ErrorCodeRejected, sink.errCode)
}

func TestHandlerConfigFireAndForgetAndMetadataPushAreNoOpsWhenUnset(t *testing.T) {
	r := HandlerConfig{}.Build()
	assert.NotPanics(t, func() {
		r.FireAndForget(NewPayloadData([]byte("x")))
		r.MetadataPush([]byte("m"))
	})
}

func TestHandlerConfigDispatchesConfiguredHandlers(t *testing.T) {
	var gotFNF, gotMeta []byte
	r := HandlerConfig{
		OnFireAndForget: func(p Payload) { gotFNF = p.Data },
		OnMetadataPush:  func(m []byte) { gotMeta = m },
		OnRequestResponse: func(p Payload, sink ResponseSink) {
			sink.Success(NewPayloadData(p.Data))
		},
	}.Build()

	r.FireAndForget(NewPayloadData([]byte("fnf")))
	r.MetadataPush([]byte("meta"))
	sink := &recordingSink{}
	r.RequestResponse(NewPayloadData([]byte("rr")), sink)

	assert.Equal(t, []byte("fnf"), gotFNF)
	assert.Equal(t, []byte("meta"), gotMeta)
	require.Len(t, sink.nexts, 1)
	assert.Equal(t, []byte("rr"), sink.nexts[0].Data)
}

func TestRejectingRSocketRejectsEveryInteraction(t *testing.T) {
	r := rejectingRSocket{}

	sink := &recordingSink{}
	r.RequestResponse(NewPayloadData(nil), sink)
	assert.Equal(t, ErrorCodeRejected, sink.errCode)

	sink = &recordingSink{}
	r.RequestStream(NewPayloadData(nil), 1, sink)
	assert.Equal(t, ErrorCodeRejected, sink.errCode)

	sink = &recordingSink{}
	r.RequestChannel(NewPayloadData(nil), 1, nil, sink)
	assert.Equal(t, ErrorCodeRejected, sink.errCode)

	assert.NotPanics(t, func() {
		r.FireAndForget(NewPayloadData(nil))
		r.MetadataPush(nil)
	})
}
