package rsocket

// acceptor.go defines the application-facing surface (§6): the RSocket
// interface every connection implements toward its peer, the sinks a
// handler uses to deliver results at its own pace, and a HandlerConfig
// builder that assembles an RSocket from a sparse set of closures with
// default-rejecting behavior for anything left unset.
//
// Grounded on the teacher's single-field http.Handler on Server (a whole
// interaction modeled as one interface method) and its implicit
// default-404-via-ServeMux behavior when no handler matches; generalized
// to RSocket's five interaction kinds. Unset request/response,
// request/stream and request/channel handlers answer with an explicit
// REJECTED error; unset fire-and-forget and metadata-push handlers are
// no-ops, since those interactions have no reply.

// ResponseSink is how a RequestResponse handler delivers its single
// result, synchronously or from another goroutine.
type ResponseSink interface {
	Success(p Payload)
	Error(code ErrorCode, data []byte)
}

// StreamSink is how a RequestStream or RequestChannel handler delivers
// zero or more items terminated by Complete or Error.
type StreamSink interface {
	Next(p Payload)
	Complete()
	Error(code ErrorCode, data []byte)
}

// RSocket is the interface each side of a connection implements to
// respond to its peer's requests (spec.md §6).
type RSocket interface {
	MetadataPush(metadata []byte)
	FireAndForget(p Payload)
	RequestResponse(p Payload, sink ResponseSink)
	RequestStream(p Payload, initialRequestN uint32, sink StreamSink)
	RequestChannel(initial Payload, initialRequestN uint32, in <-chan Payload, sink StreamSink)
}

// Acceptor is invoked once per accepted connection, after SETUP has been
// parsed, to obtain the RSocket that will serve the peer's requests. peer
// is a handle for making requests back to the connecting side.
type Acceptor func(setup SetupPayload, peer RSocket) (RSocket, error)

// HandlerConfig assembles an RSocket from independent per-interaction
// closures. A nil request/response, request/stream or request/channel
// closure rejects that interaction with REJECTED; a nil fire-and-forget or
// metadata-push closure drops the request.
type HandlerConfig struct {
	OnMetadataPush    func(metadata []byte)
	OnFireAndForget   func(p Payload)
	OnRequestResponse func(p Payload, sink ResponseSink)
	OnRequestStream   func(p Payload, initialRequestN uint32, sink StreamSink)
	OnRequestChannel  func(initial Payload, initialRequestN uint32, in <-chan Payload, sink StreamSink)
}

// Build returns an RSocket backed by this configuration.
func (h HandlerConfig) Build() RSocket {
	return configuredRSocket{cfg: h}
}

type configuredRSocket struct {
	cfg HandlerConfig
}

func (r configuredRSocket) MetadataPush(metadata []byte) {
	if r.cfg.OnMetadataPush != nil {
		r.cfg.OnMetadataPush(metadata)
	}
}

func (r configuredRSocket) FireAndForget(p Payload) {
	if r.cfg.OnFireAndForget != nil {
		r.cfg.OnFireAndForget(p)
	}
}

func (r configuredRSocket) RequestResponse(p Payload, sink ResponseSink) {
	if r.cfg.OnRequestResponse != nil {
		r.cfg.OnRequestResponse(p, sink)
		return
	}
	sink.Error(ErrorCodeRejected, []byte("request-response not handled"))
}

func (r configuredRSocket) RequestStream(p Payload, initialRequestN uint32, sink StreamSink) {
	if r.cfg.OnRequestStream != nil {
		r.cfg.OnRequestStream(p, initialRequestN, sink)
		return
	}
	sink.Error(ErrorCodeRejected, []byte("request-stream not handled"))
}

func (r configuredRSocket) RequestChannel(initial Payload, initialRequestN uint32, in <-chan Payload, sink StreamSink) {
	if r.cfg.OnRequestChannel != nil {
		r.cfg.OnRequestChannel(initial, initialRequestN, in, sink)
		return
	}
	sink.Error(ErrorCodeRejected, []byte("request-channel not handled"))
}

// rejectingRSocket rejects every interaction; used as the default local
// RSocket before an Acceptor has produced a real one.
type rejectingRSocket struct{}

func (rejectingRSocket) MetadataPush([]byte) {}
func (rejectingRSocket) FireAndForget(Payload) {}
func (rejectingRSocket) RequestResponse(p Payload, sink ResponseSink) {
	sink.Error(ErrorCodeRejected, []byte("no handler configured"))
}
func (rejectingRSocket) RequestStream(p Payload, n uint32, sink StreamSink) {
	sink.Error(ErrorCodeRejected, []byte("no handler configured"))
}
func (rejectingRSocket) RequestChannel(p Payload, n uint32, in <-chan Payload, sink StreamSink) {
	sink.Error(ErrorCodeRejected, []byte("no handler configured"))
}
