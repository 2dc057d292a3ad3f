package rsocket

import "sync"

// stream.go implements the per-stream state machine (C5) shared by all
// four RSocket interaction kinds. A stream tracks whether its own outbound
// direction and its peer's outbound direction have each sent a final
// frame; the Idle/Active/HalfClosedLocal/HalfClosedRemote/Terminated
// phases spec.md §3 names fall directly out of that pair of booleans plus
// a "has the head frame gone out yet" flag.
//
// Grounded on the teacher's conn.go runState machine (Idle/Active/
// RemoteClosed/LocalWaitAck/LocalClosed/WaitAck/Recycle) and the parallel
// Exchange rewrite's hasStarted/hasSentClose/hasReceivedClose flags, which
// amount to the same local/remote-closed pair this file uses; generalized
// from RAP's single request/response shape to all four RSocket kinds.

// frameSender is the connection-level collaborator a stream writes
// outbound frames through.
type frameSender interface {
	sendFrame(Frame) error
}

// StreamCallbacks lets the owner of a stream (the responder dispatch table
// or a requester's caller) react to inbound events.
type StreamCallbacks struct {
	OnPayload  func(p Payload, complete bool)
	OnError    func(e ApplicationError)
	OnRequestN func(n uint32)
	OnCancel   func()

	// OnClose fires at most once, in place of OnPayload/OnError, when the
	// stream is torn down by connection/transport shutdown rather than by
	// a frame from the peer. It lets the owner release anything blocked
	// waiting on a terminal signal that would otherwise never arrive.
	OnClose func()
}

type stream struct {
	id   StreamID
	kind InteractionKind
	role StreamRole
	out  frameSender
	mtu  int

	mu           sync.Mutex
	started      bool
	localClosed  bool
	remoteClosed bool
	terminated   bool
	reassembling *reassembler

	credit *streamCredit
	cb     StreamCallbacks

	doneCh chan struct{}
}

func newStream(id StreamID, kind InteractionKind, role StreamRole, out frameSender, mtu int, initialOutboundCredit uint32) *stream {
	return &stream{
		id:     id,
		kind:   kind,
		role:   role,
		out:    out,
		mtu:    mtu,
		credit: newStreamCredit(initialOutboundCredit),
		doneCh: make(chan struct{}),
	}
}

// setCallbacks wires the stream's event callbacks. Must be called before
// any frame can reach the stream, i.e. immediately after construction.
func (s *stream) setCallbacks(cb StreamCallbacks) {
	s.mu.Lock()
	s.cb = cb
	s.mu.Unlock()
}

func (s *stream) phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phaseLocked()
}

func (s *stream) phaseLocked() Phase {
	if !s.started {
		return PhaseIdle
	}
	if s.terminated {
		return PhaseTerminated
	}
	switch {
	case !s.localClosed && !s.remoteClosed:
		return PhaseActive
	case s.localClosed && !s.remoteClosed:
		return PhaseHalfClosedLocal
	case !s.localClosed && s.remoteClosed:
		return PhaseHalfClosedRemote
	default:
		return PhaseTerminated
	}
}

// terminateLocked marks the stream terminated and closes doneCh, waking
// every done() waiter. Caller holds s.mu.
func (s *stream) terminateLocked() {
	if s.terminated {
		return
	}
	s.terminated = true
	close(s.doneCh)
}

func (s *stream) done() <-chan struct{} {
	return s.doneCh
}

// start emits the head (request) frame for a requester-initiated stream,
// fragmenting per s.mtu if the payload does not fit in one frame. Valid
// only from Idle.
func (s *stream) start(initialRequestN uint32, complete bool, p Payload) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return newProtocolError(s.id, "stream %d already started", uint32(s.id))
	}
	s.started = true
	s.mu.Unlock()

	firstOverhead := FrameHeaderSize
	if s.kind.hasInitialRequestN() {
		firstOverhead += 4
	}
	chunks, err := splitPayload(p, s.mtu, firstOverhead, FrameHeaderSize)
	if err != nil {
		return err
	}

	head := chunks[0]
	follows := !head.isLast
	headPayload := Payload{Data: head.data, Metadata: head.metadata, HasMetadata: head.hasMetadata}

	var headFrame Frame
	switch s.kind {
	case KindFireAndForget:
		headFrame = &RequestFNFFrame{ID: s.id, Follows: follows, Payload: headPayload}
	case KindRequestResponse:
		headFrame = &RequestResponseFrame{ID: s.id, Follows: follows, Payload: headPayload}
	case KindRequestStream:
		headFrame = &RequestStreamFrame{ID: s.id, Follows: follows, InitialRequestN: initialRequestN, Payload: headPayload}
	case KindRequestChannel:
		headFrame = &RequestChannelFrame{ID: s.id, Follows: follows, Complete: complete && head.isLast, InitialRequestN: initialRequestN, Payload: headPayload}
	}
	if err := s.out.sendFrame(headFrame); err != nil {
		return err
	}
	for _, c := range chunks[1:] {
		pf := &PayloadFrame{
			ID:       s.id,
			Follows:  !c.isLast,
			Complete: c.isLast && complete,
			Next:     true,
			Payload:  Payload{Data: c.data, Metadata: c.metadata, HasMetadata: c.hasMetadata},
		}
		if err := s.out.sendFrame(pf); err != nil {
			return err
		}
	}

	s.mu.Lock()
	switch s.kind {
	case KindFireAndForget:
		s.localClosed = true
		s.remoteClosed = true
	case KindRequestResponse, KindRequestStream:
		s.localClosed = true
	case KindRequestChannel:
		if complete {
			s.localClosed = true
		}
	}
	if s.localClosed && s.remoteClosed {
		s.terminateLocked()
	}
	s.mu.Unlock()
	return nil
}

// sendPayload emits one logical payload from this side, consuming one
// unit of outbound credit first. Used by a responder driving a
// request/stream or request/response reply, or by either side of a
// request/channel. Request/response has no REQUEST_N mechanic in the
// protocol, so its single reply is exempt from the credit gate along with
// fire-and-forget's "no reply at all".
func (s *stream) sendPayload(p Payload, complete bool) error {
	if s.kind == KindFireAndForget {
		return newProtocolError(s.id, "fire-and-forget streams cannot send payloads")
	}
	if s.kind != KindRequestResponse && s.credit.outbound.tryConsume(1) != 1 {
		return newProtocolError(s.id, "sendPayload called with no outbound credit available")
	}
	chunks, err := splitPayload(p, s.mtu, FrameHeaderSize, FrameHeaderSize)
	if err != nil {
		return err
	}
	for i, c := range chunks {
		pf := &PayloadFrame{
			ID:       s.id,
			Follows:  !c.isLast,
			Complete: c.isLast && complete,
			Next:     len(c.data) > 0 || len(c.metadata) > 0 || i == 0,
			Payload:  Payload{Data: c.data, Metadata: c.metadata, HasMetadata: c.hasMetadata},
		}
		if err := s.out.sendFrame(pf); err != nil {
			return err
		}
	}
	if complete {
		s.mu.Lock()
		s.localClosed = true
		if s.remoteClosed {
			s.terminateLocked()
		}
		s.mu.Unlock()
	}
	return nil
}

// sendError emits a terminal ERROR frame from this side.
func (s *stream) sendError(code ErrorCode, data []byte) error {
	if err := s.out.sendFrame(&ErrorFrame{ID: s.id, Code: code, Data: data}); err != nil {
		return err
	}
	s.mu.Lock()
	s.localClosed = true
	s.remoteClosed = true
	s.terminateLocked()
	s.mu.Unlock()
	return nil
}

// sendCancel emits a CANCEL frame, terminating the stream immediately.
func (s *stream) sendCancel() error {
	if err := s.out.sendFrame(&CancelFrame{ID: s.id}); err != nil {
		return err
	}
	s.mu.Lock()
	s.localClosed = true
	s.remoteClosed = true
	s.terminateLocked()
	s.mu.Unlock()
	return nil
}

// sendRequestN grants the peer n more units of credit.
func (s *stream) sendRequestN(n uint32) error {
	if err := s.out.sendFrame(&RequestNFrame{ID: s.id, N: n}); err != nil {
		return err
	}
	s.credit.inbound.grant(n)
	return nil
}

// submitFrame delivers an inbound frame addressed to this stream. Called
// from the connection's single reader goroutine.
func (s *stream) submitFrame(f Frame) error {
	switch fr := f.(type) {
	case *RequestNFrame:
		return s.handleRequestN(fr.N)
	case *CancelFrame:
		return s.handleCancel()
	case *PayloadFrame:
		return s.handlePayload(fr)
	case *ErrorFrame:
		return s.handleErrorFrame(fr)
	default:
		return newProtocolError(s.id, "frame type %s is not valid after stream start", f.Type())
	}
}

func (s *stream) handleRequestN(n uint32) error {
	s.credit.outbound.grant(n)
	s.mu.Lock()
	cb := s.cb.OnRequestN
	s.mu.Unlock()
	if cb != nil {
		cb(n)
	}
	return nil
}

func (s *stream) handleCancel() error {
	s.mu.Lock()
	s.remoteClosed = true
	s.terminateLocked()
	cb := s.cb.OnCancel
	s.mu.Unlock()
	if cb != nil {
		cb()
	}
	return nil
}

func (s *stream) handleErrorFrame(f *ErrorFrame) error {
	s.mu.Lock()
	s.remoteClosed = true
	s.terminateLocked()
	cb := s.cb.OnError
	s.mu.Unlock()
	if cb != nil {
		cb(ApplicationError{StreamID: s.id, Code: f.Code, Data: f.Data})
	}
	return nil
}

func (s *stream) handlePayload(f *PayloadFrame) error {
	if !f.Next && !f.Complete && !f.Follows {
		return newProtocolError(s.id, "PAYLOAD with next=0 complete=0 follows=0 is a protocol error")
	}

	s.mu.Lock()
	if f.Follows {
		if s.reassembling == nil {
			s.reassembling = newReassembler(s.kind, 0)
		}
		if err := s.reassembling.absorb(f.Payload); err != nil {
			s.mu.Unlock()
			return err
		}
		s.mu.Unlock()
		return nil
	}

	var final Payload
	if s.reassembling != nil {
		if err := s.reassembling.absorb(f.Payload); err != nil {
			s.mu.Unlock()
			return err
		}
		final = s.reassembling.result()
		s.reassembling = nil
	} else {
		final = f.Payload
	}
	if f.Complete {
		s.remoteClosed = true
	}
	if s.localClosed && s.remoteClosed {
		s.terminateLocked()
	}
	cb := s.cb.OnPayload
	s.mu.Unlock()

	if cb != nil {
		cb(final, f.Complete)
	}
	return nil
}
