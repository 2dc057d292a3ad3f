package rsocket

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/rsocketcore/rsocket/resume"
	"github.com/rsocketcore/rsocket/transport"
)

// connection.go implements the connection FSM (C7): Connecting ->
// AwaitingSetup -> Established -> Closing -> Closed, SETUP negotiation,
// and dispatch of every connection-scope (streamId==0) and stream-scope
// frame (spec.md §4.1, §4.7).
//
// Grounded on the teacher's muxer.go: one reader goroutine (ReadFrom)
// decoding and dispatching by id, one writer goroutine (WriteTo) draining
// a channel, and doneChan-based close signaling shared by both. Of the
// teacher's Close()/Shutdown() pair only the immediate Close is carried
// over; there is no graceful Shutdown. Generalized from RAP's
// single interaction model (every frame addresses a Conn) to RSocket's
// split between connection-level control frames (SETUP/LEASE/KEEPALIVE/
// ERROR/METADATA_PUSH/RESUME/RESUME_OK, all streamId==0) and stream-level
// frames dispatched into the stream registry.

// ConnectionPhase is the connection's lifecycle phase (spec.md §4.1).
type ConnectionPhase int

const (
	ConnectionConnecting ConnectionPhase = iota
	ConnectionAwaitingSetup
	ConnectionEstablished
	ConnectionClosing
	ConnectionClosed
)

func (p ConnectionPhase) String() string {
	switch p {
	case ConnectionConnecting:
		return "connecting"
	case ConnectionAwaitingSetup:
		return "awaiting-setup"
	case ConnectionEstablished:
		return "established"
	case ConnectionClosing:
		return "closing"
	case ConnectionClosed:
		return "closed"
	default:
		return "unknown-connection-phase"
	}
}

// ConnectionOptions configures a Connection before it is started.
type ConnectionOptions struct {
	// MTU bounds the encoded size of frames this connection originates;
	// payloads larger than MTU are fragmented. Zero disables fragmentation.
	MTU int
	// KeepAliveInterval and KeepAliveMaxLifetime configure the keep-alive
	// driver; zero values fall back to the package defaults.
	KeepAliveInterval    time.Duration
	KeepAliveMaxLifetime time.Duration
	// ResumeStore is consulted on RESUME/RESUME_OK; a connection that never
	// expects resumption may leave this nil.
	ResumeStore resume.Store
	// OnIgnoredFrame is invoked for a legally-ignored unrecognized frame
	// (Ignore flag set), on its own goroutine with a recovered panic, so it
	// may safely block or panic without affecting the reader goroutine. If
	// nil and NetLog is set, the frame is logged via log.Print; otherwise
	// it is dropped silently.
	OnIgnoredFrame func(t FrameType, id StreamID)
	// NetLog enables a log.Print fallback for ignored frames when
	// OnIgnoredFrame is nil, mirroring the teacher's Muxer.NetLog toggle.
	NetLog bool
}

// Connection is one established peer-to-peer RSocket connection: the SETUP
// handshake, the stream registry and id allocator, the keep-alive driver,
// and the single reader/writer goroutine pair that move frames to and from
// the transport.
type Connection struct {
	role      Role
	transport transport.DuplexConnection
	acceptor  Acceptor
	opts      ConnectionOptions

	registry *streamRegistry
	ids      *streamIDAllocator
	keepalive *keepaliveDriver

	mu        sync.Mutex
	phase     ConnectionPhase
	setup     SetupPayload
	local     RSocket // serves inbound requests from the peer
	peer      RSocket // lets an Acceptor make requests back to the peer

	writeCh   chan frameBuf
	doneCh    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// newConnection wires the shared machinery; NewClientConnection and
// NewServerConnection differ only in how SETUP is exchanged.
func newConnection(role Role, t transport.DuplexConnection, opts ConnectionOptions) *Connection {
	c := &Connection{
		role:      role,
		transport: t,
		opts:      opts,
		registry:  newStreamRegistry(),
		writeCh:   make(chan frameBuf, 64),
		doneCh:    make(chan struct{}),
		local:     rejectingRSocket{},
	}
	c.ids = newStreamIDAllocator(role, c.registry.contains)
	c.peer = connectionPeerHandle{c: c}
	return c
}

// NewClientConnection dials no transport itself; t must already be
// connected. It sends SETUP immediately and moves to Established without
// waiting for acknowledgement, matching spec.md §4.7's fire-and-proceed
// client behavior.
func NewClientConnection(t transport.DuplexConnection, setup SetupPayload, local RSocket, opts ConnectionOptions) (*Connection, error) {
	c := newConnection(RoleClient, t, opts)
	if local != nil {
		c.local = local
	}
	c.setup = setup
	c.phase = ConnectionConnecting
	go c.writeLoop()
	if err := c.sendSetup(setup); err != nil {
		c.Close()
		return nil, err
	}
	c.mu.Lock()
	c.phase = ConnectionEstablished
	c.mu.Unlock()
	c.startKeepalive()
	go c.readLoop()
	return c, nil
}

// NewServerConnection waits for the peer's SETUP frame on the reader
// goroutine before calling acceptor to obtain the local RSocket.
func NewServerConnection(t transport.DuplexConnection, acceptor Acceptor, opts ConnectionOptions) *Connection {
	c := newConnection(RoleServer, t, opts)
	c.acceptor = acceptor
	c.phase = ConnectionAwaitingSetup
	go c.writeLoop()
	go c.readLoop()
	return c
}

func (c *Connection) sendSetup(s SetupPayload) error {
	keepAliveInterval := s.KeepAliveInterval
	if keepAliveInterval == 0 {
		keepAliveInterval = uint32(DefaultKeepAliveInterval / time.Millisecond)
	}
	maxLifetime := s.KeepAliveMaxLifetime
	if maxLifetime == 0 {
		maxLifetime = uint32(DefaultKeepAliveMaxLifetime / time.Millisecond)
	}
	f := &SetupFrame{
		Major:             ProtocolMajorVersion,
		Minor:             ProtocolMinorVersion,
		KeepAliveInterval: keepAliveInterval,
		MaxLifetime:       maxLifetime,
		MetadataMimeType:  firstNonEmpty(s.MetadataMimeType, "application/octet-stream"),
		DataMimeType:      firstNonEmpty(s.DataMimeType, "application/octet-stream"),
		LeaseRequested:    s.LeaseRequested,
		ResumeEnabled:     len(s.ResumeToken) > 0,
		ResumeToken:       s.ResumeToken,
		Payload:           s.Payload,
	}
	return c.sendFrame(f)
}

func effectiveDuration(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

func firstNonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func (c *Connection) startKeepalive() {
	interval := effectiveDuration(c.opts.KeepAliveInterval, DefaultKeepAliveInterval)
	maxLifetime := effectiveDuration(c.opts.KeepAliveMaxLifetime, DefaultKeepAliveMaxLifetime)
	c.keepalive = newKeepaliveDriver(interval, maxLifetime, func(f *KeepAliveFrame) error { return c.sendFrame(f) }, func() {
		c.closeWithError(newProtocolError(0, "keep-alive deadline of %s exceeded", maxLifetime))
	})
	c.keepalive.start()
}

// sendFrame implements frameSender: it encodes f and hands it to the
// single writer goroutine.
func (c *Connection) sendFrame(f Frame) error {
	fb, err := f.encode()
	if err != nil {
		return err
	}
	select {
	case c.writeCh <- fb:
		return nil
	case <-c.doneCh:
		freeFrameBuf(fb)
		return connectionClosedError{}
	}
}

func (c *Connection) writeLoop() {
	for {
		select {
		case fb := <-c.writeCh:
			err := c.transport.WriteFrame(fb)
			freeFrameBuf(fb)
			if err != nil {
				c.closeWithError(errors.Wrap(err, "rsocket: writing frame"))
				return
			}
		case <-c.doneCh:
			return
		}
	}
}

func (c *Connection) readLoop() {
	for {
		b, err := c.transport.ReadFrame()
		if err != nil {
			c.closeWithError(nil)
			return
		}
		f, err := DecodeFrame(b)
		if err != nil {
			c.fatalProtocolError(err)
			return
		}
		if err := c.dispatch(f); err != nil {
			c.fatalProtocolError(err)
			return
		}
	}
}

func (c *Connection) fatalProtocolError(err error) {
	_ = c.sendFrame(&ErrorFrame{ID: 0, Code: ErrorCodeConnectionError, Data: []byte(err.Error())})
	c.closeWithError(err)
}

func (c *Connection) dispatch(f Frame) error {
	if f.StreamID() == 0 {
		return c.dispatchConnectionFrame(f)
	}
	return c.dispatchStreamFrame(f)
}

func (c *Connection) dispatchConnectionFrame(f Frame) error {
	switch fr := f.(type) {
	case *SetupFrame:
		return c.handleSetup(fr)
	case *LeaseFrame:
		return nil // a lease-issuing policy is an opaque collaborator (spec.md §9); accepted and ignored by default
	case *KeepAliveFrame:
		if c.keepalive == nil {
			return nil
		}
		return c.keepalive.onKeepAlive(fr)
	case *ErrorFrame:
		return newProtocolError(0, "peer reported connection error %s: %s", fr.Code, string(fr.Data))
	case *MetadataPushFrame:
		c.mu.Lock()
		local := c.local
		c.mu.Unlock()
		local.MetadataPush(fr.Metadata)
		return nil
	case *ResumeFrame:
		return c.handleResume(fr)
	case *ResumeOKFrame:
		return nil
	case *ignoredFrame:
		c.handleIgnoredFrame(fr)
		return nil
	default:
		return newProtocolError(0, "frame type %s is not valid at stream id 0", f.Type())
	}
}

func (c *Connection) handleIgnoredFrame(f *ignoredFrame) {
	if c.opts.OnIgnoredFrame != nil {
		cb, t, id := c.opts.OnIgnoredFrame, f.t, f.id
		go func() {
			defer func() { recover() }()
			cb(t, id)
		}()
		return
	}
	if c.opts.NetLog {
		log.Print("IGNORED ", f.t, " ", f.id)
	}
}

func (c *Connection) handleSetup(f *SetupFrame) error {
	c.mu.Lock()
	if c.phase != ConnectionAwaitingSetup {
		c.mu.Unlock()
		return newProtocolError(0, "unexpected SETUP outside AwaitingSetup")
	}
	c.mu.Unlock()

	setup := SetupPayload{
		Payload:              f.Payload,
		Version:              ProtocolVersion{Major: f.Major, Minor: f.Minor},
		MetadataMimeType:     f.MetadataMimeType,
		DataMimeType:         f.DataMimeType,
		KeepAliveInterval:    f.KeepAliveInterval,
		KeepAliveMaxLifetime: f.MaxLifetime,
		ResumeToken:          f.ResumeToken,
		LeaseRequested:       f.LeaseRequested,
	}

	var local RSocket = rejectingRSocket{}
	if c.acceptor != nil {
		r, err := c.acceptor(setup, c.peer)
		if err != nil {
			_ = c.sendFrame(&ErrorFrame{ID: 0, Code: ErrorCodeRejectedSetup, Data: []byte(err.Error())})
			c.closeWithError(err)
			return nil
		}
		local = r
	}

	c.mu.Lock()
	c.setup = setup
	c.local = local
	c.phase = ConnectionEstablished
	c.mu.Unlock()

	if setup.KeepAliveInterval > 0 {
		c.opts.KeepAliveInterval = time.Duration(setup.KeepAliveInterval) * time.Millisecond
	}
	if setup.KeepAliveMaxLifetime > 0 {
		c.opts.KeepAliveMaxLifetime = time.Duration(setup.KeepAliveMaxLifetime) * time.Millisecond
	}
	c.startKeepalive()
	return nil
}

func (c *Connection) handleResume(f *ResumeFrame) error {
	if c.opts.ResumeStore == nil {
		return c.sendFrame(&ErrorFrame{ID: 0, Code: ErrorCodeRejectedResume, Data: []byte("resume not supported")})
	}
	serverPos, _, ok := c.opts.ResumeStore.Load(f.ResumeToken)
	if !ok {
		return c.sendFrame(&ErrorFrame{ID: 0, Code: ErrorCodeRejectedResume, Data: []byte("unknown resume token")})
	}
	return c.sendFrame(&ResumeOKFrame{LastReceivedClientPosition: serverPos})
}

func (c *Connection) dispatchStreamFrame(f Frame) error {
	if ig, ok := f.(*ignoredFrame); ok {
		c.handleIgnoredFrame(ig)
		return nil
	}
	id := f.StreamID()
	if s, ok := c.registry.get(id); ok {
		return s.submitFrame(f)
	}
	return c.acceptRequest(f)
}

// acceptRequest handles a REQUEST_* frame that named a stream id not yet
// in the registry: a brand new responder stream.
func (c *Connection) acceptRequest(f Frame) error {
	c.mu.Lock()
	local := c.local
	c.mu.Unlock()

	switch fr := f.(type) {
	case *RequestFNFFrame:
		s := c.newStream(fr.ID, KindFireAndForget, RoleResponder, 0)
		return c.runFireAndForget(s, fr.Follows, fr.Payload, local)
	case *RequestResponseFrame:
		s := c.newStream(fr.ID, KindRequestResponse, RoleResponder, 0)
		return c.runRequestResponse(s, fr.Follows, fr.Payload, local)
	case *RequestStreamFrame:
		s := c.newStream(fr.ID, KindRequestStream, RoleResponder, 0)
		return c.runRequestStream(s, fr.Follows, fr.InitialRequestN, fr.Payload, local)
	case *RequestChannelFrame:
		s := c.newStream(fr.ID, KindRequestChannel, RoleResponder, 0)
		return c.runRequestChannel(s, fr.Follows, fr.Complete, fr.InitialRequestN, fr.Payload, local)
	default:
		return newProtocolError(f.StreamID(), "frame type %s cannot open a new stream", f.Type())
	}
}

func (c *Connection) newStream(id StreamID, kind InteractionKind, role StreamRole, initialOutboundCredit uint32) *stream {
	s := newStream(id, kind, role, c, c.opts.MTU, initialOutboundCredit)
	c.registry.put(id, s)
	go func() {
		<-s.done()
		c.registry.delete(id)
	}()
	return s
}

// invokeHandler runs fn, an application handler dispatch, on its own
// goroutine and converts a panic into a terminal APPLICATION_ERROR on s
// instead of crashing the process (spec.md §7).
func (c *Connection) invokeHandler(s *stream, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				_ = s.sendError(ErrorCodeApplicationError, []byte(fmt.Sprintf("panic: %v", r)))
			}
		}()
		fn()
	}()
}

// Each run* responder entry point handles a brand new stream's head
// frame. When the head itself arrived unfragmented (follows == false) it
// dispatches to the local RSocket immediately; when fragmented, it parks
// a reassembler and an OnPayload callback that performs the same
// dispatch once handlePayload delivers the reassembled head (spec.md §4.5:
// "only the head frame ... carries the interaction-defining fields",
// fragmentation is otherwise transparent to the interaction itself).

func (c *Connection) runFireAndForget(s *stream, follows bool, p Payload, local RSocket) error {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	if follows {
		s.mu.Lock()
		s.reassembling = newReassembler(KindFireAndForget, 0)
		_ = s.reassembling.absorb(p)
		s.mu.Unlock()
		s.setCallbacks(StreamCallbacks{
			OnPayload: func(final Payload, complete bool) {
				s.mu.Lock()
				s.localClosed = true
				s.remoteClosed = true
				s.terminateLocked()
				s.mu.Unlock()
				c.invokeHandler(s, func() { local.FireAndForget(final) })
			},
		})
		return nil
	}
	s.mu.Lock()
	s.localClosed = true
	s.remoteClosed = true
	s.terminateLocked()
	s.mu.Unlock()
	c.invokeHandler(s, func() { local.FireAndForget(p) })
	return nil
}

func (c *Connection) runRequestResponse(s *stream, follows bool, p Payload, local RSocket) error {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	if follows {
		s.mu.Lock()
		s.reassembling = newReassembler(KindRequestResponse, 0)
		_ = s.reassembling.absorb(p)
		s.mu.Unlock()
		s.setCallbacks(StreamCallbacks{
			OnPayload: func(final Payload, complete bool) {
				s.mu.Lock()
				s.remoteClosed = true
				s.mu.Unlock()
				c.invokeHandler(s, func() { local.RequestResponse(final, responseSink{s: s}) })
			},
		})
		return nil
	}
	s.mu.Lock()
	s.remoteClosed = true
	s.mu.Unlock()
	c.invokeHandler(s, func() { local.RequestResponse(p, responseSink{s: s}) })
	return nil
}

func (c *Connection) runRequestStream(s *stream, follows bool, initialRequestN uint32, p Payload, local RSocket) error {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	s.credit.outbound.grant(initialRequestN)
	if follows {
		s.mu.Lock()
		s.reassembling = newReassembler(KindRequestStream, 0)
		_ = s.reassembling.absorb(p)
		s.mu.Unlock()
		s.setCallbacks(StreamCallbacks{
			OnPayload: func(final Payload, complete bool) {
				s.mu.Lock()
				s.remoteClosed = true
				s.mu.Unlock()
				c.invokeHandler(s, func() { local.RequestStream(final, initialRequestN, streamSink{s: s}) })
			},
		})
		return nil
	}
	s.mu.Lock()
	s.remoteClosed = true
	s.mu.Unlock()
	c.invokeHandler(s, func() { local.RequestStream(p, initialRequestN, streamSink{s: s}) })
	return nil
}

func (c *Connection) runRequestChannel(s *stream, follows bool, complete bool, initialRequestN uint32, p Payload, local RSocket) error {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	s.credit.outbound.grant(initialRequestN)
	if follows {
		s.mu.Lock()
		s.reassembling = newReassembler(KindRequestChannel, 0)
		_ = s.reassembling.absorb(p)
		s.mu.Unlock()
		s.setCallbacks(StreamCallbacks{
			OnPayload: func(final Payload, last bool) {
				c.startRequestChannel(s, final, last, initialRequestN, local)
			},
			OnCancel: func() {},
		})
		return nil
	}
	c.startRequestChannel(s, p, complete, initialRequestN, local)
	return nil
}

// startRequestChannel wires the inbound channel-item pipe and invokes the
// local RSocket's handler exactly once for a given stream, regardless of
// whether the head frame arrived whole or reassembled from fragments.
func (c *Connection) startRequestChannel(s *stream, head Payload, complete bool, initialRequestN uint32, local RSocket) {
	in := make(chan Payload, 16)
	var closeInOnce sync.Once
	closeIn := func() { closeInOnce.Do(func() { close(in) }) }
	s.setCallbacks(StreamCallbacks{
		OnPayload: func(payload Payload, last bool) {
			in <- payload
			if last {
				closeIn()
			}
		},
		OnCancel: closeIn,
		OnClose:  closeIn,
	})
	s.mu.Lock()
	if complete {
		s.remoteClosed = true
		closeIn()
	}
	s.mu.Unlock()
	c.invokeHandler(s, func() { local.RequestChannel(head, initialRequestN, in, streamSink{s: s}) })
}

// newRequesterStream allocates a fresh id and a requester-role stream, but
// does not send anything yet; call stream.start to emit the head frame.
func (c *Connection) newRequesterStream(kind InteractionKind) (*stream, error) {
	c.mu.Lock()
	established := c.phase == ConnectionEstablished
	c.mu.Unlock()
	if !established {
		return nil, connectionClosedError{}
	}
	id, ok := c.ids.next()
	if !ok {
		return nil, newProtocolError(0, "stream id space exhausted")
	}
	s := newStream(id, kind, RoleRequester, c, c.opts.MTU, 0)
	c.registry.put(id, s)
	go func() {
		<-s.done()
		c.registry.delete(id)
	}()
	return s, nil
}

// MetadataPush sends connection-level metadata with no associated stream.
func (c *Connection) MetadataPush(metadata []byte) error {
	return c.sendFrame(&MetadataPushFrame{Metadata: metadata})
}

// FireAndForget sends p with no response expected.
func (c *Connection) FireAndForget(p Payload) error {
	s, err := c.newRequesterStream(KindFireAndForget)
	if err != nil {
		return err
	}
	return s.start(0, false, p)
}

// RequestResponse sends p and blocks for the single response or error.
func (c *Connection) RequestResponse(p Payload) (Payload, error) {
	s, err := c.newRequesterStream(KindRequestResponse)
	if err != nil {
		return Payload{}, err
	}
	resultCh := make(chan Payload, 1)
	errCh := make(chan error, 1)
	s.setCallbacks(StreamCallbacks{
		OnPayload: func(p Payload, complete bool) { resultCh <- p },
		OnError:   func(e ApplicationError) { errCh <- e },
		OnClose:   func() { errCh <- connectionClosedError{} },
	})
	if err := s.start(0, false, p); err != nil {
		return Payload{}, err
	}
	select {
	case r := <-resultCh:
		return r, nil
	case e := <-errCh:
		return Payload{}, e
	case <-c.doneCh:
		return Payload{}, connectionClosedError{}
	}
}

// StreamSubscription is the requester-side handle for an in-progress
// request/stream or request/channel.
type StreamSubscription struct {
	Items  <-chan Payload
	Errors <-chan error

	s *stream
}

// Cancel stops the interaction immediately.
func (sub *StreamSubscription) Cancel() error {
	return sub.s.sendCancel()
}

// RequestN grants the responder n more units of credit.
func (sub *StreamSubscription) RequestN(n uint32) error {
	return sub.s.sendRequestN(n)
}

// RequestStream initiates a request/stream interaction.
func (c *Connection) RequestStream(p Payload, initialRequestN uint32) (*StreamSubscription, error) {
	if initialRequestN == 0 {
		initialRequestN = DefaultInitialRequestN
	}
	s, err := c.newRequesterStream(KindRequestStream)
	if err != nil {
		return nil, err
	}
	items := make(chan Payload, 16)
	errs := make(chan error, 1)
	s.setCallbacks(StreamCallbacks{
		OnPayload: func(p Payload, complete bool) {
			items <- p
			if complete {
				close(items)
			}
		},
		OnError: func(e ApplicationError) {
			errs <- e
			close(items)
		},
		OnClose: func() {
			errs <- connectionClosedError{}
			close(items)
		},
	})
	if err := s.start(initialRequestN, false, p); err != nil {
		return nil, err
	}
	return &StreamSubscription{Items: items, Errors: errs, s: s}, nil
}

// RequestChannel initiates a request/channel interaction. out is drained
// by an internal goroutine and forwarded to the peer; closing out signals
// this side's completion of its own outbound direction.
func (c *Connection) RequestChannel(initial Payload, initialRequestN uint32, out <-chan Payload) (*StreamSubscription, error) {
	if initialRequestN == 0 {
		initialRequestN = DefaultInitialRequestN
	}
	s, err := c.newRequesterStream(KindRequestChannel)
	if err != nil {
		return nil, err
	}
	items := make(chan Payload, 16)
	errs := make(chan error, 1)
	s.setCallbacks(StreamCallbacks{
		OnPayload: func(p Payload, complete bool) {
			items <- p
			if complete {
				close(items)
			}
		},
		OnError: func(e ApplicationError) {
			errs <- e
			close(items)
		},
		OnClose: func() {
			errs <- connectionClosedError{}
			close(items)
		},
	})
	if err := s.start(initialRequestN, false, initial); err != nil {
		return nil, err
	}
	go func() {
		for p := range out {
			if err := s.sendPayload(p, false); err != nil {
				return
			}
		}
		_ = s.sendPayload(Payload{}, true)
	}()
	return &StreamSubscription{Items: items, Errors: errs, s: s}, nil
}

func (c *Connection) closeWithError(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.phase = ConnectionClosed
		c.closeErr = err
		c.mu.Unlock()
		if c.keepalive != nil {
			c.keepalive.stop()
		}
		close(c.doneCh)
		_ = c.transport.Close()
		c.registry.each(func(id StreamID, s *stream) {
			s.mu.Lock()
			alreadyTerminated := s.terminated
			s.terminateLocked()
			cb := s.cb
			s.mu.Unlock()
			// A stream still live when the connection tears down never gets
			// its own ERROR/PAYLOAD frame, so nothing would otherwise wake a
			// caller blocked on StreamSubscription.Items/Errors; fire the
			// terminal signal here instead.
			if !alreadyTerminated && cb.OnClose != nil {
				cb.OnClose()
			}
		})
	})
}

// Close closes the connection and every stream on it immediately.
func (c *Connection) Close() error {
	c.closeWithError(nil)
	return c.closeErr
}

// Done returns a channel closed once the connection has fully closed.
func (c *Connection) Done() <-chan struct{} {
	return c.doneCh
}

// Phase reports the connection's current lifecycle phase.
func (c *Connection) Phase() ConnectionPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// responseSink adapts a *stream to ResponseSink for request/response
// handlers.
type responseSink struct{ s *stream }

func (r responseSink) Success(p Payload)                   { _ = r.s.sendPayload(p, true) }
func (r responseSink) Error(code ErrorCode, data []byte)    { _ = r.s.sendError(code, data) }

// streamSink adapts a *stream to StreamSink for request/stream and
// request/channel handlers.
type streamSink struct{ s *stream }

func (s streamSink) Next(p Payload)                      { _ = s.s.sendPayload(p, false) }
func (s streamSink) Complete()                            { _ = s.s.sendPayload(Payload{}, true) }
func (s streamSink) Error(code ErrorCode, data []byte)     { _ = s.s.sendError(code, data) }

// connectionPeerHandle implements RSocket on top of Connection's requester
// API, for use as the peer handle an Acceptor receives.
type connectionPeerHandle struct{ c *Connection }

func (p connectionPeerHandle) MetadataPush(metadata []byte) { _ = p.c.MetadataPush(metadata) }
func (p connectionPeerHandle) FireAndForget(pl Payload)     { _ = p.c.FireAndForget(pl) }

func (p connectionPeerHandle) RequestResponse(pl Payload, sink ResponseSink) {
	go func() {
		r, err := p.c.RequestResponse(pl)
		if err != nil {
			if ae, ok := err.(ApplicationError); ok {
				sink.Error(ae.Code, ae.Data)
				return
			}
			sink.Error(ErrorCodeApplicationError, []byte(err.Error()))
			return
		}
		sink.Success(r)
	}()
}

func (p connectionPeerHandle) RequestStream(pl Payload, initialRequestN uint32, sink StreamSink) {
	sub, err := p.c.RequestStream(pl, initialRequestN)
	if err != nil {
		sink.Error(ErrorCodeApplicationError, []byte(err.Error()))
		return
	}
	go pumpSubscription(sub, sink)
}

func (p connectionPeerHandle) RequestChannel(initial Payload, initialRequestN uint32, in <-chan Payload, sink StreamSink) {
	sub, err := p.c.RequestChannel(initial, initialRequestN, in)
	if err != nil {
		sink.Error(ErrorCodeApplicationError, []byte(err.Error()))
		return
	}
	go pumpSubscription(sub, sink)
}

func pumpSubscription(sub *StreamSubscription, sink StreamSink) {
	for p := range sub.Items {
		sink.Next(p)
	}
	select {
	case err := <-sub.Errors:
		if ae, ok := err.(ApplicationError); ok {
			sink.Error(ae.Code, ae.Data)
			return
		}
	default:
	}
	sink.Complete()
}
