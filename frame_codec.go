package rsocket

// Frame is the tagged-variant interface implemented by every concrete frame
// type (spec.md §3 "Frame").
type Frame interface {
	StreamID() StreamID
	Type() FrameType
	encode() (frameBuf, error)
}

// EncodeFrame serializes a Frame to its wire bytes. The returned slice is a
// freshly allocated copy owned by the caller; the pooled buffer used during
// encoding is returned to the pool before EncodeFrame returns.
func EncodeFrame(f Frame) ([]byte, error) {
	fb, err := f.encode()
	if err != nil {
		return nil, err
	}
	defer freeFrameBuf(fb)
	out := make([]byte, len(fb))
	copy(out, fb)
	return out, nil
}

// DecodeFrame parses a single wire frame (header plus payload, with no
// transport-level length prefix) into its typed representation, or returns
// a ProtocolError describing why it could not be decoded.
func DecodeFrame(b []byte) (Frame, error) {
	if len(b) < FrameHeaderSize {
		return nil, newProtocolError(0, "truncated frame: %d bytes, need at least %d", len(b), FrameHeaderSize)
	}
	fb := frameBuf(b)
	h := fb.header()
	id := h.StreamID()

	if id&StreamID(0x80000000) != 0 {
		return nil, newProtocolError(id, "stream id high bit must be zero")
	}

	t := h.Type()
	flags := h.Flags()

	isStreamOnly := streamOnlyFrameType(t)
	isConnOnly := connOnlyFrameType(t)
	if isStreamOnly && id == 0 {
		return nil, newProtocolError(0, "%s requires a nonzero stream id", t)
	}
	if isConnOnly && id != 0 {
		return nil, newProtocolError(id, "%s must use stream id 0", t)
	}

	switch t {
	case FrameTypeSetup:
		return decodeSetupFrame(fb)
	case FrameTypeLease:
		return decodeLeaseFrame(fb)
	case FrameTypeKeepAlive:
		return decodeKeepAliveFrame(fb)
	case FrameTypeRequestResponse:
		return decodeRequestResponseFrame(fb)
	case FrameTypeRequestFNF:
		return decodeRequestFNFFrame(fb)
	case FrameTypeRequestStream:
		return decodeRequestStreamFrame(fb)
	case FrameTypeRequestChannel:
		return decodeRequestChannelFrame(fb)
	case FrameTypeRequestN:
		return decodeRequestNFrame(fb)
	case FrameTypeCancel:
		return decodeCancelFrame(fb)
	case FrameTypePayload:
		return decodePayloadFrame(fb)
	case FrameTypeError:
		return decodeErrorFrame(fb)
	case FrameTypeMetadataPush:
		return decodeMetadataPushFrame(fb)
	case FrameTypeResume:
		return decodeResumeFrame(fb)
	case FrameTypeResumeOK:
		return decodeResumeOKFrame(fb)
	case FrameTypeExt:
		return decodeExtFrame(fb)
	default:
		if flags.Has(FlagIgnore) && t.allowsIgnore() {
			return &ignoredFrame{id: id, t: t}, nil
		}
		return nil, newProtocolError(id, "unknown frame type 0x%02x without Ignore flag", byte(t))
	}
}

// ignoredFrame is returned for an unrecognized frame type carrying the
// Ignore flag; the connection FSM hands it to the ignored-frame consumer
// collaborator rather than treating it as an error (spec.md §4.5, §6).
type ignoredFrame struct {
	id StreamID
	t  FrameType
}

func (f *ignoredFrame) StreamID() StreamID           { return f.id }
func (f *ignoredFrame) Type() FrameType              { return f.t }
func (f *ignoredFrame) encode() (frameBuf, error) { return nil, newProtocolError(f.id, "ignoredFrame is not encodable") }

func connOnlyFrameType(t FrameType) bool {
	switch t {
	case FrameTypeSetup, FrameTypeLease, FrameTypeKeepAlive, FrameTypeMetadataPush, FrameTypeResume, FrameTypeResumeOK:
		return true
	}
	return false
}

func streamOnlyFrameType(t FrameType) bool {
	switch t {
	case FrameTypeRequestResponse, FrameTypeRequestFNF, FrameTypeRequestStream,
		FrameTypeRequestChannel, FrameTypeRequestN, FrameTypeCancel, FrameTypePayload:
		return true
	}
	return false
}
