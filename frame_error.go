package rsocket

// ErrorFrame carries a stream-scoped or connection-scoped (streamId==0)
// protocol/application error (spec.md §4.1, §7).
type ErrorFrame struct {
	ID   StreamID
	Code ErrorCode
	Data []byte
}

func (f *ErrorFrame) StreamID() StreamID { return f.ID }
func (f *ErrorFrame) Type() FrameType    { return FrameTypeError }

func (f *ErrorFrame) encode() (frameBuf, error) {
	fb := allocFrameBuf()
	fb.header().SetStreamID(f.ID)
	fb.header().SetTypeAndFlags(FrameTypeError, 0)
	fb.writeUint32(uint32(f.Code))
	fb.writeBytes(f.Data)
	return fb, nil
}

func decodeErrorFrame(fb frameBuf) (*ErrorFrame, error) {
	fp := newFrameParser(fb)
	code, err := fp.readUint32()
	if err != nil {
		return nil, err
	}
	f := &ErrorFrame{ID: fb.header().StreamID(), Code: ErrorCode(code), Data: fp.rest()}
	if f.ID == 0 {
		if !f.Code.validForConnection() && !f.Code.validForSetup() {
			return nil, newProtocolError(0, "error code %s not valid for a connection-scoped ERROR frame", f.Code)
		}
	} else if !f.Code.validForStream() {
		return nil, newProtocolError(f.ID, "error code %s not valid for a stream-scoped ERROR frame", f.Code)
	}
	return f, nil
}
