package rsocket

// RequestNFrame grants additional credit to a stream's responder
// (spec.md §3, §4.5 "Credit rules").
type RequestNFrame struct {
	ID StreamID
	N  uint32
}

func (f *RequestNFrame) StreamID() StreamID { return f.ID }
func (f *RequestNFrame) Type() FrameType    { return FrameTypeRequestN }

func (f *RequestNFrame) encode() (frameBuf, error) {
	if f.ID == 0 {
		return nil, newProtocolError(0, "REQUEST_N requires a nonzero stream id")
	}
	if f.N == 0 {
		return nil, newProtocolError(f.ID, "REQUEST_N(0) is invalid")
	}
	if f.N&0x80000000 != 0 {
		return nil, newProtocolError(f.ID, "REQUEST_N high bit must be zero")
	}
	fb := allocFrameBuf()
	fb.header().SetStreamID(f.ID)
	fb.header().SetTypeAndFlags(FrameTypeRequestN, 0)
	fb.writeUint32(f.N & 0x7fffffff)
	return fb, nil
}

func decodeRequestNFrame(fb frameBuf) (*RequestNFrame, error) {
	fp := newFrameParser(fb)
	n, err := fp.readUint32()
	if err != nil {
		return nil, err
	}
	n &= 0x7fffffff
	id := fb.header().StreamID()
	if n == 0 {
		return nil, newProtocolError(id, "REQUEST_N(0) is invalid")
	}
	return &RequestNFrame{ID: id, N: n}, nil
}
