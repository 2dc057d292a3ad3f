package rsocket

// CancelFrame requests that a stream's responder stop producing.
type CancelFrame struct {
	ID StreamID
}

func (f *CancelFrame) StreamID() StreamID { return f.ID }
func (f *CancelFrame) Type() FrameType    { return FrameTypeCancel }

func (f *CancelFrame) encode() (frameBuf, error) {
	if f.ID == 0 {
		return nil, newProtocolError(0, "CANCEL requires a nonzero stream id")
	}
	fb := allocFrameBuf()
	fb.header().SetStreamID(f.ID)
	fb.header().SetTypeAndFlags(FrameTypeCancel, 0)
	return fb, nil
}

func decodeCancelFrame(fb frameBuf) (*CancelFrame, error) {
	return &CancelFrame{ID: fb.header().StreamID()}, nil
}
