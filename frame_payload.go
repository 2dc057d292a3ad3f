package rsocket

// PayloadFrame carries a stream data/metadata payload, and doubles as a
// fragment continuation and/or stream terminator depending on its flags
// (spec.md §3, §4.5).
type PayloadFrame struct {
	ID       StreamID
	Follows  bool
	Complete bool
	Next     bool
	Payload  Payload
}

func (f *PayloadFrame) StreamID() StreamID { return f.ID }
func (f *PayloadFrame) Type() FrameType    { return FrameTypePayload }

func (f *PayloadFrame) encode() (frameBuf, error) {
	if f.ID == 0 {
		return nil, newProtocolError(0, "PAYLOAD requires a nonzero stream id")
	}
	if !f.Next && !f.Complete && !f.Follows {
		return nil, newProtocolError(f.ID, "PAYLOAD with next=0 complete=0 follows=0 is a protocol error")
	}
	fb := allocFrameBuf()
	fb.header().SetStreamID(f.ID)
	var flags Flags
	if f.Follows {
		flags |= FlagFollows
	}
	if f.Complete {
		flags |= FlagComplete
	}
	if f.Next {
		flags |= FlagNext
	}
	if f.Payload.HasMetadata {
		flags |= FlagMetadata
	}
	fb.header().SetTypeAndFlags(FrameTypePayload, flags)
	if f.Payload.HasMetadata {
		if err := fb.writeMetadata(f.Payload.Metadata); err != nil {
			return nil, err
		}
	}
	fb.writeBytes(f.Payload.Data)
	return fb, nil
}

func decodePayloadFrame(fb frameBuf) (*PayloadFrame, error) {
	flags := fb.header().Flags()
	id := fb.header().StreamID()
	if id == 0 {
		return nil, newProtocolError(0, "PAYLOAD requires a nonzero stream id")
	}
	next := flags.Has(FlagNext)
	complete := flags.Has(FlagComplete)
	follows := flags.Has(FlagFollows)
	if !next && !complete && !follows {
		return nil, newProtocolError(id, "PAYLOAD with next=0 complete=0 follows=0 is a protocol error")
	}
	fp := newFrameParser(fb)
	p, err := decodePayloadTail(&fp, flags)
	if err != nil {
		return nil, err
	}
	return &PayloadFrame{ID: id, Follows: follows, Complete: complete, Next: next, Payload: p}, nil
}
