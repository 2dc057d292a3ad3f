package rsocket

// RequestResponseFrame initiates a request/response interaction.
type RequestResponseFrame struct {
	ID      StreamID
	Follows bool
	Payload Payload
}

func (f *RequestResponseFrame) StreamID() StreamID { return f.ID }
func (f *RequestResponseFrame) Type() FrameType    { return FrameTypeRequestResponse }

func (f *RequestResponseFrame) encode() (frameBuf, error) {
	return encodeRequestHead(f.ID, FrameTypeRequestResponse, f.Follows, false, 0, f.Payload)
}

// RequestFNFFrame initiates a fire-and-forget interaction.
type RequestFNFFrame struct {
	ID      StreamID
	Follows bool
	Payload Payload
}

func (f *RequestFNFFrame) StreamID() StreamID { return f.ID }
func (f *RequestFNFFrame) Type() FrameType    { return FrameTypeRequestFNF }

func (f *RequestFNFFrame) encode() (frameBuf, error) {
	return encodeRequestHead(f.ID, FrameTypeRequestFNF, f.Follows, false, 0, f.Payload)
}

// RequestStreamFrame initiates a request/stream interaction, carrying the
// initial credit grant.
type RequestStreamFrame struct {
	ID               StreamID
	Follows          bool
	InitialRequestN  uint32
	Payload          Payload
}

func (f *RequestStreamFrame) StreamID() StreamID { return f.ID }
func (f *RequestStreamFrame) Type() FrameType    { return FrameTypeRequestStream }

func (f *RequestStreamFrame) encode() (frameBuf, error) {
	return encodeRequestHead(f.ID, FrameTypeRequestStream, f.Follows, true, f.InitialRequestN, f.Payload)
}

// RequestChannelFrame initiates a request/channel interaction.
type RequestChannelFrame struct {
	ID              StreamID
	Follows         bool
	Complete        bool
	InitialRequestN uint32
	Payload         Payload
}

func (f *RequestChannelFrame) StreamID() StreamID { return f.ID }
func (f *RequestChannelFrame) Type() FrameType    { return FrameTypeRequestChannel }

func (f *RequestChannelFrame) encode() (frameBuf, error) {
	fb, err := encodeRequestHead(f.ID, FrameTypeRequestChannel, f.Follows, true, f.InitialRequestN, f.Payload)
	if err != nil {
		return nil, err
	}
	if f.Complete {
		flags := fb.header().Flags() | FlagComplete
		fb.header().SetTypeAndFlags(FrameTypeRequestChannel, flags)
	}
	return fb, nil
}

// encodeRequestHead builds the shared layout of the four REQUEST_* head
// frames: optional initialRequestN, optional metadata block, then data.
// Only the head frame of a fragment chain carries initialRequestN, per
// spec.md §3's fragment-chain invariant.
func encodeRequestHead(id StreamID, t FrameType, follows, hasRequestN bool, requestN uint32, p Payload) (frameBuf, error) {
	if id == 0 {
		return nil, newProtocolError(0, "%s requires a nonzero stream id", t)
	}
	if hasRequestN && requestN&0x80000000 != 0 {
		return nil, newProtocolError(id, "initialRequestN high bit must be zero")
	}
	fb := allocFrameBuf()
	fb.header().SetStreamID(id)
	var flags Flags
	if follows {
		flags |= FlagFollows
	}
	if p.HasMetadata {
		flags |= FlagMetadata
	}
	fb.header().SetTypeAndFlags(t, flags)
	if hasRequestN {
		fb.writeUint32(requestN & 0x7fffffff)
	}
	if p.HasMetadata {
		if err := fb.writeMetadata(p.Metadata); err != nil {
			return nil, err
		}
	}
	fb.writeBytes(p.Data)
	return fb, nil
}

func decodeRequestResponseFrame(fb frameBuf) (*RequestResponseFrame, error) {
	flags := fb.header().Flags()
	fp := newFrameParser(fb)
	p, err := decodePayloadTail(&fp, flags)
	if err != nil {
		return nil, err
	}
	return &RequestResponseFrame{ID: fb.header().StreamID(), Follows: flags.Has(FlagFollows), Payload: p}, nil
}

func decodeRequestFNFFrame(fb frameBuf) (*RequestFNFFrame, error) {
	flags := fb.header().Flags()
	fp := newFrameParser(fb)
	p, err := decodePayloadTail(&fp, flags)
	if err != nil {
		return nil, err
	}
	return &RequestFNFFrame{ID: fb.header().StreamID(), Follows: flags.Has(FlagFollows), Payload: p}, nil
}

func decodeRequestStreamFrame(fb frameBuf) (*RequestStreamFrame, error) {
	flags := fb.header().Flags()
	fp := newFrameParser(fb)
	requestN, err := fp.readUint32()
	if err != nil {
		return nil, err
	}
	p, err := decodePayloadTail(&fp, flags)
	if err != nil {
		return nil, err
	}
	return &RequestStreamFrame{
		ID:              fb.header().StreamID(),
		Follows:         flags.Has(FlagFollows),
		InitialRequestN: requestN & 0x7fffffff,
		Payload:         p,
	}, nil
}

func decodeRequestChannelFrame(fb frameBuf) (*RequestChannelFrame, error) {
	flags := fb.header().Flags()
	fp := newFrameParser(fb)
	requestN, err := fp.readUint32()
	if err != nil {
		return nil, err
	}
	p, err := decodePayloadTail(&fp, flags)
	if err != nil {
		return nil, err
	}
	return &RequestChannelFrame{
		ID:              fb.header().StreamID(),
		Follows:         flags.Has(FlagFollows),
		Complete:        flags.Has(FlagComplete),
		InitialRequestN: requestN & 0x7fffffff,
		Payload:         p,
	}, nil
}

// decodePayloadTail reads the shared optional-metadata-then-data tail used
// by every frame type that carries a Payload.
func decodePayloadTail(fp *frameParser, flags Flags) (Payload, error) {
	var p Payload
	if flags.Has(FlagMetadata) {
		metadata, err := fp.readMetadata()
		if err != nil {
			return p, err
		}
		p.Metadata = metadata
		p.HasMetadata = true
	}
	p.Data = fp.rest()
	return p, nil
}
