package rsocket

// ExtFrame is the RSocket extension frame. Its payload shape is defined by
// an extended type id the core protocol does not interpret; per spec.md §1
// it is specified at the framing level and delegated to collaborators.
type ExtFrame struct {
	ID          StreamID
	ExtendedType uint32
	Metadata    []byte
	HasMetadata bool
	Data        []byte
}

func (f *ExtFrame) StreamID() StreamID { return f.ID }
func (f *ExtFrame) Type() FrameType    { return FrameTypeExt }

func (f *ExtFrame) encode() (frameBuf, error) {
	fb := allocFrameBuf()
	fb.header().SetStreamID(f.ID)
	var flags Flags
	if f.HasMetadata {
		flags |= FlagMetadata
	}
	fb.header().SetTypeAndFlags(FrameTypeExt, flags)
	fb.writeUint32(f.ExtendedType)
	if f.HasMetadata {
		if err := fb.writeMetadata(f.Metadata); err != nil {
			return nil, err
		}
	}
	fb.writeBytes(f.Data)
	return fb, nil
}

func decodeExtFrame(fb frameBuf) (*ExtFrame, error) {
	flags := fb.header().Flags()
	fp := newFrameParser(fb)
	extType, err := fp.readUint32()
	if err != nil {
		return nil, err
	}
	f := &ExtFrame{ID: fb.header().StreamID(), ExtendedType: extType}
	if flags.Has(FlagMetadata) {
		if f.Metadata, err = fp.readMetadata(); err != nil {
			return nil, err
		}
		f.HasMetadata = true
	}
	f.Data = fp.rest()
	return f, nil
}
