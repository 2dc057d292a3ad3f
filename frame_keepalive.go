package rsocket

// KeepAliveFrame is a liveness ping with a respond flag (spec.md §4.8).
type KeepAliveFrame struct {
	Respond              bool
	LastReceivedPosition uint64
	Data                 []byte
}

func (f *KeepAliveFrame) StreamID() StreamID { return 0 }
func (f *KeepAliveFrame) Type() FrameType    { return FrameTypeKeepAlive }

func (f *KeepAliveFrame) encode() (frameBuf, error) {
	fb := allocFrameBuf()
	fb.header().SetStreamID(0)
	var flags Flags
	if f.Respond {
		flags |= FlagRespond
	}
	fb.header().SetTypeAndFlags(FrameTypeKeepAlive, flags)
	fb.writeUint64(f.LastReceivedPosition)
	fb.writeBytes(f.Data)
	return fb, nil
}

func decodeKeepAliveFrame(fb frameBuf) (*KeepAliveFrame, error) {
	flags := fb.header().Flags()
	fp := newFrameParser(fb)
	f := &KeepAliveFrame{Respond: flags.Has(FlagRespond)}
	var err error
	if f.LastReceivedPosition, err = fp.readUint64(); err != nil {
		return nil, err
	}
	f.Data = fp.rest()
	return f, nil
}
