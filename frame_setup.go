package rsocket

// SetupFrame is the first frame of a connection, carrying version and MIME
// negotiation (spec.md §3, §4.7).
type SetupFrame struct {
	Major, Minor         uint16
	KeepAliveInterval    uint32 // milliseconds
	MaxLifetime          uint32 // milliseconds
	ResumeToken          []byte // nil if resume is not enabled
	MetadataMimeType     string
	DataMimeType         string
	LeaseRequested       bool
	ResumeEnabled        bool
	Payload              Payload
}

func (f *SetupFrame) StreamID() StreamID { return 0 }
func (f *SetupFrame) Type() FrameType    { return FrameTypeSetup }

func (f *SetupFrame) encode() (frameBuf, error) {
	fb := allocFrameBuf()
	fb.header().SetStreamID(0)

	var flags Flags
	if f.Payload.HasMetadata {
		flags |= FlagMetadata
	}
	if f.LeaseRequested {
		flags |= FlagLease
	}
	if f.ResumeEnabled {
		flags |= FlagResumeEnable
	}
	fb.header().SetTypeAndFlags(FrameTypeSetup, flags)

	fb.writeUint16(f.Major)
	fb.writeUint16(f.Minor)
	fb.writeUint32(f.KeepAliveInterval)
	fb.writeUint32(f.MaxLifetime)

	if f.ResumeEnabled {
		fb.writeUint16(uint16(len(f.ResumeToken)))
		fb.writeBytes(f.ResumeToken)
	}

	if len(f.MetadataMimeType) > 0xff || len(f.DataMimeType) > 0xff {
		return nil, newProtocolError(0, "setup MIME type longer than 255 bytes")
	}
	fb.writeByte(byte(len(f.MetadataMimeType)))
	fb.writeBytes([]byte(f.MetadataMimeType))
	fb.writeByte(byte(len(f.DataMimeType)))
	fb.writeBytes([]byte(f.DataMimeType))

	if f.Payload.HasMetadata {
		if err := fb.writeMetadata(f.Payload.Metadata); err != nil {
			return nil, err
		}
	}
	fb.writeBytes(f.Payload.Data)
	return fb, nil
}

func decodeSetupFrame(fb frameBuf) (*SetupFrame, error) {
	flags := fb.header().Flags()
	fp := newFrameParser(fb)
	f := &SetupFrame{
		LeaseRequested: flags.Has(FlagLease),
		ResumeEnabled:  flags.Has(FlagResumeEnable),
	}

	var err error
	if f.Major, err = fp.readUint16(); err != nil {
		return nil, err
	}
	if f.Minor, err = fp.readUint16(); err != nil {
		return nil, err
	}
	if f.KeepAliveInterval, err = fp.readUint32(); err != nil {
		return nil, err
	}
	if f.MaxLifetime, err = fp.readUint32(); err != nil {
		return nil, err
	}
	if f.ResumeEnabled {
		tokenLen, err := fp.readUint16()
		if err != nil {
			return nil, err
		}
		if f.ResumeToken, err = fp.readBytes(int(tokenLen)); err != nil {
			return nil, err
		}
	}

	mimeLen, err := fp.readByte()
	if err != nil {
		return nil, err
	}
	if f.MetadataMimeType, err = fp.readString(int(mimeLen)); err != nil {
		return nil, err
	}
	mimeLen, err = fp.readByte()
	if err != nil {
		return nil, err
	}
	if f.DataMimeType, err = fp.readString(int(mimeLen)); err != nil {
		return nil, err
	}

	if flags.Has(FlagMetadata) {
		metadata, err := fp.readMetadata()
		if err != nil {
			return nil, err
		}
		f.Payload.Metadata = metadata
		f.Payload.HasMetadata = true
	}
	f.Payload.Data = fp.rest()
	return f, nil
}
