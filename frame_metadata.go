package rsocket

// MetadataPushFrame carries connection-level metadata with no associated
// stream (spec.md §3).
type MetadataPushFrame struct {
	Metadata []byte
}

func (f *MetadataPushFrame) StreamID() StreamID { return 0 }
func (f *MetadataPushFrame) Type() FrameType    { return FrameTypeMetadataPush }

func (f *MetadataPushFrame) encode() (frameBuf, error) {
	fb := allocFrameBuf()
	fb.header().SetStreamID(0)
	fb.header().SetTypeAndFlags(FrameTypeMetadataPush, FlagMetadata)
	// METADATA_PUSH metadata runs to the end of the frame with no length
	// prefix: the frame boundary itself delimits it.
	fb.writeBytes(f.Metadata)
	return fb, nil
}

func decodeMetadataPushFrame(fb frameBuf) (*MetadataPushFrame, error) {
	fp := newFrameParser(fb)
	return &MetadataPushFrame{Metadata: fp.rest()}, nil
}
