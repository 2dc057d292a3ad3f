package rsocket

// ResumeFrame requests resumption of a previous connection using a resume
// token. Per spec.md §1 and §9, the resume-store is an opaque collaborator;
// this package gives the frame a bit-exact codec but leaves replay
// semantics to the connection FSM's resume.Store collaborator.
type ResumeFrame struct {
	Major, Minor              uint16
	ResumeToken               []byte
	LastReceivedServerPosition uint64
	FirstAvailableClientPosition uint64
}

func (f *ResumeFrame) StreamID() StreamID { return 0 }
func (f *ResumeFrame) Type() FrameType    { return FrameTypeResume }

func (f *ResumeFrame) encode() (frameBuf, error) {
	fb := allocFrameBuf()
	fb.header().SetStreamID(0)
	fb.header().SetTypeAndFlags(FrameTypeResume, 0)
	fb.writeUint16(f.Major)
	fb.writeUint16(f.Minor)
	if len(f.ResumeToken) > 0xffff {
		return nil, newProtocolError(0, "resume token longer than 65535 bytes")
	}
	fb.writeUint16(uint16(len(f.ResumeToken)))
	fb.writeBytes(f.ResumeToken)
	fb.writeUint64(f.LastReceivedServerPosition)
	fb.writeUint64(f.FirstAvailableClientPosition)
	return fb, nil
}

func decodeResumeFrame(fb frameBuf) (*ResumeFrame, error) {
	fp := newFrameParser(fb)
	f := &ResumeFrame{}
	var err error
	if f.Major, err = fp.readUint16(); err != nil {
		return nil, err
	}
	if f.Minor, err = fp.readUint16(); err != nil {
		return nil, err
	}
	tokenLen, err := fp.readUint16()
	if err != nil {
		return nil, err
	}
	if f.ResumeToken, err = fp.readBytes(int(tokenLen)); err != nil {
		return nil, err
	}
	if f.LastReceivedServerPosition, err = fp.readUint64(); err != nil {
		return nil, err
	}
	if f.FirstAvailableClientPosition, err = fp.readUint64(); err != nil {
		return nil, err
	}
	return f, nil
}

// ResumeOKFrame acknowledges a ResumeFrame and reports the last client
// position the server received.
type ResumeOKFrame struct {
	LastReceivedClientPosition uint64
}

func (f *ResumeOKFrame) StreamID() StreamID { return 0 }
func (f *ResumeOKFrame) Type() FrameType    { return FrameTypeResumeOK }

func (f *ResumeOKFrame) encode() (frameBuf, error) {
	fb := allocFrameBuf()
	fb.header().SetStreamID(0)
	fb.header().SetTypeAndFlags(FrameTypeResumeOK, 0)
	fb.writeUint64(f.LastReceivedClientPosition)
	return fb, nil
}

func decodeResumeOKFrame(fb frameBuf) (*ResumeOKFrame, error) {
	fp := newFrameParser(fb)
	pos, err := fp.readUint64()
	if err != nil {
		return nil, err
	}
	return &ResumeOKFrame{LastReceivedClientPosition: pos}, nil
}
