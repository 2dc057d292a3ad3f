package rsocket

// LeaseFrame grants a requester a bounded quota of requests for a bounded
// time (spec.md §3, GLOSSARY "Lease").
type LeaseFrame struct {
	TTLMillis        uint32
	NumberOfRequests uint32
	Metadata         []byte
	HasMetadata      bool
}

func (f *LeaseFrame) StreamID() StreamID { return 0 }
func (f *LeaseFrame) Type() FrameType    { return FrameTypeLease }

func (f *LeaseFrame) encode() (frameBuf, error) {
	if f.NumberOfRequests&0x80000000 != 0 {
		return nil, newProtocolError(0, "lease NumberOfRequests high bit must be zero")
	}
	fb := allocFrameBuf()
	fb.header().SetStreamID(0)
	var flags Flags
	if f.HasMetadata {
		flags |= FlagMetadata
	}
	fb.header().SetTypeAndFlags(FrameTypeLease, flags)
	fb.writeUint32(f.TTLMillis)
	fb.writeUint32(f.NumberOfRequests & 0x7fffffff)
	if f.HasMetadata {
		if err := fb.writeMetadata(f.Metadata); err != nil {
			return nil, err
		}
	}
	return fb, nil
}

func decodeLeaseFrame(fb frameBuf) (*LeaseFrame, error) {
	flags := fb.header().Flags()
	fp := newFrameParser(fb)
	f := &LeaseFrame{}
	var err error
	if f.TTLMillis, err = fp.readUint32(); err != nil {
		return nil, err
	}
	if f.NumberOfRequests, err = fp.readUint32(); err != nil {
		return nil, err
	}
	f.NumberOfRequests &= 0x7fffffff
	if flags.Has(FlagMetadata) {
		if f.Metadata, err = fp.readMetadata(); err != nil {
			return nil, err
		}
		f.HasMetadata = true
	}
	return f, nil
}
