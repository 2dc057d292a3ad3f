// frame.go
//
// A frame header consists of six bytes. The first four bytes hold the
// stream id (31 bits; the high bit of the first byte is reserved and must
// be zero on the wire). The next two bytes hold the frame type (the top 6
// bits) and the flags word (the bottom 10 bits), big-endian throughout.
//
// Flag bits are shared across frame types that never appear together on
// the wire (e.g. Follows and Respond occupy the same bit), so a flag must
// always be interpreted in the context of the frameHeader's FrameType.

package rsocket

import "fmt"

// StreamID identifies a stream within a connection. Stream id 0 is
// reserved for connection-level frames.
type StreamID uint32

func (id StreamID) String() string {
	return fmt.Sprintf("stream(%d)", uint32(id))
}

// FrameType enumerates the RSocket frame types, encoded in the top 6 bits
// of the header's second 16-bit word.
type FrameType byte

const (
	FrameTypeReserved         FrameType = 0x00
	FrameTypeSetup            FrameType = 0x01
	FrameTypeLease            FrameType = 0x02
	FrameTypeKeepAlive        FrameType = 0x03
	FrameTypeRequestResponse  FrameType = 0x04
	FrameTypeRequestFNF       FrameType = 0x05
	FrameTypeRequestStream    FrameType = 0x06
	FrameTypeRequestChannel   FrameType = 0x07
	FrameTypeRequestN         FrameType = 0x08
	FrameTypeCancel           FrameType = 0x09
	FrameTypePayload          FrameType = 0x0A
	FrameTypeError            FrameType = 0x0B
	FrameTypeMetadataPush     FrameType = 0x0C
	FrameTypeResume           FrameType = 0x0D
	FrameTypeResumeOK         FrameType = 0x0E
	FrameTypeExt              FrameType = 0x3F
)

var frameTypeTexts = map[FrameType]string{
	FrameTypeReserved:        "RESERVED",
	FrameTypeSetup:           "SETUP",
	FrameTypeLease:           "LEASE",
	FrameTypeKeepAlive:       "KEEPALIVE",
	FrameTypeRequestResponse: "REQUEST_RESPONSE",
	FrameTypeRequestFNF:      "REQUEST_FNF",
	FrameTypeRequestStream:   "REQUEST_STREAM",
	FrameTypeRequestChannel:  "REQUEST_CHANNEL",
	FrameTypeRequestN:        "REQUEST_N",
	FrameTypeCancel:          "CANCEL",
	FrameTypePayload:         "PAYLOAD",
	FrameTypeError:           "ERROR",
	FrameTypeMetadataPush:    "METADATA_PUSH",
	FrameTypeResume:          "RESUME",
	FrameTypeResumeOK:        "RESUME_OK",
	FrameTypeExt:             "EXT",
}

func (t FrameType) String() string {
	if text, ok := frameTypeTexts[t]; ok {
		return text
	}
	return fmt.Sprintf("FRAME_TYPE(0x%02x)", byte(t))
}

// allowsIgnore reports whether an unknown variant of this frame type may be
// silently ignored when the Ignore flag is set. SETUP, RESUME and
// RESUME_OK must never be ignored: a peer that doesn't understand them
// cannot safely proceed.
func (t FrameType) allowsIgnore() bool {
	switch t {
	case FrameTypeSetup, FrameTypeResume, FrameTypeResumeOK:
		return false
	}
	return true
}

// Flags is the 10-bit flags word of a frame header.
type Flags uint16

const (
	// FlagIgnore marks a frame as safe to silently discard if the
	// receiver does not understand its type or contents.
	FlagIgnore Flags = 0x200
	// FlagMetadata marks the presence of a length-prefixed metadata block.
	FlagMetadata Flags = 0x100
	// FlagFollows marks a non-terminal fragment in a fragmented frame chain.
	// Used by the four REQUEST_* frames and PAYLOAD.
	FlagFollows Flags = 0x080
	// FlagComplete marks the terminal signal of a stream direction. Used by
	// REQUEST_CHANNEL and PAYLOAD.
	FlagComplete Flags = 0x040
	// FlagNext marks the presence of a data/metadata payload meant for
	// delivery to the application. Used by PAYLOAD.
	FlagNext Flags = 0x020
	// FlagRespond requests an immediate reply. Used by KEEPALIVE; shares a
	// bit with FlagFollows because KEEPALIVE and the fragmentable frame
	// types never overlap.
	FlagRespond = FlagFollows
	// FlagLease indicates the requester wants lease semantics enabled for
	// this connection. Used by SETUP; shares a bit with FlagComplete.
	FlagLease = FlagComplete
	// FlagResumeEnable indicates the requester wants resumption enabled.
	// Used by SETUP; shares a bit with FlagFollows/FlagRespond.
	FlagResumeEnable = FlagFollows

	flagsMask Flags = 0x3ff
)

// Has reports whether all bits in mask are set.
func (f Flags) Has(mask Flags) bool { return f&mask == mask }

func (f Flags) String() string {
	s := ""
	if f.Has(FlagIgnore) {
		s += "I"
	}
	if f.Has(FlagMetadata) {
		s += "M"
	}
	if f.Has(FlagFollows) {
		s += "F"
	}
	if f.Has(FlagComplete) {
		s += "C"
	}
	if f.Has(FlagNext) {
		s += "N"
	}
	if s == "" {
		s = "-"
	}
	return s
}

// frameHeader is a 6-byte accessor over the leading bytes of a frameBuf,
// styled on the teacher's FrameHeader []byte bit-accessor pattern but
// generalized from a 4-byte/13-bit-index layout to RSocket's 6-byte/31-bit
// stream id layout.
type frameHeader []byte

func (fh frameHeader) StreamID() StreamID {
	return StreamID(uint32(fh[0])<<24 | uint32(fh[1])<<16 | uint32(fh[2])<<8 | uint32(fh[3]))
}

func (fh frameHeader) SetStreamID(id StreamID) {
	fh[0] = byte(id >> 24)
	fh[1] = byte(id >> 16)
	fh[2] = byte(id >> 8)
	fh[3] = byte(id)
}

func (fh frameHeader) typeAndFlags() uint16 {
	return uint16(fh[4])<<8 | uint16(fh[5])
}

func (fh frameHeader) Type() FrameType {
	return FrameType(fh.typeAndFlags() >> 10)
}

func (fh frameHeader) Flags() Flags {
	return Flags(fh.typeAndFlags() & uint16(flagsMask))
}

func (fh frameHeader) SetTypeAndFlags(t FrameType, f Flags) {
	v := uint16(t)<<10 | uint16(f&flagsMask)
	fh[4] = byte(v >> 8)
	fh[5] = byte(v)
}

func (fh frameHeader) String() string {
	return fmt.Sprintf("[frame %s %s %s]", fh.StreamID(), fh.Type(), fh.Flags())
}
