package rsocket

import "time"

const (
	// ProtocolMajorVersion is the major version of the RSocket wire protocol
	// implemented by this package.
	ProtocolMajorVersion = 1
	// ProtocolMinorVersion is the minor version of the RSocket wire protocol
	// implemented by this package.
	ProtocolMinorVersion = 0

	// MaxStreamID is the highest legal stream id (high bit of the 32-bit
	// field is reserved and must be zero on the wire).
	MaxStreamID = StreamID(0x7fffffff)

	// FrameHeaderSize is the number of bytes in a frame header: a 4-byte
	// stream id followed by a 2-byte frame-type-and-flags word.
	FrameHeaderSize = 6

	// MetadataLengthSize is the number of bytes used to encode a metadata
	// block's length prefix.
	MetadataLengthSize = 3

	// DefaultKeepAliveInterval is how often a KEEPALIVE is sent when no
	// explicit configuration is supplied.
	DefaultKeepAliveInterval = 20 * time.Second
	// DefaultKeepAliveMaxLifetime is how long the engine waits without an
	// inbound KEEPALIVE before declaring the connection dead.
	DefaultKeepAliveMaxLifetime = 90 * time.Second
	// DefaultInitialRequestN is the default initial credit granted to a new
	// request/stream or request/channel when the caller does not specify one.
	DefaultInitialRequestN = uint32(1)
)

var (
	// clientStreamIDStart and serverStreamIDStart set stream id parity:
	// clients allocate odd ids, servers allocate even ids.
	clientStreamIDStart = StreamID(1)
	serverStreamIDStart = StreamID(2)
)

// Role identifies which side of a connection an endpoint plays.
type Role int

const (
	// RoleClient is the endpoint that sent the SETUP frame.
	RoleClient Role = iota
	// RoleServer is the endpoint that received the SETUP frame.
	RoleServer
)

func (r Role) String() string {
	if r == RoleClient {
		return "client"
	}
	return "server"
}
