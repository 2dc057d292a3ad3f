package rsocket

import "fmt"

// Payload is the application-visible unit of data exchanged over a stream:
// an opaque data byte sequence plus optional opaque metadata. Neither field
// is interpreted by the engine; their MIME types are negotiated out-of-band
// in the SETUP frame.
type Payload struct {
	Data     []byte
	Metadata []byte
	// HasMetadata distinguishes "no metadata" from "empty metadata", since
	// the wire carries metadata presence as a dedicated header flag.
	HasMetadata bool
}

// NewPayload builds a Payload with metadata.
func NewPayload(data, metadata []byte) Payload {
	return Payload{Data: data, Metadata: metadata, HasMetadata: metadata != nil}
}

// NewPayloadData builds a Payload with no metadata.
func NewPayloadData(data []byte) Payload {
	return Payload{Data: data}
}

func (p Payload) String() string {
	return fmt.Sprintf("Payload{data=%d bytes, metadata=%d bytes, hasMetadata=%v}",
		len(p.Data), len(p.Metadata), p.HasMetadata)
}

// SetupPayload is the payload carried by a SETUP frame, augmented with the
// negotiated wire version and MIME types.
type SetupPayload struct {
	Payload
	Version             ProtocolVersion
	MetadataMimeType    string
	DataMimeType        string
	KeepAliveInterval   uint32 // milliseconds, as carried on the wire
	KeepAliveMaxLifetime uint32 // milliseconds, as carried on the wire
	ResumeToken         []byte
	LeaseRequested      bool
}

// ProtocolVersion is the (major, minor) wire version pair carried in SETUP.
type ProtocolVersion struct {
	Major uint16
	Minor uint16
}

func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}
