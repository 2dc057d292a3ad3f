package rsocket

import "fmt"

// ErrorCode is a wire-level RSocket error code, as carried by an ERROR frame.
type ErrorCode uint32

// Registered RSocket error codes. See the RSocket protocol's error code
// registry; codes outside the ranges documented per frame are a protocol
// error.
const (
	ErrorCodeInvalidSetup     ErrorCode = 0x00000001
	ErrorCodeUnsupportedSetup ErrorCode = 0x00000002
	ErrorCodeRejectedSetup    ErrorCode = 0x00000003
	ErrorCodeRejectedResume   ErrorCode = 0x00000004
	ErrorCodeConnectionError  ErrorCode = 0x00000101
	ErrorCodeConnectionClose  ErrorCode = 0x00000102
	ErrorCodeApplicationError ErrorCode = 0x00000201
	ErrorCodeRejected         ErrorCode = 0x00000202
	ErrorCodeCanceled         ErrorCode = 0x00000203
	ErrorCodeInvalid          ErrorCode = 0x00000204
)

const (
	reservedLow       = 0x00000000
	setupReservedHigh = 0x000000ff
	protocolLow       = 0x00000100
	protocolHigh      = 0x000001ff
	applicationLow    = 0x00000200
	applicationHigh   = 0x000002ff
	reservedHigh       = 0xffffffff
)

var errorCodeTexts = map[ErrorCode]string{
	ErrorCodeInvalidSetup:     "INVALID_SETUP",
	ErrorCodeUnsupportedSetup: "UNSUPPORTED_SETUP",
	ErrorCodeRejectedSetup:    "REJECTED_SETUP",
	ErrorCodeRejectedResume:   "REJECTED_RESUME",
	ErrorCodeConnectionError:  "CONNECTION_ERROR",
	ErrorCodeConnectionClose:  "CONNECTION_CLOSE",
	ErrorCodeApplicationError: "APPLICATION_ERROR",
	ErrorCodeRejected:         "REJECTED",
	ErrorCodeCanceled:         "CANCELED",
	ErrorCodeInvalid:          "INVALID",
}

func (c ErrorCode) String() string {
	if text, ok := errorCodeTexts[c]; ok {
		return text
	}
	return fmt.Sprintf("ERROR_CODE(0x%08x)", uint32(c))
}

// validForSetup reports whether the code is legal on an ERROR frame sent
// before the connection reaches Established.
func (c ErrorCode) validForSetup() bool {
	switch c {
	case ErrorCodeInvalidSetup, ErrorCodeUnsupportedSetup, ErrorCodeRejectedSetup, ErrorCodeRejectedResume:
		return true
	}
	return false
}

// validForStream reports whether the code is legal on a stream-scoped ERROR frame.
func (c ErrorCode) validForStream() bool {
	switch c {
	case ErrorCodeApplicationError, ErrorCodeRejected, ErrorCodeCanceled, ErrorCodeInvalid:
		return true
	}
	return uint32(c) >= applicationLow && uint32(c) <= applicationHigh
}

// validForConnection reports whether the code is legal on a connection-scoped
// (streamId==0) ERROR frame sent after Established.
func (c ErrorCode) validForConnection() bool {
	switch c {
	case ErrorCodeConnectionError, ErrorCodeConnectionClose:
		return true
	}
	return uint32(c) >= protocolLow && uint32(c) <= protocolHigh
}
