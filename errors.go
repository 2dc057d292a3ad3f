package rsocket

import (
	"fmt"

	"github.com/pkg/errors"
)

// ProtocolError is returned for malformed frames, invalid state transitions
// and credit rule violations. One raised while decoding or dispatching an
// inbound frame closes the connection; one returned from a local stream
// call (e.g. sending without credit) is only reported to that caller.
type ProtocolError struct {
	StreamID StreamID
	Message  string
}

func (e ProtocolError) Error() string {
	return fmt.Sprintf("rsocket: protocol error on stream %d: %s", e.StreamID, e.Message)
}

func newProtocolError(streamID StreamID, format string, args ...interface{}) error {
	return errors.WithStack(ProtocolError{StreamID: streamID, Message: fmt.Sprintf(format, args...)})
}

// SetupError is returned when a SETUP frame is rejected before the
// connection reaches Established.
type SetupError struct {
	Code    ErrorCode
	Message string
}

func (e SetupError) Error() string {
	return fmt.Sprintf("rsocket: setup rejected (%s): %s", e.Code, e.Message)
}

// ApplicationError is a stream-scoped error surfaced to the application as a
// terminal signal, mirroring an ERROR frame received or sent for a stream.
type ApplicationError struct {
	StreamID StreamID
	Code     ErrorCode
	Data     []byte
}

func (e ApplicationError) Error() string {
	return fmt.Sprintf("rsocket: application error on stream %d (%s): %s", e.StreamID, e.Code, e.Data)
}

// TransportError wraps a failure from the underlying duplex transport.
type TransportError struct {
	Message string
	Cause   error
}

func (e TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rsocket: transport error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("rsocket: transport error: %s", e.Message)
}

func (e TransportError) Unwrap() error { return e.Cause }

// connectionClosedError is returned by operations attempted after the
// connection has entered Closing or Closed.
type connectionClosedError struct{}

func (connectionClosedError) Error() string { return "rsocket: connection closed" }

// streamTerminatedError is returned by operations attempted on a stream
// that has already reached the Terminated phase.
type streamTerminatedError struct{ StreamID StreamID }

func (e streamTerminatedError) Error() string {
	return fmt.Sprintf("rsocket: stream %d terminated", e.StreamID)
}

// timeoutError is used for deadline-exceeded conditions.
type timeoutError struct{}

func (timeoutError) Error() string   { return "rsocket: deadline exceeded" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// isConnectionClosed reports whether err (or its cause) indicates the
// connection was already closed, mirroring the teacher's isClosedError
// helper which unwraps via errors.Cause before comparing against sentinels.
func isConnectionClosed(err error) bool {
	switch errors.Cause(err).(type) {
	case connectionClosedError:
		return true
	}
	return false
}
