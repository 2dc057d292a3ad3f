// Package transport carries whole RSocket wire frames between peers over a
// concrete byte transport (TCP, WebSocket, or an in-memory pipe), leaving
// frame decoding itself to the core package.
//
// Grounded on the teacher's Muxer, which couples an io.ReadWriteCloser
// directly to its ReadFrom/WriteTo loops; generalized here into a small
// DuplexConnection interface so the core connection FSM is not tied to any
// one byte-transport shape, matching the three transports spec.md §6
// requires.
package transport

import "github.com/pkg/errors"

// DuplexConnection carries whole, unframed RSocket frame payloads. Each
// ReadFrame call returns exactly one frame's bytes (header plus body, no
// transport-level length prefix); each WriteFrame call sends exactly one.
type DuplexConnection interface {
	ReadFrame() ([]byte, error)
	WriteFrame(b []byte) error
	Close() error
}

// ErrTransportClosed is returned by LocalConn's ReadFrame/WriteFrame once
// Close has been called. TCPConn and WebSocketConn instead return the
// wrapped error of their underlying connection.
type ErrTransportClosed struct{}

func (ErrTransportClosed) Error() string { return "rsocket/transport: closed" }

func wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
