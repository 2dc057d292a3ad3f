package transport

import "sync"

// LocalConn is an in-memory DuplexConnection backed by a pair of buffered
// channels, for wiring a client and server connection together in tests
// without a real socket.
//
// Grounded on the teacher's wspipe_test.go in-memory client/server
// wiring, generalized from an HTTP-over-RAP pipe into a first-class
// transport: NewLocalPair returns two endpoints whose writes on one side
// arrive as reads on the other, whole frame at a time.
type LocalConn struct {
	out chan []byte
	in  chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

// NewLocalPair returns two connected LocalConn endpoints. capacity bounds
// how many frames may be in flight, unread, in either direction.
func NewLocalPair(capacity int) (a, b *LocalConn) {
	ab := make(chan []byte, capacity)
	ba := make(chan []byte, capacity)
	a = &LocalConn{out: ab, in: ba, closed: make(chan struct{})}
	b = &LocalConn{out: ba, in: ab, closed: make(chan struct{})}
	return a, b
}

func (c *LocalConn) ReadFrame() ([]byte, error) {
	select {
	case b := <-c.in:
		return b, nil
	case <-c.closed:
		return nil, ErrTransportClosed{}
	}
}

func (c *LocalConn) WriteFrame(b []byte) error {
	cp := make([]byte, len(b))
	copy(cp, b)
	select {
	case c.out <- cp:
		return nil
	case <-c.closed:
		return ErrTransportClosed{}
	}
}

func (c *LocalConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}
