package rsocket

// frameBufPool provides a buffer of allocated but unused frameBufs,
// generalized verbatim from the teacher's framepool.go channel-based free
// list: a buffered channel acts as a bounded, lock-free-on-the-fast-path
// object pool, falling back to allocation when empty.
var frameBufPool chan frameBuf

const frameBufPoolSize = 0x1000

func init() {
	frameBufPool = make(chan frameBuf, frameBufPoolSize)
}

// allocFrameBuf returns an empty frameBuf, reusing a pooled one if available.
func allocFrameBuf() frameBuf {
	select {
	case fb := <-frameBufPool:
		fb.clear()
		return fb
	default:
		return newFrameBuf()
	}
}

// freeFrameBuf returns a frameBuf to the pool for reuse.
func freeFrameBuf(fb frameBuf) {
	if fb == nil {
		return
	}
	select {
	case frameBufPool <- fb:
	default:
		// pool full, let it be garbage collected
	}
}
