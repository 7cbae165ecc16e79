package wire

// Framing defaults.
const (
	DefaultBufferSize      = 512
	DefaultTerminator byte = ';'
)

// Accumulator collects bytes read from the link into complete frames.
// It is not safe for concurrent use; the ingestion loop owns it.
type Accumulator struct {
	terminator byte
	buf        []byte
	dropped    uint64
}

// NewAccumulator creates an Accumulator holding at most size bytes per
// frame, terminator included.
func NewAccumulator(size int, terminator byte) *Accumulator {
	if size < 2 {
		size = 2
	}
	return &Accumulator{
		terminator: terminator,
		buf:        make([]byte, 0, size),
	}
}

// Feed consumes a chunk of bytes and returns the frames it completes, each
// ending with the terminator. Bytes of an unterminated frame are kept for
// the next call. Once the buffer is full further bytes are dropped until a
// terminator arrives; the last slot is reserved for the terminator.
func (a *Accumulator) Feed(data []byte) (frames [][]byte) {
	for _, b := range data {
		if b == a.terminator {
			frame := make([]byte, len(a.buf)+1)
			copy(frame, a.buf)
			frame[len(a.buf)] = b
			frames = append(frames, frame)
			a.buf = a.buf[:0]
			continue
		}
		if len(a.buf) < cap(a.buf)-1 {
			a.buf = append(a.buf, b)
		} else {
			a.dropped++
		}
	}
	return
}

// Pending returns the number of buffered bytes of the current frame.
func (a *Accumulator) Pending() int {
	return len(a.buf)
}

// Dropped returns the number of bytes discarded due to overflow.
func (a *Accumulator) Dropped() uint64 {
	return a.dropped
}

// Reset discards the partial frame.
func (a *Accumulator) Reset() {
	a.buf = a.buf[:0]
}
