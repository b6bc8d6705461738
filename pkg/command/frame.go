package command

// Protocol bytes.
const (
	StartMarker byte = '$'
	EndMarker   byte = '&'
	Terminator  byte = '\r'
)

// FrameCapacity is the maximum number of bytes buffered per frame.
const FrameCapacity = 10

// Frame is a bounded command buffer. It is a value type so a completed
// frame can be handed to another goroutine without sharing memory.
type Frame struct {
	buf [FrameCapacity]byte
	n   int
}

// FrameOf builds a Frame from p, failing with ErrBufferFull on overflow.
// The bytes which fit are kept.
func FrameOf(p []byte) (f Frame, err error) {
	for _, b := range p {
		if e := f.Append(b); e != nil {
			err = e
		}
	}
	return
}

// Len returns the number of buffered bytes.
func (f Frame) Len() int {
	return f.n
}

// Bytes returns a copy of the buffered bytes.
func (f Frame) Bytes() []byte {
	return f.buf[:f.n]
}

// String implements fmt.Stringer.
func (f Frame) String() string {
	return string(f.buf[:f.n])
}

// Append adds a byte, or returns ErrBufferFull leaving the frame unchanged.
func (f *Frame) Append(b byte) error {
	if f.n >= FrameCapacity {
		return ErrBufferFull
	}
	f.buf[f.n] = b
	f.n++
	return nil
}

// Reset empties the frame.
func (f *Frame) Reset() {
	f.n = 0
}

// FeedState tells what happened to a byte passed to Assembler.Feed.
type FeedState int

const (
	// FeedStored means the byte was appended to the frame.
	FeedStored FeedState = iota
	// FeedOverflow means the byte was discarded as the frame is full.
	FeedOverflow
	// FeedComplete means a terminator was received.
	FeedComplete
)

// FeedResult indicates the result after one assembling step.
type FeedResult struct {
	State FeedState
	// Frame is the completed frame when State is FeedComplete.
	Frame Frame
}

// Err returns ErrBufferFull for FeedOverflow, nil otherwise.
func (r FeedResult) Err() error {
	if r.State == FeedOverflow {
		return ErrBufferFull
	}
	return nil
}

// Assembler assembles bytes into frames. It never blocks.
type Assembler struct {
	frame Frame
}

// Feed consumes one byte.
func (a *Assembler) Feed(b byte) FeedResult {
	if b == Terminator {
		r := FeedResult{State: FeedComplete, Frame: a.frame}
		a.frame.Reset()
		return r
	}
	if err := a.frame.Append(b); err != nil {
		return FeedResult{State: FeedOverflow}
	}
	return FeedResult{State: FeedStored}
}

// Pending returns a copy of the frame being assembled.
func (a *Assembler) Pending() Frame {
	return a.frame
}

// Reset drops the frame being assembled.
func (a *Assembler) Reset() {
	a.frame.Reset()
}
