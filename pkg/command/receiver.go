package command

import (
	"context"
	"errors"
	"io"
	"os"
	"sync/atomic"

	"github.com/golang/glog"
)

// FrameHandler is called when a frame is completed.
type FrameHandler interface {
	HandleFrame(context.Context, Frame)
}

// HandleFrameFunc is func type of FrameHandler.
type HandleFrameFunc func(context.Context, Frame)

// HandleFrame implements FrameHandler.
func (f HandleFrameFunc) HandleFrame(ctx context.Context, frame Frame) {
	f(ctx, frame)
}

// InputState indicates whether bytes are flowing.
type InputState int

const (
	// InputActive means bytes are being delivered.
	InputActive InputState = iota
	// InputPaused means the last read timed out or returned nothing.
	InputPaused
)

// String implements fmt.Stringer.
func (s InputState) String() string {
	if s == InputPaused {
		return "paused"
	}
	return "active"
}

// StateNotifier is called when input state changed.
type StateNotifier interface {
	StateChanged(context.Context, InputState)
}

// StateChangedFunc is func type of StateNotifier.
type StateChangedFunc func(context.Context, InputState)

// StateChanged implements StateNotifier.
func (f StateChangedFunc) StateChanged(ctx context.Context, state InputState) {
	f(ctx, state)
}

// StatusWriter reports a status for a consumed frame or byte.
type StatusWriter interface {
	WriteStatus(code int) error
}

// DefaultReadSize is the read buffer size of a Receiver.
const DefaultReadSize = 64

// Receiver reads a byte stream and assembles frames.
type Receiver struct {
	Reader   io.Reader
	Handler  FrameHandler
	Notifier StateNotifier
	// Status, if set, receives StatusBufferFull for every discarded byte.
	Status StatusWriter
	// ReadTimeout is set to true if Reader already supports timeout with
	// Read, the receiver then runs inline and cancels between reads.
	ReadTimeout bool
	ReadSize    int

	asm        Assembler
	state      InputState
	overflowed bool
	frames     atomic.Uint64
	overflows  atomic.Uint64
}

// NewReceiver creates a Receiver delivering frames to handler.
func NewReceiver(r io.Reader, handler FrameHandler) *Receiver {
	return &Receiver{Reader: r, Handler: handler, ReadSize: DefaultReadSize}
}

// Frames returns the number of frames completed.
func (r *Receiver) Frames() uint64 {
	return r.frames.Load()
}

// Overflows returns the number of bytes discarded with CommandBufferFull.
func (r *Receiver) Overflows() uint64 {
	return r.overflows.Load()
}

// Run reads until the stream ends or ctx is done. The end of stream is not
// an error.
func (r *Receiver) Run(ctx context.Context) error {
	size := r.ReadSize
	if size <= 0 {
		size = DefaultReadSize
	}
	if r.ReadTimeout {
		buf := make([]byte, size)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				n, err := r.Reader.Read(buf)
				if n > 0 {
					r.consume(ctx, buf[:n])
				}
				if err != nil && !os.IsTimeout(err) {
					return endOfStream(err)
				}
				if n == 0 {
					r.setState(ctx, InputPaused)
				}
			}
		}
	}

	chunkCh, errCh := make(chan []byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go r.readLoop(subCtx, size, chunkCh, errCh)
	for {
		select {
		case p := <-chunkCh:
			if len(p) == 0 {
				r.setState(ctx, InputPaused)
			} else {
				r.consume(ctx, p)
			}
		case err := <-errCh:
			return endOfStream(err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func endOfStream(err error) error {
	if errors.Is(err, io.EOF) {
		glog.Info("command input closed")
		return nil
	}
	return err
}

func (r *Receiver) readLoop(ctx context.Context, size int, chunkCh chan []byte, errCh chan error) {
	for {
		buf := make([]byte, size)
		n, err := r.Reader.Read(buf)
		if n > 0 || (err == nil || os.IsTimeout(err)) {
			select {
			case chunkCh <- buf[:n]:
			case <-ctx.Done():
				return
			}
		}
		if err != nil && !os.IsTimeout(err) {
			errCh <- err
			return
		}
	}
}

func (r *Receiver) setState(ctx context.Context, state InputState) {
	if r.state == state {
		return
	}
	r.state = state
	glog.V(2).Infof("command input %s", state)
	if n := r.Notifier; n != nil {
		n.StateChanged(ctx, state)
	}
}

func (r *Receiver) consume(ctx context.Context, p []byte) {
	r.setState(ctx, InputActive)
	for _, b := range p {
		res := r.asm.Feed(b)
		switch res.State {
		case FeedOverflow:
			r.overflows.Add(1)
			if !r.overflowed {
				r.overflowed = true
				glog.Warningf("%v, keeping %q", res.Err(), r.asm.Pending().String())
			}
			if s := r.Status; s != nil {
				if err := s.WriteStatus(StatusBufferFull); err != nil {
					glog.Warningf("write status error: %v", err)
				}
			}
		case FeedComplete:
			r.overflowed = false
			r.frames.Add(1)
			glog.V(4).Infof("frame %q completed", res.Frame.String())
			if h := r.Handler; h != nil {
				h.HandleFrame(ctx, res.Frame)
			}
		}
	}
}

// Queue is a bounded frame queue between a Receiver and its consumer.
// Frames arriving while the queue is full are dropped.
type Queue struct {
	ch      chan Frame
	dropped atomic.Uint64
}

// DefaultQueueSize is the default capacity of a Queue.
const DefaultQueueSize = 4

// NewQueue creates a Queue holding up to size frames.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan Frame, size)}
}

// HandleFrame implements FrameHandler.
func (q *Queue) HandleFrame(_ context.Context, f Frame) {
	select {
	case q.ch <- f:
	default:
		q.dropped.Add(1)
		glog.Warningf("command queue full, frame %q dropped", f.String())
	}
}

// Frames exposes the receiving end of the queue.
func (q *Queue) Frames() <-chan Frame {
	return q.ch
}

// Drain returns every frame queued so far without blocking.
func (q *Queue) Drain() []Frame {
	var frames []Frame
	for {
		select {
		case f := <-q.ch:
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

// Dropped returns the number of frames dropped on a full queue.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
