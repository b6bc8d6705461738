package mqtt

import (
	"io"
	"strconv"
	"sync"

	"github.com/golang/glog"
)

// DefaultBacklog is the number of messages a Stream buffers.
const DefaultBacklog = 16

// Stream reads the payloads published to a topic as one byte stream.
// Read must not be called concurrently.
type Stream struct {
	sub     *Subscription
	msgCh   chan []byte
	closeCh chan struct{}
	once    sync.Once
	pending []byte
}

// OpenStream subscribes topic and returns its payload stream. When
// backlog messages are waiting, new ones are dropped.
func (q *Queue) OpenStream(topic string, backlog int) (*Stream, error) {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	s := &Stream{msgCh: make(chan []byte, backlog), closeCh: make(chan struct{})}
	sub, err := q.Sub(topic, s.handleMsg)
	if err != nil {
		return nil, err
	}
	s.sub = sub
	return s, nil
}

func (s *Stream) handleMsg(topic string, payload []byte) {
	if len(payload) == 0 {
		return
	}
	select {
	case s.msgCh <- append([]byte(nil), payload...):
	default:
		glog.Warningf("stream %q backlog full, %d bytes dropped", topic, len(payload))
	}
}

// Read implements io.Reader. It blocks until a message arrives and
// returns io.EOF once the stream is closed.
func (s *Stream) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		select {
		case msg := <-s.msgCh:
			s.pending = msg
		case <-s.closeCh:
			return 0, io.EOF
		}
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Close implements io.Closer.
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closeCh)
		if s.sub != nil {
			err = s.sub.Close()
		}
	})
	return err
}

// StatusPublisher publishes command statuses as decimal text.
type StatusPublisher struct {
	Queue *Queue
	Topic string
}

// WriteStatus implements command.StatusWriter.
func (p *StatusPublisher) WriteStatus(code int) error {
	return p.Queue.Pub(p.Topic, []byte(strconv.Itoa(code)))
}

// ParseStatus decodes a payload published by StatusPublisher.
func ParseStatus(payload []byte) (int, error) {
	return strconv.Atoi(string(payload))
}
