package command

import (
	"fmt"
	"io"
	"sync"
)

// StatusLine writes statuses as "status <code>" lines.
type StatusLine struct {
	w    io.Writer
	lock sync.Mutex
}

// NewStatusLine creates a StatusLine writing to w.
func NewStatusLine(w io.Writer) *StatusLine {
	return &StatusLine{w: w}
}

// WriteStatus implements StatusWriter.
func (s *StatusLine) WriteStatus(code int) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, err := fmt.Fprintf(s.w, "status %d\r\n", code)
	return err
}
