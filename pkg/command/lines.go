package command

import "io"

// LineReader turns line oriented input into terminated frames: LF, CR LF
// and LF CR each become a single Terminator.
type LineReader struct {
	R io.Reader

	last byte
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{R: r}
}

// Read implements io.Reader. It only returns zero bytes when the
// underlying reader does.
func (l *LineReader) Read(p []byte) (int, error) {
	for {
		n, err := l.R.Read(p)
		out := 0
		for _, b := range p[:n] {
			switch b {
			case '\n', Terminator:
				pair := (l.last == '\n' || l.last == Terminator) && l.last != b
				l.last = b
				if pair {
					l.last = 0
					continue
				}
				b = Terminator
			default:
				l.last = 0
			}
			p[out] = b
			out++
		}
		if out > 0 || n == 0 || err != nil {
			return out, err
		}
	}
}
