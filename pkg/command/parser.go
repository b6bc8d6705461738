package command

import "fmt"

// Target selects which period a command changes.
type Target int

const (
	// TargetPWM is the actuator period, letter O.
	TargetPWM Target = iota + 1
	// TargetSample is the sampling period, letter I.
	TargetSample
)

// String implements fmt.Stringer.
func (t Target) String() string {
	switch t {
	case TargetPWM:
		return "pwm"
	case TargetSample:
		return "sample"
	}
	return fmt.Sprintf("target(%d)", int(t))
}

// Letter returns the protocol letter of the target.
func (t Target) Letter() byte {
	if t == TargetSample {
		return 'I'
	}
	return 'O'
}

// Update is a validated period change.
type Update struct {
	Target Target
	// PeriodMS is the new period in milliseconds, 0..9999.
	PeriodMS int
}

// PeriodSetter receives period updates.
type PeriodSetter interface {
	SetPWMPeriodMS(int)
	SetSamplePeriodMS(int)
}

const (
	commandLetter = 'T'
	digitCount    = 4
	notFound      = -1
)

// markers are the positions of the first start and end markers.
type markers struct {
	start, end int
}

func scanMarkers(p []byte) markers {
	m := markers{start: notFound, end: notFound}
	for i, b := range p {
		if b == StartMarker && m.start == notFound {
			m.start = i
		}
		if b == EndMarker && m.end == notFound {
			m.end = i
		}
	}
	return m
}

func toUpper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

// Parse validates a frame and extracts the update. It has no side effects.
// The first start and end markers are authoritative and anything after
// the end marker is ignored.
func Parse(p []byte) (Update, error) {
	m := scanMarkers(p)
	if m.end < m.start {
		return Update{}, ErrWrongFormat
	}
	for i := m.start + 1; i < m.end; i++ {
		if p[i] == StartMarker {
			return Update{}, ErrWrongFormat
		}
	}
	if m.start == notFound || m.end == notFound {
		return Update{}, ErrWrongFormat
	}
	if toUpper(p[m.start+1]) != commandLetter {
		return Update{}, ErrCommandNotFound
	}
	var u Update
	switch toUpper(p[m.start+2]) {
	case 'O':
		u.Target = TargetPWM
	case 'I':
		u.Target = TargetSample
	default:
		return Update{}, ErrCommandNotFound
	}
	digits := p[m.start+3 : m.end]
	if len(digits) != digitCount {
		return Update{}, ErrCommandNotFound
	}
	for _, d := range digits {
		if d < '0' || d > '9' {
			return Update{}, ErrCommandNotFound
		}
		u.PeriodMS = u.PeriodMS*10 + int(d-'0')
	}
	return u, nil
}

// Apply parses a frame and writes the selected period on success.
func Apply(p []byte, setter PeriodSetter) (Update, error) {
	u, err := Parse(p)
	if err != nil {
		return u, err
	}
	switch u.Target {
	case TargetPWM:
		setter.SetPWMPeriodMS(u.PeriodMS)
	case TargetSample:
		setter.SetSamplePeriodMS(u.PeriodMS)
	}
	return u, nil
}

// Format renders an update as a terminated frame.
func Format(u Update) ([]byte, error) {
	if u.Target != TargetPWM && u.Target != TargetSample {
		return nil, ErrCommandNotFound
	}
	if u.PeriodMS < 0 || u.PeriodMS > 9999 {
		return nil, fmt.Errorf("period %dms not representable: %w", u.PeriodMS, ErrCommandNotFound)
	}
	return []byte(fmt.Sprintf("%c%c%c%04d%c%c",
		StartMarker, commandLetter, u.Target.Letter(), u.PeriodMS, EndMarker, Terminator)), nil
}

// Process handles a completed frame: an empty frame fails with
// ErrEmptyString, anything else goes through Apply.
func Process(f Frame, setter PeriodSetter) (Update, error) {
	if f.Len() == 0 {
		return Update{}, ErrEmptyString
	}
	return Apply(f.Bytes(), setter)
}
