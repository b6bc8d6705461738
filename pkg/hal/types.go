// Package hal defines the contracts of the I/O collaborators.
package hal

import (
	"errors"
	"fmt"
	"time"
)

// ADC samples analog channels.
type ADC interface {
	// Sample returns the raw reading of a channel, 0..1023.
	Sample(channel int) (uint16, error)
}

// PWM drives a pulse-width modulated output.
type PWM interface {
	// SetDuty sets the base period and the on time within it.
	SetDuty(period, pulse time.Duration) error
}

// GPIO is a digital output.
type GPIO interface {
	Toggle() error
}

// Readier is implemented by devices which need a readiness check
// before use.
type Readier interface {
	Ready() error
}

// Device bundles the collaborators of the module. A nil member means the
// subsystem is absent.
type Device struct {
	ADC  ADC
	PWM  PWM
	GPIO GPIO
}

// ErrNotReady indicates a device failed its readiness check.
var ErrNotReady = errors.New("driver not ready")

// ReadyError wraps a failed readiness check of a named device.
type ReadyError struct {
	Device string
	Err    error
}

// Error implements error.
func (e *ReadyError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Device, ErrNotReady, e.Err)
}

// Is makes errors.Is(err, ErrNotReady) true.
func (e *ReadyError) Is(target error) bool {
	return target == ErrNotReady
}

// Unwrap implements errors.Unwrap.
func (e *ReadyError) Unwrap() error {
	return e.Err
}

// CheckReady checks dev if it implements Readier. A nil dev is not ready.
func CheckReady(name string, dev interface{}) error {
	if dev == nil {
		return &ReadyError{Device: name, Err: errors.New("absent")}
	}
	if r, ok := dev.(Readier); ok {
		if err := r.Ready(); err != nil {
			return &ReadyError{Device: name, Err: err}
		}
	}
	return nil
}
