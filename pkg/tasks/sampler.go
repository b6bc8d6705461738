package tasks

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robotalks/rtio/pkg/hal"
	"github.com/robotalks/rtio/pkg/rtdb"
)

// SampleError is a failed sampling cycle.
type SampleError struct {
	Channel int
	Raw     uint16
	Err     error
}

// Error implements error.
func (e *SampleError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("sample channel %d: raw value %d out of range", e.Channel, e.Raw)
	}
	return fmt.Sprintf("sample channel %d: %v", e.Channel, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *SampleError) Unwrap() error {
	return e.Err
}

// Sampler reads every channel and commits the readings to the RTDB.
type Sampler struct {
	ADC hal.ADC
	DB  *rtdb.DB

	errors atomic.Uint64
}

// NewSampler creates a Sampler.
func NewSampler(adc hal.ADC, db *rtdb.DB) *Sampler {
	return &Sampler{ADC: adc, DB: db}
}

// Errors returns the number of failed sampling cycles.
func (s *Sampler) Errors() uint64 {
	return s.errors.Load()
}

// Sample runs one cycle. Channels are sampled in order and the cycle stops
// at the first failure: channels before it are committed, the failed one
// and those after it keep their previous values.
func (s *Sampler) Sample(context.Context) error {
	var vals [rtdb.NumChannels]uint16
	for ch := range vals {
		raw, err := s.ADC.Sample(ch)
		if err != nil {
			return s.fail(vals[:ch], &SampleError{Channel: ch, Err: err})
		}
		if !rtdb.InRange(raw) {
			return s.fail(vals[:ch], &SampleError{Channel: ch, Raw: raw})
		}
		vals[ch] = raw
	}
	s.DB.Update(vals[:])
	return nil
}

func (s *Sampler) fail(committed []uint16, err *SampleError) error {
	s.errors.Add(1)
	if len(committed) > 0 {
		s.DB.Update(committed)
	}
	return err
}
