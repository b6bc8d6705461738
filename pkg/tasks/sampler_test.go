package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rtio/pkg/rtdb"
)

type scriptedADC struct {
	raw  [rtdb.NumChannels]uint16
	errs [rtdb.NumChannels]error
}

func (a *scriptedADC) Sample(ch int) (uint16, error) {
	return a.raw[ch], a.errs[ch]
}

func TestSampleAllChannels(t *testing.T) {
	db := rtdb.New()
	adc := &scriptedADC{raw: [rtdb.NumChannels]uint16{0, 341, 682, 1023}}
	s := NewSampler(adc, db)
	require.NoError(t, s.Sample(context.Background()))
	snap := db.Snapshot()
	require.EqualValues(t, 1, snap.Generation)
	require.Equal(t, [rtdb.NumChannels]uint16{0, 341, 682, 1023}, snap.Raw)
	require.Equal(t, [rtdb.NumChannels]uint16{0, 1000, 2000, 3000}, snap.Scaled)
	require.Zero(t, s.Errors())
}

func TestSampleAbortsOnFirstFailure(t *testing.T) {
	errRead := errors.New("conversion timeout")
	testCases := []struct {
		name    string
		adc     *scriptedADC
		channel int
		gen     uint64
	}{
		{
			name:    "read error on channel 2",
			adc:     &scriptedADC{raw: [rtdb.NumChannels]uint16{10, 20, 30, 40}, errs: [rtdb.NumChannels]error{2: errRead}},
			channel: 2,
			gen:     2,
		},
		{
			name:    "out of range on channel 3",
			adc:     &scriptedADC{raw: [rtdb.NumChannels]uint16{10, 20, 30, 1024}},
			channel: 3,
			gen:     2,
		},
		{
			name:    "read error on channel 0",
			adc:     &scriptedADC{errs: [rtdb.NumChannels]error{0: errRead}},
			channel: 0,
			gen:     1,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db := rtdb.New()
			db.Update([]uint16{500, 500, 500, 500})
			s := NewSampler(tc.adc, db)

			err := s.Sample(context.Background())
			var sampleErr *SampleError
			require.True(t, errors.As(err, &sampleErr))
			require.Equal(t, tc.channel, sampleErr.Channel)
			require.EqualValues(t, 1, s.Errors())

			snap := db.Snapshot()
			require.Equal(t, tc.gen, snap.Generation)
			for ch := 0; ch < rtdb.NumChannels; ch++ {
				if ch < tc.channel {
					require.Equal(t, tc.adc.raw[ch], snap.Raw[ch], "channel %d", ch)
					require.False(t, snap.Stale(ch))
				} else {
					require.EqualValues(t, 500, snap.Raw[ch], "channel %d", ch)
				}
			}
		})
	}
}

func TestSampleErrorUnwrap(t *testing.T) {
	errRead := errors.New("bus error")
	err := &SampleError{Channel: 1, Err: errRead}
	require.True(t, errors.Is(err, errRead))
	require.Equal(t, "sample channel 1: bus error", err.Error())
	require.Equal(t, "sample channel 2: raw value 2000 out of range", (&SampleError{Channel: 2, Raw: 2000}).Error())
}

func TestPeriods(t *testing.T) {
	p := NewPeriods(time.Second, 1500*time.Millisecond)
	require.Equal(t, 1000, p.SamplePeriodMS())
	require.Equal(t, 1500, p.PWMPeriodMS())
	p.SetSamplePeriodMS(750)
	p.SetPWMPeriodMS(2000)
	require.Equal(t, 750*time.Millisecond, p.SamplePeriod())
	require.Equal(t, 2*time.Second, p.PWMPeriod())

	p.SetSamplePeriodMS(0)
	p.SetPWMPeriodMS(-5)
	require.Equal(t, MinPeriodMS, p.SamplePeriodMS())
	require.Equal(t, MinPeriodMS, p.PWMPeriodMS())
	require.Equal(t, MinPeriodMS, NewPeriods(0, 0).SamplePeriodMS())
}
