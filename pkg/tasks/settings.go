package tasks

import (
	"sync/atomic"
	"time"
)

// MinPeriodMS is the shortest period a Periods value stores.
const MinPeriodMS = 1

func clampMS(ms int64) int64 {
	if ms < MinPeriodMS {
		return MinPeriodMS
	}
	return ms
}

// Periods holds the mutable task periods. The command processor is the
// only writer, tasks read the current value every cycle.
type Periods struct {
	sampleMS atomic.Int64
	pwmMS    atomic.Int64
}

// NewPeriods creates Periods with initial values. Every stored period is
// at least MinPeriodMS.
func NewPeriods(sample, pwm time.Duration) *Periods {
	p := &Periods{}
	p.sampleMS.Store(clampMS(sample.Milliseconds()))
	p.pwmMS.Store(clampMS(pwm.Milliseconds()))
	return p
}

// SamplePeriodMS returns the sampling period in milliseconds.
func (p *Periods) SamplePeriodMS() int { return int(p.sampleMS.Load()) }

// PWMPeriodMS returns the PWM task period in milliseconds.
func (p *Periods) PWMPeriodMS() int { return int(p.pwmMS.Load()) }

// SetSamplePeriodMS implements command.PeriodSetter.
func (p *Periods) SetSamplePeriodMS(ms int) { p.sampleMS.Store(clampMS(int64(ms))) }

// SetPWMPeriodMS implements command.PeriodSetter.
func (p *Periods) SetPWMPeriodMS(ms int) { p.pwmMS.Store(clampMS(int64(ms))) }

// SamplePeriod returns the sampling period.
func (p *Periods) SamplePeriod() time.Duration {
	return time.Duration(p.sampleMS.Load()) * time.Millisecond
}

// PWMPeriod returns the PWM task period.
func (p *Periods) PWMPeriod() time.Duration {
	return time.Duration(p.pwmMS.Load()) * time.Millisecond
}
