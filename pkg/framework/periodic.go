package framework

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// MinPeriod is the shortest period a Periodic task is scheduled with.
const MinPeriod = time.Millisecond

// Release computes the schedule after one unit of work finished at now.
// last is the release instant of the cycle that just ran. It returns how
// long to sleep and the release instant of the next cycle.
//
// When the work overran, wait is zero and the next release stays on the
// grid last + k*period, skipping every release already in the past.
func Release(last time.Time, period time.Duration, now time.Time) (wait time.Duration, next time.Time) {
	if period < MinPeriod {
		period = MinPeriod
	}
	next = last.Add(period)
	if now.Before(next) {
		return next.Sub(now), next
	}
	missed := now.Sub(next) / period
	return 0, next.Add(missed * period)
}

// PeriodFunc returns the current period of a task. It is consulted once
// per cycle so a change takes effect on the next release.
type PeriodFunc func() time.Duration

// FixedPeriod returns a PeriodFunc always returning d.
func FixedPeriod(d time.Duration) PeriodFunc {
	return func() time.Duration { return d }
}

// Periodic runs Work once per period.
type Periodic struct {
	TaskName string
	Period   PeriodFunc
	Work     func(context.Context) error
	Clock    Clock

	cycles atomic.Uint64
}

// NewPeriodic creates a Periodic task using SystemClock.
func NewPeriodic(name string, period PeriodFunc, work func(context.Context) error) *Periodic {
	return &Periodic{TaskName: name, Period: period, Work: work, Clock: SystemClock}
}

// Name implements Named.
func (p *Periodic) Name() string {
	return p.TaskName
}

// Cycles returns the number of completed cycles.
func (p *Periodic) Cycles() uint64 {
	return p.cycles.Load()
}

// Run implements Runnable. Errors from Work are logged and the task keeps
// its schedule.
func (p *Periodic) Run(ctx context.Context) error {
	clock := p.Clock
	if clock == nil {
		clock = SystemClock
	}
	last := clock.Now()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.Work(ctx); err != nil {
			glog.Errorf("task[%s] error: %v", p.TaskName, err)
		}
		p.cycles.Add(1)

		now := clock.Now()
		wait, next := Release(last, p.Period(), now)
		if wait == 0 {
			glog.V(2).Infof("task[%s] overrun, %s since last release", p.TaskName, now.Sub(last))
		}
		last = next
		if wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-clock.After(wait):
			}
		}
	}
}
