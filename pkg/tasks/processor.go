package tasks

import (
	"context"

	"github.com/golang/glog"

	"github.com/robotalks/rtio/pkg/command"
)

// FrameSource yields the frames completed since the last call.
type FrameSource interface {
	Drain() []command.Frame
}

// Processor applies queued command frames to the periods.
type Processor struct {
	Frames  FrameSource
	Periods *Periods
	// Status, if set, receives the status code of every frame.
	Status command.StatusWriter
}

// Process runs one cycle, handling every frame queued so far.
func (p *Processor) Process(context.Context) error {
	for _, f := range p.Frames.Drain() {
		u, err := command.Process(f, p.Periods)
		code := command.StatusOf(err)
		if err != nil {
			glog.Warningf("command %q: %v", f.String(), err)
		} else {
			glog.Infof("command %q: %s period set to %dms (status %d)", f.String(), u.Target, u.PeriodMS, code)
		}
		if s := p.Status; s != nil {
			if err := s.WriteStatus(code); err != nil {
				glog.Warningf("write status error: %v", err)
			}
		}
	}
	return nil
}
