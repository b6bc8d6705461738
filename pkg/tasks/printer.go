package tasks

import (
	"context"

	"github.com/golang/glog"

	"github.com/robotalks/rtio/pkg/rtdb"
	"github.com/robotalks/rtio/pkg/telemetry"
)

// Printer reports the RTDB and the periods.
type Printer struct {
	Device  string
	DB      *rtdb.DB
	Periods *Periods
	// Errors returns the sampling error counter, may be nil.
	Errors func() uint64
	Sinks  []telemetry.Sink
}

// Print runs one cycle. Sinks are invoked after the snapshot is taken so
// they never run under the RTDB lock.
func (p *Printer) Print(context.Context) error {
	s := p.DB.Snapshot()
	var errs uint64
	if p.Errors != nil {
		errs = p.Errors()
	}
	report := telemetry.NewReport(p.Device, s, p.Periods.SamplePeriodMS(), p.Periods.PWMPeriodMS(), errs)

	glog.Infof("Analog Read Period: %dms, PWM Period: %dms, errors %d, generation %d",
		report.SamplePeriodMS, report.PWMPeriodMS, errs, s.Generation)
	for ch := 0; ch < rtdb.NumChannels; ch++ {
		if !rtdb.InRange(s.Raw[ch]) {
			glog.Warningf("AN%d raw value %d out of range", ch+1, s.Raw[ch])
			continue
		}
		stale := ""
		if s.Generation > 0 && s.Stale(ch) {
			stale = " (stale)"
		}
		glog.Infof("AN%d raw %4d, %4d mV%s", ch+1, s.Raw[ch], s.Scaled[ch], stale)
	}

	for _, sink := range p.Sinks {
		if err := sink.Publish(report); err != nil {
			glog.Warningf("publish telemetry error: %v", err)
		}
	}
	return nil
}
