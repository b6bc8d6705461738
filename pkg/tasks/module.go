// Package tasks implements the periodic tasks of the module and wires
// them to the RTDB, the command stream and the I/O devices.
package tasks

import (
	"context"
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/rtio/pkg/command"
	"github.com/robotalks/rtio/pkg/config"
	"github.com/robotalks/rtio/pkg/framework"
	"github.com/robotalks/rtio/pkg/hal"
	"github.com/robotalks/rtio/pkg/rtdb"
	"github.com/robotalks/rtio/pkg/telemetry"
)

// Input is the command byte stream.
type Input struct {
	Reader io.Reader
	// ReadTimeout indicates Reader returns periodically without data.
	ReadTimeout bool
	// Status, if set, receives the status of every frame.
	Status command.StatusWriter
}

// Options configures a Module.
type Options struct {
	Device string
	Tasks  config.TasksConfig
	Sinks  []telemetry.Sink
	// Input is optional, without it no command is processed.
	Input *Input
	Clock framework.Clock
}

// Module is the assembled set of tasks sharing one RTDB.
type Module struct {
	DB        *rtdb.DB
	Periods   *Periods
	Queue     *command.Queue
	Sampler   *Sampler
	Printer   *Printer
	Actuator  *Actuator
	Processor *Processor
	Receiver  *command.Receiver

	opts  Options
	dev   hal.Device
	tasks []*framework.Periodic
}

// New creates a Module on dev.
func New(opts Options, dev hal.Device) *Module {
	m := &Module{
		DB:      rtdb.New(),
		Periods: NewPeriods(opts.Tasks.SamplePeriod, opts.Tasks.PWMPeriod),
		Queue:   command.NewQueue(opts.Tasks.QueueSize),
		opts:    opts,
		dev:     dev,
	}
	m.Sampler = NewSampler(dev.ADC, m.DB)
	m.Printer = &Printer{
		Device:  opts.Device,
		DB:      m.DB,
		Periods: m.Periods,
		Errors:  m.Sampler.Errors,
		Sinks:   opts.Sinks,
	}
	m.Actuator = &Actuator{PWM: dev.PWM, GPIO: dev.GPIO, Periods: m.Periods}
	m.Processor = &Processor{Frames: m.Queue, Periods: m.Periods}
	if in := opts.Input; in != nil && in.Reader != nil {
		m.Receiver = command.NewReceiver(in.Reader, m.Queue)
		m.Receiver.ReadTimeout = in.ReadTimeout
		m.Receiver.Status = in.Status
		m.Receiver.Notifier = command.StateChangedFunc(func(_ context.Context, s command.InputState) {
			glog.V(1).Infof("command input %s", s)
		})
		m.Processor.Status = in.Status
	}
	return m
}

// Tasks returns the periodic tasks started so far.
func (m *Module) Tasks() []*framework.Periodic {
	return m.tasks
}

func (m *Module) periodic(name string, period framework.PeriodFunc, work func(context.Context) error) *framework.Periodic {
	p := framework.NewPeriodic(name, period, work)
	if m.opts.Clock != nil {
		p.Clock = m.opts.Clock
	}
	m.tasks = append(m.tasks, p)
	return p
}

// Start checks the devices and spawns the tasks on r. A subsystem whose
// device is not ready is left out and its error is part of the returned
// aggregate, the rest of the module still runs.
func (m *Module) Start(r *framework.Runner) error {
	var errs framework.AggregatedError
	notReady := func(err error) {
		glog.Errorf("%v", err)
		errs.Add(err)
	}

	r.Go(m.periodic("printer", framework.FixedPeriod(m.opts.Tasks.PrintPeriod), m.Printer.Print))

	if err := hal.CheckReady("adc", m.dev.ADC); err != nil {
		notReady(err)
	} else {
		r.Go(m.periodic("sampler", m.Periods.SamplePeriod, m.Sampler.Sample))
	}

	pwmErr := hal.CheckReady("pwm", m.dev.PWM)
	if pwmErr != nil {
		m.Actuator.PWM = nil
		notReady(pwmErr)
	}
	gpioErr := hal.CheckReady("gpio", m.dev.GPIO)
	if gpioErr != nil {
		m.Actuator.GPIO = nil
		notReady(gpioErr)
	}
	if pwmErr == nil || gpioErr == nil {
		r.Go(m.periodic("actuator", m.Periods.PWMPeriod, m.Actuator.Actuate))
	}

	if m.Receiver != nil {
		if err := hal.CheckReady("command input", m.Receiver.Reader); err != nil {
			notReady(err)
		} else {
			r.Go(framework.NamedRun("receiver", m.Receiver))
			r.Go(m.periodic("processor", framework.FixedPeriod(m.opts.Tasks.CommandPeriod), m.Processor.Process))
		}
	}
	return errs.Aggregate()
}
