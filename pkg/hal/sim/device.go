// Package sim simulates the I/O devices of the module.
package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robotalks/rtio/pkg/config"
	"github.com/robotalks/rtio/pkg/hal"
	"github.com/robotalks/rtio/pkg/rtdb"
)

// ErrInjected is returned by ADC samples failed on purpose.
var ErrInjected = errors.New("injected sampling failure")

// Device simulates a four channel ADC, a PWM output and a GPIO output.
// Each channel produces a triangle wave phase shifted by a quarter
// period from the previous channel.
type Device struct {
	cfg config.SimConfig
	now func() time.Time

	mu      sync.Mutex
	start   time.Time
	samples [rtdb.NumChannels]uint64
	period  time.Duration
	pulse   time.Duration
	output  bool
	toggles uint64
}

// New creates a simulated device.
func New(cfg config.SimConfig) *Device {
	if cfg.WavePeriod <= 0 {
		cfg.WavePeriod = 10 * time.Second
	}
	d := &Device{cfg: cfg, now: time.Now}
	d.start = d.now()
	return d
}

// WithClock overrides the time source, resetting the wave origin.
func (d *Device) WithClock(now func() time.Time) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
	d.start = now()
	return d
}

// HAL exposes the device through the hal contracts.
func (d *Device) HAL() hal.Device {
	return hal.Device{
		ADC:  &adc{dev: d, name: "adc"},
		PWM:  &pwm{dev: d, name: "pwm"},
		GPIO: &gpio{dev: d, name: "gpio"},
	}
}

func (d *Device) ready(name string) error {
	for _, n := range d.cfg.NotReady {
		if n == name {
			return fmt.Errorf("simulated %s not ready", name)
		}
	}
	return nil
}

func (d *Device) sample(ch int) (uint16, error) {
	if ch < 0 || ch >= rtdb.NumChannels {
		return 0, fmt.Errorf("channel %d out of range", ch)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.samples[ch]++
	if d.cfg.FailEvery > 0 && ch == d.cfg.FailChannel && d.samples[ch]%uint64(d.cfg.FailEvery) == 0 {
		return 0, ErrInjected
	}
	return Triangle(d.now().Sub(d.start), d.cfg.WavePeriod, ch), nil
}

// Triangle returns the raw value of channel ch at time t of a triangle
// wave with the given period.
func Triangle(t, period time.Duration, ch int) uint16 {
	half := period / 2
	if half <= 0 {
		return 0
	}
	t += period * time.Duration(ch) / rtdb.NumChannels
	pos := t % period
	if pos >= half {
		pos = period - pos
	}
	return uint16(int64(pos) * rtdb.RawMax / int64(half))
}

// Duty returns the latest duty cycle set on the PWM output.
func (d *Device) Duty() (period, pulse time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.period, d.pulse
}

// Output returns the GPIO level and the number of toggles.
func (d *Device) Output() (bool, uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.output, d.toggles
}

type adc struct {
	dev  *Device
	name string
}

func (a *adc) Ready() error                  { return a.dev.ready(a.name) }
func (a *adc) Sample(ch int) (uint16, error) { return a.dev.sample(ch) }

type pwm struct {
	dev  *Device
	name string
}

func (p *pwm) Ready() error { return p.dev.ready(p.name) }

func (p *pwm) SetDuty(period, pulse time.Duration) error {
	if period <= 0 || pulse < 0 || pulse > period {
		return fmt.Errorf("invalid duty %s/%s", pulse, period)
	}
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()
	p.dev.period, p.dev.pulse = period, pulse
	return nil
}

type gpio struct {
	dev  *Device
	name string
}

func (g *gpio) Ready() error { return g.dev.ready(g.name) }

func (g *gpio) Toggle() error {
	g.dev.mu.Lock()
	defer g.dev.mu.Unlock()
	g.dev.output = !g.dev.output
	g.dev.toggles++
	return nil
}
