// Package modbus drives a Modbus I/O module as ADC, PWM and GPIO.
//
// Register map (addresses configurable):
//
//	input registers  adc_register+ch   raw reading of channel ch
//	holding register pwm_register+0..1 PWM period in ns, high word first
//	holding register pwm_register+2..3 PWM on time in ns, high word first
//	coil             gpio_coil         digital output
package modbus

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/robotalks/rtio/pkg/config"
	"github.com/robotalks/rtio/pkg/hal"
)

const (
	coilOn  uint16 = 0xFF00
	coilOff uint16 = 0x0000
)

// Client is the subset of modbus.Client used by Device.
type Client interface {
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
	WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error)
	WriteSingleCoil(address, value uint16) ([]byte, error)
}

// Connector connects the transport of a Client.
type Connector interface {
	Connect() error
	Close() error
}

// Device is a Modbus I/O module. It serializes requests as they share one
// connection.
type Device struct {
	cfg config.ModbusConfig

	mu        sync.Mutex
	conn      Connector
	client    Client
	connected bool
	connErr   error
	output    bool
}

// New creates a Device from config. The connection is established by the
// first Ready call.
func New(cfg config.ModbusConfig) (*Device, error) {
	switch cfg.Mode {
	case "tcp", "":
		h := modbus.NewTCPClientHandler(cfg.Address)
		h.Timeout = cfg.Timeout
		h.SlaveId = cfg.SlaveID
		return NewWithClient(cfg, h, modbus.NewClient(h)), nil
	case "rtu":
		h := modbus.NewRTUClientHandler(cfg.Address)
		h.BaudRate = cfg.BaudRate
		h.DataBits = 8
		h.Parity = "N"
		h.StopBits = 1
		h.Timeout = cfg.Timeout
		h.SlaveId = cfg.SlaveID
		return NewWithClient(cfg, h, modbus.NewClient(h)), nil
	}
	return nil, fmt.Errorf("modbus: unsupported mode %q", cfg.Mode)
}

// NewWithClient creates a Device over an existing client. conn may be nil
// if the client needs no connection step.
func NewWithClient(cfg config.ModbusConfig, conn Connector, client Client) *Device {
	return &Device{cfg: cfg, conn: conn, client: client}
}

// HAL exposes the device through the hal contracts.
func (d *Device) HAL() hal.Device {
	return hal.Device{ADC: (*adc)(d), PWM: (*pwm)(d), GPIO: (*gpio)(d)}
}

// Ready connects on first use. A failed connection is not retried.
func (d *Device) Ready() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connected || d.connErr != nil {
		return d.connErr
	}
	if d.conn != nil {
		if err := d.conn.Connect(); err != nil {
			d.connErr = fmt.Errorf("modbus connect %s: %w", d.cfg.Address, err)
			return d.connErr
		}
	}
	d.connected = true
	return nil
}

// Close implements io.Closer.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil || !d.connected {
		return nil
	}
	d.connected = false
	return d.conn.Close()
}

func (d *Device) sample(ch int) (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, err := d.client.ReadInputRegisters(d.cfg.ADCRegister+uint16(ch), 1)
	if err != nil {
		return 0, err
	}
	regs, err := unpackRegisters(data, 1)
	if err != nil {
		return 0, err
	}
	return regs[0], nil
}

func (d *Device) setDuty(period, pulse time.Duration) error {
	if period < 0 || pulse < 0 || period > math.MaxUint32 || pulse > math.MaxUint32 {
		return fmt.Errorf("modbus: duty %s/%s out of range", pulse, period)
	}
	regs := make([]uint16, 0, 4)
	regs = append(regs, splitUint32(uint32(period))...)
	regs = append(regs, splitUint32(uint32(pulse))...)

	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.client.WriteMultipleRegisters(d.cfg.PWMRegister, uint16(len(regs)), packRegisters(regs))
	return err
}

func (d *Device) toggle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	value := coilOn
	if d.output {
		value = coilOff
	}
	if _, err := d.client.WriteSingleCoil(d.cfg.GPIOCoil, value); err != nil {
		return err
	}
	d.output = !d.output
	return nil
}

type adc Device

func (a *adc) Ready() error                  { return (*Device)(a).Ready() }
func (a *adc) Sample(ch int) (uint16, error) { return (*Device)(a).sample(ch) }

type pwm Device

func (p *pwm) Ready() error                              { return (*Device)(p).Ready() }
func (p *pwm) SetDuty(period, pulse time.Duration) error { return (*Device)(p).setDuty(period, pulse) }

type gpio Device

func (g *gpio) Ready() error  { return (*Device)(g).Ready() }
func (g *gpio) Toggle() error { return (*Device)(g).toggle() }

func splitUint32(v uint32) []uint16 {
	return []uint16{uint16(v >> 16), uint16(v)}
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}

func unpackRegisters(data []byte, qty int) ([]uint16, error) {
	if len(data) < qty*2 {
		return nil, fmt.Errorf("modbus: short response, %d bytes for %d registers", len(data), qty)
	}
	regs := make([]uint16, qty)
	for i := range regs {
		regs[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return regs, nil
}
