// Package serial reads commands from a serial port.
package serial

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang/glog"
	"go.bug.st/serial"

	"github.com/robotalks/rtio/pkg/config"
)

// DefaultBaudRate is used when the config leaves the baud rate unset.
const DefaultBaudRate = 115200

var errNotOpen = errors.New("serial port not open")

// openPort is replaced in tests.
var openPort = serial.Open

// Port is a command byte stream on a serial port. The port is opened by
// Ready, reads return no data when the read timeout expires.
type Port struct {
	cfg config.SerialConfig

	lock sync.Mutex
	port serial.Port
}

// New creates a Port, the device is not opened yet.
func New(cfg config.SerialConfig) *Port {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	return &Port{cfg: cfg}
}

// Name returns the device name.
func (p *Port) Name() string {
	return p.cfg.Port
}

// Ready implements hal.Readier by opening the port.
func (p *Port) Ready() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.port != nil {
		return nil
	}
	port, err := openPort(p.cfg.Port, &serial.Mode{BaudRate: p.cfg.BaudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", p.cfg.Port, err)
	}
	if p.cfg.ReadTimeout > 0 {
		if err := port.SetReadTimeout(p.cfg.ReadTimeout); err != nil {
			port.Close()
			return fmt.Errorf("serial port %s read timeout: %w", p.cfg.Port, err)
		}
	}
	glog.Infof("serial port %s opened at %d baud", p.cfg.Port, p.cfg.BaudRate)
	p.port = port
	return nil
}

// HasReadTimeout tells whether reads return periodically without data.
func (p *Port) HasReadTimeout() bool {
	return p.cfg.ReadTimeout > 0
}

func (p *Port) opened() (serial.Port, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.port == nil {
		return nil, errNotOpen
	}
	return p.port, nil
}

// Read implements io.Reader.
func (p *Port) Read(b []byte) (int, error) {
	port, err := p.opened()
	if err != nil {
		return 0, err
	}
	return port.Read(b)
}

// Write implements io.Writer.
func (p *Port) Write(b []byte) (int, error) {
	port, err := p.opened()
	if err != nil {
		return 0, err
	}
	return port.Write(b)
}

// Close implements io.Closer.
func (p *Port) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	return err
}

// Ports lists the serial ports of the system.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}
