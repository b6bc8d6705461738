package config

import (
	"errors"
	"fmt"
	"time"

	fx "github.com/robotalks/rtio/pkg/framework"
)

// Validate checks the configuration. It never mutates it.
func (c *Config) Validate() error {
	var errs fx.AggregatedError

	if c.Device.ID == "" {
		errs.Add(errors.New("device.id: required"))
	}
	switch c.Device.Driver {
	case DriverSim:
		for _, name := range c.Device.Sim.NotReady {
			switch name {
			case "adc", "pwm", "gpio":
			default:
				errs.Add(fmt.Errorf("device.sim.not_ready: unknown subsystem %q", name))
			}
		}
		if c.Device.Sim.FailEvery < 0 {
			errs.Add(errors.New("device.sim.fail_every: must not be negative"))
		}
	case DriverModbus:
		m := &c.Device.Modbus
		if m.Mode != "tcp" && m.Mode != "rtu" {
			errs.Add(fmt.Errorf("device.modbus.mode: %q is not tcp or rtu", m.Mode))
		}
		if m.Address == "" {
			errs.Add(errors.New("device.modbus.address: required"))
		}
	default:
		errs.Add(fmt.Errorf("device.driver: unknown driver %q", c.Device.Driver))
	}

	checkPeriod := func(name string, d time.Duration) {
		if d < fx.MinPeriod {
			errs.Add(fmt.Errorf("tasks.%s: %s is below %s", name, d, fx.MinPeriod))
		}
	}
	checkPeriod("sample_period", c.Tasks.SamplePeriod)
	checkPeriod("pwm_period", c.Tasks.PWMPeriod)
	checkPeriod("print_period", c.Tasks.PrintPeriod)
	checkPeriod("command_period", c.Tasks.CommandPeriod)
	if c.Tasks.QueueSize <= 0 {
		errs.Add(errors.New("tasks.queue_size: must be positive"))
	}

	switch c.Command.Input {
	case InputNone, InputStdin:
	case InputSerial:
		if c.Command.Serial.Port == "" {
			errs.Add(errors.New("command.serial.port: required"))
		}
		if c.Command.Serial.BaudRate <= 0 {
			errs.Add(errors.New("command.serial.baud_rate: must be positive"))
		}
	case InputMQTT:
		if c.MQTT.URL == "" {
			errs.Add(errors.New("mqtt.url: required by command input mqtt"))
		}
	case InputWebSocket:
		if c.Command.WebSocket.Listen == "" {
			errs.Add(errors.New("command.websocket.listen: required"))
		}
	default:
		errs.Add(fmt.Errorf("command.input: unknown input %q", c.Command.Input))
	}

	return errs.Aggregate()
}
