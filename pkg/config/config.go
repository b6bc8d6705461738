// Package config loads the module configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/rtio/pkg/env"
)

// Device drivers.
const (
	DriverSim    = "sim"
	DriverModbus = "modbus"
)

// Command inputs.
const (
	InputNone      = "none"
	InputStdin     = "stdin"
	InputSerial    = "serial"
	InputMQTT      = "mqtt"
	InputWebSocket = "websocket"
)

// Config represents the module configuration.
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Tasks   TasksConfig   `yaml:"tasks"`
	Command CommandConfig `yaml:"command"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
}

// DeviceConfig selects and configures the I/O driver.
type DeviceConfig struct {
	ID     string       `yaml:"id"`
	Driver string       `yaml:"driver"`
	Sim    SimConfig    `yaml:"sim"`
	Modbus ModbusConfig `yaml:"modbus"`
}

// SimConfig configures the simulated device.
type SimConfig struct {
	WavePeriod  time.Duration `yaml:"wave_period"`         // period of the simulated input waveform
	FailChannel int           `yaml:"fail_channel"`        // channel to inject sampling failures on
	FailEvery   int           `yaml:"fail_every"`          // fail every n-th sample of FailChannel, 0 disables
	NotReady    []string      `yaml:"not_ready,omitempty"` // subsystems reporting not ready: adc, pwm, gpio
}

// ModbusConfig configures a Modbus I/O module.
type ModbusConfig struct {
	Mode        string        `yaml:"mode"`    // tcp or rtu
	Address     string        `yaml:"address"` // host:port for tcp, serial device for rtu
	SlaveID     uint8         `yaml:"slave_id"`
	Timeout     time.Duration `yaml:"timeout"`
	BaudRate    int           `yaml:"baud_rate"`
	ADCRegister uint16        `yaml:"adc_register"` // first input register, one per channel
	PWMRegister uint16        `yaml:"pwm_register"` // first of 4 holding registers: period and pulse in ns
	GPIOCoil    uint16        `yaml:"gpio_coil"`
}

// TasksConfig holds the task periods.
type TasksConfig struct {
	SamplePeriod  time.Duration `yaml:"sample_period"`
	PWMPeriod     time.Duration `yaml:"pwm_period"`
	PrintPeriod   time.Duration `yaml:"print_period"`
	CommandPeriod time.Duration `yaml:"command_period"`
	QueueSize     int           `yaml:"queue_size"`
}

// CommandConfig selects the command byte stream.
type CommandConfig struct {
	Input     string          `yaml:"input"`
	Reply     bool            `yaml:"reply"`
	Serial    SerialConfig    `yaml:"serial"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

// SerialConfig configures a serial command port.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// WebSocketConfig configures the websocket command endpoint.
type WebSocketConfig struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
}

// MQTTConfig configures the broker used for telemetry and commands.
type MQTTConfig struct {
	// URL specifies the MQTT broker to use, empty disables MQTT.
	// e.g. mqtt://host:port/topic-prefix
	URL string `yaml:"url"`
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Driver: DriverSim,
			Sim: SimConfig{
				WavePeriod: 10 * time.Second,
			},
			Modbus: ModbusConfig{
				Mode:        "tcp",
				Address:     "localhost:502",
				SlaveID:     1,
				Timeout:     time.Second,
				BaudRate:    19200,
				PWMRegister: 100,
			},
		},
		Tasks: TasksConfig{
			SamplePeriod:  time.Second,
			PWMPeriod:     time.Second,
			PrintPeriod:   time.Second,
			CommandPeriod: time.Second,
			QueueSize:     4,
		},
		Command: CommandConfig{
			Input: InputStdin,
			Serial: SerialConfig{
				Port:        "/dev/ttyACM0",
				BaudRate:    115200,
				ReadTimeout: 100 * time.Millisecond,
			},
			WebSocket: WebSocketConfig{
				Listen: ":8080",
				Path:   "/cmd",
			},
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ensureDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Config) ensureDefaults() {
	def := Default()

	if c.Device.ID == "" {
		c.Device.ID = env.DeviceID()
	}
	if c.Device.Driver == "" {
		c.Device.Driver = def.Device.Driver
	}
	if c.Device.Sim.WavePeriod == 0 {
		c.Device.Sim.WavePeriod = def.Device.Sim.WavePeriod
	}
	if c.Device.Modbus.Mode == "" {
		c.Device.Modbus.Mode = def.Device.Modbus.Mode
	}
	if c.Device.Modbus.Timeout == 0 {
		c.Device.Modbus.Timeout = def.Device.Modbus.Timeout
	}
	if c.Device.Modbus.BaudRate == 0 {
		c.Device.Modbus.BaudRate = def.Device.Modbus.BaudRate
	}

	if c.Tasks.SamplePeriod == 0 {
		c.Tasks.SamplePeriod = def.Tasks.SamplePeriod
	}
	if c.Tasks.PWMPeriod == 0 {
		c.Tasks.PWMPeriod = def.Tasks.PWMPeriod
	}
	if c.Tasks.PrintPeriod == 0 {
		c.Tasks.PrintPeriod = def.Tasks.PrintPeriod
	}
	if c.Tasks.CommandPeriod == 0 {
		c.Tasks.CommandPeriod = def.Tasks.CommandPeriod
	}
	if c.Tasks.QueueSize == 0 {
		c.Tasks.QueueSize = def.Tasks.QueueSize
	}

	if c.Command.Input == "" {
		c.Command.Input = def.Command.Input
	}
	if c.Command.Serial.BaudRate == 0 {
		c.Command.Serial.BaudRate = def.Command.Serial.BaudRate
	}
	if c.Command.Serial.ReadTimeout == 0 {
		c.Command.Serial.ReadTimeout = def.Command.Serial.ReadTimeout
	}
	if c.Command.WebSocket.Path == "" {
		c.Command.WebSocket.Path = def.Command.WebSocket.Path
	}
}

// TelemetryTopic is where telemetry reports are published.
func (c *Config) TelemetryTopic() string {
	return c.Device.ID + "/telemetry"
}

// CommandTopic is where command bytes are received.
func (c *Config) CommandTopic() string {
	return c.Device.ID + "/cmd"
}

// StatusTopic is where command statuses are published.
func (c *Config) StatusTopic() string {
	return c.Device.ID + "/status"
}
