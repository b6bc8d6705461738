package config

import (
	"flag"
	"log"
	"os"
)

// Overrides are settings taken from the environment and command line,
// applied on top of the configuration file.
type Overrides struct {
	File    string
	MQTTURL string
	Driver  string
	Input   string
}

var defaultOverrides = Overrides{
	File: "rtio.yaml",
}

func init() {
	if val := os.Getenv("RTIO_CONFIG"); val != "" {
		defaultOverrides.File = val
	}
	if val := os.Getenv("RTIO_MQTT_URL"); val != "" {
		defaultOverrides.MQTTURL = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultOverrides.File, "config", defaultOverrides.File, "Config file")
	flag.StringVar(&defaultOverrides.MQTTURL, "mqtt", defaultOverrides.MQTTURL, "MQTT broker URL")
	flag.StringVar(&defaultOverrides.Driver, "driver", defaultOverrides.Driver, "Device driver: sim, modbus")
	flag.StringVar(&defaultOverrides.Input, "input", defaultOverrides.Input, "Command input: none, stdin, serial, mqtt, websocket")
}

// DefaultOverrides gets overrides collected from env and flags.
func DefaultOverrides() Overrides {
	return defaultOverrides
}

// Apply applies non-empty overrides to c.
func (o Overrides) Apply(c *Config) {
	if o.MQTTURL != "" {
		c.MQTT.URL = o.MQTTURL
	}
	if o.Driver != "" {
		c.Device.Driver = o.Driver
	}
	if o.Input != "" {
		c.Command.Input = o.Input
	}
}

// Load loads the config file named by o, applies o and validates.
func (o Overrides) Load() (*Config, error) {
	c, err := Load(o.File)
	if err != nil {
		return nil, err
	}
	o.Apply(c)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustLoad loads the config using DefaultOverrides and fails on error.
func MustLoad() *Config {
	c, err := DefaultOverrides().Load()
	if err != nil {
		log.Fatalln(err)
	}
	return c
}
