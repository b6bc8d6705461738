package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rtio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Device.ID)
	require.Equal(t, DriverSim, cfg.Device.Driver)
	require.Equal(t, time.Second, cfg.Tasks.SamplePeriod)
	require.Equal(t, InputStdin, cfg.Command.Input)
	require.NoError(t, cfg.Validate())
}

func TestLoadPartialFile(t *testing.T) {
	path := writeConfig(t, `
device:
  id: bench-1
  driver: modbus
  modbus:
    address: 10.0.0.5:502
    slave_id: 7
tasks:
  sample_period: 750ms
  pwm_period: 2s
command:
  input: serial
  serial:
    port: /dev/ttyUSB0
mqtt:
  url: mqtt://broker:1883/lab/
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "bench-1", cfg.Device.ID)
	require.Equal(t, DriverModbus, cfg.Device.Driver)
	require.Equal(t, "10.0.0.5:502", cfg.Device.Modbus.Address)
	require.EqualValues(t, 7, cfg.Device.Modbus.SlaveID)
	require.Equal(t, "tcp", cfg.Device.Modbus.Mode)
	require.Equal(t, time.Second, cfg.Device.Modbus.Timeout)
	require.Equal(t, 750*time.Millisecond, cfg.Tasks.SamplePeriod)
	require.Equal(t, 2*time.Second, cfg.Tasks.PWMPeriod)
	require.Equal(t, time.Second, cfg.Tasks.PrintPeriod)
	require.Equal(t, 4, cfg.Tasks.QueueSize)
	require.Equal(t, "/dev/ttyUSB0", cfg.Command.Serial.Port)
	require.Equal(t, 115200, cfg.Command.Serial.BaudRate)
	require.Equal(t, 100*time.Millisecond, cfg.Command.Serial.ReadTimeout)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "bench-1/telemetry", cfg.TelemetryTopic())
	require.Equal(t, "bench-1/cmd", cfg.CommandTopic())
	require.Equal(t, "bench-1/status", cfg.StatusTopic())
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "device: [unclosed"))
	require.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	cfg := Default()
	cfg.Device.ID = "saved"
	cfg.Tasks.PWMPeriod = 1500 * time.Millisecond
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Config)
		errs   []string
	}{
		{name: "default", modify: func(*Config) {}},
		{
			name:   "unknown driver",
			modify: func(c *Config) { c.Device.Driver = "gpio-sysfs" },
			errs:   []string{"device.driver"},
		},
		{
			name: "modbus mode",
			modify: func(c *Config) {
				c.Device.Driver = DriverModbus
				c.Device.Modbus.Mode = "udp"
				c.Device.Modbus.Address = ""
			},
			errs: []string{"device.modbus.mode", "device.modbus.address"},
		},
		{
			name:   "sim subsystem",
			modify: func(c *Config) { c.Device.Sim.NotReady = []string{"adc", "uart"} },
			errs:   []string{"device.sim.not_ready"},
		},
		{
			name:   "period too short",
			modify: func(c *Config) { c.Tasks.SamplePeriod = time.Microsecond },
			errs:   []string{"tasks.sample_period"},
		},
		{
			name:   "mqtt input without broker",
			modify: func(c *Config) { c.Command.Input = InputMQTT },
			errs:   []string{"mqtt.url"},
		},
		{
			name:   "unknown input",
			modify: func(c *Config) { c.Command.Input = "can" },
			errs:   []string{"command.input"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Device.ID = "test"
			tc.modify(cfg)
			before := *cfg
			err := cfg.Validate()
			require.Equal(t, before, *cfg)
			if len(tc.errs) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, msg := range tc.errs {
				require.Truef(t, strings.Contains(err.Error(), msg), "%q not in %q", msg, err.Error())
			}
		})
	}
}

func TestOverrides(t *testing.T) {
	path := writeConfig(t, "device:\n  id: ov\n")
	o := Overrides{File: path, MQTTURL: "mqtt://localhost:1883/rtio/", Input: InputMQTT, Driver: DriverSim}
	cfg, err := o.Load()
	require.NoError(t, err)
	require.Equal(t, "mqtt://localhost:1883/rtio/", cfg.MQTT.URL)
	require.Equal(t, InputMQTT, cfg.Command.Input)

	o = Overrides{File: path, Driver: "bogus"}
	_, err = o.Load()
	require.Error(t, err)
}
