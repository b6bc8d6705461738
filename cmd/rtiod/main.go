package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/rtio/pkg/command"
	"github.com/robotalks/rtio/pkg/config"
	"github.com/robotalks/rtio/pkg/framework"
	"github.com/robotalks/rtio/pkg/hal"
	"github.com/robotalks/rtio/pkg/hal/modbus"
	"github.com/robotalks/rtio/pkg/hal/sim"
	"github.com/robotalks/rtio/pkg/tasks"
	"github.com/robotalks/rtio/pkg/transport/mqtt"
	"github.com/robotalks/rtio/pkg/transport/serial"
	"github.com/robotalks/rtio/pkg/transport/websocket"
)

func init() {
	config.SetupFlags()
}

func openDevice(cfg *config.Config) (hal.Device, func() error, error) {
	switch cfg.Device.Driver {
	case config.DriverSim:
		return sim.New(cfg.Device.Sim).HAL(), func() error { return nil }, nil
	case config.DriverModbus:
		dev, err := modbus.New(cfg.Device.Modbus)
		if err != nil {
			return hal.Device{}, nil, err
		}
		return dev.HAL(), dev.Close, nil
	}
	return hal.Device{}, nil, fmt.Errorf("unknown driver %q", cfg.Device.Driver)
}

func openInput(cfg *config.Config, q *mqtt.Queue, r *framework.Runner) (*tasks.Input, func() error, error) {
	nop := func() error { return nil }
	reply := cfg.Command.Reply
	switch cfg.Command.Input {
	case config.InputNone:
		return nil, nop, nil
	case config.InputStdin:
		in := &tasks.Input{Reader: command.NewLineReader(os.Stdin)}
		if reply {
			in.Status = command.NewStatusLine(os.Stdout)
		}
		return in, nop, nil
	case config.InputSerial:
		port := serial.New(cfg.Command.Serial)
		in := &tasks.Input{Reader: port, ReadTimeout: port.HasReadTimeout()}
		if reply {
			in.Status = command.NewStatusLine(port)
		}
		return in, port.Close, nil
	case config.InputMQTT:
		if q == nil {
			return nil, nil, fmt.Errorf("command input mqtt requires a broker")
		}
		stream, err := q.OpenStream(cfg.CommandTopic(), 0)
		if err != nil {
			return nil, nil, err
		}
		in := &tasks.Input{Reader: stream}
		if reply {
			in.Status = &mqtt.StatusPublisher{Queue: q, Topic: cfg.StatusTopic()}
		}
		return in, stream.Close, nil
	case config.InputWebSocket:
		srv := websocket.NewServer(cfg.Command.WebSocket.Listen, cfg.Command.WebSocket.Path)
		r.Go(framework.NamedRun("websocket", srv))
		in := &tasks.Input{Reader: srv}
		if reply {
			in.Status = srv
		}
		return in, srv.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown command input %q", cfg.Command.Input)
}

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg := config.MustLoad()
	glog.Infof("device %s, driver %s, command input %s", cfg.Device.ID, cfg.Device.Driver, cfg.Command.Input)

	dev, closeDevice, err := openDevice(cfg)
	if err != nil {
		glog.Exit(err)
	}
	defer closeDevice()

	var q *mqtt.Queue
	if cfg.MQTT.URL != "" {
		if q, err = mqtt.Dial(cfg.MQTT.URL); err != nil {
			glog.Exit(err)
		}
		defer q.Close()
	}

	runner := framework.NewRunner().HandleSignals()
	input, closeInput, err := openInput(cfg, q, runner)
	if err != nil {
		glog.Exit(err)
	}
	defer closeInput()

	opts := tasks.Options{Device: cfg.Device.ID, Tasks: cfg.Tasks, Input: input}
	if q != nil {
		opts.Sinks = append(opts.Sinks, &mqtt.Publisher{Queue: q, Topic: cfg.TelemetryTopic(), Retain: true})
	}
	module := tasks.New(opts, dev)
	if err := module.Start(runner); err != nil {
		glog.Errorf("running without failed subsystems: %v", err)
	}
	if err := runner.Wait(); err != nil {
		glog.Error(err)
		glog.Flush()
		os.Exit(1)
	}
}
