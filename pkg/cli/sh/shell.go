// Package sh provides the interactive shell sending commands to a module
// over MQTT.
package sh

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/rtio/pkg/command"
	"github.com/robotalks/rtio/pkg/config"
	"github.com/robotalks/rtio/pkg/telemetry"
	"github.com/robotalks/rtio/pkg/transport/mqtt"
)

// DefaultTimeout is how long commands wait for a reply.
const DefaultTimeout = 2 * time.Second

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	Timeout     time.Duration

	Shell  *ishell.Shell
	Queue  *mqtt.Queue
	Topics Topics

	statusCh  chan int
	statusSub *mqtt.Subscription
}

// Topics are the MQTT topics of one device.
type Topics struct {
	Command   string
	Status    string
	Telemetry string
}

// TopicsOf returns the topics configured for the device of cfg.
func TopicsOf(cfg *config.Config) Topics {
	return Topics{
		Command:   cfg.CommandTopic(),
		Status:    cfg.StatusTopic(),
		Telemetry: cfg.TelemetryTopic(),
	}
}

const shellKey = "$shell"

var (
	// flags

	evalOnly   bool
	outputJSON bool
	deviceID   string

	// commands
	commands = []*ishell.Cmd{
		&SamplePeriodCmd,
		&PWMPeriodCmd,
		&SendCmd,
		&StatusCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&deviceID, "device", deviceID, "ID of the device to command, default from config.")
}

// New creates a new shell on a connected queue and subscribes the status
// topic.
func New(q *mqtt.Queue, topics Topics) (*Shell, error) {
	s, err := newShell(q, topics)
	if err != nil {
		return nil, err
	}
	s.Shell = ishell.New()
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", mqtt.DeviceOf(topics.Command)))
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s, nil
}

func newShell(q *mqtt.Queue, topics Topics) (*Shell, error) {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     DefaultTimeout,

		Queue:    q,
		Topics:   topics,
		statusCh: make(chan int, 1),
	}
	sub, err := q.Sub(topics.Status, s.handleStatus)
	if err != nil {
		return nil, err
	}
	s.statusSub = sub
	return s, nil
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

func (s *Shell) handleStatus(_ string, payload []byte) {
	code, err := mqtt.ParseStatus(payload)
	if err != nil {
		return
	}
	select {
	case s.statusCh <- code:
	default:
	}
}

// Close unsubscribes the status topic.
func (s *Shell) Close() error {
	return s.statusSub.Close()
}

// Reply is the outcome of a sent frame.
type Reply struct {
	Status int
	// Replied is false when no status arrived within the timeout, the
	// module may run with replies disabled.
	Replied bool
}

func (r Reply) String() string {
	if !r.Replied {
		return "sent"
	}
	if r.Status == command.StatusSuccess {
		return "OK"
	}
	return fmt.Sprintf("status %d", r.Status)
}

// Send publishes raw frame bytes and waits for the status.
func (s *Shell) Send(frame []byte) (Reply, error) {
	for drained := false; !drained; {
		select {
		case <-s.statusCh:
		default:
			drained = true
		}
	}
	if err := s.Queue.Pub(s.Topics.Command, frame); err != nil {
		return Reply{}, err
	}
	select {
	case code := <-s.statusCh:
		return Reply{Status: code, Replied: true}, nil
	case <-time.After(s.Timeout):
		return Reply{}, nil
	}
}

// SetPeriod sends the command setting the period of target.
func (s *Shell) SetPeriod(target command.Target, ms int) (Reply, error) {
	frame, err := command.Format(command.Update{Target: target, PeriodMS: ms})
	if err != nil {
		return Reply{}, err
	}
	return s.Send(frame)
}

// NextReport waits for the next telemetry report.
func (s *Shell) NextReport() (*telemetry.Report, error) {
	reportCh := make(chan *telemetry.Report, 1)
	sub, err := s.Queue.SubReports(s.Topics.Telemetry, func(_ string, r *telemetry.Report) {
		select {
		case reportCh <- r:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	defer sub.Close()
	select {
	case r := <-reportCh:
		return r, nil
	case <-time.After(s.Timeout):
		return nil, fmt.Errorf("no telemetry within %s", s.Timeout)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

func periodCmd(name string, target command.Target) ishell.Cmd {
	return ishell.Cmd{
		Name: name,
		Help: "MS, set the " + target.String() + " period in milliseconds",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("usage: %s MS", name))
				return
			}
			ms, err := strconv.Atoi(c.Args[0])
			if err != nil {
				c.Err(fmt.Errorf("invalid period %q", c.Args[0]))
				return
			}
			reply, err := ShellFrom(c).SetPeriod(target, ms)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(reply.String())
		},
	}
}

var (
	// SamplePeriodCmd sets the sampling period.
	SamplePeriodCmd = periodCmd("period.sample", command.TargetSample)

	// PWMPeriodCmd sets the PWM task period.
	PWMPeriodCmd = periodCmd("period.pwm", command.TargetPWM)

	// SendCmd sends a raw frame, the terminator is appended.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "FRAME, send a raw command frame",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("usage: send FRAME"))
				return
			}
			frame := append([]byte(strings.Join(c.Args, " ")), command.Terminator)
			reply, err := ShellFrom(c).Send(frame)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(reply.String())
		},
	}

	// StatusCmd prints the next telemetry report.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"s"},
		Help:    "print the next telemetry report",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			r, err := s.NextReport()
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				out, err := r.JSON()
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(out)
				return
			}
			c.Println(r.String())
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	cfg := config.MustLoad()
	if deviceID != "" {
		cfg.Device.ID = deviceID
	}
	if cfg.MQTT.URL == "" {
		log.Fatalln("MQTT broker URL required, use -mqtt or RTIO_MQTT_URL")
	}
	q, err := mqtt.Dial(cfg.MQTT.URL)
	if err != nil {
		log.Fatalln(err)
	}
	defer q.Close()
	s, err := New(q, TopicsOf(cfg))
	if err != nil {
		log.Fatalln(err)
	}
	defer s.Close()
	s.Run(flag.Args()...)
}
