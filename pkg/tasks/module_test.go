package tasks

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rtio/pkg/config"
	"github.com/robotalks/rtio/pkg/framework"
	"github.com/robotalks/rtio/pkg/hal"
	"github.com/robotalks/rtio/pkg/hal/sim"
	"github.com/robotalks/rtio/pkg/telemetry"
)

func fastTasks() config.TasksConfig {
	return config.TasksConfig{
		SamplePeriod:  2 * time.Millisecond,
		PWMPeriod:     2 * time.Millisecond,
		PrintPeriod:   5 * time.Millisecond,
		CommandPeriod: 2 * time.Millisecond,
		QueueSize:     4,
	}
}

func names(tasks []*framework.Periodic) []string {
	var out []string
	for _, t := range tasks {
		out = append(out, t.Name())
	}
	return out
}

func TestModuleRuns(t *testing.T) {
	dev := sim.New(config.SimConfig{WavePeriod: time.Second})
	cmdR, cmdW := io.Pipe()
	published := make(chan *telemetry.Report, 64)
	m := New(Options{
		Device: "test",
		Tasks:  fastTasks(),
		Sinks: []telemetry.Sink{telemetry.PublishFunc(func(r *telemetry.Report) error {
			select {
			case published <- r:
			default:
			}
			return nil
		})},
		Input: &Input{Reader: cmdR, Status: &statusRecorder{}},
	}, dev.HAL())

	r := framework.NewRunner()
	require.NoError(t, m.Start(r))
	require.Equal(t, []string{"printer", "sampler", "actuator", "processor"}, names(m.Tasks()))

	require.Eventually(t, func() bool { return m.DB.Snapshot().Generation > 2 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		_, toggles := dev.Output()
		return toggles > 2
	}, time.Second, time.Millisecond)

	_, err := cmdW.Write([]byte("$TI0003&\rxx$TO5000&\r"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return m.Periods.SamplePeriodMS() == 3 && m.Periods.PWMPeriodMS() == 5000
	}, time.Second, time.Millisecond)

	select {
	case rep := <-published:
		require.Equal(t, "test", rep.Device)
	case <-time.After(time.Second):
		t.Fatal("no telemetry published")
	}

	r.Stop()
	cmdW.Close()
	require.NoError(t, r.Wait())
}

func TestModuleSkipsNotReadySubsystems(t *testing.T) {
	dev := sim.New(config.SimConfig{NotReady: []string{"adc", "pwm"}})
	m := New(Options{Tasks: fastTasks()}, dev.HAL())

	r := framework.NewRunner()
	err := m.Start(r)
	require.Error(t, err)
	require.True(t, errors.Is(err, hal.ErrNotReady))
	var agg *framework.AggregatedError
	require.True(t, errors.As(err, &agg))
	require.Len(t, agg.Errors, 2)
	require.Equal(t, []string{"printer", "actuator"}, names(m.Tasks()))
	require.Nil(t, m.Actuator.PWM)
	require.NotNil(t, m.Actuator.GPIO)

	require.Eventually(t, func() bool {
		_, toggles := dev.Output()
		return toggles > 0
	}, time.Second, time.Millisecond)
	require.Zero(t, m.DB.Snapshot().Generation)

	r.Stop()
	require.NoError(t, r.Wait())
}

func TestModuleWithoutDevices(t *testing.T) {
	m := New(Options{Tasks: fastTasks()}, hal.Device{})
	r := framework.NewRunner()
	err := m.Start(r)
	require.True(t, errors.Is(err, hal.ErrNotReady))
	require.Equal(t, []string{"printer"}, names(m.Tasks()))
	r.Stop()
	require.NoError(t, r.Wait())
}
