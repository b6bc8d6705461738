package sh

import (
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/rtio/pkg/command"
	"github.com/robotalks/rtio/pkg/rtdb"
	"github.com/robotalks/rtio/pkg/telemetry"
	"github.com/robotalks/rtio/pkg/transport/mqtt"
)

type fakeMessage struct {
	paho.Message
	topic   string
	payload []byte
}

func (m *fakeMessage) Topic() string   { return m.topic }
func (m *fakeMessage) Payload() []byte { return m.payload }

// fakeBroker answers every command with a fixed status.
type fakeBroker struct {
	paho.Client

	lock     sync.Mutex
	handlers map[string]paho.MessageHandler
	commands []string
	status   string
}

func (b *fakeBroker) Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.handlers[topic] = callback
	return &paho.DummyToken{}
}

func (b *fakeBroker) Unsubscribe(topics ...string) paho.Token {
	b.lock.Lock()
	defer b.lock.Unlock()
	for _, topic := range topics {
		delete(b.handlers, topic)
	}
	return &paho.DummyToken{}
}

func (b *fakeBroker) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	b.lock.Lock()
	b.commands = append(b.commands, string(payload.([]byte)))
	status := b.status
	b.lock.Unlock()
	if status != "" {
		go b.emit("dev1/status", []byte(status))
	}
	return &paho.DummyToken{}
}

func (b *fakeBroker) emit(topic string, payload []byte) bool {
	b.lock.Lock()
	h := b.handlers[topic]
	b.lock.Unlock()
	if h == nil {
		return false
	}
	h(b, &fakeMessage{topic: topic, payload: payload})
	return true
}

var testTopics = Topics{Command: "dev1/cmd", Status: "dev1/status", Telemetry: "dev1/telemetry"}

func newTestShell(t *testing.T, status string) (*Shell, *fakeBroker) {
	b := &fakeBroker{handlers: make(map[string]paho.MessageHandler), status: status}
	s, err := newShell(&mqtt.Queue{Client: b, Timeout: time.Second}, testTopics)
	require.NoError(t, err)
	s.Timeout = 200 * time.Millisecond
	return s, b
}

func TestSetPeriod(t *testing.T) {
	s, b := newTestShell(t, "0")
	reply, err := s.SetPeriod(command.TargetPWM, 1500)
	require.NoError(t, err)
	require.Equal(t, Reply{Status: 0, Replied: true}, reply)
	require.Equal(t, "OK", reply.String())

	reply, err = s.SetPeriod(command.TargetSample, 750)
	require.NoError(t, err)
	require.True(t, reply.Replied)
	require.Equal(t, []string{"$TO1500&\r", "$TI0750&\r"}, b.commands)

	_, err = s.SetPeriod(command.TargetSample, 10000)
	require.Error(t, err)
	require.Len(t, b.commands, 2)
}

func TestSendStatus(t *testing.T) {
	s, b := newTestShell(t, "-2")
	reply, err := s.Send([]byte("$TX1000&\r"))
	require.NoError(t, err)
	require.Equal(t, "status -2", reply.String())

	b.lock.Lock()
	b.status = ""
	b.lock.Unlock()
	reply, err = s.Send([]byte("$TO1000&\r"))
	require.NoError(t, err)
	require.False(t, reply.Replied)
	require.Equal(t, "sent", reply.String())
	require.NoError(t, s.Close())
}

func TestNextReport(t *testing.T) {
	s, b := newTestShell(t, "")
	db := rtdb.New()
	db.Update([]uint16{0, 341, 682, 1023})
	data, err := telemetry.NewReport("dev1", db.Snapshot(), 1000, 1000, 0).Marshal()
	require.NoError(t, err)

	go func() {
		for !b.emit("dev1/telemetry", data) {
			time.Sleep(time.Millisecond)
		}
	}()
	r, err := s.NextReport()
	require.NoError(t, err)
	require.Equal(t, []uint16{0, 1000, 2000, 3000}, r.Scaled)
	require.Contains(t, r.String(), "AN2 raw  341, 1000 mV")

	_, err = s.NextReport()
	require.Error(t, err)
}
