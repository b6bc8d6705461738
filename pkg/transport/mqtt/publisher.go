package mqtt

import (
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/rtio/pkg/telemetry"
)

// Publisher is a telemetry.Sink publishing protobuf encoded reports.
type Publisher struct {
	Queue *Queue
	Topic string
	// Retain asks the broker to keep the latest report for new subscribers.
	Retain bool
}

// Publish implements telemetry.Sink.
func (p *Publisher) Publish(r *telemetry.Report) error {
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	return p.Queue.PubWith(p.Topic, data, 0, p.Retain)
}

// ReportHandler receives decoded reports with the device part of the topic.
type ReportHandler func(device string, r *telemetry.Report)

// SubReports subscribes a telemetry topic pattern like +/telemetry.
// Payloads failing to decode are logged and skipped.
func (q *Queue) SubReports(pattern string, handler ReportHandler) (*Subscription, error) {
	return q.Sub(pattern, func(topic string, payload []byte) {
		r, err := telemetry.Unmarshal(payload)
		if err != nil {
			glog.Warningf("invalid report on %q: %v", topic, err)
			return
		}
		handler(DeviceOf(topic), r)
	})
}

// DeviceOf returns the device ID of a topic like <device>/telemetry.
func DeviceOf(topic string) string {
	if n := strings.LastIndex(topic, "/"); n >= 0 {
		return topic[:n]
	}
	return topic
}
