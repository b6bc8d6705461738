// Package telemetry encodes module state reports.
//
// A report travels as a google.protobuf.Struct so consumers need no
// generated code:
//
//	device            string
//	generation        number
//	timestamp_ms      number, unix milliseconds of the RTDB update
//	raw, scaled       list of numbers, one per channel
//	stale             list of bools, one per channel
//	sample_period_ms  number
//	pwm_period_ms     number
//	errors            number
package telemetry

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang/protobuf/jsonpb"
	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/rtio/pkg/rtdb"
)

// Report is a snapshot of the module state.
type Report struct {
	Device         string
	Generation     uint64
	Timestamp      time.Time
	Raw            []uint16
	Scaled         []uint16
	Stale          []bool
	SamplePeriodMS int
	PWMPeriodMS    int
	Errors         uint64
}

// NewReport builds a Report from an RTDB snapshot.
func NewReport(device string, s rtdb.Snapshot, samplePeriodMS, pwmPeriodMS int, errors uint64) *Report {
	r := &Report{
		Device:         device,
		Generation:     s.Generation,
		Timestamp:      s.UpdatedAt,
		Raw:            make([]uint16, rtdb.NumChannels),
		Scaled:         make([]uint16, rtdb.NumChannels),
		Stale:          make([]bool, rtdb.NumChannels),
		SamplePeriodMS: samplePeriodMS,
		PWMPeriodMS:    pwmPeriodMS,
		Errors:         errors,
	}
	copy(r.Raw, s.Raw[:])
	copy(r.Scaled, s.Scaled[:])
	for ch := range r.Stale {
		r.Stale[ch] = s.Stale(ch)
	}
	return r
}

// String renders the report for display, one line per channel.
func (r *Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s generation %d, sample %dms, pwm %dms, errors %d",
		r.Device, r.Generation, r.SamplePeriodMS, r.PWMPeriodMS, r.Errors)
	for ch := range r.Raw {
		fmt.Fprintf(&sb, "\nAN%d raw %4d", ch+1, r.Raw[ch])
		if ch < len(r.Scaled) {
			fmt.Fprintf(&sb, ", %4d mV", r.Scaled[ch])
		}
		if ch < len(r.Stale) && r.Stale[ch] {
			sb.WriteString(" (stale)")
		}
	}
	return sb.String()
}

// Sink consumes reports.
type Sink interface {
	Publish(*Report) error
}

// PublishFunc is the func form of Sink.
type PublishFunc func(*Report) error

// Publish implements Sink.
func (f PublishFunc) Publish(r *Report) error {
	return f(r)
}

func number(v float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: v}}
}

func numbers(vals []uint16) *structpb.Value {
	lst := &structpb.ListValue{Values: make([]*structpb.Value, len(vals))}
	for n, v := range vals {
		lst.Values[n] = number(float64(v))
	}
	return &structpb.Value{Kind: &structpb.Value_ListValue{ListValue: lst}}
}

func bools(vals []bool) *structpb.Value {
	lst := &structpb.ListValue{Values: make([]*structpb.Value, len(vals))}
	for n, v := range vals {
		lst.Values[n] = &structpb.Value{Kind: &structpb.Value_BoolValue{BoolValue: v}}
	}
	return &structpb.Value{Kind: &structpb.Value_ListValue{ListValue: lst}}
}

// Struct converts the report into a protobuf Struct.
func (r *Report) Struct() *structpb.Struct {
	var ts float64
	if !r.Timestamp.IsZero() {
		ts = float64(r.Timestamp.UnixNano() / int64(time.Millisecond))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"device":           {Kind: &structpb.Value_StringValue{StringValue: r.Device}},
		"generation":       number(float64(r.Generation)),
		"timestamp_ms":     number(ts),
		"raw":              numbers(r.Raw),
		"scaled":           numbers(r.Scaled),
		"stale":            bools(r.Stale),
		"sample_period_ms": number(float64(r.SamplePeriodMS)),
		"pwm_period_ms":    number(float64(r.PWMPeriodMS)),
		"errors":           number(float64(r.Errors)),
	}}
}

// FromStruct converts a protobuf Struct back into a Report. Unknown fields
// are ignored, missing ones stay zero.
func FromStruct(s *structpb.Struct) (*Report, error) {
	if s == nil {
		return nil, fmt.Errorf("telemetry: empty report")
	}
	f := s.GetFields()
	r := &Report{
		Device:         f["device"].GetStringValue(),
		Generation:     uint64(f["generation"].GetNumberValue()),
		SamplePeriodMS: int(f["sample_period_ms"].GetNumberValue()),
		PWMPeriodMS:    int(f["pwm_period_ms"].GetNumberValue()),
		Errors:         uint64(f["errors"].GetNumberValue()),
	}
	if ms := int64(f["timestamp_ms"].GetNumberValue()); ms != 0 {
		r.Timestamp = time.Unix(0, ms*int64(time.Millisecond))
	}
	var err error
	if r.Raw, err = listOfUint16(f["raw"]); err != nil {
		return nil, fmt.Errorf("telemetry: raw: %w", err)
	}
	if r.Scaled, err = listOfUint16(f["scaled"]); err != nil {
		return nil, fmt.Errorf("telemetry: scaled: %w", err)
	}
	for _, v := range f["stale"].GetListValue().GetValues() {
		r.Stale = append(r.Stale, v.GetBoolValue())
	}
	return r, nil
}

func listOfUint16(v *structpb.Value) ([]uint16, error) {
	values := v.GetListValue().GetValues()
	out := make([]uint16, 0, len(values))
	for _, item := range values {
		n, ok := item.GetKind().(*structpb.Value_NumberValue)
		if !ok || n.NumberValue < 0 || n.NumberValue > 0xffff {
			return nil, fmt.Errorf("invalid channel value %v", item)
		}
		out = append(out, uint16(n.NumberValue))
	}
	return out, nil
}

// Marshal encodes the report in protobuf wire format.
func (r *Report) Marshal() ([]byte, error) {
	return proto.Marshal(r.Struct())
}

// Unmarshal decodes a report in protobuf wire format.
func Unmarshal(data []byte) (*Report, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	return FromStruct(&s)
}

// JSON renders the report as JSON.
func (r *Report) JSON() (string, error) {
	return (&jsonpb.Marshaler{}).MarshalToString(r.Struct())
}

// UnmarshalJSON decodes a report rendered by JSON.
func UnmarshalJSON(data string) (*Report, error) {
	var s structpb.Struct
	if err := jsonpb.UnmarshalString(data, &s); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	return FromStruct(&s)
}
