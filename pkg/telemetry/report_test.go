package telemetry

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rtio/pkg/rtdb"
)

func testReport() *Report {
	db := rtdb.New().WithClock(func() time.Time { return time.Unix(1700000000, 250*int64(time.Millisecond)) })
	db.Update([]uint16{0, 341, 682, 1023})
	db.Update([]uint16{1, 2})
	return NewReport("bench-1", db.Snapshot(), 750, 1500, 3)
}

func TestNewReport(t *testing.T) {
	r := testReport()
	require.EqualValues(t, 2, r.Generation)
	require.Equal(t, []uint16{1, 2, 682, 1023}, r.Raw)
	require.Equal(t, []uint16{3, 6, 2000, 3000}, r.Scaled)
	require.Equal(t, []bool{false, false, true, true}, r.Stale)
}

func TestProtoEncoding(t *testing.T) {
	r := testReport()
	data, err := r.Marshal()
	require.NoError(t, err)
	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, r.Timestamp.UnixNano(), decoded.Timestamp.UnixNano())
	decoded.Timestamp = r.Timestamp
	require.Equal(t, r, decoded)
}

func TestJSONEncoding(t *testing.T) {
	r := testReport()
	out, err := r.JSON()
	require.NoError(t, err)
	require.True(t, strings.Contains(out, `"device":"bench-1"`), out)
	require.True(t, strings.Contains(out, `"pwm_period_ms":1500`), out)

	decoded, err := UnmarshalJSON(out)
	require.NoError(t, err)
	require.Equal(t, r.Raw, decoded.Raw)
	require.Equal(t, r.Errors, decoded.Errors)
}

func TestUnmarshalInvalid(t *testing.T) {
	_, err := Unmarshal([]byte{0xff, 0xff})
	require.Error(t, err)

	_, err = UnmarshalJSON(`{"raw":["x"]}`)
	require.Error(t, err)

	_, err = FromStruct(nil)
	require.Error(t, err)
}

func TestString(t *testing.T) {
	require.Equal(t, "bench-1 generation 2, sample 750ms, pwm 1500ms, errors 3\n"+
		"AN1 raw    1,    3 mV\n"+
		"AN2 raw    2,    6 mV\n"+
		"AN3 raw  682, 2000 mV (stale)\n"+
		"AN4 raw 1023, 3000 mV (stale)", testReport().String())
}
