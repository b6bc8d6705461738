package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func feedAll(a *Assembler, in string) []FeedResult {
	results := make([]FeedResult, 0, len(in))
	for i := 0; i < len(in); i++ {
		results = append(results, a.Feed(in[i]))
	}
	return results
}

func TestAssemblerCompletesOnTerminator(t *testing.T) {
	var a Assembler
	results := feedAll(&a, "$TO1500&\r")
	for _, r := range results[:len(results)-1] {
		require.Equal(t, FeedStored, r.State)
		require.NoError(t, r.Err())
	}
	last := results[len(results)-1]
	require.Equal(t, FeedComplete, last.State)
	require.Equal(t, "$TO1500&", last.Frame.String())
	require.Zero(t, a.Pending().Len())

	u, err := Parse(last.Frame.Bytes())
	require.NoError(t, err)
	require.Equal(t, Update{Target: TargetPWM, PeriodMS: 1500}, u)
}

func TestAssemblerOverflow(t *testing.T) {
	var a Assembler
	in := "0123456789ABCDEF"
	results := feedAll(&a, in)
	for i, r := range results {
		if i < FrameCapacity {
			require.Equalf(t, FeedStored, r.State, "byte %d", i)
		} else {
			require.Equalf(t, FeedOverflow, r.State, "byte %d", i)
			require.Equal(t, ErrBufferFull, r.Err())
		}
	}
	pending := a.Pending()
	require.Equal(t, in[:FrameCapacity], pending.String())

	r := a.Feed(Terminator)
	require.Equal(t, FeedComplete, r.State)
	require.Equal(t, in[:FrameCapacity], r.Frame.String())

	got, err := Parse(r.Frame.Bytes())
	require.Equal(t, ErrWrongFormat, err)
	require.Equal(t, Update{}, got)
}

func TestAssemblerStartsFreshFrame(t *testing.T) {
	var a Assembler
	feedAll(&a, "$TO9\r")
	results := feedAll(&a, "$Ti0750&\r")
	last := results[len(results)-1]
	require.Equal(t, "$Ti0750&", last.Frame.String())
}

func TestCompletedFrameIsIndependent(t *testing.T) {
	var a Assembler
	results := feedAll(&a, "$TO1500&\r")
	frame := results[len(results)-1].Frame
	feedAll(&a, "XXXXXXXX")
	require.Equal(t, "$TO1500&", frame.String())
}

func TestFrameOf(t *testing.T) {
	f, err := FrameOf([]byte("$TO1500&"))
	require.NoError(t, err)
	require.Equal(t, 8, f.Len())

	f, err = FrameOf([]byte("0123456789X"))
	require.Equal(t, ErrBufferFull, err)
	require.Equal(t, "0123456789", f.String())

	f.Reset()
	require.Zero(t, f.Len())
	require.NoError(t, f.Append('$'))
}
