package core

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/antnet/antnet/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRtt(t *testing.T) {
	cases := map[string]float64{
		"64 bytes from 10.0.0.2: icmp_seq=1 ttl=64 time=12.3 ms":            12.3,
		"64 bytes from 10.0.0.2: icmp_seq=1 ttl=64 time=0.042 ms":           0.042,
		"Reply from 10.0.0.2: bytes=32 time<1ms TTL=128":                    1,
		"64 bytes from 10.0.0.2: icmp_seq=1 ttl=64 time= 7 ms\nrtt min/avg": 7,
	}
	for out, want := range cases {
		got, ok := ParseRtt([]byte(out))
		require.True(t, ok, out)
		assert.InDelta(t, want, got, 1e-9, out)
	}

	_, ok := ParseRtt([]byte("1 packets transmitted, 0 received, 100% packet loss"))
	assert.False(t, ok)
}

type fakePing struct {
	out  string
	err  error
	args []string
}

func (f *fakePing) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.args = append([]string{name}, args...)
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("probe without deadline")
	}
	return []byte(f.out), f.err
}

func TestExecProbe(t *testing.T) {
	fp := &fakePing{out: "64 bytes from 10.0.0.2: icmp_seq=1 ttl=64 time=12.3 ms"}
	p := NewExecProbe(time.Second)
	p.Run = fp.run

	assert.InDelta(t, 12.3, p.Measure(context.Background(), "10.0.0.2"), 1e-9)
	assert.Equal(t, []string{"ping", "-c", "1", "-W", "1", "--", "10.0.0.2"}, fp.args)

	p.Timeout = 1500 * time.Millisecond
	p.Measure(context.Background(), "10.0.0.2")
	assert.Equal(t, "2", fp.args[4])
}

func TestExecProbeEndsOptions(t *testing.T) {
	fp := &fakePing{err: errors.New("unknown host")}
	p := NewExecProbe(time.Second)
	p.Run = fp.run

	assert.True(t, math.IsInf(p.Measure(context.Background(), "-c100000"), 1))
	// the address is never parsed as a flag
	require.Len(t, fp.args, 7)
	assert.Equal(t, []string{"--", "-c100000"}, fp.args[5:])
	assert.Equal(t, []string{"-c", "1"}, fp.args[1:3])
}

func TestExecProbeClampsToMinimum(t *testing.T) {
	fp := &fakePing{out: "time=0.000 ms"}
	p := NewExecProbe(time.Second)
	p.Run = fp.run
	assert.Equal(t, 0.1, p.Measure(context.Background(), "10.0.0.2"))
}

func TestExecProbeUnreachable(t *testing.T) {
	p := NewExecProbe(time.Second)

	p.Run = (&fakePing{err: errors.New("exit status 1")}).run
	assert.True(t, math.IsInf(p.Measure(context.Background(), "10.0.0.9"), 1))

	p.Run = (&fakePing{out: "garbage"}).run
	assert.True(t, math.IsInf(p.Measure(context.Background(), "10.0.0.9"), 1))
}

func TestCachedProbe(t *testing.T) {
	inner := mock.NewProbe(map[string]float64{"10.0.0.2": 5})
	c := NewCachedProbe(inner, time.Hour)

	for range 5 {
		assert.Equal(t, 5.0, c.Measure(context.Background(), "10.0.0.2"))
	}
	assert.Equal(t, 1, inner.Calls("10.0.0.2"))

	// unreachable results are cached too
	assert.True(t, math.IsInf(c.Measure(context.Background(), "10.0.0.9"), 1))
	assert.True(t, math.IsInf(c.Measure(context.Background(), "10.0.0.9"), 1))
	assert.Equal(t, 1, inner.Calls("10.0.0.9"))
	assert.Equal(t, 2, c.Len())
}

func TestCachedProbeExpires(t *testing.T) {
	inner := mock.NewProbe(map[string]float64{"10.0.0.2": 5})
	c := NewCachedProbe(inner, 10*time.Millisecond)

	c.Measure(context.Background(), "10.0.0.2")
	time.Sleep(20 * time.Millisecond)
	c.DeleteExpired()
	assert.Equal(t, 0, c.Len())

	inner.Set("10.0.0.2", 8)
	assert.Equal(t, 8.0, c.Measure(context.Background(), "10.0.0.2"))
	assert.Equal(t, 2, inner.Calls("10.0.0.2"))
}

func TestCachedProbeSkipsCancelled(t *testing.T) {
	inner := mock.NewProbe(map[string]float64{"10.0.0.2": 5})
	c := NewCachedProbe(inner, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, math.IsInf(c.Measure(ctx, "10.0.0.2"), 1))
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 5.0, c.Measure(context.Background(), "10.0.0.2"))
}
