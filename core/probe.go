package core

import (
	"context"
	"fmt"
	"math"
	"net"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"github.com/antnet/antnet/perf"
	"github.com/antnet/antnet/state"
	"github.com/digineo/go-ping"
	"github.com/jellydator/ttlcache/v3"
)

// LatencyProbe measures the round trip time to a host in milliseconds.
// It never fails: hosts that cannot be measured report state.Unreachable.
// Implementations must bound the time spent in Measure.
type LatencyProbe interface {
	Measure(ctx context.Context, addr string) float64
}

func clampRtt(ms float64) float64 {
	if ms <= 0 {
		return state.MinLatency
	}
	return ms
}

func observe(ms float64) float64 {
	if math.IsInf(ms, 1) {
		perf.ProbesTotal.WithLabelValues("unreachable").Inc()
	} else {
		perf.ProbesTotal.WithLabelValues("ok").Inc()
		perf.ProbeLatency.Add(ms)
	}
	return ms
}

var rttPattern = regexp.MustCompile(`time[=<]\s*([0-9]+(?:\.[0-9]+)?)\s*ms`)

// ParseRtt extracts the first round trip time reported by ping.
func ParseRtt(out []byte) (float64, bool) {
	m := rttPattern.FindSubmatch(out)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(m[1]), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ExecProbe runs the system ping utility once per measurement.
type ExecProbe struct {
	Timeout time.Duration
	// Run executes the command and returns its standard output, replaced in tests
	Run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewExecProbe(timeout time.Duration) *ExecProbe {
	return &ExecProbe{
		Timeout: timeout,
		Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

func (p *ExecProbe) Measure(ctx context.Context, addr string) float64 {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	wait := max(1, int(math.Ceil(p.Timeout.Seconds())))
	out, err := p.Run(ctx, "ping", "-c", "1", "-W", strconv.Itoa(wait), "--", addr)
	if err != nil {
		return observe(state.Unreachable)
	}
	rtt, ok := ParseRtt(out)
	if !ok {
		return observe(state.Unreachable)
	}
	return observe(clampRtt(rtt))
}

// IcmpProbe sends ICMP echo requests itself instead of spawning a process. Requires CAP_NET_RAW.
type IcmpProbe struct {
	Timeout time.Duration
	pinger  *ping.Pinger
}

func NewIcmpProbe(timeout time.Duration) (*IcmpProbe, error) {
	pinger, err := ping.New("0.0.0.0", "")
	if err != nil {
		return nil, fmt.Errorf("failed to start pinger: %w", err)
	}
	return &IcmpProbe{Timeout: timeout, pinger: pinger}, nil
}

func (p *IcmpProbe) Measure(ctx context.Context, addr string) float64 {
	if ctx.Err() != nil {
		return state.Unreachable
	}
	ip, err := net.ResolveIPAddr("ip4", addr)
	if err != nil {
		return observe(state.Unreachable)
	}
	rtt, err := p.pinger.Ping(ip, p.Timeout)
	if err != nil {
		return observe(state.Unreachable)
	}
	return observe(clampRtt(float64(rtt) / float64(time.Millisecond)))
}

func (p *IcmpProbe) Close() {
	p.pinger.Close()
}

// CachedProbe reuses a measurement for ttl so that bursts of updates do not re-probe the same host.
type CachedProbe struct {
	inner LatencyProbe
	cache *ttlcache.Cache[string, float64]
}

func NewCachedProbe(inner LatencyProbe, ttl time.Duration) *CachedProbe {
	return &CachedProbe{
		inner: inner,
		cache: ttlcache.New[string, float64](
			ttlcache.WithTTL[string, float64](ttl),
			ttlcache.WithDisableTouchOnHit[string, float64](),
		),
	}
}

func (c *CachedProbe) Measure(ctx context.Context, addr string) float64 {
	if item := c.cache.Get(addr); item != nil {
		perf.ProbesTotal.WithLabelValues("cached").Inc()
		return item.Value()
	}
	v := c.inner.Measure(ctx, addr)
	if ctx.Err() == nil {
		c.cache.Set(addr, v, ttlcache.DefaultTTL)
	}
	return v
}

// DeleteExpired drops measurements older than the ttl.
func (c *CachedProbe) DeleteExpired() {
	c.cache.DeleteExpired()
}

func (c *CachedProbe) Len() int {
	return c.cache.Len()
}
