//go:build integration

package integration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/antnet/antnet/core"
	"github.com/antnet/antnet/mock"
	"github.com/antnet/antnet/state"
	"github.com/benbjohnson/clock"
)

const port = 5000

type Node struct {
	*core.Router
	Probe  *mock.Probe
	cancel context.CancelCauseFunc
}

// VirtualHarness runs several routers on an in-memory network with real timers and short intervals.
type VirtualHarness struct {
	Net   *mock.Network
	Nodes map[string]*Node
	Log   io.Writer

	configs []state.Config
	wg      sync.WaitGroup
}

func NewHarness() *VirtualHarness {
	vh := &VirtualHarness{
		Net:   mock.NewNetwork(),
		Nodes: make(map[string]*Node),
		Log:   io.Discard,
	}
	if os.Getenv("ANTNET_TEST_LOG") != "" {
		vh.Log = os.Stderr
	}
	vh.Net.Strict = true
	return vh
}

func (vh *VirtualHarness) NewNode(ip string, neighbors ...string) {
	cfg := state.DefaultConfig()
	cfg.RouterId = "node-" + ip
	cfg.Ip = ip
	cfg.Port = port
	cfg.Neighbors = neighbors
	cfg.HelloInterval = 0.05
	cfg.UpdateInterval = 0.1
	cfg.CheckInterval = 0.5
	cfg.Timezone = "UTC"
	vh.configs = append(vh.configs, cfg)
}

func addr(ip string) string {
	return ip + ":5000"
}

// Connect creates a bidirectional link and makes both ends measure latency ms to each other.
func (vh *VirtualHarness) Connect(a, b string, latency time.Duration) {
	for _, l := range []*mock.VirtualLink{vh.Net.AddLink(addr(a), addr(b)), vh.Net.AddLink(addr(b), addr(a))} {
		l.Latency = latency
	}
}

// Cut takes the link between a and b down, and makes the probes report it as unreachable.
func (vh *VirtualHarness) Cut(a, b string) {
	vh.Net.SetDown(addr(a), addr(b), true)
	vh.Nodes[a].Probe.Remove(b)
	vh.Nodes[b].Probe.Remove(a)
}

func (vh *VirtualHarness) Start() chan error {
	errs := make(chan error, len(vh.configs))
	for _, cfg := range vh.configs {
		probe := mock.NewProbe(nil)
		for _, n := range cfg.Neighbors {
			probe.Set(n, 1)
		}
		ctx, cancel := context.WithCancelCause(context.Background())
		s := state.NewState(&state.Env{
			Config:  cfg,
			Context: ctx,
			Cancel:  cancel,
			Log:     slog.New(state.NewEventHandler(vh.Log, cfg.RouterId, time.UTC, slog.LevelInfo)),
			Clock:   clock.New(),
		})
		ep, err := vh.Net.Listen(cfg.BindAddr())
		if err != nil {
			errs <- err
			cancel(err)
			continue
		}
		vh.Nodes[cfg.Ip] = &Node{
			Router: core.NewRouter(s, ep, probe, nil),
			Probe:  probe,
			cancel: cancel,
		}
	}
	for _, n := range vh.Nodes {
		vh.wg.Add(1)
		go func() {
			defer vh.wg.Done()
			if err := n.Run(); err != nil {
				errs <- err
			}
		}()
	}
	return errs
}

// SetLatency sets what a measures towards b.
func (vh *VirtualHarness) SetLatency(a, b string, ms float64) {
	vh.Nodes[a].Probe.Set(b, ms)
}

func (vh *VirtualHarness) Stop() {
	for _, n := range vh.Nodes {
		n.cancel(errors.New("harness stopped"))
	}
	vh.wg.Wait()
}
