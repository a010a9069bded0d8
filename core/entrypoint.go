package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/antnet/antnet/state"
	"github.com/benbjohnson/clock"
	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

// NewLogger builds the node logger: colored console output on stderr, the JSON event stream on
// events and, if configured, a plain text log file.
func NewLogger(cfg *state.Config, level slog.Level, console, events io.Writer) (*slog.Logger, func(), error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(console, &tint.Options{
			Level:        level,
			AddSource:    false,
			TimeFormat:   "15:04:05",
			CustomPrefix: cfg.RouterId,
		}),
		state.NewEventHandler(events, cfg.RouterId, loc, level),
	)

	closer := func() {}
	if cfg.LogPath != "" {
		err := os.MkdirAll(path.Dir(cfg.LogPath), 0700)
		if err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(cfg.LogPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
		closer = func() { _ = f.Close() }
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

// NewProbe builds the configured latency probe, optionally wrapped in a cache.
func NewProbe(cfg *state.Config) (LatencyProbe, func(), error) {
	var probe LatencyProbe
	cleanup := func() {}
	switch cfg.Probe {
	case "icmp":
		p, err := NewIcmpProbe(cfg.ProbeTimeoutDelay())
		if err != nil {
			return nil, nil, err
		}
		probe = p
		cleanup = p.Close
	default:
		probe = NewExecProbe(cfg.ProbeTimeoutDelay())
	}
	if cfg.ProbeCacheTTL > 0 {
		probe = NewCachedProbe(probe, cfg.ProbeCacheDelay())
	}
	return probe, cleanup, nil
}

func setupDebugging(s *state.State) {
	if s.MetricsAddr == "" {
		return
	}
	srv := &http.Server{Addr: s.MetricsAddr}
	go func() {
		s.Event(state.EventInfo, "serving metrics", "addr", s.MetricsAddr)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Event(state.EventError, "metrics server failed", "error", err)
		}
	}()
	go func() {
		<-s.Context.Done()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()
}

// Start runs a node until SIGINT or SIGTERM. Only configuration and bind failures are returned.
func Start(cfg state.Config, logLevel slog.Level) error {
	logger, closer, err := NewLogger(&cfg, logLevel, os.Stderr, os.Stdout)
	if err != nil {
		return err
	}
	defer closer()

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(context.Canceled)

	s := state.NewState(&state.Env{
		Config:  cfg,
		Context: ctx,
		Cancel:  cancel,
		Log:     logger,
		Clock:   clock.New(),
	})
	s.Event(state.EventInfo, "config loaded", "config", cfg)

	transport, err := ListenUdp(cfg.BindAddr())
	if err != nil {
		s.Event(state.EventError, "failed to start socket", "error", err)
		return err
	}

	probe, cleanupProbe, err := NewProbe(&cfg)
	if err != nil {
		_ = transport.Close()
		return err
	}
	defer cleanupProbe()

	var publisher TablePublisher = NopPublisher{}
	if cfg.MqttBroker != "" {
		p, err := NewMqttPublisher(cfg.MqttBroker, cfg.RouterId, cfg.MqttTopic, 5*time.Second)
		if err != nil {
			// dashboards are optional, routing works without them
			s.Event(state.EventError, "mqtt publisher disabled", "error", err)
		} else {
			publisher = p
		}
	}
	defer publisher.Close()

	setupDebugging(s)

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)
	go func() {
		select {
		case <-c:
			s.Cancel(errors.New("received shutdown signal"))
		case <-ctx.Done():
		}
	}()

	s.Event(state.EventInfo, fmt.Sprintf("starting router %s (%s)", cfg.RouterId, cfg.Ip))
	r := NewRouter(s, transport, probe, publisher)
	err = r.Run()
	s.Event(state.EventInfo, "stopped", "reason", context.Cause(ctx).Error())
	return err
}
