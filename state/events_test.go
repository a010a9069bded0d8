package state

import (
	"bytes"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventStreamRoundTrip(t *testing.T) {
	loc, err := time.LoadLocation(DefaultTimezone)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	log := slog.New(NewEventHandler(buf, "r1", loc, slog.LevelInfo))
	env := &Env{Log: log}

	updated := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	routes := RouteSnapshot{
		"10.0.0.1": {NextHop: "10.0.0.1", Metric: 0, LastUpdated: updated},
		"10.0.0.3": {NextHop: "10.0.0.2", Metric: Metric(math.Inf(1)), LastUpdated: updated},
	}
	pher := Snapshot{"10.0.0.3": {"10.0.0.2": 1.9}}

	env.Event(EventHello, "hello sent", "to", "10.0.0.2")
	env.Event(EventTable, "routing table", RoutingKey, routes, PheromonesKey, pher)
	env.Event(EventError, "send failed", "error", "connection refused")
	env.DebugEvent(EventUpdate, "not written at info level")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	hello, err := DecodeEvent([]byte(lines[0]))
	require.NoError(t, err)
	assert.Equal(t, EventHello, hello.Kind)
	assert.Equal(t, "r1", hello.Router)
	assert.Equal(t, "hello sent", hello.Msg)
	at, err := hello.At(loc)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), at, time.Minute)

	table, err := DecodeEvent([]byte(lines[1]))
	require.NoError(t, err)
	assert.Equal(t, EventTable, table.Kind)
	assert.Empty(t, cmp.Diff(routes["10.0.0.1"], table.Routing["10.0.0.1"]))
	assert.True(t, math.IsInf(float64(table.Routing["10.0.0.3"].Metric), 1))
	assert.Empty(t, cmp.Diff(pher, table.Pheromones))

	failed, err := DecodeEvent([]byte(lines[2]))
	require.NoError(t, err)
	assert.Equal(t, EventError, failed.Kind)
	assert.Equal(t, "ERROR", failed.Level)
}

func TestEventTimeFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	log := slog.New(NewEventHandler(buf, "r1", time.UTC, slog.LevelInfo))
	log.Info("x")
	ev, err := DecodeEvent(buf.Bytes())
	require.NoError(t, err)
	_, err = time.Parse(EventTimeFormat, ev.Time)
	assert.NoError(t, err)
	// plain log lines without a kind are informational
	assert.Equal(t, EventInfo, ev.Kind)
}

func TestDecodeEventRejects(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"not json":       "router started",
		"array":          `["hello"]`,
		"unknown kind":   `{"time":"2024-01-01 00:00:00","level":"INFO","msg":"x","event":"gossip"}`,
		"bad pheromones": `{"msg":"x","event":"table","pheromones":{"a":{"b":-4}}}`,
		"typed wrong":    `{"msg":"x","event":"table","routing":{"a":{"next_hop":1}}}`,
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(line))
			assert.ErrorIs(t, err, ErrMalformedEvent)
		})
	}
}

func TestDecodeEventLevelFallback(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"level":"ERROR","msg":"task failed"}`))
	require.NoError(t, err)
	assert.Equal(t, EventError, ev.Kind)
}
