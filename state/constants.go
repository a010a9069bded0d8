package state

import (
	"math"
	"time"
)

// MaxPheromone is the hard upper clamp applied to every stored score.
const MaxPheromone = 1000.0

// MinLatency is the floor applied to successful probes reporting a non-positive rtt.
const MinLatency = 0.1

// Unreachable is the latency (and metric) of a host that failed to answer a probe.
var Unreachable = math.Inf(1)

var (
	DefaultHelloInterval   = 2.0
	DefaultUpdateInterval  = 5.0
	DefaultCheckInterval   = 15.0
	DefaultPheromoneInit   = 1.0
	DefaultEvaporationRate = 0.1
	DefaultAlpha           = 1.0
	DefaultBeta            = 2.0
	DefaultQ               = 100.0
	DefaultProbeTimeout    = 1.0
	DefaultProbeCacheTTL   = 1.0
	DefaultTimezone        = "America/Sao_Paulo"
	DefaultConfigPath      = "config.json"

	// MaxDatagram is the receive buffer size; an update carries the whole pheromone table.
	MaxDatagram = 64 * 1024

	// EventTimeFormat is the timestamp layout of the event stream.
	EventTimeFormat = "2006-01-02 15:04:05"

	// ProbeParallelism bounds concurrent probes issued by a single selection.
	ProbeParallelism = 8

	// ReceiveBackoff is the pause after a failed read before the socket is read again.
	ReceiveBackoff = 100 * time.Millisecond
)
