package perf

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antnet",
			Name:      "messages_total",
			Help:      "Protocol messages by direction (sent, received, dropped) and type.",
		},
		[]string{"direction", "type"},
	)

	ProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antnet",
			Name:      "probes_total",
			Help:      "Latency probes by outcome (ok, unreachable, cached).",
		},
		[]string{"outcome"},
	)

	Routes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "antnet",
		Name:      "routes",
		Help:      "Entries in the routing table, including the route to ourselves.",
	})

	PheromoneEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "antnet",
		Name:      "pheromone_entries",
		Help:      "Stored (destination, next hop) pheromone scores.",
	})

	EvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "antnet",
		Name:      "route_evictions_total",
		Help:      "Routes removed because they were not refreshed within check_interval.",
	})
)

func init() {
	Registry.MustRegister(MessagesTotal, ProbesTotal, Routes, PheromoneEntries, EvictionsTotal)
	http.Handle("/metrics", promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}
