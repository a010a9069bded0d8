package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	ProbeLatency        = metric.NewHistogram("1m1s")
	HandleLatency       = metric.NewHistogram("1m1s")
	SentPacketPerSecond = metric.NewCounter("10s1s")
	RecvPacketPerSecond = metric.NewCounter("10s1s")
	SentBytesPerSecond  = metric.NewCounter("10s1s")
	RecvBytesPerSecond  = metric.NewCounter("10s1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("antnet:ProbeLatency (ms)", ProbeLatency)
	expvar.Publish("antnet:HandleLatency (µs)", HandleLatency)
	expvar.Publish("antnet:SentPacket/s", SentPacketPerSecond)
	expvar.Publish("antnet:RecvPacket/s", RecvPacketPerSecond)
	expvar.Publish("antnet:SentBytes/s", SentBytesPerSecond)
	expvar.Publish("antnet:RecvBytes/s", RecvBytesPerSecond)
}
