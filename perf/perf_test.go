package perf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, path string) string {
	t.Helper()
	rec := httptest.NewRecorder()
	http.DefaultServeMux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rec.Code, path)
	return rec.Body.String()
}

func TestPrometheusEndpoint(t *testing.T) {
	MessagesTotal.WithLabelValues("sent", "hello").Inc()
	ProbesTotal.WithLabelValues("unreachable").Inc()
	Routes.Set(3)

	body := scrape(t, "/metrics")
	assert.Contains(t, body, `antnet_messages_total{direction="sent",type="hello"}`)
	assert.Contains(t, body, `antnet_probes_total{outcome="unreachable"}`)
	assert.Contains(t, body, "antnet_routes 3")
	assert.Contains(t, body, "antnet_route_evictions_total")
}

func TestExpvarPublished(t *testing.T) {
	ProbeLatency.Add(12)
	body := scrape(t, "/debug/vars")
	assert.Contains(t, body, "antnet:ProbeLatency (ms)")
	assert.Contains(t, body, "antnet:SentPacket/s")
}
