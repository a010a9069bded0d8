package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"sync"
	"time"
)

// Metric is a route cost in milliseconds. Unreachable routes carry +Inf, encoded as null.
type Metric float64

func (m Metric) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(m), 1) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(m))
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = Metric(Unreachable)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("metric must not be negative, got %v", v)
	}
	*m = Metric(v)
	return nil
}

type Route struct {
	NextHop     string    `json:"next_hop"`
	Metric      Metric    `json:"metric"`
	LastUpdated time.Time `json:"last_updated"`
}

func (r Route) String() string {
	return fmt.Sprintf("(nh: %s, metric: %v, updated: %s)", r.NextHop, float64(r.Metric), r.LastUpdated.Format(time.TimeOnly))
}

// RouteSnapshot is a plain copy of the routing table keyed by destination.
type RouteSnapshot map[string]Route

func (r RouteSnapshot) String() string {
	buf := bytes.Buffer{}
	for _, dest := range slices.Sorted(maps.Keys(r)) {
		if buf.Len() != 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(fmt.Sprintf("%s via %s", dest, r[dest]))
	}
	return buf.String()
}

// RoutingTable keeps the currently selected route per destination.
// The entry for the local address is seeded on creation and can never be overwritten or evicted.
type RoutingTable struct {
	mu     sync.RWMutex
	self   string
	routes map[string]Route
}

func NewRoutingTable(self string, now time.Time) *RoutingTable {
	return &RoutingTable{
		self: self,
		routes: map[string]Route{
			self: {NextHop: self, Metric: 0, LastUpdated: now},
		},
	}
}

func (t *RoutingTable) Self() string {
	return t.self
}

// Upsert overwrites the route to dest, last writer wins.
func (t *RoutingTable) Upsert(dest, nextHop string, metric float64, now time.Time) {
	if dest == t.self {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[dest] = Route{NextHop: nextHop, Metric: Metric(metric), LastUpdated: now}
}

// EvictStale removes every route older than maxAge, except the route to ourselves.
// The evicted destinations are returned in sorted order.
func (t *RoutingTable) EvictStale(now time.Time, maxAge time.Duration) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	evicted := make([]string, 0)
	for dest, route := range t.routes {
		if dest == t.self {
			continue
		}
		if now.Sub(route.LastUpdated) > maxAge {
			delete(t.routes, dest)
			evicted = append(evicted, dest)
		}
	}
	slices.Sort(evicted)
	return evicted
}

func (t *RoutingTable) Get(dest string) (Route, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.routes[dest]
	return r, ok
}

func (t *RoutingTable) Snapshot() RouteSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.routes)
}

func (t *RoutingTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.routes)
}
