package core

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/antnet/antnet/state"
	"golang.org/x/sync/errgroup"
)

type HopProbability struct {
	Hop string
	P   float64
}

// Distribution is a probability per next hop, in configured neighbor order.
type Distribution []HopProbability

func (d Distribution) Map() map[string]float64 {
	out := make(map[string]float64, len(d))
	for _, hp := range d {
		out[hp.Hop] = hp.P
	}
	return out
}

func (d Distribution) String() string {
	parts := make([]string, 0, len(d))
	for _, hp := range d {
		parts = append(parts, fmt.Sprintf("%s: %.3f", hp.Hop, hp.P))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Uniform assigns the same probability to every hop.
func Uniform(hops []string) Distribution {
	d := make(Distribution, 0, len(hops))
	for _, h := range hops {
		d = append(d, HopProbability{Hop: h, P: 1.0 / float64(len(hops))})
	}
	return d
}

// Weigh computes the selection distribution for a pheromone row.
// Only neighbors present in row are candidates; latencies holds their measured rtt.
// If no candidate has a positive weight, every neighbor is equally likely.
func Weigh(neighbors []string, row map[string]float64, latencies map[string]float64, alpha, beta float64) Distribution {
	d := make(Distribution, 0, len(neighbors))
	total := 0.0
	for _, nh := range neighbors {
		pheromone, ok := row[nh]
		if !ok {
			continue
		}
		heuristic := 0.0
		if lat, ok := latencies[nh]; ok && !math.IsInf(lat, 1) && lat > 0 {
			heuristic = 1.0 / lat
		}
		w := math.Pow(pheromone, alpha) * math.Pow(heuristic, beta)
		d = append(d, HopProbability{Hop: nh, P: w})
		total += w
	}
	if total == 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return Uniform(neighbors)
	}
	for i := range d {
		d[i].P /= total
	}
	return d
}

// Pick performs a roulette wheel selection over d with the draw r in [0, 1).
func (d Distribution) Pick(r float64) (string, bool) {
	if len(d) == 0 {
		return "", false
	}
	cumulative := 0.0
	for _, hp := range d {
		cumulative += hp.P
		if r <= cumulative {
			return hp.Hop, true
		}
	}
	// floating point shortfall
	return d[len(d)-1].Hop, true
}

// Selector chooses next hops from the pheromone table biased by measured latency.
type Selector struct {
	Neighbors  []string
	Alpha      float64
	Beta       float64
	Probe      LatencyProbe
	Pheromones *state.PheromoneStore

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSelector(cfg *state.Config, pheromones *state.PheromoneStore, probe LatencyProbe, rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Selector{
		Neighbors:  cfg.Neighbors,
		Alpha:      cfg.Alpha,
		Beta:       cfg.Beta,
		Probe:      probe,
		Pheromones: pheromones,
		rng:        rng,
	}
}

func (s *Selector) float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Selector) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// measure probes every candidate in parallel. No table lock is held while probing.
func (s *Selector) measure(ctx context.Context, hops []string) map[string]float64 {
	results := make([]float64, len(hops))
	g := errgroup.Group{}
	g.SetLimit(state.ProbeParallelism)
	for i, hop := range hops {
		g.Go(func() error {
			results[i] = s.Probe.Measure(ctx, hop)
			return nil
		})
	}
	_ = g.Wait()
	latencies := make(map[string]float64, len(hops))
	for i, hop := range hops {
		latencies[hop] = results[i]
	}
	return latencies
}

func (s *Selector) ComputeProbabilities(ctx context.Context, dest string) Distribution {
	row := s.Pheromones.Row(dest)
	candidates := make([]string, 0, len(row))
	for _, nh := range s.Neighbors {
		if _, ok := row[nh]; ok {
			candidates = append(candidates, nh)
		}
	}
	return Weigh(s.Neighbors, row, s.measure(ctx, candidates), s.Alpha, s.Beta)
}

// ChooseNextHop draws a next hop for dest. It returns false only when there are no neighbors.
func (s *Selector) ChooseNextHop(ctx context.Context, dest string) (string, bool) {
	r := s.float64()
	d := s.ComputeProbabilities(ctx, dest)
	if len(d) == 0 {
		if len(s.Neighbors) == 0 {
			return "", false
		}
		return s.Neighbors[s.intN(len(s.Neighbors))], true
	}
	return d.Pick(r)
}
