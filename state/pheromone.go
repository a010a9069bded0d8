package state

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"sync"
)

// Snapshot is a plain copy of the pheromone table: destination -> next hop -> score.
type Snapshot map[string]map[string]float64

// Validate rejects scores that cannot be stored without breaking the [0, MaxPheromone] invariant.
func (s Snapshot) Validate() error {
	for dest, hops := range s {
		if dest == "" {
			return fmt.Errorf("empty destination")
		}
		for hop, v := range hops {
			if hop == "" {
				return fmt.Errorf("empty next hop for %s", dest)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return fmt.Errorf("invalid pheromone %v for %s via %s", v, dest, hop)
			}
		}
	}
	return nil
}

// PheromoneStore holds the desirability of reaching each destination via each next hop.
// All methods are safe for concurrent use; the lock is only held for a single operation.
type PheromoneStore struct {
	mu      sync.RWMutex
	table   map[string]map[string]float64
	initial float64
}

func NewPheromoneStore(initial float64) *PheromoneStore {
	return &PheromoneStore{
		table:   make(map[string]map[string]float64),
		initial: initial,
	}
}

func clampPheromone(v float64) float64 {
	return max(0, min(v, MaxPheromone))
}

// get must be called with mu held.
func (p *PheromoneStore) get(dest, hop string) float64 {
	if row, ok := p.table[dest]; ok {
		if v, ok := row[hop]; ok {
			return v
		}
	}
	return p.initial
}

// set must be called with mu held for writing.
func (p *PheromoneStore) set(dest, hop string, v float64) {
	row, ok := p.table[dest]
	if !ok {
		row = make(map[string]float64)
		p.table[dest] = row
	}
	row[hop] = clampPheromone(v)
}

// Get returns the score for dest via hop, missing entries read as the initial value.
func (p *PheromoneStore) Get(dest, hop string) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.get(dest, hop)
}

// Row returns a copy of the scores for dest, nil if the destination is unknown.
func (p *PheromoneStore) Row(dest string) map[string]float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	row, ok := p.table[dest]
	if !ok {
		return nil
	}
	return maps.Clone(row)
}

// Destinations returns every known destination in sorted order.
func (p *PheromoneStore) Destinations() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Sorted(maps.Keys(p.table))
}

// Seed stores the initial value for dest via hop.
func (p *PheromoneStore) Seed(dest, hop string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set(dest, hop, p.initial)
}

// DecayAll evaporates every stored score by rate.
func (p *PheromoneStore) DecayAll(rate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, row := range p.table {
		for hop, v := range row {
			row[hop] = clampPheromone(v * (1 - rate))
		}
	}
}

// Merge blends a neighbor-reported score into the local one.
func (p *PheromoneStore) Merge(dest, hop string, received, rate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set(dest, hop, (1-rate)*p.get(dest, hop)+rate*received)
}

// MergeSnapshot merges every entry of a received snapshot under a single lock.
// An invalid snapshot is rejected as a whole and leaves the store unchanged.
func (p *PheromoneStore) MergeSnapshot(received Snapshot, rate float64) error {
	if err := received.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for dest, hops := range received {
		for hop, v := range hops {
			p.set(dest, hop, (1-rate)*p.get(dest, hop)+rate*v)
		}
	}
	return nil
}

// Bump reinforces dest via hop by amount.
func (p *PheromoneStore) Bump(dest, hop string, amount float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set(dest, hop, p.get(dest, hop)+amount)
}

func (p *PheromoneStore) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(Snapshot, len(p.table))
	for dest, row := range p.table {
		out[dest] = maps.Clone(row)
	}
	return out
}

// Len returns the number of stored (destination, next hop) pairs.
func (p *PheromoneStore) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, row := range p.table {
		n += len(row)
	}
	return n
}
