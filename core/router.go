package core

import (
	"errors"
	"net"

	"github.com/antnet/antnet/perf"
	"github.com/antnet/antnet/state"
	"golang.org/x/sync/errgroup"
)

// Router is a single node of the network. It owns the shared tables and runs the
// announcer, broadcaster, receiver and maintainer tasks.
type Router struct {
	*state.State
	Transport Transport
	Probe     LatencyProbe
	Selector  *Selector
	Publisher TablePublisher
}

func NewRouter(s *state.State, transport Transport, probe LatencyProbe, publisher TablePublisher) *Router {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Router{
		State:     s,
		Transport: transport,
		Probe:     probe,
		Selector:  NewSelector(&s.Config, s.Pheromones, probe, nil),
		Publisher: publisher,
	}
}

// Run blocks until the context of the router's Env is cancelled. The transport is closed on return.
func (r *Router) Run() error {
	for _, neigh := range r.Neighbors {
		r.Pheromones.Seed(neigh, neigh)
	}
	r.Event(state.EventInfo, "router started", "id", r.RouterId, "addr", r.Ip, "neighbors", r.Neighbors)

	g := errgroup.Group{}
	g.Go(func() error {
		r.RepeatTask("hello", r.announce, r.HelloDelay())
		return nil
	})
	g.Go(func() error {
		r.RepeatTask("update", r.broadcast, r.UpdateDelay())
		return nil
	})
	g.Go(func() error {
		r.RepeatTaskAfter("maintain", r.maintain, r.CheckDelay())
		return nil
	})
	g.Go(r.receive)
	g.Go(func() error {
		<-r.Context.Done()
		// unblocks the receiver
		err := r.Transport.Close()
		if err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
		return nil
	})
	err := g.Wait()
	r.Event(state.EventInfo, "router stopped")
	return err
}

// maintain evaporates every pheromone and evicts routes that were not refreshed within check_interval.
func (r *Router) maintain(s *state.State) error {
	s.Pheromones.DecayAll(s.EvaporationRate)
	evicted := s.Routes.EvictStale(s.Clock.Now(), s.CheckDelay())
	if len(evicted) != 0 {
		perf.EvictionsTotal.Add(float64(len(evicted)))
		s.DebugEvent(state.EventInfo, "evicted stale routes", "destinations", evicted)
	}
	if c, ok := r.Probe.(interface{ DeleteExpired() }); ok {
		c.DeleteExpired()
	}
	r.emitTables("routing table")
	return nil
}

// emitTables writes both tables to the event stream and hands them to the publisher.
func (r *Router) emitTables(msg string) {
	routes := r.Routes.Snapshot()
	pheromones := r.Pheromones.Snapshot()
	perf.Routes.Set(float64(len(routes)))
	perf.PheromoneEntries.Set(float64(r.Pheromones.Len()))
	r.Event(state.EventTable, msg, state.RoutingKey, routes, state.PheromonesKey, pheromones)
	err := r.Publisher.Publish(TableSnapshot{
		Router:     r.RouterId,
		Time:       r.Clock.Now(),
		Routing:    routes,
		Pheromones: pheromones,
	})
	if err != nil {
		r.Event(state.EventError, "failed to publish tables", "error", err)
	}
}
