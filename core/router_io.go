package core

import (
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/antnet/antnet/perf"
	"github.com/antnet/antnet/protocol"
	"github.com/antnet/antnet/state"
)

// sendAll sends msg to every neighbor. A failure for one neighbor does not affect the others.
func (r *Router) sendAll(msg protocol.Message) error {
	data, err := protocol.Marshal(msg)
	if err != nil {
		return err
	}
	kind := state.EventKind(msg.Type())
	for _, neigh := range r.Neighbors {
		err := r.Transport.Send(r.NeighborAddr(neigh), data)
		if err != nil {
			r.Event(state.EventError, fmt.Sprintf("failed to send %s", msg.Type()), "to", neigh, "error", err)
			continue
		}
		perf.MessagesTotal.WithLabelValues("sent", string(msg.Type())).Inc()
		r.DebugEvent(kind, fmt.Sprintf("sent %s", msg.Type()), "to", neigh)
	}
	return nil
}

func (r *Router) announce(s *state.State) error {
	return r.sendAll(&protocol.Hello{Source: s.Ip})
}

func (r *Router) broadcast(s *state.State) error {
	return r.sendAll(&protocol.Update{Source: s.Ip, Pheromones: s.Pheromones.Snapshot()})
}

// receive reads datagrams until the transport is closed.
func (r *Router) receive() error {
	r.Event(state.EventInfo, "listening", "addr", r.BindAddr())
	buf := make([]byte, state.MaxDatagram)
	for {
		n, from, err := r.Transport.Receive(buf)
		if err != nil {
			if r.Context.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			r.Event(state.EventError, "failed to receive", "error", err)
			select {
			case <-r.Context.Done():
				return nil
			case <-r.Clock.After(state.ReceiveBackoff):
			}
			continue
		}
		// the buffer is reused, the handler must not retain it
		r.HandleMessage(buf[:n], from)
	}
}

// HandleMessage decodes and dispatches a single datagram. It never panics; malformed
// messages are logged and dropped without touching any table.
func (r *Router) HandleMessage(data []byte, from string) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.Event(state.EventError, "failed to process message", "from", from, "error", rec)
		}
		perf.HandleLatency.Add(float64(time.Since(start).Microseconds()))
	}()

	msg, err := protocol.Unmarshal(data)
	if err != nil {
		perf.MessagesTotal.WithLabelValues("dropped", "invalid").Inc()
		r.Event(state.EventError, "dropped message", "from", from, "error", err)
		return
	}
	perf.MessagesTotal.WithLabelValues("received", string(msg.Type())).Inc()

	switch m := msg.(type) {
	case *protocol.Hello:
		r.Event(state.EventHello, "received hello", "source", m.Source)
		r.handleHello(m)
	case *protocol.Update:
		r.Event(state.EventUpdate, "received update", "source", m.Source)
		if err := r.handleUpdate(m); err != nil {
			r.Event(state.EventError, "failed to update pheromone table", "source", m.Source, "error", err)
		}
	}
}

// handleHello reinforces the direct hop to the sender, a closer neighbor gets a larger deposit.
func (r *Router) handleHello(m *protocol.Hello) {
	latency := r.Probe.Measure(r.Context, m.Source)
	if math.IsInf(latency, 1) {
		r.DebugEvent(state.EventHello, "neighbor unreachable, skipping deposit", "source", m.Source)
		return
	}
	r.Pheromones.Bump(m.Source, m.Source, r.Q/latency)
}

// handleUpdate blends the received table into ours and re-selects a next hop for every known destination.
func (r *Router) handleUpdate(m *protocol.Update) error {
	if err := r.Pheromones.MergeSnapshot(m.Pheromones, r.EvaporationRate); err != nil {
		return err
	}
	self := r.Routes.Self()
	for _, dest := range r.Pheromones.Destinations() {
		if dest == self {
			continue
		}
		if r.Context.Err() != nil {
			// shutting down, the remaining destinations are refreshed on the next update
			return nil
		}
		nh, ok := r.Selector.ChooseNextHop(r.Context, dest)
		if !ok {
			continue
		}
		latency := r.Probe.Measure(r.Context, nh)
		r.Routes.Upsert(dest, nh, latency, r.Clock.Now())
	}
	r.emitTables("routing table updated")
	return nil
}
