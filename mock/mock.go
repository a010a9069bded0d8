// Package mock provides an in-memory datagram network and a scripted latency probe for tests.
package mock

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"sync"
	"time"

	"github.com/antnet/antnet/state"
)

type packet struct {
	from string
	data []byte
}

// VirtualLink describes a one-way link between two endpoints.
type VirtualLink struct {
	Latency    time.Duration
	PacketLoss float64
	Down       bool
}

// Network delivers datagrams between endpoints registered with Listen.
// Without an explicit link, endpoints are fully connected with no latency.
type Network struct {
	mu        sync.Mutex
	endpoints map[string]*Endpoint
	links     map[[2]string]*VirtualLink
	// Strict drops packets between endpoints that have no explicit link
	Strict bool
}

func NewNetwork() *Network {
	return &Network{
		endpoints: make(map[string]*Endpoint),
		links:     make(map[[2]string]*VirtualLink),
	}
}

// AddLink creates (or returns) the link from a to b.
func (n *Network) AddLink(from, to string) *VirtualLink {
	n.mu.Lock()
	defer n.mu.Unlock()
	l, ok := n.links[[2]string{from, to}]
	if !ok {
		l = &VirtualLink{}
		n.links[[2]string{from, to}] = l
	}
	return l
}

// SetDown cuts or restores both directions between a and b.
func (n *Network) SetDown(a, b string, down bool) {
	n.AddLink(a, b)
	n.AddLink(b, a)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.links[[2]string{a, b}].Down = down
	n.links[[2]string{b, a}].Down = down
}

func (n *Network) Listen(addr string) (*Endpoint, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.endpoints[addr]; ok {
		return nil, errors.New("address already in use: " + addr)
	}
	ep := &Endpoint{
		addr:   addr,
		net:    n,
		inbox:  make(chan packet, 256),
		closed: make(chan struct{}),
	}
	n.endpoints[addr] = ep
	return ep, nil
}

func (n *Network) deliver(from, to string, data []byte) {
	n.mu.Lock()
	dst := n.endpoints[to]
	link, hasLink := n.links[[2]string{from, to}]
	var l VirtualLink
	if hasLink {
		l = *link
	}
	n.mu.Unlock()

	if dst == nil || (!hasLink && n.Strict) || l.Down {
		return
	}
	if l.PacketLoss > 0 && rand.Float64() < l.PacketLoss {
		return
	}
	pkt := packet{from: from, data: append([]byte(nil), data...)}
	if l.Latency == 0 {
		dst.push(pkt)
		return
	}
	time.AfterFunc(l.Latency, func() { dst.push(pkt) })
}

// Endpoint is a Transport bound to an address of a Network.
type Endpoint struct {
	addr   string
	net    *Network
	inbox  chan packet
	once   sync.Once
	closed chan struct{}
}

func (e *Endpoint) push(p packet) {
	select {
	case <-e.closed:
	case e.inbox <- p:
	default:
		// full socket buffer
	}
}

func (e *Endpoint) Addr() string {
	return e.addr
}

func (e *Endpoint) Send(addr string, payload []byte) error {
	select {
	case <-e.closed:
		return net.ErrClosed
	default:
	}
	e.net.deliver(e.addr, addr, payload)
	return nil
}

func (e *Endpoint) Receive(buf []byte) (int, string, error) {
	select {
	case <-e.closed:
		return 0, "", net.ErrClosed
	case p := <-e.inbox:
		return copy(buf, p.data), p.from, nil
	}
}

func (e *Endpoint) Close() error {
	e.once.Do(func() {
		close(e.closed)
		e.net.mu.Lock()
		delete(e.net.endpoints, e.addr)
		e.net.mu.Unlock()
	})
	return nil
}

// Probe reports scripted latencies. Hosts without an entry are unreachable.
type Probe struct {
	mu        sync.Mutex
	latencies map[string]float64
	calls     map[string]int
}

func NewProbe(latencies map[string]float64) *Probe {
	p := &Probe{
		latencies: make(map[string]float64),
		calls:     make(map[string]int),
	}
	for k, v := range latencies {
		p.latencies[k] = v
	}
	return p
}

func (p *Probe) Set(addr string, ms float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latencies[addr] = ms
}

func (p *Probe) Remove(addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.latencies, addr)
}

func (p *Probe) Calls(addr string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[addr]
}

func (p *Probe) Measure(ctx context.Context, addr string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[addr]++
	if ctx.Err() != nil {
		return state.Unreachable
	}
	v, ok := p.latencies[addr]
	if !ok {
		return state.Unreachable
	}
	return v
}
