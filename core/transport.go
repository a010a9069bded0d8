package core

import (
	"fmt"
	"net"

	"github.com/antnet/antnet/perf"
)

// Transport is an unreliable datagram socket. Receive is only ever called by the receiver task,
// Send may be called concurrently. Receive returns net.ErrClosed after Close.
type Transport interface {
	Send(addr string, payload []byte) error
	Receive(buf []byte) (int, string, error)
	Close() error
}

type UdpTransport struct {
	conn net.PacketConn
}

// ListenUdp binds the node's receive socket. Failing to bind is fatal for the node.
func ListenUdp(bind string) (*UdpTransport, error) {
	conn, err := net.ListenPacket("udp", bind)
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", bind, err)
	}
	return &UdpTransport{conn: conn}, nil
}

func (u *UdpTransport) LocalAddr() string {
	return u.conn.LocalAddr().String()
}

func (u *UdpTransport) Send(addr string, payload []byte) error {
	dst, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	_, err = u.conn.WriteTo(payload, dst)
	if err != nil {
		return err
	}
	perf.SentPacketPerSecond.Add(1)
	perf.SentBytesPerSecond.Add(float64(len(payload)))
	return nil
}

func (u *UdpTransport) Receive(buf []byte) (int, string, error) {
	n, from, err := u.conn.ReadFrom(buf)
	if err != nil {
		return 0, "", err
	}
	perf.RecvPacketPerSecond.Add(1)
	perf.RecvBytesPerSecond.Add(float64(n))
	return n, from.String(), nil
}

func (u *UdpTransport) Close() error {
	return u.conn.Close()
}
