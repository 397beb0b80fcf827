// Package udp wraps a single UDP socket for one DRTP endpoint. An
// Endpoint owns its socket and peer address exclusively and is
// single-use: once closed it is not reconnected or rebound.
package udp

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// Errors returned by Endpoint operations.
var (
	// ErrClosed is returned by any operation on an already-closed endpoint.
	ErrClosed = errors.New("udp: endpoint closed")
	// ErrNoPeer is returned by Send when no peer address has been fixed
	// by Connect or remembered from a prior SendTo.
	ErrNoPeer = errors.New("udp: no peer address")
)

// Result is the tagged outcome of a timed receive: either a datagram
// arrived from a peer, or the deadline elapsed. Recv never returns a
// plain timeout error for an expired deadline — callers branch on
// TimedOut instead of matching net.Error.Timeout().
type Result struct {
	Data     []byte
	From     *net.UDPAddr
	TimedOut bool
}

// Endpoint wraps one net.UDPConn, the peer address, and the maximum
// datagram size to allocate for reads.
type Endpoint struct {
	conn    *net.UDPConn
	peer    *net.UDPAddr
	maxSize int
	closed  bool
}

// Bind opens a UDP socket listening on ip:port, for use by a receiver
// that does not yet know its peer's address.
func Bind(ip string, port int) (*Endpoint, error) {
	addr := &net.UDPAddr{IP: net.ParseIP(ip), Port: port}

	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("udp: bind %s: %w", addr, err)
	}

	return &Endpoint{conn: conn, maxSize: PacketSize}, nil
}

// Connect opens a UDP socket and fixes the peer address, for use by a
// sender. Because UDP is connectionless this performs no handshake of
// its own; it only sets the address subsequent Send calls default to.
func Connect(ip string, port int) (*Endpoint, error) {
	peer := &net.UDPAddr{IP: net.ParseIP(ip), Port: port}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("udp: connect to %s: %w", peer, err)
	}

	return &Endpoint{conn: conn, peer: peer, maxSize: PacketSize}, nil
}

// PacketSize is the maximum datagram size an Endpoint will read.
const PacketSize = 1000

// Peer returns the endpoint's currently fixed peer address, or nil if
// none has been fixed yet.
func (e *Endpoint) Peer() *net.UDPAddr {
	return e.peer
}

// LocalAddr returns the address the endpoint's socket is bound to.
func (e *Endpoint) LocalAddr() *net.UDPAddr {
	return e.conn.LocalAddr().(*net.UDPAddr)
}

// Send writes data to the fixed peer address.
func (e *Endpoint) Send(data []byte) error {
	if e.closed {
		return ErrClosed
	}
	if e.peer == nil {
		return ErrNoPeer
	}
	return e.SendTo(data, e.peer)
}

// SendTo writes data to an explicit peer address, and remembers it as
// the fixed peer for subsequent Send calls.
func (e *Endpoint) SendTo(data []byte, peer *net.UDPAddr) error {
	if e.closed {
		return ErrClosed
	}

	if _, err := e.conn.WriteToUDP(data, peer); err != nil {
		return fmt.Errorf("udp: send to %s: %w", peer, err)
	}

	e.peer = peer
	return nil
}

// Recv blocks for up to timeout waiting for one datagram. On success it
// returns the datagram bytes and the sender's address; on expiry it
// returns a Result with TimedOut set rather than a fatal error, so the
// Go-Back-N sender's retransmit-on-timeout path never has to sniff a
// net.Error for Timeout().
func (e *Endpoint) Recv(timeout time.Duration) (Result, error) {
	if e.closed {
		return Result{}, ErrClosed
	}

	if err := e.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return Result{}, fmt.Errorf("udp: set read deadline: %w", err)
	}

	buf := make([]byte, e.maxSize)
	n, from, err := e.conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return Result{TimedOut: true}, nil
		}
		return Result{}, fmt.Errorf("udp: recv: %w", err)
	}

	return Result{Data: buf[:n], From: from}, nil
}

// Close releases the endpoint's socket. It is safe to call more than
// once.
func (e *Endpoint) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.conn.Close()
}
