package drtp

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/kulaginds/drtp-go/internal/transport/udp"
)

// State is a connection lifecycle state shared by both the sender and
// receiver state machines. Not every state is reachable from every
// side: a sender moves CLOSED -> SynSent -> Established -> FinSent ->
// CLOSED, a receiver moves CLOSED -> SynReceived -> Established ->
// CLOSED.
type State int

const (
	StateClosed State = iota
	StateSynSent
	StateSynReceived
	StateEstablished
	StateFinSent
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateSynSent:
		return "SYN_SENT"
	case StateSynReceived:
		return "SYN_RCVD"
	case StateEstablished:
		return "ESTABLISHED"
	case StateFinSent:
		return "FIN_SENT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// ErrHandshakeMismatch is fatal: the handshake performs no retries, so
// any missing or incorrectly flagged packet aborts the endpoint.
var ErrHandshakeMismatch = errors.New("drtp: handshake mismatch")

// ClientHandshake runs the three-way open as the initiator: send SYN,
// wait for SYN-ACK, send the final ACK. It returns the ack_num value
// the sender embeds in every subsequent data packet: one past the
// SYN-ACK's own ack field, which equals the sender's initial expected_ack
// of 2 (data packet ack_num is vestigial; the receiver does not use it
// for ordering).
func ClientHandshake(ep *udp.Endpoint, timeout time.Duration) (dataAck uint16, state State, err error) {
	if err := ep.Send(NewSYN().Marshal()); err != nil {
		return 0, StateClosed, fmt.Errorf("drtp: sending SYN: %w", err)
	}
	state = StateSynSent

	res, err := ep.Recv(timeout)
	if err != nil {
		return 0, state, fmt.Errorf("drtp: waiting for SYN-ACK: %w", err)
	}
	if res.TimedOut {
		return 0, state, fmt.Errorf("%w: no SYN-ACK within %s", ErrHandshakeMismatch, timeout)
	}

	synAck, err := Unmarshal(res.Data)
	if err != nil {
		return 0, state, fmt.Errorf("drtp: decoding SYN-ACK: %w", err)
	}
	if !synAck.Header.Flags.SYN || !synAck.Header.Flags.ACK {
		return 0, state, fmt.Errorf("%w: expected SYN|ACK, got %s", ErrHandshakeMismatch, synAck.Header.Flags)
	}

	ack := NewHandshakeACK(synAck.Header.Seq, synAck.Header.Ack)
	if err := ep.Send(ack.Marshal()); err != nil {
		return 0, state, fmt.Errorf("drtp: sending ACK: %w", err)
	}

	return synAck.Header.Ack + 1, StateEstablished, nil
}

// ServerHandshake runs the three-way open as the responder: wait for
// SYN, reply SYN-ACK, wait for the final ACK. It returns the peer
// address learned from the SYN datagram.
func ServerHandshake(ep *udp.Endpoint, timeout time.Duration) (peer *net.UDPAddr, state State, err error) {
	res, err := ep.Recv(timeout)
	if err != nil {
		return nil, StateClosed, fmt.Errorf("drtp: waiting for SYN: %w", err)
	}
	if res.TimedOut {
		return nil, StateClosed, fmt.Errorf("%w: no SYN within %s", ErrHandshakeMismatch, timeout)
	}

	syn, err := Unmarshal(res.Data)
	if err != nil {
		return nil, StateClosed, fmt.Errorf("drtp: decoding SYN: %w", err)
	}
	if !syn.Header.Flags.SYN {
		return nil, StateClosed, fmt.Errorf("%w: expected SYN, got %s", ErrHandshakeMismatch, syn.Header.Flags)
	}
	peer = res.From
	state = StateSynReceived

	synAck := NewSYNACK(syn.Header.Seq)
	if err := ep.SendTo(synAck.Marshal(), peer); err != nil {
		return peer, state, fmt.Errorf("drtp: sending SYN-ACK: %w", err)
	}

	res, err = ep.Recv(timeout)
	if err != nil {
		return peer, state, fmt.Errorf("drtp: waiting for final ACK: %w", err)
	}
	if res.TimedOut {
		return peer, state, fmt.Errorf("%w: no final ACK within %s", ErrHandshakeMismatch, timeout)
	}

	finalAck, err := Unmarshal(res.Data)
	if err != nil {
		return peer, state, fmt.Errorf("drtp: decoding final ACK: %w", err)
	}
	if !finalAck.Header.Flags.ACK {
		return peer, state, fmt.Errorf("%w: expected ACK, got %s", ErrHandshakeMismatch, finalAck.Header.Flags)
	}

	return peer, StateEstablished, nil
}

// ClientTeardown runs the two-way close as the initiator: send FIN,
// wait for FIN-ACK.
func ClientTeardown(ep *udp.Endpoint, timeout time.Duration) (State, error) {
	if err := ep.Send(NewFIN().Marshal()); err != nil {
		return StateEstablished, fmt.Errorf("drtp: sending FIN: %w", err)
	}

	res, err := ep.Recv(timeout)
	if err != nil {
		return StateFinSent, fmt.Errorf("drtp: waiting for FIN-ACK: %w", err)
	}
	if res.TimedOut {
		return StateFinSent, fmt.Errorf("%w: no FIN-ACK within %s", ErrHandshakeMismatch, timeout)
	}

	finAck, err := Unmarshal(res.Data)
	if err != nil {
		return StateFinSent, fmt.Errorf("drtp: decoding FIN-ACK: %w", err)
	}
	if !finAck.Header.Flags.FIN || !finAck.Header.Flags.ACK {
		return StateFinSent, fmt.Errorf("%w: expected FIN|ACK, got %s", ErrHandshakeMismatch, finAck.Header.Flags)
	}

	return StateClosed, nil
}

// ServerTeardown replies to a received FIN with a FIN-ACK and
// transitions to Closed. The receiver calls this from inside its main
// loop when it decodes a FIN packet.
func ServerTeardown(ep *udp.Endpoint, peer *net.UDPAddr, receivedSeq uint16) (State, error) {
	finAck := NewFINACK(receivedSeq)
	if err := ep.SendTo(finAck.Marshal(), peer); err != nil {
		return StateEstablished, fmt.Errorf("drtp: sending FIN-ACK: %w", err)
	}
	return StateClosed, nil
}
