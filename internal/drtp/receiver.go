package drtp

import (
	"fmt"
	"net"
	"time"

	"github.com/kulaginds/drtp-go/internal/logging"
	"github.com/kulaginds/drtp-go/internal/transport/udp"
)

// ErrReceiverTimeout is fatal: an idle receiver socket is treated as a
// dead peer, not recovered locally the way a sender's RTO is.
var ErrReceiverTimeout = fmt.Errorf("drtp: receiver idle timeout")

// Receiver accepts one Go-Back-N data stream, producing the ordered
// prefix of accepted payloads and a throughput summary. Like Sender, it
// is single-threaded and cooperative: the expected sequence number and
// accepted payloads are local to Run, and the discard hook's state is
// only touched from Run.
type Receiver struct {
	ep          *udp.Endpoint
	idleTimeout time.Duration
	discardOnce int // -1 disables the testing hook
	discardDone bool
	reporter    Reporter
	showPackets bool
}

// NewReceiver builds a Receiver bound to ep. discardOnce, if >= 0,
// causes the first non-FIN data packet with that sequence number to be
// silently dropped once, for exercising the sender's retransmission
// path. showPackets enables a per-packet Debug trace line for every
// datagram received or acked, the show_packets diagnostic toggle from
// spec.md §9.
func NewReceiver(ep *udp.Endpoint, idleTimeout time.Duration, discardOnce int, reporter Reporter, showPackets bool) *Receiver {
	return &Receiver{
		ep:          ep,
		idleTimeout: idleTimeout,
		discardOnce: discardOnce,
		reporter:    reporter,
		showPackets: showPackets,
	}
}

// Outcome is the result of a completed receive loop: the ordered
// payload chunks accepted, the peer that sent them, and how many bytes
// arrived across the whole loop (for the throughput meter).
type Outcome struct {
	Accepted   [][]byte
	Peer       *net.UDPAddr
	TotalBytes int64
	Elapsed    time.Duration
}

// Run reads data packets until a FIN arrives, replies with a FIN-ACK,
// and returns the accepted payloads in sequence order. Each packet is
// handled per the decision tree: discard-once hook, FIN, in-order
// accept, duplicate, or out-of-order silent drop. Each ACK is sent to
// the address the acknowledged datagram came from; Outcome.Peer is the
// address the FIN came from.
func (r *Receiver) Run() (Outcome, error) {
	expected := uint16(1)
	var accepted [][]byte
	var totalBytes int64

	start := timeNow()

	for {
		res, err := r.ep.Recv(r.idleTimeout)
		if err != nil {
			return Outcome{}, fmt.Errorf("drtp: receiver recv: %w", err)
		}
		if res.TimedOut {
			return Outcome{}, ErrReceiverTimeout
		}

		pkt, err := Unmarshal(res.Data)
		if err != nil {
			logging.Warn("receiver: dropping malformed datagram: %v", err)
			continue
		}
		totalBytes += int64(len(res.Data))

		if r.showPackets {
			logging.Debug("receiver: < seq=%d ack=%d flags=%s len=%d", pkt.Header.Seq, pkt.Header.Ack, pkt.Header.Flags, len(pkt.Payload))
		}

		if r.discardOnce >= 0 && !r.discardDone && !pkt.Header.Flags.FIN && pkt.Header.Seq == uint16(r.discardOnce) {
			r.discardDone = true
			logging.Debug("receiver: discarding seq=%d per test hook", pkt.Header.Seq)
			continue
		}

		if pkt.Header.Flags.FIN {
			if _, err := ServerTeardown(r.ep, res.From, pkt.Header.Seq); err != nil {
				return Outcome{}, err
			}
			return Outcome{
				Accepted:   accepted,
				Peer:       res.From,
				TotalBytes: totalBytes,
				Elapsed:    timeNow().Sub(start),
			}, nil
		}

		switch {
		case pkt.Header.Seq == expected:
			accepted = append(accepted, pkt.Payload)
			expected++
			r.ack(res.From, pkt.Header.Seq)
			report(r.reporter, "received", int(pkt.Header.Seq), 0)
		case pkt.Header.Seq < expected:
			// Duplicate: already accepted, but still ACK so the sender can
			// advance past a retransmitted burst.
			r.ack(res.From, pkt.Header.Seq)
		default:
			// Out-of-order: silently dropped. Go-Back-N means the sender
			// will retransmit this sequence on its next RTO.
		}
	}
}

func (r *Receiver) ack(peer *net.UDPAddr, receivedSeq uint16) {
	ack := NewDataACK(receivedSeq + 1)
	if r.showPackets {
		logging.Debug("receiver: > seq=%d ack=%d flags=%s", ack.Header.Seq, ack.Header.Ack, ack.Header.Flags)
	}
	if err := r.ep.SendTo(ack.Marshal(), peer); err != nil {
		logging.Warn("receiver: failed to send ACK for seq=%d: %v", receivedSeq, err)
	}
}

// timeNow is a seam so tests could substitute a fake clock; production
// code always uses the real wall clock.
var timeNow = time.Now
