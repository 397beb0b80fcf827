package drtp

import (
	"context"
	"fmt"
	"time"

	"github.com/kulaginds/drtp-go/internal/logging"
	"github.com/kulaginds/drtp-go/internal/transport/udp"
)

// Sender drives the Go-Back-N transfer of one file. It owns the
// endpoint, the framed chunks and the sliding window; all of this state
// is accessed from Run's single goroutine without locking, per the
// single-threaded cooperative scheduling model.
type Sender struct {
	ep          *udp.Endpoint
	windowCap   int
	rto         time.Duration
	reporter    Reporter
	showPackets bool

	chunks [][]byte // payload[1..N], chunks[i] is payload for seq i+1
	ackNum uint16    // fixed ack_num echoed on every data packet, from the handshake
}

// NewSender builds a Sender bound to ep, ready to send the chunks
// produced by FrameFile. windowCap is the configured maximum window
// size; rto is the retransmission timeout. showPackets enables a
// per-packet Debug trace line for every datagram sent or acked, the
// show_packets diagnostic toggle from spec.md §9.
func NewSender(ep *udp.Endpoint, chunks [][]byte, ackNum uint16, windowCap int, rto time.Duration, reporter Reporter, showPackets bool) *Sender {
	return &Sender{
		ep:          ep,
		windowCap:   windowCap,
		rto:         rto,
		reporter:    reporter,
		showPackets: showPackets,
		chunks:      chunks,
		ackNum:      ackNum,
	}
}

// Run executes the Go-Back-N send loop to completion: fill the window,
// wait for a cumulative ACK or a retransmission timeout, and repeat
// until every chunk has been sent and acknowledged. It returns once the
// transfer is complete; the caller is responsible for running teardown
// afterwards.
func (s *Sender) Run(ctx context.Context) error {
	n := len(s.chunks)
	nextToSend := 1
	expectedAck := uint16(2)
	window := make([]int, 0, s.windowCap)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		for len(window) < s.windowCap && nextToSend <= n {
			if err := s.sendChunk(nextToSend); err != nil {
				return err
			}
			window = append(window, nextToSend)
			report(s.reporter, "sent", nextToSend, n)
			nextToSend++
		}

		if len(window) == 0 && nextToSend > n {
			return nil
		}

		res, err := s.ep.Recv(s.rto)
		if err != nil {
			return fmt.Errorf("drtp: sender recv: %w", err)
		}

		if res.TimedOut {
			logging.Debug("sender: RTO, retransmitting window %v", window)
			for _, seq := range window {
				if err := s.sendChunk(seq); err != nil {
					return err
				}
			}
			continue
		}

		pkt, err := Unmarshal(res.Data)
		if err != nil {
			logging.Warn("sender: dropping malformed datagram: %v", err)
			continue
		}
		if !pkt.Header.Flags.ACK {
			continue
		}

		if s.showPackets {
			logging.Debug("sender: < seq=%d ack=%d flags=%s", pkt.Header.Seq, pkt.Header.Ack, pkt.Header.Flags)
		}

		ack := pkt.Header.Ack
		switch {
		case ack == expectedAck && len(window) > 0:
			window = window[1:]
			expectedAck++
			report(s.reporter, "acked", int(ack)-1, n)
		case ack > expectedAck:
			for expectedAck != ack && len(window) > 0 {
				window = window[1:]
				expectedAck++
			}
			report(s.reporter, "acked", int(ack)-1, n)
		default:
			// Stale or duplicate ACK: ignore, per the spec's cumulative-ACK
			// policy for ack_num < expected_ack.
		}
	}
}

func (s *Sender) sendChunk(seq int) error {
	pkt := NewData(uint16(seq), s.ackNum, s.chunks[seq-1])
	if s.showPackets {
		logging.Debug("sender: > seq=%d ack=%d flags=%s len=%d", pkt.Header.Seq, pkt.Header.Ack, pkt.Header.Flags, len(pkt.Payload))
	}
	if err := s.ep.Send(pkt.Marshal()); err != nil {
		return fmt.Errorf("drtp: sending data seq=%d: %w", seq, err)
	}
	return nil
}
