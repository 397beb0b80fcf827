package drtp

import "fmt"

// Wire-format constants, frozen by the protocol (see Header for field
// layout). PacketSize bounds total datagram size; ChunkSize is the
// payload budget left after the header; MaxFilenameLength is the width
// of the name field embedded in the first data payload.
const (
	PacketSize        = 1000
	ChunkSize         = PacketSize - HeaderSize // 994
	MaxFilenameLength = 32
)

// Packet is a decoded DRTP datagram: a header plus whatever payload
// bytes followed it.
type Packet struct {
	Header  Header
	Payload []byte
}

// Marshal serializes the packet to its wire form.
func (p Packet) Marshal() []byte {
	buf := Encode(p.Header.Seq, p.Header.Ack, p.Header.Flags)
	return append(buf, p.Payload...)
}

// Unmarshal decodes a packet from its wire form.
func Unmarshal(data []byte) (Packet, error) {
	h, err := Decode(data)
	if err != nil {
		return Packet{}, err
	}

	payload := data[HeaderSize:]
	if len(payload) > ChunkSize {
		return Packet{}, fmt.Errorf("drtp: payload too large: %d bytes", len(payload))
	}

	return Packet{Header: h, Payload: payload}, nil
}

// NewSYN builds the initiator's SYN packet: seq=0, ack=0, flags=SYN.
func NewSYN() Packet {
	return Packet{Header: Header{Seq: 0, Ack: 0, Flags: NewFlags(true, false, false, false)}}
}

// NewSYNACK builds the responder's SYN-ACK reply to a received SYN.
func NewSYNACK(receivedSeq uint16) Packet {
	return Packet{Header: Header{Seq: 0, Ack: receivedSeq + 1, Flags: NewFlags(true, true, false, false)}}
}

// NewHandshakeACK builds the initiator's final handshake ACK, echoing
// the SYN-ACK's ack field back as its own seq.
func NewHandshakeACK(receivedSeq, receivedAck uint16) Packet {
	return Packet{Header: Header{Seq: receivedAck, Ack: receivedSeq + 1, Flags: NewFlags(false, true, false, false)}}
}

// NewData builds a data packet carrying one chunk.
func NewData(seq, ack uint16, payload []byte) Packet {
	return Packet{Header: Header{Seq: seq, Ack: ack, Flags: Flags{}}, Payload: payload}
}

// NewDataACK builds the receiver's cumulative ACK for a data packet.
func NewDataACK(nextExpected uint16) Packet {
	return Packet{Header: Header{Seq: 0, Ack: nextExpected, Flags: NewFlags(false, true, false, false)}}
}

// NewFIN builds the sender's teardown FIN.
func NewFIN() Packet {
	return Packet{Header: Header{Flags: NewFlags(false, false, true, false)}}
}

// NewFINACK builds the receiver's FIN-ACK reply to a received FIN.
func NewFINACK(receivedSeq uint16) Packet {
	return Packet{Header: Header{Ack: receivedSeq + 1, Flags: NewFlags(false, true, true, false)}}
}
