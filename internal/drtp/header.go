// Package drtp implements the Datagram Reliable Transfer Protocol: a
// Go-Back-N file transfer scheme over a single UDP socket, with a
// three-way handshake, cumulative ACKs and a two-way teardown.
package drtp

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the fixed size of the DRTP header in bytes.
const HeaderSize = 6

// Flag bits within the 16-bit flags field. Only the low 4 bits are
// defined; bits 15..4 are reserved and must be zero on transmit.
const (
	FlagRST uint16 = 1 << 0
	FlagFIN uint16 = 1 << 1
	FlagACK uint16 = 1 << 2
	FlagSYN uint16 = 1 << 3

	flagMask = FlagSYN | FlagACK | FlagFIN | FlagRST
)

// ErrInvalidHeader is returned by Decode when the input is shorter than
// HeaderSize.
var ErrInvalidHeader = errors.New("drtp: invalid header")

// Flags is the decoded form of the header's flags field.
type Flags struct {
	SYN bool
	ACK bool
	FIN bool
	RST bool
}

// NewFlags builds a Flags value from its four named bits.
func NewFlags(syn, ack, fin, rst bool) Flags {
	return Flags{SYN: syn, ACK: ack, FIN: fin, RST: rst}
}

// Bits packs the flags into the wire representation (bit3 SYN, bit2 ACK,
// bit1 FIN, bit0 RST).
func (f Flags) Bits() uint16 {
	var bits uint16
	if f.SYN {
		bits |= FlagSYN
	}
	if f.ACK {
		bits |= FlagACK
	}
	if f.FIN {
		bits |= FlagFIN
	}
	if f.RST {
		bits |= FlagRST
	}
	return bits
}

// ParseFlags extracts the four named bits from a raw flags field,
// ignoring any set bits above bit 3.
func ParseFlags(bits uint16) Flags {
	return Flags{
		SYN: bits&FlagSYN != 0,
		ACK: bits&FlagACK != 0,
		FIN: bits&FlagFIN != 0,
		RST: bits&FlagRST != 0,
	}
}

func (f Flags) String() string {
	s := ""
	if f.SYN {
		s += "SYN|"
	}
	if f.ACK {
		s += "ACK|"
	}
	if f.FIN {
		s += "FIN|"
	}
	if f.RST {
		s += "RST|"
	}
	if s == "" {
		return "-"
	}
	return s[:len(s)-1]
}

// Header is the fixed 6-byte DRTP header: a 16-bit sequence number, a
// 16-bit cumulative ACK number and a 16-bit flags field, all big-endian.
type Header struct {
	Seq   uint16
	Ack   uint16
	Flags Flags
}

// Encode packs the header into a 6-byte big-endian buffer.
func Encode(seq, ack uint16, flags Flags) []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(buf[0:2], seq)
	binary.BigEndian.PutUint16(buf[2:4], ack)
	binary.BigEndian.PutUint16(buf[4:6], flags.Bits()&flagMask)
	return buf
}

// Decode unpacks a Header from the leading HeaderSize bytes of data.
func Decode(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: got %d bytes, want at least %d", ErrInvalidHeader, len(data), HeaderSize)
	}

	return Header{
		Seq:   binary.BigEndian.Uint16(data[0:2]),
		Ack:   binary.BigEndian.Uint16(data[2:4]),
		Flags: ParseFlags(binary.BigEndian.Uint16(data[4:6])),
	}, nil
}
