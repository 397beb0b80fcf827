package drtp

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := func(seq, ack uint16, rawFlags uint8) bool {
		flags := ParseFlags(uint16(rawFlags & 0x0f))
		buf := Encode(seq, ack, flags)

		got, err := Decode(buf)
		if err != nil {
			return false
		}

		return got.Seq == seq && got.Ack == ack && got.Flags == flags
	}

	require.NoError(t, quick.Check(f, nil))
}

func TestFlagsRoundTrip(t *testing.T) {
	for syn := 0; syn < 2; syn++ {
		for ack := 0; ack < 2; ack++ {
			for fin := 0; fin < 2; fin++ {
				for rst := 0; rst < 2; rst++ {
					want := NewFlags(syn == 1, ack == 1, fin == 1, rst == 1)
					got := ParseFlags(want.Bits())
					assert.Equal(t, want, got)
				}
			}
		}
	}
}

func TestDecodeTooShort(t *testing.T) {
	_, err := Decode([]byte{0x00, 0x01, 0x02})
	require.ErrorIs(t, err, ErrInvalidHeader)
}

func TestEncodeIgnoresReservedBits(t *testing.T) {
	buf := Encode(1, 2, NewFlags(true, false, false, false))
	assert.Equal(t, []byte{0x00, 0x01, 0x00, 0x02, 0x00, byte(FlagSYN)}, buf)
}

func TestFlagsString(t *testing.T) {
	assert.Equal(t, "-", NewFlags(false, false, false, false).String())
	assert.Equal(t, "SYN|ACK", NewFlags(true, true, false, false).String())
}
