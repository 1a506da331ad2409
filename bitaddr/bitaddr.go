/*
Package bitaddr implements bit granular addresses into a byte addressed
source.

An Address is a byte offset plus a bit offset of 0 to 7 counted from the most
significant bit of that byte. All arithmetic is performed on the flattened
bit count and the result is normalised again so the bit offset always stays
in range.
*/
package bitaddr

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when a bit offset is outside 0 to 7.
var ErrOutOfRange = errors.New("bitaddr: bit offset out of range")

// Zero is the address of the first bit of a source.
var Zero = Address{}

// Address is an immutable bit position.
type Address struct {
	byteOffset int64
	bitOffset  uint8
}

// New returns the address of bit bitOffset within byte byteOffset.
func New(byteOffset int64, bitOffset int) (Address, error) {
	if bitOffset < 0 || bitOffset > 7 {
		return Address{}, fmt.Errorf("%w: %d", ErrOutOfRange, bitOffset)
	}
	return Address{byteOffset, uint8(bitOffset)}, nil
}

// FromBits returns the address bits bits from the start of a source.
func FromBits(bits int64) Address {
	b := bits >> 3 // arithmetic shift floors negative counts
	return Address{b, uint8(bits - b<<3)}
}

// FromByte returns the address of the first bit of byte b.
func FromByte(b int64) Address {
	return Address{b, 0}
}

// ByteOffset returns the byte containing the addressed bit.
func (a Address) ByteOffset() int64 { return a.byteOffset }

// BitOffset returns the position of the bit within its byte, 0 being the
// most significant bit.
func (a Address) BitOffset() int { return int(a.bitOffset) }

// Bits returns the flattened bit count.
func (a Address) Bits() int64 { return a.byteOffset<<3 + int64(a.bitOffset) }

// Add returns a + b.
func (a Address) Add(b Address) Address { return FromBits(a.Bits() + b.Bits()) }

// Sub returns a - b.
func (a Address) Sub(b Address) Address { return FromBits(a.Bits() - b.Bits()) }

// AddBits returns the address n bits after a.
func (a Address) AddBits(n int64) Address { return FromBits(a.Bits() + n) }

// Compare returns -1, 0 or +1 depending on whether a is before, equal to or
// after b.
func (a Address) Compare(b Address) int {
	switch x, y := a.Bits(), b.Bits(); {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

// Less reports whether a is before b.
func (a Address) Less(b Address) bool { return a.Bits() < b.Bits() }

// IsByteAligned reports whether the address starts on a byte boundary.
func (a Address) IsByteAligned() bool { return a.bitOffset == 0 }

func (a Address) String() string {
	return fmt.Sprintf("0x%X.%d", a.byteOffset, a.bitOffset)
}
