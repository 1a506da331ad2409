/*
Package bitstream implements an MSB first bit cursor over a byte buffer.

A Stream covers a window of bits which does not need to start or end on a
byte boundary; the first byte of the buffer may only have its low
firstByteBits bits belonging to the stream and the last byte may be cut short
as well. Console graphics routinely start mid-byte so every codec reads and
writes element data through a Stream.
*/
package bitstream

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrEndOfStream is returned when a read or write needs more bits than
	// remain in the stream.
	ErrEndOfStream = errors.New("bitstream: end of stream")
	// ErrOutOfRange is returned for seeks outside the stream and for bit
	// counts outside 1 to 32.
	ErrOutOfRange = errors.New("bitstream: out of range")
)

// Stream is a bit cursor. The zero value is an empty stream.
type Stream struct {
	buf []byte

	start  int64 // bit offset of the window within buf
	length int64 // bits in the window

	index     int   // current byte within buf
	bitsLeft  int   // unread bits in buf[index], 1 to 8
	remaining int64 // unread bits in the window
}

func bytesFor(firstByteBits int, dataBits int64) int {
	return int((int64(8-firstByteBits) + dataBits + 7) >> 3)
}

func checkFirstByteBits(firstByteBits int) error {
	if firstByteBits < 1 || firstByteBits > 8 {
		return fmt.Errorf("%w: first byte bits %d", ErrOutOfRange, firstByteBits)
	}
	return nil
}

// NewReader returns a Stream over buf holding dataBits bits where only the
// low firstByteBits bits of buf[0] are part of the stream.
func NewReader(buf []byte, firstByteBits int, dataBits int64) (*Stream, error) {
	if err := checkFirstByteBits(firstByteBits); err != nil {
		return nil, err
	}
	if dataBits < 0 || bytesFor(firstByteBits, dataBits) > len(buf) {
		return nil, fmt.Errorf("%w: %d bits do not fit in %d bytes", ErrOutOfRange, dataBits, len(buf))
	}
	s := &Stream{
		buf:    buf,
		start:  int64(8 - firstByteBits),
		length: dataBits,
	}
	s.reset(0)
	return s, nil
}

// NewReaderFrom reads exactly enough bytes from r to hold dataBits bits
// beginning firstByteBits from the end of the first byte. The bits of the
// first byte in front of the stream are masked off.
func NewReaderFrom(r io.Reader, dataBits int64, firstByteBits int) (*Stream, error) {
	if err := checkFirstByteBits(firstByteBits); err != nil {
		return nil, err
	}
	if dataBits < 0 {
		return nil, fmt.Errorf("%w: %d bits", ErrOutOfRange, dataBits)
	}
	buf := make([]byte, bytesFor(firstByteBits, dataBits))
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrEndOfStream
		}
		return nil, err
	}
	if len(buf) > 0 {
		buf[0] &= byte(1<<firstByteBits - 1)
	}
	return NewReader(buf, firstByteBits, dataBits)
}

// NewWriter allocates a zeroed buffer large enough for dataBits bits
// starting firstByteBits from the end of the first byte.
func NewWriter(dataBits int64, firstByteBits int) (*Stream, error) {
	if err := checkFirstByteBits(firstByteBits); err != nil {
		return nil, err
	}
	if dataBits < 0 {
		return nil, fmt.Errorf("%w: %d bits", ErrOutOfRange, dataBits)
	}
	return NewReader(make([]byte, bytesFor(firstByteBits, dataBits)), firstByteBits, dataBits)
}

func (s *Stream) reset(pos int64) {
	abs := s.start + pos
	s.index = int(abs >> 3)
	s.bitsLeft = 8 - int(abs&7)
	s.remaining = s.length - pos
}

func (s *Stream) advance(n int) {
	s.bitsLeft -= n
	s.remaining -= int64(n)
	if s.bitsLeft == 0 {
		s.index++
		s.bitsLeft = 8
	}
}

// Bytes returns the underlying buffer.
func (s *Stream) Bytes() []byte { return s.buf }

// Len returns the number of bits in the stream.
func (s *Stream) Len() int64 { return s.length }

// Position returns the cursor as a bit offset from the start of the stream.
func (s *Stream) Position() int64 { return s.length - s.remaining }

// Remaining returns the number of bits after the cursor.
func (s *Stream) Remaining() int64 { return s.remaining }

// SeekAbsolute moves the cursor to bit offset pos of the stream.
func (s *Stream) SeekAbsolute(pos int64) error {
	if pos < 0 || pos >= s.length {
		return fmt.Errorf("%w: seek to %d of %d bits", ErrOutOfRange, pos, s.length)
	}
	s.reset(pos)
	return nil
}

// SeekRelative moves the cursor by n bits.
func (s *Stream) SeekRelative(n int64) error {
	return s.SeekAbsolute(s.Position() + n)
}

func checkCount(n int) error {
	if n < 1 || n > 32 {
		return fmt.Errorf("%w: %d bits", ErrOutOfRange, n)
	}
	return nil
}

// ReadBits reads n bits, 1 to 32, and returns them right aligned with the
// first bit read as the most significant.
func (s *Stream) ReadBits(n int) (uint32, error) {
	if err := checkCount(n); err != nil {
		return 0, err
	}
	if int64(n) > s.remaining {
		return 0, ErrEndOfStream
	}

	var v uint32
	for n > 0 {
		take := min(n, s.bitsLeft)
		shift := s.bitsLeft - take
		part := s.buf[s.index] >> shift & byte(1<<take-1)
		v = v<<take | uint32(part)
		s.advance(take)
		n -= take
	}
	return v, nil
}

// ReadBit reads a single bit.
func (s *Stream) ReadBit() (uint8, error) {
	v, err := s.ReadBits(1)
	return uint8(v), err
}

// ReadByte reads eight bits.
func (s *Stream) ReadByte() (byte, error) {
	v, err := s.ReadBits(8)
	return byte(v), err
}

// WriteBits writes the low n bits of v, 1 to 32, most significant first.
// Bits of the buffer outside those written are left untouched.
func (s *Stream) WriteBits(v uint32, n int) error {
	if err := checkCount(n); err != nil {
		return err
	}
	if int64(n) > s.remaining {
		return ErrEndOfStream
	}

	for n > 0 {
		take := min(n, s.bitsLeft)
		shift := s.bitsLeft - take
		mask := byte(1<<take-1) << shift
		part := byte(v>>(n-take)) << shift & mask
		s.buf[s.index] = s.buf[s.index]&^mask | part
		s.advance(take)
		n -= take
	}
	return nil
}

// WriteBit writes the low bit of b.
func (s *Stream) WriteBit(b uint8) error {
	return s.WriteBits(uint32(b), 1)
}

// WriteByte writes eight bits.
func (s *Stream) WriteByte(c byte) error {
	return s.WriteBits(uint32(c), 8)
}
