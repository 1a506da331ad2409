package tilekit

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/bodgit/tilekit/bitaddr"
)

// Data file kinds.
const (
	KindFile       = "file"
	KindCue        = "cue"
	KindCompressed = "zstd"
)

// Color source kinds.
const (
	SourceFile    = "file"
	SourceNative  = "native"
	SourceForeign = "foreign"
)

var errBadRecord = errors.New("tilekit: bad record")

// DataFileRecord describes a data file.
type DataFileRecord struct {
	Key      string
	Name     string
	Location string
	Kind     string
	// CRC is the IEEE CRC-32 of the contents when the file was added.
	CRC uint32
}

// ColorSourceRecord is one run of palette entries. File sources read
// Entries colors from DataFileKey at FileOffset and BitOffset, native
// sources list #RRGGBBAA colors and foreign sources list packed colors.
type ColorSourceRecord struct {
	Kind        string
	DataFileKey string
	FileOffset  string
	BitOffset   int
	Entries     int
	Native      []string
	Foreign     []uint32
}

// PaletteRecord describes a palette.
type PaletteRecord struct {
	Key                  string
	Name                 string
	ColorModel           string
	ZeroIndexTransparent bool
	Sources              []ColorSourceRecord
}

// ElementRecord describes one element of a scattered arranger. PosX and PosY
// are element coordinates. Empty keys and codec name fall back to the
// arranger defaults.
type ElementRecord struct {
	FileOffset  string
	BitOffset   int
	PosX        int
	PosY        int
	CodecName   string
	PaletteKey  string
	DataFileKey string
	Mirror      string
	Rotation    string
}

// ArrangerRecord describes an arranger. Sequential arrangers store their
// address and tile layout instead of elements.
type ArrangerRecord struct {
	Key             string
	Name            string
	ElementsX       int
	ElementsY       int
	ElementWidth    int
	ElementHeight   int
	Layout          string
	Color           string
	DefaultCodec    string
	DefaultDataFile string
	DefaultPalette  string

	Sequential bool
	FileOffset string
	BitOffset  int
	TileLayout string

	Elements []ElementRecord
}

// FormatOffset returns the byte offset of addr in hex.
func FormatOffset(addr bitaddr.Address) string {
	return strconv.FormatInt(addr.ByteOffset(), 16)
}

// ParseAddress is the inverse of FormatOffset, adding bitOffset bits. A
// leading 0x is optional and an empty offset is zero.
func ParseAddress(offset string, bitOffset int) (bitaddr.Address, error) {
	offset = strings.TrimPrefix(strings.TrimPrefix(offset, "0x"), "0X")
	var b int64
	if offset != "" {
		var err error
		if b, err = strconv.ParseInt(offset, 16, 64); err != nil {
			return bitaddr.Address{}, fmt.Errorf("%w: offset %q: %w", errBadRecord, offset, err)
		}
	}
	return bitaddr.New(b, bitOffset)
}

// FormatColor returns c as #RRGGBBAA.
func FormatColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}

// ParseColor is the inverse of FormatColor. The alpha channel is optional
// and defaults to opaque.
func ParseColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) == 6 {
		h += "FF"
	}
	if len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("%w: color %q", errBadRecord, s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: color %q: %w", errBadRecord, s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
