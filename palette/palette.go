/*
Package palette implements the Game Boy Advance 15-bit BGR color
palette format.

A palette on disk is 16 or 256 little-endian half-words, each packing
five bits per channel as 0bbbbbgggggrrrrr with the top bit unused. In
memory each entry widens to an 8-bit RGBA color with alpha fixed at
255.
*/
package palette

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/bodgit/agb/lz77"
	"github.com/bodgit/agb/rom"
)

const (
	// Colors16 and Colors256 are the only valid palette sizes.
	Colors16  = 16
	Colors256 = 256
)

// ErrPaletteSize is returned when palette data does not describe
// exactly 16 or 256 colors, whether as a requested count or as a
// decompressed byte length.
var ErrPaletteSize = errors.New("palette: not 16 or 256 colors")

// Palette is a decoded color table of exactly 16 or 256 entries.
type Palette struct {
	colors   []color.RGBA
	dataSize int
}

// Count returns the number of colors, 0 before a successful read.
func (p *Palette) Count() int {
	return len(p.colors)
}

// Colors returns the decoded RGBA entries.
func (p *Palette) Colors() []color.RGBA {
	return p.colors
}

// ColorPalette returns the entries as a stdlib color.Palette for use
// with image.Paletted.
func (p *Palette) ColorPalette() color.Palette {
	cp := make(color.Palette, len(p.colors))
	for i, c := range p.colors {
		cp[i] = c
	}
	return cp
}

// GL returns the entries as normalized floats suitable for uploading
// as a shader uniform, one [r, g, b, a] quadruple per color.
func (p *Palette) GL() [][4]float32 {
	gl := make([][4]float32, len(p.colors))
	for i, c := range p.colors {
		gl[i] = [4]float32{
			float32(c.R) / 255,
			float32(c.G) / 255,
			float32(c.B) / 255,
			float32(c.A) / 255,
		}
	}
	return gl
}

// SetColors replaces the color table. The slice must hold exactly 16
// or 256 entries.
func (p *Palette) SetColors(colors []color.RGBA) error {
	if len(colors) != Colors16 && len(colors) != Colors256 {
		return fmt.Errorf("%w: %d", ErrPaletteSize, len(colors))
	}
	p.colors = append([]color.RGBA(nil), colors...)
	return nil
}

// decode widens 15-bit BGR half-words into RGBA entries. Each 5-bit
// field maps to field*8, so the low three bits of every channel are
// zero and bit 15 is ignored.
func decode(entries []uint16) []color.RGBA {
	colors := make([]color.RGBA, len(entries))
	for i, e := range entries {
		colors[i] = color.RGBA{
			R: byte(e&0x001F) << 3,
			G: byte(e&0x03E0>>5) << 3,
			B: byte(e&0x7C00>>10) << 3,
			A: 255,
		}
	}
	return colors
}

// ReadUncompressed reads a raw palette of count colors at off.
func (p *Palette) ReadUncompressed(r *rom.Rom, off uint32, count int) error {
	if count != Colors16 && count != Colors256 {
		return fmt.Errorf("%w: %d", ErrPaletteSize, count)
	}
	if err := r.Seek(off); err != nil {
		return err
	}

	entries, err := r.ReadHWordTable(count)
	if err != nil {
		return err
	}

	p.colors = decode(entries)
	p.dataSize = count * 2

	return nil
}

// ReadCompressed reads an LZ77-compressed palette at off. The
// decompressed data must describe exactly 16 or 256 colors.
func (p *Palette) ReadCompressed(r *rom.Rom, off uint32) error {
	data, consumed, err := lz77.DecodeRom(r, off)
	if err != nil {
		return err
	}
	if len(data) != Colors16*2 && len(data) != Colors256*2 {
		return fmt.Errorf("%w: %d bytes", ErrPaletteSize, len(data))
	}

	entries := make([]uint16, len(data)/2)
	for i := range entries {
		entries[i] = uint16(data[i*2]) | uint16(data[i*2+1])<<8
	}

	p.colors = decode(entries)
	p.dataSize = consumed

	return nil
}

// Encode packs the color table back into little-endian half-words,
// narrowing each channel to five bits. The top bit is written as zero.
func (p *Palette) Encode() []byte {
	out := make([]byte, 0, len(p.colors)*2)
	for _, c := range p.colors {
		e := uint16(c.B>>3)<<10 | uint16(c.G>>3)<<5 | uint16(c.R>>3)
		out = append(out, byte(e), byte(e>>8))
	}
	return out
}

// encoded returns the on-disk form, compressed when asked.
func (p *Palette) encoded(compress bool) ([]byte, error) {
	b := p.Encode()
	if !compress {
		return b, nil
	}
	return lz77.Encode(b)
}

// RequiresRepoint reports whether writing the palette back in the
// given form would overrun the bytes it was read from.
func (p *Palette) RequiresRepoint(compress bool) (bool, error) {
	b, err := p.encoded(compress)
	if err != nil {
		return false, err
	}
	return len(b) > p.dataSize, nil
}

// Write stores the palette at off, LZ77-compressing it first when
// compress is set.
func (p *Palette) Write(r *rom.Rom, off uint32, compress bool) error {
	b, err := p.encoded(compress)
	if err != nil {
		return err
	}
	if err := r.Seek(off); err != nil {
		return err
	}
	return r.WriteBytes(b)
}
