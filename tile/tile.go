/*
Package tile implements the Game Boy Advance tiled graphics formats.

Graphics are stored as a row-major grid of 8 by 8 pixel tiles. A 4bpp
tile is 32 bytes with two palette indices per byte, low nibble first; an
8bpp tile is 64 bytes with one index per byte. Decoding flattens the
tiles into a linear 8bpp raster, one byte per pixel, row-major with y
increasing downward.
*/
package tile

import (
	"errors"
	"fmt"

	"github.com/bodgit/agb/palette"
)

const (
	tileWidth  = 8
	tileHeight = tileWidth
	tilePixels = tileWidth * tileHeight

	bytesPerTile4bpp = tilePixels / 2
	bytesPerTile8bpp = tilePixels
)

var (
	// ErrBadGeometry is returned when a width or height is not a
	// positive multiple of 8, or a byte length is not a multiple of 2.
	ErrBadGeometry = errors.New("tile: bad geometry")

	// ErrIndexRange is returned when a pixel index does not fit the
	// target bit depth.
	ErrIndexRange = errors.New("tile: palette index out of range")

	// ErrNoPalette is returned when rendering is attempted without an
	// attached palette.
	ErrNoPalette = errors.New("tile: no palette attached")
)

// Image is a decoded tile graphic: a linear 8bpp raster whose width
// and height are multiples of 8. When the source data ends inside the
// last tile row the remaining pixels stay zero.
//
// An Image holds a non-owning reference to the Palette it renders
// with; the palette must outlive any rendering use.
type Image struct {
	data     []byte
	width    int
	height   int
	is4bpp   bool
	pal      *palette.Palette
	dataSize int
}

func bytesPerTile(is4bpp bool) int {
	if is4bpp {
		return bytesPerTile4bpp
	}
	return bytesPerTile8bpp
}

// deriveHeight rounds the decoded byte count up to whole tile rows.
func deriveHeight(length, width int, is4bpp bool) int {
	per := bytesPerTile(is4bpp)
	tiles := (length + per - 1) / per
	tilesPerRow := width / tileWidth
	tileRows := (tiles + tilesPerRow - 1) / tilesPerRow
	return tileRows * tileHeight
}

// Width returns the raster width in pixels.
func (m *Image) Width() int {
	return m.width
}

// Height returns the raster height in pixels.
func (m *Image) Height() int {
	return m.height
}

// Is4bpp reports the bit depth the image was read with or will be
// written as.
func (m *Image) Is4bpp() bool {
	return m.is4bpp
}

// Raster returns the linear 8bpp pixel data, one palette index per
// byte.
func (m *Image) Raster() []byte {
	return m.data
}

// Palette returns the attached palette, nil if none.
func (m *Image) Palette() *palette.Palette {
	return m.pal
}

// SetPalette attaches the palette used for rendering. The image does
// not take ownership.
func (m *Image) SetPalette(p *palette.Palette) {
	m.pal = p
}

// PixelAt returns the palette index at (x, y).
func (m *Image) PixelAt(x, y int) byte {
	return m.data[y*m.width+x]
}

// SetPixel stores a palette index at (x, y).
func (m *Image) SetPixel(x, y int, index byte) {
	m.data[y*m.width+x] = index
}

// SetRaster replaces the pixel data with a raster of the given
// geometry. Width and height must be positive multiples of 8 and the
// slice must hold width*height bytes.
func (m *Image) SetRaster(data []byte, width, height int, is4bpp bool) error {
	if width <= 0 || height <= 0 || width%tileWidth != 0 || height%tileHeight != 0 {
		return fmt.Errorf("%w: %dx%d", ErrBadGeometry, width, height)
	}
	if len(data) != width*height {
		return fmt.Errorf("%w: %d bytes for %dx%d", ErrBadGeometry, len(data), width, height)
	}

	m.data = append([]byte(nil), data...)
	m.width = width
	m.height = height
	m.is4bpp = is4bpp

	return nil
}

// SetRect copies src, a w by h row-major block of indices, into the
// raster with its top-left corner at (x, y).
func (m *Image) SetRect(x, y, w, h int, src []byte) error {
	if x < 0 || y < 0 || w < 0 || h < 0 || x+w > m.width || y+h > m.height {
		return fmt.Errorf("%w: rect %d,%d %dx%d in %dx%d", ErrBadGeometry, x, y, w, h, m.width, m.height)
	}
	if len(src) != w*h {
		return fmt.Errorf("%w: %d bytes for %dx%d rect", ErrBadGeometry, len(src), w, h)
	}

	for dy := 0; dy < h; dy++ {
		copy(m.data[(y+dy)*m.width+x:(y+dy)*m.width+x+w], src[dy*w:(dy+1)*w])
	}

	return nil
}
