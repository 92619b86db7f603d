package tile

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/ericpauley/go-quantize/quantize"

	"github.com/bodgit/agb/lz77"
	"github.com/bodgit/agb/palette"
	"github.com/bodgit/agb/rom"
)

// Encode packs the raster back into planar tile data: tiles in
// row-major order, rows top to bottom inside each tile. At 4bpp two
// adjacent pixels share a byte, the even x pixel in the low nibble.
func (m *Image) Encode() ([]byte, error) {
	max := byte(255)
	if m.is4bpp {
		max = 15
	}

	out := make([]byte, 0, len(m.data)*int(bytesPerTile(m.is4bpp))/tilePixels)
	for ty := 0; ty < m.height/tileHeight; ty++ {
		for tx := 0; tx < m.width/tileWidth; tx++ {
			for y := 0; y < tileHeight; y++ {
				row := (ty*tileHeight + y) * m.width
				if m.is4bpp {
					for x := 0; x < tileWidth; x += 2 {
						even := m.data[row+tx*tileWidth+x]
						odd := m.data[row+tx*tileWidth+x+1]
						if even > max || odd > max {
							return nil, fmt.Errorf("%w: index at (%d, %d)", ErrIndexRange, tx*tileWidth+x, ty*tileHeight+y)
						}
						out = append(out, odd<<4|even)
					}
				} else {
					for x := 0; x < tileWidth; x++ {
						out = append(out, m.data[row+tx*tileWidth+x])
					}
				}
			}
		}
	}

	return out, nil
}

// encoded returns the on-disk form, compressed when asked.
func (m *Image) encoded(compress bool) ([]byte, error) {
	b, err := m.Encode()
	if err != nil {
		return nil, err
	}
	if !compress {
		return b, nil
	}
	return lz77.Encode(b)
}

// RequiresRepoint reports whether writing the image back in the given
// form would overrun the bytes it was read from.
func (m *Image) RequiresRepoint(compress bool) (bool, error) {
	b, err := m.encoded(compress)
	if err != nil {
		return false, err
	}
	return len(b) > m.dataSize, nil
}

// Write stores the image at off, LZ77-compressing it first when
// compress is set.
func (m *Image) Write(r *rom.Rom, off uint32, compress bool) error {
	b, err := m.encoded(compress)
	if err != nil {
		return err
	}
	if err := r.Seek(off); err != nil {
		return err
	}
	return r.WriteBytes(b)
}

// Paletted renders the raster through the attached palette as a
// stdlib paletted image.
func (m *Image) Paletted() (*image.Paletted, error) {
	if m.pal == nil {
		return nil, ErrNoPalette
	}

	pm := image.NewPaletted(image.Rect(0, 0, m.width, m.height), m.pal.ColorPalette())
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			pm.SetColorIndex(x, y, m.PixelAt(x, y))
		}
	}

	return pm, nil
}

func paletteSize(is4bpp bool) int {
	if is4bpp {
		return palette.Colors16
	}
	return palette.Colors256
}

// padColors grows a color table to exactly 16 or 256 entries with
// opaque black.
func padColors(cp color.Palette, is4bpp bool) []color.RGBA {
	colors := make([]color.RGBA, paletteSize(is4bpp))
	for i := range colors {
		if i < len(cp) {
			r, g, b, _ := cp[i].RGBA()
			colors[i] = color.RGBA{byte(r >> 8), byte(g >> 8), byte(b >> 8), 255}
		} else {
			colors[i] = color.RGBA{0, 0, 0, 255}
		}
	}
	return colors
}

// FromPaletted imports an indexed image whose dimensions are multiples
// of 8. The image's palette is padded to 16 or 256 colors and attached
// as a fresh Palette.
func (m *Image) FromPaletted(pm *image.Paletted, is4bpp bool) error {
	b := pm.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || w%tileWidth != 0 || h%tileHeight != 0 {
		return fmt.Errorf("%w: %dx%d", ErrBadGeometry, w, h)
	}
	if len(pm.Palette) > paletteSize(is4bpp) {
		return fmt.Errorf("%w: %d colors", ErrIndexRange, len(pm.Palette))
	}

	data := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			data[y*w+x] = pm.ColorIndexAt(b.Min.X+x, b.Min.Y+y)
		}
	}

	pal := new(palette.Palette)
	if err := pal.SetColors(padColors(pm.Palette, is4bpp)); err != nil {
		return err
	}

	m.data = data
	m.width = w
	m.height = h
	m.is4bpp = is4bpp
	m.pal = pal

	return nil
}

// FromImage imports an arbitrary image, quantizing it down to 16 or
// 256 colors first when it is not already indexed that small.
func (m *Image) FromImage(src image.Image, is4bpp bool) error {
	b := src.Bounds()

	pm, _ := src.(*image.Paletted)
	if pm == nil || len(pm.Palette) > paletteSize(is4bpp) {
		q := quantize.MedianCutQuantizer{}
		pm = image.NewPaletted(b, q.Quantize(make(color.Palette, 0, paletteSize(is4bpp)), src))
		draw.Draw(pm, b, src, b.Min, draw.Src)
	}

	// Adjust image so that top-left corner is at (0, 0)
	if pm.Rect.Min != (image.Point{}) {
		dup := *pm
		dup.Rect = dup.Rect.Sub(dup.Rect.Min)
		pm = &dup
	}

	return m.FromPaletted(pm, is4bpp)
}
