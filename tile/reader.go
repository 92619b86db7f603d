package tile

import (
	"fmt"

	"github.com/bodgit/agb/lz77"
	"github.com/bodgit/agb/rom"
)

// decode flattens planar tile data into a linear raster. The raster is
// allocated to whole tile rows and zero-initialized, so data ending
// inside the last tile row leaves the remaining pixels at index zero.
func decode(data []byte, width int, is4bpp bool) ([]byte, int) {
	height := deriveHeight(len(data), width, is4bpp)
	raster := make([]byte, width*height)

	in := 0
scan:
	for ty := 0; ty < height/tileHeight; ty++ {
		for tx := 0; tx < width/tileWidth; tx++ {
			for y := 0; y < tileHeight; y++ {
				row := (ty*tileHeight + y) * width
				if is4bpp {
					for x := 0; x < tileWidth; x += 2 {
						if in == len(data) {
							break scan
						}
						b := data[in]
						in++
						raster[row+tx*tileWidth+x] = b & 0x0F
						raster[row+tx*tileWidth+x+1] = b >> 4
					}
				} else {
					for x := 0; x < tileWidth; x++ {
						if in == len(data) {
							break scan
						}
						raster[row+tx*tileWidth+x] = data[in]
						in++
					}
				}
			}
		}
	}

	return raster, height
}

func checkGeometry(length, width int) error {
	if width <= 0 || width%tileWidth != 0 {
		return fmt.Errorf("%w: width %d", ErrBadGeometry, width)
	}
	if length <= 0 || length%2 != 0 {
		return fmt.Errorf("%w: length %d", ErrBadGeometry, length)
	}
	return nil
}

// ReadUncompressed reads length bytes of raw tile data at off and
// flattens them into the raster. Height is derived from the byte count
// and width.
func (m *Image) ReadUncompressed(r *rom.Rom, off uint32, length, width int, is4bpp bool) error {
	if err := checkGeometry(length, width); err != nil {
		return err
	}
	if err := r.Seek(off); err != nil {
		return err
	}

	data, err := r.ReadBytes(uint32(length))
	if err != nil {
		return err
	}

	m.data, m.height = decode(data, width, is4bpp)
	m.width = width
	m.is4bpp = is4bpp
	m.dataSize = length

	return nil
}

// ReadCompressed reads LZ77-compressed tile data at off and flattens
// it into the raster. Height is derived from the decompressed byte
// count and width.
func (m *Image) ReadCompressed(r *rom.Rom, off uint32, width int, is4bpp bool) error {
	data, consumed, err := lz77.DecodeRom(r, off)
	if err != nil {
		return err
	}
	if err := checkGeometry(len(data), width); err != nil {
		return err
	}

	m.data, m.height = decode(data, width, is4bpp)
	m.width = width
	m.is4bpp = is4bpp
	m.dataSize = consumed

	return nil
}
