package palette

import (
	"errors"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bodgit/agb/lz77"
	"github.com/bodgit/agb/rom"
)

func testRom(t *testing.T) *rom.Rom {
	data := make([]byte, rom.Size16MB)
	for i := range data {
		data[i] = 0xFF
	}
	r, err := rom.Load(data)
	assert.NoError(t, err)
	return r
}

func TestDecodeWhite(t *testing.T) {
	r := testRom(t)
	assert.NoError(t, r.Seek(0x1000))
	for i := 0; i < Colors16; i++ {
		assert.NoError(t, r.WriteHWord(0x7FFF))
	}

	var p Palette
	assert.NoError(t, p.ReadUncompressed(r, 0x1000, Colors16))
	assert.Equal(t, Colors16, p.Count())
	for _, c := range p.Colors() {
		assert.Equal(t, color.RGBA{248, 248, 248, 255}, c)
	}
}

func TestEncodeKnownValues(t *testing.T) {
	var p Palette
	colors := make([]color.RGBA, Colors16)
	colors[0] = color.RGBA{255, 255, 255, 255}
	colors[1] = color.RGBA{8, 16, 24, 255}
	for i := 2; i < Colors16; i++ {
		colors[i] = color.RGBA{0, 0, 0, 255}
	}
	assert.NoError(t, p.SetColors(colors))

	b := p.Encode()
	assert.Len(t, b, Colors16*2)
	// (255, 255, 255) narrows to 0x7FFF.
	assert.Equal(t, []byte{0xFF, 0x7F}, b[0:2])
	// r=1 g=2 b=3 packs to 0x0C41, low byte first.
	assert.Equal(t, []byte{0x41, 0x0C}, b[2:4])
}

func TestRoundTrip(t *testing.T) {
	r := testRom(t)
	rnd := rand.New(rand.NewSource(0x5A))

	colors := make([]color.RGBA, Colors256)
	for i := range colors {
		// Multiples of 8 survive the 15-bit narrowing exactly.
		colors[i] = color.RGBA{
			R: byte(rnd.Intn(32)) << 3,
			G: byte(rnd.Intn(32)) << 3,
			B: byte(rnd.Intn(32)) << 3,
			A: 255,
		}
	}

	var p Palette
	assert.NoError(t, p.SetColors(colors))
	assert.NoError(t, p.Write(r, 0x2000, false))

	var q Palette
	assert.NoError(t, q.ReadUncompressed(r, 0x2000, Colors256))
	assert.Equal(t, colors, q.Colors())
}

func TestLossiness(t *testing.T) {
	var p Palette
	colors := make([]color.RGBA, Colors16)
	for i := range colors {
		colors[i] = color.RGBA{R: byte(i*16 + 7), G: byte(i*16 + 3), B: byte(i), A: 255}
	}
	assert.NoError(t, p.SetColors(colors))

	b := p.Encode()
	entries := make([]uint16, Colors16)
	for i := range entries {
		entries[i] = uint16(b[i*2]) | uint16(b[i*2+1])<<8
	}

	for i, c := range decode(entries) {
		assert.Equal(t, colors[i].R&0xF8, c.R)
		assert.Equal(t, colors[i].G&0xF8, c.G)
		assert.Equal(t, colors[i].B&0xF8, c.B)
		assert.Equal(t, byte(255), c.A)
	}
}

func TestCompressedRoundTrip(t *testing.T) {
	r := testRom(t)

	colors := make([]color.RGBA, Colors16)
	for i := range colors {
		colors[i] = color.RGBA{R: byte(i) << 3, G: byte(i) << 3, B: byte(i) << 3, A: 255}
	}

	var p Palette
	assert.NoError(t, p.SetColors(colors))
	assert.NoError(t, p.Write(r, 0x3000, true))

	var q Palette
	assert.NoError(t, q.ReadCompressed(r, 0x3000))
	assert.Equal(t, colors, q.Colors())
}

func TestColorCountGate(t *testing.T) {
	r := testRom(t)

	var p Palette
	err := p.ReadUncompressed(r, 0x1000, 64)
	assert.True(t, errors.Is(err, ErrPaletteSize))

	err = p.SetColors(make([]color.RGBA, 17))
	assert.True(t, errors.Is(err, ErrPaletteSize))
}

func TestCompressedSizeGate(t *testing.T) {
	r := testRom(t)

	// A stream whose payload is 30 bytes is not a palette.
	stream, err := lz77.Encode(make([]byte, 30))
	assert.NoError(t, err)
	assert.NoError(t, r.Seek(0x4000))
	assert.NoError(t, r.WriteBytes(stream))

	var p Palette
	err = p.ReadCompressed(r, 0x4000)
	assert.True(t, errors.Is(err, ErrPaletteSize))
}

func TestRequiresRepoint(t *testing.T) {
	r := testRom(t)

	colors := make([]color.RGBA, Colors16)
	var p Palette
	assert.NoError(t, p.SetColors(colors))
	assert.NoError(t, p.Write(r, 0x5000, false))

	var q Palette
	assert.NoError(t, q.ReadUncompressed(r, 0x5000, Colors16))
	repoint, err := q.RequiresRepoint(false)
	assert.NoError(t, err)
	assert.False(t, repoint)
}

func TestGL(t *testing.T) {
	var p Palette
	colors := make([]color.RGBA, Colors16)
	for i := range colors {
		colors[i].A = 255
	}
	colors[1] = color.RGBA{255, 0, 51, 255}
	assert.NoError(t, p.SetColors(colors))

	gl := p.GL()
	assert.Len(t, gl, Colors16)
	assert.Equal(t, float32(1), gl[1][0])
	assert.Equal(t, float32(0), gl[1][1])
	assert.InDelta(t, 0.2, gl[1][2], 0.01)
	assert.Equal(t, float32(1), gl[1][3])
}
