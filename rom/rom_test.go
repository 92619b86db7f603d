package rom

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testImage() []byte {
	data := make([]byte, Size16MB)
	for i := range data {
		data[i] = 0xFF
	}
	copy(data[codeOffset:], "POKEMON FIREBPRE")
	return data
}

func testRom(t *testing.T) *Rom {
	r, err := Load(testImage())
	assert.NoError(t, err)
	return r
}

func TestLoadSizeGate(t *testing.T) {
	_, err := Load(make([]byte, 1024))
	assert.True(t, errors.Is(err, ErrRomSize))

	_, err = Load(nil)
	assert.True(t, errors.Is(err, ErrRomSize))

	r, err := Load(make([]byte, Size32MB))
	assert.NoError(t, err)
	assert.Equal(t, uint32(Size32MB), r.Length())
	assert.True(t, r.Info().Expanded())
}

func TestInfo(t *testing.T) {
	r := testRom(t)
	assert.Equal(t, "POKEMON FIREBPRE", r.Info().Identifier())
	assert.Equal(t, "POKEMON FIRE", r.Info().Title())
	assert.Equal(t, "BPRE", r.Info().Code())
	assert.False(t, r.Info().Expanded())
}

func TestSeek(t *testing.T) {
	r := testRom(t)
	assert.NoError(t, r.Seek(0x1000))
	assert.Equal(t, uint32(0x1000), r.Offset())

	// A failed seek leaves the cursor untouched.
	err := r.Seek(Size16MB)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	assert.Equal(t, uint32(0x1000), r.Offset())
}

func TestReadWriteScalars(t *testing.T) {
	r := testRom(t)

	assert.NoError(t, r.Seek(0x100))
	assert.NoError(t, r.WriteByte(0xAB))
	assert.NoError(t, r.WriteHWord(0x1234))
	assert.NoError(t, r.WriteWord(0xDEADBEEF))

	assert.NoError(t, r.Seek(0x100))
	b, err := r.ReadByte()
	assert.NoError(t, err)
	assert.Equal(t, byte(0xAB), b)

	h, err := r.ReadHWord()
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x1234), h)

	w, err := r.ReadWord()
	assert.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), w)

	// Little-endian on disk.
	assert.Equal(t, []byte{0xAB, 0x34, 0x12, 0xEF, 0xBE, 0xAD, 0xDE}, r.Bytes()[0x100:0x107])
}

func TestReadPastEnd(t *testing.T) {
	r := testRom(t)
	assert.NoError(t, r.Seek(Size16MB-2))
	_, err := r.ReadWord()
	assert.True(t, errors.Is(err, ErrOutOfRange))

	_, err = r.ReadBytes(8)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestPointerRoundTrip(t *testing.T) {
	r := testRom(t)

	for _, off := range []uint32{0, 1, 0x1234, Size16MB - 1} {
		assert.NoError(t, r.Seek(0x200))
		assert.NoError(t, r.WritePointer(off))
		assert.NoError(t, r.Seek(0x200))
		got, err := r.ReadPointer()
		assert.NoError(t, err)
		assert.Equal(t, off, got)
	}
}

func TestNullPointer(t *testing.T) {
	r := testRom(t)
	assert.NoError(t, r.Seek(0x200))
	assert.NoError(t, r.WritePointer(0))
	assert.Equal(t, []byte{0, 0, 0, 0}, r.Bytes()[0x200:0x204])
}

func TestBadPointer(t *testing.T) {
	r := testRom(t)
	assert.NoError(t, r.Seek(0x200))
	assert.NoError(t, r.WriteWord(0x12345678))
	assert.NoError(t, r.Seek(0x200))
	_, err := r.ReadPointer()
	assert.True(t, errors.Is(err, ErrBadPointer))

	// The unchecked variant subtracts regardless.
	assert.NoError(t, r.Seek(0x200))
	got, err := r.ReadPointerUnchecked()
	assert.NoError(t, err)
	assert.Equal(t, uint32(0x12345678-PointerBase), got)
}

func TestPointerTracked(t *testing.T) {
	r := testRom(t)
	assert.NoError(t, r.Seek(0x300))
	assert.NoError(t, r.WritePointer(0x4000))
	assert.NoError(t, r.WritePointer(0x8000))

	var tracker PointerTracker
	assert.NoError(t, r.Seek(0x300))
	p1, err := r.ReadPointerTracked(&tracker)
	assert.NoError(t, err)
	p2, err := r.ReadPointerTracked(&tracker)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0x4000), p1)
	assert.Equal(t, uint32(0x8000), p2)

	// Locations come back oldest first for back-patching.
	off, ok := tracker.Pop()
	assert.True(t, ok)
	assert.Equal(t, uint32(0x300), off)
	off, ok = tracker.Pop()
	assert.True(t, ok)
	assert.Equal(t, uint32(0x304), off)
	_, ok = tracker.Pop()
	assert.False(t, ok)
}

func TestTables(t *testing.T) {
	r := testRom(t)

	hwords := []uint16{1, 2, 0xFFFF}
	words := []uint32{0x11111111, 0x22222222}
	pointers := []uint32{0, 0x1000, 0x2000}

	assert.NoError(t, r.Seek(0x400))
	assert.NoError(t, r.WriteHWordTable(hwords))
	assert.NoError(t, r.WriteWordTable(words))
	assert.NoError(t, r.WritePointerTable(pointers))

	assert.NoError(t, r.Seek(0x400))
	gh, err := r.ReadHWordTable(len(hwords))
	assert.NoError(t, err)
	assert.Equal(t, hwords, gh)

	gw, err := r.ReadWordTable(len(words))
	assert.NoError(t, err)
	assert.Equal(t, words, gw)

	gp, err := r.ReadPointerTable(len(pointers))
	assert.NoError(t, err)
	assert.Equal(t, pointers, gp)
}

func TestFindSpace(t *testing.T) {
	r := testRom(t)

	// The image is all 0xFF beyond the header block.
	off, ok := r.FindSpace(0x1000, 16, 0xFF)
	assert.True(t, ok)
	assert.Equal(t, uint32(0x1000), off)

	// Punch a hole and look again.
	r.Bytes()[0x1004] = 0x00
	off, ok = r.FindSpace(0x1000, 16, 0xFF)
	assert.True(t, ok)
	assert.Equal(t, uint32(0x1005), off)

	_, ok = r.FindSpace(Size16MB-8, 16, 0xFF)
	assert.False(t, ok)

	_, ok = r.FindSpace(0, 1, 0xA5)
	assert.False(t, ok)
}

func TestAlignOffset(t *testing.T) {
	assert.Equal(t, uint32(0), AlignOffset(0, 4))
	assert.Equal(t, uint32(4), AlignOffset(1, 4))
	assert.Equal(t, uint32(4), AlignOffset(4, 4))
	assert.Equal(t, uint32(0x1000), AlignOffset(0xFFF, 0x1000))
}

func TestExpand32MB(t *testing.T) {
	r := testRom(t)
	r.Expand32MB()
	assert.Equal(t, uint32(Size32MB), r.Length())
	assert.Equal(t, byte(0xFF), r.Bytes()[Size32MB-1])

	// Idempotent.
	r.Expand32MB()
	assert.Equal(t, uint32(Size32MB), r.Length())
}

func TestHeaderChecksum(t *testing.T) {
	r := testRom(t)
	assert.False(t, r.VerifyHeader())
	r.FixHeader()
	assert.True(t, r.VerifyHeader())
	assert.Equal(t, r.HeaderChecksum(), r.Bytes()[0xBD])
}
