/*
Package rom implements a bounded Game Boy Advance cartridge image.

A cartridge image is exactly 16 or 32 MiB of little-endian data. The Rom
type owns one such buffer and exposes a cursor over it for sequential
reads and writes, translation between file offsets and the 0x08000000
pointer space, and a scan for runs of free space.
*/
package rom

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
)

const (
	// Size16MB and Size32MB are the only valid cartridge sizes.
	Size16MB = 16 * 1024 * 1024
	Size32MB = 32 * 1024 * 1024

	// PointerBase is added to a file offset to form a GBA pointer.
	PointerBase = 0x08000000

	codeOffset = 0xA0
	codeLength = 16
)

var (
	// ErrRomSize is returned when an image is neither 16 nor 32 MiB.
	ErrRomSize = errors.New("rom: image is not 16 or 32 MiB")

	// ErrOutOfRange is returned when a read, write or seek would cross
	// the end of the image.
	ErrOutOfRange = errors.New("rom: access out of range")

	// ErrBadPointer is returned when a non-null pointer word lies
	// outside the cartridge address space.
	ErrBadPointer = errors.New("rom: pointer outside cartridge space")
)

// Rom is a loaded cartridge image. The zero value is empty; use Load or
// LoadFile. A Rom is not safe for concurrent use: the cursor advances
// on every read.
type Rom struct {
	data   []byte
	offset uint32
	info   Info
	path   string
}

// Load takes ownership of data as the cartridge image. The slice must
// be exactly 16 or 32 MiB long.
func Load(data []byte) (*Rom, error) {
	if len(data) != Size16MB && len(data) != Size32MB {
		return nil, fmt.Errorf("%w: %d bytes", ErrRomSize, len(data))
	}

	r := &Rom{data: data}
	r.info = parseInfo(data)

	return r, nil
}

// LoadFile reads the file at path into a new Rom.
func LoadFile(path string) (*Rom, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	r, err := Load(b)
	if err != nil {
		return nil, err
	}
	r.path = path

	return r, nil
}

// Save writes the image back to the file it was loaded from.
func (r *Rom) Save() error {
	if r.path == "" {
		return errors.New("rom: no backing file")
	}
	return r.SaveAs(r.path)
}

// SaveAs writes the image to path and makes it the backing file.
func (r *Rom) SaveAs(path string) error {
	if err := ioutil.WriteFile(path, r.data, os.FileMode(0644)); err != nil {
		return err
	}
	r.path = path
	return nil
}

// Length returns the size of the image in bytes.
func (r *Rom) Length() uint32 {
	return uint32(len(r.data))
}

// Offset returns the current cursor position.
func (r *Rom) Offset() uint32 {
	return r.offset
}

// Info returns the parsed header identifier.
func (r *Rom) Info() Info {
	return r.info
}

// Bytes returns the underlying image. The slice is owned by the Rom;
// callers must not retain it past the Rom's lifetime.
func (r *Rom) Bytes() []byte {
	return r.data
}

// Seek positions the cursor at off. The cursor is left unchanged on
// failure.
func (r *Rom) Seek(off uint32) error {
	if off >= r.Length() {
		return fmt.Errorf("%w: seek to 0x%X", ErrOutOfRange, off)
	}
	r.offset = off
	return nil
}

// CheckOffset reports whether off lies within the image.
func (r *Rom) CheckOffset(off uint32) bool {
	return off < r.Length()
}

// CanRead reports whether n bytes can be read at the cursor.
func (r *Rom) CanRead(n uint32) bool {
	return r.offset+n <= r.Length()
}

// CanWrite reports whether n bytes can be written at the cursor.
func (r *Rom) CanWrite(n uint32) bool {
	return r.CanRead(n)
}

// ReadByte reads one byte at the cursor.
func (r *Rom) ReadByte() (byte, error) {
	if !r.CanRead(1) {
		return 0, fmt.Errorf("%w: byte at 0x%X", ErrOutOfRange, r.offset)
	}
	b := r.data[r.offset]
	r.offset++
	return b, nil
}

// ReadHWord reads a little-endian 16-bit value at the cursor.
func (r *Rom) ReadHWord() (uint16, error) {
	if !r.CanRead(2) {
		return 0, fmt.Errorf("%w: hword at 0x%X", ErrOutOfRange, r.offset)
	}
	v := binary.LittleEndian.Uint16(r.data[r.offset:])
	r.offset += 2
	return v, nil
}

// ReadWord reads a little-endian 32-bit value at the cursor.
func (r *Rom) ReadWord() (uint32, error) {
	if !r.CanRead(4) {
		return 0, fmt.Errorf("%w: word at 0x%X", ErrOutOfRange, r.offset)
	}
	v := binary.LittleEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return v, nil
}

// ReadPointer reads a 32-bit pointer word and translates it to a file
// offset. A null word stays zero. A non-null word outside
// [PointerBase, PointerBase+Length()) is ErrBadPointer.
func (r *Rom) ReadPointer() (uint32, error) {
	w, err := r.ReadWord()
	if err != nil {
		return 0, err
	}
	if w == 0 {
		return 0, nil
	}
	if w < PointerBase || w >= PointerBase+r.Length() {
		return 0, fmt.Errorf("%w: 0x%08X", ErrBadPointer, w)
	}
	return w - PointerBase, nil
}

// ReadPointerUnchecked translates a pointer word without validating
// that it lies inside the cartridge space. Some tables contain junk
// words that callers knowingly tolerate.
func (r *Rom) ReadPointerUnchecked() (uint32, error) {
	w, err := r.ReadWord()
	if err != nil {
		return 0, err
	}
	if w == 0 {
		return 0, nil
	}
	return w - PointerBase, nil
}

// PointerTracker records the offsets that pointer words were read from
// so they can be patched later when data moves. It is owned by the
// caller; the Rom holds no hidden state.
type PointerTracker struct {
	offsets []uint32
}

// Push records off as the location of a pointer word.
func (t *PointerTracker) Push(off uint32) {
	t.offsets = append(t.offsets, off)
}

// Pop removes and returns the oldest recorded location.
func (t *PointerTracker) Pop() (uint32, bool) {
	if len(t.offsets) == 0 {
		return 0, false
	}
	off := t.offsets[0]
	t.offsets = t.offsets[1:]
	return off, true
}

// Len returns the number of recorded locations.
func (t *PointerTracker) Len() int {
	return len(t.offsets)
}

// ReadPointerTracked reads a pointer and records the offset the word
// occupied in the tracker.
func (r *Rom) ReadPointerTracked(t *PointerTracker) (uint32, error) {
	at := r.offset
	off, err := r.ReadPointer()
	if err != nil {
		return 0, err
	}
	t.Push(at)
	return off, nil
}

// ReadBytes reads count bytes at the cursor into a fresh slice.
func (r *Rom) ReadBytes(count uint32) ([]byte, error) {
	if !r.CanRead(count) {
		return nil, fmt.Errorf("%w: %d bytes at 0x%X", ErrOutOfRange, count, r.offset)
	}
	b := make([]byte, count)
	copy(b, r.data[r.offset:])
	r.offset += count
	return b, nil
}

// ReadHWordTable reads count consecutive little-endian 16-bit values.
func (r *Rom) ReadHWordTable(count int) ([]uint16, error) {
	if !r.CanRead(uint32(count) * 2) {
		return nil, fmt.Errorf("%w: %d hwords at 0x%X", ErrOutOfRange, count, r.offset)
	}
	t := make([]uint16, count)
	for i := range t {
		t[i], _ = r.ReadHWord()
	}
	return t, nil
}

// ReadWordTable reads count consecutive little-endian 32-bit values.
func (r *Rom) ReadWordTable(count int) ([]uint32, error) {
	if !r.CanRead(uint32(count) * 4) {
		return nil, fmt.Errorf("%w: %d words at 0x%X", ErrOutOfRange, count, r.offset)
	}
	t := make([]uint32, count)
	for i := range t {
		t[i], _ = r.ReadWord()
	}
	return t, nil
}

// ReadPointerTable reads count consecutive pointer words, translating
// each one.
func (r *Rom) ReadPointerTable(count int) ([]uint32, error) {
	t := make([]uint32, count)
	for i := range t {
		p, err := r.ReadPointer()
		if err != nil {
			return nil, err
		}
		t[i] = p
	}
	return t, nil
}

// WriteByte writes one byte at the cursor.
func (r *Rom) WriteByte(b byte) error {
	if !r.CanWrite(1) {
		return fmt.Errorf("%w: byte at 0x%X", ErrOutOfRange, r.offset)
	}
	r.data[r.offset] = b
	r.offset++
	return nil
}

// WriteHWord writes a little-endian 16-bit value at the cursor.
func (r *Rom) WriteHWord(v uint16) error {
	if !r.CanWrite(2) {
		return fmt.Errorf("%w: hword at 0x%X", ErrOutOfRange, r.offset)
	}
	binary.LittleEndian.PutUint16(r.data[r.offset:], v)
	r.offset += 2
	return nil
}

// WriteWord writes a little-endian 32-bit value at the cursor.
func (r *Rom) WriteWord(v uint32) error {
	if !r.CanWrite(4) {
		return fmt.Errorf("%w: word at 0x%X", ErrOutOfRange, r.offset)
	}
	binary.LittleEndian.PutUint32(r.data[r.offset:], v)
	r.offset += 4
	return nil
}

// WritePointer writes off as a pointer word. Offset zero is written as
// the null pointer.
func (r *Rom) WritePointer(off uint32) error {
	if off == 0 {
		return r.WriteWord(0)
	}
	return r.WriteWord(off + PointerBase)
}

// WriteBytes writes b at the cursor.
func (r *Rom) WriteBytes(b []byte) error {
	if !r.CanWrite(uint32(len(b))) {
		return fmt.Errorf("%w: %d bytes at 0x%X", ErrOutOfRange, len(b), r.offset)
	}
	copy(r.data[r.offset:], b)
	r.offset += uint32(len(b))
	return nil
}

// WriteHWordTable writes each value in t as a little-endian 16-bit
// value.
func (r *Rom) WriteHWordTable(t []uint16) error {
	if !r.CanWrite(uint32(len(t)) * 2) {
		return fmt.Errorf("%w: %d hwords at 0x%X", ErrOutOfRange, len(t), r.offset)
	}
	for _, v := range t {
		_ = r.WriteHWord(v)
	}
	return nil
}

// WriteWordTable writes each value in t as a little-endian 32-bit
// value.
func (r *Rom) WriteWordTable(t []uint32) error {
	if !r.CanWrite(uint32(len(t)) * 4) {
		return fmt.Errorf("%w: %d words at 0x%X", ErrOutOfRange, len(t), r.offset)
	}
	for _, v := range t {
		_ = r.WriteWord(v)
	}
	return nil
}

// WritePointerTable writes each offset in t as a pointer word.
func (r *Rom) WritePointerTable(t []uint32) error {
	if !r.CanWrite(uint32(len(t)) * 4) {
		return fmt.Errorf("%w: %d pointers at 0x%X", ErrOutOfRange, len(t), r.offset)
	}
	for _, off := range t {
		_ = r.WritePointer(off)
	}
	return nil
}

// FindSpace returns the smallest offset >= start where count
// consecutive bytes all equal fill. The second return is false when no
// such run exists before the end of the image.
func (r *Rom) FindSpace(start uint32, count uint32, fill byte) (uint32, bool) {
	if count == 0 {
		if start < r.Length() {
			return start, true
		}
		return 0, false
	}

	var run uint32
	found := start
	for off := start; off < r.Length(); off++ {
		if r.data[off] != fill {
			run = 0
			found = off + 1
			continue
		}
		run++
		if run == count {
			return found, true
		}
	}
	return 0, false
}

// AlignOffset returns the smallest offset >= off that is a multiple of
// align.
func AlignOffset(off uint32, align uint32) uint32 {
	if align == 0 {
		return off
	}
	if rem := off % align; rem != 0 {
		off += align - rem
	}
	return off
}

// Expand32MB grows a 16 MiB image to 32 MiB by appending 0xFF bytes.
// It is a no-op on an image that is already 32 MiB.
func (r *Rom) Expand32MB() {
	if r.Length() == Size32MB {
		return
	}
	r.data = append(r.data, bytes.Repeat([]byte{0xFF}, Size32MB-Size16MB)...)
	r.info.expanded = true
}
