package memview

import (
	"encoding/binary"
	"math"
)

// Views is one consistent snapshot of typed views over linear memory.
// All four views share a single backing slice; a snapshot is never
// partially refreshed.
type Views struct {
	U8   []byte
	U32  U32View
	I64  I64View
	Data DataView
}

func newViews(buf []byte) *Views {
	return &Views{
		U8:   buf,
		U32:  U32View{b: buf},
		I64:  I64View{b: buf},
		Data: DataView{b: buf},
	}
}

// Len returns the memory length in bytes covered by the snapshot.
func (v *Views) Len() uint32 {
	return uint32(len(v.U8))
}

// U32View indexes memory as little-endian 32-bit words (index = addr >> 2).
type U32View struct {
	b []byte
}

// Len returns the number of whole words.
func (v U32View) Len() uint32 {
	return uint32(len(v.b) >> 2)
}

func (v U32View) Get(i uint32) (uint32, bool) {
	off := uint64(i) << 2
	if off+4 > uint64(len(v.b)) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(v.b[off:]), true
}

func (v U32View) Set(i, val uint32) bool {
	off := uint64(i) << 2
	if off+4 > uint64(len(v.b)) {
		return false
	}
	binary.LittleEndian.PutUint32(v.b[off:], val)
	return true
}

// I64View indexes memory as little-endian signed 64-bit words (index = addr >> 3).
type I64View struct {
	b []byte
}

// Len returns the number of whole words.
func (v I64View) Len() uint32 {
	return uint32(len(v.b) >> 3)
}

func (v I64View) Get(i uint32) (int64, bool) {
	off := uint64(i) << 3
	if off+8 > uint64(len(v.b)) {
		return 0, false
	}
	return int64(binary.LittleEndian.Uint64(v.b[off:])), true
}

func (v I64View) Set(i uint32, val int64) bool {
	off := uint64(i) << 3
	if off+8 > uint64(len(v.b)) {
		return false
	}
	binary.LittleEndian.PutUint64(v.b[off:], uint64(val))
	return true
}

// DataView reads and writes little-endian values at arbitrary byte offsets.
type DataView struct {
	b []byte
}

func (v DataView) span(off, n uint32) ([]byte, bool) {
	end := uint64(off) + uint64(n)
	if end > uint64(len(v.b)) {
		return nil, false
	}
	return v.b[off:end], true
}

// Bytes returns a slice aliasing memory. It is invalid after growth.
func (v DataView) Bytes(off, n uint32) ([]byte, bool) {
	return v.span(off, n)
}

func (v DataView) Uint8(off uint32) (uint8, bool) {
	s, ok := v.span(off, 1)
	if !ok {
		return 0, false
	}
	return s[0], true
}

func (v DataView) Uint16(off uint32) (uint16, bool) {
	s, ok := v.span(off, 2)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint16(s), true
}

func (v DataView) Uint32(off uint32) (uint32, bool) {
	s, ok := v.span(off, 4)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint32(s), true
}

func (v DataView) Int32(off uint32) (int32, bool) {
	u, ok := v.Uint32(off)
	return int32(u), ok
}

func (v DataView) Uint64(off uint32) (uint64, bool) {
	s, ok := v.span(off, 8)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint64(s), true
}

func (v DataView) Int64(off uint32) (int64, bool) {
	u, ok := v.Uint64(off)
	return int64(u), ok
}

func (v DataView) Float64(off uint32) (float64, bool) {
	u, ok := v.Uint64(off)
	return math.Float64frombits(u), ok
}

func (v DataView) PutUint8(off uint32, val uint8) bool {
	s, ok := v.span(off, 1)
	if ok {
		s[0] = val
	}
	return ok
}

func (v DataView) PutUint32(off uint32, val uint32) bool {
	s, ok := v.span(off, 4)
	if ok {
		binary.LittleEndian.PutUint32(s, val)
	}
	return ok
}

func (v DataView) PutInt32(off uint32, val int32) bool {
	return v.PutUint32(off, uint32(val))
}

func (v DataView) PutUint64(off uint32, val uint64) bool {
	s, ok := v.span(off, 8)
	if ok {
		binary.LittleEndian.PutUint64(s, val)
	}
	return ok
}

func (v DataView) PutInt64(off uint32, val int64) bool {
	return v.PutUint64(off, uint64(val))
}

func (v DataView) PutFloat64(off uint32, val float64) bool {
	return v.PutUint64(off, math.Float64bits(val))
}

// PutBytes copies data into memory at off.
func (v DataView) PutBytes(off uint32, data []byte) bool {
	s, ok := v.span(off, uint32(len(data)))
	if ok {
		copy(s, data)
	}
	return ok
}

// CString reads a NUL-terminated string starting at off. A missing
// terminator reads to the end of memory.
func (v DataView) CString(off uint32) (string, bool) {
	if uint64(off) > uint64(len(v.b)) {
		return "", false
	}
	rest := v.b[off:]
	for i, c := range rest {
		if c == 0 {
			return string(rest[:i]), true
		}
	}
	return string(rest), true
}

// String copies n bytes at off into a Go string.
func (v DataView) String(off, n uint32) (string, bool) {
	s, ok := v.span(off, n)
	if !ok {
		return "", false
	}
	return string(s), true
}
