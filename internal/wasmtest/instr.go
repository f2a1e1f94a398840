package wasmtest

import (
	"encoding/binary"
	"math"
)

const (
	opUnreachable = 0x00
	opEnd         = 0x0b
	opIf          = 0x04
	opElse        = 0x05
	opCall        = 0x10
	opDrop        = 0x1a
	opLocalGet    = 0x20
	opLocalSet    = 0x21
	opGlobalGet   = 0x23
	opGlobalSet   = 0x24
	opI32Load     = 0x28
	opI32Store    = 0x36
	opI64Store    = 0x37
	opI32Const    = 0x41
	opI64Const    = 0x42
	opF64Const    = 0x44
	opI32Eqz      = 0x45
	opI32GtS      = 0x4a
	opI64Eqz      = 0x50
	opI32Add      = 0x6a
	opI32Sub      = 0x6b
	opI32And      = 0x71
	opI64Or       = 0x84
	opI32WrapI64  = 0xa7
	opI64ExtendU  = 0xad
	opMemoryGrow  = 0x40
)

// Body joins instructions and appends the closing end.
func Body(instrs ...[]byte) []byte {
	var out []byte
	for _, in := range instrs {
		out = append(out, in...)
	}
	return append(out, opEnd)
}

func I32Const(v int32) []byte { return appendSLEB([]byte{opI32Const}, int64(v)) }
func I64Const(v int64) []byte { return appendSLEB([]byte{opI64Const}, v) }

// U64Const pushes the bit pattern v as an i64.
func U64Const(v uint64) []byte { return I64Const(int64(v)) }

func F64Const(v float64) []byte {
	return binary.LittleEndian.AppendUint64([]byte{opF64Const}, math.Float64bits(v))
}

func LocalGet(i uint32) []byte  { return binary.AppendUvarint([]byte{opLocalGet}, uint64(i)) }
func LocalSet(i uint32) []byte  { return binary.AppendUvarint([]byte{opLocalSet}, uint64(i)) }
func GlobalGet(i uint32) []byte { return binary.AppendUvarint([]byte{opGlobalGet}, uint64(i)) }
func GlobalSet(i uint32) []byte { return binary.AppendUvarint([]byte{opGlobalSet}, uint64(i)) }
func Call(i uint32) []byte      { return binary.AppendUvarint([]byte{opCall}, uint64(i)) }

// I32Load loads a word at the address on the stack plus offset.
func I32Load(offset uint32) []byte {
	return binary.AppendUvarint([]byte{opI32Load, 2}, uint64(offset))
}

// I32Store stores a word: [addr, value] -> [].
func I32Store(offset uint32) []byte {
	return binary.AppendUvarint([]byte{opI32Store, 2}, uint64(offset))
}

// I64Store stores a doubleword: [addr, value] -> [].
func I64Store(offset uint32) []byte {
	return binary.AppendUvarint([]byte{opI64Store, 3}, uint64(offset))
}

// MemoryGrow grows memory 0: [pages] -> [previous pages or -1].
func MemoryGrow() []byte { return []byte{opMemoryGrow, 0x00} }

// If opens a block that yields one value of type result.
func If(result byte) []byte { return []byte{opIf, result} }

var (
	Else          = []byte{opElse}
	End           = []byte{opEnd}
	Drop          = []byte{opDrop}
	Unreachable   = []byte{opUnreachable}
	I32Eqz        = []byte{opI32Eqz}
	I32GtS        = []byte{opI32GtS}
	I32Add        = []byte{opI32Add}
	I32Sub        = []byte{opI32Sub}
	I32And        = []byte{opI32And}
	I64Or         = []byte{opI64Or}
	I64Eqz        = []byte{opI64Eqz}
	I32WrapI64    = []byte{opI32WrapI64}
	I64ExtendI32U = []byte{opI64ExtendU}
)

func appendSLEB(out []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
