package wasmtest

import (
	"bytes"
	"encoding/binary"
)

// Value types.
const (
	I32 byte = 0x7f
	I64 byte = 0x7e
	F64 byte = 0x7c
)

// Section ids.
const (
	secType     = 1
	secImport   = 2
	secFunction = 3
	secMemory   = 5
	secGlobal   = 6
	secExport   = 7
	secCode     = 10
	secData     = 11
)

// Export kinds.
const (
	kindFunc   = 0x00
	kindMemory = 0x02
)

var magic = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// Results is shorthand for a value type list.
func Results(types ...byte) []byte { return types }

// Params is shorthand for a value type list.
func Params(types ...byte) []byte { return types }

type funcType struct {
	params, results []byte
}

type funcImport struct {
	module, name string
	typeIdx      uint32
}

type function struct {
	typeIdx uint32
	locals  []byte
	body    []byte
}

type global struct {
	valType byte
	init    int64
}

type export struct {
	name string
	kind byte
	idx  uint32
}

type segment struct {
	offset uint32
	data   []byte
}

// Module is a module under construction. Imports must be added before
// any function is defined so that function indices stay stable.
type Module struct {
	types   []funcType
	imports []funcImport
	funcs   []function
	globals []global
	exports []export
	data    []segment
	memMin  uint32
	memMax  uint32
	memory  bool
	memName string
}

func New() *Module {
	return &Module{}
}

// Memory declares linear memory exported as "memory". A zero max leaves
// the memory unbounded.
func (m *Module) Memory(minPages, maxPages uint32) *Module {
	m.memory = true
	m.memMin = minPages
	m.memMax = maxPages
	m.memName = "memory"
	return m
}

// HideMemory keeps the memory but does not export it.
func (m *Module) HideMemory() *Module {
	m.memName = ""
	return m
}

// Import declares a function import and returns its function index.
func (m *Module) Import(module, name string, params, results []byte) uint32 {
	if len(m.funcs) > 0 {
		panic("wasmtest: imports must precede function definitions")
	}
	m.imports = append(m.imports, funcImport{
		module:  module,
		name:    name,
		typeIdx: m.addType(params, results),
	})
	return uint32(len(m.imports) - 1)
}

// Func defines a function and exports it when name is non-empty. The body
// is a sequence of instructions without the trailing end.
func (m *Module) Func(name string, params, results, locals []byte, instrs ...[]byte) uint32 {
	idx := uint32(len(m.imports) + len(m.funcs))
	m.funcs = append(m.funcs, function{
		typeIdx: m.addType(params, results),
		locals:  locals,
		body:    Body(instrs...),
	})
	if name != "" {
		m.exports = append(m.exports, export{name: name, kind: kindFunc, idx: idx})
	}
	return idx
}

// Global declares a mutable global initialised to init and returns its index.
func (m *Module) Global(valType byte, init int64) uint32 {
	m.globals = append(m.globals, global{valType: valType, init: init})
	return uint32(len(m.globals) - 1)
}

// Data places an active data segment at offset.
func (m *Module) Data(offset uint32, data []byte) *Module {
	m.data = append(m.data, segment{offset: offset, data: data})
	return m
}

func (m *Module) addType(params, results []byte) uint32 {
	m.types = append(m.types, funcType{params: params, results: results})
	return uint32(len(m.types) - 1)
}

// Bytes encodes the module in the binary format.
func (m *Module) Bytes() []byte {
	var out bytes.Buffer
	out.Write(magic)

	if len(m.types) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.types)))
		for _, t := range m.types {
			sec.WriteByte(0x60)
			writeVec(&sec, t.params)
			writeVec(&sec, t.results)
		}
		writeSection(&out, secType, sec.Bytes())
	}

	if len(m.imports) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.imports)))
		for _, imp := range m.imports {
			writeName(&sec, imp.module)
			writeName(&sec, imp.name)
			sec.WriteByte(kindFunc)
			writeU32(&sec, imp.typeIdx)
		}
		writeSection(&out, secImport, sec.Bytes())
	}

	if len(m.funcs) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.funcs)))
		for _, f := range m.funcs {
			writeU32(&sec, f.typeIdx)
		}
		writeSection(&out, secFunction, sec.Bytes())
	}

	if m.memory {
		var sec bytes.Buffer
		writeU32(&sec, 1)
		if m.memMax > 0 {
			sec.WriteByte(0x01)
			writeU32(&sec, m.memMin)
			writeU32(&sec, m.memMax)
		} else {
			sec.WriteByte(0x00)
			writeU32(&sec, m.memMin)
		}
		writeSection(&out, secMemory, sec.Bytes())
	}

	if len(m.globals) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.globals)))
		for _, g := range m.globals {
			sec.WriteByte(g.valType)
			sec.WriteByte(0x01) // mutable
			if g.valType == I64 {
				sec.Write(I64Const(g.init))
			} else {
				sec.Write(I32Const(int32(g.init)))
			}
			sec.WriteByte(opEnd)
		}
		writeSection(&out, secGlobal, sec.Bytes())
	}

	exports := m.exports
	if m.memory && m.memName != "" {
		exports = append([]export{{name: m.memName, kind: kindMemory}}, exports...)
	}
	if len(exports) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(exports)))
		for _, e := range exports {
			writeName(&sec, e.name)
			sec.WriteByte(e.kind)
			writeU32(&sec, e.idx)
		}
		writeSection(&out, secExport, sec.Bytes())
	}

	if len(m.funcs) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.funcs)))
		for _, f := range m.funcs {
			var body bytes.Buffer
			writeU32(&body, uint32(len(f.locals)))
			for _, l := range f.locals {
				writeU32(&body, 1)
				body.WriteByte(l)
			}
			body.Write(f.body)
			writeU32(&sec, uint32(body.Len()))
			sec.Write(body.Bytes())
		}
		writeSection(&out, secCode, sec.Bytes())
	}

	if len(m.data) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.data)))
		for _, d := range m.data {
			writeU32(&sec, 0) // active, memory 0
			sec.Write(I32Const(int32(d.offset)))
			sec.WriteByte(opEnd)
			writeU32(&sec, uint32(len(d.data)))
			sec.Write(d.data)
		}
		writeSection(&out, secData, sec.Bytes())
	}

	return out.Bytes()
}

func writeSection(w *bytes.Buffer, id byte, payload []byte) {
	w.WriteByte(id)
	writeU32(w, uint32(len(payload)))
	w.Write(payload)
}

func writeVec(w *bytes.Buffer, types []byte) {
	writeU32(w, uint32(len(types)))
	w.Write(types)
}

func writeName(w *bytes.Buffer, s string) {
	writeU32(w, uint32(len(s)))
	w.WriteString(s)
}

func writeU32(w *bytes.Buffer, v uint32) {
	w.Write(binary.AppendUvarint(nil, uint64(v)))
}
