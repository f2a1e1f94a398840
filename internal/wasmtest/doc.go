// Package wasmtest assembles small core WebAssembly modules for tests.
//
// It covers just enough of the binary format to stand in for an
// Emscripten-built guest: function imports and definitions, one memory,
// mutable globals, exports and active data segments.
//
//	m := wasmtest.New().Memory(2, 0)
//	m.Func("answer", nil, wasmtest.Results(wasmtest.I32), nil,
//	    wasmtest.I32Const(42))
//	bin := m.Bytes()
package wasmtest
