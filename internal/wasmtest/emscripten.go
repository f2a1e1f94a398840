package wasmtest

// Fixed layout of the guests built by Emscripten.
const (
	StackBase uint32 = 0x8000 // highest stack address
	StackEnd  uint32 = 0x4000 // lowest stack address

	// LimitsCalls counts __set_stack_limits calls.
	LimitsCalls uint32 = 0x100
	// LimitsBase and LimitsEnd hold the last limits the guest was given.
	LimitsBase uint32 = 0x104
	LimitsEnd  uint32 = 0x108

	// HeapStart is where malloc starts handing out blocks.
	HeapStart uint32 = 0x10000
)

// Emscripten is a module with the runtime surface of an Emscripten build:
// memory, a bump malloc, and the stack init/limit exports.
type Emscripten struct {
	*Module
	heap uint32
}

// NewEmscripten starts an Emscripten-shaped module with pages of memory.
func NewEmscripten(pages, maxPages uint32) *Emscripten {
	return &Emscripten{Module: New().Memory(pages, maxPages)}
}

// Runtime defines malloc and the stack exports. Call it after every
// Import and before guest-specific functions.
func (e *Emscripten) Runtime() *Emscripten {
	e.heap = e.Global(I32, int64(HeapStart))
	stackBase := e.Global(I32, 0)
	stackEnd := e.Global(I32, 0)

	// malloc(size) returns the heap pointer and bumps it by size rounded
	// up to 8.
	e.Func("malloc", Params(I32), Results(I32), nil,
		GlobalGet(e.heap),
		GlobalGet(e.heap), LocalGet(0), I32Add,
		I32Const(7), I32Add, I32Const(-8), I32And,
		GlobalSet(e.heap),
	)
	e.Func("emscripten_stack_init", nil, nil, nil,
		I32Const(int32(StackBase)), GlobalSet(stackBase),
		I32Const(int32(StackEnd)), GlobalSet(stackEnd),
	)
	e.Func("emscripten_stack_get_base", nil, Results(I32), nil, GlobalGet(stackBase))
	e.Func("emscripten_stack_get_end", nil, Results(I32), nil, GlobalGet(stackEnd))
	e.Func("__set_stack_limits", Params(I32, I32), nil, nil,
		I32Const(int32(LimitsCalls)),
		I32Const(int32(LimitsCalls)), I32Load(0), I32Const(1), I32Add,
		I32Store(0),
		I32Const(int32(LimitsBase)), LocalGet(0), I32Store(0),
		I32Const(int32(LimitsEnd)), LocalGet(1), I32Store(0),
	)
	return e
}

// HeapGlobal returns the index of the malloc heap pointer global.
func (e *Emscripten) HeapGlobal() uint32 {
	return e.heap
}

// Block encodes a [u32 length][payload] block for a data segment.
func Block(payload []byte) []byte {
	out := make([]byte, 4, 4+len(payload))
	n := uint32(len(payload))
	out[0], out[1], out[2], out[3] = byte(n), byte(n>>8), byte(n>>16), byte(n>>24)
	return append(out, payload...)
}
