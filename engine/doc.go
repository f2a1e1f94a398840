// Package engine loads Emscripten-built guests on wazero.
//
// # Architecture
//
//	WazeroEngine  - shared runtime configuration and compilation cache
//	Loader        - one guest: its wazero runtime, shim and memory views
//
// # Load Sequence
//
//  1. Compile the module and check every function import against the shim
//  2. Instantiate the shim as "env" and "wasi_snapshot_preview1"
//  3. Instantiate the guest without start functions
//  4. Attach the exported "memory" to the views
//  5. Call emscripten_stack_init
//  6. Once per loader: __set_stack_limits(stack_get_base(), stack_get_end())
//
// If the guest exports strerror, errno failures reported by the shim carry
// its message.
//
// # Traps
//
// Fatal shim conditions panic with *errors.TrapError. wazero unwinds the
// guest call and returns the panic as the call's error; the loader then
// refuses every further call with errors.KindAborted.
//
// # Memory
//
// Loader implements quickjsbridge.Allocator over the guest malloc and
// Memory returns a quickjsbridge.Memory that follows heap growth.
package engine
