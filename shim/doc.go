// Package shim implements the host side of the Emscripten runtime ABI for
// a QuickJS guest.
//
// The guest is built for a JavaScript host and imports a small set of
// functions from "env" and "wasi_snapshot_preview1": clocks, an empty
// environment, stdout/stderr writes, heap growth, time zone data and a few
// fatal trap hooks. A Shim provides all of them against one guest's memory
// views and is bound under both namespaces by the engine loader.
//
// # Failure Classes
//
// Soft failures return an Emscripten errno code to the guest and never
// unwind. Fatal conditions (assertion failure, abort, stack overflow, an
// uncaught C++ throw) call Abort, which logs "Aborted(...)" and panics with
// an *errors.TrapError. wazero recovers the panic and returns it, wrapped,
// from the guest call in progress; the instance must not be called again.
//
// # Heap Growth
//
// emscripten_resize_heap over-grows by up to 20% (capped at 96 MiB past
// the request), aligns to 64 KiB pages and retries with smaller margins if
// the grow fails. Requests beyond 2 GiB always fail. Every successful grow
// refreshes the memview snapshot before returning to the guest.
//
// # Extensions
//
// Extra imports can be registered before instantiation. Extensions returns
// the engine's own timer and entropy hooks (_ru_get_now, _ru_get_random).
package shim
