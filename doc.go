// Package quickjsbridge hosts a QuickJS engine compiled to WebAssembly with
// Emscripten and exposes it to Go.
//
// The guest is a core wasm module that expects the Emscripten runtime ABI:
// a handful of WASI preview1 calls, heap growth, traps and a pair of
// host extensions for time and randomness. This library supplies those
// imports on top of wazero and speaks the guest's value protocol, a tagged
// 64-bit handle that carries scalars inline or points at guest-owned blocks.
//
// # Architecture Overview
//
//	quickjsbridge/       Root package with Memory and Allocator interfaces
//	├── runtime/         Runtime and Session facade (eval, windows, event loop)
//	├── engine/          wazero setup and the module Loader
//	├── shim/            Emscripten / WASI preview1 host imports
//	├── memview/         Typed views over linear memory, refreshed on growth
//	├── transcoder/      Boundary handle codec and MessagePack values
//	├── resource/        Handle table for live windows
//	├── metrics/         Prometheus collectors
//	├── config/          File and environment configuration, logger setup
//	├── errors/          Structured error types, errno table, traps
//	└── cmd/quickjs/     Command line runner and REPL
//
// # Quick Start
//
//	rt, err := runtime.New(ctx, wasmBytes, runtime.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	s := rt.NewSession()
//	if err := s.Initialize(ctx, runtime.ModeFull); err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Cleanup(ctx)
//
//	v, err := s.Eval(ctx, "1+1")
//	fmt.Println(v) // 2
//
// # Event Loop
//
// The guest never blocks. Timers and promise jobs are driven by the caller:
//
//	for {
//	    timers, _ := s.HasTimers(ctx)
//	    jobs, _ := s.HasPendingJobs(ctx)
//	    if !timers && !jobs {
//	        break
//	    }
//	    if _, err := s.Step(ctx); err != nil {
//	        return err
//	    }
//	}
//
// # Thread Safety
//
// A Runtime owns one single-threaded guest. Runtime and Session are NOT
// thread-safe and should be used by a single goroutine. Separate Runtimes
// are independent and may run in parallel.
//
// # Memory Model
//
// Linear memory grows on demand through emscripten_resize_heap and never
// shrinks. Every growth invalidates previously derived views; the memview
// package re-derives them before any further access. Blocks the host
// allocates for arguments are handed to the guest, which frees them.
package quickjsbridge
