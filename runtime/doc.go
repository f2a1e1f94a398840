// Package runtime is the host-facing API of the QuickJS engine module.
//
// # Quick Start
//
//	ctx := context.Background()
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
// The guest never runs timers or promise jobs by itself. The caller drives
// it:
//
//	for {
//	    did, err := s.Step(ctx)
//	    if err != nil || !did {
//	        break
//	    }
//	}
//
// # Windows
//
// CreateWindow builds an emulated browser window from an HTML document.
// Script runs against it with EvalInWindow, optionally receiving a
// structured params value:
//
//	w, err := s.CreateWindow(ctx, html, nil)
//	title, err := s.EvalInWindow(ctx, w, "document.title", nil)
//	ok, err := s.DestroyWindow(ctx, w)
//
// A destroyed window, or a window of another session, is rejected with
// errors.KindStaleHandle before the guest is called.
//
// # Errors
//
// Operations outside the Initialized state fail with KindNotInitialized or
// KindClosed without reaching the guest. Script exceptions surface as
// *errors.GuestError. A fatal trap returns *errors.TrapError and leaves the
// runtime aborted: every later call fails with KindAborted.
package runtime
