package runtime

import (
	"context"

	"github.com/wippyai/quickjs-bridge/resource"
	"github.com/wippyai/quickjs-bridge/transcoder"
)

// windowType is the resource table type of window entries.
const windowType uint32 = 1

// WindowEvaluator runs script against a window. It is all a browser
// emulation layer needs from a session.
type WindowEvaluator interface {
	EvalInWindow(ctx context.Context, w *Window, code string, params any) (any, error)
}

// Window is an emulated browser window created inside a session's guest
// engine. It is valid until destroyed or until the session is cleaned up.
type Window struct {
	session  *Session
	handle   transcoder.Handle
	id       resource.Handle
	released bool
}

// ID returns the window's host-side handle. It is unique among the live
// windows of its session.
func (w *Window) ID() resource.Handle {
	return w.id
}

// Handle returns the guest script handle of the window object.
func (w *Window) Handle() transcoder.Handle {
	return w.handle
}

// Released reports whether the window was destroyed or its session
// cleaned up.
func (w *Window) Released() bool {
	return w.released
}

// Eval is shorthand for EvalInWindow on the owning session.
func (w *Window) Eval(ctx context.Context, code string, params any) (any, error) {
	return w.session.EvalInWindow(ctx, w, code, params)
}

// Drop marks the window released when its table entry goes away.
func (w *Window) Drop() {
	w.released = true
}

var (
	_ WindowEvaluator  = (*Session)(nil)
	_ resource.Dropper = (*Window)(nil)
)
