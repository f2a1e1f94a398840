// Package errors provides structured error types for the QuickJS bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the guest export involved, the Go type, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindInvalidHandle).
//		Export("engine_js_eval").
//		Value(h).
//		Detail("unknown tag 0x%x", tag).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfBounds(errors.PhaseDecode, ptr, n)
//	err := errors.StaleHandle(errors.PhaseSession, "window", id)
//
// Three failure classes cross the guest boundary with their own types:
// ErrnoError (soft, reported to the guest as a code), TrapError (fatal,
// unwinds the guest call) and GuestError (an error-tagged return value).
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
