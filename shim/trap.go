package shim

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/quickjs-bridge/errors"
)

// Abort ends guest execution. The trap is logged, recorded and raised as a
// panic, which wazero turns into the error of the in-flight guest call.
func (s *Shim) Abort(kind errors.TrapKind, what string) {
	trap := &errors.TrapError{Kind: kind, Message: what}
	s.log.Error(trap.Error(), zap.String("kind", string(kind)))
	s.cfg.Metrics.RecordTrap(string(kind))
	s.trap.CompareAndSwap(nil, trap)
	panic(trap)
}

func (s *Shim) cstring(ptr uint32, fallback string) string {
	if ptr == 0 {
		return fallback
	}
	str, ok := s.views.Current().Data.CString(ptr)
	if !ok {
		return fallback
	}
	return str
}

func (s *Shim) assertFail(_ context.Context, _ api.Module, stack []uint64) {
	cond := s.cstring(api.DecodeU32(stack[0]), "")
	file := s.cstring(api.DecodeU32(stack[1]), "unknown filename")
	line := api.DecodeI32(stack[2])
	fn := s.cstring(api.DecodeU32(stack[3]), "unknown function")
	s.Abort(errors.TrapAssert, fmt.Sprintf("Assertion failed: %s, at: %s, %d, %s", cond, file, line, fn))
}

func (s *Shim) abortJS(_ context.Context, _ api.Module, _ []uint64) {
	s.Abort(errors.TrapAbort, "native code called abort()")
}

func (s *Shim) handleStackOverflow(_ context.Context, _ api.Module, stack []uint64) {
	requested := api.DecodeU32(stack[0])
	s.Abort(errors.TrapStackOverflow, fmt.Sprintf(
		"stack overflow (Attempt to set SP to 0x%08x, with stack limits [0x%08x - 0x%08x]). "+
			"If you require more stack space build with -sSTACK_SIZE=<bytes>",
		requested, s.stackEnd, s.stackBase))
}

func (s *Shim) cxaThrow(_ context.Context, _ api.Module, _ []uint64) {
	s.Abort(errors.TrapException, "Exception thrown, but exception catching is not enabled. "+
		"Compile with -sNO_DISABLE_EXCEPTION_CATCHING or -sEXCEPTION_CATCHING_ALLOWED=[..] to catch.")
}
