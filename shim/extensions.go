package shim

import (
	"context"
	"fmt"
	"io"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/quickjs-bridge/errors"
)

// Host extension imports the guest engine uses for timers and entropy.
const (
	ImportGetNow    = "_ru_get_now"
	ImportGetRandom = "_ru_get_random"
)

// Extensions returns the host extension imports bound to s.
func (s *Shim) Extensions() []Func {
	return []Func{
		{Name: ImportGetNow, Fn: s.ruGetNow, Results: []api.ValueType{f64}},
		{Name: ImportGetRandom, Fn: s.ruGetRandom, Params: []api.ValueType{i32, i32}},
	}
}

// RegisterExtensions adds the host extension imports.
func (s *Shim) RegisterExtensions() {
	for _, f := range s.Extensions() {
		s.Register(f)
	}
}

// GetRandom fills n guest bytes at ptr from the configured entropy source.
func (s *Shim) GetRandom(ptr, n uint32) {
	buf, ok := s.views.Current().Data.Bytes(ptr, n)
	if !ok {
		s.Abort(errors.TrapAbort, fmt.Sprintf("_ru_get_random: range 0x%08x+%d out of bounds", ptr, n))
	}
	if _, err := io.ReadFull(s.cfg.Random, buf); err != nil {
		s.Abort(errors.TrapAbort, fmt.Sprintf("_ru_get_random: %v", err))
	}
}

func (s *Shim) ruGetNow(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = api.EncodeF64(s.GetNow())
}

func (s *Shim) ruGetRandom(_ context.Context, _ api.Module, stack []uint64) {
	s.GetRandom(api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))
}
