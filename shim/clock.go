package shim

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/quickjs-bridge/errors"
)

// WASI clock ids accepted by clock_time_get.
const (
	ClockRealtime         uint32 = 0
	ClockMonotonic        uint32 = 1
	ClockProcessCPUTimeID uint32 = 2
	ClockThreadCPUTimeID  uint32 = 3
)

// ClockTimeGet writes the current time of clock id, in nanoseconds, at
// ptime. Id 0 is wall-clock time; every other valid id is monotonic.
func (s *Shim) ClockTimeGet(ctx context.Context, id uint32, ptime uint32) int32 {
	if id > ClockThreadCPUTimeID {
		return s.fail(ctx, "clock_time_get", errors.EINVAL)
	}

	var ns int64
	if id == ClockRealtime {
		ns = s.now().UnixNano()
	} else {
		ns = int64(s.monotonicMillis() * 1e6)
	}

	if !s.views.Current().Data.PutInt64(ptime, ns) {
		return s.fail(ctx, "clock_time_get", errors.EFAULT)
	}
	return errors.ESUCCESS
}

// DateNow returns wall-clock milliseconds since the Unix epoch.
func (s *Shim) DateNow() float64 {
	return float64(s.now().UnixNano()) / 1e6
}

// GetNow returns monotonic milliseconds since the shim was created.
func (s *Shim) GetNow() float64 {
	return s.monotonicMillis()
}

func (s *Shim) clockTimeGet(ctx context.Context, _ api.Module, stack []uint64) {
	// precision (stack[1]) is ignored
	stack[0] = uint64(uint32(s.ClockTimeGet(ctx, api.DecodeU32(stack[0]), api.DecodeU32(stack[2]))))
}

func (s *Shim) dateNow(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = api.EncodeF64(s.DateNow())
}

func (s *Shim) getNow(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = api.EncodeF64(s.GetNow())
}
