package shim

import (
	"context"
	"math"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/quickjs-bridge/memview"
)

const (
	// MaxHeapSize is the largest heap the guest may request.
	MaxHeapSize uint64 = 2147483648

	// overGrowthCap bounds how far past a request the heap is over-grown.
	overGrowthCap uint64 = 100663296
)

// ResizeHeap grows linear memory to at least requested bytes. It over-grows
// by up to 20% and retries with smaller margins on failure. The views are
// refreshed on success. Failure is reported, never raised.
func (s *Shim) ResizeHeap(requested uint32) bool {
	old := uint64(s.views.Size())
	req := uint64(requested)

	if req <= old {
		return false
	}
	if req > MaxHeapSize {
		s.log.Error("cannot enlarge memory",
			zap.Uint64("requested", req),
			zap.Uint64("limit", MaxHeapSize))
		s.cfg.Metrics.RecordGrowth(false, uint32(old))
		return false
	}

	for cutDown := 1.0; cutDown <= 4; cutDown *= 2 {
		overGrown := float64(old) * (1 + 0.2/cutDown)
		overGrown = math.Min(overGrown, float64(req+overGrowthCap))

		target := uint64(math.Ceil(math.Max(float64(req), overGrown)/memview.PageSize)) * memview.PageSize
		newSize := min(MaxHeapSize, target)

		pages := uint32((newSize - old) / memview.PageSize)
		if _, ok := s.views.Grow(pages); ok {
			size := s.views.Size()
			s.cfg.Metrics.RecordGrowth(true, size)
			s.cfg.Metrics.RecordRefresh()
			s.log.Debug("heap grown",
				zap.Uint64("from", old),
				zap.Uint32("to", size),
				zap.Uint64("requested", req))
			return true
		}
	}

	s.log.Error("failed to grow the heap, not enough memory",
		zap.Uint64("from", old),
		zap.Uint64("requested", req))
	s.cfg.Metrics.RecordGrowth(false, uint32(old))
	return false
}

// NotifyMemoryGrowth re-derives the views after the guest grew memory itself.
func (s *Shim) NotifyMemoryGrowth(index uint32) {
	s.views.Refresh()
	s.cfg.Metrics.RecordRefresh()
	s.log.Debug("memory growth notified",
		zap.Uint32("index", index),
		zap.Uint32("size", s.views.Size()))
}

func (s *Shim) resizeHeap(_ context.Context, _ api.Module, stack []uint64) {
	if s.ResizeHeap(api.DecodeU32(stack[0])) {
		stack[0] = 1
	} else {
		stack[0] = 0
	}
}

func (s *Shim) notifyMemoryGrowth(_ context.Context, _ api.Module, stack []uint64) {
	s.NotifyMemoryGrowth(api.DecodeU32(stack[0]))
}
