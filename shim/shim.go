package shim

import (
	"context"
	"crypto/rand"
	"io"
	"sort"
	"sync/atomic"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/quickjs-bridge/errors"
	"github.com/wippyai/quickjs-bridge/memview"
	"github.com/wippyai/quickjs-bridge/metrics"
)

// Import namespaces the guest resolves the shim under. Both receive the
// same function set.
const (
	ModuleEnv  = "env"
	ModuleWASI = "wasi_snapshot_preview1"
)

const (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
	f64 = api.ValueTypeF64
)

// Config holds the host resources the shim exposes to the guest.
type Config struct {
	// Stdout and Stderr receive raw guest output for descriptors 1 and 2.
	// Nil discards it; the text is still logged.
	Stdout io.Writer
	Stderr io.Writer

	// Random backs _ru_get_random. Defaults to crypto/rand.
	Random io.Reader

	// Location is the zone used by _localtime_js and _tzset_js.
	// Defaults to time.Local.
	Location *time.Location

	// Now overrides the wall clock, mainly for tests.
	Now func() time.Time

	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Func is a host import definition.
type Func struct {
	Fn      api.GoModuleFunc
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

// Shim implements the Emscripten runtime imports for one guest instance.
// It is owned by a single loader and is not safe for concurrent use.
type Shim struct {
	cfg      Config
	views    *memview.Holder
	log      *zap.Logger
	start    time.Time
	funcs    map[string]Func
	describe func(context.Context, int32) string

	trap      atomic.Pointer[errors.TrapError]
	lastErrno atomic.Pointer[errors.ErrnoError]

	stackBase uint32
	stackEnd  uint32
}

// New creates a shim that accesses guest memory through views.
func New(views *memview.Holder, cfg Config) *Shim {
	if cfg.Random == nil {
		cfg.Random = rand.Reader
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = Logger()
	}

	s := &Shim{
		cfg:   cfg,
		views: views,
		log:   log,
		start: time.Now(),
		funcs: make(map[string]Func),
	}
	s.registerCore()
	return s
}

func (s *Shim) registerCore() {
	for _, f := range []Func{
		{Name: "clock_time_get", Fn: s.clockTimeGet, Params: []api.ValueType{i32, i64, i32}, Results: []api.ValueType{i32}},
		{Name: "environ_sizes_get", Fn: s.environSizesGet, Params: []api.ValueType{i32, i32}, Results: []api.ValueType{i32}},
		{Name: "environ_get", Fn: s.environGet, Params: []api.ValueType{i32, i32}, Results: []api.ValueType{i32}},
		{Name: "fd_write", Fn: s.fdWrite, Params: []api.ValueType{i32, i32, i32, i32}, Results: []api.ValueType{i32}},
		{Name: "fd_seek", Fn: s.fdSeek, Params: []api.ValueType{i32, i64, i32, i32}, Results: []api.ValueType{i32}},
		{Name: "fd_close", Fn: s.fdClose, Params: []api.ValueType{i32}, Results: []api.ValueType{i32}},
		{Name: "__syscall_unlinkat", Fn: s.syscallUnlinkat, Params: []api.ValueType{i32, i32, i32}, Results: []api.ValueType{i32}},
		{Name: "emscripten_resize_heap", Fn: s.resizeHeap, Params: []api.ValueType{i32}, Results: []api.ValueType{i32}},
		{Name: "emscripten_notify_memory_growth", Fn: s.notifyMemoryGrowth, Params: []api.ValueType{i32}},
		{Name: "emscripten_date_now", Fn: s.dateNow, Results: []api.ValueType{f64}},
		{Name: "emscripten_get_now", Fn: s.getNow, Results: []api.ValueType{f64}},
		{Name: "_localtime_js", Fn: s.localtime, Params: []api.ValueType{i64, i32}},
		{Name: "_tzset_js", Fn: s.tzset, Params: []api.ValueType{i32, i32, i32, i32}},
		{Name: "__assert_fail", Fn: s.assertFail, Params: []api.ValueType{i32, i32, i32, i32}},
		{Name: "_abort_js", Fn: s.abortJS},
		{Name: "__handle_stack_overflow", Fn: s.handleStackOverflow, Params: []api.ValueType{i32}},
		{Name: "__cxa_throw", Fn: s.cxaThrow, Params: []api.ValueType{i32, i32, i32}},
	} {
		s.funcs[f.Name] = f
	}
}

// Register adds or replaces a host import. It must be called before the
// shim is exported to a host module builder.
func (s *Shim) Register(f Func) {
	s.funcs[f.Name] = f
}

// Has reports whether the shim provides an import called name.
func (s *Shim) Has(name string) bool {
	_, ok := s.funcs[name]
	return ok
}

// Lookup returns the import called name.
func (s *Shim) Lookup(name string) (Func, bool) {
	f, ok := s.funcs[name]
	return f, ok
}

// Names returns every import name in sorted order.
func (s *Shim) Names() []string {
	names := make([]string, 0, len(s.funcs))
	for name := range s.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Export defines every import on b.
func (s *Shim) Export(b wazero.HostModuleBuilder) wazero.HostModuleBuilder {
	for _, name := range s.Names() {
		f := s.funcs[name]
		b = b.NewFunctionBuilder().
			WithGoModuleFunction(f.Fn, f.Params, f.Results).
			WithName(f.Name).
			Export(f.Name)
	}
	return b
}

// SetStackLimits records the guest stack bounds for overflow diagnostics.
func (s *Shim) SetStackLimits(base, end uint32) {
	s.stackBase = base
	s.stackEnd = end
}

// SetDescriber installs the strerror lookup used for ErrnoError messages.
// fn receives the context of the host call that failed.
func (s *Shim) SetDescriber(fn func(context.Context, int32) string) {
	s.describe = fn
}

// Trap returns the trap that aborted the guest, if any.
func (s *Shim) Trap() (*errors.TrapError, bool) {
	t := s.trap.Load()
	return t, t != nil
}

// LastErrno returns the most recent soft failure reported to the guest.
func (s *Shim) LastErrno() *errors.ErrnoError {
	return s.lastErrno.Load()
}

// fail records a soft failure and returns its code for the guest.
func (s *Shim) fail(ctx context.Context, call string, code int32) int32 {
	var describe func(int32) string
	if s.describe != nil {
		describe = func(c int32) string { return s.describe(ctx, c) }
	}
	e := errors.NewErrnoError(code, describe)
	s.lastErrno.Store(e)
	s.cfg.Metrics.RecordErrno(e.Code)
	s.log.Debug("shim call failed", zap.String("call", call), zap.Error(e))
	return code
}

func (s *Shim) now() time.Time {
	return s.cfg.Now()
}

// monotonicMillis returns milliseconds since the shim was created,
// matching performance.now().
func (s *Shim) monotonicMillis() float64 {
	return float64(time.Since(s.start).Nanoseconds()) / 1e6
}
