package engine

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	quickjsbridge "github.com/wippyai/quickjs-bridge"
	"github.com/wippyai/quickjs-bridge/errors"
	"github.com/wippyai/quickjs-bridge/memview"
	"github.com/wippyai/quickjs-bridge/metrics"
	"github.com/wippyai/quickjs-bridge/shim"
)

// LoaderConfig holds configuration for a loader and its shim.
type LoaderConfig struct {
	// Shim configures the host imports. Its Logger and Metrics default to
	// the loader's.
	Shim shim.Config

	// Extra imports are registered after the core set and may replace it.
	Extra []shim.Func

	// Extensions registers _ru_get_now and _ru_get_random.
	Extensions bool

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Loader compiles and instantiates one Emscripten guest and owns everything
// bound to it: the wazero runtime, the shim and the memory views.
//
// A Loader is not safe for concurrent use.
type Loader struct {
	runtime wazero.Runtime
	module  api.Module
	views   *memview.Holder
	shim    *shim.Shim
	log     *zap.Logger
	metrics *metrics.Metrics
	funcs   map[string]api.Function
	aborted *errors.Error

	stackBase uint32
	stackEnd  uint32
	shimBound bool
	limitsSet bool
	closed    bool
}

// NewLoader creates a loader with its own runtime. The shim is built
// immediately so that extra imports can still be registered before Load.
func NewLoader(ctx context.Context, e *WazeroEngine, cfg LoaderConfig) (*Loader, error) {
	if e == nil || e.cache == nil {
		return nil, errors.Closed(errors.PhaseLoad, "engine")
	}

	log := cfg.Logger
	if log == nil {
		log = Logger()
	}
	if cfg.Shim.Logger == nil {
		cfg.Shim.Logger = log.Named("shim")
	}
	if cfg.Shim.Metrics == nil {
		cfg.Shim.Metrics = cfg.Metrics
	}

	views := memview.NewHolder()
	s := shim.New(views, cfg.Shim)
	if cfg.Extensions {
		s.RegisterExtensions()
	}
	for _, f := range cfg.Extra {
		s.Register(f)
	}

	return &Loader{
		runtime: e.newRuntime(ctx),
		views:   views,
		shim:    s,
		log:     log,
		metrics: cfg.Metrics,
		funcs:   make(map[string]api.Function),
	}, nil
}

// Load compiles wasm, binds the shim under both import namespaces,
// instantiates the guest without running start functions, attaches its
// memory and initialises the guest stack.
func (l *Loader) Load(ctx context.Context, wasm []byte) error {
	if l.closed {
		return errors.Closed(errors.PhaseLoad, "loader")
	}
	if l.module != nil {
		return errors.New(errors.PhaseLoad, errors.KindAlreadyLoaded).
			Detail("a module is already loaded").
			Build()
	}

	compiled, err := l.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return errors.Load("compile module", err)
	}
	if err := l.checkImports(compiled); err != nil {
		return err
	}

	if err := l.bindShim(ctx); err != nil {
		return err
	}

	modCfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions()
	mod, err := l.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return errors.Instantiation(err)
	}

	var missing []string
	mem := mod.ExportedMemory(ExportMemory)
	if mem == nil {
		missing = append(missing, ExportMemory)
	}
	for _, name := range requiredExports {
		if mod.ExportedFunction(name) == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		_ = mod.Close(ctx)
		return &errors.MissingExportsError{Exports: missing}
	}

	l.module = mod
	l.views.Attach(mem)
	if mod.ExportedFunction(ExportStrerror) != nil {
		l.shim.SetDescriber(l.strerror)
	}

	if _, err := l.Call(ctx, ExportStackInit); err != nil {
		return err
	}
	if err := l.setStackLimits(ctx); err != nil {
		return err
	}

	l.log.Debug("guest loaded",
		zap.Uint32("memory", l.views.Size()),
		zap.Uint32("stack_base", l.stackBase),
		zap.Uint32("stack_end", l.stackEnd))
	return nil
}

// bindShim instantiates the shim under both namespaces. Host modules
// survive a failed guest instantiation, so this runs once.
func (l *Loader) bindShim(ctx context.Context) error {
	if l.shimBound {
		return nil
	}
	for _, ns := range []string{shim.ModuleEnv, shim.ModuleWASI} {
		if _, err := l.shim.Export(l.runtime.NewHostModuleBuilder(ns)).Instantiate(ctx); err != nil {
			return errors.New(errors.PhaseInstantiate, errors.KindInstantiation).
				Detail("instantiate host module %q", ns).
				Cause(err).
				Build()
		}
	}
	l.shimBound = true
	return nil
}

// setStackLimits hands the guest its own stack bounds. It runs once per
// loader, however often the stack is re-initialised.
func (l *Loader) setStackLimits(ctx context.Context) error {
	if l.limitsSet {
		return nil
	}
	base, err := l.callU32(ctx, ExportStackGetBase)
	if err != nil {
		return err
	}
	end, err := l.callU32(ctx, ExportStackGetEnd)
	if err != nil {
		return err
	}
	if _, err := l.Call(ctx, ExportSetStackLimits, api.EncodeU32(base), api.EncodeU32(end)); err != nil {
		return err
	}
	l.stackBase, l.stackEnd = base, end
	l.shim.SetStackLimits(base, end)
	l.limitsSet = true
	return nil
}

// checkImports resolves every guest import against the shim before
// instantiation. Unknown names are reported together; a known name with a
// different signature fails with KindTypeMismatch naming the import.
func (l *Loader) checkImports(compiled wazero.CompiledModule) error {
	var missing []string
	for _, def := range compiled.ImportedFunctions() {
		module, name, ok := def.Import()
		if !ok {
			continue
		}
		f, ok := l.shim.Lookup(name)
		if !ok || (module != shim.ModuleEnv && module != shim.ModuleWASI) {
			missing = append(missing, importKey(module, name))
			continue
		}
		guest := signature(def.ParamTypes(), def.ResultTypes())
		if host := signature(f.Params, f.Results); guest != host {
			return errors.New(errors.PhaseLoad, errors.KindTypeMismatch).
				Path(module, name).
				Detail("guest imports %s, host provides %s", guest, host).
				Build()
		}
	}
	if len(missing) > 0 {
		return errors.NewMissingImportsError(missing)
	}
	return nil
}

// signature renders a function type as "(i32,i64)->(f64)".
func signature(params, results []api.ValueType) string {
	return "(" + valueTypes(params) + ")->(" + valueTypes(results) + ")"
}

func valueTypes(ts []api.ValueType) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = api.ValueTypeName(t)
	}
	return strings.Join(names, ",")
}

// Call invokes an exported guest function. A trap raised by the shim leaves
// the loader aborted: this and every later call fail with KindAborted.
func (l *Loader) Call(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	if err := l.usable(); err != nil {
		return nil, err
	}
	fn := l.function(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "export", name)
	}

	start := time.Now()
	res, err := fn.Call(ctx, args...)
	l.metrics.RecordCall(name, time.Since(start), err)
	if err != nil {
		return nil, l.callFailed(name, err)
	}
	return res, nil
}

func (l *Loader) callFailed(name string, err error) error {
	var trap *errors.TrapError
	if stderrors.As(err, &trap) {
		aborted := errors.Aborted(trap)
		aborted.Export = name
		l.aborted = aborted
		l.log.Error("guest aborted", zap.String("export", name), zap.Error(trap))
		return aborted
	}
	if trap, ok := l.shim.Trap(); ok {
		aborted := errors.Aborted(trap)
		aborted.Export = name
		l.aborted = aborted
		return aborted
	}
	return errors.Call(name, err)
}

func (l *Loader) callU32(ctx context.Context, name string) (uint32, error) {
	res, err := l.Call(ctx, name)
	if err != nil {
		return 0, err
	}
	if len(res) == 0 {
		return 0, errors.New(errors.PhaseRuntime, errors.KindInvalidData).
			Export(name).
			Detail("expected one result").
			Build()
	}
	return api.DecodeU32(res[0]), nil
}

func (l *Loader) usable() error {
	switch {
	case l.closed:
		return errors.Closed(errors.PhaseRuntime, "loader")
	case l.module == nil:
		return errors.NotInitialized(errors.PhaseRuntime, "loader")
	case l.aborted != nil:
		return l.aborted
	}
	return nil
}

func (l *Loader) function(name string) api.Function {
	if fn, ok := l.funcs[name]; ok {
		return fn
	}
	fn := l.module.ExportedFunction(name)
	if fn != nil {
		l.funcs[name] = fn
	}
	return fn
}

// Alloc reserves size bytes with the guest's malloc. A null pointer is
// returned as is; callers decide whether that is fatal.
func (l *Loader) Alloc(ctx context.Context, size uint32) (uint32, error) {
	res, err := l.Call(ctx, ExportMalloc, api.EncodeU32(size))
	if err != nil {
		return 0, err
	}
	ptr := api.DecodeU32(res[0])
	if ptr != 0 {
		l.metrics.RecordAlloc(size)
	}
	return ptr, nil
}

// strerror asks the guest to describe an errno code. It is called from
// inside host imports with the import's context, so it uses a fresh
// function handle.
func (l *Loader) strerror(ctx context.Context, code int32) string {
	fn := l.module.ExportedFunction(ExportStrerror)
	if fn == nil {
		return ""
	}
	res, err := fn.Call(ctx, api.EncodeI32(code))
	if err != nil || len(res) == 0 {
		return ""
	}
	msg, _ := l.views.Current().Data.CString(api.DecodeU32(res[0]))
	return msg
}

// HasExport reports whether the guest exports a function called name.
func (l *Loader) HasExport(name string) bool {
	if l.module == nil {
		return false
	}
	return l.function(name) != nil
}

// Memory returns the guest memory. It stays valid across heap growth.
func (l *Loader) Memory() *memview.Holder {
	return l.views
}

// Shim returns the loader's host import table.
func (l *Loader) Shim() *shim.Shim {
	return l.shim
}

// StackLimits returns the bounds handed to __set_stack_limits.
func (l *Loader) StackLimits() (base, end uint32) {
	return l.stackBase, l.stackEnd
}

// Aborted returns the error that ended the guest, or nil.
func (l *Loader) Aborted() error {
	if l.aborted == nil {
		return nil
	}
	return l.aborted
}

// Close releases the guest and its runtime. It is safe to call twice.
func (l *Loader) Close(ctx context.Context) error {
	if l.closed {
		return nil
	}
	l.closed = true
	l.funcs = nil
	l.module = nil
	return l.runtime.Close(ctx)
}

var (
	_ quickjsbridge.Allocator   = (*Loader)(nil)
	_ quickjsbridge.Memory      = (*memview.Holder)(nil)
	_ quickjsbridge.MemorySizer = (*memview.Holder)(nil)
)
