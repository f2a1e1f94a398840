package runtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/quickjs-bridge/engine"
	"github.com/wippyai/quickjs-bridge/errors"
	"github.com/wippyai/quickjs-bridge/memview"
	"github.com/wippyai/quickjs-bridge/metrics"
	"github.com/wippyai/quickjs-bridge/shim"
	"github.com/wippyai/quickjs-bridge/transcoder"
)

// Options configures a Runtime.
type Options struct {
	// Engine configures compilation and memory limits. Nil uses defaults.
	Engine *engine.Config

	// Shim supplies guest output writers, the time zone, the clock and the
	// entropy source.
	Shim shim.Config

	// Extra host imports, registered after the built-in set.
	Extra []shim.Func

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Runtime owns one loaded guest engine module. Sessions created from it
// share the guest's memory and heap.
//
// A Runtime and its sessions are not safe for concurrent use.
type Runtime struct {
	engine  *engine.WazeroEngine
	loader  *engine.Loader
	enc     *transcoder.Encoder
	dec     *transcoder.Decoder
	log     *zap.Logger
	metrics *metrics.Metrics
	hasStep bool
	closed  bool
}

// New compiles and instantiates wasm with the host shim and its
// extensions bound, and resolves the facade exports.
func New(ctx context.Context, wasm []byte, opts Options) (*Runtime, error) {
	log := opts.Logger
	if log == nil {
		log = Logger()
	}

	eng, err := engine.NewWazeroEngineWithConfig(ctx, opts.Engine)
	if err != nil {
		return nil, errors.Load("create engine", err)
	}

	loader, err := engine.NewLoader(ctx, eng, engine.LoaderConfig{
		Shim:       opts.Shim,
		Extra:      opts.Extra,
		Extensions: true,
		Logger:     log.Named("loader"),
		Metrics:    opts.Metrics,
	})
	if err != nil {
		_ = eng.Close(ctx)
		return nil, err
	}

	fail := func(err error) (*Runtime, error) {
		_ = loader.Close(ctx)
		_ = eng.Close(ctx)
		return nil, err
	}

	if err := loader.Load(ctx, wasm); err != nil {
		return fail(err)
	}

	var missing []string
	for _, name := range facadeExports {
		if !loader.HasExport(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fail(&errors.MissingExportsError{Exports: missing})
	}

	r := &Runtime{
		engine:  eng,
		loader:  loader,
		enc:     transcoder.NewEncoder(loader.Memory(), loader),
		dec:     transcoder.NewDecoder(loader.Memory()),
		log:     log,
		metrics: opts.Metrics,
		hasStep: loader.HasExport(ExportLoopStep),
	}
	log.Debug("runtime ready",
		zap.Uint32("memory", loader.Memory().Size()),
		zap.Bool("loop_step", r.hasStep))
	return r, nil
}

// NewSession returns an uninitialized session bound to this runtime.
func (r *Runtime) NewSession() *Session {
	return newSession(r)
}

// Memory returns the guest memory.
func (r *Runtime) Memory() *memview.Holder {
	return r.loader.Memory()
}

// Encoder returns the codec used to pass host values to the guest.
func (r *Runtime) Encoder() *transcoder.Encoder {
	return r.enc
}

// Decoder returns the codec used to read guest results.
func (r *Runtime) Decoder() *transcoder.Decoder {
	return r.dec
}

// SupportsStep reports whether the guest exports engine_loop_step.
func (r *Runtime) SupportsStep() bool {
	return r.hasStep
}

// Aborted returns the trap that ended the guest, or nil.
func (r *Runtime) Aborted() error {
	return r.loader.Aborted()
}

// call invokes a facade export and returns its handle result.
func (r *Runtime) call(ctx context.Context, name string, args ...transcoder.Handle) (transcoder.Handle, error) {
	raw := make([]uint64, len(args))
	for i, a := range args {
		raw[i] = uint64(a)
	}
	res, err := r.loader.Call(ctx, name, raw...)
	if err != nil {
		return transcoder.None, err
	}
	if len(res) == 0 {
		return transcoder.None, errors.New(errors.PhaseRuntime, errors.KindInvalidData).
			Export(name).
			Detail("expected a handle result").
			Build()
	}
	return transcoder.Handle(res[0]), nil
}

// Close releases the guest and the engine. Sessions must not be used
// afterwards; their calls fail with KindClosed.
func (r *Runtime) Close(ctx context.Context) error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.loader.Close(ctx)
	if cerr := r.engine.Close(ctx); err == nil {
		err = cerr
	}
	return err
}
