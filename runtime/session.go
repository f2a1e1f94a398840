package runtime

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/quickjs-bridge/errors"
	"github.com/wippyai/quickjs-bridge/resource"
	"github.com/wippyai/quickjs-bridge/transcoder"
)

// State is the lifecycle stage of a session.
type State uint8

const (
	StateUninitialized State = iota
	StateInitialized
	StateCleanedUp
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateCleanedUp:
		return "cleaned_up"
	}
	return "unknown"
}

// Session is one guest engine instance. It moves from Uninitialized to
// Initialized with Initialize and ends with Cleanup. Every other operation
// requires Initialized and fails without calling the guest otherwise.
//
// The guest never runs timers or jobs on its own; callers poll HasTimers
// and HasPendingJobs and drive the loop with Step.
type Session struct {
	id      uuid.UUID
	rt      *Runtime
	log     *zap.Logger
	state   State
	engine  transcoder.Handle
	table   *resource.Table
	windows *resource.Typed[*Window]
}

func newSession(rt *Runtime) *Session {
	id := uuid.New()
	table := resource.NewTable()
	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
		if e.TypeID != windowType {
			return
		}
		switch e.Type {
		case resource.EventCreated:
			rt.metrics.WindowsChanged(1)
		case resource.EventDropped:
			rt.metrics.WindowsChanged(-1)
		}
	}))
	return &Session{
		id:      id,
		rt:      rt,
		log:     rt.log.With(zap.String("session", id.String())),
		table:   table,
		windows: resource.NewTyped[*Window](table, windowType),
	}
}

// ID identifies the session in logs.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// State returns the session's lifecycle stage.
func (s *Session) State() State {
	return s.state
}

// Windows returns the number of live windows.
func (s *Session) Windows() int {
	return s.windows.Len()
}

// Initialize creates the guest engine in the given mode.
func (s *Session) Initialize(ctx context.Context, mode uint32) error {
	switch s.state {
	case StateInitialized:
		return errors.New(errors.PhaseSession, errors.KindAlreadyLoaded).
			Detail("session already initialized").
			Build()
	case StateCleanedUp:
		return errors.Closed(errors.PhaseSession, "session")
	}

	h, err := s.rt.call(ctx, ExportEngineNew, transcoder.Uint32(mode))
	if err != nil {
		return err
	}
	if h.Kind() != transcoder.KindEngine {
		if _, err := s.decode(ExportEngineNew, h); err != nil {
			return err
		}
		return errors.New(errors.PhaseSession, errors.KindTypeMismatch).
			Export(ExportEngineNew).
			Value(uint64(h)).
			Detail("expected an engine handle, got %s", h.Kind()).
			Build()
	}

	s.engine = h
	s.state = StateInitialized
	s.rt.metrics.SessionOpened()
	s.log.Debug("session initialized", zap.Uint32("mode", mode), zap.Stringer("engine", h))
	return nil
}

// Eval runs code in the engine's global context. A null or undefined
// result is returned as nil.
func (s *Session) Eval(ctx context.Context, code string) (any, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	src, err := s.rt.enc.String(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.eval(ctx, ExportEval, s.engine, src)
}

// HasTimers reports whether the engine has timers scheduled.
func (s *Session) HasTimers(ctx context.Context) (bool, error) {
	return s.query(ctx, ExportHasTimers)
}

// HasPendingJobs reports whether the engine has queued jobs.
func (s *Session) HasPendingJobs(ctx context.Context) (bool, error) {
	return s.query(ctx, ExportHasPendingJobs)
}

// Step runs one iteration of the engine's event loop and reports whether
// any work was done. Callers loop until it returns false.
func (s *Session) Step(ctx context.Context) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	if !s.rt.hasStep {
		return false, errors.Unsupported(errors.PhaseSession, ExportLoopStep)
	}
	did, err := s.query(ctx, ExportLoopStep)
	if err != nil {
		return false, err
	}
	s.rt.metrics.RecordStep()
	return did, nil
}

// CreateWindow creates an emulated browser window. An empty content
// creates a blank document; nil options are omitted.
func (s *Session) CreateWindow(ctx context.Context, content string, options any) (*Window, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	doc := transcoder.None
	if content != "" {
		h, err := s.rt.enc.String(ctx, content)
		if err != nil {
			return nil, err
		}
		doc = h
	}
	opts, err := s.structured(ctx, options)
	if err != nil {
		return nil, err
	}

	h, err := s.rt.call(ctx, ExportCreateWindow, s.engine, doc, opts)
	if err != nil {
		return nil, err
	}
	if h.Kind() != transcoder.KindScript {
		if _, err := s.decode(ExportCreateWindow, h); err != nil {
			return nil, err
		}
		return nil, errors.InvalidHandle(errors.PhaseSession, uint64(h), "engine_create_window did not return a window")
	}

	w := &Window{session: s, handle: h}
	id, err := s.windows.Insert(w)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSession, errors.KindClosed, err, "track window")
	}
	w.id = id
	s.log.Debug("window created", zap.Uint32("window", uint32(id)), zap.Stringer("handle", h))
	return w, nil
}

// DestroyWindow releases w in the guest. Destroying a window twice, or one
// from another session, fails with KindStaleHandle.
func (s *Session) DestroyWindow(ctx context.Context, w *Window) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	if err := s.live(w); err != nil {
		return false, err
	}

	h, err := s.rt.call(ctx, ExportDestroyWindow, s.engine, w.handle)
	if err != nil {
		return false, err
	}
	ok, err := s.rt.dec.DecodeBool(h)
	if err != nil {
		return false, s.guestErr(ExportDestroyWindow, err)
	}
	s.windows.Remove(w.id)
	s.log.Debug("window destroyed", zap.Uint32("window", uint32(w.id)), zap.Bool("ok", ok))
	return ok, nil
}

// UseJQuery installs the jQuery emulation into w.
func (s *Session) UseJQuery(ctx context.Context, w *Window) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.live(w); err != nil {
		return err
	}
	h, err := s.rt.call(ctx, ExportUseJQuery, s.engine, w.handle)
	if err != nil {
		return err
	}
	_, err = s.decode(ExportUseJQuery, h)
	return err
}

// EvalInWindow runs code against w. Non-nil params are passed to the
// script as a structured value.
func (s *Session) EvalInWindow(ctx context.Context, w *Window, code string, params any) (any, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.live(w); err != nil {
		return nil, err
	}
	src, err := s.rt.enc.String(ctx, code)
	if err != nil {
		return nil, err
	}
	args, err := s.structured(ctx, params)
	if err != nil {
		return nil, err
	}
	return s.eval(ctx, ExportEvalInWindow, s.engine, w.handle, src, args)
}

// Cleanup destroys the guest engine and releases every window. The
// session is unusable afterwards, whatever the guest reports.
func (s *Session) Cleanup(ctx context.Context) (bool, error) {
	switch s.state {
	case StateUninitialized:
		return false, errors.NotInitialized(errors.PhaseSession, "session")
	case StateCleanedUp:
		return false, errors.Closed(errors.PhaseSession, "session")
	}

	s.state = StateCleanedUp
	windows := s.windows.Len()
	_ = s.table.Close()
	s.rt.metrics.SessionClosed()

	h, err := s.rt.call(ctx, ExportEngineCleanup, s.engine)
	s.engine = transcoder.None
	if err != nil {
		return false, err
	}
	ok, err := s.rt.dec.DecodeBool(h)
	if err != nil {
		return false, s.guestErr(ExportEngineCleanup, err)
	}
	s.log.Debug("session cleaned up", zap.Int("windows", windows), zap.Bool("ok", ok))
	return ok, nil
}

func (s *Session) ready() error {
	switch s.state {
	case StateUninitialized:
		return errors.NotInitialized(errors.PhaseSession, "session")
	case StateCleanedUp:
		return errors.Closed(errors.PhaseSession, "session")
	}
	return nil
}

// live checks that w belongs to this session and has not been released.
// Table slots are reused, so the entry must still hold w itself.
func (s *Session) live(w *Window) error {
	if w == nil {
		return errors.InvalidInput(errors.PhaseSession, "nil window")
	}
	if w.session != s || w.released || !s.windows.Holds(w.id, w) {
		return errors.StaleHandle(errors.PhaseSession, "window", uint32(w.id))
	}
	return nil
}

func (s *Session) query(ctx context.Context, export string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	h, err := s.rt.call(ctx, export, s.engine)
	if err != nil {
		return false, err
	}
	b, err := s.rt.dec.DecodeBool(h)
	if err != nil {
		return false, s.guestErr(export, err)
	}
	return b, nil
}

func (s *Session) eval(ctx context.Context, export string, args ...transcoder.Handle) (any, error) {
	h, err := s.rt.call(ctx, export, args...)
	if err != nil {
		return nil, err
	}
	v, err := s.decode(export, h)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

func (s *Session) decode(export string, h transcoder.Handle) (transcoder.Value, error) {
	v, err := s.rt.dec.Decode(h)
	if err != nil {
		return nil, s.guestErr(export, err)
	}
	return v, nil
}

func (s *Session) structured(ctx context.Context, v any) (transcoder.Handle, error) {
	if v == nil {
		return transcoder.None, nil
	}
	return s.rt.enc.Structured(ctx, v)
}

// guestErr names the export on errors the guest reported.
func (s *Session) guestErr(export string, err error) error {
	var ge *errors.GuestError
	if stderrors.As(err, &ge) && ge.Export == "" {
		ge.Export = export
		s.log.Debug("guest error", zap.String("export", export), zap.String("message", ge.Message))
	}
	return err
}
