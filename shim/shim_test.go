package shim

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/quickjs-bridge/errors"
	"github.com/wippyai/quickjs-bridge/memview"
)

type fakeMemory struct {
	buf      []byte
	maxPages uint32
}

func (m *fakeMemory) Size() uint32 { return uint32(len(m.buf)) }

func (m *fakeMemory) Read(off, n uint32) ([]byte, bool) {
	if uint64(off)+uint64(n) > uint64(len(m.buf)) {
		return nil, false
	}
	return m.buf[off : off+n], true
}

func (m *fakeMemory) Grow(delta uint32) (uint32, bool) {
	prev := uint32(len(m.buf)) / memview.PageSize
	if prev+delta > m.maxPages {
		return prev, false
	}
	next := make([]byte, (prev+delta)*memview.PageSize)
	copy(next, m.buf)
	m.buf = next
	return prev, true
}

func newTestShim(t *testing.T, pages, maxPages uint32, cfg Config) (*Shim, *fakeMemory) {
	t.Helper()
	mem := &fakeMemory{buf: make([]byte, pages*memview.PageSize), maxPages: maxPages}
	h := memview.NewHolder()
	h.Attach(mem)
	return New(h, cfg), mem
}

func call(s *Shim, name string, args ...uint64) []uint64 {
	stack := make([]uint64, max(len(args), 1))
	copy(stack, args)
	s.funcs[name].Fn(context.Background(), nil, stack)
	return stack
}

func TestShim_ProvidesRequiredImports(t *testing.T) {
	s, _ := newTestShim(t, 1, 1, Config{})
	for _, name := range []string{
		"clock_time_get", "environ_sizes_get", "environ_get",
		"fd_write", "fd_seek", "fd_close", "__syscall_unlinkat",
		"emscripten_resize_heap", "emscripten_notify_memory_growth",
		"__assert_fail", "_abort_js", "__handle_stack_overflow",
	} {
		if !s.Has(name) {
			t.Errorf("missing import %s", name)
		}
	}
	if s.Has(ImportGetNow) {
		t.Error("extensions should not be registered by default")
	}
	s.RegisterExtensions()
	if !s.Has(ImportGetNow) || !s.Has(ImportGetRandom) {
		t.Error("extensions not registered")
	}
}

func TestShim_ExportBindsBothNamespaces(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	s, _ := newTestShim(t, 1, 1, Config{})
	s.RegisterExtensions()
	for _, ns := range []string{ModuleEnv, ModuleWASI} {
		mod, err := s.Export(r.NewHostModuleBuilder(ns)).Instantiate(ctx)
		if err != nil {
			t.Fatalf("instantiate %s: %v", ns, err)
		}
		if _, ok := mod.ExportedFunctionDefinitions()["fd_write"]; !ok {
			t.Errorf("%s: fd_write not exported", ns)
		}
	}
}

func TestClockTimeGet(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s, mem := newTestShim(t, 1, 1, Config{Now: func() time.Time { return fixed }})
	d := memview.NewHolder()
	d.Attach(mem)

	t.Run("realtime", func(t *testing.T) {
		if rc := s.ClockTimeGet(ctx, ClockRealtime, 64); rc != 0 {
			t.Fatalf("rc = %d", rc)
		}
		ns, _ := d.Current().Data.Int64(64)
		if ns != fixed.UnixNano() {
			t.Errorf("ns = %d, want %d", ns, fixed.UnixNano())
		}
	})

	t.Run("monotonic ids", func(t *testing.T) {
		var prev int64
		for id := ClockMonotonic; id <= ClockThreadCPUTimeID; id++ {
			if rc := s.ClockTimeGet(ctx, id, 72); rc != 0 {
				t.Fatalf("id %d rc = %d", id, rc)
			}
			ns, _ := d.Current().Data.Int64(72)
			if ns < prev {
				t.Errorf("id %d went backwards: %d < %d", id, ns, prev)
			}
			prev = ns
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		stack := call(s, "clock_time_get", 4, 0, 80)
		if api.DecodeI32(stack[0]) != errors.EINVAL {
			t.Errorf("rc = %d, want %d", api.DecodeI32(stack[0]), errors.EINVAL)
		}
		if e := s.LastErrno(); e == nil || e.Code != "EINVAL" {
			t.Errorf("LastErrno = %v", e)
		}
	})

	t.Run("bad pointer", func(t *testing.T) {
		if rc := s.ClockTimeGet(ctx, ClockRealtime, memview.PageSize-4); rc != errors.EFAULT {
			t.Errorf("rc = %d, want EFAULT", rc)
		}
	})
}

func TestFdWrite(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.DebugLevel)
	var stdout, stderr bytes.Buffer
	s, mem := newTestShim(t, 1, 1, Config{Stdout: &stdout, Stderr: &stderr, Logger: zap.New(core)})
	d := memview.NewHolder()
	d.Attach(mem)
	v := d.Current().Data

	v.PutBytes(1000, []byte("hello "))
	v.PutBytes(1100, []byte("world\n"))
	// iovec array at 200
	v.PutUint32(200, 1000)
	v.PutUint32(204, 6)
	v.PutUint32(208, 1100)
	v.PutUint32(212, 6)

	t.Run("stdout", func(t *testing.T) {
		stack := call(s, "fd_write", 1, 200, 2, 300)
		if rc := api.DecodeI32(stack[0]); rc != 0 {
			t.Fatalf("rc = %d", rc)
		}
		if n, _ := v.Uint32(300); n != 12 {
			t.Errorf("written = %d, want 12", n)
		}
		if stdout.String() != "hello world\n" {
			t.Errorf("stdout = %q", stdout.String())
		}
		found := false
		for _, e := range logs.All() {
			if e.Message == "world" {
				found = true
			}
		}
		if !found {
			t.Errorf("trimmed segment not logged: %v", logs.All())
		}
	})

	t.Run("stderr", func(t *testing.T) {
		if rc := s.FdWrite(ctx, FdStderr, 200, 1, 300); rc != 0 {
			t.Fatalf("rc = %d", rc)
		}
		if stderr.String() != "hello " {
			t.Errorf("stderr = %q", stderr.String())
		}
	})

	t.Run("invalid segment skipped", func(t *testing.T) {
		v.PutUint32(400, memview.PageSize-2)
		v.PutUint32(404, 10)
		v.PutUint32(408, 1000)
		v.PutUint32(412, 5)
		if rc := s.FdWrite(ctx, FdStdout, 400, 2, 300); rc != 0 {
			t.Fatalf("rc = %d", rc)
		}
		if n, _ := v.Uint32(300); n != 5 {
			t.Errorf("written = %d, want 5", n)
		}
	})

	t.Run("other descriptors counted and dropped", func(t *testing.T) {
		stdout.Reset()
		stderr.Reset()
		for _, fd := range []uint32{FdFirstFile, 7} {
			v.PutUint32(300, 0)
			if rc := s.FdWrite(ctx, fd, 200, 2, 300); rc != errors.ESUCCESS {
				t.Fatalf("fd %d: rc = %d", fd, rc)
			}
			if n, _ := v.Uint32(300); n != 12 {
				t.Errorf("fd %d: written = %d, want 12", fd, n)
			}
		}
		if stdout.Len() != 0 || stderr.Len() != 0 {
			t.Errorf("output forwarded: stdout=%q stderr=%q", stdout.String(), stderr.String())
		}
	})

	t.Run("stdin forwarded to stdout", func(t *testing.T) {
		stdout.Reset()
		if rc := s.FdWrite(ctx, FdStdin, 200, 1, 300); rc != errors.ESUCCESS {
			t.Fatalf("rc = %d", rc)
		}
		if stdout.String() != "hello " {
			t.Errorf("stdout = %q", stdout.String())
		}
	})
}

type describeKey struct{}

func TestFail_DescriberReceivesCallContext(t *testing.T) {
	s, _ := newTestShim(t, 1, 1, Config{})
	var seen any
	s.SetDescriber(func(ctx context.Context, code int32) string {
		seen = ctx.Value(describeKey{})
		if code == errors.EINVAL {
			return "Invalid argument"
		}
		return ""
	})

	ctx := context.WithValue(context.Background(), describeKey{}, "clock call")
	if rc := s.ClockTimeGet(ctx, 99, 64); rc != errors.EINVAL {
		t.Fatalf("rc = %d, want EINVAL", rc)
	}
	if seen != "clock call" {
		t.Errorf("describer context value = %v", seen)
	}
	if e := s.LastErrno(); e == nil || e.Message != "Invalid argument" {
		t.Errorf("LastErrno = %v", e)
	}
}

func TestEnvironAndStubs(t *testing.T) {
	s, mem := newTestShim(t, 1, 1, Config{})
	d := memview.NewHolder()
	d.Attach(mem)
	d.Current().Data.PutUint32(16, 99)
	d.Current().Data.PutUint32(20, 99)

	if rc := api.DecodeI32(call(s, "environ_sizes_get", 16, 20)[0]); rc != 0 {
		t.Fatalf("rc = %d", rc)
	}
	if c, _ := d.Current().Data.Uint32(16); c != 0 {
		t.Errorf("count = %d", c)
	}
	if c, _ := d.Current().Data.Uint32(20); c != 0 {
		t.Errorf("buf size = %d", c)
	}

	for name, args := range map[string][]uint64{
		"environ_get": {16, 20},
		"fd_close":    {1},
		"fd_seek":     {1, 0, 0, 24},
	} {
		if rc := api.DecodeI32(call(s, name, args...)[0]); rc != 0 {
			t.Errorf("%s rc = %d", name, rc)
		}
	}

	if rc := api.DecodeI32(call(s, "__syscall_unlinkat", 0, 0, 0)[0]); rc != -28 {
		t.Errorf("unlinkat rc = %d, want -28", rc)
	}
}

func TestResizeHeap(t *testing.T) {
	t.Run("grows to cover request", func(t *testing.T) {
		s, mem := newTestShim(t, 1, 16, Config{})
		before := s.views.Current()
		if !s.ResizeHeap(100000) {
			t.Fatal("ResizeHeap failed")
		}
		if mem.Size() < 100000 {
			t.Errorf("size %d < requested", mem.Size())
		}
		if mem.Size() != 2*memview.PageSize {
			t.Errorf("size = %d, want %d", mem.Size(), 2*memview.PageSize)
		}
		if s.views.Current() == before {
			t.Error("views not refreshed")
		}
		if s.views.Current().Len() != mem.Size() {
			t.Error("views do not cover new memory")
		}
	})

	t.Run("request not larger than heap", func(t *testing.T) {
		s, _ := newTestShim(t, 2, 16, Config{})
		if s.ResizeHeap(memview.PageSize) {
			t.Error("shrinking request should fail")
		}
	})

	t.Run("beyond 2GiB", func(t *testing.T) {
		s, _ := newTestShim(t, 1, 1<<16, Config{})
		stack := call(s, "emscripten_resize_heap", uint64(MaxHeapSize+1))
		if stack[0] != 0 {
			t.Error("request beyond 2GiB should fail")
		}
	})

	t.Run("retries with smaller margin", func(t *testing.T) {
		s, mem := newTestShim(t, 10, 11, Config{})
		if !s.ResizeHeap(10*memview.PageSize + 1) {
			t.Fatal("second attempt should fit")
		}
		if mem.Size() != 11*memview.PageSize {
			t.Errorf("size = %d", mem.Size())
		}
	})

	t.Run("exhausted", func(t *testing.T) {
		s, mem := newTestShim(t, 1, 1, Config{})
		if s.ResizeHeap(memview.PageSize + 1) {
			t.Error("grow past max should fail")
		}
		if mem.Size() != memview.PageSize {
			t.Error("memory changed on failed grow")
		}
	})
}

func TestNotifyMemoryGrowth(t *testing.T) {
	s, mem := newTestShim(t, 1, 4, Config{})
	mem.Grow(1)
	call(s, "emscripten_notify_memory_growth", 0)
	if got := s.views.Current().Len(); got != 2*memview.PageSize {
		t.Errorf("Len = %d after notify", got)
	}
}

func expectTrap(t *testing.T, kind errors.TrapKind, contains string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok {
			t.Fatalf("expected trap panic, got %v", r)
		}
		var trap *errors.TrapError
		if !stderrors.As(err, &trap) {
			t.Fatalf("panic is not a TrapError: %v", err)
		}
		if trap.Kind != kind {
			t.Errorf("Kind = %s, want %s", trap.Kind, kind)
		}
		if !strings.Contains(trap.Message, contains) {
			t.Errorf("Message %q does not contain %q", trap.Message, contains)
		}
	}()
	fn()
}

func TestTraps(t *testing.T) {
	s, mem := newTestShim(t, 1, 1, Config{})
	copy(mem.buf[100:], "x > 0\x00")
	copy(mem.buf[120:], "quickjs.c\x00")
	copy(mem.buf[140:], "JS_Eval\x00")

	expectTrap(t, errors.TrapAssert, "Assertion failed: x > 0, at: quickjs.c, 42, JS_Eval", func() {
		call(s, "__assert_fail", 100, 120, 42, 140)
	})
	if trap, ok := s.Trap(); !ok || trap.Kind != errors.TrapAssert {
		t.Errorf("Trap() = %v, %v", trap, ok)
	}

	expectTrap(t, errors.TrapAssert, "unknown filename", func() {
		call(s, "__assert_fail", 100, 0, 1, 0)
	})
	expectTrap(t, errors.TrapAbort, "native code called abort()", func() {
		call(s, "_abort_js")
	})

	s.SetStackLimits(0x20000, 0x10000)
	expectTrap(t, errors.TrapStackOverflow, "[0x00010000 - 0x00020000]", func() {
		call(s, "__handle_stack_overflow", 0xfff0)
	})
	expectTrap(t, errors.TrapException, "exception catching is not enabled", func() {
		call(s, "__cxa_throw", 0, 0, 0)
	})

	// the first trap is the one reported
	if trap, _ := s.Trap(); trap.Kind != errors.TrapAssert {
		t.Errorf("Trap kind = %s, want first trap", trap.Kind)
	}
}

func TestLocaltime(t *testing.T) {
	s, mem := newTestShim(t, 1, 1, Config{Location: time.UTC})
	d := memview.NewHolder()
	d.Attach(mem)

	// 1971-01-01 00:00:05 UTC, a Friday
	call(s, "_localtime_js", 365*86400+5, 512)

	want := map[uint32]int32{
		tmSec: 5, tmMin: 0, tmHour: 0, tmMday: 1, tmMon: 0,
		tmYear: 71, tmWday: 5, tmYday: 0, tmIsdst: 0, tmGmtoff: 0,
	}
	for off, w := range want {
		if got, _ := d.Current().Data.Int32(512 + off); got != w {
			t.Errorf("tm+%d = %d, want %d", off, got, w)
		}
	}

	expectTrap(t, errors.TrapAbort, "struct tm", func() {
		s.Localtime(0, memview.PageSize-8)
	})
}

func TestTzset(t *testing.T) {
	tests := []struct {
		name     string
		loc      *time.Location
		timezone int32
		daylight int32
		std      string
		dst      string
	}{
		{"utc", time.UTC, 0, 0, "UTC-0000", "UTC-0000"},
		{"east of utc", time.FixedZone("X", 2*3600+30*60), -9000, 0, "UTC+0230", "UTC+0230"},
		{"west of utc", time.FixedZone("Y", -5*3600), 18000, 0, "UTC-0500", "UTC-0500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mem := newTestShim(t, 1, 1, Config{Location: tt.loc})
			d := memview.NewHolder()
			d.Attach(mem)

			call(s, "_tzset_js", 16, 20, 32, 64)
			if got, _ := d.Current().Data.Int32(16); got != tt.timezone {
				t.Errorf("timezone = %d, want %d", got, tt.timezone)
			}
			if got, _ := d.Current().Data.Int32(20); got != tt.daylight {
				t.Errorf("daylight = %d, want %d", got, tt.daylight)
			}
			if got, _ := d.Current().Data.CString(32); got != tt.std {
				t.Errorf("std = %q, want %q", got, tt.std)
			}
			if got, _ := d.Current().Data.CString(64); got != tt.dst {
				t.Errorf("dst = %q, want %q", got, tt.dst)
			}
		})
	}
}

func TestExtensions(t *testing.T) {
	src := bytes.NewReader(bytes.Repeat([]byte{0xab}, 64))
	s, mem := newTestShim(t, 1, 1, Config{Random: src})
	s.RegisterExtensions()

	call(s, ImportGetRandom, 256, 16)
	for i := 256; i < 272; i++ {
		if mem.buf[i] != 0xab {
			t.Fatalf("byte %d = %x", i, mem.buf[i])
		}
	}
	if mem.buf[272] != 0 {
		t.Error("wrote past requested length")
	}

	first := api.DecodeF64(call(s, ImportGetNow)[0])
	time.Sleep(2 * time.Millisecond)
	second := api.DecodeF64(call(s, ImportGetNow)[0])
	if second-first < 1 {
		t.Errorf("_ru_get_now advanced %fms, want >= 1", second-first)
	}

	expectTrap(t, errors.TrapAbort, "_ru_get_random", func() {
		s.GetRandom(memview.PageSize-4, 8)
	})
}

func TestDateNow(t *testing.T) {
	fixed := time.UnixMilli(1700000000123)
	s, _ := newTestShim(t, 1, 1, Config{Now: func() time.Time { return fixed }})
	if got := api.DecodeF64(call(s, "emscripten_date_now")[0]); got != 1700000000123 {
		t.Errorf("date_now = %f", got)
	}
	if got := api.DecodeF64(call(s, "emscripten_get_now")[0]); got < 0 {
		t.Errorf("get_now = %f", got)
	}
}
