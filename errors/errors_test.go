package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseEncode,
				Kind:   KindTypeMismatch,
				Path:   []string{"options", "headers", "0"},
				GoType: "chan int",
				Export: "engine_create_window",
				Detail: "cannot marshal",
			},
			contains: []string{"[encode]", "type_mismatch", "options.headers.0", "chan int", "engine_create_window", "cannot marshal"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[decode]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseEncode,
				Kind:   KindAllocation,
				Detail: "malloc returned 0",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[encode]", "allocation", "malloc returned 0", "caused by", "underlying error"},
		},
		{
			name:     "export only",
			err:      Call("engine_js_eval", errors.New("trap")),
			contains: []string{"[runtime]", "export engine_js_eval", " - guest call failed", "trap"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:  PhaseSession,
		Kind:   KindNotInitialized,
		Detail: "session not initialized",
	}

	if !err.Is(&Error{Phase: PhaseSession, Kind: KindNotInitialized}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindNotInitialized}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseSession, Kind: KindClosed}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseSession, Kind: KindNotInitialized}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDecode, KindInvalidHandle).
		Path("result").
		GoType("uint64").
		Export("engine_js_eval").
		Value(uint64(42)).
		Cause(cause).
		Detail("unknown tag 0x%x", 0x77).
		Build()

	if err.Phase != PhaseDecode {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseDecode)
	}
	if err.Kind != KindInvalidHandle {
		t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidHandle)
	}
	if len(err.Path) != 1 || err.Path[0] != "result" {
		t.Errorf("Path = %v, want [result]", err.Path)
	}
	if err.GoType != "uint64" {
		t.Errorf("GoType = %v, want 'uint64'", err.GoType)
	}
	if err.Export != "engine_js_eval" {
		t.Errorf("Export = %v, want 'engine_js_eval'", err.Export)
	}
	if err.Value != uint64(42) {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "unknown tag 0x77" {
		t.Errorf("Detail = %v, want 'unknown tag 0x77'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("AllocationFailed", func(t *testing.T) {
		err := AllocationFailed(PhaseEncode, 1024, nil)
		if err.Kind != KindAllocation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindAllocation)
		}
		if !strings.Contains(err.Detail, "1024") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseDecode, 70000, 16)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if err.Value != uint32(70000) {
			t.Errorf("Value = %v, want 70000", err.Value)
		}
	})

	t.Run("InvalidHandle", func(t *testing.T) {
		err := InvalidHandle(PhaseDecode, 0x0000007700000001, "unknown tag")
		if err.Kind != KindInvalidHandle {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidHandle)
		}
		if !strings.Contains(err.Detail, "0x0000007700000001") {
			t.Errorf("Detail = %v, should contain the handle", err.Detail)
		}
	})

	t.Run("StaleHandle", func(t *testing.T) {
		err := StaleHandle(PhaseSession, "window", 3)
		if err.Kind != KindStaleHandle {
			t.Errorf("Kind = %v, want %v", err.Kind, KindStaleHandle)
		}
	})

	t.Run("Aborted", func(t *testing.T) {
		trap := &TrapError{Kind: TrapAbort, Message: "native code called abort()"}
		err := Aborted(trap)
		var te *TrapError
		if !errors.As(err, &te) {
			t.Fatal("Aborted should wrap the trap")
		}
		if te.Kind != TrapAbort {
			t.Errorf("Kind = %v, want %v", te.Kind, TrapAbort)
		}
	})

	t.Run("Closed", func(t *testing.T) {
		err := Closed(PhaseSession, "session")
		if !errors.Is(err, &Error{Phase: PhaseSession, Kind: KindClosed}) {
			t.Errorf("unexpected error %v", err)
		}
	})
}

func TestMissingImportsError(t *testing.T) {
	t.Run("single import", func(t *testing.T) {
		err := NewMissingImportsError([]string{"env#emscripten_asm_const_int"})
		if len(err.Imports) != 1 {
			t.Fatalf("expected 1 import, got %d", len(err.Imports))
		}
		if err.Imports[0].Namespace != "env" {
			t.Errorf("namespace = %q, want env", err.Imports[0].Namespace)
		}
		if err.Imports[0].Function != "emscripten_asm_const_int" {
			t.Errorf("function = %q, want emscripten_asm_const_int", err.Imports[0].Function)
		}
	})

	t.Run("multiple namespaces grouped", func(t *testing.T) {
		err := NewMissingImportsError([]string{
			"env#__syscall_openat",
			"wasi_snapshot_preview1#fd_read",
			"env#__syscall_fcntl64",
		})
		msg := err.Error()
		if !strings.Contains(msg, "missing 3") {
			t.Errorf("error should contain count, got %s", msg)
		}
		if !strings.Contains(msg, "env:") || !strings.Contains(msg, "wasi_snapshot_preview1:") {
			t.Errorf("error should group by namespace, got %s", msg)
		}
		if strings.Count(msg, "env:") != 1 {
			t.Errorf("namespace should appear once, got %s", msg)
		}
	})

	t.Run("empty imports", func(t *testing.T) {
		err := NewMissingImportsError([]string{})
		if !strings.Contains(err.Error(), "no imports specified") {
			t.Errorf("empty error should have specific message, got: %s", err.Error())
		}
	})

	t.Run("errors.Is", func(t *testing.T) {
		err := NewMissingImportsError([]string{"ns#fn"})
		if !errors.Is(err, &MissingImportsError{}) {
			t.Error("errors.Is should match MissingImportsError")
		}
	})
}

func TestMissingExportsError(t *testing.T) {
	err := &MissingExportsError{Exports: []string{"malloc", "engine_new"}}
	msg := err.Error()
	if !strings.Contains(msg, "malloc") || !strings.Contains(msg, "engine_new") {
		t.Errorf("message should list exports, got %s", msg)
	}
	if !errors.Is(err, &MissingExportsError{}) {
		t.Error("errors.Is should match MissingExportsError")
	}
}

func TestGuestError(t *testing.T) {
	err := &GuestError{Export: "engine_js_eval", Message: "SyntaxError: unexpected token"}
	if !strings.Contains(err.Error(), "SyntaxError") {
		t.Errorf("unexpected message %q", err.Error())
	}

	coded := &GuestError{Code: 7}
	if !strings.Contains(coded.Error(), "code 7") {
		t.Errorf("unexpected message %q", coded.Error())
	}
}

func TestTrapError_Is(t *testing.T) {
	err := &TrapError{Kind: TrapStackOverflow, Message: "stack overflow"}
	if !errors.Is(err, &TrapError{}) {
		t.Error("zero TrapError should match any kind")
	}
	if !errors.Is(err, &TrapError{Kind: TrapStackOverflow}) {
		t.Error("same kind should match")
	}
	if errors.Is(err, &TrapError{Kind: TrapAssert}) {
		t.Error("different kind should not match")
	}
	if err.Error() != "Aborted(stack overflow)" {
		t.Errorf("Error() = %q", err.Error())
	}
}
