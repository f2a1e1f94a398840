package errors

import (
	"strings"
	"testing"
)

func TestErrnoTable_Total(t *testing.T) {
	for _, name := range ErrnoNames() {
		code, ok := ErrnoCode(name)
		if !ok {
			t.Fatalf("%s has no code", name)
		}
		back, ok := Errno(code)
		if !ok {
			t.Fatalf("code %d for %s has no name", code, name)
		}
		if back != name {
			// aliases map back to the canonical name with the same code
			if c, _ := ErrnoCode(back); c != code {
				t.Errorf("%s -> %d -> %s (%d)", name, code, back, c)
			}
		}
	}
}

func TestErrnoTable_Values(t *testing.T) {
	tests := []struct {
		name string
		code int32
	}{
		{"EPERM", 63},
		{"ENOENT", 44},
		{"EINVAL", 28},
		{"EBADF", 8},
		{"ENOSYS", 52},
		{"EOVERFLOW", 61},
		{"ESTRPIPE", 135},
		{"EL2NSYNC", 156},
		{"ENOMEDIUM", 148},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := ErrnoCode(tt.name)
			if !ok || code != tt.code {
				t.Errorf("ErrnoCode(%s) = %d, %v; want %d", tt.name, code, ok, tt.code)
			}
		})
	}
}

func TestErrnoTable_Aliases(t *testing.T) {
	tests := []struct {
		alias     string
		canonical string
	}{
		{"EWOULDBLOCK", "EAGAIN"},
		{"EDEADLOCK", "EDEADLK"},
		{"ENOTSUP", "EOPNOTSUPP"},
	}
	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			a, _ := ErrnoCode(tt.alias)
			c, _ := ErrnoCode(tt.canonical)
			if a != c {
				t.Fatalf("%s=%d, %s=%d", tt.alias, a, tt.canonical, c)
			}
			name, _ := Errno(a)
			if name != tt.canonical {
				t.Errorf("Errno(%d) = %s, want %s", a, name, tt.canonical)
			}
		})
	}
}

func TestErrnoConstants(t *testing.T) {
	for name, code := range map[string]int32{
		"EBADF": EBADF, "EFAULT": EFAULT, "EINVAL": EINVAL, "ENOMEM": ENOMEM, "ENOSYS": ENOSYS,
	} {
		if got, _ := ErrnoCode(name); got != code {
			t.Errorf("%s constant = %d, table = %d", name, code, got)
		}
	}
}

func TestErrnoError(t *testing.T) {
	e := NewErrnoError(EINVAL, func(code int32) string { return "Invalid argument" })
	if e.Code != "EINVAL" {
		t.Errorf("Code = %q, want EINVAL", e.Code)
	}
	if !strings.Contains(e.Error(), "Invalid argument") || !strings.Contains(e.Error(), "28") {
		t.Errorf("Error() = %q", e.Error())
	}

	unknown := NewErrnoError(9999, nil)
	if unknown.Code != "" {
		t.Errorf("unknown code should have no name, got %q", unknown.Code)
	}
	if !strings.Contains(unknown.Error(), "unknown") {
		t.Errorf("Error() = %q", unknown.Error())
	}
}
