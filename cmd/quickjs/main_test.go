package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFormatResult(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"undefined", nil, "undefined"},
		{"string", "a\"b", `"a\"b"`},
		{"number", int64(2), "2\n"},
		{"map", map[string]any{"a": true}, "a: true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatResult(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.js")
	if err := os.WriteFile(path, []byte("1+1"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := readScript(options{code: "2+2", file: path})
	if err != nil || got != "2+2" {
		t.Errorf("-e wins: %q, %v", got, err)
	}
	got, err = readScript(options{file: path})
	if err != nil || got != "1+1" {
		t.Errorf("-f: %q, %v", got, err)
	}
	if _, err := readScript(options{file: filepath.Join(t.TempDir(), "absent.js")}); err == nil {
		t.Error("missing file accepted")
	}
}
