package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wippyai/quickjs-bridge/errors"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quickjs.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.Mode != "full" || cfg.Engine.MaxSteps != 10000 {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if !cfg.Guest.Output || cfg.Metrics.Path != "/metrics" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
engine:
  wasm: /opt/quickjs.wasm
  mode: mini
  memory_limit_pages: 512
log:
  level: debug
metrics:
  addr: ":9090"
`)
	t.Setenv("QJSB_ENGINE_MODE", "full")
	t.Setenv("QJSB_ENGINE_MAX_STEPS", "5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"wasm from file", cfg.Engine.Wasm, "/opt/quickjs.wasm"},
		{"mode from env", cfg.Engine.Mode, "full"},
		{"pages from file", cfg.Engine.MemoryLimitPages, uint32(512)},
		{"steps from env", cfg.Engine.MaxSteps, 5},
		{"level from file", cfg.Log.Level, "debug"},
		{"encoding default", cfg.Log.Encoding, "console"},
		{"addr from file", cfg.Metrics.Addr, ":9090"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
		kind errors.Kind
	}{
		{"bad yaml", "engine: [", nil, errors.KindInvalidData},
		{"bad mode", "engine:\n  mode: turbo\n", nil, errors.KindInvalidInput},
		{"bad level", "log:\n  level: loud\n", nil, errors.KindInvalidInput},
		{"bad timezone", "guest:\n  timezone: Mars/Olympus\n", nil, errors.KindInvalidInput},
		{"negative steps", "engine:\n  max_steps: -1\n", nil, errors.KindInvalidInput},
		{"bad env number", "", map[string]string{"QJSB_ENGINE_MAX_STEPS": "many"}, errors.KindInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}
			_, err := Load(path)
			if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: tt.kind}) {
				t.Errorf("got %v, want %s", err, tt.kind)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindNotFound}) {
		t.Errorf("got %v", err)
	}
}

func TestGuestConfig_Location(t *testing.T) {
	loc, err := GuestConfig{Timezone: "UTC"}.Location()
	if err != nil || loc.String() != "UTC" {
		t.Errorf("Location = %v, %v", loc, err)
	}
}

func TestLogConfig_Build(t *testing.T) {
	for _, cfg := range []LogConfig{
		{Level: "info", Encoding: "json"},
		{Level: "debug", Development: true, Encoding: "console"},
		{},
	} {
		logger, err := cfg.Build()
		if err != nil {
			t.Fatalf("Build(%+v): %v", cfg, err)
		}
		_ = logger.Sync()
	}

	if _, err := (LogConfig{Encoding: "xml"}).Build(); err == nil {
		t.Error("unknown encoding accepted")
	}
}

func TestEngineOptions(t *testing.T) {
	cfg := Default()
	cfg.Engine.CacheDir = "/tmp/cache"
	cfg.Engine.MemoryLimitPages = 256

	opts := cfg.EngineOptions()
	if opts.CacheDir != "/tmp/cache" || opts.MemoryLimitPages != 256 || !opts.CloseOnContextDone {
		t.Errorf("EngineOptions = %+v", opts)
	}
}
