package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
)

// WazeroEngine holds the runtime configuration shared by every loader it
// creates, including the compilation cache.
type WazeroEngine struct {
	cfg   Config
	cache wazero.CompilationCache
}

// Config holds configuration for engine creation
type Config struct {
	// CacheDir persists compiled modules across processes.
	// Empty keeps the cache in memory.
	CacheDir string

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// CloseOnContextDone aborts guest calls when their context is cancelled.
	CloseOnContextDone bool
}

// NewWazeroEngine creates a new wazero-based engine
func NewWazeroEngine(ctx context.Context) (*WazeroEngine, error) {
	return NewWazeroEngineWithConfig(ctx, nil)
}

// NewWazeroEngineWithConfig creates a new engine with custom configuration
func NewWazeroEngineWithConfig(_ context.Context, cfg *Config) (*WazeroEngine, error) {
	e := &WazeroEngine{}
	if cfg != nil {
		e.cfg = *cfg
	}

	if e.cfg.CacheDir != "" {
		cache, err := wazero.NewCompilationCacheWithDir(e.cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("open compilation cache %q: %w", e.cfg.CacheDir, err)
		}
		e.cache = cache
	} else {
		e.cache = wazero.NewCompilationCache()
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *WazeroEngine) Config() Config {
	return e.cfg
}

// newRuntime creates a wazero runtime for one loader. Loaders never share
// a runtime, so their host modules cannot collide.
func (e *WazeroEngine) newRuntime(ctx context.Context) wazero.Runtime {
	runtimeCfg := wazero.NewRuntimeConfig().
		WithCompilationCache(e.cache).
		WithCloseOnContextDone(e.cfg.CloseOnContextDone)
	if e.cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(e.cfg.MemoryLimitPages)
	}
	return wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
}

// Close releases the compilation cache. Loaders created by the engine
// must be closed first.
func (e *WazeroEngine) Close(ctx context.Context) error {
	if e.cache == nil {
		return nil
	}
	err := e.cache.Close(ctx)
	e.cache = nil
	return err
}
