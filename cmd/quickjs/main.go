package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/quickjs-bridge/config"
	"github.com/wippyai/quickjs-bridge/engine"
	"github.com/wippyai/quickjs-bridge/errors"
	"github.com/wippyai/quickjs-bridge/memview"
	"github.com/wippyai/quickjs-bridge/metrics"
	"github.com/wippyai/quickjs-bridge/runtime"
	"github.com/wippyai/quickjs-bridge/shim"
)

type options struct {
	configPath  string
	code        string
	file        string
	window      string
	params      string
	jquery      bool
	interactive bool
}

func main() {
	var (
		opts        options
		wasmFile    = flag.String("wasm", "", "Path to the QuickJS engine wasm file")
		mode        = flag.String("mode", "", "Engine mode: full, mini or a number")
		maxSteps    = flag.Int("max-steps", -1, "Event loop steps to run after evaluation (0 disables)")
		metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	)
	flag.StringVar(&opts.configPath, "config", "", "YAML config file")
	flag.StringVar(&opts.code, "e", "", "Script to evaluate")
	flag.StringVar(&opts.file, "f", "", "Script file to evaluate")
	flag.StringVar(&opts.window, "window", "", "HTML file to load into a window; the script runs against it")
	flag.StringVar(&opts.params, "params", "", "YAML file passed to the window script as params")
	flag.BoolVar(&opts.jquery, "jquery", false, "Install jQuery into the window")
	flag.BoolVar(&opts.interactive, "i", false, "Interactive mode with TUI")
	flag.Parse()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fatal(err)
	}
	if *wasmFile != "" {
		cfg.Engine.Wasm = *wasmFile
	}
	if *mode != "" {
		cfg.Engine.Mode = *mode
	}
	if *maxSteps >= 0 {
		cfg.Engine.MaxSteps = *maxSteps
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	if cfg.Engine.Wasm == "" {
		fmt.Fprintln(os.Stderr, "Usage: quickjs -wasm <engine.wasm> [-mode full|mini] [-e code | -f file]")
		fmt.Fprintln(os.Stderr, "       quickjs -wasm <engine.wasm> -window page.html [-params p.yaml] [-jquery] -e code")
		fmt.Fprintln(os.Stderr, "       quickjs -wasm <engine.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if err := run(cfg, opts); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var ge *errors.GuestError
	if stderrors.As(err, &ge) {
		os.Exit(2)
	}
	os.Exit(1)
}

func run(cfg *config.Config, opts options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log, err := cfg.Log.Build()
	if err != nil {
		return err
	}
	defer log.Sync()
	engine.SetLogger(log.Named("engine"))
	shim.SetLogger(log.Named("shim"))
	memview.SetLogger(log.Named("memview"))
	runtime.SetLogger(log.Named("runtime"))

	m := serveMetrics(cfg.Metrics, log)

	modeID, err := runtime.ParseMode(cfg.Engine.Mode)
	if err != nil {
		return err
	}
	loc, err := cfg.Guest.Location()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(cfg.Engine.Wasm)
	if err != nil {
		return fmt.Errorf("read wasm: %w", err)
	}

	shimCfg := shim.Config{Location: loc}
	if cfg.Guest.Output && !opts.interactive {
		shimCfg.Stdout = os.Stdout
		shimCfg.Stderr = os.Stderr
	}

	rt, err := runtime.New(ctx, data, runtime.Options{
		Engine:  cfg.EngineOptions(),
		Shim:    shimCfg,
		Logger:  log,
		Metrics: m,
	})
	if err != nil {
		return fmt.Errorf("load engine: %w", err)
	}
	defer rt.Close(ctx)

	s := rt.NewSession()
	if err := s.Initialize(ctx, modeID); err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer s.Cleanup(ctx)

	if opts.interactive {
		return runInteractive(ctx, s, cfg)
	}

	code, err := readScript(opts)
	if err != nil {
		return err
	}

	var result any
	if opts.window != "" {
		result, err = evalInWindow(ctx, s, opts, code)
	} else {
		result, err = s.Eval(ctx, code)
	}
	if err != nil {
		return err
	}

	steps, err := drain(ctx, s, cfg.Engine.MaxSteps)
	if err != nil {
		return err
	}
	log.Debug("event loop drained", zap.Int("steps", steps))

	out := formatResult(result)
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err = io.WriteString(os.Stdout, out)
	return err
}

// readScript picks the script from -e, -f or a non-terminal stdin.
func readScript(opts options) (string, error) {
	switch {
	case opts.code != "":
		return opts.code, nil
	case opts.file != "":
		b, err := os.ReadFile(opts.file)
		if err != nil {
			return "", fmt.Errorf("read script: %w", err)
		}
		return string(b), nil
	case !term.IsTerminal(int(os.Stdin.Fd())):
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	return "", fmt.Errorf("no script: use -e, -f or pipe one on stdin")
}

func evalInWindow(ctx context.Context, s *runtime.Session, opts options, code string) (any, error) {
	html, err := os.ReadFile(opts.window)
	if err != nil {
		return nil, fmt.Errorf("read window document: %w", err)
	}

	var params any
	if opts.params != "" {
		b, err := os.ReadFile(opts.params)
		if err != nil {
			return nil, fmt.Errorf("read params: %w", err)
		}
		if err := yaml.Unmarshal(b, &params); err != nil {
			return nil, fmt.Errorf("parse params: %w", err)
		}
	}

	w, err := s.CreateWindow(ctx, string(html), nil)
	if err != nil {
		return nil, err
	}
	defer s.DestroyWindow(ctx, w)

	if opts.jquery {
		if err := s.UseJQuery(ctx, w); err != nil {
			return nil, err
		}
	}
	return s.EvalInWindow(ctx, w, code, params)
}

// drain steps the event loop until it runs out of work or maxSteps is
// reached. Without a loop step export it only reports what is left.
func drain(ctx context.Context, s *runtime.Session, maxSteps int) (int, error) {
	steps := 0
	for ; steps < maxSteps; steps++ {
		did, err := s.Step(ctx)
		if stderrors.Is(err, &errors.Error{Phase: errors.PhaseSession, Kind: errors.KindUnsupported}) {
			break
		}
		if err != nil {
			return steps, err
		}
		if !did {
			return steps, nil
		}
	}

	timers, err := s.HasTimers(ctx)
	if err != nil {
		return steps, err
	}
	jobs, err := s.HasPendingJobs(ctx)
	if err != nil {
		return steps, err
	}
	if timers || jobs {
		runtime.Logger().Warn("event loop not drained",
			zap.Int("steps", steps),
			zap.Bool("timers", timers),
			zap.Bool("jobs", jobs))
	}
	return steps, nil
}

func serveMetrics(cfg config.MetricsConfig, log *zap.Logger) *metrics.Metrics {
	if cfg.Addr == "" {
		return nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
			log.Error("metrics server stopped", zap.String("addr", cfg.Addr), zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", cfg.Addr), zap.String("path", cfg.Path))
	return m
}

func formatResult(v any) string {
	switch v := v.(type) {
	case nil:
		return "undefined"
	case string:
		return strconv.Quote(v)
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(out)
}
