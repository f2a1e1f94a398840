package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the bridge's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Guest call metrics
	GuestCalls    *prometheus.CounterVec
	GuestDuration *prometheus.HistogramVec

	// Heap metrics
	HeapGrowth      *prometheus.CounterVec
	HeapBytes       prometheus.Gauge
	ViewRefreshes   prometheus.Counter
	GuestAllocBytes prometheus.Counter

	// Shim metrics
	Traps       *prometheus.CounterVec
	OutputBytes *prometheus.CounterVec
	Errnos      *prometheus.CounterVec

	// Session metrics
	SessionsActive prometheus.Gauge
	WindowsActive  prometheus.Gauge
	LoopSteps      prometheus.Counter
}

// New registers the collectors on reg. A nil reg uses a private registry,
// which keeps tests and embedded runtimes from colliding.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		GuestCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickjs_guest_calls_total",
				Help: "Total number of guest export calls",
			},
			[]string{"export", "result"},
		),
		GuestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quickjs_guest_call_duration_seconds",
				Help:    "Guest export call duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"export"},
		),

		HeapGrowth: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickjs_heap_growth_total",
				Help: "Heap growth requests by outcome",
			},
			[]string{"result"},
		),
		HeapBytes: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "quickjs_heap_bytes",
				Help: "Current guest linear memory size in bytes",
			},
		),
		ViewRefreshes: f.NewCounter(
			prometheus.CounterOpts{
				Name: "quickjs_view_refreshes_total",
				Help: "Number of memory view refreshes",
			},
		),
		GuestAllocBytes: f.NewCounter(
			prometheus.CounterOpts{
				Name: "quickjs_guest_alloc_bytes_total",
				Help: "Bytes allocated in the guest for host-encoded values",
			},
		),

		Traps: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickjs_traps_total",
				Help: "Fatal guest traps by kind",
			},
			[]string{"kind"},
		),
		OutputBytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickjs_output_bytes_total",
				Help: "Bytes written by the guest to stdout/stderr",
			},
			[]string{"fd"},
		),
		Errnos: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickjs_errno_total",
				Help: "Soft failures reported to the guest by errno name",
			},
			[]string{"code"},
		),

		SessionsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "quickjs_sessions_active",
				Help: "Number of initialized engine sessions",
			},
		),
		WindowsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "quickjs_windows_active",
				Help: "Number of live window contexts",
			},
		),
		LoopSteps: f.NewCounter(
			prometheus.CounterOpts{
				Name: "quickjs_loop_steps_total",
				Help: "Event loop steps driven by the host",
			},
		),
	}
}

// RecordCall records a guest export call.
func (m *Metrics) RecordCall(export string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.GuestCalls.WithLabelValues(export, result).Inc()
	m.GuestDuration.WithLabelValues(export).Observe(d.Seconds())
}

// RecordGrowth records a heap growth attempt and the resulting size.
func (m *Metrics) RecordGrowth(ok bool, size uint32) {
	if m == nil {
		return
	}
	if ok {
		m.HeapGrowth.WithLabelValues("ok").Inc()
	} else {
		m.HeapGrowth.WithLabelValues("failed").Inc()
	}
	m.HeapBytes.Set(float64(size))
}

// RecordRefresh records a memory view refresh.
func (m *Metrics) RecordRefresh() {
	if m == nil {
		return
	}
	m.ViewRefreshes.Inc()
}

// RecordAlloc records a guest allocation made by the host.
func (m *Metrics) RecordAlloc(size uint32) {
	if m == nil {
		return
	}
	m.GuestAllocBytes.Add(float64(size))
}

// RecordTrap records a fatal guest trap.
func (m *Metrics) RecordTrap(kind string) {
	if m == nil {
		return
	}
	m.Traps.WithLabelValues(kind).Inc()
}

// RecordOutput records bytes the guest wrote to a descriptor.
func (m *Metrics) RecordOutput(fd string, n int) {
	if m == nil {
		return
	}
	m.OutputBytes.WithLabelValues(fd).Add(float64(n))
}

// RecordErrno records a soft failure returned to the guest.
func (m *Metrics) RecordErrno(code string) {
	if m == nil {
		return
	}
	m.Errnos.WithLabelValues(code).Inc()
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

// WindowsChanged adjusts the live window gauge by delta.
func (m *Metrics) WindowsChanged(delta int) {
	if m == nil {
		return
	}
	m.WindowsActive.Add(float64(delta))
}

// RecordStep records one host-driven event loop step.
func (m *Metrics) RecordStep() {
	if m == nil {
		return
	}
	m.LoopSteps.Inc()
}
