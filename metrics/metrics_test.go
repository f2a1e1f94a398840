package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func gathered(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue next
				}
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			if g := m.GetGauge(); g != nil {
				return g.GetValue()
			}
		}
	}
	t.Fatalf("metric %s %v not found", name, labels)
	return 0
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.RecordCall("engine_js_eval", time.Millisecond, nil)
	m.RecordGrowth(true, 1<<20)
	m.RecordRefresh()
	m.RecordAlloc(16)
	m.RecordTrap("abort")
	m.RecordOutput("1", 5)
	m.RecordErrno("EINVAL")
	m.SessionOpened()
	m.SessionClosed()
	m.WindowsChanged(1)
	m.RecordStep()
}

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordCall("engine_js_eval", time.Millisecond, nil)
	m.RecordCall("engine_js_eval", time.Millisecond, errors.New("boom"))
	m.RecordGrowth(true, 2<<20)
	m.RecordGrowth(false, 2<<20)
	m.RecordTrap("assert")
	m.RecordOutput("2", 11)
	m.SessionOpened()
	m.WindowsChanged(2)
	m.WindowsChanged(-1)

	if got := gathered(t, reg, "quickjs_guest_calls_total", map[string]string{"export": "engine_js_eval", "result": "ok"}); got != 1 {
		t.Errorf("ok calls = %v, want 1", got)
	}
	if got := gathered(t, reg, "quickjs_guest_calls_total", map[string]string{"export": "engine_js_eval", "result": "error"}); got != 1 {
		t.Errorf("error calls = %v, want 1", got)
	}
	if got := gathered(t, reg, "quickjs_heap_bytes", nil); got != 2<<20 {
		t.Errorf("heap bytes = %v", got)
	}
	if got := gathered(t, reg, "quickjs_heap_growth_total", map[string]string{"result": "failed"}); got != 1 {
		t.Errorf("failed growth = %v", got)
	}
	if got := gathered(t, reg, "quickjs_output_bytes_total", map[string]string{"fd": "2"}); got != 11 {
		t.Errorf("output bytes = %v", got)
	}
	if got := gathered(t, reg, "quickjs_windows_active", nil); got != 1 {
		t.Errorf("windows = %v, want 1", got)
	}
}

func TestNew_SeparateRegistries(t *testing.T) {
	// Two runtimes with private registries must not collide.
	_ = New(nil)
	_ = New(nil)

	reg := prometheus.NewRegistry()
	_ = New(reg)
	defer func() {
		if recover() == nil {
			t.Error("registering twice on one registry should panic")
		}
	}()
	_ = New(reg)
}
