// Package metrics exposes Prometheus collectors for the QuickJS bridge:
// guest call counts and latency, heap growth, traps, guest output volume
// and live sessions/windows.
//
// Collectors are registered on a caller-supplied Registerer so that
// several runtimes can share one registry or keep separate ones. Every
// method is safe to call on a nil *Metrics.
package metrics
