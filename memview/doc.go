// Package memview keeps typed views over a guest's linear memory.
//
// Growing wasm memory may move its buffer, so any slice taken before a grow
// can point at freed storage. A Holder owns the current snapshot of four
// views (bytes, 32-bit words, 64-bit words and an offset-addressed DataView)
// and replaces all of them at once on Refresh. Callers fetch the snapshot
// with Current for every access and never keep one across a guest call.
//
//	h := memview.NewHolder()
//	h.Attach(mod.Memory())
//	v := h.Current()
//	n, ok := v.Data.Uint32(ptr)
package memview
