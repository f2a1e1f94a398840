package memview

import (
	"fmt"
	"sync/atomic"

	quickjsbridge "github.com/wippyai/quickjs-bridge"
)

// PageSize is the wasm page size in bytes.
const PageSize = 65536

// Source is the linear memory the views are derived from. wazero's
// api.Memory satisfies it.
type Source interface {
	Size() uint32
	Read(offset, byteCount uint32) ([]byte, bool)
	Grow(deltaPages uint32) (previousPages uint32, ok bool)
}

// Holder owns the current Views snapshot for one guest memory.
type Holder struct {
	src       Source
	cur       atomic.Pointer[Views]
	refreshes atomic.Uint64
}

// NewHolder returns a holder with an empty snapshot. Attach must be
// called before the views cover any memory.
func NewHolder() *Holder {
	h := &Holder{}
	h.cur.Store(newViews(nil))
	return h
}

// Attach binds the holder to src and derives the first snapshot.
func (h *Holder) Attach(src Source) {
	h.src = src
	h.Refresh()
}

// Attached reports whether a memory is bound.
func (h *Holder) Attached() bool {
	return h.src != nil
}

// Refresh re-derives every view from the current memory buffer and
// publishes them in a single store.
func (h *Holder) Refresh() *Views {
	if h.src == nil {
		return h.cur.Load()
	}
	size := h.src.Size()
	buf, ok := h.src.Read(0, size)
	if !ok {
		buf = nil
	}
	v := newViews(buf)
	h.cur.Store(v)
	h.refreshes.Add(1)
	debugf("views refreshed: %d bytes", size)
	return v
}

// Current returns the live snapshot, re-deriving it first if the memory
// has grown without a notification.
func (h *Holder) Current() *Views {
	v := h.cur.Load()
	if h.src != nil && h.src.Size() != v.Len() {
		return h.Refresh()
	}
	return v
}

// Refreshes returns how many snapshots have been derived.
func (h *Holder) Refreshes() uint64 {
	return h.refreshes.Load()
}

// Size returns the current memory length in bytes.
func (h *Holder) Size() uint32 {
	if h.src == nil {
		return 0
	}
	return h.src.Size()
}

// Grow grows memory by delta pages and refreshes the views on success.
func (h *Holder) Grow(deltaPages uint32) (uint32, bool) {
	if h.src == nil {
		return 0, false
	}
	prev, ok := h.src.Grow(deltaPages)
	if ok {
		h.Refresh()
	}
	return prev, ok
}

func (h *Holder) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := h.Current().Data.Bytes(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (h *Holder) Write(offset uint32, data []byte) error {
	if !h.Current().Data.PutBytes(offset, data) {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

func (h *Holder) ReadU32(offset uint32) (uint32, error) {
	val, ok := h.Current().Data.Uint32(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds: offset=%d, length=4", offset)
	}
	return val, nil
}

func (h *Holder) ReadU64(offset uint32) (uint64, error) {
	val, ok := h.Current().Data.Uint64(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds: offset=%d, length=8", offset)
	}
	return val, nil
}

func (h *Holder) WriteU32(offset uint32, value uint32) error {
	if !h.Current().Data.PutUint32(offset, value) {
		return fmt.Errorf("write out of bounds: offset=%d, length=4", offset)
	}
	return nil
}

func (h *Holder) WriteU64(offset uint32, value uint64) error {
	if !h.Current().Data.PutUint64(offset, value) {
		return fmt.Errorf("write out of bounds: offset=%d, length=8", offset)
	}
	return nil
}

var _ quickjsbridge.Memory = (*Holder)(nil)
var _ quickjsbridge.MemorySizer = (*Holder)(nil)
