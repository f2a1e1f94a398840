// Package transcoder converts values between Go and the guest's 64-bit
// boundary handles.
//
// Every facade call passes and returns a single i64. Its upper 32 bits
// hold flags and a tag, its lower 32 bits an inline value or a guest
// pointer:
//
//	 63 62 61 60 59                      32 31                       0
//	+--+--+--+--+--------------------------+--------------------------+
//	|R |U |F |A |        tag (28 bits)      |     payload (32 bits)    |
//	+--+--+--+--+--------------------------+--------------------------+
//
//	A  payload is a guest pointer
//	F  receiver owns the referenced block
//	U  tag is embedder-defined
//	R  reserved, zero
//
// The flag positions follow walink's wl_build_meta and WL_META_* masks
// (walink.h, shipped with the guest build, not with this module). The
// guest's own tags only fix the width of the tag field: script tags are
// selected with the 0xf000000 mask, which must sit inside the low 28
// bits. A guest built against a walink with different flag bits would
// need these constants changed together with TestHandle_Layout.
//
// # Built-in Tags
//
//	Tag   Kind      Form
//	───────────────────────────────────
//	0x00  none      zero handle only
//	0x01  bool      inline 0/1
//	0x02  uint32    inline
//	0x03  int32     inline
//	0x04  int64     block, 8 bytes LE
//	0x05  float64   block, 8 bytes LE
//	0x10  string    block, UTF-8
//	0x11  bytes     block
//	0x12  msgpack   block, MessagePack document
//	0x1F  error     block message or inline code
//
// A block is a little-endian u32 length followed by that many bytes,
// allocated with the guest's malloc. The host never frees blocks.
//
// # User-defined Tags
//
//	0x1000001          engine instance, guest pointer
//	0x2000000 | tag24  script value or window, inline JSValue bits
//
// # Key Types
//
//	Handle   - the raw boundary value, with Kind classification
//	Encoder  - Go to guest, allocating blocks as needed
//	Decoder  - guest to Go, copying blocks out
//	Value    - closed set of decoded values
//
// Structured values use github.com/vmihailenco/msgpack/v5 with loose
// interface decoding, so numbers arrive as int64, uint64 or float64.
package transcoder
