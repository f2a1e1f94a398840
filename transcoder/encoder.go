package transcoder

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/wippyai/quickjs-bridge/errors"
)

// MaxBlockSize bounds the payload of a single reference block.
const MaxBlockSize = 1 << 30

// Encoder writes host values into guest memory. Blocks are allocated with
// the guest's allocator and handed over with the FREE flag set; the guest
// releases them.
type Encoder struct {
	mem   Memory
	alloc Allocator
}

func NewEncoder(mem Memory, alloc Allocator) *Encoder {
	return &Encoder{mem: mem, alloc: alloc}
}

// String encodes s as a UTF-8 string block. Invalid sequences are replaced
// with U+FFFD.
func (e *Encoder) String(ctx context.Context, s string) (Handle, error) {
	return e.block(ctx, TagString, []byte(strings.ToValidUTF8(s, "\uFFFD")))
}

// Bytes encodes b as a raw byte block.
func (e *Encoder) Bytes(ctx context.Context, b []byte) (Handle, error) {
	return e.block(ctx, TagBytes, b)
}

// Int64 encodes v as an 8-byte reference block.
func (e *Encoder) Int64(ctx context.Context, v int64) (Handle, error) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	return e.block(ctx, TagInt64, buf[:])
}

// Float64 encodes v as an 8-byte reference block.
func (e *Encoder) Float64(ctx context.Context, v float64) (Handle, error) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	return e.block(ctx, TagFloat64, buf[:])
}

// Structured encodes v as a MessagePack document. Maps, slices, structs,
// scalars, []byte and nil are accepted.
func (e *Encoder) Structured(ctx context.Context, v any) (Handle, error) {
	data, err := MarshalMsgpack(v)
	if err != nil {
		e := errors.TypeMismatch(errors.PhaseEncode, nil, fmt.Sprintf("%T", v), "msgpack")
		e.Cause = err
		return None, e
	}
	return e.block(ctx, TagMsgpack, data)
}

// Encode picks the narrowest representation for v. Nil encodes as None,
// a Handle passes through unchanged, and anything without a dedicated tag
// is sent as MessagePack.
func (e *Encoder) Encode(ctx context.Context, v any) (Handle, error) {
	switch x := v.(type) {
	case nil:
		return None, nil
	case Handle:
		return x, nil
	case bool:
		return Bool(x), nil
	case uint32:
		return Uint32(x), nil
	case int32:
		return Int32(x), nil
	case int:
		if x >= math.MinInt32 && x <= math.MaxInt32 {
			return Int32(int32(x)), nil
		}
		return e.Int64(ctx, int64(x))
	case int64:
		return e.Int64(ctx, x)
	case float64:
		return e.Float64(ctx, x)
	case string:
		return e.String(ctx, x)
	case []byte:
		return e.Bytes(ctx, x)
	}
	return e.Structured(ctx, v)
}

// block allocates [u32 length][payload] in guest memory.
func (e *Encoder) block(ctx context.Context, tag Tag, payload []byte) (Handle, error) {
	if e.alloc == nil {
		return None, errors.New(errors.PhaseEncode, errors.KindAllocation).
			Detail("no guest allocator").
			Build()
	}
	if len(payload) > MaxBlockSize {
		return None, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
			Detail("payload of %d bytes exceeds limit %d", len(payload), MaxBlockSize).
			Build()
	}

	size := uint32(4 + len(payload))
	ptr, err := e.alloc.Alloc(ctx, size)
	if err != nil {
		return None, errors.AllocationFailed(errors.PhaseEncode, size, err)
	}
	if ptr == 0 {
		return None, errors.AllocationFailed(errors.PhaseEncode, size, nil)
	}

	// memory may have grown during the allocation
	if err := e.mem.WriteU32(ptr, uint32(len(payload))); err != nil {
		return None, errors.Wrap(errors.PhaseEncode, errors.KindOutOfBounds, err, "write block length")
	}
	if len(payload) > 0 {
		if err := e.mem.Write(ptr+4, payload); err != nil {
			return None, errors.Wrap(errors.PhaseEncode, errors.KindOutOfBounds, err, "write block payload")
		}
	}
	return Reference(tag, ptr, true), nil
}
