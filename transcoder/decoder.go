package transcoder

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/wippyai/quickjs-bridge/errors"
)

// Decoder reads guest handles into host values. Reference blocks are copied
// out, so decoded values stay valid after the guest frees or moves them.
type Decoder struct {
	mem Memory
}

func NewDecoder(mem Memory) *Decoder {
	return &Decoder{mem: mem}
}

// Decode classifies h and reads its value. The zero handle decodes to
// NoneValue. Error-tagged handles return a *errors.GuestError.
func (d *Decoder) Decode(h Handle) (Value, error) {
	switch h.Kind() {
	case KindNone:
		return NoneValue{}, nil
	case KindBool:
		return BoolValue(h.Payload() != 0), nil
	case KindUint32:
		return Uint32Value(h.Payload()), nil
	case KindInt32:
		return Int32Value(int32(h.Payload())), nil
	case KindEngine:
		return EngineRef{Handle: h}, nil
	case KindScript:
		return ScriptRef{Handle: h}, nil

	case KindInt64:
		data, err := d.fixed(h, 8)
		if err != nil {
			return nil, err
		}
		return Int64Value(int64(binary.LittleEndian.Uint64(data))), nil

	case KindFloat64:
		data, err := d.fixed(h, 8)
		if err != nil {
			return nil, err
		}
		return Float64Value(math.Float64frombits(binary.LittleEndian.Uint64(data))), nil

	case KindString:
		data, err := d.block(h)
		if err != nil {
			return nil, err
		}
		return StringValue(strings.ToValidUTF8(string(data), "\uFFFD")), nil

	case KindBytes:
		data, err := d.block(h)
		if err != nil {
			return nil, err
		}
		return BytesValue(data), nil

	case KindStructured:
		data, err := d.block(h)
		if err != nil {
			return nil, err
		}
		v, err := UnmarshalMsgpack(data)
		if err != nil {
			return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
				Detail("malformed msgpack document at 0x%08x", h.Payload()).
				Cause(err).
				Build()
		}
		return StructuredValue{V: v, Raw: data}, nil

	case KindError:
		return nil, d.guestError(h)
	}
	return nil, errors.InvalidHandle(errors.PhaseDecode, uint64(h), "unknown tag or flag combination")
}

// DecodeRequired is Decode with the zero handle treated as a failure.
func (d *Decoder) DecodeRequired(h Handle) (Value, error) {
	if h == None {
		return nil, errors.InvalidData(errors.PhaseDecode, nil, "expected a value, got none")
	}
	return d.Decode(h)
}

// DecodeBool decodes a boolean handle.
func (d *Decoder) DecodeBool(h Handle) (bool, error) {
	v, err := d.DecodeRequired(h)
	if err != nil {
		return false, err
	}
	b, ok := v.(BoolValue)
	if !ok {
		return false, errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
			Value(uint64(h)).
			Detail("expected bool, got %s", v.Kind()).
			Build()
	}
	return bool(b), nil
}

func (d *Decoder) guestError(h Handle) error {
	if !h.IsAddress() {
		return &errors.GuestError{Code: h.Payload()}
	}
	data, err := d.block(h)
	if err != nil {
		return err
	}
	return &errors.GuestError{Message: strings.ToValidUTF8(string(data), "\uFFFD")}
}

func (d *Decoder) fixed(h Handle, n uint32) ([]byte, error) {
	data, err := d.block(h)
	if err != nil {
		return nil, err
	}
	if uint32(len(data)) != n {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Value(uint64(h)).
			Detail("%s block has %d bytes, want %d", h.Kind(), len(data), n).
			Build()
	}
	return data, nil
}

// block reads the [u32 length][payload] block referenced by h.
func (d *Decoder) block(h Handle) ([]byte, error) {
	ptr := h.Payload()
	if ptr == 0 {
		return nil, errors.InvalidHandle(errors.PhaseDecode, uint64(h), "null block pointer")
	}
	n, err := d.mem.ReadU32(ptr)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindOutOfBounds, err, "read block length")
	}
	if n > MaxBlockSize {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Value(uint64(h)).
			Detail("block length %d exceeds limit %d", n, MaxBlockSize).
			Build()
	}
	if n == 0 {
		return []byte{}, nil
	}
	data, err := d.mem.Read(ptr+4, n)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindOutOfBounds, err, "read block payload")
	}
	return append([]byte(nil), data...), nil
}
