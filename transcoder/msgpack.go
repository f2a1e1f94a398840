package transcoder

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// MarshalMsgpack encodes v the way structured arguments are sent to the
// guest. Struct fields honour both msgpack and json tags.
func MarshalMsgpack(v any) ([]byte, error) {
	buf := getBuf()
	defer putBuf(buf)

	enc := msgpack.GetEncoder()
	defer msgpack.PutEncoder(enc)
	enc.Reset(buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

// UnmarshalMsgpack decodes a guest document into plain Go values: integers
// become int64 or uint64, floats float64, bin []byte, maps with string keys
// map[string]any, arrays []any.
func UnmarshalMsgpack(data []byte) (any, error) {
	dec := msgpack.GetDecoder()
	defer msgpack.PutDecoder(dec)
	dec.Reset(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	dec.SetMapDecoder(decodeMap)

	return decodeValue(dec)
}

// decodeValue walks containers itself so that bin values at any depth stay
// []byte; loose interface decoding would turn them into strings.
func decodeValue(d *msgpack.Decoder) (any, error) {
	c, err := d.PeekCode()
	if err != nil {
		return nil, err
	}
	switch {
	case msgpcode.IsBin(c):
		return d.DecodeBytes()
	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		return decodeArray(d)
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		return decodeMap(d)
	}
	return d.DecodeInterfaceLoose()
}

func decodeArray(d *msgpack.Decoder) (any, error) {
	n, err := d.DecodeArrayLen()
	if err != nil || n < 0 {
		return nil, err
	}
	out := make([]any, n)
	for i := range out {
		if out[i], err = decodeValue(d); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// decodeMap returns map[string]any when every key is a string and
// map[any]any otherwise. Binary keys are not hashable and become strings.
func decodeMap(d *msgpack.Decoder) (any, error) {
	n, err := d.DecodeMapLen()
	if err != nil || n < 0 {
		return nil, err
	}
	keys := make([]any, n)
	vals := make([]any, n)
	stringKeys := true
	for i := 0; i < n; i++ {
		k, err := decodeValue(d)
		if err != nil {
			return nil, err
		}
		switch kk := k.(type) {
		case string:
		case []byte:
			k = string(kk)
		default:
			stringKeys = false
		}
		keys[i] = k
		if vals[i], err = decodeValue(d); err != nil {
			return nil, err
		}
	}

	if stringKeys {
		out := make(map[string]any, n)
		for i, k := range keys {
			out[k.(string)] = vals[i]
		}
		return out, nil
	}
	out := make(map[any]any, n)
	for i, k := range keys {
		if !isHashable(k) {
			return nil, fmt.Errorf("msgpack: unhashable map key of type %T", k)
		}
		out[k] = vals[i]
	}
	return out, nil
}

func isHashable(k any) bool {
	switch k.(type) {
	case []any, map[string]any, map[any]any:
		return false
	}
	return true
}
