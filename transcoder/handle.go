package transcoder

import "fmt"

// Handle is the 64-bit value exchanged with the guest on every facade call.
type Handle uint64

// Meta flag bits, relative to the upper 32 bits of a handle.
const (
	MetaAddress     uint32 = 1 << 28 // payload is a guest pointer
	MetaFree        uint32 = 1 << 29 // receiver owns the referenced block
	MetaUserDefined uint32 = 1 << 30 // tag is embedder-defined
	MetaReserved    uint32 = 1 << 31

	tagMask uint32 = 0x0fffffff
)

// Tag identifies the value kind carried by a handle.
type Tag uint32

// Built-in tags.
const (
	TagNone    Tag = 0x00
	TagBool    Tag = 0x01
	TagUint32  Tag = 0x02
	TagInt32   Tag = 0x03
	TagInt64   Tag = 0x04
	TagFloat64 Tag = 0x05
	TagString  Tag = 0x10
	TagBytes   Tag = 0x11
	TagMsgpack Tag = 0x12
	TagError   Tag = 0x1F
)

// User-defined tags.
const (
	TagEngine Tag = 0x1000001

	// Script values carry the QuickJS value tag in their low 24 bits.
	TagScriptValue     Tag = 0x2000000
	TagScriptValueMask Tag = 0xf000000
	scriptTagBits      Tag = 0x0ffffff
)

// None is the all-zero handle.
const None Handle = 0

// Make assembles a handle from its meta word and payload.
func Make(meta, payload uint32) Handle {
	return Handle(uint64(meta)<<32 | uint64(payload))
}

// Bool returns an inline boolean handle.
func Bool(v bool) Handle {
	if v {
		return Make(uint32(TagBool), 1)
	}
	return Make(uint32(TagBool), 0)
}

// Uint32 returns an inline unsigned handle.
func Uint32(v uint32) Handle {
	return Make(uint32(TagUint32), v)
}

// Int32 returns an inline signed handle.
func Int32(v int32) Handle {
	return Make(uint32(TagInt32), uint32(v))
}

// Reference returns a handle pointing at a length-prefixed block.
func Reference(tag Tag, ptr uint32, free bool) Handle {
	meta := uint32(tag)&tagMask | MetaAddress
	if free {
		meta |= MetaFree
	}
	return Make(meta, ptr)
}

// EngineHandle returns the handle of a guest engine instance.
func EngineHandle(ptr uint32) Handle {
	return Make(uint32(TagEngine)|MetaAddress|MetaUserDefined, ptr)
}

// ScriptHandle returns the handle of a script value or window.
func ScriptHandle(jsTag uint32, payload uint32) Handle {
	return Make(uint32(TagScriptValue|Tag(jsTag)&scriptTagBits)|MetaUserDefined, payload)
}

// Meta returns the upper 32 bits: flags and tag.
func (h Handle) Meta() uint32 { return uint32(h >> 32) }

// Tag returns the 28-bit tag.
func (h Handle) Tag() Tag { return Tag(h.Meta() & tagMask) }

// Payload returns the inline value or guest pointer.
func (h Handle) Payload() uint32 { return uint32(h) }

func (h Handle) IsAddress() bool { return h.Meta()&MetaAddress != 0 }

func (h Handle) IsFree() bool { return h.Meta()&MetaFree != 0 }

func (h Handle) IsUserDefined() bool { return h.Meta()&MetaUserDefined != 0 }

func (h Handle) IsNone() bool { return h == None }

// ScriptTag returns the QuickJS value tag of a script handle.
func (h Handle) ScriptTag() uint32 {
	return uint32(h.Tag() & scriptTagBits)
}

func (h Handle) String() string {
	return fmt.Sprintf("%s(0x%016x)", h.Kind(), uint64(h))
}

// Kind is the classification of a handle.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNone
	KindBool
	KindUint32
	KindInt32
	KindInt64
	KindFloat64
	KindString
	KindBytes
	KindStructured
	KindError
	KindEngine
	KindScript
)

var kindNames = [...]string{
	KindInvalid:    "invalid",
	KindNone:       "none",
	KindBool:       "bool",
	KindUint32:     "uint32",
	KindInt32:      "int32",
	KindInt64:      "int64",
	KindFloat64:    "float64",
	KindString:     "string",
	KindBytes:      "bytes",
	KindStructured: "msgpack",
	KindError:      "error",
	KindEngine:     "engine",
	KindScript:     "script",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Kind classifies h. Every combination of flags and tag that the guest does
// not produce is KindInvalid.
func (h Handle) Kind() Kind {
	if h == None {
		return KindNone
	}
	meta := h.Meta()
	if meta&MetaReserved != 0 {
		return KindInvalid
	}

	tag := h.Tag()
	if h.IsUserDefined() {
		switch {
		case tag == TagEngine && h.IsAddress():
			return KindEngine
		case tag&TagScriptValueMask == TagScriptValue && !h.IsAddress():
			return KindScript
		}
		return KindInvalid
	}

	inline := !h.IsAddress()
	switch tag {
	case TagBool:
		if inline && h.Payload() <= 1 {
			return KindBool
		}
	case TagUint32:
		if inline {
			return KindUint32
		}
	case TagInt32:
		if inline {
			return KindInt32
		}
	case TagInt64:
		if !inline {
			return KindInt64
		}
	case TagFloat64:
		if !inline {
			return KindFloat64
		}
	case TagString:
		if !inline {
			return KindString
		}
	case TagBytes:
		if !inline {
			return KindBytes
		}
	case TagMsgpack:
		if !inline {
			return KindStructured
		}
	case TagError:
		return KindError
	}
	return KindInvalid
}
