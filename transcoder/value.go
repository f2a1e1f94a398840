package transcoder

// Value is a decoded guest value. The set of implementations is closed.
type Value interface {
	// Kind reports the handle kind the value was decoded from.
	Kind() Kind
	// Interface returns the host-native form; nil for NoneValue.
	Interface() any

	sealed()
}

type (
	NoneValue    struct{}
	BoolValue    bool
	Uint32Value  uint32
	Int32Value   int32
	Int64Value   int64
	Float64Value float64
	StringValue  string
	BytesValue   []byte
)

// StructuredValue is a decoded MessagePack document.
type StructuredValue struct {
	V   any
	Raw []byte
}

// EngineRef is an opaque guest engine instance.
type EngineRef struct {
	Handle Handle
}

// ScriptRef is an opaque script value living inside the guest, such as a
// window. It stays valid until the guest releases it.
type ScriptRef struct {
	Handle Handle
}

func (NoneValue) Kind() Kind       { return KindNone }
func (BoolValue) Kind() Kind       { return KindBool }
func (Uint32Value) Kind() Kind     { return KindUint32 }
func (Int32Value) Kind() Kind      { return KindInt32 }
func (Int64Value) Kind() Kind      { return KindInt64 }
func (Float64Value) Kind() Kind    { return KindFloat64 }
func (StringValue) Kind() Kind     { return KindString }
func (BytesValue) Kind() Kind      { return KindBytes }
func (StructuredValue) Kind() Kind { return KindStructured }
func (EngineRef) Kind() Kind       { return KindEngine }
func (ScriptRef) Kind() Kind       { return KindScript }

func (NoneValue) Interface() any         { return nil }
func (v BoolValue) Interface() any       { return bool(v) }
func (v Uint32Value) Interface() any     { return uint32(v) }
func (v Int32Value) Interface() any      { return int32(v) }
func (v Int64Value) Interface() any      { return int64(v) }
func (v Float64Value) Interface() any    { return float64(v) }
func (v StringValue) Interface() any     { return string(v) }
func (v BytesValue) Interface() any      { return []byte(v) }
func (v StructuredValue) Interface() any { return v.V }
func (v EngineRef) Interface() any       { return v.Handle }
func (v ScriptRef) Interface() any       { return v.Handle }

func (NoneValue) sealed()       {}
func (BoolValue) sealed()       {}
func (Uint32Value) sealed()     {}
func (Int32Value) sealed()      {}
func (Int64Value) sealed()      {}
func (Float64Value) sealed()    {}
func (StringValue) sealed()     {}
func (BytesValue) sealed()      {}
func (StructuredValue) sealed() {}
func (EngineRef) sealed()       {}
func (ScriptRef) sealed()       {}
