package resource

// Typed gives type-safe access to the entries of one type in a table.
type Typed[T comparable] struct {
	table  *Table
	typeID uint32
}

// NewTyped returns a view of table restricted to typeID.
func NewTyped[T comparable](table *Table, typeID uint32) *Typed[T] {
	return &Typed[T]{table: table, typeID: typeID}
}

// Insert adds a value and returns its handle.
func (t *Typed[T]) Insert(value T) (Handle, error) {
	return t.table.Insert(t.typeID, value)
}

// Get retrieves a value by handle.
func (t *Typed[T]) Get(handle Handle) (T, bool) {
	var zero T
	v, ok := t.table.GetTyped(handle, t.typeID)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Holds reports whether handle still refers to value. A handle whose slot
// was reused by another value does not.
func (t *Typed[T]) Holds(handle Handle, value T) bool {
	v, ok := t.Get(handle)
	return ok && v == value
}

// Remove drops an entry of this type.
func (t *Typed[T]) Remove(handle Handle) (T, bool) {
	var zero T
	if _, ok := t.Get(handle); !ok {
		return zero, false
	}
	v, ok := t.table.Remove(handle)
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// Len returns the number of live entries of this type.
func (t *Typed[T]) Len() int {
	n := 0
	t.Each(func(Handle, T) bool {
		n++
		return true
	})
	return n
}

// Each visits live entries of this type until fn returns false.
func (t *Typed[T]) Each(fn func(Handle, T) bool) {
	t.table.Each(func(h Handle, typeID uint32, v any) bool {
		if typeID != t.typeID {
			return true
		}
		return fn(h, v.(T))
	})
}
