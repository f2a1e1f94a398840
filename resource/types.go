package resource

// Handle is a host-side reference to an entry in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// EventType identifies a table lifecycle change.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	}
	return "unknown"
}

// Event represents a resource lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	TypeID uint32
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Backend provides the underlying storage for a table.
type Backend interface {
	// Create stores a value and returns a handle.
	Create(typeID uint32, value any) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// TypeID returns the type a handle was created with.
	TypeID(handle Handle) (uint32, bool)

	// Drop removes an entry and returns its value.
	Drop(handle Handle) (any, bool)

	// Each visits live entries in handle order until fn returns false.
	Each(fn func(Handle, uint32, any) bool)

	// Len returns the number of live entries.
	Len() int

	// Close releases every entry.
	Close() error
}

// Dropper is optionally implemented by values that must learn when their
// entry goes away.
type Dropper interface {
	Drop()
}
