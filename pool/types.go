package pool

// Handle is an opaque reference to an entry in a pool.
type Handle int32

const (
	// Invalid is the "absent" sentinel.
	Invalid Handle = 0
	// Error is the "error" sentinel returned by natives on failure.
	Error Handle = -1
)

// Valid reports whether h lies outside the sentinel range.
func (h Handle) Valid() bool {
	return h > 0
}

// EventType identifies a pool lifecycle notification.
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
	default:
		return "unknown"
	}
}

// Event represents an entry lifecycle event.
type Event struct {
	Handle Handle
	Type   EventType
}

// Observer receives notifications about entry lifecycle events.
type Observer interface {
	OnPoolEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnPoolEvent(e Event) { f(e) }

// Dropper is optionally implemented by values that need cleanup when
// removed from a pool by Clear.
type Dropper interface {
	Drop()
}
