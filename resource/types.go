package resource

import "errors"

// Handle is a server-assigned reference to a value in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Event types for lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
	EventRenamed
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	case EventRenamed:
		return "renamed"
	}
	return "unknown"
}

// Event is a lifecycle notification.
type Event[T any] struct {
	Value  T
	Name   string
	Handle Handle
	Type   EventType
}

// Observer receives lifecycle notifications.
type Observer[T any] interface {
	OnResourceEvent(Event[T])
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc[T any] func(Event[T])

func (f ObserverFunc[T]) OnResourceEvent(e Event[T]) { f(e) }

// Dropper is optionally implemented by values that need cleanup.
type Dropper interface {
	Drop()
}

var (
	ErrClosed    = errors.New("resource table closed")
	ErrExhausted = errors.New("resource handles exhausted")
	ErrDuplicate = errors.New("resource name already in use")
	ErrNotFound  = errors.New("resource handle not found")
)
