package resource

import (
	"math"
	"slices"
	"sync"
)

type observer[T any] struct {
	o  Observer[T]
	id uint64
}

type entry[T any] struct {
	value T
	name  string
}

// Table maps never-reused handles to values, with an optional unique
// name index.
type Table[T any] struct {
	entries   map[Handle]*entry[T]
	names     map[string]Handle
	observers []observer[T]
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	obsSeq    uint64
	last      Handle
	closed    bool
}

// NewTable creates an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{
		entries: make(map[Handle]*entry[T]),
		names:   make(map[string]Handle),
	}
}

// Insert adds value under name and returns a fresh handle. An empty name
// is not indexed. A name already in use returns ErrDuplicate.
func (t *Table[T]) Insert(name string, value T) (Handle, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, ErrClosed
	}
	if name != "" {
		if _, ok := t.names[name]; ok {
			t.mu.Unlock()
			return 0, ErrDuplicate
		}
	}
	if t.last == math.MaxUint32 {
		t.mu.Unlock()
		return 0, ErrExhausted
	}
	t.last++
	h := t.last
	t.entries[h] = &entry[T]{value: value, name: name}
	if name != "" {
		t.names[name] = h
	}
	t.mu.Unlock()

	t.notify(Event[T]{Type: EventCreated, Handle: h, Name: name, Value: value})
	return h, nil
}

// Get retrieves a value by handle.
func (t *Table[T]) Get(h Handle) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[h]
	if !ok {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Lookup retrieves a value by name.
func (t *Table[T]) Lookup(name string) (Handle, T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.names[name]
	if !ok {
		var zero T
		return 0, zero, false
	}
	return h, t.entries[h].value, true
}

// Name returns the name h was inserted or renamed under.
func (t *Table[T]) Name(h Handle) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[h]
	if !ok {
		return "", false
	}
	return e.name, true
}

// Rename moves h to a new name. Renaming to the current name succeeds.
func (t *Table[T]) Rename(h Handle, name string) error {
	t.mu.Lock()
	e, ok := t.entries[h]
	if !ok {
		t.mu.Unlock()
		return ErrNotFound
	}
	if e.name == name {
		t.mu.Unlock()
		return nil
	}
	if name != "" {
		if _, taken := t.names[name]; taken {
			t.mu.Unlock()
			return ErrDuplicate
		}
	}
	if e.name != "" {
		delete(t.names, e.name)
	}
	e.name = name
	if name != "" {
		t.names[name] = h
	}
	value := e.value
	t.mu.Unlock()

	t.notify(Event[T]{Type: EventRenamed, Handle: h, Name: name, Value: value})
	return nil
}

// Remove drops a value and returns it. The handle is not reissued.
func (t *Table[T]) Remove(h Handle) (T, bool) {
	t.mu.Lock()
	e, ok := t.entries[h]
	if !ok {
		t.mu.Unlock()
		var zero T
		return zero, false
	}
	delete(t.entries, h)
	if e.name != "" {
		delete(t.names, e.name)
	}
	t.mu.Unlock()

	t.drop(h, e)
	return e.value, true
}

// Len returns the number of live values.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Handles returns the live handles in issue order.
func (t *Table[T]) Handles() []Handle {
	t.mu.RLock()
	hs := make([]Handle, 0, len(t.entries))
	for h := range t.entries {
		hs = append(hs, h)
	}
	t.mu.RUnlock()
	slices.Sort(hs)
	return hs
}

// Values returns the live values in issue order.
func (t *Table[T]) Values() []T {
	var out []T
	t.Each(func(_ Handle, _ string, v T) bool {
		out = append(out, v)
		return true
	})
	return out
}

// Each calls fn for every live value in issue order until fn returns
// false. The table is not locked while fn runs.
func (t *Table[T]) Each(fn func(Handle, string, T) bool) {
	for _, h := range t.Handles() {
		t.mu.RLock()
		e, ok := t.entries[h]
		t.mu.RUnlock()
		if !ok {
			continue
		}
		if !fn(h, e.name, e.value) {
			return
		}
	}
}

// Subscribe adds an observer for lifecycle events and returns a function
// that removes it.
func (t *Table[T]) Subscribe(o Observer[T]) (unsubscribe func()) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.obsSeq++
	id := t.obsSeq
	t.observers = append(t.observers, observer[T]{id: id, o: o})
	return func() {
		t.obsMu.Lock()
		defer t.obsMu.Unlock()
		t.observers = slices.DeleteFunc(t.observers, func(ob observer[T]) bool { return ob.id == id })
	}
}

// Clear drops every value. Handles already issued stay retired.
func (t *Table[T]) Clear() {
	t.mu.Lock()
	old := t.entries
	t.entries = make(map[Handle]*entry[T])
	t.names = make(map[string]Handle)
	t.mu.Unlock()

	hs := make([]Handle, 0, len(old))
	for h := range old {
		hs = append(hs, h)
	}
	slices.Sort(hs)
	for _, h := range hs {
		t.drop(h, old[h])
	}
}

// Close drops every value and rejects further inserts.
func (t *Table[T]) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.Clear()
	return nil
}

func (t *Table[T]) drop(h Handle, e *entry[T]) {
	if d, ok := any(e.value).(Dropper); ok {
		d.Drop()
	}
	t.notify(Event[T]{Type: EventDropped, Handle: h, Name: e.name, Value: e.value})
}

func (t *Table[T]) notify(e Event[T]) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, ob := range t.observers {
		ob.o.OnResourceEvent(e)
	}
}
