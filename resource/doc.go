// Package resource provides server handle management.
//
// Groups inside a server and items inside a group are addressed by 32-bit
// handles that the server assigns. A handle is issued once and never
// again for the lifetime of its table, even after the value is removed,
// so a stale handle from a client can never reach a newer object.
//
// # Handle Table
//
// Table maps handles to values and, optionally, unique names to handles.
// Both indexes change together under one lock:
//
//	groups := resource.NewTable[*Group]()
//
//	// Insert a value under a unique name, get a handle
//	h, err := groups.Insert("line1", g)
//
//	// Retrieve by handle or by name
//	g, ok := groups.Get(h)
//	h, g, ok := groups.Lookup("line1")
//
//	// Remove by handle; the name is released with it
//	g, ok := groups.Remove(h)
//
// Handle 0 is reserved and always invalid. A table that has issued
// 2^32-1 handles returns ErrExhausted.
//
// # Observers
//
// Register observers to track lifecycle events:
//
//	stop := groups.Subscribe(resource.ObserverFunc[*Group](func(e resource.Event[*Group]) {
//	    switch e.Type {
//	    case resource.EventCreated:
//	        log.Printf("group %d created", e.Handle)
//	    case resource.EventDropped:
//	        log.Printf("group %d dropped", e.Handle)
//	    }
//	}))
//	defer stop()
//
// Observers run after the table lock is released, so they may call back
// into the table.
//
// # Cleanup
//
// Values implementing Dropper have Drop called when they are removed,
// cleared or the table is closed.
package resource
