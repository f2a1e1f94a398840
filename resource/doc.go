// Package resource tracks host references to guest-owned objects.
//
// The guest hands out opaque values, such as windows, that stay alive
// until the host asks for them to be destroyed. The host keeps each one
// in a Table under a small integer handle so that it can tell a live
// reference from one that was already released.
//
// # Handle Table
//
//	table := resource.NewTable()
//
//	// Insert a value, get a handle
//	handle, err := table.Insert(typeID, value)
//
//	// Retrieve value by handle
//	value, ok := table.Get(handle)
//
//	// Remove and get value
//	value, ok := table.Remove(handle)
//
// Handle 0 is never issued. Freed slots are reused, so a handle alone
// does not prove identity; Typed.Holds compares the stored value as well.
//
// # Typed Access
//
//	windows := resource.NewTyped[*Window](table, windowTypeID)
//	h, _ := windows.Insert(w)
//	windows.Holds(h, w) // true until removed
//
// # Observers
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    switch e.Type {
//	    case resource.EventCreated:
//	    case resource.EventDropped:
//	    }
//	}))
//
// Values implementing Dropper are notified when their entry is removed,
// including by Clear and Close.
package resource
