// Package mailbox runs an apartment-bound object on a dedicated worker.
//
// COM objects created in an apartment must be called from that apartment's
// thread. A Mailbox owns one object on a goroutine locked to its own OS
// thread, builds the object there, and executes requests against it one at
// a time in arrival order:
//
//	mb, err := mailbox.Start("server", func() (*client.Server, error) {
//	    return cl.CreateServer(clsid)
//	}, (*client.Server).Release)
//
//	status, err := mailbox.Call(ctx, mb, func(s *client.Server) (client.ServerStatus, error) {
//	    return s.GetStatus()
//	})
//
// Requests are queued in a bounded channel (DefaultCapacity unless
// WithCapacity says otherwise). Submit blocks while the queue is full and
// fails with a mailbox_closed error once Close has been called. Call waits
// for the reply; a context deadline or the mailbox's configured timeout
// ends the wait with a cancelled error, but the request itself still runs.
package mailbox
