// Package opc provides a Go binding and object-model overlay for OPC Classic
// Data Access 1.0, 2.0 and 3.0.
//
// OPC Classic servers expose a set of vtable-based, reference-counted COM
// interfaces. This library adapts that object model to typed Go APIs on the
// client side and implements the Data Access Server and Group objects over an
// in-memory address space on the server side.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	opc/                 Root package with HRESULT codes and DA versions
//	├── errors/          Structured error types carrying HRESULT codes
//	├── memory/          Foreign allocator, ownership wrappers, UTF-16 buffers
//	├── com/             GUIDs, Unknown, FILETIME, variants, apartments
//	├── enum/            Server-side enumerator objects
//	├── da/              DA interface ids, ABI records, contracts, version matrix
//	├── resource/        Server handle tables
//	├── addrspace/       Hierarchical in-memory address space
//	├── server/          Server and Group object implementations
//	├── activation/      Class registry and OpcEnum server list
//	├── client/          Capability-aggregated Client, Server and Group facades
//	├── mailbox/         Per-object worker goroutines with bounded queues
//	├── config/          YAML configuration
//	├── telemetry/       OpenTelemetry provider setup
//	└── cmd/opcda/       Command-line host and terminal browser
//
// # Quick Start
//
// Register an in-memory server and read a value through the client facade:
//
//	space := addrspace.New()
//	space.Set("plant.tank.level", com.NewFloat64(42.5))
//
//	reg := activation.NewRegistry()
//	clsid, _ := server.Register(reg, space, server.Options{})
//
//	cl, err := client.New(client.WithRegistry(reg))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cl.Close()
//
//	srv, err := cl.CreateServer(clsid)
//	grp, err := srv.AddGroup("g", true, 0, 0)
//	res, errs, err := grp.AddItems([]client.ItemDef{{ItemID: "plant.tank.level"}})
//	states, errs, err := grp.Read(da.SourceCache, []uint32{res[0].ServerHandle})
//
// # Memory Model
//
// Buffers that cross the object boundary are owned either by the caller or by
// the callee. Out-parameters are allocated by the callee through the foreign
// allocator and must be released by the receiver exactly once; memory.Array
// and the memory.CalleeOwned wrappers encode that rule. Nothing is freed by
// the garbage collector: every callee-owned value must be released with Free.
//
// # Thread Safety
//
// COM objects are apartment-bound. Client, Server and Group facades must be
// used from the goroutine that created them unless wrapped by
// client.SpawnServer, which pins each object to a mailbox.Mailbox worker
// on a dedicated OS thread and serializes calls. The in-memory server objects are safe for concurrent use.
package opc
