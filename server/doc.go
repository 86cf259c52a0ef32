// Package server implements an OPC DA 2.0/3.0 server over an in-memory
// address space.
//
// A Server exposes IOPCServer, IOPCCommon, IOPCBrowseServerAddressSpace,
// IOPCItemProperties, IOPCBrowse, IOPCItemIO and the IOPCShutdown
// connection point. Each Group it creates exposes item management, state
// management, synchronous and asynchronous I/O and the IOPCDataCallback
// connection point.
//
//	space := addrspace.New()
//	space.Set("plant.tank.level", com.NewFloat64(42.5))
//
//	srv := server.New(space, server.Options{})
//	defer srv.Shutdown("bye")
//
// # Registration
//
// Register adds a factory for the server to an activation registry, so
// clients can create it by CLSID or ProgID and find it through
// IOPCServerList:
//
//	reg := activation.NewRegistry()
//	clsid, err := server.Register(reg, space, server.Options{ProgID: "Plant.Sim.1"})
//
// # Memory
//
// Out-parameters follow the callee-allocates rule: every array, string and
// VARIANT written to an out-pointer comes from Options.Allocator and is
// released by the caller through the same allocator. A failed call
// releases whatever it had produced and leaves every out-pointer nil.
//
// # Updates
//
// Active groups with an advised IOPCDataCallback are polled at their
// update rate. Items whose value moved past the percent deadband, or whose
// quality changed, are delivered in one OnDataChange per tick. Completions
// and notifications run on Options.Executor, never on the caller's
// goroutine.
package server
