// Package client is the consumer side of OPC Classic DA.
//
// A Client lists registered server classes by the DA versions they
// implement and creates servers. Each server and group is wrapped in a
// facade that resolves every interface the DA specification defines once,
// at construction, into a typed slot:
//
//	c, err := client.New()
//	defer c.Close()
//
//	srv, err := c.CreateServerByProgID("OPC.Sample.1")
//	grp, err := srv.AddGroup("line1", true, 1000, 1)
//	res, codes, err := grp.AddItems([]client.ItemDef{{ItemID: "plant.tank.level", Active: true}})
//	states, codes, err := grp.Read(da.SourceCache, []uint32{res[0].ServerHandle})
//
// Required interfaces missing at construction fail it with an
// interface_missing error. A method whose optional interface is absent
// returns a not_implemented error; Supports reports the slot state up
// front. The negotiated DA version is the highest one allowed by
// WithVersions whose required interfaces are all present.
//
// # Batches
//
// Batch methods return per-item results and codes aligned with the input.
// The call as a whole fails only for errors that prevent processing the
// batch; a failing item is reported in its code and leaves its result at
// the zero value. Callee-allocated arrays are copied into Go values and
// released before the method returns.
//
// # Threading
//
// A Client pins its goroutine to an OS thread inside the COM apartment.
// AsyncServer and AsyncGroup put the facades on mailbox workers and expose
// context-aware methods that are safe from any goroutine:
//
//	srv, err := client.SpawnServer(clsid, nil)
//	defer srv.Close()
//	grp, err := srv.AddGroup(ctx, "line1", true, 1000, 1)
//	states, codes, err := grp.Read(ctx, da.SourceCache, handles)
//
// # Notifications
//
// Group.Subscribe advises a DataHandler on the group's IOPCDataCallback
// connection point. Arguments are copied into DataChange and WriteComplete
// values before the handler runs.
package client
