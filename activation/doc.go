// Package activation provides in-process class activation for OPC servers.
//
// A Registry maps class identifiers to factories, program identifiers and
// component categories. It stands in for the system class store and the
// OpcEnum service: it implements IOPCServerList and IOPCServerList2, so a
// client discovers servers the same way it would on a host with COM.
//
//	reg := activation.NewRegistry()
//	err := reg.Register(activation.ClassInfo{
//	    CLSID:      clsid,
//	    ProgID:     "Vendor.Server.1",
//	    Categories: []com.GUID{da.CATID_OPCDAServer20},
//	    Factory:    func() (com.Unknown, error) { return newServer(), nil },
//	})
//
//	srv, err := reg.Create(&clsid, &da.IID_IOPCServer)
//
// Program identifiers that are not registered fall back to the system
// class store when the calling thread's apartment is backed by a COM
// runtime.
package activation
