package server

import (
	"github.com/wippyai/opc-classic/activation"
	"github.com/wippyai/opc-classic/addrspace"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
)

// Categories lists the component categories the server implements.
var Categories = []com.GUID{da.CATID_OPCDAServer20, da.CATID_OPCDAServer30}

// Register makes the server class available through reg. Every
// activation creates a new Server over the shared space. A zero
// opts.CLSID is replaced by a random one, which is returned.
func Register(reg *activation.Registry, space *addrspace.Space, opts Options) (com.GUID, error) {
	if opts.CLSID == (com.GUID{}) {
		opts.CLSID = com.NewGUID()
	}
	opts = opts.withDefaults()
	err := reg.Register(activation.ClassInfo{
		CLSID:        opts.CLSID,
		ProgID:       opts.ProgID,
		VerIndProgID: opts.VerIndProgID,
		UserType:     opts.UserType,
		Categories:   Categories,
		Factory: func() (com.Unknown, error) {
			return New(space, opts), nil
		},
	})
	if err != nil {
		return com.GUID{}, err
	}
	return opts.CLSID, nil
}
