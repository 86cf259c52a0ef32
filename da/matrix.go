package da

import (
	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
)

// Requirement is how a version treats an interface.
type Requirement uint8

const (
	Unavailable Requirement = iota
	Optional
	Required
)

func (r Requirement) String() string {
	switch r {
	case Optional:
		return "optional"
	case Required:
		return "required"
	}
	return "unavailable"
}

// Capability is one interface of a server or group object and its
// requirement at DA 1.0, 2.0 and 3.0.
type Capability struct {
	IID *com.GUID
	req [3]Requirement
}

// Name returns the interface name.
func (c *Capability) Name() string { return com.InterfaceName(c.IID) }

// Requirement returns the requirement at v. Invalid versions report
// Unavailable.
func (c *Capability) Requirement(v opc.Version) Requirement {
	if !v.Valid() {
		return Unavailable
	}
	return c.req[v-1]
}

func capability(iid *com.GUID, v1, v2, v3 Requirement) *Capability {
	return &Capability{IID: iid, req: [3]Requirement{v1, v2, v3}}
}

// Server capabilities.
var (
	CapServer                   = capability(&IID_IOPCServer, Required, Required, Required)
	CapCommon                   = capability(&IID_IOPCCommon, Unavailable, Required, Required)
	CapServerConnectionPoints   = capability(&com.IID_IConnectionPointContainer, Unavailable, Required, Required)
	CapItemProperties           = capability(&IID_IOPCItemProperties, Unavailable, Required, Unavailable)
	CapBrowse                   = capability(&IID_IOPCBrowse, Unavailable, Unavailable, Required)
	CapBrowseServerAddressSpace = capability(&IID_IOPCBrowseServerAddressSpace, Optional, Optional, Unavailable)
	CapPublicGroups             = capability(&IID_IOPCServerPublicGroups, Optional, Optional, Unavailable)
	CapItemIO                   = capability(&IID_IOPCItemIO, Unavailable, Unavailable, Required)
)

// Group capabilities.
var (
	CapItemMgt               = capability(&IID_IOPCItemMgt, Required, Required, Required)
	CapGroupStateMgt         = capability(&IID_IOPCGroupStateMgt, Required, Required, Required)
	CapGroupStateMgt2        = capability(&IID_IOPCGroupStateMgt2, Unavailable, Unavailable, Required)
	CapPublicGroupStateMgt   = capability(&IID_IOPCPublicGroupStateMgt, Optional, Optional, Unavailable)
	CapSyncIO                = capability(&IID_IOPCSyncIO, Required, Required, Required)
	CapSyncIO2               = capability(&IID_IOPCSyncIO2, Unavailable, Unavailable, Required)
	CapAsyncIO               = capability(&IID_IOPCAsyncIO, Required, Optional, Unavailable)
	CapAsyncIO2              = capability(&IID_IOPCAsyncIO2, Unavailable, Required, Required)
	CapAsyncIO3              = capability(&IID_IOPCAsyncIO3, Unavailable, Unavailable, Required)
	CapItemDeadbandMgt       = capability(&IID_IOPCItemDeadbandMgt, Unavailable, Unavailable, Required)
	CapItemSamplingMgt       = capability(&IID_IOPCItemSamplingMgt, Unavailable, Unavailable, Optional)
	CapGroupConnectionPoints = capability(&com.IID_IConnectionPointContainer, Unavailable, Required, Required)
	CapDataObject            = capability(&com.IID_IDataObject, Required, Optional, Unavailable)
)

// ServerCapabilities lists every server interface the matrix covers.
var ServerCapabilities = []*Capability{
	CapServer,
	CapCommon,
	CapServerConnectionPoints,
	CapItemProperties,
	CapBrowse,
	CapBrowseServerAddressSpace,
	CapPublicGroups,
	CapItemIO,
}

// GroupCapabilities lists every group interface the matrix covers.
var GroupCapabilities = []*Capability{
	CapItemMgt,
	CapGroupStateMgt,
	CapGroupStateMgt2,
	CapPublicGroupStateMgt,
	CapSyncIO,
	CapSyncIO2,
	CapAsyncIO,
	CapAsyncIO2,
	CapAsyncIO3,
	CapItemDeadbandMgt,
	CapItemSamplingMgt,
	CapGroupConnectionPoints,
	CapDataObject,
}

// RequiredAt returns the capabilities in caps that v requires.
func RequiredAt(caps []*Capability, v opc.Version) []*Capability {
	var out []*Capability
	for _, c := range caps {
		if c.Requirement(v) == Required {
			out = append(out, c)
		}
	}
	return out
}

// CategoryID returns the component category of v.
func CategoryID(v opc.Version) (com.GUID, bool) {
	switch v {
	case opc.V1:
		return CATID_OPCDAServer10, true
	case opc.V2:
		return CATID_OPCDAServer20, true
	case opc.V3:
		return CATID_OPCDAServer30, true
	}
	return com.GUID{}, false
}

// CategoryIDs returns the categories of every version in s.
func CategoryIDs(s opc.VersionSet) []com.GUID {
	var out []com.GUID
	for _, v := range s.List() {
		id, _ := CategoryID(v)
		out = append(out, id)
	}
	return out
}
