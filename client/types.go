package client

import (
	"time"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
)

// ItemDef describes an item to add to a group.
type ItemDef struct {
	AccessPath    string
	ItemID        string
	Active        bool
	ClientHandle  uint32
	RequestedType com.VT
}

// ItemResult is the outcome of adding or validating one item.
type ItemResult struct {
	ServerHandle  uint32
	CanonicalType com.VT
	AccessRights  uint32
}

func importItemResult(r *da.ItemResult) ItemResult {
	return ItemResult{
		ServerHandle:  r.ServerHandle,
		CanonicalType: r.CanonicalDataType,
		AccessRights:  r.AccessRights,
	}
}

// ItemState is the value of one item as read from a group or delivered in
// a data callback.
type ItemState struct {
	ClientHandle uint32
	Value        com.Variant
	Quality      uint16
	Timestamp    time.Time
}

// ItemValue is the value of one item read by identifier.
type ItemValue struct {
	Value     com.Variant
	Quality   uint16
	Timestamp time.Time
}

// VQT is a value with optional quality and timestamp for WriteVQT. Nil
// fields are left unchanged by the server.
type VQT struct {
	Value     com.Variant
	Quality   *uint16
	Timestamp *time.Time
}

// ServerStatus is the native form of OPCSERVERSTATUS.
type ServerStatus struct {
	StartTime      time.Time
	CurrentTime    time.Time
	LastUpdateTime time.Time
	State          da.ServerState
	GroupCount     uint32
	BandWidth      uint32
	MajorVersion   uint16
	MinorVersion   uint16
	BuildNumber    uint16
	VendorInfo     string
}

// GroupState is the full state of a group.
type GroupState struct {
	Name            string
	UpdateRate      uint32
	Active          bool
	TimeBias        int32
	PercentDeadband float32
	LocaleID        uint32
	ClientHandle    uint32
	ServerHandle    uint32
}

// GroupStateUpdate carries the settings SetState changes. Nil fields are
// left unchanged.
type GroupStateUpdate struct {
	UpdateRate      *uint32
	Active          *bool
	TimeBias        *int32
	PercentDeadband *float32
	LocaleID        *uint32
	ClientHandle    *uint32
}

// GroupOptions are the optional AddGroup parameters.
type GroupOptions struct {
	TimeBias        *int32
	PercentDeadband *float32
	LocaleID        uint32
}

// ServerFilter selects servers by the DA versions they implement. A server
// matches when it implements at least one Available version, or Available
// is empty, and every Required version.
type ServerFilter struct {
	Available opc.VersionSet
	Required  opc.VersionSet
}

// ServerDetails names a registered server class.
type ServerDetails struct {
	CLSID        com.GUID
	ProgID       string
	UserType     string
	VerIndProgID string
}

// Property describes one item property.
type Property struct {
	ID          uint32
	Description string
	DataType    com.VT
	ItemID      string
	Value       com.Variant
	Error       opc.HRESULT
}

// ItemProperties is the property list of one item.
type ItemProperties struct {
	Error      opc.HRESULT
	Properties []Property
}

// BrowseRequest holds the parameters of IOPCBrowse.Browse.
type BrowseRequest struct {
	ItemID              string
	Continuation        string
	MaxElements         uint32
	Filter              da.BrowseFilter
	ElementName         string
	VendorFilter        string
	ReturnAllProperties bool
	ReturnValues        bool
	PropertyIDs         []uint32
}

// BrowseElement is one child returned by Browse.
type BrowseElement struct {
	Name        string
	ItemID      string
	HasChildren bool
	IsItem      bool
	Properties  ItemProperties
}

// BrowseResult is one page of a Browse. Continuation is non-empty exactly
// when More is set and must be passed back unchanged to get the next page.
type BrowseResult struct {
	More         bool
	Continuation string
	Elements     []BrowseElement
}
