package da

import (
	"unsafe"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/memory"
)

// ItemDef is OPCITEMDEF.
type ItemDef struct {
	AccessPath        *uint16
	ItemID            *uint16
	Active            com.BOOL
	ClientHandle      uint32
	BlobSize          uint32
	Blob              *byte
	RequestedDataType com.VT
	Reserved          uint16
}

// ItemResult is OPCITEMRESULT.
type ItemResult struct {
	ServerHandle      uint32
	CanonicalDataType com.VT
	Reserved          uint16
	AccessRights      uint32
	BlobSize          uint32
	Blob              *byte
}

// ItemState is OPCITEMSTATE.
type ItemState struct {
	ClientHandle uint32
	Timestamp    com.FILETIME
	Quality      uint16
	Reserved     uint16
	DataValue    com.VARIANT
}

// ItemAttributes is OPCITEMATTRIBUTES.
type ItemAttributes struct {
	AccessPath        *uint16
	ItemID            *uint16
	Active            com.BOOL
	ClientHandle      uint32
	ServerHandle      uint32
	AccessRights      uint32
	BlobSize          uint32
	Blob              *byte
	RequestedDataType com.VT
	CanonicalDataType com.VT
	EUType            EUType
	EUInfo            com.VARIANT
}

// ItemVQT is OPCITEMVQT. Quality and timestamp are applied only when
// their Specified flag is set.
type ItemVQT struct {
	Value              com.VARIANT
	QualitySpecified   com.BOOL
	Quality            uint16
	Reserved           uint16
	TimestampSpecified com.BOOL
	Timestamp          com.FILETIME
}

// ServerStatus is OPCSERVERSTATUS.
type ServerStatus struct {
	StartTime      com.FILETIME
	CurrentTime    com.FILETIME
	LastUpdateTime com.FILETIME
	ServerState    ServerState
	GroupCount     uint32
	BandWidth      uint32
	MajorVersion   uint16
	MinorVersion   uint16
	BuildNumber    uint16
	Reserved       uint16
	VendorInfo     *uint16
}

// ItemProperty is OPCITEMPROPERTY.
type ItemProperty struct {
	DataType    com.VT
	Reserved    uint16
	PropertyID  uint32
	ItemID      *uint16
	Description *uint16
	Value       com.VARIANT
	Error       opc.HRESULT
	Reserved2   uint32
}

// ItemProperties is OPCITEMPROPERTIES.
type ItemProperties struct {
	Error         opc.HRESULT
	NumProperties uint32
	Properties    *ItemProperty
	Reserved      uint32
}

// BrowseElement is OPCBROWSEELEMENT.
type BrowseElement struct {
	Name       *uint16
	ItemID     *uint16
	Flags      uint32
	Reserved   uint32
	Properties ItemProperties
}

// Attributes is the native form of an item's attribute record.
type Attributes struct {
	AccessPath    string
	ItemID        string
	Active        bool
	ClientHandle  uint32
	ServerHandle  uint32
	AccessRights  uint32
	RequestedType com.VT
	CanonicalType com.VT
	EUType        EUType
}

// Export builds the boundary record for a, allocating its strings through
// alloc. On failure nothing is left allocated.
func (a Attributes) Export(alloc memory.Allocator) (ItemAttributes, error) {
	path, err := memory.AllocWString(alloc, a.AccessPath)
	if err != nil {
		return ItemAttributes{}, err
	}
	id, err := memory.AllocWString(alloc, a.ItemID)
	if err != nil {
		memory.FreeWString(alloc, path)
		return ItemAttributes{}, err
	}
	return ItemAttributes{
		AccessPath:        path,
		ItemID:            id,
		Active:            com.BoolOf(a.Active),
		ClientHandle:      a.ClientHandle,
		ServerHandle:      a.ServerHandle,
		AccessRights:      a.AccessRights,
		RequestedDataType: a.RequestedType,
		CanonicalDataType: a.CanonicalType,
		EUType:            a.EUType,
	}, nil
}

// Import reads a boundary record without taking ownership of it.
func (r *ItemAttributes) Import() Attributes {
	return Attributes{
		AccessPath:    memory.WStringToString(r.AccessPath),
		ItemID:        memory.WStringToString(r.ItemID),
		Active:        r.Active.Bool(),
		ClientHandle:  r.ClientHandle,
		ServerHandle:  r.ServerHandle,
		AccessRights:  r.AccessRights,
		RequestedType: r.RequestedDataType,
		CanonicalType: r.CanonicalDataType,
		EUType:        r.EUType,
	}
}

func freeBlob(a memory.Allocator, p *byte) {
	if p != nil {
		memory.OrDefault(a).Free(unsafe.Pointer(p))
	}
}

// FreeItemResults releases the blobs held by rs. The array itself is
// released by its owner.
func FreeItemResults(a memory.Allocator, rs []ItemResult) {
	for i := range rs {
		freeBlob(a, rs[i].Blob)
		rs[i].Blob, rs[i].BlobSize = nil, 0
	}
}

// FreeItemStates clears the values held by ss.
func FreeItemStates(a memory.Allocator, ss []ItemState) {
	for i := range ss {
		com.ClearVARIANT(a, &ss[i].DataValue)
	}
}

// FreeItemAttributes releases the strings, blobs and values held by as.
func FreeItemAttributes(a memory.Allocator, as []ItemAttributes) {
	for i := range as {
		memory.FreeWString(a, as[i].AccessPath)
		memory.FreeWString(a, as[i].ItemID)
		freeBlob(a, as[i].Blob)
		com.ClearVARIANT(a, &as[i].EUInfo)
		as[i] = ItemAttributes{}
	}
}

// FreeItemPropertyList releases the properties of p and their array.
func FreeItemPropertyList(a memory.Allocator, p *ItemProperties) {
	if p == nil || p.Properties == nil {
		return
	}
	props := unsafe.Slice(p.Properties, p.NumProperties)
	for i := range props {
		memory.FreeWString(a, props[i].ItemID)
		memory.FreeWString(a, props[i].Description)
		com.ClearVARIANT(a, &props[i].Value)
	}
	memory.OrDefault(a).Free(unsafe.Pointer(p.Properties))
	p.Properties, p.NumProperties = nil, 0
}

// FreeBrowseElements releases the names, ids and property lists of es.
func FreeBrowseElements(a memory.Allocator, es []BrowseElement) {
	for i := range es {
		memory.FreeWString(a, es[i].Name)
		memory.FreeWString(a, es[i].ItemID)
		FreeItemPropertyList(a, &es[i].Properties)
		es[i] = BrowseElement{}
	}
}

// FreeServerStatus releases s and its vendor string.
func FreeServerStatus(a memory.Allocator, s *ServerStatus) {
	if s == nil {
		return
	}
	memory.FreeWString(a, s.VendorInfo)
	memory.OrDefault(a).Free(unsafe.Pointer(s))
}
