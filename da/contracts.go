package da

import (
	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
)

// Server is IOPCServer.
type Server interface {
	com.Unknown
	AddGroup(name *uint16, active com.BOOL, requestedUpdateRate uint32, clientGroup uint32, timeBias *int32, percentDeadband *float32, lcid uint32, serverGroup *uint32, revisedUpdateRate *uint32, riid *com.GUID, unk *com.Unknown) error
	GetErrorString(code opc.HRESULT, lcid uint32, str **uint16) error
	GetGroupByName(name *uint16, riid *com.GUID, unk *com.Unknown) error
	GetStatus(status **ServerStatus) error
	RemoveGroup(serverGroup uint32, force com.BOOL) error
	CreateGroupEnumerator(scope EnumScope, riid *com.GUID, unk *com.Unknown) error
}

// ServerPublicGroups is IOPCServerPublicGroups.
type ServerPublicGroups interface {
	com.Unknown
	GetPublicGroupByName(name *uint16, riid *com.GUID, unk *com.Unknown) error
	RemovePublicGroup(serverGroup uint32, force com.BOOL) error
}

// BrowseServerAddressSpace is IOPCBrowseServerAddressSpace. The browse
// position is per object.
type BrowseServerAddressSpace interface {
	com.Unknown
	QueryOrganization(ns *NamespaceType) error
	ChangeBrowsePosition(dir BrowseDirection, name *uint16) error
	BrowseOPCItemIDs(typ BrowseType, filter *uint16, dataType com.VT, accessRights uint32, enum *com.EnumString) error
	GetItemID(itemDataID *uint16, itemID **uint16) error
	BrowseAccessPaths(itemID *uint16, enum *com.EnumString) error
}

// ItemPropertiesMgt is IOPCItemProperties.
type ItemPropertiesMgt interface {
	com.Unknown
	QueryAvailableProperties(itemID *uint16, count *uint32, propertyIDs **uint32, descriptions ***uint16, dataTypes **com.VT) error
	GetItemProperties(itemID *uint16, propertyIDs []uint32, values **com.VARIANT, errs **opc.HRESULT) error
	LookupItemIDs(itemID *uint16, propertyIDs []uint32, newItemIDs ***uint16, errs **opc.HRESULT) error
}

// Browse is IOPCBrowse. continuation is in/out: a non-empty value from a
// previous call resumes that browse, and on return it holds the point to
// resume from, or nil when more is false.
type Browse interface {
	com.Unknown
	GetProperties(itemIDs []*uint16, returnValues com.BOOL, propertyIDs []uint32, results **ItemProperties) error
	Browse(itemID *uint16, continuation **uint16, maxElements uint32, filter BrowseFilter, elementName *uint16, vendorFilter *uint16, returnAllProperties com.BOOL, returnValues com.BOOL, propertyIDs []uint32, more *com.BOOL, count *uint32, elements **BrowseElement) error
}

// ItemIO is IOPCItemIO.
type ItemIO interface {
	com.Unknown
	Read(itemIDs []*uint16, maxAge []uint32, values **com.VARIANT, qualities **uint16, timestamps **com.FILETIME, errs **opc.HRESULT) error
	WriteVQT(itemIDs []*uint16, vqts []ItemVQT, errs **opc.HRESULT) error
}

// Common is IOPCCommon.
type Common interface {
	com.Unknown
	SetLocaleID(lcid uint32) error
	GetLocaleID(lcid *uint32) error
	QueryAvailableLocaleIDs(count *uint32, lcids **uint32) error
	GetErrorString(code opc.HRESULT, str **uint16) error
	SetClientName(name *uint16) error
}

// Shutdown is IOPCShutdown, implemented by clients.
type Shutdown interface {
	com.Unknown
	ShutdownRequest(reason *uint16) error
}

// ItemMgt is IOPCItemMgt. Batch methods return nil when the call itself
// succeeded; per-item outcomes are in errs, aligned with the input.
type ItemMgt interface {
	com.Unknown
	AddItems(defs []ItemDef, results **ItemResult, errs **opc.HRESULT) error
	ValidateItems(defs []ItemDef, blobUpdate com.BOOL, results **ItemResult, errs **opc.HRESULT) error
	RemoveItems(serverHandles []uint32, errs **opc.HRESULT) error
	SetActiveState(serverHandles []uint32, active com.BOOL, errs **opc.HRESULT) error
	SetClientHandles(serverHandles []uint32, clientHandles []uint32, errs **opc.HRESULT) error
	SetDatatypes(serverHandles []uint32, requestedTypes []com.VT, errs **opc.HRESULT) error
	CreateEnumerator(riid *com.GUID, unk *com.Unknown) error
}

// GroupStateMgt is IOPCGroupStateMgt. Nil pointers passed to SetState
// leave the corresponding setting unchanged.
type GroupStateMgt interface {
	com.Unknown
	GetState(updateRate *uint32, active *com.BOOL, name **uint16, timeBias *int32, percentDeadband *float32, lcid *uint32, clientGroup *uint32, serverGroup *uint32) error
	SetState(requestedUpdateRate *uint32, revisedUpdateRate *uint32, active *com.BOOL, timeBias *int32, percentDeadband *float32, lcid *uint32, clientGroup *uint32) error
	SetName(name *uint16) error
	CloneGroup(name *uint16, riid *com.GUID, unk *com.Unknown) error
}

// GroupStateMgt2 is IOPCGroupStateMgt2.
type GroupStateMgt2 interface {
	GroupStateMgt
	SetKeepAlive(keepAlive uint32, revised *uint32) error
	GetKeepAlive(keepAlive *uint32) error
}

// PublicGroupStateMgt is IOPCPublicGroupStateMgt.
type PublicGroupStateMgt interface {
	com.Unknown
	GetState(public *com.BOOL) error
	MoveToPublic() error
}

// SyncIO is IOPCSyncIO.
type SyncIO interface {
	com.Unknown
	Read(source DataSource, serverHandles []uint32, states **ItemState, errs **opc.HRESULT) error
	Write(serverHandles []uint32, values []com.VARIANT, errs **opc.HRESULT) error
}

// SyncIO2 is IOPCSyncIO2.
type SyncIO2 interface {
	SyncIO
	ReadMaxAge(serverHandles []uint32, maxAge []uint32, values **com.VARIANT, qualities **uint16, timestamps **com.FILETIME, errs **opc.HRESULT) error
	WriteVQT(serverHandles []uint32, vqts []ItemVQT, errs **opc.HRESULT) error
}

// AsyncIO is the DA 1.0 IOPCAsyncIO.
type AsyncIO interface {
	com.Unknown
	Read(connection uint32, source DataSource, serverHandles []uint32, transactionID *uint32, errs **opc.HRESULT) error
	Write(connection uint32, serverHandles []uint32, values []com.VARIANT, transactionID *uint32, errs **opc.HRESULT) error
	Refresh(connection uint32, source DataSource, transactionID *uint32) error
	Cancel(transactionID uint32) error
}

// AsyncIO2 is IOPCAsyncIO2. Completions arrive on the IOPCDataCallback
// advised on the group's connection point.
type AsyncIO2 interface {
	com.Unknown
	Read(serverHandles []uint32, transactionID uint32, cancelID *uint32, errs **opc.HRESULT) error
	Write(serverHandles []uint32, values []com.VARIANT, transactionID uint32, cancelID *uint32, errs **opc.HRESULT) error
	Refresh2(source DataSource, transactionID uint32, cancelID *uint32) error
	Cancel2(cancelID uint32) error
	SetEnable(enable com.BOOL) error
	GetEnable(enable *com.BOOL) error
}

// AsyncIO3 is IOPCAsyncIO3.
type AsyncIO3 interface {
	AsyncIO2
	ReadMaxAge(serverHandles []uint32, maxAge []uint32, transactionID uint32, cancelID *uint32, errs **opc.HRESULT) error
	WriteVQT(serverHandles []uint32, vqts []ItemVQT, transactionID uint32, cancelID *uint32, errs **opc.HRESULT) error
	RefreshMaxAge(maxAge uint32, transactionID uint32, cancelID *uint32) error
}

// ItemDeadbandMgt is IOPCItemDeadbandMgt.
type ItemDeadbandMgt interface {
	com.Unknown
	SetItemDeadband(serverHandles []uint32, deadbands []float32, errs **opc.HRESULT) error
	GetItemDeadband(serverHandles []uint32, deadbands **float32, errs **opc.HRESULT) error
	ClearItemDeadband(serverHandles []uint32, errs **opc.HRESULT) error
}

// ItemSamplingMgt is IOPCItemSamplingMgt.
type ItemSamplingMgt interface {
	com.Unknown
	SetItemSamplingRate(serverHandles []uint32, rates []uint32, revised **uint32, errs **opc.HRESULT) error
	GetItemSamplingRate(serverHandles []uint32, rates **uint32, errs **opc.HRESULT) error
	ClearItemSamplingRate(serverHandles []uint32, errs **opc.HRESULT) error
	SetItemBufferEnable(serverHandles []uint32, enable []com.BOOL, errs **opc.HRESULT) error
	GetItemBufferEnable(serverHandles []uint32, enable **com.BOOL, errs **opc.HRESULT) error
}

// FormatEtc is FORMATETC.
type FormatEtc struct {
	Format uint16
	Ptd    uintptr
	Aspect uint32
	Index  int32
	Tymed  uint32
}

// DataObject is the advise subset of IDataObject used by DA 1.0 groups.
type DataObject interface {
	com.Unknown
	DAdvise(format *FormatEtc, advf uint32, sink com.Unknown, connection *uint32) error
	DUnadvise(connection uint32) error
}

// DataCallback is IOPCDataCallback, implemented by clients. The slices are
// owned by the server and valid only for the duration of the call.
type DataCallback interface {
	com.Unknown
	OnDataChange(transactionID uint32, group uint32, masterQuality opc.HRESULT, masterError opc.HRESULT, clientHandles []uint32, values []com.VARIANT, qualities []uint16, timestamps []com.FILETIME, errs []opc.HRESULT) error
	OnReadComplete(transactionID uint32, group uint32, masterQuality opc.HRESULT, masterError opc.HRESULT, clientHandles []uint32, values []com.VARIANT, qualities []uint16, timestamps []com.FILETIME, errs []opc.HRESULT) error
	OnWriteComplete(transactionID uint32, group uint32, masterError opc.HRESULT, clientHandles []uint32, errs []opc.HRESULT) error
	OnCancelComplete(transactionID uint32, group uint32) error
}

// EnumItemAttributes is IEnumOPCItemAttributes. Next returns a
// callee-allocated array; release it with FreeItemAttributes and the
// allocator.
type EnumItemAttributes interface {
	com.Unknown
	Next(count uint32, items **ItemAttributes, fetched *uint32) opc.HRESULT
	Skip(count uint32) opc.HRESULT
	Reset() error
	Clone() (EnumItemAttributes, error)
}

// ServerList is IOPCServerList.
type ServerList interface {
	com.Unknown
	EnumClassesOfCategories(implemented []com.GUID, required []com.GUID, enum *com.EnumGUID) error
	GetClassDetails(clsid *com.GUID, progID **uint16, userType **uint16) error
	CLSIDFromProgID(progID *uint16, clsid *com.GUID) error
}

// ServerList2 is IOPCServerList2.
type ServerList2 interface {
	com.Unknown
	EnumClassesOfCategories(implemented []com.GUID, required []com.GUID, enum *com.EnumGUID) error
	GetClassDetails(clsid *com.GUID, progID **uint16, userType **uint16, verIndProgID **uint16) error
	CLSIDFromProgID(progID *uint16, clsid *com.GUID) error
}
