package client

import (
	"math"

	"go.uber.org/zap"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/memory"
)

// Group is the capability-aggregated facade over an OPC DA group object.
// IOPCItemMgt, IOPCGroupStateMgt and IOPCSyncIO are required; the other
// interfaces fill optional slots.
type Group struct {
	srv         *Server
	alloc       memory.Allocator
	version     opc.Version
	handle      uint32
	revisedRate uint32

	itemMgt    da.ItemMgt
	state      da.GroupStateMgt
	state2     da.GroupStateMgt2
	public     da.PublicGroupStateMgt
	sync       da.SyncIO
	sync2      da.SyncIO2
	async      da.AsyncIO
	async2     da.AsyncIO2
	async3     da.AsyncIO3
	deadband   da.ItemDeadbandMgt
	sampling   da.ItemSamplingMgt
	points     com.ConnectionPointContainer
	dataObject da.DataObject
}

func newGroup(s *Server, unk com.Unknown) (*Group, error) {
	g := &Group{srv: s, alloc: s.alloc}
	var err error
	if g.itemMgt, err = com.Query[da.ItemMgt](unk, &da.IID_IOPCItemMgt); err != nil {
		return nil, errors.InterfaceMissing(errors.PhaseClient, "IOPCItemMgt")
	}
	if g.state, err = com.Query[da.GroupStateMgt](unk, &da.IID_IOPCGroupStateMgt); err != nil {
		return nil, errors.InterfaceMissing(errors.PhaseClient, "IOPCGroupStateMgt")
	}
	if g.sync, err = com.Query[da.SyncIO](unk, &da.IID_IOPCSyncIO); err != nil {
		return nil, errors.InterfaceMissing(errors.PhaseClient, "IOPCSyncIO")
	}
	g.state2, _ = slot[da.GroupStateMgt2](unk, &da.IID_IOPCGroupStateMgt2)
	g.public, _ = slot[da.PublicGroupStateMgt](unk, &da.IID_IOPCPublicGroupStateMgt)
	g.sync2, _ = slot[da.SyncIO2](unk, &da.IID_IOPCSyncIO2)
	g.async, _ = slot[da.AsyncIO](unk, &da.IID_IOPCAsyncIO)
	g.async2, _ = slot[da.AsyncIO2](unk, &da.IID_IOPCAsyncIO2)
	g.async3, _ = slot[da.AsyncIO3](unk, &da.IID_IOPCAsyncIO3)
	g.deadband, _ = slot[da.ItemDeadbandMgt](unk, &da.IID_IOPCItemDeadbandMgt)
	g.sampling, _ = slot[da.ItemSamplingMgt](unk, &da.IID_IOPCItemSamplingMgt)
	g.points, _ = slot[com.ConnectionPointContainer](unk, &com.IID_IConnectionPointContainer)
	g.dataObject, _ = slot[da.DataObject](unk, &com.IID_IDataObject)

	// The group offers the highest version its interfaces cover, capped by
	// the server's.
	allowed := opc.NewVersionSet()
	for _, v := range s.versions.List() {
		if v <= s.version {
			allowed |= opc.NewVersionSet(v)
		}
	}
	if v, ok := negotiate(allowed, da.GroupCapabilities, g.Supports); ok {
		g.version = v
	} else {
		g.version = opc.V1
		Logger().Warn("group satisfies no DA version fully",
			zap.Stringer("server_version", s.version))
	}
	return g, nil
}

// Version returns the DA version whose required group interfaces are all
// present.
func (g *Group) Version() opc.Version { return g.version }

// Handle returns the server handle of the group.
func (g *Group) Handle() uint32 { return g.handle }

// RevisedUpdateRate returns the update rate the server granted.
func (g *Group) RevisedUpdateRate() uint32 { return g.revisedRate }

// Supports reports whether the slot of c is filled.
func (g *Group) Supports(c *da.Capability) bool {
	switch c {
	case da.CapItemMgt:
		return g.itemMgt != nil
	case da.CapGroupStateMgt:
		return g.state != nil
	case da.CapGroupStateMgt2:
		return g.state2 != nil
	case da.CapPublicGroupStateMgt:
		return g.public != nil
	case da.CapSyncIO:
		return g.sync != nil
	case da.CapSyncIO2:
		return g.sync2 != nil
	case da.CapAsyncIO:
		return g.async != nil
	case da.CapAsyncIO2:
		return g.async2 != nil
	case da.CapAsyncIO3:
		return g.async3 != nil
	case da.CapItemDeadbandMgt:
		return g.deadband != nil
	case da.CapItemSamplingMgt:
		return g.sampling != nil
	case da.CapGroupConnectionPoints:
		return g.points != nil
	case da.CapDataObject:
		return g.dataObject != nil
	}
	return false
}

// Remove deletes the group from its server.
func (g *Group) Remove(force bool) error {
	return g.srv.RemoveGroup(g.handle, force)
}

func exportDefs(defs []ItemDef) ([]da.ItemDef, error) {
	if len(defs) == 0 {
		return nil, errors.InvalidArgument(errors.PhaseClient, nil, "empty batch")
	}
	ids := make([]string, len(defs))
	paths := make([]string, len(defs))
	for i, d := range defs {
		ids[i], paths[i] = d.ItemID, d.AccessPath
	}
	idw, err := memory.NewLocalWStrings(ids)
	if err != nil {
		return nil, err
	}
	pathw, err := memory.NewLocalWStrings(paths)
	if err != nil {
		return nil, err
	}
	out := make([]da.ItemDef, len(defs))
	for i, d := range defs {
		out[i] = da.ItemDef{
			AccessPath:        pathw.Ptrs()[i],
			ItemID:            idw.Ptrs()[i],
			Active:            com.BoolOf(d.Active),
			ClientHandle:      d.ClientHandle,
			RequestedDataType: d.RequestedType,
		}
	}
	return out, nil
}

func (g *Group) takeResults(p *da.ItemResult, n int) []ItemResult {
	raw := memory.AdoptArray(g.alloc, p, uint32(n))
	out := make([]ItemResult, n)
	for i := range raw.Slice() {
		out[i] = importItemResult(&raw.Slice()[i])
	}
	da.FreeItemResults(g.alloc, raw.Slice())
	raw.Free()
	return out
}

// AddItems binds items to the group. Results and codes are aligned with
// defs; a failed position has a zero result.
func (g *Group) AddItems(defs []ItemDef) ([]ItemResult, []opc.HRESULT, error) {
	raw, err := exportDefs(defs)
	if err != nil {
		return nil, nil, err
	}
	var results *da.ItemResult
	var errs *opc.HRESULT
	if err := g.itemMgt.AddItems(raw, &results, &errs); err != nil {
		return nil, nil, err
	}
	return g.takeResults(results, len(defs)), take(g.alloc, errs, len(defs)), nil
}

// ValidateItems reports what AddItems would return without binding.
func (g *Group) ValidateItems(defs []ItemDef) ([]ItemResult, []opc.HRESULT, error) {
	raw, err := exportDefs(defs)
	if err != nil {
		return nil, nil, err
	}
	var results *da.ItemResult
	var errs *opc.HRESULT
	if err := g.itemMgt.ValidateItems(raw, com.BoolOf(false), &results, &errs); err != nil {
		return nil, nil, err
	}
	return g.takeResults(results, len(defs)), take(g.alloc, errs, len(defs)), nil
}

// RemoveItems unbinds items by server handle.
func (g *Group) RemoveItems(handles []uint32) ([]opc.HRESULT, error) {
	var errs *opc.HRESULT
	if err := g.itemMgt.RemoveItems(handles, &errs); err != nil {
		return nil, err
	}
	return take(g.alloc, errs, len(handles)), nil
}

// SetActiveState activates or deactivates items.
func (g *Group) SetActiveState(handles []uint32, active bool) ([]opc.HRESULT, error) {
	var errs *opc.HRESULT
	if err := g.itemMgt.SetActiveState(handles, com.BoolOf(active), &errs); err != nil {
		return nil, err
	}
	return take(g.alloc, errs, len(handles)), nil
}

// SetClientHandles replaces the client handles of items.
func (g *Group) SetClientHandles(handles, clientHandles []uint32) ([]opc.HRESULT, error) {
	var errs *opc.HRESULT
	if err := g.itemMgt.SetClientHandles(handles, clientHandles, &errs); err != nil {
		return nil, err
	}
	return take(g.alloc, errs, len(handles)), nil
}

// SetDatatypes changes the requested data types of items.
func (g *Group) SetDatatypes(handles []uint32, types []com.VT) ([]opc.HRESULT, error) {
	var errs *opc.HRESULT
	if err := g.itemMgt.SetDatatypes(handles, types, &errs); err != nil {
		return nil, err
	}
	return take(g.alloc, errs, len(handles)), nil
}

// Items returns the attributes of every bound item.
func (g *Group) Items() ([]da.Attributes, error) {
	var unk com.Unknown
	if err := g.itemMgt.CreateEnumerator(&da.IID_IEnumOPCItemAttributes, &unk); err != nil {
		return nil, err
	}
	// An empty group may report no enumerator.
	if unk == nil {
		return nil, nil
	}
	e, ok := unk.(da.EnumItemAttributes)
	if !ok {
		return nil, errors.InterfaceMissing(errors.PhaseClient, "IEnumOPCItemAttributes")
	}
	var out []da.Attributes
	for {
		var p *da.ItemAttributes
		var n uint32
		hr := e.Next(chunkSize, &p, &n)
		if hr.Failed() {
			return nil, errors.FromHRESULT(errors.PhaseEnumerate, hr, "IEnumOPCItemAttributes.Next")
		}
		raw := memory.AdoptArray(g.alloc, p, n)
		for i := range raw.Slice() {
			out = append(out, raw.Slice()[i].Import())
		}
		da.FreeItemAttributes(g.alloc, raw.Slice())
		raw.Free()
		if hr != opc.S_OK {
			return out, nil
		}
	}
}

// GetState returns the group state.
func (g *Group) GetState() (GroupState, error) {
	var st GroupState
	var active com.BOOL
	var name *uint16
	err := g.state.GetState(&st.UpdateRate, &active, &name, &st.TimeBias, &st.PercentDeadband,
		&st.LocaleID, &st.ClientHandle, &st.ServerHandle)
	if err != nil {
		return GroupState{}, err
	}
	st.Active = active.Bool()
	st.Name = takeString(g.alloc, name)
	return st, nil
}

// SetState changes the settings present in u and returns the revised
// update rate.
func (g *Group) SetState(u GroupStateUpdate) (uint32, error) {
	var active *com.BOOL
	if u.Active != nil {
		b := com.BoolOf(*u.Active)
		active = &b
	}
	var revised uint32
	err := g.state.SetState(u.UpdateRate, &revised, active, u.TimeBias, u.PercentDeadband, u.LocaleID, u.ClientHandle)
	if err != nil {
		return 0, err
	}
	g.revisedRate = revised
	return revised, nil
}

// SetName renames the group.
func (g *Group) SetName(name string) error {
	p, err := wstring(name)
	if err != nil {
		return err
	}
	return g.state.SetName(p)
}

// Clone creates an inactive copy of the group with the same items. An
// empty name lets the server choose one.
func (g *Group) Clone(name string) (*Group, error) {
	p, err := optWString(name)
	if err != nil {
		return nil, err
	}
	var unk com.Unknown
	if err := g.state.CloneGroup(p, &da.IID_IOPCItemMgt, &unk); err != nil {
		return nil, err
	}
	return g.srv.adoptGroup(unk)
}

// SetKeepAlive sets the keep-alive period in milliseconds and returns the
// revised period.
func (g *Group) SetKeepAlive(ms uint32) (uint32, error) {
	if g.state2 == nil {
		return 0, missing("IOPCGroupStateMgt2")
	}
	var revised uint32
	err := g.state2.SetKeepAlive(ms, &revised)
	return revised, err
}

// KeepAlive returns the keep-alive period in milliseconds.
func (g *Group) KeepAlive() (uint32, error) {
	if g.state2 == nil {
		return 0, missing("IOPCGroupStateMgt2")
	}
	var ms uint32
	err := g.state2.GetKeepAlive(&ms)
	return ms, err
}

// IsPublic reports whether the group is public.
func (g *Group) IsPublic() (bool, error) {
	if g.public == nil {
		return false, missing("IOPCPublicGroupStateMgt")
	}
	var b com.BOOL
	err := g.public.GetState(&b)
	return b.Bool(), err
}

// MoveToPublic converts a private group to a public one.
func (g *Group) MoveToPublic() error {
	if g.public == nil {
		return missing("IOPCPublicGroupStateMgt")
	}
	return g.public.MoveToPublic()
}

// Read reads items synchronously from the cache or the device. A failed
// position has a zero state.
func (g *Group) Read(source da.DataSource, handles []uint32) ([]ItemState, []opc.HRESULT, error) {
	var states *da.ItemState
	var errs *opc.HRESULT
	if err := g.sync.Read(source, handles, &states, &errs); err != nil {
		return nil, nil, err
	}
	n := len(handles)
	codes := take(g.alloc, errs, n)
	raw := memory.AdoptArray(g.alloc, states, uint32(n))
	out := make([]ItemState, n)
	for i := range raw.Slice() {
		st := &raw.Slice()[i]
		if codes[i].Failed() {
			continue
		}
		v, err := com.FromVARIANT(&st.DataValue)
		if err != nil {
			codes[i] = errors.HResult(err)
			continue
		}
		out[i] = ItemState{
			ClientHandle: st.ClientHandle,
			Value:        v,
			Quality:      st.Quality,
			Timestamp:    st.Timestamp.Time(),
		}
	}
	da.FreeItemStates(g.alloc, raw.Slice())
	raw.Free()
	return out, codes, nil
}

// Write writes values synchronously.
func (g *Group) Write(handles []uint32, values []com.Variant) ([]opc.HRESULT, error) {
	raw, err := exportVariants(g.alloc, values)
	if err != nil {
		return nil, err
	}
	defer com.ClearVARIANTs(g.alloc, raw)
	var errs *opc.HRESULT
	if err := g.sync.Write(handles, raw, &errs); err != nil {
		return nil, err
	}
	return take(g.alloc, errs, len(handles)), nil
}

// ReadMaxAge reads items, going to the device for any whose cached value
// is older than its max age in milliseconds. A nil maxAge accepts any
// cached value.
func (g *Group) ReadMaxAge(handles []uint32, maxAge []uint32) ([]ItemValue, []opc.HRESULT, error) {
	if g.sync2 == nil {
		return nil, nil, missing("IOPCSyncIO2")
	}
	ages := maxAges(maxAge, len(handles))
	var values *com.VARIANT
	var qualities *uint16
	var stamps *com.FILETIME
	var errs *opc.HRESULT
	if err := g.sync2.ReadMaxAge(handles, ages, &values, &qualities, &stamps, &errs); err != nil {
		return nil, nil, err
	}
	out, codes := takeValues(g.alloc, len(handles), values, qualities, stamps, errs)
	return out, codes, nil
}

// WriteVQT writes values with optional quality and timestamp.
func (g *Group) WriteVQT(handles []uint32, vqts []VQT) ([]opc.HRESULT, error) {
	if g.sync2 == nil {
		return nil, missing("IOPCSyncIO2")
	}
	raw, err := exportVQTs(g.alloc, vqts)
	if err != nil {
		return nil, err
	}
	defer clearVQTs(g.alloc, raw)
	var errs *opc.HRESULT
	if err := g.sync2.WriteVQT(handles, raw, &errs); err != nil {
		return nil, err
	}
	return take(g.alloc, errs, len(handles)), nil
}

func maxAges(maxAge []uint32, n int) []uint32 {
	if maxAge != nil {
		return maxAge
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = math.MaxUint32
	}
	return out
}

// Subscribe advises h on the group's IOPCDataCallback connection point and
// returns the cookie for Unsubscribe. Async completions and data changes
// are delivered to h.
func (g *Group) Subscribe(h DataHandler) (uint32, error) {
	if g.points == nil {
		return 0, missing("IConnectionPointContainer")
	}
	cp, err := g.points.FindConnectionPoint(&da.IID_IOPCDataCallback)
	if err != nil {
		return 0, err
	}
	var cookie uint32
	if err := cp.Advise(&dataSink{h: h}, &cookie); err != nil {
		return 0, err
	}
	return cookie, nil
}

// Unsubscribe removes a data callback subscription.
func (g *Group) Unsubscribe(cookie uint32) error {
	if g.points == nil {
		return missing("IConnectionPointContainer")
	}
	cp, err := g.points.FindConnectionPoint(&da.IID_IOPCDataCallback)
	if err != nil {
		return err
	}
	return cp.Unadvise(cookie)
}

// AsyncRead starts a device read. The result arrives as OnReadComplete
// with txn; the returned cancel id is for Cancel.
func (g *Group) AsyncRead(handles []uint32, txn uint32) (uint32, []opc.HRESULT, error) {
	if g.async2 == nil {
		return 0, nil, missing("IOPCAsyncIO2")
	}
	var cancelID uint32
	var errs *opc.HRESULT
	if err := g.async2.Read(handles, txn, &cancelID, &errs); err != nil {
		return 0, nil, err
	}
	return cancelID, take(g.alloc, errs, len(handles)), nil
}

// AsyncWrite starts a write. The result arrives as OnWriteComplete.
func (g *Group) AsyncWrite(handles []uint32, values []com.Variant, txn uint32) (uint32, []opc.HRESULT, error) {
	if g.async2 == nil {
		return 0, nil, missing("IOPCAsyncIO2")
	}
	raw, err := exportVariants(g.alloc, values)
	if err != nil {
		return 0, nil, err
	}
	defer com.ClearVARIANTs(g.alloc, raw)
	var cancelID uint32
	var errs *opc.HRESULT
	if err := g.async2.Write(handles, raw, txn, &cancelID, &errs); err != nil {
		return 0, nil, err
	}
	return cancelID, take(g.alloc, errs, len(handles)), nil
}

// Refresh asks for every active item to be delivered as OnDataChange.
func (g *Group) Refresh(source da.DataSource, txn uint32) (uint32, error) {
	if g.async2 == nil {
		return 0, missing("IOPCAsyncIO2")
	}
	var cancelID uint32
	err := g.async2.Refresh2(source, txn, &cancelID)
	return cancelID, err
}

// Cancel cancels an outstanding async operation.
func (g *Group) Cancel(cancelID uint32) error {
	if g.async2 == nil {
		return missing("IOPCAsyncIO2")
	}
	return g.async2.Cancel2(cancelID)
}

// SetEnable turns OnDataChange delivery on or off.
func (g *Group) SetEnable(enable bool) error {
	if g.async2 == nil {
		return missing("IOPCAsyncIO2")
	}
	return g.async2.SetEnable(com.BoolOf(enable))
}

// Enabled reports whether OnDataChange delivery is on.
func (g *Group) Enabled() (bool, error) {
	if g.async2 == nil {
		return false, missing("IOPCAsyncIO2")
	}
	var b com.BOOL
	err := g.async2.GetEnable(&b)
	return b.Bool(), err
}

// AsyncReadMaxAge starts a read honouring per-item max ages.
func (g *Group) AsyncReadMaxAge(handles []uint32, maxAge []uint32, txn uint32) (uint32, []opc.HRESULT, error) {
	if g.async3 == nil {
		return 0, nil, missing("IOPCAsyncIO3")
	}
	var cancelID uint32
	var errs *opc.HRESULT
	if err := g.async3.ReadMaxAge(handles, maxAges(maxAge, len(handles)), txn, &cancelID, &errs); err != nil {
		return 0, nil, err
	}
	return cancelID, take(g.alloc, errs, len(handles)), nil
}

// AsyncWriteVQT starts a write with optional quality and timestamp.
func (g *Group) AsyncWriteVQT(handles []uint32, vqts []VQT, txn uint32) (uint32, []opc.HRESULT, error) {
	if g.async3 == nil {
		return 0, nil, missing("IOPCAsyncIO3")
	}
	raw, err := exportVQTs(g.alloc, vqts)
	if err != nil {
		return 0, nil, err
	}
	defer clearVQTs(g.alloc, raw)
	var cancelID uint32
	var errs *opc.HRESULT
	if err := g.async3.WriteVQT(handles, raw, txn, &cancelID, &errs); err != nil {
		return 0, nil, err
	}
	return cancelID, take(g.alloc, errs, len(handles)), nil
}

// RefreshMaxAge refreshes every active item, reading from the device when
// the cache is older than maxAge milliseconds.
func (g *Group) RefreshMaxAge(maxAge, txn uint32) (uint32, error) {
	if g.async3 == nil {
		return 0, missing("IOPCAsyncIO3")
	}
	var cancelID uint32
	err := g.async3.RefreshMaxAge(maxAge, txn, &cancelID)
	return cancelID, err
}

// SetItemDeadband sets per-item percent deadbands.
func (g *Group) SetItemDeadband(handles []uint32, deadbands []float32) ([]opc.HRESULT, error) {
	if g.deadband == nil {
		return nil, missing("IOPCItemDeadbandMgt")
	}
	var errs *opc.HRESULT
	if err := g.deadband.SetItemDeadband(handles, deadbands, &errs); err != nil {
		return nil, err
	}
	return take(g.alloc, errs, len(handles)), nil
}

// ItemDeadband returns per-item percent deadbands.
func (g *Group) ItemDeadband(handles []uint32) ([]float32, []opc.HRESULT, error) {
	if g.deadband == nil {
		return nil, nil, missing("IOPCItemDeadbandMgt")
	}
	var bands *float32
	var errs *opc.HRESULT
	if err := g.deadband.GetItemDeadband(handles, &bands, &errs); err != nil {
		return nil, nil, err
	}
	return take(g.alloc, bands, len(handles)), take(g.alloc, errs, len(handles)), nil
}

// ClearItemDeadband reverts items to the group deadband.
func (g *Group) ClearItemDeadband(handles []uint32) ([]opc.HRESULT, error) {
	if g.deadband == nil {
		return nil, missing("IOPCItemDeadbandMgt")
	}
	var errs *opc.HRESULT
	if err := g.deadband.ClearItemDeadband(handles, &errs); err != nil {
		return nil, err
	}
	return take(g.alloc, errs, len(handles)), nil
}

// SetItemSamplingRate sets per-item sampling rates and returns the
// revised rates.
func (g *Group) SetItemSamplingRate(handles, rates []uint32) ([]uint32, []opc.HRESULT, error) {
	if g.sampling == nil {
		return nil, nil, missing("IOPCItemSamplingMgt")
	}
	var revised *uint32
	var errs *opc.HRESULT
	if err := g.sampling.SetItemSamplingRate(handles, rates, &revised, &errs); err != nil {
		return nil, nil, err
	}
	return take(g.alloc, revised, len(handles)), take(g.alloc, errs, len(handles)), nil
}

// ItemSamplingRate returns per-item sampling rates.
func (g *Group) ItemSamplingRate(handles []uint32) ([]uint32, []opc.HRESULT, error) {
	if g.sampling == nil {
		return nil, nil, missing("IOPCItemSamplingMgt")
	}
	var rates *uint32
	var errs *opc.HRESULT
	if err := g.sampling.GetItemSamplingRate(handles, &rates, &errs); err != nil {
		return nil, nil, err
	}
	return take(g.alloc, rates, len(handles)), take(g.alloc, errs, len(handles)), nil
}

// ClearItemSamplingRate reverts items to the group update rate.
func (g *Group) ClearItemSamplingRate(handles []uint32) ([]opc.HRESULT, error) {
	if g.sampling == nil {
		return nil, missing("IOPCItemSamplingMgt")
	}
	var errs *opc.HRESULT
	if err := g.sampling.ClearItemSamplingRate(handles, &errs); err != nil {
		return nil, err
	}
	return take(g.alloc, errs, len(handles)), nil
}

// SetItemBufferEnable turns per-item value buffering on or off.
func (g *Group) SetItemBufferEnable(handles []uint32, enable []bool) ([]opc.HRESULT, error) {
	if g.sampling == nil {
		return nil, missing("IOPCItemSamplingMgt")
	}
	flags := make([]com.BOOL, len(enable))
	for i, b := range enable {
		flags[i] = com.BoolOf(b)
	}
	var errs *opc.HRESULT
	if err := g.sampling.SetItemBufferEnable(handles, flags, &errs); err != nil {
		return nil, err
	}
	return take(g.alloc, errs, len(handles)), nil
}

// ItemBufferEnable reports per-item buffering.
func (g *Group) ItemBufferEnable(handles []uint32) ([]bool, []opc.HRESULT, error) {
	if g.sampling == nil {
		return nil, nil, missing("IOPCItemSamplingMgt")
	}
	var flags *com.BOOL
	var errs *opc.HRESULT
	if err := g.sampling.GetItemBufferEnable(handles, &flags, &errs); err != nil {
		return nil, nil, err
	}
	raw := take(g.alloc, flags, len(handles))
	out := make([]bool, len(raw))
	for i, b := range raw {
		out[i] = b.Bool()
	}
	return out, take(g.alloc, errs, len(handles)), nil
}

// LegacyRead starts a DA 1.0 async read on the data object connection.
func (g *Group) LegacyRead(connection uint32, source da.DataSource, handles []uint32) (uint32, []opc.HRESULT, error) {
	if g.async == nil {
		return 0, nil, missing("IOPCAsyncIO")
	}
	var txn uint32
	var errs *opc.HRESULT
	if err := g.async.Read(connection, source, handles, &txn, &errs); err != nil {
		return 0, nil, err
	}
	return txn, take(g.alloc, errs, len(handles)), nil
}

// LegacyWrite starts a DA 1.0 async write.
func (g *Group) LegacyWrite(connection uint32, handles []uint32, values []com.Variant) (uint32, []opc.HRESULT, error) {
	if g.async == nil {
		return 0, nil, missing("IOPCAsyncIO")
	}
	raw, err := exportVariants(g.alloc, values)
	if err != nil {
		return 0, nil, err
	}
	defer com.ClearVARIANTs(g.alloc, raw)
	var txn uint32
	var errs *opc.HRESULT
	if err := g.async.Write(connection, handles, raw, &txn, &errs); err != nil {
		return 0, nil, err
	}
	return txn, take(g.alloc, errs, len(handles)), nil
}

// LegacyRefresh starts a DA 1.0 refresh.
func (g *Group) LegacyRefresh(connection uint32, source da.DataSource) (uint32, error) {
	if g.async == nil {
		return 0, missing("IOPCAsyncIO")
	}
	var txn uint32
	err := g.async.Refresh(connection, source, &txn)
	return txn, err
}

// LegacyCancel cancels a DA 1.0 transaction.
func (g *Group) LegacyCancel(txn uint32) error {
	if g.async == nil {
		return missing("IOPCAsyncIO")
	}
	return g.async.Cancel(txn)
}

// DAdvise connects a DA 1.0 advise sink for format and returns the
// connection to pass to the legacy calls.
func (g *Group) DAdvise(format *da.FormatEtc, advf uint32, sink com.Unknown) (uint32, error) {
	if g.dataObject == nil {
		return 0, missing("IDataObject")
	}
	var conn uint32
	err := g.dataObject.DAdvise(format, advf, sink, &conn)
	return conn, err
}

// DUnadvise removes a DA 1.0 advise connection.
func (g *Group) DUnadvise(connection uint32) error {
	if g.dataObject == nil {
		return missing("IDataObject")
	}
	return g.dataObject.DUnadvise(connection)
}
