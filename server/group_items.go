package server

import (
	"go.uber.org/zap"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/enum"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/memory"
	"github.com/wippyai/opc-classic/resource"
)

// bind inserts it under a fresh handle. The caller holds g.mu or owns g
// exclusively.
func (g *Group) bind(it *item) error {
	h, err := g.items.Insert(it.itemID, it)
	if err != nil {
		return errors.Wrap(errors.PhaseServer, errors.KindForeign, err, "bind item")
	}
	it.handle = uint32(h)
	return nil
}

// resolve finds the node for def. It returns the item already bound to
// that node when there is one.
func (g *Group) resolve(def *da.ItemDef) (it *item, existing bool, code opc.HRESULT) {
	id := memory.WStringToString(def.ItemID)
	if _, bound, ok := g.items.Lookup(id); ok {
		return bound, true, opc.S_OK
	}
	node, ok := g.server.space.Lookup(id)
	if !ok || !node.IsItem() {
		return nil, false, opc.E_INVALIDARG
	}
	if def.RequestedDataType != com.VT_EMPTY && !com.Supported(def.RequestedDataType) {
		return nil, false, opc.OPC_E_BADTYPE
	}
	return &item{
		node:         node,
		itemID:       id,
		accessPath:   memory.WStringToString(def.AccessPath),
		clientHandle: def.ClientHandle,
		requested:    def.RequestedDataType,
		active:       def.Active.Bool(),
	}, false, opc.S_OK
}

func (g *Group) addItems(defs []da.ItemDef, insert bool, results **da.ItemResult, errs **opc.HRESULT) error {
	if err := checkCount(len(defs)); err != nil {
		return err
	}
	o := newOutputs(g.alloc)
	res, err := array(o, len(defs), results, "ppAddResults")
	if err != nil {
		return o.finish(err)
	}
	codes, err := array(o, len(defs), errs, "ppErrors")
	if err != nil {
		return o.finish(err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkLive(); err != nil {
		return o.finish(err)
	}

	added := 0
	for i := range defs {
		it, existing, code := g.resolve(&defs[i])
		codes[i] = code
		if code.Failed() {
			continue
		}
		if insert && !existing {
			if err := g.bind(it); err != nil {
				codes[i] = errors.HResult(err)
				continue
			}
			added++
		}
		res[i] = da.ItemResult{
			ServerHandle:      it.handle,
			CanonicalDataType: it.node.CanonicalType(),
			AccessRights:      it.node.AccessRights(),
		}
	}
	if insert {
		Logger().Debug("items added",
			zap.Uint32("group", g.handle),
			zap.Int("requested", len(defs)),
			zap.Int("added", added),
			zap.Stringer("status", status(codes)))
	}
	if added > 0 && g.st.active {
		g.kick()
	}
	return o.finish(nil)
}

// AddItems implements IOPCItemMgt.AddItems. Unknown item identifiers and
// branches produce E_INVALIDARG at their position; an item already in
// the group returns its existing binding.
func (g *Group) AddItems(defs []da.ItemDef, results **da.ItemResult, errs **opc.HRESULT) (err error) {
	defer g.tel.start("IOPCItemMgt.AddItems").end(&err)
	return g.addItems(defs, true, results, errs)
}

// ValidateItems implements IOPCItemMgt.ValidateItems. It reports what
// AddItems would return without changing the group; server handles of
// items not yet bound are zero.
func (g *Group) ValidateItems(defs []da.ItemDef, blobUpdate com.BOOL, results **da.ItemResult, errs **opc.HRESULT) (err error) {
	defer g.tel.start("IOPCItemMgt.ValidateItems").end(&err)
	return g.addItems(defs, false, results, errs)
}

// batch runs fn for every handle under the group lock and writes one
// status code per position. Unknown handles yield E_INVALIDARG.
func (g *Group) batch(handles []uint32, errs **opc.HRESULT, fn func(i int, it *item) opc.HRESULT) error {
	if err := checkCount(len(handles)); err != nil {
		return err
	}
	o := newOutputs(g.alloc)
	return o.finish(g.eachItem(o, handles, errs, fn))
}

// eachItem is batch for calls that allocate further outputs through o.
// The caller finishes o.
func (g *Group) eachItem(o *outputs, handles []uint32, errs **opc.HRESULT, fn func(i int, it *item) opc.HRESULT) error {
	codes, err := array(o, len(handles), errs, "ppErrors")
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkLive(); err != nil {
		return err
	}
	for i, h := range handles {
		it, ok := g.items.Get(resource.Handle(h))
		if !ok {
			codes[i] = opc.E_INVALIDARG
			continue
		}
		codes[i] = fn(i, it)
	}
	return nil
}

// RemoveItems implements IOPCItemMgt.RemoveItems. Removed handles are
// never issued again.
func (g *Group) RemoveItems(serverHandles []uint32, errs **opc.HRESULT) (err error) {
	defer g.tel.start("IOPCItemMgt.RemoveItems").end(&err)
	return g.batch(serverHandles, errs, func(_ int, it *item) opc.HRESULT {
		g.items.Remove(resource.Handle(it.handle))
		return opc.S_OK
	})
}

// SetActiveState implements IOPCItemMgt.SetActiveState. Items that become
// active are sent on the next update.
func (g *Group) SetActiveState(serverHandles []uint32, active com.BOOL, errs **opc.HRESULT) (err error) {
	defer g.tel.start("IOPCItemMgt.SetActiveState").end(&err)
	on := active.Bool()
	err = g.batch(serverHandles, errs, func(_ int, it *item) opc.HRESULT {
		if on && !it.active {
			it.sent = false
		}
		it.active = on
		return opc.S_OK
	})
	if err == nil && on {
		g.kick()
	}
	return err
}

// SetClientHandles implements IOPCItemMgt.SetClientHandles.
func (g *Group) SetClientHandles(serverHandles []uint32, clientHandles []uint32, errs **opc.HRESULT) (err error) {
	defer g.tel.start("IOPCItemMgt.SetClientHandles").end(&err)
	if err := checkCount(len(serverHandles), len(clientHandles)); err != nil {
		return err
	}
	return g.batch(serverHandles, errs, func(i int, it *item) opc.HRESULT {
		it.clientHandle = clientHandles[i]
		return opc.S_OK
	})
}

// SetDatatypes implements IOPCItemMgt.SetDatatypes. Requested types are
// fixed when an item is added, so every position fails with E_INVALIDARG.
func (g *Group) SetDatatypes(serverHandles []uint32, requestedTypes []com.VT, errs **opc.HRESULT) (err error) {
	defer g.tel.start("IOPCItemMgt.SetDatatypes").end(&err)
	if err := checkCount(len(serverHandles), len(requestedTypes)); err != nil {
		return err
	}
	return g.batch(serverHandles, errs, func(int, *item) opc.HRESULT {
		return opc.E_INVALIDARG
	})
}

// CreateEnumerator implements IOPCItemMgt.CreateEnumerator. The enumerator
// works on a snapshot of the items taken now.
func (g *Group) CreateEnumerator(riid *com.GUID, unk *com.Unknown) (err error) {
	defer g.tel.start("IOPCItemMgt.CreateEnumerator").end(&err)
	if riid == nil || unk == nil {
		return errors.NilPointer(errors.PhaseServer, "CreateEnumerator")
	}
	*unk = nil
	if *riid != da.IID_IEnumOPCItemAttributes && *riid != com.IID_IUnknown {
		return errors.InterfaceMissing(errors.PhaseServer, com.InterfaceName(riid))
	}

	g.mu.Lock()
	items := g.items.Values()
	snap := make([]enum.AttributeSource, len(items))
	for i, it := range items {
		snap[i] = attributeSnapshot(it.attributes())
	}
	g.mu.Unlock()

	*unk = enum.NewItemAttributes(g.alloc, snap)
	return nil
}
