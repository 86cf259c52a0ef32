package server

import (
	"time"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/addrspace"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/memory"
)

// property describes one item property the server can report.
type property struct {
	id   uint32
	desc string
	vt   com.VT
}

var (
	propCanonicalType = property{da.PropCanonicalType, "Item Canonical DataType", com.VT_I2}
	propValue         = property{da.PropValue, "Item Value", com.VT_EMPTY}
	propQuality       = property{da.PropQuality, "Item Quality", com.VT_I2}
	propTimestamp     = property{da.PropTimestamp, "Item Timestamp", com.VT_BSTR}
	propAccessRights  = property{da.PropAccessRights, "Item Access Rights", com.VT_I4}
	propScanRate      = property{da.PropScanRate, "Server Scan Rate", com.VT_R4}
	propEUType        = property{da.PropEUType, "Item EU Type", com.VT_I4}
	propDescription   = property{da.PropDescription, "Item Description", com.VT_BSTR}
	propHighEU        = property{da.PropHighEU, "High EU", com.VT_R8}
	propLowEU         = property{da.PropLowEU, "Low EU", com.VT_R8}
)

// properties lists the properties of an item node: the six standard
// ones, EU type and range for analog items, and the description when set.
func properties(n *addrspace.Node) []property {
	props := []property{
		propCanonicalType,
		propValue,
		propQuality,
		propTimestamp,
		propAccessRights,
		propScanRate,
	}
	if n.EUType() == da.EUAnalog {
		props = append(props, propEUType)
	}
	if n.Description() != "" {
		props = append(props, propDescription)
	}
	if n.EUType() == da.EUAnalog {
		props = append(props, propHighEU, propLowEU)
	}
	for i := range props {
		if props[i].id == da.PropValue {
			props[i].vt = n.CanonicalType()
		}
	}
	return props
}

// findProperty returns the property id of n.
func findProperty(n *addrspace.Node, id uint32) (property, bool) {
	for _, p := range properties(n) {
		if p.id == id {
			return p, true
		}
	}
	return property{}, false
}

// propertyValue reads property id of n. Timestamps are reported as
// RFC 3339 strings.
func (s *Server) propertyValue(n *addrspace.Node, id uint32) (com.Variant, opc.HRESULT) {
	if _, ok := findProperty(n, id); !ok {
		return com.Variant{}, opc.OPC_E_INVALID_PID
	}
	switch id {
	case da.PropCanonicalType:
		return com.NewInt16(int16(n.CanonicalType())), opc.S_OK
	case da.PropAccessRights:
		return com.NewInt32(int32(n.AccessRights())), opc.S_OK
	case da.PropScanRate:
		return com.NewFloat32(float32(s.opts.MinUpdateRate)), opc.S_OK
	case da.PropEUType:
		return com.NewInt32(int32(n.EUType())), opc.S_OK
	case da.PropDescription:
		return com.NewString(n.Description()), opc.S_OK
	case da.PropHighEU, da.PropLowEU:
		lo, hi, _ := n.EURange()
		if id == da.PropHighEU {
			return com.NewFloat64(hi), opc.S_OK
		}
		return com.NewFloat64(lo), opc.S_OK
	}

	smp, err := n.Read()
	if err != nil {
		return com.Variant{}, itemCode(err)
	}
	switch id {
	case da.PropValue:
		return smp.Value, opc.S_OK
	case da.PropQuality:
		return com.NewInt16(int16(smp.Quality)), opc.S_OK
	default:
		if smp.Timestamp.IsZero() {
			return com.NewString(""), opc.S_OK
		}
		return com.NewString(smp.Timestamp.UTC().Format(time.RFC3339Nano)), opc.S_OK
	}
}

func errUnknownItem(id string) error {
	return errors.New(errors.PhaseBrowse, errors.KindNotFound).
		Code(opc.OPC_E_UNKNOWNITEMID).
		Value(id).
		Detail("item not found").
		Build()
}

// item resolves an item identifier to a leaf node.
func (s *Server) item(itemID *uint16) (*addrspace.Node, error) {
	if itemID == nil {
		return nil, errors.NilPointer(errors.PhaseBrowse, "szItemID")
	}
	id := memory.WStringToString(itemID)
	n, ok := s.space.Lookup(id)
	if !ok || !n.IsItem() {
		return nil, errUnknownItem(id)
	}
	return n, nil
}

// QueryAvailableProperties implements IOPCItemProperties.
func (s *Server) QueryAvailableProperties(itemID *uint16, count *uint32, propertyIDs **uint32, descriptions ***uint16, dataTypes **com.VT) (err error) {
	defer s.tel.start("IOPCItemProperties.QueryAvailableProperties").end(&err)
	if count == nil {
		return errors.NilPointer(errors.PhaseServer, "pdwCount")
	}
	*count = 0
	n, err := s.item(itemID)
	if err != nil {
		return err
	}
	props := properties(n)

	o := newOutputs(s.alloc)
	ids, err := array(o, len(props), propertyIDs, "ppPropertyIDs")
	if err != nil {
		return o.finish(err)
	}
	descs, err := array(o, len(props), descriptions, "ppDescriptions")
	if err != nil {
		return o.finish(err)
	}
	vts, err := array(o, len(props), dataTypes, "ppvtDataTypes")
	if err != nil {
		return o.finish(err)
	}
	for i, p := range props {
		ids[i], vts[i] = p.id, p.vt
		if descs[i], err = o.wstring(p.desc); err != nil {
			return o.finish(err)
		}
	}
	*count = uint32(len(props))
	return o.finish(nil)
}

// GetItemProperties implements IOPCItemProperties.
func (s *Server) GetItemProperties(itemID *uint16, propertyIDs []uint32, values **com.VARIANT, errs **opc.HRESULT) (err error) {
	defer s.tel.start("IOPCItemProperties.GetItemProperties").end(&err)
	if err := checkCount(len(propertyIDs)); err != nil {
		return err
	}
	n, err := s.item(itemID)
	if err != nil {
		return err
	}
	o := newOutputs(s.alloc)
	vals, err := array(o, len(propertyIDs), values, "ppvData")
	if err != nil {
		return o.finish(err)
	}
	codes := make([]opc.HRESULT, len(propertyIDs))
	for i, id := range propertyIDs {
		v, code := s.propertyValue(n, id)
		codes[i] = code
		if code.Failed() {
			continue
		}
		if err := o.variant(&vals[i], v); err != nil {
			return o.finish(err)
		}
	}
	return o.finish(o.codes(codes, errs))
}

// LookupItemIDs implements IOPCItemProperties. No property of this server
// is backed by an item of its own, so every position reports
// OPC_E_INVALID_PID.
func (s *Server) LookupItemIDs(itemID *uint16, propertyIDs []uint32, newItemIDs ***uint16, errs **opc.HRESULT) (err error) {
	defer s.tel.start("IOPCItemProperties.LookupItemIDs").end(&err)
	if err := checkCount(len(propertyIDs)); err != nil {
		return err
	}
	if _, err := s.item(itemID); err != nil {
		return err
	}
	o := newOutputs(s.alloc)
	if _, err := array(o, len(propertyIDs), newItemIDs, "ppszNewItemIDs"); err != nil {
		return o.finish(err)
	}
	codes := make([]opc.HRESULT, len(propertyIDs))
	for i := range codes {
		codes[i] = opc.OPC_E_INVALID_PID
	}
	return o.finish(o.codes(codes, errs))
}

// propertyList builds the property record of one node for IOPCBrowse.
// With no ids and all unset the list is empty.
func (s *Server) propertyList(o *outputs, n *addrspace.Node, all, withValues bool, ids []uint32) (da.ItemProperties, error) {
	var rec da.ItemProperties
	var props []property
	var codes []opc.HRESULT
	switch {
	case len(ids) > 0:
		props = make([]property, len(ids))
		codes = make([]opc.HRESULT, len(ids))
		for i, id := range ids {
			p, ok := findProperty(n, id)
			if !ok || !n.IsItem() {
				p, codes[i] = property{id: id}, opc.OPC_E_INVALID_PID
			}
			props[i] = p
		}
	case all && n.IsItem():
		props = properties(n)
		codes = make([]opc.HRESULT, len(props))
	default:
		return rec, nil
	}

	list, err := array(o, len(props), &rec.Properties, "pItemProperties")
	if err != nil {
		return rec, err
	}
	rec.NumProperties = uint32(len(props))
	for i, p := range props {
		list[i].PropertyID = p.id
		list[i].DataType = p.vt
		list[i].Error = codes[i]
		if codes[i].Failed() {
			continue
		}
		if list[i].Description, err = o.wstring(p.desc); err != nil {
			return rec, err
		}
		if !withValues {
			continue
		}
		v, code := s.propertyValue(n, p.id)
		list[i].Error, codes[i] = code, code
		if code.Succeeded() {
			if err := o.variant(&list[i].Value, v); err != nil {
				return rec, err
			}
		}
	}
	rec.Error = status(codes)
	return rec, nil
}

// GetProperties implements IOPCBrowse.GetProperties. Unknown items get a
// record whose error is OPC_E_UNKNOWNITEMID.
func (s *Server) GetProperties(itemIDs []*uint16, returnValues com.BOOL, propertyIDs []uint32, results **da.ItemProperties) (err error) {
	defer s.tel.start("IOPCBrowse.GetProperties").end(&err)
	if err := checkCount(len(itemIDs)); err != nil {
		return err
	}
	o := newOutputs(s.alloc)
	recs, err := array(o, len(itemIDs), results, "ppItemProperties")
	if err != nil {
		return o.finish(err)
	}
	for i, id := range itemIDs {
		n, ok := s.space.Lookup(memory.WStringToString(id))
		if !ok || !n.IsItem() {
			recs[i].Error = opc.OPC_E_UNKNOWNITEMID
			continue
		}
		rec, err := s.propertyList(o, n, len(propertyIDs) == 0, returnValues.Bool(), propertyIDs)
		if err != nil {
			return o.finish(err)
		}
		recs[i] = rec
	}
	return o.finish(nil)
}
