package client

import (
	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/memory"
)

// QueryOrganization reports whether the address space is flat or
// hierarchical.
func (s *Server) QueryOrganization() (da.NamespaceType, error) {
	if s.browseSAS == nil {
		return 0, missing("IOPCBrowseServerAddressSpace")
	}
	var ns da.NamespaceType
	err := s.browseSAS.QueryOrganization(&ns)
	return ns, err
}

// ChangeBrowsePosition moves the browse position up, down into the
// branch name, or to the fully qualified branch name.
func (s *Server) ChangeBrowsePosition(dir da.BrowseDirection, name string) error {
	if s.browseSAS == nil {
		return missing("IOPCBrowseServerAddressSpace")
	}
	p, err := wstring(name)
	if err != nil {
		return err
	}
	return s.browseSAS.ChangeBrowsePosition(dir, p)
}

// BrowseItemIDs lists names at the browse position. The iterator reads the
// server's enumerator lazily.
func (s *Server) BrowseItemIDs(typ da.BrowseType, filter string, dataType com.VT, accessRights uint32) (*StringIter, error) {
	if s.browseSAS == nil {
		return nil, missing("IOPCBrowseServerAddressSpace")
	}
	p, err := wstring(filter)
	if err != nil {
		return nil, err
	}
	var e com.EnumString
	if err := s.browseSAS.BrowseOPCItemIDs(typ, p, dataType, accessRights, &e); err != nil {
		return nil, err
	}
	return NewStringIter(e, s.alloc), nil
}

// GetItemID returns the fully qualified identifier of a name returned by
// BrowseItemIDs.
func (s *Server) GetItemID(name string) (string, error) {
	if s.browseSAS == nil {
		return "", missing("IOPCBrowseServerAddressSpace")
	}
	p, err := wstring(name)
	if err != nil {
		return "", err
	}
	var out *uint16
	if err := s.browseSAS.GetItemID(p, &out); err != nil {
		return "", err
	}
	return takeString(s.alloc, out), nil
}

// BrowseAccessPaths lists the access paths of itemID.
func (s *Server) BrowseAccessPaths(itemID string) (*StringIter, error) {
	if s.browseSAS == nil {
		return nil, missing("IOPCBrowseServerAddressSpace")
	}
	p, err := wstring(itemID)
	if err != nil {
		return nil, err
	}
	var e com.EnumString
	if err := s.browseSAS.BrowseAccessPaths(p, &e); err != nil {
		return nil, err
	}
	return NewStringIter(e, s.alloc), nil
}

// Browse returns one page of the children of req.ItemID.
func (s *Server) Browse(req BrowseRequest) (BrowseResult, error) {
	if s.browse == nil {
		return BrowseResult{}, missing("IOPCBrowse")
	}
	if req.Filter == 0 {
		req.Filter = da.FilterAll
	}
	itemID, err := optWString(req.ItemID)
	if err != nil {
		return BrowseResult{}, err
	}
	point, err := optWString(req.Continuation)
	if err != nil {
		return BrowseResult{}, err
	}
	name, err := optWString(req.ElementName)
	if err != nil {
		return BrowseResult{}, err
	}
	vendor, err := optWString(req.VendorFilter)
	if err != nil {
		return BrowseResult{}, err
	}

	var more com.BOOL
	var count uint32
	var elems *da.BrowseElement
	err = s.browse.Browse(itemID, &point, req.MaxElements, req.Filter, name, vendor,
		com.BoolOf(req.ReturnAllProperties), com.BoolOf(req.ReturnValues), req.PropertyIDs,
		&more, &count, &elems)
	if err != nil {
		return BrowseResult{}, err
	}

	res := BrowseResult{More: more.Bool()}
	if res.More {
		res.Continuation = takeString(s.alloc, point)
	}
	raw := memory.AdoptArray(s.alloc, elems, count)
	for i := range raw.Slice() {
		e := &raw.Slice()[i]
		res.Elements = append(res.Elements, BrowseElement{
			Name:        memory.WStringToString(e.Name),
			ItemID:      memory.WStringToString(e.ItemID),
			HasChildren: e.Flags&da.BrowseHasChildren != 0,
			IsItem:      e.Flags&da.BrowseIsItem != 0,
			Properties:  importProperties(s.alloc, &e.Properties),
		})
	}
	da.FreeBrowseElements(s.alloc, raw.Slice())
	raw.Free()
	return res, nil
}

// BrowseAll follows continuation points until every child of req.ItemID
// has been returned.
func (s *Server) BrowseAll(req BrowseRequest) ([]BrowseElement, error) {
	var out []BrowseElement
	for {
		res, err := s.Browse(req)
		if err != nil {
			return nil, err
		}
		out = append(out, res.Elements...)
		if !res.More {
			return out, nil
		}
		if res.Continuation == "" {
			return nil, errors.New(errors.PhaseClient, errors.KindInvalidData).
				Detail("server reported more elements without a continuation point").
				Build()
		}
		req.Continuation = res.Continuation
	}
}

// GetProperties returns properties of several items. With no property ids
// every property is returned.
func (s *Server) GetProperties(itemIDs []string, returnValues bool, propertyIDs []uint32) ([]ItemProperties, error) {
	if s.browse == nil {
		return nil, missing("IOPCBrowse")
	}
	ids, err := wstrings(itemIDs)
	if err != nil {
		return nil, err
	}
	var p *da.ItemProperties
	if err := s.browse.GetProperties(ids.Ptrs(), com.BoolOf(returnValues), propertyIDs, &p); err != nil {
		return nil, err
	}
	raw := memory.AdoptArray(s.alloc, p, uint32(len(itemIDs)))
	out := make([]ItemProperties, raw.Len())
	for i := range raw.Slice() {
		out[i] = importProperties(s.alloc, &raw.Slice()[i])
	}
	raw.Free()
	return out, nil
}

// QueryAvailableProperties lists the properties itemID supports, without
// values.
func (s *Server) QueryAvailableProperties(itemID string) ([]Property, error) {
	if s.props == nil {
		return nil, missing("IOPCItemProperties")
	}
	id, err := wstring(itemID)
	if err != nil {
		return nil, err
	}
	var n uint32
	var ids *uint32
	var descs **uint16
	var vts *com.VT
	if err := s.props.QueryAvailableProperties(id, &n, &ids, &descs, &vts); err != nil {
		return nil, err
	}
	idList := take(s.alloc, ids, int(n))
	vtList := take(s.alloc, vts, int(n))
	descList := take(s.alloc, descs, int(n))
	out := make([]Property, n)
	for i := range out {
		out[i] = Property{ID: idList[i], DataType: vtList[i], Description: takeString(s.alloc, descList[i])}
	}
	return out, nil
}

// GetItemProperties reads property values of itemID.
func (s *Server) GetItemProperties(itemID string, propertyIDs []uint32) ([]com.Variant, []opc.HRESULT, error) {
	if s.props == nil {
		return nil, nil, missing("IOPCItemProperties")
	}
	if len(propertyIDs) == 0 {
		return nil, nil, errors.InvalidArgument(errors.PhaseClient, nil, "empty batch")
	}
	id, err := wstring(itemID)
	if err != nil {
		return nil, nil, err
	}
	var values *com.VARIANT
	var errs *opc.HRESULT
	if err := s.props.GetItemProperties(id, propertyIDs, &values, &errs); err != nil {
		return nil, nil, err
	}
	n := len(propertyIDs)
	codes := take(s.alloc, errs, n)
	raw := memory.AdoptArray(s.alloc, values, uint32(n))
	out := make([]com.Variant, n)
	for i := range raw.Slice() {
		if codes[i].Failed() {
			continue
		}
		v, err := com.FromVARIANT(&raw.Slice()[i])
		if err != nil {
			codes[i] = errors.HResult(err)
			continue
		}
		out[i] = v
	}
	com.ClearVARIANTs(s.alloc, raw.Slice())
	raw.Free()
	return out, codes, nil
}

// LookupItemIDs returns the item identifiers that back properties of
// itemID, where the server has them.
func (s *Server) LookupItemIDs(itemID string, propertyIDs []uint32) ([]string, []opc.HRESULT, error) {
	if s.props == nil {
		return nil, nil, missing("IOPCItemProperties")
	}
	if len(propertyIDs) == 0 {
		return nil, nil, errors.InvalidArgument(errors.PhaseClient, nil, "empty batch")
	}
	id, err := wstring(itemID)
	if err != nil {
		return nil, nil, err
	}
	var ids **uint16
	var errs *opc.HRESULT
	if err := s.props.LookupItemIDs(id, propertyIDs, &ids, &errs); err != nil {
		return nil, nil, err
	}
	n := len(propertyIDs)
	codes := take(s.alloc, errs, n)
	raw := take(s.alloc, ids, n)
	out := make([]string, n)
	for i, p := range raw {
		out[i] = takeString(s.alloc, p)
	}
	return out, codes, nil
}

// ReadItems reads items by identifier. maxAge may be nil to accept any
// cached value.
func (s *Server) ReadItems(itemIDs []string, maxAge []uint32) ([]ItemValue, []opc.HRESULT, error) {
	if s.itemIO == nil {
		return nil, nil, missing("IOPCItemIO")
	}
	ids, err := wstrings(itemIDs)
	if err != nil {
		return nil, nil, err
	}
	var values *com.VARIANT
	var qualities *uint16
	var stamps *com.FILETIME
	var errs *opc.HRESULT
	if err := s.itemIO.Read(ids.Ptrs(), maxAges(maxAge, len(itemIDs)), &values, &qualities, &stamps, &errs); err != nil {
		return nil, nil, err
	}
	vals, codes := takeValues(s.alloc, len(itemIDs), values, qualities, stamps, errs)
	return vals, codes, nil
}

// WriteItems writes values, and optionally qualities and timestamps, by
// item identifier.
func (s *Server) WriteItems(itemIDs []string, vqts []VQT) ([]opc.HRESULT, error) {
	if s.itemIO == nil {
		return nil, missing("IOPCItemIO")
	}
	ids, err := wstrings(itemIDs)
	if err != nil {
		return nil, err
	}
	raw, err := exportVQTs(s.alloc, vqts)
	if err != nil {
		return nil, err
	}
	defer clearVQTs(s.alloc, raw)
	var errs *opc.HRESULT
	if err := s.itemIO.WriteVQT(ids.Ptrs(), raw, &errs); err != nil {
		return nil, err
	}
	return take(s.alloc, errs, len(itemIDs)), nil
}
