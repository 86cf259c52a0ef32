package server

import (
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/addrspace"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/enum"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/memory"
)

// continuation records where an IOPCBrowse call stopped.
type continuation struct {
	path   string
	offset int
}

// QueryOrganization implements IOPCBrowseServerAddressSpace. The address
// space is always hierarchical.
func (s *Server) QueryOrganization(ns *da.NamespaceType) (err error) {
	defer s.tel.start("IOPCBrowseServerAddressSpace.QueryOrganization").end(&err)
	return writeOut(ns, da.NamespaceHierarchical, "pNameSpaceType")
}

// Position returns the item identifier of the current browse position.
func (s *Server) Position() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position.Path()
}

// ChangeBrowsePosition implements IOPCBrowseServerAddressSpace. Up from
// the root fails with E_FAIL. Down needs the name of a child branch. To
// moves to a fully qualified branch, or to the root when name is empty.
func (s *Server) ChangeBrowsePosition(dir da.BrowseDirection, name *uint16) (err error) {
	defer s.tel.start("IOPCBrowseServerAddressSpace.ChangeBrowsePosition",
		attribute.Stringer("opcda.direction", dir)).end(&err)
	if !dir.Valid() {
		return errors.InvalidEnum(errors.PhaseBrowse, uint32(dir), "BrowseDirection")
	}
	target := memory.WStringToString(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch dir {
	case da.BrowseUp:
		parent := s.position.Parent()
		if parent == nil {
			return errors.New(errors.PhaseBrowse, errors.KindInvalidArgument).
				Code(opc.E_FAIL).
				Detail("already at the root").
				Build()
		}
		s.position = parent
	case da.BrowseDown:
		child, ok := s.position.Child(target)
		if !ok || !child.HasChildren() {
			return errors.NotFound(errors.PhaseBrowse, "branch", target)
		}
		s.position = child
	case da.BrowseTo:
		if target == "" {
			s.position = s.space.Root()
			return nil
		}
		n, ok := s.space.Lookup(target)
		if !ok || !n.HasChildren() {
			return errors.NotFound(errors.PhaseBrowse, "branch", target)
		}
		s.position = n
	}
	return nil
}

// browseFilter selects item nodes for BrowseOPCItemIDs.
type browseFilter struct {
	pattern  string
	dataType com.VT
	rights   uint32
}

func (f browseFilter) accepts(name string, n *addrspace.Node) bool {
	if !Match(f.pattern, name) {
		return false
	}
	if !n.IsItem() {
		return true
	}
	if f.dataType != com.VT_EMPTY && n.CanonicalType() != f.dataType {
		return false
	}
	return n.AccessRights()&f.rights == f.rights
}

// BrowseOPCItemIDs implements IOPCBrowseServerAddressSpace. Branch and
// leaf browses list names below the current position; a flat browse lists
// the fully qualified identifiers of every item beneath it. The data type
// and access rights filters apply to items only.
func (s *Server) BrowseOPCItemIDs(typ da.BrowseType, filter *uint16, dataType com.VT, accessRights uint32, out *com.EnumString) (err error) {
	defer s.tel.start("IOPCBrowseServerAddressSpace.BrowseOPCItemIDs",
		attribute.Stringer("opcda.browse_type", typ)).end(&err)
	if out == nil {
		return errors.NilPointer(errors.PhaseBrowse, "ppIEnumString")
	}
	*out = nil
	if !typ.Valid() {
		return errors.InvalidEnum(errors.PhaseBrowse, uint32(typ), "BrowseType")
	}
	f := browseFilter{
		pattern:  memory.WStringToString(filter),
		dataType: dataType,
		rights:   accessRights,
	}

	s.mu.Lock()
	pos := s.position
	s.mu.Unlock()

	var names []string
	switch typ {
	case da.BrowseBranch:
		for _, c := range pos.Children() {
			if c.HasChildren() && f.accepts(c.Name(), c) {
				names = append(names, c.Name())
			}
		}
	case da.BrowseLeaf:
		for _, c := range pos.Children() {
			if c.IsItem() && f.accepts(c.Name(), c) {
				names = append(names, c.Name())
			}
		}
	case da.BrowseFlat:
		var visit func(*addrspace.Node)
		visit = func(n *addrspace.Node) {
			for _, c := range n.Children() {
				if c.IsItem() && f.accepts(c.Path(), c) {
					names = append(names, c.Path())
				}
				visit(c)
			}
		}
		visit(pos)
	}
	*out = enum.NewStrings(s.alloc, names)
	return nil
}

// GetItemID implements IOPCBrowseServerAddressSpace. The name is resolved
// below the current position first, then as a fully qualified identifier.
// The empty name yields the position itself.
func (s *Server) GetItemID(itemDataID *uint16, itemID **uint16) (err error) {
	defer s.tel.start("IOPCBrowseServerAddressSpace.GetItemID").end(&err)
	if itemID == nil {
		return errors.NilPointer(errors.PhaseBrowse, "szItemID")
	}
	*itemID = nil
	name := memory.WStringToString(itemDataID)

	s.mu.Lock()
	pos := s.position
	s.mu.Unlock()

	var n *addrspace.Node
	if name == "" {
		n = pos
	} else if rel, ok := s.space.Lookup(s.space.Join(pos.Path(), name)); ok && !pos.IsRoot() {
		n = rel
	} else if abs, ok := s.space.Lookup(name); ok {
		n = abs
	} else {
		return errors.NotFound(errors.PhaseBrowse, "item", name)
	}
	p, err := memory.AllocWString(s.alloc, n.Path())
	if err != nil {
		return err
	}
	*itemID = p
	return nil
}

// BrowseAccessPaths implements IOPCBrowseServerAddressSpace. Items have
// no access paths.
func (s *Server) BrowseAccessPaths(itemID *uint16, out *com.EnumString) (err error) {
	defer s.tel.start("IOPCBrowseServerAddressSpace.BrowseAccessPaths").end(&err)
	if out != nil {
		*out = nil
	}
	return errors.NotImplemented(errors.PhaseBrowse, "access paths")
}

func errContinuation(point string) error {
	return errors.New(errors.PhaseBrowse, errors.KindInvalidArgument).
		Code(opc.OPC_E_INVALIDCONTINUATIONPOINT).
		Value(point).
		Detail("unknown continuation point").
		Build()
}

// takeContinuation consumes a continuation point issued for path.
func (s *Server) takeContinuation(point, path string) (int, error) {
	if point == "" {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.continuations[point]
	if !ok || c.path != path {
		return 0, errContinuation(point)
	}
	delete(s.continuations, point)
	return c.offset, nil
}

func (s *Server) saveContinuation(path string, offset int) string {
	point := uuid.NewString()
	s.mu.Lock()
	s.continuations[point] = continuation{path: path, offset: offset}
	s.mu.Unlock()
	return point
}

// Browse implements IOPCBrowse.Browse. The empty identifier browses the
// root. maxElements of zero returns every element; otherwise a
// continuation point is issued when more remain.
func (s *Server) Browse(itemID *uint16, point **uint16, maxElements uint32, filter da.BrowseFilter, elementName *uint16, vendorFilter *uint16, returnAllProperties com.BOOL, returnValues com.BOOL, propertyIDs []uint32, more *com.BOOL, count *uint32, elements **da.BrowseElement) (err error) {
	defer s.tel.start("IOPCBrowse.Browse").end(&err)
	if point == nil || more == nil || count == nil || elements == nil {
		return errors.NilPointer(errors.PhaseBrowse, "pszContinuationPoint", "pbMoreElements", "pdwCount", "ppBrowseElements")
	}
	*more, *count, *elements = com.BoolOf(false), 0, nil
	if !filter.Valid() {
		return errors.InvalidEnum(errors.PhaseBrowse, uint32(filter), "BrowseFilter")
	}
	id := memory.WStringToString(itemID)
	node, ok := s.space.Lookup(id)
	if !ok {
		return errUnknownItem(id)
	}
	offset, err := s.takeContinuation(memory.WStringToString(*point), node.Path())
	if err != nil {
		return err
	}
	*point = nil

	pattern := memory.WStringToString(elementName)
	var matched []*addrspace.Node
	for _, c := range node.Children() {
		switch {
		case filter == da.FilterBranches && !c.HasChildren():
			continue
		case filter == da.FilterItems && !c.IsItem():
			continue
		}
		if Match(pattern, c.Name()) {
			matched = append(matched, c)
		}
	}
	if offset > len(matched) {
		offset = len(matched)
	}
	page := matched[offset:]
	if maxElements > 0 && uint64(len(page)) > uint64(maxElements) {
		page = page[:maxElements]
	}

	o := newOutputs(s.alloc)
	recs, err := array(o, len(page), elements, "ppBrowseElements")
	if err != nil {
		return o.finish(err)
	}
	for i, c := range page {
		rec := &recs[i]
		if c.HasChildren() {
			rec.Flags |= da.BrowseHasChildren
		}
		if c.IsItem() {
			rec.Flags |= da.BrowseIsItem
		}
		if rec.Name, err = o.wstring(c.Name()); err != nil {
			return o.finish(err)
		}
		if rec.ItemID, err = o.wstring(c.Path()); err != nil {
			return o.finish(err)
		}
		if rec.Properties, err = s.propertyList(o, c, returnAllProperties.Bool(), returnValues.Bool(), propertyIDs); err != nil {
			return o.finish(err)
		}
	}
	next := offset + len(page)
	if next < len(matched) {
		if *point, err = o.wstring(s.saveContinuation(node.Path(), next)); err != nil {
			return o.finish(err)
		}
		*more = com.BoolOf(true)
	}
	*count = uint32(len(page))
	return o.finish(nil)
}
