package enum

import (
	"slices"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/memory"
)

var (
	stringIfaces          = com.InterfaceSet{&com.IID_IEnumString}
	unknownIfaces         = com.InterfaceSet{&com.IID_IEnumUnknown}
	guidIfaces            = com.InterfaceSet{&com.IID_IEnumGUID}
	connectionPointIfaces = com.InterfaceSet{&com.IID_IEnumConnectionPoints}
	connectionIfaces      = com.InterfaceSet{&com.IID_IEnumConnections}
)

// Strings enumerates strings as callee-allocated wide strings.
type Strings struct {
	cur   *cursor[string]
	alloc memory.Allocator
}

var _ com.EnumString = (*Strings)(nil)

// NewStrings snapshots items. Strings returned by Next are allocated
// through a.
func NewStrings(a memory.Allocator, items []string) *Strings {
	return &Strings{cur: newCursor(slices.Clone(items)), alloc: memory.OrDefault(a)}
}

func (e *Strings) QueryInterface(iid *com.GUID) (com.Unknown, error) {
	return stringIfaces.Query(e, iid)
}

func (e *Strings) Next(count uint32, elements []*uint16, fetched *uint32) opc.HRESULT {
	return nextInto(e.cur, count, elements, fetched,
		func(s string) (*uint16, error) { return memory.AllocWString(e.alloc, s) },
		func(p *uint16) { memory.FreeWString(e.alloc, p) })
}

func (e *Strings) Skip(count uint32) opc.HRESULT { return e.cur.skip(count) }

func (e *Strings) Reset() error {
	e.cur.reset()
	return nil
}

func (e *Strings) Clone() (com.EnumString, error) {
	return &Strings{cur: e.cur.clone(), alloc: e.alloc}, nil
}

// Len returns the sequence length.
func (e *Strings) Len() int { return e.cur.len() }

// Unknowns enumerates objects.
type Unknowns struct {
	cur *cursor[com.Unknown]
}

var _ com.EnumUnknown = (*Unknowns)(nil)

// NewUnknowns snapshots items.
func NewUnknowns(items []com.Unknown) *Unknowns {
	return &Unknowns{cur: newCursor(slices.Clone(items))}
}

func (e *Unknowns) QueryInterface(iid *com.GUID) (com.Unknown, error) {
	return unknownIfaces.Query(e, iid)
}

func (e *Unknowns) Next(count uint32, elements []com.Unknown, fetched *uint32) opc.HRESULT {
	return nextInto(e.cur, count, elements, fetched, identity[com.Unknown], nil)
}

func (e *Unknowns) Skip(count uint32) opc.HRESULT { return e.cur.skip(count) }

func (e *Unknowns) Reset() error {
	e.cur.reset()
	return nil
}

func (e *Unknowns) Clone() (com.EnumUnknown, error) {
	return &Unknowns{cur: e.cur.clone()}, nil
}

// GUIDs enumerates identifiers.
type GUIDs struct {
	cur *cursor[com.GUID]
}

var _ com.EnumGUID = (*GUIDs)(nil)

// NewGUIDs snapshots items.
func NewGUIDs(items []com.GUID) *GUIDs {
	return &GUIDs{cur: newCursor(slices.Clone(items))}
}

func (e *GUIDs) QueryInterface(iid *com.GUID) (com.Unknown, error) {
	return guidIfaces.Query(e, iid)
}

func (e *GUIDs) Next(count uint32, elements []com.GUID, fetched *uint32) opc.HRESULT {
	return nextInto(e.cur, count, elements, fetched, identity[com.GUID], nil)
}

func (e *GUIDs) Skip(count uint32) opc.HRESULT { return e.cur.skip(count) }

func (e *GUIDs) Reset() error {
	e.cur.reset()
	return nil
}

func (e *GUIDs) Clone() (com.EnumGUID, error) {
	return &GUIDs{cur: e.cur.clone()}, nil
}

// ConnectionPoints enumerates the connection points of a container.
type ConnectionPoints struct {
	cur *cursor[com.ConnectionPoint]
}

var _ com.EnumConnectionPoints = (*ConnectionPoints)(nil)

// NewConnectionPoints snapshots items.
func NewConnectionPoints(items []com.ConnectionPoint) *ConnectionPoints {
	return &ConnectionPoints{cur: newCursor(slices.Clone(items))}
}

func (e *ConnectionPoints) QueryInterface(iid *com.GUID) (com.Unknown, error) {
	return connectionPointIfaces.Query(e, iid)
}

func (e *ConnectionPoints) Next(count uint32, elements []com.ConnectionPoint, fetched *uint32) opc.HRESULT {
	return nextInto(e.cur, count, elements, fetched, identity[com.ConnectionPoint], nil)
}

func (e *ConnectionPoints) Skip(count uint32) opc.HRESULT { return e.cur.skip(count) }

func (e *ConnectionPoints) Reset() error {
	e.cur.reset()
	return nil
}

func (e *ConnectionPoints) Clone() (com.EnumConnectionPoints, error) {
	return &ConnectionPoints{cur: e.cur.clone()}, nil
}

// Connections enumerates the advised sinks of a connection point.
type Connections struct {
	cur *cursor[com.CONNECTDATA]
}

var _ com.EnumConnections = (*Connections)(nil)

// NewConnections snapshots items.
func NewConnections(items []com.CONNECTDATA) *Connections {
	return &Connections{cur: newCursor(slices.Clone(items))}
}

func (e *Connections) QueryInterface(iid *com.GUID) (com.Unknown, error) {
	return connectionIfaces.Query(e, iid)
}

func (e *Connections) Next(count uint32, elements []com.CONNECTDATA, fetched *uint32) opc.HRESULT {
	return nextInto(e.cur, count, elements, fetched, identity[com.CONNECTDATA], nil)
}

func (e *Connections) Skip(count uint32) opc.HRESULT { return e.cur.skip(count) }

func (e *Connections) Reset() error {
	e.cur.reset()
	return nil
}

func (e *Connections) Clone() (com.EnumConnections, error) {
	return &Connections{cur: e.cur.clone()}, nil
}
