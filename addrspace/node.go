package addrspace

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"weak"

	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/errors"
)

// Sample is a node's value, quality and timestamp read together.
type Sample struct {
	Timestamp time.Time
	Value     com.Variant
	Quality   uint16
}

// Node is one element of the address space.
type Node struct {
	space       *Space
	parent      weak.Pointer[Node]
	children    map[string]*Node
	name        string
	description string
	order       []string
	sample      Sample
	euLow       float64
	euHigh      float64
	canonical   com.VT
	rights      uint32
	mu          sync.RWMutex
	version     atomic.Uint64
	active      bool
	analog      bool
}

func newNode(s *Space, parent *Node, name string) *Node {
	n := &Node{
		space:  s,
		name:   name,
		rights: da.AccessReadable | da.AccessWriteable,
		active: true,
		sample: Sample{Value: com.Empty(), Quality: da.QualityBad | da.QualityWaitingForData},
	}
	if parent != nil {
		n.parent = weak.Make(parent)
	}
	return n
}

// Name returns the node's own name.
func (n *Node) Name() string { return n.name }

// Parent returns the parent node, or nil for the root and for nodes that
// were removed from the tree.
func (n *Node) Parent() *Node { return n.parent.Value() }

// Path returns the fully qualified item identifier of n.
func (n *Node) Path() string {
	var parts []string
	for cur := n; cur != nil && cur.Parent() != nil; cur = cur.Parent() {
		parts = append(parts, cur.name)
	}
	slices.Reverse(parts)
	return strings.Join(parts, n.space.sep)
}

// IsRoot reports whether n is the root of its space.
func (n *Node) IsRoot() bool { return n == n.space.root }

// Child returns the named child.
func (n *Node) Child(name string) (*Node, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	c, ok := n.children[name]
	return c, ok
}

// Children returns the children in insertion order.
func (n *Node) Children() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Node, 0, len(n.order))
	for _, name := range n.order {
		out = append(out, n.children[name])
	}
	return out
}

// HasChildren reports whether n is a branch.
func (n *Node) HasChildren() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.order) > 0
}

// IsItem reports whether n can be bound as an item: it is not the root
// and either carries a value type or has no children.
func (n *Node) IsItem() bool {
	if n.IsRoot() {
		return false
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.canonical != com.VT_EMPTY || len(n.order) == 0
}

func (n *Node) child(name string, create bool) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	if c, ok := n.children[name]; ok {
		return c
	}
	if !create {
		return nil
	}
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	c := newNode(n.space, n, name)
	n.children[name] = c
	n.order = append(n.order, name)
	return c
}

func (n *Node) removeChild(name string) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	c, ok := n.children[name]
	if !ok {
		return nil
	}
	delete(n.children, name)
	n.order = slices.DeleteFunc(n.order, func(s string) bool { return s == name })
	return c
}

// Read returns the current sample. It fails with bad_rights when the node
// is not readable.
func (n *Node) Read() (Sample, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.rights&da.AccessReadable == 0 {
		return Sample{}, n.badRights("read")
	}
	return n.sample, nil
}

// Peek returns the current sample regardless of access rights.
func (n *Node) Peek() Sample {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.sample
}

// Write replaces the value, keeping quality and timestamp. The value is
// converted to the node's canonical type. It fails with bad_rights when
// the node is not writable.
func (n *Node) Write(v com.Variant) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.rights&da.AccessWriteable == 0 {
		return n.badRights("write")
	}
	cv, err := n.coerce(v)
	if err != nil {
		return err
	}
	n.sample.Value = cv
	n.version.Add(1)
	return nil
}

// WriteVQT replaces value, and quality and timestamp when given, in one
// step.
func (n *Node) WriteVQT(v com.Variant, quality *uint16, ts *time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.rights&da.AccessWriteable == 0 {
		return n.badRights("write")
	}
	cv, err := n.coerce(v)
	if err != nil {
		return err
	}
	n.sample.Value = cv
	if quality != nil {
		n.sample.Quality = *quality
	}
	if ts != nil {
		n.sample.Timestamp = *ts
	}
	n.version.Add(1)
	return nil
}

// Update sets the whole sample from the data source side, ignoring access
// rights. An empty node takes the value's type as its canonical type.
func (n *Node) Update(v com.Variant, quality uint16, ts time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.canonical == com.VT_EMPTY {
		n.canonical = v.Type()
	}
	n.sample = Sample{Value: v, Quality: quality, Timestamp: ts}
	n.version.Add(1)
}

func (n *Node) coerce(v com.Variant) (com.Variant, error) {
	if n.canonical == com.VT_EMPTY || v.Type() == n.canonical {
		return v, nil
	}
	return v.ConvertTo(n.canonical)
}

func (n *Node) badRights(op string) error {
	return errors.New(errors.PhaseServer, errors.KindBadRights).
		Path(n.Path()).
		Detail("node is not %sable", op).
		Build()
}

// Version increments on every change of the sample.
func (n *Node) Version() uint64 { return n.version.Load() }

// CanonicalType returns the node's value type.
func (n *Node) CanonicalType() com.VT {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.canonical
}

// SetCanonicalType fixes the value type. The current value is converted
// when possible.
func (n *Node) SetCanonicalType(vt com.VT) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.sample.Value.IsEmpty() && n.sample.Value.Type() != vt {
		cv, err := n.sample.Value.ConvertTo(vt)
		if err != nil {
			return err
		}
		n.sample.Value = cv
		n.version.Add(1)
	}
	n.canonical = vt
	return nil
}

// AccessRights returns the readable and writeable bits.
func (n *Node) AccessRights() uint32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.rights
}

// SetAccessRights replaces the access bits.
func (n *Node) SetAccessRights(rights uint32) {
	n.mu.Lock()
	n.rights = rights & (da.AccessReadable | da.AccessWriteable)
	n.mu.Unlock()
}

// Active reports whether the node's data source is active.
func (n *Node) Active() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.active
}

// SetActive sets the data source activation state.
func (n *Node) SetActive(active bool) {
	n.mu.Lock()
	n.active = active
	n.mu.Unlock()
}

// Description returns the item description, empty when none.
func (n *Node) Description() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.description
}

// SetDescription sets the item description.
func (n *Node) SetDescription(d string) {
	n.mu.Lock()
	n.description = d
	n.mu.Unlock()
}

// SetEURange marks a numeric node as analog with the given engineering
// unit range. Deadbands are computed against it.
func (n *Node) SetEURange(low, high float64) error {
	if !(low < high) {
		return errors.InvalidArgument(errors.PhaseServer, []string{n.Path()}, "EU range low must be below high")
	}
	n.mu.Lock()
	n.euLow, n.euHigh, n.analog = low, high, true
	n.mu.Unlock()
	return nil
}

// EURange returns the engineering unit range of an analog node.
func (n *Node) EURange() (low, high float64, ok bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.euLow, n.euHigh, n.analog
}

// EUType reports whether the node is analog.
func (n *Node) EUType() da.EUType {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.analog {
		return da.EUAnalog
	}
	return da.EUNone
}
