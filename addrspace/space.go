package addrspace

import (
	"strings"
	"time"

	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/errors"
)

// DefaultSeparator joins node names into item identifiers.
const DefaultSeparator = "."

// Space is a tree of nodes under an unnamed root.
type Space struct {
	root *Node
	now  func() time.Time
	sep  string
}

// Option configures a Space.
type Option func(*Space)

// WithSeparator sets the item identifier separator.
func WithSeparator(sep string) Option {
	return func(s *Space) {
		if sep != "" {
			s.sep = sep
		}
	}
}

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Space) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an empty space.
func New(opts ...Option) *Space {
	s := &Space{sep: DefaultSeparator, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.root = newNode(s, nil, "")
	return s
}

// Root returns the root node.
func (s *Space) Root() *Node { return s.root }

// Separator returns the item identifier separator.
func (s *Space) Separator() string { return s.sep }

// Now returns the current time from the space clock.
func (s *Space) Now() time.Time { return s.now() }

// Split breaks an item identifier into node names.
func (s *Space) Split(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	parts := strings.Split(path, s.sep)
	for _, p := range parts {
		if p == "" {
			return nil, errors.InvalidArgument(errors.PhaseServer, []string{path}, "empty path segment")
		}
	}
	return parts, nil
}

// Join builds an item identifier from node names.
func (s *Space) Join(names ...string) string {
	return strings.Join(names, s.sep)
}

// Lookup resolves an item identifier. The empty identifier is the root.
func (s *Space) Lookup(path string) (*Node, bool) {
	parts, err := s.Split(path)
	if err != nil {
		return nil, false
	}
	n := s.root
	for _, p := range parts {
		if n = n.child(p, false); n == nil {
			return nil, false
		}
	}
	return n, true
}

// Find resolves an item identifier or returns a not_found error.
func (s *Space) Find(path string) (*Node, error) {
	n, ok := s.Lookup(path)
	if !ok {
		return nil, errors.NotFound(errors.PhaseServer, "item", path)
	}
	return n, nil
}

// Ensure returns the node at path, creating missing branches.
func (s *Space) Ensure(path string) (*Node, error) {
	parts, err := s.Split(path)
	if err != nil {
		return nil, err
	}
	n := s.root
	for _, p := range parts {
		n = n.child(p, true)
	}
	return n, nil
}

// Set creates or updates the node at path with good quality and the
// current time.
func (s *Space) Set(path string, v com.Variant) (*Node, error) {
	if path == "" {
		return nil, errors.InvalidArgument(errors.PhaseServer, nil, "cannot set the root")
	}
	n, err := s.Ensure(path)
	if err != nil {
		return nil, err
	}
	n.Update(v, da.QualityGood, s.now())
	return n, nil
}

// Remove detaches the node at path and its subtree. Items bound to them
// keep their node and continue to read its last sample.
func (s *Space) Remove(path string) error {
	n, err := s.Find(path)
	if err != nil {
		return err
	}
	parent := n.Parent()
	if parent == nil {
		return errors.InvalidArgument(errors.PhaseServer, []string{path}, "cannot remove the root")
	}
	parent.removeChild(n.name)
	return nil
}

// Walk visits every node below the root depth-first in insertion order
// until fn returns false.
func (s *Space) Walk(fn func(*Node) bool) {
	walk(s.root, fn)
}

func walk(n *Node, fn func(*Node) bool) bool {
	for _, c := range n.Children() {
		if !fn(c) || !walk(c, fn) {
			return false
		}
	}
	return true
}

// Items returns every node that can be bound as an item.
func (s *Space) Items() []*Node {
	var out []*Node
	s.Walk(func(n *Node) bool {
		if n.IsItem() {
			out = append(out, n)
		}
		return true
	})
	return out
}
