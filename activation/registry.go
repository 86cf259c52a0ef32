package activation

import (
	"slices"
	"sync"

	ole "github.com/go-ole/go-ole"
	"go.uber.org/zap"

	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/memory"
)

// Factory creates a new instance of a registered class.
type Factory func() (com.Unknown, error)

// ClassInfo describes one registered class.
type ClassInfo struct {
	CLSID        com.GUID
	ProgID       string
	VerIndProgID string
	UserType     string
	Categories   []com.GUID
	Factory      Factory
}

// Implements reports whether the class is in category catid.
func (c *ClassInfo) Implements(catid com.GUID) bool {
	return slices.Contains(c.Categories, catid)
}

// Option configures a Registry.
type Option func(*Registry)

// WithAllocator sets the allocator used for strings returned by
// GetClassDetails.
func WithAllocator(a memory.Allocator) Option {
	return func(r *Registry) { r.alloc = a }
}

// Registry is an in-process class store. It is safe for concurrent use.
type Registry struct {
	alloc memory.Allocator

	mu      sync.RWMutex
	classes map[com.GUID]*ClassInfo
	order   []com.GUID
	progIDs map[string]com.GUID
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		classes: make(map[com.GUID]*ClassInfo),
		progIDs: make(map[string]com.GUID),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.alloc = memory.OrDefault(r.alloc)
	return r
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Register adds a class. The class id and program identifiers must be
// unused.
func (r *Registry) Register(info ClassInfo) error {
	if info.CLSID == (com.GUID{}) {
		return errors.InvalidArgument(errors.PhaseActivation, []string{"CLSID"}, "class id is null")
	}
	if info.Factory == nil {
		return errors.NilPointer(errors.PhaseActivation, "Factory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.classes[info.CLSID]; ok {
		return errors.New(errors.PhaseActivation, errors.KindInvalidArgument).
			Value(info.CLSID.String()).
			Detail("class already registered").
			Build()
	}
	for _, id := range []string{info.ProgID, info.VerIndProgID} {
		if id == "" {
			continue
		}
		if _, ok := r.progIDs[id]; ok {
			return errors.New(errors.PhaseActivation, errors.KindInvalidArgument).
				Value(id).
				Detail("program id already registered").
				Build()
		}
	}

	c := info
	c.Categories = slices.Clone(info.Categories)
	r.classes[c.CLSID] = &c
	r.order = append(r.order, c.CLSID)
	for _, id := range []string{c.ProgID, c.VerIndProgID} {
		if id != "" {
			r.progIDs[id] = c.CLSID
		}
	}
	Logger().Debug("class registered",
		zap.Stringer("clsid", &c.CLSID),
		zap.String("progid", c.ProgID))
	return nil
}

// Unregister removes a class. It reports whether the class was present.
func (r *Registry) Unregister(clsid com.GUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.classes[clsid]
	if !ok {
		return false
	}
	delete(r.classes, clsid)
	r.order = slices.DeleteFunc(r.order, func(g com.GUID) bool { return g == clsid })
	for _, id := range []string{c.ProgID, c.VerIndProgID} {
		if id != "" {
			delete(r.progIDs, id)
		}
	}
	return true
}

// Lookup returns a copy of the registration of clsid.
func (r *Registry) Lookup(clsid com.GUID) (ClassInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[clsid]
	if !ok {
		return ClassInfo{}, false
	}
	return *c, true
}

// Classes returns the registered classes in registration order.
func (r *Registry) Classes() []ClassInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ClassInfo, 0, len(r.order))
	for _, g := range r.order {
		out = append(out, *r.classes[g])
	}
	return out
}

// Create instantiates clsid and resolves iid on the new object.
func (r *Registry) Create(clsid, iid *com.GUID) (com.Unknown, error) {
	if clsid == nil {
		return nil, errors.NilPointer(errors.PhaseActivation, "rclsid")
	}
	info, ok := r.Lookup(*clsid)
	if !ok {
		return nil, errors.ClassNotRegistered(clsid.String())
	}
	obj, err := info.Factory()
	if err != nil {
		return nil, errors.ActivationFailed("factory for "+clsid.String()+" failed", err)
	}
	if obj == nil {
		return nil, errors.ActivationFailed("factory for "+clsid.String()+" returned no object", nil)
	}
	if iid == nil {
		return obj, nil
	}
	u, err := obj.QueryInterface(iid)
	if err != nil {
		return nil, err
	}
	Logger().Debug("class instantiated",
		zap.Stringer("clsid", clsid),
		zap.String("iid", com.InterfaceName(iid)))
	return u, nil
}

// ResolveProgID returns the class id of a program identifier. Identifiers
// not registered here are looked up in the system class store when the
// current thread has a COM runtime.
func (r *Registry) ResolveProgID(progID string) (com.GUID, error) {
	r.mu.RLock()
	g, ok := r.progIDs[progID]
	r.mu.RUnlock()
	if ok {
		return g, nil
	}
	if g, err := com.ParseGUID(progID); err == nil {
		if _, ok := r.Lookup(g); ok {
			return g, nil
		}
	}
	if com.Hosted() {
		clsid, err := ole.CLSIDFromProgID(progID)
		if err == nil {
			return *clsid, nil
		}
		Logger().Debug("system progid lookup failed",
			zap.String("progid", progID),
			zap.Error(err))
	}
	return com.GUID{}, errors.New(errors.PhaseActivation, errors.KindClassNotRegistered).
		Value(progID).
		Detail("program id %q is not registered", progID).
		Build()
}
