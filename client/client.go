package client

import (
	"go.uber.org/zap"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/activation"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/memory"
)

// ClassStore lists and instantiates server classes. activation.Registry
// implements it.
type ClassStore interface {
	da.ServerList2
	Create(clsid, iid *com.GUID) (com.Unknown, error)
}

type options struct {
	store    ClassStore
	alloc    memory.Allocator
	versions opc.VersionSet
}

// Option configures a Client.
type Option func(*options)

// WithRegistry selects the class store servers are listed from and
// created through. Defaults to activation.Default().
func WithRegistry(s ClassStore) Option {
	return func(o *options) { o.store = s }
}

// WithAllocator sets the allocator that releases callee-allocated
// results. It must match the allocator the servers use. Defaults to
// memory.Default.
func WithAllocator(a memory.Allocator) Option {
	return func(o *options) { o.alloc = a }
}

// WithVersions limits the DA versions CreateServer will negotiate.
// Defaults to every version.
func WithVersions(vs opc.VersionSet) Option {
	return func(o *options) { o.versions = vs }
}

// Client enumerates and creates OPC DA servers. A Client holds the COM
// apartment of the goroutine that created it and locks that goroutine to
// its OS thread until Close; it and the facades it returns must only be
// used from that goroutine. Use a mailbox to drive them from elsewhere.
type Client struct {
	store    ClassStore
	alloc    memory.Allocator
	versions opc.VersionSet
	apt      *com.Apartment
}

// New enters the multi-threaded apartment and creates a client.
func New(opts ...Option) (*Client, error) {
	o := options{versions: opc.AllVersions}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = activation.Default()
	}
	if o.versions.Empty() {
		return nil, errors.InvalidArgument(errors.PhaseClient, []string{"versions"}, "no DA version selected")
	}

	apt, err := com.Enter()
	if err != nil {
		return nil, err
	}
	return &Client{
		store:    o.store,
		alloc:    memory.OrDefault(o.alloc),
		versions: o.versions,
		apt:      apt,
	}, nil
}

// Close releases the apartment. Facades created by the client must not be
// used afterwards.
func (c *Client) Close() {
	c.apt.Release()
}

// Allocator returns the allocator results are released through.
func (c *Client) Allocator() memory.Allocator { return c.alloc }

// GetServers lists the class ids of servers matching filter in
// registration order.
func (c *Client) GetServers(filter ServerFilter) ([]com.GUID, error) {
	var e com.EnumGUID
	err := c.store.EnumClassesOfCategories(da.CategoryIDs(filter.Available), da.CategoryIDs(filter.Required), &e)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseActivation, errors.KindActivationFailure, err, "enumerate server classes")
	}
	ids, err := NewGUIDIter(e).Collect()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseActivation, errors.KindActivationFailure, err, "enumerate server classes")
	}
	return ids, nil
}

// GetServerDetails returns the registration names of clsid.
func (c *Client) GetServerDetails(clsid com.GUID) (ServerDetails, error) {
	var progID, userType, verInd *uint16
	if err := c.store.GetClassDetails(&clsid, &progID, &userType, &verInd); err != nil {
		return ServerDetails{}, err
	}
	d := ServerDetails{
		CLSID:        clsid,
		ProgID:       memory.WStringToString(progID),
		UserType:     memory.WStringToString(userType),
		VerIndProgID: memory.WStringToString(verInd),
	}
	for _, p := range []*uint16{progID, userType, verInd} {
		memory.FreeWString(c.alloc, p)
	}
	return d, nil
}

// ListServers returns the details of every server matching filter.
func (c *Client) ListServers(filter ServerFilter) ([]ServerDetails, error) {
	ids, err := c.GetServers(filter)
	if err != nil {
		return nil, err
	}
	out := make([]ServerDetails, 0, len(ids))
	for _, id := range ids {
		d, err := c.GetServerDetails(id)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// ResolveProgID returns the class id registered for progID.
func (c *Client) ResolveProgID(progID string) (com.GUID, error) {
	w, err := memory.NewLocalWString(progID)
	if err != nil {
		return com.GUID{}, err
	}
	var clsid com.GUID
	if err := c.store.CLSIDFromProgID(w.PCWSTR(), &clsid); err != nil {
		return com.GUID{}, err
	}
	return clsid, nil
}

// CreateServer instantiates clsid and negotiates the highest DA version
// both sides support.
func (c *Client) CreateServer(clsid com.GUID) (*Server, error) {
	unk, err := c.store.Create(&clsid, &da.IID_IOPCServer)
	if err != nil {
		if errors.Is(err, errors.ErrInterfaceMissing) {
			return nil, errors.InterfaceMissing(errors.PhaseClient, "IOPCServer")
		}
		return nil, err
	}
	s, err := newServer(c, unk)
	if err != nil {
		return nil, err
	}
	Logger().Debug("server created",
		zap.Stringer("clsid", &clsid),
		zap.Stringer("version", s.version))
	return s, nil
}

// CreateServerByProgID resolves progID and creates the server.
func (c *Client) CreateServerByProgID(progID string) (*Server, error) {
	clsid, err := c.ResolveProgID(progID)
	if err != nil {
		return nil, err
	}
	return c.CreateServer(clsid)
}

// negotiate returns the highest version in allowed whose required
// capabilities all have a slot.
func negotiate(allowed opc.VersionSet, caps []*da.Capability, has func(*da.Capability) bool) (opc.Version, bool) {
	versions := allowed.List()
	for i := len(versions) - 1; i >= 0; i-- {
		v := versions[i]
		ok := true
		for _, c := range da.RequiredAt(caps, v) {
			if !has(c) {
				ok = false
				break
			}
		}
		if ok {
			return v, true
		}
	}
	return 0, false
}
