package client

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/mailbox"
)

// session is the state a server mailbox owns.
type session struct {
	client *Client
	server *Server
}

// AsyncServer drives a Server from any goroutine. The client and the
// server facade live on a dedicated mailbox worker; every method is a
// request to that worker and returns when it replies.
type AsyncServer struct {
	mb      *mailbox.Mailbox[*session]
	mbOpts  []mailbox.Option
	version opc.Version

	mu     sync.Mutex
	groups map[uint32]*AsyncGroup
}

// SpawnServer creates the server clsid on a new mailbox worker.
func SpawnServer(clsid com.GUID, opts []Option, mbOpts ...mailbox.Option) (*AsyncServer, error) {
	var version opc.Version
	init := func() (*session, error) {
		c, err := New(opts...)
		if err != nil {
			return nil, err
		}
		s, err := c.CreateServer(clsid)
		if err != nil {
			c.Close()
			return nil, err
		}
		version = s.Version()
		return &session{client: c, server: s}, nil
	}
	release := func(s *session) { s.client.Close() }

	mb, err := mailbox.Start("server "+clsid.String(), init, release, mbOpts...)
	if err != nil {
		return nil, err
	}
	return &AsyncServer{
		mb:      mb,
		mbOpts:  mbOpts,
		version: version,
		groups:  make(map[uint32]*AsyncGroup),
	}, nil
}

// Version returns the negotiated DA version.
func (a *AsyncServer) Version() opc.Version { return a.version }

// Close stops every group worker and then the server worker. Groups are
// left on the server; the server releases them with the connection.
func (a *AsyncServer) Close() {
	a.mu.Lock()
	groups := make([]*AsyncGroup, 0, len(a.groups))
	for _, g := range a.groups {
		groups = append(groups, g)
	}
	clear(a.groups)
	a.mu.Unlock()

	for _, g := range groups {
		g.mb.Close()
	}
	a.mb.Close()
}

// GetStatus returns the server status.
func (a *AsyncServer) GetStatus(ctx context.Context) (ServerStatus, error) {
	return mailbox.Call(ctx, a.mb, func(s *session) (ServerStatus, error) {
		return s.server.GetStatus()
	})
}

// BrowseAll lists the children of itemID across every continuation.
func (a *AsyncServer) BrowseAll(ctx context.Context, req BrowseRequest) ([]BrowseElement, error) {
	return mailbox.Call(ctx, a.mb, func(s *session) ([]BrowseElement, error) {
		return s.server.BrowseAll(req)
	})
}

// GetProperties returns the properties of items.
func (a *AsyncServer) GetProperties(ctx context.Context, itemIDs []string, returnValues bool, propertyIDs []uint32) ([]ItemProperties, error) {
	return mailbox.Call(ctx, a.mb, func(s *session) ([]ItemProperties, error) {
		return s.server.GetProperties(itemIDs, returnValues, propertyIDs)
	})
}

type itemValues struct {
	values []ItemValue
	codes  []opc.HRESULT
}

// ReadItems reads items by identifier.
func (a *AsyncServer) ReadItems(ctx context.Context, itemIDs []string, maxAge []uint32) ([]ItemValue, []opc.HRESULT, error) {
	r, err := mailbox.Call(ctx, a.mb, func(s *session) (itemValues, error) {
		vs, codes, err := s.server.ReadItems(itemIDs, maxAge)
		return itemValues{vs, codes}, err
	})
	return r.values, r.codes, err
}

// WriteItems writes items by identifier.
func (a *AsyncServer) WriteItems(ctx context.Context, itemIDs []string, vqts []VQT) ([]opc.HRESULT, error) {
	return mailbox.Call(ctx, a.mb, func(s *session) ([]opc.HRESULT, error) {
		return s.server.WriteItems(itemIDs, vqts)
	})
}

// AddGroup creates a group and starts a worker for it.
func (a *AsyncServer) AddGroup(ctx context.Context, name string, active bool, updateRate, clientHandle uint32, opts ...GroupOptions) (*AsyncGroup, error) {
	g, err := mailbox.Call(ctx, a.mb, func(s *session) (*Group, error) {
		return s.server.AddGroup(name, active, updateRate, clientHandle, opts...)
	})
	if err != nil {
		return nil, err
	}
	mb, err := mailbox.Start(a.mb.Name()+"/"+name, func() (*Group, error) { return g, nil }, nil, a.mbOpts...)
	if err != nil {
		_ = mailbox.Do(ctx, a.mb, func(s *session) error { return s.server.RemoveGroup(g.Handle(), true) })
		return nil, err
	}
	ag := &AsyncGroup{srv: a, mb: mb, name: name, handle: g.Handle(), rate: g.RevisedUpdateRate()}
	a.mu.Lock()
	a.groups[ag.handle] = ag
	a.mu.Unlock()
	return ag, nil
}

// RemoveGroups stops the workers of groups and removes them from the
// server in parallel. The first failure is returned after every removal
// has been attempted.
func (a *AsyncServer) RemoveGroups(ctx context.Context, force bool, groups ...*AsyncGroup) error {
	var eg errgroup.Group
	for _, g := range groups {
		eg.Go(func() error {
			a.mu.Lock()
			delete(a.groups, g.handle)
			a.mu.Unlock()
			g.mb.Close()
			err := mailbox.Do(ctx, a.mb, func(s *session) error {
				return s.server.RemoveGroup(g.handle, force)
			})
			if err != nil {
				Logger().Warn("remove group failed",
					zap.String("group", g.name),
					zap.Uint32("handle", g.handle),
					zap.Error(err))
			}
			return err
		})
	}
	return eg.Wait()
}

// AsyncGroup drives a Group from any goroutine. Calls on one group are
// serialized on its worker; different groups run concurrently.
type AsyncGroup struct {
	srv    *AsyncServer
	mb     *mailbox.Mailbox[*Group]
	name   string
	handle uint32
	rate   uint32
}

// Name returns the name the group was created with.
func (g *AsyncGroup) Name() string { return g.name }

// Handle returns the server handle of the group.
func (g *AsyncGroup) Handle() uint32 { return g.handle }

// RevisedUpdateRate returns the update rate the server granted.
func (g *AsyncGroup) RevisedUpdateRate() uint32 { return g.rate }

// Remove removes the group from its server.
func (g *AsyncGroup) Remove(ctx context.Context, force bool) error {
	return g.srv.RemoveGroups(ctx, force, g)
}

type itemResults struct {
	results []ItemResult
	codes   []opc.HRESULT
}

// AddItems binds items to the group.
func (g *AsyncGroup) AddItems(ctx context.Context, defs []ItemDef) ([]ItemResult, []opc.HRESULT, error) {
	r, err := mailbox.Call(ctx, g.mb, func(grp *Group) (itemResults, error) {
		rs, codes, err := grp.AddItems(defs)
		return itemResults{rs, codes}, err
	})
	return r.results, r.codes, err
}

// RemoveItems unbinds items.
func (g *AsyncGroup) RemoveItems(ctx context.Context, handles []uint32) ([]opc.HRESULT, error) {
	return mailbox.Call(ctx, g.mb, func(grp *Group) ([]opc.HRESULT, error) {
		return grp.RemoveItems(handles)
	})
}

// SetActiveState activates or deactivates items.
func (g *AsyncGroup) SetActiveState(ctx context.Context, handles []uint32, active bool) ([]opc.HRESULT, error) {
	return mailbox.Call(ctx, g.mb, func(grp *Group) ([]opc.HRESULT, error) {
		return grp.SetActiveState(handles, active)
	})
}

// GetState returns the group state.
func (g *AsyncGroup) GetState(ctx context.Context) (GroupState, error) {
	return mailbox.Call(ctx, g.mb, func(grp *Group) (GroupState, error) {
		return grp.GetState()
	})
}

// SetState changes group settings and returns the revised update rate.
func (g *AsyncGroup) SetState(ctx context.Context, u GroupStateUpdate) (uint32, error) {
	return mailbox.Call(ctx, g.mb, func(grp *Group) (uint32, error) {
		return grp.SetState(u)
	})
}

type itemStates struct {
	states []ItemState
	codes  []opc.HRESULT
}

// Read reads items synchronously on the group worker.
func (g *AsyncGroup) Read(ctx context.Context, source da.DataSource, handles []uint32) ([]ItemState, []opc.HRESULT, error) {
	r, err := mailbox.Call(ctx, g.mb, func(grp *Group) (itemStates, error) {
		states, codes, err := grp.Read(source, handles)
		return itemStates{states, codes}, err
	})
	return r.states, r.codes, err
}

// Write writes values synchronously on the group worker.
func (g *AsyncGroup) Write(ctx context.Context, handles []uint32, values []com.Variant) ([]opc.HRESULT, error) {
	return mailbox.Call(ctx, g.mb, func(grp *Group) ([]opc.HRESULT, error) {
		return grp.Write(handles, values)
	})
}

// ReadMaxAge reads items honouring per-item max ages.
func (g *AsyncGroup) ReadMaxAge(ctx context.Context, handles []uint32, maxAge []uint32) ([]ItemValue, []opc.HRESULT, error) {
	r, err := mailbox.Call(ctx, g.mb, func(grp *Group) (itemValues, error) {
		vs, codes, err := grp.ReadMaxAge(handles, maxAge)
		return itemValues{vs, codes}, err
	})
	return r.values, r.codes, err
}

// WriteVQT writes values with optional quality and timestamp.
func (g *AsyncGroup) WriteVQT(ctx context.Context, handles []uint32, vqts []VQT) ([]opc.HRESULT, error) {
	return mailbox.Call(ctx, g.mb, func(grp *Group) ([]opc.HRESULT, error) {
		return grp.WriteVQT(handles, vqts)
	})
}

// Subscribe advises h for data changes and async completions.
func (g *AsyncGroup) Subscribe(ctx context.Context, h DataHandler) (uint32, error) {
	return mailbox.Call(ctx, g.mb, func(grp *Group) (uint32, error) {
		return grp.Subscribe(h)
	})
}

// Unsubscribe removes a subscription.
func (g *AsyncGroup) Unsubscribe(ctx context.Context, cookie uint32) error {
	return mailbox.Do(ctx, g.mb, func(grp *Group) error {
		return grp.Unsubscribe(cookie)
	})
}

type asyncStart struct {
	cancelID uint32
	codes    []opc.HRESULT
}

// AsyncRead starts a device read completed through the subscription.
func (g *AsyncGroup) AsyncRead(ctx context.Context, handles []uint32, txn uint32) (uint32, []opc.HRESULT, error) {
	r, err := mailbox.Call(ctx, g.mb, func(grp *Group) (asyncStart, error) {
		id, codes, err := grp.AsyncRead(handles, txn)
		return asyncStart{id, codes}, err
	})
	return r.cancelID, r.codes, err
}

// AsyncWrite starts a write completed through the subscription.
func (g *AsyncGroup) AsyncWrite(ctx context.Context, handles []uint32, values []com.Variant, txn uint32) (uint32, []opc.HRESULT, error) {
	r, err := mailbox.Call(ctx, g.mb, func(grp *Group) (asyncStart, error) {
		id, codes, err := grp.AsyncWrite(handles, values, txn)
		return asyncStart{id, codes}, err
	})
	return r.cancelID, r.codes, err
}

// Refresh asks for every active item to be delivered as a data change.
func (g *AsyncGroup) Refresh(ctx context.Context, source da.DataSource, txn uint32) (uint32, error) {
	return mailbox.Call(ctx, g.mb, func(grp *Group) (uint32, error) {
		return grp.Refresh(source, txn)
	})
}

// Cancel cancels an outstanding async operation.
func (g *AsyncGroup) Cancel(ctx context.Context, cancelID uint32) error {
	return mailbox.Do(ctx, g.mb, func(grp *Group) error {
		return grp.Cancel(cancelID)
	})
}

// Exec runs fn on the group worker for operations without a dedicated
// wrapper.
func (g *AsyncGroup) Exec(ctx context.Context, fn func(*Group) error) error {
	return mailbox.Do(ctx, g.mb, fn)
}

// Exec runs fn on the server worker.
func (a *AsyncServer) Exec(ctx context.Context, fn func(*Server) error) error {
	return mailbox.Do(ctx, a.mb, func(s *session) error { return fn(s.server) })
}
