package server

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/memory"
	"github.com/wippyai/opc-classic/resource"
)

var groupInterfaces = com.InterfaceSet{
	&da.IID_IOPCItemMgt,
	&da.IID_IOPCGroupStateMgt,
	&da.IID_IOPCGroupStateMgt2,
	&da.IID_IOPCItemDeadbandMgt,
	&da.IID_IOPCItemSamplingMgt,
	&com.IID_IConnectionPointContainer,
}

// groupState is the client-visible state tuple of a group.
type groupState struct {
	name        string
	active      bool
	updateRate  uint32
	clientGroup uint32
	timeBias    int32
	deadband    float32
	lcid        uint32
	keepAlive   uint32
}

// Group is a subscription context inside a Server. Item handles are
// issued by the group and never reused.
type Group struct {
	server *Server
	alloc  memory.Allocator
	tel    *telemetry
	items  *resource.Table[*item]
	points *connectionPoints

	mu         sync.Mutex
	handle     uint32
	st         groupState
	enabled    bool
	dropped    bool
	lastSend   time.Time
	txns       map[uint32]*transaction
	nextCancel uint32

	exec    Executor
	own     *serialExecutor
	stop    chan struct{}
	wake    chan struct{}
	pending atomic.Bool
}

func newGroup(s *Server, st groupState) *Group {
	g := &Group{
		server:  s,
		alloc:   s.alloc,
		tel:     s.tel,
		items:   resource.NewTable[*item](),
		st:      st,
		enabled: true,
		txns:    make(map[uint32]*transaction),
		wake:    make(chan struct{}, 1),
	}
	g.points = newConnectionPoints(g, s.tel, da.IID_IOPCDataCallback)
	return g
}

// open assigns the server handle and starts the group's workers.
func (g *Group) open(handle uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handle = handle
	g.exec = g.server.opts.Executor
	if g.exec == nil {
		g.own = newSerialExecutor()
		g.exec = g.own
	}
	if !g.server.opts.DisablePolling {
		g.stop = make(chan struct{})
		go g.loop(g.stop)
	}
}

// Drop stops the update loop and discards pending deliveries. It runs
// when the group is removed from its server.
func (g *Group) Drop() {
	g.mu.Lock()
	if g.dropped {
		g.mu.Unlock()
		return
	}
	g.dropped = true
	if g.stop != nil {
		close(g.stop)
	}
	own := g.own
	clear(g.txns)
	g.mu.Unlock()

	if own != nil {
		own.close()
	}
	g.items.Clear()
}

// QueryInterface resolves the group's interfaces. The synchronous and
// asynchronous I/O interfaces share method names and are served by
// separate views of the same group.
func (g *Group) QueryInterface(iid *com.GUID) (com.Unknown, error) {
	if iid != nil {
		switch *iid {
		case da.IID_IOPCSyncIO, da.IID_IOPCSyncIO2:
			return (*syncIO)(g), nil
		case da.IID_IOPCAsyncIO2, da.IID_IOPCAsyncIO3:
			return (*asyncIO)(g), nil
		}
	}
	return groupInterfaces.Query(g, iid)
}

// Handle returns the server-assigned group handle.
func (g *Group) Handle() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.handle
}

// Name returns the group name.
func (g *Group) Name() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.st.name
}

// Active reports whether the group is active.
func (g *Group) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.st.active
}

// Len returns the number of items in the group.
func (g *Group) Len() int { return g.items.Len() }

func (g *Group) checkLive() error {
	if g.dropped {
		return errors.New(errors.PhaseServer, errors.KindForeign).
			Code(opc.E_FAIL).
			Detail("group has been removed").
			Build()
	}
	return nil
}

// GetState implements IOPCGroupStateMgt.GetState. Every out-parameter is
// required; the name is allocated through the server allocator.
func (g *Group) GetState(updateRate *uint32, active *com.BOOL, name **uint16, timeBias *int32, percentDeadband *float32, lcid *uint32, clientGroup *uint32, serverGroup *uint32) (err error) {
	defer g.tel.start("IOPCGroupStateMgt.GetState").end(&err)
	if updateRate == nil || active == nil || name == nil || timeBias == nil ||
		percentDeadband == nil || lcid == nil || clientGroup == nil || serverGroup == nil {
		return errors.NilPointer(errors.PhaseServer, "GetState")
	}
	g.mu.Lock()
	st, h := g.st, g.handle
	g.mu.Unlock()

	p, err := memory.AllocWString(g.alloc, st.name)
	if err != nil {
		return err
	}
	*name = p
	*updateRate = st.updateRate
	*active = com.BoolOf(st.active)
	*timeBias = st.timeBias
	*percentDeadband = st.deadband
	*lcid = st.lcid
	*clientGroup = st.clientGroup
	*serverGroup = h
	return nil
}

// SetState implements IOPCGroupStateMgt.SetState. Nil inputs leave the
// setting unchanged; revisedUpdateRate is always written.
func (g *Group) SetState(requestedUpdateRate *uint32, revisedUpdateRate *uint32, active *com.BOOL, timeBias *int32, percentDeadband *float32, lcid *uint32, clientGroup *uint32) (err error) {
	defer g.tel.start("IOPCGroupStateMgt.SetState").end(&err)
	if revisedUpdateRate == nil {
		return errors.NilPointer(errors.PhaseServer, "pRevisedUpdateRate")
	}
	if percentDeadband != nil {
		if err := checkDeadband(*percentDeadband); err != nil {
			return err
		}
	}

	g.mu.Lock()
	if err := g.checkLive(); err != nil {
		g.mu.Unlock()
		return err
	}
	rateChanged := false
	if requestedUpdateRate != nil {
		rate := reviseRate(*requestedUpdateRate, g.server.opts.MinUpdateRate)
		rateChanged = rate != g.st.updateRate
		g.st.updateRate = rate
	}
	activated := false
	if active != nil {
		activated = active.Bool() && !g.st.active
		g.st.active = active.Bool()
	}
	if timeBias != nil {
		g.st.timeBias = *timeBias
	}
	if percentDeadband != nil {
		g.st.deadband = *percentDeadband
	}
	if lcid != nil {
		g.st.lcid = *lcid
	}
	if clientGroup != nil {
		g.st.clientGroup = *clientGroup
	}
	*revisedUpdateRate = g.st.updateRate
	if activated {
		g.resetLastSent()
	}
	g.mu.Unlock()

	if rateChanged || activated {
		g.kick()
	}
	return nil
}

// SetName implements IOPCGroupStateMgt.SetName.
func (g *Group) SetName(name *uint16) (err error) {
	defer g.tel.start("IOPCGroupStateMgt.SetName").end(&err)
	if name == nil {
		return errors.NilPointer(errors.PhaseServer, "szName")
	}
	n := memory.WStringToString(name)
	if n == "" {
		return errors.InvalidArgument(errors.PhaseServer, nil, "empty group name")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkLive(); err != nil {
		return err
	}
	if err := g.server.groups.Rename(resource.Handle(g.handle), n); err != nil {
		if errors.Is(err, resource.ErrDuplicate) {
			return errors.New(errors.PhaseServer, errors.KindInvalidArgument).
				Code(opc.OPC_E_DUPLICATENAME).
				Value(n).
				Detail("group name already in use").
				Build()
		}
		return errors.Wrap(errors.PhaseServer, errors.KindForeign, err, "rename group")
	}
	g.st.name = n
	return nil
}

// CloneGroup implements IOPCGroupStateMgt.CloneGroup. The clone is
// inactive, copies every item with fresh handles and has no subscribers.
func (g *Group) CloneGroup(name *uint16, riid *com.GUID, unk *com.Unknown) (err error) {
	defer g.tel.start("IOPCGroupStateMgt.CloneGroup").end(&err)
	if riid == nil || unk == nil {
		return errors.NilPointer(errors.PhaseServer, "CloneGroup")
	}
	*unk = nil

	g.mu.Lock()
	if err := g.checkLive(); err != nil {
		g.mu.Unlock()
		return err
	}
	st := g.st
	st.name = memory.WStringToString(name)
	st.active = false
	var copies []*item
	g.items.Each(func(_ resource.Handle, _ string, it *item) bool {
		copies = append(copies, it.clone())
		return true
	})
	g.mu.Unlock()

	clone, err := g.server.insertGroup(st, copies)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidArgument) && st.name != "" {
			return errors.New(errors.PhaseServer, errors.KindInvalidArgument).
				Code(opc.OPC_E_DUPLICATENAME).
				Value(st.name).
				Detail("group name already in use").
				Build()
		}
		return err
	}
	if err := com.WriteUnknown(clone, riid, unk); err != nil {
		g.server.groups.Remove(resource.Handle(clone.Handle()))
		return err
	}
	return nil
}

// SetKeepAlive implements IOPCGroupStateMgt2.SetKeepAlive. A non-zero
// keep-alive is revised up to the update loop resolution.
func (g *Group) SetKeepAlive(keepAlive uint32, revised *uint32) (err error) {
	defer g.tel.start("IOPCGroupStateMgt2.SetKeepAlive").end(&err)
	if revised == nil {
		return errors.NilPointer(errors.PhaseServer, "pdwRevisedKeepAliveTime")
	}
	if keepAlive != 0 {
		keepAlive = reviseRate(keepAlive, uint32(minTick/time.Millisecond))
	}
	g.mu.Lock()
	g.st.keepAlive = keepAlive
	g.mu.Unlock()
	*revised = keepAlive
	g.kick()
	return nil
}

// GetKeepAlive implements IOPCGroupStateMgt2.GetKeepAlive.
func (g *Group) GetKeepAlive(keepAlive *uint32) (err error) {
	defer g.tel.start("IOPCGroupStateMgt2.GetKeepAlive").end(&err)
	g.mu.Lock()
	defer g.mu.Unlock()
	return writeOut(keepAlive, g.st.keepAlive, "pdwKeepAliveTime")
}

// EnumConnectionPoints implements IConnectionPointContainer.
func (g *Group) EnumConnectionPoints() (com.EnumConnectionPoints, error) {
	return g.points.enumerate(), nil
}

// FindConnectionPoint implements IConnectionPointContainer. The group
// supports IOPCDataCallback.
func (g *Group) FindConnectionPoint(iid *com.GUID) (com.ConnectionPoint, error) {
	return g.points.find(iid)
}

// callback returns the data callback point when a sink is advised.
func (g *Group) callback() (*connectionPoint, bool) {
	cp := g.points.lookup(da.IID_IOPCDataCallback)
	if cp == nil || !cp.connected() {
		return nil, false
	}
	return cp, true
}

func (g *Group) logger() *zap.Logger {
	return Logger().With(zap.Uint32("group", g.Handle()))
}
