package server

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/addrspace"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/enum"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/memory"
	"github.com/wippyai/opc-classic/resource"
)

var serverInterfaces = com.InterfaceSet{
	&da.IID_IOPCServer,
	&da.IID_IOPCBrowseServerAddressSpace,
	&da.IID_IOPCItemProperties,
	&da.IID_IOPCBrowse,
	&da.IID_IOPCItemIO,
	&com.IID_IConnectionPointContainer,
}

// Server is an OPC DA 2.0/3.0 server over an in-memory address space.
// All methods are safe for concurrent use.
type Server struct {
	opts   Options
	alloc  memory.Allocator
	space  *addrspace.Space
	tel    *telemetry
	groups *resource.Table[*Group]
	points *connectionPoints
	start  time.Time

	mu            sync.Mutex
	state         da.ServerState
	removed       bool
	lcid          uint32
	clientName    string
	position      *addrspace.Node
	lastUpdate    time.Time
	continuations map[string]continuation
	nameSeq       uint32
}

// New creates a running server over space.
func New(space *addrspace.Space, opts Options) *Server {
	opts = opts.withDefaults()
	s := &Server{
		opts:          opts,
		alloc:         opts.Allocator,
		space:         space,
		tel:           newTelemetry(opts.TracerProvider, opts.MeterProvider),
		groups:        resource.NewTable[*Group](),
		state:         da.StateRunning,
		lcid:          opts.Locales[0],
		position:      space.Root(),
		continuations: make(map[string]continuation),
	}
	s.start = opts.Clock()
	s.points = newConnectionPoints(s, s.tel, da.IID_IOPCShutdown)
	return s
}

// QueryInterface resolves the server's interfaces. IOPCCommon shares a
// method name with IOPCServer and is served by a separate view.
func (s *Server) QueryInterface(iid *com.GUID) (com.Unknown, error) {
	if iid != nil && *iid == da.IID_IOPCCommon {
		return (*commonView)(s), nil
	}
	return serverInterfaces.Query(s, iid)
}

// Space returns the address space the server exposes.
func (s *Server) Space() *addrspace.Space { return s.space }

// CLSID returns the class identifier the server was configured with.
func (s *Server) CLSID() com.GUID { return s.opts.CLSID }

// State returns the current server state.
func (s *Server) State() da.ServerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState moves the server to state. A removed server cannot change
// state.
func (s *Server) SetState(state da.ServerState) error {
	if !state.Valid() {
		return errors.InvalidEnum(errors.PhaseServer, uint32(state), "ServerState")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return errShutdown()
	}
	Logger().Debug("server state changed",
		zap.Stringer("from", s.state),
		zap.Stringer("to", state))
	s.state = state
	return nil
}

// Shutdown asks every advised IOPCShutdown sink to disconnect, removes all
// groups and moves the server to the removed state.
func (s *Server) Shutdown(reason string) error {
	s.mu.Lock()
	if s.removed {
		s.mu.Unlock()
		return nil
	}
	s.removed = true
	s.mu.Unlock()

	text, err := memory.NewLocalWString(reason)
	if err != nil {
		return err
	}
	n := fanOut(s.points.lookup(da.IID_IOPCShutdown), "ShutdownRequest", func(sink da.Shutdown) error {
		return sink.ShutdownRequest(text.PCWSTR())
	})
	Logger().Info("server shut down",
		zap.String("reason", reason),
		zap.Int("notified", n))
	return s.groups.Close()
}

func errShutdown() error {
	return errors.New(errors.PhaseServer, errors.KindForeign).
		Code(opc.E_FAIL).
		Detail("server has been shut down").
		Build()
}

func (s *Server) checkLive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return errShutdown()
	}
	return nil
}

// touch records a data delivery for the status record.
func (s *Server) touch(t time.Time) {
	s.mu.Lock()
	s.lastUpdate = t
	s.mu.Unlock()
}

// Group returns the group registered under handle.
func (s *Server) Group(handle uint32) (*Group, bool) {
	return s.groups.Get(resource.Handle(handle))
}

// Groups returns the live groups in creation order.
func (s *Server) Groups() []*Group {
	return s.groups.Values()
}

// AddGroup implements IOPCServer.AddGroup. The revised update rate is the
// requested rate raised to the configured minimum.
func (s *Server) AddGroup(name *uint16, active com.BOOL, requestedUpdateRate uint32, clientGroup uint32, timeBias *int32, percentDeadband *float32, lcid uint32, serverGroup *uint32, revisedUpdateRate *uint32, riid *com.GUID, unk *com.Unknown) (err error) {
	defer s.tel.start("IOPCServer.AddGroup").end(&err)

	if serverGroup == nil || revisedUpdateRate == nil || unk == nil || riid == nil {
		return errors.NilPointer(errors.PhaseServer, "AddGroup")
	}
	*unk = nil
	if err := s.checkLive(); err != nil {
		return err
	}

	st := groupState{
		name:        memory.WStringToString(name),
		active:      active.Bool(),
		updateRate:  reviseRate(requestedUpdateRate, s.opts.MinUpdateRate),
		clientGroup: clientGroup,
		lcid:        lcid,
	}
	if percentDeadband != nil {
		if err := checkDeadband(*percentDeadband); err != nil {
			return err
		}
		st.deadband = *percentDeadband
	}
	if timeBias != nil {
		st.timeBias = *timeBias
	} else {
		st.timeBias = localTimeBias(s.opts.Clock())
	}

	g, err := s.insertGroup(st, nil)
	if err != nil {
		return err
	}
	if err := com.WriteUnknown(g, riid, unk); err != nil {
		s.groups.Remove(resource.Handle(g.handle))
		return err
	}
	*serverGroup = g.handle
	*revisedUpdateRate = st.updateRate
	return nil
}

// insertGroup registers a group built from st. A generated name is used
// when st.name is empty. items, when set, are bound before the group is
// visible to its update loop.
func (s *Server) insertGroup(st groupState, items []*item) (*Group, error) {
	generated := st.name == ""
	for {
		if generated {
			st.name = s.nextGroupName()
		}
		g := newGroup(s, st)
		for _, it := range items {
			if err := g.bind(it); err != nil {
				return nil, err
			}
		}
		h, err := s.groups.Insert(st.name, g)
		if errors.Is(err, resource.ErrDuplicate) {
			if generated {
				continue
			}
			return nil, errors.New(errors.PhaseServer, errors.KindInvalidArgument).
				Value(st.name).
				Detail("group name already in use").
				Build()
		}
		if err != nil {
			return nil, errors.Wrap(errors.PhaseServer, errors.KindForeign, err, "register group")
		}
		g.open(uint32(h))
		Logger().Debug("group added",
			zap.Uint32("group", uint32(h)),
			zap.String("name", st.name),
			zap.Uint32("rate", st.updateRate))
		return g, nil
	}
}

func (s *Server) nextGroupName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nameSeq++
	return fmt.Sprintf("Group%d", s.nameSeq)
}

func checkDeadband(d float32) error {
	if math.IsNaN(float64(d)) || d < 0 || d > 100 {
		return errors.New(errors.PhaseServer, errors.KindInvalidArgument).
			Value(d).
			Detail("percent deadband must be within [0, 100]").
			Build()
	}
	return nil
}

// localTimeBias returns the local zone's bias in minutes, as UTC minus
// local time.
func localTimeBias(t time.Time) int32 {
	_, offset := t.Zone()
	return int32(-offset / 60)
}

// GetErrorString implements IOPCServer.GetErrorString.
func (s *Server) GetErrorString(code opc.HRESULT, lcid uint32, str **uint16) (err error) {
	defer s.tel.start("IOPCServer.GetErrorString").end(&err)
	if str == nil {
		return errors.NilPointer(errors.PhaseServer, "ppString")
	}
	*str = nil
	if !s.localeSupported(lcid) {
		return errors.InvalidArgument(errors.PhaseServer, nil, fmt.Sprintf("unsupported locale 0x%X", lcid))
	}
	return s.errorString(code, str)
}

func (s *Server) errorString(code opc.HRESULT, str **uint16) error {
	text, ok := ErrorText(code)
	if !ok {
		return errors.New(errors.PhaseServer, errors.KindInvalidArgument).
			Value(code.String()).
			Detail("unknown error code").
			Build()
	}
	p, err := memory.AllocWString(s.alloc, text)
	if err != nil {
		return err
	}
	*str = p
	return nil
}

// GetGroupByName implements IOPCServer.GetGroupByName.
func (s *Server) GetGroupByName(name *uint16, riid *com.GUID, unk *com.Unknown) (err error) {
	defer s.tel.start("IOPCServer.GetGroupByName").end(&err)
	if name == nil || unk == nil {
		return errors.NilPointer(errors.PhaseServer, "GetGroupByName")
	}
	*unk = nil
	n := memory.WStringToString(name)
	_, g, ok := s.groups.Lookup(n)
	if !ok {
		return errors.NotFound(errors.PhaseServer, "group", n)
	}
	return com.WriteUnknown(g, riid, unk)
}

// GetStatus implements IOPCServer.GetStatus. Release the record with
// da.FreeServerStatus.
func (s *Server) GetStatus(status **da.ServerStatus) (err error) {
	defer s.tel.start("IOPCServer.GetStatus").end(&err)
	if status == nil {
		return errors.NilPointer(errors.PhaseServer, "ppServerStatus")
	}
	*status = nil

	s.mu.Lock()
	state := s.state
	last := s.lastUpdate
	s.mu.Unlock()

	o := newOutputs(s.alloc)
	rec, err := one[da.ServerStatus](o)
	if err != nil {
		return o.finish(err)
	}
	vendor, err := o.wstring(s.opts.VendorInfo)
	if err != nil {
		return o.finish(err)
	}
	*rec = da.ServerStatus{
		StartTime:    com.FileTimeFromTime(s.start),
		CurrentTime:  com.FileTimeFromTime(s.opts.Clock()),
		ServerState:  state,
		GroupCount:   uint32(s.groups.Len()),
		BandWidth:    math.MaxUint32,
		MajorVersion: s.opts.MajorVersion,
		MinorVersion: s.opts.MinorVersion,
		BuildNumber:  s.opts.BuildNumber,
		VendorInfo:   vendor,
	}
	if !last.IsZero() {
		rec.LastUpdateTime = com.FileTimeFromTime(last)
	}
	*status = rec
	return o.finish(nil)
}

// RemoveGroup implements IOPCServer.RemoveGroup. The group stops its
// update loop and drops pending completions. References held elsewhere
// stay valid but the group is no longer reachable through the server.
func (s *Server) RemoveGroup(serverGroup uint32, force com.BOOL) (err error) {
	defer s.tel.start("IOPCServer.RemoveGroup").end(&err)
	if _, ok := s.groups.Remove(resource.Handle(serverGroup)); !ok {
		return errors.NotFound(errors.PhaseServer, "group handle", serverGroup)
	}
	Logger().Debug("group removed",
		zap.Uint32("group", serverGroup),
		zap.Bool("force", force.Bool()))
	return nil
}

// CreateGroupEnumerator implements IOPCServer.CreateGroupEnumerator. Public
// groups are not supported, so public scopes enumerate nothing.
func (s *Server) CreateGroupEnumerator(scope da.EnumScope, riid *com.GUID, unk *com.Unknown) (err error) {
	defer s.tel.start("IOPCServer.CreateGroupEnumerator").end(&err)
	if riid == nil || unk == nil {
		return errors.NilPointer(errors.PhaseServer, "CreateGroupEnumerator")
	}
	*unk = nil
	if !scope.Valid() {
		return errors.InvalidEnum(errors.PhaseServer, uint32(scope), "EnumScope")
	}

	var groups []*Group
	if scope != da.ScopePublic && scope != da.ScopePublicConnections {
		groups = s.groups.Values()
	}

	switch *riid {
	case com.IID_IEnumString:
		names := make([]string, len(groups))
		for i, g := range groups {
			names[i] = g.Name()
		}
		*unk = enum.NewStrings(s.alloc, names)
	case com.IID_IEnumUnknown:
		objs := make([]com.Unknown, len(groups))
		for i, g := range groups {
			objs[i] = g
		}
		*unk = enum.NewUnknowns(objs)
	default:
		return errors.InterfaceMissing(errors.PhaseServer, com.InterfaceName(riid))
	}
	return nil
}

// EnumConnectionPoints implements IConnectionPointContainer.
func (s *Server) EnumConnectionPoints() (com.EnumConnectionPoints, error) {
	return s.points.enumerate(), nil
}

// FindConnectionPoint implements IConnectionPointContainer. The server
// supports IOPCShutdown.
func (s *Server) FindConnectionPoint(iid *com.GUID) (com.ConnectionPoint, error) {
	return s.points.find(iid)
}

func (s *Server) localeSupported(lcid uint32) bool {
	return lcid == da.LocaleNeutral || lcid == da.LocaleUserDefault || slices.Contains(s.opts.Locales, lcid)
}
