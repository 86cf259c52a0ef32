package server

import (
	"maps"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/enum"
	"github.com/wippyai/opc-classic/errors"
)

// connectionPoint is one IConnectionPoint. Each advised sink is stored
// already resolved to the point's interface.
type connectionPoint struct {
	container com.ConnectionPointContainer
	tel       *telemetry
	iid       com.GUID
	mu        sync.RWMutex
	sinks     map[uint32]com.Unknown
	next      uint32
}

var connectionPointInterfaces = com.InterfaceSet{&com.IID_IConnectionPoint}

func newConnectionPoint(container com.ConnectionPointContainer, iid com.GUID, tel *telemetry) *connectionPoint {
	return &connectionPoint{
		container: container,
		tel:       tel,
		iid:       iid,
		sinks:     make(map[uint32]com.Unknown),
	}
}

func (cp *connectionPoint) QueryInterface(iid *com.GUID) (com.Unknown, error) {
	return connectionPointInterfaces.Query(cp, iid)
}

// GetConnectionInterface writes the interface the point delivers.
func (cp *connectionPoint) GetConnectionInterface(iid *com.GUID) error {
	return writeOut(iid, cp.iid, "pIID")
}

func (cp *connectionPoint) GetConnectionPointContainer() (com.ConnectionPointContainer, error) {
	return cp.container, nil
}

// Advise resolves the point's interface on sink and stores it under a
// fresh cookie. Cookies are never reused.
func (cp *connectionPoint) Advise(sink com.Unknown, cookie *uint32) error {
	if sink == nil || cookie == nil {
		return errors.NilPointer(errors.PhaseServer, "Advise")
	}
	*cookie = 0
	resolved, err := sink.QueryInterface(&cp.iid)
	if err != nil {
		return errors.New(errors.PhaseServer, errors.KindInterfaceMissing).
			Interface(com.InterfaceName(&cp.iid)).
			Code(opc.CONNECT_E_CANNOTCONNECT).
			Cause(err).
			Build()
	}

	cp.mu.Lock()
	if cp.next == ^uint32(0) {
		cp.mu.Unlock()
		return errors.New(errors.PhaseServer, errors.KindForeign).
			Code(opc.CONNECT_E_ADVISELIMIT).
			Detail("cookies exhausted").
			Build()
	}
	cp.next++
	c := cp.next
	cp.sinks[c] = resolved
	cp.mu.Unlock()

	*cookie = c
	Logger().Debug("sink advised",
		zap.String("interface", com.InterfaceName(&cp.iid)),
		zap.Uint32("cookie", c))
	return nil
}

// Unadvise drops the sink stored under cookie.
func (cp *connectionPoint) Unadvise(cookie uint32) error {
	cp.mu.Lock()
	_, ok := cp.sinks[cookie]
	delete(cp.sinks, cookie)
	cp.mu.Unlock()
	if !ok {
		return errors.New(errors.PhaseServer, errors.KindInvalidArgument).
			Code(opc.CONNECT_E_NOCONNECTION).
			Value(cookie).
			Detail("unknown cookie").
			Build()
	}
	Logger().Debug("sink unadvised",
		zap.String("interface", com.InterfaceName(&cp.iid)),
		zap.Uint32("cookie", cookie))
	return nil
}

func (cp *connectionPoint) EnumConnections() (com.EnumConnections, error) {
	return enum.NewConnections(cp.snapshot()), nil
}

// snapshot returns the live connections in cookie order.
func (cp *connectionPoint) snapshot() []com.CONNECTDATA {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	cookies := slices.Sorted(maps.Keys(cp.sinks))
	out := make([]com.CONNECTDATA, len(cookies))
	for i, c := range cookies {
		out[i] = com.CONNECTDATA{Unk: cp.sinks[c], Cookie: c}
	}
	return out
}

// connected reports whether any sink is advised.
func (cp *connectionPoint) connected() bool {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return len(cp.sinks) > 0
}

// fanOut calls fn for every advised sink of contract T in cookie order. A
// failing sink is logged and the remaining sinks are still called. It
// returns the number of successful deliveries.
func fanOut[T any](cp *connectionPoint, kind string, fn func(T) error) int {
	if cp == nil {
		return 0
	}
	delivered := 0
	for _, c := range cp.snapshot() {
		sink, ok := c.Unk.(T)
		if !ok {
			Logger().Warn("sink does not implement callback",
				zap.String("callback", kind),
				zap.Uint32("cookie", c.Cookie))
			continue
		}
		if err := fn(sink); err != nil {
			Logger().Warn("subscriber callback failed",
				zap.String("callback", kind),
				zap.Uint32("cookie", c.Cookie),
				zap.Error(err))
			continue
		}
		delivered++
	}
	cp.tel.notified(kind, delivered)
	return delivered
}

// connectionPoints is the connection point table of one container. Points
// are created on first lookup for the interfaces the container supports.
type connectionPoints struct {
	owner     com.ConnectionPointContainer
	tel       *telemetry
	supported []com.GUID
	mu        sync.Mutex
	points    map[com.GUID]*connectionPoint
}

func newConnectionPoints(owner com.ConnectionPointContainer, tel *telemetry, supported ...com.GUID) *connectionPoints {
	return &connectionPoints{
		owner:     owner,
		tel:       tel,
		supported: supported,
		points:    make(map[com.GUID]*connectionPoint),
	}
}

// find returns the point for iid, creating it on first use.
func (c *connectionPoints) find(iid *com.GUID) (*connectionPoint, error) {
	if iid == nil {
		return nil, errors.NilPointer(errors.PhaseServer, "riid")
	}
	if !slices.Contains(c.supported, *iid) {
		return nil, errors.New(errors.PhaseServer, errors.KindInterfaceMissing).
			Interface(com.InterfaceName(iid)).
			Code(opc.CONNECT_E_NOCONNECTION).
			Build()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cp, ok := c.points[*iid]
	if !ok {
		cp = newConnectionPoint(c.owner, *iid, c.tel)
		c.points[*iid] = cp
	}
	return cp, nil
}

// lookup returns the point for iid if it was ever created.
func (c *connectionPoints) lookup(iid com.GUID) *connectionPoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.points[iid]
}

// enumerate returns an enumerator over every supported point.
func (c *connectionPoints) enumerate() com.EnumConnectionPoints {
	out := make([]com.ConnectionPoint, 0, len(c.supported))
	for i := range c.supported {
		cp, err := c.find(&c.supported[i])
		if err == nil {
			out = append(out, cp)
		}
	}
	return enum.NewConnectionPoints(out)
}

func writeOut[T any](out *T, v T, name string) error {
	if out == nil {
		return errors.NilPointer(errors.PhaseServer, name)
	}
	*out = v
	return nil
}
