package client

import (
	"go.uber.org/zap"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/memory"
)

// Server is the capability-aggregated facade over an OPC DA server object.
// IOPCServer is required; every other interface fills an optional slot,
// and a call that needs an empty slot fails with a not_implemented error.
type Server struct {
	alloc    memory.Allocator
	versions opc.VersionSet
	version  opc.Version

	server    da.Server
	common    da.Common
	points    com.ConnectionPointContainer
	props     da.ItemPropertiesMgt
	browse    da.Browse
	browseSAS da.BrowseServerAddressSpace
	public    da.ServerPublicGroups
	itemIO    da.ItemIO
}

func newServer(c *Client, unk com.Unknown) (*Server, error) {
	root, err := com.Query[da.Server](unk, &da.IID_IOPCServer)
	if err != nil {
		return nil, errors.InterfaceMissing(errors.PhaseClient, "IOPCServer")
	}
	s := &Server{alloc: c.alloc, versions: c.versions, server: root}
	s.common, _ = slot[da.Common](unk, &da.IID_IOPCCommon)
	s.points, _ = slot[com.ConnectionPointContainer](unk, &com.IID_IConnectionPointContainer)
	s.props, _ = slot[da.ItemPropertiesMgt](unk, &da.IID_IOPCItemProperties)
	s.browse, _ = slot[da.Browse](unk, &da.IID_IOPCBrowse)
	s.browseSAS, _ = slot[da.BrowseServerAddressSpace](unk, &da.IID_IOPCBrowseServerAddressSpace)
	s.public, _ = slot[da.ServerPublicGroups](unk, &da.IID_IOPCServerPublicGroups)
	s.itemIO, _ = slot[da.ItemIO](unk, &da.IID_IOPCItemIO)

	v, ok := negotiate(c.versions, da.ServerCapabilities, s.Supports)
	if !ok {
		return nil, errors.VersionUnsupported(errors.PhaseClient,
			"server implements no requested DA version: "+c.versions.String())
	}
	s.version = v
	return s, nil
}

// Version returns the negotiated DA version.
func (s *Server) Version() opc.Version { return s.version }

// Supports reports whether the slot of c is filled.
func (s *Server) Supports(c *da.Capability) bool {
	switch c {
	case da.CapServer:
		return s.server != nil
	case da.CapCommon:
		return s.common != nil
	case da.CapServerConnectionPoints:
		return s.points != nil
	case da.CapItemProperties:
		return s.props != nil
	case da.CapBrowse:
		return s.browse != nil
	case da.CapBrowseServerAddressSpace:
		return s.browseSAS != nil
	case da.CapPublicGroups:
		return s.public != nil
	case da.CapItemIO:
		return s.itemIO != nil
	}
	return false
}

// Raw returns the IOPCServer interface.
func (s *Server) Raw() da.Server { return s.server }

// AddGroup creates a group. A zero update rate asks for the fastest rate
// the server offers; the revised rate is available from the group.
func (s *Server) AddGroup(name string, active bool, updateRate, clientHandle uint32, opts ...GroupOptions) (*Group, error) {
	var o GroupOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	pname, err := optWString(name)
	if err != nil {
		return nil, err
	}
	var handle, revised uint32
	var unk com.Unknown
	err = s.server.AddGroup(pname, com.BoolOf(active), updateRate, clientHandle, o.TimeBias, o.PercentDeadband, o.LocaleID,
		&handle, &revised, &da.IID_IOPCItemMgt, &unk)
	if err != nil {
		return nil, err
	}
	g, err := newGroup(s, unk)
	if err != nil {
		_ = s.server.RemoveGroup(handle, com.BoolOf(true))
		return nil, err
	}
	g.handle, g.revisedRate = handle, revised
	Logger().Debug("group added",
		zap.String("group", name),
		zap.Uint32("handle", handle),
		zap.Uint32("revised_rate", revised))
	return g, nil
}

// GetGroupByName returns the private group called name.
func (s *Server) GetGroupByName(name string) (*Group, error) {
	pname, err := wstring(name)
	if err != nil {
		return nil, err
	}
	var unk com.Unknown
	if err := s.server.GetGroupByName(pname, &da.IID_IOPCItemMgt, &unk); err != nil {
		return nil, err
	}
	return s.adoptGroup(unk)
}

// adoptGroup wraps a group obtained from the server and reads its handle.
func (s *Server) adoptGroup(unk com.Unknown) (*Group, error) {
	g, err := newGroup(s, unk)
	if err != nil {
		return nil, err
	}
	st, err := g.GetState()
	if err != nil {
		return nil, err
	}
	g.handle, g.revisedRate = st.ServerHandle, st.UpdateRate
	return g, nil
}

// RemoveGroup deletes the group with the given server handle.
func (s *Server) RemoveGroup(handle uint32, force bool) error {
	return s.server.RemoveGroup(handle, com.BoolOf(force))
}

// GroupNames lists the names of the groups in scope.
func (s *Server) GroupNames(scope da.EnumScope) ([]string, error) {
	var unk com.Unknown
	if err := s.server.CreateGroupEnumerator(scope, &com.IID_IEnumString, &unk); err != nil {
		return nil, err
	}
	e, ok := unk.(com.EnumString)
	if !ok {
		return nil, errors.InterfaceMissing(errors.PhaseClient, "IEnumString")
	}
	return NewStringIter(e, s.alloc).Collect()
}

// Groups returns facades over the groups in scope.
func (s *Server) Groups(scope da.EnumScope) ([]*Group, error) {
	var unk com.Unknown
	if err := s.server.CreateGroupEnumerator(scope, &com.IID_IEnumUnknown, &unk); err != nil {
		return nil, err
	}
	e, ok := unk.(com.EnumUnknown)
	if !ok {
		return nil, errors.InterfaceMissing(errors.PhaseClient, "IEnumUnknown")
	}
	objs, err := NewUnknownIter(e).Collect()
	if err != nil {
		return nil, err
	}
	out := make([]*Group, 0, len(objs))
	for _, o := range objs {
		g, err := s.adoptGroup(o)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// GetStatus returns the server status.
func (s *Server) GetStatus() (ServerStatus, error) {
	var p *da.ServerStatus
	if err := s.server.GetStatus(&p); err != nil {
		return ServerStatus{}, err
	}
	if p == nil {
		return ServerStatus{}, errors.NilPointer(errors.PhaseClient, "ppServerStatus")
	}
	st := ServerStatus{
		StartTime:      p.StartTime.Time(),
		CurrentTime:    p.CurrentTime.Time(),
		LastUpdateTime: p.LastUpdateTime.Time(),
		State:          p.ServerState,
		GroupCount:     p.GroupCount,
		BandWidth:      p.BandWidth,
		MajorVersion:   p.MajorVersion,
		MinorVersion:   p.MinorVersion,
		BuildNumber:    p.BuildNumber,
		VendorInfo:     memory.WStringToString(p.VendorInfo),
	}
	da.FreeServerStatus(s.alloc, p)
	return st, nil
}

// GetErrorString returns the server's text for code in locale lcid.
func (s *Server) GetErrorString(code opc.HRESULT, lcid uint32) (string, error) {
	var p *uint16
	if err := s.server.GetErrorString(code, lcid, &p); err != nil {
		return "", err
	}
	return takeString(s.alloc, p), nil
}

// SetLocaleID sets the default locale of the connection.
func (s *Server) SetLocaleID(lcid uint32) error {
	if s.common == nil {
		return missing("IOPCCommon")
	}
	return s.common.SetLocaleID(lcid)
}

// GetLocaleID returns the default locale of the connection.
func (s *Server) GetLocaleID() (uint32, error) {
	if s.common == nil {
		return 0, missing("IOPCCommon")
	}
	var lcid uint32
	err := s.common.GetLocaleID(&lcid)
	return lcid, err
}

// QueryAvailableLocaleIDs lists the locales the server supports.
func (s *Server) QueryAvailableLocaleIDs() ([]uint32, error) {
	if s.common == nil {
		return nil, missing("IOPCCommon")
	}
	var n uint32
	var p *uint32
	if err := s.common.QueryAvailableLocaleIDs(&n, &p); err != nil {
		return nil, err
	}
	return take(s.alloc, p, int(n)), nil
}

// SetClientName tells the server who is connected.
func (s *Server) SetClientName(name string) error {
	if s.common == nil {
		return missing("IOPCCommon")
	}
	p, err := wstring(name)
	if err != nil {
		return err
	}
	return s.common.SetClientName(p)
}

// ErrorString returns the server's text for code in the connection's
// locale.
func (s *Server) ErrorString(code opc.HRESULT) (string, error) {
	if s.common == nil {
		return "", missing("IOPCCommon")
	}
	var p *uint16
	if err := s.common.GetErrorString(code, &p); err != nil {
		return "", err
	}
	return takeString(s.alloc, p), nil
}

// OnShutdown advises fn to be called when the server asks clients to
// disconnect. It returns the cookie for CancelShutdown.
func (s *Server) OnShutdown(fn func(reason string)) (uint32, error) {
	if s.points == nil {
		return 0, missing("IConnectionPointContainer")
	}
	cp, err := s.points.FindConnectionPoint(&da.IID_IOPCShutdown)
	if err != nil {
		return 0, err
	}
	var cookie uint32
	if err := cp.Advise(&shutdownSink{fn: fn}, &cookie); err != nil {
		return 0, err
	}
	return cookie, nil
}

// CancelShutdown removes a shutdown subscription.
func (s *Server) CancelShutdown(cookie uint32) error {
	if s.points == nil {
		return missing("IConnectionPointContainer")
	}
	cp, err := s.points.FindConnectionPoint(&da.IID_IOPCShutdown)
	if err != nil {
		return err
	}
	return cp.Unadvise(cookie)
}

// GetPublicGroupByName returns the public group called name.
func (s *Server) GetPublicGroupByName(name string) (*Group, error) {
	if s.public == nil {
		return nil, missing("IOPCServerPublicGroups")
	}
	pname, err := wstring(name)
	if err != nil {
		return nil, err
	}
	var unk com.Unknown
	if err := s.public.GetPublicGroupByName(pname, &da.IID_IOPCItemMgt, &unk); err != nil {
		return nil, err
	}
	return s.adoptGroup(unk)
}

// RemovePublicGroup deletes a public group.
func (s *Server) RemovePublicGroup(handle uint32, force bool) error {
	if s.public == nil {
		return missing("IOPCServerPublicGroups")
	}
	return s.public.RemovePublicGroup(handle, com.BoolOf(force))
}
