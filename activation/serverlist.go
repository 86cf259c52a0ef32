package activation

import (
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/enum"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/memory"
)

var registryInterfaces = com.InterfaceSet{&da.IID_IOPCServerList2}

// QueryInterface exposes the registry as IOPCServerList2, and as
// IOPCServerList through a view whose GetClassDetails omits the
// version-independent program id.
func (r *Registry) QueryInterface(iid *com.GUID) (com.Unknown, error) {
	if iid != nil && *iid == da.IID_IOPCServerList {
		return (*serverList)(r), nil
	}
	return registryInterfaces.Query(r, iid)
}

// EnumClassesOfCategories implements IOPCServerList2. A class matches
// when it is in at least one implemented category, or there are none,
// and in every required category.
func (r *Registry) EnumClassesOfCategories(implemented []com.GUID, required []com.GUID, out *com.EnumGUID) error {
	if out == nil {
		return errors.NilPointer(errors.PhaseActivation, "ppenumClsid")
	}
	*out = nil
	var ids []com.GUID
	for _, c := range r.Classes() {
		if matches(&c, implemented, required) {
			ids = append(ids, c.CLSID)
		}
	}
	*out = enum.NewGUIDs(ids)
	return nil
}

func matches(c *ClassInfo, implemented, required []com.GUID) bool {
	for _, cat := range required {
		if !c.Implements(cat) {
			return false
		}
	}
	if len(implemented) == 0 {
		return true
	}
	for _, cat := range implemented {
		if c.Implements(cat) {
			return true
		}
	}
	return false
}

// GetClassDetails implements IOPCServerList2.
func (r *Registry) GetClassDetails(clsid *com.GUID, progID **uint16, userType **uint16, verIndProgID **uint16) error {
	if clsid == nil || progID == nil || userType == nil || verIndProgID == nil {
		return errors.NilPointer(errors.PhaseActivation, "clsid", "ppszProgID", "ppszUserType", "ppszVerIndProgID")
	}
	*progID, *userType, *verIndProgID = nil, nil, nil
	info, ok := r.Lookup(*clsid)
	if !ok {
		return errors.ClassNotRegistered(clsid.String())
	}

	l := memory.NewAllocationList(r.alloc)
	strs := []struct {
		out **uint16
		s   string
	}{
		{progID, info.ProgID},
		{userType, info.UserType},
		{verIndProgID, info.VerIndProgID},
	}
	for _, str := range strs {
		p, err := memory.AllocWString(r.alloc, str.s)
		if err != nil {
			l.Free()
			*progID, *userType, *verIndProgID = nil, nil, nil
			return err
		}
		*str.out = memory.Track(l, p)
	}
	l.Reset()
	return nil
}

// CLSIDFromProgID implements IOPCServerList2.
func (r *Registry) CLSIDFromProgID(progID *uint16, clsid *com.GUID) error {
	if progID == nil || clsid == nil {
		return errors.NilPointer(errors.PhaseActivation, "szProgId", "clsid")
	}
	g, err := r.ResolveProgID(memory.WStringToString(progID))
	if err != nil {
		return err
	}
	*clsid = g
	return nil
}

// serverList is the IOPCServerList view of a Registry.
type serverList Registry

func (v *serverList) registry() *Registry { return (*Registry)(v) }

func (v *serverList) QueryInterface(iid *com.GUID) (com.Unknown, error) {
	return v.registry().QueryInterface(iid)
}

func (v *serverList) EnumClassesOfCategories(implemented []com.GUID, required []com.GUID, out *com.EnumGUID) error {
	return v.registry().EnumClassesOfCategories(implemented, required, out)
}

func (v *serverList) GetClassDetails(clsid *com.GUID, progID **uint16, userType **uint16) error {
	var verInd *uint16
	if err := v.registry().GetClassDetails(clsid, progID, userType, &verInd); err != nil {
		return err
	}
	memory.FreeWString(v.registry().alloc, verInd)
	return nil
}

func (v *serverList) CLSIDFromProgID(progID *uint16, clsid *com.GUID) error {
	return v.registry().CLSIDFromProgID(progID, clsid)
}

var (
	_ da.ServerList2 = (*Registry)(nil)
	_ da.ServerList  = (*serverList)(nil)
)
