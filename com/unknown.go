package com

import (
	"github.com/wippyai/opc-classic/errors"
)

// Unknown is object identity. QueryInterface returns an object that
// implements the contract named by iid, or an interface_missing error
// carrying E_NOINTERFACE.
type Unknown interface {
	QueryInterface(iid *GUID) (Unknown, error)
}

// Query resolves iid on u and asserts the result to contract T.
func Query[T any](u Unknown, iid *GUID) (T, error) {
	var zero T
	if u == nil {
		return zero, errors.NilPointer(errors.PhaseCOM, "Unknown")
	}
	obj, err := u.QueryInterface(iid)
	if err != nil {
		return zero, err
	}
	t, ok := obj.(T)
	if !ok {
		return zero, errors.InterfaceMissing(errors.PhaseCOM, InterfaceName(iid))
	}
	return t, nil
}

// InterfaceSet is the list of interfaces an object answers to. IUnknown is
// always included.
type InterfaceSet []*GUID

// Has reports whether iid is in the set or is IUnknown.
func (s InterfaceSet) Has(iid *GUID) bool {
	if iid == nil {
		return false
	}
	if *iid == IID_IUnknown {
		return true
	}
	for _, g := range s {
		if *g == *iid {
			return true
		}
	}
	return false
}

// Query returns self when iid is in the set.
func (s InterfaceSet) Query(self Unknown, iid *GUID) (Unknown, error) {
	if iid == nil {
		return nil, errors.NilPointer(errors.PhaseCOM, "riid")
	}
	if s.Has(iid) {
		return self, nil
	}
	return nil, errors.New(errors.PhaseCOM, errors.KindInterfaceMissing).
		Interface(InterfaceName(iid)).
		Build()
}

// WriteUnknown resolves iid on obj and stores the result in out.
func WriteUnknown(obj Unknown, iid *GUID, out *Unknown) error {
	if out == nil {
		return errors.NilPointer(errors.PhaseCOM, "ppUnk")
	}
	*out = nil
	u, err := obj.QueryInterface(iid)
	if err != nil {
		return err
	}
	*out = u
	return nil
}
