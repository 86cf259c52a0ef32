package com

import (
	ole "github.com/go-ole/go-ole"
	"github.com/google/uuid"

	"github.com/wippyai/opc-classic/errors"
)

// GUID is a 128-bit interface, class or category identifier.
type GUID = ole.GUID

// ParseGUID parses the braced, dashed or bare hex forms.
func ParseGUID(s string) (GUID, error) {
	g := ole.NewGUID(s)
	if g == nil {
		return GUID{}, errors.New(errors.PhaseCOM, errors.KindInvalidArgument).
			Value(s).
			Detail("malformed GUID %q", s).
			Build()
	}
	return *g, nil
}

// MustParseGUID parses s and panics on failure. For identifiers fixed by
// the interface specifications.
func MustParseGUID(s string) GUID {
	g, err := ParseGUID(s)
	if err != nil {
		panic(err)
	}
	return g
}

// NewGUID returns a random identifier.
func NewGUID() GUID {
	return MustParseGUID(uuid.New().String())
}

// EqualGUID reports whether a and b are the same identifier.
func EqualGUID(a, b *GUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

var (
	IID_NULL                      = GUID{}
	IID_IUnknown                  = MustParseGUID("{00000000-0000-0000-C000-000000000046}")
	IID_IEnumUnknown              = MustParseGUID("{00000100-0000-0000-C000-000000000046}")
	IID_IEnumString               = MustParseGUID("{00000101-0000-0000-C000-000000000046}")
	IID_IDataObject               = MustParseGUID("{0000010E-0000-0000-C000-000000000046}")
	IID_IEnumGUID                 = MustParseGUID("{0002E000-0000-0000-C000-000000000046}")
	IID_IConnectionPointContainer = MustParseGUID("{B196B284-BAB4-101A-B69C-00AA00341D07}")
	IID_IEnumConnectionPoints     = MustParseGUID("{B196B285-BAB4-101A-B69C-00AA00341D07}")
	IID_IConnectionPoint          = MustParseGUID("{B196B286-BAB4-101A-B69C-00AA00341D07}")
	IID_IEnumConnections          = MustParseGUID("{B196B287-BAB4-101A-B69C-00AA00341D07}")
)

var interfaceNames = map[GUID]string{
	IID_IUnknown:                  "IUnknown",
	IID_IEnumUnknown:              "IEnumUnknown",
	IID_IEnumString:               "IEnumString",
	IID_IDataObject:               "IDataObject",
	IID_IEnumGUID:                 "IEnumGUID",
	IID_IConnectionPointContainer: "IConnectionPointContainer",
	IID_IEnumConnectionPoints:     "IEnumConnectionPoints",
	IID_IConnectionPoint:          "IConnectionPoint",
	IID_IEnumConnections:          "IEnumConnections",
}

// RegisterInterfaceName records a display name for iid, used in errors and
// logs. Call from package init only.
func RegisterInterfaceName(iid GUID, name string) {
	interfaceNames[iid] = name
}

// InterfaceName returns the display name of iid, or its string form.
func InterfaceName(iid *GUID) string {
	if iid == nil {
		return "<nil>"
	}
	if name, ok := interfaceNames[*iid]; ok {
		return name
	}
	return iid.String()
}
