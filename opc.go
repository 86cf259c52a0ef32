package opc

import (
	"fmt"
	"strings"
)

// HRESULT is the 32-bit status word returned across the object boundary.
// The high bit marks failure.
type HRESULT uint32

const (
	S_OK    HRESULT = 0x00000000
	S_FALSE HRESULT = 0x00000001

	E_NOTIMPL      HRESULT = 0x80004001
	E_NOINTERFACE  HRESULT = 0x80004002
	E_POINTER      HRESULT = 0x80004003
	E_ABORT        HRESULT = 0x80004004
	E_FAIL         HRESULT = 0x80004005
	E_UNEXPECTED   HRESULT = 0x8000FFFF
	E_ACCESSDENIED HRESULT = 0x80070005
	E_OUTOFMEMORY  HRESULT = 0x8007000E
	E_INVALIDARG   HRESULT = 0x80070057

	REGDB_E_CLASSNOTREG     HRESULT = 0x80040154
	CO_E_CLASSSTRING        HRESULT = 0x800401F3
	CONNECT_E_NOCONNECTION  HRESULT = 0x80040200
	CONNECT_E_ADVISELIMIT   HRESULT = 0x80040201
	CONNECT_E_CANNOTCONNECT HRESULT = 0x80040202
)

// OPC DA status codes.
const (
	OPC_E_INVALIDHANDLE            HRESULT = 0xC0040001
	OPC_E_BADTYPE                  HRESULT = 0xC0040004
	OPC_E_PUBLIC                   HRESULT = 0xC0040005
	OPC_E_BADRIGHTS                HRESULT = 0xC0040006
	OPC_E_UNKNOWNITEMID            HRESULT = 0xC0040007
	OPC_E_INVALIDITEMID            HRESULT = 0xC0040008
	OPC_E_INVALIDFILTER            HRESULT = 0xC0040009
	OPC_E_UNKNOWNPATH              HRESULT = 0xC004000A
	OPC_E_RANGE                    HRESULT = 0xC004000B
	OPC_E_DUPLICATENAME            HRESULT = 0xC004000C
	OPC_S_UNSUPPORTEDRATE          HRESULT = 0x0004000D
	OPC_S_CLAMP                    HRESULT = 0x0004000E
	OPC_S_INUSE                    HRESULT = 0x0004000F
	OPC_E_INVALIDCONFIGFILE        HRESULT = 0xC0040010
	OPC_E_NOTFOUND                 HRESULT = 0xC0040011
	OPC_E_INVALID_PID              HRESULT = 0xC0040203
	OPC_E_DEADBANDNOTSET           HRESULT = 0xC0040400
	OPC_E_DEADBANDNOTSUPPORTED     HRESULT = 0xC0040401
	OPC_E_NOBUFFERING              HRESULT = 0xC0040402
	OPC_E_INVALIDCONTINUATIONPOINT HRESULT = 0xC0040403
	OPC_S_DATAQUEUEOVERFLOW        HRESULT = 0x00040404
	OPC_E_RATENOTSET               HRESULT = 0xC0040405
	OPC_E_NOTSUPPORTED             HRESULT = 0xC0040406
)

// Succeeded reports whether hr is a success code.
func (hr HRESULT) Succeeded() bool { return hr&0x80000000 == 0 }

// Failed reports whether hr is a failure code.
func (hr HRESULT) Failed() bool { return hr&0x80000000 != 0 }

var hresultNames = map[HRESULT]string{
	S_OK:                           "S_OK",
	S_FALSE:                        "S_FALSE",
	E_NOTIMPL:                      "E_NOTIMPL",
	E_NOINTERFACE:                  "E_NOINTERFACE",
	E_POINTER:                      "E_POINTER",
	E_ABORT:                        "E_ABORT",
	E_FAIL:                         "E_FAIL",
	E_UNEXPECTED:                   "E_UNEXPECTED",
	E_ACCESSDENIED:                 "E_ACCESSDENIED",
	E_OUTOFMEMORY:                  "E_OUTOFMEMORY",
	E_INVALIDARG:                   "E_INVALIDARG",
	REGDB_E_CLASSNOTREG:            "REGDB_E_CLASSNOTREG",
	CO_E_CLASSSTRING:               "CO_E_CLASSSTRING",
	CONNECT_E_NOCONNECTION:         "CONNECT_E_NOCONNECTION",
	CONNECT_E_ADVISELIMIT:          "CONNECT_E_ADVISELIMIT",
	CONNECT_E_CANNOTCONNECT:        "CONNECT_E_CANNOTCONNECT",
	OPC_E_INVALIDHANDLE:            "OPC_E_INVALIDHANDLE",
	OPC_E_BADTYPE:                  "OPC_E_BADTYPE",
	OPC_E_PUBLIC:                   "OPC_E_PUBLIC",
	OPC_E_BADRIGHTS:                "OPC_E_BADRIGHTS",
	OPC_E_UNKNOWNITEMID:            "OPC_E_UNKNOWNITEMID",
	OPC_E_INVALIDITEMID:            "OPC_E_INVALIDITEMID",
	OPC_E_INVALIDFILTER:            "OPC_E_INVALIDFILTER",
	OPC_E_UNKNOWNPATH:              "OPC_E_UNKNOWNPATH",
	OPC_E_RANGE:                    "OPC_E_RANGE",
	OPC_E_DUPLICATENAME:            "OPC_E_DUPLICATENAME",
	OPC_S_UNSUPPORTEDRATE:          "OPC_S_UNSUPPORTEDRATE",
	OPC_S_CLAMP:                    "OPC_S_CLAMP",
	OPC_S_INUSE:                    "OPC_S_INUSE",
	OPC_E_INVALIDCONFIGFILE:        "OPC_E_INVALIDCONFIGFILE",
	OPC_E_NOTFOUND:                 "OPC_E_NOTFOUND",
	OPC_E_INVALID_PID:              "OPC_E_INVALID_PID",
	OPC_E_DEADBANDNOTSET:           "OPC_E_DEADBANDNOTSET",
	OPC_E_DEADBANDNOTSUPPORTED:     "OPC_E_DEADBANDNOTSUPPORTED",
	OPC_E_NOBUFFERING:              "OPC_E_NOBUFFERING",
	OPC_E_INVALIDCONTINUATIONPOINT: "OPC_E_INVALIDCONTINUATIONPOINT",
	OPC_S_DATAQUEUEOVERFLOW:        "OPC_S_DATAQUEUEOVERFLOW",
	OPC_E_RATENOTSET:               "OPC_E_RATENOTSET",
	OPC_E_NOTSUPPORTED:             "OPC_E_NOTSUPPORTED",
}

// String returns the symbolic name of hr, or its hex form when unknown.
func (hr HRESULT) String() string {
	if name, ok := hresultNames[hr]; ok {
		return name
	}
	return fmt.Sprintf("0x%08X", uint32(hr))
}

// Version identifies an OPC Data Access specification revision.
type Version uint8

const (
	V1 Version = 1
	V2 Version = 2
	V3 Version = 3
)

// Versions lists the supported versions in ascending order.
var Versions = []Version{V1, V2, V3}

func (v Version) String() string {
	switch v {
	case V1:
		return "DA1.0"
	case V2:
		return "DA2.0"
	case V3:
		return "DA3.0"
	default:
		return fmt.Sprintf("DA?(%d)", uint8(v))
	}
}

// Valid reports whether v is one of V1, V2 or V3.
func (v Version) Valid() bool { return v >= V1 && v <= V3 }

// ParseVersion accepts the String form ("DA2.0") and the bare major
// number ("2").
func ParseVersion(s string) (Version, error) {
	for _, v := range Versions {
		if strings.EqualFold(s, v.String()) || s == fmt.Sprint(uint8(v)) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown DA version %q", s)
}

// VersionSet is a bit set of versions.
type VersionSet uint8

// AllVersions contains V1, V2 and V3.
const AllVersions = VersionSet(1<<V1 | 1<<V2 | 1<<V3)

// NewVersionSet builds a set from the given versions. Invalid versions are ignored.
func NewVersionSet(vs ...Version) VersionSet {
	var s VersionSet
	for _, v := range vs {
		if v.Valid() {
			s |= 1 << v
		}
	}
	return s
}

// Has reports whether v is in the set.
func (s VersionSet) Has(v Version) bool { return v.Valid() && s&(1<<v) != 0 }

// Empty reports whether the set has no versions.
func (s VersionSet) Empty() bool { return s&AllVersions == 0 }

// List returns the members in ascending order.
func (s VersionSet) List() []Version {
	var out []Version
	for _, v := range Versions {
		if s.Has(v) {
			out = append(out, v)
		}
	}
	return out
}

// Highest returns the largest member, or 0 when empty.
func (s VersionSet) Highest() Version {
	for i := len(Versions) - 1; i >= 0; i-- {
		if s.Has(Versions[i]) {
			return Versions[i]
		}
	}
	return 0
}

func (s VersionSet) String() string {
	vs := s.List()
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = v.String()
	}
	return "{" + strings.Join(names, ",") + "}"
}
