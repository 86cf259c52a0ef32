package da

import (
	"fmt"

	"github.com/wippyai/opc-classic/errors"
)

// DataSource selects cache or device reads.
type DataSource uint32

const (
	SourceCache  DataSource = 1
	SourceDevice DataSource = 2
)

func (s DataSource) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceDevice:
		return "device"
	}
	return fmt.Sprintf("DataSource(%d)", uint32(s))
}

// Valid reports whether s is a defined source.
func (s DataSource) Valid() bool { return s == SourceCache || s == SourceDevice }

// ServerState is OPCSERVERSTATE.
type ServerState uint32

const (
	StateRunning ServerState = iota + 1
	StateFailed
	StateNoConfig
	StateSuspended
	StateTest
	StateCommFault
)

var serverStateNames = [...]string{"", "running", "failed", "noconfig", "suspended", "test", "comm_fault"}

func (s ServerState) String() string {
	if s.Valid() {
		return serverStateNames[s]
	}
	return fmt.Sprintf("ServerState(%d)", uint32(s))
}

// Valid reports whether s is a defined state.
func (s ServerState) Valid() bool { return s >= StateRunning && s <= StateCommFault }

// EnumScope is OPCENUMSCOPE.
type EnumScope uint32

const (
	ScopePrivateConnections EnumScope = iota + 1
	ScopePublicConnections
	ScopeAllConnections
	ScopePublic
	ScopePrivate
	ScopeAll
)

// Valid reports whether s is a defined scope.
func (s EnumScope) Valid() bool { return s >= ScopePrivateConnections && s <= ScopeAll }

// BrowseDirection is OPCBROWSEDIRECTION.
type BrowseDirection uint32

const (
	BrowseUp BrowseDirection = iota + 1
	BrowseDown
	BrowseTo
)

func (d BrowseDirection) String() string {
	switch d {
	case BrowseUp:
		return "up"
	case BrowseDown:
		return "down"
	case BrowseTo:
		return "to"
	}
	return fmt.Sprintf("BrowseDirection(%d)", uint32(d))
}

// Valid reports whether d is a defined direction.
func (d BrowseDirection) Valid() bool { return d >= BrowseUp && d <= BrowseTo }

// BrowseType is OPCBROWSETYPE.
type BrowseType uint32

const (
	BrowseBranch BrowseType = iota + 1
	BrowseLeaf
	BrowseFlat
)

func (t BrowseType) String() string {
	switch t {
	case BrowseBranch:
		return "branch"
	case BrowseLeaf:
		return "leaf"
	case BrowseFlat:
		return "flat"
	}
	return fmt.Sprintf("BrowseType(%d)", uint32(t))
}

// Valid reports whether t is a defined browse type.
func (t BrowseType) Valid() bool { return t >= BrowseBranch && t <= BrowseFlat }

// ParseBrowseType accepts "branch", "leaf" or "flat".
func ParseBrowseType(s string) (BrowseType, error) {
	for t := BrowseBranch; t <= BrowseFlat; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, errors.InvalidEnum(errors.PhaseBrowse, s, "BrowseType")
}

// BrowseFilter is OPCBROWSEFILTER, used by IOPCBrowse.
type BrowseFilter uint32

const (
	FilterAll BrowseFilter = iota + 1
	FilterBranches
	FilterItems
)

// Valid reports whether f is a defined filter.
func (f BrowseFilter) Valid() bool { return f >= FilterAll && f <= FilterItems }

// NamespaceType is OPCNAMESPACETYPE.
type NamespaceType uint32

const (
	NamespaceHierarchical NamespaceType = 1
	NamespaceFlat         NamespaceType = 2
)

// EUType is OPCEUTYPE.
type EUType int32

const (
	EUNone       EUType = 0
	EUAnalog     EUType = 1
	EUEnumerated EUType = 2
)

// Access rights bits.
const (
	AccessReadable  uint32 = 0x1
	AccessWriteable uint32 = 0x2
)

// Quality words. The top two bits carry the major status.
const (
	QualityMask           uint16 = 0xC0
	QualityBad            uint16 = 0x00
	QualityUncertain      uint16 = 0x40
	QualityGood           uint16 = 0xC0
	QualityConfigError    uint16 = 0x04
	QualityNotConnected   uint16 = 0x08
	QualityDeviceFailure  uint16 = 0x0C
	QualitySensorFailure  uint16 = 0x10
	QualityLastKnown      uint16 = 0x14
	QualityCommFailure    uint16 = 0x18
	QualityOutOfService   uint16 = 0x1C
	QualityWaitingForData uint16 = 0x20
	QualityLastUsable     uint16 = 0x44
	QualityLocalOverride  uint16 = 0xD8
)

// QualityString names the major status of q.
func QualityString(q uint16) string {
	switch q & QualityMask {
	case QualityGood:
		return "good"
	case QualityUncertain:
		return "uncertain"
	case QualityBad:
		return "bad"
	}
	return fmt.Sprintf("quality(0x%02x)", q)
}

// Browse element flags.
const (
	BrowseHasChildren uint32 = 0x1
	BrowseIsItem      uint32 = 0x2
)

// Standard item property identifiers.
const (
	PropCanonicalType uint32 = 1
	PropValue         uint32 = 2
	PropQuality       uint32 = 3
	PropTimestamp     uint32 = 4
	PropAccessRights  uint32 = 5
	PropScanRate      uint32 = 6
	PropEUType        uint32 = 7
	PropEUInfo        uint32 = 8
	PropEUUnits       uint32 = 100
	PropDescription   uint32 = 101
	PropHighEU        uint32 = 102
	PropLowEU         uint32 = 103
)

// Locale identifiers the in-memory server advertises by default.
const (
	LocaleNeutral       uint32 = 0x0000
	LocaleUserDefault   uint32 = 0x0400
	LocaleSystemDefault uint32 = 0x0800
	LocaleEnglishUS     uint32 = 0x0409
)
