package com

import "github.com/wippyai/opc-classic"

// Enumerator is the common shape of the IEnumXxx interfaces. Next copies
// up to count elements into elements and writes the number produced to
// fetched; it returns S_OK when fetched == count and S_FALSE otherwise.
// fetched may be nil only when count is 1. Skip returns S_FALSE when it
// runs past the end.
type Enumerator[T any] interface {
	Unknown
	Next(count uint32, elements []T, fetched *uint32) opc.HRESULT
	Skip(count uint32) opc.HRESULT
	Reset() error
}

// EnumString enumerates callee-allocated wide strings. The receiver frees
// every string it fetches.
type EnumString interface {
	Enumerator[*uint16]
	Clone() (EnumString, error)
}

// EnumUnknown enumerates objects.
type EnumUnknown interface {
	Enumerator[Unknown]
	Clone() (EnumUnknown, error)
}

// EnumGUID enumerates identifiers.
type EnumGUID interface {
	Enumerator[GUID]
	Clone() (EnumGUID, error)
}

// EnumConnectionPoints enumerates the connection points of a container.
type EnumConnectionPoints interface {
	Enumerator[ConnectionPoint]
	Clone() (EnumConnectionPoints, error)
}

// EnumConnections enumerates the active connections of a connection point.
type EnumConnections interface {
	Enumerator[CONNECTDATA]
	Clone() (EnumConnections, error)
}

// CONNECTDATA is one advised sink and its cookie.
type CONNECTDATA struct {
	Unk    Unknown
	Cookie uint32
}

// ConnectionPointContainer is IConnectionPointContainer.
type ConnectionPointContainer interface {
	EnumConnectionPoints() (EnumConnectionPoints, error)
	FindConnectionPoint(iid *GUID) (ConnectionPoint, error)
}

// ConnectionPoint is IConnectionPoint.
type ConnectionPoint interface {
	Unknown
	GetConnectionInterface(iid *GUID) error
	GetConnectionPointContainer() (ConnectionPointContainer, error)
	Advise(sink Unknown, cookie *uint32) error
	Unadvise(cookie uint32) error
	EnumConnections() (EnumConnections, error)
}
