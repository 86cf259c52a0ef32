// Package com holds the COM object-model primitives shared by the client
// facades and the server objects: GUIDs, object identity through
// QueryInterface, FILETIME conversion, the Variant tagged scalar, the
// scoped apartment, and the enumerator and connection-point contracts.
//
// GUID and VARIANT are the go-ole types, so values move to and from a real
// COM runtime without copying.
package com
