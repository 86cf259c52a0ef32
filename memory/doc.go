// Package memory encodes the ownership rules for values that cross the COM
// object boundary.
//
// Two disciplines exist on that boundary:
//
//	caller-allocated / callee-frees   CallerOwned, CallerOwnedWString
//	callee-allocated / caller-frees   CalleeOwned, CalleeOwnedWString, Array, SinglePtr
//
// Callee-allocated buffers come from the foreign allocator (CoTaskMemAlloc on
// Windows) and must be released through it exactly once. Free on a callee
// wrapper releases the buffer and zeroes the pointer, so a second Free is a
// no-op. Free on a caller wrapper only clears the pointer.
//
// Out-parameter arrays are received through Array:
//
//	results := memory.ArrayWithLen[da.ItemResult](alloc, uint32(len(defs)))
//	errs := memory.ArrayWithLen[opc.HRESULT](alloc, uint32(len(defs)))
//	defer results.Free()
//	defer errs.Free()
//
//	err := mgt.AddItems(defs, results.PtrAddr(), errs.PtrAddr())
//	for i, r := range results.Slice() { ... }
//
// Strings passed into a call are built with LocalWString/LocalWStrings; the
// buffers are Go memory and must outlive the call.
//
// A slice returned by Slice aliases foreign memory and is invalid after Free.
package memory
