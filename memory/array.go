package memory

import (
	"unsafe"
)

// Array is a callee-allocated array received through a pointer and count
// out-parameter pair. Free releases the block exactly once.
type Array[T any] struct {
	ptr   *T
	len   uint32
	alloc Allocator
}

// NewArray creates an empty array whose pointer and length are filled by a
// call.
func NewArray[T any](a Allocator) *Array[T] {
	return &Array[T]{alloc: OrDefault(a)}
}

// ArrayWithLen creates an array whose length is known in advance and whose
// pointer is filled by a call.
func ArrayWithLen[T any](a Allocator, n uint32) *Array[T] {
	return &Array[T]{len: n, alloc: OrDefault(a)}
}

// AdoptArray takes ownership of a (pointer, length) pair.
func AdoptArray[T any](a Allocator, p *T, n uint32) *Array[T] {
	return &Array[T]{ptr: p, len: n, alloc: OrDefault(a)}
}

// Len returns the element count.
func (a *Array[T]) Len() int { return int(a.len) }

// IsEmpty reports whether the array has no elements.
func (a *Array[T]) IsEmpty() bool { return a.ptr == nil || a.len == 0 }

// Slice returns a view of the elements. It is empty when the pointer is null
// or the length is zero, and invalid after Free.
func (a *Array[T]) Slice() []T {
	if a.IsEmpty() {
		return []T{}
	}
	return unsafe.Slice(a.ptr, a.len)
}

// At returns element i. It panics when i is out of range.
func (a *Array[T]) At(i int) T {
	return a.Slice()[i]
}

// Ptr returns the array base pointer.
func (a *Array[T]) Ptr() *T { return a.ptr }

// PtrAddr returns the address of the pointer for use as an out-parameter.
func (a *Array[T]) PtrAddr() **T { return &a.ptr }

// LenAddr returns the address of the length for use as an out-parameter.
func (a *Array[T]) LenAddr() *uint32 { return &a.len }

// IntoRaw transfers ownership out, leaving the array empty.
func (a *Array[T]) IntoRaw() (*T, uint32) {
	p, n := a.ptr, a.len
	a.ptr, a.len = nil, 0
	return p, n
}

// Free releases the block through the foreign allocator if non-null.
func (a *Array[T]) Free() {
	if a.ptr == nil {
		return
	}
	OrDefault(a.alloc).Free(unsafe.Pointer(a.ptr))
	a.ptr = nil
	a.len = 0
}

// SinglePtr is a callee-allocated single element out-parameter.
type SinglePtr[T any] struct {
	ptr   *T
	alloc Allocator
}

// NewSinglePtr creates a null single pointer.
func NewSinglePtr[T any](a Allocator) *SinglePtr[T] {
	return &SinglePtr[T]{alloc: OrDefault(a)}
}

// IsNull reports whether nothing was returned.
func (s *SinglePtr[T]) IsNull() bool { return s.ptr == nil }

// Get returns the element, or the zero value when null.
func (s *SinglePtr[T]) Get() T {
	if s.ptr == nil {
		var zero T
		return zero
	}
	return *s.ptr
}

// Ptr returns the element pointer.
func (s *SinglePtr[T]) Ptr() *T { return s.ptr }

// Slice returns a one-element view, or an empty view when null.
func (s *SinglePtr[T]) Slice() []T {
	if s.ptr == nil {
		return []T{}
	}
	return unsafe.Slice(s.ptr, 1)
}

// PtrAddr returns the address of the pointer for use as an out-parameter.
func (s *SinglePtr[T]) PtrAddr() **T { return &s.ptr }

// Free releases the element through the foreign allocator if non-null.
func (s *SinglePtr[T]) Free() {
	if s.ptr == nil {
		return
	}
	OrDefault(s.alloc).Free(unsafe.Pointer(s.ptr))
	s.ptr = nil
}
