package memory

import (
	"unsafe"

	ole "github.com/go-ole/go-ole"
)

// CallerOwned points at a value allocated by the caller. Free clears the
// pointer and never releases memory. Copies alias the same pointer without
// adjusting ownership.
type CallerOwned[T any] struct {
	ptr *T
}

// NewCallerOwned wraps p. The caller vouches that p obeys the
// caller-allocated discipline.
func NewCallerOwned[T any](p *T) CallerOwned[T] {
	return CallerOwned[T]{ptr: p}
}

// IntoRaw transfers ownership out, leaving the wrapper null.
func (o *CallerOwned[T]) IntoRaw() *T {
	p := o.ptr
	o.ptr = nil
	return p
}

// IsNull reports whether the wrapper holds no pointer.
func (o CallerOwned[T]) IsNull() bool { return o.ptr == nil }

// Ptr returns the wrapped pointer.
func (o CallerOwned[T]) Ptr() *T { return o.ptr }

// Clone returns an alias of o. Only one of the two may be used to release.
func (o CallerOwned[T]) Clone() CallerOwned[T] { return o }

// Free clears the pointer.
func (o *CallerOwned[T]) Free() { o.ptr = nil }

// CalleeOwned points at a value allocated by the foreign allocator on the
// receiver's behalf. Free releases it exactly once.
type CalleeOwned[T any] struct {
	ptr   *T
	alloc Allocator
}

// NewCalleeOwned wraps p allocated through a. A nil a means Default().
func NewCalleeOwned[T any](a Allocator, p *T) CalleeOwned[T] {
	return CalleeOwned[T]{ptr: p, alloc: OrDefault(a)}
}

// AllocCalleeOwned allocates a zeroed T through a and stores v in it.
func AllocCalleeOwned[T any](a Allocator, v T) (CalleeOwned[T], error) {
	a = OrDefault(a)
	p, err := Alloc[T](a)
	if err != nil {
		return CalleeOwned[T]{}, err
	}
	*p = v
	return CalleeOwned[T]{ptr: p, alloc: a}, nil
}

// IntoRaw transfers ownership out, leaving the wrapper null.
func (o *CalleeOwned[T]) IntoRaw() *T {
	p := o.ptr
	o.ptr = nil
	return p
}

// IsNull reports whether the wrapper holds no pointer.
func (o CalleeOwned[T]) IsNull() bool { return o.ptr == nil }

// Ptr returns the wrapped pointer.
func (o CalleeOwned[T]) Ptr() *T { return o.ptr }

// PtrAddr returns the address of the wrapped pointer for use as an
// out-parameter.
func (o *CalleeOwned[T]) PtrAddr() **T { return &o.ptr }

// Clone returns an alias of o. Only one of the two may be used to release.
func (o CalleeOwned[T]) Clone() CalleeOwned[T] { return o }

// Free releases the value through the foreign allocator if non-null.
func (o *CalleeOwned[T]) Free() {
	if o.ptr == nil {
		return
	}
	OrDefault(o.alloc).Free(unsafe.Pointer(o.ptr))
	o.ptr = nil
}

// CallerOwnedWString points at a NUL-terminated UTF-16 buffer owned by the
// caller.
type CallerOwnedWString struct {
	ptr *uint16
}

// NewCallerOwnedWString wraps p.
func NewCallerOwnedWString(p *uint16) CallerOwnedWString {
	return CallerOwnedWString{ptr: p}
}

// IntoRaw transfers ownership out, leaving the wrapper null.
func (s *CallerOwnedWString) IntoRaw() *uint16 {
	p := s.ptr
	s.ptr = nil
	return p
}

// IsNull reports whether the wrapper holds no pointer.
func (s CallerOwnedWString) IsNull() bool { return s.ptr == nil }

// Ptr returns the wrapped pointer.
func (s CallerOwnedWString) Ptr() *uint16 { return s.ptr }

// PCWSTR returns the read-only wide-string reference.
func (s CallerOwnedWString) PCWSTR() *uint16 { return s.ptr }

// ToString decodes the buffer. A null pointer is an error.
func (s CallerOwnedWString) ToString() (string, error) {
	if s.ptr == nil {
		return "", errNilPointer("wide string")
	}
	return ole.LpOleStrToString(s.ptr), nil
}

// Clone returns an alias of s.
func (s CallerOwnedWString) Clone() CallerOwnedWString { return s }

// Free clears the pointer.
func (s *CallerOwnedWString) Free() { s.ptr = nil }

// CalleeOwnedWString points at a NUL-terminated UTF-16 buffer allocated by
// the foreign allocator. Free releases it exactly once.
type CalleeOwnedWString struct {
	ptr   *uint16
	alloc Allocator
}

// NewCalleeOwnedWString wraps p allocated through a. A nil a means Default().
func NewCalleeOwnedWString(a Allocator, p *uint16) CalleeOwnedWString {
	return CalleeOwnedWString{ptr: p, alloc: OrDefault(a)}
}

// IntoRaw transfers ownership out, leaving the wrapper null.
func (s *CalleeOwnedWString) IntoRaw() *uint16 {
	p := s.ptr
	s.ptr = nil
	return p
}

// IsNull reports whether the wrapper holds no pointer.
func (s CalleeOwnedWString) IsNull() bool { return s.ptr == nil }

// Ptr returns the wrapped pointer.
func (s CalleeOwnedWString) Ptr() *uint16 { return s.ptr }

// PtrAddr returns the address of the wrapped pointer for use as an
// out-parameter.
func (s *CalleeOwnedWString) PtrAddr() **uint16 { return &s.ptr }

// PCWSTR returns the read-only wide-string reference.
func (s CalleeOwnedWString) PCWSTR() *uint16 { return s.ptr }

// ToString decodes the buffer. A null pointer is an error.
func (s CalleeOwnedWString) ToString() (string, error) {
	if s.ptr == nil {
		return "", errNilPointer("wide string")
	}
	return ole.LpOleStrToString(s.ptr), nil
}

// Clone returns an alias of s. Only one of the two may be used to release.
func (s CalleeOwnedWString) Clone() CalleeOwnedWString { return s }

// Free releases the buffer through the foreign allocator if non-null.
func (s *CalleeOwnedWString) Free() {
	if s.ptr == nil {
		return
	}
	OrDefault(s.alloc).Free(unsafe.Pointer(s.ptr))
	s.ptr = nil
}

// TakeWString decodes and frees a callee-allocated string out-parameter.
func TakeWString(a Allocator, p *uint16) (string, error) {
	s := NewCalleeOwnedWString(a, p)
	defer s.Free()
	return s.ToString()
}
