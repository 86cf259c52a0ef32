package memory

import (
	"math"
	"unsafe"

	"github.com/wippyai/opc-classic/errors"
)

// Alloc allocates one zeroed T through a.
func Alloc[T any](a Allocator) (*T, error) {
	var zero T
	size := unsafe.Sizeof(zero)
	p, err := OrDefault(a).Alloc(size)
	if err != nil {
		return nil, err
	}
	clear(unsafe.Slice((*byte)(p), size))
	return (*T)(p), nil
}

// AllocSlice allocates n zeroed elements through a and returns the base
// pointer and a view over them. n == 0 yields a nil pointer.
func AllocSlice[T any](a Allocator, n int) (*T, []T, error) {
	if n == 0 {
		return nil, nil, nil
	}
	if _, err := Len32(n); err != nil {
		return nil, nil, err
	}
	var zero T
	size := unsafe.Sizeof(zero) * uintptr(n)
	p, err := OrDefault(a).Alloc(size)
	if err != nil {
		return nil, nil, err
	}
	clear(unsafe.Slice((*byte)(p), size))
	base := (*T)(p)
	return base, unsafe.Slice(base, n), nil
}

// CopySlice allocates a copy of src through a.
func CopySlice[T any](a Allocator, src []T) (*T, error) {
	p, dst, err := AllocSlice[T](a, len(src))
	if err != nil {
		return nil, err
	}
	copy(dst, src)
	return p, nil
}

// WriteOut stores v in a non-nil out-parameter.
func WriteOut[T any](out *T, v T, name string) error {
	if out == nil {
		return errNilPointer(name)
	}
	*out = v
	return nil
}

// Len32 checks that n fits the 32-bit counts used on the object boundary.
func Len32(n int) (uint32, error) {
	if n < 0 || uint64(n) > math.MaxUint32 {
		return 0, errors.Overflow(errors.PhaseMemory, n, "uint32")
	}
	return uint32(n), nil
}

// AllocationList tracks blocks produced while building a multi-part
// result, so that a failure part-way can release what was already built.
type AllocationList struct {
	ptrs  []unsafe.Pointer
	alloc Allocator
}

// NewAllocationList creates a list bound to a.
func NewAllocationList(a Allocator) *AllocationList {
	return &AllocationList{alloc: OrDefault(a), ptrs: make([]unsafe.Pointer, 0, 4)}
}

// Add records p. Nil pointers are ignored.
func (l *AllocationList) Add(p unsafe.Pointer) {
	if p != nil {
		l.ptrs = append(l.ptrs, p)
	}
}

// Free releases every recorded block.
func (l *AllocationList) Free() {
	for _, p := range l.ptrs {
		l.alloc.Free(p)
	}
	l.ptrs = l.ptrs[:0]
}

// Reset forgets the recorded blocks without releasing them, handing
// ownership to the receiver of the result.
func (l *AllocationList) Reset() {
	l.ptrs = l.ptrs[:0]
}

// Count returns the number of recorded blocks.
func (l *AllocationList) Count() int {
	return len(l.ptrs)
}

// Track records p and returns it, for use in expressions.
func Track[T any](l *AllocationList, p *T) *T {
	l.Add(unsafe.Pointer(p))
	return p
}
