package memory

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// Allocator is the foreign allocator shared by both sides of the object
// boundary. Alloc returns zeroed memory aligned for any ABI record.
type Allocator interface {
	Alloc(size uintptr) (unsafe.Pointer, error)
	Free(p unsafe.Pointer)
}

// StringAllocator is optionally implemented by allocators that own a
// separate allocator for BSTR values.
type StringAllocator interface {
	AllocBSTR(s string) (*uint16, error)
	FreeBSTR(p *uint16)
}

var (
	defaultMu    sync.RWMutex
	defaultAlloc Allocator
)

// Default returns the process-wide foreign allocator.
func Default() Allocator {
	defaultMu.RLock()
	a := defaultAlloc
	defaultMu.RUnlock()
	if a != nil {
		return a
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultAlloc == nil {
		defaultAlloc = platformAllocator()
	}
	return defaultAlloc
}

// SetDefault replaces the process-wide foreign allocator.
func SetDefault(a Allocator) {
	defaultMu.Lock()
	defaultAlloc = a
	defaultMu.Unlock()
}

// OrDefault returns a, or Default when a is nil.
func OrDefault(a Allocator) Allocator {
	if a != nil {
		return a
	}
	return Default()
}

// HeapAllocator is a Go-heap foreign allocator. It keeps every live block
// reachable until freed and counts allocations and frees. It is the default
// allocator off Windows and the test double everywhere.
type HeapAllocator struct {
	live   map[uintptr][]uint64
	mu     sync.Mutex
	limit  uintptr
	used   uintptr
	allocs atomic.Int64
	frees  atomic.Int64
	bad    atomic.Int64
}

// NewHeapAllocator creates an allocator without a size limit.
func NewHeapAllocator() *HeapAllocator {
	return &HeapAllocator{live: make(map[uintptr][]uint64)}
}

// NewLimitedHeapAllocator creates an allocator that fails once limit bytes
// are live.
func NewLimitedHeapAllocator(limit uintptr) *HeapAllocator {
	h := NewHeapAllocator()
	h.limit = limit
	return h
}

// Alloc returns a zeroed, 8-byte aligned block.
func (h *HeapAllocator) Alloc(size uintptr) (unsafe.Pointer, error) {
	words := (size + 7) / 8
	if words == 0 {
		words = 1
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.limit > 0 && h.used+words*8 > h.limit {
		return nil, errOutOfMemory(size)
	}

	buf := make([]uint64, words)
	p := unsafe.Pointer(&buf[0])
	h.live[uintptr(p)] = buf
	h.used += words * 8
	h.allocs.Add(1)
	return p, nil
}

// Free releases a block. Unknown pointers are counted as bad frees.
func (h *HeapAllocator) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	buf, ok := h.live[uintptr(p)]
	if !ok {
		h.bad.Add(1)
		return
	}
	delete(h.live, uintptr(p))
	h.used -= uintptr(len(buf)) * 8
	h.frees.Add(1)
}

// Allocs returns the number of successful allocations.
func (h *HeapAllocator) Allocs() int64 { return h.allocs.Load() }

// Frees returns the number of successful frees.
func (h *HeapAllocator) Frees() int64 { return h.frees.Load() }

// BadFrees returns the number of frees of pointers that were not live.
func (h *HeapAllocator) BadFrees() int64 { return h.bad.Load() }

// Live returns the number of blocks not yet freed.
func (h *HeapAllocator) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}
