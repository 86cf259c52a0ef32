//go:build !windows

package memory

func platformAllocator() Allocator {
	return NewHeapAllocator()
}
