//go:build windows

package memory

import (
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"golang.org/x/sys/windows"
)

var (
	modole32           = windows.NewLazySystemDLL("ole32.dll")
	procCoTaskMemAlloc = modole32.NewProc("CoTaskMemAlloc")
)

// TaskAllocator allocates through CoTaskMemAlloc and CoTaskMemFree, and
// allocates BSTR values through SysAllocStringLen and SysFreeString.
type TaskAllocator struct{}

func platformAllocator() Allocator {
	return TaskAllocator{}
}

// Alloc returns a zeroed block from the COM task allocator.
func (TaskAllocator) Alloc(size uintptr) (unsafe.Pointer, error) {
	n := size
	if n == 0 {
		n = 1
	}
	r, _, _ := procCoTaskMemAlloc.Call(n)
	if r == 0 {
		return nil, errOutOfMemory(size)
	}
	p := unsafe.Pointer(r)
	clear(unsafe.Slice((*byte)(p), n))
	return p, nil
}

// Free returns a block to the COM task allocator.
func (TaskAllocator) Free(p unsafe.Pointer) {
	if p != nil {
		ole.CoTaskMemFree(uintptr(p))
	}
}

// AllocBSTR allocates a BSTR through OLE automation.
func (TaskAllocator) AllocBSTR(s string) (*uint16, error) {
	p := ole.SysAllocStringLen(s)
	if p == nil {
		return nil, errOutOfMemory(uintptr(len(s)*2 + 6))
	}
	return (*uint16)(unsafe.Pointer(p)), nil
}

// FreeBSTR releases a BSTR through OLE automation.
func (TaskAllocator) FreeBSTR(p *uint16) {
	if p != nil {
		_ = ole.SysFreeString((*int16)(unsafe.Pointer(p)))
	}
}
