package memory

import (
	"strings"
	"unicode/utf16"
	"unsafe"

	ole "github.com/go-ole/go-ole"

	"github.com/wippyai/opc-classic/errors"
)

const maxWStringUnits = 1<<31 - 1

// encodeWString returns the NUL-terminated UTF-16 encoding of s.
func encodeWString(s string) ([]uint16, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return nil, errors.InvalidArgument(errors.PhaseMemory, nil, "string contains NUL")
	}
	units := utf16.Encode([]rune(s))
	if len(units) >= maxWStringUnits {
		return nil, errors.Overflow(errors.PhaseMemory, len(units), "wide string length")
	}
	return append(units, 0), nil
}

// LocalWString is a Go-owned NUL-terminated UTF-16 buffer passed into a
// call. The call must not retain the pointer past the buffer's lifetime.
type LocalWString struct {
	buf []uint16
}

// NewLocalWString encodes s.
func NewLocalWString(s string) (*LocalWString, error) {
	buf, err := encodeWString(s)
	if err != nil {
		return nil, err
	}
	return &LocalWString{buf: buf}, nil
}

// MustLocalWString encodes s and panics on failure. For literals only.
func MustLocalWString(s string) *LocalWString {
	w, err := NewLocalWString(s)
	if err != nil {
		panic(err)
	}
	return w
}

// PCWSTR returns the read-only wide-string reference.
func (w *LocalWString) PCWSTR() *uint16 { return &w.buf[0] }

// PWSTR returns the writable wide-string reference.
func (w *LocalWString) PWSTR() *uint16 { return &w.buf[0] }

// Len returns the number of UTF-16 code units without the terminator.
func (w *LocalWString) Len() int { return len(w.buf) - 1 }

// String decodes the buffer.
func (w *LocalWString) String() string { return WStringToString(w.PCWSTR()) }

// LocalWStrings is a set of Go-owned wide strings with a contiguous array of
// references, for plural string parameters.
type LocalWStrings struct {
	bufs [][]uint16
	ptrs []*uint16
}

// NewLocalWStrings encodes every element of ss.
func NewLocalWStrings(ss []string) (*LocalWStrings, error) {
	if _, err := Len32(len(ss)); err != nil {
		return nil, err
	}
	l := &LocalWStrings{
		bufs: make([][]uint16, len(ss)),
		ptrs: make([]*uint16, len(ss)),
	}
	for i, s := range ss {
		buf, err := encodeWString(s)
		if err != nil {
			return nil, err
		}
		l.bufs[i] = buf
		l.ptrs[i] = &buf[0]
	}
	return l, nil
}

// Ptrs returns the contiguous array of read-only references.
func (l *LocalWStrings) Ptrs() []*uint16 { return l.ptrs }

// Len returns the number of strings.
func (l *LocalWStrings) Len() int { return len(l.ptrs) }

// WStringToString decodes a NUL-terminated UTF-16 buffer. A nil pointer
// decodes to the empty string.
func WStringToString(p *uint16) string {
	return ole.LpOleStrToString(p)
}

// WStringsToStrings decodes every element of ps.
func WStringsToStrings(ps []*uint16) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = WStringToString(p)
	}
	return out
}

// AllocWString allocates a NUL-terminated copy of s through a.
func AllocWString(a Allocator, s string) (*uint16, error) {
	buf, err := encodeWString(s)
	if err != nil {
		return nil, err
	}
	return CopySlice(a, buf)
}

// FreeWString releases a string allocated through a.
func FreeWString(a Allocator, p *uint16) {
	if p != nil {
		OrDefault(a).Free(unsafe.Pointer(p))
	}
}

// AllocBSTR allocates a length-prefixed BSTR holding s.
func AllocBSTR(a Allocator, s string) (*uint16, error) {
	a = OrDefault(a)
	if sa, ok := a.(StringAllocator); ok {
		return sa.AllocBSTR(s)
	}
	buf, err := encodeWString(s)
	if err != nil {
		return nil, err
	}
	n := len(buf) - 1
	p, err := a.Alloc(4 + uintptr(len(buf))*2)
	if err != nil {
		return nil, err
	}
	*(*uint32)(p) = uint32(n * 2)
	chars := (*uint16)(unsafe.Add(p, 4))
	copy(unsafe.Slice(chars, len(buf)), buf)
	return chars, nil
}

// FreeBSTR releases a BSTR allocated with AllocBSTR.
func FreeBSTR(a Allocator, p *uint16) {
	if p == nil {
		return
	}
	a = OrDefault(a)
	if sa, ok := a.(StringAllocator); ok {
		sa.FreeBSTR(p)
		return
	}
	a.Free(unsafe.Add(unsafe.Pointer(p), -4))
}

// BSTRToString decodes a BSTR using its length prefix.
func BSTRToString(p *uint16) string {
	if p == nil {
		return ""
	}
	n := *(*uint32)(unsafe.Add(unsafe.Pointer(p), -4)) / 2
	return string(utf16.Decode(unsafe.Slice(p, n)))
}
