package memory

import (
	"errors"
	"strings"
	"testing"
	"unsafe"

	operrors "github.com/wippyai/opc-classic/errors"
)

func TestCallerOwned_FreeDoesNotRelease(t *testing.T) {
	h := NewHeapAllocator()
	p, err := Alloc[uint32](h)
	if err != nil {
		t.Fatal(err)
	}

	o := NewCallerOwned(p)
	if o.IsNull() || o.Ptr() != p {
		t.Fatal("wrapper should hold the pointer")
	}
	o.Free()
	if !o.IsNull() {
		t.Error("Free should clear the pointer")
	}
	if h.Frees() != 0 {
		t.Errorf("caller-owned Free released memory: %d frees", h.Frees())
	}

	ws := NewCallerOwnedWString((*uint16)(unsafe.Pointer(p)))
	ws.Free()
	if h.Frees() != 0 {
		t.Errorf("caller-owned wide string Free released memory: %d frees", h.Frees())
	}
	h.Free(unsafe.Pointer(p))
}

func TestCalleeOwned_FreeReleasesOnce(t *testing.T) {
	h := NewHeapAllocator()
	o, err := AllocCalleeOwned(h, uint64(7))
	if err != nil {
		t.Fatal(err)
	}
	if *o.Ptr() != 7 {
		t.Fatalf("value = %d", *o.Ptr())
	}

	o.Free()
	o.Free()
	if h.Frees() != 1 {
		t.Errorf("expected exactly one free, got %d", h.Frees())
	}
	if h.BadFrees() != 0 {
		t.Errorf("unexpected bad frees: %d", h.BadFrees())
	}

	var null CalleeOwned[uint64]
	null.Free()
	if h.Frees() != 1 {
		t.Error("null wrapper should not free")
	}
}

func TestCalleeOwned_IntoRaw(t *testing.T) {
	h := NewHeapAllocator()
	o, err := AllocCalleeOwned(h, int32(-1))
	if err != nil {
		t.Fatal(err)
	}
	raw := o.IntoRaw()
	if raw == nil || !o.IsNull() {
		t.Fatal("IntoRaw should move the pointer out")
	}
	o.Free()
	if h.Frees() != 0 {
		t.Error("Free after IntoRaw must not release")
	}
	adopted := NewCalleeOwned(h, raw)
	adopted.Free()
	if h.Frees() != 1 || h.Live() != 0 {
		t.Errorf("frees=%d live=%d", h.Frees(), h.Live())
	}
}

func TestCalleeOwnedWString(t *testing.T) {
	h := NewHeapAllocator()
	p, err := AllocWString(h, "plant.tank")
	if err != nil {
		t.Fatal(err)
	}

	s, err := TakeWString(h, p)
	if err != nil {
		t.Fatal(err)
	}
	if s != "plant.tank" {
		t.Errorf("got %q", s)
	}
	if h.Live() != 0 {
		t.Errorf("TakeWString leaked %d blocks", h.Live())
	}

	var null CalleeOwnedWString
	if _, err := null.ToString(); !errors.Is(err, operrors.ErrPointer) {
		t.Errorf("null string should fail with pointer error, got %v", err)
	}
}

func TestLocalWString_RoundTrip(t *testing.T) {
	tests := []string{"", "a", "plant.tank.level", "Grüße", "温度", "emoji 🙂 pair"}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			w, err := NewLocalWString(s)
			if err != nil {
				t.Fatal(err)
			}
			if got := WStringToString(w.PCWSTR()); got != s {
				t.Errorf("round trip = %q, want %q", got, s)
			}
			buf := unsafe.Slice(w.PCWSTR(), w.Len()+1)
			if buf[w.Len()] != 0 {
				t.Error("missing terminator")
			}
		})
	}
}

func TestLocalWString_RejectsNUL(t *testing.T) {
	if _, err := NewLocalWString("a\x00b"); !errors.Is(err, operrors.ErrInvalidArgument) {
		t.Errorf("expected invalid argument, got %v", err)
	}
}

func TestLocalWStrings(t *testing.T) {
	in := []string{"a", "", "b.c"}
	l, err := NewLocalWStrings(in)
	if err != nil {
		t.Fatal(err)
	}
	if l.Len() != 3 {
		t.Fatalf("Len = %d", l.Len())
	}
	out := WStringsToStrings(l.Ptrs())
	if strings.Join(out, "|") != strings.Join(in, "|") {
		t.Errorf("got %v", out)
	}
}

func TestArray(t *testing.T) {
	h := NewHeapAllocator()

	arr := NewArray[uint32](h)
	if !arr.IsEmpty() || len(arr.Slice()) != 0 {
		t.Fatal("new array should be empty")
	}

	p, view, err := AllocSlice[uint32](h, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := range view {
		view[i] = uint32(i * 10)
	}
	*arr.PtrAddr() = p
	*arr.LenAddr() = 4

	if arr.Len() != 4 || arr.At(3) != 30 {
		t.Errorf("Len=%d At(3)=%d", arr.Len(), arr.At(3))
	}
	arr.Free()
	arr.Free()
	if h.Frees() != 1 || h.Live() != 0 {
		t.Errorf("frees=%d live=%d", h.Frees(), h.Live())
	}

	withLen := ArrayWithLen[uint16](h, 5)
	if withLen.Len() != 5 || !withLen.IsEmpty() {
		t.Error("array with expected length but null pointer is empty")
	}

	q, err := CopySlice(h, []int16{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	adopted := AdoptArray(h, q, 2)
	if got := adopted.Slice(); len(got) != 2 || got[1] != 2 {
		t.Errorf("adopted slice = %v", got)
	}
	raw, n := adopted.IntoRaw()
	if raw != q || n != 2 || !adopted.IsEmpty() {
		t.Error("IntoRaw should move pointer and length out")
	}
	h.Free(unsafe.Pointer(raw))
}

func TestSinglePtr(t *testing.T) {
	h := NewHeapAllocator()
	s := NewSinglePtr[float64](h)
	if !s.IsNull() || s.Get() != 0 || len(s.Slice()) != 0 {
		t.Fatal("new single pointer should be null")
	}
	p, err := Alloc[float64](h)
	if err != nil {
		t.Fatal(err)
	}
	*p = 1.5
	*s.PtrAddr() = p
	if s.Get() != 1.5 || len(s.Slice()) != 1 {
		t.Errorf("Get=%v", s.Get())
	}
	s.Free()
	if h.Live() != 0 {
		t.Error("SinglePtr.Free leaked")
	}
}

func TestAllocSlice_Empty(t *testing.T) {
	h := NewHeapAllocator()
	p, view, err := AllocSlice[uint64](h, 0)
	if err != nil || p != nil || view != nil {
		t.Errorf("zero-length allocation should be nil, got %v %v %v", p, view, err)
	}
	if h.Allocs() != 0 {
		t.Error("zero-length allocation should not allocate")
	}
}

func TestOutOfMemory(t *testing.T) {
	h := NewLimitedHeapAllocator(16)
	if _, err := Alloc[[2]uint64](h); err != nil {
		t.Fatalf("first allocation should fit: %v", err)
	}
	_, err := Alloc[uint64](h)
	if !errors.Is(err, operrors.ErrOutOfMemory) {
		t.Errorf("expected out of memory, got %v", err)
	}
}

func TestLen32(t *testing.T) {
	if n, err := Len32(12); err != nil || n != 12 {
		t.Errorf("Len32(12) = %d, %v", n, err)
	}
	if _, err := Len32(-1); err == nil {
		t.Error("negative length should fail")
	}
	if unsafe.Sizeof(int(0)) == 8 {
		big := int(uint64(1) << 32)
		if _, err := Len32(big); err == nil {
			t.Error("length above 32 bits should fail")
		}
	}
}

func TestWriteOut(t *testing.T) {
	var v uint32
	if err := WriteOut(&v, 9, "pdwCount"); err != nil || v != 9 {
		t.Errorf("v=%d err=%v", v, err)
	}
	if err := WriteOut[uint32](nil, 9, "pdwCount"); !errors.Is(err, operrors.ErrPointer) {
		t.Errorf("expected pointer error, got %v", err)
	}
}

func TestBSTR(t *testing.T) {
	h := NewHeapAllocator()
	p, err := AllocBSTR(h, "level")
	if err != nil {
		t.Fatal(err)
	}
	if got := BSTRToString(p); got != "level" {
		t.Errorf("BSTRToString = %q", got)
	}
	if got := WStringToString(p); got != "level" {
		t.Errorf("BSTR should also be NUL terminated, got %q", got)
	}
	FreeBSTR(h, p)
	if h.Live() != 0 || h.BadFrees() != 0 {
		t.Errorf("live=%d bad=%d", h.Live(), h.BadFrees())
	}
}

func TestAllocationList(t *testing.T) {
	h := NewHeapAllocator()
	l := NewAllocationList(h)
	a, _ := Alloc[uint32](h)
	b, _ := AllocWString(h, "x")
	Track(l, a)
	Track(l, b)
	l.Add(nil)
	if l.Count() != 2 {
		t.Fatalf("Count = %d", l.Count())
	}
	l.Free()
	if h.Live() != 0 {
		t.Errorf("Free left %d live blocks", h.Live())
	}

	c, _ := Alloc[uint32](h)
	Track(l, c)
	l.Reset()
	l.Free()
	if h.Live() != 1 {
		t.Error("Reset should hand ownership away")
	}
}
