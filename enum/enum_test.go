package enum

import (
	"fmt"
	"slices"
	"testing"
	"unsafe"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/memory"
)

func names(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("item-%d", i)
	}
	return out
}

// drain reads e in chunks of k and checks the S_FALSE rule on every call.
func drain(t *testing.T, e *Strings, alloc memory.Allocator, k uint32) []string {
	t.Helper()
	var got []string
	buf := make([]*uint16, k)
	for {
		var fetched uint32
		hr := e.Next(k, buf, &fetched)
		if hr != opc.S_OK && hr != opc.S_FALSE {
			t.Fatalf("Next(%d) = %s", k, hr)
		}
		if (hr == opc.S_FALSE) != (fetched < k) {
			t.Fatalf("Next(%d) = %s with fetched %d", k, hr, fetched)
		}
		for _, p := range buf[:fetched] {
			got = append(got, memory.WStringToString(p))
			memory.FreeWString(alloc, p)
		}
		if fetched < k {
			return got
		}
	}
}

func TestStrings_Laws(t *testing.T) {
	for _, n := range []int{0, 1, 5, 16, 17} {
		for _, k := range []uint32{1, 2, 3, 16, 40} {
			t.Run(fmt.Sprintf("n=%d/k=%d", n, k), func(t *testing.T) {
				alloc := memory.NewHeapAllocator()
				want := names(n)
				e := NewStrings(alloc, want)

				if got := drain(t, e, alloc, k); !slices.Equal(got, want) {
					t.Fatalf("got %v, want %v", got, want)
				}

				if err := e.Reset(); err != nil {
					t.Fatal(err)
				}
				if got := drain(t, e, alloc, k); len(got) != n {
					t.Fatalf("after Reset got %d elements, want %d", len(got), n)
				}

				if alloc.Live() != 0 {
					t.Errorf("leaked %d strings", alloc.Live())
				}
			})
		}
	}
}

func TestStrings_SkipEqualsNext(t *testing.T) {
	alloc := memory.NewHeapAllocator()
	items := names(10)

	a := NewStrings(alloc, items)
	b := NewStrings(alloc, items)

	if hr := a.Skip(4); hr != opc.S_OK {
		t.Fatalf("Skip = %s", hr)
	}
	buf := make([]*uint16, 4)
	var fetched uint32
	b.Next(4, buf, &fetched)
	for _, p := range buf[:fetched] {
		memory.FreeWString(alloc, p)
	}

	got, want := drain(t, a, alloc, 3), drain(t, b, alloc, 3)
	if !slices.Equal(got, want) || !slices.Equal(got, items[4:]) {
		t.Fatalf("skip %v, next %v", got, want)
	}
}

func TestStrings_SkipSaturates(t *testing.T) {
	e := NewStrings(nil, names(3))
	if hr := e.Skip(2); hr != opc.S_OK {
		t.Fatalf("Skip(2) = %s", hr)
	}
	if hr := e.Skip(2); hr != opc.S_FALSE {
		t.Fatalf("Skip past end = %s", hr)
	}
	if hr := e.Skip(1); hr != opc.S_FALSE {
		t.Fatalf("Skip at end = %s", hr)
	}
	if hr := e.Skip(0); hr != opc.S_OK {
		t.Fatalf("Skip(0) at end = %s", hr)
	}
}

func TestStrings_CloneIndependent(t *testing.T) {
	alloc := memory.NewHeapAllocator()
	items := names(6)
	e := NewStrings(alloc, items)
	e.Skip(2)

	c, err := e.Clone()
	if err != nil {
		t.Fatal(err)
	}
	clone := c.(*Strings)

	if got := drain(t, clone, alloc, 4); !slices.Equal(got, items[2:]) {
		t.Fatalf("clone got %v", got)
	}
	if got := drain(t, e, alloc, 1); !slices.Equal(got, items[2:]) {
		t.Fatalf("original got %v after clone advanced", got)
	}
}

func TestStrings_SnapshotIsolated(t *testing.T) {
	items := []string{"a", "b"}
	e := NewStrings(nil, items)
	items[0] = "changed"
	got := drain(t, e, memory.Default(), 2)
	if got[0] != "a" {
		t.Fatalf("enumerator saw caller mutation: %v", got)
	}
}

func TestNext_Arguments(t *testing.T) {
	e := NewGUIDs([]com.GUID{com.NewGUID(), com.NewGUID()})

	one := make([]com.GUID, 1)
	if hr := e.Next(1, one, nil); hr != opc.S_OK {
		t.Errorf("Next(1, nil fetched) = %s", hr)
	}
	two := make([]com.GUID, 2)
	if hr := e.Next(2, two, nil); hr != opc.E_POINTER {
		t.Errorf("Next(2, nil fetched) = %s", hr)
	}
	var fetched uint32
	if hr := e.Next(2, one, &fetched); hr != opc.E_INVALIDARG {
		t.Errorf("Next with short buffer = %s", hr)
	}
	if hr := e.Next(0, nil, &fetched); hr != opc.S_OK || fetched != 0 {
		t.Errorf("Next(0) = %s, %d", hr, fetched)
	}
}

func TestStrings_OutOfMemoryRollsBack(t *testing.T) {
	// Room for the first two short strings only.
	alloc := memory.NewLimitedHeapAllocator(16)
	e := NewStrings(alloc, []string{"a", "b", "a longer string that does not fit"})

	buf := make([]*uint16, 3)
	var fetched uint32
	if hr := e.Next(3, buf, &fetched); hr != opc.E_OUTOFMEMORY {
		t.Fatalf("Next = %s", hr)
	}
	if fetched != 0 || buf[0] != nil {
		t.Error("partial output left behind")
	}
	if alloc.Live() != 0 {
		t.Errorf("leaked %d strings", alloc.Live())
	}

	if hr := e.Next(2, buf, &fetched); hr != opc.S_OK || fetched != 2 {
		t.Fatalf("cursor not restored: %s, %d", hr, fetched)
	}
}

func TestQueryInterface(t *testing.T) {
	tests := []struct {
		name string
		obj  com.Unknown
		iid  *com.GUID
	}{
		{"strings", NewStrings(nil, nil), &com.IID_IEnumString},
		{"unknowns", NewUnknowns(nil), &com.IID_IEnumUnknown},
		{"guids", NewGUIDs(nil), &com.IID_IEnumGUID},
		{"points", NewConnectionPoints(nil), &com.IID_IEnumConnectionPoints},
		{"connections", NewConnections(nil), &com.IID_IEnumConnections},
		{"items", NewItemAttributes(nil, nil), &da.IID_IEnumOPCItemAttributes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.obj.QueryInterface(tt.iid)
			if err != nil || got != tt.obj {
				t.Fatalf("QueryInterface own iid: %v, %v", got, err)
			}
			if _, err := tt.obj.QueryInterface(&com.IID_IUnknown); err != nil {
				t.Fatalf("QueryInterface IUnknown: %v", err)
			}
			if _, err := tt.obj.QueryInterface(&da.IID_IOPCServer); err == nil {
				t.Fatal("expected E_NOINTERFACE")
			}
		})
	}
}

type fakeSink struct{ id int }

func (s *fakeSink) QueryInterface(*com.GUID) (com.Unknown, error) { return s, nil }

func TestConnections(t *testing.T) {
	s1, s2 := &fakeSink{1}, &fakeSink{2}
	e := NewConnections([]com.CONNECTDATA{{Unk: s1, Cookie: 1}, {Unk: s2, Cookie: 2}})

	out := make([]com.CONNECTDATA, 4)
	var fetched uint32
	if hr := e.Next(4, out, &fetched); hr != opc.S_FALSE || fetched != 2 {
		t.Fatalf("Next = %s, %d", hr, fetched)
	}
	if out[0].Unk != s1 || out[1].Cookie != 2 {
		t.Errorf("got %+v", out[:2])
	}
}

type fakeItem struct {
	attrs da.Attributes
}

func (f *fakeItem) Attributes() da.Attributes { return f.attrs }

func TestItemAttributes_Lazy(t *testing.T) {
	alloc := memory.NewHeapAllocator()
	a := &fakeItem{da.Attributes{ItemID: "a", ServerHandle: 1, CanonicalType: com.VT_R8}}
	b := &fakeItem{da.Attributes{ItemID: "b", ServerHandle: 2}}
	e := NewItemAttributes(alloc, []AttributeSource{a, b})

	// Changes made before Next are visible.
	a.attrs.ClientHandle = 99

	var p *da.ItemAttributes
	var fetched uint32
	if hr := e.Next(5, &p, &fetched); hr != opc.S_FALSE || fetched != 2 {
		t.Fatalf("Next = %s, %d", hr, fetched)
	}
	recs := unsafe.Slice(p, fetched)
	if got := recs[0].Import(); got.ClientHandle != 99 || got.ItemID != "a" || got.CanonicalType != com.VT_R8 {
		t.Errorf("got %+v", got)
	}
	if recs[1].ServerHandle != 2 {
		t.Errorf("got handle %d", recs[1].ServerHandle)
	}

	da.FreeItemAttributes(alloc, recs)
	alloc.Free(unsafe.Pointer(p))
	if alloc.Live() != 0 {
		t.Errorf("leaked %d blocks", alloc.Live())
	}

	if hr := e.Next(1, &p, nil); hr != opc.S_FALSE || p != nil {
		t.Fatalf("Next at end = %s, %v", hr, p)
	}
	if hr := e.Next(1, nil, nil); hr != opc.E_POINTER {
		t.Fatalf("Next with nil items = %s", hr)
	}
}

func TestItemAttributes_Clone(t *testing.T) {
	alloc := memory.NewHeapAllocator()
	e := NewItemAttributes(alloc, []AttributeSource{
		&fakeItem{da.Attributes{ItemID: "a"}},
		&fakeItem{da.Attributes{ItemID: "b"}},
	})
	e.Skip(1)
	c, _ := e.Clone()
	e.Reset()

	var p *da.ItemAttributes
	var fetched uint32
	if hr := c.Next(2, &p, &fetched); hr != opc.S_FALSE || fetched != 1 {
		t.Fatalf("clone Next = %s, %d", hr, fetched)
	}
	recs := unsafe.Slice(p, fetched)
	if id := memory.WStringToString(recs[0].ItemID); id != "b" {
		t.Errorf("clone got %q", id)
	}
	da.FreeItemAttributes(alloc, recs)
	alloc.Free(unsafe.Pointer(p))
}
