package da

import (
	"testing"
	"unsafe"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/memory"
)

func TestMatrix(t *testing.T) {
	tests := []struct {
		cap  *Capability
		want [3]Requirement
	}{
		{CapServer, [3]Requirement{Required, Required, Required}},
		{CapCommon, [3]Requirement{Unavailable, Required, Required}},
		{CapItemProperties, [3]Requirement{Unavailable, Required, Unavailable}},
		{CapBrowse, [3]Requirement{Unavailable, Unavailable, Required}},
		{CapBrowseServerAddressSpace, [3]Requirement{Optional, Optional, Unavailable}},
		{CapAsyncIO, [3]Requirement{Required, Optional, Unavailable}},
		{CapAsyncIO2, [3]Requirement{Unavailable, Required, Required}},
		{CapItemSamplingMgt, [3]Requirement{Unavailable, Unavailable, Optional}},
		{CapDataObject, [3]Requirement{Required, Optional, Unavailable}},
	}
	for _, tt := range tests {
		t.Run(tt.cap.Name(), func(t *testing.T) {
			for i, v := range opc.Versions {
				if got := tt.cap.Requirement(v); got != tt.want[i] {
					t.Errorf("%s: got %s, want %s", v, got, tt.want[i])
				}
			}
			if got := tt.cap.Requirement(0); got != Unavailable {
				t.Errorf("invalid version: got %s", got)
			}
		})
	}
}

func TestRequiredAt(t *testing.T) {
	names := func(caps []*Capability) map[string]bool {
		m := make(map[string]bool)
		for _, c := range caps {
			m[c.Name()] = true
		}
		return m
	}

	v1 := names(RequiredAt(GroupCapabilities, opc.V1))
	for _, n := range []string{"IOPCItemMgt", "IOPCGroupStateMgt", "IOPCSyncIO", "IOPCAsyncIO", "IDataObject"} {
		if !v1[n] {
			t.Errorf("DA1.0 group should require %s", n)
		}
	}
	if v1["IOPCAsyncIO2"] {
		t.Error("DA1.0 group should not require IOPCAsyncIO2")
	}

	v3 := names(RequiredAt(ServerCapabilities, opc.V3))
	for _, n := range []string{"IOPCServer", "IOPCCommon", "IConnectionPointContainer", "IOPCBrowse", "IOPCItemIO"} {
		if !v3[n] {
			t.Errorf("DA3.0 server should require %s", n)
		}
	}
	if v3["IOPCItemProperties"] {
		t.Error("DA3.0 server should not require IOPCItemProperties")
	}
}

func TestCategoryIDs(t *testing.T) {
	ids := CategoryIDs(opc.NewVersionSet(opc.V1, opc.V3))
	if len(ids) != 2 || ids[0] != CATID_OPCDAServer10 || ids[1] != CATID_OPCDAServer30 {
		t.Fatalf("got %v", ids)
	}
	if _, ok := CategoryID(4); ok {
		t.Error("version 4 has no category")
	}
}

func TestEnums(t *testing.T) {
	if !SourceCache.Valid() || !SourceDevice.Valid() || DataSource(3).Valid() {
		t.Error("DataSource validity")
	}
	if !BrowseTo.Valid() || BrowseDirection(0).Valid() {
		t.Error("BrowseDirection validity")
	}
	if StateSuspended.String() != "suspended" {
		t.Errorf("got %q", StateSuspended.String())
	}
	if ServerState(9).Valid() {
		t.Error("ServerState(9) should be invalid")
	}

	bt, err := ParseBrowseType("flat")
	if err != nil || bt != BrowseFlat {
		t.Errorf("ParseBrowseType(flat) = %v, %v", bt, err)
	}
	if _, err := ParseBrowseType("deep"); err == nil {
		t.Error("expected error for unknown browse type")
	}

	if QualityString(QualityGood) != "good" || QualityString(QualityLastKnown|QualityUncertain) != "uncertain" {
		t.Error("QualityString")
	}
}

func TestInterfaceNames(t *testing.T) {
	if got := com.InterfaceName(&IID_IOPCSyncIO2); got != "IOPCSyncIO2" {
		t.Errorf("got %q", got)
	}
}

func TestAttributes_ExportImport(t *testing.T) {
	alloc := memory.NewHeapAllocator()
	in := Attributes{
		AccessPath:    "",
		ItemID:        "plant.tank.level",
		Active:        true,
		ClientHandle:  7,
		ServerHandle:  1,
		AccessRights:  AccessReadable | AccessWriteable,
		RequestedType: com.VT_EMPTY,
		CanonicalType: com.VT_R8,
	}
	rec, err := in.Export(alloc)
	if err != nil {
		t.Fatal(err)
	}
	if got := rec.Import(); got != in {
		t.Errorf("got %+v, want %+v", got, in)
	}

	recs := []ItemAttributes{rec}
	FreeItemAttributes(alloc, recs)
	if alloc.Live() != 0 {
		t.Errorf("leaked %d blocks", alloc.Live())
	}
	if recs[0].ItemID != nil {
		t.Error("record not cleared")
	}
}

func TestAttributes_ExportOutOfMemory(t *testing.T) {
	alloc := memory.NewLimitedHeapAllocator(8)
	_, err := Attributes{AccessPath: "a", ItemID: "a much longer item identifier"}.Export(alloc)
	if err == nil {
		t.Fatal("expected out of memory")
	}
	if alloc.Live() != 0 {
		t.Errorf("leaked %d blocks", alloc.Live())
	}
}

func TestFreeItemPropertyList(t *testing.T) {
	alloc := memory.NewHeapAllocator()
	base, props, err := memory.AllocSlice[ItemProperty](alloc, 2)
	if err != nil {
		t.Fatal(err)
	}
	props[0].ItemID, _ = memory.AllocWString(alloc, "x.y")
	props[1].Value, _ = com.NewString("desc").ToVARIANT(alloc)

	list := ItemProperties{NumProperties: 2, Properties: base}
	FreeItemPropertyList(alloc, &list)
	if alloc.Live() != 0 {
		t.Errorf("leaked %d blocks", alloc.Live())
	}
	if list.Properties != nil || list.NumProperties != 0 {
		t.Error("list not cleared")
	}
}

func TestFreeServerStatus(t *testing.T) {
	alloc := memory.NewHeapAllocator()
	st, err := memory.Alloc[ServerStatus](alloc)
	if err != nil {
		t.Fatal(err)
	}
	st.VendorInfo, _ = memory.AllocWString(alloc, "vendor")
	FreeServerStatus(alloc, st)
	if alloc.Live() != 0 {
		t.Errorf("leaked %d blocks", alloc.Live())
	}
	FreeServerStatus(alloc, nil)
}

func TestRecordLayout(t *testing.T) {
	// VARIANT is 8-aligned, so the value follows the 16 header bytes.
	if off := unsafe.Offsetof(ItemState{}.DataValue); off != 16 {
		t.Errorf("ItemState.DataValue offset %d", off)
	}
	if off := unsafe.Offsetof(ServerStatus{}.ServerState); off != 24 {
		t.Errorf("ServerStatus.ServerState offset %d", off)
	}
}
