package server

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/activation"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/memory"
)

func drainStrings(t *testing.T, f *fixture, e com.EnumString) []string {
	t.Helper()
	var out []string
	buf := make([]*uint16, 3)
	for {
		var fetched uint32
		hr := e.Next(uint32(len(buf)), buf, &fetched)
		for _, p := range buf[:fetched] {
			out = append(out, memory.WStringToString(p))
			memory.FreeWString(f.heap, p)
		}
		if hr != opc.S_OK {
			return out
		}
	}
}

func (f *fixture) browse(t *testing.T, typ da.BrowseType, filter string) []string {
	t.Helper()
	var e com.EnumString
	require.NoError(t, f.srv.BrowseOPCItemIDs(typ, wstr(t, filter), com.VT_EMPTY, 0, &e))
	return drainStrings(t, f, e)
}

func TestBrowse_ToLeaf(t *testing.T) {
	f := newFixture(t)

	branches := f.browse(t, da.BrowseBranch, "")
	require.NotEmpty(t, branches)
	n1 := branches[0]
	require.NoError(t, f.srv.ChangeBrowsePosition(da.BrowseTo, wstr(t, n1)))

	flat := f.browse(t, da.BrowseFlat, "")
	require.NotEmpty(t, flat)
	n2 := flat[0]

	var id *uint16
	require.NoError(t, f.srv.GetItemID(wstr(t, n2), &id))
	full := memory.WStringToString(id)
	memory.FreeWString(f.heap, id)
	assert.True(t, strings.HasSuffix(full, n2), "%q does not end with %q", full, n2)
	_, ok := f.space.Lookup(full)
	assert.True(t, ok)
	assert.Zero(t, f.heap.Live())
}

func TestBrowse_Positions(t *testing.T) {
	f := newFixture(t)
	srv := f.srv

	err := srv.ChangeBrowsePosition(da.BrowseUp, nil)
	assert.Equal(t, opc.E_FAIL, errors.HResult(err))

	require.NoError(t, srv.ChangeBrowsePosition(da.BrowseDown, wstr(t, "plant")))
	require.NoError(t, srv.ChangeBrowsePosition(da.BrowseDown, wstr(t, "tank")))
	assert.Equal(t, "plant.tank", srv.Position())
	assert.ElementsMatch(t, []string{"level", "temp"}, f.browse(t, da.BrowseLeaf, ""))
	assert.Empty(t, f.browse(t, da.BrowseBranch, ""))

	err = srv.ChangeBrowsePosition(da.BrowseDown, wstr(t, "level"))
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	var id *uint16
	require.NoError(t, srv.GetItemID(wstr(t, "level"), &id))
	assert.Equal(t, "plant.tank.level", memory.WStringToString(id))
	memory.FreeWString(f.heap, id)

	require.NoError(t, srv.ChangeBrowsePosition(da.BrowseUp, nil))
	assert.Equal(t, "plant", srv.Position())
	require.NoError(t, srv.ChangeBrowsePosition(da.BrowseTo, wstr(t, "")))
	assert.Equal(t, "", srv.Position())
	assert.True(t, errors.Is(srv.ChangeBrowsePosition(da.BrowseDirection(9), nil), errors.ErrInvalidArgument))

	var ns da.NamespaceType
	require.NoError(t, srv.QueryOrganization(&ns))
	assert.Equal(t, da.NamespaceHierarchical, ns)
}

func TestBrowse_Filters(t *testing.T) {
	f := newFixture(t)

	assert.ElementsMatch(t, []string{"plant.tank.level", "plant.line1.speed"}, f.browse(t, da.BrowseFlat, "*.[ls]*[dl]"))

	var e com.EnumString
	require.NoError(t, f.srv.BrowseOPCItemIDs(da.BrowseFlat, nil, com.VT_R8, 0, &e))
	assert.ElementsMatch(t, []string{"plant.tank.level", "plant.line1.speed"}, drainStrings(t, f, e))

	require.NoError(t, f.srv.BrowseOPCItemIDs(da.BrowseFlat, nil, com.VT_EMPTY, da.AccessWriteable, &e))
	assert.NotContains(t, drainStrings(t, f, e), "plant.line1.mode")

	err := f.srv.BrowseOPCItemIDs(da.BrowseType(0), nil, com.VT_EMPTY, 0, &e)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))

	err = f.srv.BrowseAccessPaths(wstr(t, "plant.tank.level"), &e)
	assert.Equal(t, opc.E_NOTIMPL, errors.HResult(err))
}

func browseAll(t *testing.T, f *fixture, itemID string, max uint32) ([]string, int) {
	t.Helper()
	var names []string
	var point *uint16
	calls := 0
	for {
		var more com.BOOL
		var count uint32
		var elems *da.BrowseElement
		require.NoError(t, f.srv.Browse(wstr(t, itemID), &point, max, da.FilterAll, nil, nil, com.BoolOf(false), com.BoolOf(false), nil, &more, &count, &elems))
		calls++
		list := memory.AdoptArray(f.heap, elems, count)
		for _, el := range list.Slice() {
			names = append(names, memory.WStringToString(el.Name))
		}
		da.FreeBrowseElements(f.heap, list.Slice())
		list.Free()
		if !more.Bool() {
			assert.Nil(t, point)
			return names, calls
		}
		require.NotNil(t, point)
		next := memory.WStringToString(point)
		memory.FreeWString(f.heap, point)
		point = wstr(t, next)
	}
}

func TestIOPCBrowse_Continuation(t *testing.T) {
	f := newFixture(t)
	for i := range 5 {
		_, err := f.space.Set(fmt.Sprintf("bulk.n%d", i), com.NewInt32(int32(i)))
		require.NoError(t, err)
	}

	all, calls := browseAll(t, f, "bulk", 0)
	assert.Equal(t, []string{"n0", "n1", "n2", "n3", "n4"}, all)
	assert.Equal(t, 1, calls)

	paged, calls := browseAll(t, f, "bulk", 2)
	assert.Equal(t, all, paged)
	assert.Equal(t, 3, calls)
	assert.Zero(t, f.heap.Live())

	bogus := wstr(t, "not-a-point")
	var more com.BOOL
	var count uint32
	var elems *da.BrowseElement
	err := f.srv.Browse(wstr(t, "bulk"), &bogus, 0, da.FilterAll, nil, nil, com.BoolOf(false), com.BoolOf(false), nil, &more, &count, &elems)
	assert.Equal(t, opc.OPC_E_INVALIDCONTINUATIONPOINT, errors.HResult(err))

	var point *uint16
	err = f.srv.Browse(wstr(t, "nowhere"), &point, 0, da.FilterAll, nil, nil, com.BoolOf(false), com.BoolOf(false), nil, &more, &count, &elems)
	assert.Equal(t, opc.OPC_E_UNKNOWNITEMID, errors.HResult(err))
}

func TestIOPCBrowse_FlagsAndProperties(t *testing.T) {
	f := newFixture(t)

	var point *uint16
	var more com.BOOL
	var count uint32
	var elems *da.BrowseElement
	require.NoError(t, f.srv.Browse(wstr(t, "plant.tank"), &point, 0, da.FilterItems, wstr(t, "l*"), nil,
		com.BoolOf(true), com.BoolOf(true), nil, &more, &count, &elems))
	list := memory.AdoptArray(f.heap, elems, count)
	require.Equal(t, 1, list.Len())
	el := list.At(0)
	assert.Equal(t, "level", memory.WStringToString(el.Name))
	assert.Equal(t, "plant.tank.level", memory.WStringToString(el.ItemID))
	assert.Equal(t, da.BrowseIsItem, el.Flags)

	props := memory.AdoptArray(f.heap, el.Properties.Properties, el.Properties.NumProperties)
	ids := make([]uint32, 0, props.Len())
	for _, p := range props.Slice() {
		ids = append(ids, p.PropertyID)
		assert.Equal(t, opc.S_OK, p.Error)
	}
	assert.Equal(t, []uint32{1, 2, 3, 4, 5, 6, 7, 101, 102, 103}, ids)
	v, err := com.FromVARIANT(&props.Slice()[1].Value)
	require.NoError(t, err)
	assert.True(t, v.Equal(com.NewFloat64(42.5)))

	da.FreeBrowseElements(f.heap, list.Slice())
	list.Free()
	assert.Zero(t, f.heap.Live())

	require.NoError(t, f.srv.Browse(nil, &point, 0, da.FilterBranches, nil, nil,
		com.BoolOf(false), com.BoolOf(false), nil, &more, &count, &elems))
	list = memory.AdoptArray(f.heap, elems, count)
	require.Equal(t, 1, list.Len())
	assert.Equal(t, da.BrowseHasChildren, list.At(0).Flags)
	da.FreeBrowseElements(f.heap, list.Slice())
	list.Free()
}

func TestItemProperties(t *testing.T) {
	f := newFixture(t)

	var count uint32
	var ids *uint32
	var descs **uint16
	var vts *com.VT
	require.NoError(t, f.srv.QueryAvailableProperties(wstr(t, "plant.tank.temp"), &count, &ids, &descs, &vts))
	idList := memory.AdoptArray(f.heap, ids, count)
	descList := memory.AdoptArray(f.heap, descs, count)
	vtList := memory.AdoptArray(f.heap, vts, count)
	assert.Equal(t, []uint32{1, 2, 3, 4, 5, 6}, idList.Slice())
	assert.Equal(t, com.VT_I4, vtList.At(1))
	assert.Equal(t, "Item Value", memory.WStringToString(descList.At(1)))
	for _, p := range descList.Slice() {
		memory.FreeWString(f.heap, p)
	}
	idList.Free()
	descList.Free()
	vtList.Free()

	values := memory.ArrayWithLen[com.VARIANT](f.heap, 3)
	errs := memory.ArrayWithLen[opc.HRESULT](f.heap, 3)
	require.NoError(t, f.srv.GetItemProperties(wstr(t, "plant.tank.level"), []uint32{da.PropValue, 9999, da.PropHighEU}, values.PtrAddr(), errs.PtrAddr()))
	assert.Equal(t, []opc.HRESULT{opc.S_OK, opc.OPC_E_INVALID_PID, opc.S_OK}, errs.Slice())
	high, err := com.FromVARIANT(&values.Slice()[2])
	require.NoError(t, err)
	assert.True(t, high.Equal(com.NewFloat64(100)))
	com.ClearVARIANTs(f.heap, values.Slice())
	values.Free()
	errs.Free()

	err = f.srv.QueryAvailableProperties(wstr(t, "plant.nothing"), &count, &ids, &descs, &vts)
	assert.Equal(t, opc.OPC_E_UNKNOWNITEMID, errors.HResult(err))
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))

	newIDs := memory.ArrayWithLen[*uint16](f.heap, 1)
	codes := memory.ArrayWithLen[opc.HRESULT](f.heap, 1)
	require.NoError(t, f.srv.LookupItemIDs(wstr(t, "plant.tank.level"), []uint32{da.PropValue}, newIDs.PtrAddr(), codes.PtrAddr()))
	assert.Equal(t, opc.OPC_E_INVALID_PID, codes.At(0))
	newIDs.Free()
	codes.Free()
	assert.Zero(t, f.heap.Live())
}

func TestGetProperties_UnknownItem(t *testing.T) {
	f := newFixture(t)

	var recs *da.ItemProperties
	require.NoError(t, f.srv.GetProperties(wstrs(t, "plant.tank.temp", "missing"), com.BoolOf(false), []uint32{da.PropCanonicalType}, &recs))
	list := memory.AdoptArray(f.heap, recs, 2)
	assert.Equal(t, opc.S_OK, list.At(0).Error)
	assert.Equal(t, uint32(1), list.At(0).NumProperties)
	assert.Equal(t, opc.OPC_E_UNKNOWNITEMID, list.At(1).Error)
	for i := range list.Slice() {
		da.FreeItemPropertyList(f.heap, &list.Slice()[i])
	}
	list.Free()
	assert.Zero(t, f.heap.Live())
}

func TestItemIO(t *testing.T) {
	f := newFixture(t)

	vqts := []da.ItemVQT{{QualitySpecified: com.BoolOf(true), Quality: da.QualityUncertain}, {}}
	var err error
	vqts[0].Value, err = com.NewFloat64(12).ToVARIANT(f.heap)
	require.NoError(t, err)
	vqts[1].Value, err = com.NewFloat64(1).ToVARIANT(f.heap)
	require.NoError(t, err)
	errs := memory.ArrayWithLen[opc.HRESULT](f.heap, 2)
	require.NoError(t, f.srv.WriteVQT(wstrs(t, "plant.tank.level", "plant.tank"), vqts, errs.PtrAddr()))
	assert.Equal(t, []opc.HRESULT{opc.S_OK, opc.OPC_E_UNKNOWNITEMID}, errs.Slice())
	errs.Free()

	values := memory.ArrayWithLen[com.VARIANT](f.heap, 2)
	qualities := memory.ArrayWithLen[uint16](f.heap, 2)
	stamps := memory.ArrayWithLen[com.FILETIME](f.heap, 2)
	errs = memory.ArrayWithLen[opc.HRESULT](f.heap, 2)
	require.NoError(t, f.srv.Read(wstrs(t, "plant.tank.level", "plant.none"), []uint32{0, 0},
		values.PtrAddr(), qualities.PtrAddr(), stamps.PtrAddr(), errs.PtrAddr()))
	assert.Equal(t, []opc.HRESULT{opc.S_OK, opc.OPC_E_UNKNOWNITEMID}, errs.Slice())
	assert.Equal(t, da.QualityUncertain, qualities.At(0))
	v, err := com.FromVARIANT(&values.Slice()[0])
	require.NoError(t, err)
	assert.True(t, v.Equal(com.NewFloat64(12)))
	for _, a := range []interface{ Free() }{values, qualities, stamps, errs} {
		a.Free()
	}
	assert.Zero(t, f.heap.Live())
}

func TestConcurrentGroups(t *testing.T) {
	f := newFixture(t)
	const groups, writes = 8, 50

	var eg errgroup.Group
	for i := range groups {
		path := fmt.Sprintf("area%d.value", i)
		_, err := f.space.Set(path, com.NewInt32(0))
		require.NoError(t, err)
		g := f.addGroup(t, fmt.Sprintf("g%d", i))
		res, codes := f.addItems(t, g, path)
		require.Equal(t, opc.S_OK, codes[0])
		sio, err := com.Query[da.SyncIO](g, &da.IID_IOPCSyncIO)
		require.NoError(t, err)

		eg.Go(func() error {
			for n := 1; n <= writes; n++ {
				v, err := com.NewInt32(int32(n)).ToVARIANT(f.heap)
				if err != nil {
					return err
				}
				var errs *opc.HRESULT
				err = sio.Write([]uint32{res[0].ServerHandle}, []com.VARIANT{v}, &errs)
				if err != nil {
					return err
				}
				codes := memory.AdoptArray(f.heap, errs, 1)
				code := codes.At(0)
				codes.Free()
				if code != opc.S_OK {
					return errors.FromHRESULT(errors.PhaseServer, code, path)
				}

				var states *da.ItemState
				if err := sio.Read(da.SourceDevice, []uint32{res[0].ServerHandle}, &states, &errs); err != nil {
					return err
				}
				read := memory.AdoptArray(f.heap, states, 1)
				da.FreeItemStates(f.heap, read.Slice())
				read.Free()
				memory.AdoptArray(f.heap, errs, 1).Free()
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	for i := range groups {
		n, ok := f.space.Lookup(fmt.Sprintf("area%d.value", i))
		require.True(t, ok)
		smp, err := n.Read()
		require.NoError(t, err)
		assert.True(t, smp.Value.Equal(com.NewInt32(writes)), "area%d = %s", i, smp.Value)
	}
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	reg := activation.NewRegistry()

	clsid, err := Register(reg, f.space, Options{Allocator: f.heap, DisablePolling: true})
	require.NoError(t, err)
	assert.NotEqual(t, com.GUID{}, clsid)

	info, ok := reg.Lookup(clsid)
	require.True(t, ok)
	assert.Equal(t, DefaultProgID, info.ProgID)
	assert.True(t, info.Implements(da.CATID_OPCDAServer30))
	assert.False(t, info.Implements(da.CATID_OPCDAServer10))

	u, err := reg.Create(&clsid, &da.IID_IOPCServer)
	require.NoError(t, err)
	srv, ok := u.(*Server)
	require.True(t, ok)
	assert.Same(t, f.space, srv.Space())
	assert.Equal(t, clsid, srv.CLSID())

	_, err = Register(reg, f.space, Options{CLSID: clsid})
	assert.Error(t, err)
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern, s string
		want       bool
	}{
		{"", "anything", true},
		{"*", "", true},
		{"lev*", "level", true},
		{"lev*", "alevel", false},
		{"l?vel", "level", true},
		{"l?vel", "lvel", false},
		{"tag#", "tag7", true},
		{"tag#", "tagx", false},
		{"[lt]*", "temp", true},
		{"[!lt]*", "temp", false},
		{"[a-c]x", "bx", true},
		{"[a-c]x", "dx", false},
		{"*.level", "plant.tank.level", true},
		{"a*b*c", "aXbYc", true},
		{"a*b*c", "aXbY", false},
		{"[", "[", true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.s, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.pattern, tt.s))
		})
	}
}
