package activation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/memory"
)

var (
	clsidDA2  = com.MustParseGUID("{6E6170F0-FF2D-11D2-8087-00105AA8F840}")
	clsidDA3  = com.MustParseGUID("{6E6170F1-FF2D-11D2-8087-00105AA8F840}")
	clsidBoth = com.MustParseGUID("{6E6170F2-FF2D-11D2-8087-00105AA8F840}")
)

// fakeServer answers IOPCServer only.
type fakeServer struct{}

func (f *fakeServer) QueryInterface(iid *com.GUID) (com.Unknown, error) {
	return com.InterfaceSet{&da.IID_IOPCServer}.Query(f, iid)
}

func factory() (com.Unknown, error) { return &fakeServer{}, nil }

func newRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	r := NewRegistry(opts...)
	for _, c := range []ClassInfo{
		{CLSID: clsidDA2, ProgID: "Test.DA2.1", VerIndProgID: "Test.DA2", UserType: "DA2 server",
			Categories: []com.GUID{da.CATID_OPCDAServer20}, Factory: factory},
		{CLSID: clsidDA3, ProgID: "Test.DA3.1", UserType: "DA3 server",
			Categories: []com.GUID{da.CATID_OPCDAServer30}, Factory: factory},
		{CLSID: clsidBoth, ProgID: "Test.Both.1", UserType: "DA2/DA3 server",
			Categories: []com.GUID{da.CATID_OPCDAServer20, da.CATID_OPCDAServer30}, Factory: factory},
	} {
		require.NoError(t, r.Register(c))
	}
	return r
}

func drainGUIDs(t *testing.T, e com.EnumGUID) []com.GUID {
	t.Helper()
	var out []com.GUID
	buf := make([]com.GUID, 2)
	for {
		var n uint32
		hr := e.Next(uint32(len(buf)), buf, &n)
		out = append(out, buf[:n]...)
		if hr != opc.S_OK {
			return out
		}
	}
}

func wstr(t *testing.T, s string) *uint16 {
	t.Helper()
	w, err := memory.NewLocalWString(s)
	require.NoError(t, err)
	return w.PCWSTR()
}

func TestRegister(t *testing.T) {
	r := newRegistry(t)
	assert.Len(t, r.Classes(), 3)

	err := r.Register(ClassInfo{CLSID: clsidDA2, Factory: factory})
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))

	err = r.Register(ClassInfo{CLSID: com.NewGUID(), ProgID: "Test.DA3.1", Factory: factory})
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))

	err = r.Register(ClassInfo{ProgID: "x", Factory: factory})
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))

	err = r.Register(ClassInfo{CLSID: com.NewGUID()})
	assert.True(t, errors.Is(err, errors.ErrPointer))

	assert.True(t, r.Unregister(clsidDA3))
	assert.False(t, r.Unregister(clsidDA3))
	_, ok := r.Lookup(clsidDA3)
	assert.False(t, ok)

	// the program id is free again
	require.NoError(t, r.Register(ClassInfo{CLSID: com.NewGUID(), ProgID: "Test.DA3.1", Factory: factory}))
}

func TestRegister_CategoriesCopied(t *testing.T) {
	r := NewRegistry()
	cats := []com.GUID{da.CATID_OPCDAServer20}
	require.NoError(t, r.Register(ClassInfo{CLSID: clsidDA2, Categories: cats, Factory: factory}))
	cats[0] = da.CATID_OPCDAServer10

	info, ok := r.Lookup(clsidDA2)
	require.True(t, ok)
	assert.True(t, info.Implements(da.CATID_OPCDAServer20))
}

func TestCreate(t *testing.T) {
	r := newRegistry(t)

	u, err := r.Create(&clsidDA2, &da.IID_IOPCServer)
	require.NoError(t, err)
	assert.IsType(t, &fakeServer{}, u)

	_, err = r.Create(&clsidDA2, &da.IID_IOPCBrowse)
	assert.True(t, errors.Is(err, errors.ErrInterfaceMissing))

	unknown := com.NewGUID()
	_, err = r.Create(&unknown, &da.IID_IOPCServer)
	assert.True(t, errors.Is(err, errors.ErrClassNotRegistered))
	assert.Equal(t, opc.REGDB_E_CLASSNOTREG, errors.HResult(err))

	broken := com.NewGUID()
	require.NoError(t, r.Register(ClassInfo{CLSID: broken, Factory: func() (com.Unknown, error) {
		return nil, errors.OutOfMemory(errors.PhaseServer, 0)
	}}))
	_, err = r.Create(&broken, nil)
	assert.True(t, errors.Is(err, errors.ErrActivationFailure))
	assert.True(t, errors.Is(err, errors.ErrOutOfMemory))
}

func TestEnumClassesOfCategories(t *testing.T) {
	r := newRegistry(t)

	tests := []struct {
		name                  string
		implemented, required []com.GUID
		want                  []com.GUID
	}{
		{"all", nil, nil, []com.GUID{clsidDA2, clsidDA3, clsidBoth}},
		{"any of DA2", []com.GUID{da.CATID_OPCDAServer20}, nil, []com.GUID{clsidDA2, clsidBoth}},
		{"any of DA2 or DA3", []com.GUID{da.CATID_OPCDAServer20, da.CATID_OPCDAServer30}, nil, []com.GUID{clsidDA2, clsidDA3, clsidBoth}},
		{"requires both", nil, []com.GUID{da.CATID_OPCDAServer20, da.CATID_OPCDAServer30}, []com.GUID{clsidBoth}},
		{"none", []com.GUID{da.CATID_OPCDAServer10}, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e com.EnumGUID
			require.NoError(t, r.EnumClassesOfCategories(tt.implemented, tt.required, &e))
			assert.Equal(t, tt.want, drainGUIDs(t, e))
		})
	}

	assert.True(t, errors.Is(r.EnumClassesOfCategories(nil, nil, nil), errors.ErrPointer))
}

func TestGetClassDetails(t *testing.T) {
	heap := memory.NewHeapAllocator()
	r := newRegistry(t, WithAllocator(heap))

	var progID, userType, verInd *uint16
	require.NoError(t, r.GetClassDetails(&clsidDA2, &progID, &userType, &verInd))
	assert.Equal(t, "Test.DA2.1", memory.WStringToString(progID))
	assert.Equal(t, "DA2 server", memory.WStringToString(userType))
	assert.Equal(t, "Test.DA2", memory.WStringToString(verInd))
	for _, p := range []*uint16{progID, userType, verInd} {
		memory.FreeWString(heap, p)
	}
	assert.Zero(t, heap.Live())

	unknown := com.NewGUID()
	err := r.GetClassDetails(&unknown, &progID, &userType, &verInd)
	assert.True(t, errors.Is(err, errors.ErrClassNotRegistered))
	assert.Nil(t, progID)
}

func TestGetClassDetails_RollsBack(t *testing.T) {
	heap := memory.NewLimitedHeapAllocator(64)
	r := NewRegistry(WithAllocator(heap))
	require.NoError(t, r.Register(ClassInfo{
		CLSID:    clsidDA2,
		ProgID:   "A.1",
		UserType: strings.Repeat("u", 100),
		Factory:  factory,
	}))

	var progID, userType, verInd *uint16
	err := r.GetClassDetails(&clsidDA2, &progID, &userType, &verInd)
	assert.True(t, errors.Is(err, errors.ErrOutOfMemory))
	assert.Nil(t, progID)
	assert.Nil(t, userType)
	assert.Zero(t, heap.Live())
}

func TestServerListView(t *testing.T) {
	heap := memory.NewHeapAllocator()
	r := newRegistry(t, WithAllocator(heap))

	list, err := com.Query[da.ServerList](r, &da.IID_IOPCServerList)
	require.NoError(t, err)
	list2, err := com.Query[da.ServerList2](list, &da.IID_IOPCServerList2)
	require.NoError(t, err)
	assert.Same(t, r, list2)

	var progID, userType *uint16
	require.NoError(t, list.GetClassDetails(&clsidDA2, &progID, &userType))
	assert.Equal(t, "Test.DA2.1", memory.WStringToString(progID))
	memory.FreeWString(heap, progID)
	memory.FreeWString(heap, userType)
	assert.Zero(t, heap.Live())

	var clsid com.GUID
	require.NoError(t, list.CLSIDFromProgID(wstr(t, "Test.DA2"), &clsid))
	assert.Equal(t, clsidDA2, clsid)
}

func TestResolveProgID(t *testing.T) {
	r := newRegistry(t)

	g, err := r.ResolveProgID("Test.DA3.1")
	require.NoError(t, err)
	assert.Equal(t, clsidDA3, g)

	g, err = r.ResolveProgID(clsidBoth.String())
	require.NoError(t, err)
	assert.Equal(t, clsidBoth, g)

	_, err = r.ResolveProgID("No.Such.Server")
	assert.True(t, errors.Is(err, errors.ErrClassNotRegistered))

	var clsid com.GUID
	err = r.CLSIDFromProgID(wstr(t, "No.Such.Server"), &clsid)
	assert.Equal(t, opc.REGDB_E_CLASSNOTREG, errors.HResult(err))
}

func TestDefault(t *testing.T) {
	assert.Same(t, Default(), Default())
}
