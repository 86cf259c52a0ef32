package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/errors"
)

func addItems(t *testing.T, g *Group, ids ...string) []uint32 {
	t.Helper()
	defs := make([]ItemDef, len(ids))
	for i, id := range ids {
		defs[i] = ItemDef{ItemID: id, Active: true, ClientHandle: uint32(100 + i)}
	}
	res, codes, err := g.AddItems(defs)
	require.NoError(t, err)
	handles := make([]uint32, len(ids))
	for i := range ids {
		require.Equal(t, opc.S_OK, codes[i], ids[i])
		handles[i] = res[i].ServerHandle
	}
	return handles
}

func TestGroup_Slots(t *testing.T) {
	f := newFixture(t)
	srv := f.server(t)
	g, err := srv.AddGroup("g", true, 100, 1)
	require.NoError(t, err)

	assert.Equal(t, opc.V3, g.Version())
	for _, c := range []*da.Capability{da.CapSyncIO2, da.CapAsyncIO2, da.CapAsyncIO3, da.CapItemDeadbandMgt, da.CapItemSamplingMgt, da.CapGroupConnectionPoints} {
		assert.True(t, g.Supports(c), c.Name())
	}
	for _, c := range []*da.Capability{da.CapAsyncIO, da.CapDataObject, da.CapPublicGroupStateMgt} {
		assert.False(t, g.Supports(c), c.Name())
	}

	_, _, err = g.LegacyRead(1, da.SourceCache, []uint32{1})
	assert.ErrorIs(t, err, errors.ErrNotImplemented)
	_, err = g.DAdvise(&da.FormatEtc{}, 0, nil)
	assert.ErrorIs(t, err, errors.ErrNotImplemented)
	_, err = g.IsPublic()
	assert.ErrorIs(t, err, errors.ErrNotImplemented)
	assert.ErrorIs(t, g.MoveToPublic(), errors.ErrNotImplemented)
}

func TestGroup_PartialAdd(t *testing.T) {
	f := newFixture(t)
	srv := f.server(t)
	g, err := srv.AddGroup("g", true, 100, 1)
	require.NoError(t, err)

	res, codes, err := g.AddItems([]ItemDef{
		{ItemID: "plant.tank.level", Active: true, ClientHandle: 1},
		{ItemID: "plant.nowhere", Active: true, ClientHandle: 2},
		{ItemID: "plant.line1.mode", Active: true, ClientHandle: 3},
	})
	require.NoError(t, err)
	require.Len(t, codes, 3)
	assert.Equal(t, opc.S_OK, codes[0])
	assert.Equal(t, opc.E_INVALIDARG, codes[1])
	assert.Equal(t, opc.S_OK, codes[2])
	assert.Zero(t, res[1])
	assert.NotZero(t, res[0].ServerHandle)
	assert.Equal(t, com.VT_BSTR, res[2].CanonicalType)

	_, _, err = g.AddItems(nil)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	assert.Zero(t, f.heap.Live())
}

func TestGroup_ValidateItems(t *testing.T) {
	f := newFixture(t)
	srv := f.server(t)
	g, err := srv.AddGroup("g", true, 100, 1)
	require.NoError(t, err)

	res, codes, err := g.ValidateItems([]ItemDef{{ItemID: "plant.tank.temp"}})
	require.NoError(t, err)
	assert.Equal(t, []opc.HRESULT{opc.S_OK}, codes)
	assert.Equal(t, com.VT_I4, res[0].CanonicalType)

	items, err := g.Items()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGroup_WriteAndRead(t *testing.T) {
	f := newFixture(t)
	srv := f.server(t)
	g, err := srv.AddGroup("g", true, 100, 1)
	require.NoError(t, err)
	h := addItems(t, g, "plant.tank.level", "plant.line1.speed")

	codes, err := g.Write(h, []com.Variant{com.NewFloat64(10), com.NewFloat64(7.5)})
	require.NoError(t, err)
	assert.Equal(t, []opc.HRESULT{opc.S_OK, opc.S_OK}, codes)

	states, codes, err := g.Read(da.SourceDevice, h)
	require.NoError(t, err)
	assert.Equal(t, []opc.HRESULT{opc.S_OK, opc.S_OK}, codes)
	assert.True(t, com.NewFloat64(10).Equal(states[0].Value))
	assert.True(t, com.NewFloat64(7.5).Equal(states[1].Value))
	assert.Equal(t, uint32(101), states[1].ClientHandle)

	q := da.QualityGood
	stamp := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	codes, err = g.WriteVQT(h[:1], []VQT{{Value: com.NewFloat64(11), Quality: &q, Timestamp: &stamp}})
	require.NoError(t, err)
	assert.Equal(t, []opc.HRESULT{opc.S_OK}, codes)

	values, codes, err := g.ReadMaxAge(h[:1], nil)
	require.NoError(t, err)
	assert.Equal(t, []opc.HRESULT{opc.S_OK}, codes)
	assert.True(t, com.NewFloat64(11).Equal(values[0].Value))
	assert.WithinDuration(t, stamp, values[0].Timestamp, time.Millisecond)

	assert.Zero(t, f.heap.Live())
}

func TestGroup_ItemManagement(t *testing.T) {
	f := newFixture(t)
	srv := f.server(t)
	g, err := srv.AddGroup("g", true, 100, 1)
	require.NoError(t, err)
	h := addItems(t, g, "plant.tank.level", "plant.tank.temp")

	codes, err := g.SetActiveState(h[:1], false)
	require.NoError(t, err)
	assert.Equal(t, []opc.HRESULT{opc.S_OK}, codes)

	codes, err = g.SetClientHandles(h[1:], []uint32{77})
	require.NoError(t, err)
	assert.Equal(t, []opc.HRESULT{opc.S_OK}, codes)

	codes, err = g.SetDatatypes(h[1:], []com.VT{com.VT_R8})
	require.NoError(t, err)
	assert.Equal(t, []opc.HRESULT{opc.E_INVALIDARG}, codes)

	items, err := g.Items()
	require.NoError(t, err)
	require.Len(t, items, 2)
	byID := map[string]da.Attributes{}
	for _, it := range items {
		byID[it.ItemID] = it
	}
	assert.False(t, byID["plant.tank.level"].Active)
	assert.Equal(t, uint32(77), byID["plant.tank.temp"].ClientHandle)
	assert.Equal(t, com.VT_EMPTY, byID["plant.tank.temp"].RequestedType)

	codes, err = g.RemoveItems([]uint32{h[0], 9999})
	require.NoError(t, err)
	assert.Equal(t, opc.S_OK, codes[0])
	assert.True(t, codes[1].Failed())

	assert.Zero(t, f.heap.Live())
}

func TestGroup_State(t *testing.T) {
	f := newFixture(t)
	srv := f.server(t)
	g, err := srv.AddGroup("g", false, 250, 9)
	require.NoError(t, err)

	st, err := g.GetState()
	require.NoError(t, err)
	assert.Equal(t, "g", st.Name)
	assert.False(t, st.Active)
	assert.Equal(t, uint32(9), st.ClientHandle)
	assert.Equal(t, g.Handle(), st.ServerHandle)
	assert.Equal(t, g.RevisedUpdateRate(), st.UpdateRate)

	rate := uint32(1000)
	active := true
	revised, err := g.SetState(GroupStateUpdate{UpdateRate: &rate, Active: &active})
	require.NoError(t, err)
	assert.Equal(t, rate, revised)

	require.NoError(t, g.SetName("renamed"))
	st, err = g.GetState()
	require.NoError(t, err)
	assert.Equal(t, "renamed", st.Name)
	assert.True(t, st.Active)

	clone, err := g.Clone("copy")
	require.NoError(t, err)
	assert.NotEqual(t, g.Handle(), clone.Handle())
	cst, err := clone.GetState()
	require.NoError(t, err)
	assert.False(t, cst.Active)

	ka, err := g.SetKeepAlive(5000)
	require.NoError(t, err)
	assert.Equal(t, uint32(5000), ka)
	got, err := g.KeepAlive()
	require.NoError(t, err)
	assert.Equal(t, ka, got)

	assert.Zero(t, f.heap.Live())
}

func TestGroup_DeadbandAndSampling(t *testing.T) {
	f := newFixture(t)
	srv := f.server(t)
	g, err := srv.AddGroup("g", true, 100, 1)
	require.NoError(t, err)
	h := addItems(t, g, "plant.tank.level")

	codes, err := g.SetItemDeadband(h, []float32{5})
	require.NoError(t, err)
	assert.Equal(t, []opc.HRESULT{opc.S_OK}, codes)
	bands, codes, err := g.ItemDeadband(h)
	require.NoError(t, err)
	assert.Equal(t, []opc.HRESULT{opc.S_OK}, codes)
	assert.Equal(t, []float32{5}, bands)
	codes, err = g.ClearItemDeadband(h)
	require.NoError(t, err)
	assert.Equal(t, []opc.HRESULT{opc.S_OK}, codes)

	revised, codes, err := g.SetItemSamplingRate(h, []uint32{500})
	require.NoError(t, err)
	assert.Equal(t, opc.S_OK, codes[0])
	assert.Equal(t, uint32(500), revised[0])
	rates, _, err := g.ItemSamplingRate(h)
	require.NoError(t, err)
	assert.Equal(t, []uint32{500}, rates)

	codes, err = g.SetItemBufferEnable(h, []bool{true})
	require.NoError(t, err)
	assert.Equal(t, []opc.HRESULT{opc.S_OK}, codes)
	enabled, _, err := g.ItemBufferEnable(h)
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, enabled)

	assert.Zero(t, f.heap.Live())
}

// recorder collects notifications on channels.
type recorder struct {
	changes chan DataChange
	reads   chan DataChange
	writes  chan WriteComplete
	cancels chan uint32
}

func newRecorder() *recorder {
	return &recorder{
		changes: make(chan DataChange, 8),
		reads:   make(chan DataChange, 8),
		writes:  make(chan WriteComplete, 8),
		cancels: make(chan uint32, 8),
	}
}

func (r *recorder) handler() DataHandler {
	return DataHandlerFuncs{
		DataChange:     func(c DataChange) { r.changes <- c },
		ReadComplete:   func(c DataChange) { r.reads <- c },
		WriteComplete:  func(c WriteComplete) { r.writes <- c },
		CancelComplete: func(txn, _ uint32) { r.cancels <- txn },
	}
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
		var zero T
		return zero
	}
}

func TestGroup_AsyncIO(t *testing.T) {
	f := newFixture(t)
	srv := f.server(t)
	g, err := srv.AddGroup("g", true, 100, 5)
	require.NoError(t, err)
	h := addItems(t, g, "plant.tank.level")

	_, _, err = g.AsyncRead(h, 1)
	require.Error(t, err)
	assert.Equal(t, opc.CONNECT_E_NOCONNECTION, errors.HResult(err))

	rec := newRecorder()
	cookie, err := g.Subscribe(rec.handler())
	require.NoError(t, err)

	cancelID, codes, err := g.AsyncRead(h, 7)
	require.NoError(t, err)
	assert.NotZero(t, cancelID)
	assert.Equal(t, []opc.HRESULT{opc.S_OK}, codes)
	read := receive(t, rec.reads)
	assert.Equal(t, uint32(7), read.TransactionID)
	assert.Equal(t, uint32(5), read.Group)
	require.Len(t, read.Items, 1)
	assert.Equal(t, uint32(100), read.Items[0].ClientHandle)
	assert.True(t, com.NewFloat64(42.5).Equal(read.Items[0].Value))

	_, codes, err = g.AsyncWrite(h, []com.Variant{com.NewFloat64(1)}, 8)
	require.NoError(t, err)
	assert.Equal(t, []opc.HRESULT{opc.S_OK}, codes)
	wc := receive(t, rec.writes)
	assert.Equal(t, uint32(8), wc.TransactionID)
	assert.Equal(t, []uint32{100}, wc.ClientHandles)

	_, err = g.Refresh(da.SourceCache, 9)
	require.NoError(t, err)
	change := receive(t, rec.changes)
	assert.Equal(t, uint32(9), change.TransactionID)

	require.NoError(t, g.SetEnable(false))
	enabled, err := g.Enabled()
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, g.Unsubscribe(cookie))
	assert.Error(t, g.Unsubscribe(cookie))
}

func TestGroup_DataChange(t *testing.T) {
	f := newFixture(t)
	srv := f.server(t)
	g, err := srv.AddGroup("g", true, 100, 3)
	require.NoError(t, err)
	h := addItems(t, g, "plant.tank.level")

	rec := newRecorder()
	_, err = g.Subscribe(rec.handler())
	require.NoError(t, err)

	sg, ok := f.lastServer(t).Group(g.Handle())
	require.True(t, ok)
	sg.Poll()
	first := receive(t, rec.changes)
	assert.Zero(t, first.TransactionID)
	require.Len(t, first.Items, 1)

	_, err = g.Write(h, []com.Variant{com.NewFloat64(60)})
	require.NoError(t, err)
	sg.Poll()
	second := receive(t, rec.changes)
	assert.True(t, com.NewFloat64(60).Equal(second.Items[0].Value))
}
