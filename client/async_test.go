package client

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/mailbox"
)

func (f *fixture) spawn(t *testing.T) *AsyncServer {
	t.Helper()
	srv, err := SpawnServer(f.clsid, []Option{WithRegistry(f.reg), WithAllocator(f.heap)}, mailbox.WithCapacity(4))
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return srv
}

func TestAsyncServer_ReadWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	srv := f.spawn(t)
	assert.Equal(t, opc.V3, srv.Version())

	st, err := srv.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, da.StateRunning, st.State)

	grp, err := srv.AddGroup(ctx, "g", true, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "g", grp.Name())
	assert.NotZero(t, grp.Handle())

	res, codes, err := grp.AddItems(ctx, []ItemDef{{ItemID: "plant.tank.level", Active: true, ClientHandle: 5}})
	require.NoError(t, err)
	require.Equal(t, []opc.HRESULT{opc.S_OK}, codes)
	h := []uint32{res[0].ServerHandle}

	codes, err = grp.Write(ctx, h, []com.Variant{com.NewFloat64(12)})
	require.NoError(t, err)
	assert.Equal(t, []opc.HRESULT{opc.S_OK}, codes)

	states, codes, err := grp.Read(ctx, da.SourceCache, h)
	require.NoError(t, err)
	assert.Equal(t, []opc.HRESULT{opc.S_OK}, codes)
	assert.True(t, com.NewFloat64(12).Equal(states[0].Value))

	values, _, err := srv.ReadItems(ctx, []string{"plant.tank.level"}, nil)
	require.NoError(t, err)
	assert.True(t, com.NewFloat64(12).Equal(values[0].Value))

	gst, err := grp.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, grp.Handle(), gst.ServerHandle)
}

func TestAsyncGroup_Subscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	srv := f.spawn(t)
	grp, err := srv.AddGroup(ctx, "g", true, 0, 2)
	require.NoError(t, err)
	res, _, err := grp.AddItems(ctx, []ItemDef{{ItemID: "plant.tank.temp", Active: true, ClientHandle: 1}})
	require.NoError(t, err)

	rec := newRecorder()
	cookie, err := grp.Subscribe(ctx, rec.handler())
	require.NoError(t, err)

	_, codes, err := grp.AsyncRead(ctx, []uint32{res[0].ServerHandle}, 42)
	require.NoError(t, err)
	assert.Equal(t, []opc.HRESULT{opc.S_OK}, codes)
	read := receive(t, rec.reads)
	assert.Equal(t, uint32(42), read.TransactionID)
	assert.True(t, com.NewInt32(20).Equal(read.Items[0].Value))

	require.NoError(t, grp.Unsubscribe(ctx, cookie))
}

func TestAsyncServer_ConcurrentGroups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	srv := f.spawn(t)

	const n = 6
	groups := make([]*AsyncGroup, n)
	for i := range groups {
		g, err := srv.AddGroup(ctx, fmt.Sprintf("g%d", i), true, 0, uint32(i))
		require.NoError(t, err)
		groups[i] = g
	}

	eg, ctx := errgroup.WithContext(ctx)
	for i, g := range groups {
		eg.Go(func() error {
			res, codes, err := g.AddItems(ctx, []ItemDef{{ItemID: "plant.line1.speed", Active: true}})
			if err != nil {
				return err
			}
			if codes[0] != opc.S_OK {
				return fmt.Errorf("group %d: add: %s", i, codes[0])
			}
			for j := range 20 {
				_, err := g.Write(ctx, []uint32{res[0].ServerHandle}, []com.Variant{com.NewFloat64(float64(i*100 + j))})
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	require.NoError(t, srv.RemoveGroups(context.Background(), true, groups...))
	err := srv.Exec(context.Background(), func(s *Server) error {
		names, err := s.GroupNames(da.ScopeAll)
		assert.Empty(t, names)
		return err
	})
	require.NoError(t, err)

	_, _, err = groups[0].Read(context.Background(), da.SourceCache, []uint32{1})
	assert.ErrorIs(t, err, errors.ErrMailboxClosed)
}

func TestAsyncServer_Closed(t *testing.T) {
	f := newFixture(t)
	srv, err := SpawnServer(f.clsid, []Option{WithRegistry(f.reg), WithAllocator(f.heap)})
	require.NoError(t, err)
	grp, err := srv.AddGroup(context.Background(), "g", true, 0, 1)
	require.NoError(t, err)

	srv.Close()
	_, err = srv.GetStatus(context.Background())
	assert.ErrorIs(t, err, errors.ErrMailboxClosed)
	_, err = grp.GetState(context.Background())
	assert.ErrorIs(t, err, errors.ErrMailboxClosed)
}

func TestSpawnServer_Unknown(t *testing.T) {
	f := newFixture(t)
	_, err := SpawnServer(com.NewGUID(), []Option{WithRegistry(f.reg)})
	assert.ErrorIs(t, err, errors.ErrClassNotRegistered)
}

func TestAsyncServer_Cancelled(t *testing.T) {
	f := newFixture(t)
	srv := f.spawn(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := srv.GetStatus(ctx)
	assert.ErrorIs(t, err, errors.ErrCancelled)
}
