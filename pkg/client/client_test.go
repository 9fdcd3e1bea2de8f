package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/wirecache/pkg/namespace"
	"github.com/marmos91/wirecache/pkg/pool"
	"github.com/marmos91/wirecache/pkg/protocol"
	"github.com/marmos91/wirecache/pkg/server"
	"github.com/marmos91/wirecache/pkg/wire"
)

// testSetup wires a live server, a pool, and a typed client together.
type testSetup struct {
	srv   *server.Server
	pool  *pool.Pool
	items *Client[uint32, uint32]
	names *Client[string, string]
}

func setup(t *testing.T) *testSetup {
	t.Helper()

	srv := server.New(server.Config{
		BindAddress:     "127.0.0.1",
		Port:            0,
		ShutdownTimeout: time.Second,
	})
	require.NoError(t, srv.Add(0, namespace.NewStore[uint32, uint32]("items", wire.Uint32Codec, wire.Uint32Codec)))
	require.NoError(t, srv.Add(1, namespace.NewStore[string, string]("names", wire.StringCodec, wire.StringCodec)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = srv.ListenTCP(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	p, err := pool.New(context.Background(), srv.Addr(), 2)
	require.NoError(t, err)
	t.Cleanup(p.Close)

	return &testSetup{
		srv:   srv,
		pool:  p,
		items: New(p, 0, wire.Uint32Codec, wire.Uint32Codec),
		names: New(p, 1, wire.StringCodec, wire.StringCodec),
	}
}

func TestClientSetGet(t *testing.T) {
	ts := setup(t)
	ctx := context.Background()

	require.NoError(t, ts.items.Set(ctx, 42, 7))

	v, ok, err := ts.items.Get(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint32(7), v)

	_, ok, err = ts.items.Get(ctx, 43)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClientMGetOrdering(t *testing.T) {
	ts := setup(t)
	ctx := context.Background()

	require.NoError(t, ts.items.MSet(ctx, map[uint32]uint32{1: 10, 2: 20, 3: 30}))

	results, err := ts.items.MGet(ctx, []uint32{3, 99, 1})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].OK)
	assert.Equal(t, uint32(30), results[0].Value)
	assert.False(t, results[1].OK)
	assert.True(t, results[2].OK)
	assert.Equal(t, uint32(10), results[2].Value)
}

func TestClientKeysExistsDel(t *testing.T) {
	ts := setup(t)
	ctx := context.Background()

	require.NoError(t, ts.items.MSet(ctx, map[uint32]uint32{5: 50, 6: 60, 7: 70}))

	keys, err := ts.items.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint32{5, 6, 7}, keys)

	ok, err := ts.items.Exists(ctx, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	flags, err := ts.items.MExists(ctx, []uint32{5, 8, 7})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, flags)

	require.NoError(t, ts.items.Del(ctx, 5))
	ok, err = ts.items.Exists(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ts.items.MDel(ctx, []uint32{6, 7}))
	keys, err = ts.items.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestClientStringNamespace(t *testing.T) {
	ts := setup(t)
	ctx := context.Background()

	require.NoError(t, ts.names.Set(ctx, "greeting", "hello wörld"))

	v, ok, err := ts.names.Get(ctx, "greeting")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello wörld", v)
}

func TestClientNamespacesAreIsolated(t *testing.T) {
	ts := setup(t)
	ctx := context.Background()

	require.NoError(t, ts.items.Set(ctx, 1, 100))

	keys, err := ts.names.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestClientPing(t *testing.T) {
	ts := setup(t)
	require.NoError(t, ts.items.Ping(context.Background()))
}

func TestClientPoolBalanceAfterCommands(t *testing.T) {
	ts := setup(t)
	ctx := context.Background()

	before := ts.pool.Available()
	for i := uint32(0); i < 20; i++ {
		require.NoError(t, ts.items.Set(ctx, i, i))
	}
	assert.Equal(t, before, ts.pool.Available())
}

func TestClientSaveUnsupportedClosesConnection(t *testing.T) {
	ts := setup(t)
	ctx := context.Background()

	// The namespace has no snapshotter, so the server treats SAVE as an
	// unsupported capability and drops the connection mid-command.
	err := ts.items.Save(ctx)
	assert.Error(t, err)

	// The pool recovers: later commands still work.
	require.Eventually(t, func() bool {
		return ts.items.Set(ctx, 1, 1) == nil
	}, 5*time.Second, 100*time.Millisecond)
}

func TestBroadcast(t *testing.T) {
	ts := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := ts.srv.Control().Subscribe()
	require.NoError(t, Broadcast(ctx, ts.pool, protocol.OpSave))

	select {
	case sig := <-signals:
		assert.Equal(t, protocol.OpSave, sig)
	case <-time.After(2 * time.Second):
		t.Fatal("control signal not delivered")
	}
}
