package snapshot

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/wirecache/internal/bytesize"
)

func TestFileSnapshotterRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ns.snap")
	snap := NewFileSnapshotter(path)

	_, err := snap.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	want := []byte{0x00, 0x00, 0x00, 0x01, 0xaa}
	require.NoError(t, snap.Save(ctx, want))

	got, err := snap.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// A second save replaces the first.
	want2 := []byte{0x00, 0x00, 0x00, 0x00}
	require.NoError(t, snap.Save(ctx, want2))

	got, err = snap.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want2, got)
}

func TestFileSnapshotterSizeLimit(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ns.snap")
	snap := NewFileSnapshotter(path)
	snap.MaxLoadSize = 4 * bytesize.B

	require.NoError(t, snap.Save(ctx, []byte("12345678")))

	_, err := snap.Load(ctx)
	assert.Error(t, err)
}

func TestBadgerSnapshotterRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := OpenBadgerInMemory()
	require.NoError(t, err)
	defer store.Close()

	snap := store.Snapshotter("items")

	_, err = snap.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	want := []byte{0xde, 0xad, 0xbe, 0xef}
	require.NoError(t, snap.Save(ctx, want))

	got, err := snap.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestBadgerSnapshottersAreIsolated(t *testing.T) {
	ctx := context.Background()
	store, err := OpenBadgerInMemory()
	require.NoError(t, err)
	defer store.Close()

	a := store.Snapshotter("a")
	b := store.Snapshotter("b")

	require.NoError(t, a.Save(ctx, []byte("aaa")))

	_, err = b.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	got, err := a.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("aaa"), got)
}

func TestBadgerOnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := OpenBadger(dir)
	require.NoError(t, err)

	snap := store.Snapshotter("persisted")
	require.NoError(t, snap.Save(ctx, []byte("survives")))
	require.NoError(t, store.Close())

	store, err = OpenBadger(dir)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Snapshotter("persisted").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("survives"), got)
}
