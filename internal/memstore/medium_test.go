package memstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/notebox/internal/memstore"
	"github.com/rpggio/notebox/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestMedium_GetSet(t *testing.T) {
	ctx := context.Background()
	shared := memstore.NewShared(0)
	m := shared.Open()

	_, err := m.Get(ctx, "k")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, m.Set(ctx, "k", []byte("v1")))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), got)

	got[0] = 'x'
	again, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), again)
}

func TestMedium_WatchFiresForOtherHandlesOnly(t *testing.T) {
	ctx := context.Background()
	shared := memstore.NewShared(0)
	a := shared.Open()
	b := shared.Open()

	aCalls, bCalls := 0, 0
	a.Watch("k", func() { aCalls++ })
	b.Watch("k", func() { bCalls++ })
	b.Watch("other", func() { t.Fatal("unexpected notification") })

	require.NoError(t, a.Set(ctx, "k", []byte("v")))
	require.Equal(t, 0, aCalls)
	require.Equal(t, 1, bCalls)

	shared.Put("k", []byte("external"))
	require.Equal(t, 1, aCalls)
	require.Equal(t, 2, bCalls)
}

func TestMedium_Quota(t *testing.T) {
	ctx := context.Background()
	shared := memstore.NewShared(10)
	m := shared.Open()

	require.NoError(t, m.Set(ctx, "k", []byte("12345")))
	err := m.Set(ctx, "k", []byte("1234567890"))
	require.ErrorIs(t, err, storage.ErrQuotaExceeded)

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("12345"), got)
}

func TestMedium_FailWritesAndClose(t *testing.T) {
	ctx := context.Background()
	shared := memstore.NewShared(0)
	m := shared.Open()

	boom := errors.New("disk on fire")
	shared.FailWrites(boom)
	require.ErrorIs(t, m.Set(ctx, "k", []byte("v")), boom)
	shared.FailWrites(nil)
	require.NoError(t, m.Set(ctx, "k", []byte("v")))

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	_, err := m.Get(ctx, "k")
	require.ErrorIs(t, err, storage.ErrClosed)
	require.ErrorIs(t, m.Set(ctx, "k", []byte("v")), storage.ErrWriteFailure)
}
