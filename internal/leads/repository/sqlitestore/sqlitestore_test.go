package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/repository/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "leads.db"), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store { return newTestStore(t) })
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "leads.db")

	store, err := Open(ctx, path, 0)
	require.NoError(t, err)
	lead, created, err := store.CreateOrGetLeadByAddress(ctx, repository.CreateLeadParams{DisplayName: "Maria", ChannelAddress: "5551234567"})
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.GetLeadByAddress(ctx, "5551234567")
	require.NoError(t, err)
	assert.Equal(t, lead.ID, got.ID)
	assert.Equal(t, lead.CreatedAt, got.CreatedAt)
}

func TestCallsAreBoundedByTimeout(t *testing.T) {
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "leads.db"), time.Nanosecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, _, err = store.CreateOrGetLeadByAddress(context.Background(), repository.CreateLeadParams{DisplayName: "Maria", ChannelAddress: "5551234567"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	err = store.Atomic(context.Background(), func(tx repository.Store) error {
		_, err := tx.GetLeadByAddress(context.Background(), "5551234567")
		return err
	})
	assert.Error(t, err)
}

func TestCallerDeadlineWins(t *testing.T) {
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "leads.db"), time.Nanosecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, created, err := store.CreateOrGetLeadByAddress(ctx, repository.CreateLeadParams{DisplayName: "Maria", ChannelAddress: "5551234567"})
	require.NoError(t, err)
	assert.True(t, created)
}
