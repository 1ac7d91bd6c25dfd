package identity

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/repository/memstore"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCreatesLead(t *testing.T) {
	r := New(memstore.New(), logger.Discard())

	res, err := r.Resolve(context.Background(), "5551234567@c.us", "Ana")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, "Ana", res.Lead.DisplayName)
	assert.Equal(t, "5551234567", res.Lead.ChannelAddress)
	assert.Equal(t, domain.StatusNew, res.Lead.Status)
	assert.Nil(t, res.Lead.AssignedAgentID)
}

func TestResolveExistingIgnoresFallbackName(t *testing.T) {
	r := New(memstore.New(), logger.Discard())
	ctx := context.Background()

	first, err := r.Resolve(ctx, "+5551234567", "Ana")
	require.NoError(t, err)
	second, err := r.Resolve(ctx, "5551234567@s.whatsapp.net", "Someone Else")
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.Equal(t, first.Lead.ID, second.Lead.ID)
	assert.Equal(t, "Ana", second.Lead.DisplayName)
}

func TestResolveDefaultsName(t *testing.T) {
	r := New(memstore.New(), logger.Discard())

	res, err := r.Resolve(context.Background(), "5551234567", "   ")
	require.NoError(t, err)
	assert.Equal(t, DefaultDisplayName, res.Lead.DisplayName)
}

func TestResolveRejectsInvalidAddress(t *testing.T) {
	r := New(memstore.New(), logger.Discard())

	for _, addr := range []string{"", "120363@g.us", "abc"} {
		_, err := r.Resolve(context.Background(), addr, "x")
		assert.Equal(t, apperr.KindValidation, apperr.GetKind(err), addr)
	}
}

func TestResolveConcurrentSameAddress(t *testing.T) {
	store := memstore.New()
	r := New(store, logger.Discard())

	const n = 32
	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := r.Resolve(context.Background(), "5551234567@c.us", "Ana")
			if assert.NoError(t, err) {
				ids[i] = res.Lead.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	leads, err := store.ListLeads(context.Background(), repository.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, leads, 1)
}

func TestResolveConcurrentAcrossResolvers(t *testing.T) {
	store := memstore.New()
	a := New(store, logger.Discard())
	b := New(store, logger.Discard())

	var wg sync.WaitGroup
	var idA, idB int64
	wg.Add(2)
	go func() {
		defer wg.Done()
		res, err := a.Resolve(context.Background(), "5551234567", "Ana")
		if assert.NoError(t, err) {
			idA = res.Lead.ID
		}
	}()
	go func() {
		defer wg.Done()
		res, err := b.Resolve(context.Background(), "5551234567", "Bia")
		if assert.NoError(t, err) {
			idB = res.Lead.ID
		}
	}()
	wg.Wait()

	assert.Equal(t, idA, idB)
}

type conflictRepo struct {
	*memstore.Store
	conflicts atomic.Int32
}

func (c *conflictRepo) CreateOrGetLeadByAddress(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, bool, error) {
	if c.conflicts.Add(-1) >= 0 {
		return repository.Lead{}, false, repository.ErrConflict
	}
	return c.Store.CreateOrGetLeadByAddress(ctx, params)
}

func TestResolveRetriesConflicts(t *testing.T) {
	repo := &conflictRepo{Store: memstore.New()}
	repo.conflicts.Store(2)

	res, err := New(repo, logger.Discard()).Resolve(context.Background(), "5551234567", "Ana")
	require.NoError(t, err)
	assert.True(t, res.Created)
}

func TestResolveGivesUpAfterRepeatedConflicts(t *testing.T) {
	repo := &conflictRepo{Store: memstore.New()}
	repo.conflicts.Store(10)

	_, err := New(repo, logger.Discard()).Resolve(context.Background(), "5551234567", "Ana")
	assert.Equal(t, apperr.KindStoreUnavailable, apperr.GetKind(err))
}

func TestResolveSanitizesName(t *testing.T) {
	r := New(memstore.New(), logger.Discard())

	res, err := r.Resolve(context.Background(), "5551234567", "<b>Ana</b>\n  Paula")
	require.NoError(t, err)
	assert.Equal(t, "Ana Paula", res.Lead.DisplayName)
}
