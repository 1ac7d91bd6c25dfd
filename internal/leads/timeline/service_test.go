package timeline

import (
	"context"
	"strings"
	"testing"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/repository/memstore"
	"leadflow_backend/platform/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLead(t *testing.T, store *memstore.Store) repository.Lead {
	t.Helper()
	lead, _, err := store.CreateOrGetLeadByAddress(context.Background(), repository.CreateLeadParams{
		DisplayName:    "Ana",
		ChannelAddress: "5551234567",
	})
	require.NoError(t, err)
	return lead
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	lead := newLead(t, store)
	svc := New(store)

	_, err := svc.Append(ctx, lead.ID, domain.KindMessageReceived, "Ana", "first")
	require.NoError(t, err)
	_, err = svc.Append(ctx, lead.ID, domain.KindLeadAssumed, "Bia", domain.AssumedDetail("Bia"))
	require.NoError(t, err)
	_, err = svc.Append(ctx, lead.ID, domain.KindStatusChanged, "Bia", domain.StatusDetail(domain.StatusWon))
	require.NoError(t, err)

	got, err := svc.List(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 3)
	assert.Equal(t, "status_changed", got.Items[0].Kind)
	assert.Equal(t, "Lead moved to WON", got.Items[0].Detail)
	assert.Equal(t, "lead_assumed", got.Items[1].Kind)
	assert.Equal(t, "message_received", got.Items[2].Kind)
	assert.Greater(t, got.Items[0].ID, got.Items[1].ID)
}

func TestRecordTruncatesDetail(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	lead := newLead(t, store)

	event, err := Record(ctx, store, lead.ID, domain.KindMessageSent, "Bia", strings.Repeat("é", 150))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", domain.DetailMaxRunes), event.Detail)
}

func TestRecordRejectsUnknownKind(t *testing.T) {
	store := memstore.New()
	lead := newLead(t, store)

	_, err := Record(context.Background(), store, lead.ID, domain.TimelineKind("deleted"), "x", "")
	assert.Equal(t, apperr.KindValidation, apperr.GetKind(err))
}

func TestUnknownLead(t *testing.T) {
	svc := New(memstore.New())

	_, err := svc.List(context.Background(), 99)
	assert.Equal(t, apperr.KindNotFound, apperr.GetKind(err))

	_, err = svc.Append(context.Background(), 99, domain.KindNoteAdded, "x", "y")
	assert.Equal(t, apperr.KindNotFound, apperr.GetKind(err))
}
