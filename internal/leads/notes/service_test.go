package notes

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/repository/memstore"
	"leadflow_backend/internal/realtime"
	"leadflow_backend/internal/realtime/realtimetest"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/keylock"
	"leadflow_backend/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Service, *memstore.Store, *realtimetest.Recorder, repository.Lead) {
	t.Helper()
	store := memstore.New()
	rec := &realtimetest.Recorder{}
	lead, _, err := store.CreateOrGetLeadByAddress(context.Background(), repository.CreateLeadParams{
		DisplayName:    "Ana",
		ChannelAddress: "5551234567",
	})
	require.NoError(t, err)
	return New(store, keylock.New[int64](), rec, logger.Discard()), store, rec, lead
}

func TestAddNote(t *testing.T) {
	svc, store, rec, lead := setup(t)
	author := domain.Actor{ID: 7, Name: "Carla", Role: domain.RoleSalesperson}

	note, err := svc.Add(context.Background(), lead.ID, author, "  Customer prefers calls after 6pm  ")
	require.NoError(t, err)
	assert.Equal(t, "Customer prefers calls after 6pm", note.Note)
	assert.Equal(t, "Carla", note.AuthorName)

	events, err := store.ListTimelineEvents(context.Background(), lead.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.KindNoteAdded, events[0].Kind)

	require.Len(t, rec.Events(), 1)
	ev := rec.Events()[0]
	assert.Equal(t, realtime.RoomManagers, ev.Room())
	assert.Equal(t, "new_note", ev.EventName())

	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"note":"Customer prefers calls after 6pm"`)
	assert.Contains(t, string(payload), `"authorName":"Carla"`)
}

func TestAddNoteValidation(t *testing.T) {
	svc, _, rec, lead := setup(t)
	author := domain.Actor{ID: 7}

	_, err := svc.Add(context.Background(), lead.ID, author, " ")
	assert.Equal(t, apperr.KindValidation, apperr.GetKind(err))

	_, err = svc.Add(context.Background(), lead.ID, author, strings.Repeat("n", maxNoteRunes+1))
	assert.Equal(t, apperr.KindValidation, apperr.GetKind(err))

	_, err = svc.Add(context.Background(), 404, author, "hello")
	assert.Equal(t, apperr.KindNotFound, apperr.GetKind(err))
	assert.Empty(t, rec.Events())
}

func TestListNotesNewestFirst(t *testing.T) {
	svc, _, _, lead := setup(t)
	author := domain.Actor{ID: 7, Name: "Carla"}
	ctx := context.Background()

	_, err := svc.Add(ctx, lead.ID, author, "first")
	require.NoError(t, err)
	_, err = svc.Add(ctx, lead.ID, author, "second")
	require.NoError(t, err)

	list, err := svc.List(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "second", list.Items[0].Note)

	_, err = svc.List(ctx, 404)
	assert.Equal(t, apperr.KindNotFound, apperr.GetKind(err))
}

func TestAddNoteStripsMarkup(t *testing.T) {
	svc, _, _, lead := setup(t)

	note, err := svc.Add(context.Background(), lead.ID, domain.Actor{ID: 7}, "<script>x</script>Call back")
	require.NoError(t, err)
	assert.Equal(t, "xCall back", note.Note)

	_, err = svc.Add(context.Background(), lead.ID, domain.Actor{ID: 7}, "<br>")
	assert.Equal(t, apperr.KindValidation, apperr.GetKind(err))
}
