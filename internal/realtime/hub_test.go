package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"leadflow_backend/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(buffer int) *Hub {
	return NewHub(buffer, logger.Discard())
}

func receive(t *testing.T, sub *Subscription) Envelope {
	t.Helper()
	select {
	case env := <-sub.Events:
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Envelope{}
	}
}

func assertNothing(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case env := <-sub.Events:
		t.Fatalf("unexpected event %s", env.Name)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestGlobalEventsReachEverySubscriber(t *testing.T) {
	hub := newTestHub(4)
	ctx := t.Context()

	a, err := hub.Subscribe(ctx, 1)
	require.NoError(t, err)
	b, err := hub.Subscribe(ctx, 2, RoomManagers)
	require.NoError(t, err)

	hub.Publish(LeadAssigned{LeadID: 42, AgentID: 7, AgentName: "Ana"})

	for _, sub := range []*Subscription{a, b} {
		env := receive(t, sub)
		assert.Equal(t, "lead_assigned", env.Name)
		assert.Equal(t, LeadAssigned{LeadID: 42, AgentID: 7, AgentName: "Ana"}, env.Data)
	}
}

func TestRoomEventsReachMembersOnly(t *testing.T) {
	hub := newTestHub(4)
	ctx := t.Context()

	viewer, err := hub.Subscribe(ctx, 1)
	require.NoError(t, err)
	manager, err := hub.Subscribe(ctx, 2, RoomManagers)
	require.NoError(t, err)

	hub.Publish(NewNote{LeadID: 42, Note: "call back tomorrow"})

	env := receive(t, manager)
	assert.Equal(t, "new_note", env.Name)
	assert.Equal(t, RoomManagers, env.Room)
	assertNothing(t, viewer)
}

func TestJoinAndLeave(t *testing.T) {
	hub := newTestHub(4)
	sub, err := hub.Subscribe(t.Context(), 1)
	require.NoError(t, err)

	require.NoError(t, hub.Join(sub.ID, RoomManagers))
	require.NoError(t, hub.Join(sub.ID, RoomManagers))
	rooms, err := hub.Rooms(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{RoomManagers}, rooms)

	hub.Publish(IngestFailed{Address: "5551234567", Error: "store down"})
	assert.Equal(t, "ingest_failed", receive(t, sub).Name)

	require.NoError(t, hub.Leave(sub.ID, RoomManagers))
	require.NoError(t, hub.Leave(sub.ID, "never-joined"))
	hub.Publish(IngestFailed{Address: "5551234567", Error: "store down"})
	assertNothing(t, sub)

	assert.ErrorIs(t, hub.Join("missing", RoomManagers), ErrUnknownSubscriber)
	assert.ErrorIs(t, hub.Join(sub.ID, "Bad Room!"), ErrInvalidRoom)
}

func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	hub := newTestHub(1)
	slow, err := hub.Subscribe(t.Context(), 1)
	require.NoError(t, err)
	fast, err := hub.Subscribe(t.Context(), 2)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 10 {
			hub.Publish(LeadUpdated{LeadID: int64(i), Status: "won"})
			<-fast.Events
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	first := receive(t, slow)
	assert.Equal(t, LeadUpdated{LeadID: 0, Status: "won"}, first.Data)
	assertNothing(t, slow)
}

func TestContextCancelUnsubscribes(t *testing.T) {
	hub := newTestHub(4)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := hub.Subscribe(ctx, 1, "lead-42")
	require.NoError(t, err)
	assert.Equal(t, 1, hub.SubscriberCount())

	cancel()
	require.Eventually(t, func() bool { return hub.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-sub.Events
	assert.False(t, open)
}

func TestConcurrentPublishAndUnsubscribe(t *testing.T) {
	hub := newTestHub(2)
	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithCancel(context.Background())
			sub, err := hub.Subscribe(ctx, int64(i))
			if assert.NoError(t, err) {
				hub.Unsubscribe(sub.ID)
			}
			cancel()
		}()
		go func() {
			defer wg.Done()
			hub.Publish(LeadUpdated{LeadID: int64(i), Status: "lost"})
		}()
	}
	wg.Wait()
}

func TestCloseRejectsNewSubscribers(t *testing.T) {
	hub := newTestHub(2)
	sub, err := hub.Subscribe(t.Context(), 1)
	require.NoError(t, err)

	hub.Close()
	hub.Publish(LeadUpdated{LeadID: 1, Status: "won"})

	_, open := <-sub.Events
	assert.False(t, open)

	_, err = hub.Subscribe(t.Context(), 1)
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestSubscribeValidatesRooms(t *testing.T) {
	hub := newTestHub(2)
	_, err := hub.Subscribe(t.Context(), 1, "")
	assert.ErrorIs(t, err, ErrInvalidRoom)
}
