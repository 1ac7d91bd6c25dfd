// Package storetest holds behaviour tests shared by every repository.Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) repository.Store

// Run exercises the full Store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateOrGetIsFirstWriteWins", func(t *testing.T) { testCreateOrGet(t, newStore(t)) })
	t.Run("ConcurrentCreateYieldsOneLead", func(t *testing.T) { testConcurrentCreate(t, newStore(t)) })
	t.Run("AssignmentAndStatus", func(t *testing.T) { testAssignmentAndStatus(t, newStore(t)) })
	t.Run("MissingLead", func(t *testing.T) { testMissingLead(t, newStore(t)) })
	t.Run("ListFilters", func(t *testing.T) { testListFilters(t, newStore(t)) })
	t.Run("ConversationOrdering", func(t *testing.T) { testConversationOrdering(t, newStore(t)) })
	t.Run("AtomicRollsBack", func(t *testing.T) { testAtomicRollsBack(t, newStore(t)) })
	t.Run("AtomicCommits", func(t *testing.T) { testAtomicCommits(t, newStore(t)) })
	t.Run("CountByStatus", func(t *testing.T) { testCountByStatus(t, newStore(t)) })
}

func createLead(t *testing.T, store repository.Store, address, name string) repository.Lead {
	t.Helper()
	lead, created, err := store.CreateOrGetLeadByAddress(context.Background(), repository.CreateLeadParams{
		DisplayName:    name,
		ChannelAddress: address,
	})
	require.NoError(t, err)
	require.True(t, created)
	return lead
}

func testCreateOrGet(t *testing.T, store repository.Store) {
	ctx := context.Background()

	first := createLead(t, store, "5551234567", "Maria")
	assert.Equal(t, domain.StatusNew, first.Status)
	assert.Nil(t, first.AssignedAgentID)
	assert.False(t, first.CreatedAt.IsZero())

	again, created, err := store.CreateOrGetLeadByAddress(ctx, repository.CreateLeadParams{
		DisplayName:    "Someone Else",
		ChannelAddress: "5551234567",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Maria", again.DisplayName)

	byAddr, err := store.GetLeadByAddress(ctx, "5551234567")
	require.NoError(t, err)
	assert.Equal(t, first.ID, byAddr.ID)
}

func testConcurrentCreate(t *testing.T, store repository.Store) {
	ctx := context.Background()
	const workers = 8

	ids := make([]int64, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lead, _, err := store.CreateOrGetLeadByAddress(ctx, repository.CreateLeadParams{
				DisplayName:    fmt.Sprintf("caller-%d", i),
				ChannelAddress: "5559990000",
			})
			if assert.NoError(t, err) {
				ids[i] = lead.ID
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	all, err := store.ListLeads(ctx, repository.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testAssignmentAndStatus(t *testing.T, store repository.Store) {
	ctx := context.Background()
	lead := createLead(t, store, "5551230001", "Ana")

	assigned, err := store.UpdateLeadAssignment(ctx, lead.ID, 7, "Bruno")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, assigned.Status)
	require.NotNil(t, assigned.AssignedAgentID)
	assert.Equal(t, int64(7), *assigned.AssignedAgentID)
	require.NotNil(t, assigned.AssignedAgentName)
	assert.Equal(t, "Bruno", *assigned.AssignedAgentName)
	assert.True(t, assigned.UpdatedAt.After(lead.UpdatedAt))

	reassigned, err := store.UpdateLeadAssignment(ctx, lead.ID, 9, "Carla")
	require.NoError(t, err)
	assert.Equal(t, int64(9), *reassigned.AssignedAgentID)
	assert.True(t, reassigned.UpdatedAt.After(assigned.UpdatedAt))

	won, err := store.UpdateLeadStatus(ctx, lead.ID, domain.StatusWon)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWon, won.Status)
	assert.Equal(t, int64(9), *won.AssignedAgentID)

	_, err = store.UpdateLeadStatus(ctx, lead.ID, domain.StatusLost)
	assert.ErrorIs(t, err, repository.ErrTerminalState)
	_, err = store.UpdateLeadAssignment(ctx, lead.ID, 7, "Bruno")
	assert.ErrorIs(t, err, repository.ErrTerminalState)

	stored, err := store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWon, stored.Status)
}

func testMissingLead(t *testing.T, store repository.Store) {
	ctx := context.Background()

	_, err := store.GetLead(ctx, 4242)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.GetLeadByAddress(ctx, "000000")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.UpdateLeadAssignment(ctx, 4242, 1, "x")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.UpdateLeadStatus(ctx, 4242, domain.StatusWon)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, store.TouchLead(ctx, 4242), repository.ErrNotFound)
	_, err = store.InsertMessage(ctx, repository.InsertMessageParams{LeadID: 4242, Direction: domain.DirectionInbound, SenderName: "x", Content: "y"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.InsertTimelineEvent(ctx, repository.InsertTimelineEventParams{LeadID: 4242, Kind: domain.KindNoteAdded, ActorName: "x", Detail: "y"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.InsertNote(ctx, repository.InsertNoteParams{LeadID: 4242, AuthorID: 1, AuthorName: "x", Body: "y"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testListFilters(t *testing.T, store repository.Store) {
	ctx := context.Background()
	a := createLead(t, store, "5550000001", "A")
	b := createLead(t, store, "5550000002", "B")
	c := createLead(t, store, "5550000003", "C")

	_, err := store.UpdateLeadAssignment(ctx, b.ID, 7, "Bruno")
	require.NoError(t, err)
	require.NoError(t, store.TouchLead(ctx, a.ID))

	all, err := store.ListLeads(ctx, repository.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, a.ID, all[0].ID, "most recently updated first")

	newStatus := domain.StatusNew
	queue, err := store.ListLeads(ctx, repository.ListFilter{Status: &newStatus, OldestFirst: true})
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, a.ID, queue[0].ID)
	assert.Equal(t, c.ID, queue[1].ID)

	agent := int64(7)
	mine, err := store.ListLeads(ctx, repository.ListFilter{AssignedAgentID: &agent})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, b.ID, mine[0].ID)

	limited, err := store.ListLeads(ctx, repository.ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func testConversationOrdering(t *testing.T, store repository.Store) {
	ctx := context.Background()
	lead := createLead(t, store, "5550000010", "Conv")

	for i, content := range []string{"first", "second", "third"} {
		dir := domain.DirectionInbound
		if i == 1 {
			dir = domain.DirectionOutbound
		}
		_, err := store.InsertMessage(ctx, repository.InsertMessageParams{LeadID: lead.ID, Direction: dir, SenderName: "s", Content: content})
		require.NoError(t, err)
		_, err = store.InsertTimelineEvent(ctx, repository.InsertTimelineEventParams{LeadID: lead.ID, Kind: domain.KindMessageReceived, ActorName: "s", Detail: content})
		require.NoError(t, err)
		_, err = store.InsertNote(ctx, repository.InsertNoteParams{LeadID: lead.ID, AuthorID: 1, AuthorName: "m", Body: content})
		require.NoError(t, err)
	}

	messages, err := store.ListMessages(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, domain.DirectionOutbound, messages[1].Direction)
	assert.Equal(t, "third", messages[2].Content)

	events, err := store.ListTimelineEvents(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "third", events[0].Detail, "newest first")

	notes, err := store.ListNotes(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, "third", notes[0].Body, "newest first")

	empty, err := store.ListMessages(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testAtomicRollsBack(t *testing.T, store repository.Store) {
	ctx := context.Background()
	lead := createLead(t, store, "5550000020", "Tx")
	boom := errors.New("boom")

	err := store.Atomic(ctx, func(tx repository.Store) error {
		if _, err := tx.InsertMessage(ctx, repository.InsertMessageParams{LeadID: lead.ID, Direction: domain.DirectionInbound, SenderName: "s", Content: "lost"}); err != nil {
			return err
		}
		if _, err := tx.UpdateLeadAssignment(ctx, lead.ID, 7, "Bruno"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	messages, err := store.ListMessages(ctx, lead.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)

	stored, err := store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, stored.Status)
	assert.Nil(t, stored.AssignedAgentID)
}

func testAtomicCommits(t *testing.T, store repository.Store) {
	ctx := context.Background()
	lead := createLead(t, store, "5550000030", "Tx")

	err := store.Atomic(ctx, func(tx repository.Store) error {
		if _, err := tx.InsertMessage(ctx, repository.InsertMessageParams{LeadID: lead.ID, Direction: domain.DirectionInbound, SenderName: "s", Content: "kept"}); err != nil {
			return err
		}
		_, err := tx.InsertTimelineEvent(ctx, repository.InsertTimelineEventParams{LeadID: lead.ID, Kind: domain.KindMessageReceived, ActorName: "s", Detail: "kept"})
		return err
	})
	require.NoError(t, err)

	messages, err := store.ListMessages(ctx, lead.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
	events, err := store.ListTimelineEvents(ctx, lead.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func testCountByStatus(t *testing.T, store repository.Store) {
	ctx := context.Background()
	a := createLead(t, store, "5550000041", "A")
	b := createLead(t, store, "5550000042", "B")
	createLead(t, store, "5550000043", "C")

	_, err := store.UpdateLeadAssignment(ctx, a.ID, 1, "x")
	require.NoError(t, err)
	_, err = store.UpdateLeadStatus(ctx, b.ID, domain.StatusLost)
	require.NoError(t, err)

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.StatusNew])
	assert.Equal(t, 1, counts[domain.StatusInProgress])
	assert.Equal(t, 0, counts[domain.StatusWon])
	assert.Equal(t, 1, counts[domain.StatusLost])
}
