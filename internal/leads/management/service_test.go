package management

import (
	"context"
	"sync"
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

var (
	agent7  = domain.Actor{ID: 7, Name: "Carla", Role: domain.RoleSalesperson}
	agent9  = domain.Actor{ID: 9, Name: "Davi", Role: domain.RoleSalesperson}
	manager = domain.Actor{ID: 1, Name: "Marta", Role: domain.RoleManager}
)

type fixture struct {
	store *memstore.Store
	rec   *realtimetest.Recorder
	svc   *Service
}

func newFixture() *fixture {
	store := memstore.New()
	rec := &realtimetest.Recorder{}
	return &fixture{
		store: store,
		rec:   rec,
		svc:   New(store, keylock.New[int64](), rec, logger.Discard()),
	}
}

func (f *fixture) lead(t *testing.T, address string) repository.Lead {
	t.Helper()
	lead, _, err := f.store.CreateOrGetLeadByAddress(context.Background(), repository.CreateLeadParams{
		DisplayName:    "Lead " + address,
		ChannelAddress: address,
	})
	require.NoError(t, err)
	return lead
}

func (f *fixture) timeline(t *testing.T, leadID int64) []repository.TimelineEvent {
	t.Helper()
	events, err := f.store.ListTimelineEvents(context.Background(), leadID)
	require.NoError(t, err)
	return events
}

func TestAssignNewLead(t *testing.T) {
	f := newFixture()
	lead := f.lead(t, "5551234567")

	got, err := f.svc.Assign(context.Background(), lead.ID, agent7)
	require.NoError(t, err)

	assert.Equal(t, "in_progress", got.Status)
	require.NotNil(t, got.AssignedAgentID)
	assert.Equal(t, int64(7), *got.AssignedAgentID)
	assert.Equal(t, "Carla", *got.AssignedAgentName)

	events := f.timeline(t, lead.ID)
	require.Len(t, events, 1)
	assert.Equal(t, domain.KindLeadAssumed, events[0].Kind)
	assert.Equal(t, "Carla assumed the lead", events[0].Detail)

	assert.Equal(t, []realtime.Event{realtime.LeadAssigned{LeadID: lead.ID, AgentID: 7, AgentName: "Carla"}}, f.rec.Events())
}

func TestAssignUsesDefaultAgentName(t *testing.T) {
	f := newFixture()
	lead := f.lead(t, "5551234567")

	got, err := f.svc.Assign(context.Background(), lead.ID, domain.Actor{ID: 3})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAgentName, *got.AssignedAgentName)
}

func TestReassignOverwritesAndRecords(t *testing.T) {
	f := newFixture()
	lead := f.lead(t, "5551234567")
	ctx := context.Background()

	_, err := f.svc.Assign(ctx, lead.ID, agent7)
	require.NoError(t, err)
	got, err := f.svc.Assign(ctx, lead.ID, agent9)
	require.NoError(t, err)

	assert.Equal(t, int64(9), *got.AssignedAgentID)
	assert.Len(t, f.timeline(t, lead.ID), 2)
	assert.Equal(t, []string{"lead_assigned", "lead_assigned"}, f.rec.Names())
}

func TestAssignSameAgentIsNoop(t *testing.T) {
	f := newFixture()
	lead := f.lead(t, "5551234567")
	ctx := context.Background()

	_, err := f.svc.Assign(ctx, lead.ID, agent7)
	require.NoError(t, err)
	_, err = f.svc.Assign(ctx, lead.ID, agent7)
	require.NoError(t, err)

	assert.Len(t, f.timeline(t, lead.ID), 1)
	assert.Len(t, f.rec.Events(), 1)
}

func TestConcurrentAssignIsSerialized(t *testing.T) {
	f := newFixture()
	lead := f.lead(t, "5551234567")

	var wg sync.WaitGroup
	for _, actor := range []domain.Actor{agent7, agent9} {
		wg.Add(1)
		go func(a domain.Actor) {
			defer wg.Done()
			_, err := f.svc.Assign(context.Background(), lead.ID, a)
			assert.NoError(t, err)
		}(actor)
	}
	wg.Wait()

	final, err := f.store.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	require.NotNil(t, final.AssignedAgentID)
	assert.Contains(t, []int64{7, 9}, *final.AssignedAgentID)
	assert.Equal(t, domain.StatusInProgress, final.Status)

	events := f.timeline(t, lead.ID)
	require.Len(t, events, 2)
	// The newest event names the agent that holds the lead.
	assert.Equal(t, *final.AssignedAgentName, events[0].ActorName)
}

func TestAssignUnknownLead(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Assign(context.Background(), 42, agent7)
	assert.Equal(t, apperr.KindNotFound, apperr.GetKind(err))
	assert.Empty(t, f.rec.Events())
}

func TestSetStatus(t *testing.T) {
	f := newFixture()
	lead := f.lead(t, "5551234567")
	ctx := context.Background()

	_, err := f.svc.Assign(ctx, lead.ID, agent7)
	require.NoError(t, err)
	got, err := f.svc.SetStatus(ctx, lead.ID, domain.StatusWon, agent7)
	require.NoError(t, err)

	assert.Equal(t, "won", got.Status)
	assert.Equal(t, int64(7), *got.AssignedAgentID, "assignment survives closing")

	events := f.timeline(t, lead.ID)
	require.Len(t, events, 2)
	assert.Equal(t, domain.KindStatusChanged, events[0].Kind)
	assert.Equal(t, "Lead moved to WON", events[0].Detail)
	assert.Equal(t, realtime.LeadUpdated{LeadID: lead.ID, Status: "won"}, f.rec.Events()[1])
}

func TestSetStatusNewToLost(t *testing.T) {
	f := newFixture()
	lead := f.lead(t, "5551234567")

	got, err := f.svc.SetStatus(context.Background(), lead.ID, domain.StatusLost, manager)
	require.NoError(t, err)
	assert.Equal(t, "lost", got.Status)
	assert.Nil(t, got.AssignedAgentID)
}

func TestSetStatusSameValueIsNoop(t *testing.T) {
	f := newFixture()
	lead := f.lead(t, "5551234567")

	got, err := f.svc.SetStatus(context.Background(), lead.ID, domain.StatusNew, manager)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Status)
	assert.Empty(t, f.timeline(t, lead.ID))
	assert.Empty(t, f.rec.Events())
}

func TestSetStatusRejectsBackwardMoves(t *testing.T) {
	f := newFixture()
	lead := f.lead(t, "5551234567")
	ctx := context.Background()

	_, err := f.svc.SetStatus(ctx, lead.ID, domain.StatusInProgress, manager)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.GetKind(err))

	_, err = f.svc.Assign(ctx, lead.ID, agent7)
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, lead.ID, domain.StatusNew, agent7)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.GetKind(err))
}

func TestTerminalLeadRejectsMutations(t *testing.T) {
	f := newFixture()
	lead := f.lead(t, "5551234567")
	ctx := context.Background()

	_, err := f.svc.SetStatus(ctx, lead.ID, domain.StatusLost, manager)
	require.NoError(t, err)
	f.rec.Reset()

	_, err = f.svc.Assign(ctx, lead.ID, agent7)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.GetKind(err))

	for _, s := range domain.AllStatuses {
		_, err = f.svc.SetStatus(ctx, lead.ID, s, manager)
		assert.Equal(t, apperr.KindInvalidTransition, apperr.GetKind(err), s)
	}

	assert.Len(t, f.timeline(t, lead.ID), 1)
	assert.Empty(t, f.rec.Events())
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture()
	lead := f.lead(t, "5551234567")

	_, err := f.svc.SetStatus(context.Background(), lead.ID, domain.Status("archived"), manager)
	assert.Equal(t, apperr.KindValidation, apperr.GetKind(err))
}

func TestAssignedLeadNeverNew(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, addr := range []string{"5550000001", "5550000002", "5550000003"} {
		lead := f.lead(t, addr)
		_, _ = f.svc.Assign(ctx, lead.ID, agent7)
		_, _ = f.svc.SetStatus(ctx, lead.ID, domain.StatusNew, agent7)
	}

	leads, err := f.store.ListLeads(ctx, repository.ListFilter{})
	require.NoError(t, err)
	for _, lead := range leads {
		if lead.AssignedAgentID != nil {
			assert.NotEqual(t, domain.StatusNew, lead.Status)
		}
	}
}

func TestListScopedByRole(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.lead(t, "5550000001")
	b := f.lead(t, "5550000002")
	f.lead(t, "5550000003")

	_, err := f.svc.Assign(ctx, a.ID, agent7)
	require.NoError(t, err)
	_, err = f.svc.Assign(ctx, b.ID, agent9)
	require.NoError(t, err)

	all, err := f.svc.List(ctx, manager)
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)

	own, err := f.svc.List(ctx, agent7)
	require.NoError(t, err)
	require.Equal(t, 1, own.Total)
	assert.Equal(t, a.ID, own.Items[0].ID)
}

func TestQueueOldestFirst(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	first := f.lead(t, "5550000001")
	second := f.lead(t, "5550000002")
	taken := f.lead(t, "5550000003")

	_, err := f.svc.Assign(ctx, taken.ID, agent7)
	require.NoError(t, err)

	queue, err := f.svc.Queue(ctx)
	require.NoError(t, err)
	require.Len(t, queue.Items, 2)
	assert.Equal(t, first.ID, queue.Items[0].ID)
	assert.Equal(t, second.ID, queue.Items[1].ID)
}

func TestMetrics(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.lead(t, "5550000001")
	b := f.lead(t, "5550000002")
	f.lead(t, "5550000003")

	_, err := f.svc.Assign(ctx, a.ID, agent7)
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, a.ID, domain.StatusWon, agent7)
	require.NoError(t, err)
	_, err = f.svc.Assign(ctx, b.ID, agent9)
	require.NoError(t, err)

	m, err := f.svc.Metrics(ctx, manager)
	require.NoError(t, err)
	assert.Equal(t, 3, m.TotalLeads)
	assert.Equal(t, 1, m.Won)
	assert.Equal(t, 0, m.Lost)
	assert.Equal(t, 2, m.Active)
	assert.Equal(t, 1, m.Funnel.New)
	assert.Equal(t, 1, m.Funnel.InProgress)

	_, err = f.svc.Metrics(ctx, agent7)
	assert.Equal(t, apperr.KindForbidden, apperr.GetKind(err))
}
