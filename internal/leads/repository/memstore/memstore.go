// Package memstore is a process-local repository.Store for tests, demos and
// STORE_DRIVER=memory. Data is lost on restart.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
)

type locker interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

// txLock is used inside Atomic, where the root write lock is already held.
type txLock struct{}

func (txLock) Lock()    {}
func (txLock) Unlock()  {}
func (txLock) RLock()   {}
func (txLock) RUnlock() {}

type data struct {
	nextLeadID    int64
	nextMessageID int64
	nextEventID   int64
	nextNoteID    int64

	leads     map[int64]*repository.Lead
	byAddress map[string]int64
	messages  map[int64][]repository.Message
	events    map[int64][]repository.TimelineEvent
	notes     map[int64][]repository.Note
}

// Store implements repository.Store on maps guarded by a RWMutex. Atomic
// holds the write lock for the whole unit and rolls back through an undo log.
type Store struct {
	root *sync.RWMutex
	mu   locker
	d    *data
	undo *[]func()
	now  func() time.Time
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	root := &sync.RWMutex{}
	return &Store{
		root: root,
		mu:   root,
		d: &data{
			leads:     make(map[int64]*repository.Lead),
			byAddress: make(map[string]int64),
			messages:  make(map[int64][]repository.Message),
			events:    make(map[int64][]repository.TimelineEvent),
			notes:     make(map[int64][]repository.Note),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Atomic(_ context.Context, fn func(tx repository.Store) error) error {
	if s.undo != nil {
		return fn(s)
	}

	s.root.Lock()
	defer s.root.Unlock()

	undo := make([]func(), 0, 4)
	tx := &Store{root: s.root, mu: txLock{}, d: s.d, undo: &undo, now: s.now}
	if err := fn(tx); err != nil {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		return err
	}
	return nil
}

func (s *Store) onRollback(f func()) {
	if s.undo != nil {
		*s.undo = append(*s.undo, f)
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) Ping(context.Context) error { return nil }

func cloneLead(l *repository.Lead) repository.Lead {
	out := *l
	if l.AssignedAgentID != nil {
		id := *l.AssignedAgentID
		out.AssignedAgentID = &id
	}
	if l.AssignedAgentName != nil {
		name := *l.AssignedAgentName
		out.AssignedAgentName = &name
	}
	return out
}

// bump returns a timestamp strictly after prev.
func (s *Store) bump(prev time.Time) time.Time {
	now := s.now()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now
}

func (s *Store) GetLead(_ context.Context, id int64) (repository.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lead, ok := s.d.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return cloneLead(lead), nil
}

func (s *Store) GetLeadByAddress(_ context.Context, address string) (repository.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.d.byAddress[address]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return cloneLead(s.d.leads[id]), nil
}

func (s *Store) CreateOrGetLeadByAddress(_ context.Context, params repository.CreateLeadParams) (repository.Lead, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.d.byAddress[params.ChannelAddress]; ok {
		return cloneLead(s.d.leads[id]), false, nil
	}

	s.d.nextLeadID++
	now := s.now()
	lead := &repository.Lead{
		ID:             s.d.nextLeadID,
		DisplayName:    params.DisplayName,
		ChannelAddress: params.ChannelAddress,
		Status:         domain.StatusNew,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.d.leads[lead.ID] = lead
	s.d.byAddress[lead.ChannelAddress] = lead.ID

	s.onRollback(func() {
		delete(s.d.leads, lead.ID)
		delete(s.d.byAddress, lead.ChannelAddress)
	})
	return cloneLead(lead), true, nil
}

func (s *Store) UpdateLeadAssignment(_ context.Context, id int64, agentID int64, agentName string) (repository.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.d.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	if !domain.CanAssign(lead.Status) {
		return repository.Lead{}, repository.ErrTerminalState
	}

	prev := cloneLead(lead)
	s.onRollback(func() { *lead = prev })

	lead.AssignedAgentID = &agentID
	lead.AssignedAgentName = &agentName
	lead.Status = domain.StatusInProgress
	lead.UpdatedAt = s.bump(lead.UpdatedAt)
	return cloneLead(lead), nil
}

func (s *Store) UpdateLeadStatus(_ context.Context, id int64, status domain.Status) (repository.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.d.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	if lead.Status.IsTerminal() {
		return repository.Lead{}, repository.ErrTerminalState
	}

	prev := cloneLead(lead)
	s.onRollback(func() { *lead = prev })

	lead.Status = status
	lead.UpdatedAt = s.bump(lead.UpdatedAt)
	return cloneLead(lead), nil
}

func (s *Store) TouchLead(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.d.leads[id]
	if !ok {
		return repository.ErrNotFound
	}
	prevUpdated := lead.UpdatedAt
	s.onRollback(func() { lead.UpdatedAt = prevUpdated })
	lead.UpdatedAt = s.bump(lead.UpdatedAt)
	return nil
}

func (s *Store) ListLeads(_ context.Context, filter repository.ListFilter) ([]repository.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]repository.Lead, 0, len(s.d.leads))
	for _, lead := range s.d.leads {
		if filter.Status != nil && lead.Status != *filter.Status {
			continue
		}
		if filter.AssignedAgentID != nil && (lead.AssignedAgentID == nil || *lead.AssignedAgentID != *filter.AssignedAgentID) {
			continue
		}
		out = append(out, cloneLead(lead))
	}

	if filter.OldestFirst {
		sort.Slice(out, func(i, j int) bool {
			if out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].ID < out[j].ID
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	} else {
		sort.Slice(out, func(i, j int) bool {
			if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
				return out[i].ID > out[j].ID
			}
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		})
	}

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) CountByStatus(_ context.Context) (map[domain.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.Status]int, len(domain.AllStatuses))
	for _, status := range domain.AllStatuses {
		counts[status] = 0
	}
	for _, lead := range s.d.leads {
		counts[lead.Status]++
	}
	return counts, nil
}
