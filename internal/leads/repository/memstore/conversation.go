package memstore

import (
	"context"

	"leadflow_backend/internal/leads/repository"
)

func (s *Store) InsertMessage(_ context.Context, params repository.InsertMessageParams) (repository.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.d.leads[params.LeadID]; !ok {
		return repository.Message{}, repository.ErrNotFound
	}

	s.d.nextMessageID++
	msg := repository.Message{
		ID:         s.d.nextMessageID,
		LeadID:     params.LeadID,
		Direction:  params.Direction,
		SenderName: params.SenderName,
		Content:    params.Content,
		CreatedAt:  s.now(),
	}
	prevLen := len(s.d.messages[params.LeadID])
	s.d.messages[params.LeadID] = append(s.d.messages[params.LeadID], msg)
	s.onRollback(func() { s.d.messages[params.LeadID] = s.d.messages[params.LeadID][:prevLen] })
	return msg, nil
}

func (s *Store) ListMessages(_ context.Context, leadID int64) ([]repository.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.d.messages[leadID]
	out := make([]repository.Message, len(src))
	copy(out, src)
	return out, nil
}

func (s *Store) InsertTimelineEvent(_ context.Context, params repository.InsertTimelineEventParams) (repository.TimelineEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.d.leads[params.LeadID]; !ok {
		return repository.TimelineEvent{}, repository.ErrNotFound
	}

	s.d.nextEventID++
	event := repository.TimelineEvent{
		ID:        s.d.nextEventID,
		LeadID:    params.LeadID,
		Kind:      params.Kind,
		ActorName: params.ActorName,
		Detail:    params.Detail,
		CreatedAt: s.now(),
	}
	prevLen := len(s.d.events[params.LeadID])
	s.d.events[params.LeadID] = append(s.d.events[params.LeadID], event)
	s.onRollback(func() { s.d.events[params.LeadID] = s.d.events[params.LeadID][:prevLen] })
	return event, nil
}

func (s *Store) ListTimelineEvents(_ context.Context, leadID int64) ([]repository.TimelineEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.d.events[leadID]
	out := make([]repository.TimelineEvent, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		out = append(out, src[i])
	}
	return out, nil
}

func (s *Store) InsertNote(_ context.Context, params repository.InsertNoteParams) (repository.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.d.leads[params.LeadID]; !ok {
		return repository.Note{}, repository.ErrNotFound
	}

	s.d.nextNoteID++
	note := repository.Note{
		ID:         s.d.nextNoteID,
		LeadID:     params.LeadID,
		AuthorID:   params.AuthorID,
		AuthorName: params.AuthorName,
		Body:       params.Body,
		CreatedAt:  s.now(),
	}
	prevLen := len(s.d.notes[params.LeadID])
	s.d.notes[params.LeadID] = append(s.d.notes[params.LeadID], note)
	s.onRollback(func() { s.d.notes[params.LeadID] = s.d.notes[params.LeadID][:prevLen] })
	return note, nil
}

func (s *Store) ListNotes(_ context.Context, leadID int64) ([]repository.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.d.notes[leadID]
	out := make([]repository.Note, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		out = append(out, src[i])
	}
	return out, nil
}
