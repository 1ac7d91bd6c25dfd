package sqlitestore

import (
	"context"
	"database/sql"
	"errors"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
)

// Child rows are inserted with INSERT ... SELECT guarded by the parent lead
// so a missing lead yields no row instead of a constraint error.

func (s *Store) InsertMessage(ctx context.Context, params repository.InsertMessageParams) (repository.Message, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var (
		msg       repository.Message
		direction string
		created   int64
	)
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO lead_messages (lead_id, direction, sender_name, content, created_at)
		SELECT id, ?, ?, ?, ? FROM leads WHERE id = ?
		RETURNING id, lead_id, direction, sender_name, content, created_at
	`, string(params.Direction), params.SenderName, params.Content, s.nowNanos(), params.LeadID).Scan(
		&msg.ID, &msg.LeadID, &direction, &msg.SenderName, &msg.Content, &created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.Message{}, repository.ErrNotFound
	}
	if err != nil {
		return repository.Message{}, err
	}
	msg.Direction = domain.Direction(direction)
	msg.CreatedAt = fromNanos(created)
	return msg, nil
}

func (s *Store) ListMessages(ctx context.Context, leadID int64) ([]repository.Message, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.q.QueryContext(ctx, `
		SELECT id, lead_id, direction, sender_name, content, created_at
		FROM lead_messages WHERE lead_id = ? ORDER BY id ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]repository.Message, 0)
	for rows.Next() {
		var (
			msg       repository.Message
			direction string
			created   int64
		)
		if err := rows.Scan(&msg.ID, &msg.LeadID, &direction, &msg.SenderName, &msg.Content, &created); err != nil {
			return nil, err
		}
		msg.Direction = domain.Direction(direction)
		msg.CreatedAt = fromNanos(created)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *Store) InsertTimelineEvent(ctx context.Context, params repository.InsertTimelineEventParams) (repository.TimelineEvent, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var (
		event   repository.TimelineEvent
		kind    string
		created int64
	)
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO lead_timeline_events (lead_id, kind, actor_name, detail, created_at)
		SELECT id, ?, ?, ?, ? FROM leads WHERE id = ?
		RETURNING id, lead_id, kind, actor_name, detail, created_at
	`, string(params.Kind), params.ActorName, params.Detail, s.nowNanos(), params.LeadID).Scan(
		&event.ID, &event.LeadID, &kind, &event.ActorName, &event.Detail, &created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.TimelineEvent{}, repository.ErrNotFound
	}
	if err != nil {
		return repository.TimelineEvent{}, err
	}
	event.Kind = domain.TimelineKind(kind)
	event.CreatedAt = fromNanos(created)
	return event, nil
}

func (s *Store) ListTimelineEvents(ctx context.Context, leadID int64) ([]repository.TimelineEvent, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.q.QueryContext(ctx, `
		SELECT id, lead_id, kind, actor_name, detail, created_at
		FROM lead_timeline_events WHERE lead_id = ? ORDER BY id DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]repository.TimelineEvent, 0)
	for rows.Next() {
		var (
			event   repository.TimelineEvent
			kind    string
			created int64
		)
		if err := rows.Scan(&event.ID, &event.LeadID, &kind, &event.ActorName, &event.Detail, &created); err != nil {
			return nil, err
		}
		event.Kind = domain.TimelineKind(kind)
		event.CreatedAt = fromNanos(created)
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *Store) InsertNote(ctx context.Context, params repository.InsertNoteParams) (repository.Note, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var (
		note    repository.Note
		created int64
	)
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO lead_notes (lead_id, author_id, author_name, body, created_at)
		SELECT id, ?, ?, ?, ? FROM leads WHERE id = ?
		RETURNING id, lead_id, author_id, author_name, body, created_at
	`, params.AuthorID, params.AuthorName, params.Body, s.nowNanos(), params.LeadID).Scan(
		&note.ID, &note.LeadID, &note.AuthorID, &note.AuthorName, &note.Body, &created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.Note{}, repository.ErrNotFound
	}
	if err != nil {
		return repository.Note{}, err
	}
	note.CreatedAt = fromNanos(created)
	return note, nil
}

func (s *Store) ListNotes(ctx context.Context, leadID int64) ([]repository.Note, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.q.QueryContext(ctx, `
		SELECT id, lead_id, author_id, author_name, body, created_at
		FROM lead_notes WHERE lead_id = ? ORDER BY id DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]repository.Note, 0)
	for rows.Next() {
		var (
			note    repository.Note
			created int64
		)
		if err := rows.Scan(&note.ID, &note.LeadID, &note.AuthorID, &note.AuthorName, &note.Body, &created); err != nil {
			return nil, err
		}
		note.CreatedAt = fromNanos(created)
		notes = append(notes, note)
	}
	return notes, rows.Err()
}
