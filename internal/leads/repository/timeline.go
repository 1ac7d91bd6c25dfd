package repository

import (
	"context"

	"leadflow_backend/internal/leads/domain"
)

func (r *Repository) InsertTimelineEvent(ctx context.Context, params InsertTimelineEventParams) (TimelineEvent, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var (
		event TimelineEvent
		kind  string
	)
	err := r.db.QueryRow(ctx, `
		INSERT INTO lead_timeline_events (lead_id, kind, actor_name, detail)
		VALUES ($1, $2, $3, $4)
		RETURNING id, lead_id, kind, actor_name, detail, created_at
	`, params.LeadID, string(params.Kind), params.ActorName, params.Detail).Scan(
		&event.ID, &event.LeadID, &kind, &event.ActorName, &event.Detail, &event.CreatedAt,
	)
	if isForeignKeyViolation(err) {
		return TimelineEvent{}, ErrNotFound
	}
	if err != nil {
		return TimelineEvent{}, err
	}
	event.Kind = domain.TimelineKind(kind)
	return event, nil
}

func (r *Repository) ListTimelineEvents(ctx context.Context, leadID int64) ([]TimelineEvent, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, lead_id, kind, actor_name, detail, created_at
		FROM lead_timeline_events
		WHERE lead_id = $1
		ORDER BY id DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]TimelineEvent, 0)
	for rows.Next() {
		var (
			event TimelineEvent
			kind  string
		)
		if err := rows.Scan(&event.ID, &event.LeadID, &kind, &event.ActorName, &event.Detail, &event.CreatedAt); err != nil {
			return nil, err
		}
		event.Kind = domain.TimelineKind(kind)
		events = append(events, event)
	}
	return events, rows.Err()
}
