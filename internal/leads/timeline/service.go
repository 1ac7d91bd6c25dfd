// Package timeline is the append-only audit log of actions taken on a lead.
// It is a history feed only; lead state lives on the lead row.
package timeline

import (
	"context"
	"fmt"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/platform/apperr"
)

// Repository is what the timeline needs from the store.
type Repository interface {
	GetLead(ctx context.Context, id int64) (repository.Lead, error)
	repository.TimelineStore
}

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record inserts one event through w, which is usually the transactional
// store of the operation that caused it. Detail is truncated to
// domain.DetailMaxRunes.
func Record(ctx context.Context, w repository.TimelineStore, leadID int64, kind domain.TimelineKind, actorName, detail string) (repository.TimelineEvent, error) {
	if !kind.Valid() {
		return repository.TimelineEvent{}, apperr.Validation(fmt.Sprintf("unknown timeline kind %q", kind))
	}
	return w.InsertTimelineEvent(ctx, repository.InsertTimelineEventParams{
		LeadID:    leadID,
		Kind:      kind,
		ActorName: actorName,
		Detail:    domain.TruncateDetail(detail, domain.DetailMaxRunes),
	})
}

// Append records an event outside of any other operation.
func (s *Service) Append(ctx context.Context, leadID int64, kind domain.TimelineKind, actorName, detail string) (transport.TimelineEventResponse, error) {
	event, err := Record(ctx, s.repo, leadID, kind, actorName, detail)
	if err != nil {
		return transport.TimelineEventResponse{}, repository.AppError("timeline.Append", err)
	}
	return ToResponse(event), nil
}

// List returns the lead's events newest first.
func (s *Service) List(ctx context.Context, leadID int64) (transport.TimelineResponse, error) {
	if _, err := s.repo.GetLead(ctx, leadID); err != nil {
		return transport.TimelineResponse{}, repository.AppError("timeline.List", err)
	}

	events, err := s.repo.ListTimelineEvents(ctx, leadID)
	if err != nil {
		return transport.TimelineResponse{}, repository.AppError("timeline.List", err)
	}

	items := make([]transport.TimelineEventResponse, 0, len(events))
	for _, e := range events {
		items = append(items, ToResponse(e))
	}
	return transport.TimelineResponse{Items: items}, nil
}

func ToResponse(e repository.TimelineEvent) transport.TimelineEventResponse {
	return transport.TimelineEventResponse{
		ID:        e.ID,
		LeadID:    e.LeadID,
		Kind:      string(e.Kind),
		ActorName: e.ActorName,
		Detail:    e.Detail,
		CreatedAt: e.CreatedAt,
	}
}
