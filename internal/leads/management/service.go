// Package management owns the lead lifecycle: assignment, status changes
// and the read models agents use to find their work.
package management

import (
	"context"
	"fmt"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/timeline"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/internal/realtime"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/keylock"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/metrics"
)

// Service serializes every mutation of a lead through a per-lead lock and
// commits the lead row together with its timeline entry.
type Service struct {
	repo  repository.Store
	locks *keylock.Map[int64]
	pub   realtime.Publisher
	log   *logger.Logger
}

func New(repo repository.Store, locks *keylock.Map[int64], pub realtime.Publisher, log *logger.Logger) *Service {
	return &Service{repo: repo, locks: locks, pub: pub, log: log.WithComponent("management")}
}

// Assign makes actor the lead's agent and moves it to in_progress.
// Reassigning to a different agent overwrites the previous one; assigning
// the current agent again changes nothing.
func (s *Service) Assign(ctx context.Context, leadID int64, actor domain.Actor) (transport.LeadResponse, error) {
	const op = "management.Assign"

	unlock, err := s.locks.Lock(ctx, leadID)
	if err != nil {
		return transport.LeadResponse{}, repository.AppError(op, err)
	}
	defer unlock()

	agentName := actor.DisplayName()
	var (
		updated repository.Lead
		changed bool
	)
	err = s.repo.Atomic(ctx, func(tx repository.Store) error {
		lead, err := tx.GetLead(ctx, leadID)
		if err != nil {
			return err
		}
		if !domain.CanAssign(lead.Status) {
			return apperr.InvalidTransition(fmt.Sprintf("lead is %s and can no longer be assigned", lead.Status))
		}
		if lead.Status == domain.StatusInProgress && lead.AssignedAgentID != nil && *lead.AssignedAgentID == actor.ID {
			updated = lead
			return nil
		}

		updated, err = tx.UpdateLeadAssignment(ctx, leadID, actor.ID, agentName)
		if err != nil {
			return err
		}
		if _, err := timeline.Record(ctx, tx, leadID, domain.KindLeadAssumed, agentName, domain.AssumedDetail(agentName)); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return transport.LeadResponse{}, repository.AppError(op, err)
	}

	if changed {
		metrics.RecordTransition(string(domain.KindLeadAssumed))
		s.log.LeadTransition(leadID, string(domain.KindLeadAssumed), agentName)
		s.pub.Publish(realtime.LeadAssigned{LeadID: leadID, AgentID: actor.ID, AgentName: agentName})
	}
	return ToLeadResponse(updated), nil
}

// SetStatus moves the lead to status. Setting the current status of an open
// lead is a no-op and records nothing.
func (s *Service) SetStatus(ctx context.Context, leadID int64, status domain.Status, actor domain.Actor) (transport.LeadResponse, error) {
	const op = "management.SetStatus"

	if _, ok := domain.ParseStatus(string(status)); !ok {
		return transport.LeadResponse{}, apperr.Validation(fmt.Sprintf("unknown status %q", status))
	}

	unlock, err := s.locks.Lock(ctx, leadID)
	if err != nil {
		return transport.LeadResponse{}, repository.AppError(op, err)
	}
	defer unlock()

	actorName := actor.DisplayName()
	var (
		updated repository.Lead
		changed bool
	)
	err = s.repo.Atomic(ctx, func(tx repository.Store) error {
		lead, err := tx.GetLead(ctx, leadID)
		if err != nil {
			return err
		}
		if lead.Status.IsTerminal() {
			return apperr.InvalidTransition(fmt.Sprintf("lead is already %s", lead.Status))
		}
		if lead.Status == status {
			updated = lead
			return nil
		}
		if !domain.CanTransition(lead.Status, status) {
			return apperr.InvalidTransition(fmt.Sprintf("cannot move lead from %s to %s", lead.Status, status))
		}

		updated, err = tx.UpdateLeadStatus(ctx, leadID, status)
		if err != nil {
			return err
		}
		if _, err := timeline.Record(ctx, tx, leadID, domain.KindStatusChanged, actorName, domain.StatusDetail(status)); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return transport.LeadResponse{}, repository.AppError(op, err)
	}

	if changed {
		metrics.RecordTransition(string(domain.KindStatusChanged))
		s.log.LeadTransition(leadID, string(domain.KindStatusChanged), actorName)
		s.pub.Publish(realtime.LeadUpdated{LeadID: leadID, Status: string(status)})
	}
	return ToLeadResponse(updated), nil
}

// GetByID retrieves a lead by ID.
func (s *Service) GetByID(ctx context.Context, id int64) (transport.LeadResponse, error) {
	lead, err := s.repo.GetLead(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, repository.AppError("management.GetByID", err)
	}
	return ToLeadResponse(lead), nil
}

// List returns every lead for admins and managers and only the caller's own
// leads for salespeople, most recently updated first.
func (s *Service) List(ctx context.Context, actor domain.Actor) (transport.LeadListResponse, error) {
	filter := repository.ListFilter{}
	if !actor.SeesAllLeads() {
		agentID := actor.ID
		filter.AssignedAgentID = &agentID
	}

	leads, err := s.repo.ListLeads(ctx, filter)
	if err != nil {
		return transport.LeadListResponse{}, repository.AppError("management.List", err)
	}
	return toLeadListResponse(leads), nil
}

// Queue returns unassigned leads, oldest first.
func (s *Service) Queue(ctx context.Context) (transport.LeadListResponse, error) {
	status := domain.StatusNew
	leads, err := s.repo.ListLeads(ctx, repository.ListFilter{Status: &status, OldestFirst: true})
	if err != nil {
		return transport.LeadListResponse{}, repository.AppError("management.Queue", err)
	}
	return toLeadListResponse(leads), nil
}

// Metrics returns funnel counts. Only admins and managers may read them.
func (s *Service) Metrics(ctx context.Context, actor domain.Actor) (transport.MetricsResponse, error) {
	if !actor.SeesAllLeads() {
		return transport.MetricsResponse{}, apperr.Forbidden("metrics are restricted to managers")
	}

	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return transport.MetricsResponse{}, repository.AppError("management.Metrics", err)
	}
	return toMetricsResponse(counts), nil
}
