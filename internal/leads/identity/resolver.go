// Package identity maps a channel address to its lead, creating the lead on
// first contact.
package identity

import (
	"context"
	"errors"

	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/phone"
	"leadflow_backend/platform/sanitize"

	"golang.org/x/sync/singleflight"
)

// DefaultDisplayName is used when the first message carries no sender name.
const DefaultDisplayName = "Lead"

// MaxDisplayNameRunes caps names taken from inbound payloads.
const MaxDisplayNameRunes = 100

const maxCreateAttempts = 3

// Repository is the part of the store the resolver uses.
type Repository interface {
	GetLeadByAddress(ctx context.Context, address string) (repository.Lead, error)
	CreateOrGetLeadByAddress(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, bool, error)
}

// Result carries the resolved lead and whether this resolve created it.
type Result struct {
	Lead    repository.Lead
	Created bool
}

type Resolver struct {
	repo  Repository
	group singleflight.Group
	log   *logger.Logger
}

func New(repo Repository, log *logger.Logger) *Resolver {
	return &Resolver{repo: repo, log: log.WithComponent("identity")}
}

// Resolve returns the lead for address, creating it with fallbackName when
// absent. An existing lead is returned unchanged. Concurrent resolves of the
// same address in this process share one store round trip; across processes
// the store's unique address constraint decides the winner and losers read
// it back.
func (r *Resolver) Resolve(ctx context.Context, address, fallbackName string) (Result, error) {
	normalized, err := phone.NormalizeAddress(address)
	if err != nil {
		return Result{}, apperr.Validation(err.Error()).WithOp("identity.Resolve")
	}

	name := sanitize.DisplayName(fallbackName, MaxDisplayNameRunes)
	if name == "" {
		name = DefaultDisplayName
	}

	// The shared call must outlive any single caller's cancellation.
	ch := r.group.DoChan(normalized, func() (any, error) {
		return r.resolve(context.WithoutCancel(ctx), normalized, name)
	})

	select {
	case <-ctx.Done():
		return Result{}, apperr.StoreUnavailable("lead lookup cancelled", ctx.Err()).WithOp("identity.Resolve")
	case res := <-ch:
		if res.Err != nil {
			return Result{}, repository.AppError("identity.Resolve", res.Err)
		}
		return res.Val.(Result), nil
	}
}

func (r *Resolver) resolve(ctx context.Context, address, name string) (Result, error) {
	lead, err := r.repo.GetLeadByAddress(ctx, address)
	if err == nil {
		return Result{Lead: lead}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return Result{}, err
	}

	for attempt := 1; ; attempt++ {
		lead, created, err := r.repo.CreateOrGetLeadByAddress(ctx, repository.CreateLeadParams{
			DisplayName:    name,
			ChannelAddress: address,
		})
		if err == nil {
			if created {
				r.log.Info("lead created", "leadId", lead.ID, "address", address)
			}
			return Result{Lead: lead, Created: created}, nil
		}
		if !errors.Is(err, repository.ErrConflict) || attempt >= maxCreateAttempts {
			return Result{}, err
		}
		r.log.Warn("lead creation conflict, retrying", "address", address, "attempt", attempt)
	}
}
