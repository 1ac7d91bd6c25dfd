package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"leadflow_backend/internal/leads/domain"

	"github.com/jackc/pgx/v5"
)

const leadColumns = `id, display_name, channel_address, status, assigned_agent_id, assigned_agent_name, created_at, updated_at`

// bumpUpdatedAt keeps updated_at strictly increasing even when the clock
// returns the same instant twice.
const bumpUpdatedAt = `updated_at = GREATEST(now(), updated_at + interval '1 microsecond')`

func scanLead(row pgx.Row) (Lead, error) {
	var (
		lead   Lead
		status string
	)
	err := row.Scan(
		&lead.ID,
		&lead.DisplayName,
		&lead.ChannelAddress,
		&status,
		&lead.AssignedAgentID,
		&lead.AssignedAgentName,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}
	lead.Status = domain.Status(status)
	return lead, nil
}

func (r *Repository) GetLead(ctx context.Context, id int64) (Lead, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	return scanLead(r.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
}

func (r *Repository) GetLeadByAddress(ctx context.Context, address string) (Lead, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	return scanLead(r.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE channel_address = $1`, address))
}

func (r *Repository) CreateOrGetLeadByAddress(ctx context.Context, params CreateLeadParams) (Lead, bool, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	lead, err := scanLead(r.db.QueryRow(ctx, `
		INSERT INTO leads (display_name, channel_address)
		VALUES ($1, $2)
		ON CONFLICT (channel_address) DO NOTHING
		RETURNING `+leadColumns,
		params.DisplayName, params.ChannelAddress,
	))
	if err == nil {
		return lead, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Lead{}, false, err
	}

	lead, err = r.GetLeadByAddress(ctx, params.ChannelAddress)
	if errors.Is(err, ErrNotFound) {
		return Lead{}, false, ErrConflict
	}
	return lead, false, err
}

func (r *Repository) UpdateLeadAssignment(ctx context.Context, id int64, agentID int64, agentName string) (Lead, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	lead, err := scanLead(r.db.QueryRow(ctx, `
		UPDATE leads
		SET assigned_agent_id = $2, assigned_agent_name = $3, status = 'in_progress', `+bumpUpdatedAt+`
		WHERE id = $1 AND status IN ('new', 'in_progress')
		RETURNING `+leadColumns,
		id, agentID, agentName,
	))
	if errors.Is(err, ErrNotFound) {
		return Lead{}, r.missingOrTerminal(ctx, id)
	}
	return lead, err
}

func (r *Repository) UpdateLeadStatus(ctx context.Context, id int64, status domain.Status) (Lead, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	lead, err := scanLead(r.db.QueryRow(ctx, `
		UPDATE leads
		SET status = $2, `+bumpUpdatedAt+`
		WHERE id = $1 AND status NOT IN ('won', 'lost')
		RETURNING `+leadColumns,
		id, string(status),
	))
	if errors.Is(err, ErrNotFound) {
		return Lead{}, r.missingOrTerminal(ctx, id)
	}
	return lead, err
}

func (r *Repository) TouchLead(ctx context.Context, id int64) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	tag, err := r.db.Exec(ctx, `UPDATE leads SET `+bumpUpdatedAt+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) missingOrTerminal(ctx context.Context, id int64) error {
	if _, err := r.GetLead(ctx, id); err != nil {
		return err
	}
	return ErrTerminalState
}

func (r *Repository) ListLeads(ctx context.Context, filter ListFilter) ([]Lead, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var (
		where []string
		args  []any
	)
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.AssignedAgentID != nil {
		args = append(args, *filter.AssignedAgentID)
		where = append(where, fmt.Sprintf("assigned_agent_id = $%d", len(args)))
	}

	query := `SELECT ` + leadColumns + ` FROM leads`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if filter.OldestFirst {
		query += ` ORDER BY created_at ASC, id ASC`
	} else {
		query += ` ORDER BY updated_at DESC, id DESC`
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func (r *Repository) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT status, count(*) FROM leads GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Status]int, len(domain.AllStatuses))
	for _, s := range domain.AllStatuses {
		counts[s] = 0
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.Status(status)] = n
	}
	return counts, rows.Err()
}
