package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
)

const leadColumns = `id, display_name, channel_address, status, assigned_agent_id, assigned_agent_name, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanLead(row scanner) (repository.Lead, error) {
	var (
		lead      repository.Lead
		status    string
		agentID   sql.NullInt64
		agentName sql.NullString
		created   int64
		updated   int64
	)
	err := row.Scan(&lead.ID, &lead.DisplayName, &lead.ChannelAddress, &status, &agentID, &agentName, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.Lead{}, repository.ErrNotFound
	}
	if err != nil {
		return repository.Lead{}, err
	}

	lead.Status = domain.Status(status)
	if agentID.Valid {
		id := agentID.Int64
		lead.AssignedAgentID = &id
	}
	if agentName.Valid {
		name := agentName.String
		lead.AssignedAgentName = &name
	}
	lead.CreatedAt = fromNanos(created)
	lead.UpdatedAt = fromNanos(updated)
	return lead, nil
}

func (s *Store) GetLead(ctx context.Context, id int64) (repository.Lead, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	return scanLead(s.q.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = ?`, id))
}

func (s *Store) GetLeadByAddress(ctx context.Context, address string) (repository.Lead, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	return scanLead(s.q.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE channel_address = ?`, address))
}

func (s *Store) CreateOrGetLeadByAddress(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	now := s.nowNanos()
	lead, err := scanLead(s.q.QueryRowContext(ctx, `
		INSERT INTO leads (display_name, channel_address, status, created_at, updated_at)
		VALUES (?, ?, 'new', ?, ?)
		ON CONFLICT (channel_address) DO NOTHING
		RETURNING `+leadColumns,
		params.DisplayName, params.ChannelAddress, now, now,
	))
	if err == nil {
		return lead, true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, false, err
	}

	lead, err = s.GetLeadByAddress(ctx, params.ChannelAddress)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, false, repository.ErrConflict
	}
	return lead, false, err
}

func (s *Store) UpdateLeadAssignment(ctx context.Context, id int64, agentID int64, agentName string) (repository.Lead, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	lead, err := scanLead(s.q.QueryRowContext(ctx, `
		UPDATE leads
		SET assigned_agent_id = ?, assigned_agent_name = ?, status = 'in_progress',
		    updated_at = max(?, updated_at + 1)
		WHERE id = ? AND status IN ('new', 'in_progress')
		RETURNING `+leadColumns,
		agentID, agentName, s.nowNanos(), id,
	))
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, s.missingOrTerminal(ctx, id)
	}
	return lead, err
}

func (s *Store) UpdateLeadStatus(ctx context.Context, id int64, status domain.Status) (repository.Lead, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	lead, err := scanLead(s.q.QueryRowContext(ctx, `
		UPDATE leads
		SET status = ?, updated_at = max(?, updated_at + 1)
		WHERE id = ? AND status NOT IN ('won', 'lost')
		RETURNING `+leadColumns,
		string(status), s.nowNanos(), id,
	))
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, s.missingOrTerminal(ctx, id)
	}
	return lead, err
}

func (s *Store) TouchLead(ctx context.Context, id int64) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	res, err := s.q.ExecContext(ctx, `UPDATE leads SET updated_at = max(?, updated_at + 1) WHERE id = ?`, s.nowNanos(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) missingOrTerminal(ctx context.Context, id int64) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if _, err := s.GetLead(ctx, id); err != nil {
		return err
	}
	return repository.ErrTerminalState
}

func (s *Store) ListLeads(ctx context.Context, filter repository.ListFilter) ([]repository.Lead, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var (
		where []string
		args  []any
	)
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.AssignedAgentID != nil {
		where = append(where, "assigned_agent_id = ?")
		args = append(args, *filter.AssignedAgentID)
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
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]repository.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func (s *Store) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.q.QueryContext(ctx, `SELECT status, count(*) FROM leads GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Status]int, len(domain.AllStatuses))
	for _, status := range domain.AllStatuses {
		counts[status] = 0
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
