package repository

import (
	"context"

	"leadflow_backend/internal/leads/domain"
)

func (r *Repository) InsertMessage(ctx context.Context, params InsertMessageParams) (Message, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var (
		msg       Message
		direction string
	)
	err := r.db.QueryRow(ctx, `
		INSERT INTO lead_messages (lead_id, direction, sender_name, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, lead_id, direction, sender_name, content, created_at
	`, params.LeadID, string(params.Direction), params.SenderName, params.Content).Scan(
		&msg.ID, &msg.LeadID, &direction, &msg.SenderName, &msg.Content, &msg.CreatedAt,
	)
	if isForeignKeyViolation(err) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, err
	}
	msg.Direction = domain.Direction(direction)
	return msg, nil
}

func (r *Repository) ListMessages(ctx context.Context, leadID int64) ([]Message, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, lead_id, direction, sender_name, content, created_at
		FROM lead_messages
		WHERE lead_id = $1
		ORDER BY id ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var (
			msg       Message
			direction string
		)
		if err := rows.Scan(&msg.ID, &msg.LeadID, &direction, &msg.SenderName, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Direction = domain.Direction(direction)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
