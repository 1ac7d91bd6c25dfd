package repository

import "context"

func (r *Repository) InsertNote(ctx context.Context, params InsertNoteParams) (Note, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var note Note
	err := r.db.QueryRow(ctx, `
		INSERT INTO lead_notes (lead_id, author_id, author_name, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, lead_id, author_id, author_name, body, created_at
	`, params.LeadID, params.AuthorID, params.AuthorName, params.Body).Scan(
		&note.ID, &note.LeadID, &note.AuthorID, &note.AuthorName, &note.Body, &note.CreatedAt,
	)
	if isForeignKeyViolation(err) {
		return Note{}, ErrNotFound
	}
	return note, err
}

func (r *Repository) ListNotes(ctx context.Context, leadID int64) ([]Note, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, lead_id, author_id, author_name, body, created_at
		FROM lead_notes
		WHERE lead_id = $1
		ORDER BY id DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]Note, 0)
	for rows.Next() {
		var note Note
		if err := rows.Scan(&note.ID, &note.LeadID, &note.AuthorID, &note.AuthorName, &note.Body, &note.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}
