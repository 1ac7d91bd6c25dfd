// Package notes handles internal notes agents leave on a lead. Notes are
// never sent to the customer; new notes are announced to the managers room.
package notes

import (
	"context"
	"unicode/utf8"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/timeline"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/internal/realtime"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/keylock"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/sanitize"
)

const maxNoteRunes = 2000

// Service handles lead note operations.
type Service struct {
	repo  repository.Store
	locks *keylock.Map[int64]
	pub   realtime.Publisher
	log   *logger.Logger
}

// New creates a new notes service.
func New(repo repository.Store, locks *keylock.Map[int64], pub realtime.Publisher, log *logger.Logger) *Service {
	return &Service{repo: repo, locks: locks, pub: pub, log: log.WithComponent("notes")}
}

// Add adds a new note to a lead.
func (s *Service) Add(ctx context.Context, leadID int64, author domain.Actor, body string) (transport.NoteResponse, error) {
	const op = "notes.Add"

	body = sanitize.Text(body)
	if body == "" || utf8.RuneCountInString(body) > maxNoteRunes {
		return transport.NoteResponse{}, apperr.Validation("note must be between 1 and 2000 characters")
	}

	unlock, err := s.locks.Lock(ctx, leadID)
	if err != nil {
		return transport.NoteResponse{}, repository.AppError(op, err)
	}
	defer unlock()

	authorName := author.DisplayName()
	var note repository.Note
	err = s.repo.Atomic(ctx, func(tx repository.Store) error {
		var err error
		note, err = tx.InsertNote(ctx, repository.InsertNoteParams{
			LeadID:     leadID,
			AuthorID:   author.ID,
			AuthorName: authorName,
			Body:       body,
		})
		if err != nil {
			return err
		}
		_, err = timeline.Record(ctx, tx, leadID, domain.KindNoteAdded, authorName, body)
		return err
	})
	if err != nil {
		return transport.NoteResponse{}, repository.AppError(op, err)
	}

	s.pub.Publish(realtime.NewNote{
		LeadID:     leadID,
		NoteID:     note.ID,
		AuthorID:   note.AuthorID,
		AuthorName: note.AuthorName,
		Note:       note.Body,
		CreatedAt:  note.CreatedAt,
	})
	return toNoteResponse(note), nil
}

// List returns a lead's notes, newest first.
func (s *Service) List(ctx context.Context, leadID int64) (transport.NotesResponse, error) {
	if _, err := s.repo.GetLead(ctx, leadID); err != nil {
		return transport.NotesResponse{}, repository.AppError("notes.List", err)
	}

	notes, err := s.repo.ListNotes(ctx, leadID)
	if err != nil {
		return transport.NotesResponse{}, repository.AppError("notes.List", err)
	}

	items := make([]transport.NoteResponse, 0, len(notes))
	for _, n := range notes {
		items = append(items, toNoteResponse(n))
	}
	return transport.NotesResponse{Items: items}, nil
}

func toNoteResponse(n repository.Note) transport.NoteResponse {
	return transport.NoteResponse{
		ID:         n.ID,
		LeadID:     n.LeadID,
		AuthorID:   n.AuthorID,
		AuthorName: n.AuthorName,
		Note:       n.Body,
		CreatedAt:  n.CreatedAt,
	}
}
