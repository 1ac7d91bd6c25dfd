package transport

import "time"

type CreateNoteRequest struct {
	Note string `json:"note" validate:"required,notblank,max=2000"`
}

type NoteResponse struct {
	ID         int64     `json:"id"`
	LeadID     int64     `json:"leadId"`
	AuthorID   int64     `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Note       string    `json:"note"`
	CreatedAt  time.Time `json:"createdAt"`
}

type NotesResponse struct {
	Items []NoteResponse `json:"items"`
}
