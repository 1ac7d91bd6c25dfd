package repository

import (
	"context"
	"time"

	"leadflow_backend/internal/leads/domain"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetLead(ctx context.Context, id int64) (Lead, error)
	GetLeadByAddress(ctx context.Context, address string) (Lead, error)
	ListLeads(ctx context.Context, filter ListFilter) ([]Lead, error)
}

// LeadWriter provides write operations for lead lifecycle.
type LeadWriter interface {
	// CreateOrGetLeadByAddress inserts a lead unless one already exists for
	// the address, in which case the existing row is returned with
	// created=false. The first writer wins; its display name is kept.
	CreateOrGetLeadByAddress(ctx context.Context, params CreateLeadParams) (lead Lead, created bool, err error)
	// UpdateLeadAssignment sets the agent and moves the lead to in_progress.
	// Returns ErrTerminalState for won/lost leads.
	UpdateLeadAssignment(ctx context.Context, id int64, agentID int64, agentName string) (Lead, error)
	// UpdateLeadStatus returns ErrTerminalState for won/lost leads.
	UpdateLeadStatus(ctx context.Context, id int64, status domain.Status) (Lead, error)
	// TouchLead advances updated_at, used when conversation activity occurs.
	TouchLead(ctx context.Context, id int64) error
}

// MetricsReader provides funnel counts.
type MetricsReader interface {
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)
}

// MessageStore persists conversation messages.
type MessageStore interface {
	InsertMessage(ctx context.Context, params InsertMessageParams) (Message, error)
	// ListMessages returns messages oldest first.
	ListMessages(ctx context.Context, leadID int64) ([]Message, error)
}

// TimelineStore persists the per-lead audit log.
type TimelineStore interface {
	InsertTimelineEvent(ctx context.Context, params InsertTimelineEventParams) (TimelineEvent, error)
	// ListTimelineEvents returns events newest first.
	ListTimelineEvents(ctx context.Context, leadID int64) ([]TimelineEvent, error)
}

// NoteStore persists internal notes.
type NoteStore interface {
	InsertNote(ctx context.Context, params InsertNoteParams) (Note, error)
	// ListNotes returns notes newest first.
	ListNotes(ctx context.Context, leadID int64) ([]Note, error)
}

// Store is the full persistence contract used by the lead services.
type Store interface {
	LeadReader
	LeadWriter
	MetricsReader
	MessageStore
	TimelineStore
	NoteStore

	// Atomic runs fn against a Store whose writes commit together or not at
	// all. Nested calls join the outer unit.
	Atomic(ctx context.Context, fn func(tx Store) error) error
}

// ListFilter narrows ListLeads. Zero value lists every lead, most recently
// updated first.
type ListFilter struct {
	Status          *domain.Status
	AssignedAgentID *int64
	// OldestFirst orders by creation time ascending (queue order).
	OldestFirst bool
	Limit       int
}

type Lead struct {
	ID                int64
	DisplayName       string
	ChannelAddress    string
	Status            domain.Status
	AssignedAgentID   *int64
	AssignedAgentName *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type CreateLeadParams struct {
	DisplayName    string
	ChannelAddress string
}

type Message struct {
	ID         int64
	LeadID     int64
	Direction  domain.Direction
	SenderName string
	Content    string
	CreatedAt  time.Time
}

type InsertMessageParams struct {
	LeadID     int64
	Direction  domain.Direction
	SenderName string
	Content    string
}

type TimelineEvent struct {
	ID        int64
	LeadID    int64
	Kind      domain.TimelineKind
	ActorName string
	Detail    string
	CreatedAt time.Time
}

type InsertTimelineEventParams struct {
	LeadID    int64
	Kind      domain.TimelineKind
	ActorName string
	Detail    string
}

type Note struct {
	ID         int64
	LeadID     int64
	AuthorID   int64
	AuthorName string
	Body       string
	CreatedAt  time.Time
}

type InsertNoteParams struct {
	LeadID     int64
	AuthorID   int64
	AuthorName string
	Body       string
}
