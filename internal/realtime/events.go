// Package realtime fans lead events out to connected viewers over SSE.
// Delivery is best effort: a slow viewer loses events rather than slowing
// down the operation that produced them.
package realtime

import "time"

// Room names with special meaning.
const (
	// RoomManagers receives supervisory events (notes, ingest failures).
	// Only admins and managers may join it.
	RoomManagers = "gestores"
)

// Event is a typed realtime payload. Room returns "" for events that go to
// every subscriber.
type Event interface {
	EventName() string
	Room() string
}

// Publisher is what lead services depend on.
type Publisher interface {
	Publish(event Event)
}

// LeadAssigned is published when an agent assumes a lead.
type LeadAssigned struct {
	LeadID    int64  `json:"leadId"`
	AgentID   int64  `json:"agentId"`
	AgentName string `json:"agentName"`
}

func (LeadAssigned) EventName() string { return "lead_assigned" }
func (LeadAssigned) Room() string      { return "" }

// LeadUpdated is published after a status change.
type LeadUpdated struct {
	LeadID int64  `json:"leadId"`
	Status string `json:"status"`
}

func (LeadUpdated) EventName() string { return "lead_updated" }
func (LeadUpdated) Room() string      { return "" }

// NewMessage is published for every persisted inbound message.
type NewMessage struct {
	LeadID    int64     `json:"leadId"`
	MessageID int64     `json:"messageId"`
	Address   string    `json:"address"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Direction string    `json:"direction"`
	LeadIsNew bool      `json:"leadIsNew"`
}

func (NewMessage) EventName() string { return "new_message" }
func (NewMessage) Room() string      { return "" }

// MessageSent is published after an outbound message was accepted by the
// gateway and persisted.
type MessageSent struct {
	LeadID    int64     `json:"leadId"`
	MessageID int64     `json:"messageId"`
	Address   string    `json:"address"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	AgentID   int64     `json:"agentId"`
	AgentName string    `json:"agentName"`
}

func (MessageSent) EventName() string { return "message_sent" }
func (MessageSent) Room() string      { return "" }

// NewNote goes to the managers room only.
type NewNote struct {
	LeadID     int64     `json:"leadId"`
	NoteID     int64     `json:"noteId"`
	AuthorID   int64     `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Note       string    `json:"note"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (NewNote) EventName() string { return "new_note" }
func (NewNote) Room() string      { return RoomManagers }

// IngestFailed tells supervisors an inbound message could not be recorded.
type IngestFailed struct {
	Address   string    `json:"address"`
	MessageID string    `json:"messageId,omitempty"`
	Error     string    `json:"error"`
	At        time.Time `json:"at"`
}

func (IngestFailed) EventName() string { return "ingest_failed" }
func (IngestFailed) Room() string      { return RoomManagers }
