package domain

import (
	"strings"
	"unicode/utf8"
)

// TimelineKind classifies entries in a lead's audit log.
type TimelineKind string

const (
	KindLeadAssumed     TimelineKind = "lead_assumed"
	KindStatusChanged   TimelineKind = "status_changed"
	KindMessageReceived TimelineKind = "message_received"
	KindMessageSent     TimelineKind = "message_sent"
	KindNoteAdded       TimelineKind = "note_added"
)

// Valid reports whether k is one of the known kinds.
func (k TimelineKind) Valid() bool {
	switch k {
	case KindLeadAssumed, KindStatusChanged, KindMessageReceived, KindMessageSent, KindNoteAdded:
		return true
	}
	return false
}

// DetailMaxRunes caps timeline details that quote message or note content.
const DetailMaxRunes = 100

// TruncateDetail trims text to at most maxRunes characters without splitting
// a multi-byte character.
func TruncateDetail(text string, maxRunes int) string {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) <= maxRunes {
		return trimmed
	}
	runes := []rune(trimmed)
	return string(runes[:maxRunes])
}

// AssumedDetail is the detail recorded when an agent takes a lead.
func AssumedDetail(agentName string) string {
	return agentName + " assumed the lead"
}

// StatusDetail is the detail recorded for a status change.
func StatusDetail(s Status) string {
	return "Lead moved to " + s.Label()
}

// Direction tells which side of the conversation produced a message.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)
