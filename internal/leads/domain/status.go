// Package domain provides core business rules for the leads bounded context.
package domain

import "strings"

// Status is the lifecycle state of a lead.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusWon        Status = "won"
	StatusLost       Status = "lost"
)

// AllStatuses lists statuses in funnel order.
var AllStatuses = []Status{StatusNew, StatusInProgress, StatusWon, StatusLost}

// ParseStatus accepts a status value case-insensitively.
func ParseStatus(value string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	switch s {
	case StatusNew, StatusInProgress, StatusWon, StatusLost:
		return s, true
	}
	return "", false
}

// IsTerminal is true for won and lost. Terminal leads accept no further
// assignment or status changes.
func (s Status) IsTerminal() bool {
	return s == StatusWon || s == StatusLost
}

// Label is the upper-case form used in timeline details.
func (s Status) Label() string {
	return strings.ToUpper(string(s))
}

// CanAssign reports whether a lead in status s may be assumed by an agent.
// New and in-progress leads can be (re)assigned.
func CanAssign(s Status) bool {
	return s == StatusNew || s == StatusInProgress
}

// CanTransition reports whether setStatus may move a lead from one status to
// another. Same-status requests are handled by the caller as no-ops.
//
//	new         -> won | lost
//	in_progress -> won | lost
//
// Entering in_progress happens only through assignment, and nothing moves a
// lead back to new, so an assigned lead is never in the new state.
func CanTransition(from, to Status) bool {
	if from.IsTerminal() {
		return false
	}
	return to.IsTerminal()
}
