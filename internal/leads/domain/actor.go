package domain

import "strings"

// Role is an agent's access level.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleManager     Role = "manager"
	RoleSalesperson Role = "salesperson"
)

// DefaultAgentName is used when the caller's identity carries no name.
const DefaultAgentName = "Agent"

// Actor is the caller identity passed explicitly to every lifecycle operation.
type Actor struct {
	ID   int64
	Name string
	Role Role
}

// DisplayName returns the actor's name or DefaultAgentName when blank.
func (a Actor) DisplayName() string {
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	return DefaultAgentName
}

// SeesAllLeads is true for roles that oversee every agent's leads.
func (a Actor) SeesAllLeads() bool {
	return a.Role == RoleAdmin || a.Role == RoleManager
}
