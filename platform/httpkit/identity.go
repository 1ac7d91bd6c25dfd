// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Roles carried in access tokens.
const (
	RoleAdmin       = "admin"
	RoleManager     = "manager"
	RoleSalesperson = "salesperson"
)

// Identity represents the authenticated agent. Handlers read it through this
// interface so services never depend on Gin.
type Identity interface {
	UserID() int64
	Name() string
	Roles() []string
	HasRole(role string) bool
	// IsManager is true for admins and managers.
	IsManager() bool
	IsAuthenticated() bool
}

type identity struct {
	userID        int64
	name          string
	roles         []string
	authenticated bool
}

func (i *identity) UserID() int64   { return i.userID }
func (i *identity) Name() string    { return i.name }
func (i *identity) Roles() []string { return i.roles }

func (i *identity) HasRole(role string) bool {
	for _, r := range i.roles {
		if r == role {
			return true
		}
	}
	return false
}

func (i *identity) IsManager() bool {
	return i.HasRole(RoleAdmin) || i.HasRole(RoleManager)
}

func (i *identity) IsAuthenticated() bool {
	return i.authenticated
}

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if user info is not present.
func GetIdentity(c *gin.Context) Identity {
	userID, userOK := c.Get(ContextUserIDKey)
	if !userOK {
		return &identity{}
	}
	uid, ok := userID.(int64)
	if !ok {
		return &identity{}
	}

	roleList, _ := c.Get(ContextRolesKey)
	roles, _ := roleList.([]string)
	name := c.GetString(ContextUserNameKey)

	return &identity{
		userID:        uid,
		name:          name,
		roles:         roles,
		authenticated: true,
	}
}

// MustGetIdentity extracts the Identity from a Gin context.
// If the user is not authenticated, it aborts with 401 Unauthorized and returns nil.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return nil
	}
	return id
}
