package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the authenticated caller of a request. Automation passes
// started by the request record it as the acting user.
type Identity struct {
	userID uuid.UUID
	roles  []string
}

// UserID returns the caller's user ID.
func (i *Identity) UserID() uuid.UUID { return i.userID }

// Roles returns the roles from the access token.
func (i *Identity) Roles() []string { return i.roles }

// HasRole reports whether the caller holds role.
func (i *Identity) HasRole(role string) bool { return hasRole(i.roles, role) }

// GetIdentity returns the caller set by AuthRequired, or nil for anonymous
// requests.
func GetIdentity(c *gin.Context) *Identity {
	raw, ok := c.Get(ContextUserIDKey)
	if !ok {
		return nil
	}
	userID, ok := raw.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return nil
	}

	var roles []string
	if v, ok := c.Get(ContextRolesKey); ok {
		roles, _ = v.([]string)
	}
	return &Identity{userID: userID, roles: roles}
}

// MustGetIdentity is GetIdentity for handlers behind AuthRequired. It aborts
// with 401 and returns nil when no caller is present.
func MustGetIdentity(c *gin.Context) *Identity {
	id := GetIdentity(c)
	if id == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	return id
}
