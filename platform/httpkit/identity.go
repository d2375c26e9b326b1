// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Roles are granted by AccessList from the ADMIN_USER_IDS and
// PRIVILEGED_USER_IDS allow-lists when AuthRequired accepts a token. A user
// on neither list is a plain sourcer. Token claims never grant a role.
const (
	// RoleAdmin reviews and edits every lead, changes status, and runs payouts.
	RoleAdmin = "admin"
	// RolePrivileged earns commission at the privileged rate. It grants no
	// extra access on its own.
	RolePrivileged = "privileged"
)

// Identity is the caller as seen by handlers: the user id from the verified
// token plus the roles the allow-lists give that id. Holding both admin and
// privileged is valid.
type Identity interface {
	// UserID is the verified token subject.
	UserID() uuid.UUID
	// HasRole reports whether the allow-lists grant role to this user.
	HasRole(role string) bool
	// IsAuthenticated is false when AuthRequired did not run or rejected the token.
	IsAuthenticated() bool
}

type identity struct {
	userID uuid.UUID
	roles  []string
}

func (i identity) UserID() uuid.UUID { return i.userID }

func (i identity) HasRole(role string) bool { return slices.Contains(i.roles, role) }

func (i identity) IsAuthenticated() bool { return i.userID != uuid.Nil }

// GetIdentity reads what AuthRequired stored on the request. A missing or
// mistyped user id yields an anonymous identity with no roles.
func GetIdentity(c *gin.Context) Identity {
	raw, ok := c.Get(ContextUserIDKey)
	if !ok {
		return identity{}
	}
	userID, ok := raw.(uuid.UUID)
	if !ok {
		return identity{}
	}
	rawRoles, _ := c.Get(ContextRolesKey)
	roles, _ := rawRoles.([]string)
	return identity{userID: userID, roles: roles}
}

// MustGetIdentity is GetIdentity for routes behind AuthRequired. An anonymous
// caller gets a 401 and nil.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}
