package http

import (
	"sourcing_backend/internal/leads/domain"
	"sourcing_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// ActorFromContext builds the explicit actor passed into lead and commission
// operations. It aborts with 401 and returns false when nobody is signed in.
func ActorFromContext(c *gin.Context) (domain.Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return domain.Actor{}, false
	}
	actor := domain.Actor{
		ID:    identity.UserID(),
		Admin: identity.HasRole(httpkit.RoleAdmin),
		Class: domain.ActorNormal,
	}
	if identity.HasRole(httpkit.RolePrivileged) {
		actor.Class = domain.ActorPrivileged
	}
	return actor, true
}
