package services

import (
	"net/http"
	"visitdesk/internal/models"

	"github.com/gin-gonic/gin"
)

// HasRole reports whether the user's role is one of the allowed roles. All
// role checks in the API go through here.
func HasRole(user *models.User, roles ...string) bool {
	if user == nil {
		return false
	}
	for _, role := range roles {
		if user.Role == role {
			return true
		}
	}
	return false
}

// RequireRoles guards a route group behind a role check. It expects
// AuthMiddleware to have run first.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !HasRole(UserFromContext(c), roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}
