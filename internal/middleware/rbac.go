package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/study-hall-api/internal/models"
	appErrors "github.com/noah-isme/study-hall-api/pkg/errors"
	"github.com/noah-isme/study-hall-api/pkg/response"
)

// RequireRoles only lets through requests whose JWT claims carry one of roles.
// It must run after JWT.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := value.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
