package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/ceama-enrollment-api/pkg/errors"
	"github.com/noah-isme/ceama-enrollment-api/pkg/response"
)

// RequireRoles lets the request through only when the staff role is listed.
// It must run after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := CurrentStaff(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, permitted := allowed[claims.Role]; !permitted {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" may not perform this action"))
			c.Abort()
			return
		}
		c.Next()
	}
}
