package middleware

import (
	"net/http"
	"strings"

	"localserve/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const principalKey = "principal"

// JWTAuthMiddleware validates the bearer token and stores the caller's
// principal in the context.
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{
				Error: "Missing or invalid Authorization header",
				Code:  "unauthorized",
			})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		principal, err := utils.PrincipalFromToken(tokenString)
		if err != nil {
			zap.L().Debug("Rejected bearer token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{
				Error: "Invalid token",
				Code:  "unauthorized",
			})
			return
		}

		c.Set(principalKey, principal)
		c.Set("logger", zap.L().With(
			zap.String("callerId", principal.ID),
			zap.String("role", principal.Role),
		))
		c.Next()
	}
}

// RequireRole lets the request through only when the authenticated caller has
// one of roles. It must run after JWTAuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Error: "Insufficient authorization", Code: "unauthorized"})
			return
		}
		for _, r := range roles {
			if principal.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, utils.ErrorResponse{
			Error: "Role " + principal.Role + " may not access this resource",
			Code:  "forbidden",
		})
	}
}

// PrincipalFrom returns the principal set by JWTAuthMiddleware.
func PrincipalFrom(c *gin.Context) (utils.Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return utils.Principal{}, false
	}
	p, ok := v.(utils.Principal)
	return p, ok
}
