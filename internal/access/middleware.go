package access

import (
	"github.com/abduss/mediavault/internal/apperr"
	"github.com/gin-gonic/gin"
)

const callerContextKey = "mediavaultCaller"

// Middleware validates the bearer token and injects the caller's claims.
func Middleware(gate *Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := gate.Authorize(c.GetHeader("Authorization"), Constraint{})
		if err != nil {
			apperr.AbortWithError(c, err)
			return
		}

		c.Set(callerContextKey, claims)
		c.Next()
	}
}

// RequireAdmin rejects non-admin callers. It must run after Middleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentCaller(c)
		if !ok || !caller.IsAdmin() {
			apperr.AbortWithError(c, apperr.New(apperr.KindForbidden, "admin role required"))
			return
		}
		c.Next()
	}
}

// CurrentCaller extracts the authenticated caller from the request context.
func CurrentCaller(c *gin.Context) (Claims, bool) {
	value, exists := c.Get(callerContextKey)
	if !exists {
		return Claims{}, false
	}
	claims, ok := value.(Claims)
	return claims, ok
}
