package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ysrn87/meetandgo-sub000/internal/domain"
	"github.com/ysrn87/meetandgo-sub000/pkg/jwt"
)

// ActorContextKey is the key used to store the acting user in Gin context
const ActorContextKey = "actor"

// AuthMiddleware creates a middleware that validates JWT tokens and stores
// the resulting actor on the request context
func AuthMiddleware(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authorization header is required",
				"code":    "MISSING_AUTH_HEADER",
			})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid authorization header format. Expected: Bearer <token>",
				"code":    "INVALID_AUTH_FORMAT",
			})
			c.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])

		claims, err := jwtService.ValidateAccessToken(tokenString)
		if err != nil {
			if jwtService.IsTokenExpired(tokenString) {
				c.JSON(http.StatusUnauthorized, gin.H{
					"error":   "token_expired",
					"message": "Access token has expired",
					"code":    "TOKEN_EXPIRED",
				})
			} else {
				c.JSON(http.StatusUnauthorized, gin.H{
					"error":   "invalid_token",
					"message": "Invalid access token",
					"code":    "INVALID_TOKEN",
				})
			}
			c.Abort()
			return
		}

		c.Set(ActorContextKey, domain.Actor{
			ID:   claims.UserID,
			Role: domain.Role(claims.Role),
		})

		c.Next()
	}
}

// RequireRole creates a middleware that checks the actor's role
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, exists := GetActor(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Actor not found. Auth middleware may not be applied.",
				"code":    "MISSING_ACTOR",
			})
			c.Abort()
			return
		}

		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": "You don't have permission to access this resource",
			"code":    "INSUFFICIENT_PERMISSIONS",
		})
		c.Abort()
	}
}

// GetActor retrieves the acting user from Gin context
func GetActor(c *gin.Context) (domain.Actor, bool) {
	value, exists := c.Get(ActorContextKey)
	if !exists {
		return domain.Actor{}, false
	}
	actor, ok := value.(domain.Actor)
	if !ok {
		return domain.Actor{}, false
	}
	return actor, true
}

// MustGetActor retrieves the actor or panics (use only after AuthMiddleware)
func MustGetActor(c *gin.Context) domain.Actor {
	actor, exists := GetActor(c)
	if !exists {
		panic("actor not found - ensure AuthMiddleware is applied")
	}
	return actor
}
