package middleware

import (
	"strings"

	"github.com/equipdesk/backend/internal/models"
	"github.com/equipdesk/backend/internal/utils"
	"github.com/equipdesk/backend/pkg/logger"
	"github.com/equipdesk/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

const (
	ContextUserID = logger.ContextUserID
	ContextRole   = "role"
)

const (
	msgAuthRequired  = "authorization header required"
	msgInvalidHeader = "invalid authorization header format"
	msgInvalidToken  = "invalid or expired token"
	msgForbidden     = "insufficient permissions"
)

// AuthRequired validates the bearer access token and stores the caller's id and
// role in the context. It never consults the session store.
func AuthRequired(issuer *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, response.NewUnauthorized(msgAuthRequired))
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, response.NewUnauthorized(msgInvalidHeader))
			return
		}

		claims, err := issuer.ParseAccessToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, response.NewUnauthorized(msgInvalidToken))
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)

		c.Next()
	}
}

// RequireRoles lets the request through only when the authenticated caller has one
// of roles. It must run after AuthRequired.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role, exists := c.Get(ContextRole)
		if !exists {
			response.Error(c, response.NewUnauthorized(msgAuthRequired))
			return
		}
		if r, _ := role.(string); !allowed[r] {
			response.Error(c, response.NewForbidden(msgForbidden))
			return
		}
		c.Next()
	}
}

// AdminRequired is RequireRoles(admin).
func AdminRequired() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin)
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		if uid, ok := id.(uint); ok {
			return uid
		}
	}
	return 0
}

// GetRole gets the current user role from context
func GetRole(c *gin.Context) string {
	if role, exists := c.Get(ContextRole); exists {
		if r, ok := role.(string); ok {
			return r
		}
	}
	return ""
}
