package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yamdb/yamdb-api/internal/models"
	"github.com/yamdb/yamdb-api/internal/permissions"
	"github.com/yamdb/yamdb-api/internal/utils"
	"github.com/yamdb/yamdb-api/pkg/logger"
	"go.uber.org/zap"
)

const currentUserKey = "current_user"

// UserLoader resolves the account a token was issued for.
type UserLoader interface {
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Authenticate resolves an optional bearer token into the current user.
// Requests without an Authorization header continue anonymously; a header
// that does not carry a valid token is rejected with 401.
func Authenticate(jwtSecret string, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization format. Use: Bearer <token>",
			})
			return
		}

		claims, err := utils.ValidateToken(tokenString, jwtSecret)
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, utils.ErrExpiredToken) {
				msg = "Token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		user, err := users.UserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			logger.Log.Error("Failed to load token user",
				zap.String("user_id", claims.UserID.String()),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil for anonymous requests.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// RequirePolicy gates the route with p. Anonymous callers that would be
// allowed after signing in get 401; everyone else who is denied gets 403.
func RequirePolicy(p permissions.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := CurrentUser(c)
		method := c.Request.Method
		if p.Allows(actor, method) {
			c.Next()
			return
		}

		if p.NeedsAuthentication(actor, method) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication credentials were not provided",
			})
			return
		}

		logger.Log.Debug("Request denied by policy",
			zap.String("policy", p.String()),
			zap.String("method", method),
			zap.String("path", c.FullPath()),
			zap.String("username", actor.Username),
		)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "You do not have permission to perform this action",
		})
	}
}
