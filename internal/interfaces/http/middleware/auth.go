package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"hostelhub.backend/internal/domain/entities"
	domainerrors "hostelhub.backend/internal/domain/errors"
	"hostelhub.backend/internal/interfaces/http/response"
	"hostelhub.backend/pkg/jwt"
	"hostelhub.backend/pkg/logger"
)

const (
	// AuthorizationHeader is the header key for authorization
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer tokens
	BearerPrefix = "Bearer "
	// UserIDKey is the context key for user ID
	UserIDKey = "userId"
	// UserEmailKey is the context key for user email
	UserEmailKey = "userEmail"
	// UserRoleKey is the context key for user role
	UserRoleKey = "userRole"
)

type tokenValidator interface {
	ValidateTokenOfType(tokenString string, typ jwt.TokenType) (*jwt.Claims, error)
}

// AuthMiddleware accepts only access tokens. Refresh tokens are refused.
func AuthMiddleware(jwtService tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeader)
		if authHeader == "" {
			response.Abort(c, domainerrors.Unauthorized("Authorization header is required"))
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			response.Abort(c, domainerrors.Unauthorized("Invalid authorization format. Use: Bearer <token>"))
			return
		}

		claims, err := jwtService.ValidateTokenOfType(strings.TrimPrefix(authHeader, BearerPrefix), jwt.TokenTypeAccess)
		if err != nil {
			if errors.Is(err, jwt.ErrExpiredToken) {
				response.Abort(c, domainerrors.Unauthorized("Token has expired"))
				return
			}
			response.Abort(c, domainerrors.Unauthorized("Invalid token"))
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)
		c.Set(UserRoleKey, claims.Role)
		ctx := context.WithValue(c.Request.Context(), logger.ActorIDKey, claims.UserID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetUserID gets the user ID from context
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := userID.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// GetUserRole gets the user role from context
func GetUserRole(c *gin.Context) (string, bool) {
	role, exists := c.Get(UserRoleKey)
	if !exists {
		return "", false
	}
	s, ok := role.(string)
	return s, ok
}

// RequireRole admits callers whose token carries one of roles. It is a
// coarse filter; usecases re-check privileges against the stored record.
func RequireRole(roles ...entities.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := GetUserRole(c)
		if !exists {
			response.Abort(c, domainerrors.Unauthorized("User role not found"))
			return
		}

		for _, role := range roles {
			if userRole == string(role) {
				c.Next()
				return
			}
		}
		response.Abort(c, domainerrors.Forbidden("Insufficient permissions"))
	}
}

// RequireAdmin creates a middleware that requires admin role
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(entities.UserRoleAdmin)
}

// AccountGate reports whether a user may use gated features
type AccountGate interface {
	RequireActive(ctx context.Context, userID uuid.UUID) error
}

// RequireActiveAccount stops callers whose stored account status is not
// ACTIVE. Must run after AuthMiddleware.
func RequireActiveAccount(gate AccountGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.Abort(c, domainerrors.Unauthorized("User not authenticated"))
			return
		}
		if err := gate.RequireActive(c.Request.Context(), userID); err != nil {
			response.Abort(c, err)
			return
		}
		c.Next()
	}
}
