package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"marketplace/pkg/utils"
)

const (
	// AuthorizationHeader authorization header name
	AuthorizationHeader = "Authorization"
	// BearerPrefix Bearer prefix
	BearerPrefix = "Bearer "
	// UserIDKey user ID context key
	UserIDKey = "user_id"
	// UsernameKey username context key
	UsernameKey = "username"
)

// TokenValidator resolves a bearer token to a user
type TokenValidator func(token string) (uint64, string, error)

// AuthConfig authentication configuration
type AuthConfig struct {
	Validator TokenValidator
	// SkipPaths paths that bypass authentication
	SkipPaths []string
}

// Auth authentication middleware
func Auth(validator TokenValidator) gin.HandlerFunc {
	return AuthWithConfig(AuthConfig{Validator: validator})
}

// AuthWithConfig authentication middleware with configuration
func AuthWithConfig(config AuthConfig) gin.HandlerFunc {
	skipPaths := make(map[string]bool)
	for _, path := range config.SkipPaths {
		skipPaths[path] = true
	}

	return func(c *gin.Context) {
		if skipPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		authHeader := c.GetHeader(AuthorizationHeader)
		if authHeader == "" {
			utils.Error(c, utils.CodeUnauthorized, "Missing authorization header")
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			utils.Error(c, utils.CodeUnauthorized, "Invalid authorization header format")
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, BearerPrefix)
		if token == "" {
			utils.Error(c, utils.CodeUnauthorized, "Missing token")
			c.Abort()
			return
		}

		userID, username, err := config.Validator(token)
		if err != nil {
			utils.Error(c, utils.CodeUnauthorized, "Invalid token")
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(UsernameKey, username)

		c.Next()
	}
}

// GetUserID gets the authenticated user ID from the context
func GetUserID(c *gin.Context) (uint64, bool) {
	v, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}

	userID, ok := v.(uint64)
	return userID, ok
}

// MustGetUserID gets the authenticated user ID, panicking if absent.
// Only safe behind the Auth middleware.
func MustGetUserID(c *gin.Context) uint64 {
	userID, exists := GetUserID(c)
	if !exists {
		panic("user ID not found in context")
	}
	return userID
}
