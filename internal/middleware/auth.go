package middleware

import (
	"net/http"

	"github.com/RainbowRain9/auto-prompt-sub002/internal/auth"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/models"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/services"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/utils"
	"github.com/RainbowRain9/auto-prompt-sub002/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// UserKey holds the loaded models.User once RequireAuth has run.
	UserKey = "user"

	// IdentityKey holds the auth.UserContext resolved for every request.
	IdentityKey = "identity"
)

// UserContext resolves the caller from the bearer token on every request and
// stores the result. It never rejects; revoked or invalid tokens are anonymous.
func UserContext(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := resolver.Resolve(utils.BearerToken(utils.ExtractToken(c)))

		if identity.IsAuthenticated() {
			denied, err := services.IsDenylisted(c.Request.Context(), identity.Token())
			if err != nil {
				logger.L().Warn("Failed to check token status", zap.Error(err))
				identity = auth.UserContext{}
			} else if denied {
				identity = auth.UserContext{}
			}
		}

		c.Set(IdentityKey, identity)
		c.Request = c.Request.WithContext(auth.WithUserContext(c.Request.Context(), identity))
		c.Next()
	}
}

// Identity returns the caller resolved by UserContext, anonymous when absent.
func Identity(c *gin.Context) auth.UserContext {
	if v, ok := c.Get(IdentityKey); ok {
		if identity, ok := v.(auth.UserContext); ok {
			return identity
		}
	}
	return auth.FromContext(c.Request.Context())
}

// CurrentUser returns the user loaded by RequireAuth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(UserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

// RequireAuth rejects anonymous callers and loads the active user record.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := Identity(c).CurrentUserID()
		if !ok {
			c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Authentication required"))
			c.Abort()
			return
		}

		user, err := services.FindUserByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "User not found"))
			c.Abort()
			return
		}
		if !user.IsActive {
			c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "User account is disabled"))
			c.Abort()
			return
		}

		c.Set(UserKey, user)
		c.Next()
	}
}

// RequireAdmin validates that the user has admin privileges. It must follow RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Authentication required"))
			c.Abort()
			return
		}
		if !user.IsAdmin() {
			logger.L().Warn("Unauthorized admin access attempt",
				zap.String("user_id", user.ID),
				zap.String("path", c.FullPath()))
			c.JSON(http.StatusForbidden, utils.NewErrorResponse(http.StatusForbidden, "Forbidden: Admins only"))
			c.Abort()
			return
		}
		c.Next()
	}
}
