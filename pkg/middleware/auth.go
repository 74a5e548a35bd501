package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/versecraft/versecraft/internal/models"
)

const currentUserKey = "currentUser"

// SessionResolver is the minimal interface the middleware depends on:
// it turns a session cookie value into the logged-in user, or nil when
// the token is unknown or expired.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// CurrentUserMiddleware reads the session cookie and, when it maps to a
// live session, stores the user in the request context. It never aborts;
// anonymous requests simply proceed without a current user.
func CurrentUserMiddleware(resolver SessionResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}
		user, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil || user == nil {
			c.Next()
			return
		}
		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the logged-in user from the request context, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	u, ok := v.(*models.User)
	if !ok {
		return nil
	}
	return u
}

// RequireLogin aborts anonymous requests with 401 and a login redirect target.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    "You need to login first",
				"redirect": "/login",
			})
			return
		}
		c.Next()
	}
}
