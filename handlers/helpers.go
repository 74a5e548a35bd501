package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/versecraft/versecraft/internal/access"
	"github.com/versecraft/versecraft/internal/content"
	"github.com/versecraft/versecraft/internal/models"
	"github.com/versecraft/versecraft/internal/notifications"
	"github.com/versecraft/versecraft/internal/reviews"
	"github.com/versecraft/versecraft/internal/storage"
	"github.com/versecraft/versecraft/internal/users"
	"github.com/versecraft/versecraft/pkg/logger"
	"github.com/versecraft/versecraft/pkg/middleware"
)

const unreadCountKey = "unreadCount"

// Uploader is the slice of the storage layer handlers need for image
// uploads. Satisfied by storage.MinIOStorage.
type Uploader interface {
	UploadImage(ctx context.Context, filename string, reader io.Reader, size int64) (string, error)
}

// UnreadBadgeMiddleware loads the unread notification count for
// logged-in users so every response envelope can carry the nav badge.
func UnreadBadgeMiddleware(notifs *notifications.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if u := middleware.CurrentUser(c); u != nil {
			unread, err := notifs.Unread(c.Request.Context(), u)
			if err != nil {
				logger.Warnf("unread badge lookup failed for user %s: %v", u.ID, err)
			} else {
				c.Set(unreadCountKey, len(unread))
			}
		}
		c.Next()
	}
}

// respond writes the payload, attaching the unread badge when the
// middleware computed one for this request.
func respond(c *gin.Context, status int, payload gin.H) {
	if v, ok := c.Get(unreadCountKey); ok {
		payload[unreadCountKey] = v
	}
	c.JSON(status, payload)
}

// serviceError maps domain errors to HTTP responses. Unrecognized
// errors are logged and reported as 500 without leaking details.
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, access.ErrLoginRequired):
		respond(c, http.StatusUnauthorized, gin.H{"error": "You need to login first", "redirect": "/login"})
	case errors.Is(err, access.ErrPermission):
		respond(c, http.StatusForbidden, gin.H{"error": "You don't have permission to do that"})
	case errors.Is(err, users.ErrNotFound),
		errors.Is(err, content.ErrNotFound),
		errors.Is(err, reviews.ErrNotFound),
		errors.Is(err, notifications.ErrNotFound):
		respond(c, http.StatusNotFound, gin.H{"error": "not found"})
	default:
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		respond(c, http.StatusInternalServerError, gin.H{"error": "something went wrong"})
	}
}

// uploadImage stores an optional multipart image and returns its URL.
// A missing file yields ("", nil); handlers fall back to a form URL or
// keep the existing image in that case.
func uploadImage(c *gin.Context, uploader Uploader, field string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", err
	}
	if uploader == nil {
		return "", nil
	}
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer func(f multipart.File) { _ = f.Close() }(f)
	return uploader.UploadImage(c.Request.Context(), fh.Filename, f, fh.Size)
}

// userView strips credentials from a user for public responses.
func userView(u *models.User) gin.H {
	return gin.H{
		"id":        u.ID,
		"username":  u.Username,
		"email":     u.Email,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"about":     u.About,
		"avatar":    u.Avatar,
		"followers": len(u.Followers),
		"isAdmin":   u.IsAdmin,
		"createdAt": u.CreatedAt,
	}
}

var _ Uploader = (*storage.MinIOStorage)(nil)
