package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/versecraft/versecraft/internal/access"
	"github.com/versecraft/versecraft/internal/content"
	"github.com/versecraft/versecraft/internal/models"
	"github.com/versecraft/versecraft/internal/notifications"
	"github.com/versecraft/versecraft/internal/storage"
	"github.com/versecraft/versecraft/internal/users"
	"github.com/versecraft/versecraft/pkg/middleware"
	"github.com/versecraft/versecraft/pkg/validation"
)

// ProfileRequest is the profile edit form. The avatar arrives as an
// optional multipart file.
type ProfileRequest struct {
	FirstName string `form:"firstName" json:"firstName" binding:"required"`
	LastName  string `form:"lastName" json:"lastName" binding:"required"`
	About     string `form:"about" json:"about"`
	Avatar    string `form:"avatar" json:"-"`
}

// UsersHandler serves profiles, follows and the notification inbox.
type UsersHandler struct {
	usersSvc   *users.Service
	contentSvc *content.Service
	notifsSvc  *notifications.Service
	uploader   Uploader
}

func NewUsersHandler(us *users.Service, cs *content.Service, ns *notifications.Service, up Uploader) *UsersHandler {
	return &UsersHandler{usersSvc: us, contentSvc: cs, notifsSvc: ns, uploader: up}
}

func (h *UsersHandler) Register(r gin.IRouter) {
	r.GET("/users/:id", h.Profile)
	r.PUT("/users/:id", middleware.RequireLogin(), h.UpdateProfile)
	r.GET("/follow/:id", middleware.RequireLogin(), h.Follow)
	r.GET("/notifications", middleware.RequireLogin(), h.Notifications)
	r.GET("/notifications/:id", middleware.RequireLogin(), h.OpenNotification)
}

// Profile is the public author page: the user plus everything they
// published, split by kind.
func (h *UsersHandler) Profile(c *gin.Context) {
	u, err := h.usersSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	poems, err := h.contentSvc.ListByAuthor(c.Request.Context(), models.KindPoem, u.ID)
	if err != nil {
		serviceError(c, err)
		return
	}
	proses, err := h.contentSvc.ListByAuthor(c.Request.Context(), models.KindProse, u.ID)
	if err != nil {
		serviceError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"user":   userView(u),
		"poems":  poems,
		"proses": proses,
	})
}

// UpdateProfile edits the account's display fields. Bylines embedded
// in published work and reviews keep their original snapshot.
func (h *UsersHandler) UpdateProfile(c *gin.Context) {
	if err := access.Check(middleware.CurrentUser(c), c.Param("id")); err != nil {
		serviceError(c, err)
		return
	}
	var req ProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		respond(c, http.StatusBadRequest, gin.H{"error": "invalid form", "details": validation.ToDetails(err)})
		return
	}
	avatar, err := uploadImage(c, h.uploader, "avatar")
	if err != nil {
		if errors.Is(err, storage.ErrBadImageType) {
			respond(c, http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		serviceError(c, err)
		return
	}
	if avatar == "" {
		avatar = req.Avatar
	}
	u, err := h.usersSvc.UpdateProfile(c.Request.Context(), c.Param("id"), users.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		About:     req.About,
		Avatar:    avatar,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"message":  "Profile updated",
		"user":     userView(u),
		"redirect": "/users/" + u.ID,
	})
}

// Follow subscribes the current user to an author's publications.
func (h *UsersHandler) Follow(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	target, err := h.usersSvc.Follow(c.Request.Context(), c.Param("id"), actor.ID)
	if err != nil {
		if errors.Is(err, users.ErrAlreadyFollowing) {
			respond(c, http.StatusBadRequest, gin.H{
				"error":    "You are already following " + target.FirstName,
				"redirect": "/users/" + target.ID,
			})
			return
		}
		serviceError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"message":  "Successfully followed " + target.FirstName,
		"redirect": "/users/" + target.ID,
	})
}

// Notifications lists the current user's inbox, newest first.
func (h *UsersHandler) Notifications(c *gin.Context) {
	notifs, err := h.notifsSvc.List(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"notifications": notifs})
}

// OpenNotification marks the notification read and routes the client
// to the piece it announces, by kind.
func (h *UsersHandler) OpenNotification(c *gin.Context) {
	n, err := h.notifsSvc.MarkRead(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	base := "/poems/"
	if n.ContentKind == models.KindProse {
		base = "/proses/"
	}
	respond(c, http.StatusOK, gin.H{
		"notification": n,
		"redirect":     base + n.ContentID,
	})
}
