package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/versecraft/versecraft/internal/config"
	"github.com/versecraft/versecraft/internal/models"
	"github.com/versecraft/versecraft/internal/sessions"
	"github.com/versecraft/versecraft/internal/storage"
	"github.com/versecraft/versecraft/internal/users"
	"github.com/versecraft/versecraft/pkg/logger"
	"github.com/versecraft/versecraft/pkg/middleware"
	"github.com/versecraft/versecraft/pkg/validation"
)

// RegisterRequest is the signup form. Username doubles as the email
// address; the avatar arrives as an optional multipart file.
type RegisterRequest struct {
	Username  string `form:"username" json:"username" binding:"required,email"`
	Password  string `form:"password" json:"password" binding:"required,min=6"`
	FirstName string `form:"firstName" json:"firstName" binding:"required"`
	LastName  string `form:"lastName" json:"lastName" binding:"required"`
	About     string `form:"about" json:"about"`
	AdminCode string `form:"adminCode" json:"adminCode"`
}

// LoginRequest is the login form.
type LoginRequest struct {
	Username string `form:"username" json:"username" binding:"required,email"`
	Password string `form:"password" json:"password" binding:"required"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg         *config.Config
	usersSvc    *users.Service
	sessionsSvc *sessions.Service
	uploader    Uploader
}

func NewAuthHandler(cfg *config.Config, u *users.Service, s *sessions.Service, up Uploader) *AuthHandler {
	return &AuthHandler{cfg: cfg, usersSvc: u, sessionsSvc: s, uploader: up}
}

// Register routes on the engine root
func (h *AuthHandler) Register(r gin.IRouter) {
	r.POST("/register", h.SignUp)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	r.POST("/forgot", h.Forgot)
	r.POST("/reset/:token", h.Reset)
}

// SignUp creates the account, logs the new user in and points the
// client at the landing page.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req RegisterRequest
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
	u, err := h.usersSvc.Register(c.Request.Context(), users.RegisterInput{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		About:     req.About,
		Avatar:    avatar,
		AdminCode: req.AdminCode,
	})
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			respond(c, http.StatusConflict, gin.H{"error": "A user with the given email is already registered", "redirect": "/register"})
			return
		}
		serviceError(c, err)
		return
	}
	if err := h.startSession(c, u.ID); err != nil {
		serviceError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{
		"message":  "Welcome to VerseCraft, " + u.FirstName,
		"user":     userView(u),
		"redirect": "/",
	})
}

// Login checks credentials and issues the session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		respond(c, http.StatusBadRequest, gin.H{"error": "invalid form", "details": validation.ToDetails(err)})
		return
	}
	u, err := h.usersSvc.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			respond(c, http.StatusUnauthorized, gin.H{"error": "Incorrect email address or password", "redirect": "/login"})
			return
		}
		serviceError(c, err)
		return
	}
	if err := h.startSession(c, u.ID); err != nil {
		serviceError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"message":  "Welcome back, " + u.FirstName,
		"user":     userView(u),
		"redirect": "/",
	})
}

// Logout drops the session on both ends.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(h.cfg.Session.CookieName); err == nil && token != "" {
		if err := h.sessionsSvc.Delete(c.Request.Context(), token); err != nil {
			logger.Warnf("session delete on logout: %v", err)
		}
	}
	c.SetCookie(h.cfg.Session.CookieName, "", -1, "/", "", false, true)
	respond(c, http.StatusOK, gin.H{"message": "Logged you out", "redirect": "/"})
}

// Forgot starts the password reset flow for the submitted address.
func (h *AuthHandler) Forgot(c *gin.Context) {
	var req struct {
		Username string `form:"username" json:"username" binding:"required,email"`
	}
	if err := c.ShouldBind(&req); err != nil {
		respond(c, http.StatusBadRequest, gin.H{"error": "invalid form", "details": validation.ToDetails(err)})
		return
	}
	if err := h.usersSvc.StartPasswordReset(c.Request.Context(), req.Username, c.Request.Host); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			respond(c, http.StatusNotFound, gin.H{"error": "No account with that email address exists", "redirect": "/forgot"})
			return
		}
		serviceError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"message":  "An e-mail has been sent to " + req.Username + " with further instructions",
		"redirect": "/",
	})
}

// Reset finishes the flow: sets the new password and logs the user in.
func (h *AuthHandler) Reset(c *gin.Context) {
	var req struct {
		Password string `form:"password" json:"password" binding:"required,min=6"`
		Confirm  string `form:"confirm" json:"confirm" binding:"required"`
	}
	if err := c.ShouldBind(&req); err != nil {
		respond(c, http.StatusBadRequest, gin.H{"error": "invalid form", "details": validation.ToDetails(err)})
		return
	}
	if req.Password != req.Confirm {
		respond(c, http.StatusBadRequest, gin.H{"error": "Passwords do not match"})
		return
	}
	u, err := h.usersSvc.CompletePasswordReset(c.Request.Context(), c.Param("token"), req.Password)
	if err != nil {
		if errors.Is(err, users.ErrResetTokenInvalid) {
			respond(c, http.StatusBadRequest, gin.H{"error": "Password reset token is invalid or has expired", "redirect": "/forgot"})
			return
		}
		serviceError(c, err)
		return
	}
	if err := h.startSession(c, u.ID); err != nil {
		serviceError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"message":  "Your password has been changed",
		"user":     userView(u),
		"redirect": "/",
	})
}

func (h *AuthHandler) startSession(c *gin.Context, userID string) error {
	token, err := h.sessionsSvc.Create(c.Request.Context(), userID, h.cfg.Session.TTL)
	if err != nil {
		return err
	}
	c.SetCookie(h.cfg.Session.CookieName, token, int(h.cfg.Session.TTL.Seconds()), "/", "", false, true)
	return nil
}

// SessionUserResolver adapts the session and user services to the
// middleware.SessionResolver interface.
type SessionUserResolver struct {
	Sessions *sessions.Service
	Users    *users.Service
}

func (r *SessionUserResolver) Resolve(ctx context.Context, token string) (*models.User, error) {
	sess, err := r.Sessions.Validate(ctx, token)
	if err != nil || sess == nil {
		return nil, err
	}
	u, err := r.Users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

var _ middleware.SessionResolver = (*SessionUserResolver)(nil)
