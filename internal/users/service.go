package users

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/versecraft/versecraft/internal/models"
	"github.com/versecraft/versecraft/internal/tokens"
	"github.com/versecraft/versecraft/pkg/logger"
	"github.com/versecraft/versecraft/pkg/mailer"
)

var (
	ErrInvalidCredentials = errors.New("incorrect email address or password")
	ErrAlreadyFollowing   = errors.New("already following")
	ErrResetTokenInvalid  = errors.New("password reset token is invalid or has expired")
)

// Options carries the service configuration that is not a repository.
type Options struct {
	// AdminSignupCode grants the admin flag at registration when the
	// submitted code matches. Empty disables admin signup.
	AdminSignupCode string
	TokenSecret     string
	ResetTTL        time.Duration
	Mailer          mailer.Sender
}

// Service encapsulates identity business logic: registration,
// credential checks, profile updates, follow relationships and the
// password-reset flow.
type Service struct {
	repo Repository
	opts Options
}

func NewService(repo Repository, opts Options) *Service {
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = time.Hour
	}
	return &Service{repo: repo, opts: opts}
}

// RegisterInput is the registration form. Username doubles as email.
type RegisterInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	About     string
	Avatar    string
	AdminCode string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		Username:     in.Username,
		Email:        in.Username,
		PasswordHash: string(hash),
		Avatar:       in.Avatar,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		About:        in.About,
		IsAdmin:      s.adminCodeMatches(in.AdminCode),
	}
	return s.repo.Create(ctx, u)
}

func (s *Service) adminCodeMatches(code string) bool {
	if s.opts.AdminSignupCode == "" || code == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.opts.AdminSignupCode), []byte(code)) == 1
}

// Authenticate verifies email + password and returns the user.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

// ProfileUpdate holds the editable profile fields. Embedded author
// snapshots on existing content and reviews are never rewritten.
type ProfileUpdate struct {
	FirstName string
	LastName  string
	About     string
	Avatar    string
}

func (s *Service) UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (*models.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.FirstName = in.FirstName
	u.LastName = in.LastName
	u.About = in.About
	if in.Avatar != "" {
		u.Avatar = in.Avatar
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Follow adds actorID to targetID's follower list. The list is scanned
// linearly first; a repeated call reports ErrAlreadyFollowing without
// mutation, so the operation is idempotent from the caller's view.
func (s *Service) Follow(ctx context.Context, targetID, actorID string) (*models.User, error) {
	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	for _, f := range target.Followers {
		if f == actorID {
			return target, ErrAlreadyFollowing
		}
	}
	if err := s.repo.PushFollower(ctx, targetID, actorID); err != nil {
		return nil, err
	}
	target.Followers = append(target.Followers, actorID)
	return target, nil
}

// StartPasswordReset issues a reset token, persists it with its expiry
// and mails the reset link. Mail failure is logged, not returned: the
// redirect must not block on delivery.
func (s *Service) StartPasswordReset(ctx context.Context, email, host string) error {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	token, err := tokens.GenerateResetToken(s.opts.TokenSecret, u.ID, s.opts.ResetTTL)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	u.ResetPasswordToken = token
	u.ResetPasswordExpires = time.Now().UTC().Add(s.opts.ResetTTL)
	if err := s.repo.Update(ctx, u); err != nil {
		return err
	}
	if s.opts.Mailer != nil {
		body := "Hello,\n\n" +
			"You are receiving this email because a password reset was requested for your account. " +
			"Please open the following link to complete the process:\n" +
			"https://" + host + "/reset/" + token + "\n\n" +
			"If you did not request this, ignore this email and your password will remain unchanged."
		if err := s.opts.Mailer.Send(ctx, u.Email, "Password Reset", body); err != nil {
			logger.Warnf("password reset mail to %s failed: %v", u.Email, err)
		}
	}
	return nil
}

// CompletePasswordReset validates the token (signature and stored
// expiry), sets the new password and clears the token.
func (s *Service) CompletePasswordReset(ctx context.Context, token, password string) (*models.User, error) {
	if _, err := tokens.ParseResetToken(s.opts.TokenSecret, token); err != nil {
		return nil, ErrResetTokenInvalid
	}
	u, err := s.repo.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrResetTokenInvalid
		}
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	u.ResetPasswordToken = ""
	u.ResetPasswordExpires = time.Time{}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	if s.opts.Mailer != nil {
		body := "Hello,\n\n" +
			"This is a confirmation that the password for your account " + u.Email + " has just been changed."
		if err := s.opts.Mailer.Send(ctx, u.Email, "Your password has been changed", body); err != nil {
			logger.Warnf("password change confirmation mail to %s failed: %v", u.Email, err)
		}
	}
	return u, nil
}

// Snapshot freezes the identifying author fields for embedding into a
// content item or review.
func Snapshot(u *models.User) models.AuthorSnapshot {
	return models.AuthorSnapshot{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
