package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/versecraft/versecraft/pkg/mailer"
)

func newTestService(m *mailer.Mock) (*Service, *MemoryRepository) {
	repo := NewMemoryRepository()
	svc := NewService(repo, Options{
		AdminSignupCode: "power",
		TokenSecret:     "testsecret123456789012345678901234",
		ResetTTL:        time.Hour,
		Mailer:          m,
	})
	return svc, repo
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Username: "a@example.com", Password: "hunter22", FirstName: "A", LastName: "B"})
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)
	require.Equal(t, "a@example.com", u.Email)
	require.False(t, u.IsAdmin)
	require.NotEqual(t, "hunter22", u.PasswordHash)

	got, err := svc.Authenticate(ctx, "a@example.com", "hunter22")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "a@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "hunter22")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "a@example.com", Password: "pw"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Username: "a@example.com", Password: "pw"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterAdminCode(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	admin, err := svc.Register(ctx, RegisterInput{Username: "admin@example.com", Password: "pw", AdminCode: "power"})
	require.NoError(t, err)
	require.True(t, admin.IsAdmin)

	plain, err := svc.Register(ctx, RegisterInput{Username: "plain@example.com", Password: "pw", AdminCode: "wrong"})
	require.NoError(t, err)
	require.False(t, plain.IsAdmin)

	// empty configured code disables admin signup regardless of input
	noCode := NewService(NewMemoryRepository(), Options{TokenSecret: "s"})
	u, err := noCode.Register(ctx, RegisterInput{Username: "x@example.com", Password: "pw", AdminCode: ""})
	require.NoError(t, err)
	require.False(t, u.IsAdmin)
}

func TestFollowIdempotent(t *testing.T) {
	svc, repo := newTestService(nil)
	ctx := context.Background()

	target, err := svc.Register(ctx, RegisterInput{Username: "t@example.com", Password: "pw"})
	require.NoError(t, err)
	actor, err := svc.Register(ctx, RegisterInput{Username: "f@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Follow(ctx, target.ID, actor.ID)
	require.NoError(t, err)

	_, err = svc.Follow(ctx, target.ID, actor.ID)
	require.ErrorIs(t, err, ErrAlreadyFollowing)

	got, err := repo.GetByID(ctx, target.ID)
	require.NoError(t, err)
	require.Equal(t, []string{actor.ID}, got.Followers)
}

func TestFollowMissingTarget(t *testing.T) {
	svc, _ := newTestService(nil)
	_, err := svc.Follow(context.Background(), "missing", "whoever")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProfileDoesNotTouchCredentials(t *testing.T) {
	svc, repo := newTestService(nil)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Username: "p@example.com", Password: "pw", FirstName: "Old"})
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, u.ID, ProfileUpdate{FirstName: "New", LastName: "Name", About: "hi"})
	require.NoError(t, err)
	require.Equal(t, "New", updated.FirstName)

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "New", got.FirstName)
	require.Equal(t, u.PasswordHash, got.PasswordHash)
}

func TestPasswordResetFlow(t *testing.T) {
	mock := mailer.NewMock()
	svc, repo := newTestService(mock)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Username: "r@example.com", Password: "oldpw"})
	require.NoError(t, err)

	require.NoError(t, svc.StartPasswordReset(ctx, "r@example.com", "example.com"))
	msgs := mock.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "r@example.com", msgs[0].To)

	stored, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotEmpty(t, stored.ResetPasswordToken)

	got, err := svc.CompletePasswordReset(ctx, stored.ResetPasswordToken, "newpw")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	// token is single-use
	_, err = svc.CompletePasswordReset(ctx, stored.ResetPasswordToken, "again")
	require.ErrorIs(t, err, ErrResetTokenInvalid)

	_, err = svc.Authenticate(ctx, "r@example.com", "newpw")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "r@example.com", "oldpw")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// confirmation mail went out too
	require.Len(t, mock.Messages(), 2)
}

func TestPasswordResetBadToken(t *testing.T) {
	svc, _ := newTestService(nil)
	_, err := svc.CompletePasswordReset(context.Background(), "garbage", "pw")
	require.ErrorIs(t, err, ErrResetTokenInvalid)
}
