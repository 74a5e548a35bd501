package notifications

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/versecraft/versecraft/internal/models"
	"github.com/versecraft/versecraft/internal/users"
)

func setup(t *testing.T, followerCount int) (*Service, *MemoryRepository, *users.MemoryRepository, *models.User, []*models.User) {
	t.Helper()
	ctx := context.Background()
	userRepo := users.NewMemoryRepository()
	notifRepo := NewMemoryRepository()
	svc := NewService(notifRepo, userRepo)

	author, err := userRepo.Create(ctx, &models.User{Email: "author@example.com"})
	require.NoError(t, err)

	followers := make([]*models.User, 0, followerCount)
	for i := 0; i < followerCount; i++ {
		f, err := userRepo.Create(ctx, &models.User{Email: fmt.Sprintf("f%d@example.com", i)})
		require.NoError(t, err)
		require.NoError(t, userRepo.PushFollower(ctx, author.ID, f.ID))
		followers = append(followers, f)
	}
	return svc, notifRepo, userRepo, author, followers
}

func TestFanoutCreatesOnePerFollower(t *testing.T) {
	svc, notifRepo, userRepo, author, followers := setup(t, 3)
	ctx := context.Background()
	item := &models.ContentItem{ID: "content_1", Kind: models.KindPoem, Name: "Dawn"}

	results, err := svc.NotifyFollowers(ctx, author, item)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, 3, notifRepo.Len())

	for i, res := range results {
		require.NoError(t, res.Err)
		require.Equal(t, followers[i].ID, res.FollowerID)

		f, err := userRepo.GetByID(ctx, res.FollowerID)
		require.NoError(t, err)
		require.Equal(t, []string{res.NotificationID}, f.Notifications)

		n, err := notifRepo.Get(ctx, res.NotificationID)
		require.NoError(t, err)
		require.False(t, n.IsRead)
		require.Equal(t, "content_1", n.ContentID)
		require.Equal(t, models.KindPoem, n.ContentKind)
		require.Equal(t, "Dawn", n.ContentName)
		require.Equal(t, "author@example.com", n.Email)
	}
}

func TestFanoutNoFollowers(t *testing.T) {
	svc, notifRepo, _, author, _ := setup(t, 0)
	results, err := svc.NotifyFollowers(context.Background(), author, &models.ContentItem{ID: "c1", Kind: models.KindProse, Name: "N"})
	require.NoError(t, err)
	require.Empty(t, results)
	require.Equal(t, 0, notifRepo.Len())
}

func TestFanoutIsolatesPerFollowerFailure(t *testing.T) {
	svc, notifRepo, userRepo, author, followers := setup(t, 3)
	ctx := context.Background()

	// first follower's create fails; the other two must still be served
	notifRepo.FailNext = true
	results, err := svc.NotifyFollowers(ctx, author, &models.ContentItem{ID: "c1", Kind: models.KindPoem, Name: "N"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.Error(t, results[0].Err)
	require.Empty(t, results[0].NotificationID)
	require.NoError(t, results[1].Err)
	require.NoError(t, results[2].Err)
	require.Equal(t, 2, notifRepo.Len())

	f0, err := userRepo.GetByID(ctx, followers[0].ID)
	require.NoError(t, err)
	require.Empty(t, f0.Notifications)
	f1, err := userRepo.GetByID(ctx, followers[1].ID)
	require.NoError(t, err)
	require.Len(t, f1.Notifications, 1)
}

func TestFanoutUsesCurrentFollowerList(t *testing.T) {
	svc, _, userRepo, author, _ := setup(t, 1)
	ctx := context.Background()

	// follower added after the caller loaded its author copy
	late, err := userRepo.Create(ctx, &models.User{Email: "late@example.com"})
	require.NoError(t, err)
	require.NoError(t, userRepo.PushFollower(ctx, author.ID, late.ID))

	staleAuthor := *author // follower list from before the push
	results, err := svc.NotifyFollowers(ctx, &staleAuthor, &models.ContentItem{ID: "c1", Kind: models.KindPoem, Name: "N"})
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestSingleFollowerEndToEnd(t *testing.T) {
	// A follows B; B publishes one poem; exactly one notification lands
	// in A's unread list; opening it marks it read without touching
	// anything else.
	svc, _, userRepo, author, followers := setup(t, 1)
	ctx := context.Background()
	item := &models.ContentItem{ID: "poem_1", Kind: models.KindPoem, Name: "Dawn"}

	results, err := svc.NotifyFollowers(ctx, author, item)
	require.NoError(t, err)
	require.Len(t, results, 1)

	follower, err := userRepo.GetByID(ctx, followers[0].ID)
	require.NoError(t, err)
	unread, err := svc.Unread(ctx, follower)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	require.Equal(t, "poem_1", unread[0].ContentID)

	opened, err := svc.MarkRead(ctx, unread[0].ID)
	require.NoError(t, err)
	require.True(t, opened.IsRead)
	require.Equal(t, models.KindPoem, opened.ContentKind)

	unread, err = svc.Unread(ctx, follower)
	require.NoError(t, err)
	require.Empty(t, unread)

	all, err := svc.List(ctx, follower)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestListNewestFirst(t *testing.T) {
	svc, notifRepo, userRepo, _, _ := setup(t, 0)
	ctx := context.Background()

	u, err := userRepo.Create(ctx, &models.User{Email: "inbox@example.com"})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		n, err := notifRepo.Create(ctx, &models.Notification{Email: "a@example.com", ContentID: fmt.Sprintf("c%d", i), ContentKind: models.KindProse, ContentName: "N"})
		require.NoError(t, err)
		require.NoError(t, userRepo.PushNotification(ctx, u.ID, n.ID))
	}

	u, err = userRepo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	ns, err := svc.List(ctx, u)
	require.NoError(t, err)
	require.Len(t, ns, 3)
	// newest first: the last created leads
	require.Equal(t, "c2", ns[0].ContentID)
	require.Equal(t, "c0", ns[2].ContentID)
}

func TestMarkReadMissing(t *testing.T) {
	svc, _, _, _, _ := setup(t, 0)
	_, err := svc.MarkRead(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
