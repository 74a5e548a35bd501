package notifications

import (
	"context"
	"sort"

	"github.com/versecraft/versecraft/internal/models"
	"github.com/versecraft/versecraft/pkg/logger"
	"github.com/versecraft/versecraft/pkg/metrics"
)

// UserStore is the slice of the identity store the fan-out needs: the
// author's current follower list and the inbox append.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	PushNotification(ctx context.Context, userID, notificationID string) error
}

// FanoutResult records the outcome for one follower. A failed entry
// never aborts the remaining followers or the published item.
type FanoutResult struct {
	FollowerID     string `json:"followerId"`
	NotificationID string `json:"notificationId,omitempty"`
	Err            error  `json:"-"`
}

// Service implements notification fan-out and the inbox read side.
type Service struct {
	repo  Repository
	users UserStore
}

func NewService(repo Repository, users UserStore) *Service {
	return &Service{repo: repo, users: users}
}

// NotifyFollowers creates one notification per follower of the author
// and links it into each follower's inbox, strictly sequentially.
// Called synchronously after the content item is durably created;
// per-follower failures are logged and collected, content publication
// stays valid regardless.
func (s *Service) NotifyFollowers(ctx context.Context, author *models.User, item *models.ContentItem) ([]FanoutResult, error) {
	// reload for the current follower list; the caller may hold a
	// stale copy from session resolution
	current, err := s.users.GetByID(ctx, author.ID)
	if err != nil {
		return nil, err
	}
	results := make([]FanoutResult, 0, len(current.Followers))
	for _, followerID := range current.Followers {
		res := FanoutResult{FollowerID: followerID}
		n, err := s.repo.Create(ctx, &models.Notification{
			Email:       current.Email,
			ContentID:   item.ID,
			ContentKind: item.Kind,
			ContentName: item.Name,
		})
		if err == nil {
			res.NotificationID = n.ID
			err = s.users.PushNotification(ctx, followerID, n.ID)
		}
		if err != nil {
			res.Err = err
			metrics.NotificationsFanout.WithLabelValues("error").Inc()
			logger.Warnf("notify follower %s about %s %s: %v", followerID, item.Kind, item.ID, err)
		} else {
			metrics.NotificationsFanout.WithLabelValues("ok").Inc()
		}
		results = append(results, res)
	}
	return results, nil
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, user *models.User) ([]models.Notification, error) {
	ns, err := s.repo.GetByIDs(ctx, user.Notifications)
	if err != nil {
		return nil, err
	}
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].CreatedAt.Equal(ns[j].CreatedAt) {
			return ns[i].ID > ns[j].ID
		}
		return ns[i].CreatedAt.After(ns[j].CreatedAt)
	})
	return ns, nil
}

// Unread returns the unread subset of the user's inbox, newest first;
// rendered as the badge on every authenticated page.
func (s *Service) Unread(ctx context.Context, user *models.User) ([]models.Notification, error) {
	all, err := s.List(ctx, user)
	if err != nil {
		return nil, err
	}
	unread := []models.Notification{}
	for _, n := range all {
		if !n.IsRead {
			unread = append(unread, n)
		}
	}
	return unread, nil
}

// MarkRead flips the read flag and returns the notification so the
// caller can route to the referenced content item by kind.
func (s *Service) MarkRead(ctx context.Context, id string) (*models.Notification, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !n.IsRead {
		if err := s.repo.MarkRead(ctx, id); err != nil {
			return nil, err
		}
		n.IsRead = true
	}
	return n, nil
}
