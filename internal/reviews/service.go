package reviews

import (
	"context"
	"sort"

	"github.com/versecraft/versecraft/internal/access"
	"github.com/versecraft/versecraft/internal/models"
	"github.com/versecraft/versecraft/internal/users"
	"github.com/versecraft/versecraft/pkg/metrics"
)

// ContentStore is the slice of the content repository the review engine
// needs to link reviews and write recomputed ratings.
type ContentStore interface {
	Get(ctx context.Context, id string) (*models.ContentItem, error)
	PushReview(ctx context.Context, contentID, reviewID string) error
	PullReview(ctx context.Context, contentID, reviewID string) error
	SetRating(ctx context.Context, contentID string, rating float64) error
}

// Service implements the review engine: the one-review-per-user rule,
// review CRUD and the full rating recompute that follows every change.
type Service struct {
	repo    Repository
	content ContentStore
}

func NewService(repo Repository, content ContentStore) *Service {
	return &Service{repo: repo, content: content}
}

// CalculateAverage returns 0 for an empty collection, otherwise the
// arithmetic mean of the ratings. Always computed fresh from the full
// member set; collections are small and a full pass cannot drift.
func CalculateAverage(revs []models.Review) float64 {
	if len(revs) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range revs {
		sum += r.Rating
	}
	return sum / float64(len(revs))
}

// CanReview reports whether the user has not yet reviewed the item.
// Checked when the review form renders and again at create time; the
// storage uniqueness index backs both checks up under concurrency.
func (s *Service) CanReview(ctx context.Context, userID string, item *models.ContentItem) (bool, error) {
	revs, err := s.repo.GetByIDs(ctx, item.Reviews)
	if err != nil {
		return false, err
	}
	for _, r := range revs {
		if r.Author.ID == userID {
			return false, nil
		}
	}
	return true, nil
}

// ListForContent resolves the item's reviews, newest first.
func (s *Service) ListForContent(ctx context.Context, item *models.ContentItem) ([]models.Review, error) {
	revs, err := s.repo.GetByIDs(ctx, item.Reviews)
	if err != nil {
		return nil, err
	}
	sort.Slice(revs, func(i, j int) bool {
		if revs[i].CreatedAt.Equal(revs[j].CreatedAt) {
			return revs[i].ID > revs[j].ID
		}
		return revs[i].CreatedAt.After(revs[j].CreatedAt)
	})
	return revs, nil
}

// Create stores a new review for the item: duplicate check, author
// snapshot, link into the item's review list, then rating recompute.
func (s *Service) Create(ctx context.Context, author *models.User, item *models.ContentItem, rating float64, body string) (*models.Review, error) {
	ok, err := s.CanReview(ctx, author.ID, item)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyReviewed
	}
	rev := &models.Review{
		Rating:      rating,
		Body:        body,
		Author:      users.Snapshot(author),
		ContentID:   item.ID,
		ContentKind: item.Kind,
	}
	rev, err = s.repo.Create(ctx, rev)
	if err != nil {
		return nil, err
	}
	if err := s.content.PushReview(ctx, item.ID, rev.ID); err != nil {
		return nil, err
	}
	if err := s.recompute(ctx, item.ID); err != nil {
		return nil, err
	}
	metrics.ReviewsCreated.Inc()
	return rev, nil
}

// Update edits a review (owner or admin only) and recomputes the owning
// item's rating.
func (s *Service) Update(ctx context.Context, actor *models.User, reviewID string, rating float64, body string) (*models.Review, error) {
	rev, err := s.repo.Get(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if err := access.Check(actor, rev.Author.ID); err != nil {
		return nil, err
	}
	rev.Rating = rating
	rev.Body = body
	if err := s.repo.Update(ctx, rev); err != nil {
		return nil, err
	}
	if err := s.recompute(ctx, rev.ContentID); err != nil {
		return nil, err
	}
	return rev, nil
}

// Delete removes a review (owner or admin only), unlinks it from its
// item and recomputes the rating.
func (s *Service) Delete(ctx context.Context, actor *models.User, reviewID string) error {
	rev, err := s.repo.Get(ctx, reviewID)
	if err != nil {
		return err
	}
	if err := access.Check(actor, rev.Author.ID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, reviewID); err != nil {
		return err
	}
	if err := s.content.PullReview(ctx, rev.ContentID, reviewID); err != nil {
		return err
	}
	return s.recompute(ctx, rev.ContentID)
}

// DeleteByContent removes every review an item owns; used by the
// content cascade, where no recompute is needed because the item itself
// is going away.
func (s *Service) DeleteByContent(ctx context.Context, contentID string) error {
	return s.repo.DeleteByContent(ctx, contentID)
}

func (s *Service) recompute(ctx context.Context, contentID string) error {
	item, err := s.content.Get(ctx, contentID)
	if err != nil {
		return err
	}
	revs, err := s.repo.GetByIDs(ctx, item.Reviews)
	if err != nil {
		return err
	}
	return s.content.SetRating(ctx, contentID, CalculateAverage(revs))
}
