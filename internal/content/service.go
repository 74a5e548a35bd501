package content

import (
	"context"

	"github.com/versecraft/versecraft/internal/models"
	"github.com/versecraft/versecraft/internal/users"
)

// DefaultPerPage matches the index page size of the site.
const DefaultPerPage = 8

// ReviewStore is the slice of the review engine the content service
// needs for cascade deletion.
type ReviewStore interface {
	DeleteByContent(ctx context.Context, contentID string) error
}

// Service encapsulates content item business logic.
type Service struct {
	repo    Repository
	reviews ReviewStore
}

func NewService(repo Repository, reviews ReviewStore) *Service {
	return &Service{repo: repo, reviews: reviews}
}

// CreateInput is the submission form for a new poem or prose piece.
type CreateInput struct {
	Kind  models.Kind
	Name  string
	Body  string
	Image string
}

// Create stores a new content item with the author snapshot frozen from
// the current user record.
func (s *Service) Create(ctx context.Context, author *models.User, in CreateInput) (*models.ContentItem, error) {
	item := &models.ContentItem{
		Kind:   in.Kind,
		Name:   in.Name,
		Body:   in.Body,
		Image:  in.Image,
		Author: users.Snapshot(author),
	}
	return s.repo.Create(ctx, item)
}

func (s *Service) Get(ctx context.Context, id string) (*models.ContentItem, error) {
	return s.repo.Get(ctx, id)
}

// Page is one page of an index listing.
type Page struct {
	Items   []models.ContentItem `json:"items"`
	Total   int64                `json:"total"`
	Current int                  `json:"current"`
	Pages   int                  `json:"pages"`
}

// List returns one index page, newest first, optionally filtered by a
// name search.
func (s *Service) List(ctx context.Context, kind models.Kind, search string, page, perPage int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	items, total, err := s.repo.List(ctx, kind, search, page, perPage)
	if err != nil {
		return nil, err
	}
	pages := int((total + int64(perPage) - 1) / int64(perPage))
	return &Page{Items: items, Total: total, Current: page, Pages: pages}, nil
}

func (s *Service) ListByAuthor(ctx context.Context, kind models.Kind, authorID string) ([]models.ContentItem, error) {
	return s.repo.ListByAuthor(ctx, kind, authorID)
}

// UpdateInput holds the editable fields. Empty image keeps the current
// one.
type UpdateInput struct {
	Name  string
	Body  string
	Image string
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*models.ContentItem, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Name = in.Name
	item.Body = in.Body
	if in.Image != "" {
		item.Image = in.Image
	}
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes the item together with every review it owns. Reviews
// go first so no review is left referencing a missing item.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	if err := s.reviews.DeleteByContent(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
