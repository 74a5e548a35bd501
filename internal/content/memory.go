package content

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/versecraft/versecraft/internal/models"
)

// MemoryRepository is an in-memory Repository used by unit tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]*models.ContentItem
	seq   int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]*models.ContentItem)}
}

func (m *MemoryRepository) Create(ctx context.Context, item *models.ContentItem) (*models.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.ID == "" {
		m.seq++
		item.ID = fmt.Sprintf("content_%d", m.seq)
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.Reviews == nil {
		item.Reviews = []string{}
	}
	cp := *item
	m.store[item.ID] = &cp
	return item, nil
}

func (m *MemoryRepository) Get(ctx context.Context, id string) (*models.ContentItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *item
	cp.Reviews = append([]string(nil), item.Reviews...)
	return &cp, nil
}

func (m *MemoryRepository) List(ctx context.Context, kind models.Kind, search string, page, perPage int) ([]models.ContentItem, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := []models.ContentItem{}
	for _, item := range m.store {
		if item.Kind != kind {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(item.Name), strings.ToLower(search)) {
			continue
		}
		matched = append(matched, *item)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := int64(len(matched))
	start := (page - 1) * perPage
	if start >= len(matched) {
		return []models.ContentItem{}, total, nil
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (m *MemoryRepository) ListByAuthor(ctx context.Context, kind models.Kind, authorID string) ([]models.ContentItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := []models.ContentItem{}
	for _, item := range m.store {
		if item.Kind == kind && item.Author.ID == authorID {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (m *MemoryRepository) Update(ctx context.Context, item *models.ContentItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.store[item.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Name = item.Name
	cur.Body = item.Body
	cur.Image = item.Image
	cur.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *MemoryRepository) PushReview(ctx context.Context, contentID, reviewID string) error {
	return m.apply(contentID, func(item *models.ContentItem) {
		item.Reviews = append(item.Reviews, reviewID)
	})
}

func (m *MemoryRepository) PullReview(ctx context.Context, contentID, reviewID string) error {
	return m.apply(contentID, func(item *models.ContentItem) {
		kept := item.Reviews[:0]
		for _, id := range item.Reviews {
			if id != reviewID {
				kept = append(kept, id)
			}
		}
		item.Reviews = kept
	})
}

func (m *MemoryRepository) SetRating(ctx context.Context, contentID string, rating float64) error {
	return m.apply(contentID, func(item *models.ContentItem) { item.Rating = rating })
}

func (m *MemoryRepository) apply(id string, fn func(*models.ContentItem)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	fn(item)
	item.UpdatedAt = time.Now().UTC()
	return nil
}
