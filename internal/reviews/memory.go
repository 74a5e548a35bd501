package reviews

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/versecraft/versecraft/internal/models"
)

// MemoryRepository is an in-memory Repository used by unit tests. It
// enforces the same (author, content item) uniqueness as the Mongo
// index.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]*models.Review
	seq   int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]*models.Review)}
}

func (m *MemoryRepository) Create(ctx context.Context, rev *models.Review) (*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.store {
		if existing.Author.ID == rev.Author.ID && existing.ContentID == rev.ContentID {
			return nil, ErrAlreadyReviewed
		}
	}
	if rev.ID == "" {
		m.seq++
		rev.ID = fmt.Sprintf("review_%d", m.seq)
	}
	now := time.Now().UTC()
	rev.CreatedAt = now
	rev.UpdatedAt = now
	cp := *rev
	m.store[rev.ID] = &cp
	return rev, nil
}

func (m *MemoryRepository) Get(ctx context.Context, id string) (*models.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rev, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rev
	return &cp, nil
}

func (m *MemoryRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	revs := []models.Review{}
	for _, id := range ids {
		if rev, ok := m.store[id]; ok {
			revs = append(revs, *rev)
		}
	}
	return revs, nil
}

func (m *MemoryRepository) Update(ctx context.Context, rev *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.store[rev.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Rating = rev.Rating
	cur.Body = rev.Body
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

func (m *MemoryRepository) DeleteByContent(ctx context.Context, contentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rev := range m.store {
		if rev.ContentID == contentID {
			delete(m.store, id)
		}
	}
	return nil
}

// Len reports how many reviews the repository holds; test helper.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}
