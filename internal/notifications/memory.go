package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/versecraft/versecraft/internal/models"
)

// MemoryRepository is an in-memory Repository used by unit tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]*models.Notification
	seq   int

	// FailNext makes the next Create call fail; used to exercise
	// per-follower fan-out isolation.
	FailNext bool
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]*models.Notification)}
}

func (m *MemoryRepository) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext {
		m.FailNext = false
		return nil, fmt.Errorf("injected create failure")
	}
	if n.ID == "" {
		m.seq++
		n.ID = fmt.Sprintf("notification_%d", m.seq)
	}
	n.CreatedAt = time.Now().UTC()
	cp := *n
	m.store[n.ID] = &cp
	return n, nil
}

func (m *MemoryRepository) Get(ctx context.Context, id string) (*models.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *MemoryRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ns := []models.Notification{}
	for _, id := range ids {
		if n, ok := m.store[id]; ok {
			ns = append(ns, *n)
		}
	}
	return ns, nil
}

func (m *MemoryRepository) MarkRead(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	n.IsRead = true
	return nil
}

// Len reports how many notifications exist; test helper.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}
