package users

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
	store map[string]*models.User
	seq   int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]*models.User)}
}

func (m *MemoryRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.store {
		if existing.Email == u.Email {
			return nil, ErrEmailTaken
		}
	}
	if u.ID == "" {
		m.seq++
		u.ID = fmt.Sprintf("user_%d", m.seq)
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Followers == nil {
		u.Followers = []string{}
	}
	if u.Notifications == nil {
		u.Notifications = []string{}
	}
	cp := *u
	m.store[u.ID] = &cp
	return u, nil
}

func (m *MemoryRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.store[id]; ok {
		cp := *u
		cp.Followers = append([]string(nil), u.Followers...)
		cp.Notifications = append([]string(nil), u.Notifications...)
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.store {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepository) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.store {
		if u.ResetPasswordToken == token && u.ResetPasswordExpires.After(time.Now().UTC()) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepository) Update(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.store[u.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Username = u.Username
	cur.Email = u.Email
	cur.PasswordHash = u.PasswordHash
	cur.Avatar = u.Avatar
	cur.FirstName = u.FirstName
	cur.LastName = u.LastName
	cur.About = u.About
	cur.ResetPasswordToken = u.ResetPasswordToken
	cur.ResetPasswordExpires = u.ResetPasswordExpires
	cur.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryRepository) PushFollower(ctx context.Context, userID, followerID string) error {
	return m.push(userID, func(u *models.User) { u.Followers = append(u.Followers, followerID) })
}

func (m *MemoryRepository) PushNotification(ctx context.Context, userID, notificationID string) error {
	return m.push(userID, func(u *models.User) { u.Notifications = append(u.Notifications, notificationID) })
}

func (m *MemoryRepository) push(userID string, apply func(*models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[userID]
	if !ok {
		return ErrNotFound
	}
	apply(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}
