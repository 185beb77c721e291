package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jarvis4every1/subscription-backend/internal/models"
)

// InMemoryUserRepository хранит пользователей в памяти.
// Используется в тестах и при локальной разработке без PostgreSQL.
type InMemoryUserRepository struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]*models.User
	byEmail map[string]uuid.UUID
	seq     map[uuid.UUID]uint64
	nextID  uint64
}

// NewInMemoryUserRepository создает пустой репозиторий пользователей в памяти.
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users:   make(map[uuid.UUID]*models.User),
		byEmail: make(map[string]uuid.UUID),
		seq:     make(map[uuid.UUID]uint64),
	}
}

// Add добавляет пользователя в репозиторий. Вспомогательный метод для тестов.
func (r *InMemoryUserRepository) Add(user *models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *user
	r.users[user.ID] = &cp
	r.byEmail[user.Email] = user.ID
	r.nextID++
	r.seq[user.ID] = r.nextID
}

func (r *InMemoryUserRepository) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *user
	return &cp, nil
}

func (r *InMemoryUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *r.users[id]
	return &cp, nil
}

func (r *InMemoryUserRepository) RecordLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}

	loginAt := at.UTC()
	user.LastLogin = &loginAt
	user.UpdatedAt = loginAt
	return nil
}

func (r *InMemoryUserRepository) GetAll(_ context.Context, skip, limit int) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []models.User
	for _, user := range r.users {
		all = append(all, *user)
	}
	// От новых к старым по порядку добавления.
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && r.seq[all[j].ID] > r.seq[all[j-1].ID]; j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}

	if skip >= len(all) {
		return []models.User{}, nil
	}
	end := skip + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[skip:end], nil
}

func (r *InMemoryUserRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}

	delete(r.byEmail, user.Email)
	delete(r.users, id)
	delete(r.seq, id)
	return nil
}
