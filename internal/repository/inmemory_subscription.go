package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jarvis4every1/subscription-backend/internal/models"
)

// InMemorySubscriptionRepository хранит подписки в памяти.
// Используется в тестах и при локальной разработке без PostgreSQL.
type InMemorySubscriptionRepository struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*models.Subscription
	// seq отражает порядок вставки. created_at в тестах часто совпадает
	// до наносекунды, поэтому "самую свежую" строку выбираем по seq.
	seq    map[uuid.UUID]uint64
	nextID uint64
}

// NewInMemorySubscriptionRepository создает пустой репозиторий подписок в памяти.
func NewInMemorySubscriptionRepository() *InMemorySubscriptionRepository {
	return &InMemorySubscriptionRepository{
		subs: make(map[uuid.UUID]*models.Subscription),
		seq:  make(map[uuid.UUID]uint64),
	}
}

func (r *InMemorySubscriptionRepository) Create(_ context.Context, sub *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	cp := *sub
	r.subs[sub.ID] = &cp
	r.nextID++
	r.seq[sub.ID] = r.nextID
	return nil
}

func (r *InMemorySubscriptionRepository) GetCurrent(_ context.Context, userID uuid.UUID) (*models.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *models.Subscription
	var foundSeq uint64
	for id, sub := range r.subs {
		if sub.UserID != userID {
			continue
		}
		if sub.Status != models.SubscriptionStatusActive && sub.Status != models.SubscriptionStatusExpired {
			continue
		}
		if found == nil || r.seq[id] > foundSeq {
			found = sub
			foundSeq = r.seq[id]
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}

	cp := *found
	return &cp, nil
}

func (r *InMemorySubscriptionRepository) GetActive(_ context.Context, userID uuid.UUID) (*models.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *models.Subscription
	var foundSeq uint64
	for id, sub := range r.subs {
		if sub.UserID != userID || sub.Status != models.SubscriptionStatusActive {
			continue
		}
		if found == nil || r.seq[id] > foundSeq {
			found = sub
			foundSeq = r.seq[id]
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}

	cp := *found
	return &cp, nil
}

func (r *InMemorySubscriptionRepository) UpdateEndDate(_ context.Context, id, _ uuid.UUID, endDate time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[id]
	if !ok {
		return ErrNotFound
	}
	sub.EndDate = endDate
	sub.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemorySubscriptionRepository) MarkExpired(_ context.Context, id, _ uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[id]
	if !ok {
		return ErrNotFound
	}
	sub.Status = models.SubscriptionStatusExpired
	sub.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemorySubscriptionRepository) CancelCurrent(_ context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	at = at.UTC()
	for _, sub := range r.subs {
		if sub.UserID != userID {
			continue
		}
		if sub.Status != models.SubscriptionStatusActive && sub.Status != models.SubscriptionStatusExpired {
			continue
		}
		sub.Status = models.SubscriptionStatusCancelled
		cancelledAt := at
		sub.CancelledAt = &cancelledAt
		sub.UpdatedAt = at
		count++
	}
	return count, nil
}

func (r *InMemorySubscriptionRepository) CancelActive(_ context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	at = at.UTC()
	for _, sub := range r.subs {
		if sub.UserID != userID || sub.Status != models.SubscriptionStatusActive {
			continue
		}
		sub.Status = models.SubscriptionStatusCancelled
		cancelledAt := at
		sub.CancelledAt = &cancelledAt
		sub.UpdatedAt = at
		count++
	}
	return count, nil
}

func (r *InMemorySubscriptionRepository) GetByUserID(_ context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []models.Subscription
	for _, sub := range r.subs {
		if sub.UserID == userID {
			result = append(result, *sub)
		}
	}
	r.sortBySeqDesc(result)
	return result, nil
}

func (r *InMemorySubscriptionRepository) GetAll(_ context.Context, skip, limit int) ([]models.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []models.Subscription
	for _, sub := range r.subs {
		all = append(all, *sub)
	}
	r.sortBySeqDesc(all)

	if skip >= len(all) {
		return []models.Subscription{}, nil
	}
	end := skip + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[skip:end], nil
}

func (r *InMemorySubscriptionRepository) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, sub := range r.subs {
		if sub.UserID == userID {
			delete(r.subs, id)
			delete(r.seq, id)
		}
	}
	return nil
}

// sortBySeqDesc сортирует срез от новых к старым по порядку вставки.
// Вызывается под блокировкой.
func (r *InMemorySubscriptionRepository) sortBySeqDesc(subs []models.Subscription) {
	for i := 1; i < len(subs); i++ {
		for j := i; j > 0 && r.seq[subs[j].ID] > r.seq[subs[j-1].ID]; j-- {
			subs[j], subs[j-1] = subs[j-1], subs[j]
		}
	}
}
