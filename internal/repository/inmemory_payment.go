package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jarvis4every1/subscription-backend/internal/models"
)

// InMemoryPaymentRepository хранит платежи в памяти.
// Используется в тестах и при локальной разработке без PostgreSQL.
type InMemoryPaymentRepository struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*models.Payment
	byOrder  map[string]uuid.UUID
	seq      map[uuid.UUID]uint64
	nextID   uint64
}

// NewInMemoryPaymentRepository создает пустой репозиторий платежей в памяти.
func NewInMemoryPaymentRepository() *InMemoryPaymentRepository {
	return &InMemoryPaymentRepository{
		payments: make(map[uuid.UUID]*models.Payment),
		byOrder:  make(map[string]uuid.UUID),
		seq:      make(map[uuid.UUID]uint64),
	}
}

func (r *InMemoryPaymentRepository) Create(_ context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byOrder[payment.RazorpayOrderID]; exists {
		return ErrDuplicate
	}

	now := time.Now().UTC()
	payment.CreatedAt = now
	payment.UpdatedAt = now

	cp := *payment
	r.payments[payment.ID] = &cp
	r.byOrder[payment.RazorpayOrderID] = payment.ID
	r.nextID++
	r.seq[payment.ID] = r.nextID
	return nil
}

func (r *InMemoryPaymentRepository) GetByOrderID(_ context.Context, orderID string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byOrder[orderID]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *r.payments[id]
	return &cp, nil
}

func (r *InMemoryPaymentRepository) MarkCompleted(_ context.Context, orderID, paymentID, signature string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byOrder[orderID]
	if !ok {
		return ErrNotFound
	}

	payment := r.payments[id]
	payment.Status = models.PaymentStatusCompleted
	payment.RazorpayPaymentID = paymentID
	payment.RazorpaySignature = signature
	payment.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryPaymentRepository) UpdateStatus(_ context.Context, orderID string, status models.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byOrder[orderID]
	if !ok {
		return ErrNotFound
	}

	payment := r.payments[id]
	payment.Status = status
	payment.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryPaymentRepository) GetByUserID(_ context.Context, userID uuid.UUID) ([]models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []models.Payment
	for _, payment := range r.payments {
		if payment.UserID != nil && *payment.UserID == userID {
			result = append(result, *payment)
		}
	}
	r.sortBySeqDesc(result)
	return result, nil
}

func (r *InMemoryPaymentRepository) GetAll(_ context.Context, skip, limit int) ([]models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []models.Payment
	for _, payment := range r.payments {
		all = append(all, *payment)
	}
	r.sortBySeqDesc(all)

	if skip >= len(all) {
		return []models.Payment{}, nil
	}
	end := skip + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[skip:end], nil
}

func (r *InMemoryPaymentRepository) DetachUser(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, payment := range r.payments {
		if payment.UserID != nil && *payment.UserID == userID {
			payment.UserID = nil
			payment.UpdatedAt = now
		}
	}
	return nil
}

// sortBySeqDesc сортирует срез от новых к старым по порядку вставки.
// Вызывается под блокировкой.
func (r *InMemoryPaymentRepository) sortBySeqDesc(payments []models.Payment) {
	for i := 1; i < len(payments); i++ {
		for j := i; j > 0 && r.seq[payments[j].ID] > r.seq[payments[j-1].ID]; j-- {
			payments[j], payments[j-1] = payments[j-1], payments[j]
		}
	}
}
