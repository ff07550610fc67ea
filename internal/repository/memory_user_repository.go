package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/user-service/internal/domain"
)

// MemoryUserRepository is an in-memory UserRepository. Email uniqueness is
// enforced under the write lock, mirroring the unique index of the SQL store.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	users   map[string]*domain.User
	byEmail map[string]string
	seq     map[string]int64
	nextSeq int64
	now     func() time.Time
}

var _ UserRepository = (*MemoryUserRepository)(nil)

// NewMemoryUserRepository returns an empty store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:   make(map[string]*domain.User),
		byEmail: make(map[string]string),
		seq:     make(map[string]int64),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the timestamp source.
func (r *MemoryUserRepository) WithClock(now func() time.Time) *MemoryUserRepository {
	r.now = now
	return r
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[user.Email]; taken {
		return ErrEmailTaken
	}

	now := r.now()
	user.ID = uuid.NewString()
	user.Version = 0
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	r.users[stored.ID] = &stored
	r.byEmail[stored.Email] = stored.ID
	r.nextSeq++
	r.seq[stored.ID] = r.nextSeq
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *user
	return &copy, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *r.users[id]
	return &copy, nil
}

func (r *MemoryUserRepository) Update(_ context.Context, id string, patch domain.UserPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	if patch.Email != nil && *patch.Email != user.Email {
		if _, taken := r.byEmail[*patch.Email]; taken {
			return ErrEmailTaken
		}
		delete(r.byEmail, user.Email)
		r.byEmail[*patch.Email] = id
	}
	patch.Apply(user, r.now())
	return nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id string) error {
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

func (r *MemoryUserRepository) List(_ context.Context, filter UserFilter) ([]domain.User, error) {
	r.mu.RLock()
	matched := make([]domain.User, 0, len(r.users))
	order := make(map[string]int64, len(r.users))
	for id, user := range r.users {
		if matchesFilter(user, filter) {
			matched = append(matched, *user)
			order[id] = r.seq[id]
		}
	}
	r.mu.RUnlock()

	desc := filter.Sort == domain.SortDescending
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if desc {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if desc {
			return order[a.ID] > order[b.ID]
		}
		return order[a.ID] < order[b.ID]
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []domain.User{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func matchesFilter(user *domain.User, filter UserFilter) bool {
	if filter.ExactField != nil {
		actual, known := "", true
		switch *filter.ExactField {
		case domain.FilterFullName:
			actual = user.FullName
		case domain.FilterEmail:
			actual = user.Email
		case domain.FilterID:
			actual = user.ID
		default:
			known = false
		}
		if known && actual != filter.ExactValue {
			return false
		}
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		if !strings.Contains(strings.ToLower(user.FullName), search) &&
			!strings.Contains(strings.ToLower(user.Email), search) {
			return false
		}
	}
	return true
}
