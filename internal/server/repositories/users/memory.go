package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/mailauth/internal/common"
	"github.com/dmitrijs2005/mailauth/internal/server/models"
	"github.com/google/uuid"
)

// InMemoryRepository keeps users in process memory. All methods are safe for
// concurrent use and return copies, never the stored values.
type InMemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string
	now     func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}

	now := r.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := clone(user)
	r.byID[stored.ID] = stored
	r.byEmail[stored.Email] = stored.ID

	return user, nil
}

func (r *InMemoryRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return withoutPassword(r.byID[id]), nil
}

func (r *InMemoryRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return withoutPassword(u), nil
}

func (r *InMemoryRepository) FindByIDWithPassword(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(u), nil
}

func (r *InMemoryRepository) Update(ctx context.Context, id string, upd models.UserUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	if upd.Empty() {
		return nil
	}

	if upd.Email != nil && *upd.Email != u.Email {
		if _, taken := r.byEmail[*upd.Email]; taken {
			return common.ErrorAlreadyExists
		}
		delete(r.byEmail, u.Email)
		u.Email = *upd.Email
		r.byEmail[u.Email] = u.ID
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	switch {
	case upd.ClearRefreshToken:
		u.RefreshToken = nil
	case upd.RefreshToken != nil:
		token := *upd.RefreshToken
		u.RefreshToken = &token
	}
	u.UpdatedAt = r.now()

	return nil
}

func (r *InMemoryRepository) SwapRefreshToken(ctx context.Context, id, expected, next string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != expected {
		return false, nil
	}

	u.RefreshToken = &next
	u.UpdatedAt = r.now()
	return true, nil
}

func clone(u *models.User) *models.User {
	c := *u
	if u.RefreshToken != nil {
		token := *u.RefreshToken
		c.RefreshToken = &token
	}
	return &c
}

func withoutPassword(u *models.User) *models.User {
	c := clone(u)
	c.PasswordHash = ""
	return c
}
