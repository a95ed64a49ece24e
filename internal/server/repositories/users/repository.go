// Package users declares the user store contract and its PostgreSQL and
// in-memory implementations.
package users

import (
	"context"

	"github.com/dmitrijs2005/mailauth/internal/server/models"
)

// Repository is the user store. Lookups return common.ErrorNotFound for a
// missing user. Users returned by FindByEmail and FindByID never carry the
// password hash; only FindByIDWithPassword does.
type Repository interface {
	// Create stores a new user and fills in ID and timestamps. A duplicate
	// email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByIDWithPassword(ctx context.Context, id string) (*models.User, error)

	// Update applies the non-nil fields of upd. Updating an unknown user
	// yields common.ErrorNotFound.
	Update(ctx context.Context, id string, upd models.UserUpdate) error

	// SwapRefreshToken replaces the refresh-token slot with next only if it
	// currently holds expected. It reports whether the swap happened.
	SwapRefreshToken(ctx context.Context, id, expected, next string) (bool, error)
}
