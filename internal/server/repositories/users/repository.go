// Package users declares the repository contract for credential records.
package users

import (
	"context"

	"github.com/dkurguzov/betkeeper/internal/server/models"
)

type Repository interface {
	// Create persists a new user with its password hash and wallet fields in
	// one insert, keeping account and wallet creation atomic.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByUsername returns the credential record, or common.ErrNotFound.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}
