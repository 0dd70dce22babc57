// Package contracts declares the repository contract for deployed-contract
// records.
package contracts

import (
	"context"

	"github.com/dkurguzov/betkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, contract *models.Contract) error

	// GetByAddress returns the contract record, or common.ErrNotFound.
	GetByAddress(ctx context.Context, address string) (*models.Contract, error)

	ListByOwner(ctx context.Context, ownerID string) ([]*models.Contract, error)
}
