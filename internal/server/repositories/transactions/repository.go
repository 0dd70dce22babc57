package transactions

import (
	"context"

	"github.com/dkurguzov/betkeeper/internal/server/models"
)

// Repository records submitted transactions and their lifecycle.
type Repository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	// MarkStatus moves a pending transaction to a terminal status.
	// A transaction that already reached a terminal status is left untouched.
	MarkStatus(ctx context.Context, hash string, status models.TxStatus, blockNumber uint64, gasUsed uint64) error
	GetByHash(ctx context.Context, hash string) (*models.Transaction, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Transaction, error)
}
