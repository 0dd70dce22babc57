package bets

import (
	"context"

	"github.com/dkurguzov/betkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, b *models.Bet) (*models.Bet, error)
	// UpdateStatus records a lifecycle transition together with the fields
	// the transition sets (taker on accept, winner on resolve).
	UpdateStatus(ctx context.Context, contractAddress string, status models.BetStatus, takerID, winner string) error
	GetByContract(ctx context.Context, contractAddress string) (*models.Bet, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Bet, error)
}
