package bets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dkurguzov/betkeeper/internal/common"
	"github.com/dkurguzov/betkeeper/internal/dbx"
	"github.com/dkurguzov/betkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, b *models.Bet) (*models.Bet, error) {
	query :=
		`INSERT INTO bets (contract_address, description, maker_id, amount, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		b.ContractAddress, b.Description, b.MakerID, b.Amount, b.Status).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, contractAddress string, status models.BetStatus, takerID, winner string) error {
	query :=
		`UPDATE bets
		 SET status = $1,
		     taker_id = COALESCE(NULLIF($2, ''), taker_id),
		     winner = COALESCE(NULLIF($3, ''), winner),
		     updated_at = now()
		 WHERE contract_address = $4
		 `

	res, err := r.db.ExecContext(ctx, query, status, takerID, winner, contractAddress)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) GetByContract(ctx context.Context, contractAddress string) (*models.Bet, error) {
	query := selectColumns + ` WHERE contract_address = $1
		 `

	b := &models.Bet{}
	err := r.db.QueryRowContext(ctx, query, contractAddress).Scan(scanTargets(b)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return b, nil
}

// ListByUser returns bets the user participates in on either side.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Bet, error) {
	query := selectColumns + ` WHERE maker_id = $1 OR taker_id = $1
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Bet
	for rows.Next() {
		b := &models.Bet{}
		if err := rows.Scan(scanTargets(b)...); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

const selectColumns = `SELECT id, contract_address, description, maker_id, taker_id, amount, winner, status, created_at, updated_at FROM bets`

func scanTargets(b *models.Bet) []any {
	return []any{
		&b.ID, &b.ContractAddress, &b.Description, &b.MakerID, &b.TakerID,
		&b.Amount, &b.Winner, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	}
}
