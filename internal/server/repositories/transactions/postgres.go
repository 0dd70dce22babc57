package transactions

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

func (r *PostgresRepository) Create(ctx context.Context, tx *models.Transaction) error {
	query :=
		`INSERT INTO transactions
		 (hash, user_id, from_address, to_address, contract_address, value, gas_used, gas_price,
		  status, kind, method, args, block_number, network)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 `

	if _, err := r.db.ExecContext(ctx, query,
		tx.Hash, tx.UserID, tx.From, tx.To, tx.ContractAddress, tx.Value, tx.GasUsed, tx.GasPrice,
		tx.Status, tx.Kind, tx.Method, tx.Args, tx.BlockNumber, tx.Network); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// MarkStatus only touches rows still in the pending state, so a transaction
// settles exactly once even if two observers race on the same receipt.
func (r *PostgresRepository) MarkStatus(ctx context.Context, hash string, status models.TxStatus, blockNumber uint64, gasUsed uint64) error {
	query :=
		`UPDATE transactions
		 SET status = $1, block_number = $2, gas_used = $3
		 WHERE hash = $4 AND status = 'pending'
		 `

	res, err := r.db.ExecContext(ctx, query, status, int64(blockNumber), int64(gasUsed), hash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) GetByHash(ctx context.Context, hash string) (*models.Transaction, error) {
	query := selectColumns + ` WHERE hash = $1
		 `

	tx := &models.Transaction{}
	err := r.db.QueryRowContext(ctx, query, hash).Scan(scanTargets(tx)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return tx, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Transaction, error) {
	query := selectColumns + ` WHERE user_id = $1
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		tx := &models.Transaction{}
		if err := rows.Scan(scanTargets(tx)...); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

const selectColumns = `SELECT hash, user_id, from_address, to_address, contract_address, value, gas_used, gas_price,
		  status, kind, method, args, block_number, network, created_at FROM transactions`

func scanTargets(tx *models.Transaction) []any {
	return []any{
		&tx.Hash, &tx.UserID, &tx.From, &tx.To, &tx.ContractAddress, &tx.Value, &tx.GasUsed, &tx.GasPrice,
		&tx.Status, &tx.Kind, &tx.Method, &tx.Args, &tx.BlockNumber, &tx.Network, &tx.CreatedAt,
	}
}
