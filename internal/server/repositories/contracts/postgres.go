package contracts

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

func (r *PostgresRepository) Create(ctx context.Context, c *models.Contract) error {
	query :=
		`INSERT INTO contracts (address, kind, abi, deploy_tx_hash, owner_id, network)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 `

	if _, err := r.db.ExecContext(ctx, query,
		c.Address, c.Kind, c.ABI, c.DeployTxHash, c.OwnerID, c.Network); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByAddress(ctx context.Context, address string) (*models.Contract, error) {
	query :=
		`SELECT address, kind, abi, deploy_tx_hash, owner_id, network, created_at FROM contracts
		 WHERE address = $1
		 `

	c := &models.Contract{}
	err := r.db.QueryRowContext(ctx, query, address).
		Scan(&c.Address, &c.Kind, &c.ABI, &c.DeployTxHash, &c.OwnerID, &c.Network, &c.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Contract, error) {
	query :=
		`SELECT address, kind, abi, deploy_tx_hash, owner_id, network, created_at FROM contracts
		 WHERE owner_id = $1
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Contract
	for rows.Next() {
		c := &models.Contract{}
		if err := rows.Scan(&c.Address, &c.Kind, &c.ABI, &c.DeployTxHash, &c.OwnerID, &c.Network, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
