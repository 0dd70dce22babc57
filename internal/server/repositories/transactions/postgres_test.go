package transactions

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dkurguzov/betkeeper/internal/common"
	"github.com/dkurguzov/betkeeper/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Pending(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+transactions`).
		WithArgs("0xdead", "u-1", "0xfrom", "0xto", "0xcontract", "1000", int64(0), "2000000000",
			models.TxStatusPending, models.TxKindCall, "acceptBet", `[]`, int64(0), "arbitrum-sepolia").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.Transaction{
		Hash: "0xdead", UserID: "u-1", From: "0xfrom", To: "0xto", ContractAddress: "0xcontract",
		Value: "1000", GasPrice: "2000000000",
		Status: models.TxStatusPending, Kind: models.TxKindCall,
		Method: "acceptBet", Args: `[]`, Network: "arbitrum-sepolia",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestMarkStatus_PendingToSuccess(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+transactions\s+SET\s+status\s*=\s*\$1,\s*block_number\s*=\s*\$2,\s*gas_used\s*=\s*\$3\s+WHERE\s+hash\s*=\s*\$4\s+AND\s+status\s*=\s*'pending'\s*$`

	mock.ExpectExec(q).
		WithArgs(models.TxStatusSuccess, int64(12345), int64(21000), "0xdead").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkStatus(context.Background(), "0xdead", models.TxStatusSuccess, 12345, 21000); err != nil {
		t.Fatalf("MarkStatus error: %v", err)
	}
}

func TestMarkStatus_AlreadyTerminal(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+transactions`).
		WithArgs(models.TxStatusFailed, int64(12345), int64(21000), "0xdead").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkStatus(context.Background(), "0xdead", models.TxStatusFailed, 12345, 21000)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound for settled transaction, got %v", err)
	}
}

func txRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"hash", "user_id", "from_address", "to_address", "contract_address", "value", "gas_used", "gas_price",
		"status", "kind", "method", "args", "block_number", "network", "created_at",
	})
}

func TestGetByHash_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := txRows().AddRow("0xdead", "u-1", "0xfrom", "", "0xc0ffee", "0", int64(900000), "2000000000",
		"success", "deploy", "", `[]`, int64(42), "arbitrum-sepolia", time.Now())
	mock.ExpectQuery(`SELECT\s+hash,\s*user_id`).
		WithArgs("0xdead").
		WillReturnRows(rows)

	got, err := repo.GetByHash(context.Background(), "0xdead")
	if err != nil {
		t.Fatalf("GetByHash error: %v", err)
	}
	if got.Kind != models.TxKindDeploy || got.BlockNumber != 42 {
		t.Fatalf("unexpected transaction: %+v", got)
	}
}

func TestGetByHash_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+hash,\s*user_id`).
		WithArgs("0xmissing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByHash(context.Background(), "0xmissing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestListByUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := txRows().
		AddRow("0x1", "u-1", "0xfrom", "0xto", "", "10", int64(21000), "1", "success", "call", "set", `[]`, int64(1), "arbitrum-sepolia", time.Now()).
		AddRow("0x2", "u-1", "0xfrom", "", "0xnew", "0", int64(0), "1", "pending", "deploy", "", `[]`, int64(0), "arbitrum-sepolia", time.Now())
	mock.ExpectQuery(`SELECT\s+hash,\s*user_id`).
		WithArgs("u-1").
		WillReturnRows(rows)

	got, err := repo.ListByUser(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("ListByUser error: %v", err)
	}
	if len(got) != 2 || got[1].Status != models.TxStatusPending {
		t.Fatalf("unexpected transactions: %+v", got)
	}
}
