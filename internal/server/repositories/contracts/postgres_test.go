package contracts

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

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+contracts`).
		WithArgs("0xc0ffee", "ERC20Token", `[]`, "0xhash", "u-1", "arbitrum-sepolia").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.Contract{
		Address:      "0xc0ffee",
		Kind:         "ERC20Token",
		ABI:          `[]`,
		DeployTxHash: "0xhash",
		OwnerID:      "u-1",
		Network:      "arbitrum-sepolia",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestGetByAddress_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"address", "kind", "abi", "deploy_tx_hash", "owner_id", "network", "created_at"}).
		AddRow("0xc0ffee", "Betting", `[]`, "0xhash", "u-1", "arbitrum-sepolia", time.Now())
	mock.ExpectQuery(`SELECT\s+address,\s*kind,\s*abi`).
		WithArgs("0xc0ffee").
		WillReturnRows(rows)

	got, err := repo.GetByAddress(context.Background(), "0xc0ffee")
	if err != nil {
		t.Fatalf("GetByAddress error: %v", err)
	}
	if got.Kind != "Betting" || got.OwnerID != "u-1" {
		t.Fatalf("unexpected contract: %+v", got)
	}
}

func TestGetByAddress_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+address,\s*kind,\s*abi`).
		WithArgs("0xmissing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByAddress(context.Background(), "0xmissing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestListByOwner(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"address", "kind", "abi", "deploy_tx_hash", "owner_id", "network", "created_at"}).
		AddRow("0xaaa", "ERC20Token", `[]`, "0x1", "u-1", "arbitrum-sepolia", time.Now()).
		AddRow("0xbbb", "Betting", `[]`, "0x2", "u-1", "arbitrum-sepolia", time.Now())
	mock.ExpectQuery(`SELECT\s+address,\s*kind,\s*abi`).
		WithArgs("u-1").
		WillReturnRows(rows)

	got, err := repo.ListByOwner(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("ListByOwner error: %v", err)
	}
	if len(got) != 2 || got[1].Address != "0xbbb" {
		t.Fatalf("unexpected contracts: %+v", got)
	}
}
