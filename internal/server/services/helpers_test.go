package services

import (
	"context"
	"database/sql"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/dkurguzov/betkeeper/internal/chain"
	"github.com/dkurguzov/betkeeper/internal/dbx"
	"github.com/dkurguzov/betkeeper/internal/keystore"
	"github.com/dkurguzov/betkeeper/internal/logging"
	"github.com/dkurguzov/betkeeper/internal/server/config"
	"github.com/dkurguzov/betkeeper/internal/server/models"
	betsrepo "github.com/dkurguzov/betkeeper/internal/server/repositories/bets"
	contractsrepo "github.com/dkurguzov/betkeeper/internal/server/repositories/contracts"
	refreshtokensrepo "github.com/dkurguzov/betkeeper/internal/server/repositories/refreshtokens"
	"github.com/dkurguzov/betkeeper/internal/server/repositories/repomanager"
	transactionsrepo "github.com/dkurguzov/betkeeper/internal/server/repositories/transactions"
	usersrepo "github.com/dkurguzov/betkeeper/internal/server/repositories/users"
	"github.com/dkurguzov/betkeeper/internal/wallet"
)

// --- shared fixtures for service tests ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func testWalletManager() *wallet.Manager {
	return wallet.NewManager(keystore.Params{ScryptN: 1 << 10})
}

// makeTestUser builds a user row whose password hash and wallet blob are
// genuine, so Authorize and Open behave exactly as in production.
func makeTestUser(t *testing.T, m *wallet.Manager, id, username string, password []byte) *models.User {
	t.Helper()
	hash, err := keystore.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	address, blob, err := m.Create(password)
	if err != nil {
		t.Fatalf("wallet create error: %v", err)
	}
	return &models.User{
		ID:            id,
		UserName:      username,
		PasswordHash:  hash,
		WalletAddress: address,
		WalletBlob:    blob,
	}
}

type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	getOut *models.User
	getErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	return u, nil
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

type fakeRefreshRepo struct {
	findOut *models.RefreshToken
	findErr error

	delErr    error
	createErr error
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	return f.createErr
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	return f.delErr
}

type fakeContractsRepo struct {
	created []*models.Contract

	createErr error
	getOut    *models.Contract
	getErr    error
	listOut   []*models.Contract
}

func (f *fakeContractsRepo) Create(ctx context.Context, c *models.Contract) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, c)
	return nil
}

func (f *fakeContractsRepo) GetByAddress(ctx context.Context, address string) (*models.Contract, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeContractsRepo) ListByOwner(ctx context.Context, ownerID string) ([]*models.Contract, error) {
	return f.listOut, nil
}

type markCall struct {
	hash   string
	status models.TxStatus
}

type fakeTxRepo struct {
	created []*models.Transaction
	marked  []markCall

	createErr error
	markErr   error
	getOut    *models.Transaction
	getErr    error
	listOut   []*models.Transaction
}

func (f *fakeTxRepo) Create(ctx context.Context, tx *models.Transaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, tx)
	return nil
}

func (f *fakeTxRepo) MarkStatus(ctx context.Context, hash string, status models.TxStatus, blockNumber uint64, gasUsed uint64) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, markCall{hash: hash, status: status})
	return nil
}

func (f *fakeTxRepo) GetByHash(ctx context.Context, hash string) (*models.Transaction, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeTxRepo) ListByUser(ctx context.Context, userID string) ([]*models.Transaction, error) {
	return f.listOut, nil
}

type betUpdate struct {
	contract string
	status   models.BetStatus
	takerID  string
	winner   string
}

type fakeBetsRepo struct {
	created []*models.Bet
	updates []betUpdate

	createErr error
	updateErr error
	getOut    *models.Bet
	getErr    error
	listOut   []*models.Bet
}

func (f *fakeBetsRepo) Create(ctx context.Context, b *models.Bet) (*models.Bet, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	b.ID = "b-1"
	f.created = append(f.created, b)
	return b, nil
}

func (f *fakeBetsRepo) UpdateStatus(ctx context.Context, contractAddress string, status models.BetStatus, takerID, winner string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, betUpdate{contract: contractAddress, status: status, takerID: takerID, winner: winner})
	return nil
}

func (f *fakeBetsRepo) GetByContract(ctx context.Context, contractAddress string) (*models.Bet, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeBetsRepo) ListByUser(ctx context.Context, userID string) ([]*models.Bet, error) {
	return f.listOut, nil
}

type fakeRepoManager struct {
	u  *fakeUsersRepo
	r  *fakeRefreshRepo
	c  *fakeContractsRepo
	tx *fakeTxRepo
	b  *fakeBetsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository      { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository {
	return m.r
}
func (m *fakeRepoManager) Contracts(db dbx.DBTX) contractsrepo.Repository { return m.c }
func (m *fakeRepoManager) Transactions(db dbx.DBTX) transactionsrepo.Repository {
	return m.tx
}
func (m *fakeRepoManager) Bets(db dbx.DBTX) betsrepo.Repository { return m.b }

var _ repomanager.RepositoryManager = (*fakeRepoManager)(nil)

type deployCall struct {
	ctorArgs []chain.Arg
	value    *big.Int
}

type callCall struct {
	contract string
	method   string
	args     []chain.Arg
	value    *big.Int
}

type fakeSigner struct {
	deployRes *chain.Result
	deployErr error
	callRes   *chain.Result
	callErr   error
	readOut   []any
	readErr   error

	deploys []deployCall
	calls   []callCall
	reads   []string
}

func (f *fakeSigner) Deploy(ctx context.Context, km *wallet.KeyMaterial, contractABI abi.ABI, bytecode []byte, ctorArgs []chain.Arg, value *big.Int) (*chain.Result, error) {
	f.deploys = append(f.deploys, deployCall{ctorArgs: ctorArgs, value: value})
	return f.deployRes, f.deployErr
}

func (f *fakeSigner) Call(ctx context.Context, km *wallet.KeyMaterial, contractAddress string, contractABI abi.ABI, method string, args []chain.Arg, value *big.Int) (*chain.Result, error) {
	f.calls = append(f.calls, callCall{contract: contractAddress, method: method, args: args, value: value})
	return f.callRes, f.callErr
}

func (f *fakeSigner) Read(ctx context.Context, contractAddress string, contractABI abi.ABI, method string, args []chain.Arg) ([]any, error) {
	f.reads = append(f.reads, method)
	return f.readOut, f.readErr
}

func (f *fakeSigner) Network() string { return "testnet" }

func newTestConfig() *config.Config {
	return &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
}

func newTestServices(t *testing.T, db *sql.DB, rm *fakeRepoManager, signer *fakeSigner) (*UserService, *ContractService, *BetService) {
	t.Helper()
	wm := testWalletManager()
	log := logging.NewSlogLogger(slog.Default())
	users := NewUserService(db, rm, wm, newTestConfig())
	contracts := NewContractService(db, rm, users, wm, signer, log)
	bets := NewBetService(db, rm, contracts, log)
	return users, contracts, bets
}
