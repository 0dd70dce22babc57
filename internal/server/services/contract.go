package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/dkurguzov/betkeeper/internal/chain"
	"github.com/dkurguzov/betkeeper/internal/chain/templates"
	"github.com/dkurguzov/betkeeper/internal/common"
	"github.com/dkurguzov/betkeeper/internal/dbx"
	"github.com/dkurguzov/betkeeper/internal/logging"
	"github.com/dkurguzov/betkeeper/internal/server/models"
	"github.com/dkurguzov/betkeeper/internal/server/repositories/repomanager"
	"github.com/dkurguzov/betkeeper/internal/wallet"
)

// ContractSigner is the slice of chain.Signer the contract service needs.
type ContractSigner interface {
	Deploy(ctx context.Context, km *wallet.KeyMaterial, contractABI abi.ABI, bytecode []byte, ctorArgs []chain.Arg, value *big.Int) (*chain.Result, error)
	Call(ctx context.Context, km *wallet.KeyMaterial, contractAddress string, contractABI abi.ABI, method string, args []chain.Arg, value *big.Int) (*chain.Result, error)
	Read(ctx context.Context, contractAddress string, contractABI abi.ABI, method string, args []chain.Arg) ([]any, error)
	Network() string
}

// DeployOutcome is what a successful deployment hands back to the transport.
type DeployOutcome struct {
	ContractAddress string
	TxHash          string
}

// ContractService orchestrates the full deploy/execute/read flows: authorize,
// open the wallet for the duration of one call, sign and submit through the
// chain signer, and record the results.
type ContractService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	users       *UserService
	wallets     *wallet.Manager
	signer      ContractSigner
	log         logging.Logger
}

func NewContractService(db *sql.DB, m repomanager.RepositoryManager, users *UserService, wallets *wallet.Manager, signer ContractSigner, log logging.Logger) *ContractService {
	return &ContractService{
		db:          db,
		repomanager: m,
		users:       users,
		wallets:     wallets,
		signer:      signer,
		log:         log,
	}
}

// Deploy creates a new instance of one of the known contract templates on
// behalf of the user and records both the contract and its transaction.
func (s *ContractService) Deploy(ctx context.Context, username string, password []byte, kind string, ctorArgs []chain.Arg, value *big.Int) (*DeployOutcome, error) {
	user, err := s.users.Authorize(ctx, username, password)
	if err != nil {
		return nil, err
	}

	tmpl, err := templates.Lookup(kind)
	if err != nil {
		return nil, err
	}

	km, err := s.wallets.Open(user.WalletBlob, password, user.WalletAddress)
	if err != nil {
		return nil, err
	}
	defer km.Destroy()

	res, callErr := s.signer.Deploy(ctx, km, tmpl.ABI, tmpl.Bytecode, ctorArgs, value)
	if res == nil {
		return nil, callErr
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// a reverted creation leaves no contract on chain, so only the
		// failed transaction is recorded
		if callErr == nil {
			if err := s.repomanager.Contracts(tx).Create(ctx, &models.Contract{
				Address:      res.ContractAddress,
				Kind:         kind,
				ABI:          tmpl.RawABI,
				DeployTxHash: res.TxHash,
				OwnerID:      user.ID,
				Network:      s.signer.Network(),
			}); err != nil {
				return err
			}
		}
		return s.recordTransaction(ctx, tx, user.ID, res, models.TxKindDeploy, "", ctorArgs, value)
	}); err != nil {
		s.log.Error(ctx, "failed to record deployment", "contract", res.ContractAddress, "error", err)
		return nil, fmt.Errorf("error recording deployment: %w", err)
	}

	if callErr != nil {
		return nil, callErr
	}

	s.log.Info(ctx, "contract deployed", "kind", kind, "contract", res.ContractAddress, "tx", res.TxHash)
	return &DeployOutcome{ContractAddress: res.ContractAddress, TxHash: res.TxHash}, nil
}

// Execute calls a state-changing method on a previously deployed contract.
// The contract record is resolved before any wallet or network work, so an
// unknown address fails fast with ErrContractNotFound.
func (s *ContractService) Execute(ctx context.Context, username string, password []byte, contractAddress, method string, args []chain.Arg, value *big.Int) (*chain.Result, error) {
	user, err := s.users.Authorize(ctx, username, password)
	if err != nil {
		return nil, err
	}

	contract, err := s.lookupContract(ctx, contractAddress)
	if err != nil {
		return nil, err
	}

	contractABI, err := abi.JSON(strings.NewReader(contract.ABI))
	if err != nil {
		return nil, common.ErrInternal
	}

	km, err := s.wallets.Open(user.WalletBlob, password, user.WalletAddress)
	if err != nil {
		return nil, err
	}
	defer km.Destroy()

	res, callErr := s.signer.Call(ctx, km, contractAddress, contractABI, method, args, value)
	if res == nil {
		return nil, callErr
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.recordTransaction(ctx, tx, user.ID, res, models.TxKindCall, method, args, value)
	}); err != nil {
		s.log.Error(ctx, "failed to record transaction", "tx", res.TxHash, "error", err)
		return nil, fmt.Errorf("error recording transaction: %w", err)
	}

	if callErr != nil {
		return res, callErr
	}
	return res, nil
}

// Read performs a constant call. No credentials, no key material, nothing
// persisted.
func (s *ContractService) Read(ctx context.Context, contractAddress, method string, args []chain.Arg) ([]any, error) {
	contract, err := s.lookupContract(ctx, contractAddress)
	if err != nil {
		return nil, err
	}

	contractABI, err := abi.JSON(strings.NewReader(contract.ABI))
	if err != nil {
		return nil, common.ErrInternal
	}

	return s.signer.Read(ctx, contractAddress, contractABI, method, args)
}

// ListContracts returns the contracts owned by the user.
func (s *ContractService) ListContracts(ctx context.Context, ownerID string) ([]*models.Contract, error) {
	return s.repomanager.Contracts(s.db).ListByOwner(ctx, ownerID)
}

// ListTransactions returns the user's transaction history, newest first.
func (s *ContractService) ListTransactions(ctx context.Context, userID string) ([]*models.Transaction, error) {
	return s.repomanager.Transactions(s.db).ListByUser(ctx, userID)
}

func (s *ContractService) lookupContract(ctx context.Context, address string) (*models.Contract, error) {
	contract, err := s.repomanager.Contracts(s.db).GetByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", common.ErrContractNotFound, address)
		}
		return nil, common.ErrInternal
	}
	return contract, nil
}

// recordTransaction inserts the row as pending and settles it in the same
// database transaction. The guarded update keeps the pending→terminal
// transition one-way should the settle ever be replayed.
func (s *ContractService) recordTransaction(ctx context.Context, tx dbx.DBTX, userID string, res *chain.Result, kind models.TxKind, method string, args []chain.Arg, value *big.Int) error {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return err
	}
	if args == nil {
		argsJSON = []byte("[]")
	}

	valueText := "0"
	if value != nil {
		valueText = value.String()
	}
	gasPriceText := "0"
	if res.GasPrice != nil {
		gasPriceText = res.GasPrice.String()
	}

	repo := s.repomanager.Transactions(tx)
	if err := repo.Create(ctx, &models.Transaction{
		Hash:            res.TxHash,
		UserID:          userID,
		From:            res.From,
		To:              res.To,
		ContractAddress: res.ContractAddress,
		Value:           valueText,
		GasPrice:        gasPriceText,
		Status:          models.TxStatusPending,
		Kind:            kind,
		Method:          method,
		Args:            string(argsJSON),
		Network:         s.signer.Network(),
	}); err != nil {
		return err
	}

	status := models.TxStatusSuccess
	if res.Reverted {
		status = models.TxStatusFailed
	}
	return repo.MarkStatus(ctx, res.TxHash, status, uint64(res.BlockNumber), res.GasUsed)
}
