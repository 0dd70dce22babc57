package services

import (
	"context"
	"database/sql"
	"math/big"

	"github.com/dkurguzov/betkeeper/internal/chain"
	"github.com/dkurguzov/betkeeper/internal/chain/templates"
	"github.com/dkurguzov/betkeeper/internal/common"
	"github.com/dkurguzov/betkeeper/internal/logging"
	"github.com/dkurguzov/betkeeper/internal/server/models"
	"github.com/dkurguzov/betkeeper/internal/server/repositories/repomanager"
)

// BetService maps bet lifecycle actions onto betting-contract method calls
// and mirrors each transition in the bets table. On-chain state stays
// authoritative; the rows exist so listings never need an RPC round-trip.
type BetService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	contracts   *ContractService
	log         logging.Logger
}

func NewBetService(db *sql.DB, m repomanager.RepositoryManager, contracts *ContractService, log logging.Logger) *BetService {
	return &BetService{db: db, repomanager: m, contracts: contracts, log: log}
}

// Create deploys a fresh betting contract funded with the maker's stake and
// opens the corresponding bet row.
func (s *BetService) Create(ctx context.Context, username string, password []byte, description string, amount *big.Int) (*models.Bet, error) {
	user, err := s.contracts.users.Authorize(ctx, username, password)
	if err != nil {
		return nil, err
	}

	ctorArgs := []chain.Arg{chain.NewArg("string", description)}
	outcome, err := s.contracts.Deploy(ctx, username, password, templates.KindBetting, ctorArgs, amount)
	if err != nil {
		return nil, err
	}

	bet, err := s.repomanager.Bets(s.db).Create(ctx, &models.Bet{
		ContractAddress: outcome.ContractAddress,
		Description:     description,
		MakerID:         user.ID,
		Amount:          amount.String(),
		Status:          models.BetStatusOpen,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "bet created", "contract", outcome.ContractAddress, "maker", user.ID)
	return bet, nil
}

// Accept matches the caller as taker, staking the same amount as the maker.
func (s *BetService) Accept(ctx context.Context, username string, password []byte, contractAddress string) (*chain.Result, error) {
	user, err := s.contracts.users.Authorize(ctx, username, password)
	if err != nil {
		return nil, err
	}

	bet, err := s.repomanager.Bets(s.db).GetByContract(ctx, contractAddress)
	if err != nil {
		return nil, err
	}

	// a stake the taker cannot reproduce must never go out as zero
	stake, ok := new(big.Int).SetString(bet.Amount, 10)
	if !ok {
		s.log.Error(ctx, "stored bet amount is not a valid integer", "contract", contractAddress, "amount", bet.Amount)
		return nil, common.ErrInternal
	}

	res, err := s.contracts.Execute(ctx, username, password, contractAddress, "acceptBet", nil, stake)
	if err != nil {
		return res, err
	}

	if err := s.repomanager.Bets(s.db).UpdateStatus(ctx, contractAddress, models.BetStatusAccepted, user.ID, ""); err != nil {
		return res, err
	}
	return res, nil
}

// Resolve pays the pot to the winner address.
func (s *BetService) Resolve(ctx context.Context, username string, password []byte, contractAddress, winner string) (*chain.Result, error) {
	args := []chain.Arg{chain.NewArg("address", winner)}
	res, err := s.contracts.Execute(ctx, username, password, contractAddress, "resolveBet", args, nil)
	if err != nil {
		return res, err
	}

	if err := s.repomanager.Bets(s.db).UpdateStatus(ctx, contractAddress, models.BetStatusResolved, "", winner); err != nil {
		return res, err
	}
	return res, nil
}

// Void cancels the bet and refunds both stakes.
func (s *BetService) Void(ctx context.Context, username string, password []byte, contractAddress string) (*chain.Result, error) {
	res, err := s.contracts.Execute(ctx, username, password, contractAddress, "voidBet", nil, nil)
	if err != nil {
		return res, err
	}

	if err := s.repomanager.Bets(s.db).UpdateStatus(ctx, contractAddress, models.BetStatusVoided, "", ""); err != nil {
		return res, err
	}
	return res, nil
}

// List returns the bets the user participates in.
func (s *BetService) List(ctx context.Context, userID string) ([]*models.Bet, error) {
	return s.repomanager.Bets(s.db).ListByUser(ctx, userID)
}
