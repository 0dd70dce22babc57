// Package services contains server-side business logic. This file implements
// UserService, which handles registration, the authorization gate, login, and
// issuing/refreshing JWTs plus server-stored refresh tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dkurguzov/betkeeper/internal/common"
	"github.com/dkurguzov/betkeeper/internal/dbx"
	"github.com/dkurguzov/betkeeper/internal/keystore"
	"github.com/dkurguzov/betkeeper/internal/server/auth"
	"github.com/dkurguzov/betkeeper/internal/server/config"
	"github.com/dkurguzov/betkeeper/internal/server/models"
	"github.com/dkurguzov/betkeeper/internal/server/repositories/repomanager"
	"github.com/dkurguzov/betkeeper/internal/wallet"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService provides account-related operations:
// - Register: create a user together with its custodial wallet
// - Authorize: verify credentials before any key material is touched
// - Login: verify credentials and mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	wallets                      *wallet.Manager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, wallets *wallet.Manager, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		wallets:                      wallets,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Register hashes the password, generates a fresh wallet protected by the
// same password, and persists everything in a single insert so an account
// never exists without its wallet.
func (s *UserService) Register(ctx context.Context, username string, password []byte) (*models.User, error) {
	hash, err := keystore.HashPassword(password)
	if err != nil {
		return nil, common.ErrInternal
	}

	address, blob, err := s.wallets.Create(password)
	if err != nil {
		return nil, common.ErrInternal
	}

	user := &models.User{
		UserName:      username,
		PasswordHash:  hash,
		WalletAddress: address,
		WalletBlob:    blob,
	}

	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// Authorize is the gate in front of every wallet operation. An unknown
// username yields ErrNotFound, a wrong password ErrInvalidCredential; no
// decryption or network work happens before this passes.
func (s *UserService) Authorize(ctx context.Context, username string, password []byte) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, common.ErrInternal
	}
	if !keystore.VerifyPassword(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredential
	}
	return user, nil
}

// Login verifies credentials and, on success, returns a new TokenPair.
func (s *UserService) Login(ctx context.Context, username string, password []byte) (*TokenPair, error) {
	user, err := s.Authorize(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s.generateTokenPair(ctx, user.ID, s.db)
}

// VerifyWallet checks that the stored blob opens under the given password and
// that the derived address matches the stored one. Nothing is persisted.
func (s *UserService) VerifyWallet(ctx context.Context, username string, password []byte) (string, error) {
	user, err := s.Authorize(ctx, username, password)
	if err != nil {
		return "", err
	}

	km, err := s.wallets.Open(user.WalletBlob, password, user.WalletAddress)
	if err != nil {
		return "", err
	}
	defer km.Destroy()

	return km.Address, nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)
		if err := repoTx.Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, token.UserID, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *UserService) generateAccessToken(userID string) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, common.ErrInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrInternal
	}
	refreshRepo := s.repomanager.RefreshTokens(tx)
	if err := refreshRepo.Create(ctx, userID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
