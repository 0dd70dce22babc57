// Package common defines shared constants and sentinel errors used across
// betkeeper layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Credential / wallet errors. ErrInvalidCredential deliberately covers
	// both a wrong password and an undecryptable blob so callers cannot tell
	// the two apart. ErrCorruptWallet is returned only when the stored blob
	// is structurally absent or empty, before any password work is done.
	ErrInvalidCredential = errors.New("invalid credential")
	ErrCorruptWallet     = errors.New("corrupt wallet")

	// Signer errors.
	ErrUnsupportedContractType = errors.New("unsupported contract type")
	ErrContractNotFound        = errors.New("contract not found")
	ErrTransactionFailed       = errors.New("transaction failed")

	// Service-level errors (generic/internal flow control).
	ErrInternal = errors.New("internal error")

	// Token lifecycle errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
