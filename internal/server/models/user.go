// Package models defines the persisted record types shared by repositories
// and services.
package models

import "time"

// User is the credential record: login hash plus the custodial wallet.
// WalletAddress and WalletBlob are written together at registration and are
// immutable afterwards; a row never has one without the other.
//
// PasswordHash verifies logins. It is never the value protecting WalletBlob:
// the blob carries its own KDF salt and parameters.
type User struct {
	ID            string
	UserName      string
	PasswordHash  string
	WalletAddress string
	WalletBlob    []byte
	CreatedAt     time.Time
}
