package models

import "time"

type TxStatus string

const (
	TxStatusPending TxStatus = "pending"
	TxStatusSuccess TxStatus = "success"
	TxStatusFailed  TxStatus = "failed"
)

type TxKind string

const (
	TxKindDeploy TxKind = "deploy"
	TxKindCall   TxKind = "call"
)

// Transaction is the append-only record of one submitted transaction.
// Hash is globally unique; Status moves from pending to a terminal value at
// most once (the repository enforces the guard).
type Transaction struct {
	Hash            string
	UserID          string
	From            string
	To              string // empty for deployments
	ContractAddress string
	Value           string // decimal wei, stored as text to avoid precision loss
	GasUsed         int64
	GasPrice        string
	Status          TxStatus
	Kind            TxKind
	Method          string
	Args            string // JSON-encoded tagged arguments
	BlockNumber     int64
	Network         string
	CreatedAt       time.Time
}
