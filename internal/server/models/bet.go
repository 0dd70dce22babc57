package models

import "time"

type BetStatus string

const (
	BetStatusOpen     BetStatus = "open"
	BetStatusAccepted BetStatus = "accepted"
	BetStatusResolved BetStatus = "resolved"
	BetStatusVoided   BetStatus = "voided"
)

// Bet is the bookkeeping row mirroring one betting-contract instance.
// On-chain state is authoritative; this record exists for listings and
// history without an RPC round-trip.
type Bet struct {
	ID              string
	ContractAddress string
	Description     string
	MakerID         string
	TakerID         string // empty until accepted
	Amount          string // decimal wei
	Winner          string // address, empty until resolved
	Status          BetStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
