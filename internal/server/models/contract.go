package models

import "time"

// Contract is a deployed contract instance. ABI is the raw ABI JSON captured
// at deployment so later calls do not depend on the template registry
// staying unchanged.
type Contract struct {
	Address      string
	Kind         string
	ABI          string
	DeployTxHash string
	OwnerID      string
	Network      string
	CreatedAt    time.Time
}
