package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ReplaceAction selects how a pending transaction is replaced.
type ReplaceAction string

const (
	// ActionSpeedUp resubmits the original call at a higher price.
	ActionSpeedUp ReplaceAction = "speed_up"
	// ActionCancel overwrites the nonce with a zero-value self-transfer.
	ActionCancel ReplaceAction = "cancel"
)

// Valid reports whether the action is one of the known replace modes.
func (a ReplaceAction) Valid() bool {
	return a == ActionSpeedUp || a == ActionCancel
}

// Replacement pairs a replaced transaction with its successor.
type Replacement struct {
	OldHash     common.Hash
	NewHash     common.Hash
	Action      ReplaceAction
	NewGasPrice *big.Int
}
