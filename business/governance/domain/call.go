package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// WriteCall is a packed state-changing contract call, ready for gas
// estimation and submission through the wallet.
type WriteCall struct {
	To   common.Address
	Data []byte
}
