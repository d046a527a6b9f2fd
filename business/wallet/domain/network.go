package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NativeCurrency describes the coin used to pay gas on a chain.
type NativeCurrency struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// NetworkTarget describes the single chain the client operates on.
// Built from configuration; when the wallet reports a different chain
// the network service reconciles toward this one.
type NetworkTarget struct {
	ChainID     *big.Int
	Name        string
	RPCURL      string
	ExplorerURL string
	Currency    NativeCurrency
}

// ChainIDHex returns the chain id in the 0x-prefixed form wallet
// provider methods expect.
func (t NetworkTarget) ChainIDHex() string {
	return hexutil.EncodeBig(t.ChainID)
}

// Matches reports whether the given chain id is the target chain.
func (t NetworkTarget) Matches(id *big.Int) bool {
	if id == nil || t.ChainID == nil {
		return false
	}
	return t.ChainID.Cmp(id) == 0
}
