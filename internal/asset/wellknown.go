package asset

import "github.com/ethereum/go-ethereum/common"

// Chain IDs
const (
	ChainIDEthereum    = 1
	ChainIDSepolia     = 11155111
	ChainIDCoreMainnet = 1116
	ChainIDCoreTestnet = 1115
)

// Well-known token addresses on Ethereum Mainnet
var (
	AddrUSDCEthereum = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
)

// Well-known AssetIDs
var (
	IDEthereumETH  = NewNativeAssetID(ChainIDEthereum)
	IDEthereumUSDC = NewTokenAssetID(ChainIDEthereum, AddrUSDCEthereum)
	IDSepoliaETH   = NewNativeAssetID(ChainIDSepolia)
	IDCoreMainnet  = NewNativeAssetID(ChainIDCoreMainnet)
	IDCoreTestnet  = NewNativeAssetID(ChainIDCoreTestnet)
)

// Well-known Assets (pre-created instances)
var (
	ETH        = NewAssetWithName(IDEthereumETH, "ETH", "Ethereum", 18)
	USDC       = NewAssetWithName(IDEthereumUSDC, "USDC", "USD Coin", 6)
	SepoliaETH = NewAssetWithName(IDSepoliaETH, "ETH", "Sepolia Ether", 18)
	CORE       = NewAssetWithName(IDCoreMainnet, "CORE", "Core", 18)
	TCORE      = NewAssetWithName(IDCoreTestnet, "tCORE", "Core Testnet Token", 18)
)

// DefaultRegistry returns a registry pre-populated with well-known assets.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(ETH)
	r.Register(USDC)
	r.Register(SepoliaETH)
	r.Register(CORE)
	r.Register(TCORE)

	return r
}

// MustNewNative creates a new native coin asset. Used when wiring a
// configured network whose currency is not in the well-known set.
func MustNewNative(chainID uint64, symbol, name string, decimals uint8) *Asset {
	id := NewNativeAssetID(chainID)
	return NewAssetWithName(id, symbol, name, decimals)
}
