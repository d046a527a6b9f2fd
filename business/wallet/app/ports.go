// Package app contains application services and port definitions for the wallet context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/govwallet/business/wallet/domain"
	"github.com/fd1az/govwallet/business/wallet/infra/eip1193"
)

// Provider is the wallet session boundary. Requests target the wallet
// itself (authorization, chain control); push notifications surface on
// Notifications until the session closes.
type Provider interface {
	// RequestAccounts asks the wallet to authorize accounts, prompting
	// the holder when nothing is authorized yet.
	RequestAccounts(ctx context.Context) ([]common.Address, error)

	// Accounts returns already-authorized accounts without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)

	// ChainID reports the chain the wallet currently targets.
	ChainID(ctx context.Context) (*big.Int, error)

	// SwitchChain asks the wallet to move to the given chain.
	SwitchChain(ctx context.Context, chainIDHex string) error

	// AddChain registers a chain with the wallet.
	AddChain(ctx context.Context, params eip1193.AddChainParams) error

	// Notifications streams wallet pushes. Closed when the session ends.
	Notifications() <-chan eip1193.Notification

	// IsAvailable reports whether any transport can carry a request.
	IsAvailable() bool
}

// BalanceReader reads native balances from the chain.
type BalanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Invalidator clears derived caches when the session identity changes.
type Invalidator interface {
	Invalidate()
}

// SessionFn returns a snapshot of the current connection state.
type SessionFn func() domain.ConnectionState

// ConnectionEvents receives decoded wallet push notifications.
type ConnectionEvents interface {
	OnAccountsChanged(ctx context.Context, accounts []common.Address)
	OnChainChanged(ctx context.Context, chainID *big.Int)
	OnProviderDisconnect(ctx context.Context)
}
