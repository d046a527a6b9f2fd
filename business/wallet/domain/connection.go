// Package domain contains the core domain types for the wallet context.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Phase represents the lifecycle phase of the wallet session.
type Phase string

const (
	PhaseDisconnected Phase = "disconnected"
	PhaseConnecting   Phase = "connecting"
	PhaseConnected    Phase = "connected"
)

// ConnectionState is a snapshot of the wallet session. The connection
// service owns the single live instance; callers always receive copies.
// Connected and Connecting are never both true.
type ConnectionState struct {
	Address            common.Address // zero = no active account
	ChainID            *big.Int       // nil = unknown
	Connected          bool
	Connecting         bool
	ConnectionAttempts int
	LastConnectionTime time.Time
}

// Phase derives the lifecycle phase from the snapshot.
func (s ConnectionState) Phase() Phase {
	switch {
	case s.Connected:
		return PhaseConnected
	case s.Connecting:
		return PhaseConnecting
	default:
		return PhaseDisconnected
	}
}

// HasAccount reports whether an active account is set.
func (s ConnectionState) HasAccount() bool {
	return s.Address != (common.Address{})
}

// ChainIDUint64 returns the chain id as uint64, or 0 when unknown.
func (s ConnectionState) ChainIDUint64() uint64 {
	if s.ChainID == nil {
		return 0
	}
	return s.ChainID.Uint64()
}

// Clone returns a deep copy safe to hand out.
func (s ConnectionState) Clone() ConnectionState {
	out := s
	if s.ChainID != nil {
		out.ChainID = new(big.Int).Set(s.ChainID)
	}
	return out
}
