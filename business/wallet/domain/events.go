package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind discriminates wallet lifecycle events.
type EventKind string

const (
	EventConnected       EventKind = "connected"
	EventDisconnected    EventKind = "disconnected"
	EventAccountsChanged EventKind = "accounts_changed"
	EventChainChanged    EventKind = "chain_changed"
	EventError           EventKind = "error"
)

// Event is the typed notification fanned out by the event bridge.
// Only the fields relevant to Kind are populated.
type Event struct {
	Kind          EventKind
	Address       common.Address   // connected, accounts_changed
	Accounts      []common.Address // accounts_changed
	ChainID       *big.Int         // connected, chain_changed
	MatchesTarget bool             // chain_changed
	Elapsed       time.Duration    // connected
	Err           error            // error
	At            time.Time
}

// NewConnectedEvent builds the event emitted when a session is established.
func NewConnectedEvent(addr common.Address, chainID *big.Int, elapsed time.Duration) Event {
	return Event{
		Kind:    EventConnected,
		Address: addr,
		ChainID: chainID,
		Elapsed: elapsed,
		At:      time.Now(),
	}
}

// NewDisconnectedEvent builds the event emitted when the session ends.
func NewDisconnectedEvent() Event {
	return Event{Kind: EventDisconnected, At: time.Now()}
}

// NewAccountsChangedEvent builds the event for a wallet-side account switch.
func NewAccountsChangedEvent(accounts []common.Address) Event {
	ev := Event{
		Kind:     EventAccountsChanged,
		Accounts: accounts,
		At:       time.Now(),
	}
	if len(accounts) > 0 {
		ev.Address = accounts[0]
	}
	return ev
}

// NewChainChangedEvent builds the event for a wallet-side chain switch.
func NewChainChangedEvent(chainID *big.Int, matchesTarget bool) Event {
	return Event{
		Kind:          EventChainChanged,
		ChainID:       chainID,
		MatchesTarget: matchesTarget,
		At:            time.Now(),
	}
}

// NewErrorEvent builds the event for a classified session failure.
func NewErrorEvent(err error) Event {
	return Event{Kind: EventError, Err: err, At: time.Now()}
}
