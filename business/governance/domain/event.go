// Package domain contains the governance context's domain types.
package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// Event names emitted by the governance contract.
const (
	EventProposalCreated = "ProposalCreated"
	EventVoteCast        = "VoteCast"
	EventMemberJoined    = "MemberJoined"
)

// ContractEvent is one decoded log entry from the governance contract.
// Args holds both indexed and non-indexed inputs keyed by their ABI
// names; values are the decoder's Go representations (common.Address,
// *big.Int, bool, string).
type ContractEvent struct {
	Name        string
	Args        map[string]any
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
}
