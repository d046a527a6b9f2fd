// Package app exposes the governance contract boundary to the rest of
// the application: typed reads, calldata builders for wallet-submitted
// writes, and event queries.
package app

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/govwallet/business/governance/domain"
	"github.com/fd1az/govwallet/internal/apperror"
)

// Service is the typed surface of the governance contract. It packs
// arguments and decodes outputs; the voting and delegation arithmetic
// stays inside the contract.
type Service struct {
	contract Contract
}

// NewService creates a governance service over a contract binding.
func NewService(contract Contract) *Service {
	return &Service{contract: contract}
}

// ContractAddress returns the governance contract address.
func (s *Service) ContractAddress() common.Address {
	return s.contract.Address()
}

// TotalStaked returns the total amount staked in the contract, in wei.
func (s *Service) TotalStaked(ctx context.Context) (*big.Int, error) {
	out, err := s.contract.Call(ctx, "totalStaked")
	if err != nil {
		return nil, err
	}
	return singleBigInt(out, "totalStaked")
}

// StakeOf returns one member's stake, in wei.
func (s *Service) StakeOf(ctx context.Context, account common.Address) (*big.Int, error) {
	out, err := s.contract.Call(ctx, "stakeOf", account)
	if err != nil {
		return nil, err
	}
	return singleBigInt(out, "stakeOf")
}

// MemberCount returns the number of members that have staked.
func (s *Service) MemberCount(ctx context.Context) (*big.Int, error) {
	out, err := s.contract.Call(ctx, "memberCount")
	if err != nil {
		return nil, err
	}
	return singleBigInt(out, "memberCount")
}

// Votes returns an account's current voting weight as computed by the
// contract.
func (s *Service) Votes(ctx context.Context, account common.Address) (*big.Int, error) {
	out, err := s.contract.Call(ctx, "getVotes", account)
	if err != nil {
		return nil, err
	}
	return singleBigInt(out, "getVotes")
}

// StakeCall builds the calldata to stake amount wei.
func (s *Service) StakeCall(amount *big.Int) (domain.WriteCall, error) {
	if amount == nil || amount.Sign() <= 0 {
		return domain.WriteCall{}, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("stake amount must be positive"))
	}
	return s.writeCall("stake", amount)
}

// UnstakeCall builds the calldata to withdraw amount wei of stake.
func (s *Service) UnstakeCall(amount *big.Int) (domain.WriteCall, error) {
	if amount == nil || amount.Sign() <= 0 {
		return domain.WriteCall{}, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("unstake amount must be positive"))
	}
	return s.writeCall("unstake", amount)
}

// VoteCall builds the calldata to vote on a proposal.
func (s *Service) VoteCall(proposalID *big.Int, support bool) (domain.WriteCall, error) {
	if proposalID == nil || proposalID.Sign() < 0 {
		return domain.WriteCall{}, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("proposal id must not be negative"))
	}
	return s.writeCall("vote", proposalID, support)
}

// DelegateCall builds the calldata to delegate voting weight.
func (s *Service) DelegateCall(delegatee common.Address) (domain.WriteCall, error) {
	if delegatee == (common.Address{}) {
		return domain.WriteCall{}, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("delegatee address is required"))
	}
	return s.writeCall("delegate", delegatee)
}

// ProposeCall builds the calldata to create a proposal.
func (s *Service) ProposeCall(description string) (domain.WriteCall, error) {
	if strings.TrimSpace(description) == "" {
		return domain.WriteCall{}, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("proposal description is required"))
	}
	return s.writeCall("propose", description)
}

// Events returns the contract's decoded logs for one event name over a
// block range. A toBlock of zero means latest.
func (s *Service) Events(ctx context.Context, eventName string, fromBlock, toBlock uint64) ([]domain.ContractEvent, error) {
	return s.contract.QueryEvents(ctx, eventName, fromBlock, toBlock)
}

func (s *Service) writeCall(method string, args ...any) (domain.WriteCall, error) {
	data, err := s.contract.PackInput(method, args...)
	if err != nil {
		return domain.WriteCall{}, err
	}
	return domain.WriteCall{To: s.contract.Address(), Data: data}, nil
}

// singleBigInt casts the output of a single-value uint256 view.
func singleBigInt(out []any, method string) (*big.Int, error) {
	if len(out) != 1 {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext(fmt.Sprintf("%s returned %d values, want 1", method, len(out))))
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext(fmt.Sprintf("%s returned %T, want *big.Int", method, out[0])))
	}
	return v, nil
}
