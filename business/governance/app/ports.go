package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/govwallet/business/governance/domain"
)

// Contract is the binding port the service drives. Implementations own
// the parsed ABI; callers deal in method names and Go values, never in
// raw calldata.
type Contract interface {
	Address() common.Address
	Call(ctx context.Context, method string, args ...any) ([]any, error)
	PackInput(method string, args ...any) ([]byte, error)
	QueryEvents(ctx context.Context, eventName string, fromBlock, toBlock uint64) ([]domain.ContractEvent, error)
}
