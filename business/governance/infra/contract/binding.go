// Package contract binds the governance contract ABI: read calls,
// calldata packing for wallet-submitted writes, and event log decoding.
package contract

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/govwallet/business/governance/domain"
	"github.com/fd1az/govwallet/internal/apperror"
	"github.com/fd1az/govwallet/internal/circuitbreaker"
	"github.com/fd1az/govwallet/internal/logger"
)

const (
	tracerName = "governance.contract"
	meterName  = "governance.contract"
)

// ChainCaller is the slice of the chain client the binding needs:
// read-only calls and log filters.
type ChainCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// bindingMetrics holds OTEL metric instruments.
type bindingMetrics struct {
	calls          metric.Int64Counter
	callErrors     metric.Int64Counter
	eventsDecoded  metric.Int64Counter
	decodeFailures metric.Int64Counter
}

// Binding wraps the governance contract at a fixed address. It owns the
// parsed ABI; callers deal in method names and Go values, never in raw
// calldata.
type Binding struct {
	address common.Address
	abi     abi.ABI
	caller  ChainCaller
	logger  logger.LoggerInterface

	cb *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *bindingMetrics
}

// NewBinding parses the governance ABI and binds it to the contract
// address.
func NewBinding(address common.Address, caller ChainCaller, log logger.LoggerInterface) (*Binding, error) {
	if address == (common.Address{}) {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("governance contract address is not configured"))
	}

	parsed, err := abi.JSON(strings.NewReader(GovernanceABI))
	if err != nil {
		return nil, apperror.New(apperror.CodeInternalError,
			apperror.WithCause(err),
			apperror.WithContext("parse governance ABI"))
	}

	b := &Binding{
		address: address,
		abi:     parsed,
		caller:  caller,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}

	if err := b.initMetrics(); err != nil {
		return nil, apperror.New(apperror.CodeInternalError,
			apperror.WithCause(err),
			apperror.WithContext("init contract binding metrics"))
	}

	b.cb = circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("governance-contract"))

	return b, nil
}

// initMetrics initializes OTEL metric instruments.
func (b *Binding) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	b.metrics = &bindingMetrics{}

	b.metrics.calls, err = meter.Int64Counter(
		"governance_contract_calls_total",
		metric.WithDescription("Total governance contract read calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	b.metrics.callErrors, err = meter.Int64Counter(
		"governance_contract_call_errors_total",
		metric.WithDescription("Failed governance contract read calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	b.metrics.eventsDecoded, err = meter.Int64Counter(
		"governance_events_decoded_total",
		metric.WithDescription("Governance contract logs decoded into events"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	b.metrics.decodeFailures, err = meter.Int64Counter(
		"governance_event_decode_failures_total",
		metric.WithDescription("Governance contract logs skipped as undecodable"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Address returns the bound contract address.
func (b *Binding) Address() common.Address {
	return b.address
}

// Call executes a read-only contract method at the latest block and
// returns the decoded outputs in declaration order.
func (b *Binding) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	ctx, span := b.tracer.Start(ctx, "contract.call",
		trace.WithAttributes(attribute.String("method", method)),
	)
	defer span.End()

	input, err := b.abi.Pack(method, args...)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithCause(err),
			apperror.WithContext("pack "+method))
	}

	attrs := metric.WithAttributes(attribute.String("method", method))
	b.metrics.calls.Add(ctx, 1, attrs)

	out, err := b.cb.Execute(func() ([]byte, error) {
		return b.caller.CallContract(ctx, ethereum.CallMsg{To: &b.address, Data: input}, nil)
	})
	if err != nil {
		b.metrics.callErrors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, "call failed")
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("call "+method))
	}

	results, err := b.abi.Unpack(method, out)
	if err != nil {
		b.metrics.callErrors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("decode "+method+" output"))
	}

	span.SetStatus(codes.Ok, "called")
	return results, nil
}

// PackInput encodes a state-changing method call into calldata for the
// wallet to sign and submit. No chain traffic happens here.
func (b *Binding) PackInput(method string, args ...any) ([]byte, error) {
	input, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithCause(err),
			apperror.WithContext("pack "+method))
	}
	return input, nil
}

// QueryEvents returns the decoded logs the contract emitted for one
// event between fromBlock and toBlock inclusive. A toBlock of zero
// means latest. Undecodable logs are skipped and counted rather than
// failing the query: one corrupt log must not hide the rest of the
// range.
func (b *Binding) QueryEvents(ctx context.Context, eventName string, fromBlock, toBlock uint64) ([]domain.ContractEvent, error) {
	ctx, span := b.tracer.Start(ctx, "contract.query_events",
		trace.WithAttributes(
			attribute.String("event", eventName),
			attribute.Int64("from_block", int64(fromBlock)),
		),
	)
	defer span.End()

	ev, ok := b.abi.Events[eventName]
	if !ok {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext(fmt.Sprintf("unknown event %q", eventName)))
	}

	q := ethereum.FilterQuery{
		Addresses: []common.Address{b.address},
		Topics:    [][]common.Hash{{ev.ID}},
		FromBlock: new(big.Int).SetUint64(fromBlock),
	}
	if toBlock > 0 {
		q.ToBlock = new(big.Int).SetUint64(toBlock)
	}

	logs, err := b.caller.FilterLogs(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "filter failed")
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("query "+eventName+" logs"))
	}

	attrs := metric.WithAttributes(attribute.String("event", eventName))
	events := make([]domain.ContractEvent, 0, len(logs))
	for _, lg := range logs {
		decoded, err := b.decodeLog(ev, lg)
		if err != nil {
			b.metrics.decodeFailures.Add(ctx, 1, attrs)
			b.logger.Debug(ctx, "skipping undecodable log",
				"event", eventName,
				"block", lg.BlockNumber,
				"tx", lg.TxHash.Hex(),
				"error", err.Error())
			continue
		}
		events = append(events, decoded)
		b.metrics.eventsDecoded.Add(ctx, 1, attrs)
	}

	span.SetAttributes(attribute.Int("events", len(events)))
	span.SetStatus(codes.Ok, "queried")
	return events, nil
}

// decodeLog unpacks one log into a domain event. Non-indexed inputs
// come from the data blob, indexed ones from the topics after the
// event signature.
func (b *Binding) decodeLog(ev abi.Event, lg types.Log) (domain.ContractEvent, error) {
	args := make(map[string]any)

	if len(lg.Data) > 0 {
		if err := b.abi.UnpackIntoMap(args, ev.Name, lg.Data); err != nil {
			return domain.ContractEvent{}, err
		}
	}

	var indexed abi.Arguments
	for _, in := range ev.Inputs {
		if in.Indexed {
			indexed = append(indexed, in)
		}
	}
	if len(indexed) > 0 {
		if len(lg.Topics) != len(indexed)+1 {
			return domain.ContractEvent{}, fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(lg.Topics))
		}
		if err := abi.ParseTopicsIntoMap(args, indexed, lg.Topics[1:]); err != nil {
			return domain.ContractEvent{}, err
		}
	}

	return domain.ContractEvent{
		Name:        ev.Name,
		Args:        args,
		BlockNumber: lg.BlockNumber,
		TxHash:      lg.TxHash,
		LogIndex:    lg.Index,
	}, nil
}
