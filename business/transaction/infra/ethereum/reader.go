// Package ethereum provides the chain read adapter for the transaction
// context: confirmation polling, gas quotes and simulation, plus the
// log filters the governance context borrows for event queries.
package ethereum

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/govwallet/internal/apperror"
	"github.com/fd1az/govwallet/internal/circuitbreaker"
	"github.com/fd1az/govwallet/internal/logger"
)

const (
	tracerName = "transaction.ethereum"
	meterName  = "transaction.ethereum"
)

// ReaderConfig holds configuration for the chain reader.
type ReaderConfig struct {
	RPCURL string // HTTP(S) RPC endpoint
}

// DefaultReaderConfig returns sensible defaults.
func DefaultReaderConfig(rpcURL string) ReaderConfig {
	return ReaderConfig{RPCURL: rpcURL}
}

// readerMetrics holds OTEL metric instruments.
type readerMetrics struct {
	calls    metric.Int64Counter
	failures metric.Int64Counter
	latency  metric.Float64Histogram
}

// Reader reads chain state over a single RPC connection. Write traffic
// never goes through here; submission is the wallet's job.
type Reader struct {
	config ReaderConfig
	logger logger.LoggerInterface

	rpc      *gethrpc.Client
	client   *ethclient.Client
	clientMu sync.RWMutex

	// Circuit breakers on the hot paths.
	priceCB    *circuitbreaker.CircuitBreaker[*big.Int]
	receiptCB  *circuitbreaker.CircuitBreaker[*types.Receipt]
	estimateCB *circuitbreaker.CircuitBreaker[uint64]

	tracer  trace.Tracer
	metrics *readerMetrics
}

// NewReader creates a chain reader. Connect must be called before use.
func NewReader(cfg ReaderConfig, log logger.LoggerInterface) (*Reader, error) {
	if cfg.RPCURL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("chain reader requires an RPC URL"))
	}

	r := &Reader{
		config: cfg,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}

	if err := r.initMetrics(); err != nil {
		return nil, apperror.New(apperror.CodeInternalError,
			apperror.WithCause(err),
			apperror.WithContext("init chain reader metrics"))
	}

	r.priceCB = circuitbreaker.New[*big.Int](circuitbreaker.DefaultConfig("chain-reader-price"))
	r.receiptCB = circuitbreaker.New[*types.Receipt](circuitbreaker.DefaultConfig("chain-reader-receipt"))
	r.estimateCB = circuitbreaker.New[uint64](circuitbreaker.DefaultConfig("chain-reader-estimate"))

	return r, nil
}

// initMetrics initializes OTEL metric instruments.
func (r *Reader) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &readerMetrics{}

	r.metrics.calls, err = meter.Int64Counter(
		"chain_reader_calls_total",
		metric.WithDescription("Total chain read calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	r.metrics.failures, err = meter.Int64Counter(
		"chain_reader_failures_total",
		metric.WithDescription("Failed chain read calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	r.metrics.latency, err = meter.Float64Histogram(
		"chain_reader_latency_seconds",
		metric.WithDescription("Chain read call latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Connect dials the RPC endpoint. The underlying HTTP transport is
// lazy, so this validates the URL rather than the node.
func (r *Reader) Connect(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "reader.connect",
		trace.WithAttributes(attribute.String("url", r.config.RPCURL)),
	)
	defer span.End()

	rpcClient, err := gethrpc.DialContext(ctx, r.config.RPCURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to connect chain reader"))
	}

	r.clientMu.Lock()
	r.rpc = rpcClient
	r.client = ethclient.NewClient(rpcClient)
	r.clientMu.Unlock()

	span.SetStatus(codes.Ok, "connected")
	r.logger.Info(ctx, "chain reader connected", "url", r.config.RPCURL)

	return nil
}

func (r *Reader) ethClient() (*ethclient.Client, error) {
	r.clientMu.RLock()
	client := r.client
	r.clientMu.RUnlock()

	if client == nil {
		return nil, apperror.New(apperror.CodeChainRPCError,
			apperror.WithContext("chain reader not connected"))
	}
	return client, nil
}

// record updates call metrics for one read.
func (r *Reader) record(ctx context.Context, method string, start time.Time, err error) {
	attrs := metric.WithAttributes(attribute.String("method", method))
	r.metrics.calls.Add(ctx, 1, attrs)
	r.metrics.latency.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		r.metrics.failures.Add(ctx, 1, attrs)
	}
}

// BalanceAt returns the wei balance of an account. A nil block number
// means latest.
func (r *Reader) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	client, err := r.ethClient()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	wei, err := client.BalanceAt(ctx, account, blockNumber)
	r.record(ctx, "eth_getBalance", start, err)
	if err != nil {
		return nil, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("balance query failed"))
	}
	return wei, nil
}

// BlockNumber returns the latest block height.
func (r *Reader) BlockNumber(ctx context.Context) (uint64, error) {
	client, err := r.ethClient()
	if err != nil {
		return 0, err
	}

	start := time.Now()
	n, err := client.BlockNumber(ctx)
	r.record(ctx, "eth_blockNumber", start, err)
	if err != nil {
		return 0, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("block number query failed"))
	}
	return n, nil
}

// HeaderByNumber returns the header for a block. A nil number means
// latest.
func (r *Reader) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	client, err := r.ethClient()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	header, err := client.HeaderByNumber(ctx, number)
	r.record(ctx, "eth_getBlockByNumber", start, err)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, apperror.New(apperror.CodeBlockNotFound,
				apperror.WithCause(err),
				apperror.WithContext("block not found"))
		}
		return nil, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("header query failed"))
	}
	return header, nil
}

// SuggestGasPrice returns the node's gas price quote in wei. Quotes go
// through a circuit breaker: the estimator polls this on every cache
// miss and a dead node must fail fast.
func (r *Reader) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	ctx, span := r.tracer.Start(ctx, "reader.suggest_gas_price")
	defer span.End()

	client, err := r.ethClient()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	start := time.Now()
	wei, err := r.priceCB.Execute(func() (*big.Int, error) {
		return client.SuggestGasPrice(ctx)
	})
	r.record(ctx, "eth_gasPrice", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote failed")
		return nil, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("gas price quote failed"))
	}

	span.SetAttributes(attribute.String("wei", wei.String()))
	span.SetStatus(codes.Ok, "quoted")
	return wei, nil
}

// EstimateGas simulates a call and returns the gas it would consume.
// The raw node error is preserved as the cause; the estimator decides
// how to present simulation failures. The circuit breaker counts only
// transport faults: a coded JSON-RPC error means the node answered and
// judged the call, which must not open the breaker.
func (r *Reader) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	ctx, span := r.tracer.Start(ctx, "reader.estimate_gas",
		trace.WithAttributes(attribute.Int("data_len", len(call.Data))),
	)
	defer span.End()

	client, err := r.ethClient()
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	start := time.Now()
	var simErr error
	gas, err := r.estimateCB.Execute(func() (uint64, error) {
		g, err := client.EstimateGas(ctx, call)
		if err != nil && isNodeResponse(err) {
			simErr = err
			return 0, nil
		}
		return g, err
	})
	if err == nil {
		err = simErr
	}
	r.record(ctx, "eth_estimateGas", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "simulation failed")
		return 0, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("gas simulation failed"))
	}

	span.SetAttributes(attribute.Int64("gas", int64(gas)))
	span.SetStatus(codes.Ok, "estimated")
	return gas, nil
}

// isNodeResponse reports whether err is a coded JSON-RPC error, i.e.
// the node is reachable and produced an answer.
func isNodeResponse(err error) bool {
	var rpcErr gethrpc.Error
	return errors.As(err, &rpcErr)
}

// PendingNonceAt returns the next nonce for an account, pending
// transactions included.
func (r *Reader) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	client, err := r.ethClient()
	if err != nil {
		return 0, err
	}

	start := time.Now()
	nonce, err := client.PendingNonceAt(ctx, account)
	r.record(ctx, "eth_getTransactionCount", start, err)
	if err != nil {
		return 0, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("nonce query failed"))
	}
	return nonce, nil
}

// TransactionByHash returns a transaction and whether it is still
// pending. An unknown hash maps to TRANSACTION_NOT_FOUND.
func (r *Reader) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	client, err := r.ethClient()
	if err != nil {
		return nil, false, err
	}

	start := time.Now()
	tx, isPending, err := client.TransactionByHash(ctx, hash)
	r.record(ctx, "eth_getTransactionByHash", start, err)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, false, apperror.New(apperror.CodeTransactionNotFound,
				apperror.WithCause(err),
				apperror.WithContext("transaction not known to the node"))
		}
		return nil, false, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("transaction query failed"))
	}
	return tx, isPending, nil
}

// TransactionReceipt returns the receipt of a mined transaction, or
// TRANSACTION_NOT_FOUND while it is unmined. The monitor polls this
// every progress tick, so calls ride a circuit breaker; an unmined
// transaction is a normal outcome and is kept out of the failure count.
func (r *Reader) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	client, err := r.ethClient()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	receipt, err := r.receiptCB.Execute(func() (*types.Receipt, error) {
		rec, err := client.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		return rec, err
	})
	r.record(ctx, "eth_getTransactionReceipt", start, err)
	if err != nil {
		return nil, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("receipt query failed"))
	}
	if receipt == nil {
		return nil, apperror.New(apperror.CodeTransactionNotFound,
			apperror.WithContext("receipt not available yet"))
	}
	return receipt, nil
}

// FilterLogs returns the logs matching a filter query.
func (r *Reader) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	client, err := r.ethClient()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	logs, err := client.FilterLogs(ctx, q)
	r.record(ctx, "eth_getLogs", start, err)
	if err != nil {
		return nil, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("log filter failed"))
	}
	return logs, nil
}

// CallContract executes a read-only contract call. A nil block number
// means latest.
func (r *Reader) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	client, err := r.ethClient()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := client.CallContract(ctx, call, blockNumber)
	r.record(ctx, "eth_call", start, err)
	if err != nil {
		return nil, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("contract call failed"))
	}
	return out, nil
}

// Close releases the RPC connection. Safe to call more than once.
func (r *Reader) Close() error {
	r.clientMu.Lock()
	defer r.clientMu.Unlock()

	if r.rpc != nil {
		r.rpc.Close()
		r.rpc = nil
		r.client = nil
	}
	return nil
}
