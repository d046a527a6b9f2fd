package app

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/govwallet/business/transaction/domain"
	"github.com/fd1az/govwallet/business/wallet/infra/eip1193"
	"github.com/fd1az/govwallet/internal/apperror"
	"github.com/fd1az/govwallet/internal/logger"
)

// cancelGasLimit covers a bare value transfer, the cheapest possible
// nonce overwrite.
const cancelGasLimit = 21_000

// MonitorConfig holds confirmation watch parameters.
type MonitorConfig struct {
	Confirmations        uint64        // default required confirmations
	Timeout              time.Duration // default overall wait budget
	ProgressInterval     time.Duration // receipt poll and progress cadence
	HistorySize          int           // confirmed ring capacity
	ReplaceMultiplierBps int64         // default replacement price bump
}

type monitorMetrics struct {
	waits          metric.Int64Counter
	confirmLatency metric.Float64Histogram
	gasUsed        metric.Int64Histogram
	replacements   metric.Int64Counter
}

// MonitorService tracks submitted transactions to a terminal state:
// confirmed, reverted, replaced or timed out. Confirmed outcomes feed
// the bounded history and its running gas average.
type MonitorService struct {
	config  MonitorConfig
	logger  logger.LoggerInterface
	reader  ChainReader
	wallet  WalletSubmitter
	history *domain.History

	pendMu  sync.RWMutex
	pending map[common.Hash]domain.PendingTransaction

	tracer  trace.Tracer
	metrics *monitorMetrics
}

// NewMonitorService creates the transaction monitor.
func NewMonitorService(
	cfg MonitorConfig,
	reader ChainReader,
	wallet WalletSubmitter,
	log logger.LoggerInterface,
) (*MonitorService, error) {
	s := &MonitorService{
		config:  cfg,
		logger:  log,
		reader:  reader,
		wallet:  wallet,
		history: domain.NewHistory(cfg.HistorySize),
		pending: make(map[common.Hash]domain.PendingTransaction),
		tracer:  otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return s, nil
}

func (s *MonitorService) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &monitorMetrics{}

	s.metrics.waits, err = meter.Int64Counter(
		"tx_waits_total",
		metric.WithDescription("Confirmation waits by terminal result"),
	)
	if err != nil {
		return err
	}

	s.metrics.confirmLatency, err = meter.Float64Histogram(
		"tx_confirm_latency_seconds",
		metric.WithDescription("Time from wait start to required confirmations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	s.metrics.gasUsed, err = meter.Int64Histogram(
		"tx_gas_used",
		metric.WithDescription("Gas used by confirmed transactions"),
		metric.WithUnit("{gas}"),
	)
	if err != nil {
		return err
	}

	s.metrics.replacements, err = meter.Int64Counter(
		"tx_replacements_total",
		metric.WithDescription("Replacement submissions by action"),
	)
	if err != nil {
		return err
	}

	return nil
}

// WaitForTransaction blocks until the transaction reaches the required
// confirmations, reverts, or the timeout lapses. Zero required or
// timeout picks the configured defaults. The optional progress callback
// fires on the poll cadence; its poll errors are swallowed and never
// decide the outcome.
//
// The confirmation poller and the timeout race; whichever loses is
// cancelled so no poller outlives the call.
func (s *MonitorService) WaitForTransaction(
	ctx context.Context,
	hash string,
	required uint64,
	timeout time.Duration,
	onProgress func(domain.Progress),
) (*types.Receipt, error) {
	h, err := domain.ValidateHash(hash)
	if err != nil {
		return nil, err
	}

	if required == 0 {
		required = s.config.Confirmations
	}
	if timeout <= 0 {
		timeout = s.config.Timeout
	}

	ctx, span := s.tracer.Start(ctx, "tx.wait",
		trace.WithAttributes(
			attribute.String("hash", h.Hex()),
			attribute.Int64("required", int64(required)),
		),
	)
	defer span.End()

	s.trackPending(h, required)
	start := time.Now()

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		receipt       *types.Receipt
		confirmations uint64
		err           error
	}
	outCh := make(chan outcome, 1)

	go func() {
		receipt, confs, err := s.awaitConfirmations(waitCtx, h, required, onProgress)
		outCh <- outcome{receipt, confs, err}
	}()

	select {
	case out := <-outCh:
		if out.err != nil {
			s.removePending(h)
			s.recordWait(ctx, span, "reverted", out.err)
			return nil, out.err
		}

		s.removePending(h)
		s.history.Record(domain.HistoryEntry{
			Hash:          h,
			Receipt:       out.receipt,
			Timestamp:     time.Now(),
			Confirmations: out.confirmations,
		})
		s.metrics.waits.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "confirmed")))
		s.metrics.confirmLatency.Record(ctx, time.Since(start).Seconds())
		s.metrics.gasUsed.Record(ctx, int64(out.receipt.GasUsed))

		span.SetAttributes(attribute.Int64("confirmations", int64(out.confirmations)))
		span.SetStatus(codes.Ok, "confirmed")
		s.logger.Info(ctx, "transaction confirmed",
			"hash", h.Hex(),
			"confirmations", out.confirmations,
			"gas_used", out.receipt.GasUsed,
			"elapsed", time.Since(start).String())
		return out.receipt, nil

	case <-waitCtx.Done():
		s.removePending(h)
		if ctx.Err() != nil {
			// Caller cancelled; not a timeout of ours.
			s.recordWait(ctx, span, "cancelled", ctx.Err())
			return nil, ctx.Err()
		}
		err := apperror.New(apperror.CodeConfirmationTimeout,
			apperror.WithContext(fmt.Sprintf("transaction %s not confirmed within %s", h.Hex(), timeout)))
		s.recordWait(ctx, span, "timeout", err)
		return nil, err
	}
}

func (s *MonitorService) recordWait(ctx context.Context, span trace.Span, result string, err error) {
	s.metrics.waits.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	span.RecordError(err)
	span.SetStatus(codes.Error, result)
	s.logger.Warn(ctx, "confirmation wait ended without success", "result", result, "error", err)
}

// awaitConfirmations polls the receipt on the progress cadence until
// the transaction confirms or reverts. Poll errors keep the loop alive.
func (s *MonitorService) awaitConfirmations(
	ctx context.Context,
	h common.Hash,
	required uint64,
	onProgress func(domain.Progress),
) (*types.Receipt, uint64, error) {
	ticker := time.NewTicker(s.config.ProgressInterval)
	defer ticker.Stop()

	for {
		receipt, confs, done, err := s.checkOnce(ctx, h, required, onProgress)
		if done {
			return receipt, confs, err
		}

		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-ticker.C:
		}
	}
}

// checkOnce performs one receipt poll. done reports a terminal result:
// enough confirmations or an on-chain revert.
func (s *MonitorService) checkOnce(
	ctx context.Context,
	h common.Hash,
	required uint64,
	onProgress func(domain.Progress),
) (*types.Receipt, uint64, bool, error) {
	receipt, err := s.reader.TransactionReceipt(ctx, h)
	if err != nil {
		if apperror.Is(err, apperror.CodeTransactionNotFound) {
			// Not mined yet.
			if onProgress != nil {
				onProgress(domain.NewProgress(0, required))
			}
		} else {
			s.logger.Debug(ctx, "receipt poll failed", "hash", h.Hex(), "error", err)
		}
		return nil, 0, false, nil
	}

	if receipt.Status == types.ReceiptStatusFailed {
		return nil, 0, true, apperror.New(apperror.CodeTransactionReverted,
			apperror.WithContext(fmt.Sprintf("transaction %s reverted on chain", h.Hex())))
	}

	current, err := s.reader.BlockNumber(ctx)
	if err != nil {
		s.logger.Debug(ctx, "block number poll failed", "hash", h.Hex(), "error", err)
		return nil, 0, false, nil
	}

	confs := confirmationsOf(current, receipt)
	if onProgress != nil {
		onProgress(domain.NewProgress(confs, required))
	}
	if confs >= required {
		return receipt, confs, true, nil
	}
	return nil, confs, false, nil
}

func confirmationsOf(current uint64, receipt *types.Receipt) uint64 {
	if receipt.BlockNumber == nil {
		return 0
	}
	mined := receipt.BlockNumber.Uint64()
	if current < mined {
		return 0
	}
	return current - mined + 1
}

// ReplaceTransaction overwrites a pending transaction's nonce with a
// higher-priced successor: a zero-value self-transfer for cancel, the
// original call for speed-up. The multiplier is in basis points
// (12000 = 1.2x); zero picks the configured default.
func (s *MonitorService) ReplaceTransaction(
	ctx context.Context,
	hash string,
	action domain.ReplaceAction,
	multiplierBps int64,
) (*domain.Replacement, error) {
	h, err := domain.ValidateHash(hash)
	if err != nil {
		return nil, err
	}
	if !action.Valid() {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext(fmt.Sprintf("unknown replace action %q", action)))
	}
	if multiplierBps == 0 {
		multiplierBps = s.config.ReplaceMultiplierBps
	}
	if multiplierBps <= 10_000 {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("replacement price must exceed the original: multiplier over 10000 bps"))
	}

	ctx, span := s.tracer.Start(ctx, "tx.replace",
		trace.WithAttributes(
			attribute.String("hash", h.Hex()),
			attribute.String("action", string(action)),
		),
	)
	defer span.End()

	tx, isPending, err := s.reader.TransactionByHash(ctx, h)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !isPending {
		err := apperror.New(apperror.CodeAlreadyConfirmed,
			apperror.WithContext(fmt.Sprintf("transaction %s is already mined", h.Hex())))
		span.RecordError(err)
		return nil, err
	}

	sender, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("cannot recover transaction sender"))
	}

	newPrice := domain.ReplacementPrice(tx.GasPrice(), multiplierBps)
	nonce := tx.Nonce()

	var params eip1193.TxParams
	switch action {
	case domain.ActionCancel:
		params = eip1193.NewTxParams(sender, sender, big.NewInt(0), cancelGasLimit, newPrice, nil, &nonce)
	case domain.ActionSpeedUp:
		var to common.Address
		if tx.To() != nil {
			to = *tx.To()
		}
		params = eip1193.NewTxParams(sender, to, tx.Value(), tx.Gas(), newPrice, tx.Data(), &nonce)
	}

	newHash, err := s.wallet.SendTransaction(ctx, params)
	if err != nil {
		// Already classified by the provider; 4001 stays USER_REJECTED.
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission failed")
		return nil, err
	}

	s.removePending(h)
	s.metrics.replacements.Add(ctx, 1, metric.WithAttributes(attribute.String("action", string(action))))

	span.SetAttributes(attribute.String("new_hash", newHash.Hex()))
	span.SetStatus(codes.Ok, "replaced")
	s.logger.Info(ctx, "transaction replaced",
		"old_hash", h.Hex(),
		"new_hash", newHash.Hex(),
		"action", string(action),
		"gas_price_wei", newPrice.String())

	return &domain.Replacement{
		OldHash:     h,
		NewHash:     newHash,
		Action:      action,
		NewGasPrice: newPrice,
	}, nil
}

func (s *MonitorService) trackPending(h common.Hash, required uint64) {
	s.pendMu.Lock()
	defer s.pendMu.Unlock()
	s.pending[h] = domain.PendingTransaction{
		Hash:                  h,
		SubmittedAt:           time.Now(),
		RequiredConfirmations: required,
		Status:                domain.StatusSubmitted,
	}
}

func (s *MonitorService) removePending(h common.Hash) {
	s.pendMu.Lock()
	defer s.pendMu.Unlock()
	delete(s.pending, h)
}

// Pending returns a snapshot of transactions under watch, oldest first.
func (s *MonitorService) Pending() []domain.PendingTransaction {
	s.pendMu.RLock()
	defer s.pendMu.RUnlock()

	out := make([]domain.PendingTransaction, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out
}

// History returns a newest-first snapshot of confirmed transactions.
func (s *MonitorService) History() []domain.HistoryEntry {
	return s.history.Entries()
}

// AverageGasUsed is the running mean over every confirmed transaction.
func (s *MonitorService) AverageGasUsed() uint64 {
	return s.history.AverageGasUsed()
}
