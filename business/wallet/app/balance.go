package app

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/govwallet/business/wallet/domain"
	"github.com/fd1az/govwallet/internal/apperror"
	"github.com/fd1az/govwallet/internal/asset"
	"github.com/fd1az/govwallet/internal/cache"
	"github.com/fd1az/govwallet/internal/logger"
)

// BalanceConfig bounds how long a fetched balance is served from cache.
type BalanceConfig struct {
	TTL time.Duration
}

// BalanceKey identifies one cached balance.
type BalanceKey struct {
	Address common.Address
	ChainID uint64
}

type balanceMetrics struct {
	hits   metric.Int64Counter
	misses metric.Int64Counter
}

// BalanceService serves the active account's native balance through a
// TTL cache keyed by account and chain. The connection service clears
// the cache whenever the session identity changes.
type BalanceService struct {
	config   BalanceConfig
	logger   logger.LoggerInterface
	reader   BalanceReader
	session  SessionFn
	registry *asset.Registry
	cache    *cache.Cache[BalanceKey, domain.Balance]

	tracer  trace.Tracer
	metrics *balanceMetrics
}

// NewBalanceService creates the balance cache for the wallet context.
func NewBalanceService(
	cfg BalanceConfig,
	reader BalanceReader,
	session SessionFn,
	registry *asset.Registry,
	log logger.LoggerInterface,
) (*BalanceService, error) {
	s := &BalanceService{
		config:   cfg,
		logger:   log,
		reader:   reader,
		session:  session,
		registry: registry,
		cache:    cache.New[BalanceKey, domain.Balance](cfg.TTL),
		tracer:   otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return s, nil
}

func (s *BalanceService) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &balanceMetrics{}

	s.metrics.hits, err = meter.Int64Counter(
		"wallet_balance_cache_hits_total",
		metric.WithDescription("Balance reads served from cache"),
	)
	if err != nil {
		return err
	}

	s.metrics.misses, err = meter.Int64Counter(
		"wallet_balance_cache_misses_total",
		metric.WithDescription("Balance reads that hit the chain"),
	)
	if err != nil {
		return err
	}

	return nil
}

// GetBalance returns the active account's native balance. Values
// younger than the TTL are served from cache unless fresh forces a
// chain query.
func (s *BalanceService) GetBalance(ctx context.Context, fresh bool) (domain.Balance, error) {
	st := s.session()
	if !st.Connected || !st.HasAccount() {
		return domain.Balance{}, apperror.New(apperror.CodeWalletUnavailable,
			apperror.WithContext("no active wallet session"))
	}

	ctx, span := s.tracer.Start(ctx, "wallet.get_balance",
		trace.WithAttributes(attribute.Bool("fresh", fresh)))
	defer span.End()

	key := BalanceKey{Address: st.Address, ChainID: st.ChainIDUint64()}
	if !fresh {
		if cached, ok := s.cache.Get(ctx, key); ok {
			s.metrics.hits.Add(ctx, 1)
			cached.Cached = true
			return cached, nil
		}
	}
	s.metrics.misses.Add(ctx, 1)

	wei, err := s.reader.BalanceAt(ctx, st.Address, nil)
	if err != nil {
		span.RecordError(err)
		return domain.Balance{}, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("balance query failed"))
	}

	bal := domain.Balance{
		Amount:    asset.NewAmount(s.nativeAsset(key.ChainID), wei),
		FetchedAt: time.Now(),
	}
	s.cache.Set(ctx, key, bal, s.config.TTL)

	s.logger.Debug(ctx, "balance fetched",
		"address", st.Address.Hex(), "chain_id", key.ChainID, "balance", bal.Amount.String())
	return bal, nil
}

// nativeAsset resolves the native currency for a chain, falling back to
// an 18-decimal placeholder for chains missing from the registry.
func (s *BalanceService) nativeAsset(chainID uint64) *asset.Asset {
	if a, ok := s.registry.GetNative(chainID); ok {
		return a
	}
	return asset.MustNewNative(chainID, "NATIVE", "Unknown Native Token", 18)
}

// Invalidate drops every cached balance.
func (s *BalanceService) Invalidate() {
	s.cache.Clear(context.Background())
}

// Close stops the cache janitor.
func (s *BalanceService) Close() {
	s.cache.Close()
}
