package app

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/govwallet/business/transaction/domain"
	"github.com/fd1az/govwallet/internal/apperror"
	"github.com/fd1az/govwallet/internal/asset"
	"github.com/fd1az/govwallet/internal/cache"
	"github.com/fd1az/govwallet/internal/logger"
)

const (
	tracerName = "transaction.app"
	meterName  = "transaction.app"
)

// priceCacheKey is the single slot the base quote occupies.
const priceCacheKey = "current"

// EstimatorConfig holds gas estimation parameters.
type EstimatorConfig struct {
	BufferPercent int64         // widening applied to simulated limits
	PriceTTL      time.Duration // how long one base quote is reused
	MaxGasPrice   *big.Int      // clamp in wei, nil disables
	ChainID       uint64        // denominates costs in the chain's native coin
}

type estimatorMetrics struct {
	estimates   metric.Int64Counter
	quotes      metric.Int64Counter
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
	priceGwei   metric.Float64Gauge
}

// EstimatorService answers "how much gas, at what price" ahead of
// submission. Limits come from node simulation plus a safety buffer;
// prices come from one TTL-cached base quote fanned into speed tiers.
type EstimatorService struct {
	config   EstimatorConfig
	logger   logger.LoggerInterface
	reader   ChainReader
	registry *asset.Registry
	prices   *cache.Cache[string, *big.Int]

	tracer  trace.Tracer
	metrics *estimatorMetrics
}

// NewEstimatorService creates the gas estimator for the transaction
// context.
func NewEstimatorService(
	cfg EstimatorConfig,
	reader ChainReader,
	registry *asset.Registry,
	log logger.LoggerInterface,
) (*EstimatorService, error) {
	s := &EstimatorService{
		config:   cfg,
		logger:   log,
		reader:   reader,
		registry: registry,
		prices:   cache.New[string, *big.Int](cfg.PriceTTL),
		tracer:   otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return s, nil
}

func (s *EstimatorService) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &estimatorMetrics{}

	s.metrics.estimates, err = meter.Int64Counter(
		"tx_gas_estimates_total",
		metric.WithDescription("Gas limit simulations"),
	)
	if err != nil {
		return err
	}

	s.metrics.quotes, err = meter.Int64Counter(
		"tx_gas_quotes_total",
		metric.WithDescription("Base gas price fetches"),
	)
	if err != nil {
		return err
	}

	s.metrics.cacheHits, err = meter.Int64Counter(
		"tx_gas_price_cache_hits_total",
		metric.WithDescription("Price tier reads served from cache"),
	)
	if err != nil {
		return err
	}

	s.metrics.cacheMisses, err = meter.Int64Counter(
		"tx_gas_price_cache_misses_total",
		metric.WithDescription("Price tier reads that hit the chain"),
	)
	if err != nil {
		return err
	}

	s.metrics.priceGwei, err = meter.Float64Gauge(
		"tx_gas_price_gwei",
		metric.WithDescription("Last clamped base gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	return nil
}

// EstimateGas simulates a call and returns the limit widened by
// bufferPercent; zero or negative means the configured default. A
// failed simulation means the call would revert or the parameters are
// wrong, so it surfaces as UNPREDICTABLE_GAS with the node's reason as
// the cause.
func (s *EstimatorService) EstimateGas(ctx context.Context, call ethereum.CallMsg, bufferPercent int64) (domain.Estimate, error) {
	if bufferPercent <= 0 {
		bufferPercent = s.config.BufferPercent
	}

	ctx, span := s.tracer.Start(ctx, "tx.estimate_gas")
	defer span.End()

	s.metrics.estimates.Add(ctx, 1)

	gas, err := s.reader.EstimateGas(ctx, call)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "simulation failed")
		return domain.Estimate{}, apperror.New(apperror.CodeUnpredictableGas,
			apperror.WithCause(err),
			apperror.WithContext("cannot estimate gas; check call parameters and contract state"))
	}

	est := domain.Estimate{
		Gas:           gas,
		Buffered:      domain.BufferedLimit(gas, bufferPercent),
		BufferPercent: bufferPercent,
	}

	span.SetAttributes(
		attribute.Int64("gas", int64(est.Gas)),
		attribute.Int64("buffered", int64(est.Buffered)),
	)
	span.SetStatus(codes.Ok, "estimated")
	return est, nil
}

// PriceTiers returns slow/standard/fast/instant prices derived from the
// current base quote.
func (s *EstimatorService) PriceTiers(ctx context.Context) (domain.Tiers, error) {
	base, err := s.basePrice(ctx)
	if err != nil {
		return domain.Tiers{}, err
	}
	return domain.TiersFromBase(base), nil
}

// EstimateCost prices a call end to end: buffered limit x tier price,
// denominated in the chain's native coin.
func (s *EstimatorService) EstimateCost(ctx context.Context, call ethereum.CallMsg, speed domain.Speed) (domain.Cost, error) {
	ctx, span := s.tracer.Start(ctx, "tx.estimate_cost",
		trace.WithAttributes(attribute.String("speed", string(speed))))
	defer span.End()

	est, err := s.EstimateGas(ctx, call, 0)
	if err != nil {
		return domain.Cost{}, err
	}

	tiers, err := s.PriceTiers(ctx)
	if err != nil {
		return domain.Cost{}, err
	}

	price, ok := tiers.ForSpeed(speed)
	if !ok {
		return domain.Cost{}, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext(fmt.Sprintf("unknown speed %q", speed)))
	}

	cost := domain.NewCost(est.Buffered, price, speed, s.nativeAsset())

	span.SetAttributes(attribute.String("total", cost.Total.String()))
	return cost, nil
}

// basePrice returns the cached base quote, refreshing it from the node
// when the TTL has lapsed. Quotes above the configured maximum are
// clamped, not rejected.
func (s *EstimatorService) basePrice(ctx context.Context) (*big.Int, error) {
	if wei, ok := s.prices.Get(ctx, priceCacheKey); ok {
		s.metrics.cacheHits.Add(ctx, 1)
		return new(big.Int).Set(wei), nil
	}
	s.metrics.cacheMisses.Add(ctx, 1)
	s.metrics.quotes.Add(ctx, 1)

	wei, err := s.reader.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	if s.config.MaxGasPrice != nil && wei.Cmp(s.config.MaxGasPrice) > 0 {
		s.logger.Warn(ctx, "gas price exceeds configured maximum, clamping",
			"quoted_wei", wei.String(), "max_wei", s.config.MaxGasPrice.String())
		wei = new(big.Int).Set(s.config.MaxGasPrice)
	}

	s.prices.Set(ctx, priceCacheKey, new(big.Int).Set(wei), s.config.PriceTTL)
	s.metrics.priceGwei.Record(ctx, weiToGwei(wei))

	return wei, nil
}

func (s *EstimatorService) nativeAsset() *asset.Asset {
	if a, ok := s.registry.GetNative(s.config.ChainID); ok {
		return a
	}
	return asset.MustNewNative(s.config.ChainID, "NATIVE", "Unknown Native Token", 18)
}

// weiToGwei converts for metric display only; quoting math stays in
// integer wei.
func weiToGwei(wei *big.Int) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e9)).Float64()
	return f
}

// Close stops the price cache janitor.
func (s *EstimatorService) Close() {
	s.prices.Close()
}
