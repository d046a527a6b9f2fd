package app

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/govwallet/business/wallet/domain"
	"github.com/fd1az/govwallet/business/wallet/infra/eip1193"
	"github.com/fd1az/govwallet/internal/apperror"
	"github.com/fd1az/govwallet/internal/logger"
)

// NetworkConfig pins the chain the client operates on and bounds how
// long to wait for the wallet to land there.
type NetworkConfig struct {
	Target       domain.NetworkTarget
	PollAttempts int
	PollInterval time.Duration
}

type networkMetrics struct {
	switches metric.Int64Counter
	adds     metric.Int64Counter
}

// NetworkService reconciles the wallet's active chain with the target.
type NetworkService struct {
	config   NetworkConfig
	logger   logger.LoggerInterface
	provider Provider

	tracer  trace.Tracer
	metrics *networkMetrics
}

// NewNetworkService creates the chain reconciler for the wallet context.
func NewNetworkService(cfg NetworkConfig, provider Provider, log logger.LoggerInterface) (*NetworkService, error) {
	s := &NetworkService{
		config:   cfg,
		logger:   log,
		provider: provider,
		tracer:   otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return s, nil
}

func (s *NetworkService) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &networkMetrics{}

	s.metrics.switches, err = meter.Int64Counter(
		"wallet_network_switches_total",
		metric.WithDescription("Network switch outcomes"),
	)
	if err != nil {
		return err
	}

	s.metrics.adds, err = meter.Int64Counter(
		"wallet_network_adds_total",
		metric.WithDescription("Network registration outcomes"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Target returns the chain this client is pinned to.
func (s *NetworkService) Target() domain.NetworkTarget {
	return s.config.Target
}

// SwitchNetwork asks the wallet to move to the target chain, registering
// the chain first when the wallet does not know it. The move only counts
// once the wallet reports the target chain id.
func (s *NetworkService) SwitchNetwork(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "wallet.switch_network",
		trace.WithAttributes(attribute.String("target", s.config.Target.ChainIDHex())))
	defer span.End()

	err := s.provider.SwitchChain(ctx, s.config.Target.ChainIDHex())
	switch {
	case err == nil:

	case apperror.Is(err, apperror.CodeUserRejected):
		span.RecordError(err)
		s.recordSwitch(ctx, "rejected")
		return err

	case apperror.Is(err, apperror.CodeUnknownChain) || apperror.Is(err, apperror.CodeChainRPCError):
		// The wallet does not know the chain. Register it; wallets move
		// there as part of the add flow.
		if rpcCode, ok := eip1193.RPCCode(err); ok {
			s.logger.Info(ctx, "target chain unknown to wallet, adding",
				"chain_id", s.config.Target.ChainID, "rpc_code", rpcCode)
		}
		if addErr := s.AddNetwork(ctx); addErr != nil {
			span.RecordError(addErr)
			s.recordSwitch(ctx, "add_failed")
			return addErr
		}

	default:
		span.RecordError(err)
		s.recordSwitch(ctx, "error")
		return err
	}

	if err := s.awaitTargetChain(ctx); err != nil {
		span.RecordError(err)
		s.recordSwitch(ctx, "timeout")
		return err
	}

	s.recordSwitch(ctx, "ok")
	s.logger.Info(ctx, "wallet switched to target chain",
		"chain_id", s.config.Target.ChainID)
	return nil
}

// AddNetwork registers the target chain with the wallet, carrying the
// RPC endpoint, explorer and native currency metadata from config.
func (s *NetworkService) AddNetwork(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "wallet.add_network")
	defer span.End()

	t := s.config.Target
	params := eip1193.AddChainParams{
		ChainID:   t.ChainIDHex(),
		ChainName: t.Name,
		RPCURLs:   []string{t.RPCURL},
		NativeCurrency: eip1193.ChainCurrency{
			Name:     t.Currency.Name,
			Symbol:   t.Currency.Symbol,
			Decimals: t.Currency.Decimals,
		},
	}
	if t.ExplorerURL != "" {
		params.BlockExplorerURLs = []string{t.ExplorerURL}
	}

	if err := s.provider.AddChain(ctx, params); err != nil {
		span.RecordError(err)
		s.metrics.adds.Add(ctx, 1,
			metric.WithAttributes(attribute.String("result", "error")))
		if apperror.Is(err, apperror.CodeUserRejected) {
			return err
		}
		return apperror.New(apperror.CodeNetworkAddRejected,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("wallet refused chain %s", t.ChainIDHex())))
	}

	s.metrics.adds.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", "ok")))
	return nil
}

// awaitTargetChain polls the reported chain id until it matches the
// target or the attempt budget runs out.
func (s *NetworkService) awaitTargetChain(ctx context.Context) error {
	for attempt := 0; attempt < s.config.PollAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.config.PollInterval):
			}
		}

		id, err := s.provider.ChainID(ctx)
		if err != nil {
			s.logger.Debug(ctx, "chain id poll failed", "attempt", attempt, "error", err)
			continue
		}
		if s.config.Target.Matches(id) {
			return nil
		}
	}

	return apperror.New(apperror.CodeNetworkSwitchTimeout,
		apperror.WithContext(fmt.Sprintf("chain %s not observed after %d polls",
			s.config.Target.ChainIDHex(), s.config.PollAttempts)))
}

func (s *NetworkService) recordSwitch(ctx context.Context, result string) {
	s.metrics.switches.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", result)))
}
