package app

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/govwallet/business/wallet/domain"
	"github.com/fd1az/govwallet/internal/apperror"
	"github.com/fd1az/govwallet/internal/events"
	"github.com/fd1az/govwallet/internal/logger"
)

const (
	tracerName = "wallet.app"
	meterName  = "wallet.app"
)

// Gauge values reported for the connection state.
const (
	gaugeDisconnected = 0
	gaugeConnecting   = 1
	gaugeConnected    = 2
)

// ConnectionConfig bounds the connect retry budget.
type ConnectionConfig struct {
	MaxAttempts int
	Cooldown    time.Duration
}

type connectionMetrics struct {
	attempts metric.Int64Counter
	failures metric.Int64Counter
	state    metric.Int64Gauge
}

// ConnectionService owns the wallet session lifecycle: it is the only
// writer of the connection state. Exactly one connect sequence runs at
// a time; overlapping callers get a fast false and watch the event hub.
type ConnectionService struct {
	config   ConnectionConfig
	logger   logger.LoggerInterface
	provider Provider
	network  *NetworkService
	balances Invalidator
	hub      *events.Hub[domain.Event]

	mu    sync.RWMutex
	state domain.ConnectionState

	connecting atomic.Bool

	tracer  trace.Tracer
	metrics *connectionMetrics
}

// NewConnectionService creates the session owner for the wallet context.
func NewConnectionService(
	cfg ConnectionConfig,
	provider Provider,
	network *NetworkService,
	balances Invalidator,
	hub *events.Hub[domain.Event],
	log logger.LoggerInterface,
) (*ConnectionService, error) {
	s := &ConnectionService{
		config:   cfg,
		logger:   log,
		provider: provider,
		network:  network,
		balances: balances,
		hub:      hub,
		tracer:   otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return s, nil
}

func (s *ConnectionService) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &connectionMetrics{}

	s.metrics.attempts, err = meter.Int64Counter(
		"wallet_connect_attempts_total",
		metric.WithDescription("Connect attempts consumed from the retry budget"),
	)
	if err != nil {
		return err
	}

	s.metrics.failures, err = meter.Int64Counter(
		"wallet_connect_failures_total",
		metric.WithDescription("Connect attempts that ended in a classified error"),
	)
	if err != nil {
		return err
	}

	s.metrics.state, err = meter.Int64Gauge(
		"wallet_connection_state",
		metric.WithDescription("Connection state: 0 disconnected, 1 connecting, 2 connected"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Connect establishes the wallet session. The bool is true when a
// session is live on return, and false without error when another
// connect already owns the attempt.
func (s *ConnectionService) Connect(ctx context.Context) (bool, error) {
	s.mu.RLock()
	connected := s.state.Connected
	s.mu.RUnlock()
	if connected {
		return true, nil
	}

	if !s.connecting.CompareAndSwap(false, true) {
		// A concurrent call is mid-handshake. No second account prompt.
		return false, nil
	}
	defer s.connecting.Store(false)

	ctx, span := s.tracer.Start(ctx, "wallet.connect")
	defer span.End()

	if !s.provider.IsAvailable() {
		return false, s.failConnect(ctx, span, apperror.New(apperror.CodeWalletUnavailable,
			apperror.WithContext("no wallet provider transport available")))
	}

	if err := s.consumeAttempt(ctx); err != nil {
		return false, s.failConnect(ctx, span, err)
	}

	s.mu.Lock()
	s.state.Connecting = true
	s.mu.Unlock()
	s.metrics.state.Record(ctx, gaugeConnecting)

	started := time.Now()
	addr, chainID, err := s.establish(ctx)
	if err != nil {
		s.mu.Lock()
		s.state.Connecting = false
		s.mu.Unlock()
		return false, s.failConnect(ctx, span, err)
	}

	s.mu.Lock()
	s.state.Address = addr
	s.state.ChainID = chainID
	s.state.Connected = true
	s.state.Connecting = false
	s.state.ConnectionAttempts = 0
	s.mu.Unlock()

	elapsed := time.Since(started)
	s.metrics.state.Record(ctx, gaugeConnected)
	span.SetAttributes(
		attribute.String("wallet.address", addr.Hex()),
		attribute.String("wallet.chain_id", chainID.String()),
	)
	s.logger.Info(ctx, "wallet connected",
		"address", addr.Hex(), "chain_id", chainID, "elapsed", elapsed)
	s.hub.Publish(domain.NewConnectedEvent(addr, chainID, elapsed))

	return true, nil
}

// consumeAttempt enforces the retry budget: MaxAttempts within the
// cooldown window, counter reset once the window elapses or a connect
// succeeds.
func (s *ConnectionService) consumeAttempt(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.state.ConnectionAttempts >= s.config.MaxAttempts {
		since := now.Sub(s.state.LastConnectionTime)
		if since < s.config.Cooldown {
			return apperror.New(apperror.CodeTooManyAttempts,
				apperror.WithContext(fmt.Sprintf("retry allowed in %s",
					(s.config.Cooldown - since).Round(time.Second))))
		}
		s.state.ConnectionAttempts = 0
	}
	s.state.ConnectionAttempts++
	s.state.LastConnectionTime = now
	s.metrics.attempts.Add(ctx, 1)
	return nil
}

// establish runs the wire sequence: authorize accounts, read the chain,
// reconcile with the target network when they differ.
func (s *ConnectionService) establish(ctx context.Context) (common.Address, *big.Int, error) {
	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		return common.Address{}, nil, err
	}
	if len(accounts) == 0 {
		return common.Address{}, nil, apperror.New(apperror.CodeWalletUnavailable,
			apperror.WithContext("wallet authorized no accounts"))
	}
	addr := accounts[0]

	chainID, err := s.provider.ChainID(ctx)
	if err != nil {
		return common.Address{}, nil, err
	}

	target := s.network.Target()
	if !target.Matches(chainID) {
		s.logger.Info(ctx, "wallet on wrong chain, reconciling",
			"current", chainID, "target", target.ChainID)
		if err := s.network.SwitchNetwork(ctx); err != nil {
			return common.Address{}, nil, err
		}
		chainID = new(big.Int).Set(target.ChainID)
	}

	return addr, chainID, nil
}

func (s *ConnectionService) failConnect(ctx context.Context, span trace.Span, err error) error {
	s.metrics.failures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("code", string(apperror.GetCode(err)))))
	s.metrics.state.Record(ctx, gaugeDisconnected)
	span.RecordError(err)
	span.SetStatus(codes.Error, "connect failed")
	s.logger.Warn(ctx, "wallet connect failed", "error", err)
	s.hub.Publish(domain.NewErrorEvent(err))
	return err
}

// CheckConnection silently probes for an authorized account and
// restores the session when one exists. The probe itself never prompts
// the wallet holder.
func (s *ConnectionService) CheckConnection(ctx context.Context) (bool, error) {
	s.mu.RLock()
	connected := s.state.Connected
	s.mu.RUnlock()
	if connected {
		return true, nil
	}

	if !s.provider.IsAvailable() {
		return false, nil
	}

	ctx, span := s.tracer.Start(ctx, "wallet.check_connection")
	defer span.End()

	accounts, err := s.provider.Accounts(ctx)
	if err != nil {
		s.logger.Debug(ctx, "connection probe failed", "error", err)
		return false, nil
	}
	if len(accounts) == 0 {
		return false, nil
	}

	// An authorized account exists, so the full connect path will not
	// raise a prompt.
	return s.Connect(ctx)
}

// VerifyConnection audits local state against the wallet. A session
// whose account or chain no longer matches is torn down.
func (s *ConnectionService) VerifyConnection(ctx context.Context) (bool, error) {
	s.mu.RLock()
	st := s.state.Clone()
	s.mu.RUnlock()
	if !st.Connected {
		return false, nil
	}

	ctx, span := s.tracer.Start(ctx, "wallet.verify_connection")
	defer span.End()

	accounts, err := s.provider.Accounts(ctx)
	if err != nil {
		span.RecordError(err)
		_ = s.Disconnect(ctx)
		return false, err
	}
	if !containsAddress(accounts, st.Address) {
		s.logger.Warn(ctx, "active account no longer authorized",
			"address", st.Address.Hex())
		_ = s.Disconnect(ctx)
		return false, nil
	}

	chainID, err := s.provider.ChainID(ctx)
	if err != nil {
		span.RecordError(err)
		_ = s.Disconnect(ctx)
		return false, err
	}
	if st.ChainID != nil && chainID.Cmp(st.ChainID) != 0 {
		s.logger.Warn(ctx, "wallet chain diverged from session state",
			"state", st.ChainID, "wallet", chainID)
		_ = s.Disconnect(ctx)
		return false, nil
	}

	return true, nil
}

// Disconnect resets the session and derived caches. Safe to call when
// already disconnected. The retry budget survives so a disconnect
// cannot be used to dodge the cooldown.
func (s *ConnectionService) Disconnect(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "wallet.disconnect")
	defer span.End()

	s.mu.Lock()
	active := s.state.Connected || s.state.HasAccount()
	s.state = domain.ConnectionState{
		ConnectionAttempts: s.state.ConnectionAttempts,
		LastConnectionTime: s.state.LastConnectionTime,
	}
	s.mu.Unlock()

	if !active {
		return nil
	}

	s.balances.Invalidate()
	s.metrics.state.Record(ctx, gaugeDisconnected)
	s.logger.Info(ctx, "wallet disconnected")
	s.hub.Publish(domain.NewDisconnectedEvent())
	return nil
}

// OnAccountsChanged reacts to a wallet-side account switch. An empty
// list means the wallet revoked access.
func (s *ConnectionService) OnAccountsChanged(ctx context.Context, accounts []common.Address) {
	if len(accounts) == 0 {
		_ = s.Disconnect(ctx)
		return
	}

	s.mu.Lock()
	prev := s.state.Address
	s.state.Address = accounts[0]
	s.mu.Unlock()

	s.balances.Invalidate()
	s.logger.Info(ctx, "active account changed",
		"previous", prev.Hex(), "address", accounts[0].Hex())
	s.hub.Publish(domain.NewAccountsChangedEvent(accounts))
}

// OnChainChanged reacts to a wallet-side chain switch.
func (s *ConnectionService) OnChainChanged(ctx context.Context, chainID *big.Int) {
	s.mu.Lock()
	s.state.ChainID = chainID
	s.mu.Unlock()

	s.balances.Invalidate()
	matches := s.network.Target().Matches(chainID)
	s.logger.Info(ctx, "wallet chain changed",
		"chain_id", chainID, "matches_target", matches)
	s.hub.Publish(domain.NewChainChangedEvent(chainID, matches))
}

// OnProviderDisconnect reacts to the provider dropping the session.
func (s *ConnectionService) OnProviderDisconnect(ctx context.Context) {
	_ = s.Disconnect(ctx)
}

// State returns a copy of the current connection state.
func (s *ConnectionService) State() domain.ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

func containsAddress(list []common.Address, addr common.Address) bool {
	for _, a := range list {
		if a == addr {
			return true
		}
	}
	return false
}
