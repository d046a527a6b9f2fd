package app

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/govwallet/business/wallet/domain"
	"github.com/fd1az/govwallet/business/wallet/infra/eip1193"
	"github.com/fd1az/govwallet/internal/events"
	"github.com/fd1az/govwallet/internal/logger"
)

type bridgeMetrics struct {
	bridged        metric.Int64Counter
	decodeFailures metric.Int64Counter
}

// Bridge pumps wallet push notifications into the connection service
// and exposes the resulting typed event stream. Exactly one pump runs
// per bridge no matter how many times Start is called.
type Bridge struct {
	logger   logger.LoggerInterface
	provider Provider
	conn     ConnectionEvents
	hub      *events.Hub[domain.Event]

	started atomic.Bool
	closed  atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	metrics *bridgeMetrics
}

// NewBridge wires the provider notification stream to the session owner.
func NewBridge(
	provider Provider,
	conn ConnectionEvents,
	hub *events.Hub[domain.Event],
	log logger.LoggerInterface,
) (*Bridge, error) {
	b := &Bridge{
		logger:   log,
		provider: provider,
		conn:     conn,
		hub:      hub,
		done:     make(chan struct{}),
	}
	if err := b.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return b, nil
}

func (b *Bridge) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	b.metrics = &bridgeMetrics{}

	b.metrics.bridged, err = meter.Int64Counter(
		"wallet_events_bridged_total",
		metric.WithDescription("Provider notifications forwarded to the session owner"),
	)
	if err != nil {
		return err
	}

	b.metrics.decodeFailures, err = meter.Int64Counter(
		"wallet_event_decode_failures_total",
		metric.WithDescription("Provider notifications dropped as undecodable"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Start launches the notification pump. Repeat calls are no-ops.
func (b *Bridge) Start(ctx context.Context) error {
	if b.closed.Load() {
		return nil
	}
	if !b.started.CompareAndSwap(false, true) {
		return nil
	}

	// The pump outlives the startup context; Close owns its lifetime.
	runCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	go b.run(runCtx)

	b.logger.Info(ctx, "wallet event bridge started")
	return nil
}

func (b *Bridge) run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-b.provider.Notifications():
			if !ok {
				return
			}
			b.dispatch(ctx, n)
		}
	}
}

func (b *Bridge) dispatch(ctx context.Context, n eip1193.Notification) {
	b.metrics.bridged.Add(ctx, 1,
		metric.WithAttributes(attribute.String("method", n.Method)))

	switch n.Method {
	case eip1193.NotifyAccountsChanged:
		accounts, err := n.ParseAccounts()
		if err != nil {
			b.decodeFailure(ctx, n.Method, err)
			return
		}
		b.conn.OnAccountsChanged(ctx, accounts)

	case eip1193.NotifyChainChanged:
		chainID, err := n.ParseChainID()
		if err != nil {
			b.decodeFailure(ctx, n.Method, err)
			return
		}
		b.conn.OnChainChanged(ctx, chainID)

	case eip1193.NotifyDisconnect:
		b.conn.OnProviderDisconnect(ctx)

	case eip1193.NotifyMessage:
		b.logger.Debug(ctx, "provider message", "params", string(n.Params))

	default:
		b.logger.Debug(ctx, "unhandled provider notification", "method", n.Method)
	}
}

func (b *Bridge) decodeFailure(ctx context.Context, method string, err error) {
	b.metrics.decodeFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("method", method)))
	b.logger.Warn(ctx, "undecodable provider notification",
		"method", method, "error", err)
}

// Subscribe attaches a consumer to the wallet event stream.
func (b *Bridge) Subscribe() (events.Subscription, <-chan domain.Event) {
	return b.hub.Subscribe()
}

// Unsubscribe detaches a consumer.
func (b *Bridge) Unsubscribe(id events.Subscription) {
	b.hub.Unsubscribe(id)
}

// Close stops the pump and closes the event stream. Idempotent.
func (b *Bridge) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	if b.started.Load() {
		b.cancel()
		<-b.done
	}
	b.hub.Close()
	return nil
}
