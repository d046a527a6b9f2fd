package eip1193

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/govwallet/internal/addrcodec"
	"github.com/fd1az/govwallet/internal/apperror"
	"github.com/fd1az/govwallet/internal/circuitbreaker"
	"github.com/fd1az/govwallet/internal/httpclient"
	"github.com/fd1az/govwallet/internal/logger"
	"github.com/fd1az/govwallet/internal/ratelimit"
	"github.com/fd1az/govwallet/internal/wsconn"
)

const (
	tracerName = "eip1193"
	meterName  = "eip1193"

	// Buffered notification fan-in; pushes beyond this drop.
	notificationBuffer = 32
)

// Config holds configuration for the wallet provider session.
type Config struct {
	WebSocketURL   string // push-capable JSON-RPC endpoint
	HTTPURL        string // request/response fallback; empty disables
	Name           string
	RequestTimeout time.Duration
	RateLimitRPM   int
	MaxReconnects  int // 0 = infinite
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(wsURL, httpURL string) Config {
	return Config{
		WebSocketURL:   wsURL,
		HTTPURL:        httpURL,
		Name:           "wallet-provider",
		RequestTimeout: 30 * time.Second,
		RateLimitRPM:   600,
		MaxReconnects:  0,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

// providerMetrics holds OTEL metric instruments.
type providerMetrics struct {
	requests      metric.Int64Counter
	failures      metric.Int64Counter
	notifications metric.Int64Counter
	dropped       metric.Int64Counter
	latency       metric.Float64Histogram
}

// Provider is the EIP-1193-style wallet session. Requests are JSON-RPC
// calls correlated by id over the WebSocket; wallet pushes
// (accountsChanged, chainChanged, disconnect) arrive on the same socket
// and are surfaced on Notifications for the event bridge.
type Provider struct {
	config Config
	logger logger.LoggerInterface

	ws   *wsconn.Client
	wsMu sync.RWMutex

	http httpclient.Client

	limiter *ratelimit.Limiter
	breaker *circuitbreaker.CircuitBreaker[*rpcResponse]

	nextID  atomic.Uint64
	pending map[uint64]chan *rpcResponse
	pendMu  sync.Mutex

	notifyCh chan Notification
	closed   atomic.Bool

	tracer  trace.Tracer
	metrics *providerMetrics
}

// New creates a wallet provider session. Connect must be called before
// WebSocket traffic flows; HTTP-only configs skip Connect entirely.
func New(cfg Config, log logger.LoggerInterface) (*Provider, error) {
	if cfg.WebSocketURL == "" && cfg.HTTPURL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("provider needs a websocket or http endpoint"))
	}

	p := &Provider{
		config:   cfg,
		logger:   log,
		limiter:  ratelimit.New(cfg.RateLimitRPM),
		breaker:  circuitbreaker.New[*rpcResponse](circuitbreaker.DefaultConfig(cfg.Name)),
		pending:  make(map[uint64]chan *rpcResponse),
		notifyCh: make(chan Notification, notificationBuffer),
		tracer:   otel.Tracer(tracerName),
	}

	if cfg.HTTPURL != "" {
		hc, err := httpclient.NewInstrumentedClient(
			httpclient.WithProviderName(cfg.Name),
			httpclient.WithRequestTimeout(cfg.RequestTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("init http fallback: %w", err)
		}
		p.http = hc
	}

	if err := p.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return p, nil
}

func (p *Provider) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	p.metrics = &providerMetrics{}

	p.metrics.requests, err = meter.Int64Counter(
		"wallet_provider_requests_total",
		metric.WithDescription("Total provider requests"),
	)
	if err != nil {
		return err
	}

	p.metrics.failures, err = meter.Int64Counter(
		"wallet_provider_failures_total",
		metric.WithDescription("Provider requests that failed"),
	)
	if err != nil {
		return err
	}

	p.metrics.notifications, err = meter.Int64Counter(
		"wallet_provider_notifications_total",
		metric.WithDescription("Push notifications received"),
	)
	if err != nil {
		return err
	}

	p.metrics.dropped, err = meter.Int64Counter(
		"wallet_provider_notifications_dropped_total",
		metric.WithDescription("Push notifications dropped by a full buffer"),
	)
	if err != nil {
		return err
	}

	p.metrics.latency, err = meter.Float64Histogram(
		"wallet_provider_request_seconds",
		metric.WithDescription("Provider request latency"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Connect establishes the WebSocket session. No-op for HTTP-only configs.
func (p *Provider) Connect(ctx context.Context) error {
	if p.config.WebSocketURL == "" {
		return nil
	}

	ctx, span := p.tracer.Start(ctx, "eip1193.connect",
		trace.WithAttributes(attribute.String("provider", p.config.Name)),
	)
	defer span.End()

	wsCfg := wsconn.DefaultConfig(p.config.WebSocketURL, p.config.Name)
	wsCfg.MaxReconnects = p.config.MaxReconnects
	wsCfg.InitialBackoff = p.config.InitialBackoff
	wsCfg.MaxBackoff = p.config.MaxBackoff

	conn, err := wsconn.New(wsCfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "wsconn setup failed")
		return apperror.New(apperror.CodeProviderUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("failed to create provider socket"))
	}

	conn.OnMessage(p.handleMessage)
	conn.OnStateChange(func(state wsconn.State, cause error) {
		p.logger.Debug(context.Background(), "provider socket state changed",
			"state", state, "error", cause)
	})

	if err := conn.ConnectWithRetry(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "connect failed")
		return apperror.New(apperror.CodeProviderUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("failed to connect to wallet provider"))
	}

	p.wsMu.Lock()
	p.ws = conn
	p.wsMu.Unlock()

	p.logger.Info(ctx, "wallet provider connected", "url", p.config.WebSocketURL)
	return nil
}

// handleMessage routes inbound frames: replies go to the caller waiting
// on the matching id, notifications go to the bridge channel.
func (p *Provider) handleMessage(ctx context.Context, data []byte) {
	var msg rpcResponse
	if err := json.Unmarshal(data, &msg); err != nil {
		p.logger.Debug(ctx, "unparseable provider frame", "error", err)
		return
	}

	if msg.ID != nil {
		p.pendMu.Lock()
		ch, ok := p.pending[*msg.ID]
		if ok {
			delete(p.pending, *msg.ID)
		}
		p.pendMu.Unlock()
		if ok {
			ch <- &msg // buffered, never blocks
		}
		return
	}

	if msg.Method == "" {
		return
	}

	p.metrics.notifications.Add(ctx, 1,
		metric.WithAttributes(attribute.String("method", msg.Method)))

	if p.closed.Load() {
		return
	}
	select {
	case p.notifyCh <- Notification{Method: msg.Method, Params: msg.Params}:
	default:
		p.metrics.dropped.Add(ctx, 1)
		p.logger.Warn(ctx, "notification dropped", "method", msg.Method)
	}
}

// Request issues a JSON-RPC call and returns the raw result. Provider
// error objects are classified into typed application errors.
func (p *Provider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if p.closed.Load() {
		return nil, apperror.New(apperror.CodeProviderUnavailable,
			apperror.WithContext("provider closed"))
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err))
	}

	ctx, span := p.tracer.Start(ctx, "eip1193.request",
		trace.WithAttributes(
			attribute.String("rpc.method", method),
			attribute.String("provider", p.config.Name),
		),
	)
	defer span.End()

	start := time.Now()
	p.metrics.requests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("method", method)))

	if params == nil {
		params = []any{}
	}
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      p.nextID.Add(1),
		Method:  method,
		Params:  params,
	}

	resp, err := p.breaker.Execute(func() (*rpcResponse, error) {
		return p.dispatch(ctx, req)
	})
	p.metrics.latency.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("method", method)))

	if err != nil {
		p.metrics.failures.Add(ctx, 1,
			metric.WithAttributes(attribute.String("method", method)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		if apperror.IsAppError(err) {
			return nil, err
		}
		return nil, apperror.New(apperror.CodeProviderUnavailable,
			apperror.WithCause(err),
			apperror.WithContext(method))
	}

	// Wallet replied with an error object: sound transport, classified fault.
	if resp.Error != nil {
		appErr := classifyRPCError(resp.Error, method)
		span.SetAttributes(attribute.Int("rpc.error_code", resp.Error.Code))
		span.SetStatus(codes.Error, resp.Error.Message)
		return nil, appErr
	}

	return resp.Result, nil
}

// dispatch sends one request over the live transport and waits for the
// correlated reply. Only transport faults count against the breaker.
func (p *Provider) dispatch(ctx context.Context, req rpcRequest) (*rpcResponse, error) {
	p.wsMu.RLock()
	ws := p.ws
	p.wsMu.RUnlock()

	if ws != nil && ws.IsConnected() {
		return p.dispatchWS(ctx, ws, req)
	}
	if p.http != nil {
		return p.dispatchHTTP(ctx, req)
	}
	return nil, apperror.New(apperror.CodeProviderUnavailable,
		apperror.WithContext("no live transport"))
}

func (p *Provider) dispatchWS(ctx context.Context, ws *wsconn.Client, req rpcRequest) (*rpcResponse, error) {
	respCh := make(chan *rpcResponse, 1)
	p.pendMu.Lock()
	p.pending[req.ID] = respCh
	p.pendMu.Unlock()

	cleanup := func() {
		p.pendMu.Lock()
		delete(p.pending, req.ID)
		p.pendMu.Unlock()
	}

	if err := ws.SendJSON(ctx, req); err != nil {
		cleanup()
		return nil, err
	}

	timer := time.NewTimer(p.config.RequestTimeout)
	defer timer.Stop()

	select {
	case resp := <-respCh:
		if resp == nil { // channel closed by Close
			return nil, apperror.New(apperror.CodeProviderUnavailable,
				apperror.WithContext("provider closed"))
		}
		return resp, nil
	case <-timer.C:
		cleanup()
		return nil, apperror.New(apperror.CodeServiceTimeout,
			apperror.WithContext(req.Method))
	case <-ctx.Done():
		cleanup()
		return nil, ctx.Err()
	}
}

func (p *Provider) dispatchHTTP(ctx context.Context, req rpcRequest) (*rpcResponse, error) {
	var out rpcResponse
	resp, err := p.http.NewRequest().
		SetBody(req).
		SetHeader("Content-Type", "application/json").
		SetResult(&out).
		Post(ctx, p.config.HTTPURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("provider http status %d", resp.StatusCode)
	}
	return &out, nil
}

// classifyRPCError maps provider error codes onto the application
// taxonomy, keeping the raw RPCError in the cause chain.
func classifyRPCError(rpcErr *RPCError, method string) error {
	var code apperror.Code
	switch rpcErr.Code {
	case rpcCodeUserRejected:
		code = apperror.CodeUserRejected
	case rpcCodeRequestQueued:
		code = apperror.CodeWalletLocked
	case rpcCodeUnknownChain:
		code = apperror.CodeUnknownChain
	case rpcCodeInternal:
		code = apperror.CodeChainRPCError
	default:
		code = apperror.CodeProviderUnavailable
	}
	return apperror.New(code,
		apperror.WithCause(rpcErr),
		apperror.WithContext(method))
}

// RPCCode extracts the provider error code from a classified error.
func RPCCode(err error) (int, bool) {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code, true
	}
	return 0, false
}

// ----------------------------------------------------------------------------
// Typed wallet methods
// ----------------------------------------------------------------------------

// RequestAccounts prompts the wallet to authorize accounts.
func (p *Provider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	raw, err := p.Request(ctx, MethodRequestAccounts)
	if err != nil {
		return nil, err
	}
	return decodeAccounts(raw)
}

// Accounts returns already-authorized accounts without prompting.
func (p *Provider) Accounts(ctx context.Context) ([]common.Address, error) {
	raw, err := p.Request(ctx, MethodAccounts)
	if err != nil {
		return nil, err
	}
	return decodeAccounts(raw)
}

// ChainID returns the chain the wallet currently targets.
func (p *Provider) ChainID(ctx context.Context) (*big.Int, error) {
	raw, err := p.Request(ctx, MethodChainID)
	if err != nil {
		return nil, err
	}
	var hex string
	if err := json.Unmarshal(raw, &hex); err != nil {
		return nil, apperror.New(apperror.CodeProviderUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("malformed chain id result"))
	}
	id, err := hexutil.DecodeBig(hex)
	if err != nil {
		return nil, apperror.New(apperror.CodeProviderUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("malformed chain id result"))
	}
	return id, nil
}

// GetBalance reads the latest native balance of an address.
func (p *Provider) GetBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	raw, err := p.Request(ctx, MethodGetBalance, addr.Hex(), "latest")
	if err != nil {
		return nil, err
	}
	var hex string
	if err := json.Unmarshal(raw, &hex); err != nil {
		return nil, apperror.New(apperror.CodeProviderUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("malformed balance result"))
	}
	wei, err := hexutil.DecodeBig(hex)
	if err != nil {
		return nil, apperror.New(apperror.CodeProviderUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("malformed balance result"))
	}
	return wei, nil
}

// SendTransaction submits a transaction for wallet-side signing.
func (p *Provider) SendTransaction(ctx context.Context, tx TxParams) (common.Hash, error) {
	raw, err := p.Request(ctx, MethodSendTransaction, tx)
	if err != nil {
		return common.Hash{}, err
	}
	var hex string
	if err := json.Unmarshal(raw, &hex); err != nil {
		return common.Hash{}, apperror.New(apperror.CodeProviderUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("malformed transaction hash result"))
	}
	return common.HexToHash(hex), nil
}

// SwitchChain asks the wallet to move to the given chain.
func (p *Provider) SwitchChain(ctx context.Context, chainIDHex string) error {
	_, err := p.Request(ctx, MethodSwitchChain, SwitchChainParams{ChainID: chainIDHex})
	return err
}

// AddChain registers a chain with the wallet.
func (p *Provider) AddChain(ctx context.Context, params AddChainParams) error {
	_, err := p.Request(ctx, MethodAddChain, params)
	return err
}

// Notifications returns the push notification stream.
func (p *Provider) Notifications() <-chan Notification {
	return p.notifyCh
}

// IsAvailable reports whether any transport can carry a request.
func (p *Provider) IsAvailable() bool {
	if p.closed.Load() {
		return false
	}
	p.wsMu.RLock()
	ws := p.ws
	p.wsMu.RUnlock()
	if ws != nil && ws.IsConnected() {
		return true
	}
	return p.http != nil
}

// Close tears down the session. Idempotent.
func (p *Provider) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.wsMu.Lock()
	ws := p.ws
	p.ws = nil
	p.wsMu.Unlock()

	var err error
	if ws != nil {
		err = ws.Close() // waits for the read loop, no further handleMessage calls
	}
	close(p.notifyCh)

	// Fail callers still waiting on replies.
	p.pendMu.Lock()
	for id, ch := range p.pending {
		delete(p.pending, id)
		close(ch)
	}
	p.pendMu.Unlock()

	return err
}

func decodeAccounts(raw json.RawMessage) ([]common.Address, error) {
	var hexes []string
	if err := json.Unmarshal(raw, &hexes); err != nil {
		return nil, apperror.New(apperror.CodeProviderUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("malformed accounts result"))
	}
	out := make([]common.Address, 0, len(hexes))
	for _, h := range hexes {
		addr, err := addrcodec.Parse(h)
		if err != nil {
			return nil, apperror.New(apperror.CodeProviderUnavailable,
				apperror.WithCause(err),
				apperror.WithContext(fmt.Sprintf("provider returned invalid address %q", h)))
		}
		out = append(out, addr)
	}
	return out, nil
}
