// Package wallet implements the wallet bounded context: session
// lifecycle, network reconciliation, balance caching and the provider
// event bridge.
package wallet

import (
	"context"
	"math/big"

	"github.com/fd1az/govwallet/business/wallet/app"
	walletDI "github.com/fd1az/govwallet/business/wallet/di"
	"github.com/fd1az/govwallet/business/wallet/domain"
	"github.com/fd1az/govwallet/business/wallet/infra/eip1193"
	"github.com/fd1az/govwallet/internal/asset"
	"github.com/fd1az/govwallet/internal/config"
	"github.com/fd1az/govwallet/internal/di"
	"github.com/fd1az/govwallet/internal/events"
	"github.com/fd1az/govwallet/internal/logger"
	"github.com/fd1az/govwallet/internal/monolith"
)

// Module implements the wallet bounded context.
type Module struct{}

// RegisterServices registers all wallet services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register the provider session (private - internal dependency)
	di.RegisterToken(c, walletDI.Provider, func(sr di.ServiceRegistry) app.Provider {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		pCfg := eip1193.DefaultConfig(cfg.Provider.WebSocketURL, cfg.Provider.HTTPURL)
		if cfg.Provider.RequestTimeout > 0 {
			pCfg.RequestTimeout = cfg.Provider.RequestTimeout
		}
		if cfg.Provider.RateLimitRPM > 0 {
			pCfg.RateLimitRPM = cfg.Provider.RateLimitRPM
		}
		pCfg.MaxReconnects = cfg.Provider.MaxReconnects
		if cfg.Provider.InitialBackoff > 0 {
			pCfg.InitialBackoff = cfg.Provider.InitialBackoff
		}
		if cfg.Provider.MaxBackoff > 0 {
			pCfg.MaxBackoff = cfg.Provider.MaxBackoff
		}

		provider, err := eip1193.New(pCfg, log)
		if err != nil {
			panic("failed to create wallet provider: " + err.Error())
		}
		return provider
	})

	// Register the event hub (private - shared by connection and bridge)
	di.RegisterToken(c, walletDI.EventHub, func(sr di.ServiceRegistry) *events.Hub[domain.Event] {
		return events.NewHub[domain.Event]()
	})

	// Register NetworkService (public - exposed to other modules)
	di.RegisterToken(c, walletDI.NetworkService, func(sr di.ServiceRegistry) *app.NetworkService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		svc, err := app.NewNetworkService(app.NetworkConfig{
			Target:       networkTarget(cfg),
			PollAttempts: cfg.Network.SwitchPollAttempts,
			PollInterval: cfg.Network.SwitchPollInterval,
		}, walletDI.GetProvider(sr), log)
		if err != nil {
			panic("failed to create network service: " + err.Error())
		}
		return svc
	})

	// Register BalanceService (public - exposed to other modules)
	di.RegisterToken(c, walletDI.BalanceService, func(sr di.ServiceRegistry) *app.BalanceService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		reader := sr.Get("chainClient").(app.BalanceReader)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		// Resolved lazily so construction order cannot cycle with the
		// connection service.
		session := func() domain.ConnectionState {
			return walletDI.GetConnectionService(sr).State()
		}

		svc, err := app.NewBalanceService(app.BalanceConfig{TTL: cfg.Balance.TTL},
			reader, session, registry, log)
		if err != nil {
			panic("failed to create balance service: " + err.Error())
		}
		return svc
	})

	// Register ConnectionService (public - exposed to other modules)
	di.RegisterToken(c, walletDI.ConnectionService, func(sr di.ServiceRegistry) *app.ConnectionService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		svc, err := app.NewConnectionService(app.ConnectionConfig{
			MaxAttempts: cfg.Connection.MaxAttempts,
			Cooldown:    cfg.Connection.Cooldown,
		},
			walletDI.GetProvider(sr),
			walletDI.GetNetworkService(sr),
			walletDI.GetBalanceService(sr),
			walletDI.GetEventHub(sr),
			log)
		if err != nil {
			panic("failed to create connection service: " + err.Error())
		}
		return svc
	})

	// Register the event bridge (public - exposed to other modules)
	di.RegisterToken(c, walletDI.Bridge, func(sr di.ServiceRegistry) *app.Bridge {
		log := sr.Get("logger").(logger.LoggerInterface)

		bridge, err := app.NewBridge(
			walletDI.GetProvider(sr),
			walletDI.GetConnectionService(sr),
			walletDI.GetEventHub(sr),
			log)
		if err != nil {
			panic("failed to create event bridge: " + err.Error())
		}
		return bridge
	})

	return nil
}

// Startup initializes the wallet module: connects the provider socket,
// starts the event bridge and probes for a restorable session.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	provider := walletDI.GetProvider(mono.Services())
	if connector, ok := provider.(interface{ Connect(context.Context) error }); ok {
		if err := connector.Connect(ctx); err != nil {
			log.Error(ctx, "failed to connect wallet provider", "error", err)
			// Don't fail - requests fall back to the HTTP transport
		}
	}

	bridge := walletDI.GetBridge(mono.Services())
	if err := bridge.Start(ctx); err != nil {
		return err
	}

	// Silent probe: restores the session when the wallet already
	// authorized an account, without prompting the holder.
	conn := walletDI.GetConnectionService(mono.Services())
	if restored, err := conn.CheckConnection(ctx); err != nil {
		log.Warn(ctx, "session restore probe failed", "error", err)
	} else if restored {
		st := conn.State()
		log.Info(ctx, "wallet session restored", "address", st.Address.Hex())
	}

	log.Info(ctx, "wallet module started")
	return nil
}

// networkTarget builds the target chain descriptor from config.
func networkTarget(cfg *config.Config) domain.NetworkTarget {
	return domain.NetworkTarget{
		ChainID:     new(big.Int).SetUint64(cfg.Network.ChainID),
		Name:        cfg.Network.Name,
		RPCURL:      cfg.Network.RPCURL,
		ExplorerURL: cfg.Network.ExplorerURL,
		Currency: domain.NativeCurrency{
			Name:     cfg.Network.Currency.Name,
			Symbol:   cfg.Network.Currency.Symbol,
			Decimals: cfg.Network.Currency.Decimals,
		},
	}
}
