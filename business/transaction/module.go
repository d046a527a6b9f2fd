// Package transaction implements the transaction bounded context: gas
// estimation, confirmation monitoring and stuck-transaction
// replacement.
package transaction

import (
	"context"

	"github.com/fd1az/govwallet/business/transaction/app"
	txDI "github.com/fd1az/govwallet/business/transaction/di"
	"github.com/fd1az/govwallet/business/transaction/infra/ethereum"
	walletDI "github.com/fd1az/govwallet/business/wallet/di"
	"github.com/fd1az/govwallet/internal/asset"
	"github.com/fd1az/govwallet/internal/config"
	"github.com/fd1az/govwallet/internal/di"
	"github.com/fd1az/govwallet/internal/logger"
	"github.com/fd1az/govwallet/internal/monolith"
)

// Module implements the transaction bounded context.
type Module struct{}

// RegisterServices registers all transaction services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register the chain reader (public - governance reads logs through it)
	di.RegisterToken(c, txDI.ChainReader, func(sr di.ServiceRegistry) app.ChainReader {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		reader, err := ethereum.NewReader(ethereum.DefaultReaderConfig(cfg.Network.RPCURL), log)
		if err != nil {
			panic("failed to create chain reader: " + err.Error())
		}
		return reader
	})

	// Register EstimatorService (public - exposed to other modules)
	di.RegisterToken(c, txDI.EstimatorService, func(sr di.ServiceRegistry) *app.EstimatorService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		svc, err := app.NewEstimatorService(app.EstimatorConfig{
			BufferPercent: cfg.Gas.BufferPercent,
			PriceTTL:      cfg.Gas.CacheTTL,
			MaxGasPrice:   cfg.Gas.MaxGasPriceWei(),
			ChainID:       cfg.Network.ChainID,
		}, txDI.GetChainReader(sr), registry, log)
		if err != nil {
			panic("failed to create estimator service: " + err.Error())
		}
		return svc
	})

	// Register MonitorService (public - exposed to other modules)
	di.RegisterToken(c, txDI.MonitorService, func(sr di.ServiceRegistry) *app.MonitorService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		// Replacements are signed by the wallet, so the submitter is the
		// wallet context's provider session.
		submitter, ok := walletDI.GetProvider(sr).(app.WalletSubmitter)
		if !ok {
			panic("wallet provider cannot submit transactions")
		}

		svc, err := app.NewMonitorService(app.MonitorConfig{
			Confirmations:        cfg.Monitor.Confirmations,
			Timeout:              cfg.Monitor.Timeout,
			ProgressInterval:     cfg.Monitor.ProgressInterval,
			HistorySize:          cfg.Monitor.HistorySize,
			ReplaceMultiplierBps: cfg.Monitor.ReplaceMultiplierBps,
		}, txDI.GetChainReader(sr), submitter, log)
		if err != nil {
			panic("failed to create monitor service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup connects the chain reader.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	reader := txDI.GetChainReader(mono.Services())
	if connector, ok := reader.(interface{ Connect(context.Context) error }); ok {
		if err := connector.Connect(ctx); err != nil {
			return err
		}
	}

	log.Info(ctx, "transaction module started")
	return nil
}
