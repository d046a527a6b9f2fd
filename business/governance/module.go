// Package governance implements the governance bounded context: the
// typed boundary to the on-chain governance contract.
package governance

import (
	"context"

	"github.com/fd1az/govwallet/business/governance/app"
	govDI "github.com/fd1az/govwallet/business/governance/di"
	"github.com/fd1az/govwallet/business/governance/infra/contract"
	txDI "github.com/fd1az/govwallet/business/transaction/di"
	"github.com/fd1az/govwallet/internal/config"
	"github.com/fd1az/govwallet/internal/di"
	"github.com/fd1az/govwallet/internal/logger"
	"github.com/fd1az/govwallet/internal/monolith"
)

// Module implements the governance bounded context.
type Module struct{}

// RegisterServices registers all governance services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register the governance service (public - exposed to other modules)
	di.RegisterToken(c, govDI.Service, func(sr di.ServiceRegistry) *app.Service {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		// Contract reads and log filters go through the transaction
		// context's chain reader; governance owns no RPC connection.
		caller, ok := txDI.GetChainReader(sr).(contract.ChainCaller)
		if !ok {
			panic("chain reader cannot serve contract calls")
		}

		binding, err := contract.NewBinding(cfg.Governance.ContractAddressHex(), caller, log)
		if err != nil {
			panic("failed to create governance contract binding: " + err.Error())
		}
		return app.NewService(binding)
	})

	return nil
}

// Startup logs the bound contract address.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	svc := govDI.GetService(mono.Services())
	log.Info(ctx, "governance module started",
		"contract", svc.ContractAddress().Hex())

	return nil
}
