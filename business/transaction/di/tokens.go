// Package di contains dependency injection tokens for the transaction context.
package di

import (
	"github.com/fd1az/govwallet/business/transaction/app"
	"github.com/fd1az/govwallet/internal/di"
)

// Public service tokens - exposed to other modules
var (
	EstimatorService = di.NewToken[*app.EstimatorService]("transaction.EstimatorService")
	MonitorService   = di.NewToken[*app.MonitorService]("transaction.MonitorService")

	// ChainReader is public: the governance module reads contract logs
	// through it.
	ChainReader = di.NewToken[app.ChainReader]("transaction.ChainReader")
)

// Helper functions for type-safe access
func GetEstimatorService(c di.ServiceRegistry) *app.EstimatorService {
	return di.GetToken(c, EstimatorService)
}

func GetMonitorService(c di.ServiceRegistry) *app.MonitorService {
	return di.GetToken(c, MonitorService)
}

func GetChainReader(c di.ServiceRegistry) app.ChainReader {
	return di.GetToken(c, ChainReader)
}
