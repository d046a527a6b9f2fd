// Package di contains dependency injection tokens for the wallet context.
package di

import (
	"github.com/fd1az/govwallet/business/wallet/app"
	"github.com/fd1az/govwallet/business/wallet/domain"
	"github.com/fd1az/govwallet/internal/di"
	"github.com/fd1az/govwallet/internal/events"
)

// Public service tokens - exposed to other modules
var (
	ConnectionService = di.NewToken[*app.ConnectionService]("wallet.ConnectionService")
	NetworkService    = di.NewToken[*app.NetworkService]("wallet.NetworkService")
	BalanceService    = di.NewToken[*app.BalanceService]("wallet.BalanceService")
	Bridge            = di.NewToken[*app.Bridge]("wallet.Bridge")
)

// Private dependency tokens - internal to the wallet module
var (
	Provider = di.NewToken[app.Provider]("wallet:provider")
	EventHub = di.NewToken[*events.Hub[domain.Event]]("wallet:eventHub")
)

// Helper functions for type-safe access
func GetConnectionService(c di.ServiceRegistry) *app.ConnectionService {
	return di.GetToken(c, ConnectionService)
}

func GetNetworkService(c di.ServiceRegistry) *app.NetworkService {
	return di.GetToken(c, NetworkService)
}

func GetBalanceService(c di.ServiceRegistry) *app.BalanceService {
	return di.GetToken(c, BalanceService)
}

func GetBridge(c di.ServiceRegistry) *app.Bridge {
	return di.GetToken(c, Bridge)
}

func GetProvider(c di.ServiceRegistry) app.Provider {
	return di.GetToken(c, Provider)
}

func GetEventHub(c di.ServiceRegistry) *events.Hub[domain.Event] {
	return di.GetToken(c, EventHub)
}
