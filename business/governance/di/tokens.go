// Package di contains dependency injection tokens for the governance context.
package di

import (
	"github.com/fd1az/govwallet/business/governance/app"
	"github.com/fd1az/govwallet/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Service = di.NewToken[*app.Service]("governance.Service")
)

// Helper functions for type-safe access
func GetService(c di.ServiceRegistry) *app.Service {
	return di.GetToken(c, Service)
}
