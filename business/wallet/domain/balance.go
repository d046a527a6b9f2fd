package domain

import (
	"time"

	"github.com/fd1az/govwallet/internal/asset"
)

// Balance is a native-coin balance snapshot for the active account.
type Balance struct {
	Amount    asset.Amount
	FetchedAt time.Time
	Cached    bool // true when served from the TTL cache
}

// Age returns how long ago the balance was fetched from the chain.
func (b Balance) Age() time.Duration {
	return time.Since(b.FetchedAt)
}
