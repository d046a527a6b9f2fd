package domain

import (
	"math/big"
	"time"

	"github.com/fd1az/govwallet/internal/asset"
)

// Speed selects one of the derived gas price tiers.
type Speed string

const (
	SpeedSlow     Speed = "slow"
	SpeedStandard Speed = "standard"
	SpeedFast     Speed = "fast"
	SpeedInstant  Speed = "instant"
)

// Estimate pairs a simulated gas limit with its buffered submission limit.
type Estimate struct {
	Gas           uint64
	Buffered      uint64
	BufferPercent int64
}

// BufferedLimit widens a simulated gas limit by bufferPercent, using
// integer arithmetic only.
func BufferedLimit(gas uint64, bufferPercent int64) uint64 {
	if bufferPercent <= 0 {
		return gas
	}
	return gas + gas*uint64(bufferPercent)/100
}

// Tiers holds the four prices derived from a single base quote. All
// values are wei; derivation multiplies before dividing so no precision
// is lost on the way down.
type Tiers struct {
	Base      *big.Int
	Slow      *big.Int
	Standard  *big.Int
	Fast      *big.Int
	Instant   *big.Int
	FetchedAt time.Time
}

// TiersFromBase derives slow/standard/fast/instant as 90%, 100%, 120%
// and 150% of the base quote.
func TiersFromBase(base *big.Int) Tiers {
	return Tiers{
		Base:      new(big.Int).Set(base),
		Slow:      scalePrice(base, 90),
		Standard:  new(big.Int).Set(base),
		Fast:      scalePrice(base, 120),
		Instant:   scalePrice(base, 150),
		FetchedAt: time.Now(),
	}
}

// ForSpeed returns the tier price for a speed, or false for an unknown
// speed. The returned value is a copy.
func (t Tiers) ForSpeed(s Speed) (*big.Int, bool) {
	switch s {
	case SpeedSlow:
		return new(big.Int).Set(t.Slow), true
	case SpeedStandard:
		return new(big.Int).Set(t.Standard), true
	case SpeedFast:
		return new(big.Int).Set(t.Fast), true
	case SpeedInstant:
		return new(big.Int).Set(t.Instant), true
	default:
		return nil, false
	}
}

func scalePrice(base *big.Int, percent int64) *big.Int {
	scaled := new(big.Int).Mul(base, big.NewInt(percent))
	return scaled.Div(scaled, big.NewInt(100))
}

// ReplacementPrice raises an original gas price by multiplierBps basis
// points (12000 = 1.2x). Multiply-then-divide keeps wei exact.
func ReplacementPrice(original *big.Int, multiplierBps int64) *big.Int {
	raised := new(big.Int).Mul(original, big.NewInt(multiplierBps))
	return raised.Div(raised, big.NewInt(10000))
}

// Cost is a full price quote for one contract call at a chosen speed.
type Cost struct {
	Limit uint64
	Price *big.Int
	Speed Speed
	Total asset.Amount
}

// NewCost computes limit x price and denominates it in the chain's
// native asset.
func NewCost(limit uint64, price *big.Int, speed Speed, native *asset.Asset) Cost {
	total := new(big.Int).Mul(new(big.Int).SetUint64(limit), price)
	return Cost{
		Limit: limit,
		Price: new(big.Int).Set(price),
		Speed: speed,
		Total: asset.NewAmount(native, total),
	}
}
