package asset_test

import (
	"math/big"
	"testing"

	"github.com/fd1az/govwallet/internal/asset"
	"github.com/shopspring/decimal"
)

func TestAmount_Basic(t *testing.T) {
	// 1 tCORE = 1e18 wei
	one := asset.NewAmount(asset.TCORE, big.NewInt(1e18))

	if one.IsZero() {
		t.Error("expected non-zero amount")
	}

	// ToDecimal should return 1.0
	d := one.ToDecimal()
	if !d.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", d.String())
	}

	// String should be "1 tCORE"
	if one.String() != "1 tCORE" {
		t.Errorf("expected '1 tCORE', got '%s'", one.String())
	}
}

func TestAmount_Add(t *testing.T) {
	one := asset.NewAmount(asset.TCORE, big.NewInt(1e18))
	two := asset.NewAmount(asset.TCORE, big.NewInt(2e18))

	sum, err := one.Add(two)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := decimal.NewFromInt(3)
	if !sum.ToDecimal().Equal(expected) {
		t.Errorf("expected 3, got %s", sum.ToDecimal().String())
	}
}

func TestAmount_CannotAddDifferentAssets(t *testing.T) {
	oneCore := asset.NewAmount(asset.TCORE, big.NewInt(1e18))
	oneUSDC := asset.NewAmount(asset.USDC, big.NewInt(1e6))

	_, err := oneCore.Add(oneUSDC)
	if err == nil {
		t.Error("expected error when adding different assets")
	}
}

func TestAmount_CannotMixChains(t *testing.T) {
	// Same symbol decimals, different chain: still different assets.
	mainnet := asset.NewAmount(asset.ETH, big.NewInt(1e18))
	sepolia := asset.NewAmount(asset.SepoliaETH, big.NewInt(1e18))

	_, err := mainnet.Add(sepolia)
	if err == nil {
		t.Error("expected error when adding amounts across chains")
	}
}

func TestAmount_Sub(t *testing.T) {
	three := asset.NewAmount(asset.TCORE, big.NewInt(3e18))
	one := asset.NewAmount(asset.TCORE, big.NewInt(1e18))

	diff, err := three.Sub(one)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := decimal.NewFromInt(2)
	if !diff.ToDecimal().Equal(expected) {
		t.Errorf("expected 2, got %s", diff.ToDecimal().String())
	}
}

func TestAmount_SubNegativeError(t *testing.T) {
	one := asset.NewAmount(asset.TCORE, big.NewInt(1e18))
	two := asset.NewAmount(asset.TCORE, big.NewInt(2e18))

	_, err := one.Sub(two)
	if err == nil {
		t.Error("expected error for negative result")
	}
}

func TestAmount_GasCostMath(t *testing.T) {
	// gasUsed * gasPrice stays exact in wei.
	gasPrice := asset.NewAmountFromUint64(asset.TCORE, 30_000_000_000) // 30 gwei
	cost := gasPrice.Mul(21000)

	want := new(big.Int).Mul(big.NewInt(30_000_000_000), big.NewInt(21000))
	if cost.Raw().Cmp(want) != 0 {
		t.Errorf("expected %s wei, got %s", want, cost.Raw())
	}
}

func TestParseDecimal(t *testing.T) {
	// Parse "1.5" tCORE
	d := decimal.NewFromFloat(1.5)
	amount, err := asset.ParseDecimal(asset.TCORE, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Should be 1.5e18 wei
	expected := big.NewInt(0)
	expected.SetString("1500000000000000000", 10)

	if amount.Raw().Cmp(expected) != 0 {
		t.Errorf("expected %s, got %s", expected.String(), amount.Raw().String())
	}
}

func TestParseDecimal_TooManyDecimals(t *testing.T) {
	// USDC has 6 decimals, try to parse 1.1234567 (7 decimals)
	d := decimal.NewFromFloat(1.1234567)
	_, err := asset.ParseDecimal(asset.USDC, d)
	if err == nil {
		t.Error("expected error for too many decimals")
	}
}

func TestAssetID_Identity(t *testing.T) {
	usdcEth := asset.NewTokenAssetID(1, asset.AddrUSDCEthereum)
	usdcEth2 := asset.NewTokenAssetID(1, asset.AddrUSDCEthereum)

	if !usdcEth.Equals(usdcEth2) {
		t.Error("same asset should have equal IDs")
	}

	// Different chains
	usdcCore := asset.NewTokenAssetID(asset.ChainIDCoreMainnet, asset.AddrUSDCEthereum)

	if usdcEth.Equals(usdcCore) {
		t.Error("different chains should have different IDs")
	}
}

func TestRegistry(t *testing.T) {
	r := asset.DefaultRegistry()

	// Should find the Core testnet native coin
	tcore, ok := r.GetNative(asset.ChainIDCoreTestnet)
	if !ok {
		t.Fatal("tCORE not found in registry")
	}
	if tcore.Symbol() != "tCORE" {
		t.Errorf("expected tCORE, got %s", tcore.Symbol())
	}
	if tcore.Decimals() != 18 {
		t.Errorf("expected 18 decimals, got %d", tcore.Decimals())
	}

	// Should find USDC by symbol and chain
	usdc, ok := r.GetBySymbolAndChain("USDC", asset.ChainIDEthereum)
	if !ok {
		t.Fatal("USDC not found in registry")
	}
	if usdc.Decimals() != 6 {
		t.Errorf("expected 6 decimals, got %d", usdc.Decimals())
	}
}

func TestRegistry_RegisterIfAbsent(t *testing.T) {
	r := asset.DefaultRegistry()

	// Already known: not added again.
	dup := asset.MustNewNative(asset.ChainIDCoreTestnet, "tCORE", "Core Testnet Token", 18)
	if r.RegisterIfAbsent(dup) {
		t.Error("expected RegisterIfAbsent to skip a known native coin")
	}

	// New chain: added.
	before := r.Count()
	custom := asset.MustNewNative(31337, "ETH", "Local Devnet Ether", 18)
	if !r.RegisterIfAbsent(custom) {
		t.Error("expected RegisterIfAbsent to add an unknown native coin")
	}
	if r.Count() != before+1 {
		t.Errorf("expected count %d, got %d", before+1, r.Count())
	}
}
