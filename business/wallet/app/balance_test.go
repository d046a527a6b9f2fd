package app

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/govwallet/business/wallet/domain"
	"github.com/fd1az/govwallet/internal/apperror"
	"github.com/fd1az/govwallet/internal/asset"
)

type fakeBalanceReader struct {
	mu    sync.Mutex
	calls int
	wei   *big.Int
	err   error
}

func (f *fakeBalanceReader) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return new(big.Int).Set(f.wei), nil
}

func (f *fakeBalanceReader) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newBalanceService(t *testing.T, reader *fakeBalanceReader, ttl time.Duration, connected bool) *BalanceService {
	t.Helper()
	session := func() domain.ConnectionState {
		return domain.ConnectionState{
			Address:   testAddr,
			ChainID:   big.NewInt(1115),
			Connected: connected,
		}
	}
	s, err := NewBalanceService(BalanceConfig{TTL: ttl}, reader, session, asset.DefaultRegistry(), testLogger())
	if err != nil {
		t.Fatalf("NewBalanceService failed: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestGetBalance_ServesFromCache(t *testing.T) {
	reader := &fakeBalanceReader{wei: big.NewInt(1500000000000000000)} // 1.5 tCORE
	s := newBalanceService(t, reader, time.Minute, true)
	ctx := context.Background()

	first, err := s.GetBalance(ctx, false)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if first.Cached {
		t.Error("first read must come from the chain")
	}
	if got := first.Amount.String(); got != "1.5 tCORE" {
		t.Errorf("expected 1.5 tCORE, got %s", got)
	}

	second, err := s.GetBalance(ctx, false)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !second.Cached {
		t.Error("second read within TTL must come from cache")
	}
	if !second.Amount.Equals(first.Amount) {
		t.Errorf("cached amount differs: %s vs %s", second.Amount, first.Amount)
	}
	if reader.count() != 1 {
		t.Errorf("expected one chain query, got %d", reader.count())
	}
}

func TestGetBalance_FreshBypassesCache(t *testing.T) {
	reader := &fakeBalanceReader{wei: big.NewInt(1)}
	s := newBalanceService(t, reader, time.Minute, true)
	ctx := context.Background()

	if _, err := s.GetBalance(ctx, false); err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if _, err := s.GetBalance(ctx, true); err != nil {
		t.Fatalf("GetBalance(fresh) failed: %v", err)
	}
	if reader.count() != 2 {
		t.Errorf("fresh must always query, got %d calls", reader.count())
	}
}

func TestGetBalance_TTLExpiry(t *testing.T) {
	reader := &fakeBalanceReader{wei: big.NewInt(1)}
	s := newBalanceService(t, reader, 30*time.Millisecond, true)
	ctx := context.Background()

	if _, err := s.GetBalance(ctx, false); err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, err := s.GetBalance(ctx, false); err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if reader.count() != 2 {
		t.Errorf("expected requery after TTL, got %d calls", reader.count())
	}
}

func TestGetBalance_InvalidateForcesRequery(t *testing.T) {
	reader := &fakeBalanceReader{wei: big.NewInt(1)}
	s := newBalanceService(t, reader, time.Minute, true)
	ctx := context.Background()

	if _, err := s.GetBalance(ctx, false); err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	s.Invalidate()
	if _, err := s.GetBalance(ctx, false); err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if reader.count() != 2 {
		t.Errorf("expected requery after invalidation, got %d calls", reader.count())
	}
}

func TestGetBalance_RequiresSession(t *testing.T) {
	reader := &fakeBalanceReader{wei: big.NewInt(1)}
	s := newBalanceService(t, reader, time.Minute, false)

	_, err := s.GetBalance(context.Background(), false)
	if !apperror.Is(err, apperror.CodeWalletUnavailable) {
		t.Fatalf("expected WALLET_UNAVAILABLE, got %v", err)
	}
	if reader.count() != 0 {
		t.Errorf("no session must mean no chain query, got %d", reader.count())
	}
}

func TestGetBalance_ReaderFault(t *testing.T) {
	reader := &fakeBalanceReader{err: errors.New("rpc down")}
	s := newBalanceService(t, reader, time.Minute, true)

	_, err := s.GetBalance(context.Background(), false)
	if !apperror.Is(err, apperror.CodeChainRPCError) {
		t.Fatalf("expected CHAIN_RPC_ERROR, got %v", err)
	}
}
