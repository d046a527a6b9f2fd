package app

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/fd1az/govwallet/business/wallet/infra/eip1193"
	"github.com/fd1az/govwallet/internal/apperror"
)

func newNetworkService(t *testing.T, f *fakeProvider) *NetworkService {
	t.Helper()
	s, err := NewNetworkService(NetworkConfig{
		Target:       testTarget(),
		PollAttempts: 3,
		PollInterval: 5 * time.Millisecond,
	}, f, testLogger())
	if err != nil {
		t.Fatalf("NewNetworkService failed: %v", err)
	}
	return s
}

// rpcClassified mirrors how the provider surfaces a wallet error object.
func rpcClassified(code apperror.Code, rpcCode int) error {
	return apperror.New(code,
		apperror.WithCause(&eip1193.RPCError{Code: rpcCode, Message: "scripted"}))
}

func TestSwitchNetwork_AlreadyKnown(t *testing.T) {
	f := newFakeProvider()
	s := newNetworkService(t, f)

	if err := s.SwitchNetwork(context.Background()); err != nil {
		t.Fatalf("SwitchNetwork failed: %v", err)
	}
	if _, _, _, sw, add := f.calls(); sw != 1 || add != 0 {
		t.Errorf("expected 1 switch and no add, got %d/%d", sw, add)
	}
}

func TestSwitchNetwork_AddsUnknownChain(t *testing.T) {
	tests := []struct {
		name    string
		appCode apperror.Code
		rpcCode int
	}{
		{"wallet reports 4902", apperror.CodeUnknownChain, 4902},
		{"wallet reports -32603", apperror.CodeChainRPCError, -32603},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeProvider()
			onTarget := false
			f.switchChainFn = func(ctx context.Context, chainIDHex string) error {
				return rpcClassified(tt.appCode, tt.rpcCode)
			}
			f.addChainFn = func(ctx context.Context, params eip1193.AddChainParams) error {
				if params.ChainID != "0x45b" {
					t.Errorf("expected chain 0x45b, got %s", params.ChainID)
				}
				if len(params.RPCURLs) == 0 || params.RPCURLs[0] != "https://rpc.test.btcs.network" {
					t.Errorf("expected configured rpc url, got %v", params.RPCURLs)
				}
				if params.NativeCurrency.Symbol != "tCORE" {
					t.Errorf("expected native currency tCORE, got %s", params.NativeCurrency.Symbol)
				}
				onTarget = true
				return nil
			}
			f.chainIDFn = func(ctx context.Context) (*big.Int, error) {
				if onTarget {
					return big.NewInt(1115), nil
				}
				return big.NewInt(1), nil
			}
			s := newNetworkService(t, f)

			if err := s.SwitchNetwork(context.Background()); err != nil {
				t.Fatalf("SwitchNetwork failed: %v", err)
			}
			if _, _, _, _, add := f.calls(); add != 1 {
				t.Errorf("expected one add request, got %d", add)
			}
		})
	}
}

func TestSwitchNetwork_UserRejected(t *testing.T) {
	f := newFakeProvider()
	f.switchChainFn = func(ctx context.Context, chainIDHex string) error {
		return rpcClassified(apperror.CodeUserRejected, 4001)
	}
	s := newNetworkService(t, f)

	err := s.SwitchNetwork(context.Background())
	if !apperror.Is(err, apperror.CodeUserRejected) {
		t.Fatalf("expected USER_REJECTED, got %v", err)
	}
	if _, _, _, _, add := f.calls(); add != 0 {
		t.Errorf("rejection must not trigger an add, got %d", add)
	}
}

func TestSwitchNetwork_PollTimeout(t *testing.T) {
	f := newFakeProvider()
	f.chainIDFn = func(ctx context.Context) (*big.Int, error) {
		return big.NewInt(1), nil // never lands on the target
	}
	s := newNetworkService(t, f)

	err := s.SwitchNetwork(context.Background())
	if !apperror.Is(err, apperror.CodeNetworkSwitchTimeout) {
		t.Fatalf("expected NETWORK_SWITCH_TIMEOUT, got %v", err)
	}
	if _, _, polls, _, _ := f.calls(); polls != 3 {
		t.Errorf("expected 3 chain id polls, got %d", polls)
	}
}

func TestAddNetwork_UserRejected(t *testing.T) {
	f := newFakeProvider()
	f.addChainFn = func(ctx context.Context, params eip1193.AddChainParams) error {
		return rpcClassified(apperror.CodeUserRejected, 4001)
	}
	s := newNetworkService(t, f)

	err := s.AddNetwork(context.Background())
	if !apperror.Is(err, apperror.CodeUserRejected) {
		t.Fatalf("expected USER_REJECTED, got %v", err)
	}
}

func TestAddNetwork_WrapsProviderFault(t *testing.T) {
	f := newFakeProvider()
	f.addChainFn = func(ctx context.Context, params eip1193.AddChainParams) error {
		return rpcClassified(apperror.CodeProviderUnavailable, -32000)
	}
	s := newNetworkService(t, f)

	err := s.AddNetwork(context.Background())
	if !apperror.Is(err, apperror.CodeNetworkAddRejected) {
		t.Fatalf("expected NETWORK_ADD_REJECTED, got %v", err)
	}
	if code, ok := eip1193.RPCCode(err); !ok || code != -32000 {
		t.Errorf("expected wrapped rpc code -32000, got %d (%v)", code, ok)
	}
}
