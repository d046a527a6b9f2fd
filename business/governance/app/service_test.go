package app_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/govwallet/business/governance/app"
	"github.com/fd1az/govwallet/business/governance/domain"
	"github.com/fd1az/govwallet/internal/apperror"
)

var govAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

// fakeContract implements app.Contract and records the last method and
// arguments it was asked to pack or call.
type fakeContract struct {
	callFn  func(ctx context.Context, method string, args ...any) ([]any, error)
	packFn  func(method string, args ...any) ([]byte, error)
	queryFn func(ctx context.Context, eventName string, fromBlock, toBlock uint64) ([]domain.ContractEvent, error)

	lastMethod string
	lastArgs   []any
}

func (f *fakeContract) Address() common.Address {
	return govAddr
}

func (f *fakeContract) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	f.lastMethod = method
	f.lastArgs = args
	if f.callFn == nil {
		return nil, nil
	}
	return f.callFn(ctx, method, args...)
}

func (f *fakeContract) PackInput(method string, args ...any) ([]byte, error) {
	f.lastMethod = method
	f.lastArgs = args
	if f.packFn == nil {
		return []byte{0x01, 0x02, 0x03, 0x04}, nil
	}
	return f.packFn(method, args...)
}

func (f *fakeContract) QueryEvents(ctx context.Context, eventName string, fromBlock, toBlock uint64) ([]domain.ContractEvent, error) {
	if f.queryFn == nil {
		return nil, nil
	}
	return f.queryFn(ctx, eventName, fromBlock, toBlock)
}

func TestTotalStaked(t *testing.T) {
	fc := &fakeContract{
		callFn: func(_ context.Context, _ string, _ ...any) ([]any, error) {
			return []any{big.NewInt(5000)}, nil
		},
	}
	svc := app.NewService(fc)

	got, err := svc.TotalStaked(context.Background())
	if err != nil {
		t.Fatalf("TotalStaked: %v", err)
	}
	if got.Cmp(big.NewInt(5000)) != 0 {
		t.Errorf("total %s, want 5000", got)
	}
	if fc.lastMethod != "totalStaked" {
		t.Errorf("called %q, want totalStaked", fc.lastMethod)
	}
}

func TestStakeOf_PassesAccount(t *testing.T) {
	account := common.HexToAddress("0x1111111111111111111111111111111111111111")
	fc := &fakeContract{
		callFn: func(_ context.Context, _ string, _ ...any) ([]any, error) {
			return []any{big.NewInt(120)}, nil
		},
	}
	svc := app.NewService(fc)

	got, err := svc.StakeOf(context.Background(), account)
	if err != nil {
		t.Fatalf("StakeOf: %v", err)
	}
	if got.Cmp(big.NewInt(120)) != 0 {
		t.Errorf("stake %s, want 120", got)
	}
	if fc.lastMethod != "stakeOf" {
		t.Errorf("called %q, want stakeOf", fc.lastMethod)
	}
	if len(fc.lastArgs) != 1 || fc.lastArgs[0].(common.Address) != account {
		t.Errorf("args %v, want [%s]", fc.lastArgs, account.Hex())
	}
}

func TestVotes_RejectsUnexpectedShape(t *testing.T) {
	cases := []struct {
		name string
		out  []any
	}{
		{"wrong type", []any{"a lot"}},
		{"too many values", []any{big.NewInt(1), big.NewInt(2)}},
		{"empty", []any{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fc := &fakeContract{
				callFn: func(_ context.Context, _ string, _ ...any) ([]any, error) {
					return tc.out, nil
				},
			}
			svc := app.NewService(fc)

			_, err := svc.Votes(context.Background(), govAddr)
			if !apperror.Is(err, apperror.CodeContractCallFailed) {
				t.Fatalf("expected CONTRACT_CALL_FAILED, got %v", err)
			}
		})
	}
}

func TestStakeCall(t *testing.T) {
	fc := &fakeContract{}
	svc := app.NewService(fc)

	call, err := svc.StakeCall(big.NewInt(10))
	if err != nil {
		t.Fatalf("StakeCall: %v", err)
	}
	if call.To != govAddr {
		t.Errorf("target %s, want %s", call.To.Hex(), govAddr.Hex())
	}
	if len(call.Data) == 0 {
		t.Errorf("expected packed calldata")
	}
	if fc.lastMethod != "stake" {
		t.Errorf("packed %q, want stake", fc.lastMethod)
	}
	if fc.lastArgs[0].(*big.Int).Cmp(big.NewInt(10)) != 0 {
		t.Errorf("amount %v, want 10", fc.lastArgs[0])
	}
}

func TestStakeCall_RejectsNonPositiveAmounts(t *testing.T) {
	svc := app.NewService(&fakeContract{})

	for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5)} {
		if _, err := svc.StakeCall(amount); !apperror.Is(err, apperror.CodeInvalidInput) {
			t.Errorf("amount %v: expected INVALID_INPUT, got %v", amount, err)
		}
	}
}

func TestUnstakeCall_RejectsNonPositiveAmounts(t *testing.T) {
	svc := app.NewService(&fakeContract{})

	for _, amount := range []*big.Int{nil, big.NewInt(0)} {
		if _, err := svc.UnstakeCall(amount); !apperror.Is(err, apperror.CodeInvalidInput) {
			t.Errorf("amount %v: expected INVALID_INPUT, got %v", amount, err)
		}
	}
}

func TestVoteCall(t *testing.T) {
	fc := &fakeContract{}
	svc := app.NewService(fc)

	call, err := svc.VoteCall(big.NewInt(7), false)
	if err != nil {
		t.Fatalf("VoteCall: %v", err)
	}
	if call.To != govAddr {
		t.Errorf("target %s, want %s", call.To.Hex(), govAddr.Hex())
	}
	if fc.lastMethod != "vote" {
		t.Errorf("packed %q, want vote", fc.lastMethod)
	}
	if fc.lastArgs[1].(bool) {
		t.Errorf("support true, want false")
	}
}

func TestVoteCall_RejectsBadProposalID(t *testing.T) {
	svc := app.NewService(&fakeContract{})

	for _, id := range []*big.Int{nil, big.NewInt(-1)} {
		if _, err := svc.VoteCall(id, true); !apperror.Is(err, apperror.CodeInvalidInput) {
			t.Errorf("id %v: expected INVALID_INPUT, got %v", id, err)
		}
	}
}

func TestDelegateCall_RejectsZeroAddress(t *testing.T) {
	svc := app.NewService(&fakeContract{})

	if _, err := svc.DelegateCall(common.Address{}); !apperror.Is(err, apperror.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestProposeCall_RejectsBlankDescription(t *testing.T) {
	svc := app.NewService(&fakeContract{})

	for _, desc := range []string{"", "   "} {
		if _, err := svc.ProposeCall(desc); !apperror.Is(err, apperror.CodeInvalidInput) {
			t.Errorf("description %q: expected INVALID_INPUT, got %v", desc, err)
		}
	}
}

func TestEvents_PassesRange(t *testing.T) {
	var gotName string
	var gotFrom, gotTo uint64
	fc := &fakeContract{
		queryFn: func(_ context.Context, eventName string, fromBlock, toBlock uint64) ([]domain.ContractEvent, error) {
			gotName, gotFrom, gotTo = eventName, fromBlock, toBlock
			return []domain.ContractEvent{{Name: eventName, BlockNumber: 42}}, nil
		},
	}
	svc := app.NewService(fc)

	events, err := svc.Events(context.Background(), domain.EventVoteCast, 100, 200)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 1 || events[0].BlockNumber != 42 {
		t.Fatalf("unexpected events %v", events)
	}
	if gotName != "VoteCast" || gotFrom != 100 || gotTo != 200 {
		t.Errorf("query %q %d-%d, want VoteCast 100-200", gotName, gotFrom, gotTo)
	}
}
