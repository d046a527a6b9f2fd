package contract_test

import (
	"context"
	"errors"
	"io"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/govwallet/business/governance/infra/contract"
	"github.com/fd1az/govwallet/internal/apperror"
	"github.com/fd1az/govwallet/internal/logger"
)

var contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

func testLogger() *logger.Logger {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

// fakeCaller implements contract.ChainCaller and records the last
// call and filter query it saw.
type fakeCaller struct {
	mu        sync.Mutex
	callFn    func(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	filterFn  func(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	lastCall  ethereum.CallMsg
	lastQuery ethereum.FilterQuery
}

func (f *fakeCaller) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	f.lastCall = call
	fn := f.callFn
	f.mu.Unlock()

	if fn == nil {
		return nil, errors.New("no call handler")
	}
	return fn(ctx, call, blockNumber)
}

func (f *fakeCaller) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	f.lastQuery = q
	fn := f.filterFn
	f.mu.Unlock()

	if fn == nil {
		return nil, errors.New("no filter handler")
	}
	return fn(ctx, q)
}

func parsedABI(t *testing.T) abi.ABI {
	t.Helper()

	parsed, err := abi.JSON(strings.NewReader(contract.GovernanceABI))
	if err != nil {
		t.Fatalf("parse ABI: %v", err)
	}
	return parsed
}

func newBinding(t *testing.T, caller *fakeCaller) *contract.Binding {
	t.Helper()

	b, err := contract.NewBinding(contractAddr, caller, testLogger())
	if err != nil {
		t.Fatalf("NewBinding: %v", err)
	}
	return b
}

func TestNewBinding_RequiresAddress(t *testing.T) {
	_, err := contract.NewBinding(common.Address{}, &fakeCaller{}, testLogger())
	if !apperror.Is(err, apperror.CodeConfigurationError) {
		t.Fatalf("expected CONFIGURATION_ERROR, got %v", err)
	}
}

func TestCall_DecodesOutput(t *testing.T) {
	parsed := parsedABI(t)
	caller := &fakeCaller{
		callFn: func(_ context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
			return parsed.Methods["totalStaked"].Outputs.Pack(big.NewInt(42))
		},
	}
	b := newBinding(t, caller)

	out, err := b.Call(context.Background(), "totalStaked")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 output, got %d", len(out))
	}
	if got := out[0].(*big.Int); got.Cmp(big.NewInt(42)) != 0 {
		t.Errorf("expected 42, got %s", got)
	}

	if caller.lastCall.To == nil || *caller.lastCall.To != contractAddr {
		t.Errorf("call targeted %v, want %s", caller.lastCall.To, contractAddr.Hex())
	}
	wantSelector := parsed.Methods["totalStaked"].ID
	if string(caller.lastCall.Data) != string(wantSelector) {
		t.Errorf("calldata %x, want selector %x", caller.lastCall.Data, wantSelector)
	}
}

func TestCall_UnknownMethod(t *testing.T) {
	b := newBinding(t, &fakeCaller{})

	_, err := b.Call(context.Background(), "withdrawEverything")
	if !apperror.Is(err, apperror.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestCall_RPCFailure(t *testing.T) {
	nodeDown := errors.New("node down")
	caller := &fakeCaller{
		callFn: func(_ context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
			return nil, nodeDown
		},
	}
	b := newBinding(t, caller)

	_, err := b.Call(context.Background(), "memberCount")
	if !apperror.Is(err, apperror.CodeContractCallFailed) {
		t.Fatalf("expected CONTRACT_CALL_FAILED, got %v", err)
	}
	if !errors.Is(err, nodeDown) {
		t.Errorf("expected the node error preserved as cause, got %v", err)
	}
}

func TestPackInput_RoundTrips(t *testing.T) {
	parsed := parsedABI(t)
	b := newBinding(t, &fakeCaller{})

	data, err := b.PackInput("vote", big.NewInt(7), true)
	if err != nil {
		t.Fatalf("PackInput: %v", err)
	}
	if len(data) != 4+32+32 {
		t.Fatalf("calldata length %d, want 68", len(data))
	}
	if string(data[:4]) != string(parsed.Methods["vote"].ID) {
		t.Errorf("selector %x, want %x", data[:4], parsed.Methods["vote"].ID)
	}

	args, err := parsed.Methods["vote"].Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("unpack calldata: %v", err)
	}
	if got := args[0].(*big.Int); got.Cmp(big.NewInt(7)) != 0 {
		t.Errorf("proposal id %s, want 7", got)
	}
	if got := args[1].(bool); !got {
		t.Errorf("support false, want true")
	}
}

func TestPackInput_ArgMismatch(t *testing.T) {
	b := newBinding(t, &fakeCaller{})

	_, err := b.PackInput("vote", "not-a-number")
	if !apperror.Is(err, apperror.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestQueryEvents_DecodesVoteCast(t *testing.T) {
	parsed := parsedABI(t)
	ev := parsed.Events["VoteCast"]
	voter := common.HexToAddress("0x1111111111111111111111111111111111111111")
	proposalID := big.NewInt(7)

	data, err := ev.Inputs.NonIndexed().Pack(true, big.NewInt(25))
	if err != nil {
		t.Fatalf("pack event data: %v", err)
	}
	lg := types.Log{
		Address: contractAddr,
		Topics: []common.Hash{
			ev.ID,
			common.BytesToHash(common.LeftPadBytes(voter.Bytes(), 32)),
			common.BigToHash(proposalID),
		},
		Data:        data,
		BlockNumber: 120,
		TxHash:      common.HexToHash("0xaaaa"),
		Index:       3,
	}

	caller := &fakeCaller{
		filterFn: func(_ context.Context, _ ethereum.FilterQuery) ([]types.Log, error) {
			return []types.Log{lg}, nil
		},
	}
	b := newBinding(t, caller)

	events, err := b.QueryEvents(context.Background(), "VoteCast", 100, 200)
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	got := events[0]
	if got.Name != "VoteCast" {
		t.Errorf("name %s, want VoteCast", got.Name)
	}
	if got.Args["voter"].(common.Address) != voter {
		t.Errorf("voter %v, want %s", got.Args["voter"], voter.Hex())
	}
	if got.Args["proposalId"].(*big.Int).Cmp(proposalID) != 0 {
		t.Errorf("proposalId %v, want 7", got.Args["proposalId"])
	}
	if !got.Args["support"].(bool) {
		t.Errorf("support false, want true")
	}
	if got.Args["weight"].(*big.Int).Cmp(big.NewInt(25)) != 0 {
		t.Errorf("weight %v, want 25", got.Args["weight"])
	}
	if got.BlockNumber != 120 || got.LogIndex != 3 {
		t.Errorf("position %d/%d, want 120/3", got.BlockNumber, got.LogIndex)
	}

	q := caller.lastQuery
	if len(q.Addresses) != 1 || q.Addresses[0] != contractAddr {
		t.Errorf("filter addresses %v, want [%s]", q.Addresses, contractAddr.Hex())
	}
	if len(q.Topics) != 1 || len(q.Topics[0]) != 1 || q.Topics[0][0] != ev.ID {
		t.Errorf("filter topics %v, want [[%s]]", q.Topics, ev.ID.Hex())
	}
	if q.FromBlock.Uint64() != 100 || q.ToBlock.Uint64() != 200 {
		t.Errorf("filter range %s-%s, want 100-200", q.FromBlock, q.ToBlock)
	}
}

func TestQueryEvents_DecodesProposalDescription(t *testing.T) {
	parsed := parsedABI(t)
	ev := parsed.Events["ProposalCreated"]
	proposer := common.HexToAddress("0x2222222222222222222222222222222222222222")

	data, err := ev.Inputs.NonIndexed().Pack("Fund the community garden")
	if err != nil {
		t.Fatalf("pack event data: %v", err)
	}
	lg := types.Log{
		Address: contractAddr,
		Topics: []common.Hash{
			ev.ID,
			common.BigToHash(big.NewInt(1)),
			common.BytesToHash(common.LeftPadBytes(proposer.Bytes(), 32)),
		},
		Data:        data,
		BlockNumber: 55,
	}

	caller := &fakeCaller{
		filterFn: func(_ context.Context, _ ethereum.FilterQuery) ([]types.Log, error) {
			return []types.Log{lg}, nil
		},
	}
	b := newBinding(t, caller)

	events, err := b.QueryEvents(context.Background(), "ProposalCreated", 0, 0)
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if got := events[0].Args["description"].(string); got != "Fund the community garden" {
		t.Errorf("description %q", got)
	}
	if got := events[0].Args["proposer"].(common.Address); got != proposer {
		t.Errorf("proposer %s, want %s", got.Hex(), proposer.Hex())
	}
}

func TestQueryEvents_ToBlockZeroMeansLatest(t *testing.T) {
	caller := &fakeCaller{
		filterFn: func(_ context.Context, _ ethereum.FilterQuery) ([]types.Log, error) {
			return nil, nil
		},
	}
	b := newBinding(t, caller)

	events, err := b.QueryEvents(context.Background(), "MemberJoined", 5, 0)
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
	if caller.lastQuery.ToBlock != nil {
		t.Errorf("ToBlock %s, want nil for latest", caller.lastQuery.ToBlock)
	}
	if caller.lastQuery.FromBlock.Uint64() != 5 {
		t.Errorf("FromBlock %s, want 5", caller.lastQuery.FromBlock)
	}
}

func TestQueryEvents_SkipsUndecodableLogs(t *testing.T) {
	parsed := parsedABI(t)
	ev := parsed.Events["MemberJoined"]
	member := common.HexToAddress("0x3333333333333333333333333333333333333333")

	data, err := ev.Inputs.NonIndexed().Pack(big.NewInt(1000))
	if err != nil {
		t.Fatalf("pack event data: %v", err)
	}
	good := types.Log{
		Topics: []common.Hash{
			ev.ID,
			common.BytesToHash(common.LeftPadBytes(member.Bytes(), 32)),
		},
		Data:        data,
		BlockNumber: 10,
	}
	truncated := types.Log{
		Topics: []common.Hash{
			ev.ID,
			common.BytesToHash(common.LeftPadBytes(member.Bytes(), 32)),
		},
		Data:        []byte{0x01},
		BlockNumber: 11,
	}
	missingTopics := types.Log{
		Topics:      []common.Hash{ev.ID},
		Data:        data,
		BlockNumber: 12,
	}

	caller := &fakeCaller{
		filterFn: func(_ context.Context, _ ethereum.FilterQuery) ([]types.Log, error) {
			return []types.Log{truncated, good, missingTopics}, nil
		},
	}
	b := newBinding(t, caller)

	events, err := b.QueryEvents(context.Background(), "MemberJoined", 0, 0)
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 decodable event, got %d", len(events))
	}
	if events[0].BlockNumber != 10 {
		t.Errorf("kept block %d, want 10", events[0].BlockNumber)
	}
	if events[0].Args["stake"].(*big.Int).Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("stake %v, want 1000", events[0].Args["stake"])
	}
}

func TestQueryEvents_UnknownEvent(t *testing.T) {
	b := newBinding(t, &fakeCaller{})

	_, err := b.QueryEvents(context.Background(), "TreasuryDrained", 0, 0)
	if !apperror.Is(err, apperror.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestQueryEvents_FilterFailure(t *testing.T) {
	caller := &fakeCaller{
		filterFn: func(_ context.Context, _ ethereum.FilterQuery) ([]types.Log, error) {
			return nil, errors.New("node down")
		},
	}
	b := newBinding(t, caller)

	_, err := b.QueryEvents(context.Background(), "VoteCast", 0, 0)
	if !apperror.Is(err, apperror.CodeContractCallFailed) {
		t.Fatalf("expected CONTRACT_CALL_FAILED, got %v", err)
	}
}
