package console_test

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/govwallet/business/wallet/domain"
	"github.com/fd1az/govwallet/business/wallet/infra/console"
)

// syncBuffer is a goroutine-safe writer for asserting reporter output.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForOutput(t *testing.T, buf *syncBuffer, want string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(buf.String(), want) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %q in output:\n%s", want, buf.String())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestReporter_PrintsLifecycleEvents(t *testing.T) {
	buf := &syncBuffer{}
	r := console.NewReporterTo(buf)

	ch := make(chan domain.Event, 4)
	ch <- domain.NewConnectedEvent(
		common.HexToAddress("0x1111111111111111111111111111111111111111"),
		big.NewInt(1115), 250*time.Millisecond)
	ch <- domain.NewChainChangedEvent(big.NewInt(1), false)
	ch <- domain.NewErrorEvent(errors.New("wallet locked"))
	ch <- domain.NewDisconnectedEvent()

	if err := r.Start(context.Background(), ch); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForOutput(t, buf, "disconnected")
	r.Stop()

	out := buf.String()
	for _, want := range []string{
		"connected: 0x1111111111111111111111111111111111111111 on chain 1115 (250ms)",
		"chain changed: 1 (NOT the target chain)",
		"error: wallet locked",
		"disconnected",
		"observer stopped",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReporter_StartIsIdempotent(t *testing.T) {
	buf := &syncBuffer{}
	r := console.NewReporterTo(buf)

	ch := make(chan domain.Event)
	if err := r.Start(context.Background(), ch); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(context.Background(), ch); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	r.Stop()

	if got := strings.Count(buf.String(), "govwallet session observer"); got != 1 {
		t.Errorf("banner printed %d times, want 1", got)
	}
}

func TestReporter_StopWithoutStart(t *testing.T) {
	r := console.NewReporterTo(&syncBuffer{})
	r.Stop()
	r.Stop()
}
