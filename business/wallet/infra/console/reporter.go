// Package console prints wallet lifecycle events to a writer. It is
// the observer surface of the CLI binary.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fd1az/govwallet/business/wallet/domain"
)

// Reporter prints one line per wallet lifecycle event. It owns the
// consuming goroutine; Stop cancels it and waits for it to finish.
type Reporter struct {
	out io.Writer

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReporter creates a reporter writing to stdout.
func NewReporter() *Reporter {
	return &Reporter{out: os.Stdout}
}

// NewReporterTo creates a reporter writing to w.
func NewReporterTo(w io.Writer) *Reporter {
	return &Reporter{out: w}
}

// Start begins printing events until ctx ends or the channel closes.
// A second Start without an intervening Stop is a no-op.
func (r *Reporter) Start(ctx context.Context, events <-chan domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	fmt.Fprintln(r.out, "govwallet session observer")
	fmt.Fprintln(r.out, "==========================")

	go r.run(ctx, events)
	return nil
}

func (r *Reporter) run(ctx context.Context, events <-chan domain.Event) {
	defer close(r.done)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.report(ev)
		}
	}
}

// report formats one event line.
func (r *Reporter) report(ev domain.Event) {
	ts := ev.At.Format("15:04:05")

	switch ev.Kind {
	case domain.EventConnected:
		fmt.Fprintf(r.out, "[%s] connected: %s on chain %s (%s)\n",
			ts, ev.Address.Hex(), ev.ChainID, ev.Elapsed.Round(time.Millisecond))
	case domain.EventDisconnected:
		fmt.Fprintf(r.out, "[%s] disconnected\n", ts)
	case domain.EventAccountsChanged:
		fmt.Fprintf(r.out, "[%s] accounts changed: %d authorized, active %s\n",
			ts, len(ev.Accounts), ev.Address.Hex())
	case domain.EventChainChanged:
		note := "target chain"
		if !ev.MatchesTarget {
			note = "NOT the target chain"
		}
		fmt.Fprintf(r.out, "[%s] chain changed: %s (%s)\n", ts, ev.ChainID, note)
	case domain.EventError:
		fmt.Fprintf(r.out, "[%s] error: %v\n", ts, ev.Err)
	default:
		fmt.Fprintf(r.out, "[%s] %s\n", ts, ev.Kind)
	}
}

// Stop halts the print loop and waits for it to drain.
func (r *Reporter) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	fmt.Fprintln(r.out, "observer stopped")
}
