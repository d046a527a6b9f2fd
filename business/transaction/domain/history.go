package domain

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// HistoryEntry records one confirmed transaction outcome.
type HistoryEntry struct {
	Hash          common.Hash
	Receipt       *types.Receipt
	Timestamp     time.Time
	Confirmations uint64
}

// History is a bounded, newest-first record of confirmed transactions
// with a running average of gas used. The average covers every recorded
// entry, including ones the ring has since evicted. Safe for concurrent
// use.
type History struct {
	mu       sync.RWMutex
	entries  []HistoryEntry
	capacity int
	totalGas uint64
	count    uint64
}

// NewHistory creates a history that retains at most capacity entries,
// evicting the oldest first.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 1
	}
	return &History{
		entries:  make([]HistoryEntry, 0, capacity),
		capacity: capacity,
	}
}

// Record appends an entry, evicting the oldest when the ring is full.
func (h *History) Record(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) == h.capacity {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:h.capacity-1]
	}
	h.entries = append(h.entries, e)

	if e.Receipt != nil {
		h.totalGas += e.Receipt.GasUsed
	}
	h.count++
}

// Entries returns a newest-first copy of the retained entries.
func (h *History) Entries() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]HistoryEntry, len(h.entries))
	for i, e := range h.entries {
		out[len(h.entries)-1-i] = e
	}
	return out
}

// Len reports how many entries the ring currently retains.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// AverageGasUsed is the mean gas used across every recorded entry, or
// zero when nothing has been recorded.
func (h *History) AverageGasUsed() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return 0
	}
	return h.totalGas / h.count
}
