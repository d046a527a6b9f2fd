package domain_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/govwallet/business/transaction/domain"
)

func entry(i int, gasUsed uint64) domain.HistoryEntry {
	return domain.HistoryEntry{
		Hash:          common.HexToHash(fmt.Sprintf("0x%064x", i)),
		Receipt:       &types.Receipt{GasUsed: gasUsed, Status: types.ReceiptStatusSuccessful},
		Timestamp:     time.Now(),
		Confirmations: 12,
	}
}

func TestHistory_EvictsOldest(t *testing.T) {
	h := domain.NewHistory(3)

	for i := 1; i <= 5; i++ {
		h.Record(entry(i, 21_000))
	}

	if h.Len() != 3 {
		t.Fatalf("len = %d, want 3", h.Len())
	}

	// Newest first: 5, 4, 3. Entries 1 and 2 were evicted.
	got := h.Entries()
	for i, want := range []int{5, 4, 3} {
		if got[i].Hash != common.HexToHash(fmt.Sprintf("0x%064x", want)) {
			t.Errorf("entries[%d] = %s, want entry %d", i, got[i].Hash.Hex(), want)
		}
	}
}

func TestHistory_AverageGasUsed(t *testing.T) {
	h := domain.NewHistory(2)

	if h.AverageGasUsed() != 0 {
		t.Error("empty history should average zero")
	}

	h.Record(entry(1, 21_000))
	h.Record(entry(2, 63_000))
	h.Record(entry(3, 42_000)) // evicts entry 1 from the ring

	// Average runs over all recorded entries, evicted ones included.
	want := uint64((21_000 + 63_000 + 42_000) / 3)
	if got := h.AverageGasUsed(); got != want {
		t.Errorf("average = %d, want %d", got, want)
	}
}

func TestHistory_EntriesReturnsCopy(t *testing.T) {
	h := domain.NewHistory(4)
	h.Record(entry(1, 21_000))

	got := h.Entries()
	got[0].Confirmations = 999

	if h.Entries()[0].Confirmations != 12 {
		t.Error("mutating the returned slice must not affect the history")
	}
}

func TestHistory_ConcurrentRecord(t *testing.T) {
	h := domain.NewHistory(50)
	done := make(chan struct{})

	for g := 0; g < 4; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 25; i++ {
				h.Record(entry(g*100+i, 21_000))
			}
		}(g)
	}
	for g := 0; g < 4; g++ {
		<-done
	}

	if h.Len() != 50 {
		t.Errorf("len = %d, want 50", h.Len())
	}
	if h.AverageGasUsed() != 21_000 {
		t.Errorf("average = %d, want 21000", h.AverageGasUsed())
	}
}
