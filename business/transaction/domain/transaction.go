// Package domain contains the core domain types for the transaction context.
package domain

import (
	"regexp"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/govwallet/internal/apperror"
)

// Status is the lifecycle state of a monitored transaction.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

// PendingTransaction is a transaction under confirmation watch. Owned
// by the monitor until a terminal transition removes it.
type PendingTransaction struct {
	Hash                  common.Hash
	SubmittedAt           time.Time
	RequiredConfirmations uint64
	Status                Status
}

// Progress reports confirmation progress to wait callbacks.
type Progress struct {
	Confirmations uint64
	Required      uint64
	Percent       float64
}

// NewProgress derives the display percentage, capped at 100.
func NewProgress(confirmations, required uint64) Progress {
	p := Progress{Confirmations: confirmations, Required: required}
	if required > 0 {
		p.Percent = float64(confirmations) / float64(required) * 100
		if p.Percent > 100 {
			p.Percent = 100
		}
	}
	return p
}

var hashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// ValidateHash parses a canonical 0x-prefixed 32-byte transaction hash.
// Malformed input is rejected before any chain traffic.
func ValidateHash(s string) (common.Hash, error) {
	if !hashPattern.MatchString(s) {
		return common.Hash{}, apperror.New(apperror.CodeInvalidHash,
			apperror.WithContext("transaction hash must be 0x followed by 64 hex characters"))
	}
	return common.HexToHash(s), nil
}
