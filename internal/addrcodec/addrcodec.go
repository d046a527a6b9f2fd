// Package addrcodec validates and normalizes Ethereum-style addresses.
//
// Validation follows EIP-55: an all-lowercase or all-uppercase hex
// address is accepted as unchecksummed, a mixed-case address must carry
// the exact checksum casing. All functions are pure.
package addrcodec

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fd1az/govwallet/internal/apperror"
)

const hexAddrLen = 42 // "0x" + 40 hex chars

// IsHexAddress reports whether s has the shape of a 20-byte hex address
// with the 0x prefix. Checksum casing is not checked.
func IsHexAddress(s string) bool {
	if len(s) != hexAddrLen {
		return false
	}
	if s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return false
	}
	for _, c := range s[2:] {
		if !isHexChar(c) {
			return false
		}
	}
	return true
}

// Checksum returns the EIP-55 checksummed form of address. Invalid
// input is returned unchanged.
func Checksum(address string) string {
	if !IsHexAddress(address) {
		return address
	}

	lower := strings.ToLower(address[2:])
	hash := crypto.Keccak256([]byte(lower))

	out := make([]byte, hexAddrLen)
	out[0], out[1] = '0', 'x'

	for i := 0; i < 40; i++ {
		c := lower[i]
		// Uppercase the hex letter when the corresponding hash nibble
		// is 8 or above.
		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 && c >= 'a' && c <= 'f' {
			c -= 'a' - 'A'
		}
		out[i+2] = c
	}

	return string(out)
}

// Validate checks shape and, for mixed-case input, the EIP-55 checksum.
func Validate(address string) error {
	if !IsHexAddress(address) {
		return apperror.New(apperror.CodeInvalidAddress,
			apperror.WithContext(address))
	}

	hexPart := address[2:]
	if hexPart == strings.ToLower(hexPart) || hexPart == strings.ToUpper(hexPart) {
		return nil
	}

	if address != Checksum(address) {
		return apperror.New(apperror.CodeInvalidAddress,
			apperror.WithMessage("address checksum mismatch"),
			apperror.WithContext(address))
	}

	return nil
}

// Normalize validates address and returns its checksummed form.
func Normalize(address string) (string, error) {
	if err := Validate(address); err != nil {
		return "", err
	}
	return Checksum(address), nil
}

// Parse validates address and returns it as a common.Address.
func Parse(address string) (common.Address, error) {
	if err := Validate(address); err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(address), nil
}

func isHexChar(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
