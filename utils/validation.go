package utils

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

var hexPattern = regexp.MustCompile("^[0-9a-fA-F]+$")

// ValidateXMRPrecision checks that amount has no more decimals than one
// atomic unit allows.
func ValidateXMRPrecision(amount decimal.Decimal, decimals int32) error {
	if !amount.Equal(amount.Truncate(decimals)) {
		return fmt.Errorf("amount %s exceeds %d decimal places", amount.String(), decimals)
	}
	return nil
}

// ValidateTransactionHash validates a Monero transaction hash (64 hex characters).
func ValidateTransactionHash(hash string) error {
	if hash == "" {
		return fmt.Errorf("transaction hash cannot be empty")
	}

	if len(hash) != 64 {
		return fmt.Errorf("transaction hash must be 64 characters long")
	}

	if !isHexString(hash) {
		return fmt.Errorf("transaction hash must be valid hex")
	}

	return nil
}

// Helper function to check if a string is valid hexadecimal
func isHexString(s string) bool {
	return hexPattern.MatchString(s)
}
