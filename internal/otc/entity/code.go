package entity

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CodeLength is the fixed number of digits in a one-time code. Leading zeros
// are preserved; "0042" is a valid code.
const CodeLength = 4

// GenerateCode returns a CodeLength-digit numeric code drawn from crypto/rand.
func GenerateCode() (string, error) {
	limit := big.NewInt(1)
	for range CodeLength {
		limit.Mul(limit, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("otc: generate code: %w", err)
	}

	return fmt.Sprintf("%0*d", CodeLength, n), nil
}
