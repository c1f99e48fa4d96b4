// Package address validates and canonicalizes account addresses.
package address

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

var ErrInvalid = errors.New("invalid address")

// Validator returns the canonical form of a valid address.
type Validator interface {
	Validate(raw string) (string, error)
}

const (
	mockMinLength = 3
	mockMaxLength = 90
)

// MockValidator accepts any lowercase, whitespace-free string of sensible length.
// It stands in for chain address rules in local deployments and tests.
type MockValidator struct{}

func (MockValidator) Validate(raw string) (string, error) {
	switch {
	case len(raw) < mockMinLength:
		return "", fmt.Errorf("%w: human address too short", ErrInvalid)
	case len(raw) > mockMaxLength:
		return "", fmt.Errorf("%w: human address too long", ErrInvalid)
	case strings.IndexFunc(raw, isSpace) >= 0:
		return "", fmt.Errorf("%w: address contains whitespace", ErrInvalid)
	case strings.ToLower(raw) != raw:
		return "", fmt.Errorf("%w: address not normalized", ErrInvalid)
	}
	return raw, nil
}

// Bech32Validator accepts bech32 addresses with a fixed human-readable prefix
// and a 20 or 32 byte payload.
type Bech32Validator struct {
	Prefix string
}

func NewBech32Validator(prefix string) Bech32Validator {
	return Bech32Validator{Prefix: strings.ToLower(prefix)}
}

func (v Bech32Validator) Validate(raw string) (string, error) {
	hrp, data, err := bech32.Decode(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if hrp != v.Prefix {
		return "", fmt.Errorf("%w: wrong prefix %q, expected %q", ErrInvalid, hrp, v.Prefix)
	}

	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if len(payload) != 20 && len(payload) != 32 {
		return "", fmt.Errorf("%w: unexpected payload length %d", ErrInvalid, len(payload))
	}

	return strings.ToLower(raw), nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
