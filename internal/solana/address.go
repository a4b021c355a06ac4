package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program addresses.
const (
	SystemProgram           = "11111111111111111111111111111111"
	TokenProgram            = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgram  = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	WrappedSOL              = "So11111111111111111111111111111111111111112"
	pdaMarker               = "ProgramDerivedAddress"
	maxSeedLen              = 32
)

// ErrNoViableBump is returned when no bump seed in [0, 255] produces an
// off-curve address. Practically unreachable for real inputs.
var ErrNoViableBump = errors.New("no viable bump seed")

// DecodeAddress decodes a base58 address and validates its length.
func DecodeAddress(addr string) ([]byte, error) {
	raw, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("decode address %q: %w", addr, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("address %q: expected 32 bytes, got %d", addr, len(raw))
	}
	return raw, nil
}

// ValidAddress reports whether addr is a well-formed base58 32-byte key.
func ValidAddress(addr string) bool {
	_, err := DecodeAddress(addr)
	return err == nil
}

// isOnCurve reports whether the 32-byte point lies on the ed25519 curve.
// Program-derived addresses must be off-curve so no private key exists.
func isOnCurve(point []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// createProgramAddress derives an address from seeds and a program ID
// using the canonical SHA-256 construction. Fails when the result lands
// on the curve.
func createProgramAddress(seeds [][]byte, programID []byte) ([]byte, error) {
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > maxSeedLen {
			return nil, fmt.Errorf("seed too long: %d bytes", len(seed))
		}
		h.Write(seed)
	}
	h.Write(programID)
	h.Write([]byte(pdaMarker))
	derived := h.Sum(nil)

	if isOnCurve(derived) {
		return nil, errors.New("derived address on curve")
	}
	return derived, nil
}

// FindProgramAddress searches bump seeds from 255 downward for the
// first off-curve derivation, matching the canonical runtime search.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	programRaw, err := DecodeAddress(programID)
	if err != nil {
		return "", 0, err
	}

	for bump := 255; bump >= 0; bump-- {
		trial := make([][]byte, len(seeds), len(seeds)+1)
		copy(trial, seeds)
		trial = append(trial, []byte{uint8(bump)})

		derived, err := createProgramAddress(trial, programRaw)
		if err != nil {
			continue
		}
		return base58.Encode(derived), uint8(bump), nil
	}
	return "", 0, ErrNoViableBump
}

// AssociatedTokenAddress derives the associated token account for a
// wallet and mint.
func AssociatedTokenAddress(wallet, mint string) (string, error) {
	walletRaw, err := DecodeAddress(wallet)
	if err != nil {
		return "", err
	}
	mintRaw, err := DecodeAddress(mint)
	if err != nil {
		return "", err
	}
	tokenProgRaw, err := DecodeAddress(TokenProgram)
	if err != nil {
		return "", err
	}

	addr, _, err := FindProgramAddress(
		[][]byte{walletRaw, tokenProgRaw, mintRaw},
		AssociatedTokenProgram,
	)
	return addr, err
}
