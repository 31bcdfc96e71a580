package keys

import (
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign/ed25519"
)

const (
	SeedSize      = ed25519.SeedSize
	PublicKeySize = ed25519.PublicKeySize
	SignatureSize = ed25519.SignatureSize

	// SignatureTypeEd25519 identifies the Ed25519 scheme in a data-item header.
	SignatureTypeEd25519 uint16 = 2
)

var (
	ErrInvalidSeedLength      = errors.New("keys: invalid seed length")
	ErrInvalidPublicKeyLength = errors.New("keys: invalid public key length")
)

func checkSeed(seed []byte) error {
	if l := len(seed); l != SeedSize {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSeedLength, SeedSize, l)
	}
	return nil
}

// Sign returns the 64-byte Ed25519 signature of message under the key derived
// from seed. Ed25519 is deterministic: equal (seed, message) pairs produce
// equal signatures.
func Sign(seed, message []byte) ([]byte, error) {
	if err := checkSeed(seed); err != nil {
		return nil, err
	}
	return ed25519.Sign(ed25519.NewKeyFromSeed(seed), message), nil
}

// PublicKeyFromSeed returns the 32-byte public key for seed.
func PublicKeyFromSeed(seed []byte) ([]byte, error) {
	if err := checkSeed(seed); err != nil {
		return nil, err
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return []byte(priv.Public().(ed25519.PublicKey)), nil
}

// Verify reports whether sig is a valid signature of message by pub.
func Verify(pub, message, sig []byte) bool {
	if len(pub) != PublicKeySize || len(sig) != SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), message, sig)
}
