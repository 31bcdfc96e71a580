package keys

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cloudflare/circl/sign/ed25519"
)

// Keypair is an Ed25519 key used to sign a single data item.
//
// A Keypair is owned by the call that generated it; it is not shared, cached
// or persisted.
type Keypair struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// GenerateEphemeral returns a fresh keypair drawn from r.
// If r is nil, crypto/rand.Reader is used.
func GenerateEphemeral(r io.Reader) (*Keypair, error) {
	if r == nil {
		r = rand.Reader
	}
	pub, priv, err := ed25519.GenerateKey(r)
	if err != nil {
		return nil, fmt.Errorf("keys: generate: %w", err)
	}
	return &Keypair{pub: pub, priv: priv}, nil
}

// FromSeed returns the keypair derived from a 32-byte seed.
func FromSeed(seed []byte) (*Keypair, error) {
	if err := checkSeed(seed); err != nil {
		return nil, err
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Keypair{pub: priv.Public().(ed25519.PublicKey), priv: priv}, nil
}

// PublicKey returns a copy of the 32-byte owner key.
func (k *Keypair) PublicKey() []byte {
	return append([]byte(nil), k.pub...)
}

// Seed returns a copy of the 32-byte private seed.
func (k *Keypair) Seed() []byte {
	return k.priv.Seed()
}

func (k *Keypair) SignatureType() uint16 { return SignatureTypeEd25519 }

func (k *Keypair) Sign(message []byte) ([]byte, error) {
	if k == nil || len(k.priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keys: missing private key")
	}
	return ed25519.Sign(k.priv, message), nil
}

// ParseSeedHex decodes a 64-character hex seed, with or without a 0x prefix.
func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if err := checkSeed(data); err != nil {
		return nil, err
	}
	return data, nil
}

// ReadSeedFile reads a hex seed from path.
func ReadSeedFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(string(data))
}
