// Package seed generates channel secrets and derives the Ed25519 identity a seed stands for.
//
// A seed is an opaque secret string. Seeds produced by Generate use the tryte alphabet (A-Z and 9).
// The signing key of a seed is ed25519.NewKeyFromSeed(sha3-256(seed)), so the same seed always
// yields the same author or subscriber key.
package seed

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"golang.org/x/crypto/sha3"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/crypto"
)

// Alphabet is the character set of generated seeds.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ9"

// DefaultLength is the seed length used when none is requested.
const DefaultLength = 80

var ErrEmptySeed = errors.New("seed is empty")

// Seed is a channel secret. It never prints its value through fmt or slog.
type Seed string

func (s Seed) String() string { return "[REDACTED]" }

func (s Seed) LogValue() slog.Value { return slog.StringValue("[REDACTED]") }

// Generate returns a random seed of the given length (DefaultLength when length <= 0).
func Generate(length int) (Seed, error) {
	if length <= 0 {
		length = DefaultLength
	}
	size := big.NewInt(int64(len(Alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		out[i] = Alphabet[n.Int64()]
	}
	return Seed(out), nil
}

// Identity is the key pair derived from a seed
type Identity struct {
	PrivateKey ed25519.PrivateKey
	PublicKey  ed25519.PublicKey
}

// KeyID returns the hex public key used as packet signer id.
func (i *Identity) KeyID() string {
	return crypto.KeyIDFromPublicKey(i.PublicKey)
}

// Derive returns the identity of s.
func Derive(s Seed) (*Identity, error) {
	if s == "" {
		return nil, ErrEmptySeed
	}
	digest := sha3.Sum256([]byte(s))
	priv := ed25519.NewKeyFromSeed(digest[:])
	return &Identity{
		PrivateKey: priv,
		PublicKey:  priv.Public().(ed25519.PublicKey),
	}, nil
}
