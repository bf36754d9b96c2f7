// JWK (JSON Web Key) helpers
//
// these functions convert raw Ed25519 keys to JWK format (and vice versa)
// Reference: https://datatracker.ietf.org/doc/html/rfc7517 (JSON Web Key standard)
//
// identity documents publish their verification methods as public JWKs and
// the keygen command writes key pairs as JWK sets.

package crypto

import (
	"crypto"
	"crypto/ed25519"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// Ed25519PublicKeyToJWK converts an Ed25519 public key to JWK format
func Ed25519PublicKeyToJWK(publicKey ed25519.PublicKey, keyID string) (jwk.Key, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return nil, NewKeyManagementError("invalid Ed25519 public key length")
	}
	key, err := jwk.Import(publicKey)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to create JWK from Ed25519 public key")
	}
	return decorate(key, keyID)
}

// Ed25519PrivateKeyToJWK converts an Ed25519 private key to JWK format
func Ed25519PrivateKeyToJWK(privateKey ed25519.PrivateKey, keyID string) (jwk.Key, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, NewKeyManagementError("invalid Ed25519 private key length")
	}
	key, err := jwk.Import(privateKey)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to create JWK from Ed25519 private key")
	}
	return decorate(key, keyID)
}

func decorate(key jwk.Key, keyID string) (jwk.Key, error) {
	if keyID == "" {
		return nil, NewValidationError("keyID is required")
	}
	if err := key.Set(jwk.KeyIDKey, keyID); err != nil {
		return nil, WrapInternalError(err, "failed to set key ID")
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.EdDSA()); err != nil {
		return nil, WrapInternalError(err, "failed to set algorithm")
	}
	if err := key.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
		return nil, WrapInternalError(err, "failed to set key usage")
	}
	return key, nil
}

// Ed25519JWKToPublicKey converts an Ed25519 JWK (public or private) to an Ed25519 public key
func Ed25519JWKToPublicKey(key jwk.Key) (ed25519.PublicKey, error) {
	if key == nil {
		return nil, NewValidationError("jwk is nil")
	}

	pub, err := jwk.PublicKeyOf(key)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to derive public key")
	}

	var raw any
	if err := jwk.Export(pub, &raw); err != nil {
		return nil, WrapKeyManagementError(err, "failed to export Ed25519 public key")
	}

	publicKey, ok := raw.(ed25519.PublicKey)
	if !ok {
		return nil, NewKeyManagementError(fmt.Sprintf("expected Ed25519 public key but got %T", raw))
	}
	return publicKey, nil
}

// Ed25519JWKToPrivateKey converts an Ed25519 private JWK to an Ed25519 private key
func Ed25519JWKToPrivateKey(key jwk.Key) (ed25519.PrivateKey, error) {
	if key == nil {
		return nil, NewValidationError("jwk is nil")
	}

	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, WrapKeyManagementError(err, "failed to export Ed25519 private key")
	}

	privateKey, ok := raw.(ed25519.PrivateKey)
	if !ok {
		return nil, NewKeyManagementError(fmt.Sprintf("expected Ed25519 private key but got %T", raw))
	}
	return privateKey, nil
}

// GenerateKeyIDFromEd25519Key generates a key ID from an Ed25519 public key using SHA-256 thumbprint.
// Returns the first 16 characters of the hex-encoded thumbprint (RFC 7638)
func GenerateKeyIDFromEd25519Key(publicKey ed25519.PublicKey) (string, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return "", NewKeyManagementError("invalid Ed25519 public key length")
	}
	jwkKey, err := jwk.Import(publicKey)
	if err != nil {
		return "", WrapKeyManagementError(err, "failed to import key")
	}

	thumbprint, err := jwkKey.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", WrapInternalError(err, "failed to generate thumbprint")
	}

	return fmt.Sprintf("%x", thumbprint)[:16], nil
}
