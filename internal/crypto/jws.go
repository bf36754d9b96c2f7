// jws.go - Functions for signing and verifying JWS (JSON Web Signature)
// packets are signed with EdDSA and serialised using the JWS compact serialization (github.com/go-jose/go-jose/v4)
// the kid header carries the hex encoded Ed25519 public key of the signer
package crypto

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/go-jose/go-jose/v4"
)

// JWSHeader represents the header of a JWS token
type JWSHeader struct {
	Algorithm string `json:"alg"` // "EdDSA"
	KeyID     string `json:"kid"` // hex public key
}

// KeyIDFromPublicKey returns the kid used for packet signatures.
func KeyIDFromPublicKey(publicKey ed25519.PublicKey) string {
	return hex.EncodeToString(publicKey)
}

// PublicKeyFromKeyID decodes a kid produced by KeyIDFromPublicKey.
func PublicKeyFromKeyID(keyID string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(keyID)
	if err != nil {
		return nil, WrapValidationError(err, "key id is not hex encoded")
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, NewValidationError("key id is not an Ed25519 public key")
	}
	return ed25519.PublicKey(raw), nil
}

// SignEd25519 returns a JWS Compact Serialization (Base64URL) string.
// It uses the Ed25519 private key to produce a signature identified as "EdDSA" in the JWS header.
func SignEd25519(payload []byte, privateKey ed25519.PrivateKey, keyID string) (string, error) {
	if keyID == "" {
		return "", NewValidationError("keyID is required")
	}
	if len(privateKey) != ed25519.PrivateKeySize {
		return "", NewKeyManagementError("invalid Ed25519 private key length")
	}

	signingKey := jose.SigningKey{Algorithm: jose.EdDSA, Key: privateKey}

	signer, err := jose.NewSigner(signingKey, (&jose.SignerOptions{}).WithHeader("kid", keyID))
	if err != nil {
		return "", WrapInternalError(err, "failed to create signer")
	}

	jws, err := signer.Sign(payload)
	if err != nil {
		return "", WrapInternalError(err, "failed to sign payload")
	}

	compact, err := jws.CompactSerialize()
	if err != nil {
		return "", WrapInternalError(err, "failed to serialize JWS")
	}

	return compact, nil
}

// VerifyEd25519 verifies a Ed25519 JWS compact serialization signature and returns the payload
func VerifyEd25519(jwsString string, publicKey ed25519.PublicKey) ([]byte, error) {
	alg := []jose.SignatureAlgorithm{jose.EdDSA}

	jws, err := jose.ParseSigned(jwsString, alg)
	if err != nil {
		return nil, WrapSignatureError(err, "failed to parse JWS")
	}

	payload, err := jws.Verify(publicKey)
	if err != nil {
		return nil, WrapSignatureError(err, "failed to verify JWS")
	}

	return payload, nil
}

// VerifyDetached verifies jwsString against publicKey and checks that the signed payload equals payload.
func VerifyDetached(jwsString string, payload []byte, publicKey ed25519.PublicKey) error {
	signed, err := VerifyEd25519(jwsString, publicKey)
	if err != nil {
		return err
	}
	if !bytes.Equal(signed, payload) {
		return NewSignatureError("signed payload does not match content")
	}
	return nil
}

// ParseHeader extracts the header from a JWS without verifying
// The function returns an error if the header contains something other than the fields in JWSHeader
func ParseHeader(jwsString string) (JWSHeader, error) {

	// the structure of the jws is Base64URL(Header).Base64URL(Payload).Base64URL(Signature)
	parts := strings.Split(jwsString, ".")
	if len(parts) != 3 {
		return JWSHeader{}, NewValidationError("invalid JWS format")
	}

	headerBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return JWSHeader{}, WrapValidationError(err, "error decoding the header")
	}

	var header JWSHeader

	decoder := json.NewDecoder(bytes.NewReader(headerBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&header); err != nil {
		return JWSHeader{}, WrapValidationError(err, "could not unmarshal header")
	}

	if header.Algorithm != string(jose.EdDSA) {
		return JWSHeader{}, NewValidationError("unsupported alg: " + header.Algorithm)
	}
	if header.KeyID == "" {
		return JWSHeader{}, NewValidationError("missing required field: kid")
	}

	return header, nil
}
