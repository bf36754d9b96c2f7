package crypto

import (
	"crypto/ed25519"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"key ordering", `{"b":1,"a":2}`, `{"a":2,"b":1}`},
		{"whitespace", `{ "a" : [ 1, 2 ] }`, `{"a":[1,2]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalizeJSON([]byte(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}

	_, err := CanonicalizeJSON([]byte(`{"a":`))
	var cryptoErr *CryptoError
	if !errors.As(err, &cryptoErr) || cryptoErr.Code() != ErrCodeValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestContentID(t *testing.T) {
	id, err := ContentID([]byte("hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(id, "b") {
		t.Errorf("expected base32 CIDv1, got %s", id)
	}
	if !VerifyContentID([]byte("hello"), id) {
		t.Errorf("VerifyContentID returned false for matching data")
	}
	if VerifyContentID([]byte("world"), id) {
		t.Errorf("VerifyContentID returned true for different data")
	}
	if _, err := ContentID(nil); err == nil {
		t.Errorf("expected error for empty data")
	}
}

func TestSHA3Hex(t *testing.T) {
	a := SHA3Hex([]byte("ab"), []byte("c"))
	b := SHA3Hex([]byte("abc"))
	if a != b {
		t.Errorf("expected digest over concatenation, got %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestSignVerifyEd25519(t *testing.T) {
	priv, err := GenerateEd25519KeyPair()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	pub := priv.Public().(ed25519.PublicKey)
	kid := KeyIDFromPublicKey(pub)

	payload := []byte(`{"a":1}`)
	jws, err := SignEd25519(payload, priv, kid)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	header, err := ParseHeader(jws)
	if err != nil {
		t.Fatalf("parse header: %v", err)
	}
	if header.KeyID != kid {
		t.Errorf("kid = %s, want %s", header.KeyID, kid)
	}
	decoded, err := PublicKeyFromKeyID(header.KeyID)
	if err != nil {
		t.Fatalf("decode kid: %v", err)
	}
	if !decoded.Equal(pub) {
		t.Errorf("decoded kid does not match public key")
	}

	if err := VerifyDetached(jws, payload, pub); err != nil {
		t.Errorf("verify: %v", err)
	}
	if err := VerifyDetached(jws, []byte(`{"a":2}`), pub); err == nil {
		t.Errorf("expected payload mismatch error")
	}

	other, _ := GenerateEd25519KeyPair()
	_, err = VerifyEd25519(jws, other.Public().(ed25519.PublicKey))
	var cryptoErr *CryptoError
	if !errors.As(err, &cryptoErr) || cryptoErr.Code() != ErrCodeInvalidSignature {
		t.Errorf("expected signature error, got %v", err)
	}

	if _, err := SignEd25519(payload, priv, ""); err == nil {
		t.Errorf("expected error for empty kid")
	}
}

func TestJWKFiles(t *testing.T) {
	dir := t.TempDir()
	priv, err := GenerateEd25519KeyPair()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	pub := priv.Public().(ed25519.PublicKey)
	kid, err := GenerateKeyIDFromEd25519Key(pub)
	if err != nil {
		t.Fatalf("kid: %v", err)
	}
	if len(kid) != 16 {
		t.Errorf("kid length = %d, want 16", len(kid))
	}

	privJWK, err := Ed25519PrivateKeyToJWK(priv, kid)
	if err != nil {
		t.Fatalf("to jwk: %v", err)
	}
	if err := SaveJWKFile(privJWK, dir, "private.jwk", 0600); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := ReadJWKFile(dir, "private.jwk")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	gotPriv, err := Ed25519JWKToPrivateKey(loaded)
	if err != nil {
		t.Fatalf("export private: %v", err)
	}
	if !gotPriv.Equal(priv) {
		t.Errorf("private key round trip mismatch")
	}
	gotPub, err := Ed25519JWKToPublicKey(loaded)
	if err != nil {
		t.Fatalf("export public: %v", err)
	}
	if !gotPub.Equal(pub) {
		t.Errorf("public key mismatch")
	}

	if _, err := ReadJWKFile(filepath.Join(dir, "missing"), "x.jwk"); err == nil {
		t.Errorf("expected error for missing dir")
	}
}
