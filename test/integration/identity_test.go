//go:build integration

package integration

import (
	"context"
	"crypto/ed25519"
	"io"
	"net/http"
	"testing"

	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/crypto"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/identity"
)

func TestIdentityKeySetEndpoint(t *testing.T) {
	testEnv := startInProcessNode(t)
	defer testEnv.shutdown()

	ctx := context.Background()
	const did = "did:example:integration"

	priv, err := crypto.GenerateEd25519KeyPair()
	if err != nil {
		t.Fatalf("GenerateEd25519KeyPair: %v", err)
	}
	secret, err := crypto.Ed25519PrivateKeyToJWK(priv, did+"#key-1")
	if err != nil {
		t.Fatalf("Ed25519PrivateKeyToJWK: %v", err)
	}
	doc, err := identity.NewDocument(did)
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	if _, err := doc.AddMethod("key-1", secret); err != nil {
		t.Fatalf("AddMethod: %v", err)
	}

	resolver := identity.NewResolver(http.DefaultClient)
	if err := resolver.Register(ctx, testEnv.baseURL, doc); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// stored in postgres and resolvable
	resolved, err := resolver.Resolve(ctx, testEnv.baseURL, did)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := identity.VerifyOwnership(resolved, "key-1", secret); err != nil {
		t.Errorf("VerifyOwnership: %v", err)
	}

	jwksURL, err := identity.KeySetURL(testEnv.baseURL, did)
	if err != nil {
		t.Fatalf("KeySetURL: %v", err)
	}
	resp, err := http.Get(jwksURL)
	if err != nil {
		t.Fatalf("failed to fetch JWKS endpoint: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if contentType := resp.Header.Get("Content-Type"); contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	set, err := jwk.Parse(body)
	if err != nil {
		t.Fatalf("failed to parse JWKS: %v", err)
	}
	if set.Len() != 1 {
		t.Fatalf("expected 1 key, got %d", set.Len())
	}

	key, _ := set.Key(0)
	if keyID, ok := key.KeyID(); !ok || keyID != did+"#key-1" {
		t.Errorf("kid = %q, want %s#key-1", keyID, did)
	}
	if keyUsage, ok := key.KeyUsage(); !ok || keyUsage == "" {
		t.Error("use is empty")
	}
	if alg, ok := key.Algorithm(); !ok || alg.String() == "" {
		t.Error("alg is empty")
	}

	var rawKey any
	if err := jwk.Export(key, &rawKey); err != nil {
		t.Fatalf("failed to convert to raw key: %v", err)
	}
	if _, ok := rawKey.(ed25519.PublicKey); !ok {
		t.Errorf("not an Ed25519 public key: %T", rawKey)
	}

	if _, err := resolver.Resolve(ctx, testEnv.baseURL, "did:example:unknown"); identity.CodeOf(err) != identity.ErrCodeDIDNotFound {
		t.Errorf("expected DID_Not_Found, got %v", err)
	}
}
