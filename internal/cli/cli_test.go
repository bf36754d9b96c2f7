package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/anchors"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/config"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/crypto"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/identity"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger/memstore"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/node"
)

func startNode(t *testing.T) string {
	t.Helper()
	cfg := &config.NodeEnvironment{Environment: "test", MaxRequestBytes: 1 << 20, ListLimitMax: 100}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := ledger.NewService(memstore.New())
	srv := httptest.NewServer(node.NewServer(svc, identity.NewMemoryRegistry(), cfg, logger).Handler())
	t.Cleanup(srv.Close)

	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("LOG_LEVEL", "none")
	t.Setenv("NODE_URL", srv.URL)
	t.Setenv("CURSOR_DIR", "")
	return srv.URL
}

// run executes the anchors command tree and returns its standard output
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("anchors %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestSeedCommand(t *testing.T) {
	startNode(t)

	out := strings.TrimSpace(mustRun(t, "seed", "--length", "12"))
	if len(out) != 12 {
		t.Errorf("seed %q has length %d, want 12", out, len(out))
	}
	if _, err := run(t, "seed", "--length", "0"); err == nil {
		t.Error("expected an error for --length 0")
	}
}

func TestChannelCreateGeneratesSeed(t *testing.T) {
	startNode(t)

	tests := []struct {
		args    []string
		wantLen int
	}{
		{[]string{"channel", "create"}, 25},
		{[]string{"channel", "create", "--seed-length", "40"}, 40},
	}
	for _, tt := range tests {
		var details anchors.ChannelDetails
		if err := json.Unmarshal([]byte(mustRun(t, tt.args...)), &details); err != nil {
			t.Fatalf("decode channel details: %v", err)
		}
		if len(details.Seed) != tt.wantLen {
			t.Errorf("anchors %s: seed length = %d, want %d", strings.Join(tt.args, " "), len(details.Seed), tt.wantLen)
		}
	}

	if _, err := run(t, "channel", "create", "--seed-length", "0"); err == nil {
		t.Error("expected an error for --seed-length 0")
	}
}

func TestAnchorAndFetchCommands(t *testing.T) {
	startNode(t)
	cursorDir := t.TempDir()

	var details anchors.ChannelDetails
	if err := json.Unmarshal([]byte(mustRun(t, "channel", "create", "--seed", "cli-seed")), &details); err != nil {
		t.Fatalf("decode channel details: %v", err)
	}
	if details.ChannelID == "" || details.FirstAnchorageID == "" || details.Role != ledger.RoleAuthor {
		t.Fatalf("unexpected details %+v", details)
	}

	var first anchors.AnchoringResult
	out := mustRun(t, "anchor", details.ChannelID, details.FirstAnchorageID, `{"kind":"invoice"}`, "--seed", "cli-seed")
	if err := json.Unmarshal([]byte(out), &first); err != nil {
		t.Fatalf("decode anchoring result: %v", err)
	}
	mustRun(t, "anchor", details.ChannelID, first.MessageID, "second", "--seed", "cli-seed")

	// direct fetch
	var got anchors.FetchResult
	out = mustRun(t, "fetch", details.ChannelID, details.FirstAnchorageID, first.MessageID, "--seed", "cli-seed")
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode fetch result: %v", err)
	}
	if string(got.Message) != `{"kind":"invoice"}` {
		t.Errorf("message = %q", got.Message)
	}

	// durable cursors: the second process sees nothing new
	var all []anchors.FetchResult
	out = mustRun(t, "fetch", details.ChannelID, details.FirstAnchorageID, "--all", "--seed", "cli-seed", "--cursor-dir", cursorDir)
	if err := json.Unmarshal([]byte(out), &all); err != nil {
		t.Fatalf("decode fetch --all: %v", err)
	}
	if len(all) != 1 || all[0].MessageID != first.MessageID {
		t.Fatalf("unexpected fetch --all result %+v", all)
	}
	out = mustRun(t, "fetch", details.ChannelID, details.FirstAnchorageID, "--seed", "cli-seed", "--cursor-dir", cursorDir)
	if strings.TrimSpace(out) != "null" {
		t.Errorf("expected null after draining the anchorage, got %s", out)
	}

	var inspected []inspectedMessage
	out = mustRun(t, "channel", "inspect", details.ChannelID, "--seed", "cli-seed")
	if err := json.Unmarshal([]byte(out), &inspected); err != nil {
		t.Fatalf("decode inspect: %v", err)
	}
	if len(inspected) != 2 || inspected[1].Message != "second" {
		t.Fatalf("unexpected inspect output %+v", inspected)
	}

	out = mustRun(t, "channel", "inspect", details.ChannelID, "--seed", "cli-seed", "--filter", `json.kind == "invoice"`)
	if err := json.Unmarshal([]byte(out), &inspected); err != nil {
		t.Fatalf("decode filtered inspect: %v", err)
	}
	if len(inspected) != 1 || inspected[0].MsgID != first.MessageID {
		t.Fatalf("unexpected filtered output %+v", inspected)
	}
}

func TestCommandErrors(t *testing.T) {
	startNode(t)

	tests := []struct {
		name string
		args []string
		code anchors.ErrorCode
	}{
		{"malformed channel id", []string{"anchor", "bad", "x", "msg", "--seed", "s"}, anchors.ErrCodeInvalidChannelIdentifier},
		{"empty channel id on anchor", []string{"anchor", "", "x", "msg", "--seed", "s"}, anchors.ErrCodeInvalidChannelIdentifier},
		{"empty channel id on fetch", []string{"fetch", "", "x", "--seed", "s"}, anchors.ErrCodeInvalidChannelIdentifier},
		{"empty channel id on fetch all", []string{"fetch", "", "x", "--all", "--seed", "s"}, anchors.ErrCodeInvalidChannelIdentifier},
		{"empty channel id on inspect", []string{"channel", "inspect", "", "--seed", "s"}, anchors.ErrCodeInvalidChannelIdentifier},
		{"three part channel id", []string{"fetch", "a:b:c", "b", "--seed", "s"}, anchors.ErrCodeInvalidChannelIdentifier},
		{"missing seed", []string{"fetch", "a:b", "b"}, ""},
		{"all with msg id", []string{"fetch", "a:b", "b", "c", "--all", "--seed", "s"}, ""},
		{"invalid filter", []string{"channel", "inspect", "a:b", "--seed", "s", "--filter", "size >"}, ""},
		{"bad timeout", []string{"seed", "--timeout", "-1s"}, ""},
		{"unknown DID", []string{"did", "resolve", "did:example:nobody"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if err == nil {
				t.Fatalf("anchors %s succeeded, want error", strings.Join(tt.args, " "))
			}
			if tt.code != "" && anchors.CodeOf(err) != tt.code {
				t.Errorf("anchors %s: code = %q, want %q (%v)", strings.Join(tt.args, " "), anchors.CodeOf(err), tt.code, err)
			}
		})
	}
}

func TestIdentityCommands(t *testing.T) {
	startNode(t)
	keyDir := t.TempDir()

	const did = "did:example:alice"
	mustRun(t, "keygen", "--name", "alice", "--output-dir", keyDir)
	keyFile := filepath.Join(keyDir, "alice.private.jwk")

	mustRun(t, "did", "register", "--did", did, "--key", keyFile)

	doc, err := identity.ParseDocument([]byte(mustRun(t, "did", "resolve", did)))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if doc.ID != did || len(doc.VerificationMethod) != 1 {
		t.Fatalf("unexpected document %+v", doc)
	}

	var method identity.VerificationMethod
	if err := json.Unmarshal([]byte(mustRun(t, "did", "resolve", did+"#key-1")), &method); err != nil {
		t.Fatalf("decode method: %v", err)
	}
	if method.ID != did+"#key-1" {
		t.Errorf("method id = %q", method.ID)
	}

	vc := issuedCredential(t, "did:example:bob")
	token := strings.TrimSpace(mustRun(t, "vp", "sign", vc, "--holder-did", did, "--key", keyFile, "--aud", "https://verifier.example"))

	var vp identity.Presentation
	if err := json.Unmarshal([]byte(mustRun(t, "vp", "verify", token, "--aud", "https://verifier.example")), &vp); err != nil {
		t.Fatalf("decode presentation: %v", err)
	}
	if vp.Holder != did || vp.Subject != "did:example:bob" {
		t.Errorf("unexpected presentation %+v", vp)
	}

	if _, err := run(t, "vp", "verify", token, "--aud", "https://other.example"); err == nil {
		t.Error("expected audience mismatch to fail")
	}

	resolveErrors := []struct {
		ref  string
		code identity.ErrorCode
	}{
		{"did:example:nobody", identity.ErrCodeDIDNotFound},
		{did + "#key-9", identity.ErrCodeDIDNotFound},
		{did + "#", identity.ErrCodeInvalidDIDMethod},
		{"not-a-did", identity.ErrCodeInvalidDID},
	}
	for _, tt := range resolveErrors {
		if _, err := run(t, "did", "resolve", tt.ref); identity.CodeOf(err) != tt.code {
			t.Errorf("did resolve %s: code = %q, want %q (%v)", tt.ref, identity.CodeOf(err), tt.code, err)
		}
	}
}

// issuedCredential returns a credential JWT about subject signed by a throwaway issuer key
func issuedCredential(t *testing.T, subject string) string {
	t.Helper()
	priv, err := crypto.GenerateEd25519KeyPair()
	if err != nil {
		t.Fatalf("GenerateEd25519KeyPair: %v", err)
	}
	issuerKey, err := crypto.Ed25519PrivateKeyToJWK(priv, "did:example:issuer#key-1")
	if err != nil {
		t.Fatalf("Ed25519PrivateKeyToJWK: %v", err)
	}

	tok, err := jwt.NewBuilder().
		Issuer("did:example:issuer").
		IssuedAt(time.Now()).
		Claim("vc", map[string]any{
			"type":              []string{"VerifiableCredential"},
			"credentialSubject": map[string]any{"id": subject},
		}).
		Build()
	if err != nil {
		t.Fatalf("build credential: %v", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.EdDSA(), issuerKey))
	if err != nil {
		t.Fatalf("sign credential: %v", err)
	}
	return string(signed)
}
