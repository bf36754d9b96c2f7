//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/anchors"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/seed"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/transport"
)

func newRuntime(t *testing.T, cursorDir string) *anchors.Runtime {
	t.Helper()
	rt, err := anchors.Setup(anchors.Options{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		CursorDir: cursorDir,
		Transport: transport.Options{Timeout: 10 * time.Second},
	})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func bind(t *testing.T, rt *anchors.Runtime, nodeURL, s, channelID string) *anchors.Channel {
	t.Helper()
	unbound, err := rt.NewChannel(nodeURL, seed.Seed(s))
	if err != nil {
		t.Fatalf("NewChannel: %v", err)
	}
	ch, err := unbound.Bind(context.Background(), channelID)
	if err != nil {
		t.Fatalf("Bind(%q): %v", channelID, err)
	}
	return ch
}

func TestAnchoringScenarios(t *testing.T) {
	testEnv := startInProcessNode(t)
	defer testEnv.shutdown()

	for _, nodeURL := range []string{testEnv.baseURL, testEnv.grpcURL} {
		t.Run(nodeURL, func(t *testing.T) {
			ctx := context.Background()
			rt := newRuntime(t, "")

			// create and round trip
			author := bind(t, rt, nodeURL, "integration-author", "")
			announce := author.FirstAnchorageID()

			hello, err := author.Anchor(ctx, []byte("hello"), announce)
			if err != nil {
				t.Fatalf("Anchor: %v", err)
			}
			got, err := author.Fetch(ctx, announce, "")
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if got == nil || string(got.Message) != "hello" || got.MessageID != hello.MessageID {
				t.Fatalf("unexpected fetch result %+v", got)
			}
			if next, err := author.Fetch(ctx, announce, ""); err != nil || next != nil {
				t.Fatalf("expected absent result, got %+v, %v", next, err)
			}

			// branching: a subscriber anchors two messages at the announce
			reader := bind(t, newRuntime(t, ""), nodeURL, "integration-reader", author.ID())
			a, err := reader.Anchor(ctx, []byte("A"), announce)
			if err != nil {
				t.Fatalf("Anchor A: %v", err)
			}
			b, err := reader.Anchor(ctx, []byte("B"), announce)
			if err != nil {
				t.Fatalf("Anchor B: %v", err)
			}
			if a.MessageID == b.MessageID {
				t.Fatal("branches share a message id")
			}

			var order []string
			for res, err := range author.Follow(ctx, announce) {
				if err != nil {
					t.Fatalf("Follow: %v", err)
				}
				order = append(order, res.MessageID)
			}
			if len(order) != 2 || order[0] != a.MessageID || order[1] != b.MessageID {
				t.Errorf("follow order = %v, want [%s %s]", order, a.MessageID, b.MessageID)
			}

			// an unrelated anchorage is unaffected
			if next, err := author.Fetch(ctx, hello.MessageID, ""); err != nil || next != nil {
				t.Errorf("expected nothing at %s, got %+v, %v", hello.MessageID, next, err)
			}

			if _, err := author.Anchor(ctx, []byte("x"), "bafkreimissing"); anchors.CodeOf(err) != anchors.ErrCodeAnchoring {
				t.Errorf("expected AnchoringError for a missing anchorage, got %v", err)
			}
			if _, err := author.Fetch(ctx, announce, "bafkreimissing"); anchors.CodeOf(err) != anchors.ErrCodeMessageNotFound {
				t.Errorf("expected MessageNotFoundError, got %v", err)
			}
		})
	}
}

func TestRestrictedChannelOnNode(t *testing.T) {
	testEnv := startInProcessNode(t)
	defer testEnv.shutdown()

	rt := newRuntime(t, "")
	unbound, err := rt.NewChannel(testEnv.baseURL, seed.Seed("restricted-author"))
	if err != nil {
		t.Fatalf("NewChannel: %v", err)
	}
	author, err := unbound.WithRestricted().Bind(context.Background(), "")
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	stranger, err := rt.NewChannel(testEnv.grpcURL, seed.Seed("stranger"))
	if err != nil {
		t.Fatalf("NewChannel: %v", err)
	}
	if _, err := stranger.Bind(context.Background(), author.ID()); anchors.CodeOf(err) != anchors.ErrCodeChannelBinding {
		t.Errorf("expected ChannelBindingError, got %v", err)
	}
}

func TestDurableCursorsAcrossRuntimes(t *testing.T) {
	testEnv := startInProcessNode(t)
	defer testEnv.shutdown()

	ctx := context.Background()
	cursorDir := t.TempDir()

	writer := bind(t, newRuntime(t, ""), testEnv.baseURL, "cursor-author", "")
	for _, m := range []string{"one", "two"} {
		if _, err := writer.Anchor(ctx, []byte(m), writer.FirstAnchorageID()); err != nil {
			t.Fatalf("Anchor: %v", err)
		}
	}

	first := newRuntime(t, cursorDir)
	reader := bind(t, first, testEnv.baseURL, "cursor-author", writer.ID())
	got, err := reader.Fetch(ctx, writer.FirstAnchorageID(), "")
	if err != nil || got == nil || string(got.Message) != "one" {
		t.Fatalf("first fetch = %+v, %v", got, err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// the restarted reader resumes after "one"
	resumed := bind(t, newRuntime(t, cursorDir), testEnv.baseURL, "cursor-author", writer.ID())
	got, err = resumed.Fetch(ctx, writer.FirstAnchorageID(), "")
	if err != nil || got == nil || string(got.Message) != "two" {
		t.Fatalf("resumed fetch = %+v, %v", got, err)
	}
}
