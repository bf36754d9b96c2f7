package ledger_test

import (
	"context"
	"crypto/ed25519"
	"testing"

	"golang.org/x/crypto/sha3"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger/memstore"
)

type party struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

func newParty(name string) party {
	digest := sha3.Sum256([]byte(name))
	priv := ed25519.NewKeyFromSeed(digest[:])
	return party{priv: priv, pub: priv.Public().(ed25519.PublicKey)}
}

func mustSign(t *testing.T, p ledger.Packet, priv ed25519.PrivateKey) *ledger.Message {
	t.Helper()
	m, err := ledger.Sign(p, priv)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return m
}

func createChannel(t *testing.T, svc *ledger.Service, author party, restricted bool) *ledger.ChannelInfo {
	t.Helper()
	announce := mustSign(t, ledger.NewAnnounce(author.pub, restricted), author.priv)
	info, err := svc.CreateChannel(context.Background(), announce)
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}
	return info
}

func TestCreateChannel(t *testing.T) {
	ctx := context.Background()
	svc := ledger.NewService(memstore.New())
	author := newParty("author")

	announce := mustSign(t, ledger.NewAnnounce(author.pub, false), author.priv)
	info, err := svc.CreateChannel(ctx, announce)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.AnnounceMessageID != announce.ID || info.ChannelAddress != announce.ChannelAddress {
		t.Errorf("unexpected channel info %+v", info)
	}

	if _, err := svc.CreateChannel(ctx, announce); ledger.CodeOf(err) != ledger.ErrCodeConflict {
		t.Errorf("expected conflict on duplicate announce, got %v", err)
	}

	stored, err := svc.GetMessage(ctx, info.ChannelAddress, info.AnnounceMessageID)
	if err != nil {
		t.Fatalf("get announce: %v", err)
	}
	if stored.Seq != 1 {
		t.Errorf("announce seq = %d, want 1", stored.Seq)
	}

	forged := ledger.NewAnnounce(author.pub, false)
	forged.ChannelAddress = "0000"
	if _, err := svc.CreateChannel(ctx, mustSign(t, forged, author.priv)); ledger.CodeOf(err) != ledger.ErrCodeValidation {
		t.Errorf("expected validation error for underived address, got %v", err)
	}

	notAnnounce := mustSign(t, ledger.NewSignedPacket(author.pub, "addr", "x", nil), author.priv)
	if _, err := svc.CreateChannel(ctx, notAnnounce); ledger.CodeOf(err) != ledger.ErrCodeValidation {
		t.Errorf("expected validation error for wrong kind, got %v", err)
	}
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	svc := ledger.NewService(memstore.New())
	author, reader := newParty("author"), newParty("reader")

	open := createChannel(t, svc, author, false)
	restricted := createChannel(t, svc, author, true)

	tests := []struct {
		name     string
		who      party
		info     *ledger.ChannelInfo
		link     string
		wantRole ledger.Role
		wantCode ledger.ErrorCode
	}{
		{"author on open channel", author, open, open.AnnounceMessageID, ledger.RoleAuthor, ""},
		{"reader on open channel", reader, open, open.AnnounceMessageID, ledger.RoleSubscriber, ""},
		{"author on restricted channel", author, restricted, restricted.AnnounceMessageID, ledger.RoleAuthor, ""},
		{"reader on restricted channel", reader, restricted, restricted.AnnounceMessageID, "", ledger.ErrCodeForbidden},
		{"wrong announce link", reader, open, "bogus", "", ledger.ErrCodeNotFound},
		{"unknown channel", reader, &ledger.ChannelInfo{ChannelAddress: "nowhere"}, "x", "", ledger.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := mustSign(t, ledger.NewSubscribe(tt.who.pub, tt.info.ChannelAddress, tt.link), tt.who.priv)
			got, err := svc.Subscribe(ctx, sub)
			if tt.wantCode != "" {
				if ledger.CodeOf(err) != tt.wantCode {
					t.Fatalf("expected %s, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Role != tt.wantRole {
				t.Errorf("role = %s, want %s", got.Role, tt.wantRole)
			}
		})
	}

	// a second subscribe by the same key returns the original subscription
	first := mustSign(t, ledger.NewSubscribe(reader.pub, open.ChannelAddress, open.AnnounceMessageID), reader.priv)
	got, err := svc.Subscribe(ctx, first)
	if err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	if got.MessageID == first.ID {
		t.Errorf("expected the existing subscription to be returned")
	}
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	svc := ledger.NewService(memstore.New(), ledger.WithListLimit(2))
	author, reader, stranger := newParty("author"), newParty("reader"), newParty("stranger")
	info := createChannel(t, svc, author, false)

	sub := mustSign(t, ledger.NewSubscribe(reader.pub, info.ChannelAddress, info.AnnounceMessageID), reader.priv)
	if _, err := svc.Subscribe(ctx, sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	a, err := svc.Publish(ctx, mustSign(t, ledger.NewSignedPacket(author.pub, info.ChannelAddress, info.AnnounceMessageID, []byte("A")), author.priv))
	if err != nil {
		t.Fatalf("publish A: %v", err)
	}
	b, err := svc.Publish(ctx, mustSign(t, ledger.NewSignedPacket(reader.pub, info.ChannelAddress, info.AnnounceMessageID, []byte("B")), reader.priv))
	if err != nil {
		t.Fatalf("publish B: %v", err)
	}
	c, err := svc.Publish(ctx, mustSign(t, ledger.NewSignedPacket(author.pub, info.ChannelAddress, a.ID, []byte("C")), author.priv))
	if err != nil {
		t.Fatalf("publish C: %v", err)
	}
	if a.Seq != 2 || b.Seq != 3 || c.Seq != 4 {
		t.Errorf("unexpected seqs %d %d %d", a.Seq, b.Seq, c.Seq)
	}
	if a.Timestamp.IsZero() {
		t.Errorf("accepted message has no timestamp")
	}

	failures := []struct {
		name     string
		msg      *ledger.Message
		wantCode ledger.ErrorCode
	}{
		{"not subscribed", mustSign(t, ledger.NewSignedPacket(stranger.pub, info.ChannelAddress, info.AnnounceMessageID, nil), stranger.priv), ledger.ErrCodeForbidden},
		{"unknown anchorage", mustSign(t, ledger.NewSignedPacket(author.pub, info.ChannelAddress, "missing", nil), author.priv), ledger.ErrCodeAnchorageNotFound},
		{"subscribe packet as anchorage", mustSign(t, ledger.NewSignedPacket(author.pub, info.ChannelAddress, sub.ID, nil), author.priv), ledger.ErrCodeAnchorageNotFound},
		{"unknown channel", mustSign(t, ledger.NewSignedPacket(author.pub, "nowhere", info.AnnounceMessageID, nil), author.priv), ledger.ErrCodeNotFound},
		{"duplicate", a, ledger.ErrCodeConflict},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Publish(ctx, tt.msg); ledger.CodeOf(err) != tt.wantCode {
				t.Errorf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}

	all, err := svc.ListMessages(ctx, ledger.ListQuery{ChannelAddress: info.ChannelAddress, Limit: 50})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != a.ID || all[1].ID != b.ID {
		t.Errorf("expected limit clamp to 2 in commit order, got %d messages", len(all))
	}

	anchored, err := svc.ListMessages(ctx, ledger.ListQuery{ChannelAddress: info.ChannelAddress, LinkID: a.ID})
	if err != nil {
		t.Fatalf("list by link: %v", err)
	}
	if len(anchored) != 1 || anchored[0].ID != c.ID {
		t.Errorf("expected only C anchored at A, got %+v", anchored)
	}

	if _, err := svc.ListMessages(ctx, ledger.ListQuery{ChannelAddress: "nowhere"}); !ledger.IsNotFound(err) {
		t.Errorf("expected not found for unknown channel, got %v", err)
	}
}
