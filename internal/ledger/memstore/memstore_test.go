package memstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger"
)

func seedChannel(t *testing.T, s *Store) {
	t.Helper()
	ch := &ledger.Channel{Address: "addr", AuthorKey: "author", AnnounceID: "m0"}
	announce := &ledger.Message{Packet: ledger.Packet{Kind: ledger.KindAnnounce, ChannelAddress: "addr"}, ID: "m0"}
	if err := s.CreateChannel(context.Background(), ch, announce); err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestAppendAssignsSequence(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedChannel(t, s)

	for i := 1; i <= 3; i++ {
		m := &ledger.Message{
			Packet: ledger.Packet{Kind: ledger.KindSignedPacket, ChannelAddress: "addr", LinkID: "m0"},
			ID:     fmt.Sprintf("m%d", i),
		}
		got, err := s.AppendMessage(ctx, m)
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if got.Seq != uint64(i+1) {
			t.Errorf("seq = %d, want %d", got.Seq, i+1)
		}
	}

	_, err := s.AppendMessage(ctx, &ledger.Message{Packet: ledger.Packet{ChannelAddress: "addr"}, ID: "m1"})
	if ledger.CodeOf(err) != ledger.ErrCodeConflict {
		t.Errorf("expected conflict for duplicate id, got %v", err)
	}

	list, err := s.ListMessages(ctx, ledger.ListQuery{ChannelAddress: "addr", AfterSeq: 2, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "m2" || list[1].ID != "m3" {
		t.Errorf("unexpected list: %+v", list)
	}

	list, _ = s.ListMessages(ctx, ledger.ListQuery{ChannelAddress: "addr", Limit: 1})
	if len(list) != 1 || list[0].ID != "m1" {
		t.Errorf("limit not applied: %+v", list)
	}
}

func TestSubscriptionsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedChannel(t, s)

	first, err := s.PutSubscription(ctx, &ledger.Subscription{ChannelAddress: "addr", PublicKey: "k", MessageID: "s1"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	second, err := s.PutSubscription(ctx, &ledger.Subscription{ChannelAddress: "addr", PublicKey: "k", MessageID: "s2"})
	if err != nil {
		t.Fatalf("put again: %v", err)
	}
	if second.MessageID != first.MessageID {
		t.Errorf("expected existing subscription, got %+v", second)
	}

	if _, err := s.GetSubscription(ctx, "addr", "other"); !ledger.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestChannelConflictAndClose(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedChannel(t, s)

	err := s.CreateChannel(ctx, &ledger.Channel{Address: "addr"}, &ledger.Message{ID: "other"})
	if ledger.CodeOf(err) != ledger.ErrCodeConflict {
		t.Errorf("expected conflict, got %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Ping(ctx); err == nil {
		t.Errorf("expected ping to fail after close")
	}
}
