// Package memstore is an in-memory ledger.Store used by tests, the in-process node and
// tangle-node when STORE=memory.
package memstore

import (
	"context"
	"sync"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger"
)

type channelState struct {
	channel       ledger.Channel
	messages      []*ledger.Message // ordered by seq
	byID          map[string]*ledger.Message
	subscriptions map[string]*ledger.Subscription
}

// Store keeps every channel in memory. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	channels map[string]*channelState
	ids      map[string]string // message id -> channel address
	closed   bool
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		channels: make(map[string]*channelState),
		ids:      make(map[string]string),
	}
}

func (s *Store) CreateChannel(_ context.Context, ch *ledger.Channel, announce *ledger.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ledger.NewInternalError("store is closed")
	}
	if _, ok := s.channels[ch.Address]; ok {
		return ledger.NewConflictError("channel " + ch.Address + " already exists")
	}
	if _, ok := s.ids[announce.ID]; ok {
		return ledger.NewConflictError("message " + announce.ID + " already exists")
	}

	stored := cloneMessage(announce)
	stored.Seq = 1
	s.channels[ch.Address] = &channelState{
		channel:       *ch,
		messages:      []*ledger.Message{stored},
		byID:          map[string]*ledger.Message{stored.ID: stored},
		subscriptions: make(map[string]*ledger.Subscription),
	}
	s.ids[stored.ID] = ch.Address
	return nil
}

func (s *Store) GetChannel(_ context.Context, address string) (*ledger.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.channels[address]
	if !ok {
		return nil, ledger.NewNotFoundError("channel " + address + " not found")
	}
	ch := st.channel
	return &ch, nil
}

func (s *Store) PutSubscription(_ context.Context, sub *ledger.Subscription) (*ledger.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.channels[sub.ChannelAddress]
	if !ok {
		return nil, ledger.NewNotFoundError("channel " + sub.ChannelAddress + " not found")
	}
	if existing, ok := st.subscriptions[sub.PublicKey]; ok {
		out := *existing
		return &out, nil
	}
	stored := *sub
	st.subscriptions[sub.PublicKey] = &stored
	out := stored
	return &out, nil
}

func (s *Store) GetSubscription(_ context.Context, channelAddress, publicKey string) (*ledger.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.channels[channelAddress]
	if !ok {
		return nil, ledger.NewNotFoundError("channel " + channelAddress + " not found")
	}
	sub, ok := st.subscriptions[publicKey]
	if !ok {
		return nil, ledger.NewNotFoundError("subscription not found")
	}
	out := *sub
	return &out, nil
}

func (s *Store) AppendMessage(_ context.Context, m *ledger.Message) (*ledger.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ledger.NewInternalError("store is closed")
	}
	st, ok := s.channels[m.ChannelAddress]
	if !ok {
		return nil, ledger.NewNotFoundError("channel " + m.ChannelAddress + " not found")
	}
	if _, ok := s.ids[m.ID]; ok {
		return nil, ledger.NewConflictError("message " + m.ID + " already exists")
	}

	stored := cloneMessage(m)
	stored.Seq = st.messages[len(st.messages)-1].Seq + 1
	st.messages = append(st.messages, stored)
	st.byID[stored.ID] = stored
	s.ids[stored.ID] = m.ChannelAddress
	return cloneMessage(stored), nil
}

func (s *Store) GetMessage(_ context.Context, channelAddress, id string) (*ledger.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.channels[channelAddress]
	if !ok {
		return nil, ledger.NewNotFoundError("channel " + channelAddress + " not found")
	}
	m, ok := st.byID[id]
	if !ok {
		return nil, ledger.NewNotFoundError("message " + id + " not found")
	}
	return cloneMessage(m), nil
}

func (s *Store) ListMessages(_ context.Context, q ledger.ListQuery) ([]*ledger.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.channels[q.ChannelAddress]
	if !ok {
		return nil, ledger.NewNotFoundError("channel " + q.ChannelAddress + " not found")
	}

	out := make([]*ledger.Message, 0)
	for _, m := range st.messages {
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
		if m.Seq <= q.AfterSeq || m.Kind != ledger.KindSignedPacket {
			continue
		}
		if q.LinkID != "" && m.LinkID != q.LinkID {
			continue
		}
		out = append(out, cloneMessage(m))
	}
	return out, nil
}

func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ledger.NewInternalError("store is closed")
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func cloneMessage(m *ledger.Message) *ledger.Message {
	out := *m
	if m.Payload != nil {
		out.Payload = append([]byte(nil), m.Payload...)
	}
	return &out
}
