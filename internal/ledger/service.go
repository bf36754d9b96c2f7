package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/crypto"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/logger"
)

// DefaultListLimit is the list limit used when none is configured
const DefaultListLimit = 100

// Service applies the node rules on top of a Store
type Service struct {
	store        Store
	listLimitMax int
	now          func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithListLimit caps the number of messages returned by ListMessages.
func WithListLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.listLimitMax = n
		}
	}
}

// WithClock replaces the clock used to timestamp accepted messages.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		listLimitMax: DefaultListLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying store
func (s *Service) Store() Store { return s.store }

// CreateChannel accepts an announce message and creates its channel.
func (s *Service) CreateChannel(ctx context.Context, announce *Message) (*ChannelInfo, error) {
	if announce == nil {
		return nil, NewValidationError("announce message is required")
	}
	if announce.Kind != KindAnnounce {
		return nil, NewValidationError("expected an announce packet")
	}
	if err := announce.Verify(); err != nil {
		return nil, err
	}

	publicKey, err := crypto.PublicKeyFromKeyID(announce.PublicKey)
	if err != nil {
		return nil, WrapValidationError(err, "invalid publicKey")
	}
	if DeriveChannelAddress(publicKey, announce.Nonce) != announce.ChannelAddress {
		return nil, NewValidationError("channelAddress does not match author key and nonce")
	}

	now := s.now().UTC()
	ch := &Channel{
		Address:    announce.ChannelAddress,
		AuthorKey:  announce.PublicKey,
		AnnounceID: announce.ID,
		Restricted: announce.Restricted,
		CreatedAt:  now,
	}
	stored := *announce
	stored.Seq = 1
	stored.Timestamp = now

	if err := s.store.CreateChannel(ctx, ch, &stored); err != nil {
		return nil, err
	}

	logger.ContextWithLogAttrs(ctx,
		slog.String("channel_address", ch.Address),
		slog.String("announce_id", ch.AnnounceID),
	)
	return &ChannelInfo{ChannelAddress: ch.Address, AnnounceMessageID: ch.AnnounceID}, nil
}

// Subscribe attaches the signer of a subscribe packet to a channel.
// The author is always granted access without a stored subscription.
func (s *Service) Subscribe(ctx context.Context, subscribe *Message) (*Subscription, error) {
	if subscribe == nil {
		return nil, NewValidationError("subscribe message is required")
	}
	if subscribe.Kind != KindSubscribe {
		return nil, NewValidationError("expected a subscribe packet")
	}
	if err := subscribe.Verify(); err != nil {
		return nil, err
	}

	ch, err := s.store.GetChannel(ctx, subscribe.ChannelAddress)
	if err != nil {
		return nil, err
	}
	if subscribe.LinkID != ch.AnnounceID {
		return nil, NewNotFoundError("subscribe link does not reference the channel announce")
	}

	now := s.now().UTC()
	if subscribe.PublicKey == ch.AuthorKey {
		return &Subscription{
			ChannelAddress: ch.Address,
			PublicKey:      subscribe.PublicKey,
			Role:           RoleAuthor,
			CreatedAt:      ch.CreatedAt,
		}, nil
	}
	if ch.Restricted {
		return nil, NewForbiddenError("channel is restricted to its author")
	}

	sub, err := s.store.PutSubscription(ctx, &Subscription{
		ChannelAddress: ch.Address,
		PublicKey:      subscribe.PublicKey,
		MessageID:      subscribe.ID,
		Role:           RoleSubscriber,
		CreatedAt:      now,
	})
	if err != nil {
		return nil, err
	}

	logger.ContextWithLogAttrs(ctx,
		slog.String("channel_address", ch.Address),
		slog.String("subscriber", sub.PublicKey),
	)
	return sub, nil
}

// Publish accepts a signed packet anchored at an existing announce or signed packet
// and assigns it the next channel sequence number.
func (s *Service) Publish(ctx context.Context, m *Message) (*Message, error) {
	if m == nil {
		return nil, NewValidationError("message is required")
	}
	if m.Kind != KindSignedPacket {
		return nil, NewValidationError("expected a signed_packet")
	}
	if err := m.Verify(); err != nil {
		return nil, err
	}

	ch, err := s.store.GetChannel(ctx, m.ChannelAddress)
	if err != nil {
		return nil, err
	}

	if m.PublicKey != ch.AuthorKey {
		if _, err := s.store.GetSubscription(ctx, ch.Address, m.PublicKey); err != nil {
			if IsNotFound(err) {
				return nil, NewForbiddenError("publisher is not subscribed to the channel")
			}
			return nil, err
		}
	}

	anchorage, err := s.store.GetMessage(ctx, ch.Address, m.LinkID)
	if err != nil {
		if IsNotFound(err) {
			return nil, NewAnchorageNotFoundError("anchorage " + m.LinkID + " not found in channel")
		}
		return nil, err
	}
	if anchorage.Kind != KindAnnounce && anchorage.Kind != KindSignedPacket {
		return nil, NewAnchorageNotFoundError("anchorage " + m.LinkID + " cannot be extended")
	}

	pending := *m
	pending.Seq = 0
	pending.Timestamp = s.now().UTC()

	stored, err := s.store.AppendMessage(ctx, &pending)
	if err != nil {
		return nil, err
	}

	logger.ContextWithLogAttrs(ctx,
		slog.String("channel_address", stored.ChannelAddress),
		slog.String("message_id", stored.ID),
		slog.String("anchorage", stored.LinkID),
		slog.Uint64("seq", stored.Seq),
	)
	return stored, nil
}

// GetMessage returns an accepted message of a channel
func (s *Service) GetMessage(ctx context.Context, channelAddress, id string) (*Message, error) {
	if channelAddress == "" || id == "" {
		return nil, NewValidationError("channelAddress and message id are required")
	}
	if _, err := s.store.GetChannel(ctx, channelAddress); err != nil {
		return nil, err
	}
	return s.store.GetMessage(ctx, channelAddress, id)
}

// ListMessages returns the signed packets of a channel in commit order
func (s *Service) ListMessages(ctx context.Context, q ListQuery) ([]*Message, error) {
	if q.ChannelAddress == "" {
		return nil, NewValidationError("channelAddress is required")
	}
	if q.Limit <= 0 || q.Limit > s.listLimitMax {
		q.Limit = s.listLimitMax
	}
	if _, err := s.store.GetChannel(ctx, q.ChannelAddress); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, q)
}

// Ping checks the store is reachable
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Close() error {
	return s.store.Close()
}
