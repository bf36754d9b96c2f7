package anchors

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/seed"
)

// Subscriber is the session handle obtained by binding to a channel.
// It carries the signing identity of the seed and the role granted by the node.
type Subscriber struct {
	identity  *seed.Identity
	channel   ChannelID
	role      ledger.Role
	sessionID string
}

func (s *Subscriber) Role() ledger.Role  { return s.role }
func (s *Subscriber) PublicKey() string  { return s.identity.KeyID() }
func (s *Subscriber) SessionID() string  { return s.sessionID }
func (s *Subscriber) Channel() ChannelID { return s.channel }
func (s *Subscriber) IsAuthor() bool     { return s.role == ledger.RoleAuthor }

// ChannelService creates channels on a node and attaches sessions to them
type ChannelService struct {
	node   ledger.Node
	logger *slog.Logger
}

func NewChannelService(node ledger.Node, logger *slog.Logger) *ChannelService {
	return &ChannelService{node: node, logger: logger}
}

// CreateChannel announces a new channel authored by the seed's key.
// Each call allocates a new channel.
func (s *ChannelService) CreateChannel(ctx context.Context, sd seed.Seed, restricted bool) (ChannelID, error) {
	identity, err := seed.Derive(sd)
	if err != nil {
		return ChannelID{}, NewChannelCreationError(err, "invalid seed")
	}

	announce, err := ledger.Sign(ledger.NewAnnounce(identity.PublicKey, restricted), identity.PrivateKey)
	if err != nil {
		return ChannelID{}, NewChannelCreationError(err, "failed to sign announce")
	}

	info, err := s.node.CreateChannel(ctx, announce)
	if err != nil {
		return ChannelID{}, NewChannelCreationError(err, "node rejected channel creation")
	}

	id := ChannelID{Address: info.ChannelAddress, AnnounceID: info.AnnounceMessageID}
	s.logger.Debug("channel created",
		slog.String("channel_id", id.String()),
		slog.Bool("restricted", restricted),
	)
	return id, nil
}

// BindToChannel subscribes the seed's key to channel id and returns the session handle.
func (s *ChannelService) BindToChannel(ctx context.Context, sd seed.Seed, id ChannelID) (*Subscriber, error) {
	if id.Address == "" || id.AnnounceID == "" {
		return nil, NewChannelBindingError(NewInvalidChannelIdentifierError(id.String()), "malformed channel id")
	}
	identity, err := seed.Derive(sd)
	if err != nil {
		return nil, NewChannelBindingError(err, "invalid seed")
	}

	packet, err := ledger.Sign(ledger.NewSubscribe(identity.PublicKey, id.Address, id.AnnounceID), identity.PrivateKey)
	if err != nil {
		return nil, NewChannelBindingError(err, "failed to sign subscription")
	}

	sub, err := s.node.Subscribe(ctx, packet)
	if err != nil {
		return nil, NewChannelBindingError(err, "cannot subscribe to channel "+id.String())
	}

	subscriber := &Subscriber{
		identity:  identity,
		channel:   id,
		role:      sub.Role,
		sessionID: uuid.NewString(),
	}
	s.logger.Debug("bound to channel",
		slog.String("channel_id", id.String()),
		slog.String("role", string(sub.Role)),
		slog.String("session_id", subscriber.sessionID),
	)
	return subscriber, nil
}
