package anchors

import (
	"context"
	"log/slog"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger"
)

// AnchoringResult proves a message was published. MessageID can be used as a later anchorage.
type AnchoringResult struct {
	MessageID string `json:"msgID"`
	ChannelID string `json:"channelID"`
	Seq       uint64 `json:"seq"`
}

// AnchorRequest is the input of AnchorService.Anchor
type AnchorRequest struct {
	ChannelID   ChannelID
	Subscriber  *Subscriber
	Message     []byte
	AnchorageID string
}

// AnchorService publishes messages linked to an anchorage
type AnchorService struct {
	node   ledger.Node
	logger *slog.Logger
}

func NewAnchorService(node ledger.Node, logger *slog.Logger) *AnchorService {
	return &AnchorService{node: node, logger: logger}
}

// Anchor publishes req.Message anchored at req.AnchorageID.
// Failures are returned as AnchoringErrors and are not retried.
func (s *AnchorService) Anchor(ctx context.Context, req AnchorRequest) (*AnchoringResult, error) {
	if req.Subscriber == nil {
		return nil, NewChannelNotBoundError()
	}
	if req.AnchorageID == "" {
		return nil, NewAnchoringError(nil, "anchorage id is required")
	}

	identity := req.Subscriber.identity
	packet := ledger.NewSignedPacket(identity.PublicKey, req.ChannelID.Address, req.AnchorageID, req.Message)
	msg, err := ledger.Sign(packet, identity.PrivateKey)
	if err != nil {
		return nil, NewAnchoringError(err, "failed to sign message")
	}

	stored, err := s.node.Publish(ctx, msg)
	if err != nil {
		return nil, NewAnchoringError(err, "cannot anchor message to "+req.AnchorageID)
	}

	s.logger.Debug("message anchored",
		slog.String("channel_id", req.ChannelID.String()),
		slog.String("anchorage", req.AnchorageID),
		slog.String("message_id", stored.ID),
		slog.Uint64("seq", stored.Seq),
	)
	return &AnchoringResult{
		MessageID: stored.ID,
		ChannelID: req.ChannelID.String(),
		Seq:       stored.Seq,
	}, nil
}
