package anchors

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/cursor"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger"
)

// FetchResult is a message read back from a channel
type FetchResult struct {
	Message     []byte    `json:"message"`
	PublicKey   string    `json:"publicKey"`
	MessageID   string    `json:"msgID"`
	AnchorageID string    `json:"anchorageID"`
	Seq         uint64    `json:"seq"`
	Timestamp   time.Time `json:"timestamp"`
}

// FetchRequest is the input of FetchService.Fetch.
// An empty MessageID selects fetch-next semantics.
type FetchRequest struct {
	ChannelID   ChannelID
	Subscriber  *Subscriber
	AnchorageID string
	MessageID   string
}

// FetchService reads messages from a channel, tracking fetch-next progress in a cursor store
type FetchService struct {
	node    ledger.Node
	cursors cursor.Store
	scope   func(*Subscriber) string
	logger  *slog.Logger
}

func NewFetchService(node ledger.Node, cursors cursor.Store, scope func(*Subscriber) string, logger *slog.Logger) *FetchService {
	if scope == nil {
		scope = func(s *Subscriber) string { return s.sessionID }
	}
	return &FetchService{node: node, cursors: cursors, scope: scope, logger: logger}
}

// Fetch returns the message req.MessageID anchored at req.AnchorageID, or, when no message id
// is given, the first message at the anchorage not yet delivered to this session.
// A nil result with a nil error means nothing new has been anchored yet.
func (s *FetchService) Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	if req.Subscriber == nil {
		return nil, NewChannelNotBoundError()
	}
	if req.AnchorageID == "" {
		return nil, NewFetchError(nil, "anchorage id is required")
	}
	if req.MessageID != "" {
		return s.fetchByID(ctx, req)
	}
	return s.next(ctx, req.ChannelID, req.Subscriber, req.AnchorageID)
}

// FetchNext returns the next undelivered message of the whole channel in commit order,
// regardless of its anchorage.
func (s *FetchService) FetchNext(ctx context.Context, id ChannelID, sub *Subscriber) (*FetchResult, error) {
	if sub == nil {
		return nil, NewChannelNotBoundError()
	}
	return s.next(ctx, id, sub, "")
}

func (s *FetchService) fetchByID(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	m, err := s.node.GetMessage(ctx, req.ChannelID.Address, req.MessageID)
	if err != nil {
		if ledger.IsNotFound(err) {
			return nil, NewMessageNotFoundError(err, req.MessageID)
		}
		return nil, NewFetchError(err, "cannot fetch message "+req.MessageID)
	}
	if m.Kind != ledger.KindSignedPacket || m.LinkID != req.AnchorageID {
		return nil, NewMessageNotFoundError(nil, req.MessageID+" at anchorage "+req.AnchorageID)
	}
	if err := m.Verify(); err != nil {
		return nil, NewFetchError(err, "message "+m.ID+" failed verification")
	}
	return toResult(m), nil
}

func (s *FetchService) next(ctx context.Context, id ChannelID, sub *Subscriber, anchorage string) (*FetchResult, error) {
	key := cursor.Key{Scope: s.scope(sub), Channel: id.String(), Anchorage: anchorage}

	after, _, err := s.cursors.Get(ctx, key)
	if err != nil {
		return nil, NewFetchError(err, "cannot read cursor")
	}

	msgs, err := s.node.ListMessages(ctx, ledger.ListQuery{
		ChannelAddress: id.Address,
		LinkID:         anchorage,
		AfterSeq:       after,
		Limit:          1,
	})
	if err != nil {
		return nil, NewFetchError(err, "cannot list messages of channel "+id.String())
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	m := msgs[0]
	if err := m.Verify(); err != nil {
		return nil, NewFetchError(err, "message "+m.ID+" failed verification")
	}
	if err := s.cursors.Commit(ctx, key, m.Seq); err != nil {
		return nil, NewFetchError(err, "cannot commit cursor")
	}

	s.logger.Debug("message fetched",
		slog.String("channel_id", id.String()),
		slog.String("anchorage", m.LinkID),
		slog.String("message_id", m.ID),
		slog.Uint64("seq", m.Seq),
	)
	return toResult(m), nil
}

func toResult(m *ledger.Message) *FetchResult {
	return &FetchResult{
		Message:     m.Payload,
		PublicKey:   m.PublicKey,
		MessageID:   m.ID,
		AnchorageID: m.LinkID,
		Seq:         m.Seq,
		Timestamp:   m.Timestamp,
	}
}
