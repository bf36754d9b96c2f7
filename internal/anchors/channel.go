package anchors

import (
	"context"
	"iter"
	"log/slog"
	"sync"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/seed"
)

// UnboundChannel holds a node endpoint and a seed until Bind turns it into a Channel.
// Bind succeeds at most once per UnboundChannel.
type UnboundChannel struct {
	rt         *Runtime
	node       string
	seed       seed.Seed
	restricted bool

	mu    sync.Mutex
	bound bool
	// created is the channel made by an earlier Bind whose subscribe step failed
	created ChannelID
}

// WithRestricted makes Bind create a channel that only the author's seed can bind to.
// It has no effect when binding to an existing channel.
func (u *UnboundChannel) WithRestricted() *UnboundChannel {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.restricted = true
	return u
}

func (u *UnboundChannel) Node() string    { return u.node }
func (u *UnboundChannel) Seed() seed.Seed { return u.seed }

// Bind creates a new channel when channelID is empty, otherwise it attaches to the channel
// "address:announceId". A second call after a successful bind fails with ChannelAlreadyBoundError.
// If a created channel could not be subscribed to, a retry with an empty channelID reuses it.
func (u *UnboundChannel) Bind(ctx context.Context, channelID string) (*Channel, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.bound {
		return nil, NewChannelAlreadyBoundError()
	}

	var id ChannelID
	if channelID != "" {
		parsed, err := ParseChannelID(channelID)
		if err != nil {
			return nil, err
		}
		id = parsed
	}

	node, err := u.rt.dial(ctx, u.node)
	if err != nil {
		if id.IsZero() {
			return nil, NewChannelCreationError(err, "cannot reach node "+u.node)
		}
		return nil, NewChannelBindingError(err, "cannot reach node "+u.node)
	}

	logger := u.rt.logger.With(slog.String("node", u.node))
	channels := NewChannelService(node, logger)

	if id.IsZero() {
		if u.created.IsZero() {
			u.created, err = channels.CreateChannel(ctx, u.seed, u.restricted)
			if err != nil {
				return nil, err
			}
		}
		id = u.created
	}

	sub, err := channels.BindToChannel(ctx, u.seed, id)
	if err != nil {
		return nil, err
	}

	u.bound = true
	logger = logger.With(slog.String("channel_id", id.String()))
	return &Channel{
		node:       u.node,
		seed:       u.seed,
		id:         id,
		subscriber: sub,
		anchors:    NewAnchorService(node, logger),
		fetcher:    NewFetchService(node, u.rt.cursors, u.rt.cursorScope, logger),
	}, nil
}

// Channel is a bound anchoring channel. The zero value is unbound: every operation fails with
// ChannelNotBoundError without contacting a node.
//
// Anchor calls on one Channel must be issued sequentially when they chain anchorages.
// Fetch calls on different anchorages may run concurrently.
type Channel struct {
	node       string
	seed       seed.Seed
	id         ChannelID
	subscriber *Subscriber
	anchors    *AnchorService
	fetcher    *FetchService
}

// ChannelDetails describes a bound channel
type ChannelDetails struct {
	ChannelID        string      `json:"channelID"`
	ChannelAddress   string      `json:"channelAddress"`
	FirstAnchorageID string      `json:"firstAnchorageID"`
	Node             string      `json:"node"`
	PublicKey        string      `json:"publicKey"`
	Role             ledger.Role `json:"role"`
	Seed             string      `json:"seed"`
}

func (c *Channel) isBound() bool {
	return c != nil && c.subscriber != nil
}

// ID returns "address:announceId", or "" when unbound
func (c *Channel) ID() string {
	if !c.isBound() {
		return ""
	}
	return c.id.String()
}

func (c *Channel) ChannelAddress() string {
	if !c.isBound() {
		return ""
	}
	return c.id.Address
}

// FirstAnchorageID returns the announce message id, the first anchorage of every channel
func (c *Channel) FirstAnchorageID() string {
	if !c.isBound() {
		return ""
	}
	return c.id.AnnounceID
}

func (c *Channel) Node() string {
	if c == nil {
		return ""
	}
	return c.node
}

func (c *Channel) Seed() seed.Seed {
	if c == nil {
		return ""
	}
	return c.seed
}

// PublicKey returns the hex key the seed signs with
func (c *Channel) PublicKey() string {
	if !c.isBound() {
		return ""
	}
	return c.subscriber.PublicKey()
}

// Subscriber returns the session handle, nil when unbound
func (c *Channel) Subscriber() *Subscriber {
	if !c.isBound() {
		return nil
	}
	return c.subscriber
}

// Details returns the channel description printed by the CLI. It includes the seed.
func (c *Channel) Details() (ChannelDetails, error) {
	if !c.isBound() {
		return ChannelDetails{}, NewChannelNotBoundError()
	}
	return ChannelDetails{
		ChannelID:        c.id.String(),
		ChannelAddress:   c.id.Address,
		FirstAnchorageID: c.id.AnnounceID,
		Node:             c.node,
		PublicKey:        c.subscriber.PublicKey(),
		Role:             c.subscriber.Role(),
		Seed:             string(c.seed),
	}, nil
}

// Anchor publishes message anchored at anchorageID
func (c *Channel) Anchor(ctx context.Context, message []byte, anchorageID string) (*AnchoringResult, error) {
	if !c.isBound() {
		return nil, NewChannelNotBoundError()
	}
	return c.anchors.Anchor(ctx, AnchorRequest{
		ChannelID:   c.id,
		Subscriber:  c.subscriber,
		Message:     message,
		AnchorageID: anchorageID,
	})
}

// Fetch reads messageID at anchorageID, or the next undelivered message at anchorageID when
// messageID is empty. The next-message form returns (nil, nil) when nothing new exists.
func (c *Channel) Fetch(ctx context.Context, anchorageID, messageID string) (*FetchResult, error) {
	if !c.isBound() {
		return nil, NewChannelNotBoundError()
	}
	return c.fetcher.Fetch(ctx, FetchRequest{
		ChannelID:   c.id,
		Subscriber:  c.subscriber,
		AnchorageID: anchorageID,
		MessageID:   messageID,
	})
}

// FetchNext returns the next undelivered message of the channel in commit order across all
// anchorages, or (nil, nil).
func (c *Channel) FetchNext(ctx context.Context) (*FetchResult, error) {
	if !c.isBound() {
		return nil, NewChannelNotBoundError()
	}
	return c.fetcher.FetchNext(ctx, c.id, c.subscriber)
}

// Follow yields the undelivered messages anchored at anchorageID in commit order and stops at the
// first absent result or error. Calling Follow again resumes after the last delivered message.
func (c *Channel) Follow(ctx context.Context, anchorageID string) iter.Seq2[*FetchResult, error] {
	return drain(func() (*FetchResult, error) {
		return c.Fetch(ctx, anchorageID, "")
	})
}

// Messages is the channel-wide form of Follow.
func (c *Channel) Messages(ctx context.Context) iter.Seq2[*FetchResult, error] {
	return drain(func() (*FetchResult, error) {
		return c.FetchNext(ctx)
	})
}

func drain(next func() (*FetchResult, error)) iter.Seq2[*FetchResult, error] {
	return func(yield func(*FetchResult, error) bool) {
		for {
			res, err := next()
			if err != nil {
				yield(nil, err)
				return
			}
			if res == nil {
				return
			}
			if !yield(res, nil) {
				return
			}
		}
	}
}
