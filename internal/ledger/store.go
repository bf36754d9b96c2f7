package ledger

import "context"

// Store persists channels, subscriptions and accepted messages.
//
// Implementations return LedgerErrors: not_found for unknown channels or messages and conflict
// for duplicate channel addresses or message ids.
type Store interface {

	// CreateChannel records ch and its announce message. The announce is stored with Seq 1.
	CreateChannel(ctx context.Context, ch *Channel, announce *Message) error

	GetChannel(ctx context.Context, address string) (*Channel, error)

	// PutSubscription records sub unless the key is already subscribed, in which case the
	// existing subscription is returned.
	PutSubscription(ctx context.Context, sub *Subscription) (*Subscription, error)

	GetSubscription(ctx context.Context, channelAddress, publicKey string) (*Subscription, error)

	// AppendMessage assigns the next channel sequence number to m and stores it.
	AppendMessage(ctx context.Context, m *Message) (*Message, error)

	GetMessage(ctx context.Context, channelAddress, id string) (*Message, error)

	// ListMessages returns the signed packets matching q ordered by Seq, at most q.Limit entries.
	ListMessages(ctx context.Context, q ListQuery) ([]*Message, error)

	Ping(ctx context.Context) error
	Close() error
}

// Node is the ledger endpoint used by anchoring channels.
// It is implemented in-process by Service and remotely by the HTTP and gRPC transports.
type Node interface {
	CreateChannel(ctx context.Context, announce *Message) (*ChannelInfo, error)
	Subscribe(ctx context.Context, subscribe *Message) (*Subscription, error)
	Publish(ctx context.Context, m *Message) (*Message, error)
	GetMessage(ctx context.Context, channelAddress, id string) (*Message, error)
	ListMessages(ctx context.Context, q ListQuery) ([]*Message, error)
	Close() error
}
