package grpcnode

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger"
)

// Client implements ledger.Node over the ledger node gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client NodeClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var _ ledger.Node = (*Client)(nil)

type DialOptions struct {
	// Timeout applies per RPC when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int

	// Extra options, e.g. a custom dialer in tests
	DialOptions []grpc.DialOption
}

// Dial creates a client of the node at target (host:port). The connection is
// established lazily on the first call.
func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	dialOpts = append(dialOpts, opts.DialOptions...)

	cc, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("grpc client for %s: %w", target, err)
	}
	return &Client{cc: cc, client: NewNodeClient(cc), Timeout: opts.Timeout}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) CreateChannel(ctx context.Context, announce *ledger.Message) (*ledger.ChannelInfo, error) {
	var info ledger.ChannelInfo
	if err := c.call(ctx, c.client.CreateChannel, announce, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) Subscribe(ctx context.Context, subscribe *ledger.Message) (*ledger.Subscription, error) {
	var sub ledger.Subscription
	if err := c.call(ctx, c.client.Subscribe, subscribe, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (c *Client) Publish(ctx context.Context, m *ledger.Message) (*ledger.Message, error) {
	var stored ledger.Message
	if err := c.call(ctx, c.client.Publish, m, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (c *Client) GetMessage(ctx context.Context, channelAddress, id string) (*ledger.Message, error) {
	var m ledger.Message
	req := getMessageRequest{ChannelAddress: channelAddress, MessageID: id}
	if err := c.call(ctx, c.client.GetMessage, req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) ListMessages(ctx context.Context, q ledger.ListQuery) ([]*ledger.Message, error) {
	var reply listMessagesReply
	req := listMessagesRequest{
		ChannelAddress: q.ChannelAddress,
		LinkID:         q.LinkID,
		AfterSeq:       q.AfterSeq,
		Limit:          q.Limit,
	}
	if err := c.call(ctx, c.client.ListMessages, req, &reply); err != nil {
		return nil, err
	}
	return reply.Messages, nil
}

type rpc func(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)

func (c *Client) call(ctx context.Context, method rpc, in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return ledger.WrapInternalError(err, "failed to encode request")
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	reply, err := method(ctx, wrapperspb.Bytes(raw))
	if err != nil {
		return mapRPC(err)
	}
	if err := json.Unmarshal(reply.GetValue(), out); err != nil {
		return ledger.WrapInternalError(err, "failed to decode reply")
	}
	return nil
}
