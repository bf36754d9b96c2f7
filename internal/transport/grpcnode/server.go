package grpcnode

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger"
)

// getMessageRequest is the GetMessage request body
type getMessageRequest struct {
	ChannelAddress string `json:"channelAddress"`
	MessageID      string `json:"messageId"`
}

// listMessagesRequest is the ListMessages request body
type listMessagesRequest struct {
	ChannelAddress string `json:"channelAddress"`
	LinkID         string `json:"linkId,omitempty"`
	AfterSeq       uint64 `json:"after,omitempty"`
	Limit          int    `json:"limit,omitempty"`
}

// listMessagesReply is the ListMessages reply body
type listMessagesReply struct {
	Messages []*ledger.Message `json:"messages"`
}

// Server exposes a ledger.Node over the ledger node gRPC service.
type Server struct {
	UnimplementedNodeServer
	Node ledger.Node
}

func (s *Server) CreateChannel(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var announce ledger.Message
	if err := decode(in, &announce); err != nil {
		return nil, err
	}
	info, err := s.Node.CreateChannel(ctx, &announce)
	if err != nil {
		return nil, mapErr(err)
	}
	return encode(info)
}

func (s *Server) Subscribe(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var m ledger.Message
	if err := decode(in, &m); err != nil {
		return nil, err
	}
	sub, err := s.Node.Subscribe(ctx, &m)
	if err != nil {
		return nil, mapErr(err)
	}
	return encode(sub)
}

func (s *Server) Publish(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var m ledger.Message
	if err := decode(in, &m); err != nil {
		return nil, err
	}
	stored, err := s.Node.Publish(ctx, &m)
	if err != nil {
		return nil, mapErr(err)
	}
	return encode(stored)
}

func (s *Server) GetMessage(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var req getMessageRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	m, err := s.Node.GetMessage(ctx, req.ChannelAddress, req.MessageID)
	if err != nil {
		return nil, mapErr(err)
	}
	return encode(m)
}

func (s *Server) ListMessages(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var req listMessagesRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	messages, err := s.Node.ListMessages(ctx, ledger.ListQuery{
		ChannelAddress: req.ChannelAddress,
		LinkID:         req.LinkID,
		AfterSeq:       req.AfterSeq,
		Limit:          req.Limit,
	})
	if err != nil {
		return nil, mapErr(err)
	}
	if messages == nil {
		messages = []*ledger.Message{}
	}
	return encode(listMessagesReply{Messages: messages})
}

func decode(in *wrapperspb.BytesValue, dst any) error {
	if err := json.Unmarshal(in.GetValue(), dst); err != nil {
		return status.Error(codes.InvalidArgument, "invalid request body: "+err.Error())
	}
	return nil
}

func encode(v any) (*wrapperspb.BytesValue, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode reply")
	}
	return wrapperspb.Bytes(raw), nil
}

// NewGRPCServer returns a gRPC server with the ledger node service registered on node.
// maxMsgBytes bounds received messages when non-zero.
func NewGRPCServer(node ledger.Node, logger *slog.Logger, maxMsgBytes int) *grpc.Server {
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(loggingInterceptor(logger)),
	}
	if maxMsgBytes > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(maxMsgBytes))
	}
	srv := grpc.NewServer(opts...)
	RegisterNodeServer(srv, &Server{Node: node})
	return srv
}

// loggingInterceptor writes one log line per call, like the HTTP request logging middleware.
func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		level := slog.LevelInfo
		if code == codes.Internal || code == codes.Unknown {
			level = slog.LevelError
		}
		logger.LogAttrs(ctx, level, "RPC completed",
			slog.String("method", info.FullMethod),
			slog.String("code", code.String()),
			slog.Duration("duration", time.Since(start)),
		)
		return resp, err
	}
}
