package grpcnode

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified name of the ledger node gRPC service
const ServiceName = "anchors.ledger.v1.Node"

// NodeServer is the server API of the ledger node gRPC service.
//
// Requests and replies are JSON documents carried in protobuf BytesValue wrappers,
// the same bodies the HTTP API exchanges, so no protoc toolchain is needed.
type NodeServer interface {
	CreateChannel(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Subscribe(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Publish(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	GetMessage(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	ListMessages(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// UnimplementedNodeServer can be embedded to have forward compatible implementations.
type UnimplementedNodeServer struct{}

func (UnimplementedNodeServer) CreateChannel(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateChannel not implemented")
}
func (UnimplementedNodeServer) Subscribe(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Subscribe not implemented")
}
func (UnimplementedNodeServer) Publish(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Publish not implemented")
}
func (UnimplementedNodeServer) GetMessage(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method GetMessage not implemented")
}
func (UnimplementedNodeServer) ListMessages(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method ListMessages not implemented")
}

// RegisterNodeServer registers the ledger node service on a gRPC server.
func RegisterNodeServer(s grpc.ServiceRegistrar, srv NodeServer) {
	s.RegisterService(&Node_ServiceDesc, srv)
}

// NodeClient is the client API of the ledger node gRPC service.
type NodeClient interface {
	CreateChannel(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Subscribe(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Publish(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	GetMessage(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	ListMessages(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type nodeClient struct{ cc grpc.ClientConnInterface }

func NewNodeClient(cc grpc.ClientConnInterface) NodeClient { return &nodeClient{cc: cc} }

func (c *nodeClient) invoke(ctx context.Context, method string, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nodeClient) CreateChannel(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, "CreateChannel", in, opts...)
}

func (c *nodeClient) Subscribe(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, "Subscribe", in, opts...)
}

func (c *nodeClient) Publish(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, "Publish", in, opts...)
}

func (c *nodeClient) GetMessage(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, "GetMessage", in, opts...)
}

func (c *nodeClient) ListMessages(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, "ListMessages", in, opts...)
}

// methodHandler is the signature of grpc.MethodDesc.Handler.
type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

// unaryHandler builds the grpc.MethodDesc handler of one NodeServer method.
func unaryHandler(method string, call func(NodeServer, context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)) methodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(wrapperspb.BytesValue)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(NodeServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(NodeServer), ctx, req.(*wrapperspb.BytesValue))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Node_ServiceDesc is the grpc.ServiceDesc for the ledger node service.
var Node_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NodeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateChannel", Handler: unaryHandler("CreateChannel", NodeServer.CreateChannel)},
		{MethodName: "Subscribe", Handler: unaryHandler("Subscribe", NodeServer.Subscribe)},
		{MethodName: "Publish", Handler: unaryHandler("Publish", NodeServer.Publish)},
		{MethodName: "GetMessage", Handler: unaryHandler("GetMessage", NodeServer.GetMessage)},
		{MethodName: "ListMessages", Handler: unaryHandler("ListMessages", NodeServer.ListMessages)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger.proto",
}
