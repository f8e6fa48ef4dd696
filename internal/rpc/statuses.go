package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const statusService = "lcchat.v1.StatusService"

const (
	StatusService_PostStatus_FullMethodName = "/" + statusService + "/PostStatus"
	StatusService_WatchFeed_FullMethodName  = "/" + statusService + "/WatchFeed"
)

// StatusServiceServer is the server API for StatusService.
type StatusServiceServer interface {
	PostStatus(context.Context, *UploadRequest) (*Status, error)
	WatchFeed(*Empty, grpc.ServerStreamingServer[Feed]) error
}

// StatusService_ServiceDesc describes StatusService for grpc.ServiceRegistrar.
var StatusService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: statusService,
	HandlerType: (*StatusServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(statusService, "PostStatus", StatusServiceServer.PostStatus),
	},
	Streams: []grpc.StreamDesc{
		serverStream("WatchFeed", StatusServiceServer.WatchFeed),
	},
}

// RegisterStatusServiceServer registers srv on s.
func RegisterStatusServiceServer(s grpc.ServiceRegistrar, srv StatusServiceServer) {
	s.RegisterService(&StatusService_ServiceDesc, srv)
}

// StatusServiceClient is the client API for StatusService.
type StatusServiceClient interface {
	PostStatus(ctx context.Context, in *UploadRequest, opts ...grpc.CallOption) (*Status, error)
	WatchFeed(ctx context.Context, in *Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Feed], error)
}

type statusServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewStatusServiceClient returns a StatusService client over cc.
func NewStatusServiceClient(cc grpc.ClientConnInterface) StatusServiceClient {
	return &statusServiceClient{cc: cc}
}

func (c *statusServiceClient) PostStatus(ctx context.Context, in *UploadRequest, opts ...grpc.CallOption) (*Status, error) {
	return invoke[Status](ctx, c.cc, StatusService_PostStatus_FullMethodName, in, opts)
}

func (c *statusServiceClient) WatchFeed(ctx context.Context, in *Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Feed], error) {
	return openStream[Empty, Feed](ctx, c.cc, &StatusService_ServiceDesc.Streams[0], StatusService_WatchFeed_FullMethodName, in, opts)
}
