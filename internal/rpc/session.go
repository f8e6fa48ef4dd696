package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const sessionService = "lcchat.v1.SessionService"

const (
	SessionService_GetSessionStatus_FullMethodName   = "/" + sessionService + "/GetSessionStatus"
	SessionService_SignUp_FullMethodName             = "/" + sessionService + "/SignUp"
	SessionService_SignIn_FullMethodName             = "/" + sessionService + "/SignIn"
	SessionService_SignOut_FullMethodName            = "/" + sessionService + "/SignOut"
	SessionService_GetProfile_FullMethodName         = "/" + sessionService + "/GetProfile"
	SessionService_UpdateProfile_FullMethodName      = "/" + sessionService + "/UpdateProfile"
	SessionService_UploadProfileImage_FullMethodName = "/" + sessionService + "/UploadProfileImage"
	SessionService_GetInvite_FullMethodName          = "/" + sessionService + "/GetInvite"
	SessionService_WatchSessionEvents_FullMethodName = "/" + sessionService + "/WatchSessionEvents"
)

// SessionServiceServer is the server API for SessionService.
type SessionServiceServer interface {
	GetSessionStatus(context.Context, *Empty) (*SessionStatus, error)
	SignUp(context.Context, *SignUpRequest) (*AuthResponse, error)
	SignIn(context.Context, *SignInRequest) (*AuthResponse, error)
	SignOut(context.Context, *Empty) (*Empty, error)
	GetProfile(context.Context, *Empty) (*Profile, error)
	UpdateProfile(context.Context, *UpdateProfileRequest) (*Profile, error)
	UploadProfileImage(context.Context, *UploadRequest) (*Profile, error)
	GetInvite(context.Context, *Empty) (*Invite, error)
	WatchSessionEvents(*Empty, grpc.ServerStreamingServer[SessionEvent]) error
}

// SessionService_ServiceDesc describes SessionService for grpc.ServiceRegistrar.
var SessionService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: sessionService,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(sessionService, "GetSessionStatus", SessionServiceServer.GetSessionStatus),
		unary(sessionService, "SignUp", SessionServiceServer.SignUp),
		unary(sessionService, "SignIn", SessionServiceServer.SignIn),
		unary(sessionService, "SignOut", SessionServiceServer.SignOut),
		unary(sessionService, "GetProfile", SessionServiceServer.GetProfile),
		unary(sessionService, "UpdateProfile", SessionServiceServer.UpdateProfile),
		unary(sessionService, "UploadProfileImage", SessionServiceServer.UploadProfileImage),
		unary(sessionService, "GetInvite", SessionServiceServer.GetInvite),
	},
	Streams: []grpc.StreamDesc{
		serverStream("WatchSessionEvents", SessionServiceServer.WatchSessionEvents),
	},
}

// RegisterSessionServiceServer registers srv on s.
func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&SessionService_ServiceDesc, srv)
}

// SessionServiceClient is the client API for SessionService.
type SessionServiceClient interface {
	GetSessionStatus(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*SessionStatus, error)
	SignUp(ctx context.Context, in *SignUpRequest, opts ...grpc.CallOption) (*AuthResponse, error)
	SignIn(ctx context.Context, in *SignInRequest, opts ...grpc.CallOption) (*AuthResponse, error)
	SignOut(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	GetProfile(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Profile, error)
	UpdateProfile(ctx context.Context, in *UpdateProfileRequest, opts ...grpc.CallOption) (*Profile, error)
	UploadProfileImage(ctx context.Context, in *UploadRequest, opts ...grpc.CallOption) (*Profile, error)
	GetInvite(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Invite, error)
	WatchSessionEvents(ctx context.Context, in *Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[SessionEvent], error)
}

type sessionServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSessionServiceClient returns a SessionService client over cc.
func NewSessionServiceClient(cc grpc.ClientConnInterface) SessionServiceClient {
	return &sessionServiceClient{cc: cc}
}

func (c *sessionServiceClient) GetSessionStatus(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*SessionStatus, error) {
	return invoke[SessionStatus](ctx, c.cc, SessionService_GetSessionStatus_FullMethodName, in, opts)
}

func (c *sessionServiceClient) SignUp(ctx context.Context, in *SignUpRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[AuthResponse](ctx, c.cc, SessionService_SignUp_FullMethodName, in, opts)
}

func (c *sessionServiceClient) SignIn(ctx context.Context, in *SignInRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[AuthResponse](ctx, c.cc, SessionService_SignIn_FullMethodName, in, opts)
}

func (c *sessionServiceClient) SignOut(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, SessionService_SignOut_FullMethodName, in, opts)
}

func (c *sessionServiceClient) GetProfile(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Profile, error) {
	return invoke[Profile](ctx, c.cc, SessionService_GetProfile_FullMethodName, in, opts)
}

func (c *sessionServiceClient) UpdateProfile(ctx context.Context, in *UpdateProfileRequest, opts ...grpc.CallOption) (*Profile, error) {
	return invoke[Profile](ctx, c.cc, SessionService_UpdateProfile_FullMethodName, in, opts)
}

func (c *sessionServiceClient) UploadProfileImage(ctx context.Context, in *UploadRequest, opts ...grpc.CallOption) (*Profile, error) {
	return invoke[Profile](ctx, c.cc, SessionService_UploadProfileImage_FullMethodName, in, opts)
}

func (c *sessionServiceClient) GetInvite(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Invite, error) {
	return invoke[Invite](ctx, c.cc, SessionService_GetInvite_FullMethodName, in, opts)
}

func (c *sessionServiceClient) WatchSessionEvents(ctx context.Context, in *Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[SessionEvent], error) {
	return openStream[Empty, SessionEvent](ctx, c.cc, &SessionService_ServiceDesc.Streams[0], SessionService_WatchSessionEvents_FullMethodName, in, opts)
}
