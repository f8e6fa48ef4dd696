package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const chatService = "lcchat.v1.ChatService"

const (
	ChatService_AddChat_FullMethodName       = "/" + chatService + "/AddChat"
	ChatService_FindChat_FullMethodName      = "/" + chatService + "/FindChat"
	ChatService_ListChats_FullMethodName     = "/" + chatService + "/ListChats"
	ChatService_SendMessage_FullMethodName   = "/" + chatService + "/SendMessage"
	ChatService_ListMessages_FullMethodName  = "/" + chatService + "/ListMessages"
	ChatService_CloseChat_FullMethodName     = "/" + chatService + "/CloseChat"
	ChatService_WatchChats_FullMethodName    = "/" + chatService + "/WatchChats"
	ChatService_WatchMessages_FullMethodName = "/" + chatService + "/WatchMessages"
)

// ChatServiceServer is the server API for ChatService.
type ChatServiceServer interface {
	AddChat(context.Context, *NumberRequest) (*Chat, error)
	FindChat(context.Context, *NumberRequest) (*FindChatResponse, error)
	ListChats(context.Context, *Empty) (*ChatList, error)
	SendMessage(context.Context, *SendMessageRequest) (*Message, error)
	ListMessages(context.Context, *ChatRequest) (*MessageList, error)
	CloseChat(context.Context, *Empty) (*Empty, error)
	WatchChats(*Empty, grpc.ServerStreamingServer[ChatList]) error
	// WatchMessages opens chat_id as the session's chat. A later
	// WatchMessages ends earlier streams with codes.Aborted.
	WatchMessages(*ChatRequest, grpc.ServerStreamingServer[MessageList]) error
}

// ChatService_ServiceDesc describes ChatService for grpc.ServiceRegistrar.
var ChatService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: chatService,
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(chatService, "AddChat", ChatServiceServer.AddChat),
		unary(chatService, "FindChat", ChatServiceServer.FindChat),
		unary(chatService, "ListChats", ChatServiceServer.ListChats),
		unary(chatService, "SendMessage", ChatServiceServer.SendMessage),
		unary(chatService, "ListMessages", ChatServiceServer.ListMessages),
		unary(chatService, "CloseChat", ChatServiceServer.CloseChat),
	},
	Streams: []grpc.StreamDesc{
		serverStream("WatchChats", ChatServiceServer.WatchChats),
		serverStream("WatchMessages", ChatServiceServer.WatchMessages),
	},
}

// RegisterChatServiceServer registers srv on s.
func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ChatService_ServiceDesc, srv)
}

// ChatServiceClient is the client API for ChatService.
type ChatServiceClient interface {
	AddChat(ctx context.Context, in *NumberRequest, opts ...grpc.CallOption) (*Chat, error)
	FindChat(ctx context.Context, in *NumberRequest, opts ...grpc.CallOption) (*FindChatResponse, error)
	ListChats(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ChatList, error)
	SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*Message, error)
	ListMessages(ctx context.Context, in *ChatRequest, opts ...grpc.CallOption) (*MessageList, error)
	CloseChat(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	WatchChats(ctx context.Context, in *Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[ChatList], error)
	WatchMessages(ctx context.Context, in *ChatRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[MessageList], error)
}

type chatServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewChatServiceClient returns a ChatService client over cc.
func NewChatServiceClient(cc grpc.ClientConnInterface) ChatServiceClient {
	return &chatServiceClient{cc: cc}
}

func (c *chatServiceClient) AddChat(ctx context.Context, in *NumberRequest, opts ...grpc.CallOption) (*Chat, error) {
	return invoke[Chat](ctx, c.cc, ChatService_AddChat_FullMethodName, in, opts)
}

func (c *chatServiceClient) FindChat(ctx context.Context, in *NumberRequest, opts ...grpc.CallOption) (*FindChatResponse, error) {
	return invoke[FindChatResponse](ctx, c.cc, ChatService_FindChat_FullMethodName, in, opts)
}

func (c *chatServiceClient) ListChats(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ChatList, error) {
	return invoke[ChatList](ctx, c.cc, ChatService_ListChats_FullMethodName, in, opts)
}

func (c *chatServiceClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*Message, error) {
	return invoke[Message](ctx, c.cc, ChatService_SendMessage_FullMethodName, in, opts)
}

func (c *chatServiceClient) ListMessages(ctx context.Context, in *ChatRequest, opts ...grpc.CallOption) (*MessageList, error) {
	return invoke[MessageList](ctx, c.cc, ChatService_ListMessages_FullMethodName, in, opts)
}

func (c *chatServiceClient) CloseChat(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, ChatService_CloseChat_FullMethodName, in, opts)
}

func (c *chatServiceClient) WatchChats(ctx context.Context, in *Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[ChatList], error) {
	return openStream[Empty, ChatList](ctx, c.cc, &ChatService_ServiceDesc.Streams[0], ChatService_WatchChats_FullMethodName, in, opts)
}

func (c *chatServiceClient) WatchMessages(ctx context.Context, in *ChatRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[MessageList], error) {
	return openStream[ChatRequest, MessageList](ctx, c.cc, &ChatService_ServiceDesc.Streams[1], ChatService_WatchMessages_FullMethodName, in, opts)
}
