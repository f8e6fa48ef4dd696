package api

import (
	"context"

	"github.com/matheus3301/lcchat/internal/app"
	"github.com/matheus3301/lcchat/internal/rpc"
	"github.com/matheus3301/lcchat/internal/session"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// ChatService implements the ChatService gRPC service.
type ChatService struct {
	app   *app.App
	state *session.State
}

// NewChatService creates the chat service for the daemon's state.
func NewChatService(a *app.App, st *session.State) *ChatService {
	return &ChatService{app: a, state: st}
}

func (s *ChatService) AddChat(ctx context.Context, req *rpc.NumberRequest) (*rpc.Chat, error) {
	c, err := s.app.AddChat(ctx, s.state, app.ParseInvite(req.Number))
	if err != nil {
		return nil, grpcError(err)
	}
	out := ChatOf(c, s.viewer())
	return &out, nil
}

func (s *ChatService) FindChat(ctx context.Context, req *rpc.NumberRequest) (*rpc.FindChatResponse, error) {
	c, err := s.app.FindChat(ctx, s.state, app.ParseInvite(req.Number))
	if err != nil {
		return nil, grpcError(err)
	}
	if c == nil {
		return &rpc.FindChatResponse{}, nil
	}
	out := ChatOf(*c, s.viewer())
	return &rpc.FindChatResponse{Found: true, Chat: &out}, nil
}

func (s *ChatService) ListChats(ctx context.Context, _ *rpc.Empty) (*rpc.ChatList, error) {
	chats, err := s.app.Chats(ctx, s.state)
	if err != nil {
		return nil, grpcError(err)
	}
	return ChatListOf(chats, s.viewer()), nil
}

func (s *ChatService) SendMessage(ctx context.Context, req *rpc.SendMessageRequest) (*rpc.Message, error) {
	m, err := s.app.SendMessage(ctx, s.state, req.ChatID, req.Body)
	if err != nil {
		return nil, grpcError(err)
	}
	out := MessageOf(m, s.viewer())
	return &out, nil
}

func (s *ChatService) ListMessages(ctx context.Context, req *rpc.ChatRequest) (*rpc.MessageList, error) {
	msgs, err := s.app.History(ctx, s.state, req.ChatID)
	if err != nil {
		return nil, grpcError(err)
	}
	return MessageListOf(req.ChatID, msgs, s.viewer()), nil
}

func (s *ChatService) CloseChat(_ context.Context, _ *rpc.Empty) (*rpc.Empty, error) {
	s.app.CloseChat(s.state)
	return &rpc.Empty{}, nil
}

// WatchChats streams the signed-in user's chat list. Each event is a signal
// to send the latest snapshot, so a slow reader skips intermediate lists.
func (s *ChatService) WatchChats(_ *rpc.Empty, stream grpc.ServerStreamingServer[rpc.ChatList]) error {
	if _, err := s.app.Me(s.state); err != nil {
		return grpcError(err)
	}
	signal, unsub := s.state.Events().Subscribe(session.KindChats, 1)
	defer unsub()

	for {
		if chats := s.state.Chats(); chats != nil {
			if err := stream.Send(ChatListOf(chats, s.viewer())); err != nil {
				return err
			}
		}
		select {
		case <-signal:
		case <-stream.Context().Done():
			return nil
		}
	}
}

// WatchMessages opens the requested chat on the session and streams its
// message log. The stream ends with Aborted once another chat is opened or
// the chat is closed; a stream that goes away closes the chat it opened.
func (s *ChatService) WatchMessages(req *rpc.ChatRequest, stream grpc.ServerStreamingServer[rpc.MessageList]) error {
	signal, unsub := s.state.Events().Subscribe(session.KindMessages, 1)
	defer unsub()

	gen, err := s.app.OpenChat(stream.Context(), s.state, req.ChatID)
	if err != nil {
		return grpcError(err)
	}
	defer s.state.CloseMessagesAt(gen)

	for {
		chatID, current, msgs := s.state.Messages()
		if current != gen {
			return grpcstatus.Error(codes.Aborted, "chat replaced by a newer subscription")
		}
		if msgs != nil {
			if err := stream.Send(MessageListOf(chatID, msgs, s.viewer())); err != nil {
				return err
			}
		}
		select {
		case <-signal:
		case <-stream.Context().Done():
			return nil
		}
	}
}

func (s *ChatService) viewer() string {
	u, _ := s.state.User()
	return u.UserID
}
