package api

import (
	"github.com/matheus3301/lcchat/internal/rpc"
	"github.com/matheus3301/lcchat/internal/statusfeed"
	"github.com/matheus3301/lcchat/internal/store"
)

// ProfileOf converts a directory user.
func ProfileOf(u store.User) *rpc.Profile {
	return &rpc.Profile{UserID: u.UserID, Name: u.Name, Number: u.Number, ImageURL: u.ImageURL}
}

func refOf(r store.UserRef) rpc.Profile {
	return rpc.Profile{UserID: r.UserID, Name: r.Name, Number: r.Number, ImageURL: r.ImageURL}
}

// ChatOf converts c as seen by viewerID.
func ChatOf(c store.Chat, viewerID string) rpc.Chat {
	partner, _ := c.Partner(viewerID)
	return rpc.Chat{ChatID: c.ChatID, Partner: refOf(partner), CreatedAt: c.CreatedAt}
}

// ChatListOf converts a chat list as seen by viewerID.
func ChatListOf(chats []store.Chat, viewerID string) *rpc.ChatList {
	out := &rpc.ChatList{Chats: make([]rpc.Chat, 0, len(chats))}
	for _, c := range chats {
		out.Chats = append(out.Chats, ChatOf(c, viewerID))
	}
	return out
}

// MessageOf converts m, marking it Mine when viewerID sent it.
func MessageOf(m store.Message, viewerID string) rpc.Message {
	return rpc.Message{
		ID:       m.ID,
		ChatID:   m.ChatID,
		SenderID: m.SenderID,
		Body:     m.Body,
		SentAt:   m.SentAt,
		Mine:     m.SenderID == viewerID,
	}
}

// MessageListOf converts a chat's message log.
func MessageListOf(chatID string, msgs []store.Message, viewerID string) *rpc.MessageList {
	out := &rpc.MessageList{ChatID: chatID, Messages: make([]rpc.Message, 0, len(msgs))}
	for _, m := range msgs {
		out.Messages = append(out.Messages, MessageOf(m, viewerID))
	}
	return out
}

// StatusOf converts a status post.
func StatusOf(p store.StatusPost) rpc.Status {
	return rpc.Status{ID: p.ID, Author: refOf(p.Author), MediaURL: p.MediaURL, PostedAt: p.PostedAt}
}

func statusesOf(posts []store.StatusPost) []rpc.Status {
	out := make([]rpc.Status, 0, len(posts))
	for _, p := range posts {
		out = append(out, StatusOf(p))
	}
	return out
}

// FeedOf groups visible posts for viewerID.
func FeedOf(posts []store.StatusPost, viewerID string) *rpc.Feed {
	view := statusfeed.Group(posts, viewerID)
	out := &rpc.Feed{Mine: statusesOf(view.Mine), Others: make([]rpc.AuthorFeed, 0, len(view.Others))}
	for _, a := range view.Others {
		out.Others = append(out.Others, rpc.AuthorFeed{Author: refOf(a.Author), Posts: statusesOf(a.Posts)})
	}
	return out
}
