package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matheus3301/lcchat/internal/api"
	"github.com/matheus3301/lcchat/internal/apperr"
	"github.com/matheus3301/lcchat/internal/rpc"
	"github.com/matheus3301/lcchat/internal/session"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Clients authenticate with a bearer token rather than cookies.
	CheckOrigin: func(*http.Request) bool { return true },
}

// inbound is a frame sent by the browser.
type inbound struct {
	Type   string `json:"type"`
	ChatID string `json:"chat_id,omitempty"`
	Body   string `json:"body,omitempty"`
}

// outbound is a frame pushed to the browser. Exactly one payload is set.
type outbound struct {
	Type     string           `json:"type"`
	Chats    *rpc.ChatList    `json:"chats,omitempty"`
	Feed     *rpc.Feed        `json:"feed,omitempty"`
	Messages *rpc.MessageList `json:"messages,omitempty"`
	Message  *rpc.Message     `json:"message,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// client is one websocket connection with its own session state.
type client struct {
	srv    *Server
	conn   *websocket.Conn
	state  *session.State
	userID string
	send   chan []byte

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.connects.Allow(clientIP(r), time.Now()) {
		s.metrics.RateLimited("ws_connect")
		http.Error(w, apperr.Message(apperr.ErrRateLimited), http.StatusTooManyRequests)
		return
	}
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "token required", http.StatusUnauthorized)
		return
	}
	userID, err := s.app.Auth.ParseToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	st := session.NewState("ws:" + userID)
	if _, err := s.app.Attach(r.Context(), st, userID); err != nil {
		st.Reset()
		httpError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		st.Reset()
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &client{
		srv:    s,
		conn:   conn,
		state:  st,
		userID: userID,
		send:   make(chan []byte, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	s.logger.Info("websocket connected", zap.String("user_id", userID), zap.String("remote", clientIP(r)))
	go c.writePump()
	go c.pushPump()
	go c.readPump()
}

// close tears the connection down once.
func (c *client) close() {
	c.once.Do(func() {
		c.cancel()
		c.srv.app.Detach(c.state)
		_ = c.conn.Close()

		c.srv.mu.Lock()
		delete(c.srv.conns, c)
		c.srv.mu.Unlock()
		c.srv.logger.Info("websocket disconnected", zap.String("user_id", c.userID))
	})
}

func (c *client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.srv.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		var in inbound
		if err := json.Unmarshal(data, &in); err != nil {
			c.push(outbound{Type: "error", Error: "malformed frame"})
			continue
		}
		c.handle(in)
	}
}

func (c *client) handle(in inbound) {
	a := c.srv.app
	switch in.Type {
	case "open_chat":
		if _, err := a.OpenChat(c.ctx, c.state, in.ChatID); err != nil {
			c.push(outbound{Type: "error", Error: apperr.Message(err)})
		}
	case "close_chat":
		a.CloseChat(c.state)
	case "send":
		m, err := a.SendMessage(c.ctx, c.state, in.ChatID, in.Body)
		if err != nil {
			c.push(outbound{Type: "error", Error: apperr.Message(err)})
			return
		}
		out := api.MessageOf(m, c.userID)
		c.push(outbound{Type: "sent", Message: &out})
	default:
		c.push(outbound{Type: "error", Error: "unknown frame type"})
	}
}

// pushPump turns state changes into frames. Each kind has its own
// capacity-one signal, so a pending signal always reads the latest snapshot.
func (c *client) pushPump() {
	events := c.state.Events()
	chats, unsubChats := events.Subscribe(session.KindChats, 1)
	defer unsubChats()
	feed, unsubFeed := events.Subscribe(session.KindFeed, 1)
	defer unsubFeed()
	msgs, unsubMsgs := events.Subscribe(session.KindMessages, 1)
	defer unsubMsgs()

	c.pushChats()
	c.pushFeed()
	for {
		select {
		case <-chats:
			c.pushChats()
		case <-feed:
			c.pushFeed()
		case <-msgs:
			c.pushMessages()
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *client) pushChats() {
	if chats := c.state.Chats(); chats != nil {
		c.push(outbound{Type: "chats", Chats: api.ChatListOf(chats, c.userID)})
	}
}

func (c *client) pushFeed() {
	if posts := c.state.Feed(); posts != nil {
		c.push(outbound{Type: "feed", Feed: api.FeedOf(posts, c.userID)})
	}
}

func (c *client) pushMessages() {
	chatID, _, msgs := c.state.Messages()
	if chatID == "" {
		c.push(outbound{Type: "chat_closed"})
		return
	}
	if msgs != nil {
		c.push(outbound{Type: "messages", Messages: api.MessageListOf(chatID, msgs, c.userID)})
	}
}

// push queues a frame. A client that cannot keep up is disconnected.
func (c *client) push(frame outbound) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	case <-c.ctx.Done():
	default:
		c.srv.logger.Warn("websocket send buffer full, disconnecting", zap.String("user_id", c.userID))
		go c.close()
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
