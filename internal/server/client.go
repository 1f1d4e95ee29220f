package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-chatlive/internal/events"
	"github.com/npezzotti/go-chatlive/internal/rooms"
	"github.com/npezzotti/go-chatlive/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// Client is one live socket connection of an authenticated user. A user
// may hold several.
type Client struct {
	id         string
	conn       *websocket.Conn
	chatServer *ChatServer
	log        *log.Logger
	user       types.User
	send       chan *events.ServerEvent
	stop       chan struct{}
	stopOnce   sync.Once
}

var _ events.Conn = (*Client)(nil)

func NewClient(user types.User, conn *websocket.Conn, cs *ChatServer, l *log.Logger) *Client {
	return &Client{
		id:         uuid.NewString(),
		conn:       conn,
		chatServer: cs,
		log:        l,
		user:       user,
		send:       make(chan *events.ServerEvent, sendBufferSize),
		stop:       make(chan struct{}),
	}
}

func (c *Client) Id() string {
	return c.id
}

// Send queues ev without blocking. It reports false when the connection's
// buffer is full.
func (c *Client) Send(ev *events.ServerEvent) bool {
	return c.queueMessage(ev)
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev := <-c.send:
			bytes, err := events.Serialize(ev)
			if err != nil {
				c.log.Printf("serialize %q: %v", ev.Event, err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		cmd, err := events.Decode(raw)
		if err != nil {
			c.log.Printf("connection %s: dropping event: %v", c.id, err)
			continue
		}

		c.handle(cmd)
	}
}

// handle applies one client event. Failures are logged and never sent back
// over the socket.
func (c *Client) handle(cmd events.Command) {
	cs := c.chatServer
	ctx := context.Background()

	switch cmd := cmd.(type) {
	case events.SetupCommand:
		c.setup(ctx)
	case events.GetOnlineUsersCommand:
		c.queueMessage(events.New(events.OnlineUsersPayload(cs.presence.ListOnline())))
	case events.JoinChatCommand:
		if err := cs.chats.CanJoin(ctx, c.user.Id, cmd.ChatId); err != nil {
			c.log.Printf("user %d join %q: %v", c.user.Id, cmd.ChatId, err)
			return
		}
		cs.rooms.Join(c, cmd.ChatId)
	case events.LeaveChatCommand:
		cs.rooms.Leave(c, cmd.ChatId)
	case events.ChatSignalCommand:
		if !cs.rooms.IsJoined(c, cmd.ChatId) {
			c.log.Printf("user %d sent %q for unjoined chat %q", c.user.Id, cmd.Event, cmd.ChatId)
			return
		}
		cs.fanout.Signal(c, cmd.Relay())
	case events.MessageReadCommand:
		if _, err := cs.chats.MarkMessageRead(ctx, c.user.Id, cmd.MessageId, cmd.ChatId); err != nil {
			c.log.Printf("user %d read message %d: %v", c.user.Id, cmd.MessageId, err)
		}
	case events.MarkChatReadCommand:
		if _, err := cs.chats.MarkChatRead(ctx, c.user.Id, cmd.ChatId); err != nil {
			c.log.Printf("user %d read chat %q: %v", c.user.Id, cmd.ChatId, err)
		}
	case events.MessageReactionCommand:
		if _, err := cs.chats.React(ctx, c.user.Id, cmd.MessageId, cmd.Emoji); err != nil {
			c.log.Printf("user %d react to %d: %v", c.user.Id, cmd.MessageId, err)
		}
	default:
		c.log.Printf("unhandled event %T", cmd)
	}
}

// setup joins the user's personal room and marks the user online. The
// in-memory presence change applies even when persisting it fails.
func (c *Client) setup(ctx context.Context) {
	cs := c.chatServer
	cs.rooms.Join(c, rooms.PersonalRoom(c.user.Id))

	if err := cs.presence.MarkOnline(ctx, c.user.Id, c); err != nil {
		c.log.Printf("mark online: %v", err)
	}

	c.queueMessage(events.New(events.ConnectedPayload{UserId: c.user.Id, IsOnline: true}))
	c.queueMessage(events.New(events.OnlineUsersPayload(cs.presence.ListOnline())))
}

func (c *Client) queueMessage(ev *events.ServerEvent) bool {
	select {
	case c.send <- ev:
	default:
		c.log.Printf("connection %s: send buffer full, dropping %q", c.id, ev.Event)
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Client) cleanup() {
	c.chatServer.deregister(c)
	c.stopClient()
}
