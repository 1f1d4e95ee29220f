package server

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/npezzotti/go-chatlive/internal/events"
	"github.com/npezzotti/go-chatlive/internal/fanout"
	"github.com/npezzotti/go-chatlive/internal/presence"
	"github.com/npezzotti/go-chatlive/internal/rooms"
	"github.com/npezzotti/go-chatlive/internal/stats"
	"github.com/npezzotti/go-chatlive/internal/types"
)

var ErrServerStopped = errors.New("chat server stopped")

// ChatService is the part of the chat domain reachable from socket events.
type ChatService interface {
	CanJoin(ctx context.Context, userId int, chatId string) error
	MarkChatRead(ctx context.Context, userId int, chatId string) (int, error)
	MarkMessageRead(ctx context.Context, userId int, messageId int64, chatId string) (bool, error)
	React(ctx context.Context, userId int, messageId int64, emoji string) (types.Message, error)
}

type ChatServer struct {
	log            *log.Logger
	clients        map[*Client]struct{}
	clientsLock    sync.RWMutex
	registerChan   chan *Client
	deRegisterChan chan *Client
	rooms          *rooms.Router
	presence       *presence.Registry
	chats          ChatService
	fanout         *fanout.Fanout
	stats          stats.StatsProvider
	disconnects    sync.WaitGroup
	stopOnce       sync.Once
	stop           chan struct{}
	done           chan struct{}
}

func NewChatServer(logger *log.Logger, store presence.Store, chats ChatService, router *rooms.Router, fo *fanout.Fanout, su stats.StatsProvider) *ChatServer {
	cs := &ChatServer{
		log:            logger,
		clients:        make(map[*Client]struct{}),
		registerChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		rooms:          router,
		chats:          chats,
		fanout:         fo,
		stats:          su,
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
	cs.presence = presence.NewRegistry(store, cs, logger, su)
	return cs
}

// Presence exposes the registry for read-only queries from the REST layer.
func (cs *ChatServer) Presence() *presence.Registry {
	return cs.presence
}

func (cs *ChatServer) Run() {
	for {
		select {
		case client := <-cs.registerChan:
			cs.log.Printf("adding connection %s for user %d", client.id, client.user.Id)
			cs.addClient(client)
			cs.stats.Incr(stats.NumActiveClients)
		case client := <-cs.deRegisterChan:
			if !cs.removeClient(client) {
				continue
			}
			cs.log.Printf("removing connection %s for user %d", client.id, client.user.Id)
			cs.stats.Decr(stats.NumActiveClients)

			cs.disconnects.Add(1)
			go cs.disconnect(client)
		case <-cs.stop:
			cs.log.Println("closing client connections")
			cs.clientsLock.Lock()
			for c := range cs.clients {
				c.stopClient()
				cs.rooms.LeaveAll(c)
				delete(cs.clients, c)
				cs.stats.Decr(stats.NumActiveClients)
			}
			cs.clientsLock.Unlock()

			close(cs.done)
			return
		}
	}
}

// RegisterClient hands a new connection to the hub.
func (cs *ChatServer) RegisterClient(c *Client) error {
	select {
	case cs.registerChan <- c:
		return nil
	case <-cs.done:
		return ErrServerStopped
	}
}

func (cs *ChatServer) deregister(c *Client) {
	select {
	case cs.deRegisterChan <- c:
	case <-cs.done:
		// the hub already dropped c; presence is persisted by Shutdown
	}
}

// disconnect drops every room membership of c in one step, then marks its
// user offline if c was the user's tracked connection.
func (cs *ChatServer) disconnect(c *Client) {
	defer cs.disconnects.Done()

	left := cs.rooms.LeaveAll(c)
	cs.log.Printf("connection %s left %d rooms", c.id, len(left))

	if err := cs.presence.MarkOffline(context.Background(), c); err != nil {
		cs.log.Printf("mark offline: %v", err)
	}
}

func (cs *ChatServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	cs.clients[c] = struct{}{}
}

func (cs *ChatServer) removeClient(c *Client) bool {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()

	if _, ok := cs.clients[c]; !ok {
		return false
	}
	delete(cs.clients, c)
	return true
}

// BroadcastAll queues ev on every live connection except skip and returns
// the number of connections it was queued on.
func (cs *ChatServer) BroadcastAll(ev *events.ServerEvent, skip events.Conn) int {
	cs.clientsLock.RLock()
	targets := make([]*Client, 0, len(cs.clients))
	for c := range cs.clients {
		if skip != nil && c.Id() == skip.Id() {
			continue
		}
		targets = append(targets, c)
	}
	cs.clientsLock.RUnlock()

	n := 0
	for _, c := range targets {
		if c.Send(ev) {
			n++
		}
	}
	return n
}

func (cs *ChatServer) NumClients() int {
	cs.clientsLock.RLock()
	defer cs.clientsLock.RUnlock()
	return len(cs.clients)
}

// Shutdown closes every client, waits for pending disconnects and then
// persists every user still tracked as offline without broadcasting.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Println("received shutdown signal")
	cs.stopOnce.Do(func() { close(cs.stop) })

	select {
	case <-cs.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	waited := make(chan struct{})
	go func() {
		cs.disconnects.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		return ctx.Err()
	}

	return cs.presence.Shutdown(ctx)
}
