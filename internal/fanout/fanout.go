// Package fanout maps persisted chat effects to the rooms and events that
// announce them. Callers invoke it only after the effect has been stored.
package fanout

import (
	"log"

	"github.com/npezzotti/go-chatlive/internal/database"
	"github.com/npezzotti/go-chatlive/internal/events"
	"github.com/npezzotti/go-chatlive/internal/rooms"
	"github.com/npezzotti/go-chatlive/internal/types"
)

// Notifier announces persisted effects to live connections.
type Notifier interface {
	MessageReceived(msg types.Message)
	ReactionAdded(chatId string, messageId int64, user types.UserRef, emoji string)
	MessageDeleted(chatId string, messageId int64)
	ReadReceipts(readerId int, marks []database.ReadMark)
}

type RoomBroadcaster interface {
	Broadcast(roomId string, ev *events.ServerEvent, skip events.Conn) int
}

type Fanout struct {
	rooms RoomBroadcaster
	log   *log.Logger
}

var _ Notifier = (*Fanout)(nil)

func New(rb RoomBroadcaster, logger *log.Logger) *Fanout {
	return &Fanout{rooms: rb, log: logger}
}

// MessageReceived goes to the whole chat room, the sender's own connections
// included.
func (f *Fanout) MessageReceived(msg types.Message) {
	n := f.rooms.Broadcast(msg.ChatId, events.New(events.MessageReceivedPayload(msg)), nil)
	f.log.Printf("fanout: message %d delivered to %d connections in %q", msg.Id, n, msg.ChatId)
}

func (f *Fanout) ReactionAdded(chatId string, messageId int64, user types.UserRef, emoji string) {
	f.rooms.Broadcast(chatId, events.New(events.ReactionAddedPayload{
		MessageId: messageId,
		Reaction:  events.Reaction{User: user, Emoji: emoji},
		UserId:    user.Id,
	}), nil)
}

func (f *Fanout) MessageDeleted(chatId string, messageId int64) {
	f.rooms.Broadcast(chatId, events.New(events.MessageDeletedPayload{
		MessageId: messageId,
		ChatId:    chatId,
	}), nil)
}

// ReadReceipts sends one receipt per newly read message to that message's
// sender, never to the chat room.
func (f *Fanout) ReadReceipts(readerId int, marks []database.ReadMark) {
	for _, m := range marks {
		if m.SenderId == readerId {
			continue
		}
		f.rooms.Broadcast(rooms.PersonalRoom(m.SenderId), events.New(events.ReadReceiptPayload{
			MessageId: m.MessageId,
			ChatId:    m.ChatId,
			ReadBy:    readerId,
		}), nil)
	}
}

// Signal relays a typing or recording indicator to the rest of the chat
// room.
func (f *Fanout) Signal(origin events.Conn, p events.ChatSignalPayload) {
	f.rooms.Broadcast(p.ChatId, events.New(p), origin)
}
