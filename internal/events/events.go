// Package events defines the socket wire contract: the closed set of events
// the server emits, the commands a client may send, and the envelope both
// travel in.
package events

import (
	"encoding/json"
	"time"

	"github.com/npezzotti/go-chatlive/internal/types"
)

// Server to client event names.
const (
	Connected            = "connected"
	UserOnline           = "user online"
	UserOffline          = "user offline"
	OnlineUsersList      = "online users list"
	Typing               = "typing"
	StopTyping           = "stop typing"
	UserRecording        = "user recording"
	UserStoppedRecording = "user stopped recording"
	MessageReceived      = "message received"
	ReactionAdded        = "reaction added"
	MessageDeleted       = "message deleted"
	MessageReadReceipt   = "message read receipt"
)

// Conn is a live connection events can be delivered to.
type Conn interface {
	Id() string
	Send(ev *ServerEvent) bool
}

// ServerEvent is the envelope for every server to client event.
type ServerEvent struct {
	Event string  `json:"event"`
	Data  Payload `json:"data"`
}

// Payload is implemented only by the payload types in this package, one per
// event name.
type Payload interface {
	eventName() string
}

// New wraps p in its envelope.
func New(p Payload) *ServerEvent {
	return &ServerEvent{Event: p.eventName(), Data: p}
}

func Serialize(ev *ServerEvent) ([]byte, error) {
	return json.Marshal(ev)
}

type ConnectedPayload struct {
	UserId   int  `json:"userId"`
	IsOnline bool `json:"isOnline"`
}

func (ConnectedPayload) eventName() string { return Connected }

type UserOnlinePayload struct {
	UserId    int       `json:"userId"`
	UserName  string    `json:"userName"`
	Timestamp time.Time `json:"timestamp"`
}

func (UserOnlinePayload) eventName() string { return UserOnline }

type UserOfflinePayload struct {
	UserId    int       `json:"userId"`
	UserName  string    `json:"userName"`
	LastSeen  time.Time `json:"lastSeen"`
	Timestamp time.Time `json:"timestamp"`
}

func (UserOfflinePayload) eventName() string { return UserOffline }

// OnlineUsersPayload is the ordered list of user ids with a live connection.
type OnlineUsersPayload []int

func (OnlineUsersPayload) eventName() string { return OnlineUsersList }

// ChatSignalPayload carries a bare chat id for the ephemeral chat signals
// (typing and recording indicators).
type ChatSignalPayload struct {
	name   string
	ChatId string
}

func (p ChatSignalPayload) eventName() string { return p.name }

func (p ChatSignalPayload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ChatId)
}

func NewTyping(chatId string) ChatSignalPayload {
	return ChatSignalPayload{name: Typing, ChatId: chatId}
}

func NewStopTyping(chatId string) ChatSignalPayload {
	return ChatSignalPayload{name: StopTyping, ChatId: chatId}
}

func NewUserRecording(chatId string) ChatSignalPayload {
	return ChatSignalPayload{name: UserRecording, ChatId: chatId}
}

func NewUserStoppedRecording(chatId string) ChatSignalPayload {
	return ChatSignalPayload{name: UserStoppedRecording, ChatId: chatId}
}

// MessageReceivedPayload is the fully hydrated message.
type MessageReceivedPayload types.Message

func (MessageReceivedPayload) eventName() string { return MessageReceived }

type Reaction struct {
	User  types.UserRef `json:"user"`
	Emoji string        `json:"emoji"`
}

type ReactionAddedPayload struct {
	MessageId int64    `json:"messageId"`
	Reaction  Reaction `json:"reaction"`
	UserId    int      `json:"userId"`
}

func (ReactionAddedPayload) eventName() string { return ReactionAdded }

type MessageDeletedPayload struct {
	MessageId int64  `json:"messageId"`
	ChatId    string `json:"chatId"`
}

func (MessageDeletedPayload) eventName() string { return MessageDeleted }

type ReadReceiptPayload struct {
	MessageId int64  `json:"messageId"`
	ChatId    string `json:"chatId"`
	ReadBy    int    `json:"readBy"`
}

func (ReadReceiptPayload) eventName() string { return MessageReadReceipt }
