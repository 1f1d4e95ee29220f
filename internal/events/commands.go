package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Client to server event names.
const (
	Setup            = "setup"
	JoinChat         = "join chat"
	LeaveChat        = "leave chat"
	RecordingStarted = "recording started"
	RecordingStopped = "recording stopped"
	MessageRead      = "message read"
	MarkChatRead     = "mark chat read"
	MessageReaction  = "message reaction"
	GetOnlineUsers   = "get online users"
)

var (
	ErrUnknownEvent   = errors.New("unknown event")
	ErrInvalidPayload = errors.New("invalid payload")
)

type clientEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Command is a validated client event. Only the command types in this
// package implement it.
type Command interface {
	command() string
}

type SetupCommand struct{}

type GetOnlineUsersCommand struct{}

type JoinChatCommand struct {
	ChatId string
}

type LeaveChatCommand struct {
	ChatId string
}

// ChatSignalCommand is a typing or recording indicator for a chat. Event is
// the client event name it arrived as.
type ChatSignalCommand struct {
	Event  string
	ChatId string
}

type MessageReadCommand struct {
	MessageId int64  `json:"messageId"`
	ChatId    string `json:"chatId"`
}

type MarkChatReadCommand struct {
	ChatId string `json:"chatId"`
}

type MessageReactionCommand struct {
	MessageId int64  `json:"messageId"`
	Emoji     string `json:"emoji"`
}

func (SetupCommand) command() string           { return Setup }
func (GetOnlineUsersCommand) command() string  { return GetOnlineUsers }
func (JoinChatCommand) command() string        { return JoinChat }
func (LeaveChatCommand) command() string       { return LeaveChat }
func (c ChatSignalCommand) command() string    { return c.Event }
func (MessageReadCommand) command() string     { return MessageRead }
func (MarkChatReadCommand) command() string    { return MarkChatRead }
func (MessageReactionCommand) command() string { return MessageReaction }

// Relay returns the payload other room members receive for a chat signal.
func (c ChatSignalCommand) Relay() ChatSignalPayload {
	switch c.Event {
	case StopTyping:
		return NewStopTyping(c.ChatId)
	case RecordingStarted:
		return NewUserRecording(c.ChatId)
	case RecordingStopped:
		return NewUserStoppedRecording(c.ChatId)
	default:
		return NewTyping(c.ChatId)
	}
}

// Decode parses and validates a raw client frame.
func Decode(raw []byte) (Command, error) {
	var env clientEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	switch env.Event {
	case Setup:
		return SetupCommand{}, nil
	case GetOnlineUsers:
		return GetOnlineUsersCommand{}, nil
	case JoinChat:
		id, err := decodeChatId(env.Data)
		if err != nil {
			return nil, err
		}
		return JoinChatCommand{ChatId: id}, nil
	case LeaveChat:
		id, err := decodeChatId(env.Data)
		if err != nil {
			return nil, err
		}
		return LeaveChatCommand{ChatId: id}, nil
	case Typing, StopTyping, RecordingStarted, RecordingStopped:
		id, err := decodeChatId(env.Data)
		if err != nil {
			return nil, err
		}
		return ChatSignalCommand{Event: env.Event, ChatId: id}, nil
	case MessageRead:
		var cmd MessageReadCommand
		if err := decodeObject(env.Data, &cmd); err != nil {
			return nil, err
		}
		if cmd.MessageId <= 0 {
			return nil, fmt.Errorf("%w: messageId is required", ErrInvalidPayload)
		}
		return cmd, nil
	case MarkChatRead:
		id, err := decodeChatId(env.Data)
		if err != nil {
			return nil, err
		}
		return MarkChatReadCommand{ChatId: id}, nil
	case MessageReaction:
		var cmd MessageReactionCommand
		if err := decodeObject(env.Data, &cmd); err != nil {
			return nil, err
		}
		if cmd.MessageId <= 0 || cmd.Emoji == "" {
			return nil, fmt.Errorf("%w: messageId and emoji are required", ErrInvalidPayload)
		}
		return cmd, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

func decodeObject(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", ErrInvalidPayload)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// decodeChatId accepts either a bare chat id string or {"chatId": "..."}.
func decodeChatId(data json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		var obj struct {
			ChatId string `json:"chatId"`
		}
		if err := decodeObject(data, &obj); err != nil {
			return "", err
		}
		id = obj.ChatId
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: chatId is required", ErrInvalidPayload)
	}
	return id, nil
}
