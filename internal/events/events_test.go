package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/npezzotti/go-chatlive/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerEventSerialize(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tcs := []struct {
		name    string
		payload Payload
		want    string
	}{
		{
			name:    "connected",
			payload: ConnectedPayload{UserId: 7, IsOnline: true},
			want:    `{"event":"connected","data":{"userId":7,"isOnline":true}}`,
		},
		{
			name:    "user online",
			payload: UserOnlinePayload{UserId: 7, UserName: "ann", Timestamp: ts},
			want:    `{"event":"user online","data":{"userId":7,"userName":"ann","timestamp":"2024-05-01T12:00:00Z"}}`,
		},
		{
			name:    "user offline",
			payload: UserOfflinePayload{UserId: 7, UserName: "ann", LastSeen: ts, Timestamp: ts},
			want:    `{"event":"user offline","data":{"userId":7,"userName":"ann","lastSeen":"2024-05-01T12:00:00Z","timestamp":"2024-05-01T12:00:00Z"}}`,
		},
		{
			name:    "online users list",
			payload: OnlineUsersPayload{1, 2, 3},
			want:    `{"event":"online users list","data":[1,2,3]}`,
		},
		{
			name:    "typing",
			payload: NewTyping("abc"),
			want:    `{"event":"typing","data":"abc"}`,
		},
		{
			name:    "stop typing",
			payload: NewStopTyping("abc"),
			want:    `{"event":"stop typing","data":"abc"}`,
		},
		{
			name:    "user recording",
			payload: NewUserRecording("abc"),
			want:    `{"event":"user recording","data":"abc"}`,
		},
		{
			name:    "user stopped recording",
			payload: NewUserStoppedRecording("abc"),
			want:    `{"event":"user stopped recording","data":"abc"}`,
		},
		{
			name: "reaction added",
			payload: ReactionAddedPayload{
				MessageId: 9,
				Reaction:  Reaction{User: types.UserRef{Id: 7, Name: "ann"}, Emoji: "🔥"},
				UserId:    7,
			},
			want: `{"event":"reaction added","data":{"messageId":9,"reaction":{"user":{"_id":7,"name":"ann"},"emoji":"🔥"},"userId":7}}`,
		},
		{
			name:    "message deleted",
			payload: MessageDeletedPayload{MessageId: 9, ChatId: "abc"},
			want:    `{"event":"message deleted","data":{"messageId":9,"chatId":"abc"}}`,
		},
		{
			name:    "read receipt",
			payload: ReadReceiptPayload{MessageId: 9, ChatId: "abc", ReadBy: 3},
			want:    `{"event":"message read receipt","data":{"messageId":9,"chatId":"abc","readBy":3}}`,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			b, err := Serialize(New(tc.payload))
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(b))
		})
	}
}

func TestMessageReceivedSerialize(t *testing.T) {
	msg := types.Message{
		Id:          4,
		Sender:      types.UserRef{Id: 1, Name: "ann"},
		ChatId:      "abc",
		Content:     "hi",
		MessageType: "text",
	}

	ev := New(MessageReceivedPayload(msg))
	assert.Equal(t, MessageReceived, ev.Event)

	b, err := Serialize(ev)
	require.NoError(t, err)

	var decoded struct {
		Event string        `json:"event"`
		Data  types.Message `json:"data"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, MessageReceived, decoded.Event)
	assert.Equal(t, int64(4), decoded.Data.Id)
	assert.Equal(t, "hi", decoded.Data.Content)
	assert.Equal(t, 1, decoded.Data.Sender.Id)
}

func TestDecode(t *testing.T) {
	tcs := []struct {
		name string
		raw  string
		want Command
	}{
		{"setup", `{"event":"setup"}`, SetupCommand{}},
		{"get online users", `{"event":"get online users","data":null}`, GetOnlineUsersCommand{}},
		{"join bare id", `{"event":"join chat","data":"abc"}`, JoinChatCommand{ChatId: "abc"}},
		{"join object", `{"event":"join chat","data":{"chatId":"abc"}}`, JoinChatCommand{ChatId: "abc"}},
		{"leave", `{"event":"leave chat","data":"abc"}`, LeaveChatCommand{ChatId: "abc"}},
		{"typing", `{"event":"typing","data":"abc"}`, ChatSignalCommand{Event: Typing, ChatId: "abc"}},
		{"stop typing", `{"event":"stop typing","data":"abc"}`, ChatSignalCommand{Event: StopTyping, ChatId: "abc"}},
		{"recording started", `{"event":"recording started","data":"abc"}`, ChatSignalCommand{Event: RecordingStarted, ChatId: "abc"}},
		{"recording stopped", `{"event":"recording stopped","data":"abc"}`, ChatSignalCommand{Event: RecordingStopped, ChatId: "abc"}},
		{"message read", `{"event":"message read","data":{"messageId":5,"chatId":"abc"}}`, MessageReadCommand{MessageId: 5, ChatId: "abc"}},
		{"message read without chat", `{"event":"message read","data":{"messageId":5}}`, MessageReadCommand{MessageId: 5}},
		{"mark chat read", `{"event":"mark chat read","data":{"chatId":"abc"}}`, MarkChatReadCommand{ChatId: "abc"}},
		{"reaction", `{"event":"message reaction","data":{"messageId":5,"emoji":"👍"}}`, MessageReactionCommand{MessageId: 5, Emoji: "👍"}},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := Decode([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, cmd)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tcs := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"not json", `hello`, ErrInvalidPayload},
		{"unknown event", `{"event":"drop tables"}`, ErrUnknownEvent},
		{"empty event", `{"data":"abc"}`, ErrUnknownEvent},
		{"server event name", `{"event":"message received","data":{}}`, ErrUnknownEvent},
		{"join without data", `{"event":"join chat"}`, ErrInvalidPayload},
		{"join blank id", `{"event":"join chat","data":"  "}`, ErrInvalidPayload},
		{"join wrong type", `{"event":"join chat","data":42}`, ErrInvalidPayload},
		{"typing missing chat", `{"event":"typing","data":{}}`, ErrInvalidPayload},
		{"read missing message", `{"event":"message read","data":{"chatId":"abc"}}`, ErrInvalidPayload},
		{"read bad message id", `{"event":"message read","data":{"messageId":"x"}}`, ErrInvalidPayload},
		{"reaction missing emoji", `{"event":"message reaction","data":{"messageId":5}}`, ErrInvalidPayload},
		{"mark chat read missing chat", `{"event":"mark chat read","data":{}}`, ErrInvalidPayload},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := Decode([]byte(tc.raw))
			assert.Nil(t, cmd)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestChatSignalRelay(t *testing.T) {
	tcs := []struct {
		event string
		want  string
	}{
		{Typing, Typing},
		{StopTyping, StopTyping},
		{RecordingStarted, UserRecording},
		{RecordingStopped, UserStoppedRecording},
	}

	for _, tc := range tcs {
		t.Run(tc.event, func(t *testing.T) {
			ev := New(ChatSignalCommand{Event: tc.event, ChatId: "abc"}.Relay())
			assert.Equal(t, tc.want, ev.Event)
			assert.Equal(t, "abc", ev.Data.(ChatSignalPayload).ChatId)
		})
	}
}
