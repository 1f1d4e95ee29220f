package database

import (
	"context"
	"time"
)

type GoChatRepository interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, params CreateUserParams) (User, error)
	UpdateUser(ctx context.Context, params UpdateUserParams) (User, error)
	GetUserById(ctx context.Context, userId int) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUsersByIds(ctx context.Context, userIds []int) ([]User, error)
	SearchUsers(ctx context.Context, userId int, query string) ([]User, error)
	SetBlocked(ctx context.Context, userId, targetId int, blocked bool) error
	SetUserOnlineStatus(ctx context.Context, userId int, online bool) (User, error)

	CreateChat(ctx context.Context, params CreateChatParams) (Chat, error)
	GetChat(ctx context.Context, chatId string) (Chat, error)
	FindDirectChat(ctx context.Context, userA, userB int) (Chat, error)
	ListChatsForUser(ctx context.Context, userId int, includeArchived bool) ([]Chat, error)
	FindChatMembers(ctx context.Context, chatId string) ([]int, error)
	UpdateChat(ctx context.Context, params UpdateChatParams) (Chat, error)
	SetChatLatestMessage(ctx context.Context, chatId string, messageId int64) error
	SetChatFlag(ctx context.Context, chatId string, userId int, flag ChatFlag, on bool) error
	DeleteChat(ctx context.Context, chatId string) error

	CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error)
	GetMessage(ctx context.Context, messageId int64) (Message, error)
	GetMessagesByIds(ctx context.Context, messageIds []int64) ([]Message, error)
	ListMessages(ctx context.Context, chatId string, viewerId int) ([]Message, error)
	SearchMessages(ctx context.Context, viewerId int, chatIds []string, query string, limit int) ([]Message, error)
	IncrementForwardCount(ctx context.Context, messageId int64, n int) error
	SoftDeleteMessage(ctx context.Context, messageId int64) error
	HideMessageFor(ctx context.Context, messageId int64, userId int) error
	UpsertReaction(ctx context.Context, messageId int64, userId int, emoji string) error
	DeleteReaction(ctx context.Context, messageId int64, userId int) error

	// MarkChatRead appends (userId, at) to the read list of every message in
	// the chat that is unread for userId and returns the entries it added.
	MarkChatRead(ctx context.Context, chatId string, userId int, at time.Time) ([]ReadMark, error)
	// UpdateMessageReadBy marks a single message read when it is unread for
	// userId. The boolean is false when nothing was appended.
	UpdateMessageReadBy(ctx context.Context, messageId int64, userId int, at time.Time) (ReadMark, bool, error)
	AggregateUnreadCounts(ctx context.Context, chatIds []string, userId int) ([]UnreadCount, error)
}
