package database

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockGoChatRepository struct {
	mock.Mock
}

func (m *MockGoChatRepository) Ping(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockGoChatRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockGoChatRepository) UpdateUser(ctx context.Context, params UpdateUserParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockGoChatRepository) GetUserById(ctx context.Context, userId int) (User, error) {
	args := m.Called(userId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockGoChatRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockGoChatRepository) GetUsersByIds(ctx context.Context, userIds []int) ([]User, error) {
	args := m.Called(userIds)
	if users, ok := args.Get(0).([]User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockGoChatRepository) SearchUsers(ctx context.Context, userId int, query string) ([]User, error) {
	args := m.Called(userId, query)
	if users, ok := args.Get(0).([]User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockGoChatRepository) SetBlocked(ctx context.Context, userId, targetId int, blocked bool) error {
	args := m.Called(userId, targetId, blocked)
	return args.Error(0)
}
func (m *MockGoChatRepository) SetUserOnlineStatus(ctx context.Context, userId int, online bool) (User, error) {
	args := m.Called(userId, online)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockGoChatRepository) CreateChat(ctx context.Context, params CreateChatParams) (Chat, error) {
	args := m.Called(params)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockGoChatRepository) GetChat(ctx context.Context, chatId string) (Chat, error) {
	args := m.Called(chatId)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockGoChatRepository) FindDirectChat(ctx context.Context, userA, userB int) (Chat, error) {
	args := m.Called(userA, userB)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockGoChatRepository) ListChatsForUser(ctx context.Context, userId int, includeArchived bool) ([]Chat, error) {
	args := m.Called(userId, includeArchived)
	if chats, ok := args.Get(0).([]Chat); ok {
		return chats, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockGoChatRepository) FindChatMembers(ctx context.Context, chatId string) ([]int, error) {
	args := m.Called(chatId)
	if members, ok := args.Get(0).([]int); ok {
		return members, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockGoChatRepository) UpdateChat(ctx context.Context, params UpdateChatParams) (Chat, error) {
	args := m.Called(params)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockGoChatRepository) SetChatLatestMessage(ctx context.Context, chatId string, messageId int64) error {
	args := m.Called(chatId, messageId)
	return args.Error(0)
}
func (m *MockGoChatRepository) SetChatFlag(ctx context.Context, chatId string, userId int, flag ChatFlag, on bool) error {
	args := m.Called(chatId, userId, flag, on)
	return args.Error(0)
}
func (m *MockGoChatRepository) DeleteChat(ctx context.Context, chatId string) error {
	args := m.Called(chatId)
	return args.Error(0)
}
func (m *MockGoChatRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockGoChatRepository) GetMessage(ctx context.Context, messageId int64) (Message, error) {
	args := m.Called(messageId)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockGoChatRepository) GetMessagesByIds(ctx context.Context, messageIds []int64) ([]Message, error) {
	args := m.Called(messageIds)
	if msgs, ok := args.Get(0).([]Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockGoChatRepository) ListMessages(ctx context.Context, chatId string, viewerId int) ([]Message, error) {
	args := m.Called(chatId, viewerId)
	if msgs, ok := args.Get(0).([]Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockGoChatRepository) SearchMessages(ctx context.Context, viewerId int, chatIds []string, query string, limit int) ([]Message, error) {
	args := m.Called(viewerId, chatIds, query, limit)
	if msgs, ok := args.Get(0).([]Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockGoChatRepository) IncrementForwardCount(ctx context.Context, messageId int64, n int) error {
	args := m.Called(messageId, n)
	return args.Error(0)
}
func (m *MockGoChatRepository) SoftDeleteMessage(ctx context.Context, messageId int64) error {
	args := m.Called(messageId)
	return args.Error(0)
}
func (m *MockGoChatRepository) HideMessageFor(ctx context.Context, messageId int64, userId int) error {
	args := m.Called(messageId, userId)
	return args.Error(0)
}
func (m *MockGoChatRepository) UpsertReaction(ctx context.Context, messageId int64, userId int, emoji string) error {
	args := m.Called(messageId, userId, emoji)
	return args.Error(0)
}
func (m *MockGoChatRepository) DeleteReaction(ctx context.Context, messageId int64, userId int) error {
	args := m.Called(messageId, userId)
	return args.Error(0)
}
func (m *MockGoChatRepository) MarkChatRead(ctx context.Context, chatId string, userId int, at time.Time) ([]ReadMark, error) {
	args := m.Called(chatId, userId)
	if marks, ok := args.Get(0).([]ReadMark); ok {
		return marks, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockGoChatRepository) UpdateMessageReadBy(ctx context.Context, messageId int64, userId int, at time.Time) (ReadMark, bool, error) {
	args := m.Called(messageId, userId)
	return args.Get(0).(ReadMark), args.Bool(1), args.Error(2)
}
func (m *MockGoChatRepository) AggregateUnreadCounts(ctx context.Context, chatIds []string, userId int) ([]UnreadCount, error) {
	args := m.Called(chatIds, userId)
	if counts, ok := args.Get(0).([]UnreadCount); ok {
		return counts, args.Error(1)
	}
	return nil, args.Error(1)
}
