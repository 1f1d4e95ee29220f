package fanout

import (
	"github.com/npezzotti/go-chatlive/internal/database"
	"github.com/npezzotti/go-chatlive/internal/types"
	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) MessageReceived(msg types.Message) {
	m.Called(msg)
}
func (m *MockNotifier) ReactionAdded(chatId string, messageId int64, user types.UserRef, emoji string) {
	m.Called(chatId, messageId, user, emoji)
}
func (m *MockNotifier) MessageDeleted(chatId string, messageId int64) {
	m.Called(chatId, messageId)
}
func (m *MockNotifier) ReadReceipts(readerId int, marks []database.ReadMark) {
	m.Called(readerId, marks)
}
