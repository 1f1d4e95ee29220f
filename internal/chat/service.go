// Package chat implements the chat domain on top of the repository: users,
// chats and messages, with read state delegated to readstate and live
// delivery to fanout. Every effect is persisted before it is announced.
package chat

import (
	"context"
	"log"
	"time"

	"github.com/npezzotti/go-chatlive/internal/database"
	"github.com/npezzotti/go-chatlive/internal/fanout"
	"github.com/npezzotti/go-chatlive/internal/readstate"
	"github.com/npezzotti/go-chatlive/internal/stats"
	"github.com/teris-io/shortid"
)

const searchLimit = 50

var validEmojis = []string{"👍", "❤️", "😂", "😮", "😢", "🙏", "🔥", "👏"}

func IsValidEmoji(emoji string) bool {
	for _, e := range validEmojis {
		if e == emoji {
			return true
		}
	}
	return false
}

type Service struct {
	db     database.GoChatRepository
	notify fanout.Notifier
	reads  *readstate.Reconciler
	log    *log.Logger
	stats  stats.StatsProvider
	now    func() time.Time
	newId  func() (string, error)

	// OnAdvisoryError receives failures of secondary updates, such as a
	// chat's latest message pointer, that never fail the primary operation.
	OnAdvisoryError func(op string, err error)
}

func NewService(db database.GoChatRepository, notify fanout.Notifier, logger *log.Logger, su stats.StatsProvider) *Service {
	s := &Service{
		db:     db,
		notify: notify,
		reads:  readstate.NewReconciler(db, notify, logger),
		log:    logger,
		stats:  su,
		now:    time.Now,
		newId:  shortid.Generate,
	}
	s.OnAdvisoryError = func(op string, err error) {
		s.log.Printf("advisory update %s failed: %v", op, err)
	}
	return s
}

func (s *Service) advisory(op string, err error) {
	if err == nil {
		return
	}
	s.stats.Incr(stats.NumAdvisoryErrors)
	s.OnAdvisoryError(op, err)
}

// memberChat loads chatId and checks that userId belongs to it.
func (s *Service) memberChat(ctx context.Context, userId int, chatId string) (database.Chat, error) {
	if chatId == "" {
		return database.Chat{}, invalid("chat id is required")
	}

	c, err := s.db.GetChat(ctx, chatId)
	if err != nil {
		return database.Chat{}, storeErr(err, "chat")
	}
	if !c.IsMember(userId) {
		return database.Chat{}, forbidden("not a member of this chat")
	}
	return c, nil
}

// CanJoin reports whether userId may join the live room of chatId.
func (s *Service) CanJoin(ctx context.Context, userId int, chatId string) error {
	_, err := s.memberChat(ctx, userId, chatId)
	return err
}
