package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/npezzotti/go-chatlive/internal/database"
	"github.com/npezzotti/go-chatlive/internal/stats"
	"github.com/npezzotti/go-chatlive/internal/types"
)

// MessageTypeFor picks the message type for an attachment's mimetype.
func MessageTypeFor(mimetype string) string {
	switch {
	case strings.HasPrefix(mimetype, "image/"):
		return database.MessageTypeImage
	case strings.HasPrefix(mimetype, "video/"):
		return database.MessageTypeVideo
	case strings.HasPrefix(mimetype, "audio/"):
		return database.MessageTypeAudio
	default:
		return database.MessageTypeDocument
	}
}

// publish hydrates a persisted message and hands it to the fanout. It must
// only be called after CreateMessage succeeded.
func (s *Service) publish(ctx context.Context, msg database.Message, c database.Chat) (types.Message, error) {
	view, err := s.broadcastView(ctx, msg, c)
	if err != nil {
		s.log.Printf("message %d saved but not broadcast: %v", msg.Id, err)
		return types.Message{}, err
	}

	s.stats.Incr(stats.NumMessagesSent)
	s.notify.MessageReceived(view)
	return view, nil
}

// blockedBySomeone reports whether any member of c has blocked userId.
func (s *Service) blockedBySomeone(ctx context.Context, c database.Chat, userId int) (bool, error) {
	members, err := s.loadUsers(ctx, c.Users)
	if err != nil {
		return false, err
	}
	for _, id := range c.Users {
		if members[id].HasBlocked(userId) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) ListMessages(ctx context.Context, userId int, chatId string) ([]types.Message, error) {
	if _, err := s.memberChat(ctx, userId, chatId); err != nil {
		return nil, err
	}

	msgs, err := s.db.ListMessages(ctx, chatId, userId)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return s.hydrateMessages(ctx, msgs)
}

type SendParams struct {
	ChatId  string
	Content string
	File    *database.File
	ReplyTo int64
}

// SendMessage persists a message and then broadcasts it to the chat room.
func (s *Service) SendMessage(ctx context.Context, userId int, p SendParams) (types.Message, error) {
	c, err := s.memberChat(ctx, userId, p.ChatId)
	if err != nil {
		return types.Message{}, err
	}

	blocked, err := s.blockedBySomeone(ctx, c, userId)
	if err != nil {
		return types.Message{}, err
	}
	if blocked {
		return types.Message{}, forbidden("cannot send message - you are blocked by one or more users")
	}

	content := strings.TrimSpace(p.Content)
	if content == "" && p.File == nil {
		return types.Message{}, invalid("cannot send an empty message")
	}

	params := database.CreateMessageParams{
		ChatId:    c.Id,
		SenderId:  userId,
		Content:   content,
		File:      p.File,
		CreatedAt: s.now().UTC(),
	}
	if p.File != nil {
		params.MessageType = MessageTypeFor(p.File.Mimetype)
	}
	if content != "" {
		params.MessageType = database.MessageTypeText
	}

	if p.ReplyTo != 0 {
		orig, err := s.db.GetMessage(ctx, p.ReplyTo)
		if err != nil {
			return types.Message{}, storeErr(err, "replied message")
		}
		if orig.ChatId != c.Id {
			return types.Message{}, invalid("reply must be in the same chat")
		}
		params.ReplyTo = p.ReplyTo
	}

	msg, err := s.db.CreateMessage(ctx, params)
	if err != nil {
		return types.Message{}, fmt.Errorf("create message: %w", err)
	}

	s.advisory("chat latest message", s.db.SetChatLatestMessage(ctx, c.Id, msg.Id))

	view, err := s.publish(ctx, msg, c)
	if err != nil {
		// the message exists; answer with what we have
		return s.hydrateMessage(ctx, msg)
	}
	return view, nil
}

// ForwardMessage copies a message into each target chat the caller belongs
// to and is not blocked in. Other targets are skipped silently.
func (s *Service) ForwardMessage(ctx context.Context, userId int, messageId int64, chatIds []string) ([]types.Message, error) {
	if messageId == 0 || len(chatIds) == 0 {
		return nil, invalid("message id and chat ids are required")
	}

	orig, err := s.db.GetMessage(ctx, messageId)
	if err != nil {
		return nil, storeErr(err, "original message")
	}
	if _, err := s.memberChat(ctx, userId, orig.ChatId); err != nil {
		return nil, forbidden("not authorized to forward this message")
	}

	forwarded := make([]types.Message, 0, len(chatIds))
	for _, chatId := range chatIds {
		c, err := s.memberChat(ctx, userId, chatId)
		if err != nil {
			continue
		}
		blocked, err := s.blockedBySomeone(ctx, c, userId)
		if err != nil {
			s.log.Printf("forward to %q: %v", chatId, err)
			continue
		}
		if blocked {
			continue
		}

		msg, err := s.db.CreateMessage(ctx, database.CreateMessageParams{
			ChatId:        c.Id,
			SenderId:      userId,
			Content:       orig.Content,
			File:          orig.File,
			MessageType:   orig.MessageType,
			ForwardedFrom: orig.Id,
			CreatedAt:     s.now().UTC(),
		})
		if err != nil {
			s.log.Printf("forward to %q: %v", chatId, err)
			continue
		}

		s.advisory("chat latest message", s.db.SetChatLatestMessage(ctx, c.Id, msg.Id))

		view, err := s.publish(ctx, msg, c)
		if err != nil {
			continue
		}
		forwarded = append(forwarded, view)
	}

	if len(forwarded) > 0 {
		s.advisory("forward count", s.db.IncrementForwardCount(ctx, orig.Id, len(forwarded)))
	}
	return forwarded, nil
}

// MarkChatRead marks every unread message of chatId as read for userId.
// Both the REST and socket paths use it.
func (s *Service) MarkChatRead(ctx context.Context, userId int, chatId string) (int, error) {
	if _, err := s.memberChat(ctx, userId, chatId); err != nil {
		return 0, err
	}
	return s.reads.MarkChatRead(ctx, chatId, userId)
}

// MarkMessageRead marks one message as read. chatId is optional; when set it
// must match the message's chat.
func (s *Service) MarkMessageRead(ctx context.Context, userId int, messageId int64, chatId string) (bool, error) {
	if messageId == 0 {
		return false, invalid("message id is required")
	}

	msg, err := s.db.GetMessage(ctx, messageId)
	if err != nil {
		return false, storeErr(err, "message")
	}
	if chatId != "" && chatId != msg.ChatId {
		return false, invalid("message does not belong to this chat")
	}
	if _, err := s.memberChat(ctx, userId, msg.ChatId); err != nil {
		return false, err
	}

	return s.reads.MarkMessageRead(ctx, msg, userId)
}

// React sets the caller's reaction, replacing any earlier one, then
// announces it to the chat room.
func (s *Service) React(ctx context.Context, userId int, messageId int64, emoji string) (types.Message, error) {
	if !IsValidEmoji(emoji) {
		return types.Message{}, invalid("invalid emoji")
	}

	msg, err := s.db.GetMessage(ctx, messageId)
	if err != nil {
		return types.Message{}, storeErr(err, "message")
	}
	if _, err := s.memberChat(ctx, userId, msg.ChatId); err != nil {
		return types.Message{}, err
	}

	if err := s.db.UpsertReaction(ctx, messageId, userId, emoji); err != nil {
		return types.Message{}, fmt.Errorf("save reaction: %w", err)
	}

	updated, err := s.db.GetMessage(ctx, messageId)
	if err != nil {
		return types.Message{}, storeErr(err, "message")
	}
	view, err := s.hydrateMessage(ctx, updated)
	if err != nil {
		return types.Message{}, err
	}

	reactor := types.UserRef{Id: userId}
	for _, r := range view.Reactions {
		if r.User.Id == userId {
			reactor = r.User
		}
	}
	s.notify.ReactionAdded(msg.ChatId, messageId, reactor, emoji)
	return view, nil
}

func (s *Service) RemoveReaction(ctx context.Context, userId int, messageId int64) (types.Message, error) {
	msg, err := s.db.GetMessage(ctx, messageId)
	if err != nil {
		return types.Message{}, storeErr(err, "message")
	}
	if _, err := s.memberChat(ctx, userId, msg.ChatId); err != nil {
		return types.Message{}, err
	}

	if err := s.db.DeleteReaction(ctx, messageId, userId); err != nil {
		return types.Message{}, fmt.Errorf("remove reaction: %w", err)
	}

	updated, err := s.db.GetMessage(ctx, messageId)
	if err != nil {
		return types.Message{}, storeErr(err, "message")
	}
	return s.hydrateMessage(ctx, updated)
}

// DeleteMessage soft deletes a message for everyone. Only the sender may
// do this; deleting it again changes nothing and is not announced.
func (s *Service) DeleteMessage(ctx context.Context, userId int, messageId int64) error {
	msg, err := s.db.GetMessage(ctx, messageId)
	if err != nil {
		return storeErr(err, "message")
	}
	if msg.SenderId != userId {
		return forbidden("not authorized to delete this message")
	}
	if msg.IsDeleted {
		return nil
	}

	if err := s.db.SoftDeleteMessage(ctx, messageId); err != nil {
		return storeErr(err, "message")
	}

	s.notify.MessageDeleted(msg.ChatId, msg.Id)
	return nil
}

// DeleteMessageForMe hides a message from the caller only.
func (s *Service) DeleteMessageForMe(ctx context.Context, userId int, messageId int64) error {
	msg, err := s.db.GetMessage(ctx, messageId)
	if err != nil {
		return storeErr(err, "message")
	}
	if _, err := s.memberChat(ctx, userId, msg.ChatId); err != nil {
		return err
	}

	if err := s.db.HideMessageFor(ctx, messageId, userId); err != nil {
		return fmt.Errorf("hide message: %w", err)
	}
	return nil
}

// SearchMessages matches content or attachment name, newest first. Without
// chatId it searches every chat the caller belongs to.
func (s *Service) SearchMessages(ctx context.Context, userId int, query, chatId string) ([]types.Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("search query is required")
	}

	var chats []database.Chat
	if chatId != "" {
		c, err := s.memberChat(ctx, userId, chatId)
		if err != nil {
			return nil, err
		}
		chats = []database.Chat{c}
	} else {
		var err error
		chats, err = s.db.ListChatsForUser(ctx, userId, true)
		if err != nil {
			return nil, fmt.Errorf("list chats: %w", err)
		}
	}

	chatIds := make([]string, len(chats))
	byId := make(map[string]database.Chat, len(chats))
	for i, c := range chats {
		chatIds[i] = c.Id
		byId[c.Id] = c
	}

	msgs, err := s.db.SearchMessages(ctx, userId, chatIds, query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}

	views, err := s.hydrateMessages(ctx, msgs)
	if err != nil {
		return nil, err
	}
	for i := range views {
		c := byId[views[i].ChatId]
		views[i].Chat = &types.Chat{Id: c.Id, Name: c.Name, IsGroupChat: c.IsGroupChat}
	}
	return views, nil
}

// UnreadSummary returns the caller's total unread count and the chats that
// contribute to it.
func (s *Service) UnreadSummary(ctx context.Context, userId int) (types.UnreadSummary, error) {
	chats, err := s.db.ListChatsForUser(ctx, userId, true)
	if err != nil {
		return types.UnreadSummary{}, fmt.Errorf("list chats: %w", err)
	}

	chatIds := make([]string, len(chats))
	for i, c := range chats {
		chatIds[i] = c.Id
	}
	return s.reads.Summary(ctx, chatIds, userId)
}

// FileURL returns the stored location of a message attachment.
func (s *Service) FileURL(ctx context.Context, userId int, messageId int64) (string, error) {
	msg, err := s.db.GetMessage(ctx, messageId)
	if err != nil {
		return "", storeErr(err, "file")
	}
	if msg.File == nil || msg.File.Filepath == "" {
		return "", notFound("file")
	}
	if _, err := s.memberChat(ctx, userId, msg.ChatId); err != nil {
		return "", err
	}
	return msg.File.Filepath, nil
}
