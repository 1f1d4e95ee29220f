package chat

import (
	"context"
	"fmt"
	"slices"

	"github.com/npezzotti/go-chatlive/internal/database"
	"github.com/npezzotti/go-chatlive/internal/types"
)

// userSet holds users loaded for one read-model assembly.
type userSet map[int]database.User

func (s *Service) loadUsers(ctx context.Context, ids []int) (userSet, error) {
	ids = uniqueInts(ids)
	users := make(userSet, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	loaded, err := s.db.GetUsersByIds(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for _, u := range loaded {
		users[u.Id] = u
	}
	return users, nil
}

func (us userSet) ref(id int) types.UserRef {
	if u, ok := us[id]; ok {
		return userRef(u)
	}
	return types.UserRef{Id: id}
}

func userRef(u database.User) types.UserRef {
	return types.UserRef{Id: u.Id, Name: u.Name, Image: u.Image}
}

// privateUser is the caller's own profile.
func privateUser(u database.User) types.User {
	return types.User{
		Id:           u.Id,
		Name:         u.Name,
		EmailAddress: u.EmailAddress,
		Phone:        u.Phone,
		Status:       u.Status,
		Image:        u.Image,
		IsOnline:     u.IsOnline,
		LastSeen:     u.LastSeen,
		BlockedUsers: append([]int{}, u.BlockedUsers...),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// publicUser is what other users may see.
func publicUser(u database.User) types.User {
	return types.User{
		Id:       u.Id,
		Name:     u.Name,
		Status:   u.Status,
		Image:    u.Image,
		IsOnline: u.IsOnline,
		LastSeen: u.LastSeen,
	}
}

func messageView(m database.Message, users userSet) types.Message {
	v := types.Message{
		Id:           m.Id,
		Sender:       users.ref(m.SenderId),
		ChatId:       m.ChatId,
		Content:      m.Content,
		MessageType:  m.MessageType,
		ReadBy:       make([]types.ReadEntry, len(m.ReadBy)),
		Reactions:    make([]types.Reaction, len(m.Reactions)),
		ForwardCount: m.ForwardCount,
		IsDeleted:    m.IsDeleted,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}

	if m.File != nil {
		v.File = &types.File{
			Filename: m.File.Filename,
			Mimetype: m.File.Mimetype,
			Filepath: m.File.Filepath,
			Size:     m.File.Size,
			PublicId: m.File.PublicId,
		}
	}
	if m.ReplyTo != 0 {
		id := m.ReplyTo
		v.ReplyTo = &id
	}
	if m.ForwardedFrom != 0 {
		id := m.ForwardedFrom
		v.ForwardedFrom = &id
	}
	for i, r := range m.ReadBy {
		v.ReadBy[i] = types.ReadEntry{User: r.UserId, ReadAt: r.ReadAt}
	}
	for i, r := range m.Reactions {
		v.Reactions[i] = types.Reaction{User: users.ref(r.UserId), Emoji: r.Emoji, CreatedAt: r.CreatedAt}
	}
	return v
}

func messageUserIds(msgs ...database.Message) []int {
	var ids []int
	for _, m := range msgs {
		ids = append(ids, m.SenderId)
		for _, r := range m.Reactions {
			ids = append(ids, r.UserId)
		}
	}
	return ids
}

// hydrateMessages assembles views for msgs with a single user lookup.
func (s *Service) hydrateMessages(ctx context.Context, msgs []database.Message) ([]types.Message, error) {
	users, err := s.loadUsers(ctx, messageUserIds(msgs...))
	if err != nil {
		return nil, err
	}

	views := make([]types.Message, len(msgs))
	for i, m := range msgs {
		views[i] = messageView(m, users)
	}
	return views, nil
}

func (s *Service) hydrateMessage(ctx context.Context, msg database.Message) (types.Message, error) {
	views, err := s.hydrateMessages(ctx, []database.Message{msg})
	if err != nil {
		return types.Message{}, err
	}
	return views[0], nil
}

// chatView assembles a chat for viewerId. Member order is kept for display.
func chatView(c database.Chat, users userSet, viewerId int) types.Chat {
	v := types.Chat{
		Id:          c.Id,
		Name:        c.Name,
		IsGroupChat: c.IsGroupChat,
		Users:       make([]types.User, 0, len(c.Users)),
		Description: c.Description,
		Image:       c.Image,
		IsMuted:     c.IsMutedBy(viewerId),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}

	for _, id := range c.Users {
		if u, ok := users[id]; ok {
			v.Users = append(v.Users, publicUser(u))
		} else {
			v.Users = append(v.Users, types.User{Id: id})
		}
	}
	if c.IsGroupChat && c.GroupAdmin != 0 {
		ref := users.ref(c.GroupAdmin)
		v.GroupAdmin = &ref
	}
	return v
}

func chatUserIds(chats ...database.Chat) []int {
	var ids []int
	for _, c := range chats {
		ids = append(ids, c.Users...)
		if c.GroupAdmin != 0 {
			ids = append(ids, c.GroupAdmin)
		}
	}
	return ids
}

// hydrateChat assembles a single chat with its unread count for viewerId.
func (s *Service) hydrateChat(ctx context.Context, c database.Chat, viewerId int) (types.Chat, error) {
	users, err := s.loadUsers(ctx, chatUserIds(c))
	if err != nil {
		return types.Chat{}, err
	}

	v := chatView(c, users, viewerId)

	counts, err := s.reads.UnreadCounts(ctx, []string{c.Id}, viewerId)
	if err != nil {
		return types.Chat{}, err
	}
	v.UnreadCount = counts[c.Id]
	return v, nil
}

// broadcastView is the payload of message received: the message with its
// chat and the chat's members.
func (s *Service) broadcastView(ctx context.Context, msg database.Message, c database.Chat) (types.Message, error) {
	users, err := s.loadUsers(ctx, append(chatUserIds(c), messageUserIds(msg)...))
	if err != nil {
		return types.Message{}, err
	}

	v := messageView(msg, users)
	// every member gets the same chat, so no viewer-specific fields
	cv := chatView(c, users, 0)
	v.Chat = &cv
	return v, nil
}

func uniqueInts(ids []int) []int {
	out := slices.Clone(ids)
	slices.Sort(out)
	out = slices.Compact(out)
	// ids are serial; zero is never a real user
	if len(out) > 0 && out[0] == 0 {
		out = out[1:]
	}
	return out
}
