package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/npezzotti/go-chatlive/internal/database"
	"github.com/npezzotti/go-chatlive/internal/types"
	"golang.org/x/sync/errgroup"
)

// FetchChats lists the user's non-archived chats, newest activity first,
// with members, latest message, unread count and mute flag. Unread counts
// come from one aggregation over the whole chat set.
func (s *Service) FetchChats(ctx context.Context, userId int) ([]types.Chat, error) {
	chats, err := s.db.ListChatsForUser(ctx, userId, false)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	if len(chats) == 0 {
		return []types.Chat{}, nil
	}

	chatIds := make([]string, len(chats))
	var latestIds []int64
	for i, c := range chats {
		chatIds[i] = c.Id
		if c.LatestMessageId != 0 {
			latestIds = append(latestIds, c.LatestMessageId)
		}
	}

	var (
		latest []database.Message
		counts map[string]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		latest, err = s.db.GetMessagesByIds(gctx, latestIds)
		if err != nil {
			return fmt.Errorf("load latest messages: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		counts, err = s.reads.UnreadCounts(gctx, chatIds, userId)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	users, err := s.loadUsers(ctx, append(chatUserIds(chats...), messageUserIds(latest...)...))
	if err != nil {
		return nil, err
	}

	latestById := make(map[int64]database.Message, len(latest))
	for _, m := range latest {
		latestById[m.Id] = m
	}

	out := make([]types.Chat, len(chats))
	for i, c := range chats {
		out[i] = chatView(c, users, userId)
		out[i].UnreadCount = counts[c.Id]
		if m, ok := latestById[c.LatestMessageId]; ok {
			mv := messageView(m, users)
			out[i].LatestMessage = &mv
		}
	}
	return out, nil
}

// AccessChat returns the direct chat between userId and otherId, creating
// it if needed.
func (s *Service) AccessChat(ctx context.Context, userId, otherId int) (types.Chat, error) {
	if otherId == 0 {
		return types.Chat{}, invalid("user id is required")
	}
	if otherId == userId {
		return types.Chat{}, invalid("cannot start a chat with yourself")
	}

	users, err := s.loadUsers(ctx, []int{userId, otherId})
	if err != nil {
		return types.Chat{}, err
	}
	other, ok := users[otherId]
	if !ok {
		return types.Chat{}, notFound("user")
	}
	if users[userId].HasBlocked(otherId) || other.HasBlocked(userId) {
		return types.Chat{}, forbidden("cannot chat with this user")
	}

	c, err := s.db.FindDirectChat(ctx, userId, otherId)
	if err == nil {
		return s.hydrateChat(ctx, c, userId)
	}
	if !errors.Is(err, database.ErrNotFound) {
		return types.Chat{}, fmt.Errorf("find direct chat: %w", err)
	}

	id, err := s.newId()
	if err != nil {
		return types.Chat{}, fmt.Errorf("generate chat id: %w", err)
	}
	c, err = s.db.CreateChat(ctx, database.CreateChatParams{
		Id:    id,
		Name:  "sender",
		Users: []int{userId, otherId},
	})
	if err != nil {
		return types.Chat{}, fmt.Errorf("create chat: %w", err)
	}

	return chatView(c, users, userId), nil
}

type GroupParams struct {
	Name        string
	Users       []int
	Description string
	Image       string
}

// CreateGroup creates a group administered by userId. Requested members
// that do not exist or are blocked in either direction are left out.
func (s *Service) CreateGroup(ctx context.Context, userId int, p GroupParams) (types.Chat, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" || len(p.Users) == 0 {
		return types.Chat{}, invalid("please provide a group name and users")
	}

	users, err := s.loadUsers(ctx, append(slices.Clone(p.Users), userId))
	if err != nil {
		return types.Chat{}, err
	}
	creator, ok := users[userId]
	if !ok {
		return types.Chat{}, notFound("user")
	}

	members := make([]int, 0, len(p.Users)+1)
	for _, id := range p.Users {
		u, ok := users[id]
		if !ok || id == userId || slices.Contains(members, id) {
			continue
		}
		if creator.HasBlocked(id) || u.HasBlocked(userId) {
			continue
		}
		members = append(members, id)
	}
	members = append(members, userId)

	id, err := s.newId()
	if err != nil {
		return types.Chat{}, fmt.Errorf("generate chat id: %w", err)
	}
	c, err := s.db.CreateChat(ctx, database.CreateChatParams{
		Id:          id,
		Name:        name,
		IsGroupChat: true,
		Users:       members,
		GroupAdmin:  userId,
		Description: strings.TrimSpace(p.Description),
		Image:       p.Image,
	})
	if err != nil {
		return types.Chat{}, fmt.Errorf("create group: %w", err)
	}

	return chatView(c, users, userId), nil
}

// adminGroup loads a group chat that userId administers.
func (s *Service) adminGroup(ctx context.Context, userId int, chatId string) (database.Chat, error) {
	if chatId == "" {
		return database.Chat{}, invalid("chat id is required")
	}
	c, err := s.db.GetChat(ctx, chatId)
	if err != nil {
		return database.Chat{}, storeErr(err, "chat")
	}
	if !c.IsGroupChat {
		return database.Chat{}, invalid("this is not a group chat")
	}
	if !c.IsAdmin(userId) {
		return database.Chat{}, forbidden("only the group admin can do this")
	}
	return c, nil
}

func (s *Service) updateGroup(ctx context.Context, c database.Chat, viewerId int) (types.Chat, error) {
	updated, err := s.db.UpdateChat(ctx, database.UpdateChatParams{
		Id:          c.Id,
		Name:        c.Name,
		Users:       c.Users,
		GroupAdmin:  c.GroupAdmin,
		Description: c.Description,
	})
	if err != nil {
		return types.Chat{}, storeErr(err, "chat")
	}
	return s.hydrateChat(ctx, updated, viewerId)
}

func (s *Service) RenameGroup(ctx context.Context, userId int, chatId, name string) (types.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Chat{}, invalid("chat name is required")
	}

	c, err := s.adminGroup(ctx, userId, chatId)
	if err != nil {
		return types.Chat{}, err
	}

	c.Name = name
	return s.updateGroup(ctx, c, userId)
}

func (s *Service) AddToGroup(ctx context.Context, userId int, chatId string, targetId int) (types.Chat, error) {
	if targetId == 0 {
		return types.Chat{}, invalid("user id is required")
	}

	c, err := s.adminGroup(ctx, userId, chatId)
	if err != nil {
		return types.Chat{}, err
	}
	if c.IsMember(targetId) {
		return types.Chat{}, invalid("user is already in the group")
	}

	users, err := s.loadUsers(ctx, []int{userId, targetId})
	if err != nil {
		return types.Chat{}, err
	}
	target, ok := users[targetId]
	if !ok {
		return types.Chat{}, notFound("user")
	}
	if users[userId].HasBlocked(targetId) || target.HasBlocked(userId) {
		return types.Chat{}, forbidden("cannot add this user")
	}

	c.Users = append(c.Users, targetId)
	return s.updateGroup(ctx, c, userId)
}

func (s *Service) RemoveFromGroup(ctx context.Context, userId int, chatId string, targetId int) (types.Chat, error) {
	if targetId == 0 {
		return types.Chat{}, invalid("user id is required")
	}

	c, err := s.adminGroup(ctx, userId, chatId)
	if err != nil {
		return types.Chat{}, err
	}
	if targetId == c.GroupAdmin {
		return types.Chat{}, invalid("cannot remove the group admin")
	}
	if !c.IsMember(targetId) {
		return types.Chat{}, invalid("user is not in the group")
	}

	c.Users = slices.DeleteFunc(slices.Clone(c.Users), func(id int) bool { return id == targetId })
	return s.updateGroup(ctx, c, userId)
}

// LeaveGroup removes userId from a group and reports whether the group was
// deleted. An admin hands the role to the next member and a system message
// announces it; the last member leaving deletes the group.
func (s *Service) LeaveGroup(ctx context.Context, userId int, chatId string) (bool, error) {
	c, err := s.memberChat(ctx, userId, chatId)
	if err != nil {
		return false, err
	}
	if !c.IsGroupChat {
		return false, invalid("this is not a group chat")
	}

	remaining := slices.DeleteFunc(slices.Clone(c.Users), func(id int) bool { return id == userId })

	if len(remaining) == 0 {
		if err := s.db.DeleteChat(ctx, c.Id); err != nil {
			return false, fmt.Errorf("delete group: %w", err)
		}
		s.log.Printf("group %q deleted after last member left", c.Id)
		return true, nil
	}

	handOff := c.IsAdmin(userId)
	c.Users = remaining
	if handOff {
		c.GroupAdmin = remaining[0]
	}

	updated, err := s.db.UpdateChat(ctx, database.UpdateChatParams{
		Id:          c.Id,
		Name:        c.Name,
		Users:       c.Users,
		GroupAdmin:  c.GroupAdmin,
		Description: c.Description,
	})
	if err != nil {
		return false, storeErr(err, "chat")
	}

	if handOff {
		s.announceAdmin(ctx, userId, updated)
	}
	return false, nil
}

// announceAdmin posts the admin hand-off system message. Failures are
// advisory: the member has already left.
func (s *Service) announceAdmin(ctx context.Context, leaverId int, c database.Chat) {
	admin, err := s.db.GetUserById(ctx, c.GroupAdmin)
	if err != nil {
		s.advisory("admin announcement", err)
		return
	}

	msg, err := s.db.CreateMessage(ctx, database.CreateMessageParams{
		ChatId:      c.Id,
		SenderId:    leaverId,
		Content:     fmt.Sprintf("%s is now the group admin.", admin.Name),
		MessageType: database.MessageTypeSystem,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		s.advisory("admin announcement", err)
		return
	}

	s.advisory("chat latest message", s.db.SetChatLatestMessage(ctx, c.Id, msg.Id))
	if _, err := s.publish(ctx, msg, c); err != nil {
		s.advisory("admin announcement broadcast", err)
	}
}

func (s *Service) MuteChat(ctx context.Context, userId int, chatId string, mute bool) error {
	return s.setFlag(ctx, userId, chatId, database.ChatFlagMuted, mute)
}

func (s *Service) ArchiveChat(ctx context.Context, userId int, chatId string, archive bool) error {
	return s.setFlag(ctx, userId, chatId, database.ChatFlagArchived, archive)
}

func (s *Service) setFlag(ctx context.Context, userId int, chatId string, flag database.ChatFlag, on bool) error {
	if _, err := s.memberChat(ctx, userId, chatId); err != nil {
		return err
	}
	if err := s.db.SetChatFlag(ctx, chatId, userId, flag, on); err != nil {
		return storeErr(err, "chat")
	}
	return nil
}
