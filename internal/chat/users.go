package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/npezzotti/go-chatlive/internal/database"
	"github.com/npezzotti/go-chatlive/internal/types"
)

func (s *Service) Profile(ctx context.Context, userId int) (types.User, error) {
	u, err := s.db.GetUserById(ctx, userId)
	if err != nil {
		return types.User{}, storeErr(err, "user")
	}
	return privateUser(u), nil
}

type ProfileUpdate struct {
	Name   string
	Status string
	Image  string
}

func (s *Service) UpdateProfile(ctx context.Context, userId int, p ProfileUpdate) (types.User, error) {
	u, err := s.db.UpdateUser(ctx, database.UpdateUserParams{
		UserId: userId,
		Name:   strings.TrimSpace(p.Name),
		Status: strings.TrimSpace(p.Status),
		Image:  p.Image,
	})
	if err != nil {
		return types.User{}, storeErr(err, "user")
	}
	return privateUser(u), nil
}

// SearchUsers matches name, email or phone and hides users blocked in
// either direction.
func (s *Service) SearchUsers(ctx context.Context, userId int, query string) ([]types.User, error) {
	users, err := s.db.SearchUsers(ctx, userId, strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	out := make([]types.User, len(users))
	for i, u := range users {
		out[i] = publicUser(u)
	}
	return out, nil
}

// GetUser returns another user's public profile.
func (s *Service) GetUser(ctx context.Context, viewerId, userId int) (types.User, error) {
	users, err := s.loadUsers(ctx, []int{viewerId, userId})
	if err != nil {
		return types.User{}, err
	}

	target, ok := users[userId]
	if !ok {
		return types.User{}, notFound("user")
	}
	viewer := users[viewerId]
	if viewer.HasBlocked(userId) || target.HasBlocked(viewerId) {
		return types.User{}, forbidden("cannot view this profile")
	}
	return publicUser(target), nil
}

func (s *Service) BlockUser(ctx context.Context, userId, targetId int) (types.User, error) {
	if targetId == 0 {
		return types.User{}, invalid("user id is required")
	}
	if targetId == userId {
		return types.User{}, invalid("you cannot block yourself")
	}

	users, err := s.loadUsers(ctx, []int{userId, targetId})
	if err != nil {
		return types.User{}, err
	}
	target, ok := users[targetId]
	if !ok {
		return types.User{}, notFound("user")
	}
	if users[userId].HasBlocked(targetId) {
		return types.User{}, invalid("user is already blocked")
	}

	if err := s.db.SetBlocked(ctx, userId, targetId, true); err != nil {
		return types.User{}, storeErr(err, "user")
	}
	return publicUser(target), nil
}

func (s *Service) UnblockUser(ctx context.Context, userId, targetId int) (types.User, error) {
	if targetId == 0 {
		return types.User{}, invalid("user id is required")
	}

	users, err := s.loadUsers(ctx, []int{userId, targetId})
	if err != nil {
		return types.User{}, err
	}
	if !users[userId].HasBlocked(targetId) {
		return types.User{}, invalid("user is not blocked")
	}

	if err := s.db.SetBlocked(ctx, userId, targetId, false); err != nil {
		return types.User{}, storeErr(err, "user")
	}
	return publicUser(users[targetId]), nil
}

func (s *Service) BlockedUsers(ctx context.Context, userId int) ([]types.User, error) {
	u, err := s.db.GetUserById(ctx, userId)
	if err != nil {
		return nil, storeErr(err, "user")
	}

	users, err := s.loadUsers(ctx, u.BlockedUsers)
	if err != nil {
		return nil, err
	}

	out := make([]types.User, 0, len(u.BlockedUsers))
	for _, id := range u.BlockedUsers {
		if b, ok := users[id]; ok {
			out = append(out, publicUser(b))
		}
	}
	return out, nil
}

// SetOnlineStatus overrides the persisted presence projection without
// touching live connections.
func (s *Service) SetOnlineStatus(ctx context.Context, userId int, online bool) (types.User, error) {
	u, err := s.db.SetUserOnlineStatus(ctx, userId, online)
	if err != nil {
		return types.User{}, storeErr(err, "user")
	}
	return privateUser(u), nil
}
