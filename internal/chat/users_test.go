package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/npezzotti/go-chatlive/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProfile(t *testing.T) {
	s, d := newTestService(t)
	me := database.User{Id: 1, Name: "alice", EmailAddress: "alice@example.com", PasswordHash: "secret", BlockedUsers: []int{3}}
	d.db.On("GetUserById", 1).Return(me, nil)
	d.db.On("GetUserById", 9).Return(database.User{}, database.ErrNotFound)

	u, err := s.Profile(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.EmailAddress)
	assert.Equal(t, []int{3}, u.BlockedUsers)

	_, err = s.Profile(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	s, d := newTestService(t)
	d.db.On("UpdateUser", database.UpdateUserParams{UserId: 1, Name: "Alice", Status: "busy"}).
		Return(database.User{Id: 1, Name: "Alice", Status: "busy"}, nil).Once()

	u, err := s.UpdateProfile(context.Background(), 1, ProfileUpdate{Name: " Alice ", Status: "busy "})
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
	d.db.AssertExpectations(t)
}

func TestSearchUsersHidesPrivateFields(t *testing.T) {
	s, d := newTestService(t)
	d.db.On("SearchUsers", 1, "bo").Return([]database.User{{Id: 2, Name: "bob", EmailAddress: "bob@example.com"}}, nil)

	users, err := s.SearchUsers(context.Background(), 1, " bo ")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Name)
	assert.Empty(t, users[0].EmailAddress)
}

func TestGetUser(t *testing.T) {
	blocker := bob
	blocker.BlockedUsers = []int{1}
	blockingAlice := alice
	blockingAlice.BlockedUsers = []int{2}

	tcs := []struct {
		name    string
		users   []database.User
		wantErr error
	}{
		{"visible", []database.User{alice, bob}, nil},
		{"unknown", []database.User{alice}, ErrNotFound},
		{"blocked by target", []database.User{alice, blocker}, ErrForbidden},
		{"viewer blocked target", []database.User{blockingAlice, bob}, ErrForbidden},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			s, d := newTestService(t)
			d.users(tc.users...)

			u, err := s.GetUser(context.Background(), 1, 2)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "bob", u.Name)
		})
	}
}

func TestBlockUser(t *testing.T) {
	s, d := newTestService(t)
	d.users(alice, bob)
	d.db.On("SetBlocked", 1, 2, true).Return(nil).Once()

	u, err := s.BlockUser(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, u.Id)
	d.db.AssertExpectations(t)
}

func TestBlockUserRejections(t *testing.T) {
	blockingAlice := alice
	blockingAlice.BlockedUsers = []int{2}

	tcs := []struct {
		name    string
		target  int
		users   []database.User
		wantErr error
	}{
		{"missing id", 0, nil, ErrInvalid},
		{"self", 1, nil, ErrInvalid},
		{"unknown", 9, []database.User{alice}, ErrNotFound},
		{"already blocked", 2, []database.User{blockingAlice, bob}, ErrInvalid},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			s, d := newTestService(t)
			d.users(tc.users...)

			_, err := s.BlockUser(context.Background(), 1, tc.target)
			assert.ErrorIs(t, err, tc.wantErr)
			d.db.AssertNotCalled(t, "SetBlocked", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUnblockUser(t *testing.T) {
	blockingAlice := alice
	blockingAlice.BlockedUsers = []int{2}

	s, d := newTestService(t)
	d.users(blockingAlice, bob)
	d.db.On("SetBlocked", 1, 2, false).Return(nil).Once()

	u, err := s.UnblockUser(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Name)

	s, d = newTestService(t)
	d.users(alice, bob)
	_, err = s.UnblockUser(context.Background(), 1, 2)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestBlockedUsers(t *testing.T) {
	s, d := newTestService(t)
	me := alice
	me.BlockedUsers = []int{3, 2}
	d.db.On("GetUserById", 1).Return(me, nil)
	d.users(bob, carol)

	users, err := s.BlockedUsers(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "carol", users[0].Name)
	assert.Equal(t, "bob", users[1].Name)
}

func TestSetOnlineStatus(t *testing.T) {
	s, d := newTestService(t)
	d.db.On("SetUserOnlineStatus", 1, false).Return(database.User{Id: 1, Name: "alice"}, nil).Once()
	d.db.On("SetUserOnlineStatus", 2, true).Return(database.User{}, errors.New("conn reset")).Once()

	u, err := s.SetOnlineStatus(context.Background(), 1, false)
	require.NoError(t, err)
	assert.False(t, u.IsOnline)

	_, err = s.SetOnlineStatus(context.Background(), 2, true)
	assert.ErrorContains(t, err, "conn reset")
}
