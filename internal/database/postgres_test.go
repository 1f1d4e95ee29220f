package database

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRepository connects to TEST_DATABASE_URL and applies migrations.
func newTestRepository(t *testing.T) *PgGoChatRepository {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := NewPgGoChatRepository(dsn, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate())
	return db
}

func createTestUser(t *testing.T, db *PgGoChatRepository, name string) User {
	t.Helper()

	u, err := db.CreateUser(context.Background(), CreateUserParams{
		Name:         name,
		EmailAddress: name + "-" + uuid.NewString() + "@example.com",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.conn.Exec("DELETE FROM message_reads WHERE user_id = $1", u.Id)
		db.conn.Exec("DELETE FROM users WHERE id = $1", u.Id)
	})
	return u
}

// createTestChat registers its cleanup after the users', so it runs first.
func createTestChat(t *testing.T, db *PgGoChatRepository, users ...int) Chat {
	t.Helper()

	c, err := db.CreateChat(context.Background(), CreateChatParams{
		Id:    uuid.NewString(),
		Name:  "sender",
		Users: users,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.conn.Exec("DELETE FROM chats WHERE id = $1", c.Id)
	})
	return c
}

func createTestMessage(t *testing.T, db *PgGoChatRepository, chatId string, senderId int, content string) Message {
	t.Helper()

	m, err := db.CreateMessage(context.Background(), CreateMessageParams{
		ChatId:      chatId,
		SenderId:    senderId,
		Content:     content,
		MessageType: MessageTypeText,
	})
	require.NoError(t, err)
	return m
}

// countUnread applies the unread rule to loaded messages in Go.
func countUnread(msgs []Message, userId int) map[string]int {
	counts := make(map[string]int)
	for _, m := range msgs {
		if m.SenderId == userId || m.IsDeleted || containsInt(m.DeletedFor, userId) {
			continue
		}
		read := false
		for _, r := range m.ReadBy {
			if r.UserId == userId {
				read = true
			}
		}
		if !read {
			counts[m.ChatId]++
		}
	}
	return counts
}

func TestConcurrentReadMarkingKeepsOneReadPerUser(t *testing.T) {
	db := newTestRepository(t)
	ctx := context.Background()

	ann := createTestUser(t, db, "ann")
	ben := createTestUser(t, db, "ben")
	c := createTestChat(t, db, ann.Id, ben.Id)

	ids := make([]int64, 20)
	for i := range ids {
		ids[i] = createTestMessage(t, db, c.Id, ann.Id, "hello").Id
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		marked int
	)
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			marks, err := db.MarkChatRead(ctx, c.Id, ben.Id, time.Now().UTC())
			assert.NoError(t, err)
			mu.Lock()
			marked += len(marks)
			mu.Unlock()
		}()
		go func() {
			defer wg.Done()
			for _, id := range ids {
				_, ok, err := db.UpdateMessageReadBy(ctx, id, ben.Id, time.Now().UTC())
				assert.NoError(t, err)
				if ok {
					mu.Lock()
					marked++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, len(ids), marked, "each message is newly marked exactly once")

	rows, err := db.conn.Query(
		"SELECT message_id, COUNT(*) FROM message_reads WHERE user_id = $1 AND message_id = ANY($2) GROUP BY message_id",
		ben.Id, pq.Array(ids),
	)
	require.NoError(t, err)
	defer rows.Close()

	perMessage := make(map[int64]int)
	for rows.Next() {
		var (
			id int64
			n  int
		)
		require.NoError(t, rows.Scan(&id, &n))
		perMessage[id] = n
	}
	require.NoError(t, rows.Err())

	require.Len(t, perMessage, len(ids))
	for id, n := range perMessage {
		assert.Equal(t, 1, n, "message %d", id)
	}

	again, err := db.MarkChatRead(ctx, c.Id, ben.Id, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestAggregateUnreadCountsMatchesDirectCount(t *testing.T) {
	db := newTestRepository(t)
	ctx := context.Background()

	ann := createTestUser(t, db, "ann")
	ben := createTestUser(t, db, "ben")
	first := createTestChat(t, db, ann.Id, ben.Id)
	second := createTestChat(t, db, ann.Id, ben.Id)
	quiet := createTestChat(t, db, ann.Id, ben.Id)

	unread := createTestMessage(t, db, first.Id, ann.Id, "unread")
	deleted := createTestMessage(t, db, first.Id, ann.Id, "deleted")
	hidden := createTestMessage(t, db, first.Id, ann.Id, "hidden")
	read := createTestMessage(t, db, first.Id, ann.Id, "read")
	own := createTestMessage(t, db, first.Id, ben.Id, "own")
	s1 := createTestMessage(t, db, second.Id, ann.Id, "one")
	s2 := createTestMessage(t, db, second.Id, ann.Id, "two")
	q1 := createTestMessage(t, db, quiet.Id, ann.Id, "seen")

	require.NoError(t, db.SoftDeleteMessage(ctx, deleted.Id))
	require.NoError(t, db.HideMessageFor(ctx, hidden.Id, ben.Id))
	_, ok, err := db.UpdateMessageReadBy(ctx, read.Id, ben.Id, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ok)
	_, err = db.MarkChatRead(ctx, quiet.Id, ben.Id, time.Now().UTC())
	require.NoError(t, err)

	_, ok, err = db.UpdateMessageReadBy(ctx, deleted.Id, ben.Id, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok, "deleted messages never become read")

	msgs, err := db.GetMessagesByIds(ctx, []int64{unread.Id, deleted.Id, hidden.Id, read.Id, own.Id, s1.Id, s2.Id, q1.Id})
	require.NoError(t, err)
	want := countUnread(msgs, ben.Id)
	assert.Equal(t, map[string]int{first.Id: 1, second.Id: 2}, want)

	rows, err := db.AggregateUnreadCounts(ctx, []string{first.Id, second.Id, quiet.Id}, ben.Id)
	require.NoError(t, err)

	got := make(map[string]int)
	for _, r := range rows {
		got[r.ChatId] = r.Count
	}
	assert.Equal(t, want, got)
}

func TestOfflineLastSeenStrictlyIncreases(t *testing.T) {
	db := newTestRepository(t)
	ctx := context.Background()

	ann := createTestUser(t, db, "ann")

	// a last_seen ahead of the clock makes both updates fall on the same instant
	_, err := db.conn.Exec("UPDATE users SET last_seen = NOW() + INTERVAL '1 hour' WHERE id = $1", ann.Id)
	require.NoError(t, err)

	online, err := db.SetUserOnlineStatus(ctx, ann.Id, true)
	require.NoError(t, err)
	assert.True(t, online.IsOnline)

	first, err := db.SetUserOnlineStatus(ctx, ann.Id, false)
	require.NoError(t, err)
	second, err := db.SetUserOnlineStatus(ctx, ann.Id, false)
	require.NoError(t, err)

	assert.False(t, second.IsOnline)
	assert.True(t, first.LastSeen.After(online.LastSeen))
	assert.True(t, second.LastSeen.After(first.LastSeen))
	assert.Equal(t, time.Millisecond, second.LastSeen.Sub(first.LastSeen))
}

func TestSearchMessagesTreatsQueryLiterally(t *testing.T) {
	db := newTestRepository(t)
	ctx := context.Background()

	ann := createTestUser(t, db, "ann")
	ben := createTestUser(t, db, "ben")
	c := createTestChat(t, db, ann.Id, ben.Id)

	pct := createTestMessage(t, db, c.Id, ann.Id, "100% Done")
	under := createTestMessage(t, db, c.Id, ann.Id, "snake_case")
	createTestMessage(t, db, c.Id, ann.Id, "plain words")

	tcases := []struct {
		query string
		want  []int64
	}{
		{"%", []int64{pct.Id}},
		{"_", []int64{under.Id}},
		{"done", []int64{pct.Id}},
		{"nothing", nil},
	}

	for _, tc := range tcases {
		t.Run(tc.query, func(t *testing.T) {
			msgs, err := db.SearchMessages(ctx, ben.Id, []string{c.Id}, tc.query, 50)
			require.NoError(t, err)

			var got []int64
			for _, m := range msgs {
				got = append(got, m.Id)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}
