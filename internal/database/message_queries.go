package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// unreadFilter is the unread predicate for the user bound to placeholder p:
// not sent by the user, not deleted, not hidden for the user and not yet
// read by the user. Every read-state query uses it.
func unreadFilter(p string) string {
	return strings.NewReplacer("$u", p).Replace(
		"m.sender_id <> $u AND NOT m.is_deleted AND NOT ($u = ANY(m.deleted_for)) " +
			"AND NOT EXISTS (SELECT 1 FROM message_reads r WHERE r.message_id = m.id AND r.user_id = $u)",
	)
}

func (db *PgGoChatRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	file, err := fileValue(params.File)
	if err != nil {
		return Message{}, err
	}

	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO messages AS m (chat_id, sender_id, content, file, message_type, reply_to, forwarded_from, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8) RETURNING "+messageColumns,
		params.ChatId,
		params.SenderId,
		params.Content,
		file,
		params.MessageType,
		nullInt64(params.ReplyTo),
		nullInt64(params.ForwardedFrom),
		createdAt,
	)

	msg, err := scanMessage(row)
	if err != nil {
		return Message{}, err
	}

	msg.ReadBy = []Read{}
	msg.Reactions = []Reaction{}
	return msg, nil
}

func (db *PgGoChatRepository) GetMessage(ctx context.Context, messageId int64) (Message, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, "SELECT "+messageColumns+" FROM messages m WHERE m.id = $1", messageId)
	msg, err := scanMessage(row)
	if err != nil {
		return Message{}, notFound(err)
	}

	msgs := []Message{msg}
	if err := db.loadReadState(ctx, msgs); err != nil {
		return Message{}, err
	}

	return msgs[0], nil
}

// GetMessagesByIds loads messages in one query. Missing ids are skipped.
func (db *PgGoChatRepository) GetMessagesByIds(ctx context.Context, messageIds []int64) ([]Message, error) {
	if len(messageIds) == 0 {
		return []Message{}, nil
	}

	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+messageColumns+" FROM messages m WHERE m.id = ANY($1)",
		pq.Int64Array(messageIds),
	)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}

	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}

	return msgs, db.loadReadState(ctx, msgs)
}

// ListMessages returns the chat's messages visible to viewerId in insertion
// order.
func (db *PgGoChatRepository) ListMessages(ctx context.Context, chatId string, viewerId int) ([]Message, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+messageColumns+" FROM messages m WHERE m.chat_id = $1 "+
			"AND NOT m.is_deleted AND NOT ($2 = ANY(m.deleted_for)) ORDER BY m.created_at, m.id",
		chatId,
		viewerId,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}

	return msgs, db.loadReadState(ctx, msgs)
}

// SearchMessages matches query as a literal, case-insensitive substring of
// the content or attachment name.
func (db *PgGoChatRepository) SearchMessages(ctx context.Context, viewerId int, chatIds []string, query string, limit int) ([]Message, error) {
	if len(chatIds) == 0 {
		return []Message{}, nil
	}

	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+messageColumns+" FROM messages m WHERE m.chat_id = ANY($1) "+
			"AND NOT m.is_deleted AND NOT ($2 = ANY(m.deleted_for)) "+
			"AND (strpos(lower(m.content), lower($3)) > 0 OR strpos(lower(m.file->>'filename'), lower($3)) > 0) "+
			"ORDER BY m.created_at DESC LIMIT $4",
		pq.Array(chatIds),
		viewerId,
		query,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}

	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}

	return msgs, db.loadReadState(ctx, msgs)
}

func (db *PgGoChatRepository) IncrementForwardCount(ctx context.Context, messageId int64, n int) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx,
		"UPDATE messages SET forward_count = forward_count + $2 WHERE id = $1",
		messageId,
		n,
	)
	return err
}

func (db *PgGoChatRepository) SoftDeleteMessage(ctx context.Context, messageId int64) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		"UPDATE messages SET is_deleted = TRUE, updated_at = $2 WHERE id = $1",
		messageId,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *PgGoChatRepository) HideMessageFor(ctx context.Context, messageId int64, userId int) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx,
		"UPDATE messages SET deleted_for = array_append(deleted_for, $2) "+
			"WHERE id = $1 AND NOT ($2 = ANY(deleted_for))",
		messageId,
		userId,
	)
	return err
}

// UpsertReaction replaces any earlier reaction from the same user.
func (db *PgGoChatRepository) UpsertReaction(ctx context.Context, messageId int64, userId int, emoji string) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO message_reactions (message_id, user_id, emoji, created_at) VALUES ($1, $2, $3, $4) "+
			"ON CONFLICT (message_id, user_id) DO UPDATE SET emoji = EXCLUDED.emoji, created_at = EXCLUDED.created_at",
		messageId,
		userId,
		emoji,
		time.Now().UTC(),
	)
	return err
}

func (db *PgGoChatRepository) DeleteReaction(ctx context.Context, messageId int64, userId int) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx,
		"DELETE FROM message_reactions WHERE message_id = $1 AND user_id = $2",
		messageId,
		userId,
	)
	return err
}

func (db *PgGoChatRepository) MarkChatRead(ctx context.Context, chatId string, userId int, at time.Time) ([]ReadMark, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		"WITH marked AS ("+
			"INSERT INTO message_reads (message_id, user_id, read_at) "+
			"SELECT m.id, $2, $3 FROM messages m WHERE m.chat_id = $1 AND "+unreadFilter("$2")+" "+
			"ON CONFLICT (message_id, user_id) DO NOTHING "+
			"RETURNING message_id, read_at) "+
			"SELECT m.id, m.chat_id, m.sender_id, marked.read_at FROM marked "+
			"JOIN messages m ON m.id = marked.message_id ORDER BY m.id",
		chatId,
		userId,
		at,
	)
	if err != nil {
		return nil, fmt.Errorf("mark chat read: %w", err)
	}
	defer rows.Close()

	marks := make([]ReadMark, 0)
	for rows.Next() {
		var rm ReadMark
		if err := rows.Scan(&rm.MessageId, &rm.ChatId, &rm.SenderId, &rm.ReadAt); err != nil {
			return nil, fmt.Errorf("scan read mark: %w", err)
		}
		marks = append(marks, rm)
	}

	return marks, rows.Err()
}

func (db *PgGoChatRepository) UpdateMessageReadBy(ctx context.Context, messageId int64, userId int, at time.Time) (ReadMark, bool, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var rm ReadMark
	err := db.conn.QueryRowContext(ctx,
		"WITH marked AS ("+
			"INSERT INTO message_reads (message_id, user_id, read_at) "+
			"SELECT m.id, $2, $3 FROM messages m WHERE m.id = $1 AND "+unreadFilter("$2")+" "+
			"ON CONFLICT (message_id, user_id) DO NOTHING "+
			"RETURNING message_id, read_at) "+
			"SELECT m.id, m.chat_id, m.sender_id, marked.read_at FROM marked "+
			"JOIN messages m ON m.id = marked.message_id",
		messageId,
		userId,
		at,
	).Scan(&rm.MessageId, &rm.ChatId, &rm.SenderId, &rm.ReadAt)
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return ReadMark{}, false, nil
		}
		return ReadMark{}, false, fmt.Errorf("update message read by: %w", err)
	}

	return rm, true, nil
}

// AggregateUnreadCounts counts unread messages for every chat in chatIds with
// a single grouped query. Chats without unread messages are omitted.
func (db *PgGoChatRepository) AggregateUnreadCounts(ctx context.Context, chatIds []string, userId int) ([]UnreadCount, error) {
	if len(chatIds) == 0 {
		return []UnreadCount{}, nil
	}

	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		"SELECT m.chat_id, COUNT(*) FROM messages m WHERE m.chat_id = ANY($1) AND "+unreadFilter("$2")+
			" GROUP BY m.chat_id",
		pq.Array(chatIds),
		userId,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate unread counts: %w", err)
	}
	defer rows.Close()

	counts := make([]UnreadCount, 0)
	for rows.Next() {
		var uc UnreadCount
		if err := rows.Scan(&uc.ChatId, &uc.Count); err != nil {
			return nil, fmt.Errorf("scan unread count: %w", err)
		}
		counts = append(counts, uc)
	}

	return counts, rows.Err()
}

func collectMessages(rows interface {
	rowScanner
	Next() bool
	Err() error
	Close() error
}) ([]Message, error) {
	defer rows.Close()

	msgs := make([]Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, msg)
	}

	return msgs, rows.Err()
}

// loadReadState fills ReadBy and Reactions for msgs with one query each.
func (db *PgGoChatRepository) loadReadState(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}

	ids := make([]int64, len(msgs))
	index := make(map[int64]int, len(msgs))
	for i := range msgs {
		ids[i] = msgs[i].Id
		index[msgs[i].Id] = i
		msgs[i].ReadBy = []Read{}
		msgs[i].Reactions = []Reaction{}
	}

	rows, err := db.conn.QueryContext(ctx,
		"SELECT message_id, user_id, read_at FROM message_reads WHERE message_id = ANY($1) ORDER BY read_at, user_id",
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("load reads: %w", err)
	}
	for rows.Next() {
		var (
			id int64
			rd Read
		)
		if err := rows.Scan(&id, &rd.UserId, &rd.ReadAt); err != nil {
			rows.Close()
			return fmt.Errorf("scan read: %w", err)
		}
		i := index[id]
		msgs[i].ReadBy = append(msgs[i].ReadBy, rd)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = db.conn.QueryContext(ctx,
		"SELECT message_id, user_id, emoji, created_at FROM message_reactions WHERE message_id = ANY($1) ORDER BY created_at",
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("load reactions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id int64
			rc Reaction
		)
		if err := rows.Scan(&id, &rc.UserId, &rc.Emoji, &rc.CreatedAt); err != nil {
			return fmt.Errorf("scan reaction: %w", err)
		}
		i := index[id]
		msgs[i].Reactions = append(msgs[i].Reactions, rc)
	}

	return rows.Err()
}
