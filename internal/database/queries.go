package database

import (
	"context"
	"fmt"
	"time"
)

func (db *PgGoChatRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO users (name, email, phone, image, password_hash, created_at, updated_at) "+
			"VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $6) RETURNING "+userColumns,
		params.Name,
		params.EmailAddress,
		params.Phone,
		params.Image,
		params.PasswordHash,
		time.Now().UTC(),
	)

	return scanUser(row)
}

func (db *PgGoChatRepository) UpdateUser(ctx context.Context, params UpdateUserParams) (User, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		"UPDATE users SET name = COALESCE(NULLIF($2, ''), name), status = COALESCE(NULLIF($3, ''), status), "+
			"image = COALESCE(NULLIF($4, ''), image), password_hash = COALESCE(NULLIF($5, ''), password_hash), "+
			"updated_at = $6 WHERE id = $1 RETURNING "+userColumns,
		params.UserId,
		params.Name,
		params.Status,
		params.Image,
		params.PasswordHash,
		time.Now().UTC(),
	)

	u, err := scanUser(row)
	return u, notFound(err)
}

func (db *PgGoChatRepository) GetUserById(ctx context.Context, userId int) (User, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1 LIMIT 1", userId)
	u, err := scanUser(row)
	return u, notFound(err)
}

func (db *PgGoChatRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = LOWER($1) LIMIT 1", email)
	u, err := scanUser(row)
	return u, notFound(err)
}

func (db *PgGoChatRepository) GetUsersByIds(ctx context.Context, userIds []int) ([]User, error) {
	if len(userIds) == 0 {
		return []User{}, nil
	}

	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ANY($1)",
		intSlice(userIds),
	)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0, len(userIds))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// SearchUsers excludes the caller, users the caller blocked and users who
// blocked the caller.
func (db *PgGoChatRepository) SearchUsers(ctx context.Context, userId int, query string) ([]User, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users u WHERE u.id <> $1 "+
			"AND NOT ($1 = ANY(u.blocked_users)) "+
			"AND NOT (u.id = ANY(COALESCE((SELECT blocked_users FROM users WHERE id = $1), '{}'))) "+
			"AND ($2 = '' OR u.name ILIKE '%' || $2 || '%' OR u.email ILIKE '%' || $2 || '%' OR u.phone ILIKE '%' || $2 || '%') "+
			"ORDER BY u.name LIMIT 50",
		userId,
		query,
	)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func (db *PgGoChatRepository) SetBlocked(ctx context.Context, userId, targetId int, blocked bool) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	query := "UPDATE users SET blocked_users = array_remove(blocked_users, $2), updated_at = $3 WHERE id = $1"
	if blocked {
		query = "UPDATE users SET blocked_users = array_append(array_remove(blocked_users, $2), $2), updated_at = $3 WHERE id = $1"
	}

	res, err := db.conn.ExecContext(ctx, query, userId, targetId, time.Now().UTC())
	if err != nil {
		return err
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetUserOnlineStatus persists the presence projection. Going offline moves
// last_seen strictly forward.
func (db *PgGoChatRepository) SetUserOnlineStatus(ctx context.Context, userId int, online bool) (User, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	query := "UPDATE users SET is_online = TRUE, updated_at = $2 WHERE id = $1 RETURNING " + userColumns
	if !online {
		query = "UPDATE users SET is_online = FALSE, " +
			"last_seen = GREATEST($2, last_seen + INTERVAL '1 millisecond'), updated_at = $2 " +
			"WHERE id = $1 RETURNING " + userColumns
	}

	u, err := scanUser(db.conn.QueryRowContext(ctx, query, userId, now))
	return u, notFound(err)
}

func (db *PgGoChatRepository) CreateChat(ctx context.Context, params CreateChatParams) (Chat, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO chats (id, name, is_group_chat, user_ids, group_admin, description, image, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8) RETURNING "+chatColumns,
		params.Id,
		params.Name,
		params.IsGroupChat,
		intSlice(params.Users),
		nullInt64(int64(params.GroupAdmin)),
		params.Description,
		params.Image,
		now,
	)

	return scanChat(row)
}

func (db *PgGoChatRepository) GetChat(ctx context.Context, chatId string) (Chat, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, "SELECT "+chatColumns+" FROM chats WHERE id = $1 LIMIT 1", chatId)
	c, err := scanChat(row)
	return c, notFound(err)
}

func (db *PgGoChatRepository) FindDirectChat(ctx context.Context, userA, userB int) (Chat, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		"SELECT "+chatColumns+" FROM chats WHERE NOT is_group_chat "+
			"AND $1 = ANY(user_ids) AND $2 = ANY(user_ids) ORDER BY created_at LIMIT 1",
		userA,
		userB,
	)
	c, err := scanChat(row)
	return c, notFound(err)
}

func (db *PgGoChatRepository) ListChatsForUser(ctx context.Context, userId int, includeArchived bool) ([]Chat, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+chatColumns+" FROM chats WHERE $1 = ANY(user_ids) "+
			"AND ($2 OR NOT ($1 = ANY(archived_by))) ORDER BY updated_at DESC",
		userId,
		includeArchived,
	)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	chats := make([]Chat, 0)
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chats = append(chats, c)
	}

	return chats, rows.Err()
}

func (db *PgGoChatRepository) FindChatMembers(ctx context.Context, chatId string) ([]int, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var members intSlice
	err := db.conn.QueryRowContext(ctx, "SELECT user_ids FROM chats WHERE id = $1", chatId).Scan(&members)
	if err != nil {
		return nil, notFound(err)
	}

	return members, nil
}

func (db *PgGoChatRepository) UpdateChat(ctx context.Context, params UpdateChatParams) (Chat, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		"UPDATE chats SET name = $2, user_ids = $3, group_admin = $4, description = $5, updated_at = $6 "+
			"WHERE id = $1 RETURNING "+chatColumns,
		params.Id,
		params.Name,
		intSlice(params.Users),
		nullInt64(int64(params.GroupAdmin)),
		params.Description,
		time.Now().UTC(),
	)

	c, err := scanChat(row)
	return c, notFound(err)
}

func (db *PgGoChatRepository) SetChatLatestMessage(ctx context.Context, chatId string, messageId int64) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx,
		"UPDATE chats SET latest_message_id = $2, updated_at = $3 WHERE id = $1",
		chatId,
		messageId,
		time.Now().UTC(),
	)
	return err
}

func (db *PgGoChatRepository) SetChatFlag(ctx context.Context, chatId string, userId int, flag ChatFlag, on bool) error {
	var column string
	switch flag {
	case ChatFlagMuted, ChatFlagArchived:
		column = string(flag)
	default:
		return fmt.Errorf("unknown chat flag %q", flag)
	}

	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	expr := fmt.Sprintf("array_remove(%s, $2)", column)
	if on {
		expr = fmt.Sprintf("array_append(array_remove(%s, $2), $2)", column)
	}

	res, err := db.conn.ExecContext(ctx,
		fmt.Sprintf("UPDATE chats SET %s = %s WHERE id = $1", column, expr),
		chatId,
		userId,
	)
	if err != nil {
		return err
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *PgGoChatRepository) DeleteChat(ctx context.Context, chatId string) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, "DELETE FROM messages WHERE chat_id = $1", chatId)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM chats WHERE id = $1", chatId)
	if err != nil {
		return err
	}

	return tx.Commit()
}
