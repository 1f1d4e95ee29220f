package database

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// intSlice maps a Postgres INTEGER[] column to []int.
type intSlice []int

func (s *intSlice) Scan(src any) error {
	var a pq.Int64Array
	if err := a.Scan(src); err != nil {
		return err
	}

	out := make([]int, len(a))
	for i, v := range a {
		out[i] = int(v)
	}
	*s = out
	return nil
}

func (s intSlice) Value() (driver.Value, error) {
	a := make(pq.Int64Array, len(s))
	for i, v := range s {
		a[i] = int64(v)
	}
	return a.Value()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func fileValue(f *File) (any, error) {
	if f == nil {
		return nil, nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal file: %w", err)
	}
	return b, nil
}

func scanFile(raw []byte) (*File, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("unmarshal file: %w", err)
	}
	return &f, nil
}

const userColumns = "id, name, COALESCE(email, ''), COALESCE(phone, ''), status, image, password_hash, " +
	"blocked_users, is_online, last_seen, created_at, updated_at"

func scanUser(row rowScanner) (User, error) {
	var (
		u       User
		blocked intSlice
	)
	err := row.Scan(
		&u.Id,
		&u.Name,
		&u.EmailAddress,
		&u.Phone,
		&u.Status,
		&u.Image,
		&u.PasswordHash,
		&blocked,
		&u.IsOnline,
		&u.LastSeen,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	u.BlockedUsers = blocked
	return u, err
}

const chatColumns = "id, name, is_group_chat, user_ids, group_admin, description, image, " +
	"latest_message_id, muted_by, archived_by, created_at, updated_at"

func scanChat(row rowScanner) (Chat, error) {
	var (
		c                          Chat
		users, mutedBy, archivedBy intSlice
		admin, latest              sql.NullInt64
	)
	err := row.Scan(
		&c.Id,
		&c.Name,
		&c.IsGroupChat,
		&users,
		&admin,
		&c.Description,
		&c.Image,
		&latest,
		&mutedBy,
		&archivedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	c.Users = users
	c.MutedBy = mutedBy
	c.ArchivedBy = archivedBy
	c.GroupAdmin = int(admin.Int64)
	c.LatestMessageId = latest.Int64
	return c, err
}

const messageColumns = "m.id, m.chat_id, m.sender_id, m.content, m.file, m.message_type, m.reply_to, " +
	"m.forwarded_from, m.forward_count, m.is_deleted, m.deleted_for, m.created_at, m.updated_at"

func scanMessage(row rowScanner) (Message, error) {
	var (
		m                  Message
		file               []byte
		replyTo, forwarded sql.NullInt64
		deletedFor         intSlice
	)
	err := row.Scan(
		&m.Id,
		&m.ChatId,
		&m.SenderId,
		&m.Content,
		&file,
		&m.MessageType,
		&replyTo,
		&forwarded,
		&m.ForwardCount,
		&m.IsDeleted,
		&deletedFor,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return m, err
	}

	m.ReplyTo = replyTo.Int64
	m.ForwardedFrom = forwarded.Int64
	m.DeletedFor = deletedFor
	m.File, err = scanFile(file)
	return m, err
}
