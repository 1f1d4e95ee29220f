// Package readstate keeps per-message read receipts, per-chat unread counts
// and the global unread total consistent across the REST and socket paths.
package readstate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/npezzotti/go-chatlive/internal/database"
	"github.com/npezzotti/go-chatlive/internal/fanout"
	"github.com/npezzotti/go-chatlive/internal/types"
)

// IsUnread reports whether msg counts as unread for userId. The store
// applies the same predicate in SQL.
func IsUnread(msg database.Message, userId int) bool {
	if msg.SenderId == userId || msg.IsDeleted {
		return false
	}
	for _, id := range msg.DeletedFor {
		if id == userId {
			return false
		}
	}
	for _, r := range msg.ReadBy {
		if r.UserId == userId {
			return false
		}
	}
	return true
}

type Store interface {
	GetMessage(ctx context.Context, messageId int64) (database.Message, error)
	MarkChatRead(ctx context.Context, chatId string, userId int, at time.Time) ([]database.ReadMark, error)
	UpdateMessageReadBy(ctx context.Context, messageId int64, userId int, at time.Time) (database.ReadMark, bool, error)
	AggregateUnreadCounts(ctx context.Context, chatIds []string, userId int) ([]database.UnreadCount, error)
}

// Reconciler is the only writer of read state. Authorization is the
// caller's job.
type Reconciler struct {
	store  Store
	notify fanout.Notifier
	log    *log.Logger
	now    func() time.Time
}

func NewReconciler(store Store, notify fanout.Notifier, logger *log.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		notify: notify,
		log:    logger,
		now:    time.Now,
	}
}

// MarkChatRead marks every unread message in chatId as read by userId and
// returns how many were newly marked. Repeating it marks nothing and is not
// an error.
func (r *Reconciler) MarkChatRead(ctx context.Context, chatId string, userId int) (int, error) {
	marks, err := r.store.MarkChatRead(ctx, chatId, userId, r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark chat read: %w", err)
	}

	if len(marks) > 0 {
		r.notify.ReadReceipts(userId, marks)
	}
	return len(marks), nil
}

// MarkMessageRead marks a single message as read by userId and reports
// whether a new read entry was recorded.
func (r *Reconciler) MarkMessageRead(ctx context.Context, msg database.Message, userId int) (bool, error) {
	if !IsUnread(msg, userId) {
		return false, nil
	}

	mark, ok, err := r.store.UpdateMessageReadBy(ctx, msg.Id, userId, r.now().UTC())
	if err != nil {
		return false, fmt.Errorf("update read by: %w", err)
	}
	if !ok {
		return false, nil
	}

	r.notify.ReadReceipts(userId, []database.ReadMark{mark})
	return true, nil
}

// UnreadCounts returns the unread count per chat for userId using one
// grouped aggregation. Chats with nothing unread are absent.
func (r *Reconciler) UnreadCounts(ctx context.Context, chatIds []string, userId int) (map[string]int, error) {
	counts := make(map[string]int, len(chatIds))
	if len(chatIds) == 0 {
		return counts, nil
	}

	rows, err := r.store.AggregateUnreadCounts(ctx, chatIds, userId)
	if err != nil {
		return nil, fmt.Errorf("aggregate unread counts: %w", err)
	}

	for _, row := range rows {
		if row.Count > 0 {
			counts[row.ChatId] += row.Count
		}
	}
	return counts, nil
}

// Summary returns the global unread total and the per-chat breakdown in the
// order of chatIds.
func (r *Reconciler) Summary(ctx context.Context, chatIds []string, userId int) (types.UnreadSummary, error) {
	counts, err := r.UnreadCounts(ctx, chatIds, userId)
	if err != nil {
		return types.UnreadSummary{}, err
	}

	summary := types.UnreadSummary{Chats: make([]types.ChatUnread, 0, len(counts))}
	for _, id := range chatIds {
		n, ok := counts[id]
		if !ok {
			continue
		}
		summary.TotalUnread += n
		summary.Chats = append(summary.Chats, types.ChatUnread{ChatId: id, UnreadCount: n})
		delete(counts, id)
	}
	return summary, nil
}
