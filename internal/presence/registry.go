// Package presence tracks which users currently have a live connection. The
// in-memory registry is authoritative only for the process lifetime; the
// persisted is_online/last_seen columns are its durable projection.
package presence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/npezzotti/go-chatlive/internal/database"
	"github.com/npezzotti/go-chatlive/internal/events"
	"github.com/npezzotti/go-chatlive/internal/stats"
)

type Store interface {
	SetUserOnlineStatus(ctx context.Context, userId int, online bool) (database.User, error)
}

// Broadcaster delivers an event to every live connection except skip.
type Broadcaster interface {
	BroadcastAll(ev *events.ServerEvent, skip events.Conn) int
}

// userLock orders the tracked-state change and the store write of one
// user, so persisted is_online always ends matching the registry.
type userLock struct {
	mu   sync.Mutex
	refs int
}

type Registry struct {
	mu     sync.Mutex
	byUser map[int]events.Conn
	byConn map[events.Conn]int
	locks  map[int]*userLock
	store  Store
	peers  Broadcaster
	log    *log.Logger
	stats  stats.StatsProvider
	now    func() time.Time
}

func NewRegistry(store Store, peers Broadcaster, logger *log.Logger, su stats.StatsProvider) *Registry {
	return &Registry{
		byUser: make(map[int]events.Conn),
		byConn: make(map[events.Conn]int),
		locks:  make(map[int]*userLock),
		store:  store,
		peers:  peers,
		log:    logger,
		stats:  su,
		now:    time.Now,
	}
}

// lockUser serializes presence changes for userId and returns the unlock
// function.
func (r *Registry) lockUser(userId int) func() {
	r.mu.Lock()
	l, ok := r.locks[userId]
	if !ok {
		l = &userLock{}
		r.locks[userId] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(r.locks, userId)
		}
		r.mu.Unlock()
	}
}

// MarkOnline tracks c as the connection for userId, replacing any earlier
// connection, persists is_online and tells every other peer. The in-memory
// change is kept even if the store update fails; the broadcast is not.
// Every call broadcasts, including repeated calls for the same user.
func (r *Registry) MarkOnline(ctx context.Context, userId int, c events.Conn) error {
	unlock := r.lockUser(userId)
	defer unlock()

	r.mu.Lock()
	if prev, ok := r.byUser[userId]; ok {
		if prev != c {
			delete(r.byConn, prev)
		}
	} else {
		r.stats.Incr(stats.NumOnlineUsers)
	}
	r.byUser[userId] = c
	r.byConn[c] = userId
	r.mu.Unlock()

	user, err := r.store.SetUserOnlineStatus(ctx, userId, true)
	if err != nil {
		r.log.Printf("presence: mark user %d online: %v", userId, err)
		return fmt.Errorf("set online status: %w", err)
	}

	r.peers.BroadcastAll(events.New(events.UserOnlinePayload{
		UserId:    userId,
		UserName:  user.Name,
		Timestamp: r.now().UTC(),
	}), c)

	return nil
}

// MarkOffline stops tracking c. A connection that is not the one tracked
// for its user (already replaced or never registered) is ignored.
func (r *Registry) MarkOffline(ctx context.Context, c events.Conn) error {
	r.mu.Lock()
	userId, ok := r.byConn[c]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	unlock := r.lockUser(userId)
	defer unlock()

	// c may have been replaced while waiting for the lock
	r.mu.Lock()
	if id, ok := r.byConn[c]; !ok || id != userId {
		r.mu.Unlock()
		return nil
	}
	delete(r.byConn, c)
	delete(r.byUser, userId)
	r.mu.Unlock()

	r.stats.Decr(stats.NumOnlineUsers)

	user, err := r.store.SetUserOnlineStatus(ctx, userId, false)
	if err != nil {
		r.log.Printf("presence: mark user %d offline: %v", userId, err)
		return fmt.Errorf("set offline status: %w", err)
	}

	r.peers.BroadcastAll(events.New(events.UserOfflinePayload{
		UserId:    userId,
		UserName:  user.Name,
		LastSeen:  user.LastSeen,
		Timestamp: r.now().UTC(),
	}), c)

	return nil
}

// ListOnline returns the ids of users with a live connection in ascending
// order.
func (r *Registry) ListOnline() []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int, 0, len(r.byUser))
	for id := range r.byUser {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *Registry) IsOnline(userId int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.byUser[userId]
	return ok
}

// UserFor returns the user c was registered for.
func (r *Registry) UserFor(c events.Conn) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userId, ok := r.byConn[c]
	return userId, ok
}

// Shutdown empties the registry and persists every tracked user as offline.
// No events are broadcast; connections are being closed.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	userIds := make([]int, 0, len(r.byUser))
	for id := range r.byUser {
		userIds = append(userIds, id)
	}
	r.byUser = make(map[int]events.Conn)
	r.byConn = make(map[events.Conn]int)
	r.mu.Unlock()

	slices.Sort(userIds)

	var errs []error
	for _, id := range userIds {
		r.stats.Decr(stats.NumOnlineUsers)
		// waits for an in-flight online write so offline lands last
		unlock := r.lockUser(id)
		_, err := r.store.SetUserOnlineStatus(ctx, id, false)
		unlock()
		if err != nil {
			errs = append(errs, fmt.Errorf("user %d: %w", id, err))
		}
	}

	r.log.Printf("presence: marked %d users offline", len(userIds))
	return errors.Join(errs...)
}
