// Package rooms routes server events to named groups of live connections.
// A room is either a chat (keyed by chat id) or a user's personal room (keyed
// by the decimal user id).
package rooms

import (
	"log"
	"strconv"
	"sync"

	"github.com/npezzotti/go-chatlive/internal/events"
)

// PersonalRoom returns the room id for user-targeted notifications.
func PersonalRoom(userId int) string {
	return strconv.Itoa(userId)
}

type Router struct {
	mu    sync.RWMutex
	rooms map[string]map[events.Conn]struct{}
	// joined is the reverse index used to drop every membership of a
	// connection in one step.
	joined map[events.Conn]map[string]struct{}
	log    *log.Logger
}

func NewRouter(logger *log.Logger) *Router {
	return &Router{
		rooms:  make(map[string]map[events.Conn]struct{}),
		joined: make(map[events.Conn]map[string]struct{}),
		log:    logger,
	}
}

func (r *Router) Join(c events.Conn, roomId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[roomId] == nil {
		r.rooms[roomId] = make(map[events.Conn]struct{})
	}
	r.rooms[roomId][c] = struct{}{}

	if r.joined[c] == nil {
		r.joined[c] = make(map[string]struct{})
	}
	r.joined[c][roomId] = struct{}{}
}

// Leave removes c from roomId and reports whether it was a member.
func (r *Router) Leave(c events.Conn, roomId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeLocked(c, roomId)
}

// LeaveAll drops every membership held by c and returns the rooms it left.
func (r *Router) LeaveAll(c events.Conn) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	left := make([]string, 0, len(r.joined[c]))
	for roomId := range r.joined[c] {
		r.removeLocked(c, roomId)
		left = append(left, roomId)
	}
	delete(r.joined, c)

	if len(left) > 0 {
		r.log.Printf("connection %s left %d rooms", c.Id(), len(left))
	}
	return left
}

func (r *Router) removeLocked(c events.Conn, roomId string) bool {
	members, ok := r.rooms[roomId]
	if !ok {
		return false
	}
	if _, ok := members[c]; !ok {
		return false
	}

	delete(members, c)
	if len(members) == 0 {
		delete(r.rooms, roomId)
	}

	if rooms, ok := r.joined[c]; ok {
		delete(rooms, roomId)
		if len(rooms) == 0 {
			delete(r.joined, c)
		}
	}
	return true
}

func (r *Router) IsJoined(c events.Conn, roomId string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[roomId][c]
	return ok
}

// RoomSize returns the number of connections joined to roomId.
func (r *Router) RoomSize(roomId string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms[roomId])
}

// Broadcast delivers ev to every connection joined to roomId except skip,
// which may be nil. Delivery is at most once and never retried. It returns
// the number of connections that accepted the event.
func (r *Router) Broadcast(roomId string, ev *events.ServerEvent, skip events.Conn) int {
	r.mu.RLock()
	targets := make([]events.Conn, 0, len(r.rooms[roomId]))
	for c := range r.rooms[roomId] {
		if c == skip {
			continue
		}
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.Send(ev) {
			delivered++
		}
	}
	return delivered
}
