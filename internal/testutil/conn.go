package testutil

import (
	"sync"

	"github.com/npezzotti/go-chatlive/internal/events"
)

// FakeConn is an in-memory events.Conn that records what it is sent.
type FakeConn struct {
	id     string
	mu     sync.Mutex
	events []*events.ServerEvent
	// Full makes Send reject every event, like a client whose queue is full.
	Full bool
}

func NewFakeConn(id string) *FakeConn {
	return &FakeConn{id: id}
}

func (c *FakeConn) Id() string {
	return c.id
}

func (c *FakeConn) Send(ev *events.ServerEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Full {
		return false
	}
	c.events = append(c.events, ev)
	return true
}

func (c *FakeConn) Events() []*events.ServerEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]*events.ServerEvent(nil), c.events...)
}

// Names returns the event names received, in order.
func (c *FakeConn) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, len(c.events))
	for i, ev := range c.events {
		names[i] = ev.Event
	}
	return names
}

// Last returns the most recent event, or nil.
func (c *FakeConn) Last() *events.ServerEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.events) == 0 {
		return nil
	}
	return c.events[len(c.events)-1]
}

func (c *FakeConn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = nil
}
