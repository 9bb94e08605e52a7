// Package logstream provides the ordered batch log channel shared between
// the orchestrator (single producer) and a live viewer (single consumer).
package logstream

import (
	"fmt"
	"sync"
	"time"
)

// StreamEnd is the sentinel text wire consumers receive when a batch
// finishes or the stream goes idle past its timeout.
const StreamEnd = "__STREAM_END__"

// Event is one line of batch progress text. Terminal marks end-of-stream;
// a consumer that reads a terminal event must stop draining.
type Event struct {
	Text     string
	Terminal bool
}

// Channel is a bounded-latency FIFO of log events. Publish never blocks;
// Consume blocks until an event arrives or the timeout elapses.
type Channel struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buffer []Event
}

// NewChannel constructs an empty log channel.
func NewChannel() *Channel {
	c := &Channel{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Publish appends an event and wakes any waiting consumer.
func (c *Channel) Publish(event Event) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.buffer = append(c.buffer, event)
	c.cond.Broadcast()
	c.mu.Unlock()
}

// Publishf formats and publishes a non-terminal text event.
func (c *Channel) Publishf(format string, args ...any) {
	c.Publish(Event{Text: fmt.Sprintf(format, args...)})
}

// PublishTerminal emits the end-of-stream sentinel.
func (c *Channel) PublishTerminal() {
	c.Publish(Event{Terminal: true})
}

// Consume pops the oldest event, blocking up to timeout. The second return
// is false when the timeout elapsed with nothing to read, which consumers
// treat as an implicit end-of-stream.
func (c *Channel) Consume(timeout time.Duration) (Event, bool) {
	if c == nil {
		return Event{}, false
	}
	deadline := time.Now().Add(timeout)

	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.buffer) == 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Event{}, false
		}
		timer := time.AfterFunc(remaining, c.cond.Broadcast)
		c.cond.Wait()
		timer.Stop()
	}
	event := c.buffer[0]
	c.buffer = c.buffer[1:]
	return event, true
}

// Reset drains any events left over from a previous batch so a late reader
// never observes stale lines once a new run starts.
func (c *Channel) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.buffer = nil
	c.mu.Unlock()
}

// Len reports the number of undelivered events.
func (c *Channel) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}
