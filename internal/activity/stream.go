package activity

import (
	"context"
	"sync"
)

const defaultStreamBuffer = 16

// Dispatcher fans appended entries out to live subscribers of the owning user.
// Slow subscribers miss events instead of blocking the writer.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]chan LogEntry
	nextID      int64
	bufferSize  int
}

// NewDispatcher constructs an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		subscribers: make(map[string]map[int64]chan LogEntry),
		bufferSize:  defaultStreamBuffer,
	}
}

// Subscribe registers a stream for userID. The stream is released when ctx
// ends or the returned cleanup is called, whichever happens first.
func (d *Dispatcher) Subscribe(ctx context.Context, userID string) (<-chan LogEntry, func()) {
	if userID == "" {
		ch := make(chan LogEntry)
		close(ch)
		return ch, func() {}
	}
	stream := make(chan LogEntry, d.bufferSize)

	d.mu.Lock()
	d.nextID++
	subscriberID := d.nextID
	if _, ok := d.subscribers[userID]; !ok {
		d.subscribers[userID] = make(map[int64]chan LogEntry)
	}
	d.subscribers[userID][subscriberID] = stream
	d.mu.Unlock()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			d.unregister(userID, subscriberID)
		})
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return stream, cleanup
}

// Publish delivers entry to every subscriber of its owner.
func (d *Dispatcher) Publish(entry LogEntry) {
	if entry.UserID == nil || *entry.UserID == "" {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, stream := range d.subscribers[*entry.UserID] {
		select {
		case stream <- entry:
		default:
		}
	}
}

// SubscriberCount reports how many streams are open for userID.
func (d *Dispatcher) SubscriberCount(userID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers[userID])
}

func (d *Dispatcher) unregister(userID string, subscriberID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	subscribers := d.subscribers[userID]
	if subscribers == nil {
		return
	}
	if stream, ok := subscribers[subscriberID]; ok {
		delete(subscribers, subscriberID)
		close(stream)
	}
	if len(subscribers) == 0 {
		delete(d.subscribers, userID)
	}
}
