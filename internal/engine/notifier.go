package engine

import (
	"sync"
	"time"
)

// ChangeKind names the transition that produced a Change
type ChangeKind string

const (
	ChangeSessionStarted ChangeKind = "session_started"
	ChangeSessionStopped ChangeKind = "session_stopped"
	ChangeEntrySwitched  ChangeKind = "entry_switched"
	ChangeEntryStopped   ChangeKind = "entry_stopped"
	ChangeEntryDismissed ChangeKind = "entry_dismissed"
)

// Change tells downstream views that a worker's state moved and should be
// re-read. Delivery is best effort.
type Change struct {
	Kind      ChangeKind `json:"kind"`
	WorkerID  uint       `json:"worker_id"`
	SessionID string     `json:"session_id,omitempty"`
	EntryID   string     `json:"entry_id,omitempty"`
	At        time.Time  `json:"at"`
}

// Notifier receives a Change after each committed mutation. Notify must not
// block.
type Notifier interface {
	Notify(change Change)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Change) {}

// Broadcaster fans changes out to in-process subscribers. Slow subscribers
// miss changes instead of stalling the engine.
type Broadcaster struct {
	mu     sync.Mutex
	next   int
	subs   map[int]chan Change
	closed bool
}

// NewBroadcaster creates a broadcaster with no subscribers
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Change)}
}

// Subscribe registers a subscriber with the given channel buffer. The
// returned func unsubscribes and closes the channel. After Close the
// channel comes back already closed.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Change, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Change, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

// Notify delivers change to every subscriber that has room for it
func (b *Broadcaster) Notify(change Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- change:
		default:
		}
	}
}

// Close ends every subscription so streaming readers return
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
