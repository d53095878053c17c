package promptscore

import (
	"sync"
	"time"
)

// EventType identifies the kind of session event.
type EventType string

// Session event types.
const (
	EventSessionStarted      EventType = "session_started"
	EventCredentialVerified  EventType = "credential_verified"
	EventStepChanged         EventType = "step_changed"
	EventEvaluationStarted   EventType = "evaluation_started"
	EventEvaluationCompleted EventType = "evaluation_completed"
	EventEvaluationFailed    EventType = "evaluation_failed"
	EventHistoryCleared      EventType = "history_cleared"
	EventSessionReset        EventType = "session_reset"
	EventSessionTornDown     EventType = "session_torn_down"
)

// Event is a single timestamped notification from a session.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	Step      Step      `json:"step"`
	Run       *TestRun  `json:"run,omitempty"`
	Err       error     `json:"-"`
}

// Bus delivers session events to subscribers. The application constructs
// one bus and hands it to whatever needs to publish or listen.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a function that removes it.
// fn is called synchronously from Publish and must not block.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish delivers e to every subscriber. A nil Bus drops the event.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	b.mu.RLock()
	subs := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(e)
	}
}
