// Package events is the in-process notification channel between the
// media center state containers and whichever frontend renders them.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nexx/mediacenter/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventLog      EventType = "log"
	EventError    EventType = "error"
	EventTransfer EventType = "transfer"

	// Published by scope.Scope when language, direction or selected folder change.
	EventScopeChanged EventType = "scope_changed"
)

// LogLevel defines log severity levels
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// NewBase stamps an event header with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, Time: time.Now()}
}

// LogEvent carries a user-facing message (toast / status line).
type LogEvent struct {
	BaseEvent
	Level   LogLevel
	Message string
	Source  string
	Error   error
}

// TransferEvent reports upload/download progress.
type TransferEvent struct {
	BaseEvent
	TaskID   string
	TaskType string // "upload" or "download"
	Name     string
	Size     int64
	Progress float64 // 0.0 to 1.0
	Done     bool
	Error    error
}

// EventBus fans events out to buffered subscriber channels.
// Publish never blocks: a subscriber whose buffer is full misses the event.
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to the given event types.
func (eb *EventBus) Subscribe(types ...EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan Event, eb.bufferSize)
	if eb.closed {
		close(ch)
		return ch
	}
	for _, t := range types {
		eb.subscribers[t] = append(eb.subscribers[t], ch)
	}
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan Event, eb.bufferSize)
	if eb.closed {
		close(ch)
		return ch
	}
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers without blocking.
// A nil bus is a valid no-op publisher.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		eb.offer(ch, event)
	}
	for _, ch := range eb.all {
		eb.offer(ch, event)
	}
}

func (eb *EventBus) offer(ch chan Event, event Event) {
	select {
	case ch <- event:
	default:
		eb.droppedEvents.Add(1)
	}
}

// Unsubscribe detaches ch from every event type and closes it.
func (eb *EventBus) Unsubscribe(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	var found chan Event
	for t, subs := range eb.subscribers {
		kept := subs[:0]
		for _, sub := range subs {
			if sub == ch {
				found = sub
				continue
			}
			kept = append(kept, sub)
		}
		eb.subscribers[t] = kept
	}
	kept := eb.all[:0]
	for _, sub := range eb.all {
		if sub == ch {
			found = sub
			continue
		}
		kept = append(kept, sub)
	}
	eb.all = kept

	if found != nil {
		close(found)
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true

	seen := make(map[chan Event]bool)
	for _, subs := range eb.subscribers {
		for _, ch := range subs {
			if !seen[ch] {
				seen[ch] = true
				close(ch)
			}
		}
	}
	for _, ch := range eb.all {
		close(ch)
	}
}

// PublishLog is a convenience method for publishing log events
func (eb *EventBus) PublishLog(level LogLevel, source, message string, err error) {
	eb.Publish(&LogEvent{
		BaseEvent: NewBase(EventLog),
		Level:     level,
		Message:   message,
		Source:    source,
		Error:     err,
	})
}

// DroppedEventCount returns how many events were lost to full buffers.
func (eb *EventBus) DroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}
