// Package scope carries the values a rendered view subtree shares: the
// UI locale, the entity being browsed and the selected folder. A Scope is
// created once per view and handed to the components that need it;
// changes go through Update and are announced on the event bus.
package scope

import (
	"sync"

	"github.com/nexx/mediacenter/internal/events"
	"github.com/nexx/mediacenter/internal/locale"
)

// NoFolder means no folder is selected.
const NoFolder = 0

// Value is an immutable snapshot of the scope.
type Value struct {
	Locale   locale.Settings
	EntityID string
	FolderID int
}

// ChangedEvent is published after every effective Update.
type ChangedEvent struct {
	events.BaseEvent
	Old Value
	New Value
}

// FolderChanged reports whether the selected folder moved.
func (e *ChangedEvent) FolderChanged() bool {
	return e.Old.FolderID != e.New.FolderID
}

// LocaleChanged reports whether language, direction or calendar moved.
func (e *ChangedEvent) LocaleChanged() bool {
	return e.Old.Locale != e.New.Locale
}

// Scope is the shared, explicitly passed view context.
type Scope struct {
	mu  sync.RWMutex
	v   Value
	bus *events.EventBus
}

// New creates a scope. A nil bus gets a private one so Subscribe works.
func New(initial Value, bus *events.EventBus) *Scope {
	if bus == nil {
		bus = events.NewEventBus(0)
	}
	return &Scope{v: initial, bus: bus}
}

// Get returns the current snapshot.
func (s *Scope) Get() Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v
}

// Locale is shorthand for Get().Locale.
func (s *Scope) Locale() locale.Settings {
	return s.Get().Locale
}

// Update applies fn to a copy of the value and publishes a ChangedEvent
// if anything changed. It returns the new snapshot.
func (s *Scope) Update(fn func(v *Value)) Value {
	s.mu.Lock()
	old := s.v
	next := old
	fn(&next)
	s.v = next
	s.mu.Unlock()

	if next != old {
		s.bus.Publish(&ChangedEvent{
			BaseEvent: events.NewBase(events.EventScopeChanged),
			Old:       old,
			New:       next,
		})
	}
	return next
}

// SetLanguage switches language, direction and calendar together.
func (s *Scope) SetLanguage(lang locale.Language) Value {
	return s.Update(func(v *Value) { v.Locale = locale.For(lang) })
}

// SelectFolder changes the selected folder.
func (s *Scope) SelectFolder(id int) Value {
	return s.Update(func(v *Value) { v.FolderID = id })
}

// Subscribe returns a channel of ChangedEvents. Release it with Unsubscribe.
func (s *Scope) Subscribe() <-chan events.Event {
	return s.bus.Subscribe(events.EventScopeChanged)
}

// Unsubscribe releases a channel obtained from Subscribe.
func (s *Scope) Unsubscribe(ch <-chan events.Event) {
	s.bus.Unsubscribe(ch)
}
