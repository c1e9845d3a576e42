package internal

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChatState is an immutable copy of the store contents
type ChatState struct {
	Messages           []Message
	Loading            bool
	SelectedConditions []string
	CurrentRace        string
}

// Listener is called after every store mutation with the new state
type Listener func(ChatState)

// ChatStore holds the conversation shown to the user. It is safe for
// concurrent use; network replies land from other goroutines.
type ChatStore struct {
	mu         sync.RWMutex
	messages   []Message
	loading    bool
	conditions []string
	race       string

	seq       uint64
	listeners map[int]Listener
	nextID    int

	now func() time.Time
}

// NewChatStore creates an empty store
func NewChatStore() *ChatStore {
	return &ChatStore{
		listeners: make(map[int]Listener),
		now:       time.Now,
	}
}

// NewChatStoreFrom creates a store seeded with prior messages
func NewChatStoreFrom(messages []Message) *ChatStore {
	s := NewChatStore()
	s.messages = append([]Message(nil), messages...)
	return s
}

// AddMessage appends a message and returns it
func (s *ChatStore) AddMessage(role Role, content string) Message {
	return s.add(Message{Role: role, Content: content})
}

func (s *ChatStore) add(msg Message) Message {
	s.mu.Lock()
	msg.ID = uuid.NewString()
	msg.Timestamp = s.now()
	s.messages = append(s.messages, msg)
	state := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(state)
	return msg
}

// UpdateLastMessage replaces the content of the last message when its id
// is id. It reports false, changing nothing, when another message has been
// appended since or the store is empty.
func (s *ChatStore) UpdateLastMessage(id, content string) bool {
	s.mu.Lock()
	if len(s.messages) == 0 || s.messages[len(s.messages)-1].ID != id {
		s.mu.Unlock()
		return false
	}
	s.messages[len(s.messages)-1].Content = content
	state := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(state)
	return true
}

// SetLoading sets the loading flag
func (s *ChatStore) SetLoading(loading bool) {
	s.mutate(func() { s.loading = loading })
}

// SetSelectedConditions replaces the selected condition ids
func (s *ChatStore) SetSelectedConditions(ids []string) {
	cp := append([]string(nil), ids...)
	s.mutate(func() { s.conditions = cp })
}

// SetCurrentRace records the race the conversation is about
func (s *ChatStore) SetCurrentRace(raceID string) {
	s.mutate(func() { s.race = raceID })
}

// Clear removes all messages and resets flags. Outstanding requests are
// invalidated.
func (s *ChatStore) Clear() {
	s.mutate(func() {
		s.messages = nil
		s.loading = false
		s.conditions = nil
		s.race = ""
		s.seq++
	})
}

func (s *ChatStore) mutate(fn func()) {
	s.mu.Lock()
	fn()
	state := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(state)
}

// Snapshot returns a copy of the current state
func (s *ChatStore) Snapshot() ChatState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *ChatStore) snapshotLocked() ChatState {
	return ChatState{
		Messages:           append([]Message(nil), s.messages...),
		Loading:            s.loading,
		SelectedConditions: append([]string(nil), s.conditions...),
		CurrentRace:        s.race,
	}
}

// Messages returns a copy of the messages in insertion order
func (s *ChatStore) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Message(nil), s.messages...)
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *ChatStore) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *ChatStore) notify(state ChatState) {
	s.mu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()

	for _, l := range listeners {
		l(state)
	}
}

// BeginRequest issues a ticket for a new request and sets the loading
// flag. Any earlier ticket becomes stale.
func (s *ChatStore) BeginRequest() uint64 {
	s.mu.Lock()
	s.seq++
	ticket := s.seq
	s.loading = true
	state := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(state)
	return ticket
}

// IsLatest reports whether ticket belongs to the most recent request
func (s *ChatStore) IsLatest(ticket uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ticket == s.seq
}

// Complete appends msg and clears the loading flag if ticket is still the
// latest request. Stale completions are dropped and reported as false.
func (s *ChatStore) Complete(ticket uint64, msg Message) (Message, bool) {
	s.mu.Lock()
	if ticket != s.seq {
		s.mu.Unlock()
		return msg, false
	}
	msg.ID = uuid.NewString()
	msg.Timestamp = s.now()
	s.messages = append(s.messages, msg)
	s.loading = false
	state := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(state)
	return msg, true
}
