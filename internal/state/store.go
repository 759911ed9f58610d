package state

import (
	"hash/fnv"
	"sync"

	"life-assistant-bot/internal/domain"
)

const lockStripes = 64

// Store keeps at most one pending ConversationState per user. States live for
// the process lifetime only; a restart simply drops unfinished dialogues and
// the user retries. No TTL is applied to pending states.
//
// Reads and writes during one event must run inside Do so that two concurrent
// messages from the same user cannot interleave a state transition.
type Store struct {
	mu     sync.RWMutex
	states map[string]domain.ConversationState

	locks [lockStripes]sync.Mutex
}

func NewStore() *Store {
	return &Store{states: make(map[string]domain.ConversationState)}
}

// Do runs fn while holding the stripe lock for userID. All dispatcher event
// handling goes through here.
func (s *Store) Do(userID string, fn func()) {
	lock := &s.locks[stripe(userID)]
	lock.Lock()
	defer lock.Unlock()
	fn()
}

func (s *Store) Get(userID string) (domain.ConversationState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[userID]
	return st, ok
}

// Set overwrites any existing state for the user (last write wins).
func (s *Store) Set(userID string, st domain.ConversationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = st
}

func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
}

func stripe(userID string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return h.Sum32() % lockStripes
}
