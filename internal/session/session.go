// Package session keeps the recent conversation of each user.
package session

import (
	"sync"
	"time"

	"hesab/internal/cache"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation.
type Turn struct {
	Role Role
	Text string
	At   time.Time
}

// Store holds per-user conversation history.
type Store interface {
	// Get returns up to limit most recent turns, oldest first. limit <= 0 returns all.
	Get(userID string, limit int) []Turn
	// Append adds a turn, dropping the oldest once the store's capacity is reached.
	Append(userID string, t Turn)
	// Evict forgets the user's history.
	Evict(userID string)
}

const DefaultCapacity = 20

// MemoryStore keeps at most capacity turns per user and a bounded number of users.
// Idle users expire after the session TTL.
type MemoryStore struct {
	capacity int
	sessions *cache.LRU[*history]
}

type history struct {
	mu    sync.Mutex
	turns []Turn
}

// NewMemoryStore returns a store keeping capacity turns for up to maxSessions users.
func NewMemoryStore(capacity, maxSessions int, ttl time.Duration) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if maxSessions <= 0 {
		maxSessions = 10_000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryStore{capacity: capacity, sessions: cache.NewLRU[*history](maxSessions, ttl)}
}

func (s *MemoryStore) Get(userID string, limit int) []Turn {
	h, ok := s.sessions.Get(userID)
	if !ok {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	turns := h.turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return append([]Turn(nil), turns...)
}

func (s *MemoryStore) Append(userID string, t Turn) {
	if t.At.IsZero() {
		t.At = time.Now()
	}
	h := s.sessions.Update(userID, func(old *history, found bool) *history {
		if found {
			return old
		}
		return &history{}
	})
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, t)
	if over := len(h.turns) - s.capacity; over > 0 {
		h.turns = append(h.turns[:0:0], h.turns[over:]...)
	}
}

func (s *MemoryStore) Evict(userID string) {
	s.sessions.Delete(userID)
}

// CleanExpired drops idle sessions. It lets a cache.Manager sweep the store.
func (s *MemoryStore) CleanExpired() int {
	return s.sessions.CleanExpired()
}
