package memory

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"mira/internal/logging"
)

// Cache is the in-process mirror of each active session's most recent turns.
// It is a performance hint, not a source of truth: anything it lacks can be
// rehydrated from the durable store, and anything it holds wins to avoid a
// store round trip.
//
// Eviction policy: sessions are evicted in true access-order (LRU) via
// hashicorp/golang-lru, not insertion-order FIFO. Within a session the turn
// list is capped FIFO by insertion, which is deliberately not an LRU.
type Cache struct {
	sessions *lru.Cache[string, *sessionEntry]
	maxTurns int

	// mu serializes only the get-or-create of a session entry; turn appends
	// take the per-entry lock so sessions do not contend with each other.
	mu     sync.Mutex
	logger logging.Logger
}

type sessionEntry struct {
	mu    sync.Mutex
	turns []Turn
}

// NewCache builds a cache bounded to maxSessions sessions of maxTurns turns
// each. Zero or negative values fall back to the package defaults.
func NewCache(maxSessions, maxTurns int) *Cache {
	if maxSessions <= 0 {
		maxSessions = MaxCachedSessions
	}
	if maxTurns <= 0 {
		maxTurns = MaxCacheTurns
	}

	sessions, err := lru.New[string, *sessionEntry](maxSessions)
	if err != nil {
		// lru.New only fails on a non-positive size, which is guarded above.
		panic(err)
	}

	return &Cache{
		sessions: sessions,
		maxTurns: maxTurns,
		logger:   logging.NewComponentLogger("ConversationCache"),
	}
}

// Has reports whether the session is currently cached, without refreshing its
// recency.
func (c *Cache) Has(sessionID string) bool {
	return c.sessions.Contains(sessionID)
}

// Get returns a copy of the cached turns for the session, oldest first.
func (c *Cache) Get(sessionID string) ([]Turn, bool) {
	entry, ok := c.sessions.Get(sessionID)
	if !ok {
		return nil, false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return copyTurns(entry.turns), true
}

// AddMessage appends one turn to the session, creating the entry on first
// use (upsert semantics). The per-session list is a critical section so two
// concurrent appends cannot both observe the pre-append length and break the
// cap invariant.
func (c *Cache) AddMessage(sessionID string, turn Turn) {
	entry := c.entryFor(sessionID)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if len(entry.turns) >= c.maxTurns {
		// FIFO within the session: drop the oldest turn first.
		entry.turns = entry.turns[1:]
	}
	entry.turns = append(entry.turns, turn)
}

// Set replaces the session's cached turns, keeping only the newest maxTurns.
// Used to backfill the cache from the durable store.
func (c *Cache) Set(sessionID string, turns []Turn) {
	entry := c.entryFor(sessionID)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.turns = copyTurns(LastTurns(turns, c.maxTurns))
}

// GetLastMessages returns at most count of the session's newest turns, oldest
// first. A missing session yields an empty slice.
func (c *Cache) GetLastMessages(sessionID string, count int) []Turn {
	entry, ok := c.sessions.Get(sessionID)
	if !ok {
		return nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return copyTurns(LastTurns(entry.turns, count))
}

// ClearSession drops the session from the cache, reporting whether an entry
// existed.
func (c *Cache) ClearSession(sessionID string) bool {
	return c.sessions.Remove(sessionID)
}

// Len returns the number of cached sessions.
func (c *Cache) Len() int {
	return c.sessions.Len()
}

func (c *Cache) entryFor(sessionID string) *sessionEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.sessions.Get(sessionID); ok {
		return entry
	}

	entry := &sessionEntry{}
	if evicted := c.sessions.Add(sessionID, entry); evicted {
		c.logger.Debug("Session cache full, evicted least recently used entry")
	}
	return entry
}

func copyTurns(turns []Turn) []Turn {
	if len(turns) == 0 {
		return nil
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}
