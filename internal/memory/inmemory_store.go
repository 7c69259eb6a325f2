package memory

import (
	"context"
	"errors"
	"sync"

	miraerrors "mira/internal/errors"
)

var errUnreachable = errors.New("store unreachable")

// InMemoryStore is a map-backed Store used by tests and local development.
// It applies the same sliding-window cap as the Postgres store.
type InMemoryStore struct {
	mu           sync.Mutex
	sessions     map[string][]Turn
	maxTurns     int
	contextTurns int

	// FailNext, when set, makes the next operation return a
	// StoreUnavailableError and clears itself. Tests use it to simulate a
	// flapping backend.
	FailNext bool

	// Unreachable makes every operation fail until unset.
	Unreachable bool
}

// NewInMemoryStore returns an empty store with the default window sizes.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:     make(map[string][]Turn),
		maxTurns:     MaxDurableTurns,
		contextTurns: ContextTurns,
	}
}

func (s *InMemoryStore) checkAvailable(op string) error {
	if s.Unreachable {
		return miraerrors.NewStoreUnavailable(op, errUnreachable)
	}
	if s.FailNext {
		s.FailNext = false
		return miraerrors.NewStoreUnavailable(op, errUnreachable)
	}
	return nil
}

func (s *InMemoryStore) Connect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkAvailable("connect")
}

func (s *InMemoryStore) AddMessage(_ context.Context, sessionID, question, response, pluginResult string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAvailable("append"); err != nil {
		return err
	}

	turns := append(s.sessions[sessionID], NewTurn(question, response, pluginResult))
	if len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}
	s.sessions[sessionID] = turns
	return nil
}

func (s *InMemoryStore) History(_ context.Context, sessionID string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAvailable("history"); err != nil {
		return nil, err
	}

	turns := s.sessions[sessionID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *InMemoryStore) SystemPromptContext(ctx context.Context, sessionID string) (string, error) {
	turns, err := s.History(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return PromptContext(LastTurns(turns, s.contextTurns)), nil
}

func (s *InMemoryStore) ClearSession(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAvailable("clear"); err != nil {
		return false, err
	}

	if _, ok := s.sessions[sessionID]; !ok {
		return false, nil
	}
	delete(s.sessions, sessionID)
	return true, nil
}

func (s *InMemoryStore) Disconnect(_ context.Context) error {
	return nil
}

// SessionCount reports how many sessions hold at least one turn.
func (s *InMemoryStore) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
