package memory

import (
	"context"

	"mira/internal/logging"
)

// Service is the two-tier session memory: a bounded in-process cache in front
// of the durable store. Writes go through both tiers; reads prefer the cache
// and backfill it from the store on a miss.
type Service struct {
	cache  *Cache
	store  Store
	logger logging.Logger
}

// NewService wires the cache and store together.
func NewService(cache *Cache, store Store) *Service {
	return &Service{
		cache:  cache,
		store:  store,
		logger: logging.NewComponentLogger("MemoryService"),
	}
}

// AddMessage records one turn in both tiers. A store failure propagates after
// the cache write, so the in-process view stays current for this instance
// even while the backend is down.
func (s *Service) AddMessage(ctx context.Context, sessionID, question, response, pluginResult string) error {
	s.cache.AddMessage(sessionID, NewTurn(question, response, pluginResult))

	if err := s.store.AddMessage(ctx, sessionID, question, response, pluginResult); err != nil {
		s.logger.Error("Durable write failed for session %s: %v", sessionID, err)
		return err
	}
	return nil
}

// PromptContext returns the formatted conversation context for a session.
// A cache hit never touches the store; a miss reads the durable history and
// backfills the cache so the next read is local.
func (s *Service) PromptContext(ctx context.Context, sessionID string) (string, error) {
	if s.cache.Has(sessionID) {
		// The entry can be evicted between Has and the read; an empty result
		// falls through to the store so the race is not mistaken for a
		// history-less session.
		if turns := s.cache.GetLastMessages(sessionID, ContextTurns); len(turns) > 0 {
			return PromptContext(turns), nil
		}
	}

	turns, err := s.store.History(ctx, sessionID)
	if err != nil {
		s.logger.Error("Context read failed for session %s: %v", sessionID, err)
		return "", err
	}
	if len(turns) > 0 {
		s.cache.Set(sessionID, turns)
	}
	return PromptContext(LastTurns(turns, ContextTurns)), nil
}

// ClearSession removes a session from both tiers and reports whether the
// durable tier held it.
func (s *Service) ClearSession(ctx context.Context, sessionID string) (bool, error) {
	s.cache.ClearSession(sessionID)
	return s.store.ClearSession(ctx, sessionID)
}

// Connect establishes the durable tier.
func (s *Service) Connect(ctx context.Context) error {
	return s.store.Connect(ctx)
}

// Close releases the durable tier.
func (s *Service) Close(ctx context.Context) error {
	return s.store.Disconnect(ctx)
}
