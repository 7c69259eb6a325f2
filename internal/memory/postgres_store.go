package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	miraerrors "mira/internal/errors"
	"mira/internal/logging"
)

const conversationTable = "conversations"

// PostgresStoreConfig configures the durable conversation store.
type PostgresStoreConfig struct {
	DatabaseURL   string
	MaxTurns      int           // sliding-window cap, defaults to MaxDurableTurns
	ContextTurns  int           // turns included in the prompt context, defaults to ContextTurns
	IdleTTL       time.Duration // defaults to DefaultIdleTTL
	SweepInterval time.Duration // defaults to IdleTTL/6
}

// PostgresStore implements Store on a Postgres backend. The append-and-cap is
// a single statement, so concurrent writers to one session cannot overshoot
// the window. Idle sessions are removed by the store's own sweeper goroutine.
type PostgresStore struct {
	config PostgresStoreConfig
	logger logging.Logger

	// mu guards the check-and-set on pool so concurrent Connect calls cannot
	// establish duplicate connections.
	mu          sync.Mutex
	pool        *pgxpool.Pool
	sweepCancel context.CancelFunc
	sweepDone   chan struct{}
}

// NewPostgresStore constructs the store; no connection is made until Connect.
func NewPostgresStore(config PostgresStoreConfig) *PostgresStore {
	if config.MaxTurns <= 0 {
		config.MaxTurns = MaxDurableTurns
	}
	if config.ContextTurns <= 0 {
		config.ContextTurns = ContextTurns
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = DefaultIdleTTL
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = config.IdleTTL / 6
	}

	return &PostgresStore{
		config: config,
		logger: logging.NewComponentLogger("ConversationStore"),
	}
}

// Connect establishes the pool on first call and reuses it afterwards.
func (s *PostgresStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		return nil
	}

	if s.config.DatabaseURL == "" {
		return miraerrors.NewStoreUnavailable("connect", errors.New("no database URL configured"))
	}

	pool, err := pgxpool.New(ctx, s.config.DatabaseURL)
	if err != nil {
		return miraerrors.NewStoreUnavailable("connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return miraerrors.NewStoreUnavailable("connect", err)
	}
	if err := s.ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return miraerrors.NewStoreUnavailable("connect", err)
	}

	s.pool = pool
	s.startSweeper()
	s.logger.Info("Connected to conversation store")
	return nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    session_id TEXT PRIMARY KEY,
    messages JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at TIMESTAMPTZ NOT NULL,
    last_updated TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_last_updated ON %s (last_updated);
`, conversationTable, conversationTable)

	_, err := pool.Exec(ctx, query)
	return err
}

// acquirePool connects if needed and snapshots the pool under the mutex, so
// a concurrent Disconnect cannot nil it out from under an in-flight call.
func (s *PostgresStore) acquirePool(ctx context.Context) (*pgxpool.Pool, error) {
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool == nil {
		return nil, miraerrors.NewStoreUnavailable("connect", errors.New("store disconnected"))
	}
	return s.pool, nil
}

// AddMessage appends one turn, capping the window to the newest MaxTurns in
// the same statement. The session row is created on first write. sessionID is
// opaque and only ever reaches the database as a bind parameter.
func (s *PostgresStore) AddMessage(ctx context.Context, sessionID, question, response, pluginResult string) error {
	pool, err := s.acquirePool(ctx)
	if err != nil {
		return err
	}

	turn := NewTurn(question, response, pluginResult)
	turnJSON, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("encode turn: %w", err)
	}

	// The ON CONFLICT arm rebuilds the window from the concatenated list in
	// one statement, which is what makes concurrent appends safe.
	query := fmt.Sprintf(`
INSERT INTO %s (session_id, messages, created_at, last_updated)
VALUES ($1, jsonb_build_array($2::jsonb), now(), now())
ON CONFLICT (session_id) DO UPDATE SET
    messages = (
        SELECT COALESCE(jsonb_agg(elem ORDER BY ord), '[]'::jsonb)
        FROM (
            SELECT elem, ord
            FROM jsonb_array_elements(%s.messages || jsonb_build_array($2::jsonb))
                WITH ORDINALITY AS t(elem, ord)
            ORDER BY ord DESC
            LIMIT $3
        ) tail
    ),
    last_updated = now()
`, conversationTable, conversationTable)

	if _, err := pool.Exec(ctx, query, sessionID, turnJSON, s.config.MaxTurns); err != nil {
		s.logger.Error("Failed to append turn for session %s: %v", sessionID, err)
		return miraerrors.NewStoreUnavailable("append", err)
	}
	return nil
}

// History returns the stored turns for a session, oldest first.
func (s *PostgresStore) History(ctx context.Context, sessionID string) ([]Turn, error) {
	pool, err := s.acquirePool(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT messages FROM %s WHERE session_id = $1`, conversationTable)

	var messagesJSON []byte
	err = pool.QueryRow(ctx, query, sessionID).Scan(&messagesJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, miraerrors.NewStoreUnavailable("history", err)
	}

	var turns []Turn
	if len(messagesJSON) > 0 {
		if err := json.Unmarshal(messagesJSON, &turns); err != nil {
			return nil, fmt.Errorf("decode messages: %w", err)
		}
	}
	return turns, nil
}

// SystemPromptContext formats the newest ContextTurns turns, or "" when the
// session does not exist. Reads have no side effects, so two consecutive
// calls with no intervening write return the same string.
func (s *PostgresStore) SystemPromptContext(ctx context.Context, sessionID string) (string, error) {
	turns, err := s.History(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return PromptContext(LastTurns(turns, s.config.ContextTurns)), nil
}

// ClearSession deletes the session row.
func (s *PostgresStore) ClearSession(ctx context.Context, sessionID string) (bool, error) {
	pool, err := s.acquirePool(ctx)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE session_id = $1`, conversationTable)
	tag, err := pool.Exec(ctx, query, sessionID)
	if err != nil {
		return false, miraerrors.NewStoreUnavailable("clear", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Disconnect stops the sweeper and closes the pool. Safe to call repeatedly.
func (s *PostgresStore) Disconnect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool == nil {
		return nil
	}

	if s.sweepCancel != nil {
		s.sweepCancel()
		<-s.sweepDone
		s.sweepCancel = nil
		s.sweepDone = nil
	}

	s.pool.Close()
	s.pool = nil
	s.logger.Info("Conversation store connection closed")
	return nil
}

// startSweeper launches the idle-expiry loop. Called with s.mu held.
func (s *PostgresStore) startSweeper() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.sweepCancel = cancel
	s.sweepDone = done
	pool := s.pool

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.config.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweepIdle(ctx, pool)
			}
		}
	}()
}

func (s *PostgresStore) sweepIdle(ctx context.Context, pool *pgxpool.Pool) {
	cutoff := time.Now().Add(-s.config.IdleTTL)
	query := fmt.Sprintf(`DELETE FROM %s WHERE last_updated < $1`, conversationTable)

	tag, err := pool.Exec(ctx, query, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("Idle session sweep failed: %v", err)
		}
		return
	}
	if removed := tag.RowsAffected(); removed > 0 {
		s.logger.Info("Removed %d idle session(s)", removed)
	}
}
