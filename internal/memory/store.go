package memory

import "context"

// Store is the durable counterpart of the Cache: a per-session append log of
// turns that outlives the process. Implementations must make AddMessage an
// atomic append-and-cap from the perspective of concurrent writers to the
// same session, and must remove sessions idle for longer than the configured
// TTL on their own.
//
// Connectivity failures are reported as *errors.StoreUnavailableError; unlike
// classifier or plugin failures they are never absorbed, because silently
// returning an empty history would masquerade as a brand-new user.
type Store interface {
	// Connect establishes or reuses the backend connection. Idempotent and
	// safe to call concurrently from multiple in-flight requests.
	Connect(ctx context.Context) error

	// AddMessage appends one turn, creating the session on first write and
	// enforcing the sliding-window cap atomically with the append.
	AddMessage(ctx context.Context, sessionID, question, response, pluginResult string) error

	// History returns the full stored turn list, oldest first. A missing
	// session yields an empty slice and no error.
	History(ctx context.Context, sessionID string) ([]Turn, error)

	// SystemPromptContext formats the most recent turns as the conversation
	// segment of the system prompt, or "" when the session has no turns.
	SystemPromptContext(ctx context.Context, sessionID string) (string, error)

	// ClearSession deletes the session, reporting whether one existed.
	ClearSession(ctx context.Context, sessionID string) (bool, error)

	// Disconnect releases the connection. Safe to call when already
	// disconnected.
	Disconnect(ctx context.Context) error
}
