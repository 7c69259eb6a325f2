package memory

import (
	"fmt"
	"strings"
	"time"
)

// Tier limits. The cache holds fewer turns than the durable store on purpose:
// it only needs enough to build the prompt context without a round trip.
const (
	// MaxCacheTurns caps the per-session turn list in the in-process cache.
	MaxCacheTurns = 10

	// MaxDurableTurns caps the per-session turn list in the durable store
	// (sliding window, oldest dropped first).
	MaxDurableTurns = 20

	// MaxCachedSessions caps how many sessions the cache mirrors at once.
	MaxCachedSessions = 20

	// DefaultIdleTTL is how long a session may stay idle before the store
	// removes it.
	DefaultIdleTTL = 30 * time.Minute

	// ContextTurns is how many recent turns feed the prompt context.
	ContextTurns = 2
)

// Turn is one recorded question/answer exchange. Immutable once created.
type Turn struct {
	Question     string `json:"question"`
	Content      string `json:"content"`
	Timestamp    string `json:"timestamp"`
	PluginResult string `json:"pluginResult,omitempty"`
}

// NewTurn stamps a turn with the current time in ISO-8601.
func NewTurn(question, response, pluginResult string) Turn {
	return Turn{
		Question:     question,
		Content:      response,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		PluginResult: pluginResult,
	}
}

// PromptContext renders recent turns as the conversation segment of the
// system prompt. Empty input yields an empty string.
func PromptContext(turns []Turn) string {
	if len(turns) == 0 {
		return ""
	}

	pairs := make([]string, 0, len(turns))
	for _, turn := range turns {
		pairs = append(pairs, fmt.Sprintf("Q: %s\nA: %s", turn.Question, turn.Content))
	}

	return fmt.Sprintf("Previous conversation:\n%s\n\nContinue naturally.", strings.Join(pairs, "\n\n"))
}

// LastTurns returns the suffix of turns with at most count elements.
func LastTurns(turns []Turn, count int) []Turn {
	if count <= 0 || len(turns) == 0 {
		return nil
	}
	if len(turns) <= count {
		return turns
	}
	return turns[len(turns)-count:]
}
