package intent

import (
	"context"

	"mira/internal/llm"
	"mira/internal/logging"
)

// classifierInstruction is the fixed system prompt for the low-cost
// classification call. The model must answer with exactly one label.
const classifierInstruction = `You are a query classifier for an assistant.
Classify the user message into exactly one of these categories:
WEATHER - asking about weather, temperature, or climate in a place
MATH - asking to evaluate or solve a mathematical expression
DATE - asking for the current date, day, or time
OTHER - anything else
Respond with only the single category word, nothing else.`

// Classifier maps raw text to an Intent via the language-model collaborator.
type Classifier struct {
	client llm.Client
	logger logging.Logger
}

// NewClassifier builds a classifier on top of the given LLM client. The
// client should be configured with a low-cost model; classification runs on
// every request.
func NewClassifier(client llm.Client) *Classifier {
	return &Classifier{
		client: client,
		logger: logging.NewComponentLogger("Classifier"),
	}
}

// Classify returns the intent for a message. Any collaborator failure or
// out-of-set answer degrades to IntentOther; classification never aborts a
// request and is never retried.
func (c *Classifier) Classify(ctx context.Context, message string) Intent {
	resp, err := c.client.Complete(ctx, llm.CompletionRequest{
		Messages:  llm.SystemAndUser(classifierInstruction, message),
		MaxTokens: 8,
	})
	if err != nil {
		c.logger.Warn("Classification failed, falling back to OTHER: %v", err)
		return IntentOther
	}

	result := Parse(resp.Content)
	c.logger.Debug("Query classified as %s", result)
	return result
}
