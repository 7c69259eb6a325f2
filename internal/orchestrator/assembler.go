package orchestrator

import (
	"context"
	"strings"

	"mira/internal/logging"
	"mira/internal/memory"
	"mira/internal/rag"
)

// ContextRetriever is the slice of the retrieval layer the assembler needs.
type ContextRetriever interface {
	Retrieve(ctx context.Context, message string) ([]rag.Result, error)
}

// Assembler builds the single system-context string handed to the language
// model. Segment order is fixed: conversation history, then retrieved
// knowledge, then the plugin result. The order sets the model's effective
// prompt priority, so it never changes regardless of which segments are
// empty.
type Assembler struct {
	mem       *memory.Service
	retriever ContextRetriever
	logger    logging.Logger
}

func NewAssembler(mem *memory.Service, retriever ContextRetriever) *Assembler {
	return &Assembler{
		mem:       mem,
		retriever: retriever,
		logger:    logging.NewComponentLogger("Assembler"),
	}
}

// Assemble concatenates [conversation, retrieved, plugin] with empty segments
// omitted. A retrieval failure degrades to an empty retrieved segment; a
// memory read failure propagates because an empty context for a session with
// history would look like a brand-new user.
func (a *Assembler) Assemble(ctx context.Context, sessionID, message, pluginResult string) (string, error) {
	conversation, err := a.mem.PromptContext(ctx, sessionID)
	if err != nil {
		return "", err
	}

	var retrieved string
	if a.retriever != nil {
		results, err := a.retriever.Retrieve(ctx, message)
		if err != nil {
			a.logger.Warn("Knowledge retrieval failed, continuing without it: %v", err)
		} else if formatted := rag.FormatResults(results); formatted != "" {
			retrieved = "Relevant information:\n" + formatted
		}
	}

	var segments []string
	if conversation != "" {
		segments = append(segments, conversation)
	}
	if retrieved != "" {
		segments = append(segments, retrieved)
	}
	if pluginResult != "" {
		segments = append(segments, "Plugin result: "+pluginResult)
	}

	return strings.Join(segments, "\n\n"), nil
}
