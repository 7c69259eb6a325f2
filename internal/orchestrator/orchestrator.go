package orchestrator

import (
	"context"
	"strings"
	"time"

	"mira/internal/dispatch"
	"mira/internal/intent"
	"mira/internal/llm"
	"mira/internal/logging"
	"mira/internal/memory"
)

// Pipeline stage names, also used as metric labels.
const (
	stageClassify = "classify"
	stageDispatch = "dispatch"
	stageAssemble = "assemble"
	stageGenerate = "generate"
	stagePersist  = "persist"
)

const (
	defaultSystemInstruction = "You are Mira, a helpful assistant. Answer conversationally and use the provided context when it is relevant."

	// generationApology is the reply when the language model fails and no
	// plugin shortcut is available.
	generationApology = "I'm having trouble processing your request right now."

	// emptyReplyFallback covers a model response with no content.
	emptyReplyFallback = "I'm not sure how to respond to that."
)

// Config tunes the orchestrator.
type Config struct {
	SystemInstruction string
	StageTimeout      time.Duration // per-collaborator bound, defaults to 30s
	Temperature       float64
}

// Orchestrator sequences classification, dispatch, context assembly,
// generation, and persistence for one inbound message.
//
// Failure handling is deliberately asymmetric: classifier, plugin, retrieval,
// and generation failures are absorbed into degraded replies, while a memory
// store failure propagates to the caller.
type Orchestrator struct {
	config     Config
	classifier *intent.Classifier
	dispatcher *dispatch.Dispatcher
	assembler  *Assembler
	client     llm.Client
	mem        *memory.Service
	metrics    *Metrics
	logger     logging.Logger
}

// New builds the pipeline from its collaborators. Metrics default to the
// shared registry when nil.
func New(config Config, classifier *intent.Classifier, dispatcher *dispatch.Dispatcher, assembler *Assembler, client llm.Client, mem *memory.Service, metrics *Metrics) *Orchestrator {
	if config.SystemInstruction == "" {
		config.SystemInstruction = defaultSystemInstruction
	}
	if config.StageTimeout <= 0 {
		config.StageTimeout = 30 * time.Second
	}
	if metrics == nil {
		metrics = defaultMetrics()
	}

	return &Orchestrator{
		config:     config,
		classifier: classifier,
		dispatcher: dispatcher,
		assembler:  assembler,
		client:     client,
		mem:        mem,
		metrics:    metrics,
		logger:     logging.NewComponentLogger("Orchestrator"),
	}
}

// HandleMessage runs one message through the pipeline and returns the reply.
// The returned error is non-nil only when the durable store is unreachable.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID, message string) (string, error) {
	o.metrics.IncInFlight()
	defer o.metrics.DecInFlight()

	classified := o.classify(ctx, message)

	dispatched := o.dispatchStage(ctx, classified, message)

	systemContext, err := o.assembleStage(ctx, sessionID, message, dispatched.PluginResult)
	if err != nil {
		o.metrics.IncStageFailure(stageAssemble, "store_unavailable")
		return "", err
	}

	reply := o.generate(ctx, message, systemContext, dispatched.ShortcutReply)

	if err := o.persist(ctx, sessionID, message, reply, dispatched.PluginResult); err != nil {
		o.metrics.IncStageFailure(stagePersist, "store_unavailable")
		return "", err
	}

	return reply, nil
}

func (o *Orchestrator) classify(ctx context.Context, message string) intent.Intent {
	ctx, cancel := context.WithTimeout(ctx, o.config.StageTimeout)
	defer cancel()

	start := time.Now()
	classified := o.classifier.Classify(ctx, message)
	o.metrics.ObserveStage(stageClassify, "ok", time.Since(start))
	return classified
}

func (o *Orchestrator) dispatchStage(ctx context.Context, classified intent.Intent, message string) dispatch.Result {
	ctx, cancel := context.WithTimeout(ctx, o.config.StageTimeout)
	defer cancel()

	start := time.Now()
	result := o.dispatcher.Dispatch(ctx, classified, message)
	o.metrics.ObserveStage(stageDispatch, "ok", time.Since(start))
	return result
}

func (o *Orchestrator) assembleStage(ctx context.Context, sessionID, message, pluginResult string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.StageTimeout)
	defer cancel()

	start := time.Now()
	systemContext, err := o.assembler.Assemble(ctx, sessionID, message, pluginResult)
	if err != nil {
		o.metrics.ObserveStage(stageAssemble, "error", time.Since(start))
		o.logger.Error("Context assembly failed for session %s: %v", sessionID, err)
		return "", err
	}
	o.metrics.ObserveStage(stageAssemble, "ok", time.Since(start))
	return systemContext, nil
}

func (o *Orchestrator) generate(ctx context.Context, message, systemContext, shortcutReply string) string {
	ctx, cancel := context.WithTimeout(ctx, o.config.StageTimeout)
	defer cancel()

	system := o.config.SystemInstruction
	if systemContext != "" {
		system += "\n\n" + systemContext
	}

	start := time.Now()
	resp, err := o.client.Complete(ctx, llm.CompletionRequest{
		Messages:    llm.SystemAndUser(system, message),
		Temperature: o.config.Temperature,
	})
	if err != nil {
		o.metrics.ObserveStage(stageGenerate, "error", time.Since(start))
		o.metrics.IncStageFailure(stageGenerate, "llm_error")
		o.logger.Warn("Generation failed, degrading to fallback reply: %v", err)

		// A deterministic plugin answer beats a generic apology.
		if shortcutReply != "" {
			return shortcutReply
		}
		return generationApology
	}
	o.metrics.ObserveStage(stageGenerate, "ok", time.Since(start))

	if reply := strings.TrimSpace(resp.Content); reply != "" {
		return reply
	}
	return emptyReplyFallback
}

func (o *Orchestrator) persist(ctx context.Context, sessionID, message, reply, pluginResult string) error {
	ctx, cancel := context.WithTimeout(ctx, o.config.StageTimeout)
	defer cancel()

	start := time.Now()
	if err := o.mem.AddMessage(ctx, sessionID, message, reply, pluginResult); err != nil {
		o.metrics.ObserveStage(stagePersist, "error", time.Since(start))
		o.logger.Error("Failed to persist turn for session %s: %v", sessionID, err)
		return err
	}
	o.metrics.ObserveStage(stagePersist, "ok", time.Since(start))
	return nil
}
