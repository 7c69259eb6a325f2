package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mira/internal/config"
	"mira/internal/dispatch"
	"mira/internal/intent"
	"mira/internal/llm"
	"mira/internal/logging"
	"mira/internal/memory"
	"mira/internal/orchestrator"
	"mira/internal/plugins"
	"mira/internal/rag"
	"mira/internal/server"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mira-server",
		Short: "Conversational assistant backend",
		Long:  "mira-server runs the assistant HTTP API: intent classification, plugin dispatch, context assembly, and session memory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
}

func run() error {
	logger := logging.NewComponentLogger("Main")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Info("Starting mira-server")
	logger.Info("Model: %s, classifier: %s", cfg.LLM.Model, cfg.LLM.ClassifierModel)

	// Memory tiers.
	cache := memory.NewCache(cfg.Cache.MaxSessions, cfg.Cache.MaxTurns)
	store := memory.NewPostgresStore(memory.PostgresStoreConfig{
		DatabaseURL:   cfg.Store.DatabaseURL,
		IdleTTL:       cfg.Store.IdleTTL,
		SweepInterval: cfg.Store.SweepInterval,
	})
	mem := memory.NewService(cache, store)

	// Connect eagerly so a misconfigured store shows up at boot. Requests
	// retry the connection, so a store that comes up later still works.
	startupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := mem.Connect(startupCtx); err != nil {
		logger.Warn("Conversation store not reachable at startup: %v", err)
	}
	cancel()

	// LLM collaborators.
	llmConfig := llm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	}
	generator, err := llm.NewOpenAIClient(cfg.LLM.Model, llmConfig)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	classifierClient, err := llm.NewOpenAIClient(cfg.LLM.ClassifierModel, llmConfig)
	if err != nil {
		return fmt.Errorf("create classifier client: %w", err)
	}

	// Retrieval is optional; the assembler degrades to no retrieved context.
	var retriever orchestrator.ContextRetriever
	if cfg.Retrieval.Enabled {
		r, err := buildRetriever(cfg)
		if err != nil {
			logger.Warn("Knowledge retrieval disabled: %v", err)
		} else {
			retriever = r
		}
	}

	dispatcher := dispatch.NewDispatcher(
		plugins.NewWeatherPlugin(plugins.WeatherConfig{}),
		plugins.NewMathPlugin(),
		plugins.NewCalendarPlugin(),
	)

	pipeline := orchestrator.New(
		orchestrator.Config{StageTimeout: cfg.LLM.Timeout},
		intent.NewClassifier(classifierClient),
		dispatcher,
		orchestrator.NewAssembler(mem, retriever),
		generator,
		mem,
		nil,
	)

	srv := server.New(server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		EnableCORS:   cfg.Server.EnableCORS,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout,
	}, pipeline, mem)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("Received %s, shutting down", sig)
	}

	// Drain HTTP first so in-flight requests can still persist their turns,
	// then release the store.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed: %v", err)
	}
	if err := mem.Close(shutdownCtx); err != nil {
		logger.Error("Store disconnect failed: %v", err)
	}

	logger.Info("Server stopped")
	return nil
}

func buildRetriever(cfg *config.Config) (orchestrator.ContextRetriever, error) {
	embedder, err := rag.NewEmbedder(rag.EmbedderConfig{
		Model:   cfg.Retrieval.EmbedModel,
		APIKey:  cfg.Retrieval.EmbedAPIKey,
		BaseURL: cfg.Retrieval.EmbedBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	vectorStore, err := rag.NewVectorStore(rag.StoreConfig{
		PersistPath: cfg.Retrieval.PersistPath,
		Collection:  cfg.Retrieval.Collection,
	}, embedder)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	return rag.NewRetriever(rag.RetrieverConfig{
		TopK:          cfg.Retrieval.TopK,
		MinSimilarity: float32(cfg.Retrieval.MinSimilarity),
	}, vectorStore), nil
}
