package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"videorag/config"
	"videorag/core"
	"videorag/logging"
	"videorag/processors"
	"videorag/search"
	"videorag/server"
	"videorag/sources"
	"videorag/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var embedder storage.Embedder
	if cfg.HasValidAPI() {
		embedder = storage.NewOpenAIEmbedder(cfg)
	} else {
		log.Warn("no API credentials configured, embeddings disabled")
	}

	vectors, err := storage.NewVectorStore(ctx, cfg, embedder, log)
	if err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}
	log.Info("vector store ready", "backend", cfg.VectorBackend)

	var graph storage.GraphStore
	if cfg.Neo4jURI != "" {
		neo4jStore, err := storage.NewNeo4jGraphStore(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("init graph store: %w", err)
		}
		graph = neo4jStore
		defer neo4jStore.Close(context.Background())
		log.Info("graph store ready", "uri", cfg.Neo4jURI)
	} else {
		log.Warn("NEO4J_URI not set, graph features disabled")
	}

	registry := core.NewTaskRegistry(log)
	runner := core.NewPoolRunner(cfg.RunnerSlots, log)
	defer runner.Shutdown()

	var extractor processors.EntityExtractor = processors.RegexEntityExtractor{}
	if cfg.HasValidAPI() {
		extractor = processors.ChainExtractor{
			Primary:  processors.NewOpenAIEntityExtractor(cfg, log),
			Fallback: processors.RegexEntityExtractor{},
		}
	}

	builder := processors.NewSegmentBuilder(cfg.SegmentWindowSeconds, extractor, log)
	source := sources.NewYouTubeSource(log)
	orchestrator := processors.NewIngestionOrchestrator(source, builder, vectors, graph, registry, runner, log)
	strategies := processors.NewStrategyRegistry(orchestrator, registry, runner, log)
	searcher := search.NewService(vectors, cfg.OverfetchFactor, log)

	srv := server.New(cfg, registry, orchestrator, strategies, searcher, vectors, graph, log)
	router := srv.Router()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "port", cfg.Port)
		errCh <- router.Run(":" + cfg.Port)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
		return nil
	}
}
