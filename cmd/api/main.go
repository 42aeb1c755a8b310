package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/antoniopedrola/synthetic-research/internal/config"
	"github.com/antoniopedrola/synthetic-research/internal/embedding"
	openaiEmbed "github.com/antoniopedrola/synthetic-research/internal/embedding/openai"
	"github.com/antoniopedrola/synthetic-research/internal/handler"
	personaModel "github.com/antoniopedrola/synthetic-research/internal/model/persona"
	"github.com/antoniopedrola/synthetic-research/internal/observability"
	aiService "github.com/antoniopedrola/synthetic-research/internal/service/ai"
	chatService "github.com/antoniopedrola/synthetic-research/internal/service/chat"
	"github.com/antoniopedrola/synthetic-research/internal/service/ingest"
	"github.com/antoniopedrola/synthetic-research/internal/service/retrieval"
	"github.com/antoniopedrola/synthetic-research/internal/storage/transcript"
	"github.com/antoniopedrola/synthetic-research/internal/vectorstore"
	"github.com/antoniopedrola/synthetic-research/internal/vectorstore/memory"
	"github.com/antoniopedrola/synthetic-research/internal/vectorstore/qdrant"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file before reading configuration.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := observability.NewLogger(cfg.Env)
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	// Personas are created by external setup; fall back to the built-in seed
	// when no file is configured.
	personas := personaModel.Seed()
	if cfg.Personas.File != "" {
		personas, err = personaModel.LoadFile(cfg.Personas.File)
		if err != nil {
			log.Fatal("failed to load persona file",
				zap.String("file", cfg.Personas.File),
				zap.Error(err))
		}
	}
	personaStore := personaModel.NewMemoryStore(personas)
	log.Info("personas loaded", zap.Int("count", len(personas)))

	var store vectorstore.Store
	if cfg.VectorDB.URL != "" {
		qdrantStore, err := qdrant.NewStore(qdrant.Config{
			URL:        cfg.VectorDB.URL,
			APIKey:     cfg.VectorDB.APIKey,
			Collection: cfg.VectorDB.Collection,
		})
		if err != nil {
			log.Fatal("failed to create qdrant store", zap.Error(err))
		}
		store = qdrantStore
	} else {
		log.Warn("QDRANT_URL not set, using in-memory evidence store")
		store = memory.NewStore()
	}

	if err := store.EnsureCollection(ctx, cfg.Embedder.Dimension); err != nil {
		// Retrieval failures degrade at query time; an unreachable store at
		// boot is worth surfacing but not worth refusing to start over.
		log.Warn("failed to ensure evidence collection", zap.Error(err))
	}

	var embedder embedding.Embedder
	embedder, err = openaiEmbed.NewClient(openaiEmbed.Config{
		BaseURL:   cfg.Embedder.BaseURL,
		APIKey:    cfg.Embedder.APIKey,
		Model:     cfg.Embedder.Model,
		Dimension: cfg.Embedder.Dimension,
		Timeout:   cfg.Embedder.Timeout,
	})
	if err != nil {
		log.Fatal("failed to create embedder", zap.Error(err))
	}

	retriever := retrieval.NewService(embedder, store, cfg.Retrieval, log)

	// Missing model credentials are a configuration error: fatal at startup,
	// not retried.
	aiSvc, err := aiService.NewService(ctx, cfg.AI, aiService.PromptConfig{
		HistoryWindow: 3,
		LabelFallback: cfg.Retrieval.LabelFallback,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize AI service", zap.Error(err))
	}

	var transcripts chatService.TranscriptStore
	if cfg.Transcript.Enabled() {
		boltStore, err := transcript.Open(cfg.Transcript.Path)
		if err != nil {
			// Persistence is best-effort; the conversation continues in memory.
			log.Warn("transcript persistence unavailable",
				zap.String("path", cfg.Transcript.Path),
				zap.Error(err))
		} else {
			defer func() { _ = boltStore.Close() }()
			transcripts = boltStore
			log.Info("transcript persistence enabled", zap.String("path", cfg.Transcript.Path))
		}
	}

	chatSvc := chatService.NewService(personaStore, retriever, aiSvc, transcripts, log)
	ingestSvc := ingest.NewService(embedder, store, log)

	router := handler.NewRouter(personaStore, chatSvc, aiSvc, retriever, ingestSvc, log)

	startServer(ctx, cfg.Server, router, log)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, log *zap.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info("synthetic research backend listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
