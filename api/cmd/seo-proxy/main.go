package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"seo-proxy/api/internal/config"
	"seo-proxy/api/internal/content"
	"seo-proxy/api/internal/handle"
	"seo-proxy/api/internal/llm"
	"seo-proxy/api/internal/llm/gemini"
	"seo-proxy/api/internal/llm/gpt"
	"seo-proxy/api/internal/prompt"
	"seo-proxy/api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		zap.NewExample().Fatal("config", zap.Error(err))
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	log, err := zcfg.Build()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engines := buildEngines(cfg)
	svc := content.NewService(prompt.New(cfg.Language), log.Named("content"))
	h := handle.New(engines, svc, log.Named("handle")).WithTimeout(cfg.RequestTimeout)

	if cfg.AuditEnabled {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("audit db", zap.Error(err))
		}
		defer db.Close()
		log.Info("db connected", zap.String("dsn", store.SafeDSNSummary(cfg.DatabaseURL)))

		repo := store.NewGenerationRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal("audit schema", zap.Error(err))
		}
		h.WithAudit(repo)
	}

	mux := http.NewServeMux()
	h.Register(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handle.Middleware(log.Named("http"), mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("seo-proxy listening",
		zap.String("addr", srv.Addr),
		zap.String("default_llm", cfg.DefaultLLM),
		zap.Bool("audit", cfg.AuditEnabled))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("listen", zap.Error(err))
	}
	log.Info("stopped")
}

// buildEngines wires only the providers that have a key.
func buildEngines(cfg *config.Config) *llm.Engines {
	engs := &llm.Engines{Default: cfg.DefaultLLM}
	if cfg.OpenAIAPIKey != "" {
		engs.OpenAI = gpt.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	}
	if cfg.GeminiAPIKey != "" {
		engs.Gemini = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	return engs
}
