package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"seo-proxy/api/internal/config"
	"seo-proxy/api/internal/content"
	"seo-proxy/api/internal/httpserver"
	"seo-proxy/api/internal/llm"
	"seo-proxy/api/internal/llm/gemini"
	"seo-proxy/api/internal/llm/gpt"
	"seo-proxy/api/internal/prompt"
	"seo-proxy/api/internal/store"
	"seo-proxy/api/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config", zap.Error(err))
	}
	if cfg.TelegramBotToken == "" {
		zap.NewExample().Fatal("missing required env TELEGRAM_BOT_TOKEN")
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

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal("telegram", zap.Error(err))
	}
	bot.Debug = false

	engines := buildEngines(cfg)
	def, err := engines.GetEngine("")
	if err != nil {
		log.Fatal("default engine", zap.Error(err))
	}

	r := &telegram.Router{
		Bot:        bot,
		Service:    content.NewService(prompt.New(cfg.Language), log.Named("content")),
		Engines:    engines,
		EngManager: llm.NewManager(def),
		Timeout:    cfg.RequestTimeout,
		Log:        log.Named("telegram"),
	}

	// /stats reads the generation log the HTTP service writes
	var pinger httpserver.Pinger
	if cfg.AuditEnabled {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("audit db", zap.Error(err))
		}
		defer db.Close()
		log.Info("db connected", zap.String("dsn", store.SafeDSNSummary(cfg.DatabaseURL)))
		r.Stats = store.NewGenerationRepo(db)
		pinger = db
	}

	// platform health probe; polling itself does not need it
	health := httpserver.NewHealth("0.0.0.0:"+cfg.Port, pinger)
	go func() {
		log.Info("health server listening", zap.String("addr", health.Addr))
		if err := health.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health server", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = health.Shutdown(shutdownCtx)
	}()

	log.Info("bot polling", zap.String("user", bot.Self.UserName), zap.String("default_llm", def.Name()))
	runPolling(ctx, log, bot, func(upd tgbotapi.Update) {
		r.HandleUpdate(ctx, upd)
	})
}

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

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") {
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

func clampDelay(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func runPolling(ctx context.Context, log *zap.Logger, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for ctx.Err() == nil {
		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := clampDelay(retryDelayFromError(err), baseDelay, maxDelay)
			log.Warn("polling error", zap.Error(err), zap.Duration("retry_in", d))
			sleepCtx(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			sleepCtx(ctx, 200*time.Millisecond)
		}
	}
	log.Info("polling: context cancelled")
}
