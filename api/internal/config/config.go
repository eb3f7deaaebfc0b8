package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Port string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	GeminiAPIKey  string
	GeminiModel   string
	DefaultLLM    string

	RequestTimeout time.Duration
	Language       string
	LogLevel       zapcore.Level

	AuditEnabled bool
	DatabaseURL  string

	TelegramBotToken string
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// Load reads the environment, after merging an optional .env file from the
// working directory. Variables already set win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Port: getEnv("PORT", "3333"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-5.2"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		DefaultLLM:    strings.ToLower(getEnv("LLM_DEFAULT", "gpt")),

		Language: getEnv("CONTENT_LANGUAGE", "PT-BR"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
	}

	d, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "120s"))
	if err != nil || d <= 0 {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT %q", os.Getenv("REQUEST_TIMEOUT"))
	}
	cfg.RequestTimeout = d

	lvl, err := zapcore.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = lvl

	if v := getEnv("AUDIT_ENABLED", ""); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid AUDIT_ENABLED %q", v)
		}
		cfg.AuditEnabled = on
	}
	if cfg.AuditEnabled {
		cfg.DatabaseURL = ResolveDSN()
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.OpenAIAPIKey == "" && c.GeminiAPIKey == "" {
		return errors.New("missing required env: OPENAI_API_KEY or GEMINI_API_KEY")
	}
	switch c.DefaultLLM {
	case "gpt", "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("LLM_DEFAULT=%s needs OPENAI_API_KEY", c.DefaultLLM)
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return errors.New("LLM_DEFAULT=gemini needs GEMINI_API_KEY")
		}
	default:
		return fmt.Errorf("invalid LLM_DEFAULT %q; use 'gpt' or 'gemini'", c.DefaultLLM)
	}
	return nil
}

// ResolveDSN prefers DATABASE_URL and otherwise builds a DSN from POSTGRES_* / PG*.
func ResolveDSN() string {
	if v := getEnv("DATABASE_URL", ""); v != "" {
		return v
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "seoproxy"), os.Getenv("POSTGRES_PASSWORD")),
		Host:     net.JoinHostPort(getEnv("PGHOST", "db"), getEnv("PGPORT", "5432")),
		Path:     "/" + getEnv("POSTGRES_DB", "seoproxy"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}
