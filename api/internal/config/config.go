package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultGeminiModel   = "gemini-2.5-flash"

	// DefaultSessionTTL is how long an idle chat keeps its last diagram in Postgres.
	DefaultSessionTTL = 30 * 24 * time.Hour
)

type Config struct {
	Port string

	TelegramBotToken string
	WebhookURL       string
	DatabaseURL      string

	// SessionTTL of zero disables purging of idle sessions.
	SessionTTL time.Duration
}

// Source looks up a single configuration value; an empty string means unset.
type Source func(key string) string

// Env reads the process environment.
func Env(key string) string { return os.Getenv(key) }

// Map is a Source backed by a fixed set of values.
func Map(m map[string]string) Source {
	return func(key string) string { return m[key] }
}

// Credentials are resolved per call, never cached, so rotated keys and
// model overrides apply to the next request.
type Credentials struct {
	APIKey  string
	Model   string
	BaseURL string
}

func OpenAI(src Source) Credentials {
	if src == nil {
		src = Env
	}
	return Credentials{
		APIKey:  strings.TrimSpace(src("OPENAI_API_KEY")),
		Model:   lookup(src, "OPENAI_MODEL", DefaultOpenAIModel),
		BaseURL: strings.TrimRight(lookup(src, "OPENAI_BASE_URL", DefaultOpenAIBaseURL), "/"),
	}
}

func Gemini(src Source) Credentials {
	if src == nil {
		src = Env
	}
	return Credentials{
		APIKey: strings.TrimSpace(src("GEMINI_API_KEY")),
		Model:  lookup(src, "GEMINI_MODEL", DefaultGeminiModel),
	}
}

func lookup(src Source, k, def string) string {
	if v := strings.TrimSpace(src(k)); v != "" {
		return v
	}
	return def
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env %s", k)
	}
	return v
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		log.Printf("config: bad %s=%q, using %s", k, v, def)
		return def
	}
	return d
}

// Load reads server settings. A .env file in the working directory is
// honoured when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port: getEnv("PORT", "8000"),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		WebhookURL:       os.Getenv("WEBHOOK_URL"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),

		SessionTTL: getDuration("SESSION_TTL", DefaultSessionTTL),
	}
}

// MustBotToken is used by the bot entry point, which cannot start without it.
func (c *Config) MustBotToken() string {
	if strings.TrimSpace(c.TelegramBotToken) == "" {
		return mustEnv("TELEGRAM_BOT_TOKEN")
	}
	return c.TelegramBotToken
}
