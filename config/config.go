package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"stock-signal/internal/model"
)

// DefaultMaxTickers caps the ticker list when tickers.yml has no settings.
const DefaultMaxTickers = 3

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Paths
	DataDir     string
	DocsDir     string
	TickersFile string

	// Bar persistence: "sqlite" or "parquet"
	BarStore   string
	SQLitePath string

	// Quote source: "stooq" or "alpaca"
	QuoteSource     string
	StooqBaseURL    string
	AlpacaAPIKey    string
	AlpacaSecretKey string
	HistoryYears    int

	// Notification channels; empty disables a channel
	LineChannelToken string
	LineUserID       string
	TelegramToken    string
	TelegramChatID   string
	WebhookURL       string
	DashboardURL     string

	// Infrastructure; empty disables
	RedisAddr      string
	RedisPassword  string
	PushgatewayURL string
	MetricsAddr    string // serve /metrics and /healthz while running

	LogLevel  string
	LogFormat string
	Workers   int
}

// Load reads .env (if present) and then the environment, applying defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[config] ignoring unreadable .env: %v", err)
	}

	dataDir := getEnv("DATA_DIR", "data")
	return &Config{
		DataDir:     dataDir,
		DocsDir:     getEnv("DOCS_DIR", "docs"),
		TickersFile: getEnv("TICKERS_FILE", "tickers.yml"),

		BarStore:   strings.ToLower(getEnv("BAR_STORE", "sqlite")),
		SQLitePath: getEnv("SQLITE_PATH", filepath.Join(dataDir, "bars.db")),

		QuoteSource:     strings.ToLower(getEnv("QUOTE_SOURCE", "stooq")),
		StooqBaseURL:    getEnv("STOOQ_BASE_URL", "https://stooq.com"),
		AlpacaAPIKey:    getEnv("ALPACA_API_KEY", ""),
		AlpacaSecretKey: getEnv("ALPACA_SECRET_KEY", ""),
		HistoryYears:    getInt("HISTORY_YEARS", 10),

		LineChannelToken: getEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),
		LineUserID:       getEnv("LINE_USER_ID", ""),
		TelegramToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		DashboardURL:     getEnv("DASHBOARD_URL", ""),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		PushgatewayURL: getEnv("PUSHGATEWAY_URL", ""),
		MetricsAddr:    getEnv("METRICS_ADDR", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		Workers:   getInt("WORKERS", 1),
	}
}

// Validate reports option combinations that cannot run.
func (c *Config) Validate() error {
	switch c.BarStore {
	case "sqlite", "parquet":
	default:
		return fmt.Errorf("config: BAR_STORE must be sqlite or parquet, got %q", c.BarStore)
	}
	switch c.QuoteSource {
	case "stooq":
	case "alpaca":
		if c.AlpacaAPIKey == "" || c.AlpacaSecretKey == "" {
			return errors.New("config: QUOTE_SOURCE=alpaca requires ALPACA_API_KEY and ALPACA_SECRET_KEY")
		}
	default:
		return fmt.Errorf("config: QUOTE_SOURCE must be stooq or alpaca, got %q", c.QuoteSource)
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: WORKERS must be >= 1, got %d", c.Workers)
	}
	return nil
}

// EnsureDirs creates the data and docs directories.
func (c *Config) EnsureDirs() error {
	for _, d := range []string{c.DataDir, c.DocsDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("config: mkdir %s: %w", d, err)
		}
	}
	return nil
}

// LineEnabled reports whether both LINE credentials are present.
func (c *Config) LineEnabled() bool {
	return c.LineChannelToken != "" && c.LineUserID != ""
}

// TelegramEnabled reports whether both Telegram settings are present.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

type tickersFile struct {
	Tickers  []model.Ticker `yaml:"tickers"`
	Settings struct {
		MaxTickers *int `yaml:"max_tickers"`
	} `yaml:"settings"`
}

// LoadTickers reads the ticker list, drops disabled entries and truncates
// the rest to settings.max_tickers. A negative max_tickers is an error.
func LoadTickers(path string) ([]model.Ticker, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: tickers file: %w", err)
	}

	var f tickersFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	max := DefaultMaxTickers
	if f.Settings.MaxTickers != nil {
		max = *f.Settings.MaxTickers
	}
	if max < 0 {
		return nil, fmt.Errorf("config: %s: settings.max_tickers must be >= 0, got %d", path, max)
	}

	out := make([]model.Ticker, 0, len(f.Tickers))
	for _, t := range f.Tickers {
		if !t.IsEnabled() {
			continue
		}
		if strings.TrimSpace(t.Code) == "" {
			log.Printf("[config] skipping ticker with empty code (name=%q)", t.Name)
			continue
		}
		out = append(out, t)
	}
	if len(out) > max {
		out = out[:max]
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
