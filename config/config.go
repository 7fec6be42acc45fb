// Package config loads pumpwatch settings from the environment.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pumpwatch/internal/model"
)

// Store drivers.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Record store
	StoreDriver string
	MongoURI    string
	MongoDB     string
	SQLitePath  string

	// Live feed (empty addr disables it)
	RedisAddr     string
	RedisPassword string

	// Market venue
	OKXAPIKey     string
	OKXSecretKey  string
	OKXPassphrase string
	OKXBaseURL    string
	OKXChainIndex string

	// Pair aggregator
	DexScreenerBaseURL string
	DexScreenerChain   string
	ListingEndpoint    string

	// Notifications
	TelegramEnabled  bool
	TelegramBotToken string
	TelegramChatID   string
	ResendAPIKey     string
	EmailFrom        string
	AlertWebhookURL  string

	// Loops
	PairIngestInterval   time.Duration
	IndicatorInterval    time.Duration
	PairMetadataInterval time.Duration
	MarketCapInterval    time.Duration
	RequestThrottle      time.Duration

	// Indicator
	RSIPeriod        int
	RSIUpper         float64
	RSILower         float64
	CandleLimit      int
	LongWindowFactor int

	// Servers
	HTTPAddr    string
	MetricsAddr string
	LogLevel    string
}

// Load reads configuration from the environment, after loading .env if present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] .env not loaded: %v", err)
	}
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (*Config, error) {
	p := &parser{}
	cfg := &Config{
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverMongo)),
		MongoURI:    secret("MONGO_URI"),
		MongoDB:     getEnv("MONGO_DB", "pumpwatch"),
		SQLitePath:  getEnv("SQLITE_PATH", "data/pumpwatch.db"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: secret("REDIS_PASSWORD"),

		OKXAPIKey:     secret("OK_ACCESS_KEY"),
		OKXSecretKey:  secret("OK_ACCESS_SECRET"),
		OKXPassphrase: secret("OK_ACCESS_PASSPHRASE"),
		OKXBaseURL:    getEnv("OKX_BASE_URL", "https://web3.okx.com"),
		OKXChainIndex: getEnv("OKX_CHAIN_INDEX", "501"),

		DexScreenerBaseURL: getEnv("DEXSCREENER_BASE_URL", "https://api.dexscreener.com"),
		DexScreenerChain:   getEnv("DEXSCREENER_CHAIN", "solana"),
		ListingEndpoint:    getEnv("LISTING_ENDPOINT", ""),

		TelegramEnabled:  p.flag("TELEGRAM_NOTIFICATIONS_ENABLED", false),
		TelegramBotToken: secret("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   secret("TELEGRAM_CHAT_ID"),
		ResendAPIKey:     secret("RESEND_API_KEY"),
		EmailFrom:        getEnv("EMAIL_FROM", ""),
		AlertWebhookURL:  getEnv("ALERT_WEBHOOK_URL", ""),

		PairIngestInterval:   p.duration("PAIR_INGEST_INTERVAL", 15*time.Second),
		IndicatorInterval:    p.duration("INDICATOR_INTERVAL", 5*time.Minute),
		PairMetadataInterval: p.duration("PAIR_METADATA_INTERVAL", 10*time.Minute),
		MarketCapInterval:    p.duration("MARKET_CAP_INTERVAL", 10*time.Minute),
		RequestThrottle:      p.duration("REQUEST_THROTTLE", time.Second),

		RSIPeriod:        p.integer("RSI_PERIOD", 14),
		RSIUpper:         p.number("RSI_UPPER", 30),
		RSILower:         p.number("RSI_LOWER", 10),
		CandleLimit:      p.integer("CANDLE_LIMIT", 299),
		LongWindowFactor: p.integer("LONG_WINDOW_FACTOR", 12),

		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
	if len(p.errs) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(p.errs, "; "))
	}
	return cfg, nil
}

// Validate checks the settings the service cannot start without. Missing
// venue credentials are not fatal here; the client reports them per call.
func (c *Config) Validate() error {
	var missing []string
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			missing = append(missing, "MONGO_URI")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			missing = append(missing, "SQLITE_PATH")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.RSIPeriod < 1 {
		return fmt.Errorf("config: RSI_PERIOD must be positive, got %d", c.RSIPeriod)
	}
	if c.RSILower >= c.RSIUpper {
		return fmt.Errorf("config: RSI_LOWER (%v) must be below RSI_UPPER (%v)", c.RSILower, c.RSIUpper)
	}
	if c.LongWindowFactor < 1 || c.CandleLimit < 1 {
		return fmt.Errorf("config: CANDLE_LIMIT and LONG_WINDOW_FACTOR must be positive")
	}
	if len(missing) > 0 {
		return &model.ConfigurationError{Missing: missing}
	}
	return nil
}

// VenueCredentialsMissing lists unset venue credentials.
func (c *Config) VenueCredentialsMissing() []string {
	var missing []string
	if c.OKXAPIKey == "" {
		missing = append(missing, "OK_ACCESS_KEY")
	}
	if c.OKXSecretKey == "" {
		missing = append(missing, "OK_ACCESS_SECRET")
	}
	if c.OKXPassphrase == "" {
		missing = append(missing, "OK_ACCESS_PASSPHRASE")
	}
	return missing
}

// IsPlaceholder reports template values such as YOUR_API_KEY.
func IsPlaceholder(v string) bool {
	return strings.Contains(v, "YOUR_")
}

// secret reads a credential, treating template placeholders as unset.
func secret(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if IsPlaceholder(v) {
		log.Printf("[config] %s holds a placeholder value, treating as unset", key)
		return ""
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

// parser collects conversion errors so Load reports all of them at once.
type parser struct {
	errs []string
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		p.errs = append(p.errs, fmt.Sprintf("%s: invalid duration %q", key, v))
		return fallback
	}
	return d
}

func (p *parser) integer(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s: invalid integer %q", key, v))
		return fallback
	}
	return n
}

func (p *parser) number(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s: invalid number %q", key, v))
		return fallback
	}
	return f
}

func (p *parser) flag(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s: invalid boolean %q", key, v))
		return fallback
	}
	return b
}
