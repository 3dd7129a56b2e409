package config

import (
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Mode selects how marketplace adapters reach a browser.
type Mode string

const (
	// ModeBrowser drives a shared headless Chrome: one browser, one
	// ephemeral tab per marketplace task.
	ModeBrowser Mode = "browser"
	// ModeRemote issues stateless calls to a remote rendering service;
	// no shared browser is held at all.
	ModeRemote Mode = "remote"
)

// Config holds all runtime configuration for the price engine.
type Config struct {
	Mode      Mode
	Headless  bool
	UserAgent string

	// Remote browser endpoints. RemoteAllocatorURL is a devtools
	// websocket (credential embedded as a token query param).
	// RenderURL/RenderKey address the stateless rendering API used in
	// ModeRemote.
	RemoteAllocatorURL string
	RemoteRenderURL    string
	RemoteRenderKey    string

	// Session lifecycle
	IdleTimeout time.Duration
	MaxRetries  int
	BackoffBase time.Duration

	// Timing
	NavTimeout    time.Duration
	ChallengeWait time.Duration
	SettleDelay   time.Duration

	// Every cross-source comparison happens in the canonical currency
	// using this fixed rate. No live FX lookups.
	CanonicalCurrency string
	ConversionRate    float64

	MaxSizesPerSource int

	// Redis TTL cache (trending list only; optional)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TrendingTTL   time.Duration
}

// Default returns a Config populated from the environment with
// sensible fallbacks. A local .env file is honoured when present.
func Default() Config {
	_ = godotenv.Load()

	return Config{
		Mode:      Mode(getEnv("KICKRAX_MODE", string(ModeBrowser))),
		Headless:  getEnvBool("KICKRAX_HEADLESS", true),
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",

		RemoteAllocatorURL: getEnv("KICKRAX_BROWSER_WS", ""),
		RemoteRenderURL:    getEnv("KICKRAX_RENDER_URL", ""),
		RemoteRenderKey:    getEnv("KICKRAX_RENDER_KEY", ""),

		IdleTimeout: getEnvDuration("KICKRAX_IDLE_TIMEOUT", 60*time.Second),
		MaxRetries:  getEnvInt("KICKRAX_MAX_RETRIES", 3),
		BackoffBase: getEnvDuration("KICKRAX_BACKOFF_BASE", 2*time.Second),

		NavTimeout:    getEnvDuration("KICKRAX_NAV_TIMEOUT", 35*time.Second),
		ChallengeWait: getEnvDuration("KICKRAX_CHALLENGE_WAIT", 15*time.Second),
		SettleDelay:   getEnvDuration("KICKRAX_SETTLE_DELAY", 1500*time.Millisecond),

		CanonicalCurrency: getEnv("KICKRAX_CURRENCY", "USD"),
		ConversionRate:    getEnvFloat("KICKRAX_CONVERSION_RATE", 1.27),

		MaxSizesPerSource: getEnvInt("KICKRAX_MAX_SIZES", 20),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		TrendingTTL:   getEnvDuration("KICKRAX_TRENDING_TTL", 10*time.Minute),
	}
}

// RandomDelay returns SettleDelay with up to ±40% jitter so navigation
// cadence doesn't look mechanical.
func (c Config) RandomDelay() time.Duration {
	if c.SettleDelay <= 0 {
		return 0
	}
	jitter := time.Duration(rand.Int63n(int64(c.SettleDelay)*4/10 + 1))
	if rand.Intn(2) == 0 {
		return c.SettleDelay - jitter
	}
	return c.SettleDelay + jitter
}

func getEnv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}
