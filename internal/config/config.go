package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	FrameHostCDP    = "cdp"
	FrameHostMemory = "memory"

	minPollMS = 200
	maxPollMS = 400
)

// Config holds all configuration for the lunar session daemon.
type Config struct {
	// Control API
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	// Frame host
	FrameHost   string
	CDPAddress  string
	CDPPort     int
	HeadlessExe string
	ProxyOrigin string

	// Session timing
	PollIntervalMS int
	LoadTimeoutMS  int
	SettleDelayMS  int

	// Outbound lookups
	IconEndpoint    string
	SuggestEndpoint string

	// Persistence and transport. Transport and WispURL seed the settings
	// store; the *Set flags report an explicit env or .env value, which
	// overrides what the store already holds.
	StorePath     string
	Transport     string
	TransportSet  bool
	TransportAddr string
	WispURL       string
	WispURLSet    bool

	// JournalDir enables the JSONL event journal when set.
	JournalDir string

	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		BindAddr:         getEnvOrDefault("LUNAR_BIND_ADDR", "127.0.0.1:8390"),
		PortCandidates:   getEnvListOrDefault("LUNAR_PORT_CANDIDATES", []string{"127.0.0.1:8391", "127.0.0.1:8392", "127.0.0.1:8393"}),
		PortAutoFallback: getEnvBoolOrDefault("LUNAR_PORT_AUTO_FALLBACK", true),
		FrameHost:        strings.ToLower(getEnvOrDefault("LUNAR_FRAME_HOST", FrameHostCDP)),
		CDPAddress:       getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:          getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9220),
		HeadlessExe:      getEnvOrDefault("LUNAR_HEADLESS_EXEC", ""),
		ProxyOrigin:      getEnvOrDefault("LUNAR_PROXY_ORIGIN", "http://127.0.0.1:8080"),
		PollIntervalMS:   getEnvIntOrDefault("LUNAR_POLL_INTERVAL_MS", 300),
		LoadTimeoutMS:    getEnvIntOrDefault("LUNAR_LOAD_TIMEOUT_MS", 10000),
		SettleDelayMS:    getEnvIntOrDefault("LUNAR_SETTLE_DELAY_MS", 180),
		IconEndpoint:     getEnvOrDefault("LUNAR_ICON_ENDPOINT", ""),
		SuggestEndpoint:  getEnvOrDefault("LUNAR_SUGGEST_ENDPOINT", ""),
		StorePath:        getEnvOrDefault("LUNAR_STORE_PATH", "./data/lunar.db"),
		Transport:        strings.ToLower(getEnvOrDefault("LUNAR_TRANSPORT", "direct")),
		TransportAddr:    getEnvOrDefault("LUNAR_TRANSPORT_ADDR", ""),
		WispURL:          getEnvOrDefault("LUNAR_WISP_URL", ""),
		JournalDir:       getEnvOrDefault("LUNAR_JOURNAL_DIR", ""),
		LogLevel:         strings.ToLower(getEnvOrDefault("LUNAR_LOG_LEVEL", "info")),
		LogFile:          getEnvOrDefault("LUNAR_LOG_FILE", "logs/lunar.log"),
	}

	_, cfg.TransportSet = os.LookupEnv("LUNAR_TRANSPORT")
	_, cfg.WispURLSet = os.LookupEnv("LUNAR_WISP_URL")

	switch cfg.FrameHost {
	case FrameHostCDP, FrameHostMemory:
	default:
		return nil, fmt.Errorf("LUNAR_FRAME_HOST must be %q or %q, got %q", FrameHostCDP, FrameHostMemory, cfg.FrameHost)
	}
	cfg.PollIntervalMS = min(max(cfg.PollIntervalMS, minPollMS), maxPollMS)
	if cfg.LoadTimeoutMS < 1000 {
		cfg.LoadTimeoutMS = 1000
	}
	if cfg.SettleDelayMS < 0 {
		cfg.SettleDelayMS = 0
	}
	return cfg, nil
}

// CDPURL returns the CDP HTTP endpoint used by the chromedp remote allocator.
func (c *Config) CDPURL() string {
	return "http://" + c.CDPAddress + ":" + strconv.Itoa(c.CDPPort)
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

func (c *Config) LoadTimeout() time.Duration {
	return time.Duration(c.LoadTimeoutMS) * time.Millisecond
}

func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvListOrDefault splits a comma-separated value, dropping empty items.
func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
