package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dgallion1/profilesite/internal/mount"
)

type Config struct {
	Port string

	// Content retrieval
	ContentDir     string
	ContentBaseURL string // Takes precedence over ContentDir when set
	CacheTTL       time.Duration
	WatchContent   bool
	StatsWindow    time.Duration

	// Lazy mounting
	RootMargin string

	// Live sessions
	SessionTTL          time.Duration
	WSMessagesPerSecond int
	WSBurst             int

	// Welcome view
	WelcomeFile  string
	ProfileImage string

	LogLevel string

	// Optional bearer token guarding operational endpoints
	AdminAPIKey string

	// Route key to source path overrides, from the config file only.
	Sources map[string]string
}

// fileConfig is the TOML layout. Durations are strings such as "5m".
type fileConfig struct {
	Port                string            `toml:"port"`
	ContentDir          string            `toml:"content_dir"`
	ContentBaseURL      string            `toml:"content_base_url"`
	CacheTTL            string            `toml:"cache_ttl"`
	WatchContent        *bool             `toml:"watch_content"`
	StatsWindow         string            `toml:"stats_window"`
	RootMargin          string            `toml:"root_margin"`
	SessionTTL          string            `toml:"session_ttl"`
	WSMessagesPerSecond int               `toml:"ws_messages_per_second"`
	WSBurst             int               `toml:"ws_burst"`
	WelcomeFile         string            `toml:"welcome_file"`
	ProfileImage        string            `toml:"profile_image"`
	LogLevel            string            `toml:"log_level"`
	AdminAPIKey         string            `toml:"admin_api_key"`
	Sources             map[string]string `toml:"sources"`
}

func defaults() Config {
	return Config{
		Port:                "8080",
		ContentDir:          "content",
		CacheTTL:            5 * time.Minute,
		WatchContent:        true,
		StatsWindow:         time.Hour,
		RootMargin:          mount.DefaultMargin.String(),
		SessionTTL:          30 * time.Minute,
		WSMessagesPerSecond: 20,
		WSBurst:             40,
		LogLevel:            "info",
		Sources:             map[string]string{},
	}
}

// Load builds the configuration from defaults, the optional TOML file named
// by PROFILESITE_CONFIG, and environment variables, in increasing priority.
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv("PROFILESITE_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.ContentDir = envOr("CONTENT_DIR", cfg.ContentDir)
	cfg.ContentBaseURL = envOr("CONTENT_BASE_URL", cfg.ContentBaseURL)
	cfg.CacheTTL = envDuration("CACHE_TTL", cfg.CacheTTL)
	cfg.WatchContent = envBool("WATCH_CONTENT", cfg.WatchContent)
	cfg.StatsWindow = envDuration("STATS_WINDOW", cfg.StatsWindow)
	cfg.RootMargin = envOr("ROOT_MARGIN", cfg.RootMargin)
	cfg.SessionTTL = envDuration("SESSION_TTL", cfg.SessionTTL)
	cfg.WSMessagesPerSecond = envInt("WS_MESSAGES_PER_SECOND", cfg.WSMessagesPerSecond)
	cfg.WSBurst = envInt("WS_BURST", cfg.WSBurst)
	cfg.WelcomeFile = envOr("WELCOME_FILE", cfg.WelcomeFile)
	cfg.ProfileImage = envOr("PROFILE_IMAGE", cfg.ProfileImage)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)
	cfg.AdminAPIKey = envOr("ADMIN_API_KEY", cfg.AdminAPIKey)

	if cfg.CacheTTL < 0 {
		cfg.CacheTTL = 0
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = time.Hour
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.WSMessagesPerSecond <= 0 {
		cfg.WSMessagesPerSecond = 20
	}
	if cfg.WSBurst <= 0 {
		cfg.WSBurst = 2 * cfg.WSMessagesPerSecond
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var f fileConfig
	if err := toml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.Port, f.Port)
	setString(&c.ContentDir, f.ContentDir)
	setString(&c.ContentBaseURL, f.ContentBaseURL)
	setString(&c.RootMargin, f.RootMargin)
	setString(&c.WelcomeFile, f.WelcomeFile)
	setString(&c.ProfileImage, f.ProfileImage)
	setString(&c.LogLevel, f.LogLevel)
	setString(&c.AdminAPIKey, f.AdminAPIKey)
	if f.WatchContent != nil {
		c.WatchContent = *f.WatchContent
	}
	if f.WSMessagesPerSecond > 0 {
		c.WSMessagesPerSecond = f.WSMessagesPerSecond
	}
	if f.WSBurst > 0 {
		c.WSBurst = f.WSBurst
	}
	for _, d := range []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"cache_ttl", f.CacheTTL, &c.CacheTTL},
		{"stats_window", f.StatsWindow, &c.StatsWindow},
		{"session_ttl", f.SessionTTL, &c.SessionTTL},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config file %s: %s: %w", path, d.key, err)
		}
		*d.dst = v
	}
	for k, v := range f.Sources {
		c.Sources[k] = v
	}
	return nil
}

func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.ContentDir == "" && c.ContentBaseURL == "" {
		return fmt.Errorf("CONTENT_DIR or CONTENT_BASE_URL is required")
	}
	if _, err := c.Margin(); err != nil {
		return fmt.Errorf("ROOT_MARGIN: %w", err)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// Margin parses RootMargin.
func (c Config) Margin() (mount.Margin, error) {
	return mount.ParseMargin(c.RootMargin)
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(c.LogLevel))
	return l, err
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
