// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported chat transports.
const (
	TransportTelegram = "telegram"
	TransportIRC      = "irc"
)

// Supported ignore-list backends.
const (
	IgnoreStoreFile   = "file"
	IgnoreStoreSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	Transport string

	TelegramBotToken string
	TelegramChatID   int64

	IRCServer string
	IRCPort   int
	IRCTLS    bool
	IRCNick   string

	FeedChannel  string
	FeedURL      string
	PollInterval time.Duration
	FetchTimeout time.Duration

	DatabasePath string
	IgnoreStore  string
	IgnoreDir    string

	MetricsAddr string
	LogLevel    string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Transport:        strings.ToLower(envOrDefault("TRANSPORT", TransportTelegram)),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		IRCServer:        os.Getenv("IRC_SERVER"),
		IRCNick:          envOrDefault("IRC_NICK", "FeedServer"),
		FeedChannel:      envOrDefault("FEED_CHANNEL", "#feed"),
		FeedURL:          envOrDefault("FEED_URL", "https://bugs.mojang.com/activity"),
		DatabasePath:     envOrDefault("DATABASE_PATH", "./data/feedrelay.db"),
		IgnoreStore:      strings.ToLower(envOrDefault("IGNORE_STORE", IgnoreStoreFile)),
		IgnoreDir:        envOrDefault("IGNORE_DIR", "./data/users"),
		MetricsAddr:      os.Getenv("METRICS_ADDR"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.TelegramChatID, err = envInt64("TELEGRAM_CHAT_ID", 0); err != nil {
		return nil, err
	}
	if cfg.IRCPort, err = envInt("IRC_PORT", 6667); err != nil {
		return nil, err
	}
	if cfg.IRCTLS, err = envBool("IRC_TLS", false); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = envDuration("POLL_INTERVAL", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = envDuration("FETCH_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	switch cfg.Transport {
	case TransportTelegram:
		if cfg.TelegramBotToken == "" {
			return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
		}
	case TransportIRC:
		if cfg.IRCServer == "" {
			return nil, fmt.Errorf("IRC_SERVER is required")
		}
		if cfg.IRCPort < 1 || cfg.IRCPort > 65535 {
			return nil, fmt.Errorf("invalid IRC_PORT %d", cfg.IRCPort)
		}
	default:
		return nil, fmt.Errorf("unknown TRANSPORT %q, use: telegram, irc", cfg.Transport)
	}

	switch cfg.IgnoreStore {
	case IgnoreStoreFile, IgnoreStoreSQLite:
	default:
		return nil, fmt.Errorf("unknown IGNORE_STORE %q, use: file, sqlite", cfg.IgnoreStore)
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return i, nil
}

func envInt64(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return i, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}
