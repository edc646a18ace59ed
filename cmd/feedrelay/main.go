package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"feedrelay/internal/bot"
	"feedrelay/internal/command"
	"feedrelay/internal/config"
	"feedrelay/internal/credentials"
	"feedrelay/internal/delivery"
	"feedrelay/internal/fetcher"
	"feedrelay/internal/ircbot"
	"feedrelay/internal/metrics"
	"feedrelay/internal/poller"
	"feedrelay/internal/session"
	"feedrelay/internal/storage"
)

// transport is a chat network the relay talks to.
type transport interface {
	command.Replier
	delivery.Transport
	Self() string
	Run(ctx context.Context, d command.Dispatcher)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("feedrelay failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create data directory %s: %w", dir, err)
		}
	}

	db, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database %s: %w", cfg.DatabasePath, err)
	}
	defer func() { _ = db.Close() }()

	lists, err := newIgnoreLists(cfg, db)
	if err != nil {
		return err
	}

	tr, err := newTransport(cfg, log)
	if err != nil {
		return err
	}

	sessions := session.New(lists, log)
	handler := command.NewHandler(credentials.New(db), sessions, tr, tr.Self(), cfg.FeedChannel, log)

	f := fetcher.New(http.DefaultClient)
	f.SetTimeout(cfg.FetchTimeout)
	p := poller.New(f, cfg.FeedURL, cfg.PollInterval, delivery.New(sessions, tr, cfg.FeedChannel, log), log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		p.SetRecorder(metrics.NewCollector(reg, sessions.Count))

		dbCheck := func(ctx context.Context) error {
			_, err := db.SchemaVersion(ctx)
			return err
		}
		srv := metrics.NewServer(cfg.MetricsAddr, reg, dbCheck, log)
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Error("metrics server", "error", err)
			}
		}()
	}

	log.Info("starting feed relay",
		"transport", cfg.Transport,
		"feed_url", cfg.FeedURL,
		"interval", cfg.PollInterval,
		"ignore_store", cfg.IgnoreStore,
	)

	go p.Run(ctx)

	tr.Run(ctx, handler)

	log.Info("feed relay stopped")
	return nil
}

func newIgnoreLists(cfg *config.Config, db *storage.SQLite) (storage.IgnoreLists, error) {
	if cfg.IgnoreStore == config.IgnoreStoreSQLite {
		return db, nil
	}
	files, err := storage.NewFiles(cfg.IgnoreDir)
	if err != nil {
		return nil, fmt.Errorf("open ignore list directory %s: %w", cfg.IgnoreDir, err)
	}
	return files, nil
}

func newTransport(cfg *config.Config, log *slog.Logger) (transport, error) {
	switch cfg.Transport {
	case config.TransportIRC:
		return ircbot.New(ircbot.Options{
			Server:  cfg.IRCServer,
			Port:    cfg.IRCPort,
			TLS:     cfg.IRCTLS,
			Nick:    cfg.IRCNick,
			Channel: cfg.FeedChannel,
		}, log.With("transport", "irc")), nil
	default:
		b, err := bot.New(cfg.TelegramBotToken, cfg.TelegramChatID, log.With("transport", "telegram"))
		if err != nil {
			return nil, fmt.Errorf("create telegram bot: %w", err)
		}
		return b, nil
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
