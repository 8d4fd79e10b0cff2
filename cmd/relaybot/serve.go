package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relaybot/internal/bus"
	"relaybot/internal/channel"
	"relaybot/internal/config"
	"relaybot/internal/domain"
	"relaybot/internal/metrics"
	"relaybot/internal/provider"
	"relaybot/internal/relay"
	"relaybot/internal/webhook"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the relay (all enabled channels + dispatcher)",
		Long:  "Starts all enabled channels and the message dispatcher. Press Ctrl+C to stop.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = buildLogger(cfg.General)

	if !cfg.Channels.Discord.Enabled && !cfg.Channels.Telegram.Enabled {
		return errors.New("no channel enabled: set channels.discord.enabled or channels.telegram.enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Message bus (closed during graceful shutdown below)
	messageBus := bus.New(100, logger)

	webhookClient := webhook.NewClient(webhook.ClientConfig{
		URL:    cfg.Webhook.URL,
		Secret: cfg.Webhook.Secret,
		Logger: logger,
	})

	transcriber := provider.NewWhisperTranscriber(provider.WhisperConfig{
		APIBase:  cfg.Transcription.APIBase,
		APIKey:   cfg.Transcription.APIKey,
		Model:    cfg.Transcription.Model,
		Language: cfg.Transcription.Language,
		Logger:   logger,
	})

	dispatcher := relay.NewDispatcher(relay.DispatcherConfig{
		Bus:           messageBus,
		Webhook:       webhookClient,
		Transcriber:   transcriber,
		Fetcher:       relay.NewHTTPFetcher(cfg.Files.MaxSizeBytes, logger),
		Logger:        logger,
		AllowFrom:     cfg.General.AllowFrom,
		CommandPrefix: cfg.General.CommandPrefix,
		MaxFileSize:   cfg.Files.MaxSizeBytes,
		Concurrency:   cfg.General.MaxConcurrentMessages,
		Deliver: relay.DeliverOptions{
			MaxMessageLen: cfg.Delivery.MaxMessageLen,
			FileThreshold: cfg.Delivery.FileThreshold,
			Filename:      cfg.Delivery.Filename,
		},
	})

	go dispatcher.Run(ctx)

	var channels []domain.Channel
	if cfg.Channels.Discord.Enabled {
		channels = append(channels, channel.NewDiscord(channel.DiscordConfig{
			Token:          cfg.Channels.Discord.Token,
			GuildID:        cfg.Channels.Discord.GuildID,
			MessageContent: cfg.Channels.Discord.MessageContent,
			Logger:         logger,
		}))
	}
	if cfg.Channels.Telegram.Enabled {
		channels = append(channels, channel.NewTelegram(channel.TelegramConfig{
			Token:  cfg.Channels.Telegram.Token,
			Logger: logger,
		}))
	}

	for _, ch := range channels {
		go func(ch domain.Channel) {
			if err := ch.Start(ctx, messageBus); err != nil {
				logger.Error("channel error", "channel", ch.Name(), "err", err)
			}
		}(ch)
		logger.Info("channel enabled", "channel", ch.Name())
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc(cfg.Metrics.Endpoint, metrics.Collector.Handler())
		metricsSrv = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Metrics.Host, cfg.Metrics.Port),
			Handler: mux,
		}
		go func() {
			logger.Info("metrics endpoint up", "addr", metricsSrv.Addr, "path", cfg.Metrics.Endpoint)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "err", err)
			}
		}()
	}

	logger.Info("relay started. Press Ctrl+C to stop.", "webhook", cfg.Webhook.URL)

	// Block until shutdown signal
	<-ctx.Done()
	logger.Info("shutting down relay...")

	// Graceful shutdown with timeout
	const shutdownTimeout = 10 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, ch := range channels {
			if err := ch.Stop(); err != nil {
				logger.Warn("channel stop failed", "channel", ch.Name(), "err", err)
			}
		}
		if metricsSrv != nil {
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown failed", "err", err)
			}
		}
		messageBus.Close()
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out, forcing exit")
		shutdownErr = fmt.Errorf("shutdown timed out")
	}

	return shutdownErr
}

// buildLogger creates the process logger per the config's log level and
// optional log file.
func buildLogger(cfg config.GeneralConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	out := os.Stderr
	if cfg.LogFile != "" {
		if f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			out = f
		}
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}
