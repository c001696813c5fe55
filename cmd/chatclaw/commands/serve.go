package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jholhewres/chatclaw/pkg/chatclaw/bot"
	"github.com/jholhewres/chatclaw/pkg/chatclaw/discord"
	"github.com/jholhewres/chatclaw/pkg/chatclaw/llm"
	"github.com/jholhewres/chatclaw/pkg/chatclaw/memory"
)

// newServeCmd creates the `chatclaw serve` command that starts the
// bot.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and answer mentions",
		Long: `Start ChatClaw as a daemon: connects to the Discord gateway,
registers the administrative slash commands and answers @mentions.

Examples:
  chatclaw serve
  chatclaw serve --config ./config.yaml`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	// ── Load config ──
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// ── Configure logger ──
	logger := newLogger(cmd, cfg)

	// ── Resolve secrets, then fail fast on anything missing ──
	bot.ResolveAPIKey(cfg, logger)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── Build the pipeline ──
	store := memory.NewStore(cfg.History.MaxMessages, cfg.History.MaxChars, cfg.History.SystemPrompt)

	extraHeaders, err := cfg.API.ExtraHeaderMap()
	if err != nil {
		return err
	}
	client := llm.New(llm.Options{
		BaseURL:      cfg.API.BaseURL,
		URLOverride:  cfg.API.URLOverride,
		APIKey:       cfg.API.APIKey,
		Model:        cfg.API.Model,
		AuthHeader:   cfg.API.AuthHeader,
		AuthPrefix:   cfg.API.AuthPrefix,
		ExtraHeaders: extraHeaders,
		Timeout:      cfg.API.Timeout(),
	}, logger)

	dc := discord.New(cfg, store, client, logger)
	if err := dc.Connect(); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	logger.Info("ChatClaw running. Press Ctrl+C to stop.",
		"model", cfg.API.Model,
		"max_messages", cfg.History.MaxMessages,
		"max_chars", cfg.History.MaxChars,
	)

	// ── Wait for shutdown ──
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping...")

	done := make(chan struct{})
	go func() {
		dc.Close()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out after 10s, forcing exit")
	}

	return nil
}

// loadConfig loads configuration honoring the --config flag.
func loadConfig(cmd *cobra.Command) (*bot.Config, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := bot.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the slog logger from config and the --verbose flag.
func newLogger(cmd *cobra.Command, cfg *bot.Config) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	logLevel := slog.LevelInfo
	switch {
	case verbose || cfg.Logging.Level == "debug":
		logLevel = slog.LevelDebug
	case cfg.Logging.Level == "warn":
		logLevel = slog.LevelWarn
	case cfg.Logging.Level == "error":
		logLevel = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	return slog.New(handler)
}
