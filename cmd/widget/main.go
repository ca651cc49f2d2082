package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-shop/backend/internal/config"
	"github.com/zhouzirui/z-shop/backend/internal/logging"
	"github.com/zhouzirui/z-shop/backend/internal/model/persona"
	"github.com/zhouzirui/z-shop/backend/internal/service/ai"
	"github.com/zhouzirui/z-shop/backend/internal/service/chat"
	"github.com/zhouzirui/z-shop/backend/internal/tui"
)

var (
	personaID string
	logLevel  string
	logFile   string
)

// rootCmd opens one chat widget in the terminal.
var rootCmd = &cobra.Command{
	Use:   "widget",
	Short: "Shop assistant chat widget for the terminal",
	Long: `Mounts a single chat widget and renders it in the terminal.

Type a message and press Enter to send it. While the assistant is
replying, Enter is ignored. Press Ctrl+C or Esc to quit.

The completion endpoint is configured through the same environment
variables as the API server (OPENAI_API_KEY, OPENAI_BASE_URL, ...).`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWidget(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVar(&personaID, "persona", persona.DefaultID, "persona to mount")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (defaults to LOG_LEVEL)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file; logging is off when empty")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runWidget(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// The terminal belongs to the UI, so logs only go to a file.
	logger := zap.NewNop()
	if logFile != "" {
		level := cfg.Log.Level
		if logLevel != "" {
			level = logLevel
		}
		logger, err = logging.New(level, cfg.Log.Development, logFile)
		if err != nil {
			return err
		}
	}
	defer func() { _ = logger.Sync() }()

	aiService, err := ai.NewServiceFromConfig(ctx, cfg.AI, logger)
	if err != nil {
		return fmt.Errorf("initialize AI service: %w", err)
	}

	personas := persona.NewMemoryStore(persona.Seed())
	p, ok := personas.Resolve(personaID)
	if !ok {
		return fmt.Errorf("unknown persona %q", personaID)
	}

	widget := chat.NewWidget(p, aiService, logger)
	defer widget.Close()

	logger.Info("widget mounted", zap.String("persona", p.ID), zap.String("model", cfg.AI.Model))

	program := tea.NewProgram(tui.New(widget, p.Name), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run terminal UI: %w", err)
	}
	return nil
}
