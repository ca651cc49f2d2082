package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-shop/backend/internal/config"
	"github.com/zhouzirui/z-shop/backend/internal/handler"
	"github.com/zhouzirui/z-shop/backend/internal/logging"
	"github.com/zhouzirui/z-shop/backend/internal/model/persona"
	"github.com/zhouzirui/z-shop/backend/internal/service/ai"
	"github.com/zhouzirui/z-shop/backend/internal/service/chat"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Info("no .env file loaded, using process environment only", zap.Error(envErr))
	}
	if cfg.AI.Provider == config.ProviderOpenAI && cfg.AI.APIKey == "" {
		logger.Warn("OPENAI_API_KEY is empty; completions will fall back to the apology reply")
	}

	aiService, err := ai.NewServiceFromConfig(ctx, cfg.AI, logger)
	if err != nil {
		logger.Fatal("failed to initialize AI service", zap.Error(err))
	}
	logger.Info("AI service initialized",
		zap.String("provider", cfg.AI.Provider),
		zap.String("model", cfg.AI.Model),
		zap.Int("max_tokens", cfg.AI.MaxTokens))

	personaStore := persona.NewMemoryStore(persona.Seed())
	chatService := chat.NewService(personaStore, aiService, logger)

	router := handler.NewRouter(personaStore, chatService, logger)

	startServer(ctx, cfg.Server, router, logger)

	drainWidgets(chatService, logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("shop assistant backend listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// drainWidgets unmounts every widget; completions have no timeout, so the
// wait is bounded here instead.
func drainWidgets(chatService *chat.Service, logger *zap.Logger) {
	done := make(chan struct{})
	go func() {
		chatService.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn("gave up waiting for outstanding completions")
	}
}
