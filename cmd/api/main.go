package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/copilot-extension/backend/internal/config"
	"github.com/zhouzirui/copilot-extension/backend/internal/handler"
	"github.com/zhouzirui/copilot-extension/backend/internal/handler/copilot"
	"github.com/zhouzirui/copilot-extension/backend/internal/host"
	"github.com/zhouzirui/copilot-extension/backend/internal/logging"
	"github.com/zhouzirui/copilot-extension/backend/internal/model/chat"
	"github.com/zhouzirui/copilot-extension/backend/internal/plugin"
	"github.com/zhouzirui/copilot-extension/backend/internal/service/ai"
	"github.com/zhouzirui/copilot-extension/backend/internal/service/backend"
	chatService "github.com/zhouzirui/copilot-extension/backend/internal/service/chat"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Info("no .env file loaded, using process environment", zap.Error(envErr))
	}

	transport := backend.NewHTTPTransport(&http.Client{Timeout: 60 * time.Second})

	queryBackend, err := newBackend(ctx, cfg, transport, logger)
	if err != nil {
		logger.Fatal("failed to initialize backend", zap.Error(err))
	}

	chatSvc, err := chatService.NewService(queryBackend, chatService.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to initialize chat service", zap.Error(err))
	}

	hostApp := host.New(chat.HostContext{})
	extension := plugin.New(chatSvc, hostApp, logger)
	if err := extension.Initialize(ctx, hostApp, hostApp); err != nil {
		logger.Fatal("failed to initialize plugin", zap.Error(err))
	}

	var copilotHandler *copilot.Handler
	if cfg.Copilot.Enabled() || cfg.Copilot.HostURL != "" {
		copilotHandler, err = copilot.New(cfg.Copilot, transport, hostApp, logger)
		if err != nil {
			logger.Fatal("failed to initialize copilot interceptor", zap.Error(err))
		}
		logger.Info("copilot interception enabled",
			zap.String("forward_url", cfg.Copilot.ForwardURL),
			zap.String("host_url", cfg.Copilot.HostURL))
	} else {
		logger.Info("COPILOT_FORWARD_URL not set, copilot interception disabled")
	}

	router := handler.NewRouter(handler.Dependencies{
		Chat:    chatSvc,
		Host:    hostApp,
		Plugin:  extension,
		Copilot: copilotHandler,
		Logger:  logger,
	})

	startServer(ctx, cfg.Server, router, logger)

	extension.Close()
	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := chatSvc.Drain(drainCtx); err != nil {
		logger.Warn("pending replies abandoned at shutdown", zap.Error(err))
	}
}

// newBackend selects the remote bot backend or, with BACKEND_MODE=model, the
// chat model.
func newBackend(ctx context.Context, cfg *config.Config, transport backend.Transport, logger *zap.Logger) (chatService.Backend, error) {
	switch cfg.Backend.Mode {
	case config.BackendModeModel:
		svc, err := ai.NewService(ctx, cfg.AI, logger)
		if err != nil {
			return nil, fmt.Errorf("model backend: %w", err)
		}
		logger.Info("using chat model backend", zap.String("model", cfg.AI.Model))
		return svc, nil
	default:
		logger.Info("using remote backend",
			zap.String("url", cfg.Backend.InvokeURL()),
			zap.Bool("api_key", cfg.Backend.APIKey != ""),
			zap.Float64("rate_limit", cfg.Backend.RateLimit))
		return backend.NewClient(cfg.Backend, transport, logger), nil
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("copilot extension backend listening", zap.String("addr", addr))
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
