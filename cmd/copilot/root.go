package main

import (
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/copilot-extension/backend/internal/config"
	"github.com/zhouzirui/copilot-extension/backend/internal/logging"
	"github.com/zhouzirui/copilot-extension/backend/internal/service/backend"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	backendURL string
	endpoint   string
	apiKey     string
	logLevel   string

	cfg       *config.Config
	logger    *zap.Logger
	transport backend.Transport
}

func newRootCmd() *cobra.Command {
	return newRootCommand(&app{})
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "copilot",
		Short: "Talk to the copilot backend from a terminal",
		Long: `copilot sends queries to the conversational backend and renders replies,
including weather cards, charts and tables, in the terminal.

Configuration is read from the environment (and a .env file when present);
flags override it.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.backendURL, "backend-url", "", "backend base URL (overrides BACKEND_URL)")
	flags.StringVar(&a.endpoint, "endpoint", "", "backend endpoint name (overrides BACKEND_ENDPOINT)")
	flags.StringVar(&a.apiKey, "api-key", "", "bearer token for the backend (overrides BACKEND_API_KEY)")
	flags.StringVar(&a.logLevel, "log-level", "error", "log level written to stderr")

	root.AddCommand(newAskCmd(a), newChatCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.backendURL != "" {
		cfg.Backend.BaseURL = a.backendURL
	}
	if a.endpoint != "" {
		cfg.Backend.Endpoint = a.endpoint
	}
	if a.apiKey != "" {
		cfg.Backend.APIKey = a.apiKey
	}

	logger, err := logging.New(a.logLevel)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	if a.transport == nil {
		a.transport = backend.NewHTTPTransport(&http.Client{Timeout: 60 * time.Second})
	}
	return nil
}

func (a *app) client() *backend.Client {
	return backend.NewClient(a.cfg.Backend, a.transport, a.logger)
}
