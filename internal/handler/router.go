package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/copilot-extension/backend/internal/handler/chat"
	"github.com/zhouzirui/copilot-extension/backend/internal/handler/copilot"
	pluginHandler "github.com/zhouzirui/copilot-extension/backend/internal/handler/plugin"
	"github.com/zhouzirui/copilot-extension/backend/internal/handler/stream"
	"github.com/zhouzirui/copilot-extension/backend/internal/host"
	"github.com/zhouzirui/copilot-extension/backend/internal/logging"
	middlewarePkg "github.com/zhouzirui/copilot-extension/backend/internal/middleware"
	"github.com/zhouzirui/copilot-extension/backend/internal/plugin"
	chatService "github.com/zhouzirui/copilot-extension/backend/internal/service/chat"
)

// Dependencies are the services the router exposes.
type Dependencies struct {
	Chat    *chatService.Service
	Host    *host.Host
	Plugin  *plugin.Plugin
	Copilot *copilot.Handler
	Logger  *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	logger := logging.OrNop(deps.Logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chat.New(deps.Chat)
	streamHandler := stream.New(deps.Chat, logger)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)

		if deps.Copilot != nil {
			deps.Copilot.RegisterRoutes(api)
		}
	})

	if deps.Host != nil && deps.Plugin != nil {
		r.Route("/plugin", pluginHandler.New(deps.Host, deps.Plugin).RegisterRoutes)
	}

	if deps.Copilot != nil {
		deps.Copilot.RegisterLegacyRoutes(r)
	}

	return r
}
