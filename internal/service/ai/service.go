package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/copilot-extension/backend/internal/config"
	"github.com/zhouzirui/copilot-extension/backend/internal/logging"
	"github.com/zhouzirui/copilot-extension/backend/internal/model/chat"
	"github.com/zhouzirui/copilot-extension/backend/internal/service/backend"
)

// SystemPrompt frames the model as the team-chat copilot.
const SystemPrompt = `You are Copilot, an assistant embedded in a team chat application.
Answer briefly and in plain text. You cannot display charts, cards or tables.`

// Service answers chat queries with a chat model instead of the remote backend.
// It never attaches components.
type Service struct {
	chain  compose.Runnable[map[string]any, *schema.Message]
	logger *zap.Logger
}

// NewService creates the Ark chat model described by cfg and wraps it.
func NewService(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, logger)
}

// NewServiceWithModel wraps an existing chat model.
func NewServiceWithModel(ctx context.Context, chatModel model.BaseChatModel, logger *zap.Logger) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chain:  runnable,
		logger: logging.OrNop(logger).With(zap.String("component", "ai")),
	}, nil
}

// Query runs text through the chain. Failures become the apology result.
func (s *Service) Query(ctx context.Context, text string) (result chat.QueryResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("chain panicked", zap.Any("panic", r))
			result = backend.Apology()
		}
	}()

	response, err := s.chain.Invoke(ctx, map[string]any{
		"system": SystemPrompt,
		"query":  text,
	})
	if err != nil {
		s.logger.Warn("chain invoke failed", zap.Error(err))
		return backend.Apology()
	}

	content := ""
	if response != nil {
		content = strings.TrimSpace(response.Content)
	}
	if content == "" {
		return chat.QueryResult{Text: backend.AcknowledgementText}
	}

	s.logger.Debug("generated response", zap.Int("length", len(content)))
	return chat.QueryResult{Text: content}
}
