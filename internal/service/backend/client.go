package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/zhouzirui/copilot-extension/backend/internal/config"
	"github.com/zhouzirui/copilot-extension/backend/internal/logging"
	"github.com/zhouzirui/copilot-extension/backend/internal/model/chat"
)

// maxResponseBytes bounds how much of a backend reply is read.
const maxResponseBytes = 4 << 20

// ErrUnexpectedStatus reports a non-2xx reply from the backend.
var ErrUnexpectedStatus = errors.New("unexpected backend status")

// Client sends chat queries to the conversational backend.
type Client struct {
	transport Transport
	invokeURL string
	apiKey    string
	logger    *zap.Logger
}

// NewClient builds a Client for cfg. A nil transport uses http.DefaultClient.
func NewClient(cfg config.BackendConfig, transport Transport, logger *zap.Logger) *Client {
	if transport == nil {
		transport = NewHTTPTransport(nil)
	}
	if cfg.RateLimit > 0 {
		transport = NewRateLimitedTransport(transport, cfg.RateLimit, cfg.RateBurst)
	}
	return &Client{
		transport: transport,
		invokeURL: cfg.InvokeURL(),
		apiKey:    cfg.APIKey,
		logger:    logging.OrNop(logger).With(zap.String("component", "backend")),
	}
}

// Query sends text and returns the normalized reply. It never fails: any
// error or panic in the round trip yields the apology result.
func (c *Client) Query(ctx context.Context, text string) (result chat.QueryResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("query panicked", zap.Any("panic", r))
			result = Apology()
		}
	}()

	res, err := c.invoke(ctx, text)
	if err != nil {
		c.logger.Warn("query failed", zap.String("url", c.invokeURL), zap.Error(err))
		return Apology()
	}
	return res
}

func (c *Client) invoke(ctx context.Context, text string) (chat.QueryResult, error) {
	payload, err := json.Marshal(NewInvokeRequest(text))
	if err != nil {
		return chat.QueryResult{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.invokeURL, bytes.NewReader(payload))
	if err != nil {
		return chat.QueryResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("sending query", zap.Int("length", len(text)))

	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return chat.QueryResult{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return chat.QueryResult{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return chat.QueryResult{}, fmt.Errorf("read response: %w", err)
	}

	result, dropped, err := normalize(body)
	if err != nil {
		return chat.QueryResult{}, err
	}
	if dropped != "" {
		c.logger.Debug("dropping unrecognized tool result", zap.String("type", dropped))
	}
	return result, nil
}
