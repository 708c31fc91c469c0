// Package copilot intercepts the host application's copilot calls and
// answers them from the extension's own backend.
package copilot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/copilot-extension/backend/internal/config"
	"github.com/zhouzirui/copilot-extension/backend/internal/logging"
	"github.com/zhouzirui/copilot-extension/backend/internal/plugin"
	"github.com/zhouzirui/copilot-extension/backend/internal/service/backend"
	"github.com/zhouzirui/copilot-extension/backend/pkg/utils"
)

// ResponseType tags every transformed reply.
const ResponseType = "copilot_response"

const maxBodyBytes = 1 << 20

// ErrForwardDisabled is returned when no forward URL is configured.
var ErrForwardDisabled = errors.New("copilot forwarding is not configured")

// HostContext is the host state attached to every forwarded request.
type HostContext struct {
	CurrentTeam    string `json:"currentTeam,omitempty"`
	CurrentChannel string `json:"currentChannel,omitempty"`
	CurrentUser    string `json:"currentUser,omitempty"`
}

// ForwardRequest is the body sent to the forward URL.
type ForwardRequest struct {
	OriginalRequest   json.RawMessage `json:"original_request"`
	MattermostContext HostContext     `json:"mattermost_context"`
	OriginalURL       string          `json:"original_url"`
}

// Response is what intercepted callers receive.
type Response struct {
	Type        string         `json:"type"`
	Text        string         `json:"text"`
	Suggestions []any          `json:"suggestions"`
	Metadata    map[string]any `json:"metadata"`
}

type upstreamResponse struct {
	Response    string         `json:"response"`
	Suggestions []any          `json:"suggestions"`
	Metadata    map[string]any `json:"metadata"`
}

// Handler 拦截 copilot 请求并转发到扩展后端
type Handler struct {
	forwardURL string
	transport  backend.Transport
	state      plugin.StateAccessor
	fallback   http.Handler
	logger     *zap.Logger
}

// New builds the interceptor. When cfg.HostURL is set, requests that cannot
// be answered are passed through to the host unchanged.
func New(cfg config.CopilotConfig, transport backend.Transport, state plugin.StateAccessor, logger *zap.Logger) (*Handler, error) {
	if transport == nil {
		transport = backend.NewHTTPTransport(nil)
	}

	h := &Handler{
		forwardURL: cfg.ForwardURL,
		transport:  transport,
		state:      state,
		logger:     logging.OrNop(logger).With(zap.String("component", "copilot")),
	}

	if cfg.HostURL != "" {
		target, err := url.Parse(cfg.HostURL)
		if err != nil {
			return nil, fmt.Errorf("parse host url: %w", err)
		}
		proxy := httputil.NewSingleHostReverseProxy(target)
		director := proxy.Director
		proxy.Director = func(req *http.Request) {
			director(req)
			req.Host = target.Host
		}
		proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			h.logger.Error("host passthrough failed", zap.String("path", r.URL.Path), zap.Error(err))
			utils.RespondError(w, http.StatusBadGateway, "copilot request failed")
		}
		h.fallback = proxy
	}

	return h, nil
}

// RegisterRoutes registers the intercepted paths below the api router.
func (h *Handler) RegisterRoutes(api chi.Router) {
	api.Handle("/v1/copilot", h)
	api.Handle("/v1/copilot/*", h)
}

// RegisterLegacyRoutes registers the root level plugin path.
func (h *Handler) RegisterLegacyRoutes(root chi.Router) {
	root.Handle("/mattermost-copilot/*", h)
}

// ServeHTTP forwards the request with host context and rewrites the reply.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	_ = r.Body.Close()

	resp, err := h.forward(r, raw)
	if err == nil {
		utils.RespondJSON(w, http.StatusOK, resp)
		return
	}

	h.logger.Warn("copilot interception failed",
		zap.String("path", r.URL.Path),
		zap.Bool("passthrough", h.fallback != nil),
		zap.Error(err))

	if h.fallback == nil {
		utils.RespondError(w, http.StatusBadGateway, "copilot request failed")
		return
	}

	r.Body = io.NopCloser(bytes.NewReader(raw))
	r.ContentLength = int64(len(raw))
	h.fallback.ServeHTTP(w, r)
}

func (h *Handler) forward(r *http.Request, raw []byte) (Response, error) {
	if h.forwardURL == "" {
		return Response{}, ErrForwardDisabled
	}

	original := json.RawMessage("{}")
	if len(bytes.TrimSpace(raw)) > 0 {
		if !json.Valid(raw) {
			return Response{}, errors.New("request body is not valid JSON")
		}
		original = raw
	}

	payload, err := json.Marshal(ForwardRequest{
		OriginalRequest:   original,
		MattermostContext: h.hostContext(),
		OriginalURL:       r.URL.String(),
	})
	if err != nil {
		return Response{}, fmt.Errorf("encode forward request: %w", err)
	}

	upstream, err := h.send(r.Context(), r.Header, payload)
	if err != nil {
		return Response{}, err
	}
	return transform(upstream), nil
}

func (h *Handler) send(ctx context.Context, incoming http.Header, payload []byte) (upstreamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.forwardURL, bytes.NewReader(payload))
	if err != nil {
		return upstreamResponse{}, fmt.Errorf("build forward request: %w", err)
	}
	copyHeaders(req.Header, incoming)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.transport.Send(ctx, req)
	if err != nil {
		return upstreamResponse{}, fmt.Errorf("forward copilot request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return upstreamResponse{}, fmt.Errorf("%w: %d", backend.ErrUnexpectedStatus, resp.StatusCode)
	}

	var out upstreamResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out); err != nil {
		return upstreamResponse{}, fmt.Errorf("decode copilot reply: %w", err)
	}
	return out, nil
}

func (h *Handler) hostContext() HostContext {
	if h.state == nil {
		return HostContext{}
	}
	state := h.state.State()
	return HostContext{
		CurrentTeam:    state.TeamID,
		CurrentChannel: state.ChannelID,
		CurrentUser:    state.UserID,
	}
}

func transform(upstream upstreamResponse) Response {
	resp := Response{
		Type:        ResponseType,
		Text:        upstream.Response,
		Suggestions: upstream.Suggestions,
		Metadata:    upstream.Metadata,
	}
	if resp.Suggestions == nil {
		resp.Suggestions = []any{}
	}
	if resp.Metadata == nil {
		resp.Metadata = map[string]any{}
	}
	return resp
}

// skipHeaders are not carried over to the forwarded request.
var skipHeaders = map[string]struct{}{
	"Accept-Encoding":   {},
	"Connection":        {},
	"Content-Length":    {},
	"Keep-Alive":        {},
	"Te":                {},
	"Trailer":           {},
	"Transfer-Encoding": {},
	"Upgrade":           {},
}

func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		if _, skip := skipHeaders[http.CanonicalHeaderKey(key)]; skip {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}
