package stream

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/copilot-extension/backend/internal/logging"
	"github.com/zhouzirui/copilot-extension/backend/internal/model/chat"
	"github.com/zhouzirui/copilot-extension/backend/internal/render"
	chatService "github.com/zhouzirui/copilot-extension/backend/internal/service/chat"
	"github.com/zhouzirui/copilot-extension/backend/pkg/utils"
)

// Event types pushed to live clients.
const (
	EventConnected = "connected"
	EventTurn      = "turn"
	EventError     = "error"
	EventHeartbeat = "heartbeat"
	// EventResync replaces the client's transcript after it fell behind.
	EventResync = "resync"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = 54 * time.Second
	heartbeatInterval = 15 * time.Second
)

// Event is the envelope for every message sent to a live client.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// TurnPayload carries a turn alongside its rendered markup.
type TurnPayload struct {
	Turn chat.Turn `json:"turn"`
	HTML string    `json:"html"`
}

// ResyncPayload is the full transcript sent with EventResync.
type ResyncPayload struct {
	Turns []TurnPayload `json:"turns"`
}

// Handler 将会话的对话轮次实时推送给客户端（WebSocket 与 SSE）
type Handler struct {
	chatSvc  *chatService.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New creates a stream handler.
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		logger:  logging.OrNop(logger).With(zap.String("component", "stream")),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册实时推送路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
	r.Get("/stream/{sessionID}", h.handleSSE)
}

func turnPayload(turn chat.Turn) TurnPayload {
	return TurnPayload{Turn: turn, HTML: render.HTML(render.RenderTurn(turn))}
}

func (h *Handler) turnEvent(turn chat.Turn) Event {
	return Event{
		Type:      EventTurn,
		SessionID: turn.SessionID,
		Data:      turnPayload(turn),
		Timestamp: time.Now().Unix(),
	}
}

func (h *Handler) resyncEvent(sessionID string, turns []chat.Turn) Event {
	payload := ResyncPayload{Turns: make([]TurnPayload, 0, len(turns))}
	for _, turn := range turns {
		payload.Turns = append(payload.Turns, turnPayload(turn))
	}
	return Event{
		Type:      EventResync,
		SessionID: sessionID,
		Data:      payload,
		Timestamp: time.Now().Unix(),
	}
}

// feed follows one session for a live client. It subscribes before loading
// the backlog, so turns appended in between arrive twice; fresh filters them.
type feed struct {
	svc       *chatService.Service
	sessionID string
	updates   <-chan chat.Turn
	cancel    func()
	seen      map[string]struct{}
}

func (h *Handler) openFeed(ctx context.Context, sessionID string) (*feed, []chat.Turn, error) {
	f := &feed{svc: h.chatSvc, sessionID: sessionID, cancel: func() {}}
	backlog, err := f.subscribe(ctx)
	if err != nil {
		return nil, nil, err
	}
	return f, backlog, nil
}

// subscribe (re)attaches to the session and returns the full transcript.
// The service closes the updates channel when the client falls too far
// behind; calling subscribe again recovers.
func (f *feed) subscribe(ctx context.Context) ([]chat.Turn, error) {
	updates, cancel, err := f.svc.Subscribe(f.sessionID)
	if err != nil {
		return nil, err
	}

	backlog, err := f.svc.Transcript(ctx, f.sessionID)
	if err != nil {
		cancel()
		return nil, err
	}

	f.cancel()
	f.updates, f.cancel = updates, cancel
	f.seen = make(map[string]struct{}, len(backlog))
	for _, turn := range backlog {
		f.seen[turn.ID] = struct{}{}
	}
	return backlog, nil
}

// fresh reports whether turn has not been delivered yet, and records it.
func (f *feed) fresh(turn chat.Turn) bool {
	if _, dup := f.seen[turn.ID]; dup {
		return false
	}
	f.seen[turn.ID] = struct{}{}
	return true
}

func (f *feed) close() {
	f.cancel()
}

func respondFollowError(w http.ResponseWriter, err error) {
	if errors.Is(err, chatService.ErrSessionNotFound) {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	utils.RespondError(w, http.StatusInternalServerError, err.Error())
}

// handleSSE 以 Server-Sent Events 推送会话轮次，并定期发送心跳
func (h *Handler) handleSSE(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	f, backlog, err := h.openFeed(r.Context(), sessionID)
	if err != nil {
		respondFollowError(w, err)
		return
	}
	defer f.close()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	h.logger.Info("sse stream opened", zap.String("session", sessionID))
	defer h.logger.Info("sse stream closed", zap.String("session", sessionID))

	send := func(ev Event) bool {
		if err := utils.SendSSEEvent(w, flusher, ev.Type, ev); err != nil {
			h.logger.Debug("sse write failed", zap.String("session", sessionID), zap.Error(err))
			return false
		}
		return true
	}

	if !send(Event{Type: EventConnected, SessionID: sessionID, Timestamp: time.Now().Unix()}) {
		return
	}
	for _, turn := range backlog {
		if !send(h.turnEvent(turn)) {
			return
		}
	}
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case turn, ok := <-f.updates:
			if !ok {
				turns, err := f.subscribe(r.Context())
				if err != nil {
					h.logger.Warn("sse resync failed", zap.String("session", sessionID), zap.Error(err))
					return
				}
				h.logger.Info("sse client resynced", zap.String("session", sessionID), zap.Int("turns", len(turns)))
				if !send(h.resyncEvent(sessionID, turns)) {
					return
				}
				continue
			}
			if !f.fresh(turn) {
				continue
			}
			if !send(h.turnEvent(turn)) {
				return
			}
		case t := <-ticker.C:
			if !send(Event{Type: EventHeartbeat, SessionID: sessionID, Timestamp: t.Unix()}) {
				return
			}
		}
	}
}
